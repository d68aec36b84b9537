// Package corpustest provides a small fixed phrase table for tests in other
// packages.
package corpustest

import "github.com/MrWong99/cmiique/internal/corpus"

// Rows is the phrase table returned by [Index], in enumeration order.
var Rows = []corpus.PhraseRow{
	{Key: "greeting", Seri: "Hant", ES: "Hola", EN: "Hello"},
	{Key: "thanks", Seri: "Tahejöc", ES: "Gracias", EN: "Thank you"},
	{Key: "how_are_you", Seri: "¿Hant iiha?", ES: "Hola, ¿cómo estás?", EN: "Hello, how are you?"},
	{Key: "water", Seri: "Ax", ES: "Agua", EN: "Water"},
	{Key: "sea", Seri: "Xepe", ES: "El mar", EN: "The sea"},
	{Key: "sun", Seri: "Zaah", ES: "El sol", EN: "The sun"},
	{Key: "good_morning", Seri: "Hant iimoz", ES: "Buenos días", EN: "Good morning"},
	{Key: "see_you", Seri: "", ES: "Hasta luego", EN: "See you later"},
}

// Index builds an index over [Rows]. It panics if the rows are invalid.
func Index() *corpus.Index {
	entries := make([]corpus.PhraseEntry, 0, len(Rows))
	for _, r := range Rows {
		entries = append(entries, r.Entry())
	}
	ix, err := corpus.NewIndex(entries, corpus.WithVersion("corpustest"))
	if err != nil {
		panic(err)
	}
	return ix
}

// Entry returns a single three-language entry.
func Entry(key, seri, es, en string) corpus.PhraseEntry {
	return corpus.PhraseRow{Key: key, Seri: seri, ES: es, EN: en}.Entry()
}

