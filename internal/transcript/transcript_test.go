package transcript_test

import (
	"testing"

	"github.com/MrWong99/cmiique/internal/corpus"
	"github.com/MrWong99/cmiique/internal/corpus/corpustest"
	"github.com/MrWong99/cmiique/internal/match"
	"github.com/MrWong99/cmiique/internal/transcript"
	"github.com/MrWong99/cmiique/pkg/lang"
)

func TestSnap(t *testing.T) {
	t.Parallel()

	ix := corpustest.Index()
	s := transcript.New()

	tests := []struct {
		name      string
		text      string
		l         lang.Language
		want      string
		wantFixes int
	}{
		{"misheard seri word", "Tahejok", lang.Seri, "tahejoc", 1},
		{"punctuation preserved", "¡Tahejok!", lang.Seri, "¡tahejoc!", 1},
		{"known word untouched", "Hant iimoz", lang.Seri, "Hant iimoz", 0},
		{"short token untouched", "ah", lang.Seri, "ah", 0},
		{"unrelated token untouched", "xyzzy", lang.Seri, "xyzzy", 0},
		{"english with shared metaphone code", "watter", lang.English, "water", 1},
		{"blank", "   ", lang.Spanish, "   ", 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, fixes := s.Snap(tc.text, tc.l, ix.Vocabulary(tc.l))
			if got != tc.want {
				t.Errorf("Snap(%q) = %q, want %q", tc.text, got, tc.want)
			}
			if len(fixes) != tc.wantFixes {
				t.Errorf("Snap(%q) corrections = %+v, want %d", tc.text, fixes, tc.wantFixes)
			}
			for _, f := range fixes {
				if f.Confidence < 0.88 || f.Confidence > 1 {
					t.Errorf("correction %+v confidence out of range", f)
				}
			}
		})
	}
}

func TestSnap_CorrectionDetails(t *testing.T) {
	t.Parallel()

	s := transcript.New()
	_, fixes := s.Snap("Tahejok, amigo", lang.Seri, []string{"hant", "tahejoc"})
	if len(fixes) != 1 {
		t.Fatalf("got %d corrections, want 1", len(fixes))
	}
	if fixes[0].Original != "Tahejok" || fixes[0].Corrected != "tahejoc" {
		t.Errorf("correction = %+v", fixes[0])
	}
}

func TestSnap_Threshold(t *testing.T) {
	t.Parallel()

	strict := transcript.New(transcript.WithThreshold(0.99))
	got, fixes := strict.Snap("Tahejok", lang.Seri, []string{"tahejoc"})
	if got != "Tahejok" || len(fixes) != 0 {
		t.Errorf("strict Snap = (%q, %v), want unchanged", got, fixes)
	}

	loose := transcript.New(transcript.WithMinLength(1))
	if got, _ := loose.Snap("ax", lang.Seri, []string{"ax"}); got != "ax" {
		t.Errorf("known short word changed: %q", got)
	}
}

func TestSnap_EmptyVocabulary(t *testing.T) {
	t.Parallel()

	got, fixes := transcript.New().Snap("Tahejok", lang.Seri, nil)
	if got != "Tahejok" || fixes != nil {
		t.Errorf("Snap with no vocabulary = (%q, %v)", got, fixes)
	}
}

func TestSnap_ApostropheWords(t *testing.T) {
	t.Parallel()

	s := transcript.New()
	vocab := []string{"ata", "hapx", "tahejoc"}

	tests := []struct {
		name      string
		text      string
		want      string
		wantFixes []transcript.Correction
	}{
		{"every part known", "Hapx'ata", "Hapx'ata", nil},
		{"known parts with punctuation", "¿Hapx’ata?", "¿Hapx’ata?", nil},
		{"only the unknown part snaps", "hapx'tahejok", "hapx'tahejoc",
			[]transcript.Correction{{Original: "tahejok", Corrected: "tahejoc"}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, fixes := s.Snap(tc.text, lang.Seri, vocab)
			if got != tc.want {
				t.Errorf("Snap(%q) = %q, want %q", tc.text, got, tc.want)
			}
			if len(fixes) != len(tc.wantFixes) {
				t.Fatalf("Snap(%q) corrections = %+v, want %+v", tc.text, fixes, tc.wantFixes)
			}
			for i, f := range fixes {
				if f.Original != tc.wantFixes[i].Original || f.Corrected != tc.wantFixes[i].Corrected {
					t.Errorf("correction %d = %+v, want %+v", i, f, tc.wantFixes[i])
				}
			}
		})
	}
}

func TestSnap_KeepsCorpusMatch(t *testing.T) {
	t.Parallel()

	ix, err := corpus.NewIndex([]corpus.PhraseEntry{
		corpustest.Entry("fish", "Hapx'ata", "Pescado", "Fish"),
	})
	if err != nil {
		t.Fatal(err)
	}
	got, _ := transcript.New().Snap("Hapx'ata", lang.Seri, ix.Vocabulary(lang.Seri))
	if score := match.Score(got, "Hapx'ata"); score != 1 {
		t.Errorf("Score(%q, corpus text) = %v, want 1", got, score)
	}
}
