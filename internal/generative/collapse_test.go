package generative_test

import (
	"testing"

	"github.com/MrWong99/cmiique/internal/generative"
)

func TestCollapseRepeats(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no repeat unchanged", "El mar está  tranquilo", "El mar está  tranquilo"},
		{"two word window", "the sea the sea is calm", "the sea is calm"},
		{"three word window", "good morning friend good morning friend", "good morning friend"},
		{"case and punctuation insensitive", "Buenos días, buenos días amigo", "Buenos días, amigo"},
		{"accent insensitive", "cómo estás como estas", "cómo estás"},
		{"repeated more than twice", "hant iiha hant iiha hant iiha", "hant iiha"},
		{"single repeated word kept", "muy muy bien", "muy muy bien"},
		{"non adjacent repeat kept", "the sea and the sea", "the sea and the sea"},
		{"empty", "", ""},
		{"punctuation tokens ignored", "- - - -", "- - - -"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := generative.CollapseRepeats(tc.in); got != tc.want {
				t.Errorf("CollapseRepeats(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestCollapseRepeats_Idempotent(t *testing.T) {
	t.Parallel()

	for _, s := range []string{
		"the sea the sea is calm",
		"a b c a b c a b",
		"uno dos uno dos tres cuatro tres cuatro",
	} {
		once := generative.CollapseRepeats(s)
		if twice := generative.CollapseRepeats(once); twice != once {
			t.Errorf("not idempotent for %q: %q then %q", s, once, twice)
		}
	}
}
