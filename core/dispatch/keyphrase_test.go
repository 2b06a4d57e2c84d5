package dispatch

import (
	"reflect"
	"testing"
)

func TestParseKeyPhrase(t *testing.T) {
	cases := []struct {
		in   string
		want KeyPhrase
	}{
		{"Hey Kestrel", KeyPhrase{"hey", "kestrel"}},
		{"  O.K.  computer! ", KeyPhrase{"ok", "computer"}},
		{"123 456", nil},
		{"", nil},
	}
	for _, c := range cases {
		if got := ParseKeyPhrase(c.in); !reflect.DeepEqual(got, c.want) {
			t.Errorf("ParseKeyPhrase(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestIndexOfSublist(t *testing.T) {
	words := []string{"a", "b", "a", "b", "c"}
	cases := []struct {
		sub   []string
		start int
		want  int
	}{
		{[]string{"a", "b"}, 0, 0},
		{[]string{"a", "b"}, 1, 2},
		{[]string{"b", "c"}, 0, 3},
		{[]string{"c"}, 0, 4},
		{[]string{"a", "c"}, 0, -1},
		{[]string{"c", "d"}, 0, -1},
		{nil, 0, -1},
	}
	for _, c := range cases {
		if got := indexOfSublist(words, c.sub, c.start); got != c.want {
			t.Errorf("indexOfSublist(%v, %v, %d) = %d, want %d",
				words, c.sub, c.start, got, c.want)
		}
	}
}

// A tentative start whose remainder mismatches must not hide a later
// occurrence.
func TestIndexOfSublistResumesAfterFalseStart(t *testing.T) {
	words := []string{"a", "x", "a", "b"}
	if got := indexOfSublist(words, []string{"a", "b"}, 0); got != 2 {
		t.Fatalf("expected 2 got %d", got)
	}
}

func TestDetect(t *testing.T) {
	phrases := []KeyPhrase{
		ParseKeyPhrase("hey kestrel"),
		ParseKeyPhrase("kestrel"),
	}
	cases := []struct {
		name  string
		words []string
		want  int
	}{
		{"no match", []string{"whats", "the", "time"}, -1},
		{"first phrase", []string{"hey", "dummy", "whats", "up"}, -1},
		{"single word phrase", []string{"kestrel", "whats", "up"}, 1},
		{"mid utterance", []string{"um", "hey", "kestrel", "time"}, 3},
		{"phrase at end", []string{"say", "hey", "kestrel"}, 3},
	}
	for _, c := range cases {
		if got := Detect(phrases, c.words); got != c.want {
			t.Errorf("%s: Detect = %d, want %d", c.name, got, c.want)
		}
	}
}

// Both phrases match here: "hey kestrel" ends at 2, the bare "kestrel" ends
// at 2 as well; with a later second occurrence the last-evaluated phrase
// determines the cut point.
func TestDetectLastPhraseWins(t *testing.T) {
	phrases := []KeyPhrase{
		ParseKeyPhrase("hey kestrel now"),
		ParseKeyPhrase("hey"),
	}
	words := []string{"hey", "kestrel", "now", "tell", "me"}
	// "hey kestrel now" matches with offset 3, but the later-configured
	// "hey" re-matches and moves the offset back to 1.
	if got := Detect(phrases, words); got != 1 {
		t.Fatalf("expected 1 got %d", got)
	}
}

func TestDetectSkipsUnmatchablePhrase(t *testing.T) {
	phrases := []KeyPhrase{ParseKeyPhrase("123"), ParseKeyPhrase("kestrel")}
	if got := Detect(phrases, []string{"kestrel", "hi"}); got != 1 {
		t.Fatalf("expected 1 got %d", got)
	}
}
