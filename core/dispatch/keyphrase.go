package dispatch

import (
	"strings"

	"github.com/kestrelhq/kestrel/core/model"
)

// KeyPhrase is an ordered, immutable sequence of lowercase letters-only
// words. A phrase that sanitizes down to nothing is unmatchable, not an
// error.
type KeyPhrase []string

// ParseKeyPhrase sanitizes configured text into a KeyPhrase: words are split
// on whitespace, stripped to letters, lowercased, and dropped when empty.
func ParseKeyPhrase(text string) KeyPhrase {
	var phrase KeyPhrase
	for _, word := range strings.Fields(text) {
		word = strings.ToLower(model.ToLetters(word))
		if word != "" {
			phrase = append(phrase, word)
		}
	}
	return phrase
}

func (p KeyPhrase) String() string { return strings.Join(p, " ") }

// indexOf returns the index of the first word equal to want at or after
// start, or -1.
func indexOf(words []string, want string, start int) int {
	for i := start; i < len(words); i++ {
		if words[i] == want {
			return i
		}
	}
	return -1
}

// indexOfSublist finds sub as a contiguous ordered sublist of words at or
// after start and returns the index of its first word, or -1. Each
// occurrence of the first word is treated as a tentative start; on mismatch
// the search resumes just after it.
func indexOfSublist(words, sub []string, start int) int {
	if len(sub) == 0 {
		return -1
	}
	for offset := start; ; {
		first := indexOf(words, sub[0], offset)
		if first < 0 {
			return -1
		}
		if matchesAt(words, sub, first) {
			return first
		}
		offset = first + 1
	}
}

func matchesAt(words, sub []string, at int) bool {
	if at+len(sub) > len(words) {
		return false
	}
	for i := 1; i < len(sub); i++ {
		if words[at+i] != sub[i] {
			return false
		}
	}
	return true
}

// Detect searches words for every configured phrase and returns the index
// immediately after the matched one, or -1 when none match. When several
// phrases match, the last one in configuration order wins.
func Detect(phrases []KeyPhrase, words []string) int {
	offset := -1
	for _, phrase := range phrases {
		if len(phrase) == 0 {
			continue
		}
		if at := indexOfSublist(words, phrase, 0); at >= 0 {
			offset = at + len(phrase)
		}
	}
	return offset
}
