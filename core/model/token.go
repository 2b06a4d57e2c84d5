package model

import "strings"

// Token is one unit of an input utterance. Element carries the textual
// content; the remaining fields are input-supplied metadata which the engine
// forwards to services untouched.
type Token struct {
	Element     string  `json:"element"`
	Probability float64 `json:"probability,omitempty"`
	// Verbal is false for non-speech markers such as pauses.
	Verbal bool `json:"verbal,omitempty"`
}

func (t Token) String() string { return t.Element }

// Word is the lowercase, letters-only projection used for phrase matching.
func (t Token) Word() string {
	return strings.ToLower(ToLetters(t.Element))
}

// ToLetters strips everything but ASCII letters from a word.
func ToLetters(word string) string {
	var b strings.Builder
	for _, r := range word {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Words projects a token batch for matching. The result is index-aligned with
// the batch, so tokens with no letters yield an empty word rather than being
// dropped.
func Words(tokens []Token) []string {
	words := make([]string, len(tokens))
	for i, t := range tokens {
		words[i] = t.Word()
	}
	return words
}

// Tokenize splits plain text on whitespace into verbal tokens. Inputs that
// receive untokenized text use it to build a batch.
func Tokenize(text string) []Token {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil
	}
	tokens := make([]Token, len(fields))
	for i, f := range fields {
		tokens[i] = Token{Element: f, Probability: 1, Verbal: true}
	}
	return tokens
}
