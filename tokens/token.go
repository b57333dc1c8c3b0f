// Package tokens holds the Token type and the TokenIndexer strategies that turn
// token sequences into integer arrays.
package tokens

import "strings"

// Token is a piece of text, optionally carrying a precomputed id. When TextID
// is set every indexer uses it as-is and never consults the vocabulary, which
// lets callers feed hashed or sub-word ids produced elsewhere.
type Token struct {
	Text   string
	TextID *int
}

// NewToken returns a Token without a precomputed id.
func NewToken(text string) Token {
	return Token{Text: text}
}

// NewTokenWithID returns a Token that bypasses vocabulary lookup.
func NewTokenWithID(text string, id int) Token {
	return Token{Text: text, TextID: &id}
}

// ID returns the precomputed id, if any.
func (t Token) ID() (int, bool) {
	if t.TextID == nil {
		return 0, false
	}
	return *t.TextID, true
}

func (t Token) String() string {
	return t.Text
}

// FromStrings wraps each string in a Token.
func FromStrings(texts ...string) []Token {
	out := make([]Token, len(texts))
	for i, text := range texts {
		out[i] = NewToken(text)
	}
	return out
}

// WhitespaceTokenizer splits text on runs of Unicode white space.
type WhitespaceTokenizer struct{}

// Tokenize splits text into Tokens.
func (WhitespaceTokenizer) Tokenize(text string) []Token {
	return FromStrings(strings.Fields(text)...)
}
