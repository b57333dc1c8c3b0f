package tokens

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/Noofbiz/instancebatch/vocab"
)

// TokenIndexer converts tokens into integer arrays. T is the value produced
// for a single token: an int for indexers emitting one id per token, a []int
// for indexers emitting several.
//
// Every variant must honor Token.TextID: a token with a precomputed id is
// never counted and never looked up.
type TokenIndexer[T any] interface {
	// CountVocabItems records the vocabulary entries token needs.
	CountVocabItems(token Token, counter vocab.Counter)

	// TokensToIndices returns a single array named indexName with one value
	// per token.
	TokensToIndices(tokens []Token, v *vocab.Vocabulary, indexName string) map[string][]T

	// PaddingToken is the value appended when padding.
	PaddingToken() T

	// PaddingLengths reports the per-token axes an item needs, beyond the
	// sequence length which the owning field tracks.
	PaddingLengths(item T) map[string]int

	// PadTokenSequence right-pads every array in tokens to desired[name]. Per
	// token axes are padded to paddingLengths. Arrays are never truncated.
	PadTokenSequence(tokens map[string][]T, desired map[string]int, paddingLengths map[string]int) map[string][]T
}

// Indexer is the view of a TokenIndexer that fields work against. It hides
// the item type so a field can hold several kinds of indexer at once.
type Indexer interface {
	CountVocabItems(token Token, counter vocab.Counter)
	Index(tokens []Token, v *vocab.Vocabulary, indexName string) Indexed
}

// Indexed is the output of one Indexer for one field.
type Indexed interface {
	// NumTokens is the length of the arrays before padding.
	NumTokens() int

	// PaddingLengths is the max, over every token, of the indexer's per token
	// axes.
	PaddingLengths() map[string]int

	// Pad renders every array padded to desired tokens, using paddingLengths
	// for per token axes. Values are []T.
	Pad(desired map[string]int, paddingLengths map[string]int) map[string]any
}

// Erase adapts a TokenIndexer to the Indexer interface.
func Erase[T any](ti TokenIndexer[T]) Indexer {
	return erased[T]{ti}
}

type erased[T any] struct {
	ti TokenIndexer[T]
}

func (e erased[T]) CountVocabItems(token Token, counter vocab.Counter) {
	e.ti.CountVocabItems(token, counter)
}

func (e erased[T]) Index(tokens []Token, v *vocab.Vocabulary, indexName string) Indexed {
	return indexed[T]{ti: e.ti, arrays: e.ti.TokensToIndices(tokens, v, indexName), numTokens: len(tokens)}
}

type indexed[T any] struct {
	ti        TokenIndexer[T]
	arrays    map[string][]T
	numTokens int
}

func (x indexed[T]) NumTokens() int { return x.numTokens }

func (x indexed[T]) PaddingLengths() map[string]int {
	lengths := make(map[string]int)
	for _, arr := range x.arrays {
		for _, item := range arr {
			for axis, n := range x.ti.PaddingLengths(item) {
				lengths[axis] = max(lengths[axis], n)
			}
		}
	}
	return lengths
}

func (x indexed[T]) Pad(desired map[string]int, paddingLengths map[string]int) map[string]any {
	padded := x.ti.PadTokenSequence(x.arrays, desired, paddingLengths)
	out := make(map[string]any, len(padded))
	for name, arr := range padded {
		out[name] = arr
	}
	return out
}

// padSequenceToLength right-pads seq with pad up to length. A sequence that is
// already long enough is returned unchanged.
func padSequenceToLength[T any](seq []T, length int, pad func() T) []T {
	if len(seq) >= length {
		return seq
	}
	out := make([]T, length)
	copy(out, seq)
	for i := len(seq); i < length; i++ {
		out[i] = pad()
	}
	return out
}

// normalize applies the lowercase option. A cases.Caser is stateful and not
// safe for concurrent use, so one is built per call.
func normalize(text string, lowercase bool) string {
	if !lowercase {
		return text
	}
	return cases.Lower(language.Und).String(text)
}
