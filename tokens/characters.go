package tokens

import "github.com/Noofbiz/instancebatch/vocab"

const (
	// DefaultCharactersNamespace is the namespace Characters uses when none is
	// given.
	DefaultCharactersNamespace = "token_characters"

	// NumTokenCharacters is the per-token axis reported by Characters.
	NumTokenCharacters = "num_token_characters"
)

// Characters represents each token as the list of its rune ids. A token with a
// precomputed id becomes the single-element row [id].
type Characters struct {
	Namespace       string
	LowercaseTokens bool

	// MinPaddingLength is a floor for the character axis, for models whose
	// convolution width needs a minimum input length.
	MinPaddingLength int
}

// NewCharacters returns a Characters indexer. An empty namespace means
// DefaultCharactersNamespace.
func NewCharacters(namespace string, lowercase bool, minPaddingLength int) *Characters {
	if namespace == "" {
		namespace = DefaultCharactersNamespace
	}
	return &Characters{Namespace: namespace, LowercaseTokens: lowercase, MinPaddingLength: minPaddingLength}
}

var _ TokenIndexer[[]int] = (*Characters)(nil)

func (c *Characters) CountVocabItems(token Token, counter vocab.Counter) {
	if _, ok := token.ID(); ok {
		return
	}
	for _, r := range normalize(token.Text, c.LowercaseTokens) {
		counter.Add(c.Namespace, string(r))
	}
}

func (c *Characters) TokensToIndices(tokens []Token, v *vocab.Vocabulary, indexName string) map[string][][]int {
	rows := make([][]int, 0, len(tokens))
	for _, token := range tokens {
		if id, ok := token.ID(); ok {
			rows = append(rows, []int{id})
			continue
		}
		text := normalize(token.Text, c.LowercaseTokens)
		row := make([]int, 0, len(text))
		for _, r := range text {
			row = append(row, v.TokenIndex(string(r), c.Namespace))
		}
		rows = append(rows, row)
	}
	return map[string][][]int{indexName: rows}
}

func (c *Characters) PaddingToken() []int {
	return []int{}
}

func (c *Characters) PaddingLengths(item []int) map[string]int {
	return map[string]int{NumTokenCharacters: len(item)}
}

func (c *Characters) PadTokenSequence(tokens map[string][][]int, desired map[string]int, paddingLengths map[string]int) map[string][][]int {
	width := max(paddingLengths[NumTokenCharacters], c.MinPaddingLength)
	out := make(map[string][][]int, len(tokens))
	for key, rows := range tokens {
		rows = padSequenceToLength(rows, desired[key], c.PaddingToken)
		padded := make([][]int, len(rows))
		for i, row := range rows {
			padded[i] = padSequenceToLength(row, width, func() int { return 0 })
		}
		out[key] = padded
	}
	return out
}
