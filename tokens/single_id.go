package tokens

import "github.com/Noofbiz/instancebatch/vocab"

// DefaultNamespace is the vocabulary namespace used by SingleID when none is
// given.
const DefaultNamespace = "tokens"

// SingleID represents each token as exactly one integer: its precomputed id if
// it has one, otherwise its vocabulary id.
type SingleID struct {
	// Namespace is the vocabulary namespace ids are looked up in.
	Namespace string

	// LowercaseTokens lowercases text before counting and lookup.
	LowercaseTokens bool
}

// NewSingleID returns a SingleID indexer. An empty namespace means
// DefaultNamespace.
func NewSingleID(namespace string, lowercase bool) *SingleID {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &SingleID{Namespace: namespace, LowercaseTokens: lowercase}
}

var _ TokenIndexer[int] = (*SingleID)(nil)

func (s *SingleID) CountVocabItems(token Token, counter vocab.Counter) {
	if _, ok := token.ID(); ok {
		return
	}
	counter.Add(s.Namespace, normalize(token.Text, s.LowercaseTokens))
}

// TokensToIndices looks up every token. Text the vocabulary can't resolve is
// written as vocab.NoIndex, so a vocabulary without an OOV token needs
// SetUnknownIndex on Namespace before its ids are fed to an embedding.
func (s *SingleID) TokensToIndices(tokens []Token, v *vocab.Vocabulary, indexName string) map[string][]int {
	indices := make([]int, 0, len(tokens))
	for _, token := range tokens {
		if id, ok := token.ID(); ok {
			indices = append(indices, id)
			continue
		}
		indices = append(indices, v.TokenIndex(normalize(token.Text, s.LowercaseTokens), s.Namespace))
	}
	return map[string][]int{indexName: indices}
}

func (s *SingleID) PaddingToken() int {
	return 0
}

func (s *SingleID) PaddingLengths(int) map[string]int {
	return map[string]int{}
}

func (s *SingleID) PadTokenSequence(tokens map[string][]int, desired map[string]int, _ map[string]int) map[string][]int {
	out := make(map[string][]int, len(tokens))
	for key, val := range tokens {
		out[key] = padSequenceToLength(val, desired[key], s.PaddingToken)
	}
	return out
}
