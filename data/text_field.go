package data

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/Noofbiz/instancebatch/tokens"
	"github.com/Noofbiz/instancebatch/vocab"
)

// NumTokens is the sequence-length axis of a TextField.
const NumTokens = "num_tokens"

// TextField is a sequence of tokens rendered by one or more indexers. Each
// indexer contributes its own named array, keyed by the indexer's name.
type TextField struct {
	Tokens   []tokens.Token
	Indexers map[string]tokens.Indexer
}

// NewTextField returns a TextField over toks.
func NewTextField(toks []tokens.Token, indexers map[string]tokens.Indexer) *TextField {
	return &TextField{Tokens: toks, Indexers: indexers}
}

func (f *TextField) indexerNames() []string {
	names := make([]string, 0, len(f.Indexers))
	for name := range f.Indexers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (f *TextField) CountVocabItems(counter vocab.Counter) {
	for _, name := range f.indexerNames() {
		for _, tok := range f.Tokens {
			f.Indexers[name].CountVocabItems(tok, counter)
		}
	}
}

func (f *TextField) Index(v *vocab.Vocabulary) (IndexedField, error) {
	if len(f.Indexers) == 0 {
		return nil, errors.Wrap(ErrMalformedInstance, "text field has no token indexers")
	}
	out := &indexedText{numTokens: len(f.Tokens), names: f.indexerNames()}
	out.indexed = make(map[string]tokens.Indexed, len(out.names))
	for _, name := range out.names {
		out.indexed[name] = f.Indexers[name].Index(f.Tokens, v, name)
	}
	return out, nil
}

type indexedText struct {
	numTokens int
	names     []string
	indexed   map[string]tokens.Indexed
}

func (t *indexedText) PaddingLengths() map[string]int {
	lengths := map[string]int{NumTokens: t.numTokens}
	for _, name := range t.names {
		for axis, n := range t.indexed[name].PaddingLengths() {
			lengths[axis] = max(lengths[axis], n)
		}
	}
	return lengths
}

func (t *indexedText) AsArrays(lengths map[string]int) (map[string]any, error) {
	desired := lengths[NumTokens]
	if desired < t.numTokens {
		return nil, errors.Errorf("text field of %d tokens can't be padded to %d", t.numTokens, desired)
	}
	out := make(map[string]any, len(t.names))
	for _, name := range t.names {
		for key, arr := range t.indexed[name].Pad(map[string]int{name: desired}, lengths) {
			out[key] = arr
		}
	}
	return out, nil
}
