package vocab

import (
	"os"

	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
)

// vocabularyFile is the on-disk layout written by Save.
type vocabularyFile struct {
	PaddingToken        string              `json:"padding_token"`
	OOVToken            string              `json:"oov_token"`
	NonPaddedNamespaces []string            `json:"non_padded_namespaces"`
	Namespaces          map[string][]string `json:"namespaces"`
	UnknownIndices      map[string]int      `json:"unknown_indices,omitempty"`
}

// Save writes the Vocabulary to path as JSON. Tokens of each namespace are
// stored in id order.
func (v *Vocabulary) Save(path string) error {
	f := vocabularyFile{
		PaddingToken:        v.paddingToken,
		OOVToken:            v.oovToken,
		NonPaddedNamespaces: v.nonPadded,
		Namespaces:          v.indexToToken,
		UnknownIndices:      v.unknown,
	}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to encode vocabulary")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "failed to write vocabulary file %q", path)
	}
	return nil
}

// Load reads a Vocabulary written by Save. The result is frozen.
func Load(path string) (*Vocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read vocabulary file %q", path)
	}
	var f vocabularyFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrapf(err, "failed to parse vocabulary file %q", path)
	}

	v := New(
		WithPaddingToken(f.PaddingToken),
		WithOOVToken(f.OOVToken),
		WithNonPaddedNamespaces(f.NonPaddedNamespaces...),
	)
	for ns, tokens := range f.Namespaces {
		forward := make(map[string]int, len(tokens))
		for id, text := range tokens {
			if _, dup := forward[text]; dup {
				return nil, errors.Errorf("vocabulary file %q: duplicate token %q in namespace %q", path, text, ns)
			}
			forward[text] = id
		}
		v.tokenToIndex[ns] = forward
		v.indexToToken[ns] = append([]string(nil), tokens...)
	}
	for ns, id := range f.UnknownIndices {
		v.unknown[ns] = id
	}
	v.Freeze()
	return v, nil
}
