package vocab

import (
	"sort"
	"strings"

	"github.com/pkg/errors"
)

const (
	// DefaultPaddingToken occupies id 0 of every padded namespace.
	DefaultPaddingToken = "@@PADDING@@"
	// DefaultOOVToken occupies id 1 of every padded namespace.
	DefaultOOVToken = "@@UNKNOWN@@"

	// NoIndex is returned for unseen text in a namespace that has neither an
	// OOV token nor an explicit unknown index.
	NoIndex = -1
)

// DefaultNonPaddedNamespaces are the namespace patterns that start empty, with
// no padding or OOV entries. Label and tag vocabularies need every id to mean
// a real class.
var DefaultNonPaddedNamespaces = []string{"*tags", "*labels"}

// ErrFrozen is returned when a frozen Vocabulary is asked to grow.
var ErrFrozen = errors.New("vocabulary is frozen")

// Vocabulary maps token text to integer ids and back, partitioned by
// namespace. Ids are append-only: once assigned they never change.
//
// A Vocabulary is built once (usually with FromCounter) and then frozen. A
// frozen Vocabulary is never written to again, so any number of goroutines may
// read it without locking.
type Vocabulary struct {
	paddingToken string
	oovToken     string
	nonPadded    []string

	tokenToIndex map[string]map[string]int
	indexToToken map[string][]string

	// unknown holds explicit fallback ids set with SetUnknownIndex.
	unknown map[string]int

	frozen bool
}

// Option configures a Vocabulary created by New.
type Option func(*Vocabulary)

// WithNonPaddedNamespaces replaces the default non-padded namespace patterns.
// A pattern starting with "*" matches any namespace ending with the rest of it.
func WithNonPaddedNamespaces(patterns ...string) Option {
	return func(v *Vocabulary) {
		v.nonPadded = append([]string(nil), patterns...)
	}
}

// WithPaddingToken sets the text stored at id 0 of padded namespaces.
func WithPaddingToken(token string) Option {
	return func(v *Vocabulary) {
		v.paddingToken = token
	}
}

// WithOOVToken sets the text stored at id 1 of padded namespaces. An empty
// token disables the OOV entry entirely; unseen text then resolves to NoIndex
// unless SetUnknownIndex gives the namespace a fallback.
func WithOOVToken(token string) Option {
	return func(v *Vocabulary) {
		v.oovToken = token
	}
}

// New creates an empty, mutable Vocabulary.
func New(opts ...Option) *Vocabulary {
	v := &Vocabulary{
		paddingToken: DefaultPaddingToken,
		oovToken:     DefaultOOVToken,
		nonPadded:    append([]string(nil), DefaultNonPaddedNamespaces...),
		tokenToIndex: make(map[string]map[string]int),
		indexToToken: make(map[string][]string),
		unknown:      make(map[string]int),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// IsPadded reports whether namespace is seeded with padding and OOV entries.
func (v *Vocabulary) IsPadded(namespace string) bool {
	for _, pattern := range v.nonPadded {
		if matchNamespace(pattern, namespace) {
			return false
		}
	}
	return true
}

func matchNamespace(pattern, namespace string) bool {
	if suffix, ok := strings.CutPrefix(pattern, "*"); ok {
		return strings.HasSuffix(namespace, suffix)
	}
	return pattern == namespace
}

// namespace returns the forward and backward tables for ns, creating and
// seeding them on first use.
func (v *Vocabulary) namespace(ns string) (map[string]int, []string) {
	if forward, ok := v.tokenToIndex[ns]; ok {
		return forward, v.indexToToken[ns]
	}
	forward := make(map[string]int)
	var backward []string
	if v.IsPadded(ns) {
		forward[v.paddingToken] = 0
		backward = append(backward, v.paddingToken)
		if v.oovToken != "" {
			forward[v.oovToken] = 1
			backward = append(backward, v.oovToken)
		}
	}
	v.tokenToIndex[ns] = forward
	v.indexToToken[ns] = backward
	return forward, backward
}

// AddTokenToNamespace returns the id of text in namespace, assigning the next
// free id if the text is new.
func (v *Vocabulary) AddTokenToNamespace(text, namespace string) (int, error) {
	if id, ok := v.tokenToIndex[namespace][text]; ok {
		return id, nil
	}
	if v.frozen {
		return NoIndex, errors.Wrapf(ErrFrozen, "can't add %q to namespace %q", text, namespace)
	}
	forward, backward := v.namespace(namespace)
	id := len(backward)
	forward[text] = id
	v.indexToToken[namespace] = append(backward, text)
	return id, nil
}

// SetUnknownIndex makes id the fallback returned by TokenIndex for unseen text
// in namespace, overriding the OOV token.
func (v *Vocabulary) SetUnknownIndex(namespace string, id int) error {
	if v.frozen {
		return errors.Wrapf(ErrFrozen, "can't set unknown index of namespace %q", namespace)
	}
	if id < 0 {
		return errors.Errorf("unknown index for namespace %q must be >= 0, got %d", namespace, id)
	}
	v.namespace(namespace)
	v.unknown[namespace] = id
	return nil
}

// TokenIndex returns the id of text in namespace. Unseen text never fails: it
// resolves to the namespace's explicit unknown index, or else to the OOV token,
// or else to NoIndex. The same text always resolves to the same id.
func (v *Vocabulary) TokenIndex(text, namespace string) int {
	forward := v.tokenToIndex[namespace]
	if id, ok := forward[text]; ok {
		return id
	}
	if id, ok := v.unknown[namespace]; ok {
		return id
	}
	if v.oovToken != "" && v.IsPadded(namespace) {
		// Padded namespaces always hold the OOV token at id 1, even before the
		// namespace has been created.
		return 1
	}
	return NoIndex
}

// Contains reports whether text has an id of its own in namespace.
func (v *Vocabulary) Contains(text, namespace string) bool {
	_, ok := v.tokenToIndex[namespace][text]
	return ok
}

// PaddingIndex is the id used to pad sequences.
func (v *Vocabulary) PaddingIndex() int {
	return 0
}

// TokenFromIndex returns the text stored at id in namespace.
func (v *Vocabulary) TokenFromIndex(id int, namespace string) (string, bool) {
	backward := v.indexToToken[namespace]
	if id < 0 || id >= len(backward) {
		return "", false
	}
	return backward[id], true
}

// Size returns the number of ids assigned in namespace, including padding and
// OOV entries.
func (v *Vocabulary) Size(namespace string) int {
	if _, ok := v.indexToToken[namespace]; !ok && v.IsPadded(namespace) {
		if v.oovToken == "" {
			return 1
		}
		return 2
	}
	return len(v.indexToToken[namespace])
}

// Namespaces lists the namespaces that hold at least one entry, sorted.
func (v *Vocabulary) Namespaces() []string {
	names := make([]string, 0, len(v.indexToToken))
	for ns := range v.indexToToken {
		names = append(names, ns)
	}
	sort.Strings(names)
	return names
}

// Freeze makes the Vocabulary read-only.
func (v *Vocabulary) Freeze() {
	v.frozen = true
}

// Frozen reports whether Freeze has been called.
func (v *Vocabulary) Frozen() bool {
	return v.frozen
}
