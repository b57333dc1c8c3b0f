package vocab

import (
	"sort"

	"k8s.io/klog/v2"
)

// Counter accumulates token frequencies per namespace while scanning a corpus.
type Counter map[string]map[string]int

// NewCounter returns an empty Counter.
func NewCounter() Counter {
	return make(Counter)
}

// Add increments the count of text in namespace, inserting it at zero first if
// it has not been seen.
func (c Counter) Add(namespace, text string) {
	counts, ok := c[namespace]
	if !ok {
		counts = make(map[string]int)
		c[namespace] = counts
	}
	counts[text]++
}

// Count returns how often text was added to namespace.
func (c Counter) Count(namespace, text string) int {
	return c[namespace][text]
}

// FitOptions controls which counted tokens make it into a Vocabulary.
type FitOptions struct {
	// MinCount drops tokens seen fewer times than the namespace's minimum.
	// Namespaces without an entry keep every token.
	MinCount map[string]int

	// MaxSize caps the number of counted tokens kept per namespace, not
	// including padding and OOV entries. Zero keeps all of them.
	MaxSize int
}

// FromCounter builds a frozen Vocabulary from token counts. Within a namespace
// tokens are assigned ids by descending count, ties broken by text, so the
// same counts always produce the same ids.
func FromCounter(counter Counter, fit FitOptions, opts ...Option) *Vocabulary {
	v := New(opts...)

	namespaces := make([]string, 0, len(counter))
	for ns := range counter {
		namespaces = append(namespaces, ns)
	}
	sort.Strings(namespaces)

	for _, ns := range namespaces {
		type entry struct {
			text  string
			count int
		}
		entries := make([]entry, 0, len(counter[ns]))
		for text, count := range counter[ns] {
			if count < fit.MinCount[ns] {
				continue
			}
			entries = append(entries, entry{text, count})
		}
		sort.Slice(entries, func(i, j int) bool {
			if entries[i].count != entries[j].count {
				return entries[i].count > entries[j].count
			}
			return entries[i].text < entries[j].text
		})
		if fit.MaxSize > 0 && len(entries) > fit.MaxSize {
			entries = entries[:fit.MaxSize]
		}

		v.namespace(ns)
		for _, e := range entries {
			// Cannot fail: v is not frozen yet.
			_, _ = v.AddTokenToNamespace(e.text, ns)
		}
		klog.V(1).Infof("vocabulary namespace %q: %d ids (%d counted tokens)", ns, v.Size(ns), len(counter[ns]))
	}

	v.Freeze()
	return v
}
