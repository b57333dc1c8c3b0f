// Package data defines the records the iterators batch: fields, instances and
// batches, and how they are padded and rendered into integer arrays.
package data

import (
	"github.com/pkg/errors"

	"github.com/Noofbiz/instancebatch/vocab"
)

// ErrMalformedInstance is returned when an instance cannot be rendered: a
// field is missing, has no indexers, or holds a label its vocabulary lacks.
// It is always fatal; malformed records are never silently dropped.
var ErrMalformedInstance = errors.New("malformed instance")

// Field is one named component of an Instance.
type Field interface {
	// CountVocabItems records the vocabulary entries this field needs.
	CountVocabItems(counter vocab.Counter)

	// Index resolves the field against a vocabulary.
	Index(v *vocab.Vocabulary) (IndexedField, error)
}

// IndexedField is a Field whose tokens have been turned into ids.
type IndexedField interface {
	// PaddingLengths maps each length axis of the field to the size this
	// instance needs.
	PaddingLengths() map[string]int

	// AsArrays renders the field padded to lengths. lengths must be at least
	// PaddingLengths on every axis.
	AsArrays(lengths map[string]int) (map[string]any, error)
}

// LabelField holds a single categorical label.
type LabelField struct {
	Label     string
	Namespace string

	id    int
	hasID bool
}

// DefaultLabelNamespace is used by NewLabelField when namespace is empty.
const DefaultLabelNamespace = "labels"

// LabelArray is the array name a LabelField renders into.
const LabelArray = "label"

// NewLabelField returns a string label resolved in namespace.
func NewLabelField(label, namespace string) *LabelField {
	if namespace == "" {
		namespace = DefaultLabelNamespace
	}
	return &LabelField{Label: label, Namespace: namespace}
}

// NewIntLabelField returns a label that is already an id.
func NewIntLabelField(id int) *LabelField {
	return &LabelField{Namespace: DefaultLabelNamespace, id: id, hasID: true}
}

func (f *LabelField) CountVocabItems(counter vocab.Counter) {
	if f.hasID {
		return
	}
	counter.Add(f.Namespace, f.Label)
}

func (f *LabelField) Index(v *vocab.Vocabulary) (IndexedField, error) {
	if f.hasID {
		return indexedLabel(f.id), nil
	}
	if v == nil {
		return nil, errors.Wrapf(ErrMalformedInstance, "label %q needs a vocabulary", f.Label)
	}
	id := v.TokenIndex(f.Label, f.Namespace)
	if id == vocab.NoIndex {
		return nil, errors.Wrapf(ErrMalformedInstance, "label %q not in namespace %q", f.Label, f.Namespace)
	}
	return indexedLabel(id), nil
}

type indexedLabel int

func (indexedLabel) PaddingLengths() map[string]int { return map[string]int{} }

func (l indexedLabel) AsArrays(map[string]int) (map[string]any, error) {
	return map[string]any{LabelArray: int(l)}, nil
}

// MetadataField carries an arbitrary value through batching untouched. It is
// never padded and never turned into a tensor.
type MetadataField struct {
	Value any
}

// MetadataArray is the array name a MetadataField renders into.
const MetadataArray = "metadata"

// NewMetadataField wraps value.
func NewMetadataField(value any) *MetadataField {
	return &MetadataField{Value: value}
}

func (f *MetadataField) CountVocabItems(vocab.Counter) {}

func (f *MetadataField) Index(*vocab.Vocabulary) (IndexedField, error) {
	return f, nil
}

func (f *MetadataField) PaddingLengths() map[string]int { return map[string]int{} }

func (f *MetadataField) AsArrays(map[string]int) (map[string]any, error) {
	return map[string]any{MetadataArray: f.Value}, nil
}
