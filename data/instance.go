package data

import (
	"github.com/pkg/errors"

	"github.com/Noofbiz/instancebatch/vocab"
)

// NamedField pairs a field with its name inside an Instance.
type NamedField struct {
	Name  string
	Field Field
}

// Instance is an ordered set of named fields. It is not modified after
// construction; With returns a copy instead.
type Instance struct {
	names  []string
	fields map[string]Field
}

// NewInstance builds an Instance. Names must be non-empty and unique.
func NewInstance(fields ...NamedField) (*Instance, error) {
	inst := &Instance{
		names:  make([]string, 0, len(fields)),
		fields: make(map[string]Field, len(fields)),
	}
	for _, nf := range fields {
		if nf.Name == "" {
			return nil, errors.New("instance field name can't be empty")
		}
		if nf.Field == nil {
			return nil, errors.Errorf("instance field %q is nil", nf.Name)
		}
		if _, dup := inst.fields[nf.Name]; dup {
			return nil, errors.Errorf("duplicate instance field %q", nf.Name)
		}
		inst.names = append(inst.names, nf.Name)
		inst.fields[nf.Name] = nf.Field
	}
	return inst, nil
}

// Names returns the field names in insertion order.
func (i *Instance) Names() []string {
	return append([]string(nil), i.names...)
}

// Field returns the field called name.
func (i *Instance) Field(name string) (Field, bool) {
	f, ok := i.fields[name]
	return f, ok
}

// Len is the number of fields.
func (i *Instance) Len() int {
	return len(i.names)
}

// With returns a copy of the instance with name set to field. An existing
// field of that name is replaced in place, a new one is appended.
func (i *Instance) With(name string, field Field) *Instance {
	out := &Instance{
		names:  append([]string(nil), i.names...),
		fields: make(map[string]Field, len(i.fields)+1),
	}
	for k, v := range i.fields {
		out.fields[k] = v
	}
	if _, ok := out.fields[name]; !ok {
		out.names = append(out.names, name)
	}
	out.fields[name] = field
	return out
}

// CountVocabItems asks every field to record its vocabulary entries.
func (i *Instance) CountVocabItems(counter vocab.Counter) {
	for _, name := range i.names {
		i.fields[name].CountVocabItems(counter)
	}
}

// Index resolves every field against v.
func (i *Instance) Index(v *vocab.Vocabulary) (*IndexedInstance, error) {
	out := &IndexedInstance{names: i.names, fields: make(map[string]IndexedField, len(i.names))}
	for _, name := range i.names {
		f, err := i.fields[name].Index(v)
		if err != nil {
			return nil, errors.Wrapf(err, "field %q", name)
		}
		out.fields[name] = f
	}
	return out, nil
}

// IndexedInstance is an Instance resolved against a vocabulary.
type IndexedInstance struct {
	names  []string
	fields map[string]IndexedField
}

// PaddingLengths returns each field's own length requirements.
func (i *IndexedInstance) PaddingLengths() map[string]map[string]int {
	out := make(map[string]map[string]int, len(i.names))
	for _, name := range i.names {
		out[name] = i.fields[name].PaddingLengths()
	}
	return out
}

// AsArrays renders every field padded to lengths, keyed by field then array
// name. A field with no entry in lengths is rendered at its own size.
func (i *IndexedInstance) AsArrays(lengths map[string]map[string]int) (map[string]map[string]any, error) {
	out := make(map[string]map[string]any, len(i.names))
	for _, name := range i.names {
		fieldLengths, ok := lengths[name]
		if !ok {
			fieldLengths = i.fields[name].PaddingLengths()
		}
		arrays, err := i.fields[name].AsArrays(fieldLengths)
		if err != nil {
			return nil, errors.Wrapf(err, "field %q", name)
		}
		out[name] = arrays
	}
	return out, nil
}
