package data

import (
	"reflect"
	"slices"
	"sort"

	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/pkg/errors"

	"github.com/Noofbiz/instancebatch/vocab"
)

// Batch is a non-empty, ordered group of instances that are padded and
// rendered together.
type Batch struct {
	instances []*Instance
}

// NewBatch wraps instances. The slice is copied.
func NewBatch(instances []*Instance) (*Batch, error) {
	if len(instances) == 0 {
		return nil, errors.New("batch must contain at least one instance")
	}
	return &Batch{instances: slices.Clone(instances)}, nil
}

// Len is the number of instances.
func (b *Batch) Len() int {
	return len(b.instances)
}

// Instances returns the instances in batch order.
func (b *Batch) Instances() []*Instance {
	return slices.Clone(b.instances)
}

// index resolves every instance and checks they share one schema.
func (b *Batch) index(v *vocab.Vocabulary) ([]*IndexedInstance, error) {
	names := b.instances[0].names
	indexed := make([]*IndexedInstance, len(b.instances))
	for i, inst := range b.instances {
		if !sameFieldSet(names, inst) {
			return nil, errors.Wrapf(ErrMalformedInstance, "instance %d has fields %v, batch expects %v", i, inst.names, names)
		}
		ii, err := inst.Index(v)
		if err != nil {
			return nil, errors.Wrapf(err, "instance %d", i)
		}
		indexed[i] = ii
	}
	return indexed, nil
}

func sameFieldSet(names []string, inst *Instance) bool {
	if len(names) != len(inst.names) {
		return false
	}
	for _, name := range names {
		if _, ok := inst.fields[name]; !ok {
			return false
		}
	}
	return true
}

// maxPaddingLengths is the element-wise maximum of every instance's
// requirements. A batch never truncates, it only pads up.
func maxPaddingLengths(indexed []*IndexedInstance) map[string]map[string]int {
	out := make(map[string]map[string]int)
	for _, ii := range indexed {
		for field, lengths := range ii.PaddingLengths() {
			if out[field] == nil {
				out[field] = make(map[string]int, len(lengths))
			}
			for axis, n := range lengths {
				out[field][axis] = max(out[field][axis], n)
			}
		}
	}
	return out
}

// PaddingLengths returns, per field and axis, the largest length any instance
// in the batch requires.
func (b *Batch) PaddingLengths(v *vocab.Vocabulary) (map[string]map[string]int, error) {
	indexed, err := b.index(v)
	if err != nil {
		return nil, err
	}
	return maxPaddingLengths(indexed), nil
}

// AsArrays renders the batch. Every instance is padded to the batch-wide
// lengths and each array is stacked along a new leading batch axis, so a
// []int per instance becomes a [][]int for the batch.
func (b *Batch) AsArrays(v *vocab.Vocabulary) (map[string]map[string]any, error) {
	indexed, err := b.index(v)
	if err != nil {
		return nil, err
	}
	lengths := maxPaddingLengths(indexed)

	rendered := make([]map[string]map[string]any, len(indexed))
	for i, ii := range indexed {
		arrays, err := ii.AsArrays(lengths)
		if err != nil {
			return nil, errors.Wrapf(err, "instance %d", i)
		}
		rendered[i] = arrays
	}

	out := make(map[string]map[string]any, len(rendered[0]))
	for field, arrays := range rendered[0] {
		out[field] = make(map[string]any, len(arrays))
		for name := range arrays {
			values := make([]any, len(rendered))
			for i := range rendered {
				value, ok := rendered[i][field][name]
				if !ok {
					return nil, errors.Wrapf(ErrMalformedInstance, "instance %d has no array %q in field %q", i, name, field)
				}
				values[i] = value
			}
			stacked, err := stack(values)
			if err != nil {
				return nil, errors.Wrapf(err, "field %q array %q", field, name)
			}
			out[field][name] = stacked
		}
	}
	return out, nil
}

// stack turns a list of same-typed values into a typed slice of them. Values
// of mixed types, as metadata may hold, are returned as a []any.
func stack(values []any) (any, error) {
	if values[0] == nil {
		return values, nil
	}
	elem := reflect.TypeOf(values[0])
	out := reflect.MakeSlice(reflect.SliceOf(elem), len(values), len(values))
	for i, value := range values {
		if reflect.TypeOf(value) != elem {
			return values, nil
		}
		out.Index(i).Set(reflect.ValueOf(value))
	}
	return out.Interface(), nil
}

// TensorKey joins a field and array name into the key used by Tensors.
func TensorKey(field, array string) string {
	if field == array {
		return field
	}
	return field + "." + array
}

// Tensors renders the batch and converts every integer array into a gomlx
// tensor keyed by TensorKey. Metadata is skipped.
func (b *Batch) Tensors(v *vocab.Vocabulary) (map[string]*tensors.Tensor, error) {
	arrays, err := b.AsArrays(v)
	if err != nil {
		return nil, err
	}
	out := make(map[string]*tensors.Tensor)
	for _, field := range sortedKeys(arrays) {
		for _, name := range sortedKeys(arrays[field]) {
			if name == MetadataArray {
				continue
			}
			switch arr := arrays[field][name].(type) {
			case []int, [][]int, [][][]int:
				out[TensorKey(field, name)] = tensors.FromAnyValue(arr)
			default:
				return nil, errors.Errorf("field %q array %q: can't convert %T to a tensor", field, name, arr)
			}
		}
	}
	return out, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
