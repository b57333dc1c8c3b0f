package iterators

import (
	"io"
	"iter"
	"slices"
	"sort"
	"strings"

	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/pkg/errors"

	"github.com/Noofbiz/instancebatch/data"
	"github.com/Noofbiz/instancebatch/vocab"
)

// Dataset exposes an iterator as a gomlx training dataset: Yield returns one
// rendered batch at a time as tensors and io.EOF once the epochs are done.
//
// Inputs are every non-label tensor, labels the tensors of LabelFields, both
// ordered by data.TensorKey.
type Dataset struct {
	// LabelFields are the instance fields yielded as labels.
	LabelFields []string

	name      string
	iterator  DataIterator
	source    Source
	vocab     *vocab.Vocabulary
	numEpochs int
	shuffle   bool

	next func() (*data.Batch, error, bool)
	stop func()
}

// NewDataset wraps it. Reset starts a new run of numEpochs passes.
func NewDataset(name string, it DataIterator, source Source, v *vocab.Vocabulary, numEpochs int, shuffle bool, labelFields ...string) *Dataset {
	d := &Dataset{
		LabelFields: labelFields,
		name:        name,
		iterator:    it,
		source:      source,
		vocab:       v,
		numEpochs:   numEpochs,
		shuffle:     shuffle,
	}
	d.Reset()
	return d
}

// Name returns the name of the dataset.
func (d *Dataset) Name() string {
	return d.name
}

// Reset restarts the dataset from the first batch of the first epoch.
func (d *Dataset) Reset() {
	if d.stop != nil {
		d.stop()
	}
	d.next, d.stop = iter.Pull2(d.iterator.Batches(d.source, d.numEpochs, d.shuffle))
}

// Yield returns the next batch. spec is always nil.
func (d *Dataset) Yield() (spec any, inputs []*tensors.Tensor, labels []*tensors.Tensor, err error) {
	batch, err, ok := d.next()
	if !ok {
		return nil, nil, nil, io.EOF
	}
	if err != nil {
		return nil, nil, nil, err
	}
	ts, err := batch.Tensors(d.vocab)
	if err != nil {
		return nil, nil, nil, errors.Wrapf(err, "dataset %s", d.name)
	}

	keys := make([]string, 0, len(ts))
	for key := range ts {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if d.isLabel(key) {
			labels = append(labels, ts[key])
		} else {
			inputs = append(inputs, ts[key])
		}
	}
	return nil, inputs, labels, nil
}

func (d *Dataset) isLabel(key string) bool {
	return slices.ContainsFunc(d.LabelFields, func(field string) bool {
		return key == field || strings.HasPrefix(key, field+".")
	})
}

// Close releases the pending iteration. It is safe to call more than once.
func (d *Dataset) Close() {
	if d.stop != nil {
		d.stop()
	}
}
