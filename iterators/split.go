package iterators

import (
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/Noofbiz/instancebatch/data"
	"github.com/Noofbiz/instancebatch/vocab"
)

// MaxSamplesPerBatch limits the number of padded elements along one axis in
// a batch. If the longest instance of a group needs P entries on axis Key and
// the group has n instances, the group is too large when P*n > Limit. It is
// then cut into ceil(P*n/Limit) consecutive sub-groups of equal size (the last
// may be smaller).
//
// A single instance is never split further, so one instance over the limit
// still yields a batch of one.
type MaxSamplesPerBatch struct {
	Key   string
	Limit int
}

// NewMaxSamplesPerBatch validates the limit.
func NewMaxSamplesPerBatch(key string, limit int) (*MaxSamplesPerBatch, error) {
	if key == "" {
		return nil, errors.Wrap(ErrConfiguration, "max samples per batch needs a padding key")
	}
	if limit <= 0 {
		return nil, errors.Wrapf(ErrConfiguration, "max samples per batch limit must be > 0, got %d", limit)
	}
	return &MaxSamplesPerBatch{Key: key, Limit: limit}, nil
}

func (m *MaxSamplesPerBatch) Split(group []*data.Instance, v *vocab.Vocabulary) ([][]*data.Instance, error) {
	paddingLength := -1
	for i, inst := range group {
		indexed, err := inst.Index(v)
		if err != nil {
			return nil, errors.Wrapf(err, "instance %d", i)
		}
		for _, lengths := range indexed.PaddingLengths() {
			if n, ok := lengths[m.Key]; ok {
				paddingLength = max(paddingLength, n)
			}
		}
	}

	numSamples := paddingLength * len(group)
	if numSamples <= m.Limit {
		return [][]*data.Instance{group}, nil
	}

	numShrunk := ceilDiv(numSamples, m.Limit)
	shrunkSize := ceilDiv(len(group), numShrunk)
	klog.V(2).Infof("splitting group of %d instances (%d %s samples) into batches of %d", len(group), numSamples, m.Key, shrunkSize)

	out := make([][]*data.Instance, 0, numShrunk)
	for start := 0; start < len(group); start += shrunkSize {
		end := min(start+shrunkSize, len(group))
		out = append(out, group[start:end])
	}
	return out, nil
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
