// Package iterators turns a lazy stream of instances into a lazy stream of
// batches: memory-bounded chunks, optional shuffling inside each chunk,
// fixed-size groups, and splitting of groups that would be too large to
// process at once.
package iterators

import (
	"iter"
	"time"

	"github.com/pkg/errors"

	"github.com/Noofbiz/instancebatch/data"
	"github.com/Noofbiz/instancebatch/vocab"
)

// ErrConfiguration is returned by constructors given invalid settings. It is
// never returned mid-stream.
var ErrConfiguration = errors.New("invalid iterator configuration")

// EpochField is the metadata field added to every instance when
// Config.TrackEpoch is set.
const EpochField = "epoch_num"

// Source is a lazy, re-readable stream of instances. Each call to the
// function starts again from the first instance.
type Source = iter.Seq2[*data.Instance, error]

// SliceSource serves instances from memory.
func SliceSource(instances []*data.Instance) Source {
	return func(yield func(*data.Instance, error) bool) {
		for _, inst := range instances {
			if !yield(inst, nil) {
				return
			}
		}
	}
}

// DataIterator is implemented by every batching strategy.
type DataIterator interface {
	// Batches lazily produces the batches of numEpochs passes over source.
	// numEpochs <= 0 keeps going until the caller stops pulling.
	Batches(source Source, numEpochs int, shuffle bool) iter.Seq2[*data.Batch, error]

	// NumBatches counts the batches one pass over source yields, without
	// rendering any arrays.
	NumBatches(source Source, shuffle bool) (int, error)
}

// Config holds the settings shared by iterators.
type Config struct {
	// BatchSize is the number of instances per batch before splitting.
	BatchSize int

	// MaxInstancesInMemory bounds how many instances are read before they are
	// grouped, and therefore how far shuffling can move an instance. It must
	// be positive; values below BatchSize are raised to it.
	MaxInstancesInMemory int

	// Split, if set, breaks groups that are too large into smaller ones.
	Split SplitPolicy

	// TrackEpoch adds an EpochField metadata field holding the epoch number.
	TrackEpoch bool

	// Seed controls shuffling. If zero, a time-based seed is used and runs
	// are not reproducible.
	Seed int64
}

// validate checks cfg and fills in defaults.
func (cfg Config) validate() (Config, error) {
	if cfg.BatchSize <= 0 {
		return cfg, errors.Wrapf(ErrConfiguration, "batch size must be > 0, got %d", cfg.BatchSize)
	}
	if cfg.MaxInstancesInMemory <= 0 {
		return cfg, errors.Wrapf(ErrConfiguration, "max instances in memory must be > 0, got %d", cfg.MaxInstancesInMemory)
	}
	if cfg.MaxInstancesInMemory < cfg.BatchSize {
		cfg.MaxInstancesInMemory = cfg.BatchSize
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	return cfg, nil
}

// SplitPolicy decides whether a group of instances is too large to batch as
// one and how to break it up. Implementations must keep the relative order
// of instances.
type SplitPolicy interface {
	Split(group []*data.Instance, v *vocab.Vocabulary) ([][]*data.Instance, error)
}

// SplitFunc adapts a function to SplitPolicy.
type SplitFunc func(group []*data.Instance, v *vocab.Vocabulary) ([][]*data.Instance, error)

func (f SplitFunc) Split(group []*data.Instance, v *vocab.Vocabulary) ([][]*data.Instance, error) {
	return f(group, v)
}
