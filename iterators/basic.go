package iterators

import (
	"iter"
	"math/rand"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/Noofbiz/instancebatch/data"
	"github.com/Noofbiz/instancebatch/vocab"
)

// BasicIterator reads instances into memory-sized chunks, optionally shuffles
// each chunk, and cuts it into batches of BatchSize. Instances never move
// between chunks, so shuffling only needs O(MaxInstancesInMemory) memory.
//
// A BasicIterator may be used for any number of passes, but not from several
// goroutines at once.
type BasicIterator struct {
	cfg   Config
	vocab *vocab.Vocabulary
}

var _ DataIterator = (*BasicIterator)(nil)

// NewBasicIterator validates cfg. v is used by the split policy to measure
// instances and may be nil if no policy needs it.
func NewBasicIterator(cfg Config, v *vocab.Vocabulary) (*BasicIterator, error) {
	cfg, err := cfg.validate()
	if err != nil {
		return nil, err
	}
	return &BasicIterator{cfg: cfg, vocab: v}, nil
}

// Config returns the effective configuration, defaults filled in.
func (it *BasicIterator) Config() Config {
	return it.cfg
}

// Vocabulary returns the vocabulary the iterator was built with.
func (it *BasicIterator) Vocabulary() *vocab.Vocabulary {
	return it.vocab
}

// Batches implements DataIterator. Every pass redoes chunking, shuffling,
// grouping and splitting from the start of source. Shuffling in epoch e uses
// a generator seeded with Seed+e, so a fixed seed reproduces the exact batch
// sequence. The caller may stop at any time; nothing needs releasing.
func (it *BasicIterator) Batches(source Source, numEpochs int, shuffle bool) iter.Seq2[*data.Batch, error] {
	return func(yield func(*data.Batch, error) bool) {
		for epoch := 0; numEpochs <= 0 || epoch < numEpochs; epoch++ {
			klog.V(1).Infof("starting epoch %d (shuffle=%t)", epoch, shuffle)
			stopped := false
			err := it.pass(source, epoch, shuffle, func(group []*data.Instance) bool {
				if it.cfg.TrackEpoch {
					group = withEpoch(group, epoch)
				}
				batch, err := data.NewBatch(group)
				if err != nil {
					yield(nil, err)
					stopped = true
					return false
				}
				if !yield(batch, nil) {
					stopped = true
					return false
				}
				return true
			})
			if stopped {
				return
			}
			if err != nil {
				yield(nil, err)
				return
			}
		}
	}
}

// NumBatches implements DataIterator by replaying the first epoch's chunk,
// shuffle, group and split steps and counting the groups. The count matches
// the first epoch of Batches with the same shuffle flag.
func (it *BasicIterator) NumBatches(source Source, shuffle bool) (int, error) {
	n := 0
	err := it.pass(source, 0, shuffle, func([]*data.Instance) bool {
		n++
		return true
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// pass runs one epoch over source, handing every final group to emit. It
// stops early, without error, when emit returns false.
func (it *BasicIterator) pass(source Source, epoch int, shuffle bool, emit func([]*data.Instance) bool) error {
	var rng *rand.Rand
	if shuffle {
		rng = rand.New(rand.NewSource(it.cfg.Seed + int64(epoch)))
	}

	var (
		chunk   = make([]*data.Instance, 0, it.cfg.MaxInstancesInMemory)
		chunkID int
		err     error
		done    bool
	)
	flush := func() bool {
		if len(chunk) == 0 {
			return true
		}
		klog.V(2).Infof("epoch %d chunk %d: %d instances", epoch, chunkID, len(chunk))
		chunkID++
		var cont bool
		cont, err = it.batchChunk(chunk, rng, emit)
		chunk = make([]*data.Instance, 0, it.cfg.MaxInstancesInMemory)
		return cont && err == nil
	}

	for inst, srcErr := range source {
		if srcErr != nil {
			return errors.Wrapf(srcErr, "reading instance %d of epoch %d", chunkID*it.cfg.MaxInstancesInMemory+len(chunk), epoch)
		}
		chunk = append(chunk, inst)
		if len(chunk) == it.cfg.MaxInstancesInMemory {
			if !flush() {
				done = true
				break
			}
		}
	}
	if !done {
		flush()
	}
	return err
}

// batchChunk shuffles chunk when rng is set and hands its groups to emit.
func (it *BasicIterator) batchChunk(chunk []*data.Instance, rng *rand.Rand, emit func([]*data.Instance) bool) (bool, error) {
	if rng != nil {
		rng.Shuffle(len(chunk), func(i, j int) {
			chunk[i], chunk[j] = chunk[j], chunk[i]
		})
	}
	for start := 0; start < len(chunk); start += it.cfg.BatchSize {
		group := chunk[start:min(start+it.cfg.BatchSize, len(chunk))]
		groups, err := it.split(group)
		if err != nil {
			return false, err
		}
		for _, g := range groups {
			if !emit(g) {
				return false, nil
			}
		}
	}
	return true, nil
}

func (it *BasicIterator) split(group []*data.Instance) ([][]*data.Instance, error) {
	if it.cfg.Split == nil {
		return [][]*data.Instance{group}, nil
	}
	groups, err := it.cfg.Split.Split(group, it.vocab)
	if err != nil {
		return nil, errors.Wrap(err, "splitting batch")
	}
	return groups, nil
}

func withEpoch(group []*data.Instance, epoch int) []*data.Instance {
	out := make([]*data.Instance, len(group))
	for i, inst := range group {
		out[i] = inst.With(EpochField, data.NewMetadataField(epoch))
	}
	return out
}
