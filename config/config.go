// Package config loads the YAML description of a batching pipeline and builds
// its parts. Every component is constructed explicitly from its section;
// nothing is looked up in a global registry.
package config

import (
	"os"
	"sort"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/Noofbiz/instancebatch/iterators"
	"github.com/Noofbiz/instancebatch/readers"
	"github.com/Noofbiz/instancebatch/tokens"
	"github.com/Noofbiz/instancebatch/vocab"
)

// ErrConfiguration is returned for invalid settings.
var ErrConfiguration = iterators.ErrConfiguration

// Indexer types understood by BuildIndexers.
const (
	SingleIDType   = "single_id"
	CharactersType = "characters"
)

// Config is the root of a pipeline configuration file.
type Config struct {
	Reader     ReaderConfig             `yaml:"reader"`
	Vocabulary VocabularyConfig         `yaml:"vocabulary"`
	Indexers   map[string]IndexerConfig `yaml:"indexers"`
	Iterator   IteratorConfig           `yaml:"iterator"`
}

// ReaderConfig describes where instances come from.
type ReaderConfig struct {
	Pattern        string `yaml:"pattern"`
	TextColumn     string `yaml:"text_column"`
	LabelColumn    string `yaml:"label_column"`
	LabelNamespace string `yaml:"label_namespace"`
	IDsColumn      string `yaml:"ids_column"`
}

// VocabularyConfig controls vocabulary construction.
type VocabularyConfig struct {
	MinCount            map[string]int `yaml:"min_count"`
	MaxSize             int            `yaml:"max_size"`
	NonPaddedNamespaces []string       `yaml:"non_padded_namespaces"`
	PaddingToken        string         `yaml:"padding_token"`
	OOVToken            *string        `yaml:"oov_token"`
}

// IndexerConfig describes one token indexer.
type IndexerConfig struct {
	Type             string `yaml:"type"`
	Namespace        string `yaml:"namespace"`
	LowercaseTokens  bool   `yaml:"lowercase_tokens"`
	MinPaddingLength int    `yaml:"min_padding_length"`
}

// IteratorConfig mirrors iterators.Config.
type IteratorConfig struct {
	BatchSize              int                 `yaml:"batch_size"`
	MaxInstancesInMemory   int                 `yaml:"max_instances_in_memory"`
	MaximumSamplesPerBatch *SamplesLimitConfig `yaml:"maximum_samples_per_batch"`
	TrackEpoch             bool                `yaml:"track_epoch"`
	Seed                   int64               `yaml:"seed"`
}

// SamplesLimitConfig configures iterators.MaxSamplesPerBatch.
type SamplesLimitConfig struct {
	Key   string `yaml:"key"`
	Limit int    `yaml:"limit"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Reader: ReaderConfig{
			TextColumn:  "text",
			LabelColumn: "label",
		},
		Vocabulary: VocabularyConfig{
			NonPaddedNamespaces: append([]string(nil), vocab.DefaultNonPaddedNamespaces...),
		},
		Indexers: map[string]IndexerConfig{
			tokens.DefaultNamespace: {Type: SingleIDType, Namespace: tokens.DefaultNamespace},
		},
		Iterator: IteratorConfig{
			BatchSize:            32,
			MaxInstancesInMemory: 1000,
		},
	}
}

// Load reads and validates a YAML file. Settings it leaves out keep their
// Default values.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read config %s", path)
	}
	cfg, err := Parse(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

// Parse decodes and validates YAML over Default. An indexers section
// replaces the default indexers instead of adding to them.
func Parse(raw []byte) (*Config, error) {
	var sections map[string]yaml.Node
	if err := yaml.Unmarshal(raw, &sections); err != nil {
		return nil, errors.Wrap(err, "failed to parse config")
	}
	cfg := Default()
	if _, ok := sections["indexers"]; ok {
		cfg.Indexers = nil
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that would otherwise only fail when the pipeline
// is built.
func (c *Config) Validate() error {
	if c.Iterator.BatchSize <= 0 {
		return errors.Wrapf(ErrConfiguration, "iterator.batch_size must be > 0, got %d", c.Iterator.BatchSize)
	}
	if c.Iterator.MaxInstancesInMemory <= 0 {
		return errors.Wrapf(ErrConfiguration, "iterator.max_instances_in_memory must be > 0, got %d", c.Iterator.MaxInstancesInMemory)
	}
	if m := c.Iterator.MaximumSamplesPerBatch; m != nil && (m.Key == "" || m.Limit <= 0) {
		return errors.Wrapf(ErrConfiguration, "iterator.maximum_samples_per_batch needs a key and a positive limit, got %+v", *m)
	}
	if len(c.Indexers) == 0 {
		return errors.Wrap(ErrConfiguration, "at least one indexer is required")
	}
	for name, ic := range c.Indexers {
		switch ic.Type {
		case SingleIDType, CharactersType:
		default:
			return errors.Wrapf(ErrConfiguration, "indexer %q: unknown type %q", name, ic.Type)
		}
		if ic.MinPaddingLength < 0 {
			return errors.Wrapf(ErrConfiguration, "indexer %q: min_padding_length must be >= 0", name)
		}
	}
	if c.Vocabulary.MaxSize < 0 {
		return errors.Wrapf(ErrConfiguration, "vocabulary.max_size must be >= 0, got %d", c.Vocabulary.MaxSize)
	}
	return nil
}

// BuildIndexers constructs the configured indexers, keyed by name.
func (c *Config) BuildIndexers() (map[string]tokens.Indexer, error) {
	names := make([]string, 0, len(c.Indexers))
	for name := range c.Indexers {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(map[string]tokens.Indexer, len(names))
	for _, name := range names {
		ic := c.Indexers[name]
		switch ic.Type {
		case SingleIDType:
			out[name] = tokens.Erase[int](tokens.NewSingleID(ic.Namespace, ic.LowercaseTokens))
		case CharactersType:
			out[name] = tokens.Erase[[]int](tokens.NewCharacters(ic.Namespace, ic.LowercaseTokens, ic.MinPaddingLength))
		default:
			return nil, errors.Wrapf(ErrConfiguration, "indexer %q: unknown type %q", name, ic.Type)
		}
	}
	return out, nil
}

// VocabOptions returns the options for vocab.New and vocab.FromCounter.
func (c *Config) VocabOptions() []vocab.Option {
	var opts []vocab.Option
	if c.Vocabulary.NonPaddedNamespaces != nil {
		opts = append(opts, vocab.WithNonPaddedNamespaces(c.Vocabulary.NonPaddedNamespaces...))
	}
	if c.Vocabulary.PaddingToken != "" {
		opts = append(opts, vocab.WithPaddingToken(c.Vocabulary.PaddingToken))
	}
	if c.Vocabulary.OOVToken != nil {
		opts = append(opts, vocab.WithOOVToken(*c.Vocabulary.OOVToken))
	}
	return opts
}

// FitOptions returns the vocabulary fitting limits.
func (c *Config) FitOptions() vocab.FitOptions {
	return vocab.FitOptions{MinCount: c.Vocabulary.MinCount, MaxSize: c.Vocabulary.MaxSize}
}

// BuildReader constructs the CSV reader over pattern, or over the configured
// pattern when pattern is empty.
func (c *Config) BuildReader(pattern string) (*readers.TextClassificationReader, error) {
	if pattern == "" {
		pattern = c.Reader.Pattern
	}
	if pattern == "" {
		return nil, errors.Wrap(ErrConfiguration, "reader.pattern is required")
	}
	indexers, err := c.BuildIndexers()
	if err != nil {
		return nil, err
	}
	return readers.NewTextClassificationReader(pattern, readers.Options{
		TextColumn:     c.Reader.TextColumn,
		LabelColumn:    c.Reader.LabelColumn,
		LabelNamespace: c.Reader.LabelNamespace,
		IDsColumn:      c.Reader.IDsColumn,
		Indexers:       indexers,
	})
}

// BuildIterator constructs the iterator. v is handed to the split policy.
func (c *Config) BuildIterator(v *vocab.Vocabulary) (*iterators.BasicIterator, error) {
	cfg := iterators.Config{
		BatchSize:            c.Iterator.BatchSize,
		MaxInstancesInMemory: c.Iterator.MaxInstancesInMemory,
		TrackEpoch:           c.Iterator.TrackEpoch,
		Seed:                 c.Iterator.Seed,
	}
	if m := c.Iterator.MaximumSamplesPerBatch; m != nil {
		policy, err := iterators.NewMaxSamplesPerBatch(m.Key, m.Limit)
		if err != nil {
			return nil, err
		}
		cfg.Split = policy
	}
	return iterators.NewBasicIterator(cfg, v)
}
