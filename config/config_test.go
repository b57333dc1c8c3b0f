package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Noofbiz/instancebatch/data"
	"github.com/Noofbiz/instancebatch/tokens"
	"github.com/Noofbiz/instancebatch/vocab"
)

const sampleYAML = `
reader:
  pattern: data/*.csv
  label_column: category
iterator:
  batch_size: 4
  max_instances_in_memory: 16
  seed: 42
  track_epoch: true
  maximum_samples_per_batch:
    key: num_tokens
    limit: 100
vocabulary:
  min_count:
    tokens: 2
  max_size: 5000
  oov_token: ""
indexers:
  tokens:
    type: single_id
    lowercase_tokens: true
  token_characters:
    type: characters
    min_padding_length: 3
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	require.Equal(t, "data/*.csv", cfg.Reader.Pattern)
	require.Equal(t, "text", cfg.Reader.TextColumn, "unset values keep their defaults")
	require.Equal(t, "category", cfg.Reader.LabelColumn)
	require.Equal(t, 4, cfg.Iterator.BatchSize)
	require.Equal(t, int64(42), cfg.Iterator.Seed)
	require.Equal(t, &SamplesLimitConfig{Key: "num_tokens", Limit: 100}, cfg.Iterator.MaximumSamplesPerBatch)
	require.Equal(t, vocab.FitOptions{MinCount: map[string]int{"tokens": 2}, MaxSize: 5000}, cfg.FitOptions())
	require.Len(t, cfg.Indexers, 2)

	it, err := cfg.BuildIterator(nil)
	require.NoError(t, err)
	require.Equal(t, 4, it.Config().BatchSize)
	require.NotNil(t, it.Config().Split)
	require.True(t, it.Config().TrackEpoch)

	indexers, err := cfg.BuildIndexers()
	require.NoError(t, err)
	require.Contains(t, indexers, "tokens")
	require.Contains(t, indexers, "token_characters")

	// The empty OOV token disables the OOV entry.
	v := vocab.New(cfg.VocabOptions()...)
	id, err := v.AddTokenToNamespace("first", "tokens")
	require.NoError(t, err)
	require.Equal(t, 1, id)
}

func TestBuiltIndexersRender(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)
	indexers, err := cfg.BuildIndexers()
	require.NoError(t, err)

	inst, err := data.NewInstance(data.NamedField{Name: "text", Field: data.NewTextField(tokens.FromStrings("Hi", "a"), indexers)})
	require.NoError(t, err)
	counter := vocab.NewCounter()
	inst.CountVocabItems(counter)
	v := vocab.FromCounter(counter, vocab.FitOptions{}, cfg.VocabOptions()...)

	b, err := data.NewBatch([]*data.Instance{inst})
	require.NoError(t, err)
	arrays, err := b.AsArrays(v)
	require.NoError(t, err)

	chars := arrays["text"]["token_characters"].([][][]int)
	require.Len(t, chars[0][1], 3, "min_padding_length widens the character axis")
	require.Len(t, arrays["text"]["tokens"].([][]int)[0], 2)
}

func TestParseReplacesDefaultIndexers(t *testing.T) {
	cfg, err := Parse([]byte("indexers: {chars: {type: characters}}"))
	require.NoError(t, err)
	require.Equal(t, map[string]IndexerConfig{"chars": {Type: CharactersType}}, cfg.Indexers)

	cfg, err = Parse([]byte("iterator: {batch_size: 3}"))
	require.NoError(t, err)
	require.Contains(t, cfg.Indexers, tokens.DefaultNamespace, "defaults stay when indexers is not set")
}

func TestValidate(t *testing.T) {
	for name, doc := range map[string]string{
		"zero batch":      "iterator: {batch_size: 0}",
		"negative memory": "iterator: {batch_size: 2, max_instances_in_memory: -1}",
		"zero memory":     "iterator: {batch_size: 2, max_instances_in_memory: 0}",
		"bad indexer":     "indexers: {x: {type: elmo}}",
		"bad limit":       "iterator: {batch_size: 2, maximum_samples_per_batch: {key: num_tokens, limit: 0}}",
		"negative size":   "vocabulary: {max_size: -1}",
	} {
		_, err := Parse([]byte(doc))
		require.ErrorIsf(t, err, ErrConfiguration, "case %s", name)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte("iterator:\n  batch_size: 7\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 7, cfg.Iterator.BatchSize)
	require.Equal(t, 1000, cfg.Iterator.MaxInstancesInMemory)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	_, err = Default().BuildReader("")
	require.ErrorIs(t, err, ErrConfiguration)
}
