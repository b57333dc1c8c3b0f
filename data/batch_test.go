package data

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Noofbiz/instancebatch/tokens"
	"github.com/Noofbiz/instancebatch/vocab"
)

func singleID() map[string]tokens.Indexer {
	return map[string]tokens.Indexer{"tokens": tokens.Erase[int](tokens.NewSingleID("", false))}
}

// textInstance builds an instance with a "text" field of the given words and
// a "label" field.
func textInstance(t *testing.T, label string, words ...string) *Instance {
	t.Helper()
	inst, err := NewInstance(
		NamedField{"text", NewTextField(tokens.FromStrings(words...), singleID())},
		NamedField{"label", NewLabelField(label, "")},
	)
	if err != nil {
		t.Fatalf("NewInstance failed: %v", err)
	}
	return inst
}

func fitVocabulary(instances ...*Instance) *vocab.Vocabulary {
	c := vocab.NewCounter()
	for _, inst := range instances {
		inst.CountVocabItems(c)
	}
	return vocab.FromCounter(c, vocab.FitOptions{})
}

func TestNewInstance_Validation(t *testing.T) {
	text := NewTextField(tokens.FromStrings("a"), singleID())
	if _, err := NewInstance(NamedField{"", text}); err == nil {
		t.Fatalf("expected error for empty field name")
	}
	if _, err := NewInstance(NamedField{"a", text}, NamedField{"a", text}); err == nil {
		t.Fatalf("expected error for duplicate field name")
	}
	if _, err := NewInstance(NamedField{"a", nil}); err == nil {
		t.Fatalf("expected error for nil field")
	}
}

func TestInstance_WithCopies(t *testing.T) {
	inst := textInstance(t, "pos", "a", "b")
	extended := inst.With("epoch_num", NewMetadataField(3))

	if inst.Len() != 2 || extended.Len() != 3 {
		t.Fatalf("With must not modify the original: original=%d extended=%d", inst.Len(), extended.Len())
	}
	if diff := cmp.Diff([]string{"text", "label", "epoch_num"}, extended.Names()); diff != "" {
		t.Fatalf("unexpected field order (-want +got):\n%s", diff)
	}
}

func TestNewBatch_Empty(t *testing.T) {
	if _, err := NewBatch(nil); err == nil {
		t.Fatalf("expected error for empty batch")
	}
}

func TestBatch_PaddingIsBatchMaximum(t *testing.T) {
	instances := []*Instance{
		textInstance(t, "pos", "a", "b", "c"),
		textInstance(t, "neg", "a", "b", "c", "d", "e", "f", "g"),
		textInstance(t, "pos", "a", "b"),
	}
	v := fitVocabulary(instances...)
	b, err := NewBatch(instances)
	if err != nil {
		t.Fatalf("NewBatch failed: %v", err)
	}

	lengths, err := b.PaddingLengths(v)
	if err != nil {
		t.Fatalf("PaddingLengths failed: %v", err)
	}
	if got := lengths["text"][NumTokens]; got != 7 {
		t.Fatalf("expected batch padding length 7, got %d", got)
	}

	arrays, err := b.AsArrays(v)
	if err != nil {
		t.Fatalf("AsArrays failed: %v", err)
	}
	ids, ok := arrays["text"]["tokens"].([][]int)
	if !ok {
		t.Fatalf("expected [][]int, got %T", arrays["text"]["tokens"])
	}
	a, bb, c := v.TokenIndex("a", "tokens"), v.TokenIndex("b", "tokens"), v.TokenIndex("c", "tokens")
	want := [][]int{
		{a, bb, c, 0, 0, 0, 0},
		ids[1],
		{a, bb, 0, 0, 0, 0, 0},
	}
	if diff := cmp.Diff(want, ids); diff != "" {
		t.Fatalf("unexpected padded ids (-want +got):\n%s", diff)
	}
	for i, row := range ids {
		if len(row) != 7 {
			t.Fatalf("row %d has length %d, want 7", i, len(row))
		}
	}

	labels, ok := arrays["label"][LabelArray].([]int)
	if !ok {
		t.Fatalf("expected []int labels, got %T", arrays["label"][LabelArray])
	}
	if diff := cmp.Diff([]int{v.TokenIndex("pos", "labels"), v.TokenIndex("neg", "labels"), v.TokenIndex("pos", "labels")}, labels); diff != "" {
		t.Fatalf("unexpected labels (-want +got):\n%s", diff)
	}
}

func TestBatch_MultipleIndexersPerField(t *testing.T) {
	indexers := map[string]tokens.Indexer{
		"tokens": tokens.Erase[int](tokens.NewSingleID("", true)),
		"chars":  tokens.Erase[[]int](tokens.NewCharacters("", true, 0)),
	}
	mk := func(words ...string) *Instance {
		inst, err := NewInstance(NamedField{"text", NewTextField(tokens.FromStrings(words...), indexers)})
		if err != nil {
			t.Fatalf("NewInstance failed: %v", err)
		}
		return inst
	}
	instances := []*Instance{mk("Hi", "there"), mk("abcdefg")}
	v := fitVocabulary(instances...)
	b, _ := NewBatch(instances)

	lengths, err := b.PaddingLengths(v)
	if err != nil {
		t.Fatalf("PaddingLengths failed: %v", err)
	}
	want := map[string]map[string]int{"text": {NumTokens: 2, tokens.NumTokenCharacters: 7}}
	if diff := cmp.Diff(want, lengths); diff != "" {
		t.Fatalf("unexpected padding lengths (-want +got):\n%s", diff)
	}

	arrays, err := b.AsArrays(v)
	if err != nil {
		t.Fatalf("AsArrays failed: %v", err)
	}
	chars, ok := arrays["text"]["chars"].([][][]int)
	if !ok {
		t.Fatalf("expected [][][]int, got %T", arrays["text"]["chars"])
	}
	if len(chars) != 2 || len(chars[0]) != 2 || len(chars[1]) != 2 || len(chars[1][1]) != 7 {
		t.Fatalf("unexpected character array shape: %v", chars)
	}
	if diff := cmp.Diff([]int{0, 0, 0, 0, 0, 0, 0}, chars[1][1]); diff != "" {
		t.Fatalf("padding token row should be all zero (-want +got):\n%s", diff)
	}
}

func TestBatch_MalformedInstance(t *testing.T) {
	good := textInstance(t, "pos", "a")
	missing, _ := NewInstance(NamedField{"text", NewTextField(tokens.FromStrings("a"), singleID())})
	v := fitVocabulary(good)

	b, _ := NewBatch([]*Instance{good, missing})
	if _, err := b.AsArrays(v); !errors.Is(err, ErrMalformedInstance) {
		t.Fatalf("expected ErrMalformedInstance for missing field, got %v", err)
	}

	noIndexers, _ := NewInstance(
		NamedField{"text", NewTextField(tokens.FromStrings("a"), nil)},
		NamedField{"label", NewLabelField("pos", "")},
	)
	b, _ = NewBatch([]*Instance{noIndexers})
	if _, err := b.AsArrays(v); !errors.Is(err, ErrMalformedInstance) {
		t.Fatalf("expected ErrMalformedInstance for field without indexers, got %v", err)
	}

	unknownLabel := textInstance(t, "never-counted", "a")
	b, _ = NewBatch([]*Instance{unknownLabel})
	if _, err := b.PaddingLengths(v); !errors.Is(err, ErrMalformedInstance) {
		t.Fatalf("expected ErrMalformedInstance for unknown label, got %v", err)
	}
}

func TestBatch_MetadataAndIntLabels(t *testing.T) {
	mk := func(id int, meta any) *Instance {
		inst, err := NewInstance(
			NamedField{"label", NewIntLabelField(id)},
			NamedField{"meta", NewMetadataField(meta)},
		)
		if err != nil {
			t.Fatalf("NewInstance failed: %v", err)
		}
		return inst
	}
	b, _ := NewBatch([]*Instance{mk(3, "x"), mk(5, 7)})

	arrays, err := b.AsArrays(nil)
	if err != nil {
		t.Fatalf("AsArrays failed: %v", err)
	}
	if diff := cmp.Diff([]int{3, 5}, arrays["label"][LabelArray]); diff != "" {
		t.Fatalf("unexpected labels (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]any{"x", 7}, arrays["meta"][MetadataArray]); diff != "" {
		t.Fatalf("mixed metadata should stack as []any (-want +got):\n%s", diff)
	}

	ts, err := b.Tensors(nil)
	if err != nil {
		t.Fatalf("Tensors failed: %v", err)
	}
	if len(ts) != 1 || ts[TensorKey("label", LabelArray)] == nil {
		t.Fatalf("expected only the label tensor, got %v", ts)
	}
}

func TestBatch_Tensors(t *testing.T) {
	instances := []*Instance{textInstance(t, "pos", "a", "b"), textInstance(t, "neg", "c")}
	v := fitVocabulary(instances...)
	b, _ := NewBatch(instances)

	ts, err := b.Tensors(v)
	if err != nil {
		t.Fatalf("Tensors failed: %v", err)
	}
	for _, key := range []string{"text.tokens", "label"} {
		if ts[key] == nil {
			t.Fatalf("missing tensor %q in %v", key, ts)
		}
	}
	if dims := ts["text.tokens"].Shape().Dimensions; len(dims) != 2 || dims[0] != 2 || dims[1] != 2 {
		t.Fatalf("unexpected text tensor dimensions %v", dims)
	}
}
