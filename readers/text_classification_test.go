package readers

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Noofbiz/instancebatch/data"
	"github.com/Noofbiz/instancebatch/iterators"
	"github.com/Noofbiz/instancebatch/tokens"
	"github.com/Noofbiz/instancebatch/vocab"
)

// writeCSV writes a CSV file with the given header and rows to path.
func writeCSV(t *testing.T, path, header string, rows []string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create csv %s: %v", path, err)
	}
	defer f.Close()

	if _, err := f.WriteString(header + "\n"); err != nil {
		t.Fatalf("failed to write header: %v", err)
	}
	for _, r := range rows {
		if _, err := f.WriteString(r + "\n"); err != nil {
			t.Fatalf("failed to write row: %v", err)
		}
	}
}

func drain(t *testing.T, src iterators.Source) []*data.Instance {
	t.Helper()
	var out []*data.Instance
	for inst, err := range src {
		if err != nil {
			t.Fatalf("reading instances: %v", err)
		}
		out = append(out, inst)
	}
	return out
}

// TestTextClassificationReader_LoadAndBatch writes two CSV files and runs them
// through vocabulary construction, batching and rendering.
func TestTextClassificationReader_LoadAndBatch(t *testing.T) {
	tmp := t.TempDir()
	header := "Text, Label"
	writeCSV(t, filepath.Join(tmp, "a.csv"), header, []string{
		"the cat sat,animal",
		"the dog,animal",
		"stocks fell sharply today,finance",
	})
	writeCSV(t, filepath.Join(tmp, "b.csv"), header, []string{
		"The Cat,animal",
		"bonds rallied,finance",
	})

	r, err := NewTextClassificationReader(filepath.Join(tmp, "*.csv"), Options{
		LabelColumn: "label",
		Indexers: map[string]tokens.Indexer{
			"tokens": tokens.Erase[int](tokens.NewSingleID("", true)),
		},
	})
	if err != nil {
		t.Fatalf("NewTextClassificationReader failed: %v", err)
	}

	n, err := r.Len()
	if err != nil {
		t.Fatalf("Len failed: %v", err)
	}
	if n != 5 {
		t.Fatalf("expected 5 rows, got %d", n)
	}

	instances := drain(t, r.Instances())
	if len(instances) != 5 {
		t.Fatalf("expected 5 instances, got %d", len(instances))
	}
	// A second pass reads the files again.
	if again := drain(t, r.Instances()); len(again) != 5 {
		t.Fatalf("second pass returned %d instances", len(again))
	}

	counter := vocab.NewCounter()
	for _, inst := range instances {
		inst.CountVocabItems(counter)
	}
	if got := counter.Count("tokens", "cat"); got != 2 {
		t.Fatalf("expected lowercased 'cat' counted twice, got %d", got)
	}
	v := vocab.FromCounter(counter, vocab.FitOptions{})

	it, err := iterators.NewBasicIterator(iterators.Config{BatchSize: 2, MaxInstancesInMemory: 100}, v)
	if err != nil {
		t.Fatalf("NewBasicIterator failed: %v", err)
	}
	var sizes []int
	for batch, err := range it.Batches(r.Instances(), 1, false) {
		if err != nil {
			t.Fatalf("batch error: %v", err)
		}
		arrays, err := batch.AsArrays(v)
		if err != nil {
			t.Fatalf("AsArrays failed: %v", err)
		}
		ids := arrays[TextField]["tokens"].([][]int)
		lengths, _ := batch.PaddingLengths(v)
		for _, row := range ids {
			if len(row) != lengths[TextField][data.NumTokens] {
				t.Fatalf("row %v not padded to %d", row, lengths[TextField][data.NumTokens])
			}
		}
		sizes = append(sizes, batch.Len())
	}
	if len(sizes) != 3 || sizes[0] != 2 || sizes[1] != 2 || sizes[2] != 1 {
		t.Fatalf("unexpected batch sizes %v", sizes)
	}
}

func TestTextClassificationReader_IDsColumn(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "ids.csv")
	writeCSV(t, path, "text,ids", []string{
		"hello world,17 4",
	})

	r, err := NewTextClassificationReader(path, Options{IDsColumn: "ids"})
	if err != nil {
		t.Fatalf("NewTextClassificationReader failed: %v", err)
	}
	instances := drain(t, r.Instances())
	if len(instances) != 1 {
		t.Fatalf("expected 1 instance, got %d", len(instances))
	}
	if _, ok := instances[0].Field(LabelField); ok {
		t.Fatalf("unlabeled reader should not produce a label field")
	}

	// Pre-encoded tokens never touch the (empty) vocabulary.
	b, _ := data.NewBatch(instances)
	arrays, err := b.AsArrays(vocab.New())
	if err != nil {
		t.Fatalf("AsArrays failed: %v", err)
	}
	ids := arrays[TextField][tokens.DefaultNamespace].([][]int)
	if ids[0][0] != 17 || ids[0][1] != 4 {
		t.Fatalf("expected precomputed ids [17 4], got %v", ids[0])
	}
}

func TestTextClassificationReader_BadIDs(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "ids.csv")
	writeCSV(t, path, "text,ids", []string{
		"one two three,1 2",
	})
	r, err := NewTextClassificationReader(path, Options{IDsColumn: "ids"})
	if err != nil {
		t.Fatalf("NewTextClassificationReader failed: %v", err)
	}
	for _, err := range r.Instances() {
		if err == nil {
			t.Fatalf("expected error for mismatched id count")
		}
	}
}

func TestCountCSVRows(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "rows.csv")
	writeCSV(t, path, "text,label", []string{"a,x", "b,y", "c,z"})
	if n, err := countCSVRows(path); err != nil || n != 3 {
		t.Fatalf("countCSVRows = %d, %v; want 3", n, err)
	}

	headerOnly := filepath.Join(tmp, "empty.csv")
	writeCSV(t, headerOnly, "text,label", nil)
	if n, err := countCSVRows(headerOnly); err != nil || n != 0 {
		t.Fatalf("countCSVRows on header only = %d, %v; want 0", n, err)
	}

	ragged := filepath.Join(tmp, "ragged.csv")
	writeCSV(t, ragged, "text,label", []string{"a,x", "b"})
	_, err := countCSVRows(ragged)
	if err == nil || !strings.Contains(err.Error(), ragged) {
		t.Fatalf("expected an error naming %s, got %v", ragged, err)
	}

	missing := filepath.Join(tmp, "missing.csv")
	if _, err := countCSVRows(missing); err == nil || !strings.Contains(err.Error(), missing) {
		t.Fatalf("expected an error naming %s, got %v", missing, err)
	}
}

func TestTextClassificationReader_MissingColumns(t *testing.T) {
	tmp := t.TempDir()
	writeCSV(t, filepath.Join(tmp, "bad.csv"), "sentence,label", []string{"a b,x"})

	if _, err := NewTextClassificationReader(filepath.Join(tmp, "*.csv"), Options{LabelColumn: "label"}); err == nil {
		t.Fatalf("expected error when the text column is missing")
	}
	if _, err := NewTextClassificationReader(filepath.Join(tmp, "nothing-*.csv"), Options{}); err == nil {
		t.Fatalf("expected error when no files match")
	}
}
