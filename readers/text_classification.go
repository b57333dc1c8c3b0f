// Package readers loads instances from CSV files. Readers store file paths and
// only read rows while the instance stream is being consumed, so a dataset
// never has to fit in memory.
package readers

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/Noofbiz/instancebatch/data"
	"github.com/Noofbiz/instancebatch/iterators"
	"github.com/Noofbiz/instancebatch/tokens"
)

// Tokenizer splits raw text into tokens.
type Tokenizer interface {
	Tokenize(text string) []tokens.Token
}

// Options configures a TextClassificationReader.
type Options struct {
	// TextColumn holds the text to tokenize. Default "text".
	TextColumn string

	// LabelColumn holds the class label. Empty means unlabeled data, and no
	// label field is produced.
	LabelColumn string

	// LabelNamespace is the vocabulary namespace of labels. Default "labels".
	LabelNamespace string

	// IDsColumn, if set, holds space separated precomputed ids, one per token.
	// Tokens then bypass the vocabulary.
	IDsColumn string

	// Tokenizer defaults to tokens.WhitespaceTokenizer.
	Tokenizer Tokenizer

	// Indexers are attached to every text field.
	Indexers map[string]tokens.Indexer
}

// Field names of the instances produced by TextClassificationReader.
const (
	TextField  = "text"
	LabelField = "label"
)

// TextClassificationReader reads one instance per CSV row from every file
// matching a glob pattern.
type TextClassificationReader struct {
	// Pattern used to find CSV files (e.g., "data/train/*.csv")
	Pattern string

	opts     Options
	csvPaths []string
}

// NewTextClassificationReader finds the files matching pattern and checks
// that each has the configured columns.
func NewTextClassificationReader(pattern string, opts Options) (*TextClassificationReader, error) {
	csvPaths, err := filepath.Glob(pattern)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to glob pattern %s", pattern)
	}
	if len(csvPaths) == 0 {
		return nil, errors.Errorf("no CSV files found matching pattern: %s", pattern)
	}

	if opts.TextColumn == "" {
		opts.TextColumn = "text"
	}
	if opts.LabelNamespace == "" {
		opts.LabelNamespace = data.DefaultLabelNamespace
	}
	if opts.Tokenizer == nil {
		opts.Tokenizer = tokens.WhitespaceTokenizer{}
	}
	if len(opts.Indexers) == 0 {
		opts.Indexers = map[string]tokens.Indexer{
			tokens.DefaultNamespace: tokens.Erase[int](tokens.NewSingleID("", false)),
		}
	}

	r := &TextClassificationReader{Pattern: pattern, opts: opts, csvPaths: csvPaths}
	for _, path := range csvPaths {
		if _, err := r.readHeader(path); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Paths returns the CSV files backing the reader.
func (r *TextClassificationReader) Paths() []string {
	return append([]string(nil), r.csvPaths...)
}

// columns holds the positions of the configured columns in one file.
type columns struct {
	text, label, ids int
}

// readHeader opens path only to validate its header.
func (r *TextClassificationReader) readHeader(path string) (columns, error) {
	file, err := os.Open(path)
	if err != nil {
		return columns{}, errors.Wrapf(err, "failed to open CSV %s", path)
	}
	defer file.Close()
	return r.columns(csv.NewReader(file), path)
}

func (r *TextClassificationReader) columns(reader *csv.Reader, path string) (columns, error) {
	header, err := reader.Read()
	if err != nil {
		return columns{}, errors.Wrapf(err, "failed to read header of %s", path)
	}
	colIndex := headerIndex(header)

	cols := columns{label: -1, ids: -1}
	lookup := func(name string) (int, error) {
		idx, ok := colIndex[normalizeColumn(name)]
		if !ok {
			return -1, errors.Errorf("required column %q not found in %s", name, path)
		}
		return idx, nil
	}
	if cols.text, err = lookup(r.opts.TextColumn); err != nil {
		return columns{}, err
	}
	if r.opts.LabelColumn != "" {
		if cols.label, err = lookup(r.opts.LabelColumn); err != nil {
			return columns{}, err
		}
	}
	if r.opts.IDsColumn != "" {
		if cols.ids, err = lookup(r.opts.IDsColumn); err != nil {
			return columns{}, err
		}
	}
	return cols, nil
}

// Len returns the total number of rows across all CSV files.
func (r *TextClassificationReader) Len() (int, error) {
	total := 0
	for _, path := range r.csvPaths {
		count, err := countCSVRows(path)
		if err != nil {
			return 0, err
		}
		total += count
	}
	return total, nil
}

// Instances returns a lazy stream over every row of every file, in file
// then row order. Each call reads the files again.
func (r *TextClassificationReader) Instances() iterators.Source {
	return func(yield func(*data.Instance, error) bool) {
		for _, path := range r.csvPaths {
			if !r.readFile(path, yield) {
				return
			}
		}
	}
}

// readFile streams the rows of path; it returns false once the consumer has
// stopped or an error has been reported.
func (r *TextClassificationReader) readFile(path string, yield func(*data.Instance, error) bool) bool {
	file, err := os.Open(path)
	if err != nil {
		yield(nil, errors.Wrapf(err, "failed to open CSV %s", path))
		return false
	}
	defer file.Close()

	reader := csv.NewReader(file)
	cols, err := r.columns(reader, path)
	if err != nil {
		yield(nil, err)
		return false
	}
	klog.V(1).Infof("reading instances from %s", path)

	for row := 0; ; row++ {
		record, err := reader.Read()
		if err == io.EOF {
			return true
		}
		if err != nil {
			yield(nil, errors.Wrapf(err, "failed to read row %d of %s", row, path))
			return false
		}
		inst, err := r.instance(record, cols)
		if err != nil {
			yield(nil, errors.Wrapf(err, "row %d of %s", row, path))
			return false
		}
		if !yield(inst, nil) {
			return false
		}
	}
}

func (r *TextClassificationReader) instance(record []string, cols columns) (*data.Instance, error) {
	toks := r.opts.Tokenizer.Tokenize(record[cols.text])
	if cols.ids >= 0 {
		var err error
		if toks, err = tokensWithIDs(toks, record[cols.ids]); err != nil {
			return nil, err
		}
	}
	fields := []data.NamedField{
		{Name: TextField, Field: data.NewTextField(toks, r.opts.Indexers)},
	}
	if cols.label >= 0 {
		fields = append(fields, data.NamedField{Name: LabelField, Field: data.NewLabelField(record[cols.label], r.opts.LabelNamespace)})
	}
	return data.NewInstance(fields...)
}
