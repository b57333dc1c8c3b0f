package readers

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/Noofbiz/instancebatch/tokens"
)

// countCSVRows returns the number of records after the header of path.
func countCSVRows(path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to open CSV %s", path)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.ReuseRecord = true
	if _, err := reader.Read(); err != nil {
		return 0, errors.Wrapf(err, "failed to read header of %s", path)
	}
	rows := 0
	for ; ; rows++ {
		if _, err := reader.Read(); err == io.EOF {
			return rows, nil
		} else if err != nil {
			return 0, errors.Wrapf(err, "failed to read row %d of %s", rows, path)
		}
	}
}

// headerIndex maps normalized column names to their position.
func headerIndex(header []string) map[string]int {
	colIndex := make(map[string]int, len(header))
	for i, col := range header {
		colIndex[normalizeColumn(col)] = i
	}
	return colIndex
}

func normalizeColumn(col string) string {
	return strings.TrimSpace(strings.ToLower(col))
}

// tokensWithIDs pairs every token with the matching id of a space separated id
// list. The two must have the same length.
func tokensWithIDs(toks []tokens.Token, ids string) ([]tokens.Token, error) {
	fields := strings.Fields(ids)
	if len(fields) != len(toks) {
		return nil, errors.Errorf("%d ids for %d tokens", len(fields), len(toks))
	}
	out := make([]tokens.Token, len(toks))
	for i, f := range fields {
		id, err := strconv.Atoi(f)
		if err != nil {
			return nil, errors.Wrapf(err, "bad id %q", f)
		}
		out[i] = tokens.NewTokenWithID(toks[i].Text, id)
	}
	return out, nil
}
