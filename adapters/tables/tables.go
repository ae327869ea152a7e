// Package tables reads and writes the CSV tables a resolution run
// consumes and produces.
//
// Readers return plain row slices; all scenario-dependent shaping
// beyond load-time filters and currency normalization belongs to the
// core packages.
package tables

import (
	"encoding/csv"
	"math"
	"os"
	"strconv"
	"strings"

	"gencost/internal/errors"
)

// csvTable is one loaded CSV file with header-keyed cell access.
type csvTable struct {
	path   string
	cols   []string
	header map[string]int
	rows   [][]string
}

func readTable(path string) (*csvTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(errors.TypeInput, err, "opening %s", path)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrapf(errors.TypeParsing, err, "reading %s", path)
	}
	if len(records) == 0 {
		return nil, errors.Configf("%s has no header row", path)
	}

	cols := make([]string, len(records[0]))
	header := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		cols[i] = strings.TrimSpace(name)
		header[cols[i]] = i
	}
	return &csvTable{path: path, cols: cols, header: header, rows: records[1:]}, nil
}

func (t *csvTable) has(col string) bool {
	_, ok := t.header[col]
	return ok
}

// text returns the trimmed cell value, "" when the column is absent.
func (t *csvTable) text(row int, col string) string {
	i, ok := t.header[col]
	if !ok {
		return ""
	}
	return strings.TrimSpace(t.rows[row][i])
}

// float parses a numeric cell. Absent columns and empty cells read as
// NaN; callers decide whether missing means zero.
func (t *csvTable) float(row int, col string) (float64, error) {
	cell := t.text(row, col)
	if cell == "" {
		return math.NaN(), nil
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return 0, errors.Wrapf(errors.TypeParsing, err, "%s line %d: %s", t.path, row+2, col)
	}
	return v, nil
}

// number parses a numeric cell with missing values filled as zero.
func (t *csvTable) number(row int, col string) (float64, error) {
	v, err := t.float(row, col)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) {
		return 0, nil
	}
	return v, nil
}

// whole parses a whole-number cell, zero when missing.
func (t *csvTable) whole(row int, col string) (int, error) {
	v, err := t.number(row, col)
	if err != nil {
		return 0, err
	}
	return int(v), nil
}
