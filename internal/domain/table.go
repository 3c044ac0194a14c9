package domain

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"
)

// timestampLayouts are the timestamp spellings seen across instrument exports.
var timestampLayouts = []string{
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006/01/02 15:04:05.999999999",
	"01/02/2006 15:04:05.999999999",
	"01/02/06 15:04:05",
	"2006-01-02 15:04",
}

// parseTimestamp parses s using the first matching layout. Zone-less values are UTC.
func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// parseFloatOrNaN parses s as float64. Empty values and the given missing
// markers become NaN.
func parseFloatOrNaN(s string, missing ...string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN(), nil
	}
	for _, m := range missing {
		if s == m {
			return math.NaN(), nil
		}
	}
	return strconv.ParseFloat(s, 64)
}

// parseFlag accepts the boolean spellings written by vendor software.
func parseFlag(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "1.0", "yes":
		return true, nil
	case "false", "0", "0.0", "no":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean %q", s)
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// sniffDelimiter picks ';' when the header line has semicolons and no commas.
func sniffDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	if bytes.IndexByte(line, ';') >= 0 && bytes.IndexByte(line, ',') < 0 {
		return ';'
	}
	return ','
}

// delimitedTable is a header-indexed view of a delimited text file.
type delimitedTable struct {
	header  []string
	columns map[string]int
	rows    [][]string
}

// readDelimited reads a whole delimited table. Every row must have as many
// fields as the header.
func readDelimited(r io.Reader, delim rune) (*delimitedTable, error) {
	reader := csv.NewReader(r)
	reader.Comma = delim
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrEmptyInput
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	t := &delimitedTable{header: header, columns: make(map[string]int, len(header))}
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		t.header[i] = h
		if _, dup := t.columns[h]; !dup {
			t.columns[h] = i
		}
	}

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	t.rows = rows
	return t, nil
}

// column returns the index of the first header matching one of names.
func (t *delimitedTable) column(names ...string) (int, bool) {
	for _, n := range names {
		if i, ok := t.columns[n]; ok {
			return i, true
		}
	}
	return 0, false
}

// requireColumns resolves each name (or alias group) to an index.
func (t *delimitedTable) requireColumns(groups ...[]string) ([]int, error) {
	idx := make([]int, len(groups))
	for i, names := range groups {
		j, ok := t.column(names...)
		if !ok {
			return nil, fmt.Errorf("%w %q", ErrMissingColumn, names[0])
		}
		idx[i] = j
	}
	return idx, nil
}
