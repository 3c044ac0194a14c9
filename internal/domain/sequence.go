package domain

import (
	"bytes"
	"fmt"
	"math"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"
)

// lastAcquisitionSlack compensates for Last Acquisition being truncated to
// the second in the sequences export.
const lastAcquisitionSlack = time.Second

// SequenceInterval is one measurement sequence and its acquisition window as
// exported (Last not yet corrected).
type SequenceInterval struct {
	ID    int
	First time.Time
	Last  time.Time
}

// ParseSequences reads a sequences export. Intervals are returned ordered by
// first acquisition.
func ParseSequences(data []byte) ([]SequenceInterval, error) {
	tbl, err := readDelimited(bytes.NewReader(data), sniffDelimiter(data))
	if err != nil {
		return nil, fmt.Errorf("parse sequences: %w", err)
	}
	cols, err := tbl.requireColumns(
		[]string{"Sequence ID", "Sequence"},
		[]string{"First Acquisition"},
		[]string{"Last Acquisition"},
	)
	if err != nil {
		return nil, fmt.Errorf("parse sequences: %w", err)
	}

	out := make([]SequenceInterval, 0, len(tbl.rows))
	for n, row := range tbl.rows {
		id, err := strconv.Atoi(strings.TrimSpace(row[cols[0]]))
		if err != nil {
			return nil, fmt.Errorf("parse sequences: line %d: invalid sequence id %q", n+2, row[cols[0]])
		}
		first, err := parseTimestamp(row[cols[1]])
		if err != nil {
			return nil, fmt.Errorf("parse sequences: line %d: %w", n+2, err)
		}
		last, err := parseTimestamp(row[cols[2]])
		if err != nil {
			return nil, fmt.Errorf("parse sequences: line %d: %w", n+2, err)
		}
		out = append(out, SequenceInterval{ID: id, First: first, Last: last})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].First.Before(out[j].First) })
	return out, nil
}

// ResolveSequences assigns each record the id of the sequence whose corrected
// window [First, Last+1s) contains its time. The window is found twice, by
// insertion point among corrected upper bounds and by floor index among lower
// bounds; a record matches only when both agree. Unmatched records get a NaN
// sequence. The number of unmatched records is returned.
func ResolveSequences(records []Observation, intervals []SequenceInterval) int {
	firsts := make([]int64, len(intervals))
	lasts := make([]int64, len(intervals))
	for i, iv := range intervals {
		firsts[i] = iv.First.UnixNano()
		lasts[i] = iv.Last.Add(lastAcquisitionSlack).UnixNano()
	}

	unmatched := 0
	for i := range records {
		t := records[i].Time.UnixNano()
		upper := SearchSorted(lasts, t, SideRight)
		lower := FloorIndex(firsts, t)
		if upper == lower && upper < len(intervals) {
			records[i].Profile[FieldSequence] = float64(intervals[upper].ID)
			continue
		}
		records[i].Profile[FieldSequence] = math.NaN()
		unmatched++
	}
	return unmatched
}

// applySequences resolves sequences on a copy of the table's records and
// makes Sequence a profile field.
func applySequences(tbl ObservationTable, intervals []SequenceInterval) (ObservationTable, int) {
	out := tbl
	out.Records = slices.Clone(tbl.Records)
	unmatched := ResolveSequences(out.Records, intervals)
	if !out.HasProfileField(FieldSequence) {
		out.Profile = append(append([]ProfileField(nil), tbl.Profile...), FieldSequence)
	}
	return out, unmatched
}
