package domain

import (
	"math"
	"slices"
	"time"
)

// AssembleGrid pivots a normalized table into a dense (Time, Range) grid with
// one variable per channel and one per-Time coordinate per profile field.
// Cells without an observation stay NaN.
func AssembleGrid(tbl ObservationTable, attrs Attrs) (*ProfileGrid, error) {
	if len(tbl.Records) == 0 {
		return nil, ErrNoObservations
	}

	times := make([]int64, 0, len(tbl.Records))
	ranges := make([]float64, 0, len(tbl.Records))
	for _, o := range tbl.Records {
		times = append(times, o.Time.UnixNano())
		ranges = append(ranges, o.Range)
	}
	slices.Sort(times)
	times = slices.Compact(times)
	slices.Sort(ranges)
	ranges = slices.Compact(ranges)

	nt, nr := len(times), len(ranges)
	timeIdx := make(map[int64]int, nt)
	for i, t := range times {
		timeIdx[t] = i
	}
	rangeIdx := make(map[float64]int, nr)
	for i, r := range ranges {
		rangeIdx[r] = i
	}

	grid := NewProfileGrid(attrs)
	if err := grid.AddDim(DimTime, nt); err != nil {
		return nil, err
	}
	if err := grid.AddDim(DimRange, nr); err != nil {
		return nil, err
	}
	if err := grid.AddCoord(&Coord{Name: DimTime, Dim: DimTime, Times: nanosToTimes(times), Attrs: timeAttrs.Clone()}); err != nil {
		return nil, err
	}
	if err := grid.AddCoord(&Coord{Name: DimRange, Dim: DimRange, Floats: ranges, Attrs: rangeAttrs.Clone()}); err != nil {
		return nil, err
	}

	vars := make([]*Variable, len(tbl.Channels))
	for i, ch := range tbl.Channels {
		vars[i] = NewVariable(ch.String(), []string{DimTime, DimRange}, []int{nt, nr})
		vars[i].Attrs = channelAttrs[ch].Clone()
	}

	filled := make([]bool, nt*nr)
	profiles := make([][numProfileFields]float64, nt)
	seen := make([]bool, nt)
	for _, o := range tbl.Records {
		ti := timeIdx[o.Time.UnixNano()]
		cell := ti*nr + rangeIdx[o.Range]
		if filled[cell] {
			return nil, &DuplicateCellError{Source: "observations", Time: o.Time, Range: o.Range}
		}
		filled[cell] = true
		for i, ch := range tbl.Channels {
			vars[i].Data[cell] = o.Values[ch]
		}

		if !seen[ti] {
			profiles[ti] = o.Profile
			seen[ti] = true
			continue
		}
		for _, f := range tbl.Profile {
			if !sameValue(profiles[ti][f], o.Profile[f]) {
				return nil, &InconsistentProfileError{
					Time:   o.Time,
					Field:  f,
					Values: []float64{profiles[ti][f], o.Profile[f]},
				}
			}
		}
	}

	for _, f := range tbl.Profile {
		vals := make([]float64, nt)
		for ti := range profiles {
			vals[ti] = profiles[ti][f]
		}
		c := &Coord{Name: f.String(), Dim: DimTime, Floats: vals, Attrs: profileAttrs[f].Clone()}
		if err := grid.AddCoord(c); err != nil {
			return nil, err
		}
	}
	for _, v := range vars {
		if err := grid.AddVar(v); err != nil {
			return nil, err
		}
	}
	return grid, nil
}

// sameValue compares profile values treating NaN (null) as equal to NaN.
func sameValue(a, b float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.IsNaN(a) && math.IsNaN(b)
	}
	return a == b
}

func nanosToTimes(ns []int64) []time.Time {
	out := make([]time.Time, len(ns))
	for i, n := range ns {
		out[i] = time.Unix(0, n).UTC()
	}
	return out
}

func timesToNanos(ts []time.Time) []int64 {
	out := make([]int64, len(ts))
	for i, t := range ts {
		out[i] = t.UnixNano()
	}
	return out
}
