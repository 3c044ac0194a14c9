package domain

import (
	"bytes"
	"cmp"
	"fmt"
	"math"
	"slices"
	"time"
)

// Component labels of the Windspeed variable.
var windComponents = []string{"x", "y", "z"}

// WindSample is one reconstructed wind vector as exported.
type WindSample struct {
	Time  time.Time
	Range float64
	X     float64
	Y     float64
	Z     float64
}

// WindOverlayStats counts what happened to each sample during the overlay.
type WindOverlayStats struct {
	Mapped      int // samples written to the grid
	AfterGrid   int // dropped: later than the last grid time
	BelowGrid   int // dropped: no grid time or range at or below the sample, or no finite range
	Overwritten int // samples that replaced an earlier sample in the same cell
}

// ParseWindSamples reads a reconstructed wind export. Azimuth, elevation, CNR
// and confidence columns are ignored.
func ParseWindSamples(data []byte) ([]WindSample, error) {
	tbl, err := readDelimited(bytes.NewReader(data), sniffDelimiter(data))
	if err != nil {
		return nil, fmt.Errorf("parse wind: %w", err)
	}
	cols, err := tbl.requireColumns(
		[]string{"TimeStamp", "Timestamp"},
		[]string{"Range [m]"},
		[]string{"X-Wind Speed [m/s]"},
		[]string{"Y-Wind Speed [m/s]"},
		[]string{"Z-Wind Speed [m/s]"},
	)
	if err != nil {
		return nil, fmt.Errorf("parse wind: %w", err)
	}

	out := make([]WindSample, 0, len(tbl.rows))
	for n, row := range tbl.rows {
		t, err := parseTimestamp(row[cols[0]])
		if err != nil {
			return nil, fmt.Errorf("parse wind: line %d: %w", n+2, err)
		}
		var vals [4]float64
		for i := range vals {
			v, err := parseFloatOrNaN(row[cols[i+1]])
			if err != nil {
				return nil, fmt.Errorf("parse wind: line %d: column %q: invalid number %q", n+2, tbl.header[cols[i+1]], row[cols[i+1]])
			}
			vals[i] = v
		}
		if math.IsNaN(vals[0]) || math.IsInf(vals[0], 0) {
			return nil, fmt.Errorf("parse wind: line %d: range %q is not a finite number", n+2, row[cols[1]])
		}
		for i, v := range vals[1:] {
			if math.IsInf(v, 0) {
				return nil, fmt.Errorf("parse wind: line %d: column %q: non-finite value %q", n+2, tbl.header[cols[i+2]], row[cols[i+2]])
			}
		}
		out = append(out, WindSample{Time: t, Range: vals[0], X: vals[1], Y: vals[2], Z: vals[3]})
	}
	return out, nil
}

// OverlayWind adds a Windspeed (Component, Time, Range) variable built from
// independently sampled wind vectors. Samples after the grid's last time are
// dropped; the rest map to the nearest lower-or-equal grid time and range.
// Unmapped cells stay NaN and a later sample overwrites an earlier one that
// mapped to the same cell.
func OverlayWind(grid *ProfileGrid, samples []WindSample) (WindOverlayStats, error) {
	var stats WindOverlayStats
	tc, rc := grid.Coord(DimTime), grid.Coord(DimRange)
	if tc == nil || rc == nil || tc.Len() == 0 || rc.Len() == 0 {
		return stats, fmt.Errorf("overlay wind: %w", ErrNoObservations)
	}
	gridTimes := timesToNanos(tc.Times)
	gridRanges := rc.Floats
	maxTime := gridTimes[len(gridTimes)-1]

	kept := make([]WindSample, 0, len(samples))
	for _, s := range samples {
		if math.IsNaN(s.Range) || math.IsInf(s.Range, 0) {
			stats.BelowGrid++
			continue
		}
		if s.Time.UnixNano() > maxTime {
			stats.AfterGrid++
			continue
		}
		kept = append(kept, s)
	}
	slices.SortStableFunc(kept, func(a, b WindSample) int {
		if c := a.Time.Compare(b.Time); c != 0 {
			return c
		}
		return cmp.Compare(a.Range, b.Range)
	})
	for i := 1; i < len(kept); i++ {
		if kept[i].Time.Equal(kept[i-1].Time) && kept[i].Range == kept[i-1].Range {
			return stats, &DuplicateCellError{Source: "wind", Time: kept[i].Time, Range: kept[i].Range}
		}
	}

	nt, nr := len(gridTimes), len(gridRanges)
	if err := grid.AddDim(DimComponent, len(windComponents)); err != nil {
		return stats, err
	}
	ws := NewVariable("Windspeed", []string{DimComponent, DimTime, DimRange}, []int{len(windComponents), nt, nr})
	ws.Attrs = windspeedAttrs.Clone()

	written := make([]bool, nt*nr)
	for _, s := range kept {
		ti := FloorIndex(gridTimes, s.Time.UnixNano())
		ri := FloorIndex(gridRanges, s.Range)
		if ti < 0 || ri < 0 {
			stats.BelowGrid++
			continue
		}
		if written[ti*nr+ri] {
			stats.Overwritten++
		}
		written[ti*nr+ri] = true
		ws.Set(-s.Y, 0, ti, ri)
		ws.Set(-s.X, 1, ti, ri)
		ws.Set(-s.Z, 2, ti, ri)
		stats.Mapped++
	}

	if err := grid.AddCoord(&Coord{Name: DimComponent, Dim: DimComponent, Strings: slices.Clone(windComponents)}); err != nil {
		return stats, err
	}
	if err := grid.AddVar(ws); err != nil {
		return stats, err
	}
	return stats, nil
}
