package domain

import (
	"bytes"
	"fmt"
	"slices"
	"strings"
	"time"
)

// Header keys a sounding file must carry.
const (
	balloonFlight    = "Flight"
	balloonStation   = "Station Name (WMO #)"
	balloonHeight    = "Station Height"
	balloonLatitude  = "Station Latitude"
	balloonLongitude = "Station Longitude"
	balloonFileName  = "File Name"
	balloonObserver  = "Observer Initial"
	balloonVersion   = "Version #"
)

var (
	profileKeys = []string{balloonFlight, balloonFileName, balloonObserver, balloonVersion}
	stationKeys = []string{balloonHeight, balloonLatitude, balloonLongitude}

	// balloonTimeCoords are table columns attached as coordinates along Time
	// rather than stored as variables.
	balloonTimeCoords = []string{
		"Elapsed Time", "Geopotential Height", "Corrected Elevation",
		"Latitude", "Longitude", "Geometric Height",
	}

	balloonDateLayouts  = []string{"01/02/2006", "1/2/2006", "2006-01-02", "02.01.2006", "01/02/06"}
	balloonClockLayouts = []string{"15:04:05", "15:04"}
)

// BalloonOptions configures a radiosonde conversion.
type BalloonOptions struct {
	Attrs Attrs
	AsOf  time.Time
}

// splitBalloonHeader reads "Key : Value" lines up to the first blank line and
// returns them with the remaining table text.
func splitBalloonHeader(data []byte) (map[string]string, []byte, error) {
	meta := make(map[string]string)
	rest := data
	for len(rest) > 0 {
		line := rest
		next := []byte(nil)
		if i := bytes.IndexByte(rest, '\n'); i >= 0 {
			line, next = rest[:i], rest[i+1:]
		}
		rest = next
		trimmed := strings.TrimSpace(string(line))
		if trimmed == "" {
			return meta, rest, nil
		}
		key, value, ok := strings.Cut(trimmed, " : ")
		if !ok {
			return nil, nil, fmt.Errorf("sounding header: line %q is not \"Key : Value\"", trimmed)
		}
		meta[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return nil, nil, fmt.Errorf("sounding header: no blank line before the data table: %w", ErrEmptyInput)
}

func parseWithLayouts(s string, layouts []string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized value %q", s)
}

// launchTime combines the date and time-of-day fields of a Flight value such
// as "FLT_010117_0000, 01/01/2017, 00:00:00".
func launchTime(flight string) (time.Time, error) {
	parts := strings.Split(flight, ", ")
	if len(parts) < 3 {
		return time.Time{}, fmt.Errorf("flight %q: expected id, date and time", flight)
	}
	date, err := parseWithLayouts(parts[1], balloonDateLayouts)
	if err != nil {
		return time.Time{}, fmt.Errorf("flight date: %w", err)
	}
	tod, err := parseWithLayouts(parts[2], balloonClockLayouts)
	if err != nil {
		return time.Time{}, fmt.Errorf("flight time: %w", err)
	}
	return time.Date(date.Year(), date.Month(), date.Day(), tod.Hour(), tod.Minute(), tod.Second(), 0, time.UTC), nil
}

// ConvertBalloon converts a radiosonde sounding into a grid over
// (Profile, Station, Time) with one profile and one station.
func ConvertBalloon(data []byte, opts BalloonOptions) (*ProfileGrid, error) {
	asOf := resolveAsOf(opts.AsOf)
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyInput
	}

	meta, body, err := splitBalloonHeader(data)
	if err != nil {
		return nil, err
	}
	for _, k := range slices.Concat([]string{balloonStation}, profileKeys, stationKeys) {
		if _, ok := meta[k]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingMetadata, k)
		}
	}
	launch, err := launchTime(meta[balloonFlight])
	if err != nil {
		return nil, err
	}

	tbl, err := readDelimited(bytes.NewReader(body), ';')
	if err != nil {
		return nil, fmt.Errorf("sounding table: %w", err)
	}
	cols, err := tbl.requireColumns([]string{"Time Stamp"}, []string{"Elapsed Time"})
	if err != nil {
		return nil, fmt.Errorf("sounding table: %w", err)
	}
	if len(tbl.rows) == 0 {
		return nil, fmt.Errorf("sounding table: %w", ErrNoObservations)
	}

	n := len(tbl.rows)
	columns := make([][]float64, len(tbl.header))
	numeric := make([]bool, len(tbl.header))
	for j := range tbl.header {
		if j == cols[0] {
			continue
		}
		vals := make([]float64, n)
		numeric[j] = true
		for i, row := range tbl.rows {
			v, err := parseFloatOrNaN(row[j])
			if err != nil {
				numeric[j] = false
				break
			}
			vals[i] = v
		}
		if numeric[j] {
			columns[j] = vals
		}
	}
	if !numeric[cols[1]] {
		return nil, fmt.Errorf("sounding table: column %q is not numeric", "Elapsed Time")
	}

	times, err := soundingTimes(tbl.rows, cols[0], columns[cols[1]], launch)
	if err != nil {
		return nil, err
	}

	grid := NewProfileGrid(opts.Attrs)
	for _, d := range []Dim{{DimProfile, 1}, {DimStation, 1}, {DimTime, n}} {
		if err := grid.AddDim(d.Name, d.Size); err != nil {
			return nil, err
		}
	}
	coords := []*Coord{
		{Name: DimTime, Dim: DimTime, Times: times, Attrs: timeAttrs.Clone()},
		{Name: DimProfile, Dim: DimProfile, Times: []time.Time{launch}, Attrs: Attrs{"long_name": "launch time"}},
		{Name: DimStation, Dim: DimStation, Strings: []string{meta[balloonStation]}},
	}
	for _, k := range profileKeys {
		coords = append(coords, &Coord{Name: k, Dim: DimProfile, Strings: []string{meta[k]}})
	}
	for _, k := range stationKeys {
		coords = append(coords, &Coord{Name: k, Dim: DimStation, Strings: []string{meta[k]}})
	}
	isCoord := make(map[int]bool)
	for _, name := range balloonTimeCoords {
		j, ok := tbl.column(name)
		if !ok || !numeric[j] {
			continue
		}
		isCoord[j] = true
		coords = append(coords, &Coord{Name: name, Dim: DimTime, Floats: columns[j]})
	}
	for _, c := range coords {
		if err := grid.AddCoord(c); err != nil {
			return nil, err
		}
	}

	skipped := 0
	for j, h := range tbl.header {
		if j == cols[0] || isCoord[j] {
			continue
		}
		if !numeric[j] {
			skipped++
			continue
		}
		v := NewVariable(h, []string{DimProfile, DimStation, DimTime}, []int{1, 1, n})
		copy(v.Data, columns[j])
		if err := grid.AddVar(v); err != nil {
			return nil, err
		}
	}
	if skipped > 0 {
		grid.warn("%d non-numeric sounding columns were skipped", skipped)
	}

	grid.Attrs["processed_at"] = asOf.Format(time.RFC3339Nano)
	return grid, nil
}

// soundingTimes anchors HH:MM:SS stamps to the launch date. A stamp earlier
// than its predecessor while elapsed time still increases means the sounding
// crossed midnight; such rollovers accumulate.
func soundingTimes(rows [][]string, stampCol int, elapsed []float64, launch time.Time) ([]time.Time, error) {
	day := time.Date(launch.Year(), launch.Month(), launch.Day(), 0, 0, 0, 0, time.UTC)
	out := make([]time.Time, len(rows))
	clocks := make([]time.Duration, len(rows))
	daysAhead := 0
	for i, row := range rows {
		tod, err := parseWithLayouts(row[stampCol], balloonClockLayouts)
		if err != nil {
			return nil, fmt.Errorf("sounding table line %d: time stamp: %w", i+2, err)
		}
		clocks[i] = time.Duration(tod.Hour())*time.Hour + time.Duration(tod.Minute())*time.Minute + time.Duration(tod.Second())*time.Second
		if i > 0 && clocks[i] < clocks[i-1] && elapsed[i] >= elapsed[i-1] {
			daysAhead++
		}
		out[i] = day.AddDate(0, 0, daysAhead).Add(clocks[i])
	}
	return out, nil
}
