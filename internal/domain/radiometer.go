package domain

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"
)

const (
	radiometerMissing       = "*******"
	defaultRadiometerScan   = "Zenith"
	recordTypeSection       = 100
	profileSection          = 400
	radiometerSectionSpread = 4
)

// RadiometerOptions configures a radiometer conversion. Processor selects the
// LV2 processor whose profiles are kept and defaults to "Zenith".
type RadiometerOptions struct {
	Processor string
	Attrs     Attrs
	AsOf      time.Time
}

type radiometerSection struct {
	header  []string
	columns map[string]int
	rows    [][]string
}

func (s *radiometerSection) column(name string) (int, error) {
	i, ok := s.columns[name]
	if !ok {
		return 0, fmt.Errorf("%w %q", ErrMissingColumn, name)
	}
	return i, nil
}

// splitRadiometerSections groups the lines of a multi-record export by the
// section header they belong to. A header line of type n owns the data lines
// of types n+1 through n+4.
func splitRadiometerSections(data []byte) (map[int]*radiometerSection, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var lines [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read radiometer export: %w", err)
		}
		lines = append(lines, rec)
	}
	if len(lines) == 0 {
		return nil, ErrEmptyInput
	}

	sections := make(map[int]*radiometerSection)
	owner := make(map[int]int)
	types := make([]int, len(lines))
	for i, rec := range lines {
		if len(rec) < 3 {
			return nil, fmt.Errorf("radiometer line %d: expected a record type in the third field", i+1)
		}
		n, err := strconv.Atoi(strings.TrimSpace(rec[2]))
		if err != nil {
			return nil, fmt.Errorf("radiometer line %d: invalid record type %q", i+1, rec[2])
		}
		types[i] = n
		if !strings.HasPrefix(strings.TrimSpace(rec[0]), "Record") {
			continue
		}
		s := &radiometerSection{header: rec, columns: make(map[string]int, len(rec))}
		for j, h := range rec {
			h = strings.TrimSpace(h)
			s.header[j] = h
			if _, dup := s.columns[h]; !dup {
				s.columns[h] = j
			}
		}
		sections[n] = s
		for k := 1; k <= radiometerSectionSpread; k++ {
			owner[n+k] = n
		}
	}
	for i, rec := range lines {
		if strings.HasPrefix(strings.TrimSpace(rec[0]), "Record") {
			continue
		}
		if n, ok := owner[types[i]]; ok {
			sections[n].rows = append(sections[n].rows, rec)
		}
	}
	return sections, nil
}

type radiometerRecord struct {
	Type  int
	Name  string
	Units string
}

// splitTitle separates "Temperature (K)" into its name and unit.
func splitTitle(title string) (string, string) {
	title = strings.TrimSpace(title)
	open := strings.Index(title, " (")
	if open < 0 {
		return title, ""
	}
	unit := title[open+2:]
	if end := strings.Index(unit, ")"); end >= 0 {
		unit = unit[:end]
	}
	return title[:open], unit
}

// ConvertRadiometer converts a microwave radiometer multi-record export into a
// (Time, Range) grid with one variable per level-2 record type. Range is the
// retrieval height in km.
func ConvertRadiometer(data []byte, opts RadiometerOptions) (*ProfileGrid, error) {
	asOf := resolveAsOf(opts.AsOf)
	processor := opts.Processor
	if processor == "" {
		processor = defaultRadiometerScan
	}

	sections, err := splitRadiometerSections(data)
	if err != nil {
		return nil, err
	}
	defs, ok := sections[recordTypeSection]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrMissingSection, recordTypeSection)
	}
	profiles, ok := sections[profileSection]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrMissingSection, profileSection)
	}

	typeCol, err := defs.column("Record Type")
	if err != nil {
		return nil, err
	}
	titleCol, err := defs.column("Title")
	if err != nil {
		return nil, err
	}
	var records []radiometerRecord
	for _, row := range defs.rows {
		if typeCol >= len(row) || titleCol >= len(row) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(row[typeCol]))
		if err != nil {
			return nil, fmt.Errorf("record type definition: invalid type %q", row[typeCol])
		}
		name, unit := splitTitle(row[titleCol])
		records = append(records, radiometerRecord{Type: n, Name: name, Units: unit})
	}

	timeCol, err := profiles.column("Date/Time")
	if err != nil {
		return nil, err
	}
	kindCol, err := profiles.column(strconv.Itoa(profileSection))
	if err != nil {
		return nil, err
	}
	procCol, err := profiles.column("LV2 Processor")
	if err != nil {
		return nil, err
	}
	qualityCol, err := profiles.column("DataQuality")
	if err != nil {
		return nil, err
	}

	var heightCols []int
	var heights []float64
	for j := procCol + 1; j < qualityCol; j++ {
		h, err := strconv.ParseFloat(profiles.header[j], 64)
		if err != nil {
			return nil, fmt.Errorf("profile section: height column %q: %w", profiles.header[j], err)
		}
		heightCols = append(heightCols, j)
		heights = append(heights, h)
	}
	if len(heights) == 0 {
		return nil, fmt.Errorf("profile section: %w", ErrNoObservations)
	}

	type profileRow struct {
		t       int64
		kind    int
		values  []float64
		quality bool
	}
	var rows []profileRow
	for n, row := range profiles.rows {
		if len(row) != len(profiles.header) {
			return nil, fmt.Errorf("profile section row %d: %d fields, header has %d", n+1, len(row), len(profiles.header))
		}
		if strings.TrimSpace(row[procCol]) != processor {
			continue
		}
		t, err := parseTimestamp(row[timeCol])
		if err != nil {
			return nil, fmt.Errorf("profile section row %d: %w", n+1, err)
		}
		kind, err := strconv.Atoi(strings.TrimSpace(row[kindCol]))
		if err != nil {
			return nil, fmt.Errorf("profile section row %d: invalid record type %q", n+1, row[kindCol])
		}
		q, err := parseFloatOrNaN(row[qualityCol], radiometerMissing)
		if err != nil {
			return nil, fmt.Errorf("profile section row %d: invalid data quality %q", n+1, row[qualityCol])
		}
		vals := make([]float64, len(heightCols))
		for k, j := range heightCols {
			v, err := parseFloatOrNaN(row[j], radiometerMissing)
			if err != nil {
				return nil, fmt.Errorf("profile section row %d: height %g: invalid number %q", n+1, heights[k], row[j])
			}
			vals[k] = v
		}
		rows = append(rows, profileRow{t: t.UnixNano(), kind: kind, values: vals, quality: !math.IsNaN(q) && q != 0})
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("processor %s: %w", processor, ErrNoObservations)
	}

	times := make([]int64, len(rows))
	for i, r := range rows {
		times[i] = r.t
	}
	slices.Sort(times)
	times = slices.Compact(times)
	timeIdx := make(map[int64]int, len(times))
	for i, t := range times {
		timeIdx[t] = i
	}
	nt, nr := len(times), len(heights)

	grid := NewProfileGrid(opts.Attrs)
	if err := grid.AddDim(DimTime, nt); err != nil {
		return nil, err
	}
	if err := grid.AddDim(DimRange, nr); err != nil {
		return nil, err
	}
	if err := grid.AddCoord(&Coord{Name: DimTime, Dim: DimTime, Times: nanosToTimes(times), Attrs: timeAttrs.Clone()}); err != nil {
		return nil, err
	}
	if err := grid.AddCoord(&Coord{Name: DimRange, Dim: DimRange, Floats: heights, Attrs: Attrs{"standard_name": "height", "units": "km"}}); err != nil {
		return nil, err
	}

	quality := make([]float64, nt)
	for i := range quality {
		quality[i] = 1
	}
	vars := make(map[int]*Variable, len(records))
	filled := make(map[int][]bool, len(records))
	for _, rec := range records {
		v := NewVariable(rec.Name, []string{DimTime, DimRange}, []int{nt, nr})
		if rec.Units != "" {
			v.Attrs["units"] = rec.Units
		}
		vars[rec.Type] = v
		filled[rec.Type] = make([]bool, nt)
	}

	unknown := 0
	for _, r := range rows {
		v, ok := vars[r.kind]
		if !ok {
			unknown++
			continue
		}
		ti := timeIdx[r.t]
		if filled[r.kind][ti] {
			return nil, &DuplicateCellError{Source: "radiometer " + v.Name, Time: time.Unix(0, r.t).UTC(), Range: heights[0]}
		}
		filled[r.kind][ti] = true
		copy(v.Data[ti*nr:(ti+1)*nr], r.values)
		if !r.quality {
			quality[ti] = 0
		}
	}
	if unknown > 0 {
		grid.warn("%d profiles have a record type not listed in section %d and were skipped", unknown, recordTypeSection)
	}

	if err := grid.AddCoord(&Coord{Name: "DataQuality", Dim: DimTime, Floats: quality, Attrs: Attrs{"long_name": "data quality", "dtype": "bool"}}); err != nil {
		return nil, err
	}
	for _, rec := range records {
		if err := grid.AddVar(vars[rec.Type]); err != nil {
			return nil, err
		}
	}
	grid.Attrs["lv2_processor"] = processor
	grid.Attrs["processed_at"] = asOf.Format(time.RFC3339Nano)
	return grid, nil
}
