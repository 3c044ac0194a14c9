package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"
)

// nullableFloats encodes NaN and infinities as JSON null.
type nullableFloats []float64

func (f nullableFloats) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(len(f) * 8)
	buf.WriteByte('[')
	for i, v := range f {
		if i > 0 {
			buf.WriteByte(',')
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			buf.WriteString("null")
			continue
		}
		buf.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

func (f *nullableFloats) UnmarshalJSON(data []byte) error {
	var raw []*float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(nullableFloats, len(raw))
	for i, p := range raw {
		if p == nil {
			out[i] = math.NaN()
			continue
		}
		out[i] = *p
	}
	*f = out
	return nil
}

type gridDocument struct {
	Dims     []dimDocument   `json:"dims"`
	Coords   []coordDocument `json:"coords"`
	Vars     []varDocument   `json:"vars"`
	Attrs    Attrs           `json:"attrs"`
	Warnings []string        `json:"warnings,omitempty"`
}

type dimDocument struct {
	Name string `json:"name"`
	Size int    `json:"size"`
}

type coordDocument struct {
	Name    string         `json:"name"`
	Dim     string         `json:"dim"`
	Times   []time.Time    `json:"times,omitempty"`
	Floats  nullableFloats `json:"floats,omitempty"`
	Strings []string       `json:"strings,omitempty"`
	Attrs   Attrs          `json:"attrs,omitempty"`
}

type varDocument struct {
	Name  string         `json:"name"`
	Dims  []string       `json:"dims"`
	Shape []int          `json:"shape"`
	Data  nullableFloats `json:"data"`
	Attrs Attrs          `json:"attrs,omitempty"`
}

// MarshalJSON encodes the grid with missing cells as null.
func (g *ProfileGrid) MarshalJSON() ([]byte, error) {
	doc := gridDocument{Attrs: g.Attrs, Warnings: g.Warnings}
	for _, d := range g.Dims {
		doc.Dims = append(doc.Dims, dimDocument(d))
	}
	for _, c := range g.Coords {
		doc.Coords = append(doc.Coords, coordDocument{
			Name: c.Name, Dim: c.Dim, Times: c.Times, Floats: c.Floats, Strings: c.Strings, Attrs: c.Attrs,
		})
	}
	for _, v := range g.Vars {
		doc.Vars = append(doc.Vars, varDocument{
			Name: v.Name, Dims: v.Dims, Shape: v.Shape, Data: v.Data, Attrs: v.Attrs,
		})
	}
	return json.Marshal(doc)
}

// DecodeGrid parses a grid produced by MarshalJSON and checks its shapes.
func DecodeGrid(data []byte) (*ProfileGrid, error) {
	var doc gridDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode grid: %w", err)
	}
	g := NewProfileGrid(doc.Attrs)
	g.Warnings = doc.Warnings
	for _, d := range doc.Dims {
		if err := g.AddDim(d.Name, d.Size); err != nil {
			return nil, fmt.Errorf("decode grid: %w", err)
		}
	}
	for _, c := range doc.Coords {
		coord := &Coord{Name: c.Name, Dim: c.Dim, Times: c.Times, Floats: c.Floats, Strings: c.Strings, Attrs: c.Attrs}
		if err := g.AddCoord(coord); err != nil {
			return nil, fmt.Errorf("decode grid: %w", err)
		}
	}
	for _, v := range doc.Vars {
		n := 1
		for _, s := range v.Shape {
			n *= s
		}
		if len(v.Data) != n {
			return nil, fmt.Errorf("decode grid: variable %s has %d values for shape %v", v.Name, len(v.Data), v.Shape)
		}
		attrs := v.Attrs
		if attrs == nil {
			attrs = Attrs{}
		}
		if err := g.AddVar(&Variable{Name: v.Name, Dims: v.Dims, Shape: v.Shape, Data: v.Data, Attrs: attrs}); err != nil {
			return nil, fmt.Errorf("decode grid: %w", err)
		}
	}
	return g, nil
}

// SerializeGrid wraps a converted grid as a sink message keyed by the job
// digest.
func SerializeGrid(grid *ProfileGrid, job ConversionJob, digest string) (OutputEvent, error) {
	if grid == nil {
		return OutputEvent{}, errors.New("serialize grid: nil grid")
	}
	data, err := json.Marshal(grid)
	if err != nil {
		return OutputEvent{}, fmt.Errorf("serialize grid: %w", err)
	}
	processed, _ := time.Parse(time.RFC3339Nano, grid.Attrs["processed_at"])
	return OutputEvent{
		Key:   []byte(digest),
		Value: data,
		Headers: map[string]string{
			"instrument":   string(job.Instrument),
			"processed_at": grid.Attrs["processed_at"],
			"job_id":       digest,
		},
		Result: &ConversionResult{
			Digest:      digest,
			Instrument:  job.Instrument,
			Times:       max(grid.DimSize(DimTime), 0),
			Ranges:      max(grid.DimSize(DimRange), 0),
			Variables:   grid.VarNames(),
			Warnings:    grid.Warnings,
			ProcessedAt: processed,
		},
	}, nil
}
