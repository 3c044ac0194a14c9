// Package quicklook renders a (Time, Range) slab of a profile grid as a PNG
// heat map for a visual sanity check of a conversion.
package quicklook

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/couchcryptid/wxprofiler-etl/internal/domain"
)

// ErrNoData is returned when the selected slab has no finite values.
var ErrNoData = errors.New("quicklook: no finite values to plot")

const paletteSize = 64

// Render writes a heat map of the first (Time, Range) layer of variable to
// path. The image format follows the path extension.
func Render(grid *domain.ProfileGrid, variable, path string) error {
	return RenderLayer(grid, variable, 0, path)
}

// RenderLayer is Render for a chosen layer of a variable with leading
// dimensions, such as one wind component.
func RenderLayer(grid *domain.ProfileGrid, variable string, layer int, path string) error {
	p, err := newPlot(grid, variable, layer)
	if err != nil {
		return err
	}
	if err := p.Save(10*vg.Inch, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("quicklook: save %s: %w", path, err)
	}
	return nil
}

func newPlot(grid *domain.ProfileGrid, variable string, layer int) (*plot.Plot, error) {
	v := grid.Var(variable)
	if v == nil {
		return nil, fmt.Errorf("quicklook: no variable %q", variable)
	}
	n := len(v.Dims)
	if n < 2 || v.Dims[n-2] != domain.DimTime || v.Dims[n-1] != domain.DimRange {
		return nil, fmt.Errorf("quicklook: variable %q is not laid out over (Time, Range)", variable)
	}
	layers := len(v.Data) / (v.Shape[n-2] * v.Shape[n-1])
	if layer < 0 || layer >= layers {
		return nil, fmt.Errorf("quicklook: layer %d out of range for %q", layer, variable)
	}
	times, ranges := grid.Coord(domain.DimTime), grid.Coord(domain.DimRange)
	if times == nil || ranges == nil || ranges.Floats == nil {
		return nil, fmt.Errorf("quicklook: grid lacks Time or numeric Range coordinates")
	}
	if len(times.Times) < 2 || len(ranges.Floats) < 2 {
		return nil, fmt.Errorf("quicklook: need at least 2 times and 2 ranges, have %d and %d", len(times.Times), len(ranges.Floats))
	}

	g := &slab{m: v.Matrix(layer), ranges: ranges.Floats}
	g.times = make([]float64, len(times.Times))
	for i, t := range times.Times {
		g.times[i] = float64(t.UnixNano()) / 1e9
	}
	if g.min, g.max = g.bounds(); math.IsNaN(g.min) {
		return nil, ErrNoData
	}

	p := plot.New()
	p.Title.Text = title(variable, v.Attrs["units"], grid.Attrs)
	p.X.Label.Text = "Time (UTC)"
	p.X.Tick.Marker = plot.TimeTicks{Format: "15:04:05"}
	p.Y.Label.Text = "Range"
	if u := ranges.Attrs["units"]; u != "" {
		p.Y.Label.Text = fmt.Sprintf("Range (%s)", u)
	}

	hm := plotter.NewHeatMap(g, palette.Heat(paletteSize, 1))
	p.Add(hm)
	return p, nil
}

func title(variable, units string, attrs domain.Attrs) string {
	t := variable
	if units != "" {
		t = fmt.Sprintf("%s (%s)", variable, units)
	}
	if inst := attrs["instrument"]; inst != "" {
		t = inst + ": " + t
	}
	return t
}

// slab adapts one (Time, Range) matrix to plotter.GridXYZ with time on X.
type slab struct {
	m        *mat.Dense
	times    []float64
	ranges   []float64
	min, max float64
}

func (s *slab) Dims() (c, r int)   { return len(s.times), len(s.ranges) }
func (s *slab) Z(c, r int) float64 { return s.m.At(c, r) }
func (s *slab) X(c int) float64    { return s.times[c] }
func (s *slab) Y(r int) float64    { return s.ranges[r] }
func (s *slab) Min() float64       { return s.min }
func (s *slab) Max() float64       { return s.max }

// bounds returns the finite extrema of the slab, or NaN when there are none.
func (s *slab) bounds() (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	rows, cols := s.m.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := s.m.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			lo, hi = math.Min(lo, v), math.Max(hi, v)
		}
	}
	if math.IsInf(lo, 1) {
		return math.NaN(), math.NaN()
	}
	if lo == hi {
		hi = lo + 1
	}
	return lo, hi
}
