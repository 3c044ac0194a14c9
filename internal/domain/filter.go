package domain

import (
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/mat"
)

// Default half-widths of the median window along Time and Range.
const (
	DefaultMedianTimeHalf  = 3
	DefaultMedianRangeHalf = 29
)

// MedianFilter returns the sliding median of m over a window of
// (2*timeHalf+1) rows by (2*rangeHalf+1) columns, clipped at the edges. NaN
// cells are ignored; an even number of valid cells averages the middle two and
// a window with no valid cells yields NaN.
func MedianFilter(m mat.Matrix, timeHalf, rangeHalf int) *mat.Dense {
	rows, cols := m.Dims()
	out := mat.NewDense(rows, cols, nil)
	window := make([]float64, 0, (2*timeHalf+1)*(2*rangeHalf+1))
	for i := 0; i < rows; i++ {
		r0, r1 := max(0, i-timeHalf), min(rows, i+timeHalf+1)
		for j := 0; j < cols; j++ {
			c0, c1 := max(0, j-rangeHalf), min(cols, j+rangeHalf+1)
			window = window[:0]
			for r := r0; r < r1; r++ {
				for c := c0; c < c1; c++ {
					if v := m.At(r, c); !math.IsNaN(v) {
						window = append(window, v)
					}
				}
			}
			out.Set(i, j, median(window))
		}
	}
	return out
}

// median sorts vals in place.
func median(vals []float64) float64 {
	n := len(vals)
	if n == 0 {
		return math.NaN()
	}
	slices.Sort(vals)
	if n%2 == 1 {
		return vals[n/2]
	}
	return (vals[n/2-1] + vals[n/2]) / 2
}

// ApplyMedianFilter adds "<name>_filtered", the median-filtered copy of every
// (Time, Range) layer of the named variable.
func ApplyMedianFilter(grid *ProfileGrid, name string, timeHalf, rangeHalf int) error {
	src := grid.Var(name)
	if src == nil {
		return fmt.Errorf("median filter: no variable %q", name)
	}
	n := len(src.Dims)
	if n < 2 || src.Dims[n-2] != DimTime || src.Dims[n-1] != DimRange {
		return fmt.Errorf("median filter: variable %q is not laid out over (Time, Range)", name)
	}
	if timeHalf < 0 || rangeHalf < 0 {
		return fmt.Errorf("median filter: negative window half-width")
	}

	dst := NewVariable(name+"_filtered", src.Dims, src.Shape)
	dst.Attrs = src.Attrs.Clone()
	dst.Attrs["filter"] = fmt.Sprintf("median time_half=%d range_half=%d", timeHalf, rangeHalf)
	layers := len(src.Data) / (src.Shape[n-2] * src.Shape[n-1])
	for l := 0; l < layers; l++ {
		dst.Matrix(l).Copy(MedianFilter(src.Matrix(l), timeHalf, rangeHalf))
	}
	return grid.AddVar(dst)
}
