package domain

import (
	"fmt"
	"maps"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"
)

// Canonical dimension names.
const (
	DimTime      = "Time"
	DimRange     = "Range"
	DimComponent = "Component"
	DimProfile   = "Profile"
	DimStation   = "Station"
)

// Attrs is a free-form attribute mapping attached to a grid, variable or coordinate.
type Attrs map[string]string

// Clone returns an independent copy. Cloning nil yields an empty mapping.
func (a Attrs) Clone() Attrs {
	out := make(Attrs, len(a))
	maps.Copy(out, a)
	return out
}

// Merge copies src into a, overwriting existing keys.
func (a Attrs) Merge(src Attrs) {
	maps.Copy(a, src)
}

// Dim is a named axis of a grid.
type Dim struct {
	Name string
	Size int
}

// Coord labels the positions of one dimension. Exactly one of Times, Floats
// or Strings holds the values.
type Coord struct {
	Name    string
	Dim     string
	Times   []time.Time
	Floats  []float64
	Strings []string
	Attrs   Attrs
}

// Len returns the number of labels in the coordinate.
func (c *Coord) Len() int {
	switch {
	case c.Times != nil:
		return len(c.Times)
	case c.Floats != nil:
		return len(c.Floats)
	default:
		return len(c.Strings)
	}
}

// Variable is a named n-dimensional array of float64 stored row-major.
type Variable struct {
	Name  string
	Dims  []string
	Shape []int
	Data  []float64
	Attrs Attrs
}

// NewVariable allocates a variable filled with NaN.
func NewVariable(name string, dims []string, shape []int) *Variable {
	n := 1
	for _, s := range shape {
		n *= s
	}
	data := make([]float64, n)
	for i := range data {
		data[i] = math.NaN()
	}
	return &Variable{
		Name:  name,
		Dims:  append([]string(nil), dims...),
		Shape: append([]int(nil), shape...),
		Data:  data,
		Attrs: Attrs{},
	}
}

func (v *Variable) offset(idx []int) int {
	if len(idx) != len(v.Shape) {
		panic(fmt.Sprintf("variable %s: %d indices for %d dims", v.Name, len(idx), len(v.Shape)))
	}
	off := 0
	for i, n := range idx {
		if n < 0 || n >= v.Shape[i] {
			panic(fmt.Sprintf("variable %s: index %d out of range on %s", v.Name, n, v.Dims[i]))
		}
		off = off*v.Shape[i] + n
	}
	return off
}

// At returns the value at idx.
func (v *Variable) At(idx ...int) float64 { return v.Data[v.offset(idx)] }

// Set stores x at idx.
func (v *Variable) Set(x float64, idx ...int) { v.Data[v.offset(idx)] = x }

// Matrix returns a view of the layer-th 2D slab spanned by the last two
// dimensions. Writes through the view modify the variable.
func (v *Variable) Matrix(layer int) *mat.Dense {
	if len(v.Shape) < 2 {
		return mat.NewDense(1, len(v.Data), v.Data)
	}
	rows, cols := v.Shape[len(v.Shape)-2], v.Shape[len(v.Shape)-1]
	size := rows * cols
	if layer < 0 || (layer+1)*size > len(v.Data) {
		panic(fmt.Sprintf("variable %s: layer %d out of range", v.Name, layer))
	}
	return mat.NewDense(rows, cols, v.Data[layer*size:(layer+1)*size])
}

// ProfileGrid is the labeled multi-dimensional array every converter returns.
type ProfileGrid struct {
	Dims   []Dim
	Coords []*Coord
	Vars   []*Variable
	Attrs  Attrs

	// Warnings lists degraded conditions that did not stop the conversion.
	Warnings []string
}

// NewProfileGrid creates an empty grid carrying attrs.
func NewProfileGrid(attrs Attrs) *ProfileGrid {
	return &ProfileGrid{Attrs: attrs.Clone()}
}

// DimSize returns the size of the named dimension, or -1 if it does not exist.
func (g *ProfileGrid) DimSize(name string) int {
	for _, d := range g.Dims {
		if d.Name == name {
			return d.Size
		}
	}
	return -1
}

// AddDim declares a dimension. Redeclaring with a different size is an error.
func (g *ProfileGrid) AddDim(name string, size int) error {
	if cur := g.DimSize(name); cur >= 0 {
		if cur != size {
			return fmt.Errorf("dimension %s already has size %d, not %d", name, cur, size)
		}
		return nil
	}
	g.Dims = append(g.Dims, Dim{Name: name, Size: size})
	return nil
}

// AddCoord attaches a coordinate along an existing dimension.
func (g *ProfileGrid) AddCoord(c *Coord) error {
	size := g.DimSize(c.Dim)
	if size < 0 {
		return fmt.Errorf("coordinate %s: unknown dimension %s", c.Name, c.Dim)
	}
	if c.Len() != size {
		return fmt.Errorf("coordinate %s: %d labels for dimension %s of size %d", c.Name, c.Len(), c.Dim, size)
	}
	if c.Attrs == nil {
		c.Attrs = Attrs{}
	}
	g.Coords = append(g.Coords, c)
	return nil
}

// AddVar attaches a variable whose dimensions must already exist.
func (g *ProfileGrid) AddVar(v *Variable) error {
	if len(v.Dims) != len(v.Shape) {
		return fmt.Errorf("variable %s: %d dims but shape of rank %d", v.Name, len(v.Dims), len(v.Shape))
	}
	for i, d := range v.Dims {
		if size := g.DimSize(d); size != v.Shape[i] {
			return fmt.Errorf("variable %s: dimension %s has size %d, variable expects %d", v.Name, d, size, v.Shape[i])
		}
	}
	if g.Var(v.Name) != nil {
		return fmt.Errorf("variable %s already exists", v.Name)
	}
	g.Vars = append(g.Vars, v)
	return nil
}

// Var returns the named variable or nil.
func (g *ProfileGrid) Var(name string) *Variable {
	for _, v := range g.Vars {
		if v.Name == name {
			return v
		}
	}
	return nil
}

// Coord returns the named coordinate or nil.
func (g *ProfileGrid) Coord(name string) *Coord {
	for _, c := range g.Coords {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// VarNames lists variable names in insertion order.
func (g *ProfileGrid) VarNames() []string {
	names := make([]string, len(g.Vars))
	for i, v := range g.Vars {
		names[i] = v.Name
	}
	return names
}

func (g *ProfileGrid) warn(format string, args ...any) {
	g.Warnings = append(g.Warnings, fmt.Sprintf(format, args...))
}
