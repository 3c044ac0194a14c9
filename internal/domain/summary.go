package domain

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ChannelSummary describes the valid values of one grid variable.
type ChannelSummary struct {
	Name    string  `json:"name"`
	Valid   int     `json:"valid"`
	Missing int     `json:"missing"`
	Mean    float64 `json:"mean"`
	StdDev  float64 `json:"std_dev"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
}

// Summarize computes per-variable statistics over the non-NaN cells. Statistics
// of a variable with no valid cells are NaN.
func Summarize(grid *ProfileGrid) []ChannelSummary {
	out := make([]ChannelSummary, 0, len(grid.Vars))
	for _, v := range grid.Vars {
		valid := make([]float64, 0, len(v.Data))
		for _, x := range v.Data {
			if !math.IsNaN(x) {
				valid = append(valid, x)
			}
		}
		s := ChannelSummary{
			Name:    v.Name,
			Valid:   len(valid),
			Missing: len(v.Data) - len(valid),
			Mean:    math.NaN(),
			StdDev:  math.NaN(),
			Min:     math.NaN(),
			Max:     math.NaN(),
		}
		if len(valid) > 0 {
			s.Mean, s.StdDev = stat.MeanStdDev(valid, nil)
			s.Min = floats.Min(valid)
			s.Max = floats.Max(valid)
		}
		out = append(out, s)
	}
	return out
}
