package domain

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lidarTestGrid(t *testing.T) *ProfileGrid {
	t.Helper()
	tbl, err := ParseObservations(readTestdata(t, "rws_legacy.csv"))
	require.NoError(t, err)
	grid, err := AssembleGrid(tbl, nil)
	require.NoError(t, err)
	return grid
}

func TestParseWindSamples(t *testing.T) {
	samples, err := ParseWindSamples(readTestdata(t, "wind.csv"))
	require.NoError(t, err)
	require.Len(t, samples, 6)
	assert.Equal(t, WindSample{Time: ts("2017-01-01 00:00:00.5"), Range: 150, X: 1, Y: 2, Z: 3}, samples[1])

	_, err = ParseWindSamples([]byte("TimeStamp,Range [m],X-Wind Speed [m/s]\n2017-01-01 00:00:00,100,1\n"))
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestOverlayWind(t *testing.T) {
	grid := lidarTestGrid(t)
	samples, err := ParseWindSamples(readTestdata(t, "wind.csv"))
	require.NoError(t, err)

	stats, err := OverlayWind(grid, samples)
	require.NoError(t, err)

	assert.Equal(t, WindOverlayStats{Mapped: 3, AfterGrid: 1, BelowGrid: 2, Overwritten: 1}, stats)
	assert.Equal(t, 3, grid.DimSize(DimComponent))
	assert.Equal(t, []string{"x", "y", "z"}, grid.Coord(DimComponent).Strings)

	ws := grid.Var("Windspeed")
	require.NotNil(t, ws)
	assert.Equal(t, []string{DimComponent, DimTime, DimRange}, ws.Dims)
	assert.Equal(t, []int{3, 3, 2}, ws.Shape)
	assert.Equal(t, "wind speed", ws.Attrs["long_name"])

	// The 00:00:00.5 sample at 150 m floors to (0, 0); components swap and negate.
	assert.Equal(t, -2.0, ws.At(0, 0, 0))
	assert.Equal(t, -1.0, ws.At(1, 0, 0))
	assert.Equal(t, -3.0, ws.At(2, 0, 0))

	// Two samples floor to (1, 1); the later one wins.
	assert.Equal(t, -8.0, ws.At(0, 1, 1))
	assert.Equal(t, -7.0, ws.At(1, 1, 1))
	assert.Equal(t, -9.0, ws.At(2, 1, 1))

	for _, idx := range [][2]int{{0, 1}, {1, 0}, {2, 0}, {2, 1}} {
		for c := 0; c < 3; c++ {
			assertFloats(t, []float64{nan}, []float64{ws.At(c, idx[0], idx[1])})
		}
	}
}

func TestOverlayWind_AllSamplesLate(t *testing.T) {
	grid := lidarTestGrid(t)
	stats, err := OverlayWind(grid, []WindSample{{Time: ts("2018-01-01 00:00:00"), Range: 100, X: 1, Y: 1, Z: 1}})
	require.NoError(t, err)

	assert.Equal(t, 1, stats.AfterGrid)
	assert.Equal(t, 0, stats.Mapped)
	for _, v := range grid.Var("Windspeed").Data {
		assertFloats(t, []float64{nan}, []float64{v})
	}
}

func TestOverlayWind_DuplicateSample(t *testing.T) {
	grid := lidarTestGrid(t)
	dup := WindSample{Time: ts("2017-01-01 00:00:01"), Range: 100, X: 1, Y: 1, Z: 1}

	_, err := OverlayWind(grid, []WindSample{dup, dup})
	var cellErr *DuplicateCellError
	require.True(t, errors.As(err, &cellErr))
	assert.Equal(t, "wind", cellErr.Source)
	assert.Nil(t, grid.Var("Windspeed"))
}

func TestParseWindSamples_RejectsNonFinite(t *testing.T) {
	const header = "TimeStamp,Range [m],X-Wind Speed [m/s],Y-Wind Speed [m/s],Z-Wind Speed [m/s]\n"
	cases := map[string]string{
		"empty range":      "2017-01-01 00:00:00.500,,1,2,3\n",
		"infinite range":   "2017-01-01 00:00:00.500,+Inf,1,2,3\n",
		"NaN range":        "2017-01-01 00:00:00.500,NaN,1,2,3\n",
		"infinite X speed": "2017-01-01 00:00:00.500,150,-Inf,2,3\n",
	}
	for name, row := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseWindSamples([]byte(header + row))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "line 2")
		})
	}

	samples, err := ParseWindSamples([]byte(header + "2017-01-01 00:00:00.500,150,,2,3\n"))
	require.NoError(t, err, "a missing component is kept as NaN")
	assertFloats(t, []float64{nan}, []float64{samples[0].X})
}

func TestOverlayWind_NonFiniteRangeIsDropped(t *testing.T) {
	grid := lidarTestGrid(t)
	stats, err := OverlayWind(grid, []WindSample{
		{Time: ts("2017-01-01 00:00:00.5"), Range: nan, X: 1, Y: 2, Z: 3},
		{Time: ts("2017-01-01 00:00:00.5"), Range: math.Inf(1), X: 1, Y: 2, Z: 3},
	})
	require.NoError(t, err)

	assert.Equal(t, WindOverlayStats{BelowGrid: 2}, stats)
	for _, v := range grid.Var("Windspeed").Data {
		assertFloats(t, []float64{nan}, []float64{v})
	}
}
