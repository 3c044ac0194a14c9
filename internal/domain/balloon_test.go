package domain

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertBalloon(t *testing.T) {
	grid, err := ConvertBalloon(readTestdata(t, "sounding.txt"), BalloonOptions{Attrs: Attrs{"campaign": "PECAN"}, AsOf: testAsOf})
	require.NoError(t, err)

	assert.Equal(t, []Dim{{DimProfile, 1}, {DimStation, 1}, {DimTime, 4}}, grid.Dims)
	assert.Equal(t, []time.Time{
		time.Date(2017, 1, 1, 23, 59, 58, 0, time.UTC),
		time.Date(2017, 1, 1, 23, 59, 59, 0, time.UTC),
		time.Date(2017, 1, 2, 0, 0, 1, 0, time.UTC),
		time.Date(2017, 1, 2, 0, 0, 2, 0, time.UTC),
	}, grid.Coord(DimTime).Times, "stamps after midnight roll onto the next day")

	assert.Equal(t, []time.Time{time.Date(2017, 1, 1, 23, 55, 0, 0, time.UTC)}, grid.Coord(DimProfile).Times)
	assert.Equal(t, []string{"Norman (72357)"}, grid.Coord(DimStation).Strings)
	assert.Equal(t, []string{"357 m"}, grid.Coord("Station Height").Strings)
	assert.Equal(t, []string{"AB"}, grid.Coord("Observer Initial").Strings)
	assert.Equal(t, DimProfile, grid.Coord("Version #").Dim)

	assertFloats(t, []float64{238, 239, 241, 242}, grid.Coord("Elapsed Time").Floats)
	assertFloats(t, []float64{400, 405, 415, 420}, grid.Coord("Geopotential Height").Floats)
	assert.Equal(t, DimTime, grid.Coord("Latitude").Dim)
	assert.Nil(t, grid.Coord("Corrected Elevation"))

	assert.Equal(t, []string{"Pressure", "Temperature", "Relative Humidity"}, grid.VarNames())
	rh := grid.Var("Relative Humidity")
	assert.Equal(t, []int{1, 1, 4}, rh.Shape)
	assertFloats(t, []float64{80, 81, nan, 82}, rh.Data)

	assert.Equal(t, "PECAN", grid.Attrs["campaign"])
	require.Len(t, grid.Warnings, 1, "the text Flag column is skipped")
}

func TestConvertBalloon_Errors(t *testing.T) {
	t.Run("missing header key", func(t *testing.T) {
		data := bytes.Replace(readTestdata(t, "sounding.txt"), []byte("Observer Initial : AB\r\n"), nil, 1)
		_, err := ConvertBalloon(data, BalloonOptions{})
		assert.ErrorIs(t, err, ErrMissingMetadata)
	})

	t.Run("no blank line", func(t *testing.T) {
		_, err := ConvertBalloon([]byte("Flight : X, 01/01/2017, 00:00:00\n"), BalloonOptions{})
		assert.ErrorIs(t, err, ErrEmptyInput)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := ConvertBalloon(nil, BalloonOptions{})
		assert.ErrorIs(t, err, ErrEmptyInput)
	})
}

func TestLaunchTime(t *testing.T) {
	got, err := launchTime("FLT_060117_1200, 2017-06-01, 12:00:30")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2017, 6, 1, 12, 0, 30, 0, time.UTC), got)

	_, err = launchTime("FLT_060117_1200")
	assert.Error(t, err)
}
