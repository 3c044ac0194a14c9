package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fullLidarInput(t *testing.T) LidarInput {
	t.Helper()
	return LidarInput{
		RWS:       readTestdata(t, "rws_legacy.csv"),
		Scans:     readTestdata(t, "scans.xml"),
		Sequences: readTestdata(t, "sequences.csv"),
		Wind:      readTestdata(t, "wind.csv"),
	}
}

func TestConvertLidar(t *testing.T) {
	grid, err := ConvertLidar(fullLidarInput(t), LidarOptions{
		Attrs: Attrs{"site": "SGP", "scan_mode": "caller"},
		AsOf:  testAsOf,
	})
	require.NoError(t, err)

	assert.Equal(t, "dbs", grid.Attrs["scan_mode"], "scan attributes win over caller attributes")
	assert.Equal(t, "SGP", grid.Attrs["site"])
	assert.Equal(t, "legacy", grid.Attrs["schema"])
	assert.Equal(t, "2024-04-26T12:00:00Z", grid.Attrs["processed_at"])

	assertFloats(t, []float64{7, 7, nan}, grid.Coord("Sequence").Floats)
	require.NotNil(t, grid.Var("Windspeed"))
	assert.Equal(t, 3, grid.DimSize(DimComponent))

	require.Len(t, grid.Warnings, 2)
	assert.Contains(t, grid.Warnings[0], "1 of 5 observations")
	assert.Contains(t, grid.Warnings[1], "1 wind samples")
}

func TestConvertLidar_OneWarningForManyUnmatchedSequences(t *testing.T) {
	// The window [00:00:01.5, 00:00:02.5) covers only the two 1.5 s rows.
	sequences := []byte("Sequence ID,First Acquisition,Last Acquisition\n" +
		"3,2017-01-01 00:00:01.500,2017-01-01 00:00:01.500\n")

	grid, err := ConvertLidar(LidarInput{RWS: readTestdata(t, "rws_legacy.csv"), Sequences: sequences}, LidarOptions{AsOf: testAsOf})
	require.NoError(t, err)

	assertFloats(t, []float64{nan, 3, nan}, grid.Coord("Sequence").Floats)
	require.Len(t, grid.Warnings, 1)
	assert.Contains(t, grid.Warnings[0], "3 of 5 observations")
}

func TestConvertLidar_RWSOnly(t *testing.T) {
	grid, err := ConvertLidar(LidarInput{RWS: readTestdata(t, "rws_legacy.csv")}, LidarOptions{AsOf: testAsOf})
	require.NoError(t, err)

	assert.Nil(t, grid.Var("Windspeed"))
	assert.Nil(t, grid.Coord("Sequence"))
	assert.Empty(t, grid.Warnings)
	assert.Equal(t, -1, grid.DimSize(DimComponent))
}

func TestConvertLidar_Idempotent(t *testing.T) {
	in := fullLidarInput(t)
	opts := LidarOptions{Attrs: Attrs{"site": "SGP"}, AsOf: testAsOf}

	first, err := ConvertLidar(in, opts)
	require.NoError(t, err)
	second, err := ConvertLidar(in, opts)
	require.NoError(t, err)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestConvertLidar_DoesNotMutateCallerAttrs(t *testing.T) {
	attrs := Attrs{"site": "SGP"}
	_, err := ConvertLidar(fullLidarInput(t), LidarOptions{Attrs: attrs, AsOf: testAsOf})
	require.NoError(t, err)
	assert.Equal(t, Attrs{"site": "SGP"}, attrs)
}

func TestConvertLidar_UsesClockWhenAsOfIsZero(t *testing.T) {
	fake := clockwork.NewFakeClockAt(time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC))
	SetClock(fake)
	t.Cleanup(func() { SetClock(nil) })

	grid, err := ConvertLidar(LidarInput{RWS: readTestdata(t, "rws_legacy.csv")}, LidarOptions{})
	require.NoError(t, err)
	assert.Equal(t, "2025-01-02T03:04:05Z", grid.Attrs["processed_at"])
}

func TestConvertLidar_ScanSelection(t *testing.T) {
	in := fullLidarInput(t)
	in.Scans = readTestdata(t, "scans_multi.xml")

	_, err := ConvertLidar(in, LidarOptions{AsOf: testAsOf})
	assert.ErrorIs(t, err, ErrMultipleScans)

	grid, err := ConvertLidar(in, LidarOptions{ScanID: intPtr(1), AsOf: testAsOf})
	require.NoError(t, err)
	assert.Equal(t, 3, grid.DimSize(DimTime))

	_, err = ConvertLidar(in, LidarOptions{ScanID: intPtr(4), AsOf: testAsOf})
	assert.ErrorIs(t, err, ErrNoObservations, "no rows carry scan 4")
}
