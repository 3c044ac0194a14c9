package domain

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileGrid_MarshalJSON_NullsMissingCells(t *testing.T) {
	grid := NewProfileGrid(Attrs{"site": "SGP"})
	require.NoError(t, grid.AddDim(DimRange, 3))
	v := NewVariable("RWS", []string{DimRange}, []int{3})
	v.Set(1.5, 0)
	v.Set(-2, 2)
	require.NoError(t, grid.AddVar(v))

	data, err := json.Marshal(grid)
	require.NoError(t, err)

	var doc struct {
		Vars []struct {
			Data []*float64 `json:"data"`
		} `json:"vars"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	require.Len(t, doc.Vars, 1)
	require.Len(t, doc.Vars[0].Data, 3)
	assert.Equal(t, 1.5, *doc.Vars[0].Data[0])
	assert.Nil(t, doc.Vars[0].Data[1])
	assert.Equal(t, -2.0, *doc.Vars[0].Data[2])
}

func TestDecodeGrid(t *testing.T) {
	grid, err := ConvertLidar(fullLidarInput(t), LidarOptions{AsOf: testAsOf})
	require.NoError(t, err)

	data, err := json.Marshal(grid)
	require.NoError(t, err)
	decoded, err := DecodeGrid(data)
	require.NoError(t, err)

	if diff := cmp.Diff(grid, decoded, cmpopts.EquateNaNs(), cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("decoded grid differs (-want +got):\n%s", diff)
	}

	_, err = DecodeGrid([]byte(`{"dims":[{"name":"Time","size":2}],"vars":[{"name":"x","dims":["Time"],"shape":[2],"data":[1]}]}`))
	assert.Error(t, err)
}

func TestSerializeGrid(t *testing.T) {
	grid, err := ConvertLidar(fullLidarInput(t), LidarOptions{AsOf: testAsOf})
	require.NoError(t, err)
	job := ConversionJob{Instrument: InstrumentLidar, Input: "rws.csv"}

	out, err := SerializeGrid(grid, job, "abc123")
	require.NoError(t, err)

	assert.Equal(t, []byte("abc123"), out.Key)
	assert.Equal(t, map[string]string{
		"instrument":   "lidar",
		"processed_at": "2024-04-26T12:00:00Z",
		"job_id":       "abc123",
	}, out.Headers)
	require.NotNil(t, out.Result)
	assert.Equal(t, 3, out.Result.Times)
	assert.Equal(t, 2, out.Result.Ranges)
	assert.Equal(t, testAsOf, out.Result.ProcessedAt)
	assert.Len(t, out.Result.Warnings, 2)

	_, err = SerializeGrid(nil, job, "x")
	assert.Error(t, err)
}
