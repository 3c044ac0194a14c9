package domain

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSequences(t *testing.T) {
	data := []byte("Sequence ID;First Acquisition;Last Acquisition\n" +
		"9;2017-01-01 00:10:00;2017-01-01 00:19:59\n" +
		"8;2017-01-01 00:00:00;2017-01-01 00:09:59\n")
	got, err := ParseSequences(data)
	require.NoError(t, err)

	assert.Equal(t, []SequenceInterval{
		{ID: 8, First: ts("2017-01-01 00:00:00"), Last: ts("2017-01-01 00:09:59")},
		{ID: 9, First: ts("2017-01-01 00:10:00"), Last: ts("2017-01-01 00:19:59")},
	}, got)

	_, err = ParseSequences([]byte("Sequence ID,First Acquisition\n1,2017-01-01 00:00:00\n"))
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestResolveSequences(t *testing.T) {
	base := ts("2017-01-01 00:00:00")
	intervals := []SequenceInterval{
		{ID: 1, First: base, Last: base.Add(9 * time.Second)},
		{ID: 2, First: base.Add(20 * time.Second), Last: base.Add(29 * time.Second)},
	}

	tests := []struct {
		name   string
		offset time.Duration
		want   float64
	}{
		{"on first acquisition", 0, 1},
		{"inside window", 5 * time.Second, 1},
		{"within the one second slack", 9*time.Second + 999*time.Millisecond, 1},
		{"at corrected upper bound", 10 * time.Second, nan},
		{"between windows", 15 * time.Second, nan},
		{"second window", 25 * time.Second, 2},
		{"before every window", -time.Second, nan},
		{"after every window", time.Minute, nan},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := []Observation{newObservation()}
			records[0].Time = base.Add(tt.offset)
			unmatched := ResolveSequences(records, intervals)

			got := records[0].Profile[FieldSequence]
			if math.IsNaN(tt.want) {
				assert.True(t, math.IsNaN(got), "want null sequence, got %v", got)
				assert.Equal(t, 1, unmatched)
				return
			}
			assert.Equal(t, tt.want, got)
			assert.Equal(t, 0, unmatched)
		})
	}
}

func TestApplySequences(t *testing.T) {
	tbl, err := ParseObservations(readTestdata(t, "rws_legacy.csv"))
	require.NoError(t, err)
	intervals, err := ParseSequences(readTestdata(t, "sequences.csv"))
	require.NoError(t, err)

	out, unmatched := applySequences(tbl, intervals)

	assert.Equal(t, 1, unmatched)
	assert.True(t, out.HasProfileField(FieldSequence))
	assert.False(t, tbl.HasProfileField(FieldSequence), "source table is left untouched")
	assert.True(t, math.IsNaN(tbl.Records[0].Profile[FieldSequence]))
	assert.Equal(t, 7.0, out.Records[0].Profile[FieldSequence])
	assert.Equal(t, 7.0, out.Records[3].Profile[FieldSequence])
	assert.True(t, math.IsNaN(out.Records[4].Profile[FieldSequence]))
}
