package pipeline_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/wxprofiler-etl/internal/domain"
	"github.com/couchcryptid/wxprofiler-etl/internal/observability"
	"github.com/couchcryptid/wxprofiler-etl/internal/pipeline"
)

const testdataRoot = "../domain/testdata"

var frozenNow = time.Date(2024, 4, 26, 12, 0, 0, 0, time.UTC)

type stubLedger struct {
	seen map[string]bool
	err  error
}

func (s *stubLedger) Seen(_ context.Context, digest string) (bool, error) {
	return s.seen[digest], s.err
}

func newTestTransformer(ledger pipeline.JobLedger) (*pipeline.ConversionTransformer, *observability.Metrics) {
	metrics := observability.NewMetricsForTesting()
	tr := pipeline.NewTransformer(testdataRoot, ledger, discardLogger(), metrics)
	tr.SetClock(clockwork.NewFakeClockAt(frozenNow))
	return tr, metrics
}

const lidarJob = `{
	"instrument": "lidar",
	"input": "rws_legacy.csv",
	"scans": "scans.xml",
	"sequences": "sequences.csv",
	"wind": "wind.csv",
	"attrs": {"site": "SGP"}
}`

func TestConversionTransformer_Lidar(t *testing.T) {
	tr, metrics := newTestTransformer(nil)

	out, err := tr.Transform(context.Background(), domain.RawEvent{Value: []byte(lidarJob)})
	require.NoError(t, err)

	require.NotNil(t, out.Result)
	assert.Equal(t, string(out.Key), out.Result.Digest)
	assert.Len(t, out.Result.Digest, 64)
	assert.Equal(t, domain.InstrumentLidar, out.Result.Instrument)
	assert.Equal(t, 3, out.Result.Times)
	assert.Equal(t, 2, out.Result.Ranges)
	assert.Contains(t, out.Result.Variables, "Windspeed")
	assert.Len(t, out.Result.Warnings, 2)
	assert.Equal(t, frozenNow, out.Result.ProcessedAt)

	assert.Equal(t, "lidar", out.Headers["instrument"])
	assert.Equal(t, out.Result.Digest, out.Headers["job_id"])
	assert.Equal(t, "2024-04-26T12:00:00Z", out.Headers["processed_at"])

	grid, err := domain.DecodeGrid(out.Value)
	require.NoError(t, err)
	assert.Equal(t, "SGP", grid.Attrs["site"])
	assert.Equal(t, "lidar", grid.Attrs["instrument"])

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.ConversionWarnings.WithLabelValues("lidar")))
}

func TestConversionTransformer_DigestIgnoresInputRoot(t *testing.T) {
	tr, _ := newTestTransformer(nil)
	relative, err := tr.Transform(context.Background(), domain.RawEvent{Value: []byte(`{"instrument":"radiometer","input":"mwr.csv"}`)})
	require.NoError(t, err)

	other := pipeline.NewTransformer("", nil, discardLogger(), observability.NewMetricsForTesting())
	other.SetClock(clockwork.NewFakeClockAt(frozenNow))
	joined, err := other.Transform(context.Background(), domain.RawEvent{Value: []byte(`{"instrument":"radiometer","input":"../domain/testdata/mwr.csv"}`)})
	require.NoError(t, err)

	assert.Equal(t, relative.Key, joined.Key)
	assert.Equal(t, relative.Value, joined.Value)
}

func TestConversionTransformer_DuplicateJob(t *testing.T) {
	tr, _ := newTestTransformer(nil)
	first, err := tr.Transform(context.Background(), domain.RawEvent{Value: []byte(lidarJob)})
	require.NoError(t, err)

	ledger := &stubLedger{seen: map[string]bool{first.Result.Digest: true}}
	dedup, metrics := newTestTransformer(ledger)

	_, err = dedup.Transform(context.Background(), domain.RawEvent{Value: []byte(lidarJob)})
	require.ErrorIs(t, err, domain.ErrDuplicateJob)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.DuplicateJobs))
}

func TestConversionTransformer_LedgerError(t *testing.T) {
	tr, _ := newTestTransformer(&stubLedger{err: errors.New("database is locked")})

	_, err := tr.Transform(context.Background(), domain.RawEvent{Value: []byte(lidarJob)})
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrDuplicateJob)
}

func TestConversionTransformer_Errors(t *testing.T) {
	cases := []struct {
		name  string
		value string
		is    error
	}{
		{name: "malformed json", value: `{"instrument":`},
		{name: "unknown instrument", value: `{"instrument":"sodar","input":"x.csv"}`, is: domain.ErrUnknownInstrument},
		{name: "missing file", value: `{"instrument":"balloon","input":"nope.txt"}`},
		{name: "wrong content", value: `{"instrument":"balloon","input":"mwr.csv"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tr, _ := newTestTransformer(nil)
			_, err := tr.Transform(context.Background(), domain.RawEvent{Value: []byte(tc.value)})
			require.Error(t, err)
			if tc.is != nil {
				assert.ErrorIs(t, err, tc.is)
			}
		})
	}
}
