package domain

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var testAsOf = time.Date(2024, 4, 26, 12, 0, 0, 0, time.UTC)

func readTestdata(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return data
}

func ts(s string) time.Time {
	t, err := parseTimestamp(s)
	if err != nil {
		panic(err)
	}
	return t
}

func intPtr(n int) *int { return &n }

// equalNaN reports element-wise equality treating NaN as equal to NaN.
func equalNaN(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !sameValue(a[i], b[i]) {
			return false
		}
	}
	return true
}

func assertFloats(t *testing.T, want, got []float64) {
	t.Helper()
	if !equalNaN(want, got) {
		t.Fatalf("values differ\nwant: %v\n got: %v", want, got)
	}
}

var nan = math.NaN()
