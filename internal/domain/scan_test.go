package domain

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScanDescriptor(t *testing.T) {
	t.Run("single scan without id", func(t *testing.T) {
		d, err := LoadScanDescriptor(bytes.NewReader(readTestdata(t, "scans.xml")), nil)
		require.NoError(t, err)

		assert.Equal(t, 1, d.ID)
		want := Attrs{"scan_mode": "dbs", "scan_elevation": "75", "scan_los_count": "3"}
		if diff := cmp.Diff(want, d.Attrs); diff != "" {
			t.Errorf("attrs mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("selects by id", func(t *testing.T) {
		d, err := LoadScanDescriptor(bytes.NewReader(readTestdata(t, "scans_multi.xml")), intPtr(4))
		require.NoError(t, err)
		assert.Equal(t, 4, d.ID)
		assert.Equal(t, "rhi", d.Attrs["scan_mode"])
	})

	t.Run("multiple scans require an id", func(t *testing.T) {
		_, err := LoadScanDescriptor(bytes.NewReader(readTestdata(t, "scans_multi.xml")), nil)
		assert.ErrorIs(t, err, ErrMultipleScans)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := LoadScanDescriptor(bytes.NewReader(readTestdata(t, "scans_multi.xml")), intPtr(2))
		assert.ErrorIs(t, err, ErrScanNotFound)
	})

	t.Run("entry without attribute block", func(t *testing.T) {
		_, err := LoadScanDescriptor(bytes.NewReader(readTestdata(t, "scans_multi.xml")), intPtr(9))
		assert.ErrorIs(t, err, ErrMalformedScan)
	})

	t.Run("no scans", func(t *testing.T) {
		_, err := LoadScanDescriptor(strings.NewReader(`<lidar_scans><other/></lidar_scans>`), nil)
		assert.ErrorIs(t, err, ErrNoScans)
	})

	t.Run("empty document", func(t *testing.T) {
		_, err := LoadScanDescriptor(strings.NewReader(""), nil)
		assert.ErrorIs(t, err, ErrNoScans)
	})
}
