package domain

import (
	"bytes"
	"fmt"
	"time"
)

// LidarInput holds the whole contents of one lidar conversion's files. RWS is
// required; the others are optional and skipped when empty.
type LidarInput struct {
	RWS       []byte
	Scans     []byte
	Sequences []byte
	Wind      []byte
}

// LidarOptions configures one lidar conversion. The zero value converts the
// only scan in the export and stamps the grid with the package clock.
type LidarOptions struct {
	ScanID *int
	Attrs  Attrs
	AsOf   time.Time
}

// ConvertLidar runs the full lidar pipeline: scan metadata, schema
// normalization, optional scan filter, optional sequence resolution, grid
// assembly and the optional wind overlay.
func ConvertLidar(in LidarInput, opts LidarOptions) (*ProfileGrid, error) {
	asOf := resolveAsOf(opts.AsOf)
	attrs := opts.Attrs.Clone()

	if len(in.Scans) > 0 {
		scan, err := LoadScanDescriptor(bytes.NewReader(in.Scans), opts.ScanID)
		if err != nil {
			return nil, fmt.Errorf("load scan descriptor: %w", err)
		}
		attrs.Merge(scan.Attrs)
	}

	tbl, err := ParseObservations(in.RWS)
	if err != nil {
		return nil, fmt.Errorf("normalize observations: %w", err)
	}
	if opts.ScanID != nil {
		if tbl, err = tbl.FilterScan(*opts.ScanID); err != nil {
			return nil, fmt.Errorf("filter scan: %w", err)
		}
	}

	unmatched := 0
	if len(in.Sequences) > 0 {
		intervals, err := ParseSequences(in.Sequences)
		if err != nil {
			return nil, err
		}
		tbl, unmatched = applySequences(tbl, intervals)
	}

	grid, err := AssembleGrid(tbl, attrs)
	if err != nil {
		return nil, fmt.Errorf("assemble grid: %w", err)
	}
	if unmatched > 0 {
		grid.warn("%d of %d observations fall outside every sequence window; their sequence is null", unmatched, len(tbl.Records))
	}

	if len(in.Wind) > 0 {
		samples, err := ParseWindSamples(in.Wind)
		if err != nil {
			return nil, err
		}
		stats, err := OverlayWind(grid, samples)
		if err != nil {
			return nil, fmt.Errorf("overlay wind: %w", err)
		}
		if stats.Overwritten > 0 {
			grid.warn("%d wind samples mapped onto an already filled cell; the later sample was kept", stats.Overwritten)
		}
	}

	grid.Attrs["schema"] = tbl.Variant.String()
	grid.Attrs["processed_at"] = asOf.Format(time.RFC3339Nano)
	return grid, nil
}
