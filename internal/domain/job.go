package domain

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"hash"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"time"
)

// Instrument names a supported vendor export family.
type Instrument string

const (
	InstrumentLidar      Instrument = "lidar"
	InstrumentRadiometer Instrument = "radiometer"
	InstrumentBalloon    Instrument = "balloon"
)

// Valid reports whether i is a supported instrument.
func (i Instrument) Valid() bool {
	switch i {
	case InstrumentLidar, InstrumentRadiometer, InstrumentBalloon:
		return true
	}
	return false
}

// ConversionJob is a request to convert one set of instrument files, as
// published on the source topic.
type ConversionJob struct {
	Instrument   Instrument `json:"instrument"`
	Input        string     `json:"input"`
	Scans        string     `json:"scans,omitempty"`
	ScanID       *int       `json:"scan_id,omitempty"`
	Sequences    string     `json:"sequences,omitempty"`
	Wind         string     `json:"wind,omitempty"`
	Processor    string     `json:"processor,omitempty"`
	MedianFilter []string   `json:"median_filter,omitempty"`
	Attrs        Attrs      `json:"attrs,omitempty"`
}

// ParseJob deserializes a RawEvent's value into a validated ConversionJob.
func ParseJob(raw RawEvent) (ConversionJob, error) {
	var job ConversionJob
	if err := json.Unmarshal(raw.Value, &job); err != nil {
		return ConversionJob{}, fmt.Errorf("parse conversion job: %w", err)
	}
	if err := job.Validate(); err != nil {
		return ConversionJob{}, err
	}
	return job, nil
}

// Validate checks that the job names a known instrument, an input file and
// only the options that instrument accepts.
func (j ConversionJob) Validate() error {
	if !j.Instrument.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownInstrument, j.Instrument)
	}
	if j.Input == "" {
		return errors.New("conversion job: input is required")
	}
	if j.Instrument != InstrumentLidar && (j.Scans != "" || j.ScanID != nil || j.Sequences != "" || j.Wind != "") {
		return fmt.Errorf("conversion job: scans, scan_id, sequences and wind apply to lidar jobs only, not %s", j.Instrument)
	}
	if j.Instrument != InstrumentRadiometer && j.Processor != "" {
		return fmt.Errorf("conversion job: processor applies to radiometer jobs only, not %s", j.Instrument)
	}
	return nil
}

// Resolve returns a copy of the job with relative file paths joined to root.
func (j ConversionJob) Resolve(root string) ConversionJob {
	out := j
	out.MedianFilter = slices.Clone(j.MedianFilter)
	out.Attrs = j.Attrs.Clone()
	if root == "" {
		return out
	}
	for _, p := range []*string{&out.Input, &out.Scans, &out.Sequences, &out.Wind} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(root, *p)
		}
	}
	return out
}

// JobInputs holds the contents of every file a job references.
type JobInputs struct {
	Input     []byte
	Scans     []byte
	Sequences []byte
	Wind      []byte
}

// LoadJobInputs reads every file the job references.
func LoadJobInputs(job ConversionJob) (JobInputs, error) {
	var in JobInputs
	for _, it := range []struct {
		path string
		dst  *[]byte
	}{
		{job.Input, &in.Input},
		{job.Scans, &in.Scans},
		{job.Sequences, &in.Sequences},
		{job.Wind, &in.Wind},
	} {
		if it.path == "" {
			continue
		}
		b, err := os.ReadFile(it.path)
		if err != nil {
			return JobInputs{}, fmt.Errorf("load job inputs: %w", err)
		}
		*it.dst = b
	}
	return in, nil
}

// Digest returns a deterministic SHA-256 over the job's conversion options
// and file contents. File paths are not part of it, so the same files
// submitted from two locations produce the same digest.
func (in JobInputs) Digest(job ConversionJob) string {
	h := sha256.New()
	writeField(h, []byte(job.Instrument))
	if job.ScanID != nil {
		writeField(h, []byte(fmt.Sprintf("scan_id=%d", *job.ScanID)))
	} else {
		writeField(h, nil)
	}
	writeField(h, []byte(job.Processor))
	for _, name := range job.MedianFilter {
		writeField(h, []byte(name))
	}
	for _, k := range slices.Sorted(maps.Keys(job.Attrs)) {
		writeField(h, []byte(k+"="+job.Attrs[k]))
	}
	for _, b := range [][]byte{in.Input, in.Scans, in.Sequences, in.Wind} {
		writeField(h, b)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// writeField writes b length-prefixed so adjacent fields cannot run together.
func writeField(h hash.Hash, b []byte) {
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(len(b)))
	h.Write(n[:])
	h.Write(b)
}

// ConvertJob runs the converter for the job's instrument and applies any
// requested median filters with the default window.
func ConvertJob(job ConversionJob, in JobInputs, asOf time.Time) (*ProfileGrid, error) {
	var (
		grid *ProfileGrid
		err  error
	)
	switch job.Instrument {
	case InstrumentLidar:
		grid, err = ConvertLidar(
			LidarInput{RWS: in.Input, Scans: in.Scans, Sequences: in.Sequences, Wind: in.Wind},
			LidarOptions{ScanID: job.ScanID, Attrs: job.Attrs, AsOf: asOf},
		)
	case InstrumentRadiometer:
		grid, err = ConvertRadiometer(in.Input, RadiometerOptions{Processor: job.Processor, Attrs: job.Attrs, AsOf: asOf})
	case InstrumentBalloon:
		grid, err = ConvertBalloon(in.Input, BalloonOptions{Attrs: job.Attrs, AsOf: asOf})
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownInstrument, job.Instrument)
	}
	if err != nil {
		return nil, fmt.Errorf("convert %s: %w", job.Instrument, err)
	}

	for _, name := range job.MedianFilter {
		if err := ApplyMedianFilter(grid, name, DefaultMedianTimeHalf, DefaultMedianRangeHalf); err != nil {
			return nil, err
		}
	}
	grid.Attrs["instrument"] = string(job.Instrument)
	return grid, nil
}
