package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNoScans is returned when a scan geometry document has no lidar_scan entries.
	ErrNoScans = errors.New("no scans listed in scan geometry document")
	// ErrMultipleScans is returned when a document lists several scans and no scan id was given.
	ErrMultipleScans = errors.New("scan id required when the document lists multiple scanning modes")
	// ErrScanNotFound is returned when no scan entry matches the requested id.
	ErrScanNotFound = errors.New("scan not found in scan geometry document")
	// ErrMalformedScan is returned when a scan entry lacks its attribute block.
	ErrMalformedScan = errors.New("scan entry has no attribute block")

	ErrEmptyInput        = errors.New("input is empty")
	ErrNoObservations    = errors.New("no observations to grid")
	ErrMissingColumn     = errors.New("missing column")
	ErrMissingSection    = errors.New("missing record section")
	ErrMissingMetadata   = errors.New("missing header metadata")
	ErrUnknownInstrument = errors.New("unknown instrument")
	ErrDuplicateJob      = errors.New("inputs already converted")
)

// SchemaMismatchError reports why a table did not validate against a schema
// variant. It is the only error that lets the normalizer try the next variant.
type SchemaMismatchError struct {
	Variant SchemaVariant
	Line    int // 1-based; 0 when the header itself failed
	Reason  string
}

func (e *SchemaMismatchError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("%s schema: %s", e.Variant, e.Reason)
	}
	return fmt.Sprintf("%s schema: line %d: %s", e.Variant, e.Line, e.Reason)
}

// DuplicateCellError reports two samples for the same (time, range) cell.
type DuplicateCellError struct {
	Source string
	Time   time.Time
	Range  float64
}

func (e *DuplicateCellError) Error() string {
	return fmt.Sprintf("%s: duplicate sample at %s range %g", e.Source, e.Time.Format(time.RFC3339Nano), e.Range)
}

// InconsistentProfileError reports a timestamp whose rows disagree on a
// profile-defining field, which would otherwise duplicate the Time coordinate.
type InconsistentProfileError struct {
	Time   time.Time
	Field  ProfileField
	Values []float64
}

func (e *InconsistentProfileError) Error() string {
	vals := make([]string, len(e.Values))
	for i, v := range e.Values {
		vals[i] = fmt.Sprintf("%g", v)
	}
	return fmt.Sprintf("profile field %s is not constant at %s: [%s]",
		e.Field, e.Time.Format(time.RFC3339Nano), strings.Join(vals, " "))
}
