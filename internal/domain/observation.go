package domain

import (
	"fmt"
	"math"
	"time"
)

// ProfileField is a scan/profile identifier carried per observation and
// reduced to one value per timestamp on the grid.
type ProfileField int

const (
	FieldLOS ProfileField = iota
	FieldConfiguration
	FieldSettings
	FieldResolution
	FieldAzimuth
	FieldElevation
	FieldSequence
	numProfileFields
)

var profileFieldNames = [numProfileFields]string{
	FieldLOS:           "LOS",
	FieldConfiguration: "Configuration",
	FieldSettings:      "Settings",
	FieldResolution:    "Resolution",
	FieldAzimuth:       "Azimuth",
	FieldElevation:     "Elevation",
	FieldSequence:      "Sequence",
}

func (f ProfileField) String() string {
	if f >= 0 && f < numProfileFields {
		return profileFieldNames[f]
	}
	return "unknown"
}

// Channel is a lidar measurement channel.
type Channel int

const (
	ChannelRWS Channel = iota
	ChannelDRWS
	ChannelCNR
	ChannelConfidence
	ChannelError
	ChannelStatus
	numChannels
)

var channelNames = [numChannels]string{
	ChannelRWS:        "RWS",
	ChannelDRWS:       "DRWS",
	ChannelCNR:        "CNR",
	ChannelConfidence: "Confidence",
	ChannelError:      "Error",
	ChannelStatus:     "Status",
}

func (c Channel) String() string {
	if c >= 0 && c < numChannels {
		return channelNames[c]
	}
	return "unknown"
}

// Observation is one normalized row of a radial wind speed export.
type Observation struct {
	Time    time.Time
	ScanID  int
	Range   float64
	Profile [numProfileFields]float64 // NaN where the schema has no such field
	Values  [numChannels]float64      // NaN where missing
}

func newObservation() Observation {
	var o Observation
	for i := range o.Profile {
		o.Profile[i] = math.NaN()
	}
	for i := range o.Values {
		o.Values[i] = math.NaN()
	}
	return o
}

// ObservationTable is a normalized export in canonical vocabulary.
type ObservationTable struct {
	Variant  SchemaVariant
	Records  []Observation
	Channels []Channel      // canonical channels present in the export
	Profile  []ProfileField // profile-defining fields of the variant

	hasScanID bool
}

// FilterScan keeps only records of the given scan. An empty result is not an
// error here; gridding it fails with ErrNoObservations.
func (t ObservationTable) FilterScan(scanID int) (ObservationTable, error) {
	if !t.hasScanID {
		return ObservationTable{}, fmt.Errorf("filter scan %d: %w %q", scanID, ErrMissingColumn, "Scan ID")
	}
	out := t
	out.Records = make([]Observation, 0, len(t.Records))
	for _, r := range t.Records {
		if r.ScanID == scanID {
			out.Records = append(out.Records, r)
		}
	}
	return out, nil
}

// HasProfileField reports whether f is one of the table's profile fields.
func (t ObservationTable) HasProfileField(f ProfileField) bool {
	for _, p := range t.Profile {
		if p == f {
			return true
		}
	}
	return false
}
