package domain

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// SchemaVariant identifies a known firmware generation of the lidar export.
type SchemaVariant int

const (
	// SchemaLegacy is the comma separated export of older firmware.
	SchemaLegacy SchemaVariant = iota + 1
	// SchemaSequenced is the semicolon separated export with settings,
	// resolution and sequence identifiers.
	SchemaSequenced
)

func (v SchemaVariant) String() string {
	switch v {
	case SchemaLegacy:
		return "legacy"
	case SchemaSequenced:
		return "sequenced"
	default:
		return "unknown"
	}
}

type columnKind int

const (
	kindTime columnKind = iota
	kindInt
	kindFloat
	kindFloatRequired
	kindBool
)

type columnRole int

const (
	roleTime columnRole = iota
	roleScanID
	roleRange
	roleProfile
	roleChannel
)

type columnSpec struct {
	header   string
	kind     columnKind
	required bool
	role     columnRole
	profile  ProfileField
	channel  Channel
}

type schemaSpec struct {
	variant   SchemaVariant
	delimiter rune
	columns   []columnSpec
	profile   []ProfileField
}

func timeCol(h string) columnSpec {
	return columnSpec{header: h, kind: kindTime, required: true, role: roleTime}
}
func scanCol(h string) columnSpec { return columnSpec{header: h, kind: kindInt, role: roleScanID} }
func rangeCol(h string) columnSpec {
	return columnSpec{header: h, kind: kindFloatRequired, required: true, role: roleRange}
}

func idCol(h string, f ProfileField) columnSpec {
	return columnSpec{header: h, kind: kindInt, required: true, role: roleProfile, profile: f}
}

func angleCol(h string, f ProfileField) columnSpec {
	return columnSpec{header: h, kind: kindFloat, required: true, role: roleProfile, profile: f}
}

func channelCol(h string, kind columnKind, c Channel) columnSpec {
	return columnSpec{header: h, kind: kind, role: roleChannel, channel: c}
}

// Schemas in detection order. Measurement channels are optional so partial
// exports still normalize.
var lidarSchemas = []schemaSpec{
	{
		variant:   SchemaLegacy,
		delimiter: ',',
		columns: []columnSpec{
			timeCol("Timestamp"),
			idCol("Configuration ID", FieldConfiguration),
			scanCol("Scan ID"),
			idCol("LOS ID", FieldLOS),
			angleCol("Azimuth [°]", FieldAzimuth),
			angleCol("Elevation [°]", FieldElevation),
			rangeCol("Range [m]"),
			channelCol("RWS [m/s]", kindFloat, ChannelRWS),
			channelCol("DRWS [m/s]", kindFloat, ChannelDRWS),
			channelCol("CNR [db]", kindFloat, ChannelCNR),
			channelCol("Confidence Index [%]", kindFloat, ChannelConfidence),
			channelCol("Mean Error", kindFloat, ChannelError),
			channelCol("Status", kindBool, ChannelStatus),
		},
		profile: []ProfileField{FieldLOS, FieldConfiguration, FieldAzimuth, FieldElevation},
	},
	{
		variant:   SchemaSequenced,
		delimiter: ';',
		columns: []columnSpec{
			timeCol("Timestamp"),
			idCol("Settings ID", FieldSettings),
			idCol("Resolution ID", FieldResolution),
			scanCol("Scan ID"),
			idCol("LOS ID", FieldLOS),
			idCol("Sequence ID", FieldSequence),
			angleCol("Azimuth [°]", FieldAzimuth),
			angleCol("Elevation [°]", FieldElevation),
			rangeCol("Range [m]"),
			channelCol("Radial Wind Speed [m/s]", kindFloat, ChannelRWS),
			channelCol("Dispersion Radial Wind Speed [m/s]", kindFloat, ChannelDRWS),
			channelCol("CNR [dB]", kindFloat, ChannelCNR),
			channelCol("Confidence Index [%]", kindFloat, ChannelConfidence),
			channelCol("Mean Error", kindFloat, ChannelError),
			channelCol("Status", kindBool, ChannelStatus),
		},
		profile: []ProfileField{FieldLOS, FieldSettings, FieldResolution, FieldAzimuth, FieldElevation, FieldSequence},
	},
}

// ParseObservations normalizes a radial wind speed export. Each known schema
// is validated in order; only a *SchemaMismatchError moves on to the next one.
func ParseObservations(data []byte) (ObservationTable, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return ObservationTable{}, ErrEmptyInput
	}

	var mismatches []error
	for _, s := range lidarSchemas {
		tbl, err := s.parse(data)
		if err == nil {
			return tbl, nil
		}
		var mismatch *SchemaMismatchError
		if !errors.As(err, &mismatch) {
			return ObservationTable{}, fmt.Errorf("parse %s export: %w", s.variant, err)
		}
		mismatches = append(mismatches, err)
	}
	return ObservationTable{}, fmt.Errorf("no known export schema matched: %w", errors.Join(mismatches...))
}

func (s schemaSpec) mismatch(line int, format string, args ...any) *SchemaMismatchError {
	return &SchemaMismatchError{Variant: s.variant, Line: line, Reason: fmt.Sprintf(format, args...)}
}

func (s schemaSpec) parse(data []byte) (ObservationTable, error) {
	tbl, err := readDelimited(bytes.NewReader(data), s.delimiter)
	if errors.Is(err, ErrEmptyInput) {
		return ObservationTable{}, err
	}
	if err != nil {
		return ObservationTable{}, s.mismatch(0, "%v", err)
	}

	type boundColumn struct {
		spec  columnSpec
		index int
	}
	out := ObservationTable{
		Variant: s.variant,
		Profile: append([]ProfileField(nil), s.profile...),
	}
	var present [numChannels]bool
	cols := make([]boundColumn, 0, len(s.columns))
	for _, c := range s.columns {
		i, ok := tbl.column(c.header)
		if !ok {
			if c.required {
				return ObservationTable{}, s.mismatch(0, "missing column %q", c.header)
			}
			continue
		}
		cols = append(cols, boundColumn{spec: c, index: i})
		switch c.role {
		case roleChannel:
			present[c.channel] = true
		case roleScanID:
			out.hasScanID = true
		}
	}
	for ch := Channel(0); ch < numChannels; ch++ {
		if present[ch] {
			out.Channels = append(out.Channels, ch)
		}
	}

	out.Records = make([]Observation, 0, len(tbl.rows))
	for n, row := range tbl.rows {
		o := newObservation()
		for _, c := range cols {
			if err := c.spec.store(&o, row[c.index]); err != nil {
				return ObservationTable{}, s.mismatch(n+2, "column %q: %v", c.spec.header, err)
			}
		}
		out.Records = append(out.Records, o)
	}
	return out, nil
}

func (c columnSpec) store(o *Observation, raw string) error {
	var x float64
	switch c.kind {
	case kindTime:
		t, err := parseTimestamp(raw)
		if err != nil {
			return err
		}
		o.Time = t
		return nil
	case kindInt:
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("invalid integer %q", raw)
		}
		x = float64(n)
	case kindFloat, kindFloatRequired:
		v, err := parseFloatOrNaN(raw)
		if err != nil {
			return fmt.Errorf("invalid number %q", raw)
		}
		if c.kind == kindFloatRequired {
			if math.IsNaN(v) {
				return errors.New("missing value")
			}
			if math.IsInf(v, 0) {
				return fmt.Errorf("non-finite value %q", raw)
			}
		}
		x = v
	case kindBool:
		b, err := parseFlag(raw)
		if err != nil {
			return err
		}
		x = boolToFloat(b)
	}

	switch c.role {
	case roleScanID:
		o.ScanID = int(x)
	case roleRange:
		o.Range = x
	case roleProfile:
		o.Profile[c.profile] = x
	case roleChannel:
		o.Values[c.channel] = x
	}
	return nil
}
