// Package domain converts vendor exports from atmospheric profiling
// instruments into a common labeled array, the [ProfileGrid].
//
// # Data Sources
//
// Wind lidar (scanning Doppler lidar, vendor CSV exports):
//
//	Radial wind speed (RWS) file: one row per (timestamp, range gate) with
//	scan/profile identifiers and measurement channels. Two firmware
//	generations exist:
//
//	  Legacy (schema A): comma separated, "Configuration ID", "RWS [m/s]",
//	  "DRWS [m/s]", "CNR [db]".
//	  Sequenced (schema B): semicolon separated, adds "Settings ID",
//	  "Resolution ID", "Sequence ID" and spells channels out
//	  ("Radial Wind Speed [m/s]", "CNR [dB]").
//
//	Scan geometry (scan.xml): one <lidar_scan id="..."> element per scanning
//	mode. The scan's attribute block is the element at child path (1, 2, 0).
//
//	Sequences file: "Sequence ID", "First Acquisition", "Last Acquisition".
//	Last Acquisition is truncated to the second by the instrument, so one
//	second is added before matching.
//
//	Reconstructed wind file: "TimeStamp", "Range [m]" and X/Y/Z wind speed
//	columns, sampled on its own time and range axes.
//
// Microwave radiometer (multi-record CSV): every line carries its record type
// in the third field. "Record" lines are section headers; section 100 lists
// the retrieved quantities ("Temperature (K)"), section 400 carries the
// height profiles. "*******" marks a missing value.
//
// Radiosonde sounding (text): "Key : Value" header block, a blank line, then a
// semicolon table with a time-of-day "Time Stamp" column.
//
// # Grid Conventions
//
// Missing cells are NaN, never zero. Lidar channels are laid out (Time, Range);
// the reconstructed wind is (Component, Time, Range) with components x, y, z
// where x = -Y, y = -X, z = -Z of the exported columns.
//
// Mapping the wind file onto the RWS grid uses the nearest lower-or-equal grid
// index on both axes (see [FloorIndex]). The same search, with a different
// side convention, assigns observations to sequences.
//
// # Determinism
//
// A conversion depends only on its inputs and an explicit as-of time. When the
// as-of time is zero the package clock supplies it; tests freeze it with
// [SetClock].
package domain
