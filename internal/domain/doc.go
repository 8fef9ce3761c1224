// Package domain decodes aviation routine weather reports (METAR).
//
// # Data Source
//
// Raw reports are single lines of coded text, fetched per station from a
// station-keyed text endpoint (https://metar.vatsim.net/<icao>) or consumed
// from the Kafka source topic. The decoder only needs the text; nothing about
// its origin is assumed.
//
//	NZWN 251130Z AUTO 28015G25KT 9999 -RA FEW020 BKN035 18/12 Q1015 KAUKAU 30032KT
//
// # Decoded Groups
//
// Each group is matched by its own rule against the whole text. A group that
// does not match is simply absent from the result; there is no such thing as
// a malformed report, only one with fewer recognised groups.
//
//	Wind:        dddssKT or dddssGggKT, direction in degrees, speed and gust in knots.
//	Visibility:  the first standalone four-digit token, in metres (9999 = 10 km or more).
//	Rain:        -RA light, +RA heavy, RA moderate (one of them), RERA recent.
//	Clouds:      FEW/SCT/BKN/OVC followed by the base in hundreds of feet.
//	             NCD means no clouds detected by an automatic station.
//	Temp/dew:    TT/DD in whole degrees Celsius, M prefix for negative ("M05/M10").
//	QNH:         Qpppp in hectopascals.
//	Local wind:  a named sensor followed by its own wind group, e.g. "KAUKAU 30032KT"
//	             for the Mt Kaukau anemometer above Wellington.
//
// # Issue Time
//
// The report carries only day-of-month, hour and minute (DDHHMMZ, UTC). The
// month and year are inferred from a reference time: a day greater than the
// reference's day belongs to the previous month. See [ResolveReportTime].
//
// # Wind Severity
//
// Wind is classified for display using gust speed when a gust is reported:
//
//	<25 kt none | <40 kt breezy | <55 kt strong | ≥55 kt severe
//
// The local sensor reading is classified on its sustained speed only.
//
// # ID Generation
//
// Report IDs are name-based (SHA-1) UUIDs of station|issue time|raw text, so
// replaying the same report produces the same ID. See [ReportID].
package domain
