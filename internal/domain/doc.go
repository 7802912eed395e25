// Package domain models SNOTEL station metadata and time-series data served
// by the CUAHSI HydroPortal WaterOneFlow 1.1 service.
//
// # Data Source
//
// The service is a SOAP endpoint described by a WSDL document at
// https://hydroportal.cuahsi.org/Snotel/cuahsi_1_1.asmx?WSDL. Each operation
// (GetSites, GetSiteInfo, GetValues) returns a WaterML 1.1 document embedded as
// escaped text inside the SOAP response. The adapter layer unwraps the envelope;
// this package only sees the WaterML payload.
//
// # WaterML Conventions
//
// Site codes:
//
//	"<number>_<state>_SNTL"  →  e.g. "301_CA_SNTL"
//	The second "_" token is the two-letter state code. Requests address a site
//	through the network prefix: "SNOTEL:301_CA_SNTL".
//
// Known bad records:
//
//	"894_TC_SNTL" is published by the service but is not a real station; it is
//	removed from every site table.
//
// Elevation:
//
//	elevation_m is reported in meters with arbitrary precision. It is rounded to
//	one decimal, and elevation_ft is derived from the rounded value
//	(× 3.28084) and rounded again to one decimal.
//
// Variable codes:
//
//	"<element>_<duration>", e.g. "WTEQ_D" (snow water equivalent, daily) or
//	"SNWD_D" (snow depth, daily). Requests use the same "SNOTEL:" prefix.
//
// Values:
//
//	Each <value> element carries the reading as text and the timestamp in the
//	dateTimeUTC attribute ("2006-01-02T15:04:05", no zone). Missing readings use
//	the series noDataValue, -9999 for SNOTEL, and carry no qualifiers. Rows
//	with a missing timestamp, a non-numeric value, the sentinel, or no
//	qualifiers are dropped whole; nothing is interpolated or flagged.
//
// Dates:
//
//	User-supplied dates are "YYYY-MM-DD"; the service expects ISO-8601
//	date-times, so 2000-01-01 is sent as "2000-01-01T00:00:00".
package domain
