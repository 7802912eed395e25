package domain

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

// InvalidSiteCode is published by the service but does not identify a real
// station. It is removed from every site table.
const InvalidSiteCode = "894_TC_SNTL"

// feetPerMeter converts elevation_m to elevation_ft.
const feetPerMeter = 3.28084

// earthRadiusKm is the mean Earth radius used for radius filtering.
const earthRadiusKm = 6371.0088

// Site is one row of the normalized site table.
type Site struct {
	SiteCode    string  `json:"site_code"`
	SiteName    string  `json:"site_name"`
	State       string  `json:"state"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	ElevationM  float64 `json:"elevation_m"`
	ElevationFt float64 `json:"elevation_ft"`
}

// Sites is an immutable snapshot of the site table returned by one fetch.
// Methods never modify the receiver.
type Sites []Site

var siteColumns = []string{"site_code", "site_name", "state", "latitude", "longitude", "elevation_m", "elevation_ft"}

// Columns implements Table.
func (s Sites) Columns() []string { return append([]string(nil), siteColumns...) }

// Records implements Table.
func (s Sites) Records() [][]string {
	out := make([][]string, len(s))
	for i, site := range s {
		out[i] = []string{
			site.SiteCode,
			site.SiteName,
			site.State,
			formatFloat(site.Latitude),
			formatFloat(site.Longitude),
			formatFloat(site.ElevationM),
			formatFloat(site.ElevationFt),
		}
	}
	return out
}

// Codes returns the site codes in table order.
func (s Sites) Codes() []string {
	codes := make([]string, len(s))
	for i := range s {
		codes[i] = s[i].SiteCode
	}
	return codes
}

// Contains reports whether code is a known site code.
func (s Sites) Contains(code string) bool {
	for i := range s {
		if s[i].SiteCode == code {
			return true
		}
	}
	return false
}

// Filter returns the rows matching f as a new table.
func (s Sites) Filter(f SiteFilter) Sites {
	states := f.stateSet()
	out := make(Sites, 0, len(s))
	for _, site := range s {
		if f.matches(site, states) {
			out = append(out, site)
		}
	}
	return out
}

// Bounds returns the south-west and north-east corners of the table as
// (lat, lon) pairs. ok is false for an empty table.
func (s Sites) Bounds() (sw, ne [2]float64, ok bool) {
	if len(s) == 0 {
		return sw, ne, false
	}
	sw = [2]float64{s[0].Latitude, s[0].Longitude}
	ne = sw
	for _, site := range s[1:] {
		sw[0] = math.Min(sw[0], site.Latitude)
		sw[1] = math.Min(sw[1], site.Longitude)
		ne[0] = math.Max(ne[0], site.Latitude)
		ne[1] = math.Max(ne[1], site.Longitude)
	}
	return sw, ne, true
}

// SiteFilter selects rows of a site table. Zero-valued fields do not filter.
type SiteFilter struct {
	// States holds two-letter state codes. Entries may also be comma-separated
	// lists ("MT,CO"); matching is case-insensitive.
	States []string

	// MinElevationM and MaxElevationM bound elevation_m inclusively.
	MinElevationM *float64
	MaxElevationM *float64

	// Near restricts rows to a radius around a point.
	Near *Near
}

// Near is a radius-from-point filter.
type Near struct {
	Latitude  float64
	Longitude float64
	RadiusKm  float64
}

// Validate rejects filters that can never match anything.
func (f SiteFilter) Validate() error {
	if f.MinElevationM != nil && !isFinite(*f.MinElevationM) {
		return errors.New("minimum elevation must be a finite number")
	}
	if f.MaxElevationM != nil && !isFinite(*f.MaxElevationM) {
		return errors.New("maximum elevation must be a finite number")
	}
	if f.MinElevationM != nil && f.MaxElevationM != nil && *f.MinElevationM > *f.MaxElevationM {
		return errors.New("minimum elevation is greater than maximum elevation")
	}
	if f.Near != nil {
		if !isFinite(f.Near.Latitude) || !isFinite(f.Near.Longitude) || !isFinite(f.Near.RadiusKm) {
			return errors.New("point and radius must be finite numbers")
		}
		if f.Near.RadiusKm <= 0 {
			return errors.New("radius must be positive")
		}
		if f.Near.Latitude < -90 || f.Near.Latitude > 90 || f.Near.Longitude < -180 || f.Near.Longitude > 180 {
			return errors.New("point is outside valid latitude/longitude range")
		}
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// stateSet normalizes the overloaded state input into an upper-case set.
// A nil set means no state filter.
func (f SiteFilter) stateSet() map[string]struct{} {
	var set map[string]struct{}
	for _, entry := range f.States {
		for _, code := range strings.Split(entry, ",") {
			code = strings.ToUpper(strings.TrimSpace(code))
			if code == "" {
				continue
			}
			if set == nil {
				set = make(map[string]struct{})
			}
			set[code] = struct{}{}
		}
	}
	return set
}

func (f SiteFilter) matches(site Site, states map[string]struct{}) bool {
	if states != nil {
		if _, ok := states[site.State]; !ok {
			return false
		}
	}
	if f.MinElevationM != nil && site.ElevationM < *f.MinElevationM {
		return false
	}
	if f.MaxElevationM != nil && site.ElevationM > *f.MaxElevationM {
		return false
	}
	if f.Near != nil && DistanceKm(f.Near.Latitude, f.Near.Longitude, site.Latitude, site.Longitude) > f.Near.RadiusKm {
		return false
	}
	return true
}

// DistanceKm returns the great-circle (haversine) distance between two points.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLon := (lon2 - lon1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(a)))
}

// StateFromSiteCode returns the second "_"-delimited token of a site code,
// upper-cased, e.g. "301_CA_SNTL" -> "CA". Codes without a second token
// yield "".
func StateFromSiteCode(code string) string {
	parts := strings.Split(code, "_")
	if len(parts) < 2 {
		return ""
	}
	return strings.ToUpper(parts[1])
}

// MetersToFeet converts an elevation already rounded to one decimal and
// rounds the result to one decimal.
func MetersToFeet(m float64) float64 {
	return RoundTo(m*feetPerMeter, 1)
}

// RoundTo rounds v half away from zero to the given number of decimals.
func RoundTo(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
