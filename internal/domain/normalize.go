package domain

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"
)

// defaultNoDataValue is the SNOTEL missing-reading sentinel, used when a
// series does not declare its own noDataValue.
const defaultNoDataValue = -9999.0

// waterMLTimeLayout is the zone-less layout of dateTimeUTC attributes.
const waterMLTimeLayout = "2006-01-02T15:04:05"

// WaterML 1.1 decode types. Only the fields the tables need are declared;
// encoding/xml skips every other element and attribute.

type sitesResponse struct {
	XMLName xml.Name      `xml:"sitesResponse"`
	Sites   []siteElement `xml:"site"`
}

type siteElement struct {
	Info   siteInfo       `xml:"siteInfo"`
	Series []seriesRecord `xml:"seriesCatalog>series"`
}

type siteInfo struct {
	SiteName  string   `xml:"siteName"`
	SiteCode  siteCode `xml:"siteCode"`
	Latitude  string   `xml:"geoLocation>geogLocation>latitude"`
	Longitude string   `xml:"geoLocation>geogLocation>longitude"`
	Elevation string   `xml:"elevation_m"`
}

type siteCode struct {
	Network string `xml:"network,attr"`
	SiteID  string `xml:"siteID,attr"`
	Code    string `xml:",chardata"`
}

type seriesRecord struct {
	Variable variableElement `xml:"variable"`
}

type variableElement struct {
	Code struct {
		ID   string `xml:"variableID,attr"`
		Text string `xml:",chardata"`
	} `xml:"variableCode"`
	Name string `xml:"variableName"`
	Unit string `xml:"unit>unitAbbreviation"`
}

type timeSeriesResponse struct {
	XMLName xml.Name           `xml:"timeSeriesResponse"`
	Series  []timeSeriesRecord `xml:"timeSeries"`
}

type timeSeriesRecord struct {
	NoDataValue string         `xml:"variable>noDataValue"`
	Values      []valueElement `xml:"values>value"`
}

type valueElement struct {
	DateTimeUTC string `xml:"dateTimeUTC,attr"`
	Qualifiers  string `xml:"qualifiers,attr"`
	Text        string `xml:",chardata"`
}

// ParseSites normalizes a GetSites response into the site table. Records
// without a site code are skipped, later duplicates of a code are dropped, and
// InvalidSiteCode is removed.
func ParseSites(raw []byte) (Sites, error) {
	var resp sitesResponse
	if err := decodeWaterML(raw, &resp); err != nil {
		return nil, fmt.Errorf("parse sites: %w", err)
	}

	sites := make(Sites, 0, len(resp.Sites))
	seen := make(map[string]struct{}, len(resp.Sites))
	for i := range resp.Sites {
		site, ok, err := normalizeSite(resp.Sites[i].Info)
		if err != nil {
			return nil, fmt.Errorf("parse sites: %w", err)
		}
		if !ok {
			continue
		}
		if _, dup := seen[site.SiteCode]; dup {
			continue
		}
		seen[site.SiteCode] = struct{}{}
		sites = append(sites, site)
	}
	return sites, nil
}

// normalizeSite flattens one siteInfo record. ok is false for records that
// must not appear in the table.
func normalizeSite(info siteInfo) (Site, bool, error) {
	code := strings.TrimSpace(info.SiteCode.Code)
	if code == "" || code == InvalidSiteCode {
		return Site{}, false, nil
	}

	lat, err := parseFloatField(code, "latitude", info.Latitude)
	if err != nil {
		return Site{}, false, err
	}
	lon, err := parseFloatField(code, "longitude", info.Longitude)
	if err != nil {
		return Site{}, false, err
	}
	elev, err := parseFloatField(code, "elevation_m", info.Elevation)
	if err != nil {
		return Site{}, false, err
	}
	elevationM := RoundTo(elev, 1)

	return Site{
		SiteCode:    code,
		SiteName:    strings.TrimSpace(info.SiteName),
		State:       StateFromSiteCode(code),
		Latitude:    lat,
		Longitude:   lon,
		ElevationM:  elevationM,
		ElevationFt: MetersToFeet(elevationM),
	}, true, nil
}

// ParseVariables normalizes a GetSiteInfo response into the variable table of
// the (single) site it describes. A response without a site yields an empty
// table.
func ParseVariables(raw []byte) (Variables, error) {
	var resp sitesResponse
	if err := decodeWaterML(raw, &resp); err != nil {
		return nil, fmt.Errorf("parse variables: %w", err)
	}

	var vars Variables
	for _, site := range resp.Sites {
		for _, series := range site.Series {
			v := series.Variable
			code := strings.TrimSpace(v.Code.Text)
			if code == "" {
				continue
			}
			vars = append(vars, Variable{
				VariableCode: code,
				VariableID:   strings.TrimSpace(v.Code.ID),
				VariableName: strings.TrimSpace(v.Name),
				Unit:         strings.TrimSpace(v.Unit),
			})
		}
	}
	return vars, nil
}

// ParseObservations normalizes a GetValues response into the (time, value)
// table and reports how many rows the null-drop pass removed.
func ParseObservations(raw []byte) (Observations, int, error) {
	var resp timeSeriesResponse
	if err := decodeWaterML(raw, &resp); err != nil {
		return nil, 0, fmt.Errorf("parse observations: %w", err)
	}

	var (
		obs     Observations
		dropped int
	)
	for _, series := range resp.Series {
		sentinel := parseNoDataValue(series.NoDataValue)
		for _, v := range series.Values {
			o, ok := normalizeValue(v, sentinel)
			if !ok {
				dropped++
				continue
			}
			obs = append(obs, o)
		}
	}
	return obs, dropped, nil
}

// normalizeValue converts one <value> element. ok is false when the row holds
// a missing-data marker and must be dropped whole. SNOTEL leaves qualifiers
// off invalid readings, so a row without them is dropped too.
func normalizeValue(v valueElement, sentinel float64) (Observation, bool) {
	if strings.TrimSpace(v.Qualifiers) == "" {
		return Observation{}, false
	}
	ts, err := parseWaterMLTime(v.DateTimeUTC)
	if err != nil {
		return Observation{}, false
	}
	text := strings.TrimSpace(v.Text)
	if text == "" {
		return Observation{}, false
	}
	value, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(value) || value == sentinel {
		return Observation{}, false
	}
	return Observation{Time: ts, Value: value}, true
}

func parseNoDataValue(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return defaultNoDataValue
	}
	return v
}

// parseWaterMLTime accepts the zone-less dateTimeUTC layout and falls back to
// RFC 3339 for payloads that carry an explicit offset.
func parseWaterMLTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	if t, err := time.ParseInLocation(waterMLTimeLayout, s, time.UTC); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func parseFloatField(code, field, s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("site %s: %s %q: %w", code, field, s, ErrMalformedResponse)
	}
	return v, nil
}

// decodeWaterML decodes a WaterML document. The payload arrives as an already
// decoded string, so any declared charset is accepted as-is.
func decodeWaterML(raw []byte, v any) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		return fmt.Errorf("empty document: %w", ErrMalformedResponse)
	}
	dec := xml.NewDecoder(bytes.NewReader(raw))
	dec.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) {
		return input, nil
	}
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}
