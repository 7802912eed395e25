//go:build !nomap

package mapview

import (
	"fmt"
	"html"
	"html/template"
	"io"

	"github.com/norlandrhagen/snowintel/internal/domain"
)

const (
	markerRadius = 10
	markerColor  = "#f25c3c"
)

// Options controls map rendering.
type Options struct {
	Basemap string
	Title   string
}

// Available reports whether map rendering was compiled in.
func Available() bool { return true }

type marker struct {
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	Popup string  `json:"popup"`
}

type page struct {
	Title   string
	Basemap Basemap
	Markers []marker
	Radius  int
	Color   string
	SW, NE  [2]float64
}

var pageTemplate = template.Must(template.New("map").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Title}}</title>
<link rel="stylesheet" href="https://unpkg.com/leaflet@1.9.4/dist/leaflet.css">
<script src="https://unpkg.com/leaflet@1.9.4/dist/leaflet.js"></script>
<style>html, body, #map { height: 100%; margin: 0; }</style>
</head>
<body>
<div id="map"></div>
<script>
var map = L.map("map");
L.tileLayer({{.Basemap.URL}}, {attribution: {{.Basemap.Attribution}}, maxZoom: 20}).addTo(map);
var sites = {{.Markers}};
sites.forEach(function (s) {
  L.circleMarker([s.lat, s.lon], {
    radius: {{.Radius}},
    color: {{.Color}},
    fillColor: {{.Color}},
    fillOpacity: 0.6
  }).bindPopup(s.popup).addTo(map);
});
map.fitBounds([{{.SW}}, {{.NE}}]);
</script>
</body>
</html>
`))

// Render writes a self-contained HTML page with one circle marker per site,
// zoomed to the bounding box of the table.
func Render(w io.Writer, sites domain.Sites, opts Options) error {
	basemap, err := LookupBasemap(opts.Basemap)
	if err != nil {
		return err
	}
	sw, ne, ok := sites.Bounds()
	if !ok {
		return ErrNoSites
	}

	title := opts.Title
	if title == "" {
		title = "SNOTEL sites"
	}

	markers := make([]marker, len(sites))
	for i, s := range sites {
		markers[i] = marker{Lat: s.Latitude, Lon: s.Longitude, Popup: popup(s)}
	}

	if err := pageTemplate.Execute(w, page{
		Title:   title,
		Basemap: basemap,
		Markers: markers,
		Radius:  markerRadius,
		Color:   markerColor,
		SW:      sw,
		NE:      ne,
	}); err != nil {
		return fmt.Errorf("render map: %w", err)
	}
	return nil
}

func popup(s domain.Site) string {
	return fmt.Sprintf("site_code: %s<br>%s<br>elevation (meters): %v<br>elevation (FT): %v<br>Coordinates: [%v, %v]",
		html.EscapeString(s.SiteCode),
		html.EscapeString(s.SiteName),
		s.ElevationM,
		s.ElevationFt,
		s.Latitude,
		s.Longitude,
	)
}
