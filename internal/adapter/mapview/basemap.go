// Package mapview renders site tables as an interactive Leaflet map or as
// GeoJSON.
package mapview

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// DefaultBasemap is used when Options.Basemap is empty.
const DefaultBasemap = "google_terrain"

// ErrNoSites is returned when there is nothing to place on a map.
var ErrNoSites = errors.New("no sites to map")

// Basemap is a raster tile layer.
type Basemap struct {
	Name        string
	Label       string
	URL         string
	Attribution string
}

var basemaps = map[string]Basemap{
	"google_maps": {
		Name: "google_maps", Label: "Google Maps", Attribution: "Google",
		URL: "https://mt1.google.com/vt/lyrs=m&x={x}&y={y}&z={z}",
	},
	"google_satellite": {
		Name: "google_satellite", Label: "Google Satellite", Attribution: "Google",
		URL: "https://mt1.google.com/vt/lyrs=s&x={x}&y={y}&z={z}",
	},
	"google_terrain": {
		Name: "google_terrain", Label: "Google Terrain", Attribution: "Google",
		URL: "https://mt1.google.com/vt/lyrs=p&x={x}&y={y}&z={z}",
	},
	"google_satellite_hybrid": {
		Name: "google_satellite_hybrid", Label: "Google Satellite", Attribution: "Google",
		URL: "https://mt1.google.com/vt/lyrs=y&x={x}&y={y}&z={z}",
	},
	"esri_satellite": {
		Name: "esri_satellite", Label: "Esri Satellite", Attribution: "Esri",
		URL: "https://server.arcgisonline.com/ArcGIS/rest/services/World_Imagery/MapServer/tile/{z}/{y}/{x}",
	},
}

// LookupBasemap resolves a basemap name; empty selects DefaultBasemap.
func LookupBasemap(name string) (Basemap, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = DefaultBasemap
	}
	b, ok := basemaps[name]
	if !ok {
		return Basemap{}, fmt.Errorf("unknown basemap %q (want one of %s)", name, strings.Join(BasemapNames(), ", "))
	}
	return b, nil
}

// BasemapNames lists the supported basemaps in sorted order.
func BasemapNames() []string {
	names := make([]string, 0, len(basemaps))
	for name := range basemaps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
