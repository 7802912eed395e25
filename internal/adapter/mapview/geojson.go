package mapview

import (
	"fmt"
	"io"

	"github.com/goccy/go-json"

	"github.com/norlandrhagen/snowintel/internal/domain"
)

type featureCollection struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

type feature struct {
	Type       string      `json:"type"`
	Geometry   geometry    `json:"geometry"`
	Properties domain.Site `json:"properties"`
}

type geometry struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"` // [lon, lat]
}

// GeoJSON writes sites as a FeatureCollection of Point features whose
// properties are the site table columns.
func GeoJSON(w io.Writer, sites domain.Sites) error {
	fc := featureCollection{Type: "FeatureCollection", Features: make([]feature, len(sites))}
	for i, s := range sites {
		fc.Features[i] = feature{
			Type:       "Feature",
			Geometry:   geometry{Type: "Point", Coordinates: [2]float64{s.Longitude, s.Latitude}},
			Properties: s,
		}
	}
	if err := json.NewEncoder(w).Encode(fc); err != nil {
		return fmt.Errorf("encode geojson: %w", err)
	}
	return nil
}
