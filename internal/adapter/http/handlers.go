package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/go-chi/chi/v5"

	"github.com/norlandrhagen/snowintel/internal/adapter/mapview"
	"github.com/norlandrhagen/snowintel/internal/adapter/tabular"
	"github.com/norlandrhagen/snowintel/internal/domain"
	"github.com/norlandrhagen/snowintel/internal/pipeline"
)

// errorBody is the JSON shape of every API error.
type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func (s *Server) handleSites(w http.ResponseWriter, r *http.Request) {
	filter, err := parseSiteFilter(r.URL.Query())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sites, err := s.svc.Sites(r.Context(), filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if strings.EqualFold(r.URL.Query().Get("format"), "geojson") {
		w.Header().Set("Content-Type", "application/geo+json")
		if err := mapview.GeoJSON(w, sites); err != nil {
			s.logger.Warn("write geojson failed", "error", err)
		}
		return
	}
	s.writeTable(w, r, sites)
}

func (s *Server) handleVariables(w http.ResponseWriter, r *http.Request) {
	vars, err := s.svc.SiteVariables(r.Context(), chi.URLParam(r, "siteID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeTable(w, r, vars)
}

func (s *Server) handleValues(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req, err := pipeline.NewFetchRequest(chi.URLParam(r, "siteID"), q.Get("variable"), q.Get("start"), q.Get("end"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	obs, err := s.svc.Fetch(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeTable(w, r, obs)
}

func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	if !mapview.Available() {
		s.writeError(w, r, mapview.Render(nil, nil, mapview.Options{}))
		return
	}

	q := r.URL.Query()
	basemap := q.Get("basemap")
	if basemap == "" {
		basemap = s.basemap
	}
	if _, err := mapview.LookupBasemap(basemap); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %v", pipeline.ErrInvalidRequest, err))
		return
	}

	filter, err := parseSiteFilter(q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sites, err := s.svc.Sites(r.Context(), filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if len(sites) == 0 {
		s.writeError(w, r, fmt.Errorf("%w: %v", pipeline.ErrInvalidRequest, mapview.ErrNoSites))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := mapview.Render(w, sites, mapview.Options{Basemap: basemap, Title: q.Get("title")}); err != nil {
		s.logger.Warn("render map failed", "error", err)
	}
}

// writeTable renders a table as JSON unless ?format=csv or ?format=text asks
// otherwise.
func (s *Server) writeTable(w http.ResponseWriter, r *http.Request, table domain.Table) {
	format, err := tabular.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %v", pipeline.ErrInvalidRequest, err))
		return
	}
	if r.URL.Query().Get("format") == "" {
		format = tabular.JSON
	}

	switch format {
	case tabular.CSV:
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	case tabular.Text:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	default:
		w.Header().Set("Content-Type", "application/json")
	}
	if err := tabular.Write(w, table, format); err != nil {
		s.logger.Warn("write response failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "error", err)
	}
	sharedobs.WriteJSON(w, status, errorBody{Error: err.Error(), Code: code})
}

// classify maps an error to an HTTP status and a stable error code.
func classify(err error) (int, string) {
	var (
		siteErr      *domain.InvalidSiteError
		varErr       *domain.InvalidVariableError
		dateErr      *domain.DateFormatError
		depErr       *domain.MissingDependencyError
		transportErr *domain.TransportError
	)
	switch {
	case errors.As(err, &siteErr):
		return http.StatusNotFound, "invalid_site"
	case errors.As(err, &varErr):
		return http.StatusBadRequest, "invalid_variable"
	case errors.As(err, &dateErr):
		return http.StatusBadRequest, "invalid_date"
	case errors.Is(err, pipeline.ErrInvalidRequest):
		return http.StatusBadRequest, "invalid_request"
	case errors.As(err, &depErr):
		return http.StatusNotImplemented, "missing_dependency"
	case errors.As(err, &transportErr):
		return http.StatusBadGateway, "transport_error"
	case errors.Is(err, domain.ErrMalformedResponse):
		return http.StatusBadGateway, "malformed_response"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// parseSiteFilter reads state, min_elevation, max_elevation, lat, lon and
// radius_km. state may repeat or hold a comma-separated list.
func parseSiteFilter(q url.Values) (domain.SiteFilter, error) {
	var (
		filter domain.SiteFilter
		err    error
	)
	filter.States = q["state"]

	if filter.MinElevationM, err = optionalFloat(q, "min_elevation"); err != nil {
		return filter, err
	}
	if filter.MaxElevationM, err = optionalFloat(q, "max_elevation"); err != nil {
		return filter, err
	}

	lat, err := optionalFloat(q, "lat")
	if err != nil {
		return filter, err
	}
	lon, err := optionalFloat(q, "lon")
	if err != nil {
		return filter, err
	}
	radius, err := optionalFloat(q, "radius_km")
	if err != nil {
		return filter, err
	}
	switch {
	case lat == nil && lon == nil && radius == nil:
	case lat == nil || lon == nil || radius == nil:
		return filter, fmt.Errorf("%w: lat, lon and radius_km must be given together", pipeline.ErrInvalidRequest)
	default:
		filter.Near = &domain.Near{Latitude: *lat, Longitude: *lon, RadiusKm: *radius}
	}
	return filter, nil
}

func optionalFloat(q url.Values, key string) (*float64, error) {
	s := strings.TrimSpace(q.Get(key))
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be a number, got %q", pipeline.ErrInvalidRequest, key, s)
	}
	return &v, nil
}
