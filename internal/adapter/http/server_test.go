package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/norlandrhagen/snowintel/internal/adapter/http"
	"github.com/norlandrhagen/snowintel/internal/domain"
	"github.com/norlandrhagen/snowintel/internal/pipeline"
)

var testSites = domain.Sites{
	{SiteCode: "301_CA_SNTL", SiteName: "Adin Mtn", State: "CA", Latitude: 41.2358, Longitude: -120.79192, ElevationM: 1886.7, ElevationFt: 6190},
	{SiteCode: "907_MT_SNTL", SiteName: "Warm Springs", State: "MT", Latitude: 46.27399, Longitude: -113.16439, ElevationM: 2374.4, ElevationFt: 7790},
}

type mockService struct {
	readyErr   error
	err        error
	lastFilter domain.SiteFilter
	lastFetch  pipeline.FetchRequest
}

func (m *mockService) CheckReadiness(_ context.Context) error { return m.readyErr }

func (m *mockService) Sites(_ context.Context, filter domain.SiteFilter) (domain.Sites, error) {
	m.lastFilter = filter
	if m.err != nil {
		return nil, m.err
	}
	return testSites.Filter(filter), nil
}

func (m *mockService) SiteVariables(_ context.Context, siteID string) (domain.Variables, error) {
	if m.err != nil {
		return nil, m.err
	}
	return domain.Variables{{VariableCode: "WTEQ_D", VariableID: "11", VariableName: "Snow water equivalent", Unit: "in"}}, nil
}

func (m *mockService) Fetch(_ context.Context, req pipeline.FetchRequest) (domain.Observations, error) {
	m.lastFetch = req
	if m.err != nil {
		return nil, m.err
	}
	return domain.Observations{{Time: time.Date(2000, 1, 1, 8, 0, 0, 0, time.UTC), Value: 4.1}}, nil
}

func newTestServer(svc *mockService) *httpadapter.Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return httpadapter.NewServer(httpadapter.Options{Addr: ":0"}, svc, logger)
}

func get(srv *httpadapter.Server, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHealthzReturns200(t *testing.T) {
	rec := get(newTestServer(&mockService{}), "/healthz")

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	rec := get(newTestServer(&mockService{}), "/readyz")

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body["status"])
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	rec := get(newTestServer(&mockService{readyErr: fmt.Errorf("not ready yet")}), "/readyz")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "not ready yet", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	rec := get(newTestServer(&mockService{}), "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestSites(t *testing.T) {
	svc := &mockService{}
	rec := get(newTestServer(svc), "/api/sites?state=mt&min_elevation=2000")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var rows []domain.Site
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "907_MT_SNTL", rows[0].SiteCode)

	assert.Equal(t, []string{"mt"}, svc.lastFilter.States)
	require.NotNil(t, svc.lastFilter.MinElevationM)
	assert.Equal(t, 2000.0, *svc.lastFilter.MinElevationM)
	assert.Nil(t, svc.lastFilter.MaxElevationM)
}

func TestSites_Near(t *testing.T) {
	svc := &mockService{}
	rec := get(newTestServer(svc), "/api/sites?lat=46&lon=-112.5&radius_km=100")

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.lastFilter.Near)
	assert.Equal(t, domain.Near{Latitude: 46, Longitude: -112.5, RadiusKm: 100}, *svc.lastFilter.Near)
}

func TestSites_Formats(t *testing.T) {
	srv := newTestServer(&mockService{})

	csv := get(srv, "/api/sites?format=csv")
	require.Equal(t, http.StatusOK, csv.Code)
	assert.Contains(t, csv.Body.String(), "site_code,site_name,state,latitude,longitude,elevation_m,elevation_ft\n")

	geo := get(srv, "/api/sites?format=geojson")
	require.Equal(t, http.StatusOK, geo.Code)
	assert.Equal(t, "application/geo+json", geo.Header().Get("Content-Type"))
	assert.Contains(t, geo.Body.String(), `"FeatureCollection"`)

	bad := get(srv, "/api/sites?format=xlsx")
	assert.Equal(t, http.StatusBadRequest, bad.Code)
}

func TestSites_BadQuery(t *testing.T) {
	srv := newTestServer(&mockService{})

	tests := []string{
		"/api/sites?min_elevation=high",
		"/api/sites?lat=46&lon=-112.5",
	}
	for _, target := range tests {
		t.Run(target, func(t *testing.T) {
			rec := get(srv, target)
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, "invalid_request", body["code"])
		})
	}
}

func TestVariables(t *testing.T) {
	rec := get(newTestServer(&mockService{}), "/api/sites/301_CA_SNTL/variables")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"variable_code": "WTEQ_D"`)
}

func TestValues(t *testing.T) {
	svc := &mockService{}
	rec := get(newTestServer(svc), "/api/sites/301_CA_SNTL/values?variable=WTEQ_D&start=2000-01-01&end=2000-02-02")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "301_CA_SNTL", svc.lastFetch.SiteID)
	assert.Equal(t, "WTEQ_D", svc.lastFetch.Variable)
	assert.Equal(t, time.Date(2000, 2, 2, 0, 0, 0, 0, time.UTC), svc.lastFetch.End)

	var rows []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, 4.1, rows[0]["value"])
}

func TestValues_BadDate(t *testing.T) {
	rec := get(newTestServer(&mockService{}), "/api/sites/301_CA_SNTL/values?variable=WTEQ_D&start=yesterday&end=2000-02-02")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"invalid_date"`)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"invalid site", &domain.InvalidSiteError{SiteID: "x"}, http.StatusNotFound, "invalid_site"},
		{"invalid variable", &domain.InvalidVariableError{SiteID: "x", Variables: []string{"Y"}}, http.StatusBadRequest, "invalid_variable"},
		{"date", &domain.DateFormatError{Input: "x", Err: errors.New("bad")}, http.StatusBadRequest, "invalid_date"},
		{"request", fmt.Errorf("%w: missing", pipeline.ErrInvalidRequest), http.StatusBadRequest, "invalid_request"},
		{"dependency", &domain.MissingDependencyError{Feature: "map", Hint: "rebuild"}, http.StatusNotImplemented, "missing_dependency"},
		{"transport", fmt.Errorf("get sites: %w", &domain.TransportError{Op: "GetSites", Err: errors.New("refused")}), http.StatusBadGateway, "transport_error"},
		{"malformed", fmt.Errorf("parse sites: %w", domain.ErrMalformedResponse), http.StatusBadGateway, "malformed_response"},
		{"other", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(newTestServer(&mockService{err: tt.err}), "/api/sites/301_CA_SNTL/variables")
			assert.Equal(t, tt.status, rec.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body["code"])
			assert.Equal(t, tt.err.Error(), body["error"])
		})
	}
}
