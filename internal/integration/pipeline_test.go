//go:build integration

package integration_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/norlandrhagen/snowintel/internal/adapter/cachestore"
	httpadapter "github.com/norlandrhagen/snowintel/internal/adapter/http"
	"github.com/norlandrhagen/snowintel/internal/adapter/hydroportal"
	"github.com/norlandrhagen/snowintel/internal/adapter/hydroportal/soaptest"
	"github.com/norlandrhagen/snowintel/internal/domain"
	"github.com/norlandrhagen/snowintel/internal/observability"
	"github.com/norlandrhagen/snowintel/internal/pipeline"
)

// Run with: go test -tags=integration ./internal/integration/ -v -count=1

var backends = []cachestore.Backend{cachestore.BackendSQLite, cachestore.BackendBadger}

func readFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "domain", "testdata", name))
	require.NoError(t, err)
	return data
}

func fakeHydroPortal(t *testing.T) *soaptest.Server {
	t.Helper()
	srv := soaptest.NewServer(map[string][]byte{
		hydroportal.OpGetSites:    readFixture(t, "sites.xml"),
		hydroportal.OpGetSiteInfo: readFixture(t, "siteinfo.xml"),
		hydroportal.OpGetValues:   readFixture(t, "values.xml"),
	})
	t.Cleanup(srv.Close)
	return srv
}

// stack wires the production components against the fake service.
type stack struct {
	pipeline *pipeline.Pipeline
	api      *httptest.Server
	store    cachestore.Store
}

func newStack(t *testing.T, wsdlURL string, backend cachestore.Backend, cachePath string) *stack {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics := observability.NewMetricsForTesting()

	store, err := cachestore.Open(cachestore.Options{Backend: backend, Path: cachePath})
	require.NoError(t, err)

	client := hydroportal.NewClient(hydroportal.Options{
		WSDLURL:   wsdlURL,
		Timeout:   10 * time.Second,
		Transport: hydroportal.NewCachingTransport(http.DefaultTransport, store, time.Minute, logger, metrics),
	}, logger, metrics)

	p := pipeline.New(client, logger, metrics)
	api := httptest.NewServer(httpadapter.NewServer(httpadapter.Options{}, p, logger))
	t.Cleanup(api.Close)

	return &stack{pipeline: p, api: api, store: store}
}

func (s *stack) close(t *testing.T) {
	t.Helper()
	s.api.Close()
	require.NoError(t, s.store.Close())
}

func getJSON(t *testing.T, url string, v any) int {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if v != nil && resp.StatusCode == http.StatusOK {
		require.NoError(t, json.Unmarshal(body, v), string(body))
	}
	return resp.StatusCode
}

func TestEndToEnd_SitesVariablesValues(t *testing.T) {
	for _, backend := range backends {
		t.Run(string(backend), func(t *testing.T) {
			srv := fakeHydroPortal(t)
			s := newStack(t, srv.WSDLURL(), backend, filepath.Join(t.TempDir(), "cache"))
			defer s.close(t)

			assert.Equal(t, http.StatusServiceUnavailable, getJSON(t, s.api.URL+"/readyz", nil))

			var sites []domain.Site
			require.Equal(t, http.StatusOK, getJSON(t, s.api.URL+"/api/sites?state=MT", &sites))
			require.Len(t, sites, 2)
			for _, site := range sites {
				assert.Equal(t, "MT", site.State)
			}
			assert.Equal(t, http.StatusOK, getJSON(t, s.api.URL+"/readyz", nil))

			var vars []domain.Variable
			require.Equal(t, http.StatusOK, getJSON(t, s.api.URL+"/api/sites/301_CA_SNTL/variables", &vars))
			assert.Len(t, vars, 3)

			var obs []domain.Observation
			require.Equal(t, http.StatusOK, getJSON(t,
				s.api.URL+"/api/sites/301_CA_SNTL/values?variable=WTEQ_D&start=2000-01-01&end=2000-01-10", &obs))
			require.Len(t, obs, 4)
			assert.Equal(t, time.Date(2000, 1, 1, 8, 0, 0, 0, time.UTC), obs[0].Time)
			for _, o := range obs {
				assert.NotEqual(t, -9999.0, o.Value)
			}

			last := srv.Requests()[len(srv.Requests())-1]
			assert.Equal(t, hydroportal.OpGetValues, last.Operation)
			assert.Contains(t, string(last.Body), "SNOTEL:WTEQ_D")
			assert.Contains(t, string(last.Body), "2000-01-10T00:00:00")
		})
	}
}

func TestEndToEnd_InvalidSiteMakesNoDataCall(t *testing.T) {
	srv := fakeHydroPortal(t)
	s := newStack(t, srv.WSDLURL(), cachestore.BackendSQLite, filepath.Join(t.TempDir(), "cache.sqlite"))
	defer s.close(t)

	status := getJSON(t, s.api.URL+"/api/sites/"+domain.InvalidSiteCode+"/values?variable=WTEQ_D&start=2000-01-01&end=2000-01-10", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Zero(t, srv.Calls(hydroportal.OpGetValues))
}

func TestEndToEnd_CacheSurvivesRestart(t *testing.T) {
	for _, backend := range backends {
		t.Run(string(backend), func(t *testing.T) {
			srv := fakeHydroPortal(t)
			cachePath := filepath.Join(t.TempDir(), "cache")

			first := newStack(t, srv.WSDLURL(), backend, cachePath)
			sites, err := first.pipeline.Sites(context.Background(), domain.SiteFilter{})
			require.NoError(t, err)
			require.Len(t, sites, 5)
			_, err = first.pipeline.Sites(context.Background(), domain.SiteFilter{})
			require.NoError(t, err)
			first.close(t)

			assert.Equal(t, 1, srv.Calls(hydroportal.OpGetSites), "repeat request served from cache")
			assert.Equal(t, 1, srv.WSDLHits())

			second := newStack(t, srv.WSDLURL(), backend, cachePath)
			defer second.close(t)
			again, err := second.pipeline.Sites(context.Background(), domain.SiteFilter{})
			require.NoError(t, err)

			assert.Equal(t, sites, again)
			assert.Equal(t, 1, srv.Calls(hydroportal.OpGetSites), "cache persisted across clients")
			assert.Equal(t, 1, srv.WSDLHits())
		})
	}
}

func TestEndToEnd_FaultIsNotCached(t *testing.T) {
	srv := fakeHydroPortal(t)
	s := newStack(t, srv.WSDLURL(), cachestore.BackendSQLite, filepath.Join(t.TempDir(), "cache.sqlite"))
	defer s.close(t)

	srv.SetFault(hydroportal.OpGetSites, "Server was unable to process request")
	assert.Equal(t, http.StatusBadGateway, getJSON(t, s.api.URL+"/api/sites", nil))

	srv.SetPayload(hydroportal.OpGetSites, readFixture(t, "sites.xml"))
	var sites []domain.Site
	require.Equal(t, http.StatusOK, getJSON(t, s.api.URL+"/api/sites", &sites))
	assert.Len(t, sites, 5)
	assert.Equal(t, 2, srv.Calls(hydroportal.OpGetSites))
}
