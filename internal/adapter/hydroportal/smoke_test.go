//go:build hydroportal

package hydroportal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/norlandrhagen/snowintel/internal/domain"
)

// These tests hit the live HydroPortal service.
// Run with: go test -tags=hydroportal ./internal/adapter/hydroportal/ -v -count=1

func smokeClient(t *testing.T) *Client {
	t.Helper()
	return NewClient(Options{Timeout: 90 * time.Second}, testLogger(), testMetrics())
}

func TestSmoke_GetSites(t *testing.T) {
	c := smokeClient(t)

	raw, err := c.GetSites(context.Background(), "")
	require.NoError(t, err)

	sites, err := domain.ParseSites(raw)
	require.NoError(t, err)
	assert.Greater(t, len(sites), 500, "SNOTEL has several hundred stations")
	assert.False(t, sites.Contains(domain.InvalidSiteCode))
	assert.True(t, sites.Contains("301_CA_SNTL"))
}

func TestSmoke_GetSiteInfo(t *testing.T) {
	c := smokeClient(t)

	raw, err := c.GetSiteInfo(context.Background(), domain.NetworkPrefix+"301_CA_SNTL")
	require.NoError(t, err)

	vars, err := domain.ParseVariables(raw)
	require.NoError(t, err)
	assert.Empty(t, vars.Missing("WTEQ_D"))
}

func TestSmoke_GetValues(t *testing.T) {
	c := smokeClient(t)

	raw, err := c.GetValues(context.Background(),
		domain.NetworkPrefix+"301_CA_SNTL", domain.NetworkPrefix+"WTEQ_D",
		"2000-01-01T00:00:00", "2000-02-02T00:00:00")
	require.NoError(t, err)

	obs, _, err := domain.ParseObservations(raw)
	require.NoError(t, err)
	assert.NotEmpty(t, obs)
	assert.Equal(t, []string{"time", "value"}, obs.Columns())
}
