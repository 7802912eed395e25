package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/norlandrhagen/snowintel/internal/adapter/hydroportal"
	"github.com/norlandrhagen/snowintel/internal/adapter/hydroportal/soaptest"
	"github.com/norlandrhagen/snowintel/internal/observability"
)

func readFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "..", "internal", "domain", "testdata", name))
	require.NoError(t, err)
	return data
}

func TestRun_RecordsFixtures(t *testing.T) {
	payloads := map[string][]byte{
		hydroportal.OpGetSites:    readFixture(t, "sites.xml"),
		hydroportal.OpGetSiteInfo: readFixture(t, "siteinfo.xml"),
		hydroportal.OpGetValues:   readFixture(t, "values.xml"),
	}
	srv := soaptest.NewServer(payloads)
	t.Cleanup(srv.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := hydroportal.NewClient(hydroportal.Options{WSDLURL: srv.WSDLURL(), Timeout: 5 * time.Second}, logger, observability.NewMetricsForTesting())

	dir := filepath.Join(t.TempDir(), "testdata")
	opts := options{site: "301_CA_SNTL", variable: "WTEQ_D", start: "2000-01-01", end: "2000-01-31", outDir: dir}

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), client, opts, &out, logger))

	for _, name := range []string{"sites.xml", "siteinfo.xml", "values.xml"} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err, name)
		assert.Contains(t, string(data), "Response", name)
	}
	assert.Contains(t, out.String(), "Sites: 5")
	assert.Contains(t, out.String(), "Variables: SNWD_D,WTEQ_D,TAVG_D")
	assert.Contains(t, out.String(), "Observations: 4 kept, 2 dropped")

	reqs := srv.Requests()
	require.NotEmpty(t, reqs)
	last := reqs[len(reqs)-1]
	assert.Equal(t, hydroportal.OpGetValues, last.Operation)
	assert.Contains(t, string(last.Body), "SNOTEL:301_CA_SNTL")
	assert.Contains(t, string(last.Body), "2000-01-31T00:00:00")
}

func TestRun_BadDates(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	opts := options{site: "301_CA_SNTL", variable: "WTEQ_D", start: "2000-02-01", end: "2000-01-01", outDir: t.TempDir()}

	err := run(context.Background(), nil, opts, io.Discard, logger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "before start")
}
