//go:build !nomap

package http_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMap(t *testing.T) {
	rec := get(newTestServer(&mockService{}), "/map?state=CA&basemap=esri_satellite")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "World_Imagery")
	assert.Contains(t, rec.Body.String(), "301_CA_SNTL")
	assert.NotContains(t, rec.Body.String(), "907_MT_SNTL")
}

func TestMap_Errors(t *testing.T) {
	srv := newTestServer(&mockService{})

	assert.Equal(t, http.StatusBadRequest, get(srv, "/map?basemap=bing").Code)
	assert.Equal(t, http.StatusBadRequest, get(srv, "/map?state=XX").Code, "empty table has nothing to map")
}
