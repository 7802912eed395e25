//go:build nomap

package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/norlandrhagen/snowintel/internal/adapter/hydroportal"
)

func TestRun_Map_Unavailable(t *testing.T) {
	srv := setup(t)

	code, _, stderr := runCLI(t, context.Background(), "map")
	assert.Equal(t, exitError, code)
	assert.Contains(t, stderr, "nomap")
	assert.Zero(t, srv.Calls(hydroportal.OpGetSites), "no remote call without map support")
}
