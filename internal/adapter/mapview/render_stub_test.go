//go:build nomap

package mapview

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/norlandrhagen/snowintel/internal/domain"
)

func TestRender_Unavailable(t *testing.T) {
	assert.False(t, Available())

	var buf bytes.Buffer
	err := Render(&buf, domain.Sites{{SiteCode: "301_CA_SNTL"}}, Options{})

	var depErr *domain.MissingDependencyError
	require.ErrorAs(t, err, &depErr)
	assert.Contains(t, depErr.Hint, "nomap")
	assert.Zero(t, buf.Len())
}
