//go:build nomap

package mapview

import (
	"io"

	"github.com/norlandrhagen/snowintel/internal/domain"
)

// Options controls map rendering.
type Options struct {
	Basemap string
	Title   string
}

// Available reports whether map rendering was compiled in.
func Available() bool { return false }

// Render always fails in builds without map support.
func Render(io.Writer, domain.Sites, Options) error {
	return &domain.MissingDependencyError{
		Feature: "map rendering",
		Hint:    "this binary was built with -tags nomap; rebuild without it",
	}
}
