// Package cachestore provides the key/value stores behind the SOAP response
// cache. Values are opaque byte slices with a per-entry time to live.
package cachestore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
)

// Store is a key/value store with per-entry expiry.
type Store interface {
	// Get returns the value for key. ok is false when the key is absent or
	// its entry has expired.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Close() error
}

// Backend names a Store implementation.
type Backend string

const (
	BackendSQLite Backend = "sqlite"
	BackendBadger Backend = "badger"
	BackendMemory Backend = "memory"
	BackendNone   Backend = "none"
)

// DefaultMaxEntries bounds the memory store when no size is configured.
const DefaultMaxEntries = 1000

// Options selects and configures a backend.
type Options struct {
	Backend    Backend
	Path       string // sqlite file or badger directory; empty uses DefaultPath
	MaxEntries int    // memory store only
	Clock      clockwork.Clock
}

// DefaultPath returns the cache location used when none is configured: a file
// (sqlite) or directory (badger) in the OS temp directory.
func DefaultPath(backend Backend) string {
	name := "snowintel-cache.sqlite"
	if backend == BackendBadger {
		name = "snowintel-cache.badger"
	}
	return filepath.Join(os.TempDir(), name)
}

// Open creates the configured store. BackendNone returns a nil Store and no
// error; callers skip the caching transport in that case.
func Open(opts Options) (Store, error) {
	backend := Backend(strings.ToLower(string(opts.Backend)))
	if backend == "" {
		backend = BackendSQLite
	}
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	path := opts.Path
	if path == "" {
		path = DefaultPath(backend)
	}

	switch backend {
	case BackendSQLite:
		return OpenSQLite(path, clock)
	case BackendBadger:
		return OpenBadger(path)
	case BackendMemory:
		return NewMemory(opts.MaxEntries, clock), nil
	case BackendNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", opts.Backend)
	}
}
