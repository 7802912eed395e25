// Command snowintel queries SNOTEL stations through the CUAHSI HydroPortal
// WaterOneFlow service.
//
// Usage:
//
//	snowintel sites [--state MT,CO] [--min-elevation M] [--max-elevation M] [--format text|csv|json|geojson]
//	snowintel variables --site 301_CA_SNTL [--format text|csv|json]
//	snowintel values --site 301_CA_SNTL --variable WTEQ_D [--start 2000-01-01] [--end 2000-02-02]
//	snowintel map [--state MT] [--basemap google_terrain] [-o snotel_sites.html]
//	snowintel serve [--addr :8080]
//
// Settings come from the environment and an optional YAML file; see
// internal/config.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"

	flag "github.com/spf13/pflag"

	"github.com/norlandrhagen/snowintel/internal/adapter/cachestore"
	"github.com/norlandrhagen/snowintel/internal/adapter/hydroportal"
	"github.com/norlandrhagen/snowintel/internal/config"
	"github.com/norlandrhagen/snowintel/internal/observability"
	"github.com/norlandrhagen/snowintel/internal/pipeline"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

type commandFunc func(ctx context.Context, a *app, args []string) error

type command struct {
	summary string
	run     commandFunc
}

var commands = map[string]command{
	"sites":     {"list SNOTEL sites, optionally filtered", runSites},
	"variables": {"list the variables a site records", runVariables},
	"values":    {"fetch one variable's daily values for a site", runValues},
	"map":       {"render the sites as an interactive HTML map", runMap},
	"serve":     {"serve the HTTP API with health and metrics endpoints", runServe},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr, observability.NewMetrics())
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer, metrics *observability.Metrics) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		usage(stderr)
		if len(args) == 0 {
			return exitUsage
		}
		return exitOK
	}

	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n\n", args[0])
		usage(stderr)
		return exitUsage
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "failed to load config: %v\n", err)
		return exitError
	}

	a, err := newApp(cfg, stdout, stderr, metrics)
	if err != nil {
		fmt.Fprintf(stderr, "startup: %v\n", err)
		return exitError
	}
	defer func() {
		if err := a.Close(); err != nil {
			a.logger.Error("cache close error", "error", err)
		}
	}()

	if err := cmd.run(ctx, a, args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		var uerr usageError
		if errors.As(err, &uerr) {
			fmt.Fprintf(stderr, "%s: %v\n", args[0], err)
			return exitUsage
		}
		a.logger.Error("command failed", "command", args[0], "error", err)
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitError
	}
	return exitOK
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: snowintel <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "commands:")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-10s %s\n", name, commands[name].summary)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "run 'snowintel <command> --help' for command flags")
}

// usageError reports bad command-line input.
type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return usageError{msg: fmt.Sprintf(format, args...)}
}

// app holds the wired dependencies shared by every command.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	metrics  *observability.Metrics
	store    cachestore.Store
	pipeline *pipeline.Pipeline
	stdout   io.Writer
	stderr   io.Writer
}

func newApp(cfg *config.Config, stdout, stderr io.Writer, metrics *observability.Metrics) (*app, error) {
	// stdout carries command output, so logs go to stderr.
	logger := observability.NewLogger(stderr, cfg.LogLevel, cfg.LogFormat)

	store, err := cachestore.Open(cachestore.Options{
		Backend:    cachestore.Backend(cfg.Cache.Backend),
		Path:       cfg.Cache.Path,
		MaxEntries: cfg.Cache.MaxEntries,
	})
	if err != nil {
		return nil, fmt.Errorf("open response cache: %w", err)
	}

	var transport http.RoundTripper
	if store != nil {
		transport = hydroportal.NewCachingTransport(http.DefaultTransport, store, cfg.Cache.TTL, logger, metrics)
		logger.Debug("response cache enabled", "backend", cfg.Cache.Backend, "ttl", cfg.Cache.TTL)
	} else {
		logger.Debug("response cache disabled")
	}

	client := hydroportal.NewClient(hydroportal.Options{
		WSDLURL:   cfg.WSDLURL,
		Timeout:   cfg.SOAPTimeout,
		Transport: transport,
	}, logger, metrics)

	return &app{
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics,
		store:    store,
		pipeline: pipeline.New(client, logger, metrics),
		stdout:   stdout,
		stderr:   stderr,
	}, nil
}

func (a *app) Close() error {
	if a.store == nil {
		return nil
	}
	return a.store.Close()
}
