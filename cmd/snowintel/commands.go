package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	flag "github.com/spf13/pflag"

	httpadapter "github.com/norlandrhagen/snowintel/internal/adapter/http"
	"github.com/norlandrhagen/snowintel/internal/adapter/mapview"
	"github.com/norlandrhagen/snowintel/internal/adapter/tabular"
	"github.com/norlandrhagen/snowintel/internal/domain"
	"github.com/norlandrhagen/snowintel/internal/pipeline"
)

// defaultValueDays is the window fetched when no dates are given.
const defaultValueDays = 30

const formatGeoJSON = "geojson"

func newFlagSet(name string, a *app) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return usageError{msg: err.Error()}
	}
	if fs.NArg() > 0 {
		return usagef("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	return nil
}

// siteFilterFlags binds the site table filters shared by sites and map.
type siteFilterFlags struct {
	fs       *flag.FlagSet
	states   *[]string
	minElev  *float64
	maxElev  *float64
	lat      *float64
	lon      *float64
	radiusKm *float64
}

func addSiteFilterFlags(fs *flag.FlagSet) *siteFilterFlags {
	return &siteFilterFlags{
		fs:       fs,
		states:   fs.StringSlice("state", nil, "two-letter state code(s), e.g. MT,CO"),
		minElev:  fs.Float64("min-elevation", 0, "minimum elevation in meters (inclusive)"),
		maxElev:  fs.Float64("max-elevation", 0, "maximum elevation in meters (inclusive)"),
		lat:      fs.Float64("lat", 0, "latitude of the search centre"),
		lon:      fs.Float64("lon", 0, "longitude of the search centre"),
		radiusKm: fs.Float64("radius-km", 0, "search radius in kilometres around --lat/--lon"),
	}
}

func (f *siteFilterFlags) filter() (domain.SiteFilter, error) {
	filter := domain.SiteFilter{States: *f.states}
	if f.fs.Changed("min-elevation") {
		filter.MinElevationM = f.minElev
	}
	if f.fs.Changed("max-elevation") {
		filter.MaxElevationM = f.maxElev
	}

	n := 0
	for _, name := range []string{"lat", "lon", "radius-km"} {
		if f.fs.Changed(name) {
			n++
		}
	}
	switch n {
	case 0:
	case 3:
		filter.Near = &domain.Near{Latitude: *f.lat, Longitude: *f.lon, RadiusKm: *f.radiusKm}
	default:
		return filter, usagef("--lat, --lon and --radius-km must be given together")
	}
	return filter, nil
}

func runSites(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("sites", a)
	filters := addSiteFilterFlags(fs)
	format := fs.StringP("format", "f", string(tabular.Text), "output format: text, csv, json or geojson")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	filter, err := filters.filter()
	if err != nil {
		return err
	}

	geojson := strings.EqualFold(*format, formatGeoJSON)
	var tf tabular.Format
	if !geojson {
		if tf, err = tabular.ParseFormat(*format); err != nil {
			return usageError{msg: err.Error()}
		}
	}

	sites, err := a.pipeline.Sites(ctx, filter)
	if err != nil {
		return err
	}
	if geojson {
		return mapview.GeoJSON(a.stdout, sites)
	}
	return tabular.Write(a.stdout, sites, tf)
}

func runVariables(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("variables", a)
	site := fs.StringP("site", "s", "", "site code, e.g. 301_CA_SNTL (required)")
	format := fs.StringP("format", "f", string(tabular.Text), "output format: text, csv or json")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if strings.TrimSpace(*site) == "" {
		return usagef("--site is required")
	}
	tf, err := tabular.ParseFormat(*format)
	if err != nil {
		return usageError{msg: err.Error()}
	}

	vars, err := a.pipeline.SiteVariables(ctx, strings.TrimSpace(*site))
	if err != nil {
		return err
	}
	return tabular.Write(a.stdout, vars, tf)
}

func runValues(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("values", a)
	site := fs.StringP("site", "s", "", "site code, e.g. 301_CA_SNTL (required)")
	variable := fs.StringP("variable", "v", "", "variable code, e.g. WTEQ_D (required)")
	start := fs.String("start", "", "first day, YYYY-MM-DD (default: --days before --end)")
	end := fs.String("end", "", "last day, YYYY-MM-DD (default: today)")
	days := fs.Int("days", defaultValueDays, "window length used when --start is omitted")
	format := fs.StringP("format", "f", string(tabular.Text), "output format: text, csv or json")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if strings.TrimSpace(*site) == "" || strings.TrimSpace(*variable) == "" {
		return usagef("--site and --variable are required")
	}
	if *days < 0 {
		return usagef("--days must not be negative")
	}
	tf, err := tabular.ParseFormat(*format)
	if err != nil {
		return usageError{msg: err.Error()}
	}

	startDate, endDate, err := resolveDates(*start, *end, *days)
	if err != nil {
		return err
	}
	req, err := pipeline.NewFetchRequest(*site, *variable, startDate, endDate)
	if err != nil {
		return err
	}

	obs, err := a.pipeline.Fetch(ctx, req)
	if err != nil {
		return err
	}
	return tabular.Write(a.stdout, obs, tf)
}

// resolveDates fills in a missing end (today) and a missing start (days
// before end).
func resolveDates(start, end string, days int) (string, string, error) {
	start, end = strings.TrimSpace(start), strings.TrimSpace(end)
	if end == "" {
		_, today := domain.DefaultDateRange(0)
		end = today.Format(domain.DateLayout)
	}
	if start == "" {
		e, err := domain.ParseDate(end)
		if err != nil {
			return "", "", err
		}
		start = e.AddDate(0, 0, -days).Format(domain.DateLayout)
	}
	return start, end, nil
}

func runMap(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("map", a)
	filters := addSiteFilterFlags(fs)
	basemap := fs.String("basemap", a.cfg.MapBasemap, "basemap: "+strings.Join(mapview.BasemapNames(), ", "))
	title := fs.String("title", "", "page title")
	output := fs.StringP("output", "o", "snotel_sites.html", "output HTML file, - for stdout")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if !mapview.Available() {
		return mapview.Render(nil, nil, mapview.Options{})
	}
	if _, err := mapview.LookupBasemap(*basemap); err != nil {
		return usageError{msg: err.Error()}
	}
	filter, err := filters.filter()
	if err != nil {
		return err
	}

	sites, err := a.pipeline.Sites(ctx, filter)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := mapview.Render(&buf, sites, mapview.Options{Basemap: *basemap, Title: *title}); err != nil {
		return err
	}
	if *output == "-" {
		_, err := a.stdout.Write(buf.Bytes())
		return err
	}
	if err := os.WriteFile(*output, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write map: %w", err)
	}
	a.logger.Info("map written", "path", *output, "sites", len(sites), "basemap", *basemap)
	return nil
}

func runServe(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("serve", a)
	addr := fs.String("addr", a.cfg.HTTPAddr, "listen address")
	refresh := fs.Duration("refresh-interval", a.cfg.RefreshInterval, "site table refresh interval; 0 fetches it once")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	srv := httpadapter.NewServer(httpadapter.Options{
		Addr:    *addr,
		Basemap: a.cfg.MapBasemap,
	}, a.pipeline, a.logger)

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	warmCtx, cancelWarm := context.WithCancel(ctx)
	defer cancelWarm()
	go a.pipeline.Warm(warmCtx, *refresh)

	select {
	case <-ctx.Done():
		a.logger.Info("shutting down")
	case err := <-serveErr:
		return fmt.Errorf("http server: %w", err)
	}
	cancelWarm()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	a.logger.Info("shutdown complete")
	return nil
}
