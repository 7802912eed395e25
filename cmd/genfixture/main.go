// Command genfixture records live HydroPortal responses as WaterML fixture
// files for the test suites. Each payload is the document extracted from the
// SOAP envelope, exactly as the normalizers receive it.
//
// Usage:
//
//	go run ./cmd/genfixture \
//	  --site 301_CA_SNTL --variable WTEQ_D \
//	  --start 2000-01-01 --end 2000-01-31 \
//	  --out internal/domain/testdata
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/norlandrhagen/snowintel/internal/adapter/hydroportal"
	"github.com/norlandrhagen/snowintel/internal/domain"
	"github.com/norlandrhagen/snowintel/internal/observability"
)

type options struct {
	wsdlURL  string
	site     string
	variable string
	start    string
	end      string
	outDir   string
	timeout  time.Duration
}

func main() {
	var opts options
	flag.StringVar(&opts.wsdlURL, "wsdl", hydroportal.DefaultWSDLURL, "service description URL")
	flag.StringVarP(&opts.site, "site", "s", "301_CA_SNTL", "site code for siteinfo.xml and values.xml")
	flag.StringVarP(&opts.variable, "variable", "v", "WTEQ_D", "variable code for values.xml")
	flag.StringVar(&opts.start, "start", "2000-01-01", "first day, YYYY-MM-DD")
	flag.StringVar(&opts.end, "end", "2000-01-31", "last day, YYYY-MM-DD")
	flag.StringVarP(&opts.outDir, "out", "o", "", "output directory (required)")
	flag.DurationVar(&opts.timeout, "timeout", hydroportal.DefaultTimeout, "per-request timeout")
	flag.Parse()

	if opts.outDir == "" {
		flag.Usage()
		fmt.Fprintln(os.Stderr, "missing required flag: --out")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := observability.NewLogger(os.Stderr, "info", "text")
	client := hydroportal.NewClient(hydroportal.Options{
		WSDLURL: opts.wsdlURL,
		Timeout: opts.timeout,
	}, logger, observability.NewMetricsForTesting())

	if err := run(ctx, client, opts, os.Stdout, logger); err != nil {
		logger.Error("genfixture failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, svc domain.WaterService, opts options, out io.Writer, logger *slog.Logger) error {
	start, err := domain.ParseDate(opts.start)
	if err != nil {
		return err
	}
	end, err := domain.ParseDate(opts.end)
	if err != nil {
		return err
	}
	if err := domain.CheckDateRange(start, end); err != nil {
		return err
	}

	sites, err := svc.GetSites(ctx, "")
	if err != nil {
		return fmt.Errorf("GetSites: %w", err)
	}
	siteInfo, err := svc.GetSiteInfo(ctx, domain.NetworkPrefix+opts.site)
	if err != nil {
		return fmt.Errorf("GetSiteInfo: %w", err)
	}
	values, err := svc.GetValues(ctx,
		domain.NetworkPrefix+opts.site,
		domain.NetworkPrefix+opts.variable,
		domain.ISODateTime(start),
		domain.ISODateTime(end),
	)
	if err != nil {
		return fmt.Errorf("GetValues: %w", err)
	}

	for name, data := range map[string][]byte{
		"sites.xml":    sites,
		"siteinfo.xml": siteInfo,
		"values.xml":   values,
	} {
		path := filepath.Join(opts.outDir, name)
		if err := writeFixture(path, data); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
		logger.Info("wrote fixture", "path", path, "bytes", len(data))
	}

	return printStats(out, sites, siteInfo, values)
}

func writeFixture(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if len(data) > 0 && data[len(data)-1] != '\n' {
		data = append(data, '\n')
	}
	return os.WriteFile(path, data, 0o600)
}

// printStats summarizes the normalized fixtures for updating test assertions.
func printStats(out io.Writer, sitesRaw, siteInfoRaw, valuesRaw []byte) error {
	sites, err := domain.ParseSites(sitesRaw)
	if err != nil {
		return err
	}
	vars, err := domain.ParseVariables(siteInfoRaw)
	if err != nil {
		return err
	}
	obs, dropped, err := domain.ParseObservations(valuesRaw)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "\n=== Stats for updating test assertions ===")
	fmt.Fprintf(out, "Sites: %d\n", len(sites))

	stateCounts := map[string]int{}
	for _, s := range sites {
		stateCounts[s.State]++
	}
	states := make([]string, 0, len(stateCounts))
	for st := range stateCounts {
		states = append(states, st)
	}
	sort.Strings(states)
	parts := make([]string, len(states))
	for i, st := range states {
		parts[i] = fmt.Sprintf("%s=%d", st, stateCounts[st])
	}
	fmt.Fprintf(out, "States (%d): %s\n", len(states), strings.Join(parts, " "))

	if sw, ne, ok := sites.Bounds(); ok {
		fmt.Fprintf(out, "Bounds: SW %v, NE %v\n", sw, ne)
	}
	fmt.Fprintf(out, "Variables: %s\n", strings.Join(vars.Codes(), ","))
	fmt.Fprintf(out, "Observations: %d kept, %d dropped\n", len(obs), dropped)
	if len(obs) > 0 {
		fmt.Fprintf(out, "  first: %s = %g\n", obs[0].Time.Format(time.RFC3339), obs[0].Value)
		fmt.Fprintf(out, "  last:  %s = %g\n", obs[len(obs)-1].Time.Format(time.RFC3339), obs[len(obs)-1].Value)
	}
	return nil
}
