// Package pipeline orchestrates site, variable and time-series retrieval:
// it validates requests against the live service and normalizes each
// response into a domain table.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"

	"github.com/norlandrhagen/snowintel/internal/domain"
	"github.com/norlandrhagen/snowintel/internal/observability"
)

// Pipeline answers site, variable and observation queries against a
// domain.WaterService.
type Pipeline struct {
	service domain.WaterService
	logger  *slog.Logger
	metrics *observability.Metrics
	ready   atomic.Bool
}

// New creates a Pipeline over the given service.
func New(service domain.WaterService, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		service: service,
		logger:  logger,
		metrics: metrics,
	}
}

// CheckReadiness returns nil once a site table has been fetched successfully,
// or an error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("site table has not been fetched yet")
	}
	return nil
}

// Sites fetches the full site table and applies filter. The returned table is
// a fresh snapshot owned by the caller.
func (p *Pipeline) Sites(ctx context.Context, filter domain.SiteFilter) (domain.Sites, error) {
	if err := filter.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	all, err := p.allSites(ctx)
	if err != nil {
		return nil, err
	}

	sites := all.Filter(filter)
	p.metrics.SitesReturned.Set(float64(len(sites)))
	p.logger.Debug("sites fetched", "total", len(all), "returned", len(sites))
	return sites, nil
}

func (p *Pipeline) allSites(ctx context.Context) (domain.Sites, error) {
	raw, err := p.service.GetSites(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("get sites: %w", err)
	}
	sites, err := domain.ParseSites(raw)
	if err != nil {
		return nil, err
	}
	p.ready.Store(true)
	return sites, nil
}

// Fetch validates req against the live site and variable tables and returns
// the normalized observations. No time series is requested unless both the
// site and the variable are known.
func (p *Pipeline) Fetch(ctx context.Context, req FetchRequest) (domain.Observations, error) {
	if err := req.Validate(); err != nil {
		var dateErr *domain.DateFormatError
		if errors.As(err, &dateErr) {
			p.metrics.ValidationFailures.WithLabelValues("date").Inc()
		}
		return nil, err
	}

	ok, err := p.ValidateSite(ctx, req.SiteID)
	if err != nil {
		return nil, err
	}
	if !ok {
		p.metrics.ValidationFailures.WithLabelValues("site").Inc()
		return nil, &domain.InvalidSiteError{SiteID: req.SiteID}
	}

	vars, err := p.SiteVariables(ctx, req.SiteID)
	if err != nil {
		return nil, err
	}
	if missing := vars.Missing(req.Variable); len(missing) > 0 {
		p.metrics.ValidationFailures.WithLabelValues("variable").Inc()
		return nil, &domain.InvalidVariableError{SiteID: req.SiteID, Variables: missing}
	}

	start := time.Now()
	raw, err := p.service.GetValues(ctx,
		domain.NetworkPrefix+req.SiteID,
		domain.NetworkPrefix+req.Variable,
		domain.ISODateTime(req.Start),
		domain.ISODateTime(req.End),
	)
	if err != nil {
		return nil, fmt.Errorf("get values: %w", err)
	}

	obs, dropped, err := domain.ParseObservations(raw)
	if err != nil {
		return nil, err
	}

	p.metrics.ObservationsReturned.Add(float64(len(obs)))
	p.metrics.ObservationsDropped.Add(float64(dropped))
	p.logger.Info("observations fetched",
		"site", req.SiteID,
		"variable", req.Variable,
		"rows", len(obs),
		"dropped", dropped,
		"duration", time.Since(start),
	)
	return obs, nil
}

// Warm fetches the site table immediately and then every interval until ctx
// is cancelled, keeping readiness and the response cache current. Failures
// are logged and retried at the next tick.
func (p *Pipeline) Warm(ctx context.Context, interval time.Duration) {
	for {
		if _, err := p.allSites(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			p.logger.Warn("site table refresh failed", "error", err)
		}
		if interval <= 0 || !retry.SleepWithContext(ctx, interval) {
			return
		}
	}
}
