package pipeline

import (
	"context"
	"fmt"

	"github.com/norlandrhagen/snowintel/internal/domain"
)

// ValidateSite reports whether siteID is in the current site table. A
// transport failure is returned as an error, never as false.
func (p *Pipeline) ValidateSite(ctx context.Context, siteID string) (bool, error) {
	sites, err := p.allSites(ctx)
	if err != nil {
		return false, err
	}
	return sites.Contains(siteID), nil
}

// SiteVariables returns the variables measured at siteID.
func (p *Pipeline) SiteVariables(ctx context.Context, siteID string) (domain.Variables, error) {
	raw, err := p.service.GetSiteInfo(ctx, domain.NetworkPrefix+siteID)
	if err != nil {
		return nil, fmt.Errorf("get site info: %w", err)
	}
	return domain.ParseVariables(raw)
}

// ValidateVariables reports whether every code in codes is offered by siteID.
// An empty codes list is trivially valid.
func (p *Pipeline) ValidateVariables(ctx context.Context, siteID string, codes ...string) (bool, error) {
	vars, err := p.SiteVariables(ctx, siteID)
	if err != nil {
		return false, err
	}
	return len(vars.Missing(codes...)) == 0, nil
}
