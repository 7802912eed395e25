package domain

import "context"

// NetworkPrefix is the namespace token the service expects in front of site
// and variable codes.
const NetworkPrefix = "SNOTEL:"

// WaterService is the remote WaterOneFlow service. Each call returns the raw
// WaterML document extracted from the SOAP response.
type WaterService interface {
	// GetSites lists every site in the network. region is passed through as
	// the site filter; an empty string requests all sites.
	GetSites(ctx context.Context, region string) ([]byte, error)

	// GetSiteInfo describes one site, including its series catalog.
	GetSiteInfo(ctx context.Context, site string) ([]byte, error)

	// GetValues returns the time series for one site and variable between two
	// ISO-8601 date-times.
	GetValues(ctx context.Context, site, variable, startDate, endDate string) ([]byte, error)
}
