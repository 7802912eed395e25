// Package hydroportal is a SOAP client for the CUAHSI HydroPortal
// WaterOneFlow 1.1 service that publishes SNOTEL station data.
package hydroportal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/norlandrhagen/snowintel/internal/domain"
	"github.com/norlandrhagen/snowintel/internal/observability"
)

// DefaultWSDLURL is the SNOTEL WaterOneFlow 1.1 service description.
const DefaultWSDLURL = "https://hydroportal.cuahsi.org/Snotel/cuahsi_1_1.asmx?WSDL"

// DefaultTimeout bounds each HTTP round-trip when Options.Timeout is unset.
const DefaultTimeout = 60 * time.Second

// Operation names as advertised by the service.
const (
	OpGetSites    = "GetSites"
	OpGetSiteInfo = "GetSiteInfo"
	OpGetValues   = "GetValues"
	opWSDL        = "WSDL"
)

// Options configures a Client.
type Options struct {
	WSDLURL   string
	Timeout   time.Duration
	Transport http.RoundTripper // nil uses http.DefaultTransport
}

// Client implements domain.WaterService over SOAP 1.1.
type Client struct {
	wsdlURL    string
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *observability.Metrics

	mu   sync.Mutex
	desc *ServiceDescription
}

// NewClient creates a HydroPortal client. No network I/O happens until the
// first operation.
func NewClient(opts Options, logger *slog.Logger, metrics *observability.Metrics) *Client {
	if opts.WSDLURL == "" {
		opts.WSDLURL = DefaultWSDLURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Client{
		wsdlURL: opts.WSDLURL,
		httpClient: &http.Client{
			Timeout:   opts.Timeout,
			Transport: opts.Transport,
		},
		logger:  logger,
		metrics: metrics,
	}
}

// Describe fetches and parses the WSDL on first use and returns the memoized
// description afterwards. A failed fetch is not memoized.
func (c *Client) Describe(ctx context.Context) (*ServiceDescription, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.desc != nil {
		return c.desc, nil
	}

	start := time.Now()
	desc, err := c.fetchWSDL(ctx)
	c.observe(opWSDL, start, err)
	if err != nil {
		return nil, &domain.TransportError{Op: opWSDL, Err: err}
	}

	c.logger.Debug("service description loaded",
		"endpoint", desc.Endpoint,
		"namespace", desc.TargetNamespace,
		"operations", len(desc.actions),
	)
	c.desc = desc
	return desc, nil
}

func (c *Client) fetchWSDL(ctx context.Context) (*ServiceDescription, error) {
	base, err := url.Parse(c.wsdlURL)
	if err != nil {
		return nil, fmt.Errorf("parse wsdl url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.wsdlURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("wsdl request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("wsdl request: status %d: %s", resp.StatusCode, body)
	}
	return ParseWSDL(resp.Body, base)
}

// GetSites returns the raw WaterML sitesResponse. An empty region requests
// every site in the network.
func (c *Client) GetSites(ctx context.Context, region string) ([]byte, error) {
	site := element{Name: "site"}
	if region != "" {
		site.Children = []element{{Name: "string", Value: region}}
	}
	return c.call(ctx, OpGetSites, []element{
		site,
		{Name: "authToken"},
	})
}

// GetSiteInfo returns the raw WaterML sitesResponse for one network-qualified
// site, including its series catalog.
func (c *Client) GetSiteInfo(ctx context.Context, site string) ([]byte, error) {
	return c.call(ctx, OpGetSiteInfo, []element{
		{Name: "site", Value: site},
		{Name: "authToken"},
	})
}

// GetValues returns the raw WaterML timeSeriesResponse for one site and
// variable between two ISO-8601 date-times.
func (c *Client) GetValues(ctx context.Context, site, variable, startDate, endDate string) ([]byte, error) {
	return c.call(ctx, OpGetValues, []element{
		{Name: "location", Value: site},
		{Name: "variable", Value: variable},
		{Name: "startDate", Value: startDate},
		{Name: "endDate", Value: endDate},
		{Name: "authToken"},
	})
}

func (c *Client) call(ctx context.Context, op string, params []element) ([]byte, error) {
	desc, err := c.Describe(ctx)
	if err != nil {
		return nil, err
	}

	action, ok := desc.SOAPAction(op)
	if !ok {
		err := fmt.Errorf("operation %s is not advertised by %s", op, desc.Endpoint)
		c.metrics.SOAPRequests.WithLabelValues(op, "error").Inc()
		return nil, &domain.TransportError{Op: op, Err: err}
	}

	start := time.Now()
	payload, err := c.post(ctx, desc, op, action, params)
	c.observe(op, start, err)
	if err != nil {
		c.logger.Warn("soap request failed", "operation", op, "error", err)
		return nil, &domain.TransportError{Op: op, Err: err}
	}

	c.logger.Debug("soap request complete",
		"operation", op,
		"bytes", len(payload),
		"duration", time.Since(start),
	)
	return payload, nil
}

func (c *Client) post(ctx context.Context, desc *ServiceDescription, op, action string, params []element) ([]byte, error) {
	body := buildEnvelope(desc.TargetNamespace, op, params)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, desc.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", `"`+action+`"`)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", op, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", op, err)
	}

	payload, perr := parseEnvelope(respBody, op)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var fault *Fault
		if errors.As(perr, &fault) {
			return nil, fault
		}
		return nil, fmt.Errorf("hydroportal error: status %d: %s", resp.StatusCode, truncate(respBody, 512))
	}
	if perr != nil {
		return nil, perr
	}
	return payload, nil
}

func (c *Client) observe(op string, start time.Time, err error) {
	c.metrics.SOAPDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())

	outcome := "success"
	var fault *Fault
	switch {
	case errors.As(err, &fault):
		outcome = "fault"
	case err != nil:
		outcome = "error"
	}
	c.metrics.SOAPRequests.WithLabelValues(op, outcome).Inc()
}

func truncate(b []byte, n int) []byte {
	if len(b) > n {
		return b[:n]
	}
	return b
}
