package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedResponse marks a WaterML payload that could not be decoded.
var ErrMalformedResponse = errors.New("malformed response")

// TransportError reports a failed remote call: the endpoint was unreachable,
// returned a non-success status, or sent an envelope that could not be read.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport error: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// InvalidSiteError reports a site identifier that is not among the known sites.
type InvalidSiteError struct {
	SiteID string
}

func (e *InvalidSiteError) Error() string {
	return fmt.Sprintf("site %q is not a valid SNOTEL site code; list available sites with the sites command", e.SiteID)
}

// InvalidVariableError reports variable codes that the site does not offer.
type InvalidVariableError struct {
	SiteID    string
	Variables []string
}

func (e *InvalidVariableError) Error() string {
	return fmt.Sprintf("variable code %s is not offered by site %q; list available variables with the variables command",
		strings.Join(e.Variables, ","), e.SiteID)
}

// DateFormatError reports a date that does not parse as YYYY-MM-DD, or a
// date range that ends before it starts.
type DateFormatError struct {
	Input string
	Err   error
}

func (e *DateFormatError) Error() string {
	return fmt.Sprintf("invalid date %q: %v", e.Input, e.Err)
}

func (e *DateFormatError) Unwrap() error { return e.Err }

// MissingDependencyError reports an optional feature that was not compiled in.
type MissingDependencyError struct {
	Feature string
	Hint    string
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("%s is not available: %s", e.Feature, e.Hint)
}
