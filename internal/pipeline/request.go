package pipeline

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/norlandrhagen/snowintel/internal/domain"
)

// ErrInvalidRequest marks a request rejected before any remote call.
var ErrInvalidRequest = errors.New("invalid request")

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// FetchRequest selects one variable at one site over an inclusive date range.
type FetchRequest struct {
	SiteID   string    `validate:"required"`
	Variable string    `validate:"required"`
	Start    time.Time `validate:"required"`
	End      time.Time `validate:"required"`
}

// NewFetchRequest builds a request from YYYY-MM-DD date strings.
func NewFetchRequest(siteID, variable, start, end string) (FetchRequest, error) {
	s, err := domain.ParseDate(strings.TrimSpace(start))
	if err != nil {
		return FetchRequest{}, err
	}
	e, err := domain.ParseDate(strings.TrimSpace(end))
	if err != nil {
		return FetchRequest{}, err
	}
	return FetchRequest{
		SiteID:   strings.TrimSpace(siteID),
		Variable: strings.TrimSpace(variable),
		Start:    s,
		End:      e,
	}, nil
}

// Validate checks required fields and the date range. Date problems are
// reported as *domain.DateFormatError; anything else wraps ErrInvalidRequest.
func (r FetchRequest) Validate() error {
	if err := domain.CheckDateRange(r.Start, r.End); err != nil {
		return err
	}
	if err := getValidator().Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidRequest, strings.Join(fields, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return nil
}
