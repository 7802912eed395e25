package domain

import (
	"errors"
	"time"
)

// DateLayout is the accepted input date format.
const DateLayout = "2006-01-02"

// isoDateTimeLayout is the request format for startDate and endDate.
const isoDateTimeLayout = "2006-01-02T15:04:05"

// ParseDate parses a YYYY-MM-DD date at midnight UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, &DateFormatError{Input: s, Err: errors.New("expected YYYY-MM-DD")}
	}
	return t, nil
}

// ISODateTime formats a date as the zone-less UTC ISO-8601 date-time the
// service expects, e.g. 2000-01-01 -> "2000-01-01T00:00:00".
func ISODateTime(t time.Time) string {
	return t.UTC().Format(isoDateTimeLayout)
}

// CheckDateRange rejects zero dates and ranges that end before they start.
func CheckDateRange(start, end time.Time) error {
	if start.IsZero() {
		return &DateFormatError{Input: "", Err: errors.New("start date is required")}
	}
	if end.IsZero() {
		return &DateFormatError{Input: "", Err: errors.New("end date is required")}
	}
	if end.Before(start) {
		return &DateFormatError{
			Input: end.Format(DateLayout),
			Err:   errors.New("end date is before start date " + start.Format(DateLayout)),
		}
	}
	return nil
}

// DefaultDateRange returns the last days days ending today (UTC midnight).
func DefaultDateRange(days int) (start, end time.Time) {
	now := clock.Now().UTC()
	end = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return end.AddDate(0, 0, -days), end
}
