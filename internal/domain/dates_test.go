package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		d, err := ParseDate("2000-01-01")
		require.NoError(t, err)
		assert.Equal(t, time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC), d)
	})

	for _, input := range []string{"", "2000/01/01", "01-01-2000", "2000-13-01", "2000-02-30", "yesterday"} {
		t.Run("invalid "+input, func(t *testing.T) {
			_, err := ParseDate(input)
			require.Error(t, err)

			var dateErr *DateFormatError
			require.True(t, errors.As(err, &dateErr))
			assert.Equal(t, input, dateErr.Input)
		})
	}
}

func TestISODateTime(t *testing.T) {
	assert.Equal(t, "2000-01-01T00:00:00", ISODateTime(time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2000-02-02T13:45:10", ISODateTime(time.Date(2000, 2, 2, 13, 45, 10, 999, time.UTC)))

	t.Run("zoned dates keep range order", func(t *testing.T) {
		start := time.Date(2000, 1, 2, 0, 0, 0, 0, time.FixedZone("AEST", 10*60*60))
		end := time.Date(2000, 1, 1, 20, 0, 0, 0, time.UTC)
		require.NoError(t, CheckDateRange(start, end))

		assert.Equal(t, "2000-01-01T14:00:00", ISODateTime(start))
		assert.Equal(t, "2000-01-01T20:00:00", ISODateTime(end))
		assert.Less(t, ISODateTime(start), ISODateTime(end))
	})
}

func TestCheckDateRange(t *testing.T) {
	start := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2000, 2, 2, 0, 0, 0, 0, time.UTC)

	assert.NoError(t, CheckDateRange(start, end))
	assert.NoError(t, CheckDateRange(start, start))

	var dateErr *DateFormatError
	require.ErrorAs(t, CheckDateRange(end, start), &dateErr)
	assert.Equal(t, "2000-01-01", dateErr.Input)

	assert.ErrorAs(t, CheckDateRange(time.Time{}, end), &dateErr)
	assert.ErrorAs(t, CheckDateRange(start, time.Time{}), &dateErr)
}

func TestDefaultDateRange(t *testing.T) {
	SetClock(clockwork.NewFakeClockAt(time.Date(2024, time.March, 15, 17, 30, 0, 0, time.UTC)))
	t.Cleanup(func() { SetClock(nil) })

	start, end := DefaultDateRange(30)
	assert.Equal(t, time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC), end)
	assert.Equal(t, time.Date(2024, time.February, 14, 0, 0, 0, 0, time.UTC), start)
}

func TestErrorMessages(t *testing.T) {
	assert.Contains(t, (&InvalidSiteError{SiteID: "000_XX_SNTL"}).Error(), "000_XX_SNTL")
	assert.Contains(t, (&InvalidVariableError{SiteID: testSiteCode, Variables: []string{"FOO_D", "BAR_D"}}).Error(), "FOO_D,BAR_D")
	assert.Contains(t, (&MissingDependencyError{Feature: "map rendering", Hint: "rebuild without -tags nomap"}).Error(), "-tags nomap")

	inner := errors.New("connection refused")
	terr := &TransportError{Op: "GetSites", Err: inner}
	assert.ErrorIs(t, terr, inner)
	assert.Contains(t, terr.Error(), "GetSites")
}
