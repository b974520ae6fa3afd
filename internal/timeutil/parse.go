package timeutil

import (
	"errors"
	"strings"
	"time"
)

var ErrUnparsable = errors.New("timeutil: unparsable timestamp")

// Layouts without a zone are interpreted as UTC.
var layouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// Parse accepts ISO-8601 instants, offset date-times, zoneless local
// date-times and the short minute-precision form used by Open-Meteo.
func Parse(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrUnparsable
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, ErrUnparsable
}

// ParseMs returns the timestamp as epoch milliseconds.
func ParseMs(s string) (int64, error) {
	t, err := Parse(s)
	if err != nil {
		return 0, err
	}
	return t.UnixMilli(), nil
}

// MonthUTC returns the calendar month (1..12) of an epoch-ms instant in UTC.
func MonthUTC(ms int64) int {
	return int(time.UnixMilli(ms).UTC().Month())
}

// FormatMs renders epoch milliseconds as RFC 3339 UTC.
func FormatMs(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(time.RFC3339)
}
