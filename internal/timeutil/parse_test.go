package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMs(t *testing.T) {
	want := time.Date(2026, 2, 1, 6, 30, 0, 0, time.UTC).UnixMilli()

	tests := []struct {
		name  string
		input string
		want  int64
	}{
		{"instant", "2026-02-01T06:30:00Z", want},
		{"fractional instant", "2026-02-01T06:30:00.000Z", want},
		{"offset", "2026-02-01T07:30:00+01:00", want},
		{"offset without seconds", "2026-02-01T07:30+01:00", want},
		{"local date-time as UTC", "2026-02-01T06:30:00", want},
		{"short form as UTC", "2026-02-01T06:30", want},
		{"surrounding whitespace", "  2026-02-01T06:30 ", want},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMs(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseMs_Invalid(t *testing.T) {
	for _, input := range []string{"", "yesterday", "2026-02-01", "01/02/2026 06:30"} {
		_, err := ParseMs(input)
		assert.ErrorIs(t, err, ErrUnparsable, "input %q", input)
	}
}

func TestMonthUTC(t *testing.T) {
	// 00:30 on 1 Feb at +01:00 is 23:30 UTC on 31 Jan.
	ms, err := ParseMs("2026-02-01T00:30:00+01:00")
	require.NoError(t, err)
	assert.Equal(t, 1, MonthUTC(ms))
}
