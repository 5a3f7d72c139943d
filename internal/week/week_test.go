package week

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestFormatAndParse(t *testing.T) {
	got, err := Parse("2025-01-06")
	require.NoError(t, err)
	assert.Equal(t, date(2025, 1, 6), got)
	assert.Equal(t, "2025-01-06", Format(got))
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")

	_, err = Parse("06/01/2025")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid week-ending date")
}

func TestParse_TrimsSpace(t *testing.T) {
	got, err := Parse("  2025-03-10 ")
	require.NoError(t, err)
	assert.Equal(t, date(2025, 3, 10), got)
}

func TestThisMonday(t *testing.T) {
	tests := []struct {
		now  time.Time
		want time.Time
	}{
		{date(2025, 1, 6), date(2025, 1, 6)},   // Monday
		{date(2025, 1, 8), date(2025, 1, 6)},   // Wednesday
		{date(2025, 1, 11), date(2025, 1, 6)},  // Saturday
		{date(2025, 1, 12), date(2025, 1, 13)}, // Sunday rolls forward
		{time.Date(2025, 1, 9, 17, 45, 0, 0, time.UTC), date(2025, 1, 6)},
	}
	for _, tt := range tests {
		got := ThisMonday(tt.now)
		assert.Equal(t, tt.want, got, "ThisMonday(%s)", tt.now)
		assert.True(t, IsMonday(got))
	}
}

func TestIsMonday(t *testing.T) {
	assert.True(t, IsMonday(date(2025, 1, 13)))
	assert.False(t, IsMonday(date(2025, 1, 14)))
}
