package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNYSEHolidays(t *testing.T) {
	cal := New("XNYS")
	require.False(t, cal.Fallback())
	assert.Equal(t, "xnys", cal.MIC())

	tests := []struct {
		name string
		date time.Time
		want bool
	}{
		{"new year", date(2024, 1, 1), false},
		{"first session", date(2024, 1, 2), true},
		{"martin luther king day", date(2024, 1, 15), false},
		{"independence day", date(2024, 7, 4), false},
		{"saturday", date(2024, 1, 6), false},
		{"ordinary tuesday", date(2024, 3, 12), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cal.IsTradingDay(tt.date))
		})
	}
}

func TestTradingDays(t *testing.T) {
	cal := New("")
	assert.Equal(t, DefaultMIC, cal.MIC())

	idx, err := cal.TradingDays(date(2024, 1, 1), date(2024, 1, 31))
	require.NoError(t, err)

	// 23 weekdays less New Year and MLK day
	assert.Len(t, idx, 21)
	assert.Equal(t, date(2024, 1, 2), idx[0])
	assert.Equal(t, date(2024, 1, 31), idx[len(idx)-1])
	for i := 1; i < len(idx); i++ {
		assert.True(t, idx[i].After(idx[i-1]))
	}
}

func TestFallbackCalendar(t *testing.T) {
	cal := New("zzzz")
	require.True(t, cal.Fallback())

	idx, err := cal.TradingDays(date(2024, 1, 1), date(2024, 1, 7))
	require.NoError(t, err)
	assert.Len(t, idx, 5, "Monday to Friday, holidays unknown")
}

func TestTradingDaysErrors(t *testing.T) {
	cal := New("xnys")

	_, err := cal.TradingDays(time.Time{}, date(2024, 1, 1))
	assert.Error(t, err)

	_, err = cal.TradingDays(date(2024, 2, 1), date(2024, 1, 1))
	assert.Error(t, err)

	_, err = cal.TradingDays(date(1900, 1, 1), date(2100, 1, 1))
	assert.Error(t, err)
}
