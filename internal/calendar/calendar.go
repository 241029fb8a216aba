// Package calendar builds trading-day indexes from exchange calendars.
package calendar

import (
	"fmt"
	"strings"
	"time"

	"github.com/scmhub/calendar"

	"github.com/wonny/macrofactor/internal/series"
)

// DefaultMIC is used when no exchange is given
const DefaultMIC = "xnys"

// maxSpan bounds TradingDays so a typo in a year cannot loop for centuries
const maxSpan = 100 * 366 * 24 * time.Hour

// Calendar answers trading-day questions for one exchange.
// Unknown MICs fall back to a Monday-Friday calendar without holidays.
type Calendar struct {
	mic      string
	cal      *calendar.Calendar
	fallback bool
}

// New loads the calendar for an ISO 10383 MIC such as "xnys" or "bvmf"
func New(mic string) *Calendar {
	mic = strings.ToLower(strings.TrimSpace(mic))
	if mic == "" {
		mic = DefaultMIC
	}

	cal := calendar.GetCalendar(mic)
	if cal == nil {
		return &Calendar{mic: mic, fallback: true}
	}
	return &Calendar{mic: mic, cal: cal}
}

// MIC returns the exchange code
func (c *Calendar) MIC() string {
	return c.mic
}

// Fallback reports whether holidays are unknown for this exchange
func (c *Calendar) Fallback() bool {
	return c.fallback
}

// IsTradingDay reports whether the exchange is open on the calendar day of date
func (c *Calendar) IsTradingDay(date time.Time) bool {
	if c.fallback {
		wd := date.Weekday()
		return wd != time.Saturday && wd != time.Sunday
	}
	// 거래소 현지 정오로 변환: UTC 자정은 서반구에서 전날이 됨
	local := time.Date(date.Year(), date.Month(), date.Day(), 12, 0, 0, 0, c.cal.Loc)
	return c.cal.IsBusinessDay(local)
}

// TradingDays returns every trading day in [start, end] as a target index
func (c *Calendar) TradingDays(start, end time.Time) (series.Index, error) {
	start, end = series.Day(start), series.Day(end)
	if start.IsZero() || end.IsZero() {
		return nil, fmt.Errorf("trading days need both start and end")
	}
	if end.Before(start) {
		return nil, fmt.Errorf("end %s is before start %s", end.Format("2006-01-02"), start.Format("2006-01-02"))
	}
	if end.Sub(start) > maxSpan {
		return nil, fmt.Errorf("range %s..%s is too long", start.Format("2006-01-02"), end.Format("2006-01-02"))
	}

	var idx series.Index
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if c.IsTradingDay(d) {
			idx = append(idx, d)
		}
	}
	return idx, nil
}
