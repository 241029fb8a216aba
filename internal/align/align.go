// Package align turns monthly or weekly rates into daily-equivalent series
// on an arbitrary trading-day index.
//
// A periodic rate r is spread over the n index dates that fall inside its period,
// so that compounding (simple) or summing (log) those n daily values gives back r.
// The day count is the index's, not the calendar's: a month with 20 trading days
// splits into 20 pieces.
package align

import (
	"fmt"
	"math"
	"time"

	"github.com/wonny/macrofactor/internal/series"
)

// DuplicatePeriodError reports two periodic observations in the same period
type DuplicatePeriodError struct {
	Period time.Time
	First  time.Time
	Second time.Time
}

func (e *DuplicatePeriodError) Error() string {
	return fmt.Sprintf("duplicate period %s: observations on %s and %s",
		e.Period.Format("2006-01-02"), e.First.Format("2006-01-02"), e.Second.Format("2006-01-02"))
}

// PeriodKey returns the period a date belongs to.
// Monthly: first day of the month. Weekly: the anchor weekday on or after the date.
func PeriodKey(date time.Time, freq Frequency, anchor time.Weekday) time.Time {
	day := series.Day(date)
	if freq == Weekly {
		ahead := (int(anchor) - int(day.Weekday()) + 7) % 7
		return day.AddDate(0, 0, ahead)
	}
	return time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// nextPeriod returns the key of the period following key
func nextPeriod(key time.Time, freq Frequency) time.Time {
	if freq == Weekly {
		return key.AddDate(0, 0, 7)
	}
	return key.AddDate(0, 1, 0)
}

// Distribute projects a periodic rate series onto target as daily-equivalent values.
//
// The output has one point per date of the sorted, de-duplicated target index.
// Dates whose period has no rate (including the first period under ShiftOne) are NaN.
// periodic must not contain NaN values or two observations in one period.
// Simple rates must be greater than -1 so every daily root is real.
func Distribute(periodic *series.Series, target []time.Time, name string, opts Options) (*series.Series, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	rates, err := periodRates(periodic, opts)
	if err != nil {
		return nil, err
	}

	idx := series.NewIndex(target)
	keys := make([]time.Time, len(idx))
	counts := make(map[time.Time]int)
	for i, date := range idx {
		keys[i] = PeriodKey(date, opts.Frequency, opts.WeekAnchor)
		counts[keys[i]]++
	}

	out := make([]series.Point, len(idx))
	for i, date := range idx {
		val := math.NaN()
		if r, ok := rates[keys[i]]; ok {
			val = daily(r, counts[keys[i]], opts.ReturnType)
		}
		out[i] = series.Point{Date: date, Value: val}
	}

	return &series.Series{Name: name, Points: out}, nil
}

// periodRates keys the periodic observations by the period they apply to
func periodRates(periodic *series.Series, opts Options) (map[time.Time]float64, error) {
	rates := make(map[time.Time]float64, periodic.Len())
	origin := make(map[time.Time]time.Time, periodic.Len())

	for _, p := range periodic.Points {
		if math.IsNaN(p.Value) {
			return nil, fmt.Errorf("periodic series %q has a missing value on %s; drop missing values first",
				periodic.Name, p.Date.Format("2006-01-02"))
		}
		if opts.ReturnType == Simple && p.Value <= -1 {
			return nil, fmt.Errorf("periodic series %q has simple rate %g on %s; simple rates must be greater than -1",
				periodic.Name, p.Value, p.Date.Format("2006-01-02"))
		}

		key := PeriodKey(p.Date, opts.Frequency, opts.WeekAnchor)
		if prev, dup := origin[key]; dup {
			return nil, &DuplicatePeriodError{Period: key, First: prev, Second: p.Date}
		}
		origin[key] = p.Date

		if opts.ReleaseLag == ShiftOne {
			key = nextPeriod(key, opts.Frequency)
		}
		rates[key] = p.Value
	}
	return rates, nil
}

// daily splits one period's rate across n days
func daily(rate float64, n int, rt ReturnType) float64 {
	if rt == Log {
		return rate / float64(n)
	}
	return math.Pow(1+rate, 1/float64(n)) - 1
}
