package align

import (
	"time"

	"github.com/wonny/macrofactor/internal/series"
)

// Recompose aggregates a daily series back to one value per period:
// compounded for Simple, summed for Log. Points are dated by period key.
// A period containing any NaN day recomposes to NaN.
func Recompose(daily *series.Series, freq Frequency, rt ReturnType, anchor time.Weekday) (*series.Series, error) {
	if err := freq.validate(); err != nil {
		return nil, err
	}
	if err := rt.validate(); err != nil {
		return nil, err
	}

	acc := make(map[time.Time]float64)
	var order []time.Time
	for _, p := range daily.Points {
		key := PeriodKey(p.Date, freq, anchor)
		cur, seen := acc[key]
		if !seen {
			order = append(order, key)
			if rt == Simple {
				cur = 1
			}
		}

		if rt == Simple {
			cur *= 1 + p.Value
		} else {
			cur += p.Value
		}
		acc[key] = cur
	}

	out := make([]series.Point, 0, len(order))
	for _, key := range order {
		v := acc[key]
		if rt == Simple {
			v--
		}
		out = append(out, series.Point{Date: key, Value: v})
	}
	return series.New(daily.Name, out), nil
}
