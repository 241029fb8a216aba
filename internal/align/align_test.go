package align

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/macrofactor/internal/series"
)

const tolerance = 1e-9

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// businessDays returns the first n weekdays of a month
func businessDays(y int, m time.Month, n int) []time.Time {
	var out []time.Time
	for d := date(y, m, 1); d.Month() == m && len(out) < n; d = d.AddDate(0, 0, 1) {
		if d.Weekday() != time.Saturday && d.Weekday() != time.Sunday {
			out = append(out, d)
		}
	}
	return out
}

func monthly(points map[time.Time]float64) *series.Series {
	var pts []series.Point
	for d, v := range points {
		pts = append(pts, series.Point{Date: d, Value: v})
	}
	return series.New("ipca", pts)
}

func janFebIndex() []time.Time {
	return append(businessDays(2024, time.January, 20), businessDays(2024, time.February, 18)...)
}

func TestDistributeSimpleJanFeb(t *testing.T) {
	periodic := monthly(map[time.Time]float64{date(2024, 1, 1): 0.02, date(2024, 2, 1): 0.01})

	out, err := Distribute(periodic, janFebIndex(), "ipca_daily", Options{
		ReturnType: Simple, Frequency: Monthly, ReleaseLag: NoLag,
	})
	require.NoError(t, err)
	require.Equal(t, 38, out.Len())
	assert.Equal(t, "ipca_daily", out.Name)

	jan := out.Points[0].Value
	feb := out.Points[20].Value
	assert.InDelta(t, 0.02, math.Pow(1+jan, 20)-1, tolerance)
	assert.InDelta(t, 0.01, math.Pow(1+feb, 18)-1, tolerance)

	for _, p := range out.Points[:20] {
		assert.Equal(t, jan, p.Value)
	}
	for _, p := range out.Points[20:] {
		assert.Equal(t, feb, p.Value)
	}
}

func TestDistributeLogJanFeb(t *testing.T) {
	periodic := monthly(map[time.Time]float64{date(2024, 1, 1): 0.02, date(2024, 2, 1): 0.01})

	out, err := Distribute(periodic, janFebIndex(), "ipca_daily", Options{
		ReturnType: Log, Frequency: Monthly, ReleaseLag: NoLag,
	})
	require.NoError(t, err)

	for _, p := range out.Points[:20] {
		assert.InDelta(t, 0.02/20, p.Value, tolerance)
	}
	for _, p := range out.Points[20:] {
		assert.InDelta(t, 0.01/18, p.Value, tolerance)
	}
}

func TestDistributeRecomposes(t *testing.T) {
	periodic := monthly(map[time.Time]float64{
		date(2024, 1, 1): 0.0042,
		date(2024, 2, 1): -0.0013,
		date(2024, 3, 1): 0.0083,
	})
	target := append(janFebIndex(), businessDays(2024, time.March, 21)...)

	for _, rt := range []ReturnType{Simple, Log} {
		t.Run(string(rt), func(t *testing.T) {
			out, err := Distribute(periodic, target, "x", Options{ReturnType: rt, Frequency: Monthly, ReleaseLag: NoLag})
			require.NoError(t, err)

			back, err := Recompose(out, Monthly, rt, time.Sunday)
			require.NoError(t, err)
			require.Equal(t, periodic.Len(), back.Len())

			for i, p := range periodic.Points {
				assert.Equal(t, p.Date, back.Points[i].Date)
				assert.InDelta(t, p.Value, back.Points[i].Value, tolerance)
			}
		})
	}
}

func TestDistributeOutputMatchesTargetIndex(t *testing.T) {
	periodic := monthly(map[time.Time]float64{date(2024, 1, 1): 0.02})
	target := []time.Time{
		date(2024, 1, 10), date(2024, 1, 3), date(2024, 1, 10),
		time.Date(2024, 1, 3, 18, 0, 0, 0, time.UTC), date(2024, 3, 5),
	}

	out, err := Distribute(periodic, target, "x", Options{ReturnType: Simple, Frequency: Monthly, ReleaseLag: NoLag})
	require.NoError(t, err)

	assert.Equal(t, []time.Time{date(2024, 1, 3), date(2024, 1, 10), date(2024, 3, 5)}, out.Dates())

	// n counts target dates in the period, not calendar days
	assert.InDelta(t, math.Sqrt(1.02)-1, out.Points[0].Value, tolerance)
	// March has no rate: missing, not zero
	assert.True(t, math.IsNaN(out.Points[2].Value))
}

func TestDistributeDoesNotMutateInputs(t *testing.T) {
	periodic := monthly(map[time.Time]float64{date(2024, 1, 1): 0.02})
	target := []time.Time{date(2024, 1, 5), date(2024, 1, 2)}

	_, err := Distribute(periodic, target, "x", Options{ReturnType: Simple, Frequency: Monthly, ReleaseLag: ShiftOne})
	require.NoError(t, err)

	assert.Equal(t, []time.Time{date(2024, 1, 5), date(2024, 1, 2)}, target)
	assert.Equal(t, []float64{0.02}, periodic.Values())
}

func TestDistributeShiftOne(t *testing.T) {
	periodic := monthly(map[time.Time]float64{
		date(2024, 1, 1): 0.03,
		date(2024, 2, 1): 0.02,
		date(2024, 3, 1): 0.01,
	})
	target := []time.Time{
		date(2024, 1, 15), date(2024, 1, 16),
		date(2024, 2, 15), date(2024, 2, 16),
		date(2024, 3, 15), date(2024, 3, 18),
	}

	out, err := Distribute(periodic, target, "x", Options{ReturnType: Log, Frequency: Monthly, ReleaseLag: ShiftOne})
	require.NoError(t, err)
	require.Equal(t, 6, out.Len())

	// P1 has no prior period
	assert.True(t, math.IsNaN(out.Points[0].Value))
	assert.True(t, math.IsNaN(out.Points[1].Value))
	// P2 receives P1's rate, P3 receives P2's rate
	assert.InDelta(t, 0.03/2, out.Points[2].Value, tolerance)
	assert.InDelta(t, 0.03/2, out.Points[3].Value, tolerance)
	assert.InDelta(t, 0.02/2, out.Points[4].Value, tolerance)
	assert.InDelta(t, 0.02/2, out.Points[5].Value, tolerance)
}

func TestDistributeShiftOneAcrossYearEnd(t *testing.T) {
	periodic := monthly(map[time.Time]float64{date(2023, 12, 1): 0.05})
	target := []time.Time{date(2024, 1, 2)}

	out, err := Distribute(periodic, target, "x", Options{ReturnType: Simple, Frequency: Monthly, ReleaseLag: ShiftOne})
	require.NoError(t, err)
	assert.InDelta(t, 0.05, out.Points[0].Value, tolerance)
}

func TestDistributeWeekly(t *testing.T) {
	// COT positioning is reported as of Tuesday; weeks close on Friday
	periodic := series.New("cot", []series.Point{
		{Date: date(2024, 1, 2), Value: 0.04},  // Tue, week ending Fri Jan 5
		{Date: date(2024, 1, 9), Value: -0.02}, // Tue, week ending Fri Jan 12
	})
	var target []time.Time
	for d := date(2024, 1, 1); d.Before(date(2024, 1, 13)); d = d.AddDate(0, 0, 1) {
		if d.Weekday() != time.Saturday && d.Weekday() != time.Sunday {
			target = append(target, d)
		}
	}

	out, err := Distribute(periodic, target, "cot", Options{
		ReturnType: Log, Frequency: Weekly, ReleaseLag: NoLag, WeekAnchor: time.Friday,
	})
	require.NoError(t, err)
	require.Equal(t, 10, out.Len())
	for _, p := range out.Points[:5] {
		assert.InDelta(t, 0.04/5, p.Value, tolerance)
	}
	for _, p := range out.Points[5:] {
		assert.InDelta(t, -0.02/5, p.Value, tolerance)
	}

	lagged, err := Distribute(periodic, target, "cot", Options{
		ReturnType: Log, Frequency: Weekly, ReleaseLag: ShiftOne, WeekAnchor: time.Friday,
	})
	require.NoError(t, err)
	assert.True(t, math.IsNaN(lagged.Points[0].Value))
	assert.InDelta(t, 0.04/5, lagged.Points[5].Value, tolerance)
}

func TestDistributeInvalidOptions(t *testing.T) {
	periodic := monthly(map[time.Time]float64{date(2024, 1, 1): 0.02})
	target := []time.Time{date(2024, 1, 2)}

	tests := []struct {
		name  string
		opts  Options
		param string
	}{
		{"quarterly frequency", Options{ReturnType: Simple, Frequency: "Q", ReleaseLag: NoLag}, "frequency"},
		{"pct return type", Options{ReturnType: "pct", Frequency: Monthly, ReleaseLag: NoLag}, "return_type"},
		{"lag release", Options{ReturnType: Simple, Frequency: Monthly, ReleaseLag: "lag"}, "release_lag"},
		{"empty options", Options{}, "frequency"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Distribute(periodic, target, "x", tt.opts)
			assert.Nil(t, out)

			var cfgErr *ConfigError
			require.True(t, errors.As(err, &cfgErr), "want *ConfigError, got %v", err)
			assert.Equal(t, tt.param, cfgErr.Param)
		})
	}
}

func TestDistributeInvalidOptionsCheckedBeforeData(t *testing.T) {
	// A malformed series must not mask the configuration error
	bad := series.New("x", []series.Point{{Date: date(2024, 1, 1), Value: math.NaN()}})

	_, err := Distribute(bad, nil, "x", Options{ReturnType: "pct", Frequency: Monthly, ReleaseLag: NoLag})

	var cfgErr *ConfigError
	assert.True(t, errors.As(err, &cfgErr))
}

func TestDistributeRejectsDuplicatePeriods(t *testing.T) {
	periodic := series.New("x", []series.Point{
		{Date: date(2024, 1, 1), Value: 0.01},
		{Date: date(2024, 1, 15), Value: 0.02},
	})

	_, err := Distribute(periodic, []time.Time{date(2024, 1, 2)}, "x", Options{ReturnType: Simple, Frequency: Monthly, ReleaseLag: NoLag})

	var dupErr *DuplicatePeriodError
	require.True(t, errors.As(err, &dupErr))
	assert.Equal(t, date(2024, 1, 1), dupErr.Period)
	assert.Equal(t, date(2024, 1, 15), dupErr.Second)
}

func TestDistributeRejectsMissingRates(t *testing.T) {
	periodic := series.New("x", []series.Point{{Date: date(2024, 1, 1), Value: math.NaN()}})

	_, err := Distribute(periodic, []time.Time{date(2024, 1, 2)}, "x", Options{ReturnType: Simple, Frequency: Monthly, ReleaseLag: NoLag})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "drop missing values first")
}

func TestDistributeRejectsSimpleRateAtOrBelowMinusOne(t *testing.T) {
	target := []time.Time{date(2024, 1, 2), date(2024, 1, 3)}
	for _, rate := range []float64{-1, -1.5} {
		periodic := monthly(map[time.Time]float64{date(2024, 1, 1): rate})

		_, err := Distribute(periodic, target, "x", Options{ReturnType: Simple, Frequency: Monthly, ReleaseLag: NoLag})
		require.Error(t, err, "rate %v", rate)
		assert.Contains(t, err.Error(), "greater than -1")
	}

	// 로그 수익률은 제한 없음
	periodic := monthly(map[time.Time]float64{date(2024, 1, 1): -1.5})
	out, err := Distribute(periodic, target, "x", Options{ReturnType: Log, Frequency: Monthly, ReleaseLag: NoLag})
	require.NoError(t, err)
	assert.InDelta(t, -0.75, out.Points[0].Value, 1e-12)
}

func TestDistributeEmptyTarget(t *testing.T) {
	periodic := monthly(map[time.Time]float64{date(2024, 1, 1): 0.02})

	out, err := Distribute(periodic, nil, "x", Options{ReturnType: Simple, Frequency: Monthly, ReleaseLag: NoLag})
	require.NoError(t, err)
	assert.Equal(t, 0, out.Len())
}

func TestPeriodKey(t *testing.T) {
	tests := []struct {
		name   string
		date   time.Time
		freq   Frequency
		anchor time.Weekday
		want   time.Time
	}{
		{"monthly mid-month", date(2024, 2, 29), Monthly, time.Sunday, date(2024, 2, 1)},
		{"monthly first day", date(2024, 3, 1), Monthly, time.Sunday, date(2024, 3, 1)},
		{"weekly sunday anchor from wednesday", date(2024, 1, 3), Weekly, time.Sunday, date(2024, 1, 7)},
		{"weekly anchor day is its own key", date(2024, 1, 7), Weekly, time.Sunday, date(2024, 1, 7)},
		{"weekly friday anchor from saturday", date(2024, 1, 6), Weekly, time.Friday, date(2024, 1, 12)},
		{"weekly across month end", date(2024, 1, 30), Weekly, time.Friday, date(2024, 2, 2)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PeriodKey(tt.date, tt.freq, tt.anchor))
		})
	}
}

func TestParseHelpers(t *testing.T) {
	rt, err := ParseReturnType(" LOG ")
	require.NoError(t, err)
	assert.Equal(t, Log, rt)

	f, err := ParseFrequency("W")
	require.NoError(t, err)
	assert.Equal(t, Weekly, f)

	lag, err := ParseReleaseLag("shift_one")
	require.NoError(t, err)
	assert.Equal(t, ShiftOne, lag)

	wd, err := ParseWeekday("Fri")
	require.NoError(t, err)
	assert.Equal(t, time.Friday, wd)

	_, err = ParseFrequency("Q")
	assert.Error(t, err)
	_, err = ParseReturnType("pct")
	assert.Error(t, err)
	_, err = ParseReleaseLag("lag")
	assert.Error(t, err)
	_, err = ParseWeekday("someday")
	assert.Error(t, err)
}

func TestRecomposeNaNPeriod(t *testing.T) {
	daily := series.New("x", []series.Point{
		{Date: date(2024, 1, 2), Value: 0.01},
		{Date: date(2024, 1, 3), Value: math.NaN()},
		{Date: date(2024, 2, 1), Value: 0.02},
	})

	back, err := Recompose(daily, Monthly, Simple, time.Sunday)
	require.NoError(t, err)
	require.Equal(t, 2, back.Len())
	assert.True(t, math.IsNaN(back.Points[0].Value))
	assert.InDelta(t, 0.02, back.Points[1].Value, tolerance)
}
