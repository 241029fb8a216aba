package pipeline

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/macrofactor/internal/modelconfig"
	"github.com/wonny/macrofactor/internal/provider"
	"github.com/wonny/macrofactor/internal/regression"
	"github.com/wonny/macrofactor/internal/series"
	"github.com/wonny/macrofactor/pkg/logger"
)

// stubFetcher serves fixed series by id and records the requested ranges
type stubFetcher struct {
	name   string
	data   map[string]*series.Series
	err    error
	ranges map[string]provider.DateRange
}

func newStub(name string) *stubFetcher {
	return &stubFetcher{name: name, data: map[string]*series.Series{}, ranges: map[string]provider.DateRange{}}
}

func (f *stubFetcher) Name() string { return f.name }

func (f *stubFetcher) Fetch(_ context.Context, seriesID string, rng provider.DateRange) (*series.Series, error) {
	f.ranges[seriesID] = rng
	if f.err != nil {
		return nil, provider.Wrap(f.name, seriesID, f.err)
	}
	s, ok := f.data[seriesID]
	if !ok {
		return nil, provider.Wrap(f.name, seriesID, provider.ErrEmpty)
	}
	return s, nil
}

func businessDays(start, end time.Time) []time.Time {
	var out []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if d.Weekday() != time.Saturday && d.Weekday() != time.Sunday {
			out = append(out, d)
		}
	}
	return out
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// fixture: y = 0.5 + 2x + 3m + noise on business days of Jan-Apr 2024
func fixture(t *testing.T) (*stubFetcher, *modelconfig.Model) {
	t.Helper()
	rng := rand.New(rand.NewSource(7))
	days := businessDays(date(2024, 1, 1), date(2024, 4, 30))

	monthly := map[time.Month]float64{1: 0.02, 2: -0.01, 3: 0.015, 4: 0.005}
	counts := map[time.Month]int{}
	for _, d := range days {
		counts[d.Month()]++
	}

	x := make([]series.Point, len(days))
	y := make([]series.Point, len(days))
	for i, d := range days {
		xv := rng.NormFloat64() * 0.01
		mv := math.Pow(1+monthly[d.Month()], 1/float64(counts[d.Month()])) - 1
		x[i] = series.Point{Date: d, Value: xv}
		y[i] = series.Point{Date: d, Value: 0.5 + 2*xv + 3*mv + rng.NormFloat64()*0.00001}
	}

	var m []series.Point
	for month, v := range monthly {
		m = append(m, series.Point{Date: date(2024, month, 1), Value: v})
	}
	m = append(m, series.Point{Date: date(2023, 12, 1), Value: 0.01})

	stub := newStub("stub")
	stub.data["Y"] = series.New("Y", y)
	stub.data["X"] = series.New("X", x)
	stub.data["M"] = series.New("M", m)

	model := &modelconfig.Model{
		Meta:   modelconfig.Meta{Name: "fixture", Start: "2024-01-01", End: "2024-04-30"},
		Target: modelconfig.SeriesSpec{Provider: "stub", Series: "Y", Transform: modelconfig.TransformNone},
		Factors: []modelconfig.Factor{
			{Name: "x", SeriesSpec: modelconfig.SeriesSpec{Provider: "stub", Series: "X", Transform: modelconfig.TransformNone}},
			{Name: "m", SeriesSpec: modelconfig.SeriesSpec{Provider: "stub", Series: "M", Transform: modelconfig.TransformNone},
				Alignment: &modelconfig.Alignment{Frequency: "monthly", ReturnType: "simple", ReleaseLag: "none"}},
		},
		Regression: modelconfig.RegressionSpec{ResetPower: 3},
	}
	return stub, model
}

func TestRunnerRun(t *testing.T) {
	stub, model := fixture(t)
	model.Regression.QQPlot = filepath.Join(t.TempDir(), "qq.png")

	runner := NewRunner(provider.NewRegistry(stub), logger.Nop())
	report, err := runner.Run(context.Background(), model)
	require.NoError(t, err)

	assert.Equal(t, []string{StageTarget, StageFactors, StageFit, StageDiagnostics}, report.CompletedStages)
	assert.Len(t, report.ModelHash, 64)

	res := report.Result
	require.NotNil(t, res)
	assert.Equal(t, 87, res.N)
	assert.Equal(t, 0, report.Design.Dropped)

	x, ok := res.Coef("x")
	require.True(t, ok)
	assert.InDelta(t, 2.0, x.Estimate, 0.05)
	m, ok := res.Coef("m")
	require.True(t, ok)
	assert.InDelta(t, 3.0, m.Estimate, 0.2)
	c, ok := res.Coef(regression.ConstName)
	require.True(t, ok)
	assert.InDelta(t, 0.5, c.Estimate, 0.01)

	require.Len(t, report.Series, 3)
	assert.Equal(t, KindTarget, report.Series[0].Kind)
	assert.Equal(t, KindDaily, report.Series[1].Kind)
	assert.Equal(t, KindPeriodic, report.Series[2].Kind)
	assert.Equal(t, 5, report.Series[2].Fetched)
	assert.Equal(t, 87, report.Series[2].Points)
	assert.Zero(t, report.Series[2].Missing)

	require.Len(t, report.VIF, 2)
	require.NotNil(t, report.Reset)
	assert.Len(t, report.QQ, res.N)
	assert.Equal(t, model.Regression.QQPlot, report.QQPlotPath)
	_, err = os.Stat(report.QQPlotPath)
	assert.NoError(t, err)

	// periodic factors are fetched two months early
	assert.Equal(t, date(2023, 11, 1), stub.ranges["M"].Start)
	assert.Equal(t, date(2024, 1, 1), stub.ranges["X"].Start)
}

func TestRunnerStageFailures(t *testing.T) {
	t.Run("invalid model", func(t *testing.T) {
		stub, model := fixture(t)
		model.Meta.Name = ""
		report, err := NewRunner(provider.NewRegistry(stub), logger.Nop()).Run(context.Background(), model)
		var verr modelconfig.ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Empty(t, report.CompletedStages)
	})

	t.Run("unknown provider", func(t *testing.T) {
		stub, model := fixture(t)
		model.Target.Provider = "nope"
		report, err := NewRunner(provider.NewRegistry(stub), logger.Nop()).Run(context.Background(), model)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "target")
		assert.Empty(t, report.CompletedStages)
	})

	t.Run("factor fetch", func(t *testing.T) {
		stub, model := fixture(t)
		model.Factors[0].Series = "MISSING"
		report, err := NewRunner(provider.NewRegistry(stub), logger.Nop()).Run(context.Background(), model)
		require.Error(t, err)
		assert.ErrorIs(t, err, provider.ErrEmpty)
		assert.Contains(t, err.Error(), "factor x")
		assert.Equal(t, []string{StageTarget}, report.CompletedStages)
	})

	t.Run("collinear factors", func(t *testing.T) {
		stub, model := fixture(t)
		stub.data["X2"] = stub.data["X"].Scale(2)
		model.Factors = append(model.Factors, modelconfig.Factor{
			Name:       "x2",
			SeriesSpec: modelconfig.SeriesSpec{Provider: "stub", Series: "X2", Transform: modelconfig.TransformNone},
		})
		report, err := NewRunner(provider.NewRegistry(stub), logger.Nop()).Run(context.Background(), model)
		require.Error(t, err)
		assert.ErrorIs(t, err, regression.ErrRankDeficient)
		assert.Contains(t, err.Error(), "collinear: x, x2")
		assert.Equal(t, []string{StageTarget, StageFactors}, report.CompletedStages)
	})
}

func TestApplyTransform(t *testing.T) {
	s := series.New("s", []series.Point{
		{Date: date(2024, 1, 1), Value: 100},
		{Date: date(2024, 1, 2), Value: 110},
	})

	tests := []struct {
		name      string
		scale     float64
		transform string
		want      []float64
	}{
		{"none", 1, modelconfig.TransformNone, []float64{100, 110}},
		{"empty", 1, "", []float64{100, 110}},
		{"scaled", 0.01, modelconfig.TransformNone, []float64{1, 1.1}},
		{"pct_change", 1, modelconfig.TransformPctChange, []float64{0.1}},
		{"diff", 0.01, modelconfig.TransformDiff, []float64{0.1}},
		{"log_return", 1, modelconfig.TransformLogReturn, []float64{math.Log(1.1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ApplyTransform(s, tt.scale, tt.transform)
			require.NoError(t, err)
			assert.InDeltaSlice(t, tt.want, got.Values(), 1e-12)
		})
	}

	_, err := ApplyTransform(s, 1, "zscore")
	assert.Error(t, err)
}
