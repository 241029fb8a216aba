// Package pipeline runs one model end to end:
// fetch → transform → align onto the target index → fit → diagnostics.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/wonny/macrofactor/internal/align"
	"github.com/wonny/macrofactor/internal/modelconfig"
	"github.com/wonny/macrofactor/internal/provider"
	"github.com/wonny/macrofactor/internal/regression"
	"github.com/wonny/macrofactor/internal/series"
	"github.com/wonny/macrofactor/pkg/logger"
)

// Stage names recorded in Report.CompletedStages
const (
	StageTarget      = "target"
	StageFactors     = "factors"
	StageFit         = "fit"
	StageDiagnostics = "diagnostics"
)

// Series kinds
const (
	KindTarget   = "target"
	KindDaily    = "daily"
	KindPeriodic = "periodic"
)

// Runner coordinates one model run
// ⭐ SSOT: 파이프라인 조율은 여기서만
type Runner struct {
	registry *provider.Registry
	logger   *logger.Logger
}

// SeriesSummary describes one input series as it entered the regression
type SeriesSummary struct {
	Name     string
	Kind     string
	Provider string
	SeriesID string
	Fetched  int // points returned by the provider
	Points   int // points on the target index
	Missing  int // NaN points on the target index
	First    time.Time
	Last     time.Time
}

// Report holds everything a run produced
type Report struct {
	Model           string
	ModelHash       string
	Range           provider.DateRange
	Series          []SeriesSummary
	Design          *regression.DesignMatrix
	Result          *regression.Result
	VIF             []regression.VIFResult
	Reset           *regression.TestResult
	DurbinWatson    float64
	JarqueBera      regression.NormalityResult
	QQ              []regression.QQPoint
	QQCorrelation   float64
	QQPlotPath      string
	CompletedStages []string
	Duration        time.Duration
}

// NewRunner creates a runner over the given providers
func NewRunner(registry *provider.Registry, log *logger.Logger) *Runner {
	return &Runner{registry: registry, logger: log}
}

// Run executes the model. Any error aborts the run; the returned report
// lists the stages that completed before the failure.
func (r *Runner) Run(ctx context.Context, m *modelconfig.Model) (*Report, error) {
	startTime := time.Now()
	report := &Report{Model: m.Meta.Name}

	if err := modelconfig.Validate(m); err != nil {
		return report, err
	}

	hash, err := modelconfig.Hash(m)
	if err != nil {
		return report, fmt.Errorf("hash model: %w", err)
	}
	report.ModelHash = hash

	rng, err := m.Range()
	if err != nil {
		return report, err
	}
	report.Range = rng

	log := r.logger.WithModel(m.Meta.Name, hash)
	log.WithFields(map[string]interface{}{
		"start":   m.Meta.Start,
		"end":     m.Meta.End,
		"factors": len(m.Factors),
	}).Info("Starting model run")

	// 1. Target
	target, fetched, err := r.LoadSeries(ctx, m.Target, rng)
	if err != nil {
		return report, fmt.Errorf("target: %w", err)
	}
	target = target.Rename(m.Meta.Name)
	index := series.NewIndex(target.Dates())
	if len(index) == 0 {
		return report, fmt.Errorf("target: %w", provider.ErrEmpty)
	}
	report.Series = append(report.Series, summarize(target, KindTarget, m.Target, fetched))
	report.CompletedStages = append(report.CompletedStages, StageTarget)

	// 2. Factors onto the target index
	factors := make([]*series.Series, 0, len(m.Factors))
	for _, f := range m.Factors {
		aligned, summary, err := r.alignFactor(ctx, f, rng, index)
		if err != nil {
			return report, fmt.Errorf("factor %s: %w", f.Name, err)
		}
		factors = append(factors, aligned)
		report.Series = append(report.Series, summary)
	}
	report.CompletedStages = append(report.CompletedStages, StageFactors)

	// 3. Fit
	design, err := regression.BuildDesign(target, factors...)
	if err != nil {
		return report, fmt.Errorf("design: %w", err)
	}
	report.Design = design

	res, err := regression.Fit(design)
	if err != nil {
		if errors.Is(err, regression.ErrRankDeficient) {
			err = explainCollinearity(design, err)
		}
		return report, fmt.Errorf("fit: %w", err)
	}
	report.Result = res
	report.CompletedStages = append(report.CompletedStages, StageFit)

	// 4. Diagnostics
	if err := r.diagnose(report, m.Regression); err != nil {
		return report, fmt.Errorf("diagnostics: %w", err)
	}
	report.CompletedStages = append(report.CompletedStages, StageDiagnostics)

	report.Duration = time.Since(startTime)
	log.WithFields(map[string]interface{}{
		"obs":      res.N,
		"dropped":  design.Dropped,
		"r2":       res.R2,
		"duration": report.Duration.String(),
	}).Info("Model run completed")
	return report, nil
}

// LoadSeries fetches one series and applies its scale and transform.
// It also returns the number of points the provider returned.
func (r *Runner) LoadSeries(ctx context.Context, spec modelconfig.SeriesSpec, rng provider.DateRange) (*series.Series, int, error) {
	f, err := r.registry.Get(spec.Provider)
	if err != nil {
		return nil, 0, err
	}

	raw, err := f.Fetch(ctx, spec.Series, rng)
	if err != nil {
		return nil, 0, err
	}

	s, err := ApplyTransform(raw, spec.ScaleOr(1), spec.Transform)
	if err != nil {
		return nil, 0, err
	}

	r.logger.WithSeries(spec.Provider, spec.Series).WithFields(map[string]interface{}{
		"fetched":   raw.Len(),
		"transform": spec.Transform,
	}).Debug("Loaded series")
	return s, raw.Len(), nil
}

// alignFactor brings one factor onto the target index
func (r *Runner) alignFactor(ctx context.Context, f modelconfig.Factor, rng provider.DateRange, index series.Index) (*series.Series, SeriesSummary, error) {
	if f.Alignment == nil {
		s, fetched, err := r.LoadSeries(ctx, f.SeriesSpec, rng)
		if err != nil {
			return nil, SeriesSummary{}, err
		}
		aligned := s.Rename(f.Name).Reindex(index, series.FillForward)
		return aligned, summarize(aligned, KindDaily, f.SeriesSpec, fetched), nil
	}

	opts, err := f.Options()
	if err != nil {
		return nil, SeriesSummary{}, err
	}

	// 발표 지연과 변환으로 잃는 앞쪽 기간을 보충
	s, fetched, err := r.LoadSeries(ctx, f.SeriesSpec, extendBack(rng, opts.Frequency))
	if err != nil {
		return nil, SeriesSummary{}, err
	}

	aligned, err := align.Distribute(s.DropMissing(), index, f.Name, opts)
	if err != nil {
		return nil, SeriesSummary{}, err
	}
	return aligned, summarize(aligned, KindPeriodic, f.SeriesSpec, fetched), nil
}

// extendBack moves the start two periods earlier so the first target period
// still has a rate after a one-period release lag or a differencing transform
func extendBack(rng provider.DateRange, freq align.Frequency) provider.DateRange {
	if rng.Start.IsZero() {
		return rng
	}
	if freq == align.Weekly {
		rng.Start = rng.Start.AddDate(0, 0, -14)
	} else {
		rng.Start = rng.Start.AddDate(0, -2, 0)
	}
	return rng
}

func (r *Runner) diagnose(report *Report, spec modelconfig.RegressionSpec) error {
	design, res := report.Design, report.Result

	vif, err := regression.VIF(design)
	if err != nil {
		return err
	}
	report.VIF = vif

	power := spec.ResetPower
	if power == 0 {
		power = regression.DefaultResetPower
	}
	reset, err := regression.ResetTest(design, res, power)
	if err != nil {
		// 관측치가 부족하면 RESET만 생략
		if !errors.Is(err, regression.ErrTooFewObservations) {
			return err
		}
		r.logger.WithError(err).Warn("RESET test skipped")
	}
	report.Reset = reset

	report.DurbinWatson = regression.DurbinWatson(res.Residuals)
	report.JarqueBera = regression.JarqueBera(res.Residuals)
	report.QQ = regression.QQ(res.Residuals)
	report.QQCorrelation = regression.QQCorrelation(report.QQ)

	if spec.QQPlot != "" {
		title := fmt.Sprintf("%s residuals (n=%d)", report.Model, res.N)
		if err := regression.WriteQQPlot(report.QQ, title, spec.QQPlot); err != nil {
			return err
		}
		report.QQPlotPath = spec.QQPlot
		r.logger.WithField("path", spec.QQPlot).Info("Q-Q plot written")
	}
	return nil
}

// explainCollinearity names the factors with infinite VIF
func explainCollinearity(design *regression.DesignMatrix, cause error) error {
	vif, err := regression.VIF(design)
	if err != nil {
		return cause
	}
	var names []string
	for _, v := range vif {
		if math.IsInf(v.VIF, 1) {
			names = append(names, v.Name)
		}
	}
	if len(names) == 0 {
		return cause
	}
	return fmt.Errorf("%w (collinear: %s)", cause, strings.Join(names, ", "))
}

func summarize(s *series.Series, kind string, spec modelconfig.SeriesSpec, fetched int) SeriesSummary {
	sum := SeriesSummary{
		Name:     s.Name,
		Kind:     kind,
		Provider: spec.Provider,
		SeriesID: spec.Series,
		Fetched:  fetched,
		Points:   s.Len(),
	}
	for _, p := range s.Points {
		if math.IsNaN(p.Value) {
			sum.Missing++
		}
	}
	if s.Len() > 0 {
		sum.First = s.Points[0].Date
		sum.Last = s.Points[s.Len()-1].Date
	}
	return sum
}
