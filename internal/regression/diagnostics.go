package regression

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// DefaultResetPower is the highest power of fitted values added by ResetTest
const DefaultResetPower = 3

// VIFResult is the variance inflation factor of one regressor
type VIFResult struct {
	Name string
	VIF  float64
}

// TestResult is a test statistic with its p-value and degrees of freedom
type TestResult struct {
	Statistic float64
	PValue    float64
	DF1       float64
	DF2       float64
}

// NormalityResult is the Jarque-Bera test with the moments it is built from
type NormalityResult struct {
	TestResult
	Skew     float64
	Kurtosis float64 // non-excess: 3 for a normal distribution
}

// QQPoint pairs a theoretical normal quantile with a standardised residual
type QQPoint struct {
	Theoretical float64
	Sample      float64
}

// VIF computes 1/(1-R²_j) for every non-intercept column, where R²_j comes from
// regressing column j on all other columns. Only columns that are a linear
// combination of the others reach +Inf.
func VIF(d *DesignMatrix) ([]VIFResult, error) {
	n, k := d.X.Dims()
	out := make([]VIFResult, 0, k-1)

	for j := 1; j < k; j++ {
		others := mat.NewDense(n, k-1, nil)
		col := 0
		for c := 0; c < k; c++ {
			if c == j {
				continue
			}
			others.SetCol(col, d.Column(c))
			col++
		}

		r2, err := auxR2(others, d.Column(j))
		if err != nil {
			return nil, fmt.Errorf("auxiliary regression for %s: %w", d.Names[j], err)
		}

		vif := math.Inf(1)
		if r2 < 1-1e-12 {
			vif = 1 / (1 - r2)
		}
		out = append(out, VIFResult{Name: d.Names[j], VIF: vif})
	}
	return out, nil
}

// auxR2 is the R² of regressing y on x through a rank-truncated SVD, so a
// collinear pair among the other regressors does not leak into column j
func auxR2(x *mat.Dense, y []float64) (float64, error) {
	var svd mat.SVD
	if ok := svd.Factorize(x, mat.SVDThin); !ok {
		return 0, errors.New("singular value decomposition failed")
	}
	rank := svd.Rank(rankTolerance)
	if rank < 1 {
		return 0, nil
	}

	var beta, fitted mat.VecDense
	svd.SolveVecTo(&beta, mat.NewVecDense(len(y), y), rank)
	fitted.MulVec(x, &beta)

	mean := stat.Mean(y, nil)
	var ssr, sst float64
	for i, v := range y {
		e := v - fitted.AtVec(i)
		ssr += e * e
		sst += (v - mean) * (v - mean)
	}
	if sst == 0 {
		// 상수 열은 절편과 완전 공선
		return 1, nil
	}
	return 1 - ssr/sst, nil
}

// ResetTest is Ramsey's RESET in F form: the model is refitted with
// powers 2..power of the fitted values and the added terms are tested jointly.
func ResetTest(d *DesignMatrix, res *Result, power int) (*TestResult, error) {
	if power < 2 {
		return nil, fmt.Errorf("reset power must be at least 2, got %d", power)
	}
	n, k := d.X.Dims()
	q := power - 1
	if n <= k+q {
		return nil, fmt.Errorf("%w: RESET needs more than %d observations", ErrTooFewObservations, k+q)
	}

	// 스케일링: 고차항의 조건수 개선, 검정통계량은 불변
	mean, sd := stat.MeanStdDev(res.Fitted, nil)
	if sd == 0 {
		return nil, errors.New("fitted values are constant")
	}
	z := make([]float64, n)
	for i, f := range res.Fitted {
		z[i] = (f - mean) / sd
	}

	aug := mat.NewDense(n, k+q, nil)
	aug.Slice(0, n, 0, k).(*mat.Dense).Copy(d.X)
	for p := 2; p <= power; p++ {
		col := make([]float64, n)
		for i, v := range z {
			col[i] = math.Pow(v, float64(p))
		}
		aug.SetCol(k+p-2, col)
	}

	unrestricted, err := fit(aug, d.Y, nil)
	if err != nil {
		return nil, fmt.Errorf("augmented regression: %w", err)
	}

	df1, df2 := float64(q), float64(unrestricted.DFResid)
	f := ((res.SSR - unrestricted.SSR) / df1) / (unrestricted.SSR / df2)
	return &TestResult{
		Statistic: f,
		PValue:    distuv.F{D1: df1, D2: df2}.Survival(f),
		DF1:       df1,
		DF2:       df2,
	}, nil
}

// DurbinWatson is sum((e_t - e_{t-1})²) / sum(e_t²); near 2 means no first-order autocorrelation
func DurbinWatson(resid []float64) float64 {
	if len(resid) < 2 {
		return math.NaN()
	}
	var num float64
	for i := 1; i < len(resid); i++ {
		diff := resid[i] - resid[i-1]
		num += diff * diff
	}
	return num / floats.Dot(resid, resid)
}

// JarqueBera tests residual normality from the (biased) sample skewness and kurtosis
func JarqueBera(resid []float64) NormalityResult {
	n := float64(len(resid))
	m2 := stat.Moment(2, resid, nil)
	skew := stat.Moment(3, resid, nil) / math.Pow(m2, 1.5)
	kurt := stat.Moment(4, resid, nil) / (m2 * m2)

	jb := n / 6 * (skew*skew + (kurt-3)*(kurt-3)/4)
	return NormalityResult{
		TestResult: TestResult{
			Statistic: jb,
			PValue:    distuv.ChiSquared{K: 2}.Survival(jb),
			DF1:       2,
		},
		Skew:     skew,
		Kurtosis: kurt,
	}
}

// QQ pairs sorted standardised residuals with normal quantiles at plotting
// positions i/(n+1), i = 1..n
func QQ(resid []float64) []QQPoint {
	n := len(resid)
	if n == 0 {
		return nil
	}

	mean, sd := stat.MeanStdDev(resid, nil)
	sample := make([]float64, n)
	for i, e := range resid {
		sample[i] = e - mean
		if sd > 0 {
			sample[i] /= sd
		}
	}
	sort.Float64s(sample)

	out := make([]QQPoint, n)
	for i := range sample {
		p := float64(i+1) / float64(n+1)
		out[i] = QQPoint{Theoretical: distuv.UnitNormal.Quantile(p), Sample: sample[i]}
	}
	return out
}

// QQCorrelation is the correlation of a Q-Q plot; values near 1 mean near-normal residuals
func QQCorrelation(points []QQPoint) float64 {
	if len(points) < 2 {
		return math.NaN()
	}
	x := make([]float64, len(points))
	y := make([]float64, len(points))
	for i, p := range points {
		x[i], y[i] = p.Theoretical, p.Sample
	}
	return stat.Correlation(x, y, nil)
}
