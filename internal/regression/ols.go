package regression

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// rankTolerance is the smallest singular value, relative to the largest,
// for which X is treated as full rank
const rankTolerance = 1e-10

var (
	// ErrTooFewObservations is returned when rows do not exceed regressors
	ErrTooFewObservations = errors.New("fewer observations than regressors")
	// ErrRankDeficient is returned when regressors are (near) perfectly collinear
	ErrRankDeficient = errors.New("design matrix is rank deficient")
)

// Coefficient is one estimated parameter with its inference statistics
type Coefficient struct {
	Name     string
	Estimate float64
	StdErr   float64
	TStat    float64
	PValue   float64 // two-sided, Student t with DFResid degrees of freedom
}

// Result holds an OLS fit
type Result struct {
	Coefficients []Coefficient
	Fitted       []float64
	Residuals    []float64

	N       int // observations
	K       int // regressors including the intercept
	DFModel int
	DFResid int

	SSR     float64 // residual sum of squares
	TSS     float64 // centred total sum of squares
	R2      float64
	AdjR2   float64
	FStat   float64
	FPValue float64
	LogLik  float64
	AIC     float64
	BIC     float64
}

// Coef returns the coefficient with the given column name
func (r *Result) Coef(name string) (Coefficient, bool) {
	for _, c := range r.Coefficients {
		if c.Name == name {
			return c, true
		}
	}
	return Coefficient{}, false
}

// Fit estimates y = Xb + e by least squares on the design matrix
func Fit(d *DesignMatrix) (*Result, error) {
	return fit(d.X, d.Y, d.Names)
}

// fit solves the least-squares problem through a QR decomposition of X.
// X must contain an intercept column for R² and F to be meaningful.
func fit(x *mat.Dense, y []float64, names []string) (*Result, error) {
	n, k := x.Dims()
	if len(y) != n {
		return nil, fmt.Errorf("x has %d rows but y has %d", n, len(y))
	}
	if n <= k {
		return nil, fmt.Errorf("%w: %d observations, %d regressors", ErrTooFewObservations, n, k)
	}

	if err := checkRank(x); err != nil {
		return nil, err
	}

	var qr mat.QR
	qr.Factorize(x)

	var beta mat.VecDense
	if err := qr.SolveVecTo(&beta, false, mat.NewVecDense(n, y)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRankDeficient, err)
	}

	// (X'X)^-1 for the coefficient covariance
	var xtx mat.SymDense
	xtx.SymOuterK(1, x.T())
	var chol mat.Cholesky
	if ok := chol.Factorize(&xtx); !ok {
		return nil, ErrRankDeficient
	}
	var xtxInv mat.SymDense
	if err := chol.InverseTo(&xtxInv); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRankDeficient, err)
	}

	var fittedVec mat.VecDense
	fittedVec.MulVec(x, &beta)
	fitted := make([]float64, n)
	resid := make([]float64, n)
	for i := range y {
		fitted[i] = fittedVec.AtVec(i)
		resid[i] = y[i] - fitted[i]
	}

	res := &Result{
		Fitted:    fitted,
		Residuals: resid,
		N:         n,
		K:         k,
		DFModel:   k - 1,
		DFResid:   n - k,
		SSR:       floats.Dot(resid, resid),
	}

	mean := stat.Mean(y, nil)
	for _, v := range y {
		res.TSS += (v - mean) * (v - mean)
	}

	df := float64(res.DFResid)
	sigma2 := res.SSR / df
	tdist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}

	res.Coefficients = make([]Coefficient, k)
	for j := 0; j < k; j++ {
		c := Coefficient{Estimate: beta.AtVec(j)}
		if j < len(names) {
			c.Name = names[j]
		}
		c.StdErr = math.Sqrt(sigma2 * xtxInv.At(j, j))
		c.TStat = c.Estimate / c.StdErr
		c.PValue = 2 * tdist.Survival(math.Abs(c.TStat))
		res.Coefficients[j] = c
	}

	if res.TSS > 0 {
		res.R2 = 1 - res.SSR/res.TSS
		res.AdjR2 = 1 - (1-res.R2)*float64(n-1)/df
	}

	res.FStat, res.FPValue = math.NaN(), math.NaN()
	if res.DFModel > 0 && res.SSR > 0 {
		res.FStat = ((res.TSS - res.SSR) / float64(res.DFModel)) / sigma2
		res.FPValue = distuv.F{D1: float64(res.DFModel), D2: df}.Survival(res.FStat)
	}

	nf := float64(n)
	res.LogLik = -nf / 2 * (math.Log(2*math.Pi) + math.Log(res.SSR/nf) + 1)
	res.AIC = -2*res.LogLik + 2*float64(k)
	res.BIC = -2*res.LogLik + float64(k)*math.Log(nf)

	return res, nil
}

// checkRank rejects designs whose columns are (near) linearly dependent
func checkRank(x *mat.Dense) error {
	var svd mat.SVD
	if ok := svd.Factorize(x, mat.SVDNone); !ok {
		return fmt.Errorf("%w: singular value decomposition failed", ErrRankDeficient)
	}
	sv := svd.Values(nil)
	if len(sv) == 0 || sv[0] == 0 || sv[len(sv)-1] <= sv[0]*rankTolerance {
		return ErrRankDeficient
	}
	return nil
}
