// Package regression fits ordinary least squares on aligned daily series
// and runs the usual misspecification diagnostics on the fit.
package regression

import (
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/wonny/macrofactor/internal/series"
)

// ConstName is the name of the intercept column
const ConstName = "const"

// ErrNoObservations is returned when no date has a complete row
var ErrNoObservations = errors.New("no complete observations after joining target and factors")

// DesignMatrix is the regression input: one row per date where the target
// and every factor are present. Column 0 of X is the intercept.
type DesignMatrix struct {
	Dates []time.Time
	Names []string // ConstName followed by factor names
	X     *mat.Dense
	Y     []float64
	YName string

	// Dropped counts target dates removed for a missing target or factor value
	Dropped int
}

// Rows returns the number of observations
func (d *DesignMatrix) Rows() int {
	return len(d.Y)
}

// Column copies column j of X
func (d *DesignMatrix) Column(j int) []float64 {
	return mat.Col(nil, j, d.X)
}

// BuildDesign inner-joins the factors onto the target's dates.
// Rows with a NaN anywhere are dropped and an intercept column is prepended.
func BuildDesign(target *series.Series, factors ...*series.Series) (*DesignMatrix, error) {
	if target == nil {
		return nil, errors.New("target series is nil")
	}
	if len(factors) == 0 {
		return nil, errors.New("at least one factor is required")
	}

	names := []string{ConstName}
	seen := map[string]bool{ConstName: true, target.Name: true}
	for _, f := range factors {
		if seen[f.Name] {
			return nil, fmt.Errorf("duplicate column name %q", f.Name)
		}
		seen[f.Name] = true
		names = append(names, f.Name)
	}

	k := len(names)
	var (
		dates   []time.Time
		y       []float64
		data    []float64
		dropped int
	)
	for _, p := range target.Points {
		if math.IsNaN(p.Value) {
			dropped++
			continue
		}

		row := make([]float64, k)
		row[0] = 1
		complete := true
		for j, f := range factors {
			v, ok := f.Lookup(p.Date)
			if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
				complete = false
				break
			}
			row[j+1] = v
		}
		if !complete {
			dropped++
			continue
		}

		dates = append(dates, p.Date)
		y = append(y, p.Value)
		data = append(data, row...)
	}

	if len(y) == 0 {
		return nil, ErrNoObservations
	}

	return &DesignMatrix{
		Dates:   dates,
		Names:   names,
		X:       mat.NewDense(len(y), k, data),
		Y:       y,
		YName:   target.Name,
		Dropped: dropped,
	}, nil
}
