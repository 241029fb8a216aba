package modelconfig

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/wonny/macrofactor/internal/align"
	"github.com/wonny/macrofactor/internal/provider"
	"github.com/wonny/macrofactor/internal/regression"
)

// ValidationError 검증 실패 (실행 중단)
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e ValidationError) Unwrap() error {
	return e.Err
}

// Validate checks every field before any data is fetched
func Validate(m *Model) error {
	// === Meta ===
	if strings.TrimSpace(m.Meta.Name) == "" {
		return ValidationError{Field: "meta.name", Message: "required"}
	}
	if _, err := m.Range(); err != nil {
		return err
	}

	// === Target ===
	if err := validateSeries("target", m.Target); err != nil {
		return err
	}

	// === Factors ===
	if len(m.Factors) == 0 {
		return ValidationError{Field: "factors", Message: "at least one factor is required"}
	}
	names := map[string]bool{regression.ConstName: true}
	for i, f := range m.Factors {
		field := fmt.Sprintf("factors[%d]", i)
		if strings.TrimSpace(f.Name) == "" {
			return ValidationError{Field: field + ".name", Message: "required"}
		}
		if names[f.Name] {
			return ValidationError{Field: field + ".name", Message: fmt.Sprintf("%q is used more than once or is reserved", f.Name)}
		}
		names[f.Name] = true

		if err := validateSeries(field, f.SeriesSpec); err != nil {
			return err
		}
		if f.Alignment != nil {
			if _, err := f.Options(); err != nil {
				return ValidationError{Field: field + ".alignment", Message: err.Error(), Err: err}
			}
		}
	}

	// === Regression ===
	if m.Regression.ResetPower < 2 {
		return ValidationError{Field: "regression.reset_power", Message: "must be >= 2"}
	}
	return nil
}

func validateSeries(field string, s SeriesSpec) error {
	if strings.TrimSpace(s.Provider) == "" {
		return ValidationError{Field: field + ".provider", Message: "required"}
	}
	if strings.TrimSpace(s.Series) == "" {
		return ValidationError{Field: field + ".series", Message: "required"}
	}
	if s.Scale != nil && (*s.Scale == 0 || math.IsNaN(*s.Scale) || math.IsInf(*s.Scale, 0)) {
		return ValidationError{Field: field + ".scale", Message: "must be a finite non-zero number"}
	}
	if !validTransform(s.Transform) {
		return ValidationError{Field: field + ".transform", Message: fmt.Sprintf("unknown transform %q (valid: %s)", s.Transform, strings.Join(Transforms, ", "))}
	}
	return nil
}

func validTransform(t string) bool {
	for _, v := range Transforms {
		if t == v {
			return true
		}
	}
	return false
}

// Range parses the sample window
func (m *Model) Range() (provider.DateRange, error) {
	start, err := time.Parse("2006-01-02", m.Meta.Start)
	if err != nil {
		return provider.DateRange{}, ValidationError{Field: "meta.start", Message: "must be YYYY-MM-DD", Err: err}
	}
	end, err := time.Parse("2006-01-02", m.Meta.End)
	if err != nil {
		return provider.DateRange{}, ValidationError{Field: "meta.end", Message: "must be YYYY-MM-DD", Err: err}
	}
	r := provider.DateRange{Start: start, End: end}
	if err := r.Validate(); err != nil {
		return provider.DateRange{}, ValidationError{Field: "meta", Message: err.Error(), Err: err}
	}
	return r, nil
}

// Options converts the alignment block to engine options
func (f Factor) Options() (align.Options, error) {
	if f.Alignment == nil {
		return align.Options{}, fmt.Errorf("factor %s has no alignment", f.Name)
	}
	a := f.Alignment

	freq, err := align.ParseFrequency(a.Frequency)
	if err != nil {
		return align.Options{}, err
	}
	rt, err := align.ParseReturnType(a.ReturnType)
	if err != nil {
		return align.Options{}, err
	}
	lag, err := align.ParseReleaseLag(a.ReleaseLag)
	if err != nil {
		return align.Options{}, err
	}
	anchor := time.Sunday
	if a.WeekAnchor != "" {
		if anchor, err = align.ParseWeekday(a.WeekAnchor); err != nil {
			return align.Options{}, err
		}
	}
	return align.Options{ReturnType: rt, Frequency: freq, ReleaseLag: lag, WeekAnchor: anchor}, nil
}

// ScaleOr returns the scale factor or def when unset
func (s SeriesSpec) ScaleOr(def float64) float64 {
	if s.Scale == nil {
		return def
	}
	return *s.Scale
}

// Providers lists the distinct providers the model uses, target first
func (m *Model) Providers() []string {
	seen := map[string]bool{}
	var out []string
	add := func(p string) {
		p = strings.ToLower(strings.TrimSpace(p))
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	add(m.Target.Provider)
	for _, f := range m.Factors {
		add(f.Provider)
	}
	return out
}
