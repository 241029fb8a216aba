// Package provider defines the single capability every data source implements:
// fetch one named series over a date range.
package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wonny/macrofactor/internal/series"
)

// ErrEmpty is returned when a source answers successfully but carries no observations
var ErrEmpty = errors.New("empty response")

// Fetcher retrieves one series from an external source
// ⭐ SSOT: 모든 데이터 소스는 이 인터페이스로만 접근
type Fetcher interface {
	// Name is the provider name used in model files ("fred", "sgs", ...)
	Name() string
	Fetch(ctx context.Context, seriesID string, r DateRange) (*series.Series, error)
}

// DateRange is an inclusive [Start, End] window. A zero bound is open.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Validate rejects inverted ranges
func (r DateRange) Validate() error {
	if !r.Start.IsZero() && !r.End.IsZero() && r.End.Before(r.Start) {
		return fmt.Errorf("invalid date range: end %s is before start %s",
			r.End.Format("2006-01-02"), r.Start.Format("2006-01-02"))
	}
	return nil
}

// String renders the range as "start..end" with empty open bounds
func (r DateRange) String() string {
	return formatBound(r.Start) + ".." + formatBound(r.End)
}

func formatBound(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

// Error wraps a provider failure with the provider and series it came from
type Error struct {
	Provider string
	SeriesID string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Provider, e.SeriesID, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Wrap returns err as *Error unless it is nil or already one
func Wrap(provider, seriesID string, err error) error {
	if err == nil {
		return nil
	}
	var pe *Error
	if errors.As(err, &pe) {
		return err
	}
	return &Error{Provider: provider, SeriesID: seriesID, Err: err}
}
