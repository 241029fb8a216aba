package align

import (
	"fmt"
	"strings"
	"time"
)

// ReturnType selects how a periodic rate is split across days
type ReturnType string

const (
	// Simple rates compound: (1+r)^(1/n) - 1 per day
	Simple ReturnType = "simple"
	// Log rates add: r/n per day
	Log ReturnType = "log"
)

// Frequency is the release cadence of the periodic series
type Frequency string

const (
	Monthly Frequency = "monthly"
	Weekly  Frequency = "weekly"
)

// ReleaseLag models publication delay
type ReleaseLag string

const (
	// NoLag applies period P's rate to dates in P
	NoLag ReleaseLag = "none"
	// ShiftOne applies period P's rate to dates in P+1
	ShiftOne ReleaseLag = "shift_one"
)

// ConfigError reports an invalid alignment parameter
type ConfigError struct {
	Param string
	Value string
	Valid []string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s %q (valid: %s)", e.Param, e.Value, strings.Join(e.Valid, ", "))
}

// ParseReturnType accepts "simple" or "log"
func ParseReturnType(s string) (ReturnType, error) {
	rt := ReturnType(strings.ToLower(strings.TrimSpace(s)))
	if err := rt.validate(); err != nil {
		return "", err
	}
	return rt, nil
}

// ParseFrequency accepts "monthly"/"M" or "weekly"/"W"
func ParseFrequency(s string) (Frequency, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "monthly", "m":
		return Monthly, nil
	case "weekly", "w":
		return Weekly, nil
	}
	return "", &ConfigError{Param: "frequency", Value: s, Valid: []string{string(Monthly), string(Weekly)}}
}

// ParseReleaseLag accepts "none" or "shift_one"
func ParseReleaseLag(s string) (ReleaseLag, error) {
	lag := ReleaseLag(strings.ToLower(strings.TrimSpace(s)))
	if err := lag.validate(); err != nil {
		return "", err
	}
	return lag, nil
}

func (rt ReturnType) validate() error {
	if rt == Simple || rt == Log {
		return nil
	}
	return &ConfigError{Param: "return_type", Value: string(rt), Valid: []string{string(Simple), string(Log)}}
}

func (f Frequency) validate() error {
	if f == Monthly || f == Weekly {
		return nil
	}
	return &ConfigError{Param: "frequency", Value: string(f), Valid: []string{string(Monthly), string(Weekly)}}
}

func (l ReleaseLag) validate() error {
	if l == NoLag || l == ShiftOne {
		return nil
	}
	return &ConfigError{Param: "release_lag", Value: string(l), Valid: []string{string(NoLag), string(ShiftOne)}}
}

// Options configures Distribute.
// WeekAnchor is the weekday that closes a weekly period (Sunday when unset, pandas "W").
type Options struct {
	ReturnType ReturnType
	Frequency  Frequency
	ReleaseLag ReleaseLag
	WeekAnchor time.Weekday
}

// Validate rejects unknown enum values
func (o Options) Validate() error {
	if err := o.Frequency.validate(); err != nil {
		return err
	}
	if err := o.ReturnType.validate(); err != nil {
		return err
	}
	if err := o.ReleaseLag.validate(); err != nil {
		return err
	}
	if o.WeekAnchor < time.Sunday || o.WeekAnchor > time.Saturday {
		return &ConfigError{Param: "week_anchor", Value: o.WeekAnchor.String(), Valid: []string{"Sunday..Saturday"}}
	}
	return nil
}

// ParseWeekday accepts English weekday names or three-letter abbreviations
func ParseWeekday(s string) (time.Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if s == name || s == name[:3] {
			return d, nil
		}
	}
	return 0, &ConfigError{Param: "week_anchor", Value: s, Valid: []string{"sun", "mon", "tue", "wed", "thu", "fri", "sat"}}
}
