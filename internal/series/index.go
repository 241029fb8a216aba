package series

import (
	"math"
	"sort"
	"time"
)

// Index is the ordered, de-duplicated set of dates every factor is projected onto
type Index []time.Time

// NewIndex normalises dates to UTC days, sorts them and drops duplicates
func NewIndex(dates []time.Time) Index {
	seen := make(map[time.Time]bool, len(dates))
	out := make(Index, 0, len(dates))
	for _, d := range dates {
		day := Day(d)
		if seen[day] {
			continue
		}
		seen[day] = true
		out = append(out, day)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// Fill controls how Reindex treats target dates with no observation
type Fill int

const (
	// FillNone leaves gaps as NaN
	FillNone Fill = iota
	// FillForward carries the last observation at or before the date
	FillForward
)

// Reindex projects s onto idx. The output has exactly one point per index date.
// FillForward skips NaN observations, so a missing print carries the prior value.
func (s *Series) Reindex(idx Index, fill Fill) *Series {
	out := make([]Point, len(idx))
	j := 0
	last := math.NaN()
	for i, d := range idx {
		for j < len(s.Points) && !s.Points[j].Date.After(d) {
			if !math.IsNaN(s.Points[j].Value) {
				last = s.Points[j].Value
			}
			j++
		}

		val := math.NaN()
		if fill == FillForward {
			val = last
		} else if j > 0 && s.Points[j-1].Date.Equal(d) {
			val = s.Points[j-1].Value
		}
		out[i] = Point{Date: d, Value: val}
	}
	return &Series{Name: s.Name, Points: out}
}
