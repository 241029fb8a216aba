// Package series holds the date-indexed float series every stage exchanges.
// Missing values are NaN and propagate through every operation.
package series

import (
	"math"
	"sort"
	"time"
)

// Point is one observation
type Point struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// Series is an ordered, date-unique sequence of points
type Series struct {
	Name   string  `json:"name"`
	Points []Point `json:"points"`
}

// Day truncates t to a UTC calendar date
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// New builds a series from unordered points.
// Dates are normalised to UTC days and sorted; on duplicate dates the last point wins.
func New(name string, points []Point) *Series {
	byDate := make(map[time.Time]float64, len(points))
	for _, p := range points {
		byDate[Day(p.Date)] = p.Value
	}

	out := make([]Point, 0, len(byDate))
	for d, v := range byDate {
		out = append(out, Point{Date: d, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })

	return &Series{Name: name, Points: out}
}

// Len returns the number of points
func (s *Series) Len() int {
	return len(s.Points)
}

// Dates returns the series dates in order
func (s *Series) Dates() []time.Time {
	out := make([]time.Time, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Date
	}
	return out
}

// Values returns the series values in order
func (s *Series) Values() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Value
	}
	return out
}

// Lookup returns the value on date, false when absent
func (s *Series) Lookup(date time.Time) (float64, bool) {
	d := Day(date)
	i := sort.Search(len(s.Points), func(i int) bool { return !s.Points[i].Date.Before(d) })
	if i < len(s.Points) && s.Points[i].Date.Equal(d) {
		return s.Points[i].Value, true
	}
	return math.NaN(), false
}

// Rename returns a copy with a new name
func (s *Series) Rename(name string) *Series {
	return &Series{Name: name, Points: append([]Point(nil), s.Points...)}
}

// Between keeps points with start <= date <= end. A zero bound is open.
func (s *Series) Between(start, end time.Time) *Series {
	out := make([]Point, 0, len(s.Points))
	for _, p := range s.Points {
		if !start.IsZero() && p.Date.Before(Day(start)) {
			continue
		}
		if !end.IsZero() && p.Date.After(Day(end)) {
			continue
		}
		out = append(out, p)
	}
	return &Series{Name: s.Name, Points: out}
}

// DropMissing removes NaN points
func (s *Series) DropMissing() *Series {
	out := make([]Point, 0, len(s.Points))
	for _, p := range s.Points {
		if !math.IsNaN(p.Value) {
			out = append(out, p)
		}
	}
	return &Series{Name: s.Name, Points: out}
}

// Scale multiplies every value by f
func (s *Series) Scale(f float64) *Series {
	out := make([]Point, len(s.Points))
	for i, p := range s.Points {
		out[i] = Point{Date: p.Date, Value: p.Value * f}
	}
	return &Series{Name: s.Name, Points: out}
}

// PctChange computes v[t]/v[t-1] - 1. The first point has no prior and is dropped.
func (s *Series) PctChange() *Series {
	return s.pairwise(func(prev, curr float64) float64 {
		if prev == 0 {
			return math.NaN()
		}
		return curr/prev - 1
	})
}

// Diff computes v[t] - v[t-1]. The first point is dropped.
func (s *Series) Diff() *Series {
	return s.pairwise(func(prev, curr float64) float64 {
		return curr - prev
	})
}

// LogReturn computes ln(v[t]/v[t-1]). The first point is dropped.
func (s *Series) LogReturn() *Series {
	return s.pairwise(func(prev, curr float64) float64 {
		if prev <= 0 || curr <= 0 {
			return math.NaN()
		}
		return math.Log(curr / prev)
	})
}

func (s *Series) pairwise(fn func(prev, curr float64) float64) *Series {
	if len(s.Points) < 2 {
		return &Series{Name: s.Name}
	}
	out := make([]Point, 0, len(s.Points)-1)
	for i := 1; i < len(s.Points); i++ {
		prev, curr := s.Points[i-1].Value, s.Points[i].Value
		val := math.NaN()
		if !math.IsNaN(prev) && !math.IsNaN(curr) {
			val = fn(prev, curr)
		}
		out = append(out, Point{Date: s.Points[i].Date, Value: val})
	}
	return &Series{Name: s.Name, Points: out}
}
