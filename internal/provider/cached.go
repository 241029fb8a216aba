package provider

import (
	"context"
	"math"
	"time"

	"github.com/wonny/macrofactor/internal/series"
	"github.com/wonny/macrofactor/pkg/logger"
	"github.com/wonny/macrofactor/pkg/redis"
)

// Store is the cache backend used by Cached. *redis.Cache satisfies it.
type Store interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// cachedSeries is the stored form of a series.
// NaN is encoded as a null value, which JSON cannot carry as a number.
type cachedSeries struct {
	Name   string        `json:"name"`
	Points []cachedPoint `json:"points"`
}

type cachedPoint struct {
	Date  time.Time `json:"d"`
	Value *float64  `json:"v"`
}

type cachedFetcher struct {
	next   Fetcher
	store  Store
	ttl    time.Duration
	logger *logger.Logger
}

// Cached decorates f with a response cache keyed by provider, series and range.
// Cache failures are logged and fall through to the source.
func Cached(f Fetcher, store Store, ttl time.Duration, log *logger.Logger) Fetcher {
	return &cachedFetcher{next: f, store: store, ttl: ttl, logger: log}
}

func (c *cachedFetcher) Name() string {
	return c.next.Name()
}

func (c *cachedFetcher) Fetch(ctx context.Context, seriesID string, r DateRange) (*series.Series, error) {
	key := redis.SeriesKey(c.next.Name(), seriesID, formatBound(r.Start), formatBound(r.End))
	log := c.logger.WithSeries(c.next.Name(), seriesID)

	var cached cachedSeries
	found, err := c.store.Get(ctx, key, &cached)
	if err != nil {
		log.WithError(err).Warn("cache read failed")
	}
	if found {
		log.WithField("key", key).Debug("cache hit")
		return decodeSeries(cached), nil
	}

	s, err := c.next.Fetch(ctx, seriesID, r)
	if err != nil {
		return nil, err
	}

	if err := c.store.Set(ctx, key, encodeSeries(s), c.ttl); err != nil {
		log.WithError(err).Warn("cache write failed")
	}
	return s, nil
}

func encodeSeries(s *series.Series) cachedSeries {
	out := cachedSeries{Name: s.Name, Points: make([]cachedPoint, len(s.Points))}
	for i, p := range s.Points {
		out.Points[i].Date = p.Date
		if !math.IsNaN(p.Value) {
			v := p.Value
			out.Points[i].Value = &v
		}
	}
	return out
}

func decodeSeries(cached cachedSeries) *series.Series {
	pts := make([]series.Point, len(cached.Points))
	for i, cp := range cached.Points {
		pts[i] = series.Point{Date: cp.Date, Value: math.NaN()}
		if cp.Value != nil {
			pts[i].Value = *cp.Value
		}
	}
	return series.New(cached.Name, pts)
}
