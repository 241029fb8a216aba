// Package pgprices reads target-asset daily closes from the research Postgres.
// The database is only ever read.
package pgprices

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/wonny/macrofactor/internal/provider"
	"github.com/wonny/macrofactor/internal/series"
	"github.com/wonny/macrofactor/pkg/logger"
)

// Name is the provider name used in model files
const Name = "pgprices"

// Querier is the subset of pgxpool.Pool used here
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const closesQuery = `
	SELECT trade_date, close_price::float8
	FROM data.daily_prices
	WHERE stock_code = $1
	  AND ($2::date IS NULL OR trade_date >= $2)
	  AND ($3::date IS NULL OR trade_date <= $3)
	ORDER BY trade_date ASC
`

// Repository serves daily closes as a provider
// ⭐ SSOT: 가격 DB 조회는 이 저장소에서만
type Repository struct {
	db     Querier
	logger *logger.Logger
}

// NewRepository creates a price repository over db
func NewRepository(db Querier, log *logger.Logger) *Repository {
	return &Repository{db: db, logger: log}
}

func (r *Repository) Name() string {
	return Name
}

// Fetch loads the close series of one stock code; NULL closes are missing
func (r *Repository) Fetch(ctx context.Context, seriesID string, dr provider.DateRange) (*series.Series, error) {
	if err := dr.Validate(); err != nil {
		return nil, provider.Wrap(Name, seriesID, err)
	}
	code := strings.TrimSpace(seriesID)
	if code == "" {
		return nil, provider.Wrap(Name, seriesID, fmt.Errorf("stock code is empty"))
	}

	rows, err := r.db.Query(ctx, closesQuery, code, nullableDate(dr.Start), nullableDate(dr.End))
	if err != nil {
		return nil, provider.Wrap(Name, seriesID, fmt.Errorf("query daily prices: %w", err))
	}
	defer rows.Close()

	var points []series.Point
	for rows.Next() {
		var date time.Time
		var closePrice *float64
		if err := rows.Scan(&date, &closePrice); err != nil {
			return nil, provider.Wrap(Name, seriesID, fmt.Errorf("scan daily price: %w", err))
		}

		value := math.NaN()
		if closePrice != nil {
			value = *closePrice
		}
		points = append(points, series.Point{Date: date, Value: value})
	}
	if err := rows.Err(); err != nil {
		return nil, provider.Wrap(Name, seriesID, fmt.Errorf("iterate daily prices: %w", err))
	}
	if len(points) == 0 {
		return nil, provider.Wrap(Name, seriesID, provider.ErrEmpty)
	}

	r.logger.WithFields(map[string]interface{}{
		"stock_code": code,
		"count":      len(points),
	}).Debug("Loaded daily closes")
	return series.New(code, points), nil
}

func nullableDate(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
