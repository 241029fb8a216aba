package pgprices

import (
	"context"
	"errors"
	"math"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/macrofactor/internal/provider"
	"github.com/wonny/macrofactor/pkg/config"
	"github.com/wonny/macrofactor/pkg/database"
	"github.com/wonny/macrofactor/pkg/logger"
)

type priceRow struct {
	date  time.Time
	close *float64
}

// fakeRows replays fixed rows through the pgx.Rows interface
type fakeRows struct {
	rows   []priceRow
	pos    int
	err    error
	closed bool
}

func (f *fakeRows) Close()                                       { f.closed = true }
func (f *fakeRows) Err() error                                   { return f.err }
func (f *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (f *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (f *fakeRows) Values() ([]any, error)                       { return nil, nil }
func (f *fakeRows) RawValues() [][]byte                          { return nil }
func (f *fakeRows) Conn() *pgx.Conn                              { return nil }

func (f *fakeRows) Next() bool {
	if f.pos >= len(f.rows) {
		return false
	}
	f.pos++
	return true
}

func (f *fakeRows) Scan(dest ...any) error {
	row := f.rows[f.pos-1]
	*dest[0].(*time.Time) = row.date
	*dest[1].(**float64) = row.close
	return nil
}

type fakeQuerier struct {
	rows *fakeRows
	err  error
	args []any
}

func (q *fakeQuerier) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	q.args = args
	if q.err != nil {
		return nil, q.err
	}
	return q.rows, nil
}

func ptr(v float64) *float64 { return &v }

func TestFetch(t *testing.T) {
	rows := &fakeRows{rows: []priceRow{
		{time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), ptr(37.1)},
		{time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), nil},
	}}
	q := &fakeQuerier{rows: rows}
	repo := NewRepository(q, logger.Nop())

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s, err := repo.Fetch(context.Background(), " PETR4 ", provider.DateRange{Start: start})
	require.NoError(t, err)

	assert.Equal(t, []any{"PETR4", start, nil}, q.args)
	assert.True(t, rows.closed)
	assert.Equal(t, "PETR4", s.Name)
	require.Equal(t, 2, s.Len())
	assert.Equal(t, 37.1, s.Points[0].Value)
	assert.True(t, math.IsNaN(s.Points[1].Value))
}

func TestFetchErrors(t *testing.T) {
	tests := []struct {
		name  string
		q     *fakeQuerier
		check func(t *testing.T, err error)
	}{
		{
			name: "query failure",
			q:    &fakeQuerier{err: errors.New("connection refused")},
			check: func(t *testing.T, err error) {
				assert.ErrorContains(t, err, "connection refused")
			},
		},
		{
			name: "no rows",
			q:    &fakeQuerier{rows: &fakeRows{}},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, provider.ErrEmpty)
			},
		},
		{
			name: "iteration failure",
			q:    &fakeQuerier{rows: &fakeRows{err: errors.New("conn reset")}},
			check: func(t *testing.T, err error) {
				assert.ErrorContains(t, err, "iterate daily prices")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRepository(tt.q, logger.Nop()).Fetch(context.Background(), "005930", provider.DateRange{})
			require.Error(t, err)

			var pe *provider.Error
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, Name, pe.Provider)
			tt.check(t, err)
		})
	}

	_, err := NewRepository(&fakeQuerier{}, logger.Nop()).Fetch(context.Background(), "  ", provider.DateRange{})
	assert.ErrorContains(t, err, "stock code is empty")
}

func TestFetchLive(t *testing.T) {
	if testing.Short() || os.Getenv("DATABASE_URL") == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	cfg, err := config.Load()
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := database.New(ctx, cfg)
	require.NoError(t, err)
	defer db.Close()

	s, err := NewRepository(db.Pool, logger.Nop()).Fetch(ctx, "005930", provider.DateRange{
		Start: time.Now().AddDate(0, -1, 0),
	})
	if errors.Is(err, provider.ErrEmpty) {
		t.Skip("no recent prices in database")
	}
	require.NoError(t, err)
	assert.Positive(t, s.Len())
}
