// Package nasdaq fetches futures positioning (CFTC COT) from Nasdaq Data Link datatables.
package nasdaq

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/macrofactor/internal/provider"
	"github.com/wonny/macrofactor/internal/series"
	"github.com/wonny/macrofactor/pkg/httputil"
	"github.com/wonny/macrofactor/pkg/logger"
)

// Name is the provider name used in model files
const Name = "nasdaq"

// maxPages bounds cursor pagination
const maxPages = 100

// Client handles communication with the Nasdaq Data Link datatables API
// ⭐ SSOT: Nasdaq Data Link API 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	apiKey     string
	baseURL    string
}

// NewClient creates a new Nasdaq Data Link client
func NewClient(httpClient *httputil.Client, apiKey, baseURL string, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log,
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// TableResponse is the body of /api/v3/datatables/{table}.json
type TableResponse struct {
	Datatable struct {
		Data    [][]interface{} `json:"data"`
		Columns []Column        `json:"columns"`
	} `json:"datatable"`
	Meta struct {
		NextCursorID *string `json:"next_cursor_id"`
	} `json:"meta"`
}

// Column describes one datatable column
type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// SeriesID identifies one column of one contract in a datatable
type SeriesID struct {
	Table    string // e.g. QDL/FON
	Contract string // CFTC contract code, e.g. 067651 (WTI)
	Column   string // e.g. market_participation
}

// ParseSeriesID parses "table/contract:column", where table itself contains one slash
func ParseSeriesID(raw string) (SeriesID, error) {
	path, column, ok := strings.Cut(strings.TrimSpace(raw), ":")
	if !ok || column == "" {
		return SeriesID{}, fmt.Errorf("series id %q: want table/contract:column", raw)
	}
	slash := strings.LastIndex(path, "/")
	if slash <= 0 || slash == len(path)-1 || !strings.Contains(path[:slash], "/") {
		return SeriesID{}, fmt.Errorf("series id %q: want table/contract:column", raw)
	}
	return SeriesID{Table: path[:slash], Contract: path[slash+1:], Column: column}, nil
}

func (c *Client) Name() string {
	return Name
}

// Fetch downloads one datatable column for one contract, following cursors
func (c *Client) Fetch(ctx context.Context, seriesID string, r provider.DateRange) (*series.Series, error) {
	if err := r.Validate(); err != nil {
		return nil, provider.Wrap(Name, seriesID, err)
	}
	if c.apiKey == "" {
		return nil, provider.Wrap(Name, seriesID, errors.New("api key is not set"))
	}
	id, err := ParseSeriesID(seriesID)
	if err != nil {
		return nil, provider.Wrap(Name, seriesID, err)
	}

	var points []series.Point
	cursor := ""
	for page := 0; page < maxPages; page++ {
		var resp TableResponse
		if err := c.httpClient.GetJSON(ctx, c.tableURL(id, r, cursor), &resp); err != nil {
			return nil, provider.Wrap(Name, seriesID, err)
		}

		pts, err := parseTable(resp.Datatable.Columns, resp.Datatable.Data, id.Column)
		if err != nil {
			return nil, provider.Wrap(Name, seriesID, err)
		}
		points = append(points, pts...)

		if resp.Meta.NextCursorID == nil || *resp.Meta.NextCursorID == "" {
			break
		}
		cursor = *resp.Meta.NextCursorID
	}

	if len(points) == 0 {
		return nil, provider.Wrap(Name, seriesID, provider.ErrEmpty)
	}

	c.logger.WithFields(map[string]interface{}{
		"table":    id.Table,
		"contract": id.Contract,
		"column":   id.Column,
		"count":    len(points),
	}).Debug("Fetched datatable rows")
	return series.New(id.Contract+"_"+id.Column, points), nil
}

func (c *Client) tableURL(id SeriesID, r provider.DateRange, cursor string) string {
	params := url.Values{}
	params.Set("api_key", c.apiKey)
	params.Set("contract_code", id.Contract)
	params.Set("qopts.columns", "date,"+id.Column)
	if !r.Start.IsZero() {
		params.Set("date.gte", r.Start.Format("2006-01-02"))
	}
	if !r.End.IsZero() {
		params.Set("date.lte", r.End.Format("2006-01-02"))
	}
	if cursor != "" {
		params.Set("qopts.cursor_id", cursor)
	}
	return fmt.Sprintf("%s/api/v3/datatables/%s.json?%s", c.baseURL, id.Table, params.Encode())
}

// parseTable extracts (date, column) pairs by column name
func parseTable(columns []Column, rows [][]interface{}, valueColumn string) ([]series.Point, error) {
	dateIdx, valueIdx := -1, -1
	for i, col := range columns {
		switch col.Name {
		case "date":
			dateIdx = i
		case valueColumn:
			valueIdx = i
		}
	}
	if dateIdx < 0 {
		return nil, errors.New("datatable has no date column")
	}
	if valueIdx < 0 {
		return nil, fmt.Errorf("datatable has no column %q", valueColumn)
	}

	points := make([]series.Point, 0, len(rows))
	for _, row := range rows {
		if len(row) <= dateIdx || len(row) <= valueIdx {
			return nil, fmt.Errorf("row has %d cells, want at least %d", len(row), max(dateIdx, valueIdx)+1)
		}

		raw, ok := row[dateIdx].(string)
		if !ok {
			return nil, fmt.Errorf("date cell %v is not a string", row[dateIdx])
		}
		date, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return nil, fmt.Errorf("parse date %q: %w", raw, err)
		}

		value, err := toFloat(row[valueIdx])
		if err != nil {
			return nil, fmt.Errorf("parse %s on %s: %w", valueColumn, raw, err)
		}
		points = append(points, series.Point{Date: date, Value: value})
	}
	return points, nil
}

// toFloat converts a JSON cell; null is missing
func toFloat(v interface{}) (float64, error) {
	switch val := v.(type) {
	case nil:
		return math.NaN(), nil
	case float64:
		return val, nil
	case string:
		if strings.TrimSpace(val) == "" {
			return math.NaN(), nil
		}
		return strconv.ParseFloat(strings.TrimSpace(val), 64)
	default:
		return 0, fmt.Errorf("unexpected cell type %T", v)
	}
}
