// Package sgs fetches series from the Banco Central do Brasil SGS time-series API.
package sgs

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
const Name = "sgs"

// dateLayout is the dd/MM/yyyy format used for both query params and payload dates
const dateLayout = "02/01/2006"

// maxWindowYears is the longest range SGS serves in one request
const maxWindowYears = 10

// Client handles communication with the SGS API
// ⭐ SSOT: BCB SGS API 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
}

// NewClient creates a new SGS client
func NewClient(httpClient *httputil.Client, baseURL string, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// Observation is one row of the SGS JSON array
type Observation struct {
	Data  string `json:"data"`  // dd/MM/yyyy
	Valor string `json:"valor"` // decimal point, may be empty
}

func (c *Client) Name() string {
	return Name
}

// Fetch downloads an SGS series by numeric code (e.g. "433" for IPCA).
// Ranges longer than ten years are requested in consecutive windows.
func (c *Client) Fetch(ctx context.Context, seriesID string, r provider.DateRange) (*series.Series, error) {
	if err := r.Validate(); err != nil {
		return nil, provider.Wrap(Name, seriesID, err)
	}
	code := strings.TrimSpace(seriesID)
	if _, err := strconv.Atoi(code); err != nil {
		return nil, provider.Wrap(Name, seriesID, fmt.Errorf("series code must be numeric: %q", seriesID))
	}

	var all []Observation
	for _, w := range windows(r) {
		var rows []Observation
		err := c.httpClient.GetJSON(ctx, c.seriesURL(code, w), &rows)
		if err != nil && !errors.Is(err, httputil.ErrEmptyBody) {
			return nil, provider.Wrap(Name, seriesID, err)
		}
		all = append(all, rows...)
	}

	s, err := parseObservations(seriesID, all)
	if err != nil {
		return nil, provider.Wrap(Name, seriesID, err)
	}

	c.logger.WithFields(map[string]interface{}{
		"series": seriesID,
		"count":  s.Len(),
	}).Debug("Fetched SGS series")
	return s, nil
}

func (c *Client) seriesURL(code string, r provider.DateRange) string {
	params := url.Values{}
	params.Set("formato", "json")
	if !r.Start.IsZero() {
		params.Set("dataInicial", r.Start.Format(dateLayout))
	}
	if !r.End.IsZero() {
		params.Set("dataFinal", r.End.Format(dateLayout))
	}
	return fmt.Sprintf("%s/dados/serie/bcdata.sgs.%s/dados?%s", c.baseURL, code, params.Encode())
}

// windows splits a closed range into consecutive spans of at most ten years.
// Open ranges are requested as-is.
func windows(r provider.DateRange) []provider.DateRange {
	if r.Start.IsZero() || r.End.IsZero() {
		return []provider.DateRange{r}
	}

	var out []provider.DateRange
	start := r.Start
	for !start.After(r.End) {
		end := start.AddDate(maxWindowYears, 0, -1)
		if end.After(r.End) {
			end = r.End
		}
		out = append(out, provider.DateRange{Start: start, End: end})
		start = end.AddDate(0, 0, 1)
	}
	return out
}

// parseObservations converts SGS rows to a series; an empty valor is missing
func parseObservations(name string, rows []Observation) (*series.Series, error) {
	if len(rows) == 0 {
		return nil, provider.ErrEmpty
	}

	points := make([]series.Point, 0, len(rows))
	for _, row := range rows {
		date, err := time.Parse(dateLayout, strings.TrimSpace(row.Data))
		if err != nil {
			return nil, fmt.Errorf("parse date %q: %w", row.Data, err)
		}

		value := math.NaN()
		if v := strings.TrimSpace(row.Valor); v != "" {
			// 일부 시리즈는 소수점에 쉼표 사용
			value, err = strconv.ParseFloat(strings.ReplaceAll(v, ",", "."), 64)
			if err != nil {
				return nil, fmt.Errorf("parse value %q on %s: %w", row.Valor, row.Data, err)
			}
		}
		points = append(points, series.Point{Date: date, Value: value})
	}
	return series.New(name, points), nil
}
