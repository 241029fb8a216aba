// Package fred fetches economic indicators from the St. Louis Fed FRED API.
package fred

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
const Name = "fred"

// missingValue is FRED's placeholder for a missing observation
const missingValue = "."

// Client handles communication with the FRED API
// ⭐ SSOT: FRED API 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	apiKey     string
	baseURL    string
}

// NewClient creates a new FRED client
func NewClient(httpClient *httputil.Client, apiKey, baseURL string, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log,
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// ObservationsResponse is the body of /fred/series/observations
type ObservationsResponse struct {
	ObservationStart string        `json:"observation_start"`
	ObservationEnd   string        `json:"observation_end"`
	Count            int           `json:"count"`
	Observations     []Observation `json:"observations"`
}

// Observation is one dated value; Value is "." when missing
type Observation struct {
	Date  string `json:"date"`
	Value string `json:"value"`
}

func (c *Client) Name() string {
	return Name
}

// Fetch downloads one FRED series. Missing observations become NaN.
func (c *Client) Fetch(ctx context.Context, seriesID string, r provider.DateRange) (*series.Series, error) {
	if err := r.Validate(); err != nil {
		return nil, provider.Wrap(Name, seriesID, err)
	}
	if c.apiKey == "" {
		return nil, provider.Wrap(Name, seriesID, errors.New("api key is not set"))
	}

	var resp ObservationsResponse
	if err := c.httpClient.GetJSON(ctx, c.observationsURL(seriesID, r), &resp); err != nil {
		return nil, provider.Wrap(Name, seriesID, err)
	}

	s, err := parseObservations(seriesID, resp.Observations)
	if err != nil {
		return nil, provider.Wrap(Name, seriesID, err)
	}

	c.logger.WithFields(map[string]interface{}{
		"series": seriesID,
		"count":  s.Len(),
	}).Debug("Fetched FRED observations")
	return s, nil
}

func (c *Client) observationsURL(seriesID string, r provider.DateRange) string {
	params := url.Values{}
	params.Set("series_id", seriesID)
	params.Set("api_key", c.apiKey)
	params.Set("file_type", "json")
	if !r.Start.IsZero() {
		params.Set("observation_start", r.Start.Format("2006-01-02"))
	}
	if !r.End.IsZero() {
		params.Set("observation_end", r.End.Format("2006-01-02"))
	}
	return fmt.Sprintf("%s/fred/series/observations?%s", c.baseURL, params.Encode())
}

// parseObservations converts the observation list to a series
func parseObservations(name string, obs []Observation) (*series.Series, error) {
	if len(obs) == 0 {
		return nil, provider.ErrEmpty
	}

	points := make([]series.Point, 0, len(obs))
	for _, o := range obs {
		date, err := time.Parse("2006-01-02", o.Date)
		if err != nil {
			return nil, fmt.Errorf("parse date %q: %w", o.Date, err)
		}

		value := math.NaN()
		if v := strings.TrimSpace(o.Value); v != missingValue && v != "" {
			value, err = strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, fmt.Errorf("parse value %q on %s: %w", o.Value, o.Date, err)
			}
		}
		points = append(points, series.Point{Date: date, Value: value})
	}
	return series.New(name, points), nil
}
