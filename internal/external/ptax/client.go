// Package ptax fetches the BRL/USD PTAX fixing from the BCB Olinda OData service.
package ptax

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/wonny/macrofactor/internal/provider"
	"github.com/wonny/macrofactor/internal/series"
	"github.com/wonny/macrofactor/pkg/httputil"
	"github.com/wonny/macrofactor/pkg/logger"
)

// Name is the provider name used in model files
const Name = "ptax"

// Series identifiers: which side of the fixing to return
const (
	SideBuy  = "buy"
	SideSell = "sell"
	SideMid  = "mid"
)

// queryLayout is the MM-dd-yyyy format Olinda expects in parameters
const queryLayout = "01-02-2006"

// firstFixing is the earliest date the PTAX service covers, used for open ranges
var firstFixing = time.Date(1984, 11, 28, 0, 0, 0, 0, time.UTC)

// Client handles communication with the Olinda PTAX service
// ⭐ SSOT: PTAX API 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
	now        func() time.Time
}

// NewClient creates a new PTAX client
func NewClient(httpClient *httputil.Client, baseURL string, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log,
		baseURL:    strings.TrimRight(baseURL, "/"),
		now:        time.Now,
	}
}

// PeriodResponse is the OData envelope of CotacaoDolarPeriodo
type PeriodResponse struct {
	Value []Quote `json:"value"`
}

// Quote is one daily fixing
type Quote struct {
	Buy      float64 `json:"cotacaoCompra"`
	Sell     float64 `json:"cotacaoVenda"`
	DateTime string  `json:"dataHoraCotacao"` // "2024-01-02 13:04:27.584"
}

func (c *Client) Name() string {
	return Name
}

// Fetch downloads the USD fixing; seriesID selects "buy", "sell" or "mid"
func (c *Client) Fetch(ctx context.Context, seriesID string, r provider.DateRange) (*series.Series, error) {
	if err := r.Validate(); err != nil {
		return nil, provider.Wrap(Name, seriesID, err)
	}
	side := strings.ToLower(strings.TrimSpace(seriesID))
	if side == "" {
		side = SideMid
	}
	if side != SideBuy && side != SideSell && side != SideMid {
		return nil, provider.Wrap(Name, seriesID, fmt.Errorf("unknown side %q (valid: buy, sell, mid)", seriesID))
	}

	var resp PeriodResponse
	if err := c.httpClient.GetJSON(ctx, c.periodURL(r), &resp); err != nil {
		return nil, provider.Wrap(Name, seriesID, err)
	}

	s, err := parseQuotes("usdbrl_"+side, resp.Value, side)
	if err != nil {
		return nil, provider.Wrap(Name, seriesID, err)
	}

	c.logger.WithFields(map[string]interface{}{
		"side":  side,
		"count": s.Len(),
	}).Debug("Fetched PTAX fixings")
	return s, nil
}

func (c *Client) periodURL(r provider.DateRange) string {
	start, end := r.Start, r.End
	if start.IsZero() {
		start = firstFixing
	}
	if end.IsZero() {
		end = c.now()
	}

	return fmt.Sprintf(
		"%s/olinda/servico/PTAX/versao/v1/odata/CotacaoDolarPeriodo(dataInicial=@dataInicial,dataFinalCotacao=@dataFinalCotacao)"+
			"?@dataInicial=%s&@dataFinalCotacao=%s&$format=json&$select=cotacaoCompra,cotacaoVenda,dataHoraCotacao",
		c.baseURL,
		url.QueryEscape("'"+start.Format(queryLayout)+"'"),
		url.QueryEscape("'"+end.Format(queryLayout)+"'"),
	)
}

// parseQuotes picks one side of each fixing, dated by the day of dataHoraCotacao
func parseQuotes(name string, quotes []Quote, side string) (*series.Series, error) {
	if len(quotes) == 0 {
		return nil, provider.ErrEmpty
	}

	points := make([]series.Point, 0, len(quotes))
	for _, q := range quotes {
		raw := strings.TrimSpace(q.DateTime)
		if len(raw) < 10 {
			return nil, fmt.Errorf("parse dataHoraCotacao %q: too short", q.DateTime)
		}
		date, err := time.Parse("2006-01-02", raw[:10])
		if err != nil {
			return nil, fmt.Errorf("parse dataHoraCotacao %q: %w", q.DateTime, err)
		}

		var value float64
		switch side {
		case SideBuy:
			value = q.Buy
		case SideSell:
			value = q.Sell
		default:
			value = (q.Buy + q.Sell) / 2
		}
		points = append(points, series.Point{Date: date, Value: value})
	}
	return series.New(name, points), nil
}
