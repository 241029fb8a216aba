// Package htmltable scrapes indicator series published as HTML tables.
//
// The series id is the page URL. An optional fragment selects the table:
// "#2" is the third <table>, any other fragment is a CSS selector.
// Within the table the first cell of a row is the date and the second the value;
// rows whose first cell is not a date (headers, footnotes) are skipped.
package htmltable

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/wonny/macrofactor/internal/external/localfile"
	"github.com/wonny/macrofactor/internal/provider"
	"github.com/wonny/macrofactor/internal/series"
	"github.com/wonny/macrofactor/pkg/httputil"
	"github.com/wonny/macrofactor/pkg/logger"
)

// Name is the provider name used in model files
const Name = "htmltable"

// Client handles HTML table scraping
// ⭐ SSOT: HTML 테이블 스크래핑은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
}

// NewClient creates a new HTML table client
func NewClient(httpClient *httputil.Client, log *logger.Logger) *Client {
	return &Client{httpClient: httpClient, logger: log}
}

func (c *Client) Name() string {
	return Name
}

// Fetch downloads the page and reads the selected table
func (c *Client) Fetch(ctx context.Context, seriesID string, r provider.DateRange) (*series.Series, error) {
	if err := r.Validate(); err != nil {
		return nil, provider.Wrap(Name, seriesID, err)
	}

	u, err := url.Parse(seriesID)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, provider.Wrap(Name, seriesID, fmt.Errorf("series id must be an http(s) URL"))
	}
	selector := u.Fragment
	u.Fragment = ""

	body, err := c.httpClient.GetBody(ctx, u.String(), map[string]string{
		"User-Agent": "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36",
		"Accept":     "text/html",
	})
	if err != nil {
		return nil, provider.Wrap(Name, seriesID, err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, provider.Wrap(Name, seriesID, fmt.Errorf("parse html: %w", err))
	}

	table, err := selectTable(doc, selector)
	if err != nil {
		return nil, provider.Wrap(Name, seriesID, err)
	}

	points, err := parseTable(table)
	if err != nil {
		return nil, provider.Wrap(Name, seriesID, err)
	}

	s := series.New(seriesName(u), points).Between(r.Start, r.End)
	if s.Len() == 0 {
		return nil, provider.Wrap(Name, seriesID, provider.ErrEmpty)
	}

	c.logger.WithFields(map[string]interface{}{
		"url":   u.String(),
		"count": s.Len(),
	}).Debug("Scraped HTML table")
	return s, nil
}

// selectTable resolves the fragment to a single table
func selectTable(doc *goquery.Document, selector string) (*goquery.Selection, error) {
	tables := doc.Find("table")
	if tables.Length() == 0 {
		return nil, errors.New("page has no tables")
	}

	if selector == "" {
		return tables.First(), nil
	}
	if n, err := strconv.Atoi(selector); err == nil {
		if n < 0 || n >= tables.Length() {
			return nil, fmt.Errorf("table index %d out of range (page has %d tables)", n, tables.Length())
		}
		return tables.Eq(n), nil
	}

	sel := doc.Find(selector).First()
	if sel.Length() == 0 {
		return nil, fmt.Errorf("selector %q matched nothing", selector)
	}
	if !sel.Is("table") {
		sel = sel.Find("table").First()
		if sel.Length() == 0 {
			return nil, fmt.Errorf("selector %q contains no table", selector)
		}
	}
	return sel, nil
}

func parseTable(table *goquery.Selection) ([]series.Point, error) {
	var points []series.Point
	var rowErr error

	table.Find("tr").EachWithBreak(func(i int, row *goquery.Selection) bool {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return true
		}

		dateText := strings.TrimSpace(cells.Eq(0).Text())
		date, err := localfile.ParseDate(dateText)
		if err != nil {
			return true
		}

		value, err := localfile.ParseValue(cells.Eq(1).Text())
		if err != nil {
			rowErr = fmt.Errorf("row %s: %w", dateText, err)
			return false
		}
		points = append(points, series.Point{Date: date, Value: value})
		return true
	})

	if rowErr != nil {
		return nil, rowErr
	}
	return points, nil
}

// seriesName is the last path element of the page, or the host
func seriesName(u *url.URL) string {
	path := strings.Trim(u.Path, "/")
	if path == "" {
		return u.Host
	}
	if i := strings.LastIndex(path, "/"); i >= 0 {
		path = path[i+1:]
	}
	return strings.TrimSuffix(path, ".html")
}
