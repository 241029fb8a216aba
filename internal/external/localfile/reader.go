// Package localfile reads series from local CSV, TSV and XLSX files:
// PMI releases and precomputed factors that have no public API.
//
// Columns are positional: the first is the date, the second the value.
// A first row whose date cell does not parse is treated as a header.
package localfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/wonny/macrofactor/internal/provider"
	"github.com/wonny/macrofactor/internal/series"
	"github.com/wonny/macrofactor/pkg/logger"
)

// Name is the provider name used in model files
const Name = "localfile"

// dateLayouts are tried in order; "2006-01" dates a monthly release on the 1st
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006/01/02",
	"2006.01.02",
	"02/01/2006",
	"Jan 02, 2006",
	"Jan 2, 2006",
	"2006-01",
	"Jan 2006",
}

// Reader loads series from files relative to a base directory
type Reader struct {
	baseDir string
	logger  *logger.Logger
}

// NewReader creates a file reader; relative paths resolve against baseDir
func NewReader(baseDir string, log *logger.Logger) *Reader {
	return &Reader{baseDir: baseDir, logger: log}
}

func (r *Reader) Name() string {
	return Name
}

// Fetch reads "path" or "path#sheet" (XLSX only) and filters to the range
func (r *Reader) Fetch(ctx context.Context, seriesID string, dr provider.DateRange) (*series.Series, error) {
	if err := dr.Validate(); err != nil {
		return nil, provider.Wrap(Name, seriesID, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, provider.Wrap(Name, seriesID, err)
	}

	path, sheet, _ := strings.Cut(seriesID, "#")
	if !filepath.IsAbs(path) && r.baseDir != "" {
		path = filepath.Join(r.baseDir, path)
	}

	var rows [][]string
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		rows, err = readDelimited(path, ',')
	case ".tsv", ".txt":
		rows, err = readDelimited(path, '\t')
	case ".xlsx", ".xlsm":
		rows, err = readWorkbook(path, sheet)
	default:
		err = fmt.Errorf("unsupported file type %q (csv, tsv, xlsx)", filepath.Ext(path))
	}
	if err != nil {
		return nil, provider.Wrap(Name, seriesID, err)
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	s, err := parseRows(name, rows)
	if err != nil {
		return nil, provider.Wrap(Name, seriesID, err)
	}
	s = s.Between(dr.Start, dr.End)
	if s.Len() == 0 {
		return nil, provider.Wrap(Name, seriesID, provider.ErrEmpty)
	}

	r.logger.WithFields(map[string]interface{}{
		"path":  path,
		"count": s.Len(),
	}).Debug("Read local series")
	return s, nil
}

func readDelimited(path string, comma rune) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.Comma = comma
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	return rows, nil
}

// readWorkbook returns raw cell values so date cells arrive as Excel serials
func readWorkbook(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, errors.New("workbook has no sheets")
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	return rows, nil
}

func parseRows(name string, rows [][]string) (*series.Series, error) {
	points := make([]series.Point, 0, len(rows))
	for i, row := range rows {
		if len(row) == 0 || (len(row) == 1 && strings.TrimSpace(row[0]) == "") {
			continue
		}
		if len(row) < 2 {
			return nil, fmt.Errorf("row %d: want date and value columns, got %d", i+1, len(row))
		}

		date, err := ParseDate(row[0])
		if err != nil {
			if i == 0 {
				continue // header
			}
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}

		value, err := ParseValue(row[1])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		points = append(points, series.Point{Date: date, Value: value})
	}
	return series.New(name, points), nil
}

// ParseDate parses a date cell in any of the accepted layouts or as an Excel serial
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	// Excel serial date
	if serial, err := strconv.ParseFloat(raw, 64); err == nil && serial > 0 {
		return excelize.ExcelDateToTime(serial, false)
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", raw)
}

// ParseValue accepts plain numbers, thousands separators and percent signs.
// Empty cells and "NA"/"." are missing.
func ParseValue(raw string) (float64, error) {
	v := strings.TrimSpace(raw)
	switch strings.ToUpper(v) {
	case "", ".", "NA", "N/A", "NAN", "-":
		return math.NaN(), nil
	}
	v = strings.ReplaceAll(v, ",", "")
	v = strings.TrimSuffix(v, "%")
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("unrecognised value %q", raw)
	}
	return f, nil
}
