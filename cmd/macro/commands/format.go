package commands

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"github.com/wonny/macrofactor/internal/pipeline"
	"github.com/wonny/macrofactor/internal/series"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

// out is where every report is printed; logs go to stderr
var out io.Writer = os.Stdout

const dateLayout = "2006-01-02"

// PrintHeader prints a titled block header
func PrintHeader(title string) {
	fmt.Fprintln(out)
	PrintDoubleSeparator()
	fmt.Fprintf(out, "  %s\n", title)
	PrintSeparator()
}

// PrintSeparator prints a visual separator
func PrintSeparator() {
	fmt.Fprintln(out, "───────────────────────────────────────────────────────────")
}

// PrintDoubleSeparator prints a double-line separator
func PrintDoubleSeparator() {
	fmt.Fprintln(out, "═══════════════════════════════════════════════════════════")
}

// PrintWarning prints a warning message
func PrintWarning(message string) {
	fmt.Fprintln(out)
	fmt.Fprintf(out, "⚠️  %s\n", message)
	fmt.Fprintln(out)
}

// PrintSuccess prints a success message
func PrintSuccess(message string) {
	fmt.Fprintf(out, "✅ %s\n", message)
}

// PrintError prints an error message
func PrintError(message string) {
	fmt.Fprintf(out, "❌ %s\n", message)
}

// PrintInfo prints an info message
func PrintInfo(message string) {
	fmt.Fprintf(out, "ℹ️  %s\n", message)
}

// PrintTableHeader prints a table header
func PrintTableHeader(columns []string, widths []int) {
	PrintTableRow(columns, widths)

	// Separator line
	totalWidth := 0
	for i, width := range widths {
		totalWidth += width
		if i < len(widths)-1 {
			totalWidth += 2 // spacing
		}
	}
	fmt.Fprintln(out, strings.Repeat("─", totalWidth))
}

// PrintTableRow prints a table row
func PrintTableRow(values []string, widths []int) {
	for i, val := range values {
		fmt.Fprintf(out, "%-*s", widths[i], val)
		if i < len(values)-1 {
			fmt.Fprint(out, "  ")
		}
	}
	fmt.Fprintln(out)
}

// PrintKeyValue prints key-value pairs
func PrintKeyValue(key string, value string, keyWidth int) {
	fmt.Fprintf(out, "   %-*s : %s\n", keyWidth, key, value)
}

// formatFloat renders NaN as "NaN" and keeps small rates readable
func formatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "+Inf"
	case math.IsInf(v, -1):
		return "-Inf"
	case v != 0 && math.Abs(v) < 1e-4:
		return fmt.Sprintf("%.4e", v)
	default:
		return fmt.Sprintf("%.6f", v)
	}
}

func formatPValue(p float64) string {
	if p < 1e-4 {
		return "<0.0001"
	}
	return fmt.Sprintf("%.4f", p)
}

// stars marks significance at 10/5/1%
func stars(p float64) string {
	switch {
	case p < 0.01:
		return "***"
	case p < 0.05:
		return "**"
	case p < 0.1:
		return "*"
	default:
		return ""
	}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(dateLayout)
}

// PrintSeries prints one series as a date/value table.
// limit > 0 keeps only the last limit points.
func PrintSeries(s *series.Series, limit int) {
	points := s.Points
	if limit > 0 && len(points) > limit {
		fmt.Fprintf(out, "   ... %d earlier points omitted\n", len(points)-limit)
		points = points[len(points)-limit:]
	}

	widths := []int{12, 16}
	PrintTableHeader([]string{"Date", s.Name}, widths)
	for _, p := range points {
		PrintTableRow([]string{p.Date.Format(dateLayout), formatFloat(p.Value)}, widths)
	}
}

// PrintReport renders a pipeline run: inputs, coefficients, fit and diagnostics
func PrintReport(r *pipeline.Report) {
	PrintHeader("Macro Factor Regression: " + r.Model)
	PrintKeyValue("Model hash", r.ModelHash, 12)
	PrintKeyValue("Sample", r.Range.String(), 12)
	PrintKeyValue("Duration", r.Duration.Round(time.Millisecond).String(), 12)

	// Inputs
	PrintHeader("Series")
	widths := []int{14, 9, 10, 22, 7, 7, 7, 10, 10}
	PrintTableHeader([]string{"Name", "Kind", "Provider", "Series", "Fetched", "Points", "NaN", "First", "Last"}, widths)
	for _, s := range r.Series {
		PrintTableRow([]string{
			s.Name, s.Kind, s.Provider, truncate(s.SeriesID, 22),
			fmt.Sprint(s.Fetched), fmt.Sprint(s.Points), fmt.Sprint(s.Missing),
			formatDate(s.First), formatDate(s.Last),
		}, widths)
	}

	res := r.Result
	if res == nil {
		return
	}

	// Coefficients
	PrintHeader("Coefficients")
	widths = []int{14, 12, 12, 9, 9, 4}
	PrintTableHeader([]string{"Term", "Estimate", "Std.Err", "t", "P>|t|", ""}, widths)
	for _, c := range res.Coefficients {
		PrintTableRow([]string{
			c.Name, formatFloat(c.Estimate), formatFloat(c.StdErr),
			fmt.Sprintf("%.3f", c.TStat), formatPValue(c.PValue), stars(c.PValue),
		}, widths)
	}
	fmt.Fprintln(out, "   Signif: *** 1%  ** 5%  * 10%")

	// Fit
	PrintHeader("Fit")
	PrintKeyValue("Observations", fmt.Sprintf("%d (%d dropped)", res.N, r.Design.Dropped), 16)
	PrintKeyValue("R²", fmt.Sprintf("%.4f", res.R2), 16)
	PrintKeyValue("Adj. R²", fmt.Sprintf("%.4f", res.AdjR2), 16)
	PrintKeyValue("F-statistic", fmt.Sprintf("%.4f (p=%s)", res.FStat, formatPValue(res.FPValue)), 16)
	PrintKeyValue("Log-likelihood", fmt.Sprintf("%.4f", res.LogLik), 16)
	PrintKeyValue("AIC / BIC", fmt.Sprintf("%.4f / %.4f", res.AIC, res.BIC), 16)

	// Diagnostics
	PrintHeader("Diagnostics")
	if len(r.VIF) > 0 {
		widths = []int{14, 12}
		PrintTableHeader([]string{"Factor", "VIF"}, widths)
		for _, v := range r.VIF {
			PrintTableRow([]string{v.Name, fmt.Sprintf("%.3f", v.VIF)}, widths)
		}
		fmt.Fprintln(out)
	}
	if r.Reset != nil {
		PrintKeyValue("RESET", fmt.Sprintf("F(%.0f, %.0f) = %.4f (p=%s)",
			r.Reset.DF1, r.Reset.DF2, r.Reset.Statistic, formatPValue(r.Reset.PValue)), 16)
	} else {
		PrintKeyValue("RESET", "skipped", 16)
	}
	PrintKeyValue("Durbin-Watson", fmt.Sprintf("%.4f", r.DurbinWatson), 16)
	PrintKeyValue("Jarque-Bera", fmt.Sprintf("%.4f (p=%s)", r.JarqueBera.Statistic, formatPValue(r.JarqueBera.PValue)), 16)
	PrintKeyValue("Skew / Kurtosis", fmt.Sprintf("%.4f / %.4f", r.JarqueBera.Skew, r.JarqueBera.Kurtosis), 16)
	PrintKeyValue("Q-Q correlation", fmt.Sprintf("%.4f", r.QQCorrelation), 16)
	if r.QQPlotPath != "" {
		PrintKeyValue("Q-Q plot", r.QQPlotPath, 16)
	}
	PrintDoubleSeparator()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
