package regression

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// WriteQQPlot renders the Q-Q points with a 45° reference line.
// The format follows the file extension (png, svg, pdf).
func WriteQQPlot(points []QQPoint, title, path string) error {
	if len(points) == 0 {
		return errors.New("no points to plot")
	}

	xys := make(plotter.XYs, len(points))
	lo, hi := math.Inf(1), math.Inf(-1)
	for i, p := range points {
		xys[i].X, xys[i].Y = p.Theoretical, p.Sample
		lo = math.Min(lo, math.Min(p.Theoretical, p.Sample))
		hi = math.Max(hi, math.Max(p.Theoretical, p.Sample))
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Theoretical quantiles"
	p.Y.Label.Text = "Standardized residuals"
	p.Add(plotter.NewGrid())

	scatter, err := plotter.NewScatter(xys)
	if err != nil {
		return fmt.Errorf("qq scatter: %w", err)
	}
	scatter.GlyphStyle.Radius = vg.Points(1.5)
	scatter.GlyphStyle.Color = color.RGBA{R: 31, G: 119, B: 180, A: 255}

	ref, err := plotter.NewLine(plotter.XYs{{X: lo, Y: lo}, {X: hi, Y: hi}})
	if err != nil {
		return fmt.Errorf("qq reference line: %w", err)
	}
	ref.LineStyle.Color = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	ref.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}

	p.Add(scatter, ref)

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create plot directory: %w", err)
		}
	}
	if err := p.Save(6*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("save qq plot: %w", err)
	}
	return nil
}
