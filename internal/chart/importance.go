// Package chart renders dashboard images.
package chart

import (
	"errors"
	"fmt"
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/churn-dashboard/backend/internal/models"
)

// ErrNoEntries is returned when there is nothing to draw.
var ErrNoEntries = errors.New("chart: no importance entries")

// Options sizes the rendered image.
type Options struct {
	Title  string
	Width  vg.Length
	Height vg.Length
}

// DefaultOptions fit a top-10 chart.
var DefaultOptions = Options{
	Title:  "Top Features by Importance",
	Width:  6 * vg.Inch,
	Height: 4 * vg.Inch,
}

var barColor = color.RGBA{R: 0x4c, G: 0x72, B: 0xb0, A: 0xff}

// RenderImportance writes a horizontal bar chart PNG. Entries are expected
// in descending order; the first entry is drawn at the top.
func RenderImportance(w io.Writer, entries []models.ImportanceEntry, opts Options) error {
	if len(entries) == 0 {
		return ErrNoEntries
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		opts.Width, opts.Height = DefaultOptions.Width, DefaultOptions.Height
	}

	n := len(entries)
	values := make(plotter.Values, n)
	names := make([]string, n)
	for i, e := range entries {
		// the category axis grows upwards
		values[n-1-i] = e.Importance
		names[n-1-i] = e.Feature
	}

	p := plot.New()
	p.Title.Text = opts.Title
	p.X.Label.Text = "Importance"
	p.Y.Label.Text = "Feature"
	p.X.Min = 0

	bars, err := plotter.NewBarChart(values, vg.Points(14))
	if err != nil {
		return fmt.Errorf("chart: %w", err)
	}
	bars.Horizontal = true
	bars.Color = barColor
	bars.LineStyle.Width = 0
	p.Add(bars)
	p.NominalY(names...)

	wt, err := p.WriterTo(opts.Width, opts.Height, "png")
	if err != nil {
		return fmt.Errorf("chart: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("chart: write png: %w", err)
	}
	return nil
}
