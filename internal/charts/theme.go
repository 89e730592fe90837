// Package charts renders the dashboard charts with go-chart.
package charts

import (
	"errors"
	"fmt"
	"math"
	"strings"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// Chart size in pixels
const (
	Width  = 720
	Height = 420
)

// ErrNoData is returned when a chart has nothing to draw
var ErrNoData = errors.New("no data to chart")

// Dark theme colours
var (
	colorPaper = drawing.ColorFromHex("2d2d2d")
	colorBG    = drawing.ColorFromHex("1a1a1a")
	colorText  = drawing.ColorFromHex("f5f5f5")
	colorGrid  = drawing.ColorFromHex("404040")
	colorMuted = drawing.ColorFromHex("b0b0b0")
)

// Series is the series colour cycle
var Series = []drawing.Color{
	drawing.ColorFromHex("4a90e2"),
	drawing.ColorFromHex("7b68ee"),
	drawing.ColorFromHex("ff6b6b"),
	drawing.ColorFromHex("51cf66"),
	drawing.ColorFromHex("ffd43b"),
	drawing.ColorFromHex("ff8cc8"),
	drawing.ColorFromHex("06d6a0"),
	drawing.ColorFromHex("f72585"),
}

// Named colours used for single-series charts
var (
	ColorPrimary = Series[0]
	ColorAccent  = Series[2]
	ColorSuccess = Series[3]
)

// seriesColor cycles through the palette
func seriesColor(i int) drawing.Color {
	return Series[i%len(Series)]
}

// Format is an output image format
type Format string

// Supported formats
const (
	PNG Format = "png"
	SVG Format = "svg"
)

// ParseFormat accepts png or svg, case-insensitively
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case PNG:
		return PNG, nil
	case SVG:
		return SVG, nil
	default:
		return "", fmt.Errorf("unsupported chart format %q", s)
	}
}

// ContentType returns the MIME type of the format
func (f Format) ContentType() string {
	if f == SVG {
		return "image/svg+xml"
	}
	return "image/png"
}

func (f Format) provider() chart.RendererProvider {
	if f == SVG {
		return chart.SVG
	}
	return chart.PNG
}

func titleStyle() chart.Style {
	return chart.Style{FontColor: colorText, FontSize: 14}
}

func backgroundStyle(top int) chart.Style {
	return chart.Style{
		FillColor:   colorPaper,
		StrokeColor: colorPaper,
		Padding:     chart.Box{Top: top, Left: 16, Right: 16, Bottom: 16},
	}
}

func canvasStyle() chart.Style {
	return chart.Style{FillColor: colorBG, StrokeColor: colorBG}
}

func axisStyle() chart.Style {
	return chart.Style{FontColor: colorText, StrokeColor: colorGrid, FontSize: 9}
}

func gridStyle() chart.Style {
	return chart.Style{StrokeColor: colorGrid, StrokeWidth: 1}
}

func fillStyle(c drawing.Color) chart.Style {
	return chart.Style{FillColor: c, StrokeColor: c, StrokeWidth: 1}
}

// paddedRange returns an axis range around [lo, hi] that is never empty.
func paddedRange(lo, hi float64) *chart.ContinuousRange {
	if math.IsInf(lo, 0) || math.IsInf(hi, 0) {
		return &chart.ContinuousRange{Min: 0, Max: 1}
	}
	if hi <= lo {
		return &chart.ContinuousRange{Min: lo - 1, Max: hi + 1}
	}
	pad := (hi - lo) * 0.05
	return &chart.ContinuousRange{Min: lo - pad, Max: hi + pad}
}

// countRange returns a zero-based range that fits max.
func countRange(max float64) *chart.ContinuousRange {
	if max <= 0 {
		max = 1
	}
	return &chart.ContinuousRange{Min: 0, Max: math.Ceil(max * 1.1)}
}

// niceTicks generates up to n tick marks between [min, max] using 1-2-2.5-5 steps.
func niceTicks(min, max float64, n int) []chart.Tick {
	if n < 2 || math.IsNaN(min) || math.IsNaN(max) {
		return nil
	}
	if max <= min {
		max = min + 1
	}
	span := max - min
	mag := math.Pow(10, math.Floor(math.Log10(span/float64(n-1))))
	bestStep, bestScore := mag, math.MaxFloat64
	for _, c := range []float64{1, 2, 2.5, 5, 10} {
		step := c * mag
		count := math.Max(math.Ceil(span/step), 2)
		if score := math.Abs(count - float64(n)); score < bestScore {
			bestScore, bestStep = score, step
		}
	}
	var ticks []chart.Tick
	for v := math.Ceil(min/bestStep) * bestStep; v <= max+bestStep/1e6; v += bestStep {
		ticks = append(ticks, chart.Tick{Value: v, Label: formatTick(v)})
		if len(ticks) > n+2 {
			break
		}
	}
	return ticks
}

func formatTick(v float64) string {
	av := math.Abs(v)
	switch {
	case av >= 10000:
		return fmt.Sprintf("%.0fk", v/1000)
	case av == math.Trunc(av):
		return fmt.Sprintf("%.0f", v)
	default:
		return fmt.Sprintf("%.1f", v)
	}
}
