package charts

import (
	"fmt"
	"io"
	"math"

	"github.com/Dan9191/credit-dashboard/internal/models"
	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// Stacked renders a stacked bar per category with one segment per group.
// Empty categories are skipped.
func Stacked(w io.Writer, f Format, title string, data models.StackedCounts) error {
	if data.Total() == 0 {
		return ErrNoData
	}
	var bars []chart.StackedBar
	for i, category := range data.Categories {
		var values []chart.Value
		for j, group := range data.Groups {
			if c := data.Counts[i][j]; c > 0 {
				values = append(values, chart.Value{Value: float64(c), Label: group, Style: fillStyle(seriesColor(j))})
			}
		}
		if len(values) > 0 {
			bars = append(bars, chart.StackedBar{Name: category, Values: values})
		}
	}

	sbc := chart.StackedBarChart{
		Title:      title,
		TitleStyle: titleStyle(),
		Width:      Width,
		Height:     Height,
		Background: backgroundStyle(64),
		Canvas:     canvasStyle(),
		XAxis:      axisStyle(),
		YAxis:      axisStyle(),
		BarSpacing: 40,
		Bars:       bars,
		Elements:   []chart.Renderable{legend(data.Groups)},
	}
	return sbc.Render(f.provider(), w)
}

// Pie renders one slice per category
func Pie(w io.Writer, f Format, title string, counts []models.CategoryCount) error {
	var values []chart.Value
	for i, c := range counts {
		if c.Count > 0 {
			values = append(values, chart.Value{
				Value: float64(c.Count),
				Label: fmt.Sprintf("%s (%d)", c.Label, c.Count),
				Style: chart.Style{FillColor: seriesColor(i), StrokeColor: colorPaper, StrokeWidth: 2, FontColor: colorText, FontSize: 9},
			})
		}
	}
	if len(values) == 0 {
		return ErrNoData
	}
	pc := chart.PieChart{
		Title:      title,
		TitleStyle: titleStyle(),
		Width:      Width,
		Height:     Height,
		Background: backgroundStyle(40),
		Canvas:     chart.Style{FillColor: colorPaper, StrokeColor: colorPaper},
		Values:     values,
	}
	return pc.Render(f.provider(), w)
}

// Histogram renders one bar per bin, labelling every fifth bin
func Histogram(w io.Writer, f Format, title string, bins []models.HistogramBin) error {
	total, peak := 0, 0
	for _, b := range bins {
		total += b.Count
		peak = max(peak, b.Count)
	}
	if total == 0 {
		return ErrNoData
	}
	bars := make([]chart.Value, len(bins))
	for i, b := range bins {
		label := ""
		if i%5 == 0 {
			label = formatTick(math.Round(b.Lower))
		}
		bars[i] = chart.Value{Value: float64(b.Count), Label: label, Style: fillStyle(ColorPrimary)}
	}
	bc := chart.BarChart{
		Title:      title,
		TitleStyle: titleStyle(),
		Width:      Width,
		Height:     Height,
		Background: backgroundStyle(40),
		Canvas:     canvasStyle(),
		BarWidth:   16,
		BarSpacing: 3,
		XAxis:      axisStyle(),
		YAxis:      chart.YAxis{Style: axisStyle(), Range: countRange(float64(peak))},
		Bars:       bars,
	}
	return bc.Render(f.provider(), w)
}

// Risk renders the good/bad split
func Risk(w io.Writer, f Format, title string, risk models.RiskDistribution) error {
	if risk.Good+risk.Bad == 0 {
		return ErrNoData
	}
	bc := chart.BarChart{
		Title:      title,
		TitleStyle: titleStyle(),
		Width:      Width,
		Height:     Height,
		Background: backgroundStyle(40),
		Canvas:     canvasStyle(),
		BarWidth:   120,
		BarSpacing: 80,
		XAxis:      axisStyle(),
		YAxis:      chart.YAxis{Style: axisStyle(), Range: countRange(math.Max(risk.Good, risk.Bad))},
		Bars: []chart.Value{
			{Value: risk.Good, Label: "Good Risk", Style: fillStyle(ColorSuccess)},
			{Value: risk.Bad, Label: "Bad Risk", Style: fillStyle(ColorAccent)},
		},
	}
	return bc.Render(f.provider(), w)
}

// Scatter renders one dot series per entry
func Scatter(w io.Writer, f Format, title, xName, yName string, series []models.ScatterSeries) error {
	xlo, xhi := math.Inf(1), math.Inf(-1)
	ylo, yhi := math.Inf(1), math.Inf(-1)
	var out []chart.Series
	for i, s := range series {
		if len(s.X) == 0 {
			continue
		}
		for k := range s.X {
			xlo, xhi = math.Min(xlo, s.X[k]), math.Max(xhi, s.X[k])
			ylo, yhi = math.Min(ylo, s.Y[k]), math.Max(yhi, s.Y[k])
		}
		out = append(out, chart.ContinuousSeries{
			Name:    s.Name,
			XValues: s.X,
			YValues: s.Y,
			Style:   pointStyle(seriesColor(i)),
		})
	}
	if len(out) == 0 {
		return ErrNoData
	}
	xr, yr := paddedRange(xlo, xhi), paddedRange(ylo, yhi)
	ch := chart.Chart{
		Title:      title,
		TitleStyle: titleStyle(),
		Width:      Width,
		Height:     Height,
		Background: backgroundStyle(40),
		Canvas:     canvasStyle(),
		XAxis:      chart.XAxis{Name: xName, NameStyle: axisStyle(), Style: axisStyle(), Range: xr, Ticks: niceTicks(xr.Min, xr.Max, 8)},
		YAxis:      chart.YAxis{Name: yName, NameStyle: axisStyle(), Style: axisStyle(), Range: yr, Ticks: niceTicks(yr.Min, yr.Max, 6), GridMajorStyle: gridStyle()},
		Series:     out,
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch, chart.Style{FillColor: colorPaper, FontColor: colorText, StrokeColor: colorGrid})}
	return ch.Render(f.provider(), w)
}

// Box renders a box plot: a whisker from min to max, a box from Q1 to Q3 and a
// median marker for every category.
func Box(w io.Writer, f Format, title, yName string, stats []models.BoxStats) error {
	lo, hi := math.Inf(1), math.Inf(-1)
	var (
		series []chart.Series
		ticks  []chart.Tick
	)
	for i, s := range stats {
		if s.Count == 0 {
			continue
		}
		x := float64(len(ticks) + 1)
		lo, hi = math.Min(lo, s.Min), math.Max(hi, s.Max)
		col := seriesColor(i + 2)
		series = append(series,
			chart.ContinuousSeries{
				Name:    s.Label + " range",
				XValues: []float64{x, x},
				YValues: []float64{s.Min, s.Max},
				Style:   chart.Style{StrokeColor: colorMuted, StrokeWidth: 2},
			},
			chart.ContinuousSeries{
				Name:    s.Label + " IQR",
				XValues: []float64{x, x},
				YValues: []float64{s.Q1, s.Q3},
				Style:   chart.Style{StrokeColor: col, StrokeWidth: 36},
			},
			chart.ContinuousSeries{
				Name:    s.Label + " median",
				XValues: []float64{x},
				YValues: []float64{s.Median},
				Style:   pointStyle(colorText),
			},
		)
		ticks = append(ticks, chart.Tick{Value: x, Label: fmt.Sprintf("%s (n=%d)", s.Label, s.Count)})
	}
	if len(ticks) == 0 {
		return ErrNoData
	}
	// Custom ticks set the x range; unlabelled end ticks keep it non-zero for a single category.
	n := float64(len(ticks))
	ticks = append(append([]chart.Tick{{Value: 0.5}}, ticks...), chart.Tick{Value: n + 0.5})
	yr := paddedRange(lo, hi)
	ch := chart.Chart{
		Title:      title,
		TitleStyle: titleStyle(),
		Width:      Width,
		Height:     Height,
		Background: backgroundStyle(40),
		Canvas:     canvasStyle(),
		XAxis:      chart.XAxis{Style: axisStyle(), Range: &chart.ContinuousRange{Min: 0.5, Max: n + 0.5}, Ticks: ticks},
		YAxis:      chart.YAxis{Name: yName, NameStyle: axisStyle(), Style: axisStyle(), Range: yr, Ticks: niceTicks(yr.Min, yr.Max, 6), GridMajorStyle: gridStyle()},
		Series:     series,
	}
	return ch.Render(f.provider(), w)
}

// pointStyle renders points only (no connecting line)
func pointStyle(col drawing.Color) chart.Style {
	return chart.Style{
		StrokeWidth: chart.Disabled,
		DotWidth:    4,
		DotColor:    col,
	}
}

// legend draws a row of colour swatches above the canvas; stacked bar charts
// have no built-in legend.
func legend(names []string) chart.Renderable {
	return func(r chart.Renderer, cb chart.Box, defaults chart.Style) {
		font := defaults.Font
		if font == nil {
			f, err := chart.GetDefaultFont()
			if err != nil {
				return
			}
			font = f
		}
		r.SetFont(font)
		r.SetFontSize(9)

		x, y := cb.Left, cb.Top-24
		for i, name := range names {
			col := seriesColor(i)
			r.SetFillColor(col)
			r.SetStrokeColor(col)
			r.SetStrokeWidth(1)
			r.MoveTo(x, y)
			r.LineTo(x+10, y)
			r.LineTo(x+10, y+10)
			r.LineTo(x, y+10)
			r.Close()
			r.FillStroke()

			r.SetFontColor(colorText)
			r.Text(name, x+14, y+9)
			x += 14 + r.MeasureText(name).Width() + 14
			if x > cb.Right-60 {
				x, y = cb.Left, y+14
			}
		}
	}
}
