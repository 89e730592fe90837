package service

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/Dan9191/credit-dashboard/internal/charts"
	"github.com/Dan9191/credit-dashboard/internal/models"
	"github.com/sirupsen/logrus"
)

// Placeholder messages
const (
	NoDataMessage      = "No data for the current filters"
	UnavailableMessage = "Chart unavailable"
)

// Chart describes one dashboard chart
type Chart struct {
	ID    string
	Title string

	render func(w io.Writer, f charts.Format, title string, data *models.ChartData) error
}

var chartRegistry = []Chart{
	{
		ID:    "age-sex",
		Title: "Age Distribution by Gender",
		render: func(w io.Writer, f charts.Format, title string, d *models.ChartData) error {
			return charts.Stacked(w, f, title, d.AgeSex)
		},
	},
	{
		ID:    "purpose",
		Title: "Loan Purpose Distribution",
		render: func(w io.Writer, f charts.Format, title string, d *models.ChartData) error {
			return charts.Pie(w, f, title, d.Purpose)
		},
	},
	{
		ID:    "credit-amount",
		Title: "Credit Amount Distribution",
		render: func(w io.Writer, f charts.Format, title string, d *models.ChartData) error {
			return charts.Histogram(w, f, title, d.CreditAmount)
		},
	},
	{
		ID:    "housing-job",
		Title: "Housing Type by Job Category",
		render: func(w io.Writer, f charts.Format, title string, d *models.ChartData) error {
			return charts.Stacked(w, f, title, d.HousingJob)
		},
	},
	{
		ID:    "amount-by-housing",
		Title: "Credit Amount Distribution by Housing Type",
		render: func(w io.Writer, f charts.Format, title string, d *models.ChartData) error {
			return charts.Box(w, f, title, "Credit Amount (DM)", d.AmountByHousing)
		},
	},
	{
		ID:    "duration-amount",
		Title: "Duration vs Credit Amount by Purpose",
		render: func(w io.Writer, f charts.Format, title string, d *models.ChartData) error {
			return charts.Scatter(w, f, title, "Duration (months)", "Credit Amount (DM)", d.DurationAmount)
		},
	},
	{
		ID:    "savings-checking",
		Title: "Savings vs Checking Accounts",
		render: func(w io.Writer, f charts.Format, title string, d *models.ChartData) error {
			return charts.Stacked(w, f, title, d.SavingsChecking)
		},
	},
	{
		ID:    "risk",
		Title: "Credit Risk Distribution",
		render: func(w io.Writer, f charts.Format, title string, d *models.ChartData) error {
			if d.Risk.Estimated {
				title += " (Estimated)"
			}
			return charts.Risk(w, f, title, d.Risk)
		},
	},
}

// Charts lists the dashboard charts in page order
func Charts() []Chart {
	out := make([]Chart, len(chartRegistry))
	copy(out, chartRegistry)
	return out
}

func lookupChart(id string) (Chart, bool) {
	for _, c := range chartRegistry {
		if c.ID == id {
			return c, true
		}
	}
	return Chart{}, false
}

// RenderChart draws chart id for the rows matching f. An empty view or a
// renderer failure produces a placeholder image instead of an error.
func (s *Service) RenderChart(w io.Writer, id string, format charts.Format, f models.FilterState) error {
	c, ok := lookupChart(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownChart, id)
	}

	ds := s.store.Current()
	data := BuildChartData(Apply(ds.Records(), f), ds.HasRisk())

	var buf bytes.Buffer
	err := c.render(&buf, format, c.Title, &data)
	switch {
	case err == nil:
		s.metrics.RecordChartRender(id, string(format), "ok")
		_, err = buf.WriteTo(w)
		return err
	case errors.Is(err, charts.ErrNoData):
		s.metrics.RecordChartRender(id, string(format), "empty")
		return charts.Placeholder(w, format, c.Title, NoDataMessage)
	default:
		s.metrics.RecordChartRender(id, string(format), "error")
		s.log.WithFields(logrus.Fields{"chart": id, "format": format}).Errorf("Chart render failed: %v", err)
		return charts.Placeholder(w, format, c.Title, UnavailableMessage)
	}
}
