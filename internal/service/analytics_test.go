package service

import (
	"testing"
	"time"

	"github.com/Dan9191/credit-dashboard/internal/models"
	"github.com/Dan9191/credit-dashboard/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	samplePath      = "../repository/testdata/german_credit_sample.csv"
	unlabelledPath  = "../repository/testdata/german_credit_unlabelled.csv"
	sampleAvgCredit = 3978.5
)

func loadSample(t *testing.T, path string) *repository.Dataset {
	t.Helper()
	ds, err := repository.LoadDataset(path)
	require.NoError(t, err)
	return ds
}

func TestApplyDefaultFilterKeepsEverything(t *testing.T) {
	ds := loadSample(t, samplePath)
	assert.Len(t, Apply(ds.Records(), models.FilterState{}), 24)
}

func TestApplyPredicates(t *testing.T) {
	ds := loadSample(t, samplePath)

	tests := []struct {
		name   string
		filter models.FilterState
		want   int
	}{
		{name: "housing", filter: models.FilterState{Housing: []string{"rent"}}, want: 6},
		{name: "housing and purpose", filter: models.FilterState{Housing: []string{"rent"}, Purposes: []string{"car"}}, want: 4},
		{name: "no purpose selected", filter: models.FilterState{Purposes: []string{}}, want: 0},
		{name: "sex", filter: models.FilterState{Sexes: []string{"female"}}, want: 7},
		{name: "age inclusive", filter: models.FilterState{AgeMin: models.Bound(22), AgeMax: models.Bound(25)}, want: 5},
		{name: "inverted age range", filter: models.FilterState{AgeMin: models.Bound(25), AgeMax: models.Bound(22)}, want: 5},
		{name: "amount lower bound", filter: models.FilterState{AmountMin: models.Bound(9055)}, want: 2},
		{name: "duration upper bound", filter: models.FilterState{DurationMax: models.Bound(6)}, want: 2},
		{name: "unknown purpose", filter: models.FilterState{Purposes: []string{"vacation/others"}}, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, Apply(ds.Records(), tt.filter), tt.want)
		})
	}
}

func TestApplyIsMonotonic(t *testing.T) {
	ds := loadSample(t, samplePath)
	records := ds.Records()

	prev := len(records)
	for lo := 22; lo <= 67; lo += 5 {
		n := len(Apply(records, models.FilterState{AgeMin: models.Bound(lo)}))
		assert.LessOrEqual(t, n, prev, "age min %d", lo)
		prev = n
	}

	prev = len(records)
	for _, hi := range []int{12579, 11079, 9579, 8079, 6579, 5079, 3579, 2079, 1, 0} {
		n := len(Apply(records, models.FilterState{AmountMax: models.Bound(hi)}))
		assert.LessOrEqual(t, n, prev, "amount max %d", hi)
		prev = n
	}
	assert.Empty(t, Apply(records, models.FilterState{AmountMax: models.Bound(0)}), "a zero upper bound is a bound")

	purposes := append([]string(nil), ds.Options().Purposes...)
	prev = len(records)
	for len(purposes) > 0 {
		purposes = purposes[:len(purposes)-1]
		n := len(Apply(records, models.FilterState{Purposes: purposes}))
		assert.LessOrEqual(t, n, prev, "purposes %v", purposes)
		prev = n
	}
	assert.Equal(t, 0, prev)
}

func TestComputeMetrics(t *testing.T) {
	ds := loadSample(t, samplePath)
	full := ds.Records()

	m := ComputeMetrics(full, full, true)
	assert.True(t, m.HasData)
	assert.Equal(t, 24, m.TotalRecords)
	assert.Equal(t, 0, m.RecordsDelta)
	assert.InDelta(t, sampleAvgCredit, m.AvgCreditAmount, 1e-6)
	assert.InDelta(t, 0, m.CreditDelta, 1e-6)
	assert.InDelta(t, 22.6667, m.AvgDuration, 1e-3)
	assert.InDelta(t, 40.6667, m.AvgAge, 1e-3)
	assert.InDelta(t, 33.333, m.BadRiskPct, 1e-2)

	rent := Apply(full, models.FilterState{Housing: []string{"rent"}})
	m = ComputeMetrics(rent, full, true)
	assert.Equal(t, 6, m.TotalRecords)
	assert.Equal(t, -18, m.RecordsDelta)
	assert.InDelta(t, 3140.333, m.AvgCreditAmount, 1e-2)
	assert.InDelta(t, 3140.333-sampleAvgCredit, m.CreditDelta, 1e-2)
	assert.InDelta(t, 34, m.AvgAge, 1e-9)
	assert.InDelta(t, 34-40.6667, m.AgeDelta, 1e-3)
}

func TestComputeMetricsEmptyView(t *testing.T) {
	ds := loadSample(t, samplePath)
	m := ComputeMetrics(nil, ds.Records(), true)
	assert.False(t, m.HasData)
	assert.Equal(t, 0, m.TotalRecords)
	assert.Equal(t, -24, m.RecordsDelta)
	assert.Zero(t, m.AvgCreditAmount)
	assert.Zero(t, m.CreditDelta)
	assert.Zero(t, m.BadRiskPct)
}

func TestBuildChartData(t *testing.T) {
	ds := loadSample(t, samplePath)
	data := BuildChartData(ds.Records(), true)

	assert.Equal(t, models.AgeGroups, data.AgeSex.Categories)
	assert.Equal(t, []string{"female", "male"}, data.AgeSex.Groups)
	assert.Equal(t, []int{4, 1}, data.AgeSex.Counts[0])
	assert.Equal(t, 24, data.AgeSex.Total())

	require.Len(t, data.Purpose, 5)
	assert.Equal(t, models.CategoryCount{Label: "car", Count: 10}, data.Purpose[0])
	assert.Equal(t, models.CategoryCount{Label: "radio/TV", Count: 8}, data.Purpose[1])
	assert.Equal(t, "business", data.Purpose[2].Label)

	require.Len(t, data.CreditAmount, HistogramBins)
	total := 0
	for _, b := range data.CreditAmount {
		total += b.Count
	}
	assert.Equal(t, 24, total)
	assert.Equal(t, 5, data.CreditAmount[0].Count)
	assert.Equal(t, 1, data.CreditAmount[HistogramBins-1].Count, "maximum falls in the last bin")
	assert.InDelta(t, 1169, data.CreditAmount[0].Lower, 1e-9)
	assert.InDelta(t, 12579, data.CreditAmount[HistogramBins-1].Upper, 1e-9)

	assert.Equal(t, []string{"free", "own", "rent"}, data.HousingJob.Categories)
	assert.Equal(t, []string{"unskilled resident", "skilled", "highly skilled"}, data.HousingJob.Groups)

	require.Len(t, data.AmountByHousing, 3)
	free := data.AmountByHousing[0]
	assert.Equal(t, "free", free.Label)
	assert.Equal(t, 4, free.Count)
	assert.InDelta(t, 4870, free.Min, 1e-9)
	assert.InDelta(t, 7129, free.Q1, 1e-9)
	assert.InDelta(t, 8468.5, free.Median, 1e-9)
	assert.InDelta(t, 9936, free.Q3, 1e-9)
	assert.InDelta(t, 12579, free.Max, 1e-9)

	require.Len(t, data.DurationAmount, 5)
	assert.Equal(t, "car", data.DurationAmount[0].Name)
	assert.Len(t, data.DurationAmount[0].X, 10)

	assert.Equal(t, []string{"little", "moderate", "quite rich", "rich", models.Unknown}, data.SavingsChecking.Categories)
	assert.Equal(t, []string{"little", "moderate", models.Unknown}, data.SavingsChecking.Groups)

	assert.Equal(t, models.RiskDistribution{Good: 16, Bad: 8}, data.Risk)
}

func TestBuildChartDataEstimatesRisk(t *testing.T) {
	ds := loadSample(t, unlabelledPath)
	data := BuildChartData(ds.Records(), ds.HasRisk())
	assert.True(t, data.Risk.Estimated)
	assert.InDelta(t, 2.8, data.Risk.Good, 1e-9)
	assert.InDelta(t, 1.2, data.Risk.Bad, 1e-9)
}

func TestBuildChartDataEmptyView(t *testing.T) {
	data := BuildChartData(nil, true)
	assert.Zero(t, data.AgeSex.Total())
	assert.Empty(t, data.Purpose)
	assert.Empty(t, data.CreditAmount)
	assert.Empty(t, data.AmountByHousing)
	assert.Empty(t, data.DurationAmount)
	assert.Zero(t, data.Risk.Good+data.Risk.Bad)
}

func TestHistogramSingleValue(t *testing.T) {
	view := []*models.CreditApplication{{CreditAmount: 1000}, {CreditAmount: 1000}}
	bins := histogram(view, 30)
	require.Len(t, bins, 30)
	total := 0
	for _, b := range bins {
		total += b.Count
	}
	assert.Equal(t, 2, total)
}

func TestQuantile(t *testing.T) {
	values := []float64{1, 2, 3, 4}
	assert.InDelta(t, 1.75, quantile(values, 0.25), 1e-9)
	assert.InDelta(t, 2.5, quantile(values, 0.5), 1e-9)
	assert.InDelta(t, 3.25, quantile(values, 0.75), 1e-9)
	assert.InDelta(t, 7, quantile([]float64{7}, 0.5), 1e-9)
	assert.Zero(t, quantile(nil, 0.5))
}

func TestSummarize(t *testing.T) {
	ds := loadSample(t, samplePath)
	now := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

	s := Summarize(ds.Records(), true, 16.5, now)
	assert.Equal(t, 24, s.TotalRecords)
	assert.InDelta(t, sampleAvgCredit, s.AvgCredit, 1e-6)
	assert.InDelta(t, 33.333, s.HighRiskPct, 1e-2)
	assert.Len(t, s.TopPurposes, 5)
	assert.Equal(t, "own", s.Housing[0].Label)
	assert.Equal(t, 14, s.Housing[0].Count)
	require.Len(t, s.AmountBands, len(models.AmountGroups))
	bands := 0
	for _, b := range s.AmountBands {
		bands += b.Count
	}
	assert.Equal(t, 24, bands)
	assert.Equal(t, 16.5, s.KeyRate)
	assert.Equal(t, now, s.GeneratedAt)
}
