package service

import (
	"math"
	"sort"
	"time"

	"github.com/Dan9191/credit-dashboard/internal/models"
)

// HistogramBins is the bin count of the credit amount histogram
const HistogramBins = 30

// EstimatedBadShare is the bad-risk share assumed when the dataset has no risk label
const EstimatedBadShare = 0.3

// accountLevels orders savings and checking levels from poorest to richest
var accountLevels = map[string]int{"little": 0, "moderate": 1, "quite rich": 2, "rich": 3, models.Unknown: 4}

// Apply returns the records that pass every predicate of the filter
func Apply(records []*models.CreditApplication, f models.FilterState) []*models.CreditApplication {
	f.Normalize()
	out := make([]*models.CreditApplication, 0, len(records))
	for _, rec := range records {
		if f.Match(rec) {
			out = append(out, rec)
		}
	}
	return out
}

// ComputeMetrics builds the KPI cards for view, with deltas against full
func ComputeMetrics(view, full []*models.CreditApplication, hasRisk bool) models.Metrics {
	m := models.Metrics{
		TotalRecords: len(view),
		RecordsDelta: len(view) - len(full),
		RiskLabelled: hasRisk,
	}
	if len(view) == 0 {
		return m
	}
	m.HasData = true

	credit, duration, age := averages(view)
	fullCredit, fullDuration, fullAge := averages(full)
	m.AvgCreditAmount, m.CreditDelta = credit, credit-fullCredit
	m.AvgDuration, m.DurationDelta = duration, duration-fullDuration
	m.AvgAge, m.AgeDelta = age, age-fullAge
	if hasRisk {
		m.BadRiskPct = badShare(view) * 100
	}
	return m
}

func averages(records []*models.CreditApplication) (credit, duration, age float64) {
	if len(records) == 0 {
		return 0, 0, 0
	}
	for _, rec := range records {
		credit += float64(rec.CreditAmount)
		duration += float64(rec.Duration)
		age += float64(rec.Age)
	}
	n := float64(len(records))
	return credit / n, duration / n, age / n
}

func badShare(records []*models.CreditApplication) float64 {
	if len(records) == 0 {
		return 0
	}
	bad := 0
	for _, rec := range records {
		if rec.Risk == models.RiskBad {
			bad++
		}
	}
	return float64(bad) / float64(len(records))
}

// BuildChartData aggregates the view for the eight charts
func BuildChartData(view []*models.CreditApplication, hasRisk bool) models.ChartData {
	return models.ChartData{
		AgeSex: crossTab(view,
			func(r *models.CreditApplication) string { return r.AgeGroup },
			func(r *models.CreditApplication) string { return r.Sex },
			byIndex(models.AgeGroups), alphabetical),
		Purpose:      valueCounts(view, func(r *models.CreditApplication) string { return r.Purpose }),
		CreditAmount: histogram(view, HistogramBins),
		HousingJob: crossTab(view,
			func(r *models.CreditApplication) string { return r.Housing },
			func(r *models.CreditApplication) string { return models.JobLabel(r.Job) },
			alphabetical, byJob),
		AmountByHousing: boxByHousing(view),
		DurationAmount:  scatterByPurpose(view),
		SavingsChecking: crossTab(view,
			func(r *models.CreditApplication) string { return r.SavingAccounts },
			func(r *models.CreditApplication) string { return r.CheckingAccount },
			byAccountLevel, byAccountLevel),
		Risk: riskDistribution(view, hasRisk),
	}
}

type keyFunc func(*models.CreditApplication) string

// less orders category labels
type less func(a, b string) bool

func alphabetical(a, b string) bool { return a < b }

func byIndex(order []string) less {
	pos := make(map[string]int, len(order))
	for i, v := range order {
		pos[v] = i
	}
	return func(a, b string) bool {
		pa, oka := pos[a]
		pb, okb := pos[b]
		switch {
		case oka && okb:
			return pa < pb
		case oka != okb:
			return oka
		default:
			return a < b
		}
	}
}

var byAccountLevel = func(a, b string) bool {
	la, oka := accountLevels[a]
	lb, okb := accountLevels[b]
	if !oka {
		la = len(accountLevels)
	}
	if !okb {
		lb = len(accountLevels)
	}
	if la != lb {
		return la < lb
	}
	return a < b
}

var byJob = byIndex([]string{
	models.JobLabel(models.JobUnskilledNonResident),
	models.JobLabel(models.JobUnskilledResident),
	models.JobLabel(models.JobSkilled),
	models.JobLabel(models.JobHighlySkilled),
})

// crossTab counts records by row key and column key. Only keys present in the
// view become categories or groups.
func crossTab(view []*models.CreditApplication, rowKey, colKey keyFunc, rowLess, colLess less) models.StackedCounts {
	counts := map[[2]string]int{}
	rows, cols := map[string]bool{}, map[string]bool{}
	for _, rec := range view {
		r, c := rowKey(rec), colKey(rec)
		rows[r], cols[c] = true, true
		counts[[2]string{r, c}]++
	}
	out := models.StackedCounts{
		Categories: sortedKeys(rows, rowLess),
		Groups:     sortedKeys(cols, colLess),
	}
	out.Counts = make([][]int, len(out.Categories))
	for i, r := range out.Categories {
		out.Counts[i] = make([]int, len(out.Groups))
		for j, c := range out.Groups {
			out.Counts[i][j] = counts[[2]string{r, c}]
		}
	}
	return out
}

func sortedKeys(set map[string]bool, fn less) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return fn(keys[i], keys[j]) })
	return keys
}

// valueCounts counts records per key, most frequent first
func valueCounts(view []*models.CreditApplication, key keyFunc) []models.CategoryCount {
	counts := map[string]int{}
	for _, rec := range view {
		counts[key(rec)]++
	}
	out := make([]models.CategoryCount, 0, len(counts))
	for label, n := range counts {
		out = append(out, models.CategoryCount{Label: label, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	return out
}

// histogram splits the credit amount range of the view into n equal bins
func histogram(view []*models.CreditApplication, n int) []models.HistogramBin {
	if len(view) == 0 || n <= 0 {
		return nil
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, rec := range view {
		v := float64(rec.CreditAmount)
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}
	if lo == hi {
		lo, hi = lo-0.5, hi+0.5
	}
	width := (hi - lo) / float64(n)
	bins := make([]models.HistogramBin, n)
	for i := range bins {
		bins[i].Lower = lo + float64(i)*width
		bins[i].Upper = lo + float64(i+1)*width
	}
	bins[n-1].Upper = hi
	for _, rec := range view {
		idx := int((float64(rec.CreditAmount) - lo) / width)
		if idx >= n {
			idx = n - 1
		}
		bins[idx].Count++
	}
	return bins
}

// boxByHousing computes the five-number summary of credit amounts per housing type
func boxByHousing(view []*models.CreditApplication) []models.BoxStats {
	groups := map[string][]float64{}
	for _, rec := range view {
		groups[rec.Housing] = append(groups[rec.Housing], float64(rec.CreditAmount))
	}
	labels := make([]string, 0, len(groups))
	for k := range groups {
		labels = append(labels, k)
	}
	sort.Strings(labels)

	out := make([]models.BoxStats, 0, len(labels))
	for _, label := range labels {
		values := groups[label]
		sort.Float64s(values)
		out = append(out, models.BoxStats{
			Label:  label,
			Count:  len(values),
			Min:    values[0],
			Q1:     quantile(values, 0.25),
			Median: quantile(values, 0.5),
			Q3:     quantile(values, 0.75),
			Max:    values[len(values)-1],
		})
	}
	return out
}

// quantile interpolates linearly between the closest ranks of sorted values
func quantile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	pos := p * float64(len(sorted)-1)
	lower := int(math.Floor(pos))
	upper := int(math.Ceil(pos))
	if lower == upper {
		return sorted[lower]
	}
	frac := pos - float64(lower)
	return sorted[lower] + (sorted[upper]-sorted[lower])*frac
}

// scatterByPurpose groups (duration, amount) points per purpose, largest group first
func scatterByPurpose(view []*models.CreditApplication) []models.ScatterSeries {
	index := map[string]int{}
	var out []models.ScatterSeries
	for _, c := range valueCounts(view, func(r *models.CreditApplication) string { return r.Purpose }) {
		index[c.Label] = len(out)
		out = append(out, models.ScatterSeries{Name: c.Label})
	}
	for _, rec := range view {
		s := &out[index[rec.Purpose]]
		s.X = append(s.X, float64(rec.Duration))
		s.Y = append(s.Y, float64(rec.CreditAmount))
	}
	return out
}

// riskDistribution counts the labels, or estimates the split when there are none
func riskDistribution(view []*models.CreditApplication, hasRisk bool) models.RiskDistribution {
	if !hasRisk {
		n := float64(len(view))
		return models.RiskDistribution{
			Good:      n * (1 - EstimatedBadShare),
			Bad:       n * EstimatedBadShare,
			Estimated: true,
		}
	}
	var d models.RiskDistribution
	for _, rec := range view {
		switch rec.Risk {
		case models.RiskGood:
			d.Good++
		case models.RiskBad:
			d.Bad++
		}
	}
	return d
}

// Summarize condenses the view into the figures handed to the narrator
func Summarize(view []*models.CreditApplication, hasRisk bool, keyRate float64, now time.Time) models.DataSummary {
	credit, duration, age := averages(view)
	s := models.DataSummary{
		TotalRecords: len(view),
		AvgCredit:    credit,
		AvgAge:       age,
		AvgDuration:  duration,
		RiskLabelled: hasRisk,
		Housing:      valueCounts(view, func(r *models.CreditApplication) string { return r.Housing }),
		KeyRate:      keyRate,
		GeneratedAt:  now,
	}
	if hasRisk {
		s.HighRiskPct = badShare(view) * 100
	}

	purposes := valueCounts(view, func(r *models.CreditApplication) string { return r.Purpose })
	if len(purposes) > 5 {
		purposes = purposes[:5]
	}
	s.TopPurposes = purposes

	bands := map[string]int{}
	for _, rec := range view {
		bands[rec.AmountGroup]++
	}
	for _, band := range models.AmountGroups {
		s.AmountBands = append(s.AmountBands, models.CategoryCount{Label: band, Count: bands[band]})
	}
	return s
}
