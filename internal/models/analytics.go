package models

import "time"

// Metrics represents the KPI cards for a filtered view compared with the full dataset
type Metrics struct {
	TotalRecords    int     `json:"total_records"`
	RecordsDelta    int     `json:"records_delta"` // filtered minus full dataset
	HasData         bool    `json:"has_data"`
	AvgCreditAmount float64 `json:"avg_credit_amount"`
	CreditDelta     float64 `json:"credit_delta"`
	AvgDuration     float64 `json:"avg_duration"`
	DurationDelta   float64 `json:"duration_delta"`
	AvgAge          float64 `json:"avg_age"`
	AgeDelta        float64 `json:"age_delta"`
	RiskLabelled    bool    `json:"risk_labelled"`
	BadRiskPct      float64 `json:"bad_risk_pct"`
}

// CategoryCount is one bar or slice of a categorical chart
type CategoryCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// StackedCounts is a two-way count table; Counts[i][j] belongs to Categories[i] and Groups[j]
type StackedCounts struct {
	Categories []string `json:"categories"`
	Groups     []string `json:"groups"`
	Counts     [][]int  `json:"counts"`
}

// Total returns the number of rows counted in the table
func (s StackedCounts) Total() int {
	total := 0
	for _, row := range s.Counts {
		for _, c := range row {
			total += c
		}
	}
	return total
}

// HistogramBin is one bin of a numeric histogram, left-closed except for the last bin
type HistogramBin struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

// BoxStats represents the five-number summary of one category
type BoxStats struct {
	Label  string  `json:"label"`
	Count  int     `json:"count"`
	Min    float64 `json:"min"`
	Q1     float64 `json:"q1"`
	Median float64 `json:"median"`
	Q3     float64 `json:"q3"`
	Max    float64 `json:"max"`
}

// ScatterSeries holds the points of one purpose
type ScatterSeries struct {
	Name string    `json:"name"`
	X    []float64 `json:"x"`
	Y    []float64 `json:"y"`
}

// RiskDistribution represents good/bad counts; Estimated is set when the dataset carries no label
type RiskDistribution struct {
	Good      float64 `json:"good"`
	Bad       float64 `json:"bad"`
	Estimated bool    `json:"estimated"`
}

// ChartData holds the aggregates behind the eight dashboard charts
type ChartData struct {
	AgeSex          StackedCounts    `json:"age_sex"`
	Purpose         []CategoryCount  `json:"purpose"`
	CreditAmount    []HistogramBin   `json:"credit_amount"`
	HousingJob      StackedCounts    `json:"housing_job"`
	AmountByHousing []BoxStats       `json:"amount_by_housing"`
	DurationAmount  []ScatterSeries  `json:"duration_amount"`
	SavingsChecking StackedCounts    `json:"savings_checking"`
	Risk            RiskDistribution `json:"risk"`
}

// DataSummary feeds the narrative prompt
type DataSummary struct {
	TotalRecords int             `json:"total_records"`
	AvgCredit    float64         `json:"avg_credit"`
	AvgAge       float64         `json:"avg_age"`
	AvgDuration  float64         `json:"avg_duration"`
	RiskLabelled bool            `json:"risk_labelled"`
	HighRiskPct  float64         `json:"high_risk_pct"`
	TopPurposes  []CategoryCount `json:"top_purposes"`
	Housing      []CategoryCount `json:"housing"`
	AmountBands  []CategoryCount `json:"amount_bands"`
	KeyRate      float64         `json:"key_rate,omitempty"` // 0 when unknown
	GeneratedAt  time.Time       `json:"generated_at"`
}

// Insight represents a generated narrative
type Insight struct {
	ID           int64       `json:"id,omitempty"`
	Provider     string      `json:"provider"`
	Model        string      `json:"model"`
	Filter       FilterState `json:"filter"`
	TotalRecords int         `json:"total_records"`
	Fallback     bool        `json:"fallback"`
	Error        string      `json:"error,omitempty"`
	Content      string      `json:"content"` // Markdown
	CreatedAt    time.Time   `json:"created_at"`
}
