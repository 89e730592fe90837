package handler

import (
	"fmt"
	"html/template"
	"time"

	"github.com/Dan9191/credit-dashboard/internal/models"
	"github.com/Dan9191/credit-dashboard/internal/service"
)

// RawPreviewRows is the number of rows shown by the raw data table
const RawPreviewRows = 100

type chartView struct {
	ID    string
	Title string
	URL   string
}

type pageData struct {
	Options       models.Options
	Filter        models.FilterState
	Metrics       models.Metrics
	KeyRate       float64
	Charts        []chartView
	AIEnabled     bool
	Insight       *models.Insight
	RateLimited   bool
	InsightHTML   template.HTML
	ShowRaw       bool
	RiskLabelled  bool
	Rows          []*models.CreditApplication
	TotalRecords  int
	Columns       int
	Source        string
	LoadedAt      time.Time
	ExportURL     string
	AgeValue      [2]int
	AmountValue   [2]int
	DurationValue [2]int
}

var pageFuncs = template.FuncMap{
	"selected": func(values []string, v string) bool {
		if values == nil {
			return true
		}
		for _, s := range values {
			if s == v {
				return true
			}
		}
		return false
	},
	"amount": service.FormatAmount,
	"signed": func(v float64, precision int) string {
		return fmt.Sprintf("%+.*f", precision, v)
	},
	"float": func(v int) float64 {
		return float64(v)
	},
	"signedInt": func(v int) string {
		return fmt.Sprintf("%+d", v)
	},
	"deltaClass": func(v float64) string {
		switch {
		case v > 0:
			return "up"
		case v < 0:
			return "down"
		default:
			return "flat"
		}
	},
	"jobLabel": models.JobLabel,
	"stamp": func(t time.Time) string {
		return t.Format("2006-01-02 15:04:05")
	},
}

var pageTemplate = template.Must(template.New("page").Funcs(pageFuncs).Parse(pageHTML))

const pageHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Credit Risk Analytics Dashboard</title>
<style>
:root {
  --bg: #1a1a1a; --paper: #2d2d2d; --fg: #f5f5f5; --grid: #404040; --muted: #b0b0b0;
  --primary: #4a90e2; --accent: #ff6b6b; --success: #51cf66; --warn: #ffd43b;
}
* { box-sizing: border-box; margin: 0; padding: 0; }
body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif; background: var(--bg); color: var(--fg); line-height: 1.5; display: flex; min-height: 100vh; }
aside { width: 280px; background: var(--paper); border-right: 1px solid var(--grid); padding: 1rem; flex-shrink: 0; }
aside h2 { font-size: 1rem; margin-bottom: .75rem; }
aside fieldset { border: 1px solid var(--grid); border-radius: 6px; padding: .5rem .75rem; margin-bottom: .75rem; }
aside legend { font-size: .75rem; color: var(--muted); text-transform: uppercase; padding: 0 .25rem; }
aside label { display: block; font-size: .8125rem; }
aside input[type=number] { width: 45%; padding: .25rem; background: var(--bg); color: var(--fg); border: 1px solid var(--grid); border-radius: 4px; }
aside button { width: 100%; padding: .5rem; margin-top: .5rem; border: 0; border-radius: 4px; background: var(--primary); color: #fff; font-weight: 600; cursor: pointer; }
aside button.ai { background: #7b68ee; }
main { flex: 1; padding: 1.25rem; max-width: 1600px; }
header h1 { font-size: 1.5rem; }
header p { color: var(--muted); font-size: .875rem; margin-bottom: 1rem; }
.cards { display: grid; grid-template-columns: repeat(auto-fit, minmax(160px, 1fr)); gap: .75rem; margin-bottom: 1.25rem; }
.card { background: var(--paper); border: 1px solid var(--grid); border-radius: 8px; padding: .75rem; }
.card .label { font-size: .75rem; color: var(--muted); text-transform: uppercase; }
.card .value { font-size: 1.4rem; font-weight: 700; }
.card .delta { font-size: .75rem; }
.delta.up { color: var(--success); } .delta.down { color: var(--accent); } .delta.flat { color: var(--muted); }
section { background: var(--paper); border: 1px solid var(--grid); border-radius: 8px; padding: 1rem; margin-bottom: 1.25rem; }
section h2 { font-size: 1.05rem; margin-bottom: .5rem; }
.notice { color: var(--warn); font-size: .875rem; }
.muted { color: var(--muted); font-size: .8125rem; }
.insight ul { margin-left: 1.25rem; }
.insight p { margin: .5rem 0; }
.charts { display: grid; grid-template-columns: repeat(2, 1fr); gap: 1rem; margin-bottom: 1.25rem; }
@media (max-width: 1100px) { .charts { grid-template-columns: 1fr; } }
.charts img { width: 100%; height: auto; border-radius: 6px; background: var(--paper); }
table { width: 100%; border-collapse: collapse; font-size: .8125rem; }
th, td { padding: .375rem .5rem; text-align: left; border-bottom: 1px solid var(--grid); }
tr:nth-child(even) { background: #262626; }
a { color: var(--primary); }
</style>
</head>
<body>
<aside>
<form method="get" action="/">
<input type="hidden" name="submitted" value="1">
<h2>Filters</h2>
<fieldset><legend>Loan purpose</legend>
{{range .Options.Purposes}}<label><input type="checkbox" name="purpose" value="{{.}}"{{if selected $.Filter.Purposes .}} checked{{end}}> {{.}}</label>
{{end}}</fieldset>
<fieldset><legend>Housing</legend>
{{range .Options.Housing}}<label><input type="checkbox" name="housing" value="{{.}}"{{if selected $.Filter.Housing .}} checked{{end}}> {{.}}</label>
{{end}}</fieldset>
<fieldset><legend>Sex</legend>
{{range .Options.Sexes}}<label><input type="checkbox" name="sex" value="{{.}}"{{if selected $.Filter.Sexes .}} checked{{end}}> {{.}}</label>
{{end}}</fieldset>
<fieldset><legend>Age range</legend>
<input type="number" name="age_min" min="{{.Options.AgeMin}}" max="{{.Options.AgeMax}}" value="{{index .AgeValue 0}}"> -
<input type="number" name="age_max" min="{{.Options.AgeMin}}" max="{{.Options.AgeMax}}" value="{{index .AgeValue 1}}">
</fieldset>
<fieldset><legend>Credit amount (DM)</legend>
<input type="number" name="amount_min" min="{{.Options.AmountMin}}" max="{{.Options.AmountMax}}" value="{{index .AmountValue 0}}"> -
<input type="number" name="amount_max" min="{{.Options.AmountMin}}" max="{{.Options.AmountMax}}" value="{{index .AmountValue 1}}">
</fieldset>
<fieldset><legend>Duration (months)</legend>
<input type="number" name="duration_min" min="{{.Options.DurationMin}}" max="{{.Options.DurationMax}}" value="{{index .DurationValue 0}}"> -
<input type="number" name="duration_max" min="{{.Options.DurationMin}}" max="{{.Options.DurationMax}}" value="{{index .DurationValue 1}}">
</fieldset>
<label><input type="checkbox" name="raw" value="1"{{if .ShowRaw}} checked{{end}}> Show raw data</label>
<button type="submit">Apply filters</button>
{{if .AIEnabled}}<button type="submit" class="ai" name="analyze" value="1">Generate AI insights</button>{{end}}
</form>
</aside>
<main>
<header>
<h1>Credit Risk Analytics Dashboard</h1>
<p>German credit applications: demographics, loan structure and risk.</p>
</header>

<div class="cards">
<div class="card"><div class="label">Total records</div><div class="value">{{.Metrics.TotalRecords}}</div>
<div class="delta {{deltaClass (float .Metrics.RecordsDelta)}}">{{signedInt .Metrics.RecordsDelta}} vs all</div></div>
{{if .Metrics.HasData}}
<div class="card"><div class="label">Avg credit amount</div><div class="value">{{amount .Metrics.AvgCreditAmount}} DM</div>
<div class="delta {{deltaClass .Metrics.CreditDelta}}">{{signed .Metrics.CreditDelta 0}} DM vs all</div></div>
<div class="card"><div class="label">Avg duration</div><div class="value">{{printf "%.1f" .Metrics.AvgDuration}} mo</div>
<div class="delta {{deltaClass .Metrics.DurationDelta}}">{{signed .Metrics.DurationDelta 1}} vs all</div></div>
<div class="card"><div class="label">Avg age</div><div class="value">{{printf "%.1f" .Metrics.AvgAge}}</div>
<div class="delta {{deltaClass .Metrics.AgeDelta}}">{{signed .Metrics.AgeDelta 1}} vs all</div></div>
{{if .Metrics.RiskLabelled}}<div class="card"><div class="label">Bad risk</div><div class="value">{{printf "%.1f" .Metrics.BadRiskPct}}%</div></div>{{end}}
{{else}}
<div class="card"><div class="label">Averages</div><div class="value">n/a</div><div class="delta flat">No data for the current filters</div></div>
{{end}}
{{if gt .KeyRate 0.0}}<div class="card"><div class="label">CBR key rate</div><div class="value">{{printf "%.2f" .KeyRate}}%</div></div>{{end}}
</div>

<section class="insight">
<h2>AI insights</h2>
{{if not .AIEnabled}}
<p class="notice">AI insights are disabled. Set OPENAI_API_KEY or GEMINI_API_KEY to enable them.</p>
{{else if .Insight}}
{{if .Insight.Fallback}}<p class="notice">The language model is unavailable; showing the rule-based analysis.</p>{{end}}
{{.InsightHTML}}
<p class="muted">Generated {{stamp .Insight.CreatedAt}} by {{.Insight.Provider}} ({{.Insight.Model}}) over {{.Insight.TotalRecords}} records.</p>
{{else if .RateLimited}}
<p class="notice">Too many AI insight requests. Try again in a minute.</p>
{{else}}
<p class="muted">Press "Generate AI insights" to analyse the filtered data.</p>
{{end}}
</section>

<div class="charts">
{{range .Charts}}<img id="chart-{{.ID}}" src="{{.URL}}" alt="{{.Title}}" width="720" height="420">
{{end}}</div>

{{if .ShowRaw}}
<section>
<h2>Raw data</h2>
<p class="muted">First {{len .Rows}} of {{.Metrics.TotalRecords}} filtered rows. <a href="{{.ExportURL}}">Download CSV</a></p>
<table>
<thead><tr><th>Age</th><th>Sex</th><th>Job</th><th>Housing</th><th>Saving accounts</th><th>Checking account</th><th>Credit amount</th><th>Duration</th><th>Purpose</th>{{if .RiskLabelled}}<th>Risk</th>{{end}}</tr></thead>
<tbody>
{{range .Rows}}<tr><td>{{.Age}}</td><td>{{.Sex}}</td><td>{{jobLabel .Job}}</td><td>{{.Housing}}</td><td>{{.SavingAccounts}}</td><td>{{.CheckingAccount}}</td><td>{{.CreditAmount}}</td><td>{{.Duration}}</td><td>{{.Purpose}}</td>{{if $.RiskLabelled}}<td>{{.Risk}}</td>{{end}}</tr>
{{end}}</tbody>
</table>
</section>
{{end}}

<section>
<h2>Dataset overview</h2>
<p class="muted">{{.TotalRecords}} records, {{.Columns}} features, loaded {{stamp .LoadedAt}} from {{.Source}}.</p>
</section>
</main>
</body>
</html>
`
