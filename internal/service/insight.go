package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Dan9191/credit-dashboard/internal/models"
	"github.com/Dan9191/credit-dashboard/internal/repository"
	"github.com/sirupsen/logrus"
)

const (
	systemPrompt   = "You are a senior credit risk analyst. Answer in Markdown."
	archiveTimeout = 5 * time.Second
)

// BuildPrompt renders the analysis request for a data summary
func BuildPrompt(s models.DataSummary) string {
	var b strings.Builder
	b.WriteString("Analyze this German credit risk dataset and provide actionable insights:\n\n")
	b.WriteString("Dataset Summary:\n")
	fmt.Fprintf(&b, "- Total records: %d\n", s.TotalRecords)
	fmt.Fprintf(&b, "- Average credit amount: %s DM\n", FormatAmount(s.AvgCredit))
	fmt.Fprintf(&b, "- Average age: %.1f years\n", s.AvgAge)
	fmt.Fprintf(&b, "- Average duration: %.1f months\n", s.AvgDuration)
	if s.RiskLabelled {
		fmt.Fprintf(&b, "- High risk percentage: %.1f%%\n", s.HighRiskPct)
	} else {
		b.WriteString("- High risk percentage: not labelled in this dataset\n")
	}
	if len(s.TopPurposes) > 0 {
		fmt.Fprintf(&b, "- Top purposes: %s\n", joinCounts(s.TopPurposes))
	}
	if len(s.Housing) > 0 {
		fmt.Fprintf(&b, "- Housing: %s\n", joinCounts(s.Housing))
	}
	if len(s.AmountBands) > 0 {
		fmt.Fprintf(&b, "- Credit amount bands: %s\n", joinCounts(s.AmountBands))
	}
	if s.KeyRate > 0 {
		fmt.Fprintf(&b, "- Current central bank key rate: %.2f%%\n", s.KeyRate)
	}
	b.WriteString("\nPlease provide:\n")
	b.WriteString("1. Key insights about credit risk patterns\n")
	b.WriteString("2. Critical risk factors identification\n")
	b.WriteString("3. Actionable recommendations for risk management\n")
	b.WriteString("4. Trends and correlations observed\n\n")
	b.WriteString("Format with bullet points and keep under 400 words. Focus on actionable business insights.\n")
	return b.String()
}

// FallbackNarrative builds a rule-based analysis from the summary, used when the provider fails
func FallbackNarrative(s models.DataSummary, cause error) string {
	var b strings.Builder
	b.WriteString("**AI Credit Risk Analysis** (Demo Mode)\n\n")

	b.WriteString("**Key Insights:**\n")
	fmt.Fprintf(&b, "- %d credit applications analyzed\n", s.TotalRecords)
	fmt.Fprintf(&b, "- Average credit amount: %s DM over %.1f months\n", FormatAmount(s.AvgCredit), s.AvgDuration)
	if s.RiskLabelled {
		fmt.Fprintf(&b, "- High-risk applications: %.1f%%\n", s.HighRiskPct)
	}
	if len(s.TopPurposes) > 0 {
		top := s.TopPurposes[0]
		fmt.Fprintf(&b, "- Most common purpose: %s (%s of applications)\n", top.Label, share(top.Count, s.TotalRecords))
	}

	b.WriteString("\n**Risk Factors:**\n")
	if len(s.Housing) > 0 {
		h := s.Housing[0]
		fmt.Fprintf(&b, "- Housing is dominated by %s (%s); housing stability drives repayment capacity\n", h.Label, share(h.Count, s.TotalRecords))
	}
	if band, ok := largest(s.AmountBands); ok {
		fmt.Fprintf(&b, "- Most exposure sits in the %s amount band (%d applications)\n", band.Label, band.Count)
	}
	b.WriteString("- Duration and amount move together, so long loans concentrate exposure\n")

	b.WriteString("\n**Recommendations:**\n")
	b.WriteString("- Tighten risk assessment for high-amount, long-duration loans\n")
	b.WriteString("- Use housing status as a key scoring factor\n")
	b.WriteString("- Review age-based risk scoring for the youngest applicants\n")

	if cause != nil {
		fmt.Fprintf(&b, "\n> Live analysis unavailable: %s\n", cause.Error())
	}
	return b.String()
}

// Narrate asks the configured language model to analyse the rows matching f.
// Provider failures yield a fallback narrative rather than an error.
func (s *Service) Narrate(ctx context.Context, f models.FilterState) (*models.Insight, error) {
	if s.narrator == nil {
		return nil, ErrNarratorDisabled
	}

	ds := s.store.Current()
	f.Normalize()
	view := Apply(ds.Records(), f)
	summary := Summarize(view, ds.HasRisk(), s.KeyRate(), s.now())

	insight := &models.Insight{
		Provider:     s.narrator.Provider(),
		Model:        s.narrator.Model(),
		Filter:       f,
		TotalRecords: len(view),
		CreatedAt:    summary.GeneratedAt,
	}

	if s.config != nil && s.config.LLMTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.LLMTimeout)
		defer cancel()
	}

	content, err := s.narrator.Complete(ctx, systemPrompt, BuildPrompt(summary))
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"provider": insight.Provider,
			"model":    insight.Model,
		}).Warnf("Narrative generation failed, using fallback: %v", err)
		s.metrics.RecordInsight(insight.Provider, "fallback")
		insight.Fallback = true
		insight.Error = err.Error()
		insight.Content = FallbackNarrative(summary, err)
	} else {
		s.metrics.RecordInsight(insight.Provider, "ok")
		insight.Content = content
	}

	if s.ArchiveEnabled() {
		// The narration deadline may already have expired; the fallback is archived regardless.
		archiveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), archiveTimeout)
		defer cancel()
		if err := s.repo.SaveInsight(archiveCtx, insight); err != nil {
			s.log.Errorf("Failed to archive insight: %v", err)
		}
	}
	return insight, nil
}

// Insights lists archived narratives, newest first
func (s *Service) Insights(ctx context.Context, limit int) ([]models.Insight, error) {
	if !s.ArchiveEnabled() {
		return nil, repository.ErrArchiveDisabled
	}
	return s.repo.ListInsights(ctx, limit)
}

func joinCounts(counts []models.CategoryCount) string {
	parts := make([]string, len(counts))
	for i, c := range counts {
		parts[i] = fmt.Sprintf("%s (%d)", c.Label, c.Count)
	}
	return strings.Join(parts, ", ")
}

func largest(counts []models.CategoryCount) (models.CategoryCount, bool) {
	var best models.CategoryCount
	found := false
	for _, c := range counts {
		if c.Count > best.Count {
			best, found = c, true
		}
	}
	return best, found
}

func share(n, total int) string {
	if total == 0 {
		return "0%"
	}
	return fmt.Sprintf("%.0f%%", float64(n)*100/float64(total))
}

// FormatAmount groups thousands: 3271.3 -> "3,271"
func FormatAmount(v float64) string {
	s := fmt.Sprintf("%.0f", v)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
