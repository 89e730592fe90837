package handler

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/Dan9191/credit-dashboard/internal/models"
)

// Query parameter names of the sidebar form
const (
	paramSubmitted   = "submitted"
	paramPurpose     = "purpose"
	paramHousing     = "housing"
	paramSex         = "sex"
	paramAgeMin      = "age_min"
	paramAgeMax      = "age_max"
	paramAmountMin   = "amount_min"
	paramAmountMax   = "amount_max"
	paramDurationMin = "duration_min"
	paramDurationMax = "duration_max"
	paramAnalyze     = "analyze"
	paramRaw         = "raw"
)

// parseFilter reads the filter from query parameters. Without the submitted
// marker an absent multiselect selects every option; with it, none.
func parseFilter(q url.Values) (models.FilterState, error) {
	submitted := q.Get(paramSubmitted) == "1"
	f := models.FilterState{
		Purposes: multiselect(q, paramPurpose, submitted),
		Housing:  multiselect(q, paramHousing, submitted),
		Sexes:    multiselect(q, paramSex, submitted),
	}

	bounds := []struct {
		name string
		dst  **int
	}{
		{paramAgeMin, &f.AgeMin},
		{paramAgeMax, &f.AgeMax},
		{paramAmountMin, &f.AmountMin},
		{paramAmountMax, &f.AmountMax},
		{paramDurationMin, &f.DurationMin},
		{paramDurationMax, &f.DurationMax},
	}
	for _, b := range bounds {
		v := strings.TrimSpace(q.Get(b.name))
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return models.FilterState{}, fmt.Errorf("invalid %s: %q", b.name, v)
		}
		*b.dst = &n
	}
	f.Normalize()
	return f, nil
}

func multiselect(q url.Values, name string, submitted bool) []string {
	values, ok := q[name]
	if !ok {
		if submitted {
			return []string{}
		}
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// encodeFilter is the inverse of parseFilter. Once any multiselect is
// restricted the others are spelled out with every option of opts.
func encodeFilter(f models.FilterState, opts models.Options) url.Values {
	q := url.Values{}
	if f.Purposes != nil || f.Housing != nil || f.Sexes != nil {
		q.Set(paramSubmitted, "1")
		set := func(name string, values, all []string) {
			if values == nil {
				values = all
			}
			for _, v := range values {
				q.Add(name, v)
			}
		}
		set(paramPurpose, f.Purposes, opts.Purposes)
		set(paramHousing, f.Housing, opts.Housing)
		set(paramSex, f.Sexes, opts.Sexes)
	}
	for name, v := range map[string]*int{
		paramAgeMin: f.AgeMin, paramAgeMax: f.AgeMax,
		paramAmountMin: f.AmountMin, paramAmountMax: f.AmountMax,
		paramDurationMin: f.DurationMin, paramDurationMax: f.DurationMax,
	} {
		if v != nil {
			q.Set(name, strconv.Itoa(*v))
		}
	}
	return q
}
