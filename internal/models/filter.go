package models

// FilterState holds the sidebar widget values. A nil slice means every option
// is selected; an empty non-nil slice means none is. In JSON they are null
// and [] respectively. A nil bound is unbounded on that side.
type FilterState struct {
	Purposes    []string `json:"purposes"`
	Housing     []string `json:"housing"`
	Sexes       []string `json:"sexes"`
	AgeMin      *int     `json:"age_min,omitempty"`
	AgeMax      *int     `json:"age_max,omitempty"`
	AmountMin   *int     `json:"amount_min,omitempty"`
	AmountMax   *int     `json:"amount_max,omitempty"`
	DurationMin *int     `json:"duration_min,omitempty"`
	DurationMax *int     `json:"duration_max,omitempty"`
}

// Bound returns a range bound for v
func Bound(v int) *int {
	return &v
}

// Normalize swaps inverted ranges.
func (f *FilterState) Normalize() {
	swap(&f.AgeMin, &f.AgeMax)
	swap(&f.AmountMin, &f.AmountMax)
	swap(&f.DurationMin, &f.DurationMax)
}

func swap(lo, hi **int) {
	if *lo != nil && *hi != nil && **lo > **hi {
		*lo, *hi = *hi, *lo
	}
}

// Match reports whether a record passes every active predicate
func (f FilterState) Match(a *CreditApplication) bool {
	if f.Purposes != nil && !contains(f.Purposes, a.Purpose) {
		return false
	}
	if f.Housing != nil && !contains(f.Housing, a.Housing) {
		return false
	}
	if f.Sexes != nil && !contains(f.Sexes, a.Sex) {
		return false
	}
	return between(a.Age, f.AgeMin, f.AgeMax) &&
		between(a.CreditAmount, f.AmountMin, f.AmountMax) &&
		between(a.Duration, f.DurationMin, f.DurationMax)
}

// Options describes the widget choices offered for a dataset
type Options struct {
	Purposes    []string `json:"purposes"`
	Housing     []string `json:"housing"`
	Sexes       []string `json:"sexes"`
	AgeMin      int      `json:"age_min"`
	AgeMax      int      `json:"age_max"`
	AmountMin   int      `json:"amount_min"`
	AmountMax   int      `json:"amount_max"`
	DurationMin int      `json:"duration_min"`
	DurationMax int      `json:"duration_max"`
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}

func between(v int, lo, hi *int) bool {
	if lo != nil && v < *lo {
		return false
	}
	if hi != nil && v > *hi {
		return false
	}
	return true
}
