package repository

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/Dan9191/credit-dashboard/internal/models"
	"github.com/gocarina/gocsv"
)

// Dataset is an immutable, preprocessed copy of the credit CSV
type Dataset struct {
	source   string
	modTime  time.Time
	loadedAt time.Time
	records  []*models.CreditApplication
	hasRisk  bool
	options  models.Options
}

// LoadDataset reads and preprocesses the CSV at path
func LoadDataset(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat dataset: %w", err)
	}

	ds, err := ParseDataset(f)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", path, err)
	}
	ds.source = path
	ds.modTime = info.ModTime()
	return ds, nil
}

// ParseDataset decodes CSV rows from r, fills missing account levels,
// validates every row and derives the age and amount groups.
func ParseDataset(r io.Reader) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	var records []*models.CreditApplication
	if err := gocsv.UnmarshalCSV(reader, &records); err != nil {
		return nil, fmt.Errorf("failed to decode rows: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("no rows")
	}

	hasRisk := false
	for i, rec := range records {
		rec.Sex = strings.TrimSpace(rec.Sex)
		rec.Housing = strings.TrimSpace(rec.Housing)
		rec.Purpose = strings.TrimSpace(rec.Purpose)
		rec.SavingAccounts = orUnknown(rec.SavingAccounts)
		rec.CheckingAccount = orUnknown(rec.CheckingAccount)
		rec.Risk = strings.ToLower(strings.TrimSpace(rec.Risk))
		if err := validate(rec); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		if rec.Risk != "" {
			hasRisk = true
		}
		rec.AgeGroup = models.AgeGroupOf(rec.Age)
	}

	minAmount, maxAmount := math.MaxInt, math.MinInt
	for _, rec := range records {
		minAmount = min(minAmount, rec.CreditAmount)
		maxAmount = max(maxAmount, rec.CreditAmount)
	}
	for _, rec := range records {
		rec.AmountGroup = models.AmountGroups[amountBand(rec.CreditAmount, minAmount, maxAmount)]
	}

	return &Dataset{
		loadedAt: time.Now(),
		records:  records,
		hasRisk:  hasRisk,
		options:  buildOptions(records),
	}, nil
}

// Records returns the rows. Callers must not modify them.
func (d *Dataset) Records() []*models.CreditApplication { return d.records }

// Len returns the number of rows
func (d *Dataset) Len() int { return len(d.records) }

// HasRisk reports whether the dataset carries the good/bad risk label
func (d *Dataset) HasRisk() bool { return d.hasRisk }

// Options returns the widget choices
func (d *Dataset) Options() models.Options { return d.options }

// Source returns the path the dataset was read from
func (d *Dataset) Source() string { return d.source }

// LoadedAt returns the time the dataset was parsed
func (d *Dataset) LoadedAt() time.Time { return d.loadedAt }

// Columns returns the number of source columns, the label included when present
func (d *Dataset) Columns() int {
	if d.hasRisk {
		return 10
	}
	return 9
}

func validate(rec *models.CreditApplication) error {
	switch {
	case rec.Age <= 0:
		return fmt.Errorf("invalid age %d", rec.Age)
	case rec.Duration <= 0:
		return fmt.Errorf("invalid duration %d", rec.Duration)
	case rec.CreditAmount < 0:
		return fmt.Errorf("invalid credit amount %d", rec.CreditAmount)
	case rec.Sex == "":
		return fmt.Errorf("missing sex")
	case rec.Housing == "":
		return fmt.Errorf("missing housing")
	case rec.Purpose == "":
		return fmt.Errorf("missing purpose")
	case rec.Risk != "" && rec.Risk != models.RiskGood && rec.Risk != models.RiskBad:
		return fmt.Errorf("invalid risk label %q", rec.Risk)
	}
	return nil
}

func orUnknown(v string) string {
	v = strings.TrimSpace(v)
	if v == "" || strings.EqualFold(v, "NA") || strings.EqualFold(v, "nan") {
		return models.Unknown
	}
	return v
}

// amountBand returns the index of the equal-width, right-closed bin v falls into.
func amountBand(v, lo, hi int) int {
	n := len(models.AmountGroups)
	if hi <= lo {
		return 0
	}
	width := float64(hi-lo) / float64(n)
	idx := int(math.Ceil(float64(v-lo)/width)) - 1
	if idx < 0 {
		return 0
	}
	if idx >= n {
		return n - 1
	}
	return idx
}

func buildOptions(records []*models.CreditApplication) models.Options {
	opts := models.Options{
		AgeMin: math.MaxInt, AmountMin: math.MaxInt, DurationMin: math.MaxInt,
	}
	seen := map[string]bool{}
	appendUnique := func(dst []string, kind, v string) []string {
		key := kind + "\x00" + v
		if seen[key] {
			return dst
		}
		seen[key] = true
		return append(dst, v)
	}
	for _, rec := range records {
		opts.Purposes = appendUnique(opts.Purposes, "purpose", rec.Purpose)
		opts.Housing = appendUnique(opts.Housing, "housing", rec.Housing)
		opts.Sexes = appendUnique(opts.Sexes, "sex", rec.Sex)
		opts.AgeMin, opts.AgeMax = min(opts.AgeMin, rec.Age), max(opts.AgeMax, rec.Age)
		opts.AmountMin, opts.AmountMax = min(opts.AmountMin, rec.CreditAmount), max(opts.AmountMax, rec.CreditAmount)
		opts.DurationMin, opts.DurationMax = min(opts.DurationMin, rec.Duration), max(opts.DurationMax, rec.Duration)
	}
	return opts
}

// DatasetStore holds the current dataset and swaps it on reload
type DatasetStore struct {
	path string
	mu   sync.RWMutex
	ds   *Dataset
}

// NewDatasetStore loads the dataset at path
func NewDatasetStore(path string) (*DatasetStore, error) {
	ds, err := LoadDataset(path)
	if err != nil {
		return nil, err
	}
	return &DatasetStore{path: path, ds: ds}, nil
}

// NewStaticStore wraps an already parsed dataset; Reload is a no-op for it
func NewStaticStore(ds *Dataset) *DatasetStore {
	return &DatasetStore{ds: ds}
}

// Current returns the active dataset
func (s *DatasetStore) Current() *Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ds
}

// Reload re-reads the file when its modification time changed, or always when
// force is set. The previous dataset stays active on error.
func (s *DatasetStore) Reload(force bool) (bool, error) {
	if s.path == "" {
		return false, nil
	}
	if !force {
		info, err := os.Stat(s.path)
		if err != nil {
			return false, fmt.Errorf("failed to stat dataset: %w", err)
		}
		if info.ModTime().Equal(s.Current().modTime) {
			return false, nil
		}
	}
	ds, err := LoadDataset(s.path)
	if err != nil {
		return false, err
	}
	s.mu.Lock()
	s.ds = ds
	s.mu.Unlock()
	return true, nil
}
