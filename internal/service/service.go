package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Dan9191/credit-dashboard/internal/config"
	"github.com/Dan9191/credit-dashboard/internal/integrations/llm"
	"github.com/Dan9191/credit-dashboard/internal/metrics"
	"github.com/Dan9191/credit-dashboard/internal/models"
	"github.com/Dan9191/credit-dashboard/internal/repository"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrNarratorDisabled is returned when no language model is configured
	ErrNarratorDisabled = errors.New("AI insights are disabled: no API key configured")
	// ErrUnknownChart is returned for a chart ID outside the registry
	ErrUnknownChart = errors.New("unknown chart")
	// ErrInvalidCredentials is returned by Login for a wrong username or password
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// KeyRateSource fetches the reference key rate in percent
type KeyRateSource interface {
	GetKeyRate(ctx context.Context) (float64, error)
}

// Service handles business logic
type Service struct {
	store    *repository.DatasetStore
	repo     *repository.Repository
	narrator llm.Narrator
	keyRates KeyRateSource
	metrics  *metrics.Metrics
	log      *logrus.Logger
	config   *config.Config
	now      func() time.Time

	mu      sync.RWMutex
	keyRate float64
}

// Option customises a Service
type Option func(*Service)

// WithNarrator enables AI insights
func WithNarrator(n llm.Narrator) Option {
	return func(s *Service) { s.narrator = n }
}

// WithKeyRateSource enables the reference key rate
func WithKeyRateSource(src KeyRateSource) Option {
	return func(s *Service) { s.keyRates = src }
}

// WithMetrics records insight and chart outcomes
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService initializes a new service
func NewService(store *repository.DatasetStore, repo *repository.Repository, log *logrus.Logger, cfg *config.Config, opts ...Option) *Service {
	s := &Service{store: store, repo: repo, log: log, config: cfg, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	s.metrics.SetDatasetRecords(store.Current().Len())
	return s
}

// Dataset returns the active dataset
func (s *Service) Dataset() *repository.Dataset {
	return s.store.Current()
}

// Options returns the widget options of the active dataset
func (s *Service) Options() models.Options {
	return s.store.Current().Options()
}

// NarratorEnabled reports whether AI insights can be generated
func (s *Service) NarratorEnabled() bool {
	return s.narrator != nil
}

// ArchiveEnabled reports whether narratives are persisted
func (s *Service) ArchiveEnabled() bool {
	return s.repo != nil && s.repo.Enabled()
}

// Filter returns the rows of the active dataset that match f
func (s *Service) Filter(f models.FilterState) []*models.CreditApplication {
	return Apply(s.store.Current().Records(), f)
}

// Dashboard computes the KPI cards and chart aggregates for f
func (s *Service) Dashboard(f models.FilterState) (models.Metrics, models.ChartData) {
	ds := s.store.Current()
	view := Apply(ds.Records(), f)
	return ComputeMetrics(view, ds.Records(), ds.HasRisk()), BuildChartData(view, ds.HasRisk())
}

// Reload re-reads the dataset file; force skips the modification time check
func (s *Service) Reload(force bool) (bool, error) {
	changed, err := s.store.Reload(force)
	if err != nil {
		s.log.Errorf("Dataset reload failed, keeping %d records: %v", s.store.Current().Len(), err)
		return false, err
	}
	if changed {
		ds := s.store.Current()
		s.metrics.SetDatasetRecords(ds.Len())
		s.log.WithFields(logrus.Fields{"records": ds.Len(), "source": ds.Source()}).Info("Dataset reloaded")
	}
	return changed, nil
}

// RefreshKeyRate fetches and caches the reference key rate
func (s *Service) RefreshKeyRate(ctx context.Context) error {
	if s.keyRates == nil {
		return nil
	}
	rate, err := s.keyRates.GetKeyRate(ctx)
	if err != nil {
		return fmt.Errorf("failed to refresh key rate: %w", err)
	}
	s.mu.Lock()
	s.keyRate = rate
	s.mu.Unlock()
	return nil
}

// KeyRate returns the cached reference key rate, 0 when unknown
func (s *Service) KeyRate() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.keyRate
}

// Login authenticates the administrator and returns a JWT token
func (s *Service) Login(username, password string) (*models.Token, error) {
	if !s.config.AdminEnabled() {
		return nil, fmt.Errorf("admin login is disabled")
	}
	if username != s.config.AdminUsername {
		return nil, ErrInvalidCredentials
	}

	// Verify password
	if err := bcrypt.CompareHashAndPassword([]byte(s.config.AdminPasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	// Generate JWT
	expiresAt := s.now().Add(24 * time.Hour)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(s.now()),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	})
	tokenString, err := token.SignedString([]byte(s.config.JWTSecret))
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	s.log.Infof("Admin logged in: %s", username)
	return &models.Token{AccessToken: tokenString, ExpiresAt: expiresAt.UTC().Format(time.RFC3339)}, nil
}
