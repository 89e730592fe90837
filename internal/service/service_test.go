package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Dan9191/credit-dashboard/internal/charts"
	"github.com/Dan9191/credit-dashboard/internal/config"
	"github.com/Dan9191/credit-dashboard/internal/metrics"
	"github.com/Dan9191/credit-dashboard/internal/models"
	"github.com/Dan9191/credit-dashboard/internal/repository"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestService(t *testing.T, path string, opts ...Option) *Service {
	t.Helper()
	store, err := repository.NewDatasetStore(path)
	require.NoError(t, err)
	cfg := &config.Config{LLMTimeout: 5 * time.Second}
	return NewService(store, repository.NewRepository(nil), quietLogger(), cfg, opts...)
}

func TestRenderAllChartsFullDataset(t *testing.T) {
	svc := newTestService(t, samplePath, WithMetrics(metrics.New()))
	for _, c := range Charts() {
		for _, f := range []charts.Format{charts.PNG, charts.SVG} {
			t.Run(c.ID+"."+string(f), func(t *testing.T) {
				var buf bytes.Buffer
				require.NoError(t, svc.RenderChart(&buf, c.ID, f, models.FilterState{}))
				if f == charts.PNG {
					assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")), "png signature")
				} else {
					assert.Contains(t, buf.String(), "<svg")
					assert.NotContains(t, buf.String(), NoDataMessage)
					assert.NotContains(t, buf.String(), UnavailableMessage)
				}
			})
		}
	}
}

func TestRenderChartsUnlabelledDataset(t *testing.T) {
	svc := newTestService(t, unlabelledPath)
	for _, c := range Charts() {
		var buf bytes.Buffer
		require.NoError(t, svc.RenderChart(&buf, c.ID, charts.SVG, models.FilterState{}), c.ID)
		assert.NotContains(t, buf.String(), NoDataMessage, c.ID)
	}

	var buf bytes.Buffer
	require.NoError(t, svc.RenderChart(&buf, "risk", charts.SVG, models.FilterState{}))
	assert.Contains(t, buf.String(), "Estimated")
}

func TestRenderChartEmptyViewUsesPlaceholder(t *testing.T) {
	svc := newTestService(t, samplePath)
	empty := models.FilterState{Purposes: []string{}}
	for _, c := range Charts() {
		var buf bytes.Buffer
		require.NoError(t, svc.RenderChart(&buf, c.ID, charts.SVG, empty), c.ID)
		assert.Contains(t, buf.String(), NoDataMessage, c.ID)

		buf.Reset()
		require.NoError(t, svc.RenderChart(&buf, c.ID, charts.PNG, empty), c.ID)
		assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")), c.ID)
	}
}

func TestRenderChartUnknownID(t *testing.T) {
	svc := newTestService(t, samplePath)
	err := svc.RenderChart(io.Discard, "heatmap", charts.PNG, models.FilterState{})
	assert.True(t, errors.Is(err, ErrUnknownChart))
}

func TestChartsRegistry(t *testing.T) {
	ids := make([]string, 0, 8)
	for _, c := range Charts() {
		ids = append(ids, c.ID)
		assert.NotEmpty(t, c.Title)
	}
	assert.Equal(t, []string{
		"age-sex", "purpose", "credit-amount", "housing-job",
		"amount-by-housing", "duration-amount", "savings-checking", "risk",
	}, ids)
}

func TestDashboard(t *testing.T) {
	svc := newTestService(t, samplePath)
	m, data := svc.Dashboard(models.FilterState{Housing: []string{"rent"}})
	assert.Equal(t, 6, m.TotalRecords)
	assert.Equal(t, 6, data.AgeSex.Total())
	assert.Equal(t, models.RiskDistribution{Good: 4, Bad: 2}, data.Risk)
}

func TestReload(t *testing.T) {
	src, err := os.ReadFile(samplePath)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "credit.csv")
	require.NoError(t, os.WriteFile(path, src, 0o644))

	svc := newTestService(t, path)
	changed, err := svc.Reload(false)
	require.NoError(t, err)
	assert.False(t, changed)

	lines := bytes.SplitAfter(src, []byte("\n"))
	require.NoError(t, os.WriteFile(path, bytes.Join(lines[:4], nil), 0o644))
	changed, err = svc.Reload(true)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 3, svc.Dataset().Len())

	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o644))
	_, err = svc.Reload(true)
	assert.Error(t, err)
	assert.Equal(t, 3, svc.Dataset().Len(), "previous dataset kept")
}

type stubKeyRate struct {
	rate float64
	err  error
}

func (s stubKeyRate) GetKeyRate(context.Context) (float64, error) { return s.rate, s.err }

func TestRefreshKeyRate(t *testing.T) {
	svc := newTestService(t, samplePath)
	require.NoError(t, svc.RefreshKeyRate(context.Background()), "no source configured")
	assert.Zero(t, svc.KeyRate())

	svc = newTestService(t, samplePath, WithKeyRateSource(stubKeyRate{rate: 16.5}))
	require.NoError(t, svc.RefreshKeyRate(context.Background()))
	assert.Equal(t, 16.5, svc.KeyRate())

	svc.keyRates = stubKeyRate{err: errors.New("timeout")}
	assert.Error(t, svc.RefreshKeyRate(context.Background()))
	assert.Equal(t, 16.5, svc.KeyRate(), "last good rate kept")
}

func TestLogin(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)

	svc := newTestService(t, samplePath)
	svc.config = &config.Config{JWTSecret: "jwt-secret", AdminUsername: "admin", AdminPasswordHash: string(hash)}
	svc.now = func() time.Time { return time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC) }

	token, err := svc.Login("admin", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "2026-10-20T08:00:00Z", token.ExpiresAt)

	claims := &jwt.RegisteredClaims{}
	_, err = jwt.ParseWithClaims(token.AccessToken, claims, func(*jwt.Token) (interface{}, error) {
		return []byte("jwt-secret"), nil
	}, jwt.WithoutClaimsValidation())
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Subject)

	_, err = svc.Login("admin", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login("root", "s3cret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	svc.config = &config.Config{}
	_, err = svc.Login("admin", "s3cret")
	assert.Error(t, err)
}

func TestRenderBoxPlotSingleHousing(t *testing.T) {
	svc := newTestService(t, samplePath)
	for _, housing := range []string{"own", "rent", "free"} {
		f := models.FilterState{Housing: []string{housing}}
		var buf bytes.Buffer
		require.NoError(t, svc.RenderChart(&buf, "amount-by-housing", charts.SVG, f), housing)
		assert.NotContains(t, buf.String(), UnavailableMessage, housing)
		assert.NotContains(t, buf.String(), NoDataMessage, housing)
	}
}
