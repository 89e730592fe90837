package service

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Dan9191/credit-dashboard/internal/config"
	"github.com/Dan9191/credit-dashboard/internal/models"
	"github.com/Dan9191/credit-dashboard/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNarrator struct {
	reply  string
	err    error
	prompt string
}

func (f *fakeNarrator) Complete(_ context.Context, _, userPrompt string) (string, error) {
	f.prompt = userPrompt
	return f.reply, f.err
}

func (f *fakeNarrator) Provider() string { return "fake" }
func (f *fakeNarrator) Model() string    { return "fake-1" }

func TestNarrateDisabled(t *testing.T) {
	svc := newTestService(t, samplePath)
	assert.False(t, svc.NarratorEnabled())
	_, err := svc.Narrate(context.Background(), models.FilterState{})
	assert.ErrorIs(t, err, ErrNarratorDisabled)
}

func TestNarrate(t *testing.T) {
	n := &fakeNarrator{reply: "- Car loans dominate the rented segment"}
	svc := newTestService(t, samplePath, WithNarrator(n), WithKeyRateSource(stubKeyRate{rate: 16.5}))
	require.NoError(t, svc.RefreshKeyRate(context.Background()))

	insight, err := svc.Narrate(context.Background(), models.FilterState{Housing: []string{"rent"}})
	require.NoError(t, err)
	assert.False(t, insight.Fallback)
	assert.Equal(t, "- Car loans dominate the rented segment", insight.Content)
	assert.Equal(t, "fake", insight.Provider)
	assert.Equal(t, "fake-1", insight.Model)
	assert.Equal(t, 6, insight.TotalRecords)
	assert.Equal(t, []string{"rent"}, insight.Filter.Housing)

	assert.Contains(t, n.prompt, "Total records: 6")
	assert.Contains(t, n.prompt, "Average credit amount: 3,140 DM")
	assert.Contains(t, n.prompt, "High risk percentage: 33.3%")
	assert.Contains(t, n.prompt, "key rate: 16.50%")
	assert.Contains(t, n.prompt, "under 400 words")
}

func TestNarrateFallsBackOnProviderError(t *testing.T) {
	n := &fakeNarrator{err: errors.New("API request failed with status 429: quota exceeded")}
	svc := newTestService(t, samplePath, WithNarrator(n))

	insight, err := svc.Narrate(context.Background(), models.FilterState{})
	require.NoError(t, err)
	assert.True(t, insight.Fallback)
	assert.Equal(t, n.err.Error(), insight.Error)
	assert.Contains(t, insight.Content, "Demo Mode")
	assert.Contains(t, insight.Content, "24 credit applications analyzed")
	assert.Contains(t, insight.Content, "quota exceeded")
}

func TestNarrateUnlabelledPrompt(t *testing.T) {
	n := &fakeNarrator{reply: "ok"}
	svc := newTestService(t, unlabelledPath, WithNarrator(n))
	_, err := svc.Narrate(context.Background(), models.FilterState{})
	require.NoError(t, err)
	assert.Contains(t, n.prompt, "not labelled")
}

func TestNarrateArchives(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store, err := repository.NewDatasetStore(samplePath)
	require.NoError(t, err)
	svc := NewService(store, repository.NewRepository(db), quietLogger(), &config.Config{},
		WithNarrator(&fakeNarrator{reply: "archived"}))
	svc.now = func() time.Time { return time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC) }

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO dashboard.insights")).
		WithArgs("fake", "fake-1", sqlmock.AnyArg(), 24, false, "", "archived").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(7, time.Date(2026, 10, 19, 8, 0, 1, 0, time.UTC)))

	insight, err := svc.Narrate(context.Background(), models.FilterState{})
	require.NoError(t, err)
	assert.Equal(t, int64(7), insight.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

type slowNarrator struct{ fakeNarrator }

func (s *slowNarrator) Complete(ctx context.Context, _, _ string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestNarrateArchivesFallbackAfterTimeout(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store, err := repository.NewDatasetStore(samplePath)
	require.NoError(t, err)
	svc := NewService(store, repository.NewRepository(db), quietLogger(),
		&config.Config{LLMTimeout: 20 * time.Millisecond}, WithNarrator(&slowNarrator{}))

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO dashboard.insights")).
		WithArgs("fake", "fake-1", sqlmock.AnyArg(), 24, true, context.DeadlineExceeded.Error(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(8, time.Date(2026, 10, 19, 8, 0, 1, 0, time.UTC)))

	insight, err := svc.Narrate(context.Background(), models.FilterState{})
	require.NoError(t, err)
	assert.True(t, insight.Fallback)
	assert.Equal(t, int64(8), insight.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsightsRequiresArchive(t *testing.T) {
	svc := newTestService(t, samplePath)
	_, err := svc.Insights(context.Background(), 10)
	assert.ErrorIs(t, err, repository.ErrArchiveDisabled)
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "0", FormatAmount(0))
	assert.Equal(t, "999", FormatAmount(999))
	assert.Equal(t, "3,979", FormatAmount(3978.6))
	assert.Equal(t, "1,234,567", FormatAmount(1234567))
	assert.Equal(t, "-12,579", FormatAmount(-12579))
}

func TestFallbackNarrativeWithoutData(t *testing.T) {
	text := FallbackNarrative(models.DataSummary{}, nil)
	assert.Contains(t, text, "0 credit applications analyzed")
	assert.NotContains(t, text, "Live analysis unavailable")
}
