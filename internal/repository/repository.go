package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Dan9191/credit-dashboard/internal/models"
)

// ErrArchiveDisabled is returned when no database is configured
var ErrArchiveDisabled = errors.New("insight archive is disabled")

// Repository provides database operations for the insight archive. A nil db
// disables the archive.
type Repository struct {
	db *sql.DB
}

// NewRepository initializes a new repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Enabled reports whether insights are persisted
func (r *Repository) Enabled() bool {
	return r != nil && r.db != nil
}

// EnsureSchema creates the archive schema and table if they do not exist
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if !r.Enabled() {
		return ErrArchiveDisabled
	}
	statements := []string{
		`CREATE SCHEMA IF NOT EXISTS dashboard`,
		`CREATE TABLE IF NOT EXISTS dashboard.insights (
			id            BIGSERIAL PRIMARY KEY,
			provider      TEXT NOT NULL,
			model         TEXT NOT NULL,
			filter        JSONB NOT NULL,
			total_records INTEGER NOT NULL,
			fallback      BOOLEAN NOT NULL DEFAULT FALSE,
			error         TEXT NOT NULL DEFAULT '',
			content       TEXT NOT NULL,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
	}
	for _, stmt := range statements {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}

// SaveInsight stores a generated narrative and sets its ID and creation time
func (r *Repository) SaveInsight(ctx context.Context, insight *models.Insight) error {
	if !r.Enabled() {
		return ErrArchiveDisabled
	}
	filter, err := json.Marshal(insight.Filter)
	if err != nil {
		return fmt.Errorf("failed to encode filter: %w", err)
	}
	query := `
		INSERT INTO dashboard.insights (provider, model, filter, total_records, fallback, error, content, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, CURRENT_TIMESTAMP)
		RETURNING id, created_at`
	err = r.db.QueryRowContext(ctx, query,
		insight.Provider, insight.Model, string(filter), insight.TotalRecords, insight.Fallback, insight.Error, insight.Content).
		Scan(&insight.ID, &insight.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save insight: %w", err)
	}
	return nil
}

// ListInsights returns the most recent insights, newest first
func (r *Repository) ListInsights(ctx context.Context, limit int) ([]models.Insight, error) {
	if !r.Enabled() {
		return nil, ErrArchiveDisabled
	}
	if limit <= 0 {
		limit = 20
	}
	query := `
		SELECT id, provider, model, filter, total_records, fallback, error, content, created_at
		FROM dashboard.insights
		ORDER BY created_at DESC, id DESC
		LIMIT $1`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list insights: %w", err)
	}
	defer rows.Close()

	var insights []models.Insight
	for rows.Next() {
		var (
			in     models.Insight
			filter []byte
		)
		if err := rows.Scan(&in.ID, &in.Provider, &in.Model, &filter, &in.TotalRecords, &in.Fallback, &in.Error, &in.Content, &in.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan insight: %w", err)
		}
		if err := json.Unmarshal(filter, &in.Filter); err != nil {
			return nil, fmt.Errorf("failed to decode filter of insight %d: %w", in.ID, err)
		}
		insights = append(insights, in)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list insights: %w", err)
	}
	return insights, nil
}
