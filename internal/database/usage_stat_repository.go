package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/modelarena/modelarena/internal/models"
)

// UsageStatRepository manages per-model daily usage counters.
type UsageStatRepository struct {
	db *sql.DB
}

// NewUsageStatRepository creates a repository for usage statistics.
func NewUsageStatRepository(db *sql.DB) *UsageStatRepository {
	return &UsageStatRepository{db: db}
}

// Increment additively upserts the (model, day) counter. The increment is
// atomic on conflict, so concurrent writers for the same key converge to the
// arithmetic sum.
func (r *UsageStatRepository) Increment(ctx context.Context, modelID string, day time.Time, tokensInput, tokensOutput int) error {
	day = day.UTC().Truncate(24 * time.Hour)

	query := `
		INSERT INTO usage_stats (model_id, usage_date, tokens_input, tokens_output, request_count)
		VALUES ($1, $2, $3, $4, 1)
		ON CONFLICT (model_id, usage_date) DO UPDATE SET
			tokens_input = usage_stats.tokens_input + EXCLUDED.tokens_input,
			tokens_output = usage_stats.tokens_output + EXCLUDED.tokens_output,
			request_count = usage_stats.request_count + 1
	`

	if _, err := r.db.ExecContext(ctx, query, modelID, day, tokensInput, tokensOutput); err != nil {
		return fmt.Errorf("failed to increment usage stat: %w", err)
	}

	return nil
}

// Overview returns totals across all models plus model/session counts.
func (r *UsageStatRepository) Overview(ctx context.Context) (*models.UsageOverview, error) {
	overview := &models.UsageOverview{}

	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(tokens_input), 0),
		       COALESCE(SUM(tokens_output), 0),
		       COALESCE(SUM(request_count), 0)
		FROM usage_stats
	`).Scan(&overview.TotalTokensInput, &overview.TotalTokensOutput, &overview.TotalRequests)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate usage: %w", err)
	}

	err = r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM llm_models WHERE is_active = TRUE`,
	).Scan(&overview.ActiveModels)
	if err != nil {
		return nil, fmt.Errorf("failed to count active models: %w", err)
	}

	err = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM eval_sessions`).Scan(&overview.TotalSessions)
	if err != nil {
		return nil, fmt.Errorf("failed to count sessions: %w", err)
	}

	return overview, nil
}

// ByModel returns cumulative usage per model, highest output first.
func (r *UsageStatRepository) ByModel(ctx context.Context) ([]models.ModelUsage, error) {
	query := `
		SELECT u.model_id,
		       COALESCE(m.name, u.model_id),
		       COALESCE(m.provider, 'unknown'),
		       SUM(u.tokens_input), SUM(u.tokens_output), SUM(u.request_count)
		FROM usage_stats u
		LEFT JOIN llm_models m ON m.id = u.model_id
		GROUP BY u.model_id, m.name, m.provider
		ORDER BY SUM(u.tokens_output) DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query model usage: %w", err)
	}
	defer rows.Close()

	var usage []models.ModelUsage
	for rows.Next() {
		var mu models.ModelUsage
		if err := rows.Scan(&mu.ModelID, &mu.ModelName, &mu.Provider, &mu.TokensInput, &mu.TokensOutput, &mu.RequestCount); err != nil {
			return nil, fmt.Errorf("failed to scan model usage: %w", err)
		}
		usage = append(usage, mu)
	}

	return usage, rows.Err()
}

// Trend returns daily totals across models for the trailing window.
func (r *UsageStatRepository) Trend(ctx context.Context, days int) ([]models.DailyUsage, error) {
	since := time.Now().UTC().Truncate(24 * time.Hour).AddDate(0, 0, -days)

	query := `
		SELECT usage_date, SUM(tokens_input), SUM(tokens_output), SUM(request_count)
		FROM usage_stats
		WHERE usage_date >= $1
		GROUP BY usage_date
		ORDER BY usage_date ASC
	`

	rows, err := r.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query usage trend: %w", err)
	}
	defer rows.Close()

	var trend []models.DailyUsage
	for rows.Next() {
		var date time.Time
		var du models.DailyUsage
		if err := rows.Scan(&date, &du.TokensInput, &du.TokensOutput, &du.RequestCount); err != nil {
			return nil, fmt.Errorf("failed to scan usage trend: %w", err)
		}
		du.Date = date.Format("2006-01-02")
		trend = append(trend, du)
	}

	return trend, rows.Err()
}

// Get returns the counter row for one (model, day) key.
func (r *UsageStatRepository) Get(ctx context.Context, modelID string, day time.Time) (*models.UsageStat, error) {
	day = day.UTC().Truncate(24 * time.Hour)

	stat := &models.UsageStat{}
	err := r.db.QueryRowContext(ctx, `
		SELECT model_id, usage_date, tokens_input, tokens_output, request_count
		FROM usage_stats WHERE model_id = $1 AND usage_date = $2
	`, modelID, day).Scan(&stat.ModelID, &stat.Date, &stat.TokensInput, &stat.TokensOutput, &stat.RequestCount)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("usage stat for model %s: %w", modelID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get usage stat: %w", err)
	}

	return stat, nil
}
