package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/modelarena/modelarena/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

const modelConfigColumns = `id, name, provider, api_key, base_url, model_id, temperature, top_p,
	max_tokens, system_prompt, timeout_ms, retry_count, is_judge, is_active, created_at, updated_at`

// ModelConfigRepository manages registered LLM model configurations.
type ModelConfigRepository struct {
	db *sql.DB
}

// NewModelConfigRepository creates a repository for model configurations.
func NewModelConfigRepository(db *sql.DB) *ModelConfigRepository {
	return &ModelConfigRepository{db: db}
}

func scanModelConfig(row interface{ Scan(...any) error }) (*models.ModelConfig, error) {
	m := &models.ModelConfig{}
	err := row.Scan(
		&m.ID, &m.Name, &m.Provider, &m.APIKey, &m.BaseURL, &m.ModelID,
		&m.Temperature, &m.TopP, &m.MaxTokens, &m.SystemPrompt,
		&m.TimeoutMs, &m.RetryCount, &m.IsJudge, &m.IsActive,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Create inserts a new model configuration. The APIKey must already be
// encrypted by the caller.
func (r *ModelConfigRepository) Create(ctx context.Context, m *models.ModelConfig) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	now := time.Now()
	m.CreatedAt = now
	m.UpdatedAt = now

	query := `
		INSERT INTO llm_models (` + modelConfigColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err := r.db.ExecContext(ctx, query,
		m.ID, m.Name, m.Provider, m.APIKey, m.BaseURL, m.ModelID,
		m.Temperature, m.TopP, m.MaxTokens, m.SystemPrompt,
		m.TimeoutMs, m.RetryCount, m.IsJudge, m.IsActive,
		m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create model config: %w", err)
	}

	return nil
}

// Get retrieves one model configuration by id.
func (r *ModelConfigRepository) Get(ctx context.Context, id string) (*models.ModelConfig, error) {
	query := `SELECT ` + modelConfigColumns + ` FROM llm_models WHERE id = $1`

	m, err := scanModelConfig(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("model %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get model config: %w", err)
	}

	return m, nil
}

// List returns all model configurations, newest first.
func (r *ModelConfigRepository) List(ctx context.Context) ([]models.ModelConfig, error) {
	query := `SELECT ` + modelConfigColumns + ` FROM llm_models ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list model configs: %w", err)
	}
	defer rows.Close()

	var configs []models.ModelConfig
	for rows.Next() {
		m, err := scanModelConfig(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan model config: %w", err)
		}
		configs = append(configs, *m)
	}

	return configs, rows.Err()
}

// GetByIDs returns the configurations for the given ids, in no particular
// order. Missing ids are silently skipped.
func (r *ModelConfigRepository) GetByIDs(ctx context.Context, ids []string) ([]models.ModelConfig, error) {
	query := `SELECT ` + modelConfigColumns + ` FROM llm_models WHERE id = ANY($1)`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to get model configs: %w", err)
	}
	defer rows.Close()

	var configs []models.ModelConfig
	for rows.Next() {
		m, err := scanModelConfig(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan model config: %w", err)
		}
		configs = append(configs, *m)
	}

	return configs, rows.Err()
}

// Update applies a partial update and returns the stored record.
func (r *ModelConfigRepository) Update(ctx context.Context, id string, update models.ModelConfigUpdate) (*models.ModelConfig, error) {
	query := `UPDATE llm_models SET updated_at = $1`
	args := []any{time.Now()}
	argCount := 1

	setField := func(column string, value any) {
		argCount++
		query += fmt.Sprintf(", %s = $%d", column, argCount)
		args = append(args, value)
	}

	if update.Name != nil {
		setField("name", *update.Name)
	}
	if update.Provider != nil {
		setField("provider", *update.Provider)
	}
	if update.APIKey != nil {
		setField("api_key", *update.APIKey)
	}
	if update.BaseURL != nil {
		setField("base_url", *update.BaseURL)
	}
	if update.ModelID != nil {
		setField("model_id", *update.ModelID)
	}
	if update.Temperature != nil {
		setField("temperature", *update.Temperature)
	}
	if update.TopP != nil {
		setField("top_p", *update.TopP)
	}
	if update.MaxTokens != nil {
		setField("max_tokens", *update.MaxTokens)
	}
	if update.SystemPrompt != nil {
		setField("system_prompt", *update.SystemPrompt)
	}
	if update.TimeoutMs != nil {
		setField("timeout_ms", *update.TimeoutMs)
	}
	if update.RetryCount != nil {
		setField("retry_count", *update.RetryCount)
	}
	if update.IsJudge != nil {
		setField("is_judge", *update.IsJudge)
	}
	if update.IsActive != nil {
		setField("is_active", *update.IsActive)
	}

	argCount++
	query += fmt.Sprintf(" WHERE id = $%d RETURNING ", argCount) + modelConfigColumns
	args = append(args, id)

	m, err := scanModelConfig(r.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("model %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update model config: %w", err)
	}

	return m, nil
}

// Delete removes a model configuration.
func (r *ModelConfigRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM llm_models WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete model config: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("model %s: %w", id, ErrNotFound)
	}

	return nil
}
