package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/modelarena/modelarena/internal/models"
)

const sessionColumns = `id, name, type, model_ids, prompt, system_prompt, test_set_id,
	judge_model_id, status, created_at, completed_at`

const resultColumns = `id, session_id, model_id, test_case_id, prompt, response, tokens_input,
	tokens_output, response_time_ms, score, score_comment, status, error, created_at`

// EvalRepository manages evaluation sessions and their results.
type EvalRepository struct {
	db *sql.DB
}

// NewEvalRepository creates a repository for evaluation sessions.
func NewEvalRepository(db *sql.DB) *EvalRepository {
	return &EvalRepository{db: db}
}

func scanSession(row interface{ Scan(...any) error }, withCount bool) (*models.EvalSession, error) {
	s := &models.EvalSession{}
	dest := []any{
		&s.ID, &s.Name, &s.Type, pq.Array(&s.ModelIDs), &s.Prompt, &s.SystemPrompt,
		&s.TestSetID, &s.JudgeModelID, &s.Status, &s.CreatedAt, &s.CompletedAt,
	}
	if withCount {
		dest = append(dest, &s.ResultCount)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return s, nil
}

func scanResult(row interface{ Scan(...any) error }) (*models.EvalResult, error) {
	res := &models.EvalResult{}
	err := row.Scan(
		&res.ID, &res.SessionID, &res.ModelID, &res.TestCaseID, &res.Prompt,
		&res.Response, &res.TokensInput, &res.TokensOutput, &res.ResponseTimeMs,
		&res.Score, &res.ScoreComment, &res.Status, &res.Error, &res.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// CreateSession inserts a new session in pending state. The participating
// model ids are fixed here and never change afterwards.
func (r *EvalRepository) CreateSession(ctx context.Context, s *models.EvalSession) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	s.Status = models.SessionPending
	s.CreatedAt = time.Now()

	query := `
		INSERT INTO eval_sessions (id, name, type, model_ids, prompt, system_prompt, test_set_id, judge_model_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.ExecContext(ctx, query,
		s.ID, s.Name, s.Type, pq.Array(s.ModelIDs), s.Prompt, s.SystemPrompt,
		s.TestSetID, s.JudgeModelID, s.Status, s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	return nil
}

// GetSession retrieves one session by id.
func (r *EvalRepository) GetSession(ctx context.Context, id string) (*models.EvalSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM eval_sessions WHERE id = $1`

	s, err := scanSession(r.db.QueryRowContext(ctx, query, id), false)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return s, nil
}

// MarkRunning transitions a session from pending to running. The transition
// is a compare-and-set: concurrent first-arrivals and already-running
// sessions are a no-op.
func (r *EvalRepository) MarkRunning(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE eval_sessions SET status = $1 WHERE id = $2 AND status = $3`,
		models.SessionRunning, id, models.SessionPending,
	)
	if err != nil {
		return fmt.Errorf("failed to mark session running: %w", err)
	}
	return nil
}

// CompleteSession marks a session completed with a completion timestamp.
func (r *EvalRepository) CompleteSession(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE eval_sessions SET status = $1, completed_at = NOW() WHERE id = $2 AND status <> $1`,
		models.SessionCompleted, id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete session: %w", err)
	}
	return nil
}

// CompleteSessionIfAllReported marks a compare session completed once every
// participating model has a terminal result. Safe to call after each model
// finishes; only the final caller's update takes effect. Models are counted
// distinct so a reopened stream for one model cannot stand in for another.
func (r *EvalRepository) CompleteSessionIfAllReported(ctx context.Context, id string) (bool, error) {
	query := `
		UPDATE eval_sessions s
		SET status = $1, completed_at = NOW()
		WHERE s.id = $2
		  AND s.status = $3
		  AND (SELECT COUNT(DISTINCT r.model_id) FROM eval_results r
		       WHERE r.session_id = s.id AND r.status IN ($4, $5)) >= cardinality(s.model_ids)
	`

	result, err := r.db.ExecContext(ctx, query,
		models.SessionCompleted, id, models.SessionRunning,
		models.ResultSuccess, models.ResultFailed,
	)
	if err != nil {
		return false, fmt.Errorf("failed to finalize session: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check finalize result: %w", err)
	}

	return affected > 0, nil
}

// ListSessions returns sessions newest first, optionally filtered by type,
// each with its result count.
func (r *EvalRepository) ListSessions(ctx context.Context, sessionType string) ([]models.EvalSession, error) {
	query := `
		SELECT ` + sessionColumns + `,
		       (SELECT COUNT(*) FROM eval_results res WHERE res.session_id = eval_sessions.id) AS result_count
		FROM eval_sessions
	`
	var args []any
	if sessionType != "" {
		query += ` WHERE type = $1`
		args = append(args, sessionType)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []models.EvalSession
	for rows.Next() {
		s, err := scanSession(rows, true)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, *s)
	}

	return sessions, rows.Err()
}

// GetSessionDetail returns a session with its results in creation order.
func (r *EvalRepository) GetSessionDetail(ctx context.Context, id string) (*models.SessionDetail, error) {
	session, err := r.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}

	results, err := r.ListResults(ctx, id)
	if err != nil {
		return nil, err
	}

	return &models.SessionDetail{EvalSession: *session, Results: results}, nil
}

// ListResults returns a session's results in creation order.
func (r *EvalRepository) ListResults(ctx context.Context, sessionID string) ([]models.EvalResult, error) {
	query := `SELECT ` + resultColumns + ` FROM eval_results WHERE session_id = $1 ORDER BY created_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	defer rows.Close()

	var results []models.EvalResult
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		results = append(results, *res)
	}

	return results, rows.Err()
}

// CountSessions returns the total number of sessions.
func (r *EvalRepository) CountSessions(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM eval_sessions`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	return count, nil
}

// CreateResult inserts a pending result for one (model, prompt) pair. Each
// result is owned by exactly one task until its terminal update.
func (r *EvalRepository) CreateResult(ctx context.Context, res *models.EvalResult) error {
	if res.ID == "" {
		res.ID = uuid.New().String()
	}
	res.Status = models.ResultPending
	res.CreatedAt = time.Now()

	query := `
		INSERT INTO eval_results (id, session_id, model_id, test_case_id, prompt, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(ctx, query,
		res.ID, res.SessionID, res.ModelID, res.TestCaseID, res.Prompt, res.Status, res.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create result: %w", err)
	}

	return nil
}

// EnsureCompareResult returns the per-(session, model) result row of a
// compare stream, creating it pending on first open and reusing the existing
// row when the client reopens the stream for the same model.
func (r *EvalRepository) EnsureCompareResult(ctx context.Context, res *models.EvalResult) error {
	query := `
		INSERT INTO eval_results (id, session_id, model_id, prompt, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (session_id, model_id) WHERE test_case_id IS NULL DO NOTHING
	`

	_, err := r.db.ExecContext(ctx, query,
		uuid.New().String(), res.SessionID, res.ModelID, res.Prompt, models.ResultPending, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to ensure result: %w", err)
	}

	row := r.db.QueryRowContext(ctx,
		`SELECT `+resultColumns+` FROM eval_results WHERE session_id = $1 AND model_id = $2 AND test_case_id IS NULL`,
		res.SessionID, res.ModelID,
	)
	existing, err := scanResult(row)
	if err != nil {
		return fmt.Errorf("failed to load result: %w", err)
	}

	*res = *existing
	return nil
}

// FinalizeResult applies the single terminal update to a pending result.
// Already-terminal rows are left untouched.
func (r *EvalRepository) FinalizeResult(ctx context.Context, id string, update models.ResultUpdate) error {
	query := `
		UPDATE eval_results
		SET response = $1, tokens_input = $2, tokens_output = $3, response_time_ms = $4,
		    score = $5, score_comment = $6, status = $7, error = $8
		WHERE id = $9 AND status = $10
	`

	_, err := r.db.ExecContext(ctx, query,
		update.Response, update.TokensInput, update.TokensOutput, update.ResponseTimeMs,
		update.Score, update.ScoreComment, update.Status, update.Error, id, models.ResultPending,
	)
	if err != nil {
		return fmt.Errorf("failed to finalize result: %w", err)
	}

	return nil
}
