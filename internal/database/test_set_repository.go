package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/modelarena/modelarena/internal/models"
)

const testCaseColumns = `id, test_set_id, prompt, reference_answer, scoring_criteria, case_order, created_at`

// TestSetRepository manages test sets and their ordered cases.
type TestSetRepository struct {
	db *sql.DB
}

// NewTestSetRepository creates a repository for test sets.
func NewTestSetRepository(db *sql.DB) *TestSetRepository {
	return &TestSetRepository{db: db}
}

func scanTestCase(row interface{ Scan(...any) error }) (*models.TestCase, error) {
	tc := &models.TestCase{}
	err := row.Scan(
		&tc.ID, &tc.TestSetID, &tc.Prompt, &tc.ReferenceAnswer,
		&tc.ScoringCriteria, &tc.Order, &tc.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return tc, nil
}

// Create inserts a test set, optionally with initial cases. Cases without an
// explicit order get their position in the submitted list.
func (r *TestSetRepository) Create(ctx context.Context, ts *models.TestSet, cases []models.TestCaseInput) error {
	if ts.ID == "" {
		ts.ID = uuid.New().String()
	}
	now := time.Now()
	ts.CreatedAt = now
	ts.UpdatedAt = now

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO test_sets (id, name, description, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
		ts.ID, ts.Name, ts.Description, ts.CreatedAt, ts.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create test set: %w", err)
	}

	for i, input := range cases {
		order := i
		if input.Order != nil {
			order = *input.Order
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO test_cases (id, test_set_id, prompt, reference_answer, scoring_criteria, case_order, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			uuid.New().String(), ts.ID, input.Prompt, input.ReferenceAnswer, input.ScoringCriteria, order, now,
		)
		if err != nil {
			return fmt.Errorf("failed to create test case: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit test set: %w", err)
	}

	ts.CaseCount = len(cases)
	return nil
}

// List returns all test sets, newest first, with case counts.
func (r *TestSetRepository) List(ctx context.Context) ([]models.TestSet, error) {
	query := `
		SELECT id, name, description, created_at, updated_at,
		       (SELECT COUNT(*) FROM test_cases tc WHERE tc.test_set_id = test_sets.id) AS case_count
		FROM test_sets
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list test sets: %w", err)
	}
	defer rows.Close()

	var sets []models.TestSet
	for rows.Next() {
		var ts models.TestSet
		if err := rows.Scan(&ts.ID, &ts.Name, &ts.Description, &ts.CreatedAt, &ts.UpdatedAt, &ts.CaseCount); err != nil {
			return nil, fmt.Errorf("failed to scan test set: %w", err)
		}
		sets = append(sets, ts)
	}

	return sets, rows.Err()
}

// Get returns a test set with its cases in ascending stable order.
func (r *TestSetRepository) Get(ctx context.Context, id string) (*models.TestSet, error) {
	ts := &models.TestSet{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, description, created_at, updated_at FROM test_sets WHERE id = $1`, id,
	).Scan(&ts.ID, &ts.Name, &ts.Description, &ts.CreatedAt, &ts.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("test set %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get test set: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+testCaseColumns+` FROM test_cases WHERE test_set_id = $1 ORDER BY case_order ASC, created_at ASC`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list test cases: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		tc, err := scanTestCase(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan test case: %w", err)
		}
		ts.Cases = append(ts.Cases, *tc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	ts.CaseCount = len(ts.Cases)
	return ts, nil
}

// Update changes a test set's name and/or description.
func (r *TestSetRepository) Update(ctx context.Context, id string, name, description *string) (*models.TestSet, error) {
	query := `UPDATE test_sets SET updated_at = $1`
	args := []any{time.Now()}
	argCount := 1

	if name != nil {
		argCount++
		query += fmt.Sprintf(", name = $%d", argCount)
		args = append(args, *name)
	}
	if description != nil {
		argCount++
		query += fmt.Sprintf(", description = $%d", argCount)
		args = append(args, *description)
	}

	argCount++
	query += fmt.Sprintf(" WHERE id = $%d", argCount)
	args = append(args, id)

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update test set: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return nil, fmt.Errorf("test set %s: %w", id, ErrNotFound)
	}

	return r.Get(ctx, id)
}

// Delete removes a test set and its cases.
func (r *TestSetRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM test_sets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete test set: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("test set %s: %w", id, ErrNotFound)
	}

	return nil
}

// AddCase appends one case. Without an explicit order it goes after the
// current last case.
func (r *TestSetRepository) AddCase(ctx context.Context, testSetID string, input models.TestCaseInput) (*models.TestCase, error) {
	if _, err := r.Get(ctx, testSetID); err != nil {
		return nil, err
	}

	order := 0
	if input.Order != nil {
		order = *input.Order
	} else {
		if err := r.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM test_cases WHERE test_set_id = $1`, testSetID,
		).Scan(&order); err != nil {
			return nil, fmt.Errorf("failed to count test cases: %w", err)
		}
	}

	tc := &models.TestCase{
		ID:              uuid.New().String(),
		TestSetID:       testSetID,
		Prompt:          input.Prompt,
		ReferenceAnswer: input.ReferenceAnswer,
		ScoringCriteria: input.ScoringCriteria,
		Order:           order,
		CreatedAt:       time.Now(),
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO test_cases (id, test_set_id, prompt, reference_answer, scoring_criteria, case_order, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		tc.ID, tc.TestSetID, tc.Prompt, tc.ReferenceAnswer, tc.ScoringCriteria, tc.Order, tc.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create test case: %w", err)
	}

	return tc, nil
}

// UpdateCase changes a case's prompt, reference answer, or criteria. The
// stable order is never changed after creation.
func (r *TestSetRepository) UpdateCase(ctx context.Context, testSetID, caseID string, input models.TestCaseInput) (*models.TestCase, error) {
	query := `
		UPDATE test_cases
		SET prompt = $1, reference_answer = $2, scoring_criteria = $3
		WHERE id = $4 AND test_set_id = $5
		RETURNING ` + testCaseColumns

	tc, err := scanTestCase(r.db.QueryRowContext(ctx, query,
		input.Prompt, input.ReferenceAnswer, input.ScoringCriteria, caseID, testSetID,
	))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("test case %s: %w", caseID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update test case: %w", err)
	}

	return tc, nil
}

// DeleteCase removes one case from a test set.
func (r *TestSetRepository) DeleteCase(ctx context.Context, testSetID, caseID string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM test_cases WHERE id = $1 AND test_set_id = $2`, caseID, testSetID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete test case: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("test case %s: %w", caseID, ErrNotFound)
	}

	return nil
}

// ImportCases bulk-appends cases after the current last order.
func (r *TestSetRepository) ImportCases(ctx context.Context, testSetID string, cases []models.TestCaseInput) (int, error) {
	if _, err := r.Get(ctx, testSetID); err != nil {
		return 0, err
	}

	var current int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM test_cases WHERE test_set_id = $1`, testSetID,
	).Scan(&current); err != nil {
		return 0, fmt.Errorf("failed to count test cases: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	for i, input := range cases {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO test_cases (id, test_set_id, prompt, reference_answer, scoring_criteria, case_order, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			uuid.New().String(), testSetID, input.Prompt, input.ReferenceAnswer, input.ScoringCriteria, current+i, now,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to import test case: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit import: %w", err)
	}

	return len(cases), nil
}
