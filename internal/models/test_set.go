package models

import "time"

// TestSet is an ordered collection of prompts used as batch input.
type TestSet struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description *string    `json:"description,omitempty"`
	Cases       []TestCase `json:"cases,omitempty"`
	CaseCount   int        `json:"case_count"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TestCase is one prompt in a test set. Order is a stable integer assigned
// at creation and preserved thereafter.
type TestCase struct {
	ID              string    `json:"id"`
	TestSetID       string    `json:"test_set_id"`
	Prompt          string    `json:"prompt"`
	ReferenceAnswer *string   `json:"reference_answer,omitempty"`
	ScoringCriteria *string   `json:"scoring_criteria,omitempty"`
	Order           int       `json:"order"`
	CreatedAt       time.Time `json:"created_at"`
}

// TestCaseInput is the client-supplied shape for creating or updating a case.
type TestCaseInput struct {
	Prompt          string  `json:"prompt"`
	ReferenceAnswer *string `json:"reference_answer,omitempty"`
	ScoringCriteria *string `json:"scoring_criteria,omitempty"`
	Order           *int    `json:"order,omitempty"`
}
