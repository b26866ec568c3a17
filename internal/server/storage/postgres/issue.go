package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iudanet/vulntracker/internal/models"
	"github.com/iudanet/vulntracker/internal/server/storage"
)

// CreateIssue stores a new issue
func (s *Storage) CreateIssue(ctx context.Context, issue *models.Issue) error {
	query := `
		INSERT INTO issues (id, user_id, type, title, description, priority, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := s.db.ExecContext(ctx, query,
		issue.ID, issue.UserID, string(issue.Type), issue.Title, issue.Description,
		string(issue.Priority), string(issue.Status), issue.CreatedAt, issue.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert issue: %w", err)
	}

	return nil
}

// GetIssue retrieves a single issue by ID
func (s *Storage) GetIssue(ctx context.Context, id string) (*models.Issue, error) {
	query := `
		SELECT id, user_id, type, title, description, priority, status, created_at, updated_at
		FROM issues WHERE id = $1
	`

	issue, err := scanIssue(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrIssueNotFound
		}
		return nil, fmt.Errorf("failed to get issue: %w", err)
	}

	return issue, nil
}

// GetUserIssues retrieves user issues, optionally filtered by type
func (s *Storage) GetUserIssues(ctx context.Context, userID string, issueType models.IssueType) ([]*models.Issue, error) {
	query := `
		SELECT id, user_id, type, title, description, priority, status, created_at, updated_at
		FROM issues
		WHERE user_id = $1 AND ($2::text = '' OR type = $2)
		ORDER BY created_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query, userID, string(issueType))
	if err != nil {
		return nil, fmt.Errorf("failed to query user issues: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	issues := make([]*models.Issue, 0)
	for rows.Next() {
		issue, err := scanIssue(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan issue: %w", err)
		}
		issues = append(issues, issue)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return issues, nil
}

// UpdateIssue overwrites mutable issue fields
func (s *Storage) UpdateIssue(ctx context.Context, issue *models.Issue) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE issues
		SET type = $1, title = $2, description = $3, priority = $4, status = $5, updated_at = $6
		WHERE id = $7`,
		string(issue.Type), issue.Title, issue.Description,
		string(issue.Priority), string(issue.Status), issue.UpdatedAt, issue.ID)
	if err != nil {
		return fmt.Errorf("failed to update issue: %w", err)
	}

	return expectAffected(result, storage.ErrIssueNotFound)
}

// DeleteIssue deletes issue by ID
func (s *Storage) DeleteIssue(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM issues WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete issue: %w", err)
	}

	return expectAffected(result, storage.ErrIssueNotFound)
}

func scanIssue(row rowScanner) (*models.Issue, error) {
	issue := &models.Issue{}
	var issueType, priority, status string

	if err := row.Scan(
		&issue.ID, &issue.UserID, &issueType, &issue.Title, &issue.Description,
		&priority, &status, &issue.CreatedAt, &issue.UpdatedAt,
	); err != nil {
		return nil, err
	}

	issue.Type = models.IssueType(issueType)
	issue.Priority = models.IssuePriority(priority)
	issue.Status = models.IssueStatus(status)

	return issue, nil
}
