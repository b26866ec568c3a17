package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iudanet/vulntracker/internal/models"
	"github.com/iudanet/vulntracker/internal/server/storage"
)

const issueColumns = `id, user_id, type, title, description, priority, status, created_at, updated_at`

// CreateIssue stores a new issue
func (s *Storage) CreateIssue(ctx context.Context, issue *models.Issue) error {
	query := `
		INSERT INTO issues (` + issueColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		issue.ID,
		issue.UserID,
		string(issue.Type),
		issue.Title,
		issue.Description,
		string(issue.Priority),
		string(issue.Status),
		issue.CreatedAt.UTC(),
		issue.UpdatedAt.UTC(),
	)

	if err != nil {
		return fmt.Errorf("failed to insert issue: %w", err)
	}

	return nil
}

// GetIssue retrieves a single issue by ID
func (s *Storage) GetIssue(ctx context.Context, id string) (*models.Issue, error) {
	query := `SELECT ` + issueColumns + ` FROM issues WHERE id = ?`

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
		SELECT ` + issueColumns + `
		FROM issues
		WHERE user_id = ? AND (? = '' OR type = ?)
		ORDER BY created_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query, userID, string(issueType), string(issueType))
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
	query := `
		UPDATE issues
		SET type = ?, title = ?, description = ?, priority = ?, status = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := s.db.ExecContext(ctx, query,
		string(issue.Type),
		issue.Title,
		issue.Description,
		string(issue.Priority),
		string(issue.Status),
		issue.UpdatedAt.UTC(),
		issue.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update issue: %w", err)
	}

	return expectAffected(result, storage.ErrIssueNotFound)
}

// DeleteIssue deletes issue by ID
func (s *Storage) DeleteIssue(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM issues WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete issue: %w", err)
	}

	return expectAffected(result, storage.ErrIssueNotFound)
}

func scanIssue(row rowScanner) (*models.Issue, error) {
	issue := &models.Issue{}
	var issueType, priority, status string

	if err := row.Scan(
		&issue.ID,
		&issue.UserID,
		&issueType,
		&issue.Title,
		&issue.Description,
		&priority,
		&status,
		&issue.CreatedAt,
		&issue.UpdatedAt,
	); err != nil {
		return nil, err
	}

	issue.Type = models.IssueType(issueType)
	issue.Priority = models.IssuePriority(priority)
	issue.Status = models.IssueStatus(status)

	return issue, nil
}
