package storage

import (
	"context"

	"github.com/iudanet/vulntracker/internal/models"
)

// IssueStorage defines interface for issue persistence
type IssueStorage interface {
	// CreateIssue stores a new issue
	CreateIssue(ctx context.Context, issue *models.Issue) error

	// GetIssue retrieves a single issue by ID
	// Returns ErrIssueNotFound if issue doesn't exist
	GetIssue(ctx context.Context, id string) (*models.Issue, error)

	// GetUserIssues retrieves all issues of a user, newest first.
	// Empty issueType means no filtering.
	// Returns empty slice if no issues found
	GetUserIssues(ctx context.Context, userID string, issueType models.IssueType) ([]*models.Issue, error)

	// UpdateIssue overwrites type, title, description, priority, status and updated_at
	// Returns ErrIssueNotFound if issue doesn't exist
	UpdateIssue(ctx context.Context, issue *models.Issue) error

	// DeleteIssue deletes issue by ID
	// Returns ErrIssueNotFound if issue doesn't exist
	DeleteIssue(ctx context.Context, id string) error
}
