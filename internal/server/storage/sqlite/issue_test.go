package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/vulntracker/internal/models"
	"github.com/iudanet/vulntracker/internal/server/storage"
)

func newIssue(userID string, issueType models.IssueType, createdAt time.Time) *models.Issue {
	return &models.Issue{
		ID:          uuid.New().String(),
		UserID:      userID,
		Type:        issueType,
		Title:       "SQL injection in search",
		Description: "The q parameter is concatenated into the query",
		Priority:    models.IssuePriorityHigh,
		Status:      models.IssueStatusOpen,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
}

func TestIssueStorage_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	userID := createTestUser(t, ctx, s)
	issue := newIssue(userID, models.IssueTypeVulnerability, time.Now())
	require.NoError(t, s.CreateIssue(ctx, issue))

	got, err := s.GetIssue(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, issue.UserID, got.UserID)
	assert.Equal(t, issue.Type, got.Type)
	assert.Equal(t, issue.Title, got.Title)
	assert.Equal(t, issue.Description, got.Description)
	assert.Equal(t, issue.Priority, got.Priority)
	assert.Equal(t, issue.Status, got.Status)

	_, err = s.GetIssue(ctx, uuid.New().String())
	assert.ErrorIs(t, err, storage.ErrIssueNotFound)
}

func TestIssueStorage_CreateIssue_UnknownUser(t *testing.T) {
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	// foreign_keys = ON
	err := s.CreateIssue(context.Background(), newIssue(uuid.New().String(), models.IssueTypeBug, time.Now()))
	assert.Error(t, err)
}

func TestIssueStorage_GetUserIssues(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	userID := createTestUser(t, ctx, s)
	otherID := createTestUser(t, ctx, s)
	now := time.Now()

	require.NoError(t, s.CreateIssue(ctx, newIssue(userID, models.IssueTypeBug, now)))
	require.NoError(t, s.CreateIssue(ctx, newIssue(userID, models.IssueTypeVulnerability, now.Add(time.Minute))))
	require.NoError(t, s.CreateIssue(ctx, newIssue(userID, models.IssueTypeBug, now.Add(2*time.Minute))))
	require.NoError(t, s.CreateIssue(ctx, newIssue(otherID, models.IssueTypeBug, now)))

	tests := []struct {
		name      string
		issueType models.IssueType
		wantCount int
	}{
		{name: "no filter", issueType: "", wantCount: 3},
		{name: "bugs only", issueType: models.IssueTypeBug, wantCount: 2},
		{name: "vulnerabilities only", issueType: models.IssueTypeVulnerability, wantCount: 1},
		{name: "no matches", issueType: models.IssueTypeImprovement, wantCount: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issues, err := s.GetUserIssues(ctx, userID, tt.issueType)
			require.NoError(t, err)
			assert.Len(t, issues, tt.wantCount)
			for i, issue := range issues {
				assert.Equal(t, userID, issue.UserID)
				if i > 0 {
					assert.False(t, issue.CreatedAt.After(issues[i-1].CreatedAt))
				}
			}
		})
	}
}

func TestIssueStorage_UpdateIssue(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	userID := createTestUser(t, ctx, s)
	issue := newIssue(userID, models.IssueTypeBug, time.Now())
	require.NoError(t, s.CreateIssue(ctx, issue))

	issue.Status = models.IssueStatusResolved
	issue.Title = "Fixed title"
	issue.UpdatedAt = issue.UpdatedAt.Add(time.Hour)
	require.NoError(t, s.UpdateIssue(ctx, issue))

	got, err := s.GetIssue(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, models.IssueStatusResolved, got.Status)
	assert.Equal(t, "Fixed title", got.Title)
	assert.WithinDuration(t, issue.UpdatedAt, got.UpdatedAt, time.Millisecond)

	missing := newIssue(userID, models.IssueTypeBug, time.Now())
	assert.ErrorIs(t, s.UpdateIssue(ctx, missing), storage.ErrIssueNotFound)
}

func TestIssueStorage_DeleteIssue(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	userID := createTestUser(t, ctx, s)
	issue := newIssue(userID, models.IssueTypeBug, time.Now())
	require.NoError(t, s.CreateIssue(ctx, issue))

	require.NoError(t, s.DeleteIssue(ctx, issue.ID))
	_, err := s.GetIssue(ctx, issue.ID)
	assert.ErrorIs(t, err, storage.ErrIssueNotFound)

	assert.ErrorIs(t, s.DeleteIssue(ctx, issue.ID), storage.ErrIssueNotFound)
}
