package boltdb

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"go.etcd.io/bbolt"

	"github.com/iudanet/vulntracker/internal/models"
	"github.com/iudanet/vulntracker/internal/server/storage"
)

// CreateIssue stores a new issue
func (s *Storage) CreateIssue(ctx context.Context, issue *models.Issue) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if tx.Bucket(bucketUsers).Get([]byte(issue.UserID)) == nil {
			return fmt.Errorf("failed to insert issue: %w", storage.ErrUserNotFound)
		}
		if err := putJSON(tx.Bucket(bucketIssues), issue.ID, issue); err != nil {
			return fmt.Errorf("failed to insert issue: %w", err)
		}
		return nil
	})
}

// GetIssue retrieves a single issue by ID
func (s *Storage) GetIssue(ctx context.Context, id string) (*models.Issue, error) {
	issue := &models.Issue{}

	err := s.db.View(func(tx *bbolt.Tx) error {
		found, err := getJSON(tx.Bucket(bucketIssues), id, issue)
		if err != nil {
			return err
		}
		if !found {
			return storage.ErrIssueNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return issue, nil
}

// GetUserIssues retrieves user issues, optionally filtered by type
func (s *Storage) GetUserIssues(ctx context.Context, userID string, issueType models.IssueType) ([]*models.Issue, error) {
	issues := make([]*models.Issue, 0)

	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketIssues).ForEach(func(_, v []byte) error {
			issue := &models.Issue{}
			if err := json.Unmarshal(v, issue); err != nil {
				return fmt.Errorf("failed to unmarshal issue: %w", err)
			}
			if issue.UserID != userID {
				return nil
			}
			if issueType != "" && issue.Type != issueType {
				return nil
			}
			issues = append(issues, issue)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(issues, func(i, j int) bool {
		return issues[i].CreatedAt.After(issues[j].CreatedAt)
	})

	return issues, nil
}

// UpdateIssue overwrites mutable issue fields
func (s *Storage) UpdateIssue(ctx context.Context, issue *models.Issue) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketIssues)

		current := &models.Issue{}
		found, err := getJSON(bucket, issue.ID, current)
		if err != nil {
			return err
		}
		if !found {
			return storage.ErrIssueNotFound
		}

		current.Type = issue.Type
		current.Title = issue.Title
		current.Description = issue.Description
		current.Priority = issue.Priority
		current.Status = issue.Status
		current.UpdatedAt = issue.UpdatedAt

		if err := putJSON(bucket, issue.ID, current); err != nil {
			return fmt.Errorf("failed to update issue: %w", err)
		}
		return nil
	})
}

// DeleteIssue deletes issue by ID
func (s *Storage) DeleteIssue(ctx context.Context, id string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketIssues)
		if bucket.Get([]byte(id)) == nil {
			return storage.ErrIssueNotFound
		}
		if err := bucket.Delete([]byte(id)); err != nil {
			return fmt.Errorf("failed to delete issue: %w", err)
		}
		return nil
	})
}

func deleteIssuesOf(tx *bbolt.Tx, userID string) error {
	bucket := tx.Bucket(bucketIssues)

	var ids [][]byte
	err := bucket.ForEach(func(k, v []byte) error {
		issue := &models.Issue{}
		if err := json.Unmarshal(v, issue); err != nil {
			return fmt.Errorf("failed to unmarshal issue: %w", err)
		}
		if issue.UserID == userID {
			ids = append(ids, append([]byte(nil), k...))
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, id := range ids {
		if err := bucket.Delete(id); err != nil {
			return fmt.Errorf("failed to delete issue: %w", err)
		}
	}
	return nil
}
