package models

import (
	"strings"
	"time"
)

// IssueType тип находки
type IssueType string

const (
	IssueTypeVulnerability  IssueType = "VULNERABILITY"
	IssueTypeBug            IssueType = "BUG"
	IssueTypeFeatureRequest IssueType = "FEATURE_REQUEST"
	IssueTypeImprovement    IssueType = "IMPROVEMENT"
)

// IssuePriority приоритет находки
type IssuePriority string

const (
	IssuePriorityLow      IssuePriority = "LOW"
	IssuePriorityMedium   IssuePriority = "MEDIUM"
	IssuePriorityHigh     IssuePriority = "HIGH"
	IssuePriorityCritical IssuePriority = "CRITICAL"
)

// IssueStatus статус обработки находки
type IssueStatus string

const (
	IssueStatusOpen       IssueStatus = "OPEN"
	IssueStatusInProgress IssueStatus = "IN_PROGRESS"
	IssueStatusResolved   IssueStatus = "RESOLVED"
	IssueStatusClosed     IssueStatus = "CLOSED"
)

// Issue представляет находку (уязвимость, баг и т.д.), принадлежащую пользователю
type Issue struct {
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	ID          string        `json:"id"`      // UUID находки
	UserID      string        `json:"user_id"` // владелец
	Type        IssueType     `json:"type"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Priority    IssuePriority `json:"priority"`
	Status      IssueStatus   `json:"status"`
}

// Valid reports whether t is a known issue type.
func (t IssueType) Valid() bool {
	switch t {
	case IssueTypeVulnerability, IssueTypeBug, IssueTypeFeatureRequest, IssueTypeImprovement:
		return true
	}
	return false
}

// Valid reports whether p is a known priority.
func (p IssuePriority) Valid() bool {
	switch p {
	case IssuePriorityLow, IssuePriorityMedium, IssuePriorityHigh, IssuePriorityCritical:
		return true
	}
	return false
}

// Valid reports whether s is a known status.
func (s IssueStatus) Valid() bool {
	switch s {
	case IssueStatusOpen, IssueStatusInProgress, IssueStatusResolved, IssueStatusClosed:
		return true
	}
	return false
}

// ParseIssueType нормализует значение фильтра из query string:
// "feature-request" и "Feature_Request" дают FEATURE_REQUEST
func ParseIssueType(s string) (IssueType, bool) {
	t := IssueType(strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(s)), "-", "_"))
	return t, t.Valid()
}
