package api

import "time"

// IssueResponse представление находки
type IssueResponse struct {
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Type        string    `json:"type"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Priority    string    `json:"priority"`
	Status      string    `json:"status"`
}

// IssueListResponse список находок
type IssueListResponse struct {
	Issues []IssueResponse `json:"issues"`
	Count  int             `json:"count"`
}

// CreateIssueRequest создание находки; priority и status необязательны
type CreateIssueRequest struct {
	Type        string `json:"type" validate:"required"`
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"required,max=10000"`
	Priority    string `json:"priority,omitempty"`
	Status      string `json:"status,omitempty"`
}

// UpdateIssueRequest частичное обновление; nil означает "не менять"
type UpdateIssueRequest struct {
	Type        *string `json:"type,omitempty"`
	Title       *string `json:"title,omitempty" validate:"omitempty,max=200"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=10000"`
	Priority    *string `json:"priority,omitempty"`
	Status      *string `json:"status,omitempty"`
}
