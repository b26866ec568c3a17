package api

import "time"

// ProfileResponse профиль текущего пользователя
type ProfileResponse struct {
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	LastLogin *time.Time `json:"lastLogin,omitempty"`
	ID        string     `json:"id"`
	Email     string     `json:"email"`
}

// UpdateProfileRequest изменение email и/или пароля
type UpdateProfileRequest struct {
	Email    *string `json:"email,omitempty" validate:"omitempty,email,max=254"`
	Password *string `json:"password,omitempty" validate:"omitempty,min=8,max=72"`
}

// SessionResponse активный refresh token пользователя (без секрета)
type SessionResponse struct {
	CreatedAt  time.Time  `json:"createdAt"`
	ExpiresAt  time.Time  `json:"expiresAt"`
	RevokedAt  *time.Time `json:"revokedAt,omitempty"`
	ID         string     `json:"id"`
	UserAgent  string     `json:"userAgent"`
	OriginAddr string     `json:"originAddr"`
}

// SessionListResponse список сессий пользователя
type SessionListResponse struct {
	Sessions []SessionResponse `json:"sessions"`
	Count    int               `json:"count"`
}

// RevokeSessionsResponse результат отзыва всех сессий
type RevokeSessionsResponse struct {
	Revoked int `json:"revoked"`
}
