package models

import "time"

// User представляет пользователя трекера
type User struct {
	CreatedAt    time.Time  `json:"created_at"`    // время создания
	UpdatedAt    time.Time  `json:"updated_at"`    // время последнего обновления
	LastLogin    *time.Time `json:"last_login"`    // время последнего входа (nil если не входил)
	ID           string     `json:"id"`            // UUID пользователя
	Email        string     `json:"email"`         // уникальный email
	PasswordHash string     `json:"-"`             // bcrypt хеш пароля, не сериализуется
}
