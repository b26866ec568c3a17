package api

import "time"

// RegisterRequest представляет запрос на регистрацию нового пользователя
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=72"` // bcrypt учитывает не больше 72 байт
}

// RegisterResponse представляет ответ на успешную регистрацию
type RegisterResponse struct {
	CreatedAt time.Time `json:"createdAt"`
	ID        string    `json:"id"` // UUID пользователя
	Email     string    `json:"email"`
}

// LoginRequest представляет запрос на аутентификацию
type LoginRequest struct {
	Email    string `json:"email" validate:"required,max=254"`
	Password string `json:"password" validate:"required,max=72"`
}

// RefreshRequest представляет запрос на обновление access token.
// Если тело пустое, токен берется из cookie.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// LogoutRequest представляет запрос на выход
type LogoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// TokenResponse представляет ответ с токенами доступа
type TokenResponse struct {
	AccessToken  string `json:"accessToken"`            // JWT access token
	RefreshToken string `json:"refreshToken,omitempty"` // пуст при обновлении без ротации
	ExpiresIn    int64  `json:"expiresIn"`              // время жизни access token в секундах
}

// MessageResponse представляет ответ с сообщением
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse представляет ответ с ошибкой
type ErrorResponse struct {
	Error   string `json:"error"`             // описание ошибки
	Message string `json:"message,omitempty"` // дополнительное сообщение
}

// RateLimitResponse тело ответа 429
type RateLimitResponse struct {
	Error      string `json:"error"`
	RetryAfter int    `json:"retryAfter"` // секунды до сброса окна
}

// HealthResponse ответ проверки здоровья
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}
