package models

import "time"

// RefreshToken представляет сохраненную запись refresh token.
// Сам секрет никогда не хранится, только его digest.
type RefreshToken struct {
	CreatedAt   time.Time  `json:"created_at"`   // время выдачи
	ExpiresAt   time.Time  `json:"expires_at"`   // время истечения
	RevokedAt   *time.Time `json:"revoked_at"`   // время отзыва (nil пока токен не отозван)
	ID          string     `json:"id"`           // ULID записи
	TokenDigest string     `json:"token_digest"` // SHA-256 (или HMAC-SHA256) digest секрета, hex
	UserID      string     `json:"user_id"`      // ID владельца
	UserAgent   string     `json:"user_agent"`   // User-Agent клиента, получившего токен
	OriginAddr  string     `json:"origin_addr"`  // адрес клиента при выдаче
}

// IsRevoked reports whether the token has been revoked.
func (t *RefreshToken) IsRevoked() bool {
	return t.RevokedAt != nil
}

// IsExpired reports whether the token is past its expiry at now.
func (t *RefreshToken) IsExpired(now time.Time) bool {
	return !t.ExpiresAt.After(now)
}

// Usable reports whether the token can still be exchanged for an access token.
func (t *RefreshToken) Usable(now time.Time) bool {
	return !t.IsRevoked() && !t.IsExpired(now)
}
