package crypto

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// RefreshSecretSize размер секрета refresh token в байтах (512 бит)
const RefreshSecretSize = 64

// GenerateRefreshSecret генерирует криптографически случайный секрет
// refresh token и возвращает его в hex (128 символов)
func GenerateRefreshSecret() (string, error) {
	buf := make([]byte, RefreshSecretSize)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate refresh secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
