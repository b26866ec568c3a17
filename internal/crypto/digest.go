package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Digester вычисляет детерминированный digest refresh token для поиска в БД.
// Быстрый хеш достаточен: секрет имеет 512 бит энтропии.
type Digester struct {
	key []byte
}

// NewDigester создает Digester.
// Если key пустой, используется SHA-256, иначе HMAC-SHA256 с ключом.
func NewDigester(key []byte) *Digester {
	return &Digester{key: key}
}

// Digest возвращает hex-encoded digest секрета
func (d *Digester) Digest(secret string) string {
	if len(d.key) == 0 {
		sum := sha256.Sum256([]byte(secret))
		return hex.EncodeToString(sum[:])
	}

	m := hmac.New(sha256.New, d.key)
	_, _ = m.Write([]byte(secret))
	return hex.EncodeToString(m.Sum(nil))
}

// Keyed reports whether digests are HMAC-based.
func (d *Digester) Keyed() bool {
	return len(d.key) > 0
}
