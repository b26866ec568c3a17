// Package jwt issues and verifies short-lived HS256 access tokens.
package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iudanet/vulntracker/internal/server/apperror"
)

// DefaultTTL время жизни access token по умолчанию
const DefaultTTL = time.Hour

// Config содержит конфигурацию кодека
type Config struct {
	Secret []byte
	Issuer string
	TTL    time.Duration
}

// Claims represents access token claims
type Claims struct {
	jwt.RegisteredClaims
}

// UserID возвращает subject токена
func (c *Claims) UserID() string {
	return c.Subject
}

// Codec encodes and decodes access tokens. It holds the signing secret;
// rotating the secret invalidates all outstanding tokens.
type Codec struct {
	now    func() time.Time
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewCodec creates a new Codec
func NewCodec(cfg Config) (*Codec, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("jwt secret is required")
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &Codec{
		now:    time.Now,
		secret: cfg.Secret,
		issuer: cfg.Issuer,
		ttl:    ttl,
	}, nil
}

// WithClock подменяет источник времени (для тестов)
func (c *Codec) WithClock(now func() time.Time) *Codec {
	c.now = now
	return c
}

// TTL returns access token lifetime
func (c *Codec) TTL() time.Duration {
	return c.ttl
}

// Encode создает подписанный access token для subject
func (c *Codec) Encode(subject string) (string, time.Time, error) {
	if subject == "" {
		return "", time.Time{}, errors.New("subject is required")
	}

	// NumericDate хранит секунды, поэтому время усекается заранее
	now := c.now().Truncate(time.Second)
	expiresAt := now.Add(c.ttl)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, expiresAt, nil
}

// Decode проверяет подпись, структуру и срок действия токена.
// Любая ошибка оборачивает apperror.ErrInvalidToken.
// Токен считается истекшим, когда now >= exp.
func (c *Codec) Decode(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	}
	if c.issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.issuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		// Проверяем что используется правильный алгоритм подписи
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return c.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperror.ErrInvalidToken, err)
	}

	if !token.Valid || claims.Subject == "" {
		return nil, apperror.ErrInvalidToken
	}

	return claims, nil
}
