package crypto

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultPasswordCost work factor bcrypt по умолчанию
const DefaultPasswordCost = 10

// dummyHash используется для сравнения, когда пользователь не найден,
// чтобы время ответа не выдавало существование email
var dummyHash = []byte("$2a$10$7EqJtq98hPqEX7fNZaFWoOhi5BWX4Z1eNqE3lJq8yYbZ1Y3xH5y3u")

// ErrEmptyPassword возвращается при попытке захешировать пустой пароль
var ErrEmptyPassword = errors.New("password cannot be empty")

// HashPassword хеширует пароль с помощью bcrypt.
// cost вне допустимого диапазона bcrypt заменяется на DefaultPasswordCost.
func HashPassword(password string, cost int) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultPasswordCost
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	return string(hash), nil
}

// VerifyPassword проверяет пароль против сохраненного bcrypt хеша.
// Никогда не возвращает ошибку: несовпадение, пустой ввод или
// поврежденный хеш дают false. Сравнение constant-time внутри bcrypt.
func VerifyPassword(password, hash string) bool {
	if password == "" || hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// BurnPasswordCheck выполняет bcrypt сравнение с фиктивным хешем.
// Вызывается на ветке "пользователь не найден".
func BurnPasswordCheck(password string) {
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
}
