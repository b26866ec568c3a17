// Package validation checks request payloads and domain values.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/iudanet/vulntracker/internal/models"
	"github.com/iudanet/vulntracker/internal/server/apperror"
)

const (
	// MinPasswordLen минимальная длина пароля
	MinPasswordLen = 8
	// MaxPasswordLen bcrypt учитывает только первые 72 байта
	MaxPasswordLen = 72
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func instance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// В ошибках используем имена полей из json тегов
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Struct проверяет структуру по validate тегам.
// Первая ошибка возвращается как *apperror.ValidationError.
func Struct(v any) error {
	err := instance().Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return apperror.NewValidationError(fe.Field(), reason(fe))
	}

	return apperror.NewValidationError("", err.Error())
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s characters long", fe.Param())
	case "max":
		return fmt.Sprintf("must not exceed %s characters", fe.Param())
	default:
		return fmt.Sprintf("failed %q check", fe.Tag())
	}
}

// ValidateEmail проверяет формат email
func ValidateEmail(email string) error {
	if email == "" {
		return apperror.NewValidationError("email", "is required")
	}
	if err := instance().Var(email, "email,max=254"); err != nil {
		return apperror.NewValidationError("email", "must be a valid email address")
	}
	return nil
}

// ValidatePassword проверяет требования к длине пароля
func ValidatePassword(password string) error {
	switch {
	case password == "":
		return apperror.NewValidationError("password", "is required")
	case len(password) < MinPasswordLen:
		return apperror.NewValidationError("password", fmt.Sprintf("must be at least %d characters long", MinPasswordLen))
	case len(password) > MaxPasswordLen:
		return apperror.NewValidationError("password", fmt.Sprintf("must not exceed %d characters", MaxPasswordLen))
	}
	return nil
}

// IssueType проверяет тип находки
func IssueType(s string) (models.IssueType, error) {
	t := models.IssueType(s)
	if !t.Valid() {
		return "", apperror.NewValidationError("type", "invalid issue type")
	}
	return t, nil
}

// IssuePriority проверяет приоритет; пустое значение дает MEDIUM
func IssuePriority(s string) (models.IssuePriority, error) {
	if s == "" {
		return models.IssuePriorityMedium, nil
	}
	p := models.IssuePriority(s)
	if !p.Valid() {
		return "", apperror.NewValidationError("priority", "invalid priority")
	}
	return p, nil
}

// IssueStatus проверяет статус; пустое значение дает OPEN
func IssueStatus(s string) (models.IssueStatus, error) {
	if s == "" {
		return models.IssueStatusOpen, nil
	}
	st := models.IssueStatus(s)
	if !st.Valid() {
		return "", apperror.NewValidationError("status", "invalid status")
	}
	return st, nil
}

// NonBlank проверяет, что строка не пуста после обрезки пробелов
func NonBlank(field, value string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", apperror.NewValidationError(field, "cannot be empty")
	}
	return trimmed, nil
}
