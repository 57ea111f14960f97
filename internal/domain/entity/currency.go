package entity

import (
	"strings"

	"github.com/damon-houk/forex-conversion-service/internal/domain/apperror"
)

// NormalizeCurrency trims and upper-cases a currency code and checks it is
// exactly three ASCII letters
func NormalizeCurrency(field, code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return "", apperror.NewValidationError(field, "currency code is required")
	}

	if len(code) != 3 {
		return "", apperror.NewValidationError(field, "must be a 3-letter currency code (e.g., USD)")
	}

	for i := 0; i < len(code); i++ {
		if code[i] < 'A' || code[i] > 'Z' {
			return "", apperror.NewValidationError(field, "must be a 3-letter currency code (e.g., USD)")
		}
	}

	return code, nil
}
