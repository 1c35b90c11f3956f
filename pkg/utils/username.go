package utils

import (
	"strings"

	"github.com/AnshRaj112/clipstream-backend/pkg/apperr"
)

// NormalizeUsername converts username to lowercase for storage and lookup.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// NormalizeEmail converts email to lowercase for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Field is a named input value checked by RequireFields.
type Field struct {
	Name  string
	Value string
}

// RequireFields returns one detail per blank field, in the order given.
func RequireFields(fields ...Field) []apperr.Detail {
	var missing []apperr.Detail
	for _, f := range fields {
		if strings.TrimSpace(f.Value) == "" {
			missing = append(missing, apperr.Detail{Field: f.Name, Message: f.Name + " is required"})
		}
	}
	return missing
}
