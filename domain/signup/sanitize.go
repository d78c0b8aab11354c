package signup

import (
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/unicode/norm"

	"github.com/akeren/waitlist-signup/internal/models"
)

// The entity set is part of the stored format.
var markupEscaper = strings.NewReplacer(
	"&", "&amp;",
	`"`, "&quot;",
	"'", "&#x27;",
	"<", "&lt;",
	">", "&gt;",
	"/", "&#x2F;",
	`\`, "&#x5C;",
	"`", "&#96;",
)

// Sanitize trims, NFC-normalizes and escapes markup characters.
func Sanitize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return markupEscaper.Replace(norm.NFC.String(s))
}

// NormalizeEmail is the duplicate-detection key: trimmed and lower-cased.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsAllowedRole reports whether role is one of the accepted roles, "" included.
func IsAllowedRole(role string) bool {
	return slices.Contains(models.AllowedRoles, role)
}

func validateSignupRole(fl validator.FieldLevel) bool {
	return IsAllowedRole(fl.Field().String())
}

// RegisterValidators adds the signup_role tag to v.
func RegisterValidators(v *validator.Validate) error {
	return v.RegisterValidation("signup_role", validateSignupRole)
}
