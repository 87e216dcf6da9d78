// Package validation provides custom validation rules for the application.
package validation

import (
	"regexp"
	"strings"
	"unicode/utf8"

	validation "github.com/jellydator/validation"

	apperrors "github.com/allisson/secretsgroup/internal/errors"
)

var (
	// identifierRegex matches secret identifiers and group names.
	identifierRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._/-]*$`)

	// regionRegex matches cloud-style region names such as "us-east-1" or "local".
	regionRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)
)

// WrapValidationError wraps validation errors as domain ErrInvalidInput
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

// Identifier validates secret identifiers and group names.
var Identifier = validation.NewStringRuleWithError(
	func(s string) bool {
		return identifierRegex.MatchString(s)
	},
	validation.NewError(
		"validation_identifier",
		"must start with a letter or digit and contain only letters, digits, '.', '_', '/' or '-'",
	),
)

// Region validates secrets group regions.
var Region = validation.NewStringRuleWithError(
	func(s string) bool {
		return regionRegex.MatchString(s)
	},
	validation.NewError("validation_region", "must contain only lowercase letters, digits or '-'"),
)

// UTF8 validates that a string is valid UTF-8 text.
var UTF8 = validation.NewStringRuleWithError(
	utf8.ValidString,
	validation.NewError("validation_utf8", "must be valid UTF-8"),
)

// NoWhitespace validates that string doesn't contain leading/trailing whitespace
var NoWhitespace = validation.NewStringRuleWithError(
	func(s string) bool {
		return s == strings.TrimSpace(s)
	},
	validation.NewError("validation_no_whitespace", "must not contain leading or trailing whitespace"),
)

// NotBlank validates that a string is not empty after trimming whitespace
var NotBlank = validation.NewStringRuleWithError(
	func(s string) bool {
		return strings.TrimSpace(s) != ""
	},
	validation.NewError("validation_not_blank", "must not be blank"),
)
