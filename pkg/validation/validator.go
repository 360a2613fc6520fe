package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/platinummonkey/pluma/pkg/apperr"
)

// Field limits
const (
	MaxTitleLength        = 200
	MaxCommentLength      = 1000
	MaxCategoryNameLength = 100
	MaxUserNameLength     = 100
	MaxRoleNameLength     = 50
	MaxKeywordLength      = 50
)

var (
	emailPattern    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	hexColorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)
)

// Validator collects field errors in check order
type Validator struct {
	errs []*apperr.ValidationError
}

// New creates an empty validator
func New() *Validator {
	return &Validator{}
}

func (v *Validator) add(field, format string, args ...interface{}) {
	v.errs = append(v.errs, &apperr.ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
}

// Required fails when value is blank
func (v *Validator) Required(field, value string) *Validator {
	if strings.TrimSpace(value) == "" {
		v.add(field, "is required")
	}
	return v
}

// MaxLength fails when value has more than max characters
func (v *Validator) MaxLength(field, value string, max int) *Validator {
	if utf8.RuneCountInString(value) > max {
		v.add(field, "must be at most %d characters", max)
	}
	return v
}

// Email fails when value is not an address
func (v *Validator) Email(field, value string) *Validator {
	if !IsEmail(value) {
		v.add(field, "is not a valid email address")
	}
	return v
}

// HexColor fails unless value is empty or #rrggbb
func (v *Validator) HexColor(field, value string) *Validator {
	if value != "" && !hexColorPattern.MatchString(value) {
		v.add(field, "must be a #rrggbb color")
	}
	return v
}

// Check fails with the given message when ok is false
func (v *Validator) Check(ok bool, field, format string, args ...interface{}) *Validator {
	if !ok {
		v.add(field, format, args...)
	}
	return v
}

// Errors returns every collected error
func (v *Validator) Errors() []*apperr.ValidationError {
	return v.errs
}

// Err returns the first collected error, or nil
func (v *Validator) Err() error {
	if len(v.errs) == 0 {
		return nil
	}
	return v.errs[0]
}

// IsEmail reports whether s looks like an email address
func IsEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// NormalizeEmail trims and lowercases an address
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
