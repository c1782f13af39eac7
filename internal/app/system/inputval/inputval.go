// Package inputval validates applicant submissions before anything is stored.
//
// Submissions arrive as form-encoded strings (multipart intake and self-service
// edits) or as JSON (administrative full-record updates, converted with
// ValuesFromJSON). Parsing normalizes the raw values:
//   - blank strings are treated as absent
//   - "true"/"false" become booleans; any other non-blank value is an error
//   - numeric fields become float64; non-numeric input is dropped
//   - dates accept YYYY-MM-DD or RFC 3339
//
// Validation then checks required fields, closed sets and formats, and reports
// the first failing field as a *FieldError.
package inputval

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/dalemusser/registryhub/internal/app/system/nationalid"
	"github.com/dalemusser/registryhub/internal/domain/models"
	"github.com/go-playground/validator/v10"
)

// FieldError names the submission field that failed validation.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return e.Message
}

// AsFieldError unwraps err into a *FieldError.
func AsFieldError(err error) (*FieldError, bool) {
	var fe *FieldError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// IsValidEmail reports whether s looks like local@domain.tld.
func IsValidEmail(s string) bool {
	return emailRe.MatchString(strings.TrimSpace(s))
}

// closedSets maps validation tags to the allowed values for that tag.
var closedSets = map[string][]string{
	"sex":                 models.Sexes,
	"affiliation":         models.Affiliations,
	"professional_status": models.ProfessionalStatuses,
	"education":           models.EducationLevels,
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	// Report errors with the form field name, not the Go field name.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := f.Tag.Get("form")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})

	_ = v.RegisterValidation("basic_email", func(fl validator.FieldLevel) bool {
		return IsValidEmail(fl.Field().String())
	})
	_ = v.RegisterValidation("national_id", func(fl validator.FieldLevel) bool {
		return nationalid.Valid(fl.Field().String())
	})
	for tag, allowed := range closedSets {
		allowed := allowed
		_ = v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return contains(allowed, fl.Field().String())
		})
	}
	return v
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Validate checks s and returns the first failing field as a *FieldError.
func Validate(s *Submission) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	return toFieldError(verrs[0])
}

func toFieldError(fe validator.FieldError) *FieldError {
	field := fe.Field()
	var msg string
	switch fe.Tag() {
	case "required":
		msg = fmt.Sprintf("%s is required", field)
	case "required_if":
		msg = fmt.Sprintf("%s is required when %s", field, describeRequiredIf(fe.Param()))
	case "basic_email":
		msg = fmt.Sprintf("%s must be a valid email address", field)
	case "national_id":
		msg = fmt.Sprintf("%s must contain %d digits", field, nationalid.Length)
	case "gte":
		msg = fmt.Sprintf("%s must not be negative", field)
	default:
		if allowed, ok := closedSets[fe.Tag()]; ok {
			msg = fmt.Sprintf("%s must be one of: %s", field, strings.Join(allowed, ", "))
		} else {
			msg = fmt.Sprintf("%s is invalid", field)
		}
	}
	return &FieldError{Field: field, Message: msg}
}

// describeRequiredIf turns "Affiliation Outros" into "affiliation is Outros".
func describeRequiredIf(param string) string {
	parts := strings.SplitN(param, " ", 2)
	if len(parts) != 2 {
		return param
	}
	return fmt.Sprintf("%s is %s", toSnake(parts[0]), parts[1])
}

func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
