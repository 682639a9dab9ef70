package contact

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var ErrValidationFailed = errors.New("validation failed")

// Input is the contact form as submitted by a visitor.
type Input struct {
	Name     string `json:"name" validate:"min=2"`
	Email    string `json:"email" validate:"email"`
	Business string `json:"business"`
	Message  string `json:"message" validate:"min=10"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every failing field in form order.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidationFailed }

var fieldMessages = map[string]string{
	"name":    "Name must be at least 2 characters.",
	"email":   "Please enter a valid email address.",
	"message": "Message must be at least 10 characters.",
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks in against the form rules. Lengths count characters,
// not bytes.
func Validate(v *validator.Validate, in Input) error {
	err := v.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &ValidationError{}
	seen := map[string]bool{}
	for _, fe := range verrs {
		field := fe.Field()
		if seen[field] {
			continue
		}
		seen[field] = true
		msg, ok := fieldMessages[field]
		if !ok {
			msg = "Invalid value."
		}
		out.Fields = append(out.Fields, FieldError{Field: field, Message: msg})
	}
	return out
}
