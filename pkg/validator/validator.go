// Package validator wraps go-playground/validator with the storefront's
// custom rules (Brazilian postal code, CPF tax id, loose e-mail check) and
// field-level error rendering keyed by JSON field name.
package validator

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/utafrali/rxstore/pkg/errors"
)

var (
	validate = newValidate()

	looseEmail = regexp.MustCompile(`\S+@\S+\.\S+`)
)

func newValidate() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	mustRegister(v, "cep", func(fl validator.FieldLevel) bool {
		return len(Digits(fl.Field().String())) == 8
	})
	mustRegister(v, "cpf", func(fl validator.FieldLevel) bool {
		return len(Digits(fl.Field().String())) == 11
	})
	mustRegister(v, "loosemail", func(fl validator.FieldLevel) bool {
		return looseEmail.MatchString(fl.Field().String())
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register validation %q: %v", tag, err))
	}
}

// Digits strips every non-digit rune from s.
func Digits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Validate checks s against its `validate` tags. A field may carry a
// `message` tag that replaces the generic text for any failed rule.
func Validate(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	root := reflect.TypeOf(s)
	out := &ValidationError{Errors: fieldErrs, messages: make(map[string]string, len(fieldErrs))}
	for _, fe := range fieldErrs {
		if msg := customMessage(root, fe.StructNamespace()); msg != "" {
			out.messages[fe.Field()] = msg
		}
	}
	return out
}

// ValidationError is returned by Validate when one or more fields fail.
type ValidationError struct {
	Errors   validator.ValidationErrors
	messages map[string]string
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		msgs = append(msgs, fmt.Sprintf("field '%s' %s", fe.Field(), e.message(fe)))
	}
	return strings.Join(msgs, "; ")
}

// Is lets callers treat a ValidationError as apperrors.ErrInvalidInput.
func (e *ValidationError) Is(target error) bool {
	return target == apperrors.ErrInvalidInput
}

// Fields maps each failing JSON field name to its message.
func (e *ValidationError) Fields() map[string]string {
	fields := make(map[string]string, len(e.Errors))
	for _, fe := range e.Errors {
		fields[fe.Field()] = e.message(fe)
	}
	return fields
}

func (e *ValidationError) message(fe validator.FieldError) string {
	if msg, ok := e.messages[fe.Field()]; ok {
		return msg
	}
	return msgForTag(fe)
}

func msgForTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email", "loosemail":
		return "must be a valid email address"
	case "cep":
		return "must have 8 digits"
	case "cpf":
		return "must have 11 digits"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", fe.Param())
	case "uuid":
		return "must be a valid UUID"
	case "url":
		return "must be a valid URL"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	default:
		return fmt.Sprintf("failed on '%s' validation", fe.Tag())
	}
}

// customMessage resolves the `message` tag of the field addressed by ns
// ("Type.Field.Sub"), or "" when there is none.
func customMessage(t reflect.Type, ns string) string {
	parts := strings.Split(ns, ".")
	if len(parts) < 2 {
		return ""
	}
	var field reflect.StructField
	for _, name := range parts[1:] {
		for t.Kind() == reflect.Pointer || t.Kind() == reflect.Slice {
			t = t.Elem()
		}
		if t.Kind() != reflect.Struct {
			return ""
		}
		if i := strings.IndexByte(name, '['); i >= 0 {
			name = name[:i]
		}
		f, ok := t.FieldByName(name)
		if !ok {
			return ""
		}
		field = f
		t = f.Type
	}
	return field.Tag.Get("message")
}

// DecodeAndValidate decodes the JSON request body into dst and validates it.
// A malformed body is reported as invalid input.
func DecodeAndValidate(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		appErr := apperrors.InvalidInput("invalid request body")
		appErr.Err = errors.Join(apperrors.ErrInvalidInput, fmt.Errorf("decode request body: %w", err))
		return appErr
	}
	return Validate(dst)
}
