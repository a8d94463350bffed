// Package validator runs struct-tag validation with go-playground/validator
// and reports the first failing field as an apperror validation error, named
// by its JSON key.
package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/articles-api/internal/apperror"
)

// Messenger lets a validated struct replace the default message for a
// field and tag. Returning "" keeps the default.
type Messenger interface {
	ValidationMessage(field, tag string) string
}

// Validator wraps a shared *validator.Validate; it caches struct metadata
// and is safe for concurrent use.
type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	validate := validator.New(validator.WithRequiredStructEnabled())

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// notblank: present and not only whitespace.
	_ = validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})

	return &Validator{validate: validate}
}

// Struct validates v. The error is an *apperror.AppError wrapping
// apperror.ErrValidation whose Field is the JSON name of the first field
// that failed.
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return fmt.Errorf("validator: %w", err)
	}

	fe := errs[0]
	field := fe.Field()
	if m, ok := s.(Messenger); ok {
		if msg := m.ValidationMessage(field, fe.Tag()); msg != "" {
			return apperror.ValidationFailed(field, msg)
		}
	}
	return apperror.ValidationFailed(field, message(field, fe))
}

// Var validates a single value against tag, reporting failures under field.
func (v *Validator) Var(field string, value any, tag string) error {
	err := v.validate.Var(value, tag)
	if err == nil {
		return nil
	}

	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return fmt.Errorf("validator: %w", err)
	}
	return apperror.ValidationFailed(field, message(field, errs[0]))
}

func message(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "notblank":
		return field + " is not allowed to be empty"
	case "email":
		return field + " must be a valid email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be %s characters or less", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	}
	return field + " is invalid"
}
