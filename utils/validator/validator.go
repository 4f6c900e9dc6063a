package validator

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"canteen/internal/domain"
)

// Validator wraps the go-playground validator with the canteen rules. It
// satisfies echo.Validator.
type Validator struct {
	validator *validator.Validate
}

// New creates a new validator instance with custom rules
func New() *Validator {
	validate := validator.New(validator.WithRequiredStructEnabled())

	registerCustomValidators(validate)

	// Use JSON field names for validation error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Validator{validator: validate}
}

// Validate validates a struct and returns a *ValidationError on failure.
func (v *Validator) Validate(i any) error {
	err := v.validator.Struct(i)
	if err == nil {
		return nil
	}
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	return NewValidationError(errs)
}

// ValidationError carries one user-facing message per invalid field.
type ValidationError struct {
	Errors map[string]string `json:"errors"`
}

// Error lists the messages in field order.
func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Errors))
	for field := range e.Errors {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	messages := make([]string, len(fields))
	for i, field := range fields {
		messages[i] = e.Errors[field]
	}
	return "validation failed: " + strings.Join(messages, ", ")
}

// Unwrap lets callers match validation failures as domain.ErrInvalidInput.
func (e *ValidationError) Unwrap() error {
	return domain.ErrInvalidInput
}

// NewValidationError creates a ValidationError from validator.ValidationErrors
func NewValidationError(errs validator.ValidationErrors) *ValidationError {
	out := make(map[string]string, len(errs))

	for _, err := range errs {
		field := err.Field()
		switch err.Tag() {
		case "required":
			out[field] = fmt.Sprintf("%s is required", field)
		case "email":
			out[field] = fmt.Sprintf("%s must be a valid email address", field)
		case "min":
			out[field] = fmt.Sprintf("%s must be at least %s characters long", field, err.Param())
		case "max":
			out[field] = fmt.Sprintf("%s must be at most %s characters long", field, err.Param())
		case "gte":
			out[field] = fmt.Sprintf("%s must be at least %s", field, err.Param())
		case "url":
			out[field] = fmt.Sprintf("%s must be a valid URL", field)
		case "order_status":
			out[field] = fmt.Sprintf("%s must be one of Pending, In Progress, Complete", field)
		case "nonzero_delta":
			out[field] = fmt.Sprintf("%s must not be zero", field)
		default:
			out[field] = fmt.Sprintf("%s is invalid", field)
		}
	}

	return &ValidationError{Errors: out}
}

func registerCustomValidators(validate *validator.Validate) {
	_ = validate.RegisterValidation("order_status", func(fl validator.FieldLevel) bool {
		_, err := domain.ParseOrderStatus(fl.Field().String())
		return err == nil
	})

	_ = validate.RegisterValidation("nonzero_delta", func(fl validator.FieldLevel) bool {
		return fl.Field().Int() != 0
	})
}
