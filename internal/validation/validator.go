// Package validation provides struct validation using go-playground/validator v10
// and maps failures onto field-keyed application errors.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"sync"

	"foodgram/internal/models"

	"github.com/go-playground/validator/v10"
)

// singleton validator instance
var (
	validate     *validator.Validate
	validateOnce sync.Once
)

var usernameRegex = regexp.MustCompile(`^[\w.@+-]+$`)

// ValidationError represents a single field validation error with structured information.
type ValidationError struct {
	field   string
	tag     string
	param   string
	message string
}

// Field returns the json path that failed validation, e.g. "ingredients[0].amount".
func (e *ValidationError) Field() string {
	return e.field
}

// Tag returns the validation tag that failed.
func (e *ValidationError) Tag() string {
	return e.tag
}

// Param returns the parameter for the validation tag (e.g., "100" for "max=100").
func (e *ValidationError) Param() string {
	return e.param
}

// Error returns a human-readable error message.
func (e *ValidationError) Error() string {
	return e.message
}

// RequestValidationError represents a collection of validation errors.
type RequestValidationError struct {
	errors []ValidationError
}

// Errors returns the slice of validation errors.
func (ve *RequestValidationError) Errors() []ValidationError {
	return ve.errors
}

// Error implements the error interface, returning a combined error message.
func (ve *RequestValidationError) Error() string {
	if len(ve.errors) == 0 {
		return "validation failed"
	}

	messages := make([]string, 0, len(ve.errors))
	for _, err := range ve.errors {
		messages = append(messages, fmt.Sprintf("%s: %s", err.field, err.message))
	}
	return strings.Join(messages, "; ")
}

// ToAppError converts validation errors to a VALIDATION_ERROR keyed by field path.
// Only the first failure per field is kept.
func (ve *RequestValidationError) ToAppError() *models.AppError {
	fields := make(map[string]string, len(ve.errors))
	for _, err := range ve.errors {
		if _, seen := fields[err.field]; !seen {
			fields[err.field] = err.message
		}
	}
	return models.NewFieldValidationError(fields)
}

// GetValidator returns the singleton validator instance.
// Field names are reported by their json tag.
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return fld.Name
			}
			return name
		})

		_ = validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		})
		_ = validate.RegisterValidation("username", func(fl validator.FieldLevel) bool {
			return usernameRegex.MatchString(fl.Field().String())
		})
	})

	return validate
}

// ValidateStruct validates a struct using the singleton validator.
// Returns nil if validation passes, or *RequestValidationError if validation fails.
func ValidateStruct(s interface{}) *RequestValidationError {
	err := GetValidator().Struct(s)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return &RequestValidationError{
			errors: []ValidationError{{field: "non_field_errors", tag: "unknown", message: err.Error()}},
		}
	}

	fieldErrors := make([]ValidationError, len(validationErrs))
	for i, fieldErr := range validationErrs {
		path := fieldPath(fieldErr.Namespace())
		fieldErrors[i] = ValidationError{
			field:   path,
			tag:     fieldErr.Tag(),
			param:   fieldErr.Param(),
			message: translateError(fieldErr),
		}
	}
	sort.SliceStable(fieldErrors, func(i, j int) bool { return fieldErrors[i].field < fieldErrors[j].field })

	return &RequestValidationError{errors: fieldErrors}
}

// Validate is ValidateStruct returning a plain error suitable for service code.
func Validate(s interface{}) error {
	if verr := ValidateStruct(s); verr != nil {
		return verr.ToAppError()
	}
	return nil
}

// fieldPath drops the top-level struct name from a validator namespace.
func fieldPath(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

// Field-specific overrides, keyed by "<field>.<tag>".
var fieldMessages = map[string]string{
	"cooking_time.min": "Минимальное время приготовления - 1 минута.",
	"cooking_time.gte": "Минимальное время приготовления - 1 минута.",
}

// translateError converts a validator.FieldError to a human-readable message.
func translateError(fe validator.FieldError) string {
	field := fe.Field()
	tag := fe.Tag()
	param := fe.Param()

	if msg, ok := fieldMessages[field+"."+tag]; ok {
		return msg
	}

	switch tag {
	case "required", "notblank":
		return RequiredMessage(field)
	case "email":
		return "Введите правильный адрес электронной почты."
	case "username":
		return "Введите правильное имя пользователя. Оно может содержать только буквы, цифры и знаки @/./+/-/_."
	case "hexcolor":
		return "Введите цвет в формате HEX."
	case "dive", "unique":
		return "Недопустимое значение."
	}

	return translateMinMax(fe, field, tag, param)
}

// translateMinMax handles min/max validation with type-specific messages.
// An empty list failing min=1 reads the same as a missing field.
func translateMinMax(fe validator.FieldError, field, tag, param string) string {
	kind := fe.Kind()
	isString := kind == reflect.String
	isList := kind == reflect.Slice || kind == reflect.Array

	switch tag {
	case "min", "gte":
		if isList || (isString && param == "1") {
			return RequiredMessage(field)
		}
		if isString {
			return fmt.Sprintf("Убедитесь, что это значение содержит не менее %s символов.", param)
		}
		return fmt.Sprintf("Убедитесь, что это значение больше либо равно %s.", param)
	case "max", "lte":
		if isString {
			return fmt.Sprintf("Убедитесь, что это значение содержит не более %s символов.", param)
		}
		if isList {
			return fmt.Sprintf("Убедитесь, что в списке не более %s элементов.", param)
		}
		return fmt.Sprintf("Убедитесь, что это значение меньше либо равно %s.", param)
	default:
		return "Недопустимое значение."
	}
}

// RequiredMessage is the message for a missing or empty field.
func RequiredMessage(field string) string {
	return fmt.Sprintf("Необходимо заполнить поле %s.", field)
}
