package models

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Error codes carried by AppError.
const (
	CodeValidation          = "VALIDATION_ERROR"
	CodeDuplicateIngredient = "DUPLICATE_INGREDIENT"
	CodeAlreadyInList       = "ALREADY_IN_LIST"
	CodeNotInList           = "NOT_IN_LIST"
	CodeSelfFollow          = "SELF_FOLLOW"
	CodeAlreadyFollowing    = "ALREADY_FOLLOWING"
	CodeNotFollowing        = "NOT_FOLLOWING"
	CodePermissionDenied    = "PERMISSION_DENIED"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeNotFound            = "NOT_FOUND"
	CodeInternal            = "INTERNAL_ERROR"
)

// User-facing messages.
const (
	MsgDuplicateIngredient = "Ингредиенты дублируются!"
	MsgAlreadyInList       = "Рецепт уже в списке."
	MsgNotInList           = "Рецепт не в списке."
	MsgSelfFollow          = "Необходимо передать id другого пользователя."
	MsgAlreadyFollowing    = "Вы уже подписаны на данного пользователя."
	MsgNotFollowing        = "Вы не подписаны на данного пользователя."
	MsgInvalidPage         = "Неверная страница."
)

// ErrorResponse represents a standardized API error response
type ErrorResponse struct {
	Errors  string            `json:"errors"`
	Code    string            `json:"code,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
	Details string            `json:"details,omitempty"`
}

// AppError represents a custom application error
type AppError struct {
	Code    string
	Message string
	// Fields holds per-field messages keyed by json path, e.g. "ingredients[0].amount".
	Fields map[string]string
	Err    error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Predefined error constructors
func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s with ID %v not found", resource, id),
	}
}

func NewValidationError(message string) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: message,
	}
}

// NewFieldValidationError builds a validation error from per-field messages.
// The first message in key order becomes the top-level message.
func NewFieldValidationError(fields map[string]string) *AppError {
	msg := "Invalid input"
	first := ""
	for k := range fields {
		if first == "" || k < first {
			first = k
		}
	}
	if first != "" {
		msg = fields[first]
	}
	return &AppError{
		Code:    CodeValidation,
		Message: msg,
		Fields:  fields,
	}
}

func NewDuplicateIngredientError() *AppError {
	return &AppError{
		Code:    CodeDuplicateIngredient,
		Message: MsgDuplicateIngredient,
		Fields:  map[string]string{"ingredients": MsgDuplicateIngredient},
	}
}

func NewPermissionDeniedError(message string) *AppError {
	return &AppError{
		Code:    CodePermissionDenied,
		Message: message,
	}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Code:    CodeUnauthorized,
		Message: message,
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: "Internal server error",
		Err:     err,
	}
}

func newCodedError(code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

func NewAlreadyInListError() *AppError { return newCodedError(CodeAlreadyInList, MsgAlreadyInList) }
func NewNotInListError() *AppError     { return newCodedError(CodeNotInList, MsgNotInList) }
func NewSelfFollowError() *AppError    { return newCodedError(CodeSelfFollow, MsgSelfFollow) }
func NewAlreadyFollowingError() *AppError {
	return newCodedError(CodeAlreadyFollowing, MsgAlreadyFollowing)
}
func NewNotFollowingError() *AppError { return newCodedError(CodeNotFollowing, MsgNotFollowing) }

// HTTPStatus maps an error to the status code it is reported with.
// Toggle conflicts are reported as 400, not 409/404.
func HTTPStatus(err error) int {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return fiber.StatusInternalServerError
	}
	switch appErr.Code {
	case CodeNotFound:
		return fiber.StatusNotFound
	case CodePermissionDenied:
		return fiber.StatusForbidden
	case CodeUnauthorized:
		return fiber.StatusUnauthorized
	case CodeInternal:
		return fiber.StatusInternalServerError
	default:
		return fiber.StatusBadRequest
	}
}

// RespondWithError creates a standardized error response
func RespondWithError(c *fiber.Ctx, status int, err error) error {
	var response ErrorResponse

	var appErr *AppError
	if errors.As(err, &appErr) {
		response = ErrorResponse{
			Errors: appErr.Message,
			Code:   appErr.Code,
			Fields: appErr.Fields,
		}
		if appErr.Err != nil && appErr.Code != CodeInternal {
			response.Details = appErr.Err.Error()
		}
	} else {
		response = ErrorResponse{
			Errors: err.Error(),
		}
	}

	return c.Status(status).JSON(response)
}

// RespondWithAppError writes err with the status HTTPStatus picks for it.
func RespondWithAppError(c *fiber.Ctx, err error) error {
	return RespondWithError(c, HTTPStatus(err), err)
}
