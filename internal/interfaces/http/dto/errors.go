package dto

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
)

// API error codes. Domain error codes are normalized into this set before
// they leave the server, so clients see a single stable vocabulary.
const (
	ErrCodeValidation       = "ERR_VALIDATION"
	ErrCodeNotFound         = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists    = "ERR_ALREADY_EXISTS"
	ErrCodeInvalidState     = "ERR_INVALID_STATE"
	ErrCodeUnauthorized     = "ERR_UNAUTHORIZED"
	ErrCodeForbidden        = "ERR_FORBIDDEN"
	ErrCodeConflict         = "ERR_CONFLICT"
	ErrCodeBatchTooLarge    = "ERR_BATCH_TOO_LARGE"
	ErrCodeAgentUnavailable = "ERR_AGENT_UNAVAILABLE"
	ErrCodeAgentRejected    = "ERR_AGENT_REJECTED"
	ErrCodeCircuitOpen      = "ERR_CIRCUIT_OPEN"
	ErrCodeInternal         = "ERR_INTERNAL"
)

// errorCodeHTTPStatus maps API error codes to HTTP status codes.
var errorCodeHTTPStatus = map[string]int{
	ErrCodeValidation:       http.StatusBadRequest,
	ErrCodeNotFound:         http.StatusNotFound,
	ErrCodeAlreadyExists:    http.StatusConflict,
	ErrCodeInvalidState:     http.StatusUnprocessableEntity,
	ErrCodeUnauthorized:     http.StatusUnauthorized,
	ErrCodeForbidden:        http.StatusForbidden,
	ErrCodeConflict:         http.StatusConflict,
	ErrCodeBatchTooLarge:    http.StatusRequestEntityTooLarge,
	ErrCodeAgentUnavailable: http.StatusBadGateway,
	ErrCodeAgentRejected:    http.StatusUnprocessableEntity,
	ErrCodeCircuitOpen:      http.StatusServiceUnavailable,
	ErrCodeInternal:         http.StatusInternalServerError,
}

// domainCodeMapping translates domain error codes to API error codes.
var domainCodeMapping = map[string]string{
	"NOT_FOUND":             ErrCodeNotFound,
	"MAPPING_NOT_FOUND":     ErrCodeNotFound,
	"AGENT_NOT_FOUND":       ErrCodeNotFound,
	"JOB_NOT_FOUND":         ErrCodeNotFound,
	"ORDER_NOT_FOUND":       ErrCodeNotFound,
	"DEAD_LETTER_NOT_FOUND": ErrCodeNotFound,
	"DEAD_LETTER_CLOSED":    ErrCodeInvalidState,
	"ALREADY_EXISTS":        ErrCodeAlreadyExists,
	"INVALID_INPUT":         ErrCodeValidation,
	"INVALID_STATE":         ErrCodeInvalidState,
	"UNAUTHORIZED":          ErrCodeUnauthorized,
	"FORBIDDEN":             ErrCodeForbidden,
	"CONCURRENCY_CONFLICT":  ErrCodeConflict,
	"AGENT_UNAVAILABLE":     ErrCodeAgentUnavailable,
	"AGENT_REJECTED":        ErrCodeAgentRejected,
	"CIRCUIT_OPEN":          ErrCodeCircuitOpen,
	"BATCH_TOO_LARGE":       ErrCodeBatchTooLarge,
}

// NormalizeErrorCode converts a domain error code into its API error code.
// Unknown codes fall through to ERR_INTERNAL so nothing leaks unnamed.
func NormalizeErrorCode(code string) string {
	if normalized, ok := domainCodeMapping[code]; ok {
		return normalized
	}
	if _, ok := errorCodeHTTPStatus[code]; ok {
		return code
	}
	return ErrCodeInternal
}

// GetHTTPStatus returns the HTTP status code for an API error code.
func GetHTTPStatus(code string) int {
	if status, ok := errorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// ExtractValidationDetails converts binding errors into field-level details.
// Non-validator errors produce a single generic detail.
func ExtractValidationDetails(err error) []ValidationDetail {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []ValidationDetail{{Field: "body", Message: err.Error()}}
	}
	details := make([]ValidationDetail, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, ValidationDetail{
			Field:   fe.Field(),
			Message: validationMessage(fe),
		})
	}
	return details
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "url":
		return "must be a valid URL"
	case "uuid":
		return "must be a valid UUID"
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
