package dto

import "net/http"

// General error codes
const (
	ErrCodeInternal   = "INTERNAL_ERROR"
	ErrCodeBadRequest = "BAD_REQUEST"
	ErrCodeValidation = "VALIDATION_ERROR"
)

// ErrorCodeHTTPStatus maps domain error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:   http.StatusInternalServerError,
	ErrCodeBadRequest: http.StatusBadRequest,
	ErrCodeValidation: http.StatusBadRequest,

	"NOT_FOUND":     http.StatusNotFound,
	"INVALID_INPUT": http.StatusBadRequest,

	// Module lifecycle
	"PLAN_REQUIRED":            http.StatusPaymentRequired,
	"MISSING_DEPENDENCY":       http.StatusUnprocessableEntity,
	"INCOMPATIBLE_MODULE":      http.StatusConflict,
	"CORE_MODULE_PROTECTED":    http.StatusUnprocessableEntity,
	"DEPENDENT_MODULES_ACTIVE": http.StatusConflict,

	// Entity registry
	"UNKNOWN_ENTITY":   http.StatusNotFound,
	"ACTION_NOT_FOUND": http.StatusNotFound,
	"HANDLER_FAILURE":  http.StatusInternalServerError,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Returns 500 Internal Server Error if the error code is not found.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
