// Interface-specific error handling. The CLI handler formats AppErrors for
// terminal display; the HTTP handler maps error codes to status codes and
// writes the standard JSON error envelope.
package errors

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
)

// ErrorHandler provides interface-specific error handling
type ErrorHandler interface {
	HandleError(err error) error
	FormatError(err error) string
}

// CLIErrorHandler handles errors for CLI interface
type CLIErrorHandler struct {
	Verbose bool
}

// NewCLIErrorHandler creates a new CLI error handler
func NewCLIErrorHandler(verbose bool) *CLIErrorHandler {
	return &CLIErrorHandler{Verbose: verbose}
}

// HandleError handles errors for CLI interface
func (h *CLIErrorHandler) HandleError(err error) error {
	appErr := GetAppError(err)

	if h.Verbose {
		log.Printf("[%s] %s: %s", appErr.Severity, appErr.Code, appErr.Error())
		if appErr.Cause != nil {
			log.Printf("Caused by: %v", appErr.Cause)
		}
	}

	return fmt.Errorf("%s", h.FormatError(appErr))
}

// FormatError formats an error for CLI display
func (h *CLIErrorHandler) FormatError(err error) string {
	appErr := GetAppError(err)

	switch appErr.Severity {
	case SeverityCritical:
		return fmt.Sprintf("critical: %s", appErr.Message)
	case SeverityWarning:
		return appErr.Message
	default:
		return fmt.Sprintf("error: %s", appErr.Message)
	}
}

// HTTPErrorResponse is the JSON body written for failed API requests
type HTTPErrorResponse struct {
	Success bool      `json:"success"`
	Error   *AppError `json:"error"`
}

// HTTPStatusCode maps an error code to the HTTP status for API responses
func HTTPStatusCode(code ErrorCode) int {
	switch code {
	case ErrCodePromptNotFound, ErrCodeVersionNotFound, ErrCodeTagNotFound, ErrCodeCommandNotFound:
		return http.StatusNotFound
	case ErrCodeAlreadyInitialized, ErrCodeAmbiguousTag:
		return http.StatusConflict
	case ErrCodeInvalidInput, ErrCodeInvalidCommand:
		return http.StatusBadRequest
	case ErrCodeNotInitialized:
		return http.StatusPreconditionFailed
	case ErrCodeScorerUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// WriteHTTPError writes an AppError as a JSON response with the mapped status
func WriteHTTPError(w http.ResponseWriter, err error) {
	appErr := GetAppError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(HTTPStatusCode(appErr.Code))
	_ = json.NewEncoder(w).Encode(HTTPErrorResponse{Success: false, Error: appErr})
}
