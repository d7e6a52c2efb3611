// Package errors provides unified error handling across the promptdiff system.
//
// Business logic returns structured AppErrors carrying a standardized code,
// severity, and category. Interface layers (CLI, HTTP, TUI) format them via
// the handlers in handlers.go. Structural errors (missing prompt, missing
// version, uninitialized store, storage failure) abort the calling operation;
// degradable errors (scorer unavailable, per-case evaluation failure) are
// absorbed by their callers with a recorded indicator so partial results
// remain usable.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode represents standardized error codes
type ErrorCode string

const (
	// Store lifecycle errors
	ErrCodeNotInitialized     ErrorCode = "NOT_INITIALIZED"
	ErrCodeAlreadyInitialized ErrorCode = "ALREADY_INITIALIZED"

	// Lookup errors
	ErrCodePromptNotFound  ErrorCode = "PROMPT_NOT_FOUND"
	ErrCodeVersionNotFound ErrorCode = "VERSION_NOT_FOUND"
	ErrCodeTagNotFound     ErrorCode = "TAG_NOT_FOUND"
	ErrCodeAmbiguousTag    ErrorCode = "AMBIGUOUS_TAG"

	// Storage errors
	ErrCodeStorageFailure ErrorCode = "STORAGE_FAILURE"
	ErrCodeMetaCorrupted  ErrorCode = "META_CORRUPTED"

	// Degradable errors
	ErrCodeScorerUnavailable ErrorCode = "SCORER_UNAVAILABLE"
	ErrCodeEvalCaseFailed    ErrorCode = "EVAL_CASE_FAILED"

	// Input and command errors
	ErrCodeInvalidInput    ErrorCode = "INVALID_INPUT"
	ErrCodeCommandNotFound ErrorCode = "COMMAND_NOT_FOUND"
	ErrCodeInvalidCommand  ErrorCode = "INVALID_COMMAND"

	// Service errors
	ErrCodeInternalError ErrorCode = "INTERNAL_ERROR"
	ErrCodeGitFailure    ErrorCode = "GIT_FAILURE"
)

// ErrorSeverity represents the severity level of an error
type ErrorSeverity string

const (
	SeverityInfo     ErrorSeverity = "info"
	SeverityWarning  ErrorSeverity = "warning"
	SeverityError    ErrorSeverity = "error"
	SeverityCritical ErrorSeverity = "critical"
)

// ErrorCategory represents the category of an error
type ErrorCategory string

const (
	CategoryStore      ErrorCategory = "store"
	CategoryLookup     ErrorCategory = "lookup"
	CategoryStorage    ErrorCategory = "storage"
	CategoryScoring    ErrorCategory = "scoring"
	CategoryEvaluation ErrorCategory = "evaluation"
	CategoryValidation ErrorCategory = "validation"
	CategoryCommand    ErrorCategory = "command"
	CategoryGit        ErrorCategory = "git"
	CategorySystem     ErrorCategory = "system"
)

// AppError represents a standardized application error
type AppError struct {
	Code       ErrorCode              `json:"code"`
	Message    string                 `json:"message"`
	Details    string                 `json:"details,omitempty"`
	Severity   ErrorSeverity          `json:"severity"`
	Category   ErrorCategory          `json:"category"`
	Cause      error                  `json:"-"`
	Context    map[string]interface{} `json:"context,omitempty"`
	Timestamp  time.Time              `json:"timestamp"`
	Degradable bool                   `json:"degradable"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// IsDegradable reports whether callers may absorb this error and continue
// with a partial result.
func (e *AppError) IsDegradable() bool {
	return e.Degradable
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithDetails adds details to the error
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// NewAppError creates a new application error
func NewAppError(code ErrorCode, message string) *AppError {
	category, severity := categorizeError(code)
	return &AppError{
		Code:       code,
		Message:    message,
		Severity:   severity,
		Category:   category,
		Timestamp:  time.Now(),
		Degradable: isDegradable(code),
	}
}

// Wrap wraps an existing error with application error context
func Wrap(err error, code ErrorCode, message string) *AppError {
	category, severity := categorizeError(code)
	return &AppError{
		Code:       code,
		Message:    message,
		Severity:   severity,
		Category:   category,
		Cause:      err,
		Timestamp:  time.Now(),
		Degradable: isDegradable(code),
	}
}

// categorizeError determines the category and severity based on error code
func categorizeError(code ErrorCode) (ErrorCategory, ErrorSeverity) {
	switch code {
	case ErrCodeNotInitialized, ErrCodeAlreadyInitialized:
		return CategoryStore, SeverityWarning

	case ErrCodePromptNotFound, ErrCodeVersionNotFound, ErrCodeTagNotFound:
		return CategoryLookup, SeverityInfo
	case ErrCodeAmbiguousTag:
		return CategoryLookup, SeverityWarning

	case ErrCodeStorageFailure:
		return CategoryStorage, SeverityError
	case ErrCodeMetaCorrupted:
		return CategoryStorage, SeverityCritical

	case ErrCodeScorerUnavailable:
		return CategoryScoring, SeverityWarning
	case ErrCodeEvalCaseFailed:
		return CategoryEvaluation, SeverityWarning

	case ErrCodeInvalidInput:
		return CategoryValidation, SeverityWarning

	case ErrCodeCommandNotFound:
		return CategoryCommand, SeverityInfo
	case ErrCodeInvalidCommand:
		return CategoryCommand, SeverityError

	case ErrCodeGitFailure:
		return CategoryGit, SeverityError
	case ErrCodeInternalError:
		return CategorySystem, SeverityCritical

	default:
		return CategorySystem, SeverityError
	}
}

// isDegradable determines if callers may continue past an error code
func isDegradable(code ErrorCode) bool {
	switch code {
	case ErrCodeScorerUnavailable, ErrCodeEvalCaseFailed:
		return true
	default:
		return false
	}
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError extracts an AppError from an error, or converts it to one
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Wrap(err, ErrCodeInternalError, "Internal error occurred")
}

// HasCode reports whether err carries the given error code.
func HasCode(err error, code ErrorCode) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// Common error constructors for frequently used errors

func NotInitializedError(root string) *AppError {
	return NewAppError(ErrCodeNotInitialized,
		fmt.Sprintf("no promptdiff store at %s; run 'promptdiff init' first", root))
}

func AlreadyInitializedError(root string) *AppError {
	return NewAppError(ErrCodeAlreadyInitialized,
		fmt.Sprintf("promptdiff store already initialized at %s", root))
}

func PromptNotFoundError(name string) *AppError {
	return NewAppError(ErrCodePromptNotFound, fmt.Sprintf("prompt '%s' not found", name))
}

func VersionNotFoundError(name string, version int) *AppError {
	return NewAppError(ErrCodeVersionNotFound,
		fmt.Sprintf("version %d of '%s' not found", version, name))
}

func TagNotFoundError(name, tag string) *AppError {
	return NewAppError(ErrCodeTagNotFound,
		fmt.Sprintf("tag '%s' not found on prompt '%s'", tag, name))
}

func AmbiguousTagError(name, tag string, versions []int) *AppError {
	return NewAppError(ErrCodeAmbiguousTag,
		fmt.Sprintf("tag '%s' is used by multiple versions of '%s'", tag, name)).
		WithContext("versions", versions)
}

func StorageError(operation string, err error) *AppError {
	return Wrap(err, ErrCodeStorageFailure, fmt.Sprintf("storage operation failed: %s", operation))
}

func ScorerUnavailableError(scorer string, err error) *AppError {
	return Wrap(err, ErrCodeScorerUnavailable,
		fmt.Sprintf("similarity scorer '%s' unavailable", scorer))
}

func ValidationError(message string) *AppError {
	return NewAppError(ErrCodeInvalidInput, message)
}

func InternalError(message string) *AppError {
	return NewAppError(ErrCodeInternalError, message)
}

func GitError(operation string, err error) *AppError {
	return Wrap(err, ErrCodeGitFailure, fmt.Sprintf("git operation failed: %s", operation))
}

func CommandNotFoundError(command string) *AppError {
	return NewAppError(ErrCodeCommandNotFound, fmt.Sprintf("command '%s' not found", command))
}

func InvalidCommandError(command string, reason string) *AppError {
	return NewAppError(ErrCodeInvalidCommand, fmt.Sprintf("invalid command '%s': %s", command, reason))
}
