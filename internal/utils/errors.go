package utils

import (
	"errors"
	"fmt"

	"github.com/dl-alexandre/gdsync/internal/types"
)

// Exit codes
const (
	ExitSuccess = 0
	// Auth errors (10-19)
	ExitAuthRequired = 10
	ExitAuthExpired  = 11
	// File operation errors (20-29)
	ExitFileNotFound     = 20
	ExitPermissionDenied = 21
	ExitQuotaExceeded    = 22
	ExitPartialReplace   = 26
	// Network errors (30-39)
	ExitNetworkError      = 30
	ExitTimeout           = 31
	ExitRateLimited       = 32
	ExitRemoteUnavailable = 34
	// Validation errors (40-49)
	ExitInvalidArgument = 40
	ExitInvalidPath     = 41
	// Unknown
	ExitUnknown = 99
)

// Error codes (tool-owned, stable)
const (
	ErrCodeAuthRequired          = "AUTH_REQUIRED"
	ErrCodeAuthExpired           = "AUTH_EXPIRED"
	ErrCodeFileNotFound          = "FILE_NOT_FOUND"
	ErrCodePermissionDenied      = "PERMISSION_DENIED"
	ErrCodeQuotaExceeded         = "QUOTA_EXCEEDED"
	ErrCodeNetworkError          = "NETWORK_ERROR"
	ErrCodeRemoteUnavailable     = "REMOTE_UNAVAILABLE"
	ErrCodeTimeout               = "TIMEOUT"
	ErrCodeRateLimited           = "RATE_LIMITED"
	ErrCodePartialReplaceFailure = "PARTIAL_REPLACE_FAILURE"
	ErrCodeInvalidArgument       = "INVALID_ARGUMENT"
	ErrCodeInvalidPath           = "INVALID_PATH"
	ErrCodeCancelled             = "CANCELLED"
	ErrCodeInternalError         = "INTERNAL_ERROR"
	ErrCodeUnknown               = "UNKNOWN"
)

// CLIErrorBuilder helps construct CLIError instances
type CLIErrorBuilder struct {
	err types.CLIError
}

// NewCLIError creates a new error builder
func NewCLIError(code, message string) *CLIErrorBuilder {
	return &CLIErrorBuilder{
		err: types.CLIError{
			Code:    code,
			Message: message,
		},
	}
}

func (b *CLIErrorBuilder) WithHTTPStatus(status int) *CLIErrorBuilder {
	b.err.HTTPStatus = status
	return b
}

func (b *CLIErrorBuilder) WithDriveReason(reason string) *CLIErrorBuilder {
	b.err.DriveReason = reason
	return b
}

func (b *CLIErrorBuilder) WithRetryable(retryable bool) *CLIErrorBuilder {
	b.err.Retryable = retryable
	return b
}

func (b *CLIErrorBuilder) WithContext(key string, value interface{}) *CLIErrorBuilder {
	if b.err.Context == nil {
		b.err.Context = make(map[string]interface{})
	}
	b.err.Context[key] = value
	return b
}

func (b *CLIErrorBuilder) Build() types.CLIError {
	return b.err
}

// GetExitCode returns the exit code for an error code
func GetExitCode(errorCode string) int {
	mapping := map[string]int{
		ErrCodeAuthRequired:          ExitAuthRequired,
		ErrCodeAuthExpired:           ExitAuthExpired,
		ErrCodeFileNotFound:          ExitFileNotFound,
		ErrCodePermissionDenied:      ExitPermissionDenied,
		ErrCodeQuotaExceeded:         ExitQuotaExceeded,
		ErrCodePartialReplaceFailure: ExitPartialReplace,
		ErrCodeNetworkError:          ExitNetworkError,
		ErrCodeRemoteUnavailable:     ExitRemoteUnavailable,
		ErrCodeTimeout:               ExitTimeout,
		ErrCodeRateLimited:           ExitRateLimited,
		ErrCodeInvalidArgument:       ExitInvalidArgument,
		ErrCodeInvalidPath:           ExitInvalidPath,
	}
	if code, ok := mapping[errorCode]; ok {
		return code
	}
	return ExitUnknown
}

// AppError is a custom error type that carries CLI error info.
// Cause, when set, is the underlying error and is reachable through errors.Unwrap.
type AppError struct {
	CLIError types.CLIError
	Cause    error
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.CLIError.Code, e.CLIError.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewAppError creates an AppError from a CLIError
func NewAppError(cliErr types.CLIError) *AppError {
	return &AppError{CLIError: cliErr}
}

// WithCause attaches the underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Cause = err
	return e
}

// ErrorCode returns the code of the first AppError in err's chain, or "" if none
func ErrorCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.CLIError.Code
	}
	return ""
}

// HasCode reports whether err's chain carries an AppError with the given code
func HasCode(err error, code string) bool {
	return err != nil && ErrorCode(err) == code
}

// IsNotFound reports whether err means the remote object is already absent
func IsNotFound(err error) bool {
	return HasCode(err, ErrCodeFileNotFound)
}
