package utils

import (
	"errors"
	"fmt"
	"testing"
)

func TestCLIErrorBuilder(t *testing.T) {
	cliErr := NewCLIError(ErrCodeRemoteUnavailable, "listing failed").
		WithHTTPStatus(503).
		WithDriveReason("backendError").
		WithRetryable(true).
		WithContext("folderId", "abc").
		Build()

	if cliErr.Code != ErrCodeRemoteUnavailable || cliErr.Message != "listing failed" {
		t.Errorf("unexpected error: %+v", cliErr)
	}
	if cliErr.HTTPStatus != 503 || cliErr.DriveReason != "backendError" || !cliErr.Retryable {
		t.Errorf("builder fields not applied: %+v", cliErr)
	}
	if cliErr.Context["folderId"] != "abc" {
		t.Errorf("context = %v", cliErr.Context)
	}
}

func TestAppError_CauseChain(t *testing.T) {
	cause := errors.New("connection reset")
	appErr := NewAppError(NewCLIError(ErrCodeNetworkError, "upload failed").Build()).WithCause(cause)

	if appErr.Error() != "NETWORK_ERROR: upload failed" {
		t.Errorf("Error() = %q", appErr.Error())
	}
	if !errors.Is(appErr, cause) {
		t.Error("cause not reachable through errors.Is")
	}

	wrapped := fmt.Errorf("reconcile notes.txt: %w", appErr)
	if got := ErrorCode(wrapped); got != ErrCodeNetworkError {
		t.Errorf("ErrorCode = %q", got)
	}
	if !HasCode(wrapped, ErrCodeNetworkError) {
		t.Error("HasCode should see through fmt wrapping")
	}
}

func TestErrorCode_NoAppError(t *testing.T) {
	if got := ErrorCode(errors.New("plain")); got != "" {
		t.Errorf("ErrorCode = %q, want empty", got)
	}
	if HasCode(nil, "") {
		t.Error("HasCode(nil) should be false")
	}
}

func TestIsNotFound(t *testing.T) {
	notFound := NewAppError(NewCLIError(ErrCodeFileNotFound, "gone").Build())
	if !IsNotFound(notFound) {
		t.Error("expected NotFound")
	}
	if IsNotFound(NewAppError(NewCLIError(ErrCodeTimeout, "slow").Build())) {
		t.Error("TIMEOUT is not NotFound")
	}
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{ErrCodeAuthRequired, ExitAuthRequired},
		{ErrCodeFileNotFound, ExitFileNotFound},
		{ErrCodePartialReplaceFailure, ExitPartialReplace},
		{ErrCodeRemoteUnavailable, ExitRemoteUnavailable},
		{ErrCodeTimeout, ExitTimeout},
		{ErrCodeInvalidPath, ExitInvalidPath},
		{ErrCodeCancelled, ExitUnknown},
		{"", ExitUnknown},
	}
	for _, tt := range tests {
		if got := GetExitCode(tt.code); got != tt.want {
			t.Errorf("GetExitCode(%q) = %d, want %d", tt.code, got, tt.want)
		}
	}
}
