package errors

import (
	"context"
	stderrors "errors"

	"github.com/dl-alexandre/gdsync/internal/logging"
	"github.com/dl-alexandre/gdsync/internal/types"
	"github.com/dl-alexandre/gdsync/internal/utils"
	"google.golang.org/api/googleapi"
)

// ClassifyGoogleAPIError converts an error returned by a Google API call into an
// AppError carrying one of the stable codes in utils.
func ClassifyGoogleAPIError(service string, err error, reqCtx *types.RequestContext, logger logging.Logger) error {
	if err == nil {
		return nil
	}

	var existing *utils.AppError
	if stderrors.As(err, &existing) {
		return err
	}

	if ctxErr := classifyContextError(err, reqCtx); ctxErr != nil {
		logger.Warn("API call interrupted",
			logging.F("error", err.Error()),
			logging.F("errorCode", ctxErr.CLIError.Code),
			logging.F("traceId", reqCtx.TraceID),
		)
		return ctxErr
	}

	var apiErr *googleapi.Error
	if !stderrors.As(err, &apiErr) {
		logger.Error("Non-API error",
			logging.F("error", err.Error()),
			logging.F("traceId", reqCtx.TraceID),
		)
		return utils.NewAppError(utils.NewCLIError(utils.ErrCodeRemoteUnavailable, err.Error()).
			WithRetryable(true).
			WithContext("traceId", reqCtx.TraceID).
			WithContext("service", service).
			Build()).WithCause(err)
	}

	var code string
	var retryable bool

	switch apiErr.Code {
	case 400, 409:
		code = utils.ErrCodeInvalidArgument
	case 401:
		code = utils.ErrCodeAuthExpired
	case 403:
		code = utils.ErrCodePermissionDenied
		for _, e := range apiErr.Errors {
			switch e.Reason {
			case "storageQuotaExceeded":
				code = utils.ErrCodeQuotaExceeded
			case "userRateLimitExceeded", "rateLimitExceeded":
				code = utils.ErrCodeRateLimited
				retryable = true
			}
		}
	case 404:
		code = utils.ErrCodeFileNotFound
	case 408:
		code = utils.ErrCodeTimeout
		retryable = true
	case 429:
		code = utils.ErrCodeRateLimited
		retryable = true
	case 500, 502, 503, 504:
		code = utils.ErrCodeRemoteUnavailable
		retryable = true
	default:
		code = utils.ErrCodeUnknown
		retryable = apiErr.Code >= 500
	}

	logger.Error("API error classified",
		logging.F("httpStatus", apiErr.Code),
		logging.F("errorCode", code),
		logging.F("retryable", retryable),
		logging.F("message", apiErr.Message),
		logging.F("traceId", reqCtx.TraceID),
		logging.F("service", service),
	)

	builder := utils.NewCLIError(code, apiErr.Message).
		WithHTTPStatus(apiErr.Code).
		WithRetryable(retryable).
		WithContext("traceId", reqCtx.TraceID).
		WithContext("requestType", string(reqCtx.RequestType)).
		WithContext("service", service)

	if len(apiErr.Errors) > 0 {
		builder.WithDriveReason(apiErr.Errors[0].Reason)
		switch apiErr.Errors[0].Reason {
		case "storageQuotaExceeded":
			builder.WithContext("suggestedAction", "free up space in Google Drive or upgrade storage")
		case "insufficientFilePermissions":
			builder.WithContext("suggestedAction", "share the target folder with the service account as editor")
		}
	}

	switch code {
	case utils.ErrCodeAuthExpired:
		builder.WithContext("suggestedAction", "check the service account key file")
	case utils.ErrCodeFileNotFound:
		if len(reqCtx.InvolvedFileIDs) > 0 {
			builder.WithContext("fileId", reqCtx.InvolvedFileIDs[len(reqCtx.InvolvedFileIDs)-1])
		}
	case utils.ErrCodeRemoteUnavailable:
		builder.WithContext("serverError", true)
	}

	return utils.NewAppError(builder.Build()).WithCause(err)
}

// classifyContextError maps deadline and cancellation errors. A deadline during an
// upload is a transport timeout; anywhere else the store is treated as unavailable.
func classifyContextError(err error, reqCtx *types.RequestContext) *utils.AppError {
	switch {
	case stderrors.Is(err, context.DeadlineExceeded):
		code := utils.ErrCodeRemoteUnavailable
		if reqCtx.RequestType == types.RequestTypeUpload {
			code = utils.ErrCodeTimeout
		}
		return utils.NewAppError(utils.NewCLIError(code, "remote call exceeded its deadline").
			WithRetryable(true).
			WithContext("traceId", reqCtx.TraceID).
			WithContext("requestType", string(reqCtx.RequestType)).
			Build()).WithCause(err)
	case stderrors.Is(err, context.Canceled):
		return utils.NewAppError(utils.NewCLIError(utils.ErrCodeCancelled, "remote call cancelled").
			WithContext("traceId", reqCtx.TraceID).
			Build()).WithCause(err)
	}
	return nil
}
