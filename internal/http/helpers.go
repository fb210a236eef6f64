package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"smartbudget/internal/anomaly"
	"smartbudget/internal/core"
	"smartbudget/internal/log"
	"smartbudget/internal/middleware/trace"
)

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// errorResponse maps a pipeline error to its HTTP response.
func errorResponse(ctx context.Context, err error) *ResponseBuilder {
	body := ErrorBody{Error: err.Error(), RequestID: trace.GetRequestID(ctx)}

	var (
		schemaErr  *core.SchemaError
		historyErr *core.InsufficientHistoryError
		uploadErr  *UploadError
		paramErr   *ParamError
	)
	switch {
	case errors.As(err, &schemaErr):
		body.Missing = schemaErr.Missing
		body.Optional = schemaErr.Optional
		return ErrorResponse(http.StatusUnprocessableEntity, body)
	case errors.As(err, &historyErr):
		return ErrorResponse(http.StatusUnprocessableEntity, body)
	case errors.Is(err, ErrUploadTooLarge):
		return ErrorResponse(http.StatusRequestEntityTooLarge, body)
	case errors.Is(err, ErrEmptyUpload), errors.As(err, &uploadErr), errors.As(err, &paramErr), errors.Is(err, anomaly.ErrContamination):
		return ErrorResponse(http.StatusBadRequest, body)
	case errors.Is(err, ErrNotConfigured):
		return ErrorResponse(http.StatusServiceUnavailable, body)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		body.Error = "analysis timed out"
		return ErrorResponse(http.StatusServiceUnavailable, body)
	default:
		log.FromContext(ctx).ErrorContext(ctx, "Analysis request failed", log.FieldError, err)
		body.Error = "internal error"
		return ErrorResponse(http.StatusInternalServerError, body)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	errorResponse(r.Context(), err).Write(w)
}
