package httpx

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	apperrors "github.com/target/mmk-genstudio/internal/errors"
	"github.com/target/mmk-genstudio/internal/provider"
)

// DecodeJSON decodes JSON from the request body into the destination and handles errors.
// Returns true if successful, false if there was an error (error response already written).
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		code := http.StatusBadRequest
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			code = http.StatusRequestEntityTooLarge
		}
		WriteError(w, ErrorParams{Code: code, ErrCode: "invalid_json", Err: err})
		return false
	}

	return true
}

// WriteJSON writes a JSON response with the given status code and data.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := buf.WriteTo(w); err != nil {
		// Response writer errors (e.g., client disconnect) can't be recovered from here.
		return
	}
}

// ErrorParams groups parameters for WriteError to adhere to the ≤3 params guideline.
type ErrorParams struct {
	Code    int
	ErrCode string
	Err     error
}

// WriteError writes a JSON error response using ErrorParams.
func WriteError(w http.ResponseWriter, p ErrorParams) {
	WriteJSON(w, p.Code, map[string]string{"error": p.ErrCode, "message": p.Err.Error()})
}

// WriteServiceError maps a service error onto an HTTP status and writes it.
// Internal errors are logged and replaced with a generic message.
func WriteServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	p := errorParamsFor(err)
	if p.Code >= http.StatusInternalServerError && p.Code != http.StatusBadGateway && p.Code != http.StatusServiceUnavailable {
		logger.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		p.Err = errors.New(http.StatusText(p.Code))
	}
	WriteError(w, p)
}

func errorParamsFor(err error) ErrorParams {
	switch apperrors.GetCode(err) {
	case apperrors.ErrCodeValidation:
		return ErrorParams{Code: http.StatusBadRequest, ErrCode: "validation_error", Err: err}
	case apperrors.ErrCodeNotFound:
		return ErrorParams{Code: http.StatusNotFound, ErrCode: "not_found", Err: err}
	case apperrors.ErrCodeConflict:
		return ErrorParams{Code: http.StatusConflict, ErrCode: "conflict", Err: err}
	case apperrors.ErrCodeUpstream:
		var statusErr *provider.HTTPStatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode < http.StatusInternalServerError {
			return ErrorParams{Code: http.StatusUnprocessableEntity, ErrCode: "provider_rejected", Err: err}
		}
		return ErrorParams{Code: http.StatusBadGateway, ErrCode: "provider_error", Err: err}
	case apperrors.ErrCodeUnavailable:
		return ErrorParams{Code: http.StatusServiceUnavailable, ErrCode: "provider_unavailable", Err: err}
	case apperrors.ErrCodeTimeout:
		return ErrorParams{Code: http.StatusGatewayTimeout, ErrCode: "timeout", Err: err}
	default:
		return ErrorParams{Code: http.StatusInternalServerError, ErrCode: "internal_error", Err: err}
	}
}
