package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/fybs47/Library/internal/apperrors"
	"go.uber.org/zap"
)

// BaseHandler holds what every handler needs to write responses
type BaseHandler struct {
	Logger *zap.Logger
}

// RespondJSON sends a JSON response
func (h *BaseHandler) RespondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.Logger.Error("failed to encode JSON response", zap.Error(err))
	}
}

// RespondError sends an error JSON response
func (h *BaseHandler) RespondError(w http.ResponseWriter, status int, message string) {
	h.RespondJSON(w, status, map[string]string{"error": message})
}

// RespondServiceError translates a service error into its status code and public message.
// Server side failures are logged with the full error.
func (h *BaseHandler) RespondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.Logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	h.RespondError(w, status, apperrors.PublicMessage(err))
}

// DecodeJSON reads a JSON request body into dst.
// Unknown fields are rejected and an empty body is an error.
func (h *BaseHandler) DecodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return apperrors.New(apperrors.ErrBadRequest, "request body is required")
		case errors.As(err, &maxBytesErr):
			return apperrors.New(apperrors.ErrBadRequest, "request body is too large")
		default:
			return apperrors.New(apperrors.ErrBadRequest, "invalid request body")
		}
	}
	return nil
}
