package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/vuxmai/catalog-admin/internal/http/apierr"
	"github.com/vuxmai/catalog-admin/pkg/zerror"
)

// SuccessResponse is the uniform success envelope.
type SuccessResponse struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (s *Service) respond(w http.ResponseWriter, r *http.Request, status int, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if status == http.StatusNoContent {
		return
	}

	res := SuccessResponse{Message: message, Data: data}
	if err := json.NewEncoder(w).Encode(res); err != nil {
		s.logger.ErrorContext(r.Context(), "error encoding response", slog.Any("error", err))
	}
}

func (s *Service) respondError(w http.ResponseWriter, r *http.Request, err error) {
	res := apierr.New(err)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(res.StatusCode)

	logLevel := slog.LevelInfo
	if res.StatusCode >= 500 {
		logLevel = slog.LevelError
	} else if res.StatusCode >= 400 {
		logLevel = slog.LevelWarn
	}
	s.logger.Log(r.Context(), logLevel, "http response error", slog.Any("error", err))

	if err := json.NewEncoder(w).Encode(res); err != nil {
		s.logger.ErrorContext(r.Context(), "error encoding error response", slog.Any("error", err))
	}
}

// decodeJSON decodes the request body into dst and runs struct validation.
func (s *Service) decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return invalidField("body", err)
	}
	return s.validator.Validate(dst)
}

// invalidField reports a malformed request value as a validation failure.
func invalidField(field string, err error) error {
	return zerror.NewZError(err, zerror.StatusValidationFailed, "VALIDATION_FAILED",
		fmt.Sprintf("invalid value for %s", field))
}
