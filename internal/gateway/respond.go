// internal/gateway/respond.go
package gateway

import (
	"encoding/json"
	"net/http"

	"research-assistant/internal/common/errors"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	stdErr, ok := errors.As(err)
	if !ok {
		stdErr = errors.NewInternalError(err)
	}
	writeJSON(w, statusFor(stdErr.Code), errorBody{
		Code:    string(stdErr.Code),
		Message: stdErr.Message,
		Details: stdErr.Details,
	})
}

func statusFor(code errors.ErrorCode) int {
	switch code {
	case errors.ErrCodeInvalidRequest, errors.ErrCodeInvalidResumeID:
		return http.StatusBadRequest
	case errors.ErrCodePanelNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
