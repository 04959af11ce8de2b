package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"kiwipay/internal/platform/apperror"
)

type Error struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

type Envelope struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data,omitempty"`
	Error     *Error `json:"error,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, payload Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Warn("write json failed", "err", err)
	}
}

func Success(w http.ResponseWriter, data any, requestID string) {
	WriteJSON(w, http.StatusOK, Envelope{Success: true, Data: data, RequestID: requestID})
}

func Accepted(w http.ResponseWriter, data any, requestID string) {
	WriteJSON(w, http.StatusAccepted, Envelope{Success: true, Data: data, RequestID: requestID})
}

func Fail(w http.ResponseWriter, status int, code, message, requestID string) {
	WriteJSON(w, status, Envelope{Success: false, Error: &Error{Code: code, Message: message}, RequestID: requestID})
}

func FailWithDetails(w http.ResponseWriter, status int, code, message string, details map[string]any, requestID string) {
	WriteJSON(w, status, Envelope{Success: false, Error: &Error{Code: code, Message: message, Details: details}, RequestID: requestID})
}

// FailError classifies err and writes the matching status and code. Errors
// that carry field details (leave validation) include them.
func FailError(w http.ResponseWriter, err error, requestID string) {
	appErr := apperror.From(err)
	var fielded interface{ FieldErrors() map[string]string }
	if errors.As(err, &fielded) {
		FailWithDetails(w, appErr.HTTPStatus, appErr.Code, appErr.Message, map[string]any{"fields": fielded.FieldErrors()}, requestID)
		return
	}
	Fail(w, appErr.HTTPStatus, appErr.Code, appErr.Message, requestID)
}
