package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"rentbook/internal/util"
	"rentbook/services/rental/internal/app"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type dataResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data"`
	Message string `json:"message,omitempty"`
}

func writeData(w http.ResponseWriter, status int, data any, msg string) {
	writeJSON(w, status, dataResponse{Success: true, Data: data, Message: msg})
}

type errorResponse struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"requestId,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeErrorCode(w, status, errorCodeForRental(status, msg), msg)
}

func writeErrorCode(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{
		Error:     msg,
		Code:      code,
		RequestID: strings.TrimSpace(w.Header().Get("X-Request-Id")),
	})
}

// writeAppError maps app sentinels onto a status and code. Anything
// unrecognised is logged and reported as an internal error.
func writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, app.ErrInvalidCredentials):
		writeErrorCode(w, http.StatusUnauthorized, "AUTH_INVALID_CREDENTIALS", app.ErrInvalidCredentials.Error())
	case errors.Is(err, app.ErrUnauthorized):
		writeErrorCode(w, http.StatusUnauthorized, "AUTH_INVALID_TOKEN", "unauthorized")
	case errors.Is(err, app.ErrUnknownResource):
		writeErrorCode(w, http.StatusNotFound, "SYSTEM_NOT_FOUND", err.Error())
	case errors.Is(err, app.ErrNoReceipt):
		writeErrorCode(w, http.StatusNotFound, "RENTAL_RECEIPT_NOT_FOUND", err.Error())
	case errors.Is(err, app.ErrNotFound):
		writeErrorCode(w, http.StatusNotFound, "RENTAL_NOT_FOUND", err.Error())
	case errors.Is(err, app.ErrInvalidInput):
		writeErrorCode(w, http.StatusBadRequest, "RENTAL_INVALID_INPUT", err.Error())
	case errors.Is(err, app.ErrConflict):
		writeErrorCode(w, http.StatusConflict, "RENTAL_CONFLICT", err.Error())
	case errors.Is(err, app.ErrStorageNotConfigured):
		writeErrorCode(w, http.StatusServiceUnavailable, "SYSTEM_STORAGE_UNAVAILABLE", err.Error())
	default:
		util.LoggerFromContext(r.Context()).Error("request_failed", "path", r.URL.Path, "err", err)
		writeErrorCode(w, http.StatusInternalServerError, "SYSTEM_INTERNAL_ERROR", "internal error")
	}
}

func errorCodeForRental(status int, msg string) string {
	message := strings.ToLower(strings.TrimSpace(msg))
	switch {
	case message == "unauthorized":
		return "AUTH_INVALID_TOKEN"
	case message == "too many requests":
		return "SYSTEM_RATE_LIMITED"
	case message == "file too large":
		return "RENTAL_FILE_TOO_LARGE"
	case message == "invalid form data", strings.Contains(message, "file is required"):
		return "RENTAL_INVALID_UPLOAD_FORM"
	case message == "invalid json body", message == "invalid data parameter":
		return "RENTAL_INVALID_REQUEST"
	case message == "method not allowed":
		return "SYSTEM_METHOD_NOT_ALLOWED"
	case message == "not found":
		return "SYSTEM_NOT_FOUND"
	}

	switch status {
	case http.StatusBadRequest:
		return "RENTAL_INVALID_REQUEST"
	case http.StatusUnauthorized:
		return "AUTH_INVALID_TOKEN"
	case http.StatusNotFound:
		return "RENTAL_NOT_FOUND"
	case http.StatusMethodNotAllowed:
		return "SYSTEM_METHOD_NOT_ALLOWED"
	case http.StatusTooManyRequests:
		return "SYSTEM_RATE_LIMITED"
	default:
		if status >= http.StatusInternalServerError {
			return "SYSTEM_INTERNAL_ERROR"
		}
		return "REQUEST_ERROR"
	}
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func notFound(w http.ResponseWriter, msg string) {
	writeError(w, http.StatusNotFound, msg)
}
