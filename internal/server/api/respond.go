// Package api provides HTTP API handlers for gesturefield.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ayusman/gesturefield/internal/session"
)

type errorResponse struct {
	Error   string `json:"error"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message,omitempty"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeSessionError writes a session failure with its kind and user message.
func writeSessionError(w http.ResponseWriter, err error) {
	resp := errorResponse{Error: err.Error()}

	var se *session.Error
	if errors.As(err, &se) {
		resp.Kind = string(se.Kind)
		resp.Message = se.Message()
	}

	writeJSON(w, StatusForError(err), resp)
}

// StatusForError maps a session error to an HTTP status code.
func StatusForError(err error) int {
	if errors.Is(err, session.ErrStopped) {
		return http.StatusConflict
	}

	switch session.KindOf(err) {
	case session.PermissionDenied:
		return http.StatusForbidden
	case session.DeviceNotFound:
		return http.StatusNotFound
	case session.DeviceBusy:
		return http.StatusConflict
	case session.CameraTimeout, session.VideoInitError:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
