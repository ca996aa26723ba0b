package api

import (
	"context"
	"net/http"

	"github.com/ayusman/gesturefield/internal/session"
)

// GestureController switches gesture mode on and off.
type GestureController interface {
	EnableGesture(ctx context.Context) error
	DisableGesture()
	GestureEnabled() bool
}

// StatusProvider reports the tracking session state.
type StatusProvider interface {
	Status() session.Status
}

// SessionHandler handles /api/session.
type SessionHandler struct {
	gesture GestureController
	status  StatusProvider
}

// NewSessionHandler creates a SessionHandler.
func NewSessionHandler(g GestureController, s StatusProvider) *SessionHandler {
	return &SessionHandler{gesture: g, status: s}
}

type sessionResponse struct {
	GestureEnabled bool `json:"gesture_enabled"`
	session.Status
}

// ServeHTTP implements the http.Handler interface.
//
//	GET    current session status
//	POST   enable gesture control, blocking until tracking or failure
//	DELETE disable gesture control
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.response())
	case http.MethodPost:
		// The camera waits are bounded by the session; a client that
		// disconnects must not abort a start it already triggered.
		if err := h.gesture.EnableGesture(context.WithoutCancel(r.Context())); err != nil {
			writeSessionError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, h.response())
	case http.MethodDelete:
		h.gesture.DisableGesture()
		writeJSON(w, http.StatusOK, h.response())
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *SessionHandler) response() sessionResponse {
	return sessionResponse{
		GestureEnabled: h.gesture.GestureEnabled(),
		Status:         h.status.Status(),
	}
}
