package api

import (
	"encoding/json"
	"net/http"

	"github.com/ayusman/gesturefield/internal/control"
)

// Controller is the parameter surface the API drives.
type Controller interface {
	Parameters() control.Parameters
	Apply(control.Update) error
}

// ParamsHandler handles /api/params.
type ParamsHandler struct {
	controls Controller
}

// NewParamsHandler creates a ParamsHandler.
func NewParamsHandler(c Controller) *ParamsHandler {
	return &ParamsHandler{controls: c}
}

// ServeHTTP implements the http.Handler interface.
func (h *ParamsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.controls.Parameters())
	case http.MethodPut, http.MethodPatch:
		h.update(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// update applies a partial change. Omitted fields keep their value.
func (h *ParamsHandler) update(w http.ResponseWriter, r *http.Request) {
	var req control.Update
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if err := h.controls.Apply(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, h.controls.Parameters())
}
