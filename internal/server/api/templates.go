package api

import (
	"net/http"

	"github.com/ayusman/gesturefield/internal/particles"
)

// TemplatesHandler handles GET /api/templates.
type TemplatesHandler struct {
	controls Controller
}

// NewTemplatesHandler creates a TemplatesHandler.
func NewTemplatesHandler(c Controller) *TemplatesHandler {
	return &TemplatesHandler{controls: c}
}

type templateResponse struct {
	particles.Info
	Count    int  `json:"count"`
	Selected bool `json:"selected"`
}

type listTemplatesResponse struct {
	Templates []templateResponse `json:"templates"`
}

// ServeHTTP lists templates with counts resolved for the current base count.
func (h *TemplatesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	params := h.controls.Parameters()
	infos := particles.Templates()

	resp := listTemplatesResponse{Templates: make([]templateResponse, 0, len(infos))}
	for _, info := range infos {
		resp.Templates = append(resp.Templates, templateResponse{
			Info:     info,
			Count:    particles.ResolveCount(info.ID, params.ParticleCountBase),
			Selected: info.ID == params.Template,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}
