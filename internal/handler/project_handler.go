package handler

import (
	"encoding/json"
	"net/http"

	"github.com/surveyops/backend/internal/model"
	"github.com/surveyops/backend/internal/service"
)

// ProjectHandler はプロジェクト関連のエンドポイント
type ProjectHandler struct {
	projectService service.ProjectService
}

func NewProjectHandler(projectService service.ProjectService) *ProjectHandler {
	return &ProjectHandler{projectService: projectService}
}

// Create godoc: POST /api/projects
func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input service.CreateProjectInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body")
		return
	}

	p, err := h.projectService.Create(r.Context(), input)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// List godoc: GET /api/projects
func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	projects, err := h.projectService.List(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if projects == nil {
		projects = []*model.Project{}
	}
	writeJSON(w, http.StatusOK, projects)
}

// Get godoc: GET /api/projects/{id}
func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.projectService.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// UpdateStatus godoc: PUT /api/projects/{id}/status
func (h *ProjectHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body")
		return
	}

	p, err := h.projectService.UpdateStatus(r.Context(), r.PathValue("id"), model.Status(input.Status))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Cancel godoc: POST /api/projects/{id}/cancel
func (h *ProjectHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Reason string `json:"reason"`
	}
	// 本文なしのキャンセルも受け付ける
	_ = json.NewDecoder(r.Body).Decode(&input)

	p, err := h.projectService.Cancel(r.Context(), r.PathValue("id"), input.Reason)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// SetFeatured godoc: PATCH /api/projects/{id}
func (h *ProjectHandler) SetFeatured(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Featured bool `json:"featured"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body")
		return
	}

	if err := h.projectService.SetFeatured(r.Context(), r.PathValue("id"), input.Featured); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"featured": input.Featured})
}

// RegisterMedia godoc: POST /api/projects/{id}/media
func (h *ProjectHandler) RegisterMedia(w http.ResponseWriter, r *http.Request) {
	var input service.RegisterMediaInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body")
		return
	}

	m, err := h.projectService.RegisterMedia(r.Context(), r.PathValue("id"), input)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

// RegisterAttachment godoc: POST /api/projects/{id}/attachments
// RegisterMedia と同じ入力を取るが、kind は attachment に固定される
func (h *ProjectHandler) RegisterAttachment(w http.ResponseWriter, r *http.Request) {
	var input service.RegisterMediaInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body")
		return
	}
	input.Kind = model.MediaKindAttachment

	m, err := h.projectService.RegisterMedia(r.Context(), r.PathValue("id"), input)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

// DeleteMedia godoc: DELETE /api/projects/{id}/media/{mediaID}
func (h *ProjectHandler) DeleteMedia(w http.ResponseWriter, r *http.Request) {
	err := h.projectService.DeleteMedia(r.Context(), r.PathValue("id"), r.PathValue("mediaID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
