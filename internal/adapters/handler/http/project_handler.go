package http

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/vncsmyrnk/taskboard/internal/core/domain"
	"github.com/vncsmyrnk/taskboard/internal/core/ports"
)

type ProjectHandler struct {
	service  ports.ProjectService
	validate *validator.Validate
	errs     errorWriter
}

func NewProjectHandler(service ports.ProjectService, validate *validator.Validate, errs errorWriter) *ProjectHandler {
	return &ProjectHandler{service: service, validate: validate, errs: errs}
}

type createProjectRequest struct {
	Name        string  `json:"name" validate:"required,min=3,max=100"`
	Description *string `json:"description" validate:"omitempty,max=500"`
}

type updateProjectRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=3,max=100"`
	Description *string `json:"description" validate:"omitempty,max=500"`
	Status      *string `json:"status" validate:"omitempty,oneof=ACTIVE ARCHIVED COMPLETED"`
}

func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.errs)
	if !ok {
		return
	}
	var body createProjectRequest
	if !decodeAndValidate(w, r, h.validate, &body) {
		return
	}

	project, err := h.service.Create(r.Context(), userID, ports.CreateProjectInput{
		Name:        body.Name,
		Description: body.Description,
	})
	if err != nil {
		h.errs.write(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "Project created successfully",
		"project": project,
	})
}

func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.errs)
	if !ok {
		return
	}

	projects, err := h.service.ListForUser(r.Context(), userID)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	if projects == nil {
		projects = []domain.ProjectOverview{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "projects": projects})
}

func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.errs)
	if !ok {
		return
	}
	projectID, ok := uuidParam(w, r, "projectId")
	if !ok {
		return
	}

	project, err := h.service.Get(r.Context(), projectID, userID)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "project": project})
}

func (h *ProjectHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.errs)
	if !ok {
		return
	}
	projectID, ok := uuidParam(w, r, "projectId")
	if !ok {
		return
	}
	var body updateProjectRequest
	if !decodeAndValidate(w, r, h.validate, &body) {
		return
	}

	patch := ports.ProjectPatch{Name: body.Name, Description: body.Description}
	if body.Status != nil {
		status := domain.ProjectStatus(*body.Status)
		patch.Status = &status
	}

	project, err := h.service.Update(r.Context(), projectID, userID, patch)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Project updated successfully",
		"project": project,
	})
}

func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.errs)
	if !ok {
		return
	}
	projectID, ok := uuidParam(w, r, "projectId")
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), projectID, userID); err != nil {
		h.errs.write(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: "Project deleted successfully"})
}
