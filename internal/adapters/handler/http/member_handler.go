package http

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/vncsmyrnk/taskboard/internal/core/domain"
	"github.com/vncsmyrnk/taskboard/internal/core/ports"
)

type MemberHandler struct {
	service  ports.MemberService
	validate *validator.Validate
	errs     errorWriter
}

func NewMemberHandler(service ports.MemberService, validate *validator.Validate, errs errorWriter) *MemberHandler {
	return &MemberHandler{service: service, validate: validate, errs: errs}
}

type addMemberRequest struct {
	Email string `json:"email" validate:"required,email,max=254"`
	Role  string `json:"role" validate:"omitempty,oneof=OWNER MEMBER"`
}

type updateMemberRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=OWNER MEMBER"`
}

func (h *MemberHandler) Add(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.errs)
	if !ok {
		return
	}
	projectID, ok := uuidParam(w, r, "projectId")
	if !ok {
		return
	}
	var body addMemberRequest
	if !decodeAndValidate(w, r, h.validate, &body) {
		return
	}

	member, err := h.service.Add(r.Context(), projectID, userID, ports.AddMemberInput{
		Email: sanitizeEmail(body.Email),
		Role:  domain.ProjectRole(body.Role),
	})
	if err != nil {
		h.errs.write(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "Member added successfully",
		"member":  member,
	})
}

func (h *MemberHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.errs)
	if !ok {
		return
	}
	projectID, ok := uuidParam(w, r, "projectId")
	if !ok {
		return
	}

	members, err := h.service.List(r.Context(), projectID, userID)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	if members == nil {
		members = []domain.ProjectMember{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "members": members})
}

func (h *MemberHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.errs)
	if !ok {
		return
	}
	projectID, ok := uuidParam(w, r, "projectId")
	if !ok {
		return
	}
	targetID, ok := uuidParam(w, r, "userId")
	if !ok {
		return
	}
	var body updateMemberRoleRequest
	if !decodeAndValidate(w, r, h.validate, &body) {
		return
	}

	member, err := h.service.UpdateRole(r.Context(), projectID, targetID, userID, domain.ProjectRole(body.Role))
	if err != nil {
		h.errs.write(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Member role updated successfully",
		"member":  member,
	})
}

func (h *MemberHandler) Remove(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.errs)
	if !ok {
		return
	}
	projectID, ok := uuidParam(w, r, "projectId")
	if !ok {
		return
	}
	targetID, ok := uuidParam(w, r, "userId")
	if !ok {
		return
	}

	if err := h.service.Remove(r.Context(), projectID, targetID, userID); err != nil {
		h.errs.write(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: "Member removed successfully"})
}

func (h *MemberHandler) Leave(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.errs)
	if !ok {
		return
	}
	projectID, ok := uuidParam(w, r, "projectId")
	if !ok {
		return
	}

	if err := h.service.Leave(r.Context(), projectID, userID); err != nil {
		h.errs.write(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: "You have left the project"})
}
