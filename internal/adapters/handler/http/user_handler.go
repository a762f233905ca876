package http

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/taskboard/internal/core/domain"
	"github.com/vncsmyrnk/taskboard/internal/core/ports"
)

type UserHandler struct {
	service ports.UserService
	tasks   ports.TaskService
	errs    errorWriter
}

func NewUserHandler(service ports.UserService, tasks ports.TaskService, errs errorWriter) *UserHandler {
	return &UserHandler{
		service: service,
		tasks:   tasks,
		errs:    errs,
	}
}

type meResponse struct {
	ID         uuid.UUID   `json:"id"`
	Email      string      `json:"email"`
	Username   *string     `json:"username"`
	Role       domain.Role `json:"role"`
	IsVerified bool        `json:"isVerified"`
}

func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.errs)
	if !ok {
		return
	}

	user, err := h.service.GetByID(r.Context(), userID)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user": meResponse{
			ID:         user.ID,
			Email:      user.Email,
			Username:   user.Username,
			Role:       user.Role,
			IsVerified: user.IsVerified,
		},
	})
}

func (h *UserHandler) AssignedTasks(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.errs)
	if !ok {
		return
	}

	tasks, err := h.tasks.ListAssigned(r.Context(), userID)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeTasks(w, tasks)
}

func (h *UserHandler) OverdueTasks(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.errs)
	if !ok {
		return
	}

	tasks, err := h.tasks.ListOverdue(r.Context(), userID)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeTasks(w, tasks)
}
