package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/vncsmyrnk/taskboard/internal/core/domain"
	"github.com/vncsmyrnk/taskboard/internal/core/ports"
)

type TaskHandler struct {
	service  ports.TaskService
	validate *validator.Validate
	errs     errorWriter
}

func NewTaskHandler(service ports.TaskService, validate *validator.Validate, errs errorWriter) *TaskHandler {
	return &TaskHandler{service: service, validate: validate, errs: errs}
}

type createTaskRequest struct {
	Title       string     `json:"title" validate:"required,min=5,max=200"`
	Description *string    `json:"description" validate:"omitempty,max=1000"`
	Status      *string    `json:"status" validate:"omitempty,oneof=TODO IN_PROGRESS DONE"`
	Priority    *string    `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH"`
	DueDate     *time.Time `json:"dueDate"`
	AssigneeID  *uuid.UUID `json:"assigneeId"`
}

type updateTaskRequest struct {
	Title       *string      `json:"title" validate:"omitempty,min=3,max=200"`
	Description *string      `json:"description" validate:"omitempty,max=1000"`
	Status      *string      `json:"status" validate:"omitempty,oneof=TODO IN_PROGRESS DONE"`
	Priority    *string      `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH"`
	DueDate     *time.Time   `json:"dueDate"`
	AssigneeID  optionalUUID `json:"assigneeId"`
}

// optionalUUID tells an absent field apart from an explicit null.
type optionalUUID struct {
	Set   bool
	Value *uuid.UUID
}

func (o *optionalUUID) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(data, []byte("null")) {
		o.Value = nil
		return nil
	}
	var id uuid.UUID
	if err := json.Unmarshal(data, &id); err != nil {
		return err
	}
	o.Value = &id
	return nil
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.errs)
	if !ok {
		return
	}
	projectID, ok := uuidParam(w, r, "projectId")
	if !ok {
		return
	}
	var body createTaskRequest
	if !decodeAndValidate(w, r, h.validate, &body) {
		return
	}

	input := ports.CreateTaskInput{
		Title:       body.Title,
		Description: body.Description,
		DueDate:     body.DueDate,
		AssigneeID:  body.AssigneeID,
	}
	if body.Status != nil {
		s := domain.TaskStatus(*body.Status)
		input.Status = &s
	}
	if body.Priority != nil {
		p := domain.TaskPriority(*body.Priority)
		input.Priority = &p
	}

	task, err := h.service.Create(r.Context(), projectID, userID, input)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "Task created successfully",
		"task":    task,
	})
}

// List supports status, priority and assigneeId filters. assigneeId=null selects unassigned tasks.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.errs)
	if !ok {
		return
	}
	projectID, ok := uuidParam(w, r, "projectId")
	if !ok {
		return
	}

	filter, err := parseTaskFilter(r)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}

	tasks, err := h.service.List(r.Context(), projectID, userID, filter)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}

	writeTasks(w, tasks)
}

func parseTaskFilter(r *http.Request) (domain.TaskFilter, error) {
	var filter domain.TaskFilter
	q := r.URL.Query()

	if v := q.Get("status"); v != "" {
		s := domain.TaskStatus(v)
		if !s.Valid() {
			return filter, domain.NewValidation("Invalid status filter")
		}
		filter.Status = &s
	}
	if v := q.Get("priority"); v != "" {
		p := domain.TaskPriority(v)
		if !p.Valid() {
			return filter, domain.NewValidation("Invalid priority filter")
		}
		filter.Priority = &p
	}
	switch v := q.Get("assigneeId"); v {
	case "":
	case "null":
		filter.UnassignedOnly = true
	default:
		id, err := uuid.Parse(v)
		if err != nil {
			return filter, domain.NewValidation("Invalid assigneeId filter")
		}
		filter.AssigneeID = &id
	}
	return filter, nil
}

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.errs)
	if !ok {
		return
	}
	projectID, ok := uuidParam(w, r, "projectId")
	if !ok {
		return
	}
	taskID, ok := uuidParam(w, r, "taskId")
	if !ok {
		return
	}

	task, err := h.service.Get(r.Context(), projectID, taskID, userID)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "task": task})
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.errs)
	if !ok {
		return
	}
	projectID, ok := uuidParam(w, r, "projectId")
	if !ok {
		return
	}
	taskID, ok := uuidParam(w, r, "taskId")
	if !ok {
		return
	}
	var body updateTaskRequest
	if !decodeAndValidate(w, r, h.validate, &body) {
		return
	}

	input := ports.UpdateTaskInput{
		Title:       body.Title,
		Description: body.Description,
		DueDate:     body.DueDate,
	}
	if body.Status != nil {
		s := domain.TaskStatus(*body.Status)
		input.Status = &s
	}
	if body.Priority != nil {
		p := domain.TaskPriority(*body.Priority)
		input.Priority = &p
	}
	if body.AssigneeID.Set {
		input.AssigneeID = body.AssigneeID.Value
		input.Unassign = body.AssigneeID.Value == nil
	}

	task, err := h.service.Update(r.Context(), projectID, taskID, userID, input)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Task updated successfully",
		"task":    task,
	})
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.errs)
	if !ok {
		return
	}
	projectID, ok := uuidParam(w, r, "projectId")
	if !ok {
		return
	}
	taskID, ok := uuidParam(w, r, "taskId")
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), projectID, taskID, userID); err != nil {
		h.errs.write(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: "Task deleted successfully"})
}

func writeTasks(w http.ResponseWriter, tasks []domain.Task) {
	if tasks == nil {
		tasks = []domain.Task{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "tasks": tasks})
}
