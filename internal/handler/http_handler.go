package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pumperp/be-task-approvals/internal/auth"
	"github.com/pumperp/be-task-approvals/internal/errors"
	"github.com/pumperp/be-task-approvals/internal/logger"
	"github.com/pumperp/be-task-approvals/internal/service"
	"github.com/pumperp/be-task-approvals/internal/workflow"
)

// HTTPHandler handles HTTP requests.
type HTTPHandler struct {
	tasks     *service.TaskService
	approvers *service.ApproverService
	log       *logger.Logger
}

// NewHTTPHandler creates a new HTTP handler.
func NewHTTPHandler(tasks *service.TaskService, approvers *service.ApproverService, log *logger.Logger) *HTTPHandler {
	return &HTTPHandler{
		tasks:     tasks,
		approvers: approvers,
		log:       log,
	}
}

// ── task routes ───────────────────────────────────────────────────────────────

// ListTasks handles GET /api/v1/tasks.
func (h *HTTPHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	var status, createdBy, approverID *string
	if v := r.URL.Query().Get("status"); v != "" {
		status = &v
	}
	if v := r.URL.Query().Get("created_by"); v != "" {
		createdBy = &v
	}
	if v := r.URL.Query().Get("approver"); v != "" {
		approverID = &v
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	if pageSize < 1 || pageSize > 100 {
		pageSize = 50
	}

	tasks, total, err := h.tasks.ListTasks(r.Context(), status, createdBy, approverID, page, pageSize)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"tasks":    tasks,
		"total":    total,
		"page":     page,
		"pageSize": pageSize,
	})
}

// CreateTask handles POST /api/v1/tasks. Tasks always start in draft.
func (h *HTTPHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		h.writeError(w, errors.Unauthorized("no actor on request"))
		return
	}

	var req service.CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, errors.InvalidInput("body", "invalid request body"))
		return
	}

	task, err := h.tasks.CreateTask(r.Context(), &req, actor)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, task)
}

// GetTask handles GET /api/v1/tasks/{id}. The response carries the task plus
// the actions the calling actor may take on it.
func (h *HTTPHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		h.writeError(w, errors.Unauthorized("no actor on request"))
		return
	}

	task, actions, err := h.tasks.GetTask(r.Context(), chi.URLParam(r, "id"), actor)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"task":             task,
		"availableActions": actions,
		"statusColor":      task.Status.Color(),
	})
}

// TransitionTask handles POST /api/v1/tasks/{id}/transition.
func (h *HTTPHandler) TransitionTask(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		h.writeError(w, errors.Unauthorized("no actor on request"))
		return
	}

	var req struct {
		Action  string `json:"action"`
		Comment string `json:"comment"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, errors.InvalidInput("body", "invalid request body"))
		return
	}
	if req.Action == "" {
		h.writeError(w, errors.InvalidInput("action", "action is required"))
		return
	}

	task, err := h.tasks.Transition(r.Context(), chi.URLParam(r, "id"), workflow.Action(req.Action), req.Comment, actor)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, task)
}

// DeleteTask handles DELETE /api/v1/tasks/{id}.
func (h *HTTPHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		h.writeError(w, errors.Unauthorized("no actor on request"))
		return
	}

	if err := h.tasks.DeleteTask(r.Context(), chi.URLParam(r, "id"), actor); err != nil {
		h.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetHistory handles GET /api/v1/tasks/{id}/history.
func (h *HTTPHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := h.tasks.GetHistory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"history": entries})
}

// ListComments handles GET /api/v1/tasks/{id}/comments.
func (h *HTTPHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	comments, err := h.tasks.ListComments(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"comments": comments})
}

// AddComment handles POST /api/v1/tasks/{id}/comments.
func (h *HTTPHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		h.writeError(w, errors.Unauthorized("no actor on request"))
		return
	}

	var req struct {
		Body string `json:"body"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, errors.InvalidInput("body", "invalid request body"))
		return
	}

	comment, err := h.tasks.AddComment(r.Context(), chi.URLParam(r, "id"), req.Body, actor)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, comment)
}

// GetStats handles GET /api/v1/tasks/stats.
func (h *HTTPHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	counts, err := h.tasks.CountByStatus(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"counts": counts})
}

// ── approver routes ───────────────────────────────────────────────────────────

// ListApprovers handles GET /api/v1/approvers. ?active=true narrows to the
// chain the engine consults.
func (h *HTTPHandler) ListApprovers(w http.ResponseWriter, r *http.Request) {
	var (
		bindings []*workflow.Approver
		err      error
	)
	if r.URL.Query().Get("active") == "true" {
		bindings, err = h.approvers.ListActive(r.Context())
	} else {
		bindings, err = h.approvers.List(r.Context())
	}
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"approvers": bindings})
}

// CreateApprover handles POST /api/v1/approvers.
func (h *HTTPHandler) CreateApprover(w http.ResponseWriter, r *http.Request) {
	var req service.ApproverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, errors.InvalidInput("body", "invalid request body"))
		return
	}

	binding, err := h.approvers.Create(r.Context(), &req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, binding)
}

// UpdateApprover handles PUT /api/v1/approvers/{id}.
func (h *HTTPHandler) UpdateApprover(w http.ResponseWriter, r *http.Request) {
	var req service.ApproverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, errors.InvalidInput("body", "invalid request body"))
		return
	}

	binding, err := h.approvers.Update(r.Context(), chi.URLParam(r, "id"), &req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, binding)
}

// DeleteApprover handles DELETE /api/v1/approvers/{id}. Soft delete by
// default; ?hard=true removes the row.
func (h *HTTPHandler) DeleteApprover(w http.ResponseWriter, r *http.Request) {
	hard := r.URL.Query().Get("hard") == "true"
	if err := h.approvers.Remove(r.Context(), chi.URLParam(r, "id"), hard); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ── response helpers ──────────────────────────────────────────────────────────

func (h *HTTPHandler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, err error) {
	status := errors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Msg("Request failed")
	}
	h.writeJSON(w, status, map[string]string{
		"code":    string(errors.CodeOf(err)),
		"message": errors.MessageOf(err),
	})
}
