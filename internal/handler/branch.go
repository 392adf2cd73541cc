package handler

import (
	"log/slog"
	"net/http"

	chatSvc "pathway/internal/domain/services/chat"
	"pathway/internal/httputil"
)

// BranchHandler handles branch tree HTTP requests
type BranchHandler struct {
	branches chatSvc.BranchService
	logger   *slog.Logger
}

// NewBranchHandler creates a new branch handler
func NewBranchHandler(branches chatSvc.BranchService, logger *slog.Logger) *BranchHandler {
	return &BranchHandler{
		branches: branches,
		logger:   logger,
	}
}

// CreateBranch forks the viewed line at a message and switches to the fork
// POST /api/conversations/{id}/branches
func (h *BranchHandler) CreateBranch(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	convID, ok := PathParam(w, r, "id", "Conversation ID")
	if !ok {
		return
	}

	var req chatSvc.CreateBranchRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.ConversationID = convID
	req.UserID = userID

	branch, err := h.branches.CreateBranch(r.Context(), &req)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, branch)
}

// ListBranches returns the active branches of a conversation
// GET /api/conversations/{id}/branches
func (h *BranchHandler) ListBranches(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	convID, ok := PathParam(w, r, "id", "Conversation ID")
	if !ok {
		return
	}

	branches, err := h.branches.ListBranches(r.Context(), convID, userID)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, branches)
}

// ListBranchPoints reports the messages of the viewed line that have forks
// GET /api/conversations/{id}/branch-points
func (h *BranchHandler) ListBranchPoints(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	convID, ok := PathParam(w, r, "id", "Conversation ID")
	if !ok {
		return
	}

	points, err := h.branches.ListBranchPoints(r.Context(), convID, userID)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, points)
}

// switchBranchRequest carries the target branch; null returns to main
type switchBranchRequest struct {
	BranchID *string `json:"branch_id"`
}

// SwitchBranch moves the conversation's view pointer
// PUT /api/conversations/{id}/view
func (h *BranchHandler) SwitchBranch(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	convID, ok := PathParam(w, r, "id", "Conversation ID")
	if !ok {
		return
	}

	var req switchBranchRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	conv, err := h.branches.SwitchBranch(r.Context(), convID, userID, req.BranchID)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, conv)
}

// GetBranchLine returns a branch and its messages
// GET /api/branches/{id}/messages
func (h *BranchHandler) GetBranchLine(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	branchID, ok := PathParam(w, r, "id", "Branch ID")
	if !ok {
		return
	}

	line, err := h.branches.GetBranchLine(r.Context(), branchID, userID)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, line)
}

// renameBranchRequest uses OptionalString so that {"label": null} clears
// the label while a missing field is rejected
type renameBranchRequest struct {
	Label httputil.OptionalString `json:"label"`
}

// RenameBranch changes a branch label
// PATCH /api/branches/{id}
func (h *BranchHandler) RenameBranch(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	branchID, ok := PathParam(w, r, "id", "Branch ID")
	if !ok {
		return
	}

	var req renameBranchRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !req.Label.Present {
		httputil.RespondError(w, http.StatusBadRequest, "label is required (null clears it)")
		return
	}

	branch, err := h.branches.RenameBranch(r.Context(), branchID, userID, req.Label.Value)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, branch)
}

// DeleteBranch soft-deletes a branch; it can be restored during the undo window
// DELETE /api/branches/{id}
func (h *BranchHandler) DeleteBranch(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	branchID, ok := PathParam(w, r, "id", "Branch ID")
	if !ok {
		return
	}

	branch, err := h.branches.DeleteBranch(r.Context(), branchID, userID)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, branch)
}

// RestoreBranch undoes a delete inside the undo window
// POST /api/branches/{id}/restore
func (h *BranchHandler) RestoreBranch(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	branchID, ok := PathParam(w, r, "id", "Branch ID")
	if !ok {
		return
	}

	branch, err := h.branches.RestoreBranch(r.Context(), branchID, userID)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, branch)
}
