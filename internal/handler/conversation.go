package handler

import (
	"log/slog"
	"net/http"

	"pathway/internal/domain/models/chat"
	chatSvc "pathway/internal/domain/services/chat"
	"pathway/internal/httputil"
)

// ConversationHandler handles conversation and exchange HTTP requests.
// Handlers only talk to services, never to repositories.
type ConversationHandler struct {
	conversations chatSvc.ConversationService
	logger        *slog.Logger
}

// NewConversationHandler creates a new conversation handler
func NewConversationHandler(conversations chatSvc.ConversationService, logger *slog.Logger) *ConversationHandler {
	return &ConversationHandler{
		conversations: conversations,
		logger:        logger,
	}
}

// CreateConversation starts a conversation owned by the caller
// POST /api/conversations
func (h *ConversationHandler) CreateConversation(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req chatSvc.CreateConversationRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.UserID = userID

	conv, err := h.conversations.CreateConversation(r.Context(), &req)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, conv)
}

// ListConversations returns the caller's conversations
// GET /api/conversations
func (h *ConversationHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	convs, err := h.conversations.ListConversations(r.Context(), userID)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, convs)
}

// GetConversation returns one conversation with its view pointer
// GET /api/conversations/{id}
func (h *ConversationHandler) GetConversation(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	convID, ok := PathParam(w, r, "id", "Conversation ID")
	if !ok {
		return
	}

	conv, err := h.conversations.GetConversation(r.Context(), convID, userID)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, conv)
}

// GetActiveLine returns the messages of the currently viewed line
// GET /api/conversations/{id}/messages
func (h *ConversationHandler) GetActiveLine(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	convID, ok := PathParam(w, r, "id", "Conversation ID")
	if !ok {
		return
	}

	msgs, err := h.conversations.GetActiveLine(r.Context(), convID, userID)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, msgs)
}

// SendMessage appends a user message and the mentor's reply. A failed reply
// still returns 201: the user message is stored and reply_error is set.
// POST /api/conversations/{id}/messages
func (h *ConversationHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	convID, ok := PathParam(w, r, "id", "Conversation ID")
	if !ok {
		return
	}

	var req chatSvc.SendMessageRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.ConversationID = convID
	req.UserID = userID

	exchange, err := h.conversations.SendMessage(r.Context(), &req)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, exchange)
}

// RetryReply regenerates the reply for a line ending with a user message
// POST /api/conversations/{id}/retry
func (h *ConversationHandler) RetryReply(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	convID, ok := PathParam(w, r, "id", "Conversation ID")
	if !ok {
		return
	}

	exchange, err := h.conversations.RetryReply(r.Context(), convID, userID)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, exchange)
}

// EditMessage rewrites a user message and regenerates everything after it
// PATCH /api/conversations/{id}/messages/{mid}
func (h *ConversationHandler) EditMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	convID, ok := PathParam(w, r, "id", "Conversation ID")
	if !ok {
		return
	}
	messageID, ok := PathParam(w, r, "mid", "Message ID")
	if !ok {
		return
	}

	var req chatSvc.EditMessageRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.ConversationID = convID
	req.MessageID = messageID
	req.UserID = userID

	exchange, err := h.conversations.EditMessage(r.Context(), &req)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, exchange)
}

// AddReaction puts a reaction on a message
// PUT /api/messages/{id}/reactions/{kind}
func (h *ConversationHandler) AddReaction(w http.ResponseWriter, r *http.Request) {
	h.setReaction(w, r, true)
}

// RemoveReaction takes a reaction off a message
// DELETE /api/messages/{id}/reactions/{kind}
func (h *ConversationHandler) RemoveReaction(w http.ResponseWriter, r *http.Request) {
	h.setReaction(w, r, false)
}

func (h *ConversationHandler) setReaction(w http.ResponseWriter, r *http.Request, on bool) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	messageID, ok := PathParam(w, r, "id", "Message ID")
	if !ok {
		return
	}
	kind, err := chat.ParseReactionKind(r.PathValue("kind"))
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	msg, err := h.conversations.SetReaction(r.Context(), &chatSvc.SetReactionRequest{
		MessageID: messageID,
		UserID:    userID,
		Kind:      kind,
		On:        on,
	})
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, msg)
}
