package handler

import (
	"net/http"
)

// Handlers groups the HTTP handlers registered on the mux
type Handlers struct {
	Conversations *ConversationHandler
	Branches      *BranchHandler
	Rooms         *RoomHandler
	Realtime      *RealtimeHandler
}

// RegisterRoutes registers every API route on mux (Go 1.22+ patterns)
func RegisterRoutes(mux *http.ServeMux, h *Handlers) {
	mux.HandleFunc("GET /health", HealthCheck)

	// Conversation routes
	mux.HandleFunc("POST /api/conversations", h.Conversations.CreateConversation)
	mux.HandleFunc("GET /api/conversations", h.Conversations.ListConversations)
	mux.HandleFunc("GET /api/conversations/{id}", h.Conversations.GetConversation)
	mux.HandleFunc("GET /api/conversations/{id}/messages", h.Conversations.GetActiveLine)
	mux.HandleFunc("POST /api/conversations/{id}/messages", h.Conversations.SendMessage)
	mux.HandleFunc("POST /api/conversations/{id}/retry", h.Conversations.RetryReply)
	mux.HandleFunc("PATCH /api/conversations/{id}/messages/{mid}", h.Conversations.EditMessage)
	mux.HandleFunc("PUT /api/messages/{id}/reactions/{kind}", h.Conversations.AddReaction)
	mux.HandleFunc("DELETE /api/messages/{id}/reactions/{kind}", h.Conversations.RemoveReaction)

	// Branch routes
	mux.HandleFunc("GET /api/conversations/{id}/branches", h.Branches.ListBranches)
	mux.HandleFunc("GET /api/conversations/{id}/branch-points", h.Branches.ListBranchPoints)
	mux.HandleFunc("POST /api/conversations/{id}/branches", h.Branches.CreateBranch)
	mux.HandleFunc("PUT /api/conversations/{id}/view", h.Branches.SwitchBranch)
	mux.HandleFunc("GET /api/branches/{id}/messages", h.Branches.GetBranchLine)
	mux.HandleFunc("PATCH /api/branches/{id}", h.Branches.RenameBranch)
	mux.HandleFunc("DELETE /api/branches/{id}", h.Branches.DeleteBranch)
	mux.HandleFunc("POST /api/branches/{id}/restore", h.Branches.RestoreBranch)

	// Room routes
	mux.HandleFunc("POST /api/rooms", h.Rooms.OpenRoom)
	mux.HandleFunc("GET /api/rooms", h.Rooms.ListRooms)
	mux.HandleFunc("DELETE /api/rooms/{id}", h.Rooms.DeactivateRoom)
	mux.HandleFunc("GET /api/rooms/{id}/messages", h.Rooms.GetMessages)
	mux.HandleFunc("POST /api/rooms/{id}/messages", h.Rooms.SendMessage)
	mux.HandleFunc("POST /api/rooms/{id}/read", h.Rooms.MarkRead)
	mux.HandleFunc("POST /api/rooms/{id}/typing", h.Rooms.StartTyping)
	mux.HandleFunc("DELETE /api/rooms/{id}/typing", h.Rooms.StopTyping)

	// Realtime
	mux.HandleFunc("GET /api/rooms/{id}/ws", h.Realtime.ServeRoom)
}
