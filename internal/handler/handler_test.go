package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pathway/internal/auth"
	"pathway/internal/clock"
	"pathway/internal/config"
	"pathway/internal/domain/models/chat"
	"pathway/internal/domain/models/room"
	"pathway/internal/handler/ws"
	"pathway/internal/httputil"
	"pathway/internal/middleware"
	"pathway/internal/repository/memory"
	"pathway/internal/service"
)

const (
	mentee   = "mentee-1"
	mentor   = "mentor-1"
	outsider = "user-9"
)

type echoProvider struct{}

func (echoProvider) Name() string { return "echo" }

func (echoProvider) Complete(ctx context.Context, history []chat.Message) (string, error) {
	return "noted: " + history[len(history)-1].Content, nil
}

type testServer struct {
	handler http.Handler
	reg     *prometheus.Registry
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := prometheus.NewRegistry()
	cfg := &config.Config{
		BranchUndoWindow: 5 * time.Second,
		TypingWindow:     2 * time.Second,
	}

	repos := service.NewMemoryRepositories(memory.NewDB())
	fake := clock.NewFake(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))
	svcs := service.SetupServices(repos, echoProvider{}, cfg, fake, reg, logger)

	mux := http.NewServeMux()
	RegisterRoutes(mux, &Handlers{
		Conversations: NewConversationHandler(svcs.Conversations, logger),
		Branches:      NewBranchHandler(svcs.Branches, logger),
		Rooms:         NewRoomHandler(svcs.Rooms, logger),
		Realtime:      NewRealtimeHandler(svcs.Rooms, ws.DefaultConfig(), nil, logger),
	})

	var h http.Handler = mux
	h = middleware.AuthMiddleware(auth.NewDevVerifier(logger))(h)
	h = middleware.Recovery(logger)(h)

	return &testServer{handler: h, reg: reg}
}

// do performs a request as userID and decodes a JSON response into out
func (s *testServer) do(t *testing.T, userID, method, target string, body any, out any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, target, reader)
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+userID)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	if out != nil && rec.Code < 300 && rec.Code != http.StatusNoContent {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
	}
	return rec
}

func TestConversationAndBranchFlow(t *testing.T) {
	s := newTestServer(t)

	var conv chat.Conversation
	rec := s.do(t, mentee, http.MethodPost, "/api/conversations", map[string]string{"title": "Career change"}, &conv)
	require.Equal(t, http.StatusCreated, rec.Code)

	var first chat.Exchange
	rec = s.do(t, mentee, http.MethodPost, "/api/conversations/"+conv.ID+"/messages", map[string]string{"content": "I want to move into UX"}, &first)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, first.Reply)
	assert.Equal(t, "noted: I want to move into UX", first.Reply.Content)

	var second chat.Exchange
	s.do(t, mentee, http.MethodPost, "/api/conversations/"+conv.ID+"/messages", map[string]string{"content": "Should I do a bootcamp?"}, &second)

	var branch chat.BranchWithMessages
	rec = s.do(t, mentee, http.MethodPost, "/api/conversations/"+conv.ID+"/branches", map[string]any{
		"from_message_id": first.Reply.ID,
		"label":           "self-taught path",
	}, &branch)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Len(t, branch.Messages, 2)

	var active []chat.Message
	s.do(t, mentee, http.MethodGet, "/api/conversations/"+conv.ID+"/messages", nil, &active)
	assert.Len(t, active, 2)

	var points []chat.BranchPoint
	rec = s.do(t, mentee, http.MethodPut, "/api/conversations/"+conv.ID+"/view", map[string]any{"branch_id": nil}, &conv)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, conv.CurrentBranchID)

	s.do(t, mentee, http.MethodGet, "/api/conversations/"+conv.ID+"/branch-points", nil, &points)
	require.Len(t, points, 1)
	assert.Equal(t, first.Reply.ID, points[0].MessageID)

	s.do(t, mentee, http.MethodGet, "/api/conversations/"+conv.ID+"/messages", nil, &active)
	assert.Len(t, active, 4)

	var renamed chat.Branch
	rec = s.do(t, mentee, http.MethodPatch, "/api/branches/"+branch.Branch.ID, map[string]any{"label": "portfolio first"}, &renamed)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, renamed.Label)
	assert.Equal(t, "portfolio first", *renamed.Label)

	rec = s.do(t, mentee, http.MethodPatch, "/api/branches/"+branch.Branch.ID, map[string]any{}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, mentee, http.MethodDelete, "/api/branches/"+branch.Branch.ID, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(t, mentee, http.MethodGet, "/api/branches/"+branch.Branch.ID+"/messages", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var restored chat.Branch
	rec = s.do(t, mentee, http.MethodPost, "/api/branches/"+branch.Branch.ID+"/restore", nil, &restored)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, restored.IsActive)
}

func TestEditAndReactions(t *testing.T) {
	s := newTestServer(t)

	var conv chat.Conversation
	s.do(t, mentee, http.MethodPost, "/api/conversations", map[string]string{"title": "Interview prep"}, &conv)

	var ex chat.Exchange
	s.do(t, mentee, http.MethodPost, "/api/conversations/"+conv.ID+"/messages", map[string]string{"content": "first try"}, &ex)

	var edited chat.Exchange
	rec := s.do(t, mentee, http.MethodPatch, "/api/conversations/"+conv.ID+"/messages/"+ex.UserMessage.ID, map[string]string{"content": "second try"}, &edited)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "noted: second try", edited.Reply.Content)

	// assistant messages cannot be edited
	rec = s.do(t, mentee, http.MethodPatch, "/api/conversations/"+conv.ID+"/messages/"+edited.Reply.ID, map[string]string{"content": "x"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var msg chat.Message
	rec = s.do(t, mentee, http.MethodPut, "/api/messages/"+edited.Reply.ID+"/reactions/helpful", nil, &msg)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, msg.Reactions.Has(chat.ReactionHelpful))

	rec = s.do(t, mentee, http.MethodDelete, "/api/messages/"+edited.Reply.ID+"/reactions/helpful", nil, &msg)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, msg.Reactions.Has(chat.ReactionHelpful))

	rec = s.do(t, mentee, http.MethodPut, "/api/messages/"+edited.Reply.ID+"/reactions/love", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestErrorResponses(t *testing.T) {
	s := newTestServer(t)

	var conv chat.Conversation
	s.do(t, mentee, http.MethodPost, "/api/conversations", map[string]string{"title": "Private"}, &conv)

	tests := []struct {
		name       string
		userID     string
		target     string
		wantStatus int
	}{
		{name: "foreign conversation", userID: outsider, target: "/api/conversations/" + conv.ID, wantStatus: http.StatusForbidden},
		{name: "unknown conversation", userID: mentee, target: "/api/conversations/missing", wantStatus: http.StatusNotFound},
		{name: "unknown branch", userID: mentee, target: "/api/branches/missing/messages", wantStatus: http.StatusNotFound},
		{name: "no token", target: "/api/conversations", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, tt.userID, http.MethodGet, tt.target, nil, nil)
			require.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

			var problem map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
			assert.EqualValues(t, tt.wantStatus, problem["status"])
		})
	}
}

func TestRoomFlow(t *testing.T) {
	s := newTestServer(t)

	var rm room.Room
	rec := s.do(t, mentee, http.MethodPost, "/api/rooms", map[string]any{"participant_ids": []string{mentee, mentor}}, &rm)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	for _, content := range []string{"Hi!", "Free on Friday?", "Thanks"} {
		rec = s.do(t, mentee, http.MethodPost, "/api/rooms/"+rm.ID+"/messages", map[string]string{"content": content}, nil)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	var page room.MessagePage
	s.do(t, mentor, http.MethodGet, "/api/rooms/"+rm.ID+"/messages?page=1&limit=2", nil, &page)
	assert.Len(t, page.Messages, 2)
	assert.True(t, page.HasMore)
	assert.Equal(t, 3, page.UnreadCount)

	var read room.ReadResult
	rec = s.do(t, mentor, http.MethodPost, "/api/rooms/"+rm.ID+"/read", nil, &read)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, read.MarkedRead)

	var summaries []room.Summary
	s.do(t, mentor, http.MethodGet, "/api/rooms", nil, &summaries)
	require.Len(t, summaries, 1)
	assert.Zero(t, summaries[0].UnreadCount)

	rec = s.do(t, mentee, http.MethodPost, "/api/rooms/"+rm.ID+"/typing", nil, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(t, outsider, http.MethodPost, "/api/rooms/"+rm.ID+"/typing", nil, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, mentor, http.MethodDelete, "/api/rooms/"+rm.ID, nil, &rm)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, rm.IsActive)

	rec = s.do(t, mentee, http.MethodPost, "/api/rooms/"+rm.ID+"/messages", map[string]string{"content": "hello?"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=500&page=x&offset=-3", nil)

	assert.Equal(t, 200, QueryInt(req, "limit", 50, 1, 200))
	assert.Equal(t, 1, QueryInt(req, "page", 1, 1, 100))
	assert.Equal(t, 0, QueryInt(req, "offset", 0, 0, 100))
	assert.Equal(t, 7, QueryInt(req, "missing", 7, 1, 100))
}

func TestRequireUser(t *testing.T) {
	rec := httptest.NewRecorder()
	_, ok := requireUser(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.False(t, ok)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httputil.WithUserID(httptest.NewRequest(http.MethodGet, "/", nil), mentee)
	userID, ok := requireUser(httptest.NewRecorder(), req)
	assert.True(t, ok)
	assert.Equal(t, mentee, userID)
}
