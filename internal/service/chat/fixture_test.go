package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"pathway/internal/clock"
	"pathway/internal/domain/models/chat"
	chatRepo "pathway/internal/domain/repositories/chat"
	chatSvc "pathway/internal/domain/services/chat"
	"pathway/internal/repository/memory"
	authsvc "pathway/internal/service/auth"
	"pathway/internal/service/undo"
)

const (
	owner    = "user-1"
	stranger = "user-2"
)

// scriptedProvider replies "re: <last user content>" or fails while failing is set
type scriptedProvider struct {
	mu      sync.Mutex
	failing bool
	calls   [][]chat.Message
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Complete(ctx context.Context, history []chat.Message) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, history)
	if p.failing {
		return "", errors.New("upstream overloaded")
	}
	return "re: " + history[len(history)-1].Content, nil
}

func (p *scriptedProvider) setFailing(v bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failing = v
}

type fixture struct {
	clock         *clock.Fake
	provider      *scriptedProvider
	store         *MessageStore
	branches      *BranchManager
	conversations *ConversationService
	messageRepo   chatRepo.MessageRepository
	branchRepo    chatRepo.BranchRepository
	convRepo      chatRepo.ConversationRepository
}

const undoWindow = 5 * time.Second

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	fake := clock.NewFake(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))

	db := memory.NewDB()
	txManager := memory.NewTransactionManager(db)
	convRepo := memory.NewConversationRepository(db)
	messageRepo := memory.NewMessageRepository(db)
	branchRepo := memory.NewBranchRepository(db)
	roomRepo := memory.NewRoomRepository(db)

	authorizer := authsvc.NewOwnerBasedAuthorizer(convRepo, branchRepo, messageRepo, roomRepo)
	store := NewMessageStore(messageRepo, txManager, fake, logger)
	provider := &scriptedProvider{}

	return &fixture{
		clock:         fake,
		provider:      provider,
		store:         store,
		branches:      NewBranchManager(convRepo, branchRepo, store, txManager, authorizer, undo.NewStager(fake, undoWindow, logger), logger),
		conversations: NewConversationService(convRepo, store, provider, authorizer, logger),
		messageRepo:   messageRepo,
		branchRepo:    branchRepo,
		convRepo:      convRepo,
	}
}

func (f *fixture) newConversation(t *testing.T) *chat.Conversation {
	t.Helper()
	conv, err := f.conversations.CreateConversation(context.Background(), &chatSvc.CreateConversationRequest{
		UserID: owner,
		Title:  "Switching to product management",
	})
	require.NoError(t, err)
	return conv
}

// say sends one user message on the viewed line and requires a reply
func (f *fixture) say(t *testing.T, conversationID, content string) *chat.Exchange {
	t.Helper()
	ex, err := f.conversations.SendMessage(context.Background(), &chatSvc.SendMessageRequest{
		ConversationID: conversationID,
		UserID:         owner,
		Content:        content,
	})
	require.NoError(t, err)
	require.NotNil(t, ex.Reply)
	return ex
}

func (f *fixture) viewed(t *testing.T, conversationID string) []chat.Message {
	t.Helper()
	msgs, err := f.conversations.GetActiveLine(context.Background(), conversationID, owner)
	require.NoError(t, err)
	return msgs
}

func contents(msgs []chat.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Content
	}
	return out
}

func requireGapless(t *testing.T, msgs []chat.Message) {
	t.Helper()
	for i, m := range msgs {
		require.Equal(t, i+1, m.Sequence, fmt.Sprintf("message %d (%s)", i, m.ID))
	}
}

func label(s string) *string { return &s }
