package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"pathway/internal/domain"
	"pathway/internal/domain/models/chat"
	chatRepo "pathway/internal/domain/repositories/chat"
)

// ConversationRepository implements chatRepo.ConversationRepository in memory
type ConversationRepository struct {
	db *DB
}

// NewConversationRepository creates a conversation repository over db
func NewConversationRepository(db *DB) chatRepo.ConversationRepository {
	return &ConversationRepository{db: db}
}

func (r *ConversationRepository) CreateConversation(ctx context.Context, conv *chat.Conversation) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if conv.ID == "" {
		conv.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = now
	}
	conv.UpdatedAt = conv.CreatedAt

	stored := *conv
	r.db.conversations[conv.ID] = &stored
	return nil
}

func (r *ConversationRepository) GetConversation(ctx context.Context, conversationID string) (*chat.Conversation, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	conv, ok := r.db.conversations[conversationID]
	if !ok {
		return nil, domain.NewNotFound("conversation", conversationID)
	}
	out := *conv
	return &out, nil
}

func (r *ConversationRepository) ListConversations(ctx context.Context, ownerID string) ([]chat.Conversation, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	convs := []chat.Conversation{}
	for _, c := range r.db.conversations {
		if c.OwnerID == ownerID {
			convs = append(convs, *c)
		}
	}
	sort.Slice(convs, func(i, j int) bool {
		return convs[i].UpdatedAt.After(convs[j].UpdatedAt)
	})
	return convs, nil
}

func (r *ConversationRepository) UpdateView(ctx context.Context, conversationID string, branchID *string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	conv, ok := r.db.conversations[conversationID]
	if !ok {
		return domain.NewNotFound("conversation", conversationID)
	}
	if branchID == nil {
		conv.CurrentBranchID = nil
	} else {
		id := *branchID
		conv.CurrentBranchID = &id
	}
	return nil
}

func (r *ConversationRepository) TouchConversation(ctx context.Context, conversationID string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	conv, ok := r.db.conversations[conversationID]
	if !ok {
		return domain.NewNotFound("conversation", conversationID)
	}
	conv.UpdatedAt = time.Now().UTC()
	return nil
}

// MessageRepository implements chatRepo.MessageRepository in memory
type MessageRepository struct {
	db *DB
}

// NewMessageRepository creates a line message repository over db
func NewMessageRepository(db *DB) chatRepo.MessageRepository {
	return &MessageRepository{db: db}
}

func sameLine(m *chat.Message, line chat.LineRef) bool {
	if m.ConversationID != line.ConversationID {
		return false
	}
	if m.BranchID == nil || line.BranchID == nil {
		return m.BranchID == nil && line.BranchID == nil
	}
	return *m.BranchID == *line.BranchID
}

func copyMessage(m *chat.Message) chat.Message {
	out := *m
	if m.Attachments != nil {
		out.Attachments = append([]chat.Attachment(nil), m.Attachments...)
	}
	return out
}

func (r *MessageRepository) LockLine(ctx context.Context, line chat.LineRef) error {
	r.db.lockForTx(ctx, line.Key())
	return nil
}

func (r *MessageRepository) LastSequence(ctx context.Context, line chat.LineRef) (int, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	last := 0
	for _, m := range r.db.messages {
		if sameLine(m, line) && m.Sequence > last {
			last = m.Sequence
		}
	}
	return last, nil
}

func (r *MessageRepository) InsertMessages(ctx context.Context, messages []*chat.Message) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, m := range messages {
		for _, existing := range r.db.messages {
			if sameLine(existing, m.Line()) && existing.Sequence == m.Sequence {
				return fmt.Errorf("insert message: sequence %d already taken in %s: %w", m.Sequence, m.Line().Key(), domain.ErrConflict)
			}
		}
		if m.ID == "" {
			m.ID = uuid.NewString()
		}
		stored := copyMessage(m)
		r.db.messages[m.ID] = &stored
	}
	return nil
}

func (r *MessageRepository) GetMessage(ctx context.Context, messageID string) (*chat.Message, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	m, ok := r.db.messages[messageID]
	if !ok {
		return nil, domain.NewNotFound("message", messageID)
	}
	out := copyMessage(m)
	return &out, nil
}

func (r *MessageRepository) ListLine(ctx context.Context, line chat.LineRef) ([]chat.Message, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	msgs := []chat.Message{}
	for _, m := range r.db.messages {
		if sameLine(m, line) {
			msgs = append(msgs, copyMessage(m))
		}
	}
	sort.Slice(msgs, func(i, j int) bool { return msgs[i].Sequence < msgs[j].Sequence })
	return msgs, nil
}

func (r *MessageRepository) TruncateAfter(ctx context.Context, line chat.LineRef, after int) (int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	removed := 0
	for id, m := range r.db.messages {
		if sameLine(m, line) && m.Sequence > after {
			delete(r.db.messages, id)
			removed++
		}
	}
	return removed, nil
}

func (r *MessageRepository) UpdateContent(ctx context.Context, messageID, content string, editedAt time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	m, ok := r.db.messages[messageID]
	if !ok {
		return domain.NewNotFound("message", messageID)
	}
	m.Content = content
	at := editedAt
	m.EditedAt = &at
	return nil
}

func (r *MessageRepository) UpdateReactions(ctx context.Context, messageID string, reactions chat.ReactionSet) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	m, ok := r.db.messages[messageID]
	if !ok {
		return domain.NewNotFound("message", messageID)
	}
	m.Reactions = reactions
	return nil
}

func (r *MessageRepository) DeleteLine(ctx context.Context, line chat.LineRef) (int, error) {
	return r.TruncateAfter(ctx, line, 0)
}

// BranchRepository implements chatRepo.BranchRepository in memory
type BranchRepository struct {
	db *DB
}

// NewBranchRepository creates a branch repository over db
func NewBranchRepository(db *DB) chatRepo.BranchRepository {
	return &BranchRepository{db: db}
}

func copyBranch(b *chat.Branch) *chat.Branch {
	out := *b
	return &out
}

func (r *BranchRepository) CreateBranch(ctx context.Context, branch *chat.Branch) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if branch.ID == "" {
		branch.ID = uuid.NewString()
	}
	if branch.CreatedAt.IsZero() {
		branch.CreatedAt = time.Now().UTC()
	}
	if branch.UpdatedAt.IsZero() {
		branch.UpdatedAt = branch.CreatedAt
	}
	r.db.branches[branch.ID] = copyBranch(branch)
	return nil
}

func (r *BranchRepository) GetBranch(ctx context.Context, branchID string) (*chat.Branch, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	b, ok := r.db.branches[branchID]
	if !ok {
		return nil, domain.NewNotFound("branch", branchID)
	}
	return copyBranch(b), nil
}

func (r *BranchRepository) ListBranches(ctx context.Context, conversationID string, includeInactive bool) ([]chat.Branch, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	branches := []chat.Branch{}
	for _, b := range r.db.branches {
		if b.ConversationID != conversationID {
			continue
		}
		if !b.IsActive && !includeInactive {
			continue
		}
		branches = append(branches, *b)
	}
	sort.Slice(branches, func(i, j int) bool {
		if branches[i].CreatedAt.Equal(branches[j].CreatedAt) {
			return branches[i].ID < branches[j].ID
		}
		return branches[i].CreatedAt.Before(branches[j].CreatedAt)
	})
	return branches, nil
}

func (r *BranchRepository) UpdateBranch(ctx context.Context, branch *chat.Branch) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.branches[branch.ID]; !ok {
		return domain.NewNotFound("branch", branch.ID)
	}
	r.db.branches[branch.ID] = copyBranch(branch)
	return nil
}

func (r *BranchRepository) PurgeBranch(ctx context.Context, branchID string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.branches[branchID]; !ok {
		return domain.NewNotFound("branch", branchID)
	}
	delete(r.db.branches, branchID)
	return nil
}
