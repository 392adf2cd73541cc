package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"pathway/internal/config"
	"pathway/internal/domain"
	"pathway/internal/domain/models/chat"
	chatRepo "pathway/internal/domain/repositories/chat"
	"pathway/internal/domain/services"
	chatSvc "pathway/internal/domain/services/chat"
)

const defaultConversationTitle = "New conversation"

// completionTimeout bounds one provider call. The exchange outlives the
// request context so a client leaving mid-send still gets its reply stored.
const completionTimeout = 2 * time.Minute

// ConversationService implements the conversation lifecycle and the
// exchange flow (user message, then mentor reply) on the viewed line
type ConversationService struct {
	conversations chatRepo.ConversationRepository
	store         *MessageStore
	provider      chatSvc.CompletionProvider
	authorizer    services.ResourceAuthorizer
	logger        *slog.Logger
}

// NewConversationService creates a conversation service
func NewConversationService(
	conversations chatRepo.ConversationRepository,
	store *MessageStore,
	provider chatSvc.CompletionProvider,
	authorizer services.ResourceAuthorizer,
	logger *slog.Logger,
) *ConversationService {
	return &ConversationService{
		conversations: conversations,
		store:         store,
		provider:      provider,
		authorizer:    authorizer,
		logger:        logger,
	}
}

var _ chatSvc.ConversationService = (*ConversationService)(nil)

// CreateConversation starts a conversation owned by the caller
func (s *ConversationService) CreateConversation(ctx context.Context, req *chatSvc.CreateConversationRequest) (*chat.Conversation, error) {
	req.Title = strings.TrimSpace(req.Title)
	if err := validation.ValidateStruct(req,
		validation.Field(&req.UserID, validation.Required),
		validation.Field(&req.Title, validation.Length(0, config.MaxConversationTitleLength)),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	title := req.Title
	if title == "" {
		title = defaultConversationTitle
	}

	now := s.store.Now()
	conv := &chat.Conversation{
		OwnerID:   req.UserID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.conversations.CreateConversation(ctx, conv); err != nil {
		return nil, err
	}

	s.logger.Info("conversation created",
		"id", conv.ID,
		"owner_id", conv.OwnerID,
	)

	return conv, nil
}

// GetConversation returns a conversation the caller owns
func (s *ConversationService) GetConversation(ctx context.Context, conversationID, userID string) (*chat.Conversation, error) {
	return s.authorizer.CanAccessConversation(ctx, userID, conversationID)
}

// ListConversations returns the caller's conversations
func (s *ConversationService) ListConversations(ctx context.Context, userID string) ([]chat.Conversation, error) {
	return s.conversations.ListConversations(ctx, userID)
}

// GetActiveLine returns the messages of the viewed line
func (s *ConversationService) GetActiveLine(ctx context.Context, conversationID, userID string) ([]chat.Message, error) {
	conv, err := s.authorizer.CanAccessConversation(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}
	return s.store.Line(ctx, conv.ActiveLine())
}

// SendMessage appends the user message and then the mentor reply
func (s *ConversationService) SendMessage(ctx context.Context, req *chatSvc.SendMessageRequest) (*chat.Exchange, error) {
	if err := validateSendMessageRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	conv, err := s.authorizer.CanAccessConversation(ctx, req.UserID, req.ConversationID)
	if err != nil {
		return nil, err
	}

	line := conv.ActiveLine()
	userMsg := &chat.Message{
		Role:        chat.RoleUser,
		Content:     req.Content,
		Attachments: req.Attachments,
	}
	if err := s.store.Append(ctx, line, userMsg); err != nil {
		return nil, err
	}

	s.logger.Info("message appended",
		"id", userMsg.ID,
		"line", line.Key(),
		"sequence", userMsg.Sequence,
	)

	exchange := &chat.Exchange{Line: line, UserMessage: userMsg}
	if err := s.reply(ctx, exchange, userMsg.Sequence); err != nil {
		return nil, err
	}

	s.touch(ctx, conv.ID)
	return exchange, nil
}

// RetryReply regenerates the reply when the viewed line ends with a user
// message, typically after a CompletionFailure
func (s *ConversationService) RetryReply(ctx context.Context, conversationID, userID string) (*chat.Exchange, error) {
	conv, err := s.authorizer.CanAccessConversation(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}

	line := conv.ActiveLine()
	msgs, err := s.store.Line(ctx, line)
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 || msgs[len(msgs)-1].Role != chat.RoleUser {
		return nil, &domain.ValidationError{Message: "line does not end with a user message"}
	}

	last := msgs[len(msgs)-1]
	exchange := &chat.Exchange{Line: line, UserMessage: &last}
	if err := s.reply(ctx, exchange, last.Sequence); err != nil {
		return nil, err
	}

	s.touch(ctx, conv.ID)
	return exchange, nil
}

// EditMessage rewrites a user message on the viewed line, drops everything
// after it and appends a fresh reply
func (s *ConversationService) EditMessage(ctx context.Context, req *chatSvc.EditMessageRequest) (*chat.Exchange, error) {
	if err := validation.ValidateStruct(req,
		validation.Field(&req.ConversationID, validation.Required),
		validation.Field(&req.MessageID, validation.Required),
		validation.Field(&req.UserID, validation.Required),
		validation.Field(&req.Content, validation.Required, validation.Length(1, config.MaxMessageContentLength)),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	conv, err := s.authorizer.CanAccessConversation(ctx, req.UserID, req.ConversationID)
	if err != nil {
		return nil, err
	}

	line := conv.ActiveLine()
	edited, truncated, err := s.store.Rewrite(ctx, line, req.MessageID, req.Content)
	if err != nil {
		return nil, err
	}

	exchange := &chat.Exchange{Line: line, UserMessage: edited, Truncated: truncated}
	if err := s.reply(ctx, exchange, edited.Sequence); err != nil {
		return nil, err
	}

	s.touch(ctx, conv.ID)
	return exchange, nil
}

// SetReaction adds or removes one reaction on a message of the caller's
func (s *ConversationService) SetReaction(ctx context.Context, req *chatSvc.SetReactionRequest) (*chat.Message, error) {
	if !req.Kind.Valid() {
		return nil, &domain.ValidationError{Message: "unknown reaction kind"}
	}

	if _, err := s.authorizer.CanAccessMessage(ctx, req.UserID, req.MessageID); err != nil {
		return nil, err
	}

	msg, err := s.store.React(ctx, req.MessageID, req.Kind, req.On)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("reaction set",
		"message_id", msg.ID,
		"kind", req.Kind.String(),
		"on", req.On,
	)

	return msg, nil
}

// reply asks the provider for the next assistant message given the line up
// to and including sequence through. A provider error is recorded on the
// exchange; only storage errors are returned.
func (s *ConversationService) reply(ctx context.Context, exchange *chat.Exchange, through int) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), completionTimeout)
	defer cancel()

	msgs, err := s.store.Line(ctx, exchange.Line)
	if err != nil {
		return err
	}

	history := make([]chat.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.Sequence <= through {
			history = append(history, m)
		}
	}

	text, err := s.provider.Complete(ctx, history)
	if err != nil {
		failure := &domain.CompletionFailure{Provider: s.provider.Name(), Err: err}
		s.logger.Warn("reply failed",
			"line", exchange.Line.Key(),
			"provider", failure.Provider,
			"error", err,
		)
		msg := failure.Error()
		exchange.ReplyError = &msg
		return nil
	}

	reply := &chat.Message{Role: chat.RoleAssistant, Content: text}
	if err := s.store.Append(ctx, exchange.Line, reply); err != nil {
		return err
	}
	exchange.Reply = reply
	return nil
}

// touch bumps updated_at; failures only cost list ordering
func (s *ConversationService) touch(ctx context.Context, conversationID string) {
	if err := s.conversations.TouchConversation(ctx, conversationID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		s.logger.Warn("touch conversation failed", "id", conversationID, "error", err)
	}
}

func validateSendMessageRequest(req *chatSvc.SendMessageRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.ConversationID, validation.Required),
		validation.Field(&req.UserID, validation.Required),
		validation.Field(&req.Content, validation.Required, validation.Length(1, config.MaxMessageContentLength)),
		validation.Field(&req.Attachments, validation.Length(0, config.MaxAttachmentsPerMessage), validation.Each(validation.By(validateAttachment))),
	)
}

func validateAttachment(value interface{}) error {
	a, ok := value.(chat.Attachment)
	if !ok {
		return errors.New("invalid attachment")
	}
	return validation.ValidateStruct(&a,
		validation.Field(&a.Name, validation.Required),
		validation.Field(&a.URL, validation.Required),
		validation.Field(&a.SizeBytes, validation.Min(int64(0))),
	)
}
