package chat

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pathway/internal/domain"
	"pathway/internal/domain/models/chat"
	chatSvc "pathway/internal/domain/services/chat"
)

func TestCreateConversationDefaultsTitle(t *testing.T) {
	f := newFixture(t)

	conv, err := f.conversations.CreateConversation(context.Background(), &chatSvc.CreateConversationRequest{UserID: owner})
	require.NoError(t, err)
	assert.Equal(t, defaultConversationTitle, conv.Title)
	assert.Nil(t, conv.CurrentBranchID)

	_, err = f.conversations.CreateConversation(context.Background(), &chatSvc.CreateConversationRequest{})
	assert.ErrorIs(t, err, domain.ErrValidation)

	list, err := f.conversations.ListConversations(context.Background(), owner)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestSendMessagePassesLineHistory(t *testing.T) {
	f := newFixture(t)
	conv := f.newConversation(t)

	f.say(t, conv.ID, "I want to move into UX research")
	ex := f.say(t, conv.ID, "where do I start?")

	assert.Equal(t, 3, ex.UserMessage.Sequence)
	assert.Equal(t, 4, ex.Reply.Sequence)
	assert.Equal(t, chat.RoleAssistant, ex.Reply.Role)
	assert.Nil(t, ex.ReplyError)

	last := f.provider.calls[len(f.provider.calls)-1]
	assert.Equal(t, []string{
		"I want to move into UX research",
		"re: I want to move into UX research",
		"where do I start?",
	}, contents(last))
}

func TestSendMessageCompletionFailureThenRetry(t *testing.T) {
	f := newFixture(t)
	conv := f.newConversation(t)
	f.provider.setFailing(true)

	ex, err := f.conversations.SendMessage(context.Background(), &chatSvc.SendMessageRequest{
		ConversationID: conv.ID,
		UserID:         owner,
		Content:        "review my resume",
		Attachments:    []chat.Attachment{{Name: "resume.pdf", URL: "https://files.example/resume.pdf"}},
	})
	require.NoError(t, err, "provider errors do not fail the exchange")
	require.NotNil(t, ex.ReplyError)
	assert.Contains(t, *ex.ReplyError, "scripted")
	assert.Nil(t, ex.Reply)

	msgs := f.viewed(t, conv.ID)
	require.Len(t, msgs, 1)
	assert.Equal(t, "resume.pdf", msgs[0].Attachments[0].Name)

	f.provider.setFailing(false)
	retried, err := f.conversations.RetryReply(context.Background(), conv.ID, owner)
	require.NoError(t, err)
	require.NotNil(t, retried.Reply)
	assert.Equal(t, 2, retried.Reply.Sequence)
	assert.Equal(t, msgs[0].ID, retried.UserMessage.ID)

	_, err = f.conversations.RetryReply(context.Background(), conv.ID, owner)
	assert.ErrorIs(t, err, domain.ErrValidation, "nothing to retry once answered")
}

func TestEditMessageTruncatesAndRegenerates(t *testing.T) {
	f := newFixture(t)
	conv, main := seedMain(t, f)

	ex, err := f.conversations.EditMessage(context.Background(), &chatSvc.EditMessageRequest{
		ConversationID: conv.ID,
		MessageID:      main[0].ID,
		UserID:         owner,
		Content:        "u1, but about data science",
	})
	require.NoError(t, err)
	assert.Equal(t, 3, ex.Truncated)
	require.NotNil(t, ex.UserMessage.EditedAt)
	require.NotNil(t, ex.Reply)

	msgs := f.viewed(t, conv.ID)
	assert.Equal(t, []string{"u1, but about data science", "re: u1, but about data science"}, contents(msgs))
	requireGapless(t, msgs)
	assert.Equal(t, main[0].ID, msgs[0].ID, "edit keeps the message id")

	_, err = f.conversations.EditMessage(context.Background(), &chatSvc.EditMessageRequest{
		ConversationID: conv.ID,
		MessageID:      msgs[1].ID,
		UserID:         owner,
		Content:        "rewrite the mentor",
	})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestForkAfterEditStartsFromEditedLine(t *testing.T) {
	f := newFixture(t)
	conv, main := seedMain(t, f)

	_, err := f.conversations.EditMessage(context.Background(), &chatSvc.EditMessageRequest{
		ConversationID: conv.ID,
		MessageID:      main[2].ID,
		UserID:         owner,
		Content:        "u2 again",
	})
	require.NoError(t, err)

	// a branch made after an edit starts from the edited line
	edited := f.viewed(t, conv.ID)
	alt := f.fork(t, conv.ID, edited[2].ID, "after-edit")
	assert.Equal(t, []string{"u1", "re: u1", "u2 again"}, contents(alt.Messages))
}

func TestSendMessageValidation(t *testing.T) {
	f := newFixture(t)
	conv := f.newConversation(t)

	tests := []struct {
		name string
		req  chatSvc.SendMessageRequest
	}{
		{name: "empty content", req: chatSvc.SendMessageRequest{ConversationID: conv.ID, UserID: owner}},
		{name: "too long", req: chatSvc.SendMessageRequest{ConversationID: conv.ID, UserID: owner, Content: strings.Repeat("a", 32001)}},
		{name: "attachment without url", req: chatSvc.SendMessageRequest{
			ConversationID: conv.ID, UserID: owner, Content: "hi",
			Attachments: []chat.Attachment{{Name: "cv.pdf"}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.conversations.SendMessage(context.Background(), &tt.req)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}

	assert.Empty(t, f.viewed(t, conv.ID))
}

func TestSetReaction(t *testing.T) {
	f := newFixture(t)
	conv := f.newConversation(t)
	ex := f.say(t, conv.ID, "should I get a certificate?")

	msg, err := f.conversations.SetReaction(context.Background(), &chatSvc.SetReactionRequest{
		MessageID: ex.Reply.ID,
		UserID:    owner,
		Kind:      chat.ReactionBookmark,
		On:        true,
	})
	require.NoError(t, err)
	assert.True(t, msg.Reactions.Has(chat.ReactionBookmark))

	_, err = f.conversations.SetReaction(context.Background(), &chatSvc.SetReactionRequest{
		MessageID: ex.Reply.ID,
		UserID:    stranger,
		Kind:      chat.ReactionStar,
		On:        true,
	})
	assert.ErrorIs(t, err, domain.ErrAccessDenied)

	_, err = f.conversations.SetReaction(context.Background(), &chatSvc.SetReactionRequest{
		MessageID: "missing",
		UserID:    owner,
		Kind:      chat.ReactionStar,
		On:        true,
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestConversationAccessDenied(t *testing.T) {
	f := newFixture(t)
	conv := f.newConversation(t)

	_, err := f.conversations.GetActiveLine(context.Background(), conv.ID, stranger)
	assert.ErrorIs(t, err, domain.ErrAccessDenied)

	_, err = f.conversations.SendMessage(context.Background(), &chatSvc.SendMessageRequest{
		ConversationID: conv.ID,
		UserID:         stranger,
		Content:        "hi",
	})
	assert.ErrorIs(t, err, domain.ErrAccessDenied)

	_, err = f.conversations.GetConversation(context.Background(), "missing", owner)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
