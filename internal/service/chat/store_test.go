package chat

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pathway/internal/domain"
	"pathway/internal/domain/models/chat"
)

func TestAppendConcurrentWritersStayGapless(t *testing.T) {
	f := newFixture(t)
	conv := f.newConversation(t)
	line := chat.MainLine(conv.ID)

	const writers = 40
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			msg := &chat.Message{Role: chat.RoleUser, Content: "hello"}
			assert.NoError(t, f.store.Append(context.Background(), line, msg))
		}()
	}
	wg.Wait()

	msgs, err := f.store.Line(context.Background(), line)
	require.NoError(t, err)
	require.Len(t, msgs, writers)
	requireGapless(t, msgs)
}

func TestAppendBatchKeepsOrder(t *testing.T) {
	f := newFixture(t)
	conv := f.newConversation(t)
	line := chat.MainLine(conv.ID)

	a := &chat.Message{Role: chat.RoleUser, Content: "first"}
	b := &chat.Message{Role: chat.RoleAssistant, Content: "second"}
	require.NoError(t, f.store.Append(context.Background(), line, a, b))

	assert.Equal(t, 1, a.Sequence)
	assert.Equal(t, 2, b.Sequence)
	assert.Equal(t, conv.ID, b.ConversationID)
	assert.Nil(t, b.BranchID)
}

func TestForkRejectsMessageOutsideLine(t *testing.T) {
	f := newFixture(t)
	conv := f.newConversation(t)
	f.say(t, conv.ID, "hi")

	_, err := f.store.Fork(context.Background(), chat.MainLine(conv.ID), "missing", chat.BranchLine(conv.ID, "b-x"))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRewriteOnlyUserMessages(t *testing.T) {
	f := newFixture(t)
	conv := f.newConversation(t)
	ex := f.say(t, conv.ID, "hi")

	_, _, err := f.store.Rewrite(context.Background(), chat.MainLine(conv.ID), ex.Reply.ID, "changed")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, _, err = f.store.Rewrite(context.Background(), chat.BranchLine(conv.ID, "other"), ex.UserMessage.ID, "changed")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestReactHelpfulExcludesNotHelpful(t *testing.T) {
	f := newFixture(t)
	conv := f.newConversation(t)
	ex := f.say(t, conv.ID, "what should I learn?")

	msg, err := f.store.React(context.Background(), ex.Reply.ID, chat.ReactionHelpful, true)
	require.NoError(t, err)
	assert.True(t, msg.Reactions.Has(chat.ReactionHelpful))

	_, err = f.store.React(context.Background(), ex.Reply.ID, chat.ReactionStar, true)
	require.NoError(t, err)

	msg, err = f.store.React(context.Background(), ex.Reply.ID, chat.ReactionNotHelpful, true)
	require.NoError(t, err)
	assert.Equal(t, []chat.ReactionKind{chat.ReactionNotHelpful, chat.ReactionStar}, msg.Reactions.Kinds())

	msg, err = f.store.React(context.Background(), ex.Reply.ID, chat.ReactionStar, false)
	require.NoError(t, err)
	assert.Equal(t, []chat.ReactionKind{chat.ReactionNotHelpful}, msg.Reactions.Kinds())

	_, err = f.store.React(context.Background(), ex.Reply.ID, chat.ReactionKind(42), true)
	assert.ErrorIs(t, err, domain.ErrValidation)
}
