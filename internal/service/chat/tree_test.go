package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"pathway/internal/domain/models/chat"
)

func strPtr(s string) *string { return &s }

func TestThreadTreeArena(t *testing.T) {
	branches := []chat.Branch{
		{ID: "b1", ConversationID: "c1", ForkMessageID: "m2", IsActive: true},
		{ID: "b2", ConversationID: "c1", ForkMessageID: "m2", IsActive: true},
		{ID: "b3", ConversationID: "c1", ParentBranchID: strPtr("b1"), ForkMessageID: "b1-m3", IsActive: true},
		{ID: "b4", ConversationID: "c1", ForkMessageID: "m3", IsActive: false},
		{ID: "x1", ConversationID: "other", ForkMessageID: "m2", IsActive: true},
	}
	tree := NewThreadTree("c1", branches)

	_, ok := tree.Get("x1")
	assert.False(t, ok, "other conversations are ignored")

	_, err := tree.Active("b4")
	assert.Error(t, err)

	main := chat.MainLine("c1")
	msgs := []chat.Message{
		{ID: "m1", Sequence: 1},
		{ID: "m2", Sequence: 2},
		{ID: "m3", Sequence: 3},
	}
	assert.Equal(t, []chat.BranchPoint{
		{MessageID: "m2", Sequence: 2, BranchIDs: []string{"b1", "b2"}},
	}, tree.BranchPoints(main, msgs), "inactive b4 is hidden")

	assert.Len(t, tree.Children(chat.BranchLine("c1", "b1")), 1)
	assert.Equal(t, []string{"b1", "b3"}, tree.Lineage("b3"))
	assert.Equal(t, []string{"b2"}, tree.Lineage("b2"))
	assert.Empty(t, tree.Lineage("missing"))
}

func TestThreadTreeLineageStopsAtPurgedParent(t *testing.T) {
	tree := NewThreadTree("c1", []chat.Branch{
		{ID: "b3", ConversationID: "c1", ParentBranchID: strPtr("gone"), ForkMessageID: "x", IsActive: true},
	})
	assert.Equal(t, []string{"b3"}, tree.Lineage("b3"))
}
