package chat

import (
	"context"

	"pathway/internal/domain"
	"pathway/internal/domain/models/chat"
	chatRepo "pathway/internal/domain/repositories/chat"
)

// ThreadTree is a snapshot of one conversation's branch arena. Branches are
// held by id; a branch knows its parent line and fork message, and the
// tree indexes children per line so branch-of-a-branch needs no special
// case.
type ThreadTree struct {
	conversationID string
	branches       map[string]*chat.Branch
	children       map[string][]*chat.Branch // parent line key -> branches forked from it
}

// LoadThreadTree reads every branch of a conversation, including
// soft-deleted ones still inside their undo window
func LoadThreadTree(ctx context.Context, repo chatRepo.BranchRepository, conversationID string) (*ThreadTree, error) {
	branches, err := repo.ListBranches(ctx, conversationID, true)
	if err != nil {
		return nil, err
	}
	return NewThreadTree(conversationID, branches), nil
}

// NewThreadTree indexes branches of one conversation
func NewThreadTree(conversationID string, branches []chat.Branch) *ThreadTree {
	t := &ThreadTree{
		conversationID: conversationID,
		branches:       make(map[string]*chat.Branch, len(branches)),
		children:       make(map[string][]*chat.Branch),
	}
	for i := range branches {
		b := &branches[i]
		if b.ConversationID != conversationID {
			continue
		}
		t.branches[b.ID] = b
		key := b.ParentLine().Key()
		t.children[key] = append(t.children[key], b)
	}
	return t
}

// Get returns a branch regardless of state
func (t *ThreadTree) Get(branchID string) (*chat.Branch, bool) {
	b, ok := t.branches[branchID]
	return b, ok
}

// Active returns an active branch or a NotFoundError
func (t *ThreadTree) Active(branchID string) (*chat.Branch, error) {
	b, ok := t.branches[branchID]
	if !ok || !b.IsActive {
		return nil, domain.NewNotFound("branch", branchID)
	}
	return b, nil
}

// Children returns the active branches forked from a line
func (t *ThreadTree) Children(line chat.LineRef) []*chat.Branch {
	var out []*chat.Branch
	for _, b := range t.children[line.Key()] {
		if b.IsActive {
			out = append(out, b)
		}
	}
	return out
}

// Lineage returns the chain of branch ids from the root of branchID's
// ancestry down to branchID itself. Main is not included. A parent that was
// purged ends the chain.
func (t *ThreadTree) Lineage(branchID string) []string {
	var chain []string
	seen := make(map[string]bool)
	for id := branchID; id != "" && !seen[id]; {
		b, ok := t.branches[id]
		if !ok {
			break
		}
		seen[id] = true
		chain = append(chain, id)
		if b.ParentBranchID == nil {
			break
		}
		id = *b.ParentBranchID
	}

	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// BranchPoints lists, in line order, the messages of line that have at
// least one active branch forked from them
func (t *ThreadTree) BranchPoints(line chat.LineRef, msgs []chat.Message) []chat.BranchPoint {
	byMessage := make(map[string][]string)
	for _, b := range t.Children(line) {
		byMessage[b.ForkMessageID] = append(byMessage[b.ForkMessageID], b.ID)
	}

	points := []chat.BranchPoint{}
	for _, m := range msgs {
		ids, ok := byMessage[m.ID]
		if !ok {
			continue
		}
		points = append(points, chat.BranchPoint{
			MessageID: m.ID,
			Sequence:  m.Sequence,
			BranchIDs: ids,
		})
	}
	return points
}
