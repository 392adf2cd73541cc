package chat

import (
	"time"
)

// Branch is an alternate line forked from a message of its parent line.
// Branches are stored as an arena keyed by id: ParentBranchID names the line
// the fork point lives in (nil = main) and ForkMessageID the message itself,
// so branch-of-a-branch needs no pointers between records.
type Branch struct {
	ID             string     `json:"id" db:"id"`
	ConversationID string     `json:"conversation_id" db:"conversation_id"`
	ParentBranchID *string    `json:"parent_branch_id,omitempty" db:"parent_branch_id"`
	ForkMessageID  string     `json:"fork_message_id" db:"fork_message_id"`
	Label          *string    `json:"label,omitempty" db:"label"`
	IsActive       bool       `json:"is_active" db:"is_active"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt      *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// ParentLine returns the line this branch was forked from
func (b *Branch) ParentLine() LineRef {
	if b.ParentBranchID == nil {
		return MainLine(b.ConversationID)
	}
	return BranchLine(b.ConversationID, *b.ParentBranchID)
}

// Line returns the branch's own line
func (b *Branch) Line() LineRef {
	return BranchLine(b.ConversationID, b.ID)
}

// BranchPoint is a message of a line with the active branches forked from it
type BranchPoint struct {
	MessageID string   `json:"message_id"`
	Sequence  int      `json:"sequence"`
	BranchIDs []string `json:"branch_ids"`
}

// BranchWithMessages is a branch together with its line. Lineage lists
// branch ids from the outermost ancestor branch down to this one.
type BranchWithMessages struct {
	Branch   *Branch   `json:"branch"`
	Lineage  []string  `json:"lineage"`
	Messages []Message `json:"messages"`
}
