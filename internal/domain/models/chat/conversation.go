package chat

import (
	"time"
)

// Conversation is a user's chat with the AI mentor. Its messages without a
// branch id form the main line.
type Conversation struct {
	ID              string    `json:"id" db:"id"`
	OwnerID         string    `json:"owner_id" db:"owner_id"`
	Title           string    `json:"title" db:"title"`
	CurrentBranchID *string   `json:"current_branch_id" db:"current_branch_id"` // nil = viewing main
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// ActiveLine returns the line currently selected by the view pointer
func (c *Conversation) ActiveLine() LineRef {
	if c.CurrentBranchID == nil {
		return MainLine(c.ID)
	}
	return BranchLine(c.ID, *c.CurrentBranchID)
}

// IsViewingBranch reports whether the view pointer selects the given branch
func (c *Conversation) IsViewingBranch(branchID string) bool {
	return c.CurrentBranchID != nil && *c.CurrentBranchID == branchID
}

// LineRef identifies one ordered message sequence: the main line of a
// conversation or a single branch.
type LineRef struct {
	ConversationID string  `json:"conversation_id"`
	BranchID       *string `json:"branch_id,omitempty"`
}

// MainLine returns the main line of a conversation
func MainLine(conversationID string) LineRef {
	return LineRef{ConversationID: conversationID}
}

// BranchLine returns the line owned by a branch
func BranchLine(conversationID, branchID string) LineRef {
	id := branchID
	return LineRef{ConversationID: conversationID, BranchID: &id}
}

// IsMain reports whether the ref points at the main line
func (l LineRef) IsMain() bool {
	return l.BranchID == nil
}

// Key is a stable string used for per-line locking
func (l LineRef) Key() string {
	if l.BranchID == nil {
		return "main:" + l.ConversationID
	}
	return "branch:" + *l.BranchID
}

// Exchange is the result of one user submission on a line: the stored user
// message and either the assistant reply or the reason the reply failed.
type Exchange struct {
	Line        LineRef  `json:"line"`
	UserMessage *Message `json:"user_message,omitempty"`
	Reply       *Message `json:"reply,omitempty"`
	ReplyError  *string  `json:"reply_error,omitempty"`
	Truncated   int      `json:"truncated,omitempty"` // messages removed by an edit
}
