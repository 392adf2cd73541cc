package chat

import (
	"time"
)

// Role is the author of a message
type Role string

// Message role constants
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// Attachment is a file reference carried by a message
type Attachment struct {
	Name      string `json:"name"`
	URL       string `json:"url"`
	MimeType  string `json:"mime_type,omitempty"`
	SizeBytes int64  `json:"size_bytes,omitempty"`
}

// Message is one entry in a line. Sequence starts at 1 and is gapless within
// its line. Content is immutable except through edit, which truncates every
// later message of the same line.
type Message struct {
	ID              string       `json:"id" db:"id"`
	ConversationID  string       `json:"conversation_id" db:"conversation_id"`
	BranchID        *string      `json:"branch_id,omitempty" db:"branch_id"`
	Sequence        int          `json:"sequence" db:"sequence"`
	Role            Role         `json:"role" db:"role"`
	Content         string       `json:"content" db:"content"`
	Attachments     []Attachment `json:"attachments,omitempty" db:"attachments"`
	Reactions       ReactionSet  `json:"reactions" db:"reactions"`
	SourceMessageID *string      `json:"source_message_id,omitempty" db:"source_message_id"` // original message when copied at fork time
	CreatedAt       time.Time    `json:"created_at" db:"created_at"`
	EditedAt        *time.Time   `json:"edited_at,omitempty" db:"edited_at"`
}

// Line returns the line the message belongs to
func (m *Message) Line() LineRef {
	if m.BranchID == nil {
		return MainLine(m.ConversationID)
	}
	return BranchLine(m.ConversationID, *m.BranchID)
}

// CopyForLine clones m into another line at the given sequence. The copy
// keeps role, content, attachments, reactions and timestamp and points back
// at the message it was copied from.
func (m *Message) CopyForLine(line LineRef, sequence int) Message {
	source := m.ID
	if m.SourceMessageID != nil {
		source = *m.SourceMessageID
	}

	cp := *m
	cp.ID = ""
	cp.ConversationID = line.ConversationID
	cp.BranchID = line.BranchID
	cp.Sequence = sequence
	cp.SourceMessageID = &source
	if m.Attachments != nil {
		cp.Attachments = append([]Attachment(nil), m.Attachments...)
	}
	return cp
}
