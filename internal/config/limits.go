package config

const (
	// MaxConversationTitleLength fits PostgreSQL VARCHAR(255)
	MaxConversationTitleLength = 255

	// MaxBranchLabelLength keeps labels short enough for a tab strip
	MaxBranchLabelLength = 100

	// MaxMessageContentLength bounds one conversation message
	MaxMessageContentLength = 32000

	// MaxAttachmentsPerMessage bounds the attachment list of one message
	MaxAttachmentsPerMessage = 10

	// MaxRoomMessageLength bounds one room message
	MaxRoomMessageLength = 4000

	// MaxRoomParticipants bounds a room's membership. Mentor rooms are
	// one-to-one today; small groups are allowed.
	MaxRoomParticipants = 8

	// DefaultPageSize is used when a room history request has no limit
	DefaultPageSize = 50

	// MaxPageSize caps the limit of one room history page
	MaxPageSize = 200
)
