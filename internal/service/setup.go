package service

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"pathway/internal/clock"
	"pathway/internal/config"
	"pathway/internal/domain/repositories"
	chatRepo "pathway/internal/domain/repositories/chat"
	roomRepo "pathway/internal/domain/repositories/room"
	"pathway/internal/domain/services"
	chatSvc "pathway/internal/domain/services/chat"
	roomSvc "pathway/internal/domain/services/room"
	"pathway/internal/repository/memory"
	"pathway/internal/repository/postgres"
	postgresChat "pathway/internal/repository/postgres/chat"
	postgresRoom "pathway/internal/repository/postgres/room"
	authsvc "pathway/internal/service/auth"
	"pathway/internal/service/chat"
	"pathway/internal/service/room"
	"pathway/internal/service/undo"
)

// Repositories holds every repository the services need
type Repositories struct {
	Conversations chatRepo.ConversationRepository
	Messages      chatRepo.MessageRepository
	Branches      chatRepo.BranchRepository
	Rooms         roomRepo.RoomRepository
	RoomMessages  roomRepo.MessageRepository
	Tx            repositories.TransactionManager
}

// NewMemoryRepositories builds process-local repositories over db
func NewMemoryRepositories(db *memory.DB) *Repositories {
	return &Repositories{
		Conversations: memory.NewConversationRepository(db),
		Messages:      memory.NewMessageRepository(db),
		Branches:      memory.NewBranchRepository(db),
		Rooms:         memory.NewRoomRepository(db),
		RoomMessages:  memory.NewRoomMessageRepository(db),
		Tx:            memory.NewTransactionManager(db),
	}
}

// NewPostgresRepositories builds repositories over a pgx pool
func NewPostgresRepositories(cfg *postgres.RepositoryConfig) *Repositories {
	return &Repositories{
		Conversations: postgresChat.NewConversationRepository(cfg),
		Messages:      postgresChat.NewMessageRepository(cfg),
		Branches:      postgresChat.NewBranchRepository(cfg),
		Rooms:         postgresRoom.NewRoomRepository(cfg),
		RoomMessages:  postgresRoom.NewMessageRepository(cfg),
		Tx:            postgres.NewTransactionManager(cfg.Pool, cfg.Logger),
	}
}

// Services is the thin façade the HTTP layer talks to
type Services struct {
	Conversations chatSvc.ConversationService
	Branches      chatSvc.BranchService
	Rooms         roomSvc.RoomService
	Authorizer    services.ResourceAuthorizer

	// Undo owns the pending branch purges; flush it on shutdown
	Undo *undo.Stager
}

// SetupServices wires the chat and room services with dependency injection
func SetupServices(
	repos *Repositories,
	provider chatSvc.CompletionProvider,
	cfg *config.Config,
	c clock.Clock,
	reg prometheus.Registerer,
	logger *slog.Logger,
) *Services {
	authorizer := authsvc.NewOwnerBasedAuthorizer(repos.Conversations, repos.Branches, repos.Messages, repos.Rooms)

	store := chat.NewMessageStore(repos.Messages, repos.Tx, c, logger)
	stager := undo.NewStager(c, cfg.BranchUndoWindow, logger)

	conversations := chat.NewConversationService(repos.Conversations, store, provider, authorizer, logger)
	branches := chat.NewBranchManager(repos.Conversations, repos.Branches, store, repos.Tx, authorizer, stager, logger)

	metrics := room.NewMetrics(reg)
	components := room.NewComponents(repos.RoomMessages, repos.Tx, c, cfg.TypingWindow, metrics, logger)
	rooms := room.NewService(repos.Rooms, repos.RoomMessages, repos.Tx, authorizer, components, c, logger)

	logger.Info("services initialized",
		"completion_provider", provider.Name(),
		"branch_undo_window", cfg.BranchUndoWindow,
		"typing_window", cfg.TypingWindow,
	)

	return &Services{
		Conversations: conversations,
		Branches:      branches,
		Rooms:         rooms,
		Authorizer:    authorizer,
		Undo:          stager,
	}
}
