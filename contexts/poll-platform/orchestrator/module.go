package orchestrator

import (
	"log/slog"

	httpadapter "pollterra/contexts/poll-platform/orchestrator/adapters/http"
	"pollterra/contexts/poll-platform/orchestrator/adapters/memory"
	"pollterra/contexts/poll-platform/orchestrator/application/commands"
	"pollterra/contexts/poll-platform/orchestrator/application/queries"
	"pollterra/contexts/poll-platform/orchestrator/domain/entities"
	"pollterra/contexts/poll-platform/orchestrator/ports"
)

type Module struct {
	Handler   httpadapter.Handler
	Creations commands.CreationUseCase
	Admin     commands.AdminUseCase
	Store     *memory.Store
}

type Dependencies struct {
	Config    ports.ConfigRepository
	Pending   ports.PendingCreationRepository
	Registry  ports.PollRegistry
	Bank      ports.BankQuerier
	Addresses ports.AddressValidator
	Outbox    ports.OutboxWriter
	Clock     ports.Clock
	IDGen     ports.IDGenerator
	Logger    *slog.Logger
}

func NewModule(deps Dependencies) Module {
	creationUseCase := commands.CreationUseCase{
		Config:    deps.Config,
		Pending:   deps.Pending,
		Addresses: deps.Addresses,
		Clock:     deps.Clock,
		IDGen:     deps.IDGen,
		Logger:    deps.Logger,
	}
	adminUseCase := commands.AdminUseCase{
		Config:    deps.Config,
		Registry:  deps.Registry,
		Bank:      deps.Bank,
		Addresses: deps.Addresses,
		Outbox:    deps.Outbox,
		Clock:     deps.Clock,
		IDGen:     deps.IDGen,
		Logger:    deps.Logger,
	}
	platformUseCase := queries.PlatformUseCase{
		Config:   deps.Config,
		Registry: deps.Registry,
	}
	return Module{
		Handler: httpadapter.Handler{
			Creations: creationUseCase,
			Admin:     adminUseCase,
			Platform:  platformUseCase,
			Logger:    deps.Logger,
		},
		Creations: creationUseCase,
		Admin:     adminUseCase,
	}
}

func NewInMemoryModule(config entities.Config, logger *slog.Logger) Module {
	store := memory.NewStore(config)
	module := NewModule(Dependencies{
		Config:    store,
		Pending:   store,
		Registry:  store,
		Bank:      store,
		Addresses: store,
		Outbox:    store,
		Clock:     store,
		IDGen:     store,
		Logger:    logger,
	})
	module.Store = store
	return module
}
