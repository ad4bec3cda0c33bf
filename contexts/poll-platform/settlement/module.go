package settlement

import (
	"log/slog"

	httpadapter "pollterra/contexts/poll-platform/settlement/adapters/http"
	"pollterra/contexts/poll-platform/settlement/adapters/memory"
	"pollterra/contexts/poll-platform/settlement/application/commands"
	"pollterra/contexts/poll-platform/settlement/application/queries"
	"pollterra/contexts/poll-platform/settlement/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Votes   commands.VoteUseCase
	Settles commands.SettleUseCase
	Store   *memory.Store
}

type Dependencies struct {
	Polls     ports.PollRepository
	Addresses ports.AddressValidator
	Clock     ports.Clock
	IDGen     ports.IDGenerator
	Logger    *slog.Logger
}

func NewModule(deps Dependencies) Module {
	voteUseCase := commands.VoteUseCase{
		Polls:     deps.Polls,
		Addresses: deps.Addresses,
		Clock:     deps.Clock,
		IDGen:     deps.IDGen,
		Logger:    deps.Logger,
	}
	settleUseCase := commands.SettleUseCase{
		Polls:     deps.Polls,
		Addresses: deps.Addresses,
		Clock:     deps.Clock,
		IDGen:     deps.IDGen,
		Logger:    deps.Logger,
	}
	pollUseCase := queries.PollUseCase{Polls: deps.Polls}
	return Module{
		Handler: httpadapter.Handler{
			Votes:   voteUseCase,
			Settles: settleUseCase,
			Polls:   pollUseCase,
			Logger:  deps.Logger,
		},
		Votes:   voteUseCase,
		Settles: settleUseCase,
	}
}

func NewInMemoryModule(logger *slog.Logger) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Polls:     store,
		Addresses: store,
		Clock:     store,
		IDGen:     store,
		Logger:    logger,
	})
	module.Store = store
	return module
}
