package treasury

import (
	"log/slog"

	httpadapter "pollterra/contexts/poll-platform/treasury/adapters/http"
	"pollterra/contexts/poll-platform/treasury/adapters/memory"
	"pollterra/contexts/poll-platform/treasury/application/commands"
	"pollterra/contexts/poll-platform/treasury/application/queries"
	"pollterra/contexts/poll-platform/treasury/domain/entities"
	"pollterra/contexts/poll-platform/treasury/ports"
)

type Module struct {
	Handler       httpadapter.Handler
	Allowances    commands.AllowanceUseCase
	Distributions commands.DistributionUseCase
	Store         *memory.Store
}

type Dependencies struct {
	Config        ports.ConfigRepository
	Allowances    ports.AllowanceRepository
	Distributions ports.DistributionRepository
	Bank          ports.BankQuerier
	Addresses     ports.AddressValidator
	Outbox        ports.OutboxWriter
	Clock         ports.Clock
	IDGen         ports.IDGenerator
	Logger        *slog.Logger
}

func NewModule(deps Dependencies) Module {
	allowanceUseCase := commands.AllowanceUseCase{
		Config:     deps.Config,
		Allowances: deps.Allowances,
		Addresses:  deps.Addresses,
		Clock:      deps.Clock,
		IDGen:      deps.IDGen,
		Logger:     deps.Logger,
	}
	distributionUseCase := commands.DistributionUseCase{
		Config:        deps.Config,
		Distributions: deps.Distributions,
		Bank:          deps.Bank,
		Addresses:     deps.Addresses,
		Outbox:        deps.Outbox,
		Clock:         deps.Clock,
		IDGen:         deps.IDGen,
		Logger:        deps.Logger,
	}
	treasuryUseCase := queries.TreasuryUseCase{
		Config:        deps.Config,
		Allowances:    deps.Allowances,
		Distributions: deps.Distributions,
		Bank:          deps.Bank,
	}
	return Module{
		Handler: httpadapter.Handler{
			Allowances:    allowanceUseCase,
			Distributions: distributionUseCase,
			Treasury:      treasuryUseCase,
			Logger:        deps.Logger,
		},
		Allowances:    allowanceUseCase,
		Distributions: distributionUseCase,
	}
}

func NewInMemoryModule(config entities.Config, logger *slog.Logger) Module {
	store := memory.NewStore(config)
	module := NewModule(Dependencies{
		Config:        store,
		Allowances:    store,
		Distributions: store,
		Bank:          store,
		Addresses:     store,
		Outbox:        store,
		Clock:         store,
		IDGen:         store,
		Logger:        logger,
	})
	module.Store = store
	return module
}
