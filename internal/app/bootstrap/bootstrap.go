package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	orchestrator "pollterra/contexts/poll-platform/orchestrator"
	orchestratorpostgres "pollterra/contexts/poll-platform/orchestrator/adapters/postgres"
	orchestratorworkers "pollterra/contexts/poll-platform/orchestrator/application/workers"
	orchestratorentities "pollterra/contexts/poll-platform/orchestrator/domain/entities"
	orchestratorerrors "pollterra/contexts/poll-platform/orchestrator/domain/errors"
	orchestratorports "pollterra/contexts/poll-platform/orchestrator/ports"
	settlement "pollterra/contexts/poll-platform/settlement"
	settlementpostgres "pollterra/contexts/poll-platform/settlement/adapters/postgres"
	settlementworkers "pollterra/contexts/poll-platform/settlement/application/workers"
	settlementerrors "pollterra/contexts/poll-platform/settlement/domain/errors"
	settlementports "pollterra/contexts/poll-platform/settlement/ports"
	treasury "pollterra/contexts/poll-platform/treasury"
	treasurypostgres "pollterra/contexts/poll-platform/treasury/adapters/postgres"
	treasuryworkers "pollterra/contexts/poll-platform/treasury/application/workers"
	treasuryentities "pollterra/contexts/poll-platform/treasury/domain/entities"
	treasuryerrors "pollterra/contexts/poll-platform/treasury/domain/errors"
	treasuryports "pollterra/contexts/poll-platform/treasury/ports"
	"pollterra/internal/platform/bank"
	"pollterra/internal/platform/config"
	"pollterra/internal/platform/db"
	"pollterra/internal/platform/httpserver"
	"pollterra/internal/platform/messaging"
	"pollterra/internal/shared/events"
)

// Package bootstrap is the composition root. Keep construction and wiring
// here so context code stays framework-agnostic.

type APIApp struct {
	server   *httpserver.Server
	postgres *db.Postgres
	logger   *slog.Logger
}

type WorkerApp struct {
	postgres *db.Postgres

	orchestratorRelay orchestratorworkers.OutboxRelay
	settlementRelay   settlementworkers.OutboxRelay
	treasuryRelay     treasuryworkers.OutboxRelay

	ackConsumer      orchestratorworkers.AcknowledgementConsumer
	instanceConsumer settlementworkers.InstantiationConsumer
	finishConsumer   settlementworkers.FinishConsumer

	enableAckConsumer      bool
	enableInstanceConsumer bool
	enableFinishConsumer   bool

	pollInterval time.Duration
	logger       *slog.Logger
}

func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	orchestratorModule, settlementModule, treasuryModule := buildModules(pg, logger)
	if err := seedConfigs(cfg, pg, logger); err != nil {
		_ = pg.Close()
		return nil, err
	}

	server := httpserver.New(orchestratorModule, settlementModule, treasuryModule, logger, normalizeAddr(cfg.HTTPPort))
	return &APIApp{
		server:   server,
		postgres: pg,
		logger:   logger,
	}, nil
}

func BuildWorker() (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	bus, err := messaging.NewBus(cfg.BusBrokers, logger)
	if err != nil {
		_ = pg.Close()
		return nil, err
	}

	orchestratorModule, settlementModule, _ := buildModules(pg, logger)
	orchestratorRepo := orchestratorpostgres.NewRepository(pg.DB, logger)
	settlementRepo := settlementpostgres.NewRepository(pg.DB, logger)
	treasuryRepo := treasurypostgres.NewRepository(pg.DB, logger)

	return &WorkerApp{
		postgres: pg,
		orchestratorRelay: orchestratorworkers.OutboxRelay{
			Outbox:    orchestratorRepo,
			Publisher: orchestratorBus{bus},
			Clock:     orchestratorpostgres.SystemClock{},
			Logger:    logger,
		},
		settlementRelay: settlementworkers.OutboxRelay{
			Outbox:    settlementRepo,
			Publisher: settlementBus{bus},
			Clock:     settlementpostgres.SystemClock{},
			Logger:    logger,
		},
		treasuryRelay: treasuryworkers.OutboxRelay{
			Outbox:    treasuryRepo,
			Publisher: treasuryBus{bus},
			Clock:     treasurypostgres.SystemClock{},
			Logger:    logger,
		},
		ackConsumer: orchestratorworkers.AcknowledgementConsumer{
			Subscriber: orchestratorBus{bus},
			Dedup:      orchestratorRepo,
			Creations:  orchestratorModule.Creations,
			Clock:      orchestratorpostgres.SystemClock{},
			Logger:     logger,
		},
		instanceConsumer: settlementworkers.InstantiationConsumer{
			Subscriber:   settlementBus{bus},
			Dedup:        settlementRepo,
			Votes:        settlementModule.Votes,
			Outbox:       settlementRepo,
			Clock:        settlementpostgres.SystemClock{},
			IDGen:        settlementpostgres.UUIDGenerator{},
			OwnerAddress: cfg.DefaultPollOwner,
			Logger:       logger,
		},
		finishConsumer: settlementworkers.FinishConsumer{
			Subscriber:   settlementBus{bus},
			Dedup:        settlementRepo,
			Settles:      settlementModule.Settles,
			Clock:        settlementpostgres.SystemClock{},
			OwnerAddress: cfg.DefaultPollOwner,
			Logger:       logger,
		},
		enableAckConsumer:      cfg.EnableAckConsumer,
		enableInstanceConsumer: cfg.EnableInstantiationConsumer,
		enableFinishConsumer:   cfg.EnableFinishConsumer,
		pollInterval:           cfg.OutboxRelayInterval,
		logger:                 logger,
	}, nil
}

func buildModules(pg *db.Postgres, logger *slog.Logger) (orchestrator.Module, settlement.Module, treasury.Module) {
	balances := bank.New(pg.DB)

	orchestratorRepo := orchestratorpostgres.NewRepository(pg.DB, logger)
	orchestratorModule := orchestrator.NewModule(orchestrator.Dependencies{
		Config:    orchestratorRepo,
		Pending:   orchestratorRepo,
		Registry:  orchestratorRepo,
		Bank:      balances,
		Addresses: accountValidator{invalid: orchestratorerrors.ErrInvalidAddress},
		Outbox:    orchestratorRepo,
		Clock:     orchestratorpostgres.SystemClock{},
		IDGen:     orchestratorpostgres.UUIDGenerator{},
		Logger:    logger,
	})

	settlementRepo := settlementpostgres.NewRepository(pg.DB, logger)
	settlementModule := settlement.NewModule(settlement.Dependencies{
		Polls:     settlementRepo,
		Addresses: accountValidator{invalid: settlementerrors.ErrInvalidAddress},
		Clock:     settlementpostgres.SystemClock{},
		IDGen:     settlementpostgres.UUIDGenerator{},
		Logger:    logger,
	})

	treasuryRepo := treasurypostgres.NewRepository(pg.DB, logger)
	treasuryModule := treasury.NewModule(treasury.Dependencies{
		Config:        treasuryRepo,
		Allowances:    treasuryRepo,
		Distributions: treasuryRepo,
		Bank:          balances,
		Addresses:     accountValidator{invalid: treasuryerrors.ErrInvalidAddress},
		Outbox:        treasuryRepo,
		Clock:         treasurypostgres.SystemClock{},
		IDGen:         treasurypostgres.UUIDGenerator{},
		Logger:        logger,
	})

	return orchestratorModule, settlementModule, treasuryModule
}

// seedConfigs writes the environment-derived config singletons on first boot.
// Later admin updates through the API take precedence over the environment.
func seedConfigs(cfg config.Config, pg *db.Postgres, logger *slog.Logger) error {
	ctx := context.Background()
	now := time.Now().UTC()

	orchestratorRepo := orchestratorpostgres.NewRepository(pg.DB, logger)
	orchestratorCurrent, err := orchestratorRepo.LoadConfig(ctx)
	if err != nil {
		return err
	}
	if orchestratorCurrent.UpdatedAt.IsZero() {
		if err := orchestratorRepo.SaveConfig(ctx, orchestratorentities.Config{
			Admins:               cfg.AdminAddresses,
			CreationDeposit:      cfg.CreationDeposit,
			ReclaimableThreshold: cfg.ReclaimableThreshold,
			MinimumBetAmount:     cfg.MinimumBetAmount,
			TaxPercentage:        cfg.TaxPercentage,
			UpdatedAt:            now,
		}); err != nil {
			return err
		}
	}

	treasuryRepo := treasurypostgres.NewRepository(pg.DB, logger)
	treasuryCurrent, err := treasuryRepo.LoadConfig(ctx)
	if err != nil {
		return err
	}
	if treasuryCurrent.UpdatedAt.IsZero() {
		if err := treasuryRepo.SaveConfig(ctx, treasuryentities.Config{
			Admins:        cfg.AdminAddresses,
			ManagingToken: cfg.TreasuryToken,
			UpdatedAt:     now,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (a *APIApp) Run(_ context.Context) error {
	a.logger.Info("api app started",
		"event", "bootstrap_api_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
	)
	return a.server.Start()
}

func (a *APIApp) Close() error {
	if a.postgres != nil {
		return a.postgres.Close()
	}
	return nil
}

func (w *WorkerApp) Run(ctx context.Context) error {
	if w.enableAckConsumer {
		if err := w.ackConsumer.Start(ctx); err != nil {
			return err
		}
	}
	if w.enableInstanceConsumer {
		if err := w.instanceConsumer.Start(ctx); err != nil {
			return err
		}
	}
	if w.enableFinishConsumer {
		if err := w.finishConsumer.Start(ctx); err != nil {
			return err
		}
	}

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.pollInterval.String(),
	)

	for {
		if err := w.orchestratorRelay.RunOnce(ctx); err != nil {
			return err
		}
		if err := w.settlementRelay.RunOnce(ctx); err != nil {
			return err
		}
		if err := w.treasuryRelay.RunOnce(ctx); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (w *WorkerApp) Close() error {
	if w.postgres != nil {
		return w.postgres.Close()
	}
	return nil
}

// accountValidator enforces the platform account-id shape. Each context
// reports failures with its own sentinel so transport error mapping stays
// local to the context.
type accountValidator struct {
	invalid error
}

func (v accountValidator) Validate(address string) error {
	address = strings.TrimSpace(address)
	if len(address) < 3 {
		return v.invalid
	}
	for _, r := range address {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '-' || r == '_' {
			continue
		}
		return v.invalid
	}
	return nil
}

// Bus adapters convert between the shared wire envelope and each context's
// field-identical port type.

type orchestratorBus struct{ bus *messaging.Bus }

func (b orchestratorBus) Publish(ctx context.Context, topic string, event orchestratorports.EventEnvelope) error {
	return b.bus.Publish(ctx, topic, events.Envelope(event))
}

func (b orchestratorBus) Subscribe(ctx context.Context, topic string, consumerGroup string, handler func(context.Context, orchestratorports.EventEnvelope) error) error {
	return b.bus.Subscribe(ctx, topic, consumerGroup, func(ctx context.Context, event events.Envelope) error {
		return handler(ctx, orchestratorports.EventEnvelope(event))
	})
}

type settlementBus struct{ bus *messaging.Bus }

func (b settlementBus) Publish(ctx context.Context, topic string, event settlementports.EventEnvelope) error {
	return b.bus.Publish(ctx, topic, events.Envelope(event))
}

func (b settlementBus) Subscribe(ctx context.Context, topic string, consumerGroup string, handler func(context.Context, settlementports.EventEnvelope) error) error {
	return b.bus.Subscribe(ctx, topic, consumerGroup, func(ctx context.Context, event events.Envelope) error {
		return handler(ctx, settlementports.EventEnvelope(event))
	})
}

type treasuryBus struct{ bus *messaging.Bus }

func (b treasuryBus) Publish(ctx context.Context, topic string, event treasuryports.EventEnvelope) error {
	return b.bus.Publish(ctx, topic, events.Envelope(event))
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
