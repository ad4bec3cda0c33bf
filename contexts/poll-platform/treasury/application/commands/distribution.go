package commands

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "pollterra/contexts/poll-platform/treasury/application"
	"pollterra/contexts/poll-platform/treasury/domain/entities"
	domainerrors "pollterra/contexts/poll-platform/treasury/domain/errors"
	"pollterra/contexts/poll-platform/treasury/ports"
	"pollterra/internal/shared/ledger"
)

type RegisterDistributionCommand struct {
	Caller    string
	Recipient string
	Amount    uint64
	StartTime time.Time
	EndTime   time.Time
	Message   string
}

type UpdateDistributionCommand struct {
	Caller    string
	ID        string
	Recipient *string
	Amount    *uint64
	StartTime *time.Time
	EndTime   *time.Time
	Message   *string
}

type RemoveDistributionMessageCommand struct {
	Caller string
	ID     string
}

type TransferCommand struct {
	Caller    string
	Recipient string
	Amount    uint64
}

// DistributionUseCase owns vesting schedules and direct treasury payouts.
type DistributionUseCase struct {
	Config        ports.ConfigRepository
	Distributions ports.DistributionRepository
	Bank          ports.BankQuerier
	Addresses     ports.AddressValidator
	Outbox        ports.OutboxWriter
	Clock         ports.Clock
	IDGen         ports.IDGenerator
	Logger        *slog.Logger
}

func (uc DistributionUseCase) RegisterDistribution(ctx context.Context, cmd RegisterDistributionCommand) (string, error) {
	logger := application.ResolveLogger(uc.Logger)

	config, err := uc.Config.LoadConfig(ctx)
	if err != nil {
		return "", err
	}
	if !config.IsAdmin(cmd.Caller) {
		return "", domainerrors.ErrUnauthorized
	}
	if cmd.Amount == 0 {
		return "", domainerrors.ErrInvalidZeroAmount
	}
	if !cmd.EndTime.After(cmd.StartTime) {
		return "", domainerrors.ErrInvalidDistributionWindow
	}
	recipient := strings.TrimSpace(cmd.Recipient)
	if err := uc.Addresses.Validate(recipient); err != nil {
		return "", domainerrors.ErrInvalidAddress
	}

	id, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return "", err
	}
	now := uc.now()
	distribution := entities.Distribution{
		ID:        id,
		Recipient: recipient,
		Amount:    cmd.Amount,
		StartTime: cmd.StartTime.UTC(),
		EndTime:   cmd.EndTime.UTC(),
		Message:   cmd.Message,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.Distributions.SaveDistribution(ctx, distribution); err != nil {
		return "", err
	}

	logger.Info("distribution registered",
		"event", "treasury_distribution_registered",
		"module", "poll-platform/treasury",
		"layer", "application",
		"distribution_id", id,
		"recipient", recipient,
		"amount", cmd.Amount,
	)
	return id, nil
}

func (uc DistributionUseCase) UpdateDistribution(ctx context.Context, cmd UpdateDistributionCommand) error {
	config, err := uc.Config.LoadConfig(ctx)
	if err != nil {
		return err
	}
	if !config.IsAdmin(cmd.Caller) {
		return domainerrors.ErrUnauthorized
	}

	distribution, found, err := uc.Distributions.GetDistribution(ctx, strings.TrimSpace(cmd.ID))
	if err != nil {
		return err
	}
	if !found {
		return domainerrors.ErrDistributionNotFound
	}

	if cmd.Recipient != nil {
		recipient := strings.TrimSpace(*cmd.Recipient)
		if err := uc.Addresses.Validate(recipient); err != nil {
			return domainerrors.ErrInvalidAddress
		}
		distribution.Recipient = recipient
	}
	if cmd.Amount != nil {
		if *cmd.Amount == 0 {
			return domainerrors.ErrInvalidZeroAmount
		}
		distribution.Amount = *cmd.Amount
	}
	if cmd.StartTime != nil {
		distribution.StartTime = cmd.StartTime.UTC()
	}
	if cmd.EndTime != nil {
		distribution.EndTime = cmd.EndTime.UTC()
	}
	if !distribution.EndTime.After(distribution.StartTime) {
		return domainerrors.ErrInvalidDistributionWindow
	}
	if cmd.Message != nil {
		distribution.Message = *cmd.Message
	}
	distribution.UpdatedAt = uc.now()
	return uc.Distributions.SaveDistribution(ctx, distribution)
}

func (uc DistributionUseCase) RemoveDistributionMessage(ctx context.Context, cmd RemoveDistributionMessageCommand) error {
	config, err := uc.Config.LoadConfig(ctx)
	if err != nil {
		return err
	}
	if !config.IsAdmin(cmd.Caller) {
		return domainerrors.ErrUnauthorized
	}

	distribution, found, err := uc.Distributions.GetDistribution(ctx, strings.TrimSpace(cmd.ID))
	if err != nil {
		return err
	}
	if !found {
		return domainerrors.ErrDistributionNotFound
	}
	distribution.Message = ""
	distribution.UpdatedAt = uc.now()
	return uc.Distributions.SaveDistribution(ctx, distribution)
}

// Distribute releases every schedule's matured-but-unreleased amount at the
// current clock reading, one transfer intent per schedule. Schedules with
// nothing matured are skipped untouched.
func (uc DistributionUseCase) Distribute(ctx context.Context, caller string) error {
	logger := application.ResolveLogger(uc.Logger)

	config, err := uc.Config.LoadConfig(ctx)
	if err != nil {
		return err
	}
	if !config.IsAdmin(caller) {
		return domainerrors.ErrUnauthorized
	}

	distributions, err := uc.Distributions.ListDistributions(ctx)
	if err != nil {
		return err
	}

	now := uc.now()
	released := 0
	for _, distribution := range distributions {
		vested := distribution.VestedAt(now)
		if vested <= distribution.Released {
			continue
		}
		releasable := vested - distribution.Released
		distribution.Released = vested
		distribution.UpdatedAt = now
		intent := ledger.NewTransfer(config.ManagingToken, distribution.Recipient, releasable)
		envelope, err := intentEnvelope(ctx, uc.IDGen, intent, distribution.ID, now)
		if err != nil {
			return err
		}
		if err := uc.Distributions.ReleaseDistribution(ctx, distribution, envelope); err != nil {
			return err
		}
		released++
	}

	logger.Info("distribution cycle completed",
		"event", "treasury_distribute_completed",
		"module", "poll-platform/treasury",
		"layer", "application",
		"schedule_count", len(distributions),
		"released_count", released,
	)
	return nil
}

// Transfer is the admin-gated direct payout, checked against the current
// managed-token balance.
func (uc DistributionUseCase) Transfer(ctx context.Context, cmd TransferCommand) error {
	logger := application.ResolveLogger(uc.Logger)

	config, err := uc.Config.LoadConfig(ctx)
	if err != nil {
		return err
	}
	if !config.IsAdmin(cmd.Caller) {
		return domainerrors.ErrUnauthorized
	}
	if cmd.Amount == 0 {
		return domainerrors.ErrInvalidZeroAmount
	}
	recipient := strings.TrimSpace(cmd.Recipient)
	if err := uc.Addresses.Validate(recipient); err != nil {
		return domainerrors.ErrInvalidAddress
	}

	balance, err := uc.Bank.Balance(ctx, config.ManagingToken)
	if err != nil {
		return err
	}
	if balance < cmd.Amount {
		return domainerrors.ErrInsufficientBalance
	}

	now := uc.now()
	intent := ledger.NewTransfer(config.ManagingToken, recipient, cmd.Amount)
	envelope, err := intentEnvelope(ctx, uc.IDGen, intent, recipient, now)
	if err != nil {
		return err
	}
	if err := uc.Outbox.AppendOutbox(ctx, envelope); err != nil {
		return err
	}

	logger.Info("treasury transfer requested",
		"event", "treasury_transfer_requested",
		"module", "poll-platform/treasury",
		"layer", "application",
		"recipient", recipient,
		"amount", cmd.Amount,
		"remain_amount", balance-cmd.Amount,
	)
	return nil
}

func (uc DistributionUseCase) now() time.Time {
	if uc.Clock != nil {
		return uc.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
