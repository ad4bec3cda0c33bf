package commands

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "pollterra/contexts/poll-platform/orchestrator/application"
	"pollterra/contexts/poll-platform/orchestrator/domain/entities"
	domainerrors "pollterra/contexts/poll-platform/orchestrator/domain/errors"
	"pollterra/contexts/poll-platform/orchestrator/ports"
	"pollterra/internal/shared/ledger"
)

// nativeDenom is the denom admins can pay out from the orchestrator account.
const nativeDenom = "uusd"

// FinishPollCommand is the administrative finish/force-finish instruction for
// a tracked poll instance. Forced finishes bypass the instance's own owner and
// time gates and are audit-relevant.
type FinishPollCommand struct {
	Caller      string
	PollAddress string
	PollKind    string
	Winner      *uint64
	Forced      bool
}

type RegisterPaymentTokenCommand struct {
	Caller          string
	TokenContract   string
	CreationDeposit uint64
}

// UpdateConfigCommand carries partial config updates; nil fields stay as-is.
type UpdateConfigCommand struct {
	Caller               string
	CreationDeposit      *uint64
	ReclaimableThreshold *uint64
	Admins               []string
}

type TransferCommand struct {
	Caller    string
	Recipient string
	Amount    uint64
}

// AdminUseCase owns the orchestrator's admin-gated maintenance operations.
type AdminUseCase struct {
	Config    ports.ConfigRepository
	Registry  ports.PollRegistry
	Bank      ports.BankQuerier
	Addresses ports.AddressValidator
	Outbox    ports.OutboxWriter
	Clock     ports.Clock
	IDGen     ports.IDGenerator
	Logger    *slog.Logger
}

// FinishPoll forwards a finish instruction to the named instance. Opinion
// polls are deregistered and the live counter decremented on the way out.
func (uc AdminUseCase) FinishPoll(ctx context.Context, cmd FinishPollCommand) error {
	logger := application.ResolveLogger(uc.Logger)

	config, err := uc.Config.LoadConfig(ctx)
	if err != nil {
		return err
	}
	if !config.IsAdmin(cmd.Caller) {
		return domainerrors.ErrUnauthorized
	}

	kind := entities.PollKind(strings.TrimSpace(cmd.PollKind))
	if !kind.Valid() {
		return domainerrors.ErrInvalidPollKind
	}
	if kind == entities.PollKindPrediction && cmd.Winner == nil {
		return domainerrors.ErrEmptyWinner
	}

	address := strings.TrimSpace(cmd.PollAddress)
	if err := uc.Addresses.Validate(address); err != nil {
		return domainerrors.ErrInvalidAddress
	}

	if kind == entities.PollKindOpinion {
		if _, err := uc.Registry.RemovePoll(ctx, address, uc.now()); err != nil {
			return err
		}
	}

	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return err
	}
	data := map[string]any{
		"poll_address": address,
		"poll_kind":    string(kind),
		"forced":       cmd.Forced,
	}
	if cmd.Winner != nil {
		data["winner"] = *cmd.Winner
	}
	envelope, err := newOrchestratorEnvelope(eventID, TopicFinishRequested, address, uc.now(), data)
	if err != nil {
		return err
	}
	if err := uc.Outbox.AppendOutbox(ctx, envelope); err != nil {
		return err
	}

	logger.Info("poll finish requested",
		"event", "orchestrator_finish_requested",
		"module", "poll-platform/orchestrator",
		"layer", "application",
		"poll_address", address,
		"poll_kind", string(kind),
		"forced", cmd.Forced,
		"caller", cmd.Caller,
	)
	return nil
}

// RegisterPaymentToken binds the payment token once. The registered guard
// runs before the admin gate, matching the original execution order.
func (uc AdminUseCase) RegisterPaymentToken(ctx context.Context, cmd RegisterPaymentTokenCommand) error {
	logger := application.ResolveLogger(uc.Logger)

	config, err := uc.Config.LoadConfig(ctx)
	if err != nil {
		return err
	}
	if config.TokenRegistered() {
		return domainerrors.ErrTokenAlreadyRegistered
	}
	if !config.IsAdmin(cmd.Caller) {
		return domainerrors.ErrUnauthorized
	}
	token := strings.TrimSpace(cmd.TokenContract)
	if err := uc.Addresses.Validate(token); err != nil {
		return domainerrors.ErrInvalidAddress
	}

	config.TokenContract = token
	config.CreationDeposit = cmd.CreationDeposit
	config.UpdatedAt = uc.now()
	if err := uc.Config.SaveConfig(ctx, config); err != nil {
		return err
	}

	logger.Info("payment token registered",
		"event", "orchestrator_token_registered",
		"module", "poll-platform/orchestrator",
		"layer", "application",
		"token_contract", token,
		"creation_deposit", cmd.CreationDeposit,
	)
	return nil
}

// UpdateConfig applies partial admin updates. Changing the creation deposit
// requires a registered token contract.
func (uc AdminUseCase) UpdateConfig(ctx context.Context, cmd UpdateConfigCommand) error {
	config, err := uc.Config.LoadConfig(ctx)
	if err != nil {
		return err
	}
	if !config.IsAdmin(cmd.Caller) {
		return domainerrors.ErrUnauthorized
	}

	if cmd.CreationDeposit != nil {
		if !config.TokenRegistered() {
			return domainerrors.ErrTokenNotRegistered
		}
		config.CreationDeposit = *cmd.CreationDeposit
	}
	if cmd.ReclaimableThreshold != nil {
		config.ReclaimableThreshold = *cmd.ReclaimableThreshold
	}
	if cmd.Admins != nil {
		admins := make([]string, 0, len(cmd.Admins))
		for _, admin := range cmd.Admins {
			admin = strings.TrimSpace(admin)
			if err := uc.Addresses.Validate(admin); err != nil {
				return domainerrors.ErrInvalidAddress
			}
			admins = append(admins, admin)
		}
		config.Admins = admins
	}

	config.UpdatedAt = uc.now()
	return uc.Config.SaveConfig(ctx, config)
}

// Transfer pays out from the orchestrator's native balance. The balance read
// is a consistency guard only; the transfer itself is an emitted intent.
func (uc AdminUseCase) Transfer(ctx context.Context, cmd TransferCommand) error {
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

	balance, err := uc.Bank.Balance(ctx, nativeDenom)
	if err != nil {
		return err
	}
	if balance < cmd.Amount {
		return domainerrors.ErrInsufficientBalance
	}

	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return err
	}
	intent := ledger.NewTransfer(nativeDenom, recipient, cmd.Amount)
	envelope, err := newOrchestratorEnvelope(eventID, TopicLedgerTransfer, recipient, uc.now(), map[string]any{
		"kind":          string(intent.Kind),
		"token":         intent.Token,
		"recipient":     intent.Recipient,
		"amount":        intent.Amount,
		"requester":     cmd.Caller,
		"remain_amount": balance - cmd.Amount,
	})
	if err != nil {
		return err
	}
	if err := uc.Outbox.AppendOutbox(ctx, envelope); err != nil {
		return err
	}

	logger.Info("admin transfer requested",
		"event", "orchestrator_transfer_requested",
		"module", "poll-platform/orchestrator",
		"layer", "application",
		"requester", cmd.Caller,
		"recipient", recipient,
		"amount", cmd.Amount,
	)
	return nil
}

func (uc AdminUseCase) now() time.Time {
	if uc.Clock != nil {
		return uc.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
