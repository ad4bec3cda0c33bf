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

type UpdateAdminsCommand struct {
	Caller string
	Admins []string
}

type ChangeAllowanceCommand struct {
	Caller  string
	Address string
	Amount  uint64
}

// SpendCommand draws on the caller's own allowance and pays the recipient.
type SpendCommand struct {
	Caller    string
	Recipient string
	Amount    uint64
}

// AllowanceUseCase owns the admin set and the spending allowances over the
// managed funds.
type AllowanceUseCase struct {
	Config     ports.ConfigRepository
	Allowances ports.AllowanceRepository
	Addresses  ports.AddressValidator
	Clock      ports.Clock
	IDGen      ports.IDGenerator
	Logger     *slog.Logger
}

func (uc AllowanceUseCase) UpdateAdmins(ctx context.Context, cmd UpdateAdminsCommand) error {
	logger := application.ResolveLogger(uc.Logger)

	config, err := uc.Config.LoadConfig(ctx)
	if err != nil {
		return err
	}
	if !config.IsAdmin(cmd.Caller) {
		return domainerrors.ErrUnauthorized
	}

	admins := make([]string, 0, len(cmd.Admins))
	for _, admin := range cmd.Admins {
		admin = strings.TrimSpace(admin)
		if err := uc.Addresses.Validate(admin); err != nil {
			return domainerrors.ErrInvalidAddress
		}
		admins = append(admins, admin)
	}

	config.Admins = admins
	config.UpdatedAt = uc.now()
	if err := uc.Config.SaveConfig(ctx, config); err != nil {
		return err
	}

	logger.Info("treasury admins updated",
		"event", "treasury_admins_updated",
		"module", "poll-platform/treasury",
		"layer", "application",
		"admin_count", len(admins),
	)
	return nil
}

// IncreaseAllowance raises both the granted cap and the remaining budget.
func (uc AllowanceUseCase) IncreaseAllowance(ctx context.Context, cmd ChangeAllowanceCommand) error {
	config, err := uc.Config.LoadConfig(ctx)
	if err != nil {
		return err
	}
	if !config.IsAdmin(cmd.Caller) {
		return domainerrors.ErrUnauthorized
	}
	address := strings.TrimSpace(cmd.Address)
	if err := uc.Addresses.Validate(address); err != nil {
		return domainerrors.ErrInvalidAddress
	}

	allowance, found, err := uc.Allowances.GetAllowance(ctx, address)
	if err != nil {
		return err
	}
	if !found {
		allowance = entities.Allowance{Address: address}
	}
	allowance.AllowedAmount += cmd.Amount
	allowance.RemainAmount += cmd.Amount
	allowance.UpdatedAt = uc.now()
	return uc.Allowances.SaveAllowance(ctx, allowance)
}

// DecreaseAllowance lowers the remaining budget; a decrease past zero fails
// without touching the record.
func (uc AllowanceUseCase) DecreaseAllowance(ctx context.Context, cmd ChangeAllowanceCommand) error {
	config, err := uc.Config.LoadConfig(ctx)
	if err != nil {
		return err
	}
	if !config.IsAdmin(cmd.Caller) {
		return domainerrors.ErrUnauthorized
	}

	allowance, found, err := uc.Allowances.GetAllowance(ctx, strings.TrimSpace(cmd.Address))
	if err != nil {
		return err
	}
	if !found {
		return domainerrors.ErrAllowanceNotFound
	}
	if allowance.RemainAmount < cmd.Amount {
		return domainerrors.ErrInsufficientRemainAllowance
	}
	allowance.RemainAmount -= cmd.Amount
	if allowance.AllowedAmount < cmd.Amount {
		allowance.AllowedAmount = 0
	} else {
		allowance.AllowedAmount -= cmd.Amount
	}
	allowance.UpdatedAt = uc.now()
	return uc.Allowances.SaveAllowance(ctx, allowance)
}

// Spend consumes the caller's remaining allowance and emits the payout intent.
func (uc AllowanceUseCase) Spend(ctx context.Context, cmd SpendCommand) error {
	logger := application.ResolveLogger(uc.Logger)

	if cmd.Amount == 0 {
		return domainerrors.ErrInvalidZeroAmount
	}
	recipient := strings.TrimSpace(cmd.Recipient)
	if err := uc.Addresses.Validate(recipient); err != nil {
		return domainerrors.ErrInvalidAddress
	}

	allowance, found, err := uc.Allowances.GetAllowance(ctx, strings.TrimSpace(cmd.Caller))
	if err != nil {
		return err
	}
	if !found {
		return domainerrors.ErrAllowanceNotFound
	}
	if allowance.RemainAmount < cmd.Amount {
		return domainerrors.ErrInsufficientRemainAllowance
	}

	config, err := uc.Config.LoadConfig(ctx)
	if err != nil {
		return err
	}

	now := uc.now()
	allowance.RemainAmount -= cmd.Amount
	allowance.UpdatedAt = now

	intent := ledger.NewTransfer(config.ManagingToken, recipient, cmd.Amount)
	envelope, err := intentEnvelope(ctx, uc.IDGen, intent, recipient, now)
	if err != nil {
		return err
	}
	if err := uc.Allowances.DrawAllowance(ctx, allowance, envelope); err != nil {
		return err
	}

	logger.Info("allowance spent",
		"event", "treasury_allowance_spent",
		"module", "poll-platform/treasury",
		"layer", "application",
		"spender", allowance.Address,
		"recipient", recipient,
		"amount", cmd.Amount,
		"remain_amount", allowance.RemainAmount,
	)
	return nil
}

func (uc AllowanceUseCase) now() time.Time {
	if uc.Clock != nil {
		return uc.Clock.Now().UTC()
	}
	return time.Now().UTC()
}

func intentEnvelope(ctx context.Context, idGen ports.IDGenerator, intent ledger.Intent, partitionKey string, now time.Time) (ports.EventEnvelope, error) {
	eventID, err := idGen.NewID(ctx)
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	return newTreasuryEnvelope(eventID, TopicLedgerTransfer, partitionKey, now, map[string]any{
		"kind":      string(intent.Kind),
		"token":     intent.Token,
		"recipient": intent.Recipient,
		"amount":    intent.Amount,
	})
}
