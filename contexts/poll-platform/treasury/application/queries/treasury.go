package queries

import (
	"context"
	"strings"

	"pollterra/contexts/poll-platform/treasury/domain/entities"
	domainerrors "pollterra/contexts/poll-platform/treasury/domain/errors"
	"pollterra/contexts/poll-platform/treasury/ports"
)

const (
	defaultAllowancePageSize = 10
	maxAllowancePageSize     = 30
)

// TreasuryUseCase serves read paths over treasury state.
type TreasuryUseCase struct {
	Config        ports.ConfigRepository
	Allowances    ports.AllowanceRepository
	Distributions ports.DistributionRepository
	Bank          ports.BankQuerier
}

func (uc TreasuryUseCase) CurrentConfig(ctx context.Context) (entities.Config, error) {
	return uc.Config.LoadConfig(ctx)
}

// ManagedBalance reports the treasury's holdings in the managed token.
func (uc TreasuryUseCase) ManagedBalance(ctx context.Context) (uint64, error) {
	config, err := uc.Config.LoadConfig(ctx)
	if err != nil {
		return 0, err
	}
	return uc.Bank.Balance(ctx, config.ManagingToken)
}

func (uc TreasuryUseCase) AllowanceOf(ctx context.Context, address string) (entities.Allowance, error) {
	allowance, found, err := uc.Allowances.GetAllowance(ctx, strings.TrimSpace(address))
	if err != nil {
		return entities.Allowance{}, err
	}
	if !found {
		return entities.Allowance{}, domainerrors.ErrAllowanceNotFound
	}
	return allowance, nil
}

// AllowancePage pages allowances by address with a clamped page size;
// startAfter excludes the cursor address itself.
func (uc TreasuryUseCase) AllowancePage(ctx context.Context, startAfter string, limit int, descending bool) ([]entities.Allowance, error) {
	if limit <= 0 {
		limit = defaultAllowancePageSize
	}
	if limit > maxAllowancePageSize {
		limit = maxAllowancePageSize
	}
	return uc.Allowances.ListAllowances(ctx, startAfter, limit, descending)
}

func (uc TreasuryUseCase) AllDistributions(ctx context.Context) ([]entities.Distribution, error) {
	return uc.Distributions.ListDistributions(ctx)
}
