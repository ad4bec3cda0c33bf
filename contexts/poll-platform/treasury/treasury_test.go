package treasury_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	treasury "pollterra/contexts/poll-platform/treasury"
	"pollterra/contexts/poll-platform/treasury/application/commands"
	"pollterra/contexts/poll-platform/treasury/application/queries"
	"pollterra/contexts/poll-platform/treasury/domain/entities"
	domainerrors "pollterra/contexts/poll-platform/treasury/domain/errors"
	"pollterra/contexts/poll-platform/treasury/ports"
)

var treasuryStart = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

func newTreasuryModule(t *testing.T) treasury.Module {
	t.Helper()
	module := treasury.NewInMemoryModule(entities.Config{
		Admins:        []string{"admin-1"},
		ManagingToken: "managed-token",
		UpdatedAt:     treasuryStart,
	}, nil)
	module.Store.SetNow(treasuryStart)
	return module
}

func transferIntents(t *testing.T, module treasury.Module) []map[string]any {
	t.Helper()
	messages, err := module.Store.ListPendingOutbox(context.Background(), 0)
	if err != nil {
		t.Fatalf("list outbox: %v", err)
	}
	intents := make([]map[string]any, 0, len(messages))
	for _, message := range messages {
		var envelope ports.EventEnvelope
		if err := json.Unmarshal(message.Payload, &envelope); err != nil {
			t.Fatalf("decode envelope: %v", err)
		}
		var data map[string]any
		if err := json.Unmarshal(envelope.Data, &data); err != nil {
			t.Fatalf("decode intent: %v", err)
		}
		intents = append(intents, data)
	}
	return intents
}

func TestAllowanceLifecycle(t *testing.T) {
	module := newTreasuryModule(t)
	ctx := context.Background()

	err := module.Allowances.IncreaseAllowance(ctx, commands.ChangeAllowanceCommand{
		Caller:  "stranger",
		Address: "spender-1",
		Amount:  100,
	})
	if !errors.Is(err, domainerrors.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}

	if err := module.Allowances.IncreaseAllowance(ctx, commands.ChangeAllowanceCommand{
		Caller:  "admin-1",
		Address: "spender-1",
		Amount:  100,
	}); err != nil {
		t.Fatalf("increase failed: %v", err)
	}
	if err := module.Allowances.IncreaseAllowance(ctx, commands.ChangeAllowanceCommand{
		Caller:  "admin-1",
		Address: "spender-1",
		Amount:  50,
	}); err != nil {
		t.Fatalf("second increase failed: %v", err)
	}
	allowance, found, _ := module.Store.GetAllowance(ctx, "spender-1")
	if !found || allowance.AllowedAmount != 150 || allowance.RemainAmount != 150 {
		t.Fatalf("unexpected allowance: %+v found=%v", allowance, found)
	}

	if err := module.Allowances.DecreaseAllowance(ctx, commands.ChangeAllowanceCommand{
		Caller:  "admin-1",
		Address: "spender-1",
		Amount:  30,
	}); err != nil {
		t.Fatalf("decrease failed: %v", err)
	}
	err = module.Allowances.DecreaseAllowance(ctx, commands.ChangeAllowanceCommand{
		Caller:  "admin-1",
		Address: "spender-1",
		Amount:  500,
	})
	if !errors.Is(err, domainerrors.ErrInsufficientRemainAllowance) {
		t.Fatalf("expected insufficient remain, got %v", err)
	}
}

func TestSpendDrawsCallerAllowance(t *testing.T) {
	module := newTreasuryModule(t)
	ctx := context.Background()

	err := module.Allowances.Spend(ctx, commands.SpendCommand{
		Caller:    "spender-1",
		Recipient: "recipient-1",
		Amount:    0,
	})
	if !errors.Is(err, domainerrors.ErrInvalidZeroAmount) {
		t.Fatalf("expected zero amount rejection, got %v", err)
	}
	err = module.Allowances.Spend(ctx, commands.SpendCommand{
		Caller:    "spender-1",
		Recipient: "recipient-1",
		Amount:    10,
	})
	if !errors.Is(err, domainerrors.ErrAllowanceNotFound) {
		t.Fatalf("expected allowance not found, got %v", err)
	}

	if err := module.Allowances.IncreaseAllowance(ctx, commands.ChangeAllowanceCommand{
		Caller:  "admin-1",
		Address: "spender-1",
		Amount:  100,
	}); err != nil {
		t.Fatalf("increase failed: %v", err)
	}
	if err := module.Allowances.Spend(ctx, commands.SpendCommand{
		Caller:    "spender-1",
		Recipient: "recipient-1",
		Amount:    60,
	}); err != nil {
		t.Fatalf("spend failed: %v", err)
	}

	allowance, _, _ := module.Store.GetAllowance(ctx, "spender-1")
	if allowance.RemainAmount != 40 || allowance.AllowedAmount != 100 {
		t.Fatalf("spend must only draw the remaining budget: %+v", allowance)
	}

	err = module.Allowances.Spend(ctx, commands.SpendCommand{
		Caller:    "spender-1",
		Recipient: "recipient-1",
		Amount:    50,
	})
	if !errors.Is(err, domainerrors.ErrInsufficientRemainAllowance) {
		t.Fatalf("expected insufficient remain, got %v", err)
	}

	intents := transferIntents(t, module)
	if len(intents) != 1 {
		t.Fatalf("expected one payout intent, got %d", len(intents))
	}
	if intents[0]["token"] != "managed-token" || intents[0]["recipient"] != "recipient-1" || intents[0]["amount"].(float64) != 60 {
		t.Fatalf("unexpected payout intent: %v", intents[0])
	}
}

func TestVestedAtIsLinearAndClamped(t *testing.T) {
	distribution := entities.Distribution{
		Amount:    1000,
		StartTime: treasuryStart,
		EndTime:   treasuryStart.Add(100 * time.Second),
	}

	if got := distribution.VestedAt(treasuryStart.Add(-time.Second)); got != 0 {
		t.Fatalf("nothing vests before start, got %d", got)
	}
	if got := distribution.VestedAt(treasuryStart.Add(25 * time.Second)); got != 250 {
		t.Fatalf("expected 250 vested at quarter window, got %d", got)
	}
	if got := distribution.VestedAt(treasuryStart.Add(200 * time.Second)); got != 1000 {
		t.Fatalf("full amount vests after end, got %d", got)
	}
}

func TestDistributeReleasesMaturedOnly(t *testing.T) {
	module := newTreasuryModule(t)
	ctx := context.Background()

	_, err := module.Distributions.RegisterDistribution(ctx, commands.RegisterDistributionCommand{
		Caller:    "admin-1",
		Recipient: "recipient-1",
		Amount:    1000,
		StartTime: treasuryStart.Add(time.Minute),
		EndTime:   treasuryStart.Add(time.Minute),
	})
	if !errors.Is(err, domainerrors.ErrInvalidDistributionWindow) {
		t.Fatalf("expected invalid window, got %v", err)
	}

	id, err := module.Distributions.RegisterDistribution(ctx, commands.RegisterDistributionCommand{
		Caller:    "admin-1",
		Recipient: "recipient-1",
		Amount:    1000,
		StartTime: treasuryStart,
		EndTime:   treasuryStart.Add(100 * time.Second),
		Message:   "team vesting",
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	module.Store.SetNow(treasuryStart.Add(50 * time.Second))
	if err := module.Distributions.Distribute(ctx, "admin-1"); err != nil {
		t.Fatalf("distribute failed: %v", err)
	}
	distribution, found, _ := module.Store.GetDistribution(ctx, id)
	if !found || distribution.Released != 500 {
		t.Fatalf("expected 500 released at half window, got %+v", distribution)
	}

	// Nothing new matures at the same instant, so no second intent leaves.
	if err := module.Distributions.Distribute(ctx, "admin-1"); err != nil {
		t.Fatalf("repeat distribute failed: %v", err)
	}
	if intents := transferIntents(t, module); len(intents) != 1 {
		t.Fatalf("expected one release intent, got %d", len(intents))
	}

	module.Store.SetNow(treasuryStart.Add(200 * time.Second))
	if err := module.Distributions.Distribute(ctx, "admin-1"); err != nil {
		t.Fatalf("final distribute failed: %v", err)
	}
	distribution, _, _ = module.Store.GetDistribution(ctx, id)
	if distribution.Released != 1000 {
		t.Fatalf("full amount must be released after end, got %d", distribution.Released)
	}
	intents := transferIntents(t, module)
	if len(intents) != 2 || intents[1]["amount"].(float64) != 500 {
		t.Fatalf("final release must cover the remainder: %v", intents)
	}
}

func TestTreasuryTransferChecksManagedBalance(t *testing.T) {
	module := newTreasuryModule(t)
	module.Store.SetBalance("managed-token", 50)

	err := module.Distributions.Transfer(context.Background(), commands.TransferCommand{
		Caller:    "admin-1",
		Recipient: "recipient-1",
		Amount:    100,
	})
	if !errors.Is(err, domainerrors.ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}

	if err := module.Distributions.Transfer(context.Background(), commands.TransferCommand{
		Caller:    "admin-1",
		Recipient: "recipient-1",
		Amount:    50,
	}); err != nil {
		t.Fatalf("transfer failed: %v", err)
	}
	intents := transferIntents(t, module)
	if len(intents) != 1 || intents[0]["amount"].(float64) != 50 {
		t.Fatalf("expected one transfer intent, got %v", intents)
	}
}

func TestAllowancePagingClampsAndOrders(t *testing.T) {
	module := newTreasuryModule(t)
	ctx := context.Background()

	for i := 0; i < 40; i++ {
		if err := module.Allowances.IncreaseAllowance(ctx, commands.ChangeAllowanceCommand{
			Caller:  "admin-1",
			Address: fmt.Sprintf("spender-%02d", i),
			Amount:  10,
		}); err != nil {
			t.Fatalf("seed allowance %d: %v", i, err)
		}
	}

	reads := queries.TreasuryUseCase{
		Config:        module.Store,
		Allowances:    module.Store,
		Distributions: module.Store,
		Bank:          module.Store,
	}

	page, err := reads.AllowancePage(ctx, "", 100, false)
	if err != nil {
		t.Fatalf("page failed: %v", err)
	}
	if len(page) != 30 {
		t.Fatalf("page size must clamp at 30, got %d", len(page))
	}

	page, err = reads.AllowancePage(ctx, "spender-00", 0, false)
	if err != nil {
		t.Fatalf("cursor page failed: %v", err)
	}
	if len(page) != 10 {
		t.Fatalf("default page size is 10, got %d", len(page))
	}
	if page[0].Address != "spender-01" {
		t.Fatalf("cursor address must be excluded, got %q", page[0].Address)
	}
}
