package settlement_test

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"

	settlement "pollterra/contexts/poll-platform/settlement"
	"pollterra/contexts/poll-platform/settlement/application/commands"
	"pollterra/contexts/poll-platform/settlement/domain/entities"
	domainerrors "pollterra/contexts/poll-platform/settlement/domain/errors"
)

func TestClosePollGates(t *testing.T) {
	module := settlement.NewInMemoryModule(nil)
	pollID := newVotingPoll(t, module, 10)

	err := module.Settles.ClosePoll(context.Background(), commands.ClosePollCommand{
		PollID: pollID,
		Caller: "stranger",
	})
	if !errors.Is(err, domainerrors.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}

	err = module.Settles.ClosePoll(context.Background(), commands.ClosePollCommand{
		PollID: pollID,
		Caller: "owner-1",
	})
	if !errors.Is(err, domainerrors.ErrPollNotEnded) {
		t.Fatalf("expected not ended, got %v", err)
	}

	// Forced closes bypass the owner and time gates.
	if err := module.Settles.ClosePoll(context.Background(), commands.ClosePollCommand{
		PollID: pollID,
		Caller: "stranger",
		Forced: true,
	}); err != nil {
		t.Fatalf("forced close failed: %v", err)
	}

	// But never the status gate: a closed poll stays closed.
	err = module.Settles.ClosePoll(context.Background(), commands.ClosePollCommand{
		PollID: pollID,
		Caller: "owner-1",
		Forced: true,
	})
	if !errors.Is(err, domainerrors.ErrAlreadyFinished) {
		t.Fatalf("expected already finished, got %v", err)
	}
}

func TestCloseKeepsExactTiesAsWinners(t *testing.T) {
	module := settlement.NewInMemoryModule(nil)
	pollID := newVotingPoll(t, module, 10)
	castVotes(t, module, pollID, map[uint64]int{0: 5, 1: 5, 2: 3})

	module.Store.SetNow(testStart.Add(2 * time.Hour))
	if err := module.Settles.ClosePoll(context.Background(), commands.ClosePollCommand{
		PollID: pollID,
		Caller: "owner-1",
	}); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	poll, _ := module.Store.GetPoll(context.Background(), pollID)
	if poll.Status != entities.StatusClosed {
		t.Fatalf("expected closed status, got %q", poll.Status)
	}
	if !reflect.DeepEqual(poll.WinningSides, []uint64{0, 1}) {
		t.Fatalf("expected tie winners [0 1], got %v", poll.WinningSides)
	}
	if !poll.DepositReclaimed {
		t.Fatalf("disposition must be decided at close")
	}
}

func TestCloseDispositionByThreshold(t *testing.T) {
	cases := []struct {
		name      string
		votes     map[uint64]int
		wantEvent string
	}{
		{"below threshold burns", map[uint64]int{0: 2}, "ledger.burn.requested"},
		{"at threshold returns to generator", map[uint64]int{0: 2, 1: 1}, "ledger.transfer.requested"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			module := settlement.NewInMemoryModule(nil)
			pollID := newVotingPoll(t, module, 3)
			castVotes(t, module, pollID, tc.votes)

			module.Store.SetNow(testStart.Add(2 * time.Hour))
			if err := module.Settles.ClosePoll(context.Background(), commands.ClosePollCommand{
				PollID: pollID,
				Caller: "owner-1",
			}); err != nil {
				t.Fatalf("close failed: %v", err)
			}

			envelopes := settlementEnvelopes(t, module)
			last := envelopes[len(envelopes)-1]
			if last.EventType != tc.wantEvent {
				t.Fatalf("expected %q disposition, got %q", tc.wantEvent, last.EventType)
			}
			var data map[string]any
			if err := json.Unmarshal(last.Data, &data); err != nil {
				t.Fatalf("decode intent: %v", err)
			}
			if data["amount"].(float64) != 1000 {
				t.Fatalf("disposition must cover the full deposit, got %v", data["amount"])
			}
			if tc.wantEvent == "ledger.transfer.requested" && data["recipient"] != "generator-1" {
				t.Fatalf("deposit must return to the generator, got %v", data["recipient"])
			}
		})
	}
}

func TestCloseWithoutVotesTiesEverySide(t *testing.T) {
	module := settlement.NewInMemoryModule(nil)
	pollID := newVotingPoll(t, module, 10)

	module.Store.SetNow(testStart.Add(2 * time.Hour))
	if err := module.Settles.ClosePoll(context.Background(), commands.ClosePollCommand{
		PollID: pollID,
		Caller: "owner-1",
	}); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	poll, _ := module.Store.GetPoll(context.Background(), pollID)
	if !reflect.DeepEqual(poll.WinningSides, []uint64{0, 1, 2}) {
		t.Fatalf("all sides tie at zero, got %v", poll.WinningSides)
	}
}

func TestForcedCloseHonorsWinnerOverride(t *testing.T) {
	module := settlement.NewInMemoryModule(nil)
	pollID := newVotingPoll(t, module, 10)
	castVotes(t, module, pollID, map[uint64]int{0: 4, 1: 1})

	winner := uint64(1)
	if err := module.Settles.ClosePoll(context.Background(), commands.ClosePollCommand{
		PollID:         pollID,
		Forced:         true,
		WinnerOverride: &winner,
	}); err != nil {
		t.Fatalf("forced close failed: %v", err)
	}

	poll, _ := module.Store.GetPoll(context.Background(), pollID)
	if !reflect.DeepEqual(poll.WinningSides, []uint64{1}) {
		t.Fatalf("override must pin the winner set, got %v", poll.WinningSides)
	}
}

func TestReclaimDepositOnceAboveThreshold(t *testing.T) {
	module := settlement.NewInMemoryModule(nil)
	pollID := newVotingPoll(t, module, 2)

	err := module.Settles.ReclaimDeposit(context.Background(), commands.ReclaimDepositCommand{PollID: pollID})
	if !errors.Is(err, domainerrors.ErrThresholdNotMet) {
		t.Fatalf("expected threshold not met, got %v", err)
	}

	castVotes(t, module, pollID, map[uint64]int{0: 2})
	if err := module.Settles.ReclaimDeposit(context.Background(), commands.ReclaimDepositCommand{PollID: pollID}); err != nil {
		t.Fatalf("reclaim failed: %v", err)
	}

	err = module.Settles.ReclaimDeposit(context.Background(), commands.ReclaimDepositCommand{PollID: pollID})
	if !errors.Is(err, domainerrors.ErrAlreadyReclaimed) {
		t.Fatalf("expected already reclaimed, got %v", err)
	}
}

func TestCloseAfterReclaimEmitsNoSecondDisposition(t *testing.T) {
	module := settlement.NewInMemoryModule(nil)
	pollID := newVotingPoll(t, module, 1)
	castVotes(t, module, pollID, map[uint64]int{0: 1})

	if err := module.Settles.ReclaimDeposit(context.Background(), commands.ReclaimDepositCommand{PollID: pollID}); err != nil {
		t.Fatalf("reclaim failed: %v", err)
	}

	module.Store.SetNow(testStart.Add(2 * time.Hour))
	if err := module.Settles.ClosePoll(context.Background(), commands.ClosePollCommand{
		PollID: pollID,
		Caller: "owner-1",
	}); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	transfers := 0
	for _, envelope := range settlementEnvelopes(t, module) {
		if envelope.EventType == "ledger.transfer.requested" || envelope.EventType == "ledger.burn.requested" {
			transfers++
		}
	}
	if transfers != 1 {
		t.Fatalf("deposit must be disposed exactly once, got %d intents", transfers)
	}
}

func TestTransferOwnerReplacesCloseAuthority(t *testing.T) {
	module := settlement.NewInMemoryModule(nil)
	pollID := newVotingPoll(t, module, 10)

	err := module.Settles.TransferOwner(context.Background(), commands.TransferOwnerCommand{
		PollID:   pollID,
		Caller:   "stranger",
		NewOwner: "owner-2",
	})
	if !errors.Is(err, domainerrors.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}

	if err := module.Settles.TransferOwner(context.Background(), commands.TransferOwnerCommand{
		PollID:   pollID,
		Caller:   "owner-1",
		NewOwner: "owner-2",
	}); err != nil {
		t.Fatalf("transfer failed: %v", err)
	}

	module.Store.SetNow(testStart.Add(2 * time.Hour))
	err = module.Settles.ClosePoll(context.Background(), commands.ClosePollCommand{
		PollID: pollID,
		Caller: "owner-1",
	})
	if !errors.Is(err, domainerrors.ErrUnauthorized) {
		t.Fatalf("old owner must lose authority, got %v", err)
	}
	if err := module.Settles.ClosePoll(context.Background(), commands.ClosePollCommand{
		PollID: pollID,
		Caller: "owner-2",
	}); err != nil {
		t.Fatalf("new owner close failed: %v", err)
	}
}
