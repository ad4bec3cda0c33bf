package settlement_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	settlement "pollterra/contexts/poll-platform/settlement"
	"pollterra/contexts/poll-platform/settlement/adapters/memory"
	"pollterra/contexts/poll-platform/settlement/application/commands"
	"pollterra/contexts/poll-platform/settlement/domain/entities"
	domainerrors "pollterra/contexts/poll-platform/settlement/domain/errors"
	"pollterra/contexts/poll-platform/settlement/ports"
)

var testStart = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

func newVotingPoll(t *testing.T, module settlement.Module, threshold uint64) string {
	t.Helper()
	module.Store.SetNow(testStart)
	err := module.Votes.CreatePoll(context.Background(), commands.CreatePollCommand{
		ID:                   "poll-1",
		Owner:                "owner-1",
		Generator:            "generator-1",
		TokenContract:        "token-contract",
		PollName:             "will-it-rain",
		PollKind:             "opinion",
		EndTime:              testStart.Add(time.Hour),
		NumSides:             3,
		ReclaimableThreshold: threshold,
		MinimumBetAmount:     1,
		TaxPercentage:        0.05,
		DepositAmount:        1000,
	})
	if err != nil {
		t.Fatalf("create poll: %v", err)
	}
	return "poll-1"
}

func castVotes(t *testing.T, module settlement.Module, pollID string, counts map[uint64]int) {
	t.Helper()
	for side, count := range counts {
		for i := 0; i < count; i++ {
			err := module.Votes.CastVote(context.Background(), commands.CastVoteCommand{
				PollID: pollID,
				Voter:  fmt.Sprintf("voter-%d-%d", side, i),
				Side:   side,
			})
			if err != nil {
				t.Fatalf("cast vote side=%d i=%d: %v", side, i, err)
			}
		}
	}
}

func settlementEnvelopes(t *testing.T, module settlement.Module) []ports.EventEnvelope {
	t.Helper()
	messages, err := module.Store.ListPendingOutbox(context.Background(), 0)
	if err != nil {
		t.Fatalf("list outbox: %v", err)
	}
	envelopes := make([]ports.EventEnvelope, 0, len(messages))
	for _, message := range messages {
		var envelope ports.EventEnvelope
		if err := json.Unmarshal(message.Payload, &envelope); err != nil {
			t.Fatalf("decode outbox envelope: %v", err)
		}
		envelopes = append(envelopes, envelope)
	}
	return envelopes
}

func TestCastVoteKeepsParticipationConsistent(t *testing.T) {
	module := settlement.NewInMemoryModule(nil)
	pollID := newVotingPoll(t, module, 10)
	castVotes(t, module, pollID, map[uint64]int{0: 2, 1: 1})

	poll, err := module.Store.GetPoll(context.Background(), pollID)
	if err != nil {
		t.Fatalf("get poll: %v", err)
	}
	if poll.TotalAmount != 3 {
		t.Fatalf("expected total participation 3, got %d", poll.TotalAmount)
	}

	tallies, err := module.Store.ListTallies(context.Background(), pollID)
	if err != nil {
		t.Fatalf("list tallies: %v", err)
	}
	var sum uint64
	for _, tally := range tallies {
		sum += tally.Count
	}
	if sum != poll.TotalAmount {
		t.Fatalf("tally sum %d != total %d", sum, poll.TotalAmount)
	}

	votes, err := module.Store.ListVotes(context.Background(), pollID, "", 30, false)
	if err != nil {
		t.Fatalf("list votes: %v", err)
	}
	if uint64(len(votes)) != poll.TotalAmount {
		t.Fatalf("vote records %d != total %d", len(votes), poll.TotalAmount)
	}
}

func TestCastVoteRejectsRepeatBallot(t *testing.T) {
	module := settlement.NewInMemoryModule(nil)
	pollID := newVotingPoll(t, module, 10)

	if err := module.Votes.CastVote(context.Background(), commands.CastVoteCommand{
		PollID: pollID,
		Voter:  "voter-a",
		Side:   0,
	}); err != nil {
		t.Fatalf("first ballot failed: %v", err)
	}
	err := module.Votes.CastVote(context.Background(), commands.CastVoteCommand{
		PollID: pollID,
		Voter:  "voter-a",
		Side:   1,
	})
	if !errors.Is(err, domainerrors.ErrAlreadyVoted) {
		t.Fatalf("expected already voted, got %v", err)
	}

	record, found, _ := module.Store.GetVote(context.Background(), pollID, "voter-a")
	if !found || record.Side != 0 {
		t.Fatalf("original ballot must survive, got %+v found=%v", record, found)
	}
}

func TestCastVoteRejectsAttachedFunds(t *testing.T) {
	module := settlement.NewInMemoryModule(nil)
	pollID := newVotingPoll(t, module, 10)

	err := module.Votes.CastVote(context.Background(), commands.CastVoteCommand{
		PollID:        pollID,
		Voter:         "voter-a",
		Side:          0,
		AttachedFunds: 5,
	})
	if !errors.Is(err, domainerrors.ErrUnexpectedFunds) {
		t.Fatalf("expected unexpected funds, got %v", err)
	}
}

func TestCastVoteRejectsAfterWindow(t *testing.T) {
	module := settlement.NewInMemoryModule(nil)
	pollID := newVotingPoll(t, module, 10)

	module.Store.SetNow(testStart.Add(time.Hour))
	err := module.Votes.CastVote(context.Background(), commands.CastVoteCommand{
		PollID: pollID,
		Voter:  "voter-a",
		Side:   0,
	})
	if !errors.Is(err, domainerrors.ErrVotingClosed) {
		t.Fatalf("expected voting closed, got %v", err)
	}
}

func TestCastVoteUnknownPoll(t *testing.T) {
	module := settlement.NewInMemoryModule(nil)

	err := module.Votes.CastVote(context.Background(), commands.CastVoteCommand{
		PollID: "missing",
		Voter:  "voter-a",
		Side:   0,
	})
	if !errors.Is(err, domainerrors.ErrPollNotFound) {
		t.Fatalf("expected poll not found, got %v", err)
	}
}

func TestCreatePollRejectsZeroSides(t *testing.T) {
	module := settlement.NewInMemoryModule(nil)

	err := module.Votes.CreatePoll(context.Background(), commands.CreatePollCommand{
		ID:            "poll-1",
		Owner:         "owner-1",
		Generator:     "generator-1",
		TokenContract: "token-contract",
		PollName:      "no-sides",
		PollKind:      "opinion",
		EndTime:       testStart.Add(time.Hour),
		NumSides:      0,
		DepositAmount: 1000,
	})
	if !errors.Is(err, domainerrors.ErrInvalidSideCount) {
		t.Fatalf("expected invalid side count, got %v", err)
	}
	if _, err := module.Store.GetPoll(context.Background(), "poll-1"); !errors.Is(err, domainerrors.ErrPollNotFound) {
		t.Fatalf("rejected poll must not be persisted, got %v", err)
	}
}

// failingBallotRepo reports a write failure on the ballot path while leaving
// every read path on the real store.
type failingBallotRepo struct {
	*memory.Store
}

func (r failingBallotRepo) RecordVote(context.Context, entities.Poll, entities.VoteRecord, ports.EventEnvelope) error {
	return errors.New("write refused")
}

func TestFailedBallotWriteLeavesNoPartialState(t *testing.T) {
	store := memory.NewStore()
	votes := commands.VoteUseCase{
		Polls:     failingBallotRepo{store},
		Addresses: store,
		Clock:     store,
		IDGen:     store,
	}

	store.SetNow(testStart)
	if err := votes.CreatePoll(context.Background(), commands.CreatePollCommand{
		ID:            "poll-1",
		Owner:         "owner-1",
		Generator:     "generator-1",
		TokenContract: "token-contract",
		PollName:      "will-it-rain",
		PollKind:      "opinion",
		EndTime:       testStart.Add(time.Hour),
		NumSides:      2,
		DepositAmount: 1000,
	}); err != nil {
		t.Fatalf("create poll: %v", err)
	}

	err := votes.CastVote(context.Background(), commands.CastVoteCommand{
		PollID: "poll-1",
		Voter:  "voter-a",
		Side:   0,
	})
	if err == nil {
		t.Fatalf("expected ballot write to fail")
	}

	if _, found, _ := store.GetVote(context.Background(), "poll-1", "voter-a"); found {
		t.Fatalf("failed ballot must not leave a vote record")
	}
	tallies, err := store.ListTallies(context.Background(), "poll-1")
	if err != nil {
		t.Fatalf("list tallies: %v", err)
	}
	if len(tallies) != 0 {
		t.Fatalf("failed ballot must not move tallies, got %v", tallies)
	}
	poll, err := store.GetPoll(context.Background(), "poll-1")
	if err != nil {
		t.Fatalf("get poll: %v", err)
	}
	if poll.TotalAmount != 0 {
		t.Fatalf("failed ballot must not raise participation, got %d", poll.TotalAmount)
	}
	pending, err := store.ListPendingOutbox(context.Background(), 0)
	if err != nil {
		t.Fatalf("list outbox: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("failed ballot must not emit events, got %d", len(pending))
	}
}

func TestVoterPagingClampsAndExcludesCursor(t *testing.T) {
	module := settlement.NewInMemoryModule(nil)
	pollID := newVotingPoll(t, module, 10)
	castVotes(t, module, pollID, map[uint64]int{0: 3})

	page, err := module.Store.ListVotes(context.Background(), pollID, "voter-0-0", 2, false)
	if err != nil {
		t.Fatalf("list votes: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("expected page of 2, got %d", len(page))
	}
	if page[0].Voter != "voter-0-1" {
		t.Fatalf("cursor must be excluded, got %q", page[0].Voter)
	}
}
