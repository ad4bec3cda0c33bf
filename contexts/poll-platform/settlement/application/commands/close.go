package commands

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	application "pollterra/contexts/poll-platform/settlement/application"
	"pollterra/contexts/poll-platform/settlement/domain/entities"
	domainerrors "pollterra/contexts/poll-platform/settlement/domain/errors"
	"pollterra/contexts/poll-platform/settlement/ports"
	"pollterra/internal/shared/ledger"
)

// ClosePollCommand finishes a poll. Forced closes bypass the owner and time
// gates (administrative override); WinnerOverride pins the winner set instead
// of tallying and is only honored on forced closes.
type ClosePollCommand struct {
	PollID         string
	Caller         string
	Forced         bool
	WinnerOverride *uint64
}

type ReclaimDepositCommand struct {
	PollID string
}

type TransferOwnerCommand struct {
	PollID   string
	Caller   string
	NewOwner string
}

// SettleUseCase owns closing, deposit disposition, and ownership transfer.
type SettleUseCase struct {
	Polls     ports.PollRepository
	Addresses ports.AddressValidator
	Clock     ports.Clock
	IDGen     ports.IDGenerator
	Logger    *slog.Logger
}

// ClosePoll transitions Voting -> Closed once, computes the winner set, and
// decides deposit disposition in the same step: participation below the
// reclaimable threshold burns the deposit, otherwise it returns to the
// generator. The reclaimed flag is set before the intent leaves, so no
// observable state exists where the poll is closed but disposition undecided.
func (uc SettleUseCase) ClosePoll(ctx context.Context, cmd ClosePollCommand) error {
	logger := application.ResolveLogger(uc.Logger)

	poll, err := uc.Polls.GetPoll(ctx, cmd.PollID)
	if err != nil {
		return err
	}
	if !cmd.Forced && poll.Owner != strings.TrimSpace(cmd.Caller) {
		return domainerrors.ErrUnauthorized
	}
	if poll.Status != entities.StatusVoting {
		return domainerrors.ErrAlreadyFinished
	}
	now := uc.now()
	if !cmd.Forced && now.Before(poll.EndTime) {
		return domainerrors.ErrPollNotEnded
	}

	winners, err := uc.resolveWinners(ctx, poll, cmd)
	if err != nil {
		return err
	}

	alreadyReclaimed := poll.DepositReclaimed
	poll.Status = entities.StatusClosed
	poll.WinningSides = winners
	poll.DepositReclaimed = true
	poll.UpdatedAt = now

	closed, err := uc.closedEnvelope(ctx, poll, now)
	if err != nil {
		return err
	}
	events := []ports.EventEnvelope{closed}
	disposition := "none"
	if !alreadyReclaimed {
		intent := ledger.NewTransfer(poll.TokenContract, poll.Generator, poll.DepositAmount)
		if poll.TotalAmount < poll.ReclaimableThreshold {
			intent = ledger.NewBurn(poll.TokenContract, poll.DepositAmount)
		}
		envelope, err := uc.intentEnvelope(ctx, poll.ID, intent, now)
		if err != nil {
			return err
		}
		events = append(events, envelope)
		disposition = string(intent.Kind)
	}
	if err := uc.Polls.SettlePoll(ctx, poll, events); err != nil {
		return err
	}

	logger.Info("poll closed",
		"event", "settlement_poll_closed",
		"module", "poll-platform/settlement",
		"layer", "application",
		"poll_id", poll.ID,
		"winning_sides", winners,
		"total_amount", poll.TotalAmount,
		"disposition", disposition,
		"forced", cmd.Forced,
	)
	return nil
}

// resolveWinners scans sides in ascending order tracking the running maximum:
// a strictly greater count restarts the set, an equal count appends. Exact
// ties therefore survive as a multi-entry winner set. Declared sides nobody
// voted for count as zero, so a poll with no votes ties every side.
func (uc SettleUseCase) resolveWinners(ctx context.Context, poll entities.Poll, cmd ClosePollCommand) ([]uint64, error) {
	if cmd.Forced && cmd.WinnerOverride != nil {
		return []uint64{*cmd.WinnerOverride}, nil
	}

	tallies, err := uc.Polls.ListTallies(ctx, poll.ID)
	if err != nil {
		return nil, err
	}
	counts := make(map[uint64]uint64, len(tallies))
	sides := make([]uint64, 0, len(tallies))
	for _, tally := range tallies {
		counts[tally.Side] = tally.Count
		sides = append(sides, tally.Side)
	}
	for side := uint64(0); side < poll.NumSides; side++ {
		if _, ok := counts[side]; !ok {
			counts[side] = 0
			sides = append(sides, side)
		}
	}
	sort.Slice(sides, func(i, j int) bool { return sides[i] < sides[j] })

	winners := make([]uint64, 0)
	var countMax uint64
	for _, side := range sides {
		switch {
		case counts[side] > countMax:
			winners = winners[:0]
			winners = append(winners, side)
			countMax = counts[side]
		case counts[side] == countMax:
			winners = append(winners, side)
		}
	}
	return winners, nil
}

// ReclaimDeposit is the early disposition path, open before formal closing
// once participation reaches the threshold. The reclaimed flag guarantees at
// most one disposition per instance across both paths.
func (uc SettleUseCase) ReclaimDeposit(ctx context.Context, cmd ReclaimDepositCommand) error {
	logger := application.ResolveLogger(uc.Logger)

	poll, err := uc.Polls.GetPoll(ctx, cmd.PollID)
	if err != nil {
		return err
	}
	if poll.DepositReclaimed {
		return domainerrors.ErrAlreadyReclaimed
	}
	if poll.TotalAmount < poll.ReclaimableThreshold {
		return domainerrors.ErrThresholdNotMet
	}

	now := uc.now()
	poll.DepositReclaimed = true
	poll.UpdatedAt = now

	intent := ledger.NewTransfer(poll.TokenContract, poll.Generator, poll.DepositAmount)
	envelope, err := uc.intentEnvelope(ctx, poll.ID, intent, now)
	if err != nil {
		return err
	}
	if err := uc.Polls.SettlePoll(ctx, poll, []ports.EventEnvelope{envelope}); err != nil {
		return err
	}

	logger.Info("deposit reclaimed",
		"event", "settlement_deposit_reclaimed",
		"module", "poll-platform/settlement",
		"layer", "application",
		"poll_id", poll.ID,
		"amount", poll.DepositAmount,
		"recipient", poll.Generator,
	)
	return nil
}

// TransferOwner replaces the instance's single owner identity.
func (uc SettleUseCase) TransferOwner(ctx context.Context, cmd TransferOwnerCommand) error {
	poll, err := uc.Polls.GetPoll(ctx, cmd.PollID)
	if err != nil {
		return err
	}
	if poll.Owner != strings.TrimSpace(cmd.Caller) {
		return domainerrors.ErrUnauthorized
	}
	newOwner := strings.TrimSpace(cmd.NewOwner)
	if err := uc.Addresses.Validate(newOwner); err != nil {
		return domainerrors.ErrInvalidAddress
	}

	poll.Owner = newOwner
	poll.UpdatedAt = uc.now()
	return uc.Polls.SavePoll(ctx, poll)
}

func (uc SettleUseCase) closedEnvelope(ctx context.Context, poll entities.Poll, now time.Time) (ports.EventEnvelope, error) {
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	return newSettlementEnvelope(eventID, TopicPollClosed, poll.ID, now, map[string]any{
		"poll_id":       poll.ID,
		"winning_sides": poll.WinningSides,
		"total_amount":  poll.TotalAmount,
	})
}

func (uc SettleUseCase) intentEnvelope(ctx context.Context, pollID string, intent ledger.Intent, now time.Time) (ports.EventEnvelope, error) {
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	topic := TopicLedgerTransfer
	if intent.Kind == ledger.IntentBurn {
		topic = TopicLedgerBurn
	}
	return newSettlementEnvelope(eventID, topic, pollID, now, map[string]any{
		"kind":      string(intent.Kind),
		"token":     intent.Token,
		"recipient": intent.Recipient,
		"amount":    intent.Amount,
	})
}

func (uc SettleUseCase) now() time.Time {
	if uc.Clock != nil {
		return uc.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
