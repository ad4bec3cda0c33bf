package commands

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "pollterra/contexts/poll-platform/settlement/application"
	"pollterra/contexts/poll-platform/settlement/domain/entities"
	domainerrors "pollterra/contexts/poll-platform/settlement/domain/errors"
	"pollterra/contexts/poll-platform/settlement/ports"
)

// CreatePollCommand carries the init payload of a freshly instantiated poll.
type CreatePollCommand struct {
	ID                   string
	Owner                string
	Generator            string
	TokenContract        string
	PollName             string
	PollKind             string
	EndTime              time.Time
	ResolutionTime       *time.Time
	NumSides             uint64
	ReclaimableThreshold uint64
	MinimumBetAmount     uint64
	TaxPercentage        float64
	DepositAmount        uint64
}

// CastVoteCommand is a zero-cost ballot: any attached funds reject the call.
type CastVoteCommand struct {
	PollID        string
	Voter         string
	Side          uint64
	AttachedFunds uint64
}

// VoteUseCase owns the voting half of the settlement state machine.
type VoteUseCase struct {
	Polls     ports.PollRepository
	Addresses ports.AddressValidator
	Clock     ports.Clock
	IDGen     ports.IDGenerator
	Logger    *slog.Logger
}

// CreatePoll constructs the instance in state Voting with empty tallies. A
// side count of zero is rejected: a closed poll must always name at least one
// winning side, which needs at least one declared side to scan.
func (uc VoteUseCase) CreatePoll(ctx context.Context, cmd CreatePollCommand) error {
	logger := application.ResolveLogger(uc.Logger)

	if err := uc.Addresses.Validate(cmd.Generator); err != nil {
		return domainerrors.ErrInvalidAddress
	}
	if cmd.NumSides == 0 {
		return domainerrors.ErrInvalidSideCount
	}

	now := uc.now()
	poll := entities.Poll{
		ID:                   strings.TrimSpace(cmd.ID),
		Owner:                strings.TrimSpace(cmd.Owner),
		Generator:            strings.TrimSpace(cmd.Generator),
		TokenContract:        strings.TrimSpace(cmd.TokenContract),
		PollName:             cmd.PollName,
		PollKind:             cmd.PollKind,
		EndTime:              cmd.EndTime.UTC(),
		ResolutionTime:       cmd.ResolutionTime,
		NumSides:             cmd.NumSides,
		ReclaimableThreshold: cmd.ReclaimableThreshold,
		MinimumBetAmount:     cmd.MinimumBetAmount,
		TaxPercentage:        cmd.TaxPercentage,
		DepositAmount:        cmd.DepositAmount,
		Status:               entities.StatusVoting,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := uc.Polls.CreatePoll(ctx, poll); err != nil {
		return err
	}

	logger.Info("poll instance created",
		"event", "settlement_poll_created",
		"module", "poll-platform/settlement",
		"layer", "application",
		"poll_id", poll.ID,
		"poll_kind", poll.PollKind,
		"end_time", poll.EndTime,
	)
	return nil
}

// CastVote records one participant's side before the window elapses. The
// first vote wins: repeats are rejected without touching the original record.
func (uc VoteUseCase) CastVote(ctx context.Context, cmd CastVoteCommand) error {
	logger := application.ResolveLogger(uc.Logger)

	poll, err := uc.Polls.GetPoll(ctx, cmd.PollID)
	if err != nil {
		return err
	}

	now := uc.now()
	if !now.Before(poll.EndTime) {
		logger.Warn("ballot after voting window",
			"event", "settlement_vote_window_elapsed",
			"module", "poll-platform/settlement",
			"layer", "application",
			"poll_id", poll.ID,
			"voter", cmd.Voter,
			"end_time", poll.EndTime,
		)
		return domainerrors.ErrVotingClosed
	}
	if _, voted, err := uc.Polls.GetVote(ctx, poll.ID, cmd.Voter); err != nil {
		return err
	} else if voted {
		return domainerrors.ErrAlreadyVoted
	}
	if cmd.AttachedFunds != 0 {
		return domainerrors.ErrUnexpectedFunds
	}
	if err := uc.Addresses.Validate(cmd.Voter); err != nil {
		return domainerrors.ErrInvalidAddress
	}

	record := entities.VoteRecord{
		PollID: poll.ID,
		Voter:  strings.TrimSpace(cmd.Voter),
		Side:   cmd.Side,
		CastAt: now,
	}
	poll.TotalAmount++
	poll.UpdatedAt = now

	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return err
	}
	envelope, err := newSettlementEnvelope(eventID, TopicVoteCast, poll.ID, now, map[string]any{
		"poll_id": poll.ID,
		"address": record.Voter,
		"side":    cmd.Side,
	})
	if err != nil {
		return err
	}
	if err := uc.Polls.RecordVote(ctx, poll, record, envelope); err != nil {
		return err
	}

	logger.Info("vote cast",
		"event", "settlement_vote_cast",
		"module", "poll-platform/settlement",
		"layer", "application",
		"poll_id", poll.ID,
		"voter", cmd.Voter,
		"side", cmd.Side,
		"total_amount", poll.TotalAmount,
	)
	return nil
}

func (uc VoteUseCase) now() time.Time {
	if uc.Clock != nil {
		return uc.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
