package queries

import (
	"context"

	"pollterra/contexts/poll-platform/settlement/domain/entities"
	domainerrors "pollterra/contexts/poll-platform/settlement/domain/errors"
	"pollterra/contexts/poll-platform/settlement/ports"
)

const (
	defaultVoterPageSize = 10
	maxVoterPageSize     = 30
)

// PollUseCase serves read paths over poll instances.
type PollUseCase struct {
	Polls ports.PollRepository
}

func (uc PollUseCase) PollByID(ctx context.Context, pollID string) (entities.Poll, error) {
	return uc.Polls.GetPoll(ctx, pollID)
}

// Tallies returns per-side counts in ascending side order. Sides nobody voted
// for have no row.
func (uc PollUseCase) Tallies(ctx context.Context, pollID string) ([]entities.SideTally, error) {
	if _, err := uc.Polls.GetPoll(ctx, pollID); err != nil {
		return nil, err
	}
	return uc.Polls.ListTallies(ctx, pollID)
}

func (uc PollUseCase) VoterRecord(ctx context.Context, pollID string, voter string) (entities.VoteRecord, error) {
	record, found, err := uc.Polls.GetVote(ctx, pollID, voter)
	if err != nil {
		return entities.VoteRecord{}, err
	}
	if !found {
		return entities.VoteRecord{}, domainerrors.ErrVoterNotFound
	}
	return record, nil
}

// Voters pages voter records by address. The page size is clamped, and
// startAfter excludes the cursor address itself.
func (uc PollUseCase) Voters(ctx context.Context, pollID string, startAfter string, limit int, descending bool) ([]entities.VoteRecord, error) {
	if _, err := uc.Polls.GetPoll(ctx, pollID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultVoterPageSize
	}
	if limit > maxVoterPageSize {
		limit = maxVoterPageSize
	}
	return uc.Polls.ListVotes(ctx, pollID, startAfter, limit, descending)
}
