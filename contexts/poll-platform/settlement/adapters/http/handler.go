package httpadapter

import (
	"context"
	"log/slog"

	"pollterra/contexts/poll-platform/settlement/application/commands"
	"pollterra/contexts/poll-platform/settlement/application/queries"
	"pollterra/contexts/poll-platform/settlement/domain/entities"
	httptransport "pollterra/contexts/poll-platform/settlement/transport/http"
)

type Handler struct {
	Votes   commands.VoteUseCase
	Settles commands.SettleUseCase
	Polls   queries.PollUseCase
	Logger  *slog.Logger
}

func (h Handler) CastVoteHandler(ctx context.Context, pollID string, req httptransport.CastVoteRequest) error {
	return h.Votes.CastVote(ctx, commands.CastVoteCommand{
		PollID:        pollID,
		Voter:         req.Voter,
		Side:          req.Side,
		AttachedFunds: req.AttachedFunds,
	})
}

func (h Handler) ClosePollHandler(ctx context.Context, pollID string, req httptransport.ClosePollRequest) error {
	return h.Settles.ClosePoll(ctx, commands.ClosePollCommand{
		PollID: pollID,
		Caller: req.Caller,
	})
}

func (h Handler) ReclaimDepositHandler(ctx context.Context, pollID string, _ httptransport.ReclaimDepositRequest) error {
	return h.Settles.ReclaimDeposit(ctx, commands.ReclaimDepositCommand{PollID: pollID})
}

func (h Handler) TransferOwnerHandler(ctx context.Context, pollID string, req httptransport.TransferOwnerRequest) error {
	return h.Settles.TransferOwner(ctx, commands.TransferOwnerCommand{
		PollID:   pollID,
		Caller:   req.Caller,
		NewOwner: req.NewOwner,
	})
}

func (h Handler) PollHandler(ctx context.Context, pollID string) (httptransport.PollResponse, error) {
	poll, err := h.Polls.PollByID(ctx, pollID)
	if err != nil {
		return httptransport.PollResponse{}, err
	}
	return pollResponse(poll), nil
}

func (h Handler) TallyHandler(ctx context.Context, pollID string) (httptransport.TallyResponse, error) {
	tallies, err := h.Polls.Tallies(ctx, pollID)
	if err != nil {
		return httptransport.TallyResponse{}, err
	}
	sides := make([]httptransport.SideTallyItem, 0, len(tallies))
	for _, tally := range tallies {
		sides = append(sides, httptransport.SideTallyItem{Side: tally.Side, Count: tally.Count})
	}
	return httptransport.TallyResponse{PollID: pollID, Sides: sides}, nil
}

func (h Handler) VoterHandler(ctx context.Context, pollID string, voter string) (httptransport.VoterItem, error) {
	record, err := h.Polls.VoterRecord(ctx, pollID, voter)
	if err != nil {
		return httptransport.VoterItem{}, err
	}
	return httptransport.VoterItem{Voter: record.Voter, Side: record.Side, CastAt: record.CastAt}, nil
}

func (h Handler) VoterListHandler(ctx context.Context, pollID string, startAfter string, limit int, descending bool) (httptransport.VoterListResponse, error) {
	records, err := h.Polls.Voters(ctx, pollID, startAfter, limit, descending)
	if err != nil {
		return httptransport.VoterListResponse{}, err
	}
	items := make([]httptransport.VoterItem, 0, len(records))
	for _, record := range records {
		items = append(items, httptransport.VoterItem{Voter: record.Voter, Side: record.Side, CastAt: record.CastAt})
	}
	return httptransport.VoterListResponse{PollID: pollID, Items: items}, nil
}

func pollResponse(poll entities.Poll) httptransport.PollResponse {
	var resolutionTime *int64
	if poll.ResolutionTime != nil {
		unix := poll.ResolutionTime.Unix()
		resolutionTime = &unix
	}
	winningSides := poll.WinningSides
	if winningSides == nil {
		winningSides = []uint64{}
	}
	return httptransport.PollResponse{
		ID:                   poll.ID,
		Owner:                poll.Owner,
		Generator:            poll.Generator,
		TokenContract:        poll.TokenContract,
		PollName:             poll.PollName,
		PollKind:             poll.PollKind,
		EndTime:              poll.EndTime.Unix(),
		ResolutionTime:       resolutionTime,
		NumSides:             poll.NumSides,
		ReclaimableThreshold: poll.ReclaimableThreshold,
		MinimumBetAmount:     poll.MinimumBetAmount,
		TaxPercentage:        poll.TaxPercentage,
		DepositAmount:        poll.DepositAmount,
		Status:               string(poll.Status),
		TotalAmount:          poll.TotalAmount,
		WinningSides:         winningSides,
		DepositReclaimed:     poll.DepositReclaimed,
	}
}
