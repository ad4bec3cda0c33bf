package httpadapter

import (
	"context"
	"log/slog"

	"pollterra/contexts/poll-platform/orchestrator/application/commands"
	"pollterra/contexts/poll-platform/orchestrator/application/queries"
	httptransport "pollterra/contexts/poll-platform/orchestrator/transport/http"
)

type Handler struct {
	Creations commands.CreationUseCase
	Admin     commands.AdminUseCase
	Platform  queries.PlatformUseCase
	Logger    *slog.Logger
}

func (h Handler) FundedCreationHandler(ctx context.Context, req httptransport.FundedCreationRequest) error {
	return h.Creations.ReceiveFundedRequest(ctx, commands.FundedCreationCommand{
		SenderToken: req.SenderToken,
		Generator:   req.Generator,
		Amount:      req.Amount,
		Payload:     req.Payload,
	})
}

func (h Handler) AcknowledgementHandler(ctx context.Context, req httptransport.AcknowledgementRequest) error {
	return h.Creations.AcknowledgeInstantiation(ctx, commands.AcknowledgeInstantiationCommand{
		Token:           req.CorrelationToken,
		Success:         req.Success,
		InstanceAddress: req.InstanceAddress,
		Reason:          req.Reason,
	})
}

func (h Handler) RegisterTokenHandler(ctx context.Context, req httptransport.RegisterTokenRequest) error {
	return h.Admin.RegisterPaymentToken(ctx, commands.RegisterPaymentTokenCommand{
		Caller:          req.Caller,
		TokenContract:   req.TokenContract,
		CreationDeposit: req.CreationDeposit,
	})
}

func (h Handler) UpdateConfigHandler(ctx context.Context, req httptransport.UpdateConfigRequest) error {
	return h.Admin.UpdateConfig(ctx, commands.UpdateConfigCommand{
		Caller:               req.Caller,
		CreationDeposit:      req.CreationDeposit,
		ReclaimableThreshold: req.ReclaimableThreshold,
		Admins:               req.Admins,
	})
}

func (h Handler) FinishPollHandler(ctx context.Context, pollAddress string, req httptransport.FinishPollRequest) error {
	return h.Admin.FinishPoll(ctx, commands.FinishPollCommand{
		Caller:      req.Caller,
		PollAddress: pollAddress,
		PollKind:    req.PollKind,
		Winner:      req.Winner,
		Forced:      req.Forced,
	})
}

func (h Handler) TransferHandler(ctx context.Context, req httptransport.TransferRequest) error {
	return h.Admin.Transfer(ctx, commands.TransferCommand{
		Caller:    req.Caller,
		Recipient: req.Recipient,
		Amount:    req.Amount,
	})
}

func (h Handler) ConfigHandler(ctx context.Context) (httptransport.ConfigResponse, error) {
	config, err := h.Platform.CurrentConfig(ctx)
	if err != nil {
		return httptransport.ConfigResponse{}, err
	}
	state, err := h.Platform.CurrentState(ctx)
	if err != nil {
		return httptransport.ConfigResponse{}, err
	}
	return httptransport.ConfigResponse{
		Admins:               config.Admins,
		TokenContract:        config.TokenContract,
		CreationDeposit:      config.CreationDeposit,
		ReclaimableThreshold: config.ReclaimableThreshold,
		MinimumBetAmount:     config.MinimumBetAmount,
		TaxPercentage:        config.TaxPercentage,
		NumPolls:             state.NumPolls,
	}, nil
}

func (h Handler) PollListHandler(ctx context.Context) (httptransport.PollListResponse, error) {
	registrations, err := h.Platform.RegisteredPolls(ctx)
	if err != nil {
		return httptransport.PollListResponse{}, err
	}
	items := make([]httptransport.PollRegistrationItem, 0, len(registrations))
	for _, registration := range registrations {
		items = append(items, httptransport.PollRegistrationItem{
			Address:  registration.Address,
			PollKind: string(registration.PollKind),
			PollName: registration.PollName,
		})
	}
	return httptransport.PollListResponse{Items: items}, nil
}
