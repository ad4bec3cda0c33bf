package httpadapter

import (
	"context"
	"log/slog"
	"time"

	"pollterra/contexts/poll-platform/treasury/application/commands"
	"pollterra/contexts/poll-platform/treasury/application/queries"
	httptransport "pollterra/contexts/poll-platform/treasury/transport/http"
)

type Handler struct {
	Allowances    commands.AllowanceUseCase
	Distributions commands.DistributionUseCase
	Treasury      queries.TreasuryUseCase
	Logger        *slog.Logger
}

func (h Handler) UpdateAdminsHandler(ctx context.Context, req httptransport.UpdateAdminsRequest) error {
	return h.Allowances.UpdateAdmins(ctx, commands.UpdateAdminsCommand{
		Caller: req.Caller,
		Admins: req.Admins,
	})
}

func (h Handler) IncreaseAllowanceHandler(ctx context.Context, address string, req httptransport.ChangeAllowanceRequest) error {
	return h.Allowances.IncreaseAllowance(ctx, commands.ChangeAllowanceCommand{
		Caller:  req.Caller,
		Address: address,
		Amount:  req.Amount,
	})
}

func (h Handler) DecreaseAllowanceHandler(ctx context.Context, address string, req httptransport.ChangeAllowanceRequest) error {
	return h.Allowances.DecreaseAllowance(ctx, commands.ChangeAllowanceCommand{
		Caller:  req.Caller,
		Address: address,
		Amount:  req.Amount,
	})
}

func (h Handler) SpendHandler(ctx context.Context, req httptransport.SpendRequest) error {
	return h.Allowances.Spend(ctx, commands.SpendCommand{
		Caller:    req.Caller,
		Recipient: req.Recipient,
		Amount:    req.Amount,
	})
}

func (h Handler) RegisterDistributionHandler(ctx context.Context, req httptransport.RegisterDistributionRequest) (httptransport.RegisteredResponse, error) {
	id, err := h.Distributions.RegisterDistribution(ctx, commands.RegisterDistributionCommand{
		Caller:    req.Caller,
		Recipient: req.Recipient,
		Amount:    req.Amount,
		StartTime: time.Unix(req.StartTime, 0).UTC(),
		EndTime:   time.Unix(req.EndTime, 0).UTC(),
		Message:   req.Message,
	})
	if err != nil {
		return httptransport.RegisteredResponse{}, err
	}
	return httptransport.RegisteredResponse{ID: id}, nil
}

func (h Handler) UpdateDistributionHandler(ctx context.Context, id string, req httptransport.UpdateDistributionRequest) error {
	return h.Distributions.UpdateDistribution(ctx, commands.UpdateDistributionCommand{
		Caller:    req.Caller,
		ID:        id,
		Recipient: req.Recipient,
		Amount:    req.Amount,
		StartTime: timeOrNil(req.StartTime),
		EndTime:   timeOrNil(req.EndTime),
		Message:   req.Message,
	})
}

func (h Handler) RemoveDistributionMessageHandler(ctx context.Context, id string, req httptransport.RemoveDistributionMessageRequest) error {
	return h.Distributions.RemoveDistributionMessage(ctx, commands.RemoveDistributionMessageCommand{
		Caller: req.Caller,
		ID:     id,
	})
}

func (h Handler) DistributeHandler(ctx context.Context, req httptransport.DistributeRequest) error {
	return h.Distributions.Distribute(ctx, req.Caller)
}

func (h Handler) TransferHandler(ctx context.Context, req httptransport.TransferRequest) error {
	return h.Distributions.Transfer(ctx, commands.TransferCommand{
		Caller:    req.Caller,
		Recipient: req.Recipient,
		Amount:    req.Amount,
	})
}

func (h Handler) ConfigHandler(ctx context.Context) (httptransport.ConfigResponse, error) {
	config, err := h.Treasury.CurrentConfig(ctx)
	if err != nil {
		return httptransport.ConfigResponse{}, err
	}
	admins := config.Admins
	if admins == nil {
		admins = []string{}
	}
	return httptransport.ConfigResponse{
		Admins:        admins,
		ManagingToken: config.ManagingToken,
	}, nil
}

func (h Handler) BalanceHandler(ctx context.Context) (httptransport.BalanceResponse, error) {
	config, err := h.Treasury.CurrentConfig(ctx)
	if err != nil {
		return httptransport.BalanceResponse{}, err
	}
	amount, err := h.Treasury.ManagedBalance(ctx)
	if err != nil {
		return httptransport.BalanceResponse{}, err
	}
	return httptransport.BalanceResponse{Denom: config.ManagingToken, Amount: amount}, nil
}

func (h Handler) AllowanceHandler(ctx context.Context, address string) (httptransport.AllowanceResponse, error) {
	allowance, err := h.Treasury.AllowanceOf(ctx, address)
	if err != nil {
		return httptransport.AllowanceResponse{}, err
	}
	return httptransport.AllowanceResponse{
		Address:       allowance.Address,
		AllowedAmount: allowance.AllowedAmount,
		RemainAmount:  allowance.RemainAmount,
	}, nil
}

func (h Handler) AllowanceListHandler(ctx context.Context, startAfter string, limit int, descending bool) (httptransport.AllowanceListResponse, error) {
	allowances, err := h.Treasury.AllowancePage(ctx, startAfter, limit, descending)
	if err != nil {
		return httptransport.AllowanceListResponse{}, err
	}
	items := make([]httptransport.AllowanceResponse, 0, len(allowances))
	for _, allowance := range allowances {
		items = append(items, httptransport.AllowanceResponse{
			Address:       allowance.Address,
			AllowedAmount: allowance.AllowedAmount,
			RemainAmount:  allowance.RemainAmount,
		})
	}
	return httptransport.AllowanceListResponse{Items: items}, nil
}

func (h Handler) DistributionListHandler(ctx context.Context) ([]httptransport.DistributionResponse, error) {
	distributions, err := h.Treasury.AllDistributions(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]httptransport.DistributionResponse, 0, len(distributions))
	for _, distribution := range distributions {
		items = append(items, httptransport.DistributionResponse{
			ID:        distribution.ID,
			Recipient: distribution.Recipient,
			Amount:    distribution.Amount,
			Released:  distribution.Released,
			StartTime: distribution.StartTime.Unix(),
			EndTime:   distribution.EndTime.Unix(),
			Message:   distribution.Message,
		})
	}
	return items, nil
}

func timeOrNil(unix *int64) *time.Time {
	if unix == nil {
		return nil
	}
	value := time.Unix(*unix, 0).UTC()
	return &value
}
