package commands

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"
	"time"

	application "pollterra/contexts/poll-platform/orchestrator/application"
	"pollterra/contexts/poll-platform/orchestrator/domain/entities"
	domainerrors "pollterra/contexts/poll-platform/orchestrator/domain/errors"
	"pollterra/contexts/poll-platform/orchestrator/ports"
	"pollterra/internal/shared/ledger"
)

// FundedCreationCommand is a creation request forwarded by the registered
// token contract together with the escrowed funds.
type FundedCreationCommand struct {
	SenderToken string
	Generator   string
	Amount      uint64
	Payload     json.RawMessage
}

// creationPayload is the wire shape of the token hook message. PollType is a
// raw string here and nowhere else: it is parsed into entities.PollKind once,
// at this boundary.
type creationPayload struct {
	CodeReference  uint64  `json:"code_reference"`
	PollName       string  `json:"poll_name"`
	PollType       string  `json:"poll_type"`
	EndTime        int64   `json:"end_time"`
	ResolutionTime *int64  `json:"resolution_time,omitempty"`
	PollAdmin      string  `json:"poll_admin,omitempty"`
	NumSides       *uint64 `json:"num_sides,omitempty"`
}

// AcknowledgeInstantiationCommand is the asynchronous reply delivered after
// the platform finished (or failed) instantiating the requested poll.
type AcknowledgeInstantiationCommand struct {
	Token           uint64
	Success         bool
	InstanceAddress string
	Reason          string
}

// CreationUseCase drives the deferred creation protocol: funded request in,
// instantiation intent out, deposit handoff after the acknowledgement.
type CreationUseCase struct {
	Config    ports.ConfigRepository
	Pending   ports.PendingCreationRepository
	Addresses ports.AddressValidator
	Clock     ports.Clock
	IDGen     ports.IDGenerator
	Logger    *slog.Logger
}

// ReceiveFundedRequest validates the funded request envelope and dispatches
// into poll initialization. No state is persisted on any rejection.
func (uc CreationUseCase) ReceiveFundedRequest(ctx context.Context, cmd FundedCreationCommand) error {
	logger := application.ResolveLogger(uc.Logger)
	logger.Info("funded creation request received",
		"event", "orchestrator_creation_received",
		"module", "poll-platform/orchestrator",
		"layer", "application",
		"sender_token", cmd.SenderToken,
		"generator", cmd.Generator,
		"amount", cmd.Amount,
	)

	config, err := uc.Config.LoadConfig(ctx)
	if err != nil {
		return err
	}
	// An unregistered config has an empty token contract; nothing may match it.
	if config.TokenContract == "" || config.TokenContract != strings.TrimSpace(cmd.SenderToken) {
		logger.Warn("creation request from unregistered token contract",
			"event", "orchestrator_creation_wrong_token",
			"module", "poll-platform/orchestrator",
			"layer", "application",
			"sender_token", cmd.SenderToken,
		)
		return domainerrors.ErrIncorrectTokenContract
	}
	if cmd.Amount < config.CreationDeposit {
		logger.Warn("creation request underfunded",
			"event", "orchestrator_creation_underfunded",
			"module", "poll-platform/orchestrator",
			"layer", "application",
			"amount", cmd.Amount,
			"creation_deposit", config.CreationDeposit,
		)
		return domainerrors.ErrInsufficientTokenDeposit
	}

	var payload creationPayload
	if err := json.Unmarshal(cmd.Payload, &payload); err != nil {
		return domainerrors.ErrInvalidCreationPayload
	}
	return uc.initPoll(ctx, config, cmd.Generator, cmd.Amount, payload)
}

// initPoll enforces the exact-deposit and kind-specific invariants, commits
// the pending record on the shared correlation token, and emits the
// instantiation intent. Funds were already checked with ">=" upstream; the
// "==" here is kept deliberately (source behavior, unconfirmed intent).
func (uc CreationUseCase) initPoll(
	ctx context.Context,
	config entities.Config,
	generator string,
	depositAmount uint64,
	payload creationPayload,
) error {
	logger := application.ResolveLogger(uc.Logger)

	if depositAmount != config.CreationDeposit {
		return domainerrors.ErrInvalidTokenDeposit
	}

	kind := entities.PollKind(strings.TrimSpace(payload.PollType))
	if !kind.Valid() {
		return domainerrors.ErrInvalidPollKind
	}

	endTime := time.Unix(payload.EndTime, 0).UTC()
	var resolutionTime *time.Time
	if payload.ResolutionTime != nil {
		resolved := time.Unix(*payload.ResolutionTime, 0).UTC()
		resolutionTime = &resolved
	}
	switch kind {
	case entities.PollKindPrediction:
		if resolutionTime == nil {
			return domainerrors.ErrResolutionTimeRequired
		}
		if resolutionTime.Before(endTime) {
			return domainerrors.ErrEndAfterResolution
		}
	case entities.PollKindOpinion:
		if resolutionTime != nil {
			return domainerrors.ErrUnexpectedResolutionTime
		}
	}

	if err := uc.Addresses.Validate(generator); err != nil {
		return domainerrors.ErrInvalidAddress
	}

	numSides := uint64(2)
	if payload.NumSides != nil {
		numSides = *payload.NumSides
	}

	now := uc.now()
	record := entities.PendingCreation{
		Token:          entities.InstantiateReplyToken,
		Generator:      strings.TrimSpace(generator),
		DepositAmount:  depositAmount,
		PollName:       strings.TrimSpace(payload.PollName),
		PollKind:       kind,
		CodeReference:  payload.CodeReference,
		PollAdmin:      strings.TrimSpace(payload.PollAdmin),
		EndTime:        endTime,
		ResolutionTime: resolutionTime,
		NumSides:       numSides,
		CreatedAt:      now,
	}
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return err
	}
	data := map[string]any{
		"correlation_token": record.Token,
		"code_reference":    record.CodeReference,
		"admin":             record.PollAdmin,
		"label":             record.PollName,
		"funds":             []any{},
		"init_payload": map[string]any{
			"generator":             record.Generator,
			"token_contract":        config.TokenContract,
			"deposit_amount":        record.DepositAmount,
			"reclaimable_threshold": config.ReclaimableThreshold,
			"poll_name":             record.PollName,
			"poll_type":             string(record.PollKind),
			"end_time":              record.EndTime.Unix(),
			"num_sides":             record.NumSides,
			"resolution_time":       unixOrNil(record.ResolutionTime),
			"minimum_bet_amount":    config.MinimumBetAmount,
			"tax_percentage":        config.TaxPercentage,
		},
	}
	envelope, err := newOrchestratorEnvelope(eventID, TopicInstantiateRequested, tokenKey(record.Token), now, data)
	if err != nil {
		return err
	}
	if err := uc.Pending.CommitPending(ctx, record, envelope); err != nil {
		return err
	}

	logger.Info("poll instantiation requested",
		"event", "orchestrator_instantiation_requested",
		"module", "poll-platform/orchestrator",
		"layer", "application",
		"poll_name", record.PollName,
		"poll_kind", string(record.PollKind),
		"generator", record.Generator,
		"correlation_token", record.Token,
	)
	return nil
}

// AcknowledgeInstantiation consumes the pending record for the reply token.
// Success hands the escrowed deposit to the reported instance address;
// failure discards the record without a transfer. Both branches delete the
// record, so a duplicate acknowledgement fails the token lookup.
func (uc CreationUseCase) AcknowledgeInstantiation(ctx context.Context, cmd AcknowledgeInstantiationCommand) error {
	logger := application.ResolveLogger(uc.Logger)

	record, found, err := uc.Pending.GetPending(ctx, cmd.Token)
	if err != nil {
		return err
	}
	if !found {
		logger.Warn("acknowledgement for unknown correlation token",
			"event", "orchestrator_ack_unknown_token",
			"module", "poll-platform/orchestrator",
			"layer", "application",
			"correlation_token", cmd.Token,
		)
		return domainerrors.ErrUnknownCorrelationToken
	}

	if !cmd.Success {
		if err := uc.Pending.DeletePending(ctx, cmd.Token); err != nil {
			return err
		}
		logger.Warn("poll instantiation failed; pending creation discarded",
			"event", "orchestrator_instantiation_failed",
			"module", "poll-platform/orchestrator",
			"layer", "application",
			"correlation_token", cmd.Token,
			"poll_name", record.PollName,
			"reason", cmd.Reason,
		)
		return nil
	}

	address := strings.TrimSpace(cmd.InstanceAddress)
	if err := uc.Addresses.Validate(address); err != nil {
		return domainerrors.ErrInvalidAddress
	}

	config, err := uc.Config.LoadConfig(ctx)
	if err != nil {
		return err
	}
	state, err := uc.Config.LoadState(ctx)
	if err != nil {
		return err
	}
	now := uc.now()
	state.NumPolls++
	state.UpdatedAt = now

	intent := ledger.NewTransfer(config.TokenContract, address, record.DepositAmount)
	envelope, err := uc.ledgerIntentEnvelope(ctx, intent, tokenKey(cmd.Token))
	if err != nil {
		return err
	}
	registration := entities.PollRegistration{
		Address:      address,
		PollKind:     record.PollKind,
		PollName:     record.PollName,
		RegisteredAt: now,
	}
	if err := uc.Pending.SettleCreation(ctx, cmd.Token, registration, state, envelope); err != nil {
		return err
	}

	logger.Info("deposit handed off to poll instance",
		"event", "orchestrator_deposit_transferred",
		"module", "poll-platform/orchestrator",
		"layer", "application",
		"correlation_token", cmd.Token,
		"poll_address", address,
		"amount", record.DepositAmount,
	)
	return nil
}

func (uc CreationUseCase) ledgerIntentEnvelope(ctx context.Context, intent ledger.Intent, partitionKey string) (ports.EventEnvelope, error) {
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	return newOrchestratorEnvelope(eventID, TopicLedgerTransfer, partitionKey, uc.now(), map[string]any{
		"kind":      string(intent.Kind),
		"token":     intent.Token,
		"recipient": intent.Recipient,
		"amount":    intent.Amount,
	})
}

func (uc CreationUseCase) now() time.Time {
	if uc.Clock != nil {
		return uc.Clock.Now().UTC()
	}
	return time.Now().UTC()
}

func unixOrNil(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.Unix()
}

func tokenKey(token uint64) string {
	return strconv.FormatUint(token, 10)
}
