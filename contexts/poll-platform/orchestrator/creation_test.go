package orchestrator_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	orchestrator "pollterra/contexts/poll-platform/orchestrator"
	"pollterra/contexts/poll-platform/orchestrator/adapters/memory"
	"pollterra/contexts/poll-platform/orchestrator/application/commands"
	"pollterra/contexts/poll-platform/orchestrator/domain/entities"
	domainerrors "pollterra/contexts/poll-platform/orchestrator/domain/errors"
	"pollterra/contexts/poll-platform/orchestrator/ports"
)

func newTestModule(t *testing.T) orchestrator.Module {
	t.Helper()
	return orchestrator.NewInMemoryModule(entities.Config{
		Admins:               []string{"admin-1"},
		TokenContract:        "token-contract",
		CreationDeposit:      1000,
		ReclaimableThreshold: 10,
		MinimumBetAmount:     1,
		TaxPercentage:        0.05,
		UpdatedAt:            time.Now().UTC(),
	}, nil)
}

func creationPayload(t *testing.T, pollType string, endTime int64, resolutionTime *int64) json.RawMessage {
	t.Helper()
	payload := map[string]any{
		"code_reference": 7,
		"poll_name":      "will-it-rain",
		"poll_type":      pollType,
		"end_time":       endTime,
	}
	if resolutionTime != nil {
		payload["resolution_time"] = *resolutionTime
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return raw
}

func outboxEnvelopes(t *testing.T, module orchestrator.Module) []ports.EventEnvelope {
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

func TestFundedRequestCommitsPendingAndEmitsIntent(t *testing.T) {
	module := newTestModule(t)
	end := time.Now().UTC().Add(time.Hour).Unix()
	resolution := end + 3600

	err := module.Creations.ReceiveFundedRequest(context.Background(), commands.FundedCreationCommand{
		SenderToken: "token-contract",
		Generator:   "generator-1",
		Amount:      1000,
		Payload:     creationPayload(t, "prediction", end, &resolution),
	})
	if err != nil {
		t.Fatalf("funded request failed: %v", err)
	}

	record, found, err := module.Store.GetPending(context.Background(), entities.InstantiateReplyToken)
	if err != nil || !found {
		t.Fatalf("expected pending creation, found=%v err=%v", found, err)
	}
	if record.Generator != "generator-1" || record.DepositAmount != 1000 {
		t.Fatalf("unexpected pending record: %+v", record)
	}
	if record.PollKind != entities.PollKindPrediction {
		t.Fatalf("unexpected poll kind %q", record.PollKind)
	}

	envelopes := outboxEnvelopes(t, module)
	if len(envelopes) != 1 {
		t.Fatalf("expected 1 outbox envelope, got %d", len(envelopes))
	}
	if envelopes[0].EventType != "poll.instantiate.requested" {
		t.Fatalf("unexpected event type %q", envelopes[0].EventType)
	}
	var data map[string]any
	if err := json.Unmarshal(envelopes[0].Data, &data); err != nil {
		t.Fatalf("decode event data: %v", err)
	}
	init, ok := data["init_payload"].(map[string]any)
	if !ok {
		t.Fatalf("missing init payload in %v", data)
	}
	if init["generator"] != "generator-1" || init["token_contract"] != "token-contract" {
		t.Fatalf("unexpected init payload: %v", init)
	}
	if init["deposit_amount"].(float64) != 1000 {
		t.Fatalf("unexpected deposit amount: %v", init["deposit_amount"])
	}
}

func TestFundedRequestRejectsUnregisteredSender(t *testing.T) {
	module := newTestModule(t)
	end := time.Now().UTC().Add(time.Hour).Unix()

	err := module.Creations.ReceiveFundedRequest(context.Background(), commands.FundedCreationCommand{
		SenderToken: "other-token",
		Generator:   "generator-1",
		Amount:      1000,
		Payload:     creationPayload(t, "opinion", end, nil),
	})
	if !errors.Is(err, domainerrors.ErrIncorrectTokenContract) {
		t.Fatalf("expected incorrect token contract, got %v", err)
	}
}

func TestFundedRequestRejectsBeforeTokenRegistration(t *testing.T) {
	module := orchestrator.NewInMemoryModule(entities.Config{
		Admins:    []string{"admin-1"},
		UpdatedAt: time.Now().UTC(),
	}, nil)
	end := time.Now().UTC().Add(time.Hour).Unix()

	// A blank sender must not match the unregistered config's empty contract.
	err := module.Creations.ReceiveFundedRequest(context.Background(), commands.FundedCreationCommand{
		SenderToken: "   ",
		Generator:   "generator-1",
		Amount:      0,
		Payload:     creationPayload(t, "opinion", end, nil),
	})
	if !errors.Is(err, domainerrors.ErrIncorrectTokenContract) {
		t.Fatalf("expected incorrect token contract, got %v", err)
	}

	if _, found, _ := module.Store.GetPending(context.Background(), entities.InstantiateReplyToken); found {
		t.Fatalf("rejected request must not commit a pending creation")
	}
	if envelopes := outboxEnvelopes(t, module); len(envelopes) != 0 {
		t.Fatalf("rejected request must not emit events, got %d", len(envelopes))
	}
}

func TestFundedRequestDepositGates(t *testing.T) {
	module := newTestModule(t)
	end := time.Now().UTC().Add(time.Hour).Unix()

	err := module.Creations.ReceiveFundedRequest(context.Background(), commands.FundedCreationCommand{
		SenderToken: "token-contract",
		Generator:   "generator-1",
		Amount:      999,
		Payload:     creationPayload(t, "opinion", end, nil),
	})
	if !errors.Is(err, domainerrors.ErrInsufficientTokenDeposit) {
		t.Fatalf("expected insufficient deposit, got %v", err)
	}

	// Overfunding passes the ">=" screen and fails the exact-deposit check.
	err = module.Creations.ReceiveFundedRequest(context.Background(), commands.FundedCreationCommand{
		SenderToken: "token-contract",
		Generator:   "generator-1",
		Amount:      1001,
		Payload:     creationPayload(t, "opinion", end, nil),
	})
	if !errors.Is(err, domainerrors.ErrInvalidTokenDeposit) {
		t.Fatalf("expected invalid deposit, got %v", err)
	}
}

func TestFundedRequestKindInvariants(t *testing.T) {
	module := newTestModule(t)
	end := time.Now().UTC().Add(time.Hour).Unix()
	beforeEnd := end - 60
	afterEnd := end + 60

	cases := []struct {
		name       string
		pollType   string
		resolution *int64
		want       error
	}{
		{"unknown kind", "quiz", nil, domainerrors.ErrInvalidPollKind},
		{"prediction without resolution", "prediction", nil, domainerrors.ErrResolutionTimeRequired},
		{"prediction resolving before end", "prediction", &beforeEnd, domainerrors.ErrEndAfterResolution},
		{"opinion with resolution", "opinion", &afterEnd, domainerrors.ErrUnexpectedResolutionTime},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := module.Creations.ReceiveFundedRequest(context.Background(), commands.FundedCreationCommand{
				SenderToken: "token-contract",
				Generator:   "generator-1",
				Amount:      1000,
				Payload:     creationPayload(t, tc.pollType, end, tc.resolution),
			})
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestCreationSlotSerializesRequests(t *testing.T) {
	module := newTestModule(t)
	end := time.Now().UTC().Add(time.Hour).Unix()

	if err := module.Creations.ReceiveFundedRequest(context.Background(), commands.FundedCreationCommand{
		SenderToken: "token-contract",
		Generator:   "generator-1",
		Amount:      1000,
		Payload:     creationPayload(t, "opinion", end, nil),
	}); err != nil {
		t.Fatalf("first request failed: %v", err)
	}

	err := module.Creations.ReceiveFundedRequest(context.Background(), commands.FundedCreationCommand{
		SenderToken: "token-contract",
		Generator:   "generator-2",
		Amount:      1000,
		Payload:     creationPayload(t, "opinion", end, nil),
	})
	if !errors.Is(err, domainerrors.ErrCreationInFlight) {
		t.Fatalf("expected creation in flight, got %v", err)
	}
}

func TestAcknowledgeUnknownTokenRejected(t *testing.T) {
	module := newTestModule(t)

	err := module.Creations.AcknowledgeInstantiation(context.Background(), commands.AcknowledgeInstantiationCommand{
		Token:           entities.InstantiateReplyToken,
		Success:         true,
		InstanceAddress: "poll-1",
	})
	if !errors.Is(err, domainerrors.ErrUnknownCorrelationToken) {
		t.Fatalf("expected unknown correlation token, got %v", err)
	}
}

func TestAcknowledgeSuccessRegistersAndHandsOffDeposit(t *testing.T) {
	module := newTestModule(t)
	end := time.Now().UTC().Add(time.Hour).Unix()

	if err := module.Creations.ReceiveFundedRequest(context.Background(), commands.FundedCreationCommand{
		SenderToken: "token-contract",
		Generator:   "generator-1",
		Amount:      1000,
		Payload:     creationPayload(t, "opinion", end, nil),
	}); err != nil {
		t.Fatalf("funded request failed: %v", err)
	}

	if err := module.Creations.AcknowledgeInstantiation(context.Background(), commands.AcknowledgeInstantiationCommand{
		Token:           entities.InstantiateReplyToken,
		Success:         true,
		InstanceAddress: "poll-abc",
	}); err != nil {
		t.Fatalf("acknowledge failed: %v", err)
	}

	if _, found, _ := module.Store.GetPending(context.Background(), entities.InstantiateReplyToken); found {
		t.Fatalf("pending record should be consumed")
	}
	polls, err := module.Store.ListPolls(context.Background())
	if err != nil || len(polls) != 1 || polls[0].Address != "poll-abc" {
		t.Fatalf("expected one registered poll, got %v err=%v", polls, err)
	}
	state, err := module.Store.LoadState(context.Background())
	if err != nil || state.NumPolls != 1 {
		t.Fatalf("expected poll counter 1, got %+v err=%v", state, err)
	}

	envelopes := outboxEnvelopes(t, module)
	if len(envelopes) != 2 {
		t.Fatalf("expected instantiate + transfer envelopes, got %d", len(envelopes))
	}
	transfer := envelopes[1]
	if transfer.EventType != "ledger.transfer.requested" {
		t.Fatalf("unexpected event type %q", transfer.EventType)
	}
	var data map[string]any
	if err := json.Unmarshal(transfer.Data, &data); err != nil {
		t.Fatalf("decode transfer data: %v", err)
	}
	if data["recipient"] != "poll-abc" || data["amount"].(float64) != 1000 {
		t.Fatalf("unexpected transfer intent: %v", data)
	}

	// The slot is free again once the acknowledgement consumed the record.
	if err := module.Creations.ReceiveFundedRequest(context.Background(), commands.FundedCreationCommand{
		SenderToken: "token-contract",
		Generator:   "generator-2",
		Amount:      1000,
		Payload:     creationPayload(t, "opinion", end, nil),
	}); err != nil {
		t.Fatalf("slot should be free after acknowledgement: %v", err)
	}
}

// failingSettleRepo reports a write failure on the settlement path while
// leaving the rest of the pending-creation surface on the real store.
type failingSettleRepo struct {
	*memory.Store
}

func (r failingSettleRepo) SettleCreation(context.Context, uint64, entities.PollRegistration, entities.State, ports.EventEnvelope) error {
	return errors.New("write refused")
}

func TestFailedAcknowledgementWriteKeepsPendingCreation(t *testing.T) {
	store := memory.NewStore(entities.Config{
		Admins:          []string{"admin-1"},
		TokenContract:   "token-contract",
		CreationDeposit: 1000,
		UpdatedAt:       time.Now().UTC(),
	})
	creations := commands.CreationUseCase{
		Config:    store,
		Pending:   failingSettleRepo{store},
		Addresses: store,
		Clock:     store,
		IDGen:     store,
	}
	end := time.Now().UTC().Add(time.Hour).Unix()

	if err := creations.ReceiveFundedRequest(context.Background(), commands.FundedCreationCommand{
		SenderToken: "token-contract",
		Generator:   "generator-1",
		Amount:      1000,
		Payload:     creationPayload(t, "opinion", end, nil),
	}); err != nil {
		t.Fatalf("funded request failed: %v", err)
	}

	err := creations.AcknowledgeInstantiation(context.Background(), commands.AcknowledgeInstantiationCommand{
		Token:           entities.InstantiateReplyToken,
		Success:         true,
		InstanceAddress: "poll-abc",
	})
	if err == nil {
		t.Fatalf("expected settlement write to fail")
	}

	if _, found, _ := store.GetPending(context.Background(), entities.InstantiateReplyToken); !found {
		t.Fatalf("failed acknowledgement must keep the pending record")
	}
	polls, _ := store.ListPolls(context.Background())
	if len(polls) != 0 {
		t.Fatalf("failed acknowledgement must not register the instance, got %v", polls)
	}
	state, _ := store.LoadState(context.Background())
	if state.NumPolls != 0 {
		t.Fatalf("failed acknowledgement must not move the poll counter, got %d", state.NumPolls)
	}
	messages, err := store.ListPendingOutbox(context.Background(), 0)
	if err != nil {
		t.Fatalf("list outbox: %v", err)
	}
	if len(messages) != 1 {
		t.Fatalf("expected only the instantiate envelope, got %d", len(messages))
	}
}

func TestAcknowledgeFailureDiscardsWithoutTransfer(t *testing.T) {
	module := newTestModule(t)
	end := time.Now().UTC().Add(time.Hour).Unix()

	if err := module.Creations.ReceiveFundedRequest(context.Background(), commands.FundedCreationCommand{
		SenderToken: "token-contract",
		Generator:   "generator-1",
		Amount:      1000,
		Payload:     creationPayload(t, "opinion", end, nil),
	}); err != nil {
		t.Fatalf("funded request failed: %v", err)
	}

	if err := module.Creations.AcknowledgeInstantiation(context.Background(), commands.AcknowledgeInstantiationCommand{
		Token:   entities.InstantiateReplyToken,
		Success: false,
		Reason:  "instantiation reverted",
	}); err != nil {
		t.Fatalf("failure acknowledgement should not error: %v", err)
	}

	if _, found, _ := module.Store.GetPending(context.Background(), entities.InstantiateReplyToken); found {
		t.Fatalf("pending record should be discarded")
	}
	polls, _ := module.Store.ListPolls(context.Background())
	if len(polls) != 0 {
		t.Fatalf("no poll should be registered, got %v", polls)
	}
	envelopes := outboxEnvelopes(t, module)
	if len(envelopes) != 1 {
		t.Fatalf("expected only the instantiate envelope, got %d", len(envelopes))
	}
}
