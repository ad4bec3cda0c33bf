package workers_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"pollterra/contexts/poll-platform/settlement/adapters/memory"
	"pollterra/contexts/poll-platform/settlement/application/commands"
	"pollterra/contexts/poll-platform/settlement/application/workers"
	"pollterra/contexts/poll-platform/settlement/domain/entities"
	domainerrors "pollterra/contexts/poll-platform/settlement/domain/errors"
	"pollterra/contexts/poll-platform/settlement/ports"
)

// scriptedSubscriber captures the registered handler so tests can deliver
// envelopes synchronously.
type scriptedSubscriber struct {
	topic   string
	group   string
	handler func(context.Context, ports.EventEnvelope) error
}

func (s *scriptedSubscriber) Subscribe(_ context.Context, topic string, group string, handler func(context.Context, ports.EventEnvelope) error) error {
	s.topic = topic
	s.group = group
	s.handler = handler
	return nil
}

func instantiationEnvelope(t *testing.T, eventID string, generator string, endTime int64) ports.EventEnvelope {
	t.Helper()
	data, err := json.Marshal(map[string]any{
		"correlation_token": 1,
		"code_reference":    7,
		"admin":             "",
		"label":             "will-it-rain",
		"init_payload": map[string]any{
			"generator":             generator,
			"token_contract":        "token-contract",
			"deposit_amount":        1000,
			"reclaimable_threshold": 10,
			"poll_name":             "will-it-rain",
			"poll_type":             "opinion",
			"end_time":              endTime,
			"num_sides":             3,
			"minimum_bet_amount":    1,
			"tax_percentage":        0.05,
		},
	})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return ports.EventEnvelope{
		EventID:       eventID,
		EventType:     "poll.instantiate.requested",
		OccurredAt:    time.Now().UTC(),
		SourceService: "orchestrator",
		SchemaVersion: 1,
		Data:          data,
	}
}

func ackPayloads(t *testing.T, store *memory.Store) []map[string]any {
	t.Helper()
	messages, err := store.ListPendingOutbox(context.Background(), 0)
	if err != nil {
		t.Fatalf("list outbox: %v", err)
	}
	acks := make([]map[string]any, 0)
	for _, message := range messages {
		if message.EventType != commands.TopicPollInstantiated {
			continue
		}
		var envelope ports.EventEnvelope
		if err := json.Unmarshal(message.Payload, &envelope); err != nil {
			t.Fatalf("decode envelope: %v", err)
		}
		var data map[string]any
		if err := json.Unmarshal(envelope.Data, &data); err != nil {
			t.Fatalf("decode ack data: %v", err)
		}
		acks = append(acks, data)
	}
	return acks
}

func newConsumer(store *memory.Store) workers.InstantiationConsumer {
	votes := commands.VoteUseCase{
		Polls:     store,
		Addresses: store,
		Clock:     store,
		IDGen:     store,
	}
	return workers.InstantiationConsumer{
		Dedup:        store,
		Votes:        votes,
		Outbox:       store,
		Clock:        store,
		IDGen:        store,
		OwnerAddress: "platform-owner",
	}
}

func TestInstantiationConsumerCreatesAndAcknowledges(t *testing.T) {
	store := memory.NewStore()
	subscriber := &scriptedSubscriber{}
	consumer := newConsumer(store)
	consumer.Subscriber = subscriber

	if err := consumer.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if subscriber.topic != "poll.instantiate.requested" {
		t.Fatalf("unexpected topic %q", subscriber.topic)
	}

	end := time.Now().UTC().Add(time.Hour).Unix()
	if err := subscriber.handler(context.Background(), instantiationEnvelope(t, "evt-1", "generator-1", end)); err != nil {
		t.Fatalf("handle failed: %v", err)
	}

	acks := ackPayloads(t, store)
	if len(acks) != 1 {
		t.Fatalf("expected one acknowledgement, got %d", len(acks))
	}
	if acks[0]["success"] != true {
		t.Fatalf("expected success ack, got %v", acks[0])
	}
	address, _ := acks[0]["instance_address"].(string)
	if !strings.HasPrefix(address, "poll-") {
		t.Fatalf("unexpected instance address %q", address)
	}

	poll, err := store.GetPoll(context.Background(), address)
	if err != nil {
		t.Fatalf("instance not created: %v", err)
	}
	if poll.Status != entities.StatusVoting || poll.Owner != "platform-owner" {
		t.Fatalf("unexpected instance: %+v", poll)
	}
	if acks[0]["correlation_token"].(float64) != 1 {
		t.Fatalf("correlation token must round-trip, got %v", acks[0]["correlation_token"])
	}
}

func TestInstantiationConsumerAcknowledgesFailure(t *testing.T) {
	store := memory.NewStore()
	subscriber := &scriptedSubscriber{}
	consumer := newConsumer(store)
	consumer.Subscriber = subscriber

	if err := consumer.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	end := time.Now().UTC().Add(time.Hour).Unix()
	if err := subscriber.handler(context.Background(), instantiationEnvelope(t, "evt-1", "BAD ADDRESS", end)); err != nil {
		t.Fatalf("handle failed: %v", err)
	}

	acks := ackPayloads(t, store)
	if len(acks) != 1 {
		t.Fatalf("expected one acknowledgement, got %d", len(acks))
	}
	if acks[0]["success"] != false {
		t.Fatalf("expected failure ack, got %v", acks[0])
	}
	if reason, _ := acks[0]["reason"].(string); reason == "" {
		t.Fatalf("failure ack must carry a reason")
	}
}

func TestInstantiationConsumerSkipsReplays(t *testing.T) {
	store := memory.NewStore()
	subscriber := &scriptedSubscriber{}
	consumer := newConsumer(store)
	consumer.Subscriber = subscriber

	if err := consumer.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	end := time.Now().UTC().Add(time.Hour).Unix()
	envelope := instantiationEnvelope(t, "evt-1", "generator-1", end)
	if err := subscriber.handler(context.Background(), envelope); err != nil {
		t.Fatalf("first delivery failed: %v", err)
	}
	if err := subscriber.handler(context.Background(), envelope); err != nil {
		t.Fatalf("replay delivery failed: %v", err)
	}

	acks := ackPayloads(t, store)
	if len(acks) != 1 {
		t.Fatalf("replay must be skipped, got %d acknowledgements", len(acks))
	}
}

func TestFinishConsumerForcesCloseWithPinnedWinner(t *testing.T) {
	store := memory.NewStore()
	votes := commands.VoteUseCase{Polls: store, Addresses: store, Clock: store, IDGen: store}
	settles := commands.SettleUseCase{Polls: store, Addresses: store, Clock: store, IDGen: store}

	end := time.Now().UTC().Add(time.Hour)
	if err := votes.CreatePoll(context.Background(), commands.CreatePollCommand{
		ID:            "poll-x",
		Owner:         "owner-1",
		Generator:     "generator-1",
		TokenContract: "token-contract",
		PollName:      "match-result",
		PollKind:      "prediction",
		EndTime:       end,
		NumSides:      2,
		DepositAmount: 1000,
	}); err != nil {
		t.Fatalf("seed poll: %v", err)
	}

	subscriber := &scriptedSubscriber{}
	consumer := workers.FinishConsumer{
		Subscriber: subscriber,
		Dedup:      store,
		Settles:    settles,
		Clock:      store,
	}
	if err := consumer.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if subscriber.topic != "poll.finish.requested" {
		t.Fatalf("unexpected topic %q", subscriber.topic)
	}

	data, _ := json.Marshal(map[string]any{
		"poll_address": "poll-x",
		"poll_kind":    "prediction",
		"forced":       true,
		"winner":       1,
	})
	if err := subscriber.handler(context.Background(), ports.EventEnvelope{
		EventID:   "evt-finish-1",
		EventType: "poll.finish.requested",
		Data:      data,
	}); err != nil {
		t.Fatalf("handle failed: %v", err)
	}

	poll, err := store.GetPoll(context.Background(), "poll-x")
	if err != nil {
		t.Fatalf("get poll: %v", err)
	}
	if poll.Status != entities.StatusClosed {
		t.Fatalf("directive must close the poll, got %q", poll.Status)
	}
	if len(poll.WinningSides) != 1 || poll.WinningSides[0] != 1 {
		t.Fatalf("directive winner must be pinned, got %v", poll.WinningSides)
	}
}

func TestFinishConsumerRejectsUnforcedBeforeEnd(t *testing.T) {
	store := memory.NewStore()
	votes := commands.VoteUseCase{Polls: store, Addresses: store, Clock: store, IDGen: store}
	settles := commands.SettleUseCase{Polls: store, Addresses: store, Clock: store, IDGen: store}

	end := time.Now().UTC().Add(time.Hour)
	if err := votes.CreatePoll(context.Background(), commands.CreatePollCommand{
		ID:            "poll-y",
		Owner:         "platform-owner",
		Generator:     "generator-1",
		TokenContract: "token-contract",
		PollName:      "still-open",
		PollKind:      "opinion",
		EndTime:       end,
		NumSides:      2,
		DepositAmount: 1000,
	}); err != nil {
		t.Fatalf("seed poll: %v", err)
	}

	subscriber := &scriptedSubscriber{}
	consumer := workers.FinishConsumer{
		Subscriber:   subscriber,
		Dedup:        store,
		Settles:      settles,
		Clock:        store,
		OwnerAddress: "platform-owner",
	}
	if err := consumer.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	data, _ := json.Marshal(map[string]any{
		"poll_address": "poll-y",
		"poll_kind":    "opinion",
		"forced":       false,
	})
	err := subscriber.handler(context.Background(), ports.EventEnvelope{
		EventID:   "evt-finish-2",
		EventType: "poll.finish.requested",
		Data:      data,
	})
	if !errors.Is(err, domainerrors.ErrPollNotEnded) {
		t.Fatalf("unforced directive before the window elapses must be rejected, got %v", err)
	}

	poll, err := store.GetPoll(context.Background(), "poll-y")
	if err != nil {
		t.Fatalf("get poll: %v", err)
	}
	if poll.Status != entities.StatusVoting {
		t.Fatalf("rejected directive must leave the poll voting, got %q", poll.Status)
	}
}

func TestFinishConsumerUnforcedTalliesDespiteWinnerHint(t *testing.T) {
	store := memory.NewStore()
	votes := commands.VoteUseCase{Polls: store, Addresses: store, Clock: store, IDGen: store}
	settles := commands.SettleUseCase{Polls: store, Addresses: store, Clock: store, IDGen: store}

	base := time.Now().UTC()
	store.SetNow(base)
	if err := votes.CreatePoll(context.Background(), commands.CreatePollCommand{
		ID:            "poll-z",
		Owner:         "platform-owner",
		Generator:     "generator-1",
		TokenContract: "token-contract",
		PollName:      "match-result",
		PollKind:      "prediction",
		EndTime:       base.Add(time.Hour),
		NumSides:      2,
		DepositAmount: 1000,
	}); err != nil {
		t.Fatalf("seed poll: %v", err)
	}
	for voter, side := range map[string]uint64{"voter-a": 0, "voter-b": 0, "voter-c": 1} {
		if err := votes.CastVote(context.Background(), commands.CastVoteCommand{
			PollID: "poll-z",
			Voter:  voter,
			Side:   side,
		}); err != nil {
			t.Fatalf("cast vote %s: %v", voter, err)
		}
	}
	store.SetNow(base.Add(2 * time.Hour))

	subscriber := &scriptedSubscriber{}
	consumer := workers.FinishConsumer{
		Subscriber:   subscriber,
		Dedup:        store,
		Settles:      settles,
		Clock:        store,
		OwnerAddress: "platform-owner",
	}
	if err := consumer.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	data, _ := json.Marshal(map[string]any{
		"poll_address": "poll-z",
		"poll_kind":    "prediction",
		"forced":       false,
		"winner":       1,
	})
	if err := subscriber.handler(context.Background(), ports.EventEnvelope{
		EventID:   "evt-finish-3",
		EventType: "poll.finish.requested",
		Data:      data,
	}); err != nil {
		t.Fatalf("handle failed: %v", err)
	}

	poll, err := store.GetPoll(context.Background(), "poll-z")
	if err != nil {
		t.Fatalf("get poll: %v", err)
	}
	if poll.Status != entities.StatusClosed {
		t.Fatalf("elapsed unforced directive must close the poll, got %q", poll.Status)
	}
	if len(poll.WinningSides) != 1 || poll.WinningSides[0] != 0 {
		t.Fatalf("unforced close must tally, not pin the carried winner, got %v", poll.WinningSides)
	}
}
