package workers_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"pollterra/contexts/poll-platform/orchestrator/adapters/memory"
	"pollterra/contexts/poll-platform/orchestrator/application/commands"
	"pollterra/contexts/poll-platform/orchestrator/application/workers"
	"pollterra/contexts/poll-platform/orchestrator/domain/entities"
	"pollterra/contexts/poll-platform/orchestrator/ports"
)

type capturePublisher struct {
	topics []string
	events []ports.EventEnvelope
}

func (p *capturePublisher) Publish(_ context.Context, topic string, event ports.EventEnvelope) error {
	p.topics = append(p.topics, topic)
	p.events = append(p.events, event)
	return nil
}

type scriptedSubscriber struct {
	topic   string
	handler func(context.Context, ports.EventEnvelope) error
}

func (s *scriptedSubscriber) Subscribe(_ context.Context, topic string, _ string, handler func(context.Context, ports.EventEnvelope) error) error {
	s.topic = topic
	s.handler = handler
	return nil
}

func TestOutboxRelayPublishesInOrderAndDrains(t *testing.T) {
	store := memory.NewStore(entities.Config{})
	ctx := context.Background()

	for _, id := range []string{"evt-1", "evt-2"} {
		if err := store.AppendOutbox(ctx, ports.EventEnvelope{
			EventID:    id,
			EventType:  "poll.instantiate.requested",
			OccurredAt: time.Now().UTC(),
			Data:       []byte(`{}`),
		}); err != nil {
			t.Fatalf("append outbox: %v", err)
		}
	}

	publisher := &capturePublisher{}
	relay := workers.OutboxRelay{
		Outbox:    store,
		Publisher: publisher,
		Clock:     store,
	}
	if err := relay.RunOnce(ctx); err != nil {
		t.Fatalf("relay failed: %v", err)
	}

	if len(publisher.events) != 2 {
		t.Fatalf("expected 2 published events, got %d", len(publisher.events))
	}
	if publisher.events[0].EventID != "evt-1" || publisher.events[1].EventID != "evt-2" {
		t.Fatalf("publish order must follow append order, got %v", publisher.topics)
	}
	if publisher.topics[0] != "poll.instantiate.requested" {
		t.Fatalf("topic must come from the envelope, got %q", publisher.topics[0])
	}

	pending, err := store.ListPendingOutbox(ctx, 0)
	if err != nil || len(pending) != 0 {
		t.Fatalf("outbox should be drained, got %d err=%v", len(pending), err)
	}
}

func TestAcknowledgementConsumerSettlesPendingCreation(t *testing.T) {
	store := memory.NewStore(entities.Config{
		TokenContract:   "token-contract",
		CreationDeposit: 1000,
	})
	ctx := context.Background()

	if err := store.SavePending(ctx, entities.PendingCreation{
		Token:         entities.InstantiateReplyToken,
		Generator:     "generator-1",
		DepositAmount: 1000,
		PollName:      "will-it-rain",
		PollKind:      entities.PollKindOpinion,
		EndTime:       time.Now().UTC().Add(time.Hour),
		NumSides:      2,
		CreatedAt:     time.Now().UTC(),
	}); err != nil {
		t.Fatalf("seed pending: %v", err)
	}

	subscriber := &scriptedSubscriber{}
	consumer := workers.AcknowledgementConsumer{
		Subscriber: subscriber,
		Dedup:      store,
		Creations: commands.CreationUseCase{
			Config:    store,
			Pending:   store,
			Addresses: store,
			Clock:     store,
			IDGen:     store,
		},
		Clock: store,
	}
	if err := consumer.Start(ctx); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if subscriber.topic != "poll.instantiated" {
		t.Fatalf("unexpected topic %q", subscriber.topic)
	}

	data, _ := json.Marshal(map[string]any{
		"correlation_token": entities.InstantiateReplyToken,
		"success":           true,
		"instance_address":  "poll-abc",
	})
	if err := subscriber.handler(ctx, ports.EventEnvelope{
		EventID:   "ack-1",
		EventType: "poll.instantiated",
		Data:      data,
	}); err != nil {
		t.Fatalf("handle failed: %v", err)
	}

	polls, err := store.ListPolls(ctx)
	if err != nil || len(polls) != 1 || polls[0].Address != "poll-abc" {
		t.Fatalf("acknowledgement must register the instance, got %v err=%v", polls, err)
	}

	// Replayed delivery is deduplicated before reaching the use case, so the
	// consumed token does not surface an unknown-token error.
	if err := subscriber.handler(ctx, ports.EventEnvelope{
		EventID:   "ack-1",
		EventType: "poll.instantiated",
		Data:      data,
	}); err != nil {
		t.Fatalf("replay must be skipped, got %v", err)
	}
}
