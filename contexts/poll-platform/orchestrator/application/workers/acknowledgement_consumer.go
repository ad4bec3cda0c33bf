package workers

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	application "pollterra/contexts/poll-platform/orchestrator/application"
	"pollterra/contexts/poll-platform/orchestrator/application/commands"
	"pollterra/contexts/poll-platform/orchestrator/ports"
)

const (
	pollInstantiatedTopic = "poll.instantiated"
	defaultAckCG          = "orchestrator-ack-cg"
)

// AcknowledgementConsumer bridges the asynchronous instantiation reply back
// into the creation protocol. The pending-creation table is the only shared
// state between the request that emitted the intent and this consumer.
type AcknowledgementConsumer struct {
	Subscriber    ports.EventSubscriber
	Dedup         ports.EventDedupStore
	Creations     commands.CreationUseCase
	Clock         ports.Clock
	ConsumerGroup string
	DedupTTL      time.Duration
	Logger        *slog.Logger
}

type acknowledgementPayload struct {
	CorrelationToken uint64 `json:"correlation_token"`
	Success          bool   `json:"success"`
	InstanceAddress  string `json:"instance_address"`
	Reason           string `json:"reason"`
}

func (c AcknowledgementConsumer) Start(ctx context.Context) error {
	logger := application.ResolveLogger(c.Logger)
	group := strings.TrimSpace(c.ConsumerGroup)
	if group == "" {
		group = defaultAckCG
	}
	if err := c.Subscriber.Subscribe(ctx, pollInstantiatedTopic, group, c.handleAcknowledgement); err != nil {
		logger.Error("acknowledgement consumer subscribe failed",
			"event", "orchestrator_ack_consumer_subscribe_failed",
			"module", "poll-platform/orchestrator",
			"layer", "worker",
			"topic", pollInstantiatedTopic,
			"consumer_group", group,
			"error", err.Error(),
		)
		return err
	}
	logger.Info("acknowledgement consumer subscription active",
		"event", "orchestrator_ack_consumer_started",
		"module", "poll-platform/orchestrator",
		"layer", "worker",
		"consumer_group", group,
	)
	return nil
}

func (c AcknowledgementConsumer) handleAcknowledgement(ctx context.Context, event ports.EventEnvelope) error {
	logger := application.ResolveLogger(c.Logger)

	if c.Dedup != nil {
		ttl := c.DedupTTL
		if ttl <= 0 {
			ttl = 7 * 24 * time.Hour
		}
		now := time.Now().UTC()
		if c.Clock != nil {
			now = c.Clock.Now().UTC()
		}
		reserved, err := c.Dedup.Reserve(ctx, event.EventID, hashPayload(event.Data), now.Add(ttl))
		if err != nil {
			return err
		}
		if !reserved {
			logger.Debug("instantiation acknowledgement replay skipped",
				"event", "orchestrator_ack_replayed",
				"module", "poll-platform/orchestrator",
				"layer", "worker",
				"event_id", event.EventID,
			)
			return nil
		}
	}

	var payload acknowledgementPayload
	if err := json.Unmarshal(event.Data, &payload); err != nil {
		logger.Error("instantiation acknowledgement decode failed",
			"event", "orchestrator_ack_decode_failed",
			"module", "poll-platform/orchestrator",
			"layer", "worker",
			"event_id", event.EventID,
			"error", err.Error(),
		)
		return err
	}

	return c.Creations.AcknowledgeInstantiation(ctx, commands.AcknowledgeInstantiationCommand{
		Token:           payload.CorrelationToken,
		Success:         payload.Success,
		InstanceAddress: payload.InstanceAddress,
		Reason:          payload.Reason,
	})
}
