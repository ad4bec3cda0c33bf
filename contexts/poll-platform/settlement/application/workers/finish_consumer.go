package workers

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	application "pollterra/contexts/poll-platform/settlement/application"
	"pollterra/contexts/poll-platform/settlement/application/commands"
	"pollterra/contexts/poll-platform/settlement/ports"
)

const (
	finishRequestedTopic = "poll.finish.requested"
	defaultFinishCG      = "settlement-finish-cg"
)

// FinishConsumer applies orchestrator finish directives to poll instances.
// The directive's forced flag passes through unchanged: only a forced close
// bypasses the instance's owner and time gates, and a pinned winner replaces
// local tallying on forced closes alone. Unforced directives act as the
// platform owner identity and are still subject to the voting window.
type FinishConsumer struct {
	Subscriber    ports.EventSubscriber
	Dedup         ports.EventDedupStore
	Settles       commands.SettleUseCase
	Clock         ports.Clock
	ConsumerGroup string
	DedupTTL      time.Duration
	OwnerAddress  string
	Logger        *slog.Logger
}

type finishPayload struct {
	PollAddress string  `json:"poll_address"`
	PollKind    string  `json:"poll_kind"`
	Forced      bool    `json:"forced"`
	Winner      *uint64 `json:"winner"`
}

func (c FinishConsumer) Start(ctx context.Context) error {
	logger := application.ResolveLogger(c.Logger)
	group := strings.TrimSpace(c.ConsumerGroup)
	if group == "" {
		group = defaultFinishCG
	}
	if err := c.Subscriber.Subscribe(ctx, finishRequestedTopic, group, c.handleFinish); err != nil {
		logger.Error("finish consumer subscribe failed",
			"event", "settlement_finish_consumer_subscribe_failed",
			"module", "poll-platform/settlement",
			"layer", "worker",
			"topic", finishRequestedTopic,
			"consumer_group", group,
			"error", err.Error(),
		)
		return err
	}
	logger.Info("finish consumer subscription active",
		"event", "settlement_finish_consumer_started",
		"module", "poll-platform/settlement",
		"layer", "worker",
		"consumer_group", group,
	)
	return nil
}

func (c FinishConsumer) handleFinish(ctx context.Context, event ports.EventEnvelope) error {
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
			logger.Debug("finish directive replay skipped",
				"event", "settlement_finish_replayed",
				"module", "poll-platform/settlement",
				"layer", "worker",
				"event_id", event.EventID,
			)
			return nil
		}
	}

	var payload finishPayload
	if err := json.Unmarshal(event.Data, &payload); err != nil {
		logger.Error("finish directive decode failed",
			"event", "settlement_finish_decode_failed",
			"module", "poll-platform/settlement",
			"layer", "worker",
			"event_id", event.EventID,
			"error", err.Error(),
		)
		return err
	}

	err := c.Settles.ClosePoll(ctx, commands.ClosePollCommand{
		PollID:         payload.PollAddress,
		Caller:         c.OwnerAddress,
		Forced:         payload.Forced,
		WinnerOverride: payload.Winner,
	})
	if err != nil {
		logger.Warn("finish directive rejected",
			"event", "settlement_finish_rejected",
			"module", "poll-platform/settlement",
			"layer", "worker",
			"event_id", event.EventID,
			"poll_id", payload.PollAddress,
			"forced", payload.Forced,
			"error", err.Error(),
		)
		return err
	}
	return nil
}
