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
	instantiateRequestedTopic = "poll.instantiate.requested"
	defaultInstantiateCG      = "settlement-instantiate-cg"
)

// InstantiationConsumer materializes poll instances from orchestrator
// instantiation intents and reports the outcome back on the acknowledgement
// topic. The acknowledgement always carries the correlation token from the
// request, success or not, so the orchestrator can settle its pending record.
type InstantiationConsumer struct {
	Subscriber    ports.EventSubscriber
	Dedup         ports.EventDedupStore
	Votes         commands.VoteUseCase
	Outbox        ports.OutboxWriter
	Clock         ports.Clock
	IDGen         ports.IDGenerator
	OwnerAddress  string
	ConsumerGroup string
	DedupTTL      time.Duration
	Logger        *slog.Logger
}

type instantiationPayload struct {
	CorrelationToken uint64         `json:"correlation_token"`
	CodeReference    uint64         `json:"code_reference"`
	Admin            string         `json:"admin"`
	Label            string         `json:"label"`
	InitPayload      initPollParams `json:"init_payload"`
}

type initPollParams struct {
	Generator            string  `json:"generator"`
	TokenContract        string  `json:"token_contract"`
	DepositAmount        uint64  `json:"deposit_amount"`
	ReclaimableThreshold uint64  `json:"reclaimable_threshold"`
	PollName             string  `json:"poll_name"`
	PollType             string  `json:"poll_type"`
	EndTime              int64   `json:"end_time"`
	NumSides             uint64  `json:"num_sides"`
	ResolutionTime       *int64  `json:"resolution_time"`
	MinimumBetAmount     uint64  `json:"minimum_bet_amount"`
	TaxPercentage        float64 `json:"tax_percentage"`
}

func (c InstantiationConsumer) Start(ctx context.Context) error {
	logger := application.ResolveLogger(c.Logger)
	group := strings.TrimSpace(c.ConsumerGroup)
	if group == "" {
		group = defaultInstantiateCG
	}
	if err := c.Subscriber.Subscribe(ctx, instantiateRequestedTopic, group, c.handleInstantiation); err != nil {
		logger.Error("instantiation consumer subscribe failed",
			"event", "settlement_instantiate_consumer_subscribe_failed",
			"module", "poll-platform/settlement",
			"layer", "worker",
			"topic", instantiateRequestedTopic,
			"consumer_group", group,
			"error", err.Error(),
		)
		return err
	}
	logger.Info("instantiation consumer subscription active",
		"event", "settlement_instantiate_consumer_started",
		"module", "poll-platform/settlement",
		"layer", "worker",
		"consumer_group", group,
	)
	return nil
}

func (c InstantiationConsumer) handleInstantiation(ctx context.Context, event ports.EventEnvelope) error {
	logger := application.ResolveLogger(c.Logger)

	if c.Dedup != nil {
		ttl := c.DedupTTL
		if ttl <= 0 {
			ttl = 7 * 24 * time.Hour
		}
		reserved, err := c.Dedup.Reserve(ctx, event.EventID, hashPayload(event.Data), c.now().Add(ttl))
		if err != nil {
			return err
		}
		if !reserved {
			logger.Debug("instantiation intent replay skipped",
				"event", "settlement_instantiate_replayed",
				"module", "poll-platform/settlement",
				"layer", "worker",
				"event_id", event.EventID,
			)
			return nil
		}
	}

	var payload instantiationPayload
	if err := json.Unmarshal(event.Data, &payload); err != nil {
		logger.Error("instantiation intent decode failed",
			"event", "settlement_instantiate_decode_failed",
			"module", "poll-platform/settlement",
			"layer", "worker",
			"event_id", event.EventID,
			"error", err.Error(),
		)
		return err
	}

	instanceID, err := c.IDGen.NewID(ctx)
	if err != nil {
		return err
	}
	address := "poll-" + instanceID

	owner := strings.TrimSpace(payload.Admin)
	if owner == "" {
		owner = strings.TrimSpace(c.OwnerAddress)
	}

	params := payload.InitPayload
	var resolutionTime *time.Time
	if params.ResolutionTime != nil {
		resolved := time.Unix(*params.ResolutionTime, 0).UTC()
		resolutionTime = &resolved
	}

	createErr := c.Votes.CreatePoll(ctx, commands.CreatePollCommand{
		ID:                   address,
		Owner:                owner,
		Generator:            params.Generator,
		TokenContract:        params.TokenContract,
		PollName:             params.PollName,
		PollKind:             params.PollType,
		EndTime:              time.Unix(params.EndTime, 0).UTC(),
		ResolutionTime:       resolutionTime,
		NumSides:             params.NumSides,
		ReclaimableThreshold: params.ReclaimableThreshold,
		MinimumBetAmount:     params.MinimumBetAmount,
		TaxPercentage:        params.TaxPercentage,
		DepositAmount:        params.DepositAmount,
	})
	if createErr != nil {
		logger.Error("poll instantiation failed",
			"event", "settlement_instantiate_failed",
			"module", "poll-platform/settlement",
			"layer", "worker",
			"correlation_token", payload.CorrelationToken,
			"error", createErr.Error(),
		)
		return c.acknowledge(ctx, payload.CorrelationToken, false, "", createErr.Error())
	}
	return c.acknowledge(ctx, payload.CorrelationToken, true, address, "")
}

// acknowledge emits the instantiation outcome through the outbox so the reply
// shares the transactional guarantees of the instance write.
func (c InstantiationConsumer) acknowledge(ctx context.Context, token uint64, success bool, address string, reason string) error {
	eventID, err := c.IDGen.NewID(ctx)
	if err != nil {
		return err
	}
	data, err := json.Marshal(map[string]any{
		"correlation_token": token,
		"success":           success,
		"instance_address":  address,
		"reason":            reason,
	})
	if err != nil {
		return err
	}
	return c.Outbox.AppendOutbox(ctx, ports.EventEnvelope{
		EventID:          eventID,
		EventType:        commands.TopicPollInstantiated,
		OccurredAt:       c.now(),
		SourceService:    "settlement",
		TraceID:          eventID,
		SchemaVersion:    1,
		PartitionKeyPath: "correlation_token",
		PartitionKey:     address,
		Data:             data,
	})
}

func (c InstantiationConsumer) now() time.Time {
	if c.Clock != nil {
		return c.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
