package ports

import (
	"context"
	"time"

	"pollterra/contexts/poll-platform/orchestrator/domain/entities"
)

// ConfigRepository owns the orchestrator's persisted config/state singletons.
// Both are loaded at the start of an operation and written back atomically.
type ConfigRepository interface {
	LoadConfig(ctx context.Context) (entities.Config, error)
	SaveConfig(ctx context.Context, config entities.Config) error
	LoadState(ctx context.Context) (entities.State, error)
	SaveState(ctx context.Context, state entities.State) error
}

// PendingCreationRepository is the correlation-token-keyed pending-work table
// bridging a creation request and its acknowledgement. CommitPending fails
// when a record already occupies the token slot and lands the instantiation
// intent in the same commit. SettleCreation consumes the slot on the success
// branch: the registry entry, the state counters, and the deposit handoff
// event commit together with the token release, and an already-consumed token
// fails the whole write. DeletePending discards the slot on the failure
// branch.
type PendingCreationRepository interface {
	CommitPending(ctx context.Context, record entities.PendingCreation, event EventEnvelope) error
	GetPending(ctx context.Context, token uint64) (entities.PendingCreation, bool, error)
	DeletePending(ctx context.Context, token uint64) error
	SettleCreation(ctx context.Context, token uint64, registration entities.PollRegistration, state entities.State, event EventEnvelope) error
}

// PollRegistry tracks live poll instances created through the orchestrator.
// RemovePoll decrements the live-poll counter in the same write when it
// removes an entry.
type PollRegistry interface {
	RemovePoll(ctx context.Context, address string, now time.Time) (bool, error)
	ListPolls(ctx context.Context) ([]entities.PollRegistration, error)
}

// BankQuerier reads the orchestrator's native-denom balance from the external
// bank ledger. Read-only; transfers are emitted as intents, never applied here.
type BankQuerier interface {
	Balance(ctx context.Context, denom string) (uint64, error)
}

// AddressValidator is the platform-supplied identity check. Implementations
// fail closed on malformed input.
type AddressValidator interface {
	Validate(address string) error
}

type EventEnvelope struct {
	EventID          string    `json:"event_id"`
	EventType        string    `json:"event_type"`
	OccurredAt       time.Time `json:"occurred_at"`
	SourceService    string    `json:"source_service"`
	TraceID          string    `json:"trace_id"`
	SchemaVersion    int       `json:"schema_version"`
	PartitionKeyPath string    `json:"partition_key_path"`
	PartitionKey     string    `json:"partition_key"`
	Data             []byte    `json:"data"`
}

type OutboxWriter interface {
	AppendOutbox(ctx context.Context, envelope EventEnvelope) error
}

type OutboxMessage struct {
	OutboxID  string
	EventType string
	Payload   []byte
}

type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}

type EventSubscriber interface {
	Subscribe(ctx context.Context, topic string, consumerGroup string, handler func(context.Context, EventEnvelope) error) error
}

// EventDedupStore reserves consumed event IDs so replayed bus deliveries are
// skipped instead of reprocessed.
type EventDedupStore interface {
	Reserve(ctx context.Context, eventID string, payloadHash string, expiresAt time.Time) (bool, error)
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}
