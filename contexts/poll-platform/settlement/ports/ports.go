package ports

import (
	"context"
	"time"

	"pollterra/contexts/poll-platform/settlement/domain/entities"
)

// PollRepository owns poll aggregates, their per-side tallies, and the
// per-voter records. Compound writes are single operations: RecordVote lands
// the tally increment, the vote record, the updated poll counters, and the
// ballot event in one commit, and SettlePoll does the same for the poll row
// and its settlement events. A failed write leaves nothing behind, which
// keeps total == sum(tallies) == count(votes) at every observable point.
type PollRepository interface {
	CreatePoll(ctx context.Context, poll entities.Poll) error
	SavePoll(ctx context.Context, poll entities.Poll) error
	GetPoll(ctx context.Context, pollID string) (entities.Poll, error)
	GetVote(ctx context.Context, pollID string, voter string) (entities.VoteRecord, bool, error)
	RecordVote(ctx context.Context, poll entities.Poll, record entities.VoteRecord, event EventEnvelope) error
	SettlePoll(ctx context.Context, poll entities.Poll, events []EventEnvelope) error
	ListTallies(ctx context.Context, pollID string) ([]entities.SideTally, error)
	ListVotes(ctx context.Context, pollID string, startAfter string, limit int, descending bool) ([]entities.VoteRecord, error)
}

// AddressValidator is the platform-supplied identity check; fails closed.
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

type EventDedupStore interface {
	Reserve(ctx context.Context, eventID string, payloadHash string, expiresAt time.Time) (bool, error)
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}
