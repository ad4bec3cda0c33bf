package ports

import (
	"context"
	"time"

	"pollterra/contexts/poll-platform/treasury/domain/entities"
)

type ConfigRepository interface {
	LoadConfig(ctx context.Context) (entities.Config, error)
	SaveConfig(ctx context.Context, config entities.Config) error
}

// AllowanceRepository owns the per-address spending allowances. DrawAllowance
// commits the drawn-down record and the payout event in one write.
type AllowanceRepository interface {
	GetAllowance(ctx context.Context, address string) (entities.Allowance, bool, error)
	SaveAllowance(ctx context.Context, allowance entities.Allowance) error
	DrawAllowance(ctx context.Context, allowance entities.Allowance, event EventEnvelope) error
	ListAllowances(ctx context.Context, startAfter string, limit int, descending bool) ([]entities.Allowance, error)
}

// DistributionRepository owns the vesting schedules. ReleaseDistribution
// commits the updated released counter and the release event in one write.
type DistributionRepository interface {
	SaveDistribution(ctx context.Context, distribution entities.Distribution) error
	ReleaseDistribution(ctx context.Context, distribution entities.Distribution, event EventEnvelope) error
	GetDistribution(ctx context.Context, id string) (entities.Distribution, bool, error)
	ListDistributions(ctx context.Context) ([]entities.Distribution, error)
}

// BankQuerier reports the treasury's balance in the managed token.
type BankQuerier interface {
	Balance(ctx context.Context, denom string) (uint64, error)
}

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

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}
