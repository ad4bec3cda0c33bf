package commands

import (
	"encoding/json"
	"time"

	"pollterra/contexts/poll-platform/orchestrator/ports"
)

// Topics produced by the orchestrator. The instantiation request is consumed
// by the poll platform's instantiation worker; ledger topics are consumed by
// the external token ledger bridge.
const (
	TopicInstantiateRequested = "poll.instantiate.requested"
	TopicFinishRequested      = "poll.finish.requested"
	TopicLedgerTransfer       = "ledger.transfer.requested"
)

func newOrchestratorEnvelope(
	eventID string,
	eventType string,
	partitionKey string,
	occurredAt time.Time,
	data map[string]any,
) (ports.EventEnvelope, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	return ports.EventEnvelope{
		EventID:          eventID,
		EventType:        eventType,
		OccurredAt:       occurredAt.UTC(),
		SourceService:    "orchestrator",
		TraceID:          eventID,
		SchemaVersion:    1,
		PartitionKeyPath: "correlation_token",
		PartitionKey:     partitionKey,
		Data:             payload,
	}, nil
}
