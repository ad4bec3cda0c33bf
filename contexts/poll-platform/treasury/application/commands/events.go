package commands

import (
	"encoding/json"
	"time"

	"pollterra/contexts/poll-platform/treasury/ports"
)

const TopicLedgerTransfer = "ledger.transfer.requested"

func newTreasuryEnvelope(
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
		SourceService:    "treasury",
		TraceID:          eventID,
		SchemaVersion:    1,
		PartitionKeyPath: "recipient",
		PartitionKey:     partitionKey,
		Data:             payload,
	}, nil
}
