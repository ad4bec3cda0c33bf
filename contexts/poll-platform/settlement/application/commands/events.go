package commands

import (
	"encoding/json"
	"time"

	"pollterra/contexts/poll-platform/settlement/ports"
)

// Topics produced by settlement instances. Ledger topics carry escrow
// disposition intents; the instantiated topic is the asynchronous
// acknowledgement the orchestrator's creation protocol waits on.
const (
	TopicVoteCast         = "poll.vote.cast"
	TopicPollClosed       = "poll.closed"
	TopicPollInstantiated = "poll.instantiated"
	TopicLedgerTransfer   = "ledger.transfer.requested"
	TopicLedgerBurn       = "ledger.burn.requested"
)

// newSettlementEnvelope partitions by poll so per-instance consumers observe
// events in order.
func newSettlementEnvelope(
	eventID string,
	eventType string,
	pollID string,
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
		SourceService:    "settlement",
		TraceID:          eventID,
		SchemaVersion:    1,
		PartitionKeyPath: "poll_id",
		PartitionKey:     pollID,
		Data:             payload,
	}, nil
}
