package memory

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"pollterra/contexts/poll-platform/settlement/domain/entities"
	domainerrors "pollterra/contexts/poll-platform/settlement/domain/errors"
	"pollterra/contexts/poll-platform/settlement/ports"

	"github.com/google/uuid"
)

type outboxRecord struct {
	seq       int
	message   ports.OutboxMessage
	published bool
}

type dedupRecord struct {
	payloadHash string
	expiresAt   time.Time
}

// Store backs every settlement port for test and local wiring.
type Store struct {
	mu sync.RWMutex

	polls   map[string]entities.Poll
	votes   map[string]map[string]entities.VoteRecord
	tallies map[string]map[uint64]uint64
	outbox  map[string]outboxRecord
	dedup   map[string]dedupRecord
	nextSeq int

	fixedNow *time.Time
}

func NewStore() *Store {
	return &Store{
		polls:   make(map[string]entities.Poll),
		votes:   make(map[string]map[string]entities.VoteRecord),
		tallies: make(map[string]map[uint64]uint64),
		outbox:  make(map[string]outboxRecord),
		dedup:   make(map[string]dedupRecord),
	}
}

// SetNow pins the clock for deterministic tests.
func (s *Store) SetNow(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pinned := now.UTC()
	s.fixedNow = &pinned
}

func (s *Store) CreatePoll(_ context.Context, poll entities.Poll) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.polls[poll.ID]; exists {
		return domainerrors.ErrPollExists
	}
	s.polls[poll.ID] = poll
	s.votes[poll.ID] = make(map[string]entities.VoteRecord)
	s.tallies[poll.ID] = make(map[uint64]uint64)
	return nil
}

func (s *Store) SavePoll(_ context.Context, poll entities.Poll) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.polls[poll.ID]; !exists {
		return domainerrors.ErrPollNotFound
	}
	s.polls[poll.ID] = poll
	return nil
}

func (s *Store) GetPoll(_ context.Context, pollID string) (entities.Poll, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	poll, ok := s.polls[strings.TrimSpace(pollID)]
	if !ok {
		return entities.Poll{}, domainerrors.ErrPollNotFound
	}
	return poll, nil
}

func (s *Store) GetVote(_ context.Context, pollID string, voter string) (entities.VoteRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records, ok := s.votes[strings.TrimSpace(pollID)]
	if !ok {
		return entities.VoteRecord{}, false, nil
	}
	record, ok := records[strings.TrimSpace(voter)]
	return record, ok, nil
}

// RecordVote lands the ballot as one step under the store lock, mirroring the
// single-transaction postgres write.
func (s *Store) RecordVote(_ context.Context, poll entities.Poll, record entities.VoteRecord, event ports.EventEnvelope) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.polls[poll.ID]; !exists {
		return domainerrors.ErrPollNotFound
	}
	records, ok := s.votes[poll.ID]
	if !ok {
		records = make(map[string]entities.VoteRecord)
		s.votes[poll.ID] = records
	}
	if _, exists := records[record.Voter]; exists {
		return domainerrors.ErrAlreadyVoted
	}
	counts, ok := s.tallies[poll.ID]
	if !ok {
		counts = make(map[uint64]uint64)
		s.tallies[poll.ID] = counts
	}
	counts[record.Side]++
	records[record.Voter] = record
	s.polls[poll.ID] = poll
	s.appendOutboxLocked(event, payload)
	return nil
}

// SettlePoll persists the updated poll together with the events it emits.
func (s *Store) SettlePoll(_ context.Context, poll entities.Poll, events []ports.EventEnvelope) error {
	payloads := make([][]byte, 0, len(events))
	for _, event := range events {
		payload, err := json.Marshal(event)
		if err != nil {
			return err
		}
		payloads = append(payloads, payload)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.polls[poll.ID]; !exists {
		return domainerrors.ErrPollNotFound
	}
	s.polls[poll.ID] = poll
	for i, event := range events {
		s.appendOutboxLocked(event, payloads[i])
	}
	return nil
}

func (s *Store) ListTallies(_ context.Context, pollID string) ([]entities.SideTally, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := s.tallies[strings.TrimSpace(pollID)]
	items := make([]entities.SideTally, 0, len(counts))
	for side, count := range counts {
		items = append(items, entities.SideTally{Side: side, Count: count})
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].Side < items[j].Side
	})
	return items, nil
}

func (s *Store) ListVotes(_ context.Context, pollID string, startAfter string, limit int, descending bool) ([]entities.VoteRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := s.votes[strings.TrimSpace(pollID)]
	items := make([]entities.VoteRecord, 0, len(records))
	for _, record := range records {
		items = append(items, record)
	}
	sort.Slice(items, func(i, j int) bool {
		if descending {
			return items[i].Voter > items[j].Voter
		}
		return items[i].Voter < items[j].Voter
	})

	startAfter = strings.TrimSpace(startAfter)
	page := make([]entities.VoteRecord, 0, limit)
	for _, record := range items {
		if startAfter != "" {
			if descending && record.Voter >= startAfter {
				continue
			}
			if !descending && record.Voter <= startAfter {
				continue
			}
		}
		if limit > 0 && len(page) >= limit {
			break
		}
		page = append(page, record)
	}
	return page, nil
}

func (s *Store) AppendOutbox(_ context.Context, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendOutboxLocked(envelope, payload)
	return nil
}

func (s *Store) appendOutboxLocked(envelope ports.EventEnvelope, payload []byte) {
	s.nextSeq++
	s.outbox[envelope.EventID] = outboxRecord{
		seq: s.nextSeq,
		message: ports.OutboxMessage{
			OutboxID:  envelope.EventID,
			EventType: envelope.EventType,
			Payload:   payload,
		},
	}
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := make([]outboxRecord, 0)
	for _, record := range s.outbox {
		if !record.published {
			records = append(records, record)
		}
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].seq < records[j].seq
	})
	items := make([]ports.OutboxMessage, 0, len(records))
	for _, record := range records {
		if limit > 0 && len(items) >= limit {
			break
		}
		items = append(items, record.message)
	}
	return items, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.outbox[outboxID]
	if !ok {
		return nil
	}
	record.published = true
	s.outbox[outboxID] = record
	return nil
}

func (s *Store) Reserve(_ context.Context, eventID string, payloadHash string, expiresAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.dedup[eventID]; exists {
		return false, nil
	}
	s.dedup[eventID] = dedupRecord{payloadHash: payloadHash, expiresAt: expiresAt}
	return true, nil
}

func (s *Store) Now() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.fixedNow != nil {
		return *s.fixedNow
	}
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

// Validate is the in-process identity check: identities are non-empty,
// whitespace-free, lowercase tokens. Fails closed on anything else.
func (s *Store) Validate(address string) error {
	address = strings.TrimSpace(address)
	if len(address) < 3 {
		return domainerrors.ErrInvalidAddress
	}
	for _, r := range address {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '-' || r == '_' {
			continue
		}
		return domainerrors.ErrInvalidAddress
	}
	return nil
}
