package memory

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"pollterra/contexts/poll-platform/orchestrator/domain/entities"
	domainerrors "pollterra/contexts/poll-platform/orchestrator/domain/errors"
	"pollterra/contexts/poll-platform/orchestrator/ports"

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

// Store backs every orchestrator port for test and local wiring.
type Store struct {
	mu sync.RWMutex

	config   entities.Config
	state    entities.State
	pending  map[uint64]entities.PendingCreation
	registry map[string]entities.PollRegistration
	balances map[string]uint64
	outbox   map[string]outboxRecord
	dedup    map[string]dedupRecord
	nextSeq  int

	fixedNow *time.Time
}

func NewStore(config entities.Config) *Store {
	return &Store{
		config:   config,
		pending:  make(map[uint64]entities.PendingCreation),
		registry: make(map[string]entities.PollRegistration),
		balances: make(map[string]uint64),
		outbox:   make(map[string]outboxRecord),
		dedup:    make(map[string]dedupRecord),
	}
}

// SetNow pins the clock for deterministic tests.
func (s *Store) SetNow(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pinned := now.UTC()
	s.fixedNow = &pinned
}

func (s *Store) SetBalance(denom string, amount uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[strings.TrimSpace(denom)] = amount
}

func (s *Store) LoadConfig(_ context.Context) (entities.Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config, nil
}

func (s *Store) SaveConfig(_ context.Context, config entities.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config = config
	return nil
}

func (s *Store) LoadState(_ context.Context) (entities.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state, nil
}

func (s *Store) SaveState(_ context.Context, state entities.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	return nil
}

func (s *Store) SavePending(_ context.Context, record entities.PendingCreation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.pending[record.Token]; exists {
		return domainerrors.ErrCreationInFlight
	}
	s.pending[record.Token] = record
	return nil
}

// CommitPending occupies the token slot and lands the instantiation intent in
// the same step under the store lock.
func (s *Store) CommitPending(_ context.Context, record entities.PendingCreation, event ports.EventEnvelope) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.pending[record.Token]; exists {
		return domainerrors.ErrCreationInFlight
	}
	s.pending[record.Token] = record
	s.appendOutboxLocked(event, payload)
	return nil
}

// SettleCreation consumes the pending slot and lands the registration, the
// state counters, and the deposit handoff event as one step.
func (s *Store) SettleCreation(_ context.Context, token uint64, registration entities.PollRegistration, state entities.State, event ports.EventEnvelope) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.pending[token]; !exists {
		return domainerrors.ErrUnknownCorrelationToken
	}
	delete(s.pending, token)
	s.registry[strings.TrimSpace(registration.Address)] = registration
	s.state = state
	s.appendOutboxLocked(event, payload)
	return nil
}

func (s *Store) GetPending(_ context.Context, token uint64) (entities.PendingCreation, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.pending[token]
	return record, ok, nil
}

func (s *Store) DeletePending(_ context.Context, token uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, token)
	return nil
}

func (s *Store) RegisterPoll(_ context.Context, registration entities.PollRegistration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registry[strings.TrimSpace(registration.Address)] = registration
	return nil
}

func (s *Store) RemovePoll(_ context.Context, address string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	address = strings.TrimSpace(address)
	if _, ok := s.registry[address]; !ok {
		return false, nil
	}
	delete(s.registry, address)
	s.state.NumPolls--
	s.state.UpdatedAt = now.UTC()
	return true, nil
}

func (s *Store) ListPolls(_ context.Context) ([]entities.PollRegistration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.PollRegistration, 0, len(s.registry))
	for _, registration := range s.registry {
		items = append(items, registration)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].Address < items[j].Address
	})
	return items, nil
}

func (s *Store) Balance(_ context.Context, denom string) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balances[strings.TrimSpace(denom)], nil
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
