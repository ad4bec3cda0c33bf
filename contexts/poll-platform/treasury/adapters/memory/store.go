package memory

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"pollterra/contexts/poll-platform/treasury/domain/entities"
	domainerrors "pollterra/contexts/poll-platform/treasury/domain/errors"
	"pollterra/contexts/poll-platform/treasury/ports"

	"github.com/google/uuid"
)

type outboxRecord struct {
	seq       int
	message   ports.OutboxMessage
	published bool
}

// Store backs every treasury port for test and local wiring.
type Store struct {
	mu sync.RWMutex

	config        entities.Config
	allowances    map[string]entities.Allowance
	distributions map[string]entities.Distribution
	balances      map[string]uint64
	outbox        map[string]outboxRecord
	nextSeq       int

	fixedNow *time.Time
}

func NewStore(config entities.Config) *Store {
	return &Store{
		config:        config,
		allowances:    make(map[string]entities.Allowance),
		distributions: make(map[string]entities.Distribution),
		balances:      make(map[string]uint64),
		outbox:        make(map[string]outboxRecord),
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

func (s *Store) GetAllowance(_ context.Context, address string) (entities.Allowance, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	allowance, ok := s.allowances[strings.TrimSpace(address)]
	return allowance, ok, nil
}

func (s *Store) SaveAllowance(_ context.Context, allowance entities.Allowance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.allowances[allowance.Address] = allowance
	return nil
}

// DrawAllowance writes the drawn-down record and the payout event under one
// lock hold, so no reader sees the draw without its event.
func (s *Store) DrawAllowance(_ context.Context, allowance entities.Allowance, event ports.EventEnvelope) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.allowances[allowance.Address] = allowance
	s.appendOutboxLocked(event, payload)
	return nil
}

func (s *Store) ListAllowances(_ context.Context, startAfter string, limit int, descending bool) ([]entities.Allowance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.Allowance, 0, len(s.allowances))
	for _, allowance := range s.allowances {
		items = append(items, allowance)
	}
	sort.Slice(items, func(i, j int) bool {
		if descending {
			return items[i].Address > items[j].Address
		}
		return items[i].Address < items[j].Address
	})

	startAfter = strings.TrimSpace(startAfter)
	page := make([]entities.Allowance, 0, limit)
	for _, allowance := range items {
		if startAfter != "" {
			if descending && allowance.Address >= startAfter {
				continue
			}
			if !descending && allowance.Address <= startAfter {
				continue
			}
		}
		if limit > 0 && len(page) >= limit {
			break
		}
		page = append(page, allowance)
	}
	return page, nil
}

func (s *Store) SaveDistribution(_ context.Context, distribution entities.Distribution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.distributions[distribution.ID] = distribution
	return nil
}

// ReleaseDistribution writes the updated released counter and the release
// event under one lock hold.
func (s *Store) ReleaseDistribution(_ context.Context, distribution entities.Distribution, event ports.EventEnvelope) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.distributions[distribution.ID] = distribution
	s.appendOutboxLocked(event, payload)
	return nil
}

func (s *Store) GetDistribution(_ context.Context, id string) (entities.Distribution, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	distribution, ok := s.distributions[strings.TrimSpace(id)]
	return distribution, ok, nil
}

func (s *Store) ListDistributions(_ context.Context) ([]entities.Distribution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.Distribution, 0, len(s.distributions))
	for _, distribution := range s.distributions {
		items = append(items, distribution)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].ID < items[j].ID
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
