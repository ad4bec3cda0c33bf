package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"pollterra/contexts/poll-platform/settlement/domain/entities"
	domainerrors "pollterra/contexts/poll-platform/settlement/domain/errors"
	"pollterra/contexts/poll-platform/settlement/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	outboxStatusPending   = "pending"
	outboxStatusPublished = "published"
)

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{db: db, logger: logger}
}

// CreatePoll inserts without upserting: the instance address is the identity,
// so a unique violation means the instance already exists.
func (r *Repository) CreatePoll(ctx context.Context, poll entities.Poll) error {
	row, err := pollModelFromEntity(poll)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrPollExists
		}
		return r.logError("settlement_repo_create_poll_failed", err, "poll_id", poll.ID)
	}
	return nil
}

func (r *Repository) SavePoll(ctx context.Context, poll entities.Poll) error {
	if err := savePollTx(r.db.WithContext(ctx), poll); err != nil {
		if errors.Is(err, domainerrors.ErrPollNotFound) {
			return err
		}
		return r.logError("settlement_repo_save_poll_failed", err, "poll_id", poll.ID)
	}
	return nil
}

// RecordVote lands the ballot in one transaction: the tally increment, the
// vote record, the updated poll counters, and the ballot event commit
// together or not at all.
func (r *Repository) RecordVote(ctx context.Context, poll entities.Poll, record entities.VoteRecord, event ports.EventEnvelope) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := incrementTallyTx(tx, poll.ID, record.Side); err != nil {
			return err
		}
		if err := saveVoteTx(tx, record); err != nil {
			return err
		}
		if err := savePollTx(tx, poll); err != nil {
			return err
		}
		return appendOutboxTx(tx, event)
	})
	if err != nil {
		if errors.Is(err, domainerrors.ErrAlreadyVoted) || errors.Is(err, domainerrors.ErrPollNotFound) {
			return err
		}
		return r.logError("settlement_repo_record_vote_failed", err, "poll_id", poll.ID, "voter", record.Voter)
	}
	return nil
}

// SettlePoll persists the updated poll together with the events it emits in
// one transaction.
func (r *Repository) SettlePoll(ctx context.Context, poll entities.Poll, events []ports.EventEnvelope) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := savePollTx(tx, poll); err != nil {
			return err
		}
		for _, event := range events {
			if err := appendOutboxTx(tx, event); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domainerrors.ErrPollNotFound) {
			return err
		}
		return r.logError("settlement_repo_settle_poll_failed", err, "poll_id", poll.ID)
	}
	return nil
}

func savePollTx(tx *gorm.DB, poll entities.Poll) error {
	row, err := pollModelFromEntity(poll)
	if err != nil {
		return err
	}
	result := tx.Model(&pollModel{}).
		Where("id = ?", row.ID).
		Updates(map[string]any{
			"owner":             row.Owner,
			"status":            row.Status,
			"total_amount":      row.TotalAmount,
			"winning_sides":     row.WinningSides,
			"deposit_reclaimed": row.DepositReclaimed,
			"updated_at":        row.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrPollNotFound
	}
	return nil
}

func (r *Repository) GetPoll(ctx context.Context, pollID string) (entities.Poll, error) {
	var row pollModel
	err := r.db.WithContext(ctx).Where("id = ?", strings.TrimSpace(pollID)).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Poll{}, domainerrors.ErrPollNotFound
		}
		return entities.Poll{}, r.logError("settlement_repo_get_poll_failed", err, "poll_id", pollID)
	}
	return row.toEntity()
}

func (r *Repository) GetVote(ctx context.Context, pollID string, voter string) (entities.VoteRecord, bool, error) {
	var row voteModel
	err := r.db.WithContext(ctx).
		Where("poll_id = ? AND voter = ?", strings.TrimSpace(pollID), strings.TrimSpace(voter)).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.VoteRecord{}, false, nil
		}
		return entities.VoteRecord{}, false, r.logError("settlement_repo_get_vote_failed", err, "poll_id", pollID)
	}
	return entities.VoteRecord{
		PollID: row.PollID,
		Voter:  row.Voter,
		Side:   row.Side,
		CastAt: row.CastAt,
	}, true, nil
}

func saveVoteTx(tx *gorm.DB, record entities.VoteRecord) error {
	row := voteModel{
		PollID: record.PollID,
		Voter:  record.Voter,
		Side:   record.Side,
		CastAt: record.CastAt,
	}
	if err := tx.Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrAlreadyVoted
		}
		return err
	}
	return nil
}

func incrementTallyTx(tx *gorm.DB, pollID string, side uint64) error {
	row := tallyModel{PollID: strings.TrimSpace(pollID), Side: side, Count: 1}
	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "poll_id"}, {Name: "side"}},
		DoUpdates: clause.Assignments(map[string]any{
			"count": gorm.Expr("settlement_tallies.count + 1"),
		}),
	}).Create(&row).Error
}

func (r *Repository) ListTallies(ctx context.Context, pollID string) ([]entities.SideTally, error) {
	var rows []tallyModel
	err := r.db.WithContext(ctx).
		Where("poll_id = ?", strings.TrimSpace(pollID)).
		Order("side ASC").
		Find(&rows).Error
	if err != nil {
		return nil, r.logError("settlement_repo_list_tallies_failed", err, "poll_id", pollID)
	}
	items := make([]entities.SideTally, 0, len(rows))
	for _, row := range rows {
		items = append(items, entities.SideTally{Side: row.Side, Count: row.Count})
	}
	return items, nil
}

func (r *Repository) ListVotes(ctx context.Context, pollID string, startAfter string, limit int, descending bool) ([]entities.VoteRecord, error) {
	query := r.db.WithContext(ctx).Where("poll_id = ?", strings.TrimSpace(pollID))
	startAfter = strings.TrimSpace(startAfter)
	if descending {
		if startAfter != "" {
			query = query.Where("voter < ?", startAfter)
		}
		query = query.Order("voter DESC")
	} else {
		if startAfter != "" {
			query = query.Where("voter > ?", startAfter)
		}
		query = query.Order("voter ASC")
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []voteModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, r.logError("settlement_repo_list_votes_failed", err, "poll_id", pollID)
	}
	items := make([]entities.VoteRecord, 0, len(rows))
	for _, row := range rows {
		items = append(items, entities.VoteRecord{
			PollID: row.PollID,
			Voter:  row.Voter,
			Side:   row.Side,
			CastAt: row.CastAt,
		})
	}
	return items, nil
}

func (r *Repository) AppendOutbox(ctx context.Context, envelope ports.EventEnvelope) error {
	if err := appendOutboxTx(r.db.WithContext(ctx), envelope); err != nil {
		return r.logError("settlement_repo_append_outbox_failed", err, "event_id", envelope.EventID)
	}
	return nil
}

func appendOutboxTx(tx *gorm.DB, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	row := outboxModel{
		ID:        envelope.EventID,
		EventType: envelope.EventType,
		Payload:   payload,
		Status:    outboxStatusPending,
		CreatedAt: envelope.OccurredAt,
	}
	return tx.Create(&row).Error
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	var rows []outboxModel
	err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, r.logError("settlement_repo_list_outbox_failed", err)
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.OutboxMessage{
			OutboxID:  row.ID,
			EventType: row.EventType,
			Payload:   row.Payload,
		})
	}
	return items, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	err := r.db.WithContext(ctx).Model(&outboxModel{}).
		Where("id = ?", outboxID).
		Updates(map[string]any{
			"status":       outboxStatusPublished,
			"published_at": publishedAt,
		}).Error
	if err != nil {
		return r.logError("settlement_repo_mark_outbox_failed", err, "outbox_id", outboxID)
	}
	return nil
}

func (r *Repository) Reserve(ctx context.Context, eventID string, payloadHash string, expiresAt time.Time) (bool, error) {
	row := eventDedupModel{EventID: eventID, PayloadHash: payloadHash, ExpiresAt: expiresAt}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, r.logError("settlement_repo_dedup_reserve_failed", err, "event_id", eventID)
	}
	return true, nil
}

func (r *Repository) logError(event string, err error, args ...any) error {
	fields := append([]any{
		"event", event,
		"module", "poll-platform/settlement",
		"layer", "adapter",
		"error", err.Error(),
	}, args...)
	r.logger.Error("settlement repository operation failed", fields...)
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

// SystemClock satisfies the Clock port with wall time.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// UUIDGenerator satisfies the IDGenerator port.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}
