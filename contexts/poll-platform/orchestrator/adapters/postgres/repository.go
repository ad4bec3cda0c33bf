package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"pollterra/contexts/poll-platform/orchestrator/domain/entities"
	domainerrors "pollterra/contexts/poll-platform/orchestrator/domain/errors"
	"pollterra/contexts/poll-platform/orchestrator/ports"

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

func (r *Repository) LoadConfig(ctx context.Context) (entities.Config, error) {
	var row configModel
	err := r.db.WithContext(ctx).Where("id = ?", configRowID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Config{}, nil
		}
		return entities.Config{}, r.logError("orchestrator_repo_load_config_failed", err)
	}
	return row.toEntity()
}

func (r *Repository) SaveConfig(ctx context.Context, config entities.Config) error {
	row, err := configModelFromEntity(config)
	if err != nil {
		return err
	}
	err = r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"admins":                row.Admins,
			"token_contract":        row.TokenContract,
			"creation_deposit":      row.CreationDeposit,
			"reclaimable_threshold": row.ReclaimableThreshold,
			"minimum_bet_amount":    row.MinimumBetAmount,
			"tax_percentage":        row.TaxPercentage,
			"updated_at":            row.UpdatedAt,
		}),
	}).Create(&row).Error
	if err != nil {
		return r.logError("orchestrator_repo_save_config_failed", err)
	}
	return nil
}

func (r *Repository) LoadState(ctx context.Context) (entities.State, error) {
	var row stateModel
	err := r.db.WithContext(ctx).Where("id = ?", stateRowID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.State{}, nil
		}
		return entities.State{}, r.logError("orchestrator_repo_load_state_failed", err)
	}
	return entities.State{NumPolls: row.NumPolls, UpdatedAt: row.UpdatedAt}, nil
}

func (r *Repository) SaveState(ctx context.Context, state entities.State) error {
	if err := saveStateTx(r.db.WithContext(ctx), state); err != nil {
		return r.logError("orchestrator_repo_save_state_failed", err)
	}
	return nil
}

func saveStateTx(tx *gorm.DB, state entities.State) error {
	row := stateModel{ID: stateRowID, NumPolls: state.NumPolls, UpdatedAt: state.UpdatedAt}
	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"num_polls":  row.NumPolls,
			"updated_at": row.UpdatedAt,
		}),
	}).Create(&row).Error
}

// CommitPending inserts without upserting: the token primary key is the
// single instantiation slot, so a unique violation means a creation is in
// flight. The instantiation intent lands in the same transaction.
func (r *Repository) CommitPending(ctx context.Context, record entities.PendingCreation, event ports.EventEnvelope) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := pendingModelFromEntity(record)
		if err := tx.Create(&row).Error; err != nil {
			if isUniqueViolation(err) {
				return domainerrors.ErrCreationInFlight
			}
			return err
		}
		return appendOutboxTx(tx, event)
	})
	if err != nil {
		if errors.Is(err, domainerrors.ErrCreationInFlight) {
			return err
		}
		return r.logError("orchestrator_repo_commit_pending_failed", err, "correlation_token", record.Token)
	}
	return nil
}

// SettleCreation consumes the pending row and commits the registration, the
// updated state counters, and the deposit handoff event in one transaction.
// A token already consumed by a concurrent acknowledgement rolls the whole
// write back.
func (r *Repository) SettleCreation(ctx context.Context, token uint64, registration entities.PollRegistration, state entities.State, event ports.EventEnvelope) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("token = ?", token).Delete(&pendingCreationModel{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domainerrors.ErrUnknownCorrelationToken
		}
		if err := registerPollTx(tx, registration); err != nil {
			return err
		}
		if err := saveStateTx(tx, state); err != nil {
			return err
		}
		return appendOutboxTx(tx, event)
	})
	if err != nil {
		if errors.Is(err, domainerrors.ErrUnknownCorrelationToken) {
			return err
		}
		return r.logError("orchestrator_repo_settle_creation_failed", err, "correlation_token", token)
	}
	return nil
}

func (r *Repository) GetPending(ctx context.Context, token uint64) (entities.PendingCreation, bool, error) {
	var row pendingCreationModel
	err := r.db.WithContext(ctx).Where("token = ?", token).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.PendingCreation{}, false, nil
		}
		return entities.PendingCreation{}, false, r.logError("orchestrator_repo_get_pending_failed", err, "correlation_token", token)
	}
	return row.toEntity(), true, nil
}

func (r *Repository) DeletePending(ctx context.Context, token uint64) error {
	err := r.db.WithContext(ctx).Where("token = ?", token).Delete(&pendingCreationModel{}).Error
	if err != nil {
		return r.logError("orchestrator_repo_delete_pending_failed", err, "correlation_token", token)
	}
	return nil
}

func registerPollTx(tx *gorm.DB, registration entities.PollRegistration) error {
	row := pollRegistrationModel{
		Address:      strings.TrimSpace(registration.Address),
		PollKind:     string(registration.PollKind),
		PollName:     registration.PollName,
		RegisteredAt: registration.RegisteredAt,
	}
	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "address"}},
		DoUpdates: clause.Assignments(map[string]any{
			"poll_kind":     row.PollKind,
			"poll_name":     row.PollName,
			"registered_at": row.RegisteredAt,
		}),
	}).Create(&row).Error
}

// RemovePoll deletes the registry entry and decrements the live-poll counter
// in the same transaction when an entry was removed.
func (r *Repository) RemovePoll(ctx context.Context, address string, now time.Time) (bool, error) {
	removed := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("address = ?", strings.TrimSpace(address)).Delete(&pollRegistrationModel{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}
		removed = true
		return tx.Model(&stateModel{}).
			Where("id = ?", stateRowID).
			Updates(map[string]any{
				"num_polls":  gorm.Expr("num_polls - 1"),
				"updated_at": now,
			}).Error
	})
	if err != nil {
		return false, r.logError("orchestrator_repo_remove_poll_failed", err, "poll_address", address)
	}
	return removed, nil
}

func (r *Repository) ListPolls(ctx context.Context) ([]entities.PollRegistration, error) {
	var rows []pollRegistrationModel
	if err := r.db.WithContext(ctx).Order("registered_at ASC").Find(&rows).Error; err != nil {
		return nil, r.logError("orchestrator_repo_list_polls_failed", err)
	}
	items := make([]entities.PollRegistration, 0, len(rows))
	for _, row := range rows {
		items = append(items, entities.PollRegistration{
			Address:      row.Address,
			PollKind:     entities.PollKind(row.PollKind),
			PollName:     row.PollName,
			RegisteredAt: row.RegisteredAt,
		})
	}
	return items, nil
}

func (r *Repository) AppendOutbox(ctx context.Context, envelope ports.EventEnvelope) error {
	if err := appendOutboxTx(r.db.WithContext(ctx), envelope); err != nil {
		return r.logError("orchestrator_repo_append_outbox_failed", err, "event_id", envelope.EventID)
	}
	return nil
}

func appendOutboxTx(tx *gorm.DB, envelope ports.EventEnvelope) error {
	payload, err := marshalEnvelope(envelope)
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
		return nil, r.logError("orchestrator_repo_list_outbox_failed", err)
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
		return r.logError("orchestrator_repo_mark_outbox_failed", err, "outbox_id", outboxID)
	}
	return nil
}

func (r *Repository) Reserve(ctx context.Context, eventID string, payloadHash string, expiresAt time.Time) (bool, error) {
	row := eventDedupModel{EventID: eventID, PayloadHash: payloadHash, ExpiresAt: expiresAt}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, r.logError("orchestrator_repo_dedup_reserve_failed", err, "event_id", eventID)
	}
	return true, nil
}

func (r *Repository) logError(event string, err error, args ...any) error {
	fields := append([]any{
		"event", event,
		"module", "poll-platform/orchestrator",
		"layer", "adapter",
		"error", err.Error(),
	}, args...)
	r.logger.Error("orchestrator repository operation failed", fields...)
	return err
}

func marshalEnvelope(envelope ports.EventEnvelope) ([]byte, error) {
	return json.Marshal(envelope)
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
