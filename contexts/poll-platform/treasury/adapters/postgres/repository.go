package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"pollterra/contexts/poll-platform/treasury/domain/entities"
	"pollterra/contexts/poll-platform/treasury/ports"

	"github.com/google/uuid"
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
		return entities.Config{}, r.logError("treasury_repo_load_config_failed", err)
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
			"admins":         row.Admins,
			"managing_token": row.ManagingToken,
			"updated_at":     row.UpdatedAt,
		}),
	}).Create(&row).Error
	if err != nil {
		return r.logError("treasury_repo_save_config_failed", err)
	}
	return nil
}

func (r *Repository) GetAllowance(ctx context.Context, address string) (entities.Allowance, bool, error) {
	var row allowanceModel
	err := r.db.WithContext(ctx).Where("address = ?", strings.TrimSpace(address)).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Allowance{}, false, nil
		}
		return entities.Allowance{}, false, r.logError("treasury_repo_get_allowance_failed", err, "address", address)
	}
	return entities.Allowance{
		Address:       row.Address,
		AllowedAmount: row.AllowedAmount,
		RemainAmount:  row.RemainAmount,
		UpdatedAt:     row.UpdatedAt,
	}, true, nil
}

func (r *Repository) SaveAllowance(ctx context.Context, allowance entities.Allowance) error {
	if err := saveAllowanceTx(r.db.WithContext(ctx), allowance); err != nil {
		return r.logError("treasury_repo_save_allowance_failed", err, "address", allowance.Address)
	}
	return nil
}

func saveAllowanceTx(tx *gorm.DB, allowance entities.Allowance) error {
	row := allowanceModel{
		Address:       allowance.Address,
		AllowedAmount: allowance.AllowedAmount,
		RemainAmount:  allowance.RemainAmount,
		UpdatedAt:     allowance.UpdatedAt,
	}
	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "address"}},
		DoUpdates: clause.Assignments(map[string]any{
			"allowed_amount": row.AllowedAmount,
			"remain_amount":  row.RemainAmount,
			"updated_at":     row.UpdatedAt,
		}),
	}).Create(&row).Error
}

// DrawAllowance commits the drawn-down record and the payout event in one
// transaction.
func (r *Repository) DrawAllowance(ctx context.Context, allowance entities.Allowance, event ports.EventEnvelope) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := saveAllowanceTx(tx, allowance); err != nil {
			return err
		}
		return appendOutboxTx(tx, event)
	})
	if err != nil {
		return r.logError("treasury_repo_draw_allowance_failed", err, "address", allowance.Address)
	}
	return nil
}

func (r *Repository) ListAllowances(ctx context.Context, startAfter string, limit int, descending bool) ([]entities.Allowance, error) {
	query := r.db.WithContext(ctx)
	startAfter = strings.TrimSpace(startAfter)
	if descending {
		if startAfter != "" {
			query = query.Where("address < ?", startAfter)
		}
		query = query.Order("address DESC")
	} else {
		if startAfter != "" {
			query = query.Where("address > ?", startAfter)
		}
		query = query.Order("address ASC")
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []allowanceModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, r.logError("treasury_repo_list_allowances_failed", err)
	}
	items := make([]entities.Allowance, 0, len(rows))
	for _, row := range rows {
		items = append(items, entities.Allowance{
			Address:       row.Address,
			AllowedAmount: row.AllowedAmount,
			RemainAmount:  row.RemainAmount,
			UpdatedAt:     row.UpdatedAt,
		})
	}
	return items, nil
}

func (r *Repository) SaveDistribution(ctx context.Context, distribution entities.Distribution) error {
	if err := saveDistributionTx(r.db.WithContext(ctx), distribution); err != nil {
		return r.logError("treasury_repo_save_distribution_failed", err, "distribution_id", distribution.ID)
	}
	return nil
}

func saveDistributionTx(tx *gorm.DB, distribution entities.Distribution) error {
	row := distributionModel{
		ID:        distribution.ID,
		Recipient: distribution.Recipient,
		Amount:    distribution.Amount,
		Released:  distribution.Released,
		StartTime: distribution.StartTime,
		EndTime:   distribution.EndTime,
		Message:   distribution.Message,
		CreatedAt: distribution.CreatedAt,
		UpdatedAt: distribution.UpdatedAt,
	}
	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"recipient":  row.Recipient,
			"amount":     row.Amount,
			"released":   row.Released,
			"start_time": row.StartTime,
			"end_time":   row.EndTime,
			"message":    row.Message,
			"updated_at": row.UpdatedAt,
		}),
	}).Create(&row).Error
}

// ReleaseDistribution commits the updated released counter and the release
// event in one transaction.
func (r *Repository) ReleaseDistribution(ctx context.Context, distribution entities.Distribution, event ports.EventEnvelope) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := saveDistributionTx(tx, distribution); err != nil {
			return err
		}
		return appendOutboxTx(tx, event)
	})
	if err != nil {
		return r.logError("treasury_repo_release_distribution_failed", err, "distribution_id", distribution.ID)
	}
	return nil
}

func (r *Repository) GetDistribution(ctx context.Context, id string) (entities.Distribution, bool, error) {
	var row distributionModel
	err := r.db.WithContext(ctx).Where("id = ?", strings.TrimSpace(id)).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Distribution{}, false, nil
		}
		return entities.Distribution{}, false, r.logError("treasury_repo_get_distribution_failed", err, "distribution_id", id)
	}
	return row.toEntity(), true, nil
}

func (r *Repository) ListDistributions(ctx context.Context) ([]entities.Distribution, error) {
	var rows []distributionModel
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, r.logError("treasury_repo_list_distributions_failed", err)
	}
	items := make([]entities.Distribution, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) AppendOutbox(ctx context.Context, envelope ports.EventEnvelope) error {
	if err := appendOutboxTx(r.db.WithContext(ctx), envelope); err != nil {
		return r.logError("treasury_repo_append_outbox_failed", err, "event_id", envelope.EventID)
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
		return nil, r.logError("treasury_repo_list_outbox_failed", err)
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
		return r.logError("treasury_repo_mark_outbox_failed", err, "outbox_id", outboxID)
	}
	return nil
}

func (r *Repository) logError(event string, err error, args ...any) error {
	fields := append([]any{
		"event", event,
		"module", "poll-platform/treasury",
		"layer", "adapter",
		"error", err.Error(),
	}, args...)
	r.logger.Error("treasury repository operation failed", fields...)
	return err
}

// SystemClock satisfies the Clock port with wall time.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// UUIDGenerator satisfies the IDGenerator port.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}
