package postgresadapter

import (
	"encoding/json"
	"time"

	"pollterra/contexts/poll-platform/treasury/domain/entities"
)

// Config lives in a singleton row.
const configRowID = 1

type configModel struct {
	ID            int       `gorm:"column:id;primaryKey"`
	Admins        string    `gorm:"column:admins"`
	ManagingToken string    `gorm:"column:managing_token"`
	UpdatedAt     time.Time `gorm:"column:updated_at"`
}

func (configModel) TableName() string { return "treasury_config" }

func (m configModel) toEntity() (entities.Config, error) {
	var admins []string
	if m.Admins != "" {
		if err := json.Unmarshal([]byte(m.Admins), &admins); err != nil {
			return entities.Config{}, err
		}
	}
	return entities.Config{
		Admins:        admins,
		ManagingToken: m.ManagingToken,
		UpdatedAt:     m.UpdatedAt,
	}, nil
}

func configModelFromEntity(config entities.Config) (configModel, error) {
	admins, err := json.Marshal(config.Admins)
	if err != nil {
		return configModel{}, err
	}
	return configModel{
		ID:            configRowID,
		Admins:        string(admins),
		ManagingToken: config.ManagingToken,
		UpdatedAt:     config.UpdatedAt,
	}, nil
}

type allowanceModel struct {
	Address       string    `gorm:"column:address;primaryKey"`
	AllowedAmount uint64    `gorm:"column:allowed_amount"`
	RemainAmount  uint64    `gorm:"column:remain_amount"`
	UpdatedAt     time.Time `gorm:"column:updated_at"`
}

func (allowanceModel) TableName() string { return "treasury_allowances" }

type distributionModel struct {
	ID        string    `gorm:"column:id;primaryKey"`
	Recipient string    `gorm:"column:recipient"`
	Amount    uint64    `gorm:"column:amount"`
	Released  uint64    `gorm:"column:released"`
	StartTime time.Time `gorm:"column:start_time"`
	EndTime   time.Time `gorm:"column:end_time"`
	Message   string    `gorm:"column:message"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (distributionModel) TableName() string { return "treasury_distributions" }

func (m distributionModel) toEntity() entities.Distribution {
	return entities.Distribution{
		ID:        m.ID,
		Recipient: m.Recipient,
		Amount:    m.Amount,
		Released:  m.Released,
		StartTime: m.StartTime,
		EndTime:   m.EndTime,
		Message:   m.Message,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

type outboxModel struct {
	ID          string     `gorm:"column:id;primaryKey"`
	EventType   string     `gorm:"column:event_type"`
	Payload     []byte     `gorm:"column:payload"`
	Status      string     `gorm:"column:status"`
	CreatedAt   time.Time  `gorm:"column:created_at"`
	PublishedAt *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string { return "treasury_outbox" }
