package postgresadapter

import (
	"encoding/json"
	"time"

	"pollterra/contexts/poll-platform/orchestrator/domain/entities"
)

// Config and state live in singleton rows; the fixed IDs keep load/save
// symmetrical with the original single-storage-slot layout.
const (
	configRowID = 1
	stateRowID  = 1
)

type configModel struct {
	ID                   int       `gorm:"column:id;primaryKey"`
	Admins               string    `gorm:"column:admins"`
	TokenContract        string    `gorm:"column:token_contract"`
	CreationDeposit      uint64    `gorm:"column:creation_deposit"`
	ReclaimableThreshold uint64    `gorm:"column:reclaimable_threshold"`
	MinimumBetAmount     uint64    `gorm:"column:minimum_bet_amount"`
	TaxPercentage        float64   `gorm:"column:tax_percentage"`
	UpdatedAt            time.Time `gorm:"column:updated_at"`
}

func (configModel) TableName() string { return "orchestrator_config" }

func (m configModel) toEntity() (entities.Config, error) {
	var admins []string
	if m.Admins != "" {
		if err := json.Unmarshal([]byte(m.Admins), &admins); err != nil {
			return entities.Config{}, err
		}
	}
	return entities.Config{
		Admins:               admins,
		TokenContract:        m.TokenContract,
		CreationDeposit:      m.CreationDeposit,
		ReclaimableThreshold: m.ReclaimableThreshold,
		MinimumBetAmount:     m.MinimumBetAmount,
		TaxPercentage:        m.TaxPercentage,
		UpdatedAt:            m.UpdatedAt,
	}, nil
}

func configModelFromEntity(config entities.Config) (configModel, error) {
	admins, err := json.Marshal(config.Admins)
	if err != nil {
		return configModel{}, err
	}
	return configModel{
		ID:                   configRowID,
		Admins:               string(admins),
		TokenContract:        config.TokenContract,
		CreationDeposit:      config.CreationDeposit,
		ReclaimableThreshold: config.ReclaimableThreshold,
		MinimumBetAmount:     config.MinimumBetAmount,
		TaxPercentage:        config.TaxPercentage,
		UpdatedAt:            config.UpdatedAt,
	}, nil
}

type stateModel struct {
	ID        int       `gorm:"column:id;primaryKey"`
	NumPolls  int       `gorm:"column:num_polls"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (stateModel) TableName() string { return "orchestrator_state" }

type pendingCreationModel struct {
	Token          uint64     `gorm:"column:token;primaryKey"`
	Generator      string     `gorm:"column:generator"`
	DepositAmount  uint64     `gorm:"column:deposit_amount"`
	PollName       string     `gorm:"column:poll_name"`
	PollKind       string     `gorm:"column:poll_kind"`
	CodeReference  uint64     `gorm:"column:code_reference"`
	PollAdmin      string     `gorm:"column:poll_admin"`
	EndTime        time.Time  `gorm:"column:end_time"`
	ResolutionTime *time.Time `gorm:"column:resolution_time"`
	NumSides       uint64     `gorm:"column:num_sides"`
	CreatedAt      time.Time  `gorm:"column:created_at"`
}

func (pendingCreationModel) TableName() string { return "orchestrator_pending_creations" }

func (m pendingCreationModel) toEntity() entities.PendingCreation {
	return entities.PendingCreation{
		Token:          m.Token,
		Generator:      m.Generator,
		DepositAmount:  m.DepositAmount,
		PollName:       m.PollName,
		PollKind:       entities.PollKind(m.PollKind),
		CodeReference:  m.CodeReference,
		PollAdmin:      m.PollAdmin,
		EndTime:        m.EndTime,
		ResolutionTime: m.ResolutionTime,
		NumSides:       m.NumSides,
		CreatedAt:      m.CreatedAt,
	}
}

func pendingModelFromEntity(record entities.PendingCreation) pendingCreationModel {
	return pendingCreationModel{
		Token:          record.Token,
		Generator:      record.Generator,
		DepositAmount:  record.DepositAmount,
		PollName:       record.PollName,
		PollKind:       string(record.PollKind),
		CodeReference:  record.CodeReference,
		PollAdmin:      record.PollAdmin,
		EndTime:        record.EndTime,
		ResolutionTime: record.ResolutionTime,
		NumSides:       record.NumSides,
		CreatedAt:      record.CreatedAt,
	}
}

type pollRegistrationModel struct {
	Address      string    `gorm:"column:address;primaryKey"`
	PollKind     string    `gorm:"column:poll_kind"`
	PollName     string    `gorm:"column:poll_name"`
	RegisteredAt time.Time `gorm:"column:registered_at"`
}

func (pollRegistrationModel) TableName() string { return "orchestrator_polls" }

type outboxModel struct {
	ID          string     `gorm:"column:id;primaryKey"`
	EventType   string     `gorm:"column:event_type"`
	Payload     []byte     `gorm:"column:payload"`
	Status      string     `gorm:"column:status"`
	CreatedAt   time.Time  `gorm:"column:created_at"`
	PublishedAt *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string { return "orchestrator_outbox" }

type eventDedupModel struct {
	EventID     string    `gorm:"column:event_id;primaryKey"`
	PayloadHash string    `gorm:"column:payload_hash"`
	ExpiresAt   time.Time `gorm:"column:expires_at"`
}

func (eventDedupModel) TableName() string { return "orchestrator_event_dedup" }
