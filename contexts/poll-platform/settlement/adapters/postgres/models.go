package postgresadapter

import (
	"encoding/json"
	"time"

	"pollterra/contexts/poll-platform/settlement/domain/entities"
)

type pollModel struct {
	ID                   string     `gorm:"column:id;primaryKey"`
	Owner                string     `gorm:"column:owner"`
	Generator            string     `gorm:"column:generator"`
	TokenContract        string     `gorm:"column:token_contract"`
	PollName             string     `gorm:"column:poll_name"`
	PollKind             string     `gorm:"column:poll_kind"`
	EndTime              time.Time  `gorm:"column:end_time"`
	ResolutionTime       *time.Time `gorm:"column:resolution_time"`
	NumSides             uint64     `gorm:"column:num_sides"`
	ReclaimableThreshold uint64     `gorm:"column:reclaimable_threshold"`
	MinimumBetAmount     uint64     `gorm:"column:minimum_bet_amount"`
	TaxPercentage        float64    `gorm:"column:tax_percentage"`
	DepositAmount        uint64     `gorm:"column:deposit_amount"`
	Status               string     `gorm:"column:status"`
	TotalAmount          uint64     `gorm:"column:total_amount"`
	WinningSides         string     `gorm:"column:winning_sides"`
	DepositReclaimed     bool       `gorm:"column:deposit_reclaimed"`
	CreatedAt            time.Time  `gorm:"column:created_at"`
	UpdatedAt            time.Time  `gorm:"column:updated_at"`
}

func (pollModel) TableName() string { return "settlement_polls" }

func (m pollModel) toEntity() (entities.Poll, error) {
	var winningSides []uint64
	if m.WinningSides != "" {
		if err := json.Unmarshal([]byte(m.WinningSides), &winningSides); err != nil {
			return entities.Poll{}, err
		}
	}
	return entities.Poll{
		ID:                   m.ID,
		Owner:                m.Owner,
		Generator:            m.Generator,
		TokenContract:        m.TokenContract,
		PollName:             m.PollName,
		PollKind:             m.PollKind,
		EndTime:              m.EndTime,
		ResolutionTime:       m.ResolutionTime,
		NumSides:             m.NumSides,
		ReclaimableThreshold: m.ReclaimableThreshold,
		MinimumBetAmount:     m.MinimumBetAmount,
		TaxPercentage:        m.TaxPercentage,
		DepositAmount:        m.DepositAmount,
		Status:               entities.PollStatus(m.Status),
		TotalAmount:          m.TotalAmount,
		WinningSides:         winningSides,
		DepositReclaimed:     m.DepositReclaimed,
		CreatedAt:            m.CreatedAt,
		UpdatedAt:            m.UpdatedAt,
	}, nil
}

func pollModelFromEntity(poll entities.Poll) (pollModel, error) {
	winningSides, err := json.Marshal(poll.WinningSides)
	if err != nil {
		return pollModel{}, err
	}
	return pollModel{
		ID:                   poll.ID,
		Owner:                poll.Owner,
		Generator:            poll.Generator,
		TokenContract:        poll.TokenContract,
		PollName:             poll.PollName,
		PollKind:             poll.PollKind,
		EndTime:              poll.EndTime,
		ResolutionTime:       poll.ResolutionTime,
		NumSides:             poll.NumSides,
		ReclaimableThreshold: poll.ReclaimableThreshold,
		MinimumBetAmount:     poll.MinimumBetAmount,
		TaxPercentage:        poll.TaxPercentage,
		DepositAmount:        poll.DepositAmount,
		Status:               string(poll.Status),
		TotalAmount:          poll.TotalAmount,
		WinningSides:         string(winningSides),
		DepositReclaimed:     poll.DepositReclaimed,
		CreatedAt:            poll.CreatedAt,
		UpdatedAt:            poll.UpdatedAt,
	}, nil
}

type voteModel struct {
	PollID string    `gorm:"column:poll_id;primaryKey"`
	Voter  string    `gorm:"column:voter;primaryKey"`
	Side   uint64    `gorm:"column:side"`
	CastAt time.Time `gorm:"column:cast_at"`
}

func (voteModel) TableName() string { return "settlement_votes" }

type tallyModel struct {
	PollID string `gorm:"column:poll_id;primaryKey"`
	Side   uint64 `gorm:"column:side;primaryKey"`
	Count  uint64 `gorm:"column:count"`
}

func (tallyModel) TableName() string { return "settlement_tallies" }

type outboxModel struct {
	ID          string     `gorm:"column:id;primaryKey"`
	EventType   string     `gorm:"column:event_type"`
	Payload     []byte     `gorm:"column:payload"`
	Status      string     `gorm:"column:status"`
	CreatedAt   time.Time  `gorm:"column:created_at"`
	PublishedAt *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string { return "settlement_outbox" }

type eventDedupModel struct {
	EventID     string    `gorm:"column:event_id;primaryKey"`
	PayloadHash string    `gorm:"column:payload_hash"`
	ExpiresAt   time.Time `gorm:"column:expires_at"`
}

func (eventDedupModel) TableName() string { return "settlement_event_dedup" }
