package bank

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// Querier reads token balances from the platform ledger mirror. The mirror is
// maintained by the ingestion pipeline that applies settled transfer and burn
// intents, so reads here are eventually consistent with the outbox stream.
type Querier struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Querier {
	return &Querier{db: db}
}

type balanceModel struct {
	Denom  string `gorm:"column:denom;primaryKey;size:128"`
	Amount uint64 `gorm:"column:amount;not null"`
}

func (balanceModel) TableName() string { return "ledger_balances" }

// Balance returns zero for denoms the mirror has never seen.
func (q *Querier) Balance(ctx context.Context, denom string) (uint64, error) {
	var row balanceModel
	err := q.db.WithContext(ctx).First(&row, "denom = ?", denom).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return row.Amount, nil
}
