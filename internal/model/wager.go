package model

import (
	"time"

	"github.com/GoPolymarket/lottogate/internal/lottery"
	"github.com/shopspring/decimal"
)

type WagerSource string

const (
	SourceDirect   WagerSource = "direct"
	SourceTransfer WagerSource = "transfer"
)

// Wager 一条投注记录。只做软删除，不物理删除。
type Wager struct {
	ID              string              `gorm:"primaryKey;size:64" json:"id"`
	RoundID         string              `gorm:"size:64;not null;index:idx_wagers_round_deleted" json:"round_id"`
	BettorID        string              `gorm:"size:64;not null;index" json:"bettor_id"`
	BetType         lottery.BetType     `gorm:"size:32;not null" json:"bet_type"`
	Number          string              `gorm:"size:8;not null" json:"number"`
	Amount          decimal.Decimal     `gorm:"type:numeric(18,2);not null" json:"amount"`
	SecondaryAmount decimal.Decimal     `gorm:"type:numeric(18,2);not null;default:0" json:"secondary_amount"` // 3_top_tod 的 tod 部分
	Source          WagerSource         `gorm:"size:16;not null;default:direct" json:"source"`
	Commission      decimal.NullDecimal `gorm:"type:numeric(18,2)" json:"commission,omitempty"`
	Prize           decimal.NullDecimal `gorm:"type:numeric(18,2)" json:"prize,omitempty"`
	IsDeleted       bool                `gorm:"not null;default:false;index:idx_wagers_round_deleted" json:"is_deleted"`
	DeletedAt       *time.Time          `json:"deleted_at,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
}

func (Wager) TableName() string { return "wagers" }

// Stake is the full money volume of the wager across both stakes.
func (w *Wager) Stake() decimal.Decimal {
	return w.Amount.Add(w.SecondaryAmount)
}
