package model

import (
	"time"

	"github.com/GoPolymarket/lottogate/internal/lottery"
	"github.com/shopspring/decimal"
)

type RoundStatus string

const (
	RoundOpen      RoundStatus = "open"
	RoundClosed    RoundStatus = "closed"
	RoundAnnounced RoundStatus = "announced"
)

// Round 一个开奖期。由外部开奖管理写入，账本只读。
type Round struct {
	ID        string          `gorm:"primaryKey;size:64" json:"id"`
	DealerID  string          `gorm:"size:64;not null;index:idx_rounds_dealer_variant" json:"dealer_id"`
	Variant   lottery.Variant `gorm:"size:32;not null;index:idx_rounds_dealer_variant" json:"variant"`
	Status    RoundStatus     `gorm:"size:16;not null;default:open" json:"status"`
	CloseAt   time.Time       `gorm:"not null" json:"close_at"`
	SetPrice  decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0" json:"set_price"` // 每套单价，仅套彩使用
	Currency  string          `gorm:"size:8" json:"currency"`
	CreatedAt time.Time       `json:"created_at"`
}

func (Round) TableName() string { return "rounds" }

// IsOpenAt reports whether the round still takes wagers at t.
func (r *Round) IsOpenAt(t time.Time) bool {
	return r.Status == RoundOpen && t.Before(r.CloseAt)
}

// IsUnannounced reports whether the round's results are still pending.
func (r *Round) IsUnannounced() bool {
	return r.Status == RoundOpen || r.Status == RoundClosed
}

// UnitPrice is the money value of one set. Rounds without a set price count one set per unit.
func (r *Round) UnitPrice() decimal.Decimal {
	if r.SetPrice.IsPositive() {
		return r.SetPrice
	}
	return decimal.NewFromInt(1)
}
