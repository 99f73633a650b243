package model

import (
	"github.com/GoPolymarket/lottogate/internal/lottery"
	"github.com/shopspring/decimal"
)

// TypeLimit overrides the variant default for every number of a bet type in one round.
type TypeLimit struct {
	ID       uint            `gorm:"primaryKey" json:"-"`
	RoundID  string          `gorm:"size:64;not null;uniqueIndex:uq_type_limits_round_type" json:"round_id"`
	BetType  lottery.BetType `gorm:"size:32;not null;uniqueIndex:uq_type_limits_round_type" json:"bet_type"`
	MaxStake decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"max_stake"`
}

func (TypeLimit) TableName() string { return "type_limits" }

// NumberLimit overrides the type limit for one number. Zero blocks the number entirely.
type NumberLimit struct {
	ID       uint            `gorm:"primaryKey" json:"-"`
	RoundID  string          `gorm:"size:64;not null;uniqueIndex:uq_number_limits_key" json:"round_id"`
	BetType  lottery.BetType `gorm:"size:32;not null;uniqueIndex:uq_number_limits_key" json:"bet_type"`
	Number   string          `gorm:"size:8;not null;uniqueIndex:uq_number_limits_key" json:"number"`
	MaxStake decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"max_stake"`
}

func (NumberLimit) TableName() string { return "number_limits" }
