package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DealerCredit 经销商余额与待扣费用
type DealerCredit struct {
	DealerID         string          `gorm:"primaryKey;size:64" json:"dealer_id"`
	Balance          decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0" json:"balance"`
	PendingDeduction decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0" json:"pending_deduction"`
	WarningThreshold decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0" json:"warning_threshold"`
	IsBlocked        bool            `gorm:"not null;default:false" json:"is_blocked"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

func (DealerCredit) TableName() string { return "dealer_credits" }

func (c *DealerCredit) Available() decimal.Decimal {
	return c.Balance.Sub(c.PendingDeduction)
}

type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionTrial     SubscriptionStatus = "trial"
	SubscriptionExpired   SubscriptionStatus = "expired"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
)

type BillingModel string

const (
	BillingFlat       BillingModel = "flat"
	BillingPercentage BillingModel = "percentage"
)

// Subscription 经销商计费条款
type Subscription struct {
	DealerID              string             `gorm:"primaryKey;size:64" json:"dealer_id"`
	Status                SubscriptionStatus `gorm:"size:16;not null" json:"status"`
	BillingModel          BillingModel       `gorm:"size:16;not null" json:"billing_model"`
	PercentageRate        decimal.Decimal    `gorm:"type:numeric(9,4);not null;default:0" json:"percentage_rate"`
	MinAmountBeforeCharge decimal.Decimal    `gorm:"type:numeric(18,2);not null;default:0" json:"min_amount_before_charge"`
	UpdatedAt             time.Time          `json:"updated_at"`
}

func (Subscription) TableName() string { return "subscriptions" }

// ChargesPercentage reports whether the terms feed the pending deduction.
func (s *Subscription) ChargesPercentage() bool {
	if s == nil {
		return false
	}
	live := s.Status == SubscriptionActive || s.Status == SubscriptionTrial
	return live && s.BillingModel == BillingPercentage
}

// Membership 经销商名下会员
type Membership struct {
	DealerID  string    `gorm:"primaryKey;size:64" json:"dealer_id"`
	MemberID  string    `gorm:"primaryKey;size:64" json:"member_id"`
	Status    string    `gorm:"size:16;not null;default:active" json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

func (Membership) TableName() string { return "memberships" }

const MembershipActive = "active"
