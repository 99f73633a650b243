package repository

import (
	"context"
	"errors"
	"time"

	"github.com/GoPolymarket/lottogate/internal/model"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CreditRepo stores dealer balances and billing terms.
type CreditRepo struct {
	db *gorm.DB
}

func NewCreditRepo(db *gorm.DB) *CreditRepo {
	return &CreditRepo{db: db}
}

func (r *CreditRepo) GetCredit(ctx context.Context, dealerID string) (*model.DealerCredit, error) {
	var credit model.DealerCredit
	err := r.db.WithContext(ctx).Where("dealer_id = ?", dealerID).First(&credit).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCreditNotFound
		}
		return nil, err
	}
	return &credit, nil
}

// UpsertPending sets pending_deduction, creating the credit row with a zero balance if absent.
func (r *CreditRepo) UpsertPending(ctx context.Context, dealerID string, pending decimal.Decimal) error {
	row := model.DealerCredit{
		DealerID:         dealerID,
		Balance:          decimal.Zero,
		PendingDeduction: pending,
		WarningThreshold: decimal.Zero,
		UpdatedAt:        time.Now().UTC(),
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "dealer_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"pending_deduction", "updated_at"}),
	}).Create(&row).Error
}

// SaveCredit writes the full credit row.
func (r *CreditRepo) SaveCredit(ctx context.Context, credit *model.DealerCredit) error {
	return r.db.WithContext(ctx).Save(credit).Error
}

// GetSubscription returns nil when the dealer has no subscription.
func (r *CreditRepo) GetSubscription(ctx context.Context, dealerID string) (*model.Subscription, error) {
	var sub model.Subscription
	err := r.db.WithContext(ctx).Where("dealer_id = ?", dealerID).First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

func (r *CreditRepo) SaveSubscription(ctx context.Context, sub *model.Subscription) error {
	return r.db.WithContext(ctx).Save(sub).Error
}
