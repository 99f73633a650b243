package repository

import (
	"context"
	"errors"
	"time"

	"github.com/GoPolymarket/lottogate/internal/lottery"
	"github.com/GoPolymarket/lottogate/internal/model"
	"gorm.io/gorm"
)

type RoundRepo struct {
	db *gorm.DB
}

func NewRoundRepo(db *gorm.DB) *RoundRepo {
	return &RoundRepo{db: db}
}

func (r *RoundRepo) Get(ctx context.Context, id string) (*model.Round, error) {
	var round model.Round
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&round).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoundNotFound
		}
		return nil, err
	}
	return &round, nil
}

// FindOpenRound returns the dealer's earliest-closing open round of the variant that is
// still accepting wagers at now, or nil when there is none.
func (r *RoundRepo) FindOpenRound(ctx context.Context, dealerID string, variant lottery.Variant, now time.Time) (*model.Round, error) {
	var rounds []model.Round
	err := r.db.WithContext(ctx).
		Where("dealer_id = ? AND variant = ? AND status = ?", dealerID, variant, model.RoundOpen).
		Order("close_at ASC").
		Find(&rounds).Error
	if err != nil {
		return nil, err
	}
	// close time compared here, sqlite stores timestamps as text
	for i := range rounds {
		if rounds[i].IsOpenAt(now) {
			return &rounds[i], nil
		}
	}
	return nil, nil
}

// ListUnannounced returns the dealer's rounds whose results are not yet announced.
func (r *RoundRepo) ListUnannounced(ctx context.Context, dealerID string) ([]model.Round, error) {
	var rounds []model.Round
	err := r.db.WithContext(ctx).
		Where("dealer_id = ? AND status IN ?", dealerID, []model.RoundStatus{model.RoundOpen, model.RoundClosed}).
		Order("close_at ASC").
		Find(&rounds).Error
	return rounds, err
}

func (r *RoundRepo) Create(ctx context.Context, round *model.Round) error {
	return r.db.WithContext(ctx).Create(round).Error
}
