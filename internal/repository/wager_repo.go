package repository

import (
	"context"
	"time"

	"github.com/GoPolymarket/lottogate/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type WagerRepo struct {
	db *gorm.DB
}

func NewWagerRepo(db *gorm.DB) *WagerRepo {
	return &WagerRepo{db: db}
}

// ListLive returns the non-deleted wagers of a round in submission order.
func (r *WagerRepo) ListLive(ctx context.Context, roundID string) ([]model.Wager, error) {
	return r.ListLiveByRounds(ctx, []string{roundID})
}

func (r *WagerRepo) ListLiveByRounds(ctx context.Context, roundIDs []string) ([]model.Wager, error) {
	if len(roundIDs) == 0 {
		return nil, nil
	}
	var wagers []model.Wager
	err := r.db.WithContext(ctx).
		Where("round_id IN ? AND is_deleted = ?", roundIDs, false).
		Order("created_at ASC, id ASC").
		Find(&wagers).Error
	return wagers, err
}

// GetByIDs loads wagers including soft-deleted ones.
func (r *WagerRepo) GetByIDs(ctx context.Context, ids []string) ([]model.Wager, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var wagers []model.Wager
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&wagers).Error
	return wagers, err
}

func (r *WagerRepo) Insert(ctx context.Context, w *model.Wager) error {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	if w.Source == "" {
		w.Source = model.SourceDirect
	}
	return r.db.WithContext(ctx).Create(w).Error
}

// SoftDelete flags the wagers as deleted. Already deleted rows are left untouched.
func (r *WagerRepo) SoftDelete(ctx context.Context, ids []string, at time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Model(&model.Wager{}).
		Where("id IN ? AND is_deleted = ?", ids, false).
		Updates(map[string]any{"is_deleted": true, "deleted_at": at})
	return res.RowsAffected, res.Error
}
