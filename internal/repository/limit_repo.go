package repository

import (
	"context"

	"github.com/GoPolymarket/lottogate/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LimitRepo struct {
	db *gorm.DB
}

func NewLimitRepo(db *gorm.DB) *LimitRepo {
	return &LimitRepo{db: db}
}

// ListForRound returns the round's type and number overrides.
func (r *LimitRepo) ListForRound(ctx context.Context, roundID string) ([]model.TypeLimit, []model.NumberLimit, error) {
	var types []model.TypeLimit
	if err := r.db.WithContext(ctx).Where("round_id = ?", roundID).Find(&types).Error; err != nil {
		return nil, nil, err
	}
	var numbers []model.NumberLimit
	if err := r.db.WithContext(ctx).Where("round_id = ?", roundID).Find(&numbers).Error; err != nil {
		return nil, nil, err
	}
	return types, numbers, nil
}

func (r *LimitRepo) UpsertTypeLimit(ctx context.Context, l *model.TypeLimit) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "round_id"}, {Name: "bet_type"}},
		DoUpdates: clause.AssignmentColumns([]string{"max_stake"}),
	}).Create(l).Error
}

func (r *LimitRepo) UpsertNumberLimit(ctx context.Context, l *model.NumberLimit) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "round_id"}, {Name: "bet_type"}, {Name: "number"}},
		DoUpdates: clause.AssignmentColumns([]string{"max_stake"}),
	}).Create(l).Error
}
