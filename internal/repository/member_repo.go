package repository

import (
	"context"

	"github.com/GoPolymarket/lottogate/internal/model"
	"gorm.io/gorm"
)

type MemberRepo struct {
	db *gorm.DB
}

func NewMemberRepo(db *gorm.DB) *MemberRepo {
	return &MemberRepo{db: db}
}

// ActiveMemberIDs returns the dealer's active roster as a set.
func (r *MemberRepo) ActiveMemberIDs(ctx context.Context, dealerID string) (map[string]struct{}, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&model.Membership{}).
		Where("dealer_id = ? AND status = ?", dealerID, model.MembershipActive).
		Pluck("member_id", &ids).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out, nil
}

func (r *MemberRepo) Add(ctx context.Context, m *model.Membership) error {
	if m.Status == "" {
		m.Status = model.MembershipActive
	}
	return r.db.WithContext(ctx).Save(m).Error
}
