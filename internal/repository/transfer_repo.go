package repository

import (
	"context"
	"fmt"

	"github.com/GoPolymarket/lottogate/internal/lottery"
	"github.com/GoPolymarket/lottogate/internal/model"
	"gorm.io/gorm"
)

type TransferRepo struct {
	db *gorm.DB
}

func NewTransferRepo(db *gorm.DB) *TransferRepo {
	return &TransferRepo{db: db}
}

func (r *TransferRepo) ListByRound(ctx context.Context, roundID string) ([]model.TransferLine, error) {
	var lines []model.TransferLine
	err := r.db.WithContext(ctx).
		Where("round_id = ?", roundID).
		Order("created_at ASC, id ASC").
		Find(&lines).Error
	return lines, err
}

func (r *TransferRepo) ListByBatches(ctx context.Context, batchIDs []string) ([]model.TransferLine, error) {
	if len(batchIDs) == 0 {
		return nil, nil
	}
	var lines []model.TransferLine
	err := r.db.WithContext(ctx).Where("batch_id IN ?", batchIDs).Order("id ASC").Find(&lines).Error
	return lines, err
}

func (r *TransferRepo) GetByIDs(ctx context.Context, ids []string) ([]model.TransferLine, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var lines []model.TransferLine
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id ASC").Find(&lines).Error
	return lines, err
}

// InsertBatch writes all lines of a batch in one transaction.
func (r *TransferRepo) InsertBatch(ctx context.Context, lines []model.TransferLine) error {
	if len(lines) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range lines {
			if err := tx.Create(&lines[i]).Error; err != nil {
				return fmt.Errorf("insert transfer line %s: %w", lines[i].ID, err)
			}
		}
		return nil
	})
}

// DeleteInStatus deletes the lines that are still in status, in one transaction.
// Lines that changed status or disappeared meanwhile are skipped.
func (r *TransferRepo) DeleteInStatus(ctx context.Context, ids []string, status model.TransferStatus) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id IN ? AND status = ?", ids, status).Delete(&model.TransferLine{})
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected
		return nil
	})
	return deleted, err
}

func (r *TransferRepo) SetSubmissionID(ctx context.Context, lineID, wagerID string) error {
	return r.db.WithContext(ctx).Model(&model.TransferLine{}).
		Where("id = ?", lineID).
		Update("target_submission_id", wagerID).Error
}

func (r *TransferRepo) FindBySubmissionIDs(ctx context.Context, wagerIDs []string) ([]model.TransferLine, error) {
	if len(wagerIDs) == 0 {
		return nil, nil
	}
	var lines []model.TransferLine
	err := r.db.WithContext(ctx).Where("target_submission_id IN ?", wagerIDs).Find(&lines).Error
	return lines, err
}

// FindActiveByNaturalKey matches active lines mirrored into targetRoundID whose
// submission id was never recorded. Lines linked to a wager are left alone. Oldest first.
func (r *TransferRepo) FindActiveByNaturalKey(ctx context.Context, targetRoundID, number string, betTypes []lottery.BetType) ([]model.TransferLine, error) {
	var lines []model.TransferLine
	err := r.db.WithContext(ctx).
		Where("target_round_id = ? AND number = ? AND bet_type IN ? AND status = ? AND target_submission_id IS NULL",
			targetRoundID, number, betTypes, model.TransferActive).
		Order("created_at ASC, id ASC").
		Find(&lines).Error
	return lines, err
}

// MarkReturned flips active lines to returned. Already returned lines are untouched.
func (r *TransferRepo) MarkReturned(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Model(&model.TransferLine{}).
		Where("id IN ? AND status = ?", ids, model.TransferActive).
		Update("status", model.TransferReturned)
	return res.RowsAffected, res.Error
}
