package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/GoPolymarket/lottogate/internal/lottery"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type TransferStatus string

const (
	TransferActive   TransferStatus = "active"
	TransferReturned TransferStatus = "returned"
)

// TransferLine 一笔转出的超额。同一批次的行在一个事务里写入。
// active -> returned -> 删除 (reclaim); active -> 删除 (revert)
type TransferLine struct {
	ID                 string          `gorm:"primaryKey;size:64" json:"id"`
	BatchID            string          `gorm:"size:64;not null;index" json:"batch_id"`
	RoundID            string          `gorm:"size:64;not null;index" json:"round_id"`
	BetType            lottery.BetType `gorm:"size:32;not null" json:"bet_type"`
	Number             string          `gorm:"size:8;not null" json:"number"`
	Amount             decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"amount"`
	TargetName         string          `gorm:"size:128" json:"target_name,omitempty"`
	TargetDealerID     string          `gorm:"size:64;index" json:"target_dealer_id,omitempty"`
	IsLinked           bool            `gorm:"not null;default:false" json:"is_linked"`
	TargetRoundID      *string         `gorm:"size:64;index" json:"target_round_id,omitempty"`
	TargetSubmissionID *string         `gorm:"size:64;index" json:"target_submission_id,omitempty"`
	Status             TransferStatus  `gorm:"size:16;not null;default:active" json:"status"`
	SourceWagerIDs     datatypes.JSON  `json:"source_wager_ids,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

func (TransferLine) TableName() string { return "transfer_lines" }

// Counts reports whether the line still offsets the sender's exposure.
// Returned lines keep counting until they are reclaimed.
func (l *TransferLine) Counts() bool {
	return l.Status == TransferActive || l.Status == TransferReturned
}

// Mirrored reports whether an upstream round was found for the line. The mirrored
// wager itself may still be missing when the best-effort insert failed.
func (l *TransferLine) Mirrored() bool {
	return l.TargetRoundID != nil && *l.TargetRoundID != ""
}

func (l *TransferLine) SetSourceWagerIDs(ids []string) error {
	if len(ids) == 0 {
		l.SourceWagerIDs = nil
		return nil
	}
	raw, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("encode source wager ids: %w", err)
	}
	l.SourceWagerIDs = datatypes.JSON(raw)
	return nil
}

func (l *TransferLine) SourceWagers() []string {
	if len(l.SourceWagerIDs) == 0 {
		return nil
	}
	var ids []string
	if err := json.Unmarshal(l.SourceWagerIDs, &ids); err != nil {
		return nil
	}
	return ids
}
