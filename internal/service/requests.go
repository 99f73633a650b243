package service

import (
	"time"

	"github.com/GoPolymarket/lottogate/internal/lottery"
	"github.com/GoPolymarket/lottogate/internal/model"
	"github.com/shopspring/decimal"
)

// Target designates who receives a transfer batch: free text, a resolved upstream
// dealer, or both.
type Target struct {
	Name     string `json:"name"`
	DealerID string `json:"dealer_id"`
}

// ItemRef selects one excess item of a round.
type ItemRef struct {
	BetType lottery.BetType `json:"bet_type" binding:"required"`
	Number  string          `json:"number" binding:"required"`
}

type CreateBatchInput struct {
	RoundID   string    `json:"-"`
	ActorID   string    `json:"-"`
	Selection []ItemRef `json:"items" binding:"required,min=1,dive"`
	Target    Target    `json:"target"`
}

type MirrorFailure struct {
	LineID string `json:"line_id"`
	Reason string `json:"reason"`
}

type BatchResult struct {
	BatchID        string               `json:"batch_id"`
	Lines          []model.TransferLine `json:"lines"`
	Linked         bool                 `json:"linked"`
	TargetRoundID  string               `json:"target_round_id,omitempty"`
	Mirrored       int                  `json:"mirrored"`
	MirrorFailures []MirrorFailure      `json:"mirror_failures,omitempty"`
	// selected items that no longer exceed their limit
	Stale []ItemRef `json:"stale,omitempty"`
}

type ReturnResult struct {
	Returned  []string `json:"returned_line_ids"`
	Unmatched []string `json:"unmatched_wager_ids,omitempty"`
}

// Batch is the lines of one transfer batch, oldest first.
type Batch struct {
	BatchID   string               `json:"batch_id"`
	CreatedAt time.Time            `json:"created_at"`
	Total     decimal.Decimal      `json:"total"`
	Lines     []model.TransferLine `json:"lines"`
}

type CreditCheckInput struct {
	DealerID string          `json:"-"`
	RoundID  string          `json:"round_id" binding:"required"`
	BettorID string          `json:"bettor_id"`
	Amount   decimal.Decimal `json:"amount"`
}

type CreditCheck struct {
	Allowed      bool            `json:"allowed"`
	Shortfall    decimal.Decimal `json:"shortfall"`
	ProjectedFee decimal.Decimal `json:"projected_fee"`
	Available    decimal.Decimal `json:"available"`
	Warning      bool            `json:"warning"`
	Reason       string          `json:"reason,omitempty"`
}

type CreditView struct {
	model.DealerCredit
	Available decimal.Decimal `json:"available"`
}
