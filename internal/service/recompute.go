package service

import (
	"context"

	"github.com/GoPolymarket/lottogate/internal/pkg/logger"
)

// Recomputer asks for a dealer's pending deduction to be recomputed after its
// open-round volume changed. Implementations may run it inline or hand it to a worker.
type Recomputer interface {
	RequestRecompute(ctx context.Context, dealerID, roundID, reason string) error
}

// DirectRecomputer recomputes inline on the caller's goroutine.
type DirectRecomputer struct {
	credit *CreditLedger
}

func NewDirectRecomputer(credit *CreditLedger) *DirectRecomputer {
	return &DirectRecomputer{credit: credit}
}

func (r *DirectRecomputer) RequestRecompute(ctx context.Context, dealerID, roundID, reason string) error {
	pending, err := r.credit.RecomputePendingDeduction(ctx, dealerID)
	if err != nil {
		return err
	}
	logger.Debug("pending deduction recomputed",
		"dealer_id", dealerID,
		"round_id", roundID,
		"reason", reason,
		"pending", pending.String(),
	)
	return nil
}
