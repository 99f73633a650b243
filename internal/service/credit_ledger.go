package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/GoPolymarket/lottogate/internal/model"
	"github.com/GoPolymarket/lottogate/internal/pkg/apperrors"
	"github.com/GoPolymarket/lottogate/internal/pkg/logger"
	"github.com/GoPolymarket/lottogate/internal/pkg/metrics"
	"github.com/GoPolymarket/lottogate/internal/repository"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// CreditLedger keeps each dealer's pending deduction in line with the volume of
// its unannounced rounds, and gates new wagers on available credit.
type CreditLedger struct {
	rounds  RoundDirectory
	wagers  WagerStore
	credits CreditStore
	members MemberRoster
}

func NewCreditLedger(rounds RoundDirectory, wagers WagerStore, credits CreditStore, members MemberRoster) *CreditLedger {
	return &CreditLedger{rounds: rounds, wagers: wagers, credits: credits, members: members}
}

// volume splits a round's stake into the dealer's own book and its members' book.
type volume struct {
	own    decimal.Decimal
	member decimal.Decimal
}

// fee = (member + max(0, own - min)) * rate / 100
func roundFee(sub *model.Subscription, v volume) decimal.Decimal {
	chargeable := v.own.Sub(sub.MinAmountBeforeCharge)
	if chargeable.IsNegative() {
		chargeable = decimal.Zero
	}
	return v.member.Add(chargeable).Mul(sub.PercentageRate).Div(hundred)
}

func splitVolume(wagers []model.Wager, roster map[string]struct{}) map[string]*volume {
	out := make(map[string]*volume)
	for _, w := range wagers {
		v, ok := out[w.RoundID]
		if !ok {
			v = &volume{own: decimal.Zero, member: decimal.Zero}
			out[w.RoundID] = v
		}
		if _, isMember := roster[w.BettorID]; isMember {
			v.member = v.member.Add(w.Stake())
		} else {
			v.own = v.own.Add(w.Stake())
		}
	}
	return out
}

// RecomputePendingDeduction rebuilds the dealer's pending deduction from its
// unannounced rounds. Dealers without percentage billing are left untouched.
func (s *CreditLedger) RecomputePendingDeduction(ctx context.Context, dealerID string) (decimal.Decimal, error) {
	dealerID = strings.TrimSpace(dealerID)
	if dealerID == "" {
		return decimal.Zero, apperrors.NewInvalidRequest("dealer id is required")
	}

	sub, err := s.credits.GetSubscription(ctx, dealerID)
	if err != nil {
		metrics.Recomputes.WithLabelValues("error").Inc()
		return decimal.Zero, apperrors.NewPersistence("load subscription", err)
	}
	if !sub.ChargesPercentage() {
		metrics.Recomputes.WithLabelValues("skipped").Inc()
		return decimal.Zero, nil
	}

	rounds, err := s.rounds.ListUnannounced(ctx, dealerID)
	if err != nil {
		metrics.Recomputes.WithLabelValues("error").Inc()
		return decimal.Zero, apperrors.NewPersistence("load rounds", err)
	}

	total := decimal.Zero
	if len(rounds) > 0 {
		roster, err := s.members.ActiveMemberIDs(ctx, dealerID)
		if err != nil {
			metrics.Recomputes.WithLabelValues("error").Inc()
			return decimal.Zero, apperrors.NewPersistence("load members", err)
		}
		ids := make([]string, 0, len(rounds))
		for _, r := range rounds {
			ids = append(ids, r.ID)
		}
		wagers, err := s.wagers.ListLiveByRounds(ctx, ids)
		if err != nil {
			metrics.Recomputes.WithLabelValues("error").Inc()
			return decimal.Zero, apperrors.NewPersistence("load wagers", err)
		}
		for _, v := range splitVolume(wagers, roster) {
			total = total.Add(roundFee(sub, *v))
		}
	}
	total = total.Round(2)

	if err := s.credits.UpsertPending(ctx, dealerID, total); err != nil {
		metrics.Recomputes.WithLabelValues("error").Inc()
		return decimal.Zero, apperrors.NewPersistence("save pending deduction", err)
	}
	metrics.Recomputes.WithLabelValues("ok").Inc()
	logger.Info("pending deduction recomputed",
		"dealer_id", dealerID,
		"rounds", len(rounds),
		"pending", total.String(),
	)
	return total, nil
}

// CheckCreditForWager projects the fee a new wager would add and compares it with
// the dealer's available credit.
func (s *CreditLedger) CheckCreditForWager(ctx context.Context, in CreditCheckInput) (*CreditCheck, error) {
	in.DealerID = strings.TrimSpace(in.DealerID)
	if in.DealerID == "" {
		return nil, apperrors.NewInvalidRequest("dealer id is required")
	}
	if !in.Amount.IsPositive() {
		return nil, apperrors.NewInvalidRequest("amount must be positive")
	}
	round, err := loadRound(ctx, s.rounds, in.RoundID)
	if err != nil {
		return nil, err
	}
	if round.DealerID != in.DealerID {
		return nil, apperrors.NewInvalidRequest(fmt.Sprintf("round %s belongs to another dealer", round.ID))
	}

	sub, err := s.credits.GetSubscription(ctx, in.DealerID)
	if err != nil {
		return nil, apperrors.NewPersistence("load subscription", err)
	}
	if !sub.ChargesPercentage() {
		metrics.CreditChecks.WithLabelValues("allowed").Inc()
		return &CreditCheck{
			Allowed:      true,
			Shortfall:    decimal.Zero,
			ProjectedFee: decimal.Zero,
			Available:    decimal.Zero,
			Reason:       "no percentage billing",
		}, nil
	}

	credit, err := s.credits.GetCredit(ctx, in.DealerID)
	if err != nil {
		if !errors.Is(err, repository.ErrCreditNotFound) {
			return nil, apperrors.NewPersistence("load credit", err)
		}
		credit = &model.DealerCredit{DealerID: in.DealerID}
	}

	roster, err := s.members.ActiveMemberIDs(ctx, in.DealerID)
	if err != nil {
		return nil, apperrors.NewPersistence("load members", err)
	}
	wagers, err := s.wagers.ListLive(ctx, round.ID)
	if err != nil {
		return nil, apperrors.NewPersistence("load wagers", err)
	}
	current := volume{own: decimal.Zero, member: decimal.Zero}
	if v, ok := splitVolume(wagers, roster)[round.ID]; ok {
		current = *v
	}
	next := current
	if _, isMember := roster[in.BettorID]; isMember && in.BettorID != "" {
		next.member = next.member.Add(in.Amount)
	} else {
		next.own = next.own.Add(in.Amount)
	}
	// 本期次投影总量的费用, 不是增量
	projected := roundFee(sub, next).Round(2)

	available := credit.Available()
	check := &CreditCheck{
		Allowed:      true,
		Shortfall:    decimal.Zero,
		ProjectedFee: projected,
		Available:    available,
	}
	switch {
	case credit.IsBlocked:
		check.Allowed = false
		check.Reason = "dealer is blocked"
	case available.LessThan(projected):
		check.Allowed = false
		check.Shortfall = projected.Sub(available)
		check.Reason = "insufficient credit"
	}
	remaining := available.Sub(projected)
	if credit.WarningThreshold.IsPositive() && remaining.LessThan(credit.WarningThreshold) {
		check.Warning = true
	}

	result := "allowed"
	if !check.Allowed {
		result = "rejected"
	}
	metrics.CreditChecks.WithLabelValues(result).Inc()
	logger.Debug("credit checked",
		"dealer_id", in.DealerID,
		"round_id", round.ID,
		"amount", in.Amount.String(),
		"projected_fee", projected.String(),
		"allowed", check.Allowed,
	)
	return check, nil
}

func (s *CreditLedger) GetCredit(ctx context.Context, dealerID string) (*CreditView, error) {
	credit, err := s.credits.GetCredit(ctx, dealerID)
	if err != nil {
		if errors.Is(err, repository.ErrCreditNotFound) {
			return nil, apperrors.NewNotFound(fmt.Sprintf("no credit for dealer %s", dealerID))
		}
		return nil, apperrors.NewPersistence("load credit", err)
	}
	return &CreditView{DealerCredit: *credit, Available: credit.Available()}, nil
}
