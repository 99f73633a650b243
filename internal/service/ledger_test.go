package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/GoPolymarket/lottogate/internal/lottery"
	"github.com/GoPolymarket/lottogate/internal/model"
	"github.com/GoPolymarket/lottogate/internal/pkg/apperrors"
	"github.com/GoPolymarket/lottogate/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

type fixture struct {
	rounds    *repository.RoundRepo
	wagers    *repository.WagerRepo
	limits    *repository.LimitRepo
	transfers *repository.TransferRepo
	credits   *repository.CreditRepo
	members   *repository.MemberRepo

	exposure *ExposureService
	credit   *CreditLedger
	ledger   *TransferLedger
}

func setup(t *testing.T) *fixture {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := repository.OpenSQLite(fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	f := &fixture{
		rounds:    repository.NewRoundRepo(db),
		wagers:    repository.NewWagerRepo(db),
		limits:    repository.NewLimitRepo(db),
		transfers: repository.NewTransferRepo(db),
		credits:   repository.NewCreditRepo(db),
		members:   repository.NewMemberRepo(db),
	}
	f.exposure = NewExposureService(f.rounds, f.wagers, f.limits, f.transfers)
	f.credit = NewCreditLedger(f.rounds, f.wagers, f.credits, f.members)
	f.ledger = NewTransferLedger(f.rounds, f.wagers, f.transfers, f.exposure, NewDirectRecomputer(f.credit), true)
	return f
}

func (f *fixture) round(t *testing.T, id, dealer string, variant lottery.Variant, status model.RoundStatus) *model.Round {
	t.Helper()
	r := &model.Round{
		ID:       id,
		DealerID: dealer,
		Variant:  variant,
		Status:   status,
		CloseAt:  time.Now().UTC().Add(time.Hour),
		SetPrice: d(100),
	}
	require.NoError(t, f.rounds.Create(context.Background(), r))
	return r
}

func (f *fixture) wager(t *testing.T, roundID, bettor string, bt lottery.BetType, number string, amount int64) *model.Wager {
	t.Helper()
	w := &model.Wager{RoundID: roundID, BettorID: bettor, BetType: bt, Number: number, Amount: d(amount)}
	require.NoError(t, f.wagers.Insert(context.Background(), w))
	return w
}

func (f *fixture) excess(t *testing.T, roundID string) map[string]decimal.Decimal {
	t.Helper()
	report, err := f.exposure.Excess(context.Background(), roundID)
	require.NoError(t, err)
	out := make(map[string]decimal.Decimal, len(report.Items))
	for _, item := range report.Items {
		out[string(item.BetType)+":"+item.Number] = item.Excess
	}
	return out
}

func TestExcessUnknownRound(t *testing.T) {
	f := setup(t)
	_, err := f.exposure.Excess(context.Background(), "missing")
	assert.True(t, apperrors.IsType(err, apperrors.ErrNotFound))
}

func TestUnlinkedTransferAndRevert(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.round(t, "r1", "dealer-a", lottery.VariantThai, model.RoundOpen)
	f.wager(t, "r1", "m1", lottery.BetTwoTop, "12", 2500)
	f.wager(t, "r1", "m1", lottery.BetThreeTop, "123", 100)

	before := f.excess(t, "r1")
	require.Len(t, before, 1)
	assert.True(t, before["2_top:12"].Equal(d(500)))

	res, err := f.ledger.CreateBatch(ctx, CreateBatchInput{
		RoundID:   "r1",
		ActorID:   "dealer-a",
		Selection: []ItemRef{{BetType: lottery.BetTwoTop, Number: "12"}, {BetType: lottery.BetThreeTop, Number: "123"}},
		Target:    Target{Name: "uncle somchai"},
	})
	require.NoError(t, err)
	require.Len(t, res.Lines, 1)
	assert.False(t, res.Linked)
	assert.Empty(t, res.TargetRoundID)
	assert.True(t, res.Lines[0].Amount.Equal(d(500)))
	assert.Equal(t, []ItemRef{{BetType: lottery.BetThreeTop, Number: "123"}}, res.Stale)

	assert.Empty(t, f.excess(t, "r1"))

	batches, err := f.ledger.ListBatches(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.True(t, batches[0].Total.Equal(d(500)))

	// nothing left to transfer
	rerun, err := f.ledger.CreateBatch(ctx, CreateBatchInput{
		RoundID:   "r1",
		Selection: []ItemRef{{BetType: lottery.BetTwoTop, Number: "12"}},
		Target:    Target{Name: "uncle somchai"},
	})
	require.NoError(t, err)
	assert.Empty(t, rerun.BatchID)
	assert.Empty(t, rerun.Lines)
	assert.Len(t, rerun.Stale, 1)
	lines, err := f.transfers.ListByRound(ctx, "r1")
	require.NoError(t, err)
	assert.Len(t, lines, 1)

	// unknown batches are a no-op
	n, err := f.ledger.RevertBatch(ctx, "dealer-a", []string{"no-such-batch"})
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = f.ledger.RevertBatch(ctx, "dealer-a", []string{res.BatchID})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.True(t, f.excess(t, "r1")["2_top:12"].Equal(d(500)))
}

func TestCreateBatchValidation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.round(t, "r1", "dealer-a", lottery.VariantThai, model.RoundOpen)
	f.wager(t, "r1", "m1", lottery.BetTwoTop, "12", 2500)
	sel := []ItemRef{{BetType: lottery.BetTwoTop, Number: "12"}}

	_, err := f.ledger.CreateBatch(ctx, CreateBatchInput{RoundID: "r1", Selection: sel})
	assert.True(t, apperrors.IsType(err, apperrors.ErrInvalidRequest), "target required")

	_, err = f.ledger.CreateBatch(ctx, CreateBatchInput{RoundID: "r1", Selection: sel, Target: Target{DealerID: "dealer-a"}})
	assert.True(t, apperrors.IsType(err, apperrors.ErrInvalidRequest), "self target")

	_, err = f.ledger.CreateBatch(ctx, CreateBatchInput{RoundID: "r1", ActorID: "dealer-x", Selection: sel, Target: Target{Name: "x"}})
	assert.True(t, apperrors.IsType(err, apperrors.ErrForbidden))

	_, err = f.ledger.CreateBatch(ctx, CreateBatchInput{RoundID: "r1", Selection: []ItemRef{{BetType: lottery.BetTwoTop, Number: "1x"}}, Target: Target{Name: "x"}})
	assert.True(t, apperrors.IsType(err, apperrors.ErrInvalidRequest), "bad number")

	lines, err := f.transfers.ListByRound(ctx, "r1")
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestLinkedTransferReturnAndReclaim(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.round(t, "r1", "dealer-a", lottery.VariantThai, model.RoundOpen)
	f.round(t, "rb", "dealer-b", lottery.VariantThai, model.RoundOpen)
	f.wager(t, "r1", "m1", lottery.BetTwoTop, "12", 2500)
	require.NoError(t, f.credits.SaveSubscription(ctx, &model.Subscription{
		DealerID: "dealer-b", Status: model.SubscriptionActive, BillingModel: model.BillingPercentage, PercentageRate: d(10),
	}))

	res, err := f.ledger.CreateBatch(ctx, CreateBatchInput{
		RoundID:   "r1",
		Selection: []ItemRef{{BetType: lottery.BetTwoTop, Number: "12"}},
		Target:    Target{DealerID: "dealer-b"},
	})
	require.NoError(t, err)
	assert.True(t, res.Linked)
	assert.Equal(t, "rb", res.TargetRoundID)
	assert.Equal(t, 1, res.Mirrored)
	assert.Empty(t, res.MirrorFailures)
	require.NotNil(t, res.Lines[0].TargetSubmissionID)

	upstream, err := f.wagers.ListLive(ctx, "rb")
	require.NoError(t, err)
	require.Len(t, upstream, 1)
	assert.Equal(t, model.SourceTransfer, upstream[0].Source)
	assert.Equal(t, "dealer-a", upstream[0].BettorID)
	assert.True(t, upstream[0].Amount.Equal(d(500)))

	// receiver's pending deduction follows the incoming volume
	credit, err := f.credits.GetCredit(ctx, "dealer-b")
	require.NoError(t, err)
	assert.True(t, credit.PendingDeduction.Equal(d(50)), credit.PendingDeduction.String())

	// accepted upstream: revert refused
	_, err = f.ledger.RevertBatch(ctx, "", []string{res.BatchID})
	assert.True(t, apperrors.IsType(err, apperrors.ErrInvalidRequest))

	// only the receiver may return
	_, err = f.ledger.ReturnWagers(ctx, "dealer-a", []string{upstream[0].ID})
	assert.True(t, apperrors.IsType(err, apperrors.ErrForbidden))

	ret, err := f.ledger.ReturnWagers(ctx, "dealer-b", []string{upstream[0].ID})
	require.NoError(t, err)
	assert.Equal(t, []string{res.Lines[0].ID}, ret.Returned)
	assert.Empty(t, ret.Unmatched)

	again, err := f.ledger.ReturnWagers(ctx, "dealer-b", []string{upstream[0].ID})
	require.NoError(t, err)
	assert.Equal(t, ret.Returned, again.Returned)

	live, err := f.wagers.ListLive(ctx, "rb")
	require.NoError(t, err)
	assert.Empty(t, live)
	credit, err = f.credits.GetCredit(ctx, "dealer-b")
	require.NoError(t, err)
	assert.True(t, credit.PendingDeduction.IsZero())

	// returned lines still offset the sender until reclaimed
	assert.Empty(t, f.excess(t, "r1"))

	n, err := f.ledger.ReclaimLines(ctx, "dealer-a", ret.Returned)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.True(t, f.excess(t, "r1")["2_top:12"].Equal(d(500)))

	lines, err := f.transfers.ListByRound(ctx, "r1")
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestReclaimRequiresReturnedLines(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.round(t, "r1", "dealer-a", lottery.VariantThai, model.RoundOpen)
	f.wager(t, "r1", "m1", lottery.BetTwoTop, "12", 2500)

	res, err := f.ledger.CreateBatch(ctx, CreateBatchInput{
		RoundID:   "r1",
		Selection: []ItemRef{{BetType: lottery.BetTwoTop, Number: "12"}},
		Target:    Target{Name: "uncle"},
	})
	require.NoError(t, err)

	_, err = f.ledger.ReclaimLines(ctx, "dealer-a", []string{res.Lines[0].ID})
	assert.True(t, apperrors.IsType(err, apperrors.ErrInvalidRequest))
	lines, err := f.transfers.ListByRound(ctx, "r1")
	require.NoError(t, err)
	assert.Len(t, lines, 1)
}

func TestReturnRejectsDirectWagers(t *testing.T) {
	f := setup(t)
	f.round(t, "rb", "dealer-b", lottery.VariantThai, model.RoundOpen)
	w := f.wager(t, "rb", "m1", lottery.BetTwoTop, "12", 100)

	_, err := f.ledger.ReturnWagers(context.Background(), "dealer-b", []string{w.ID})
	assert.True(t, apperrors.IsType(err, apperrors.ErrInvalidRequest))
}

type failingWagers struct{ WagerStore }

func (failingWagers) Insert(context.Context, *model.Wager) error {
	return errors.New("upstream unavailable")
}

type unlinkedTransfers struct{ TransferStore }

func (unlinkedTransfers) SetSubmissionID(context.Context, string, string) error {
	return errors.New("connection reset")
}

func TestMirrorFailureKeepsTransfer(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.round(t, "r1", "dealer-a", lottery.VariantThai, model.RoundOpen)
	f.round(t, "rb", "dealer-b", lottery.VariantThai, model.RoundOpen)
	f.wager(t, "r1", "m1", lottery.BetTwoTop, "12", 2500)

	ledger := NewTransferLedger(f.rounds, failingWagers{f.wagers}, f.transfers, f.exposure, nil, true)
	res, err := ledger.CreateBatch(ctx, CreateBatchInput{
		RoundID:   "r1",
		Selection: []ItemRef{{BetType: lottery.BetTwoTop, Number: "12"}},
		Target:    Target{DealerID: "dealer-b"},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Mirrored)
	require.Len(t, res.MirrorFailures, 1)
	assert.Equal(t, res.Lines[0].ID, res.MirrorFailures[0].LineID)

	assert.Empty(t, f.excess(t, "r1"))
	upstream, err := f.wagers.ListLive(ctx, "rb")
	require.NoError(t, err)
	assert.Empty(t, upstream)
}

func TestRevertAfterFailedMirror(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.round(t, "r1", "dealer-a", lottery.VariantThai, model.RoundOpen)
	f.round(t, "rb", "dealer-b", lottery.VariantThai, model.RoundOpen)
	f.wager(t, "r1", "m1", lottery.BetTwoTop, "12", 2500)

	ledger := NewTransferLedger(f.rounds, failingWagers{f.wagers}, f.transfers, f.exposure, nil, true)
	res, err := ledger.CreateBatch(ctx, CreateBatchInput{
		RoundID:   "r1",
		Selection: []ItemRef{{BetType: lottery.BetTwoTop, Number: "12"}},
		Target:    Target{DealerID: "dealer-b"},
	})
	require.NoError(t, err)
	require.Len(t, res.MirrorFailures, 1)
	require.NotNil(t, res.Lines[0].TargetRoundID)

	n, err := f.ledger.RevertBatch(ctx, "dealer-a", []string{res.BatchID})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.True(t, f.excess(t, "r1")["2_top:12"].Equal(d(500)))
}

func TestRevertWithMirroringDisabled(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.round(t, "r1", "dealer-a", lottery.VariantThai, model.RoundOpen)
	f.round(t, "rb", "dealer-b", lottery.VariantThai, model.RoundOpen)
	f.wager(t, "r1", "m1", lottery.BetTwoTop, "12", 2500)

	ledger := NewTransferLedger(f.rounds, f.wagers, f.transfers, f.exposure, nil, false)
	res, err := ledger.CreateBatch(ctx, CreateBatchInput{
		RoundID:   "r1",
		Selection: []ItemRef{{BetType: lottery.BetTwoTop, Number: "12"}},
		Target:    Target{DealerID: "dealer-b"},
	})
	require.NoError(t, err)
	assert.Equal(t, "rb", res.TargetRoundID)
	assert.Zero(t, res.Mirrored)

	n, err := ledger.RevertBatch(ctx, "dealer-a", []string{res.BatchID})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.True(t, f.excess(t, "r1")["2_top:12"].Equal(d(500)))
}

func TestRepeatedReturnLeavesNewerLineAlone(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.round(t, "r1", "dealer-a", lottery.VariantThai, model.RoundOpen)
	f.round(t, "rb", "dealer-b", lottery.VariantThai, model.RoundOpen)
	f.wager(t, "r1", "m1", lottery.BetTwoTop, "12", 2500)
	sel := []ItemRef{{BetType: lottery.BetTwoTop, Number: "12"}}

	first, err := f.ledger.CreateBatch(ctx, CreateBatchInput{RoundID: "r1", Selection: sel, Target: Target{DealerID: "dealer-b"}})
	require.NoError(t, err)
	require.NotNil(t, first.Lines[0].TargetSubmissionID)
	w1 := *first.Lines[0].TargetSubmissionID

	ret, err := f.ledger.ReturnWagers(ctx, "dealer-b", []string{w1})
	require.NoError(t, err)
	_, err = f.ledger.ReclaimLines(ctx, "dealer-a", ret.Returned)
	require.NoError(t, err)

	second, err := f.ledger.CreateBatch(ctx, CreateBatchInput{RoundID: "r1", Selection: sel, Target: Target{DealerID: "dealer-b"}})
	require.NoError(t, err)
	require.Len(t, second.Lines, 1)
	l2 := second.Lines[0].ID

	// retried return of the old wager
	again, err := f.ledger.ReturnWagers(ctx, "dealer-b", []string{w1})
	require.NoError(t, err)
	assert.Empty(t, again.Returned)
	assert.Equal(t, []string{w1}, again.Unmatched)

	lines, err := f.transfers.GetByIDs(ctx, []string{l2})
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, model.TransferActive, lines[0].Status)
	live, err := f.wagers.ListLive(ctx, "rb")
	require.NoError(t, err)
	assert.Len(t, live, 1)

	_, err = f.ledger.ReclaimLines(ctx, "dealer-a", []string{l2})
	assert.True(t, apperrors.IsType(err, apperrors.ErrInvalidRequest))
	assert.Empty(t, f.excess(t, "r1"))
}

func TestReturnFallsBackToNaturalKey(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.round(t, "r1", "dealer-a", lottery.VariantThai, model.RoundOpen)
	f.round(t, "rb", "dealer-b", lottery.VariantThai, model.RoundOpen)
	f.wager(t, "r1", "m1", lottery.BetTwoTop, "12", 2500)

	ledger := NewTransferLedger(f.rounds, f.wagers, unlinkedTransfers{f.transfers}, f.exposure, nil, true)
	res, err := ledger.CreateBatch(ctx, CreateBatchInput{
		RoundID:   "r1",
		Selection: []ItemRef{{BetType: lottery.BetTwoTop, Number: "12"}},
		Target:    Target{DealerID: "dealer-b"},
	})
	require.NoError(t, err)
	require.Len(t, res.MirrorFailures, 1)

	upstream, err := f.wagers.ListLive(ctx, "rb")
	require.NoError(t, err)
	require.Len(t, upstream, 1)

	// the unlinked wager still holds the line upstream
	_, err = f.ledger.RevertBatch(ctx, "dealer-a", []string{res.BatchID})
	assert.True(t, apperrors.IsType(err, apperrors.ErrInvalidRequest))

	ret, err := f.ledger.ReturnWagers(ctx, "dealer-b", []string{upstream[0].ID})
	require.NoError(t, err)
	assert.Equal(t, []string{res.Lines[0].ID}, ret.Returned)

	lines, err := f.transfers.GetByIDs(ctx, ret.Returned)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, model.TransferReturned, lines[0].Status)
}

func TestNoUpstreamRoundRecordsUnmirroredLine(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.round(t, "r1", "dealer-a", lottery.VariantThai, model.RoundOpen)
	f.round(t, "rb", "dealer-b", lottery.VariantLao, model.RoundOpen)
	f.wager(t, "r1", "m1", lottery.BetTwoTop, "12", 2500)

	res, err := f.ledger.CreateBatch(ctx, CreateBatchInput{
		RoundID:   "r1",
		Selection: []ItemRef{{BetType: lottery.BetTwoTop, Number: "12"}},
		Target:    Target{DealerID: "dealer-b"},
	})
	require.NoError(t, err)
	assert.True(t, res.Linked)
	assert.Empty(t, res.TargetRoundID)
	assert.Nil(t, res.Lines[0].TargetRoundID)

	// never accepted upstream, so the sender may still revert
	n, err := f.ledger.RevertBatch(ctx, "dealer-a", []string{res.BatchID})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestSetTransferMirrorsAsFourSet(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.round(t, "r1", "dealer-a", lottery.VariantLaoSet, model.RoundOpen)
	f.round(t, "rb", "dealer-b", lottery.VariantLaoSet, model.RoundOpen)
	f.wager(t, "r1", "m1", lottery.BetFourSet, "1234", 700)

	items := f.excess(t, "r1")
	require.Len(t, items, 1)
	assert.True(t, items["4_set:1234"].Equal(d(200)))

	res, err := f.ledger.CreateBatch(ctx, CreateBatchInput{
		RoundID:   "r1",
		Selection: []ItemRef{{BetType: lottery.BetFourSet, Number: "1234"}},
		Target:    Target{DealerID: "dealer-b"},
	})
	require.NoError(t, err)
	assert.True(t, res.Lines[0].Amount.Equal(d(200)))
	assert.Equal(t, 1, res.Mirrored)

	upstream, err := f.wagers.ListLive(ctx, "rb")
	require.NoError(t, err)
	require.Len(t, upstream, 1)
	assert.Equal(t, lottery.BetFourSet, upstream[0].BetType)
	assert.Equal(t, "1234", upstream[0].Number)
	assert.Empty(t, f.excess(t, "r1"))
}

func TestRecomputePendingDeduction(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.round(t, "r1", "dealer-a", lottery.VariantThai, model.RoundOpen)
	f.round(t, "r2", "dealer-a", lottery.VariantThai, model.RoundClosed)
	f.round(t, "r3", "dealer-a", lottery.VariantThai, model.RoundAnnounced)
	require.NoError(t, f.members.Add(ctx, &model.Membership{DealerID: "dealer-a", MemberID: "m1", Status: model.MembershipActive}))
	require.NoError(t, f.credits.SaveSubscription(ctx, &model.Subscription{
		DealerID: "dealer-a", Status: model.SubscriptionActive, BillingModel: model.BillingPercentage,
		PercentageRate: d(10), MinAmountBeforeCharge: d(1000),
	}))

	f.wager(t, "r1", "m1", lottery.BetTwoTop, "12", 500)
	f.wager(t, "r1", "walk-in", lottery.BetTwoTop, "34", 3000)
	f.wager(t, "r2", "walk-in", lottery.BetTwoTop, "56", 800)
	f.wager(t, "r3", "m1", lottery.BetTwoTop, "78", 9000)
	gone := f.wager(t, "r1", "m1", lottery.BetTwoTop, "90", 4000)
	_, err := f.wagers.SoftDelete(ctx, []string{gone.ID}, time.Now())
	require.NoError(t, err)

	// r1: (500 + 3000-1000) * 10% = 250; r2: own 800 under the minimum
	pending, err := f.credit.RecomputePendingDeduction(ctx, "dealer-a")
	require.NoError(t, err)
	assert.True(t, pending.Equal(d(250)), pending.String())

	credit, err := f.credits.GetCredit(ctx, "dealer-a")
	require.NoError(t, err)
	assert.True(t, credit.PendingDeduction.Equal(d(250)))
	assert.True(t, credit.Balance.IsZero())
}

func TestRecomputeSkipsFlatBilling(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.round(t, "r1", "dealer-a", lottery.VariantThai, model.RoundOpen)
	f.wager(t, "r1", "walk-in", lottery.BetTwoTop, "12", 3000)
	require.NoError(t, f.credits.SaveSubscription(ctx, &model.Subscription{
		DealerID: "dealer-a", Status: model.SubscriptionActive, BillingModel: model.BillingFlat,
	}))

	pending, err := f.credit.RecomputePendingDeduction(ctx, "dealer-a")
	require.NoError(t, err)
	assert.True(t, pending.IsZero())

	_, err = f.credits.GetCredit(ctx, "dealer-a")
	assert.ErrorIs(t, err, repository.ErrCreditNotFound)
}

func TestCheckCreditForWager(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.round(t, "r1", "dealer-a", lottery.VariantThai, model.RoundOpen)
	require.NoError(t, f.credits.SaveSubscription(ctx, &model.Subscription{
		DealerID: "dealer-a", Status: model.SubscriptionActive, BillingModel: model.BillingPercentage, PercentageRate: d(10),
	}))
	require.NoError(t, f.credits.SaveCredit(ctx, &model.DealerCredit{
		DealerID: "dealer-a", Balance: d(1000), PendingDeduction: d(200), WarningThreshold: d(400),
	}))

	check, err := f.credit.CheckCreditForWager(ctx, CreditCheckInput{DealerID: "dealer-a", RoundID: "r1", Amount: d(5000)})
	require.NoError(t, err)
	assert.True(t, check.Allowed)
	assert.True(t, check.ProjectedFee.Equal(d(500)))
	assert.True(t, check.Available.Equal(d(800)))
	assert.True(t, check.Warning, "300 left is under the 400 threshold")

	check, err = f.credit.CheckCreditForWager(ctx, CreditCheckInput{DealerID: "dealer-a", RoundID: "r1", Amount: d(9000)})
	require.NoError(t, err)
	assert.False(t, check.Allowed)
	assert.True(t, check.Shortfall.Equal(d(100)), check.Shortfall.String())

	_, err = f.credit.CheckCreditForWager(ctx, CreditCheckInput{DealerID: "dealer-b", RoundID: "r1", Amount: d(10)})
	assert.True(t, apperrors.IsType(err, apperrors.ErrInvalidRequest))
}

func TestCheckCreditWithoutPercentageBillingAllows(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.round(t, "r1", "dealer-a", lottery.VariantThai, model.RoundOpen)

	check, err := f.credit.CheckCreditForWager(ctx, CreditCheckInput{DealerID: "dealer-a", RoundID: "r1", Amount: d(1_000_000)})
	require.NoError(t, err)
	assert.True(t, check.Allowed)
}

func TestCheckCreditMinimumAppliesToProjectedVolume(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.round(t, "r1", "dealer-a", lottery.VariantThai, model.RoundOpen)
	require.NoError(t, f.credits.SaveSubscription(ctx, &model.Subscription{
		DealerID: "dealer-a", Status: model.SubscriptionTrial, BillingModel: model.BillingPercentage,
		PercentageRate: d(10), MinAmountBeforeCharge: d(1000),
	}))
	f.wager(t, "r1", "walk-in", lottery.BetTwoTop, "12", 800)

	// own volume 800 -> 1300, only 300 is above the minimum
	check, err := f.credit.CheckCreditForWager(ctx, CreditCheckInput{DealerID: "dealer-a", RoundID: "r1", Amount: d(500)})
	require.NoError(t, err)
	assert.True(t, check.ProjectedFee.Equal(d(30)), check.ProjectedFee.String())
	assert.False(t, check.Allowed, "no credit row means zero balance")
	assert.True(t, check.Shortfall.Equal(d(30)))
}

func TestCheckCreditCountsExistingRoundVolume(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.round(t, "r1", "dealer-a", lottery.VariantThai, model.RoundOpen)
	require.NoError(t, f.credits.SaveSubscription(ctx, &model.Subscription{
		DealerID: "dealer-a", Status: model.SubscriptionActive, BillingModel: model.BillingPercentage, PercentageRate: d(10),
	}))
	require.NoError(t, f.credits.SaveCredit(ctx, &model.DealerCredit{
		DealerID: "dealer-a", Balance: d(1000), PendingDeduction: d(500),
	}))
	f.wager(t, "r1", "walk-in", lottery.BetTwoTop, "12", 5000)

	// 5000 + 1000 -> fee 600 against 500 available
	check, err := f.credit.CheckCreditForWager(ctx, CreditCheckInput{DealerID: "dealer-a", RoundID: "r1", Amount: d(1000)})
	require.NoError(t, err)
	assert.True(t, check.ProjectedFee.Equal(d(600)), check.ProjectedFee.String())
	assert.False(t, check.Allowed)
	assert.True(t, check.Shortfall.Equal(d(100)), check.Shortfall.String())
}
