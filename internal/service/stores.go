package service

import (
	"context"
	"time"

	"github.com/GoPolymarket/lottogate/internal/lottery"
	"github.com/GoPolymarket/lottogate/internal/model"
	"github.com/shopspring/decimal"
)

// Stores consumed by the ledger. gorm implementations live in internal/repository.

type WagerStore interface {
	ListLive(ctx context.Context, roundID string) ([]model.Wager, error)
	ListLiveByRounds(ctx context.Context, roundIDs []string) ([]model.Wager, error)
	// GetByIDs includes soft-deleted wagers.
	GetByIDs(ctx context.Context, ids []string) ([]model.Wager, error)
	Insert(ctx context.Context, w *model.Wager) error
	SoftDelete(ctx context.Context, ids []string, at time.Time) (int64, error)
}

type LimitStore interface {
	ListForRound(ctx context.Context, roundID string) ([]model.TypeLimit, []model.NumberLimit, error)
}

type RoundDirectory interface {
	Get(ctx context.Context, id string) (*model.Round, error)
	// FindOpenRound returns nil, nil when the dealer has no round accepting wagers.
	FindOpenRound(ctx context.Context, dealerID string, variant lottery.Variant, now time.Time) (*model.Round, error)
	ListUnannounced(ctx context.Context, dealerID string) ([]model.Round, error)
}

type TransferStore interface {
	ListByRound(ctx context.Context, roundID string) ([]model.TransferLine, error)
	ListByBatches(ctx context.Context, batchIDs []string) ([]model.TransferLine, error)
	GetByIDs(ctx context.Context, ids []string) ([]model.TransferLine, error)
	InsertBatch(ctx context.Context, lines []model.TransferLine) error
	DeleteInStatus(ctx context.Context, ids []string, status model.TransferStatus) (int64, error)
	SetSubmissionID(ctx context.Context, lineID, wagerID string) error
	FindBySubmissionIDs(ctx context.Context, wagerIDs []string) ([]model.TransferLine, error)
	FindActiveByNaturalKey(ctx context.Context, targetRoundID, number string, betTypes []lottery.BetType) ([]model.TransferLine, error)
	MarkReturned(ctx context.Context, ids []string) (int64, error)
}

type CreditStore interface {
	GetCredit(ctx context.Context, dealerID string) (*model.DealerCredit, error)
	UpsertPending(ctx context.Context, dealerID string, pending decimal.Decimal) error
	// GetSubscription returns nil, nil when the dealer has none.
	GetSubscription(ctx context.Context, dealerID string) (*model.Subscription, error)
}

type MemberRoster interface {
	ActiveMemberIDs(ctx context.Context, dealerID string) (map[string]struct{}, error)
}

// Clock is swapped in tests.
type Clock func() time.Time

func systemClock() time.Time { return time.Now().UTC() }
