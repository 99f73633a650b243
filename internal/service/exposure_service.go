package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/GoPolymarket/lottogate/internal/exposure"
	"github.com/GoPolymarket/lottogate/internal/model"
	"github.com/GoPolymarket/lottogate/internal/pkg/apperrors"
	"github.com/GoPolymarket/lottogate/internal/pkg/logger"
	"github.com/GoPolymarket/lottogate/internal/pkg/metrics"
	"github.com/GoPolymarket/lottogate/internal/repository"
)

// ExcessReport is the excess of a round computed from its current persisted state.
type ExcessReport struct {
	Round   *model.Round          `json:"round"`
	Items   []exposure.ExcessItem `json:"items"`
	Skipped []string              `json:"skipped_wager_ids,omitempty"`
}

// ExposureService loads a round's wagers, limits and transfers and resolves its excess.
type ExposureService struct {
	rounds    RoundDirectory
	wagers    WagerStore
	limits    LimitStore
	transfers TransferStore
}

func NewExposureService(rounds RoundDirectory, wagers WagerStore, limits LimitStore, transfers TransferStore) *ExposureService {
	return &ExposureService{rounds: rounds, wagers: wagers, limits: limits, transfers: transfers}
}

func (s *ExposureService) Excess(ctx context.Context, roundID string) (*ExcessReport, error) {
	round, err := loadRound(ctx, s.rounds, roundID)
	if err != nil {
		return nil, err
	}
	return s.excessFor(ctx, round)
}

func (s *ExposureService) excessFor(ctx context.Context, round *model.Round) (*ExcessReport, error) {
	if !round.Variant.Valid() {
		return nil, apperrors.NewInvalidRequest(fmt.Sprintf("round %s has unknown variant %q", round.ID, round.Variant))
	}
	wagers, err := s.wagers.ListLive(ctx, round.ID)
	if err != nil {
		return nil, apperrors.NewPersistence("load wagers", err)
	}
	types, numbers, err := s.limits.ListForRound(ctx, round.ID)
	if err != nil {
		return nil, apperrors.NewPersistence("load limits", err)
	}
	lines, err := s.transfers.ListByRound(ctx, round.ID)
	if err != nil {
		return nil, apperrors.NewPersistence("load transfers", err)
	}

	agg := exposure.Aggregate(round, wagers)
	items := exposure.Resolve(agg, exposure.NewLimits(round.Variant, types, numbers), lines)
	if len(agg.Skipped) > 0 {
		logger.Warn("wagers skipped during aggregation",
			"round_id", round.ID,
			"count", len(agg.Skipped),
		)
	}
	metrics.ExcessItems.WithLabelValues(string(round.Variant)).Observe(float64(len(items)))

	logger.Debug("excess computed",
		"round_id", round.ID,
		"wagers", len(wagers),
		"items", len(items),
	)
	return &ExcessReport{Round: round, Items: items, Skipped: agg.Skipped}, nil
}

func loadRound(ctx context.Context, rounds RoundDirectory, roundID string) (*model.Round, error) {
	if roundID == "" {
		return nil, apperrors.NewInvalidRequest("round id is required")
	}
	round, err := rounds.Get(ctx, roundID)
	if err != nil {
		if errors.Is(err, repository.ErrRoundNotFound) {
			return nil, apperrors.NewNotFound(fmt.Sprintf("round %s not found", roundID))
		}
		return nil, apperrors.NewPersistence("load round", err)
	}
	return round, nil
}
