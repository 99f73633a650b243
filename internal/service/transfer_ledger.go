package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/GoPolymarket/lottogate/internal/exposure"
	"github.com/GoPolymarket/lottogate/internal/lottery"
	"github.com/GoPolymarket/lottogate/internal/model"
	"github.com/GoPolymarket/lottogate/internal/pkg/apperrors"
	"github.com/GoPolymarket/lottogate/internal/pkg/logger"
	"github.com/GoPolymarket/lottogate/internal/pkg/metrics"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransferLedger records excess handed to other dealers and mirrors it into the
// receiving dealer's open round when one exists.
type TransferLedger struct {
	rounds    RoundDirectory
	wagers    WagerStore
	transfers TransferStore
	exposure  *ExposureService
	recompute Recomputer
	mirror    bool
	now       Clock
}

func NewTransferLedger(
	rounds RoundDirectory,
	wagers WagerStore,
	transfers TransferStore,
	exposure *ExposureService,
	recompute Recomputer,
	mirrorEnabled bool,
) *TransferLedger {
	return &TransferLedger{
		rounds:    rounds,
		wagers:    wagers,
		transfers: transfers,
		exposure:  exposure,
		recompute: recompute,
		mirror:    mirrorEnabled,
		now:       systemClock,
	}
}

// CreateBatch recomputes the round's excess and transfers the selected items at
// their current excess. Selected items that no longer exceed are reported as stale.
func (l *TransferLedger) CreateBatch(ctx context.Context, in CreateBatchInput) (*BatchResult, error) {
	round, err := loadRound(ctx, l.rounds, in.RoundID)
	if err != nil {
		return nil, err
	}
	if in.ActorID != "" && in.ActorID != round.DealerID {
		return nil, apperrors.New(apperrors.ErrForbidden, "round belongs to another dealer", nil)
	}
	if len(in.Selection) == 0 {
		return nil, apperrors.NewInvalidRequest("at least one item is required")
	}

	report, err := l.exposure.excessFor(ctx, round)
	if err != nil {
		return nil, err
	}
	current := make(map[exposure.Key]exposure.ExcessItem, len(report.Items))
	for _, item := range report.Items {
		current[exposure.Key{BetType: item.BetType, Number: item.Number}] = item
	}

	var (
		items  []exposure.ExcessItem
		stale  []ItemRef
		picked = make(map[exposure.Key]bool)
	)
	for _, ref := range in.Selection {
		number, err := normalizeItem(ref.BetType, ref.Number)
		if err != nil {
			return nil, apperrors.NewInvalidRequest(err.Error())
		}
		key := exposure.Key{BetType: ref.BetType, Number: number}
		if picked[key] {
			continue
		}
		picked[key] = true
		item, ok := current[key]
		if !ok {
			stale = append(stale, ItemRef{BetType: ref.BetType, Number: number})
			continue
		}
		items = append(items, item)
	}
	if len(items) == 0 {
		// 全部过期: 不建批次
		metrics.TransferOps.WithLabelValues("create", "stale").Inc()
		logger.Info("transfer skipped, selection is stale", "round_id", round.ID, "stale", len(stale))
		return &BatchResult{Lines: []model.TransferLine{}, Stale: stale}, nil
	}
	if len(stale) > 0 {
		logger.Info("stale items dropped from transfer",
			"round_id", round.ID,
			"stale", len(stale),
		)
	}

	res, err := l.CreateBatchFromItems(ctx, round, items, in.Target)
	if err != nil {
		return nil, err
	}
	res.Stale = stale
	return res, nil
}

// CreateBatchFromItems records one batch of lines for already computed excess items.
// The lines are written atomically; mirroring into the upstream round is best effort.
func (l *TransferLedger) CreateBatchFromItems(ctx context.Context, round *model.Round, items []exposure.ExcessItem, target Target) (*BatchResult, error) {
	// 1. 校验
	target.Name = strings.TrimSpace(target.Name)
	target.DealerID = strings.TrimSpace(target.DealerID)
	if target.Name == "" && target.DealerID == "" {
		return nil, apperrors.NewInvalidRequest("target name or target dealer is required")
	}
	if target.DealerID == round.DealerID {
		return nil, apperrors.NewInvalidRequest("cannot transfer to the round's own dealer")
	}
	if len(items) == 0 {
		return nil, apperrors.NewInvalidRequest("at least one item is required")
	}
	unit := round.UnitPrice()
	for _, item := range items {
		if !item.Excess.IsPositive() {
			return nil, apperrors.NewInvalidRequest(fmt.Sprintf("item %s %s has no excess", item.BetType, item.Number))
		}
		if _, err := normalizeItem(item.BetType, item.Number); err != nil {
			return nil, apperrors.NewInvalidRequest(err.Error())
		}
	}

	now := l.now()
	linked := target.DealerID != ""

	// 2. 查找上游开放期次
	var upstream *model.Round
	if linked {
		r, err := l.rounds.FindOpenRound(ctx, target.DealerID, round.Variant, now)
		if err != nil {
			metrics.MirrorFailures.WithLabelValues("lookup").Inc()
			logger.LogWarn(ctx, err, "upstream round lookup failed",
				"target_dealer_id", target.DealerID,
				"variant", string(round.Variant),
			)
		} else {
			upstream = r
		}
	}

	// 3. 生成转出行
	batchID := uuid.NewString()
	lines := make([]model.TransferLine, 0, len(items))
	for _, item := range items {
		amount := item.Excess
		if item.ExcessSets > 0 {
			amount = unit.Mul(decimal.NewFromInt(item.ExcessSets))
		}
		line := model.TransferLine{
			ID:             uuid.NewString(),
			BatchID:        batchID,
			RoundID:        round.ID,
			BetType:        item.BetType,
			Number:         item.Number,
			Amount:         amount,
			TargetName:     target.Name,
			TargetDealerID: target.DealerID,
			IsLinked:       linked,
			Status:         model.TransferActive,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if upstream != nil {
			id := upstream.ID
			line.TargetRoundID = &id
		}
		if err := line.SetSourceWagerIDs(item.WagerIDs); err != nil {
			return nil, apperrors.New(apperrors.ErrInternal, "prepare transfer line", err)
		}
		lines = append(lines, line)
	}

	// 4. 原子写入
	if err := l.transfers.InsertBatch(ctx, lines); err != nil {
		metrics.TransferOps.WithLabelValues("create", "error").Inc()
		return nil, apperrors.NewPersistence("insert transfer batch", err)
	}

	res := &BatchResult{BatchID: batchID, Lines: lines, Linked: linked}
	if upstream != nil {
		res.TargetRoundID = upstream.ID
	}

	// 5. 镜像到上游期次 (best effort)
	if upstream != nil && l.mirror {
		for i := range res.Lines {
			if f := l.mirrorLine(ctx, round, upstream, &res.Lines[i], now); f != nil {
				res.MirrorFailures = append(res.MirrorFailures, *f)
				continue
			}
			res.Mirrored++
		}
		if res.Mirrored > 0 {
			l.requestRecompute(ctx, target.DealerID, upstream.ID, "transfer_in")
		}
	}

	metrics.TransferOps.WithLabelValues("create", "ok").Inc()
	logger.Info("transfer batch created",
		"batch_id", batchID,
		"round_id", round.ID,
		"lines", len(lines),
		"target_dealer_id", target.DealerID,
		"target_round_id", res.TargetRoundID,
		"mirrored", res.Mirrored,
	)
	return res, nil
}

func (l *TransferLedger) mirrorLine(ctx context.Context, from, upstream *model.Round, line *model.TransferLine, now time.Time) *MirrorFailure {
	wager := &model.Wager{
		ID:        uuid.NewString(),
		RoundID:   upstream.ID,
		BettorID:  from.DealerID,
		BetType:   mirrorBetType(line.BetType),
		Number:    line.Number,
		Amount:    line.Amount,
		Source:    model.SourceTransfer,
		CreatedAt: now,
	}
	if err := l.wagers.Insert(ctx, wager); err != nil {
		metrics.MirrorFailures.WithLabelValues("insert").Inc()
		logger.LogError(ctx, err, "mirror wager insert failed", "line_id", line.ID, "target_round_id", upstream.ID)
		return &MirrorFailure{LineID: line.ID, Reason: "insert upstream wager failed"}
	}
	if err := l.transfers.SetSubmissionID(ctx, line.ID, wager.ID); err != nil {
		// 上游投注已存在, 退回时按自然键匹配
		metrics.MirrorFailures.WithLabelValues("link").Inc()
		logger.LogError(ctx, err, "recording mirrored wager id failed", "line_id", line.ID, "wager_id", wager.ID)
		return &MirrorFailure{LineID: line.ID, Reason: "record upstream wager id failed"}
	}
	id := wager.ID
	line.TargetSubmissionID = &id
	return nil
}

// RevertBatch deletes whole batches that were never accepted upstream.
func (l *TransferLedger) RevertBatch(ctx context.Context, actorID string, batchIDs []string) (int64, error) {
	batchIDs = compactIDs(batchIDs)
	if len(batchIDs) == 0 {
		return 0, apperrors.NewInvalidRequest("at least one batch id is required")
	}
	lines, err := l.transfers.ListByBatches(ctx, batchIDs)
	if err != nil {
		return 0, apperrors.NewPersistence("load transfer batches", err)
	}
	if len(lines) == 0 {
		return 0, nil
	}
	if err := l.checkOwner(ctx, actorID, lines); err != nil {
		return 0, err
	}

	ids := make([]string, 0, len(lines))
	for _, line := range lines {
		if line.Status != model.TransferActive {
			return 0, apperrors.NewInvalidRequest(fmt.Sprintf("line %s is %s; reclaim it instead", line.ID, line.Status))
		}
		ids = append(ids, line.ID)
	}
	held, err := l.heldUpstream(ctx, lines)
	if err != nil {
		return 0, err
	}
	if held != nil {
		return 0, apperrors.NewInvalidRequest(fmt.Sprintf("batch %s is held by upstream round %s; ask the receiver to return it", held.BatchID, *held.TargetRoundID))
	}

	n, err := l.transfers.DeleteInStatus(ctx, ids, model.TransferActive)
	if err != nil {
		metrics.TransferOps.WithLabelValues("revert", "error").Inc()
		return 0, apperrors.NewPersistence("revert transfer batch", err)
	}
	metrics.TransferOps.WithLabelValues("revert", "ok").Inc()
	logger.Info("transfer batches reverted", "batches", len(batchIDs), "lines", n)
	return n, nil
}

// heldUpstream returns the first line whose mirrored wager is still live in the
// upstream round. A line pointing at an upstream round without a live wager there
// (mirroring off or failed) was never accepted and can be reverted.
func (l *TransferLedger) heldUpstream(ctx context.Context, lines []model.TransferLine) (*model.TransferLine, error) {
	// 1. 按提交 id
	var submitted []string
	for _, line := range lines {
		if line.TargetSubmissionID != nil {
			submitted = append(submitted, *line.TargetSubmissionID)
		}
	}
	liveByID := make(map[string]bool)
	if len(submitted) > 0 {
		ws, err := l.wagers.GetByIDs(ctx, submitted)
		if err != nil {
			return nil, apperrors.NewPersistence("load mirrored wagers", err)
		}
		for _, w := range ws {
			if !w.IsDeleted {
				liveByID[w.ID] = true
			}
		}
	}

	// 2. 没有提交 id 时按自然键找无主的上游投注
	senders := make(map[string]string)
	upstream := make(map[string][]model.Wager)
	for i := range lines {
		line := &lines[i]
		if line.TargetSubmissionID != nil {
			if liveByID[*line.TargetSubmissionID] {
				return line, nil
			}
			continue
		}
		if !line.Mirrored() {
			continue
		}
		sender, ok := senders[line.RoundID]
		if !ok {
			round, err := loadRound(ctx, l.rounds, line.RoundID)
			if err != nil {
				return nil, err
			}
			sender = round.DealerID
			senders[line.RoundID] = sender
		}
		roundID := *line.TargetRoundID
		ws, ok := upstream[roundID]
		if !ok {
			var err error
			ws, err = l.wagers.ListLive(ctx, roundID)
			if err != nil {
				return nil, apperrors.NewPersistence("load upstream wagers", err)
			}
			upstream[roundID] = ws
		}
		var candidates []string
		for _, w := range ws {
			if w.Source == model.SourceTransfer && w.BettorID == sender &&
				w.BetType == mirrorBetType(line.BetType) && w.Number == line.Number {
				candidates = append(candidates, w.ID)
			}
		}
		if len(candidates) == 0 {
			continue
		}
		claimed, err := l.transfers.FindBySubmissionIDs(ctx, candidates)
		if err != nil {
			return nil, apperrors.NewPersistence("match mirrored wagers", err)
		}
		if len(claimed) < len(candidates) {
			return line, nil
		}
	}
	return nil, nil
}

// ReturnWagers is called by the receiving dealer. It soft-deletes the mirrored
// wagers and marks the originating lines returned.
func (l *TransferLedger) ReturnWagers(ctx context.Context, receivingDealerID string, wagerIDs []string) (*ReturnResult, error) {
	receivingDealerID = strings.TrimSpace(receivingDealerID)
	if receivingDealerID == "" {
		return nil, apperrors.NewInvalidRequest("receiving dealer is required")
	}
	wagerIDs = compactIDs(wagerIDs)
	if len(wagerIDs) == 0 {
		return nil, apperrors.NewInvalidRequest("at least one wager id is required")
	}

	// 1. 校验投注归属
	wagers, err := l.wagers.GetByIDs(ctx, wagerIDs)
	if err != nil {
		return nil, apperrors.NewPersistence("load wagers", err)
	}
	found := make(map[string]bool, len(wagers))
	owners := make(map[string]string)
	rounds := make(map[string]bool)
	var live []string
	for _, w := range wagers {
		found[w.ID] = true
		if w.Source != model.SourceTransfer {
			return nil, apperrors.NewInvalidRequest(fmt.Sprintf("wager %s was not received by transfer", w.ID))
		}
		owner, ok := owners[w.RoundID]
		if !ok {
			round, err := loadRound(ctx, l.rounds, w.RoundID)
			if err != nil {
				return nil, err
			}
			owner = round.DealerID
			owners[w.RoundID] = owner
		}
		if owner != receivingDealerID {
			return nil, apperrors.New(apperrors.ErrForbidden, fmt.Sprintf("wager %s belongs to another dealer's round", w.ID), nil)
		}
		rounds[w.RoundID] = true
		if !w.IsDeleted {
			live = append(live, w.ID)
		}
	}

	res := &ReturnResult{}
	for _, id := range wagerIDs {
		if !found[id] {
			res.Unmatched = append(res.Unmatched, id)
		}
	}

	// 2. 软删除上游投注
	if len(live) > 0 {
		if _, err := l.wagers.SoftDelete(ctx, live, l.now()); err != nil {
			metrics.TransferOps.WithLabelValues("return", "error").Inc()
			return nil, apperrors.NewPersistence("delete returned wagers", err)
		}
	}

	// 3. 匹配转出行: 先按提交 id, 再按自然键
	bySubmission, err := l.transfers.FindBySubmissionIDs(ctx, wagerIDs)
	if err != nil {
		return nil, apperrors.NewPersistence("match transfer lines", err)
	}
	lineFor := make(map[string]model.TransferLine, len(bySubmission))
	used := make(map[string]bool)
	for _, line := range bySubmission {
		lineFor[*line.TargetSubmissionID] = line
		used[line.ID] = true
	}

	var toMark []string
	for _, w := range wagers {
		line, ok := lineFor[w.ID]
		if !ok && w.IsDeleted {
			// 已退回过: 对应行已回收或属于别的投注, 不再按自然键匹配
			res.Unmatched = append(res.Unmatched, w.ID)
			continue
		}
		if !ok {
			line, ok = l.matchByNaturalKey(ctx, w, used)
			if !ok {
				res.Unmatched = append(res.Unmatched, w.ID)
				continue
			}
			used[line.ID] = true
		}
		res.Returned = append(res.Returned, line.ID)
		if line.Status == model.TransferActive {
			toMark = append(toMark, line.ID)
		}
	}

	if len(toMark) > 0 {
		if _, err := l.transfers.MarkReturned(ctx, toMark); err != nil {
			metrics.TransferOps.WithLabelValues("return", "error").Inc()
			return nil, apperrors.NewPersistence("mark lines returned", err)
		}
	}

	// 4. 上游成交量变化
	if len(live) > 0 {
		for roundID := range rounds {
			l.requestRecompute(ctx, receivingDealerID, roundID, "transfer_returned")
		}
	}

	metrics.TransferOps.WithLabelValues("return", "ok").Inc()
	logger.Info("transferred wagers returned",
		"dealer_id", receivingDealerID,
		"wagers", len(wagerIDs),
		"lines", len(res.Returned),
		"unmatched", len(res.Unmatched),
	)
	return res, nil
}

func (l *TransferLedger) matchByNaturalKey(ctx context.Context, w model.Wager, used map[string]bool) (model.TransferLine, bool) {
	types := []lottery.BetType{w.BetType}
	if w.BetType == lottery.BetFourSet {
		types = append(types, lottery.BetThreeSet)
	}
	candidates, err := l.transfers.FindActiveByNaturalKey(ctx, w.RoundID, w.Number, types)
	if err != nil {
		metrics.MirrorFailures.WithLabelValues("return_lookup").Inc()
		logger.LogWarn(ctx, err, "natural key lookup failed", "wager_id", w.ID)
		return model.TransferLine{}, false
	}
	for _, c := range candidates {
		if !used[c.ID] {
			return c, true
		}
	}
	return model.TransferLine{}, false
}

// ReclaimLines deletes returned lines so the excess shows again on the sender's round.
func (l *TransferLedger) ReclaimLines(ctx context.Context, actorID string, lineIDs []string) (int64, error) {
	lineIDs = compactIDs(lineIDs)
	if len(lineIDs) == 0 {
		return 0, apperrors.NewInvalidRequest("at least one line id is required")
	}
	lines, err := l.transfers.GetByIDs(ctx, lineIDs)
	if err != nil {
		return 0, apperrors.NewPersistence("load transfer lines", err)
	}
	if len(lines) == 0 {
		return 0, nil
	}
	if err := l.checkOwner(ctx, actorID, lines); err != nil {
		return 0, err
	}
	ids := make([]string, 0, len(lines))
	for _, line := range lines {
		if line.Status != model.TransferReturned {
			return 0, apperrors.NewInvalidRequest(fmt.Sprintf("line %s is %s; only returned lines can be reclaimed", line.ID, line.Status))
		}
		ids = append(ids, line.ID)
	}

	n, err := l.transfers.DeleteInStatus(ctx, ids, model.TransferReturned)
	if err != nil {
		metrics.TransferOps.WithLabelValues("reclaim", "error").Inc()
		return 0, apperrors.NewPersistence("reclaim transfer lines", err)
	}
	metrics.TransferOps.WithLabelValues("reclaim", "ok").Inc()
	logger.Info("returned lines reclaimed", "lines", n)
	return n, nil
}

// ListBatches groups a round's lines by batch in creation order.
func (l *TransferLedger) ListBatches(ctx context.Context, roundID string) ([]Batch, error) {
	if _, err := loadRound(ctx, l.rounds, roundID); err != nil {
		return nil, err
	}
	lines, err := l.transfers.ListByRound(ctx, roundID)
	if err != nil {
		return nil, apperrors.NewPersistence("load transfers", err)
	}
	var batches []Batch
	index := make(map[string]int)
	for _, line := range lines {
		i, ok := index[line.BatchID]
		if !ok {
			i = len(batches)
			index[line.BatchID] = i
			batches = append(batches, Batch{BatchID: line.BatchID, CreatedAt: line.CreatedAt, Total: decimal.Zero})
		}
		batches[i].Lines = append(batches[i].Lines, line)
		batches[i].Total = batches[i].Total.Add(line.Amount)
	}
	return batches, nil
}

func (l *TransferLedger) checkOwner(ctx context.Context, actorID string, lines []model.TransferLine) error {
	if actorID == "" {
		return nil
	}
	checked := make(map[string]bool)
	for _, line := range lines {
		if checked[line.RoundID] {
			continue
		}
		round, err := loadRound(ctx, l.rounds, line.RoundID)
		if err != nil {
			return err
		}
		if round.DealerID != actorID {
			return apperrors.New(apperrors.ErrForbidden, fmt.Sprintf("line %s belongs to another dealer", line.ID), nil)
		}
		checked[line.RoundID] = true
	}
	return nil
}

func (l *TransferLedger) requestRecompute(ctx context.Context, dealerID, roundID, reason string) {
	if l.recompute == nil {
		return
	}
	if err := l.recompute.RequestRecompute(ctx, dealerID, roundID, reason); err != nil {
		// 转出已落库, 重算失败只记录
		metrics.Recomputes.WithLabelValues("request_failed").Inc()
		logger.LogError(ctx, err, "pending deduction recompute failed",
			"dealer_id", dealerID,
			"round_id", roundID,
			"reason", reason,
		)
	}
}

// mirrorBetType maps a line's bet type to the type placed upstream. Both set
// stages are one 4-digit set ticket on the receiving side.
func mirrorBetType(bt lottery.BetType) lottery.BetType {
	if bt == lottery.BetThreeSet {
		return lottery.BetFourSet
	}
	return bt
}

// normalizeItem validates an item reference. Set items are keyed on the full
// 4-digit number for both stages.
func normalizeItem(bt lottery.BetType, number string) (string, error) {
	if bt == lottery.BetThreeSet {
		bt = lottery.BetFourSet
	}
	return lottery.Normalize(bt, number)
}

func compactIDs(ids []string) []string {
	out := ids[:0:0]
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
