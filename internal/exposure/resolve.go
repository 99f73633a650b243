package exposure

import (
	"errors"
	"sort"
	"time"

	"github.com/GoPolymarket/lottogate/internal/lottery"
	"github.com/GoPolymarket/lottogate/internal/model"
	"github.com/shopspring/decimal"
)

var ErrUnknownVariant = errors.New("unknown lottery variant")

type Kind string

const (
	KindAmount   Kind = "amount"
	KindFourSet  Kind = "4_set"
	KindThreeSet Kind = "3_set"
)

// Limits are the configured caps of one round. A key that resolves to nothing is unlimited.
type Limits struct {
	Type   map[lottery.BetType]decimal.Decimal
	Number map[Key]decimal.Decimal
}

// NewLimits layers the round's rows over the variant defaults.
func NewLimits(variant lottery.Variant, types []model.TypeLimit, numbers []model.NumberLimit) Limits {
	l := Limits{
		Type:   lottery.DefaultLimits(variant),
		Number: make(map[Key]decimal.Decimal, len(numbers)),
	}
	for _, t := range types {
		l.Type[t.BetType] = t.MaxStake
	}
	for _, n := range numbers {
		number, err := lottery.Normalize(n.BetType, n.Number)
		if err != nil {
			number = n.Number
		}
		l.Number[Key{BetType: n.BetType, Number: number}] = n.MaxStake
	}
	return l
}

// For resolves the limit of a key: number override, then type limit.
func (l Limits) For(bt lottery.BetType, number string) (decimal.Decimal, bool) {
	if v, ok := l.Number[Key{BetType: bt, Number: number}]; ok {
		return v, true
	}
	if v, ok := l.Type[bt]; ok {
		return v, true
	}
	return decimal.Zero, false
}

// ExcessItem is one transferable overflow. For set kinds the money fields are
// sets multiplied by the round's unit price.
type ExcessItem struct {
	BetType          lottery.BetType `json:"bet_type"`
	Number           string          `json:"number"`
	Kind             Kind            `json:"kind"`
	Total            decimal.Decimal `json:"total"`
	SetCount         int64           `json:"set_count,omitempty"`
	Limit            decimal.Decimal `json:"limit"`
	Transferred      decimal.Decimal `json:"transferred"`
	TransferredSets  int64           `json:"transferred_sets,omitempty"`
	Excess           decimal.Decimal `json:"excess"`
	ExcessSets       int64           `json:"excess_sets,omitempty"`
	WagerIDs         []string        `json:"wager_ids"`
	FirstSubmittedAt time.Time       `json:"first_submitted_at"`
}

// ComputeExcess aggregates the wagers and resolves every key over its effective limit.
func ComputeExcess(round *model.Round, wagers []model.Wager, limits Limits, transfers []model.TransferLine) ([]ExcessItem, error) {
	if round == nil || !round.Variant.Valid() {
		return nil, ErrUnknownVariant
	}
	return Resolve(Aggregate(round, wagers), limits, transfers), nil
}

// Resolve computes excess items from an aggregation, ordered by excess descending.
func Resolve(agg *Aggregation, limits Limits, transfers []model.TransferLine) []ExcessItem {
	moved := indexTransfers(transfers)
	items := make([]ExcessItem, 0)

	for key, exp := range agg.Exposures {
		if lottery.IsSetBased(agg.Variant) && key.BetType == lottery.BetFourSet {
			continue
		}
		limit, ok := limits.For(key.BetType, key.Number)
		if !ok {
			continue
		}
		transferred := moved[key]
		excess := exp.Total.Sub(limit).Sub(transferred)
		if !excess.IsPositive() {
			continue
		}
		items = append(items, ExcessItem{
			BetType:          key.BetType,
			Number:           key.Number,
			Kind:             KindAmount,
			Total:            exp.Total,
			Limit:            limit,
			Transferred:      transferred,
			Excess:           excess,
			WagerIDs:         exp.WagerIDs,
			FirstSubmittedAt: exp.FirstAt,
		})
	}

	for _, g := range agg.Groups {
		items = append(items, resolveGroup(g, agg.UnitPrice, limits, moved)...)
	}

	sort.Slice(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if c := a.Excess.Cmp(b.Excess); c != 0 {
			return c > 0
		}
		if a.BetType != b.BetType {
			return a.BetType < b.BetType
		}
		return a.Number < b.Number
	})
	return items
}

// resolveGroup applies the per-number 4-set limit, then shares the 3-set limit of the
// suffix among the later numbers in submission order. The earliest number is exempt
// from the shared limit and does not draw on it.
func resolveGroup(g *SuffixGroup, unit decimal.Decimal, limits Limits, moved map[Key]decimal.Decimal) []ExcessItem {
	var items []ExcessItem
	held := make([]int64, len(g.Entries))

	for i, e := range g.Entries {
		tAmount := moved[Key{BetType: lottery.BetFourSet, Number: e.Number}]
		tSets := FloorSets(tAmount, unit)
		over := int64(0)
		if limit, ok := limits.For(lottery.BetFourSet, e.Number); ok {
			limitSets := limit.IntPart()
			over = e.Sets - limitSets - tSets
			if over > 0 {
				items = append(items, setItem(e, lottery.BetFourSet, KindFourSet, limit, tAmount, tSets, over, unit))
			} else {
				over = 0
			}
		}
		held[i] = max(e.Sets-tSets-over, 0)
	}

	if len(g.Entries) < 2 {
		return items
	}
	limit3, ok := limits.For(lottery.BetThreeSet, g.Suffix)
	if !ok {
		return items
	}
	suffixAmount := moved[Key{BetType: lottery.BetThreeSet, Number: g.Suffix}]
	suffixSets := FloorSets(suffixAmount, unit)
	quota := limit3.IntPart() + suffixSets

	for i, e := range g.Entries[1:] {
		h := held[i+1]
		if h > quota {
			items = append(items, setItem(e, lottery.BetThreeSet, KindThreeSet, limit3, suffixAmount, suffixSets, h-quota, unit))
			quota = 0
			continue
		}
		quota -= h
	}
	return items
}

func setItem(e *SetEntry, bt lottery.BetType, kind Kind, limit, tAmount decimal.Decimal, tSets, sets int64, unit decimal.Decimal) ExcessItem {
	return ExcessItem{
		BetType:          bt,
		Number:           e.Number,
		Kind:             kind,
		Total:            e.Total,
		SetCount:         e.Sets,
		Limit:            limit,
		Transferred:      tAmount,
		TransferredSets:  tSets,
		Excess:           unit.Mul(decimal.NewFromInt(sets)),
		ExcessSets:       sets,
		WagerIDs:         e.WagerIDs,
		FirstSubmittedAt: e.FirstAt,
	}
}

// indexTransfers sums counted transfer amounts per key. 3_set lines carry the full
// 4-digit number and are summed under its suffix.
func indexTransfers(lines []model.TransferLine) map[Key]decimal.Decimal {
	out := make(map[Key]decimal.Decimal)
	for i := range lines {
		l := &lines[i]
		if !l.Counts() {
			continue
		}
		key := Key{BetType: l.BetType, Number: l.Number}
		switch l.BetType {
		case lottery.BetThreeSet:
			key.Number = lottery.Suffix(l.Number)
		case lottery.BetFourSet:
		default:
			if n, err := lottery.Normalize(l.BetType, l.Number); err == nil {
				key.Number = n
			}
		}
		out[key] = out[key].Add(l.Amount)
	}
	return out
}
