package exposure

import (
	"sort"
	"time"

	"github.com/GoPolymarket/lottogate/internal/lottery"
	"github.com/GoPolymarket/lottogate/internal/model"
	"github.com/shopspring/decimal"
)

// Key identifies one exposure bucket. Number is always in canonical form.
type Key struct {
	BetType lottery.BetType
	Number  string
}

// Exposure is the summed stake on one key.
type Exposure struct {
	Key
	Total    decimal.Decimal
	WagerIDs []string
	FirstAt  time.Time
}

func (e *Exposure) add(wagerID string, amount decimal.Decimal, at time.Time) {
	e.Total = e.Total.Add(amount)
	if len(e.WagerIDs) == 0 || e.WagerIDs[len(e.WagerIDs)-1] != wagerID {
		e.WagerIDs = append(e.WagerIDs, wagerID)
	}
	if e.FirstAt.IsZero() || at.Before(e.FirstAt) {
		e.FirstAt = at
	}
}

// SetEntry is one exact 4-digit number inside a suffix group, counted in sets.
type SetEntry struct {
	*Exposure
	Sets int64
}

// SuffixGroup holds the set numbers sharing their last three digits, earliest first.
type SuffixGroup struct {
	Suffix  string
	Entries []*SetEntry
}

// Aggregation is the exposure of one round: per-key totals and, for set variants,
// the suffix groups the 3-set quota is applied to.
type Aggregation struct {
	Variant   lottery.Variant
	UnitPrice decimal.Decimal
	Exposures map[Key]*Exposure
	Groups    map[string]*SuffixGroup
	// wagers whose shape could not be expanded
	Skipped []string
}

// Aggregate folds the live wagers of a round into per-key exposure. Deleted wagers are ignored.
func Aggregate(round *model.Round, wagers []model.Wager) *Aggregation {
	agg := &Aggregation{
		Variant:   round.Variant,
		UnitPrice: round.UnitPrice(),
		Exposures: make(map[Key]*Exposure),
		Groups:    make(map[string]*SuffixGroup),
	}

	for i := range wagers {
		w := &wagers[i]
		if w.IsDeleted {
			continue
		}
		lines, err := lottery.Expand(w.BetType, w.Number, w.Amount, w.SecondaryAmount)
		if err != nil {
			agg.Skipped = append(agg.Skipped, w.ID)
			continue
		}
		for _, line := range lines {
			key := Key{BetType: line.BetType, Number: line.Number}
			exp, ok := agg.Exposures[key]
			if !ok {
				exp = &Exposure{Key: key}
				agg.Exposures[key] = exp
			}
			exp.add(w.ID, line.Amount, w.CreatedAt)
		}
	}

	if lottery.IsSetBased(round.Variant) {
		agg.groupSets()
	}
	return agg
}

func (a *Aggregation) groupSets() {
	for key, exp := range a.Exposures {
		if key.BetType != lottery.BetFourSet {
			continue
		}
		suffix := lottery.Suffix(key.Number)
		g, ok := a.Groups[suffix]
		if !ok {
			g = &SuffixGroup{Suffix: suffix}
			a.Groups[suffix] = g
		}
		g.Entries = append(g.Entries, &SetEntry{Exposure: exp, Sets: CeilSets(exp.Total, a.UnitPrice)})
	}
	for _, g := range a.Groups {
		sort.Slice(g.Entries, func(i, j int) bool {
			ei, ej := g.Entries[i], g.Entries[j]
			if !ei.FirstAt.Equal(ej.FirstAt) {
				return ei.FirstAt.Before(ej.FirstAt)
			}
			return ei.Number < ej.Number
		})
	}
}

// CeilSets converts a stake into whole sets, rounding up.
func CeilSets(amount, unit decimal.Decimal) int64 {
	if !unit.IsPositive() || !amount.IsPositive() {
		return 0
	}
	return amount.Div(unit).Ceil().IntPart()
}

// FloorSets converts a transferred amount into whole sets, rounding down.
func FloorSets(amount, unit decimal.Decimal) int64 {
	if !unit.IsPositive() || !amount.IsPositive() {
		return 0
	}
	return amount.Div(unit).Floor().IntPart()
}
