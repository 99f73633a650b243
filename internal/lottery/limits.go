package lottery

import "github.com/shopspring/decimal"

// Default per-number limits by variant. Amount units for ordinary bet types,
// set counts for 4_set / 3_set. A round's TypeLimit rows override these.
var defaultLimits = map[Variant]map[BetType]int64{
	VariantThai: {
		BetTwoTop: 2000, BetTwoBottom: 2000, BetTwoTod: 2000,
		BetThreeTop: 500, BetThreeBot: 500, BetThreeTod: 1000,
		BetRunTop: 5000, BetRunBottom: 5000,
	},
	VariantLao: {
		BetTwoTop: 1500, BetTwoBottom: 1500, BetTwoTod: 1500,
		BetThreeTop: 300, BetThreeTod: 600,
		BetFourTop: 100, BetFourTod: 200,
		BetRunTop: 3000, BetRunBottom: 3000,
	},
	VariantHanoi: {
		BetTwoTop: 1500, BetTwoBottom: 1500, BetTwoTod: 1500,
		BetThreeTop: 300, BetThreeTod: 600,
		BetRunTop: 3000, BetRunBottom: 3000,
	},
	VariantStock: {
		BetTwoTop: 1000, BetTwoBottom: 1000,
		BetThreeTop: 200, BetThreeTod: 400,
		BetRunTop: 2000, BetRunBottom: 2000,
	},
	VariantLaoSet: {
		BetFourSet: 5, BetThreeSet: 10,
	},
	VariantHanoiSet: {
		BetFourSet: 5, BetThreeSet: 10,
	},
}

// DefaultLimit returns the static default limit for bt under variant.
func DefaultLimit(v Variant, bt BetType) (decimal.Decimal, bool) {
	table, ok := defaultLimits[v]
	if !ok {
		return decimal.Zero, false
	}
	n, ok := table[bt]
	if !ok {
		return decimal.Zero, false
	}
	return decimal.NewFromInt(n), true
}

// DefaultLimits returns a copy of the default table for variant.
func DefaultLimits(v Variant) map[BetType]decimal.Decimal {
	out := make(map[BetType]decimal.Decimal, len(defaultLimits[v]))
	for bt, n := range defaultLimits[v] {
		out[bt] = decimal.NewFromInt(n)
	}
	return out
}
