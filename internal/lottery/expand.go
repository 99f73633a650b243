package lottery

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Line is one canonical (bet type, number, amount) exposure contribution.
type Line struct {
	BetType BetType
	Number  string
	Amount  decimal.Decimal
}

type expander func(number string, amount, secondary decimal.Decimal) ([]Line, error)

// derived shapes; each expands into one or more canonical lines
var derived = map[BetType]expander{
	BetTwoReverse:  expandReverse,
	BetThreePerm:   expandPermutations,
	BetThreeTopTod: expandStraightTod,
	BetTwoTopBot:   expandTopBottom,
}

// IsDerived reports whether bt is a submission shape that expands into other bet types.
func IsDerived(bt BetType) bool {
	_, ok := derived[bt]
	return ok
}

// Expand turns a wager shape into canonical exposure lines. secondary is only read by
// the straight+any-order shape, where it is the any-order stake.
func Expand(bt BetType, number string, amount, secondary decimal.Decimal) ([]Line, error) {
	if fn, ok := derived[bt]; ok {
		return fn(number, amount, secondary)
	}
	def, ok := canonical[bt]
	if !ok || def.limitOnly {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBetType, bt)
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: stake must be positive", ErrInvalidAmount)
	}
	n, err := Normalize(bt, number)
	if err != nil {
		return nil, err
	}
	return []Line{{BetType: bt, Number: n, Amount: amount}}, nil
}

func expandReverse(number string, amount, _ decimal.Decimal) ([]Line, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: stake must be positive", ErrInvalidAmount)
	}
	n, err := Normalize(BetTwoTop, number)
	if err != nil {
		return nil, err
	}
	lines := []Line{{BetType: BetTwoTop, Number: n, Amount: amount}}
	if r := reverse(n); r != n {
		lines = append(lines, Line{BetType: BetTwoTop, Number: r, Amount: amount})
	}
	return lines, nil
}

func expandPermutations(number string, amount, _ decimal.Decimal) ([]Line, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: stake must be positive", ErrInvalidAmount)
	}
	n, err := Normalize(BetThreeTop, number)
	if err != nil {
		return nil, err
	}
	perms := permutations(n)
	lines := make([]Line, 0, len(perms))
	for _, p := range perms {
		lines = append(lines, Line{BetType: BetThreeTop, Number: p, Amount: amount})
	}
	return lines, nil
}

func expandStraightTod(number string, amount, secondary decimal.Decimal) ([]Line, error) {
	if amount.IsNegative() || secondary.IsNegative() || (amount.IsZero() && secondary.IsZero()) {
		return nil, fmt.Errorf("%w: straight and any-order stakes must not be negative and at least one must be positive", ErrInvalidAmount)
	}
	n, err := Normalize(BetThreeTop, number)
	if err != nil {
		return nil, err
	}
	var lines []Line
	if amount.IsPositive() {
		lines = append(lines, Line{BetType: BetThreeTop, Number: n, Amount: amount})
	}
	if secondary.IsPositive() {
		lines = append(lines, Line{BetType: BetThreeTod, Number: sortDigits(n), Amount: secondary})
	}
	return lines, nil
}

func expandTopBottom(number string, amount, _ decimal.Decimal) ([]Line, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: stake must be positive", ErrInvalidAmount)
	}
	n, err := Normalize(BetTwoTop, number)
	if err != nil {
		return nil, err
	}
	return []Line{
		{BetType: BetTwoTop, Number: n, Amount: amount},
		{BetType: BetTwoBottom, Number: n, Amount: amount},
	}, nil
}
