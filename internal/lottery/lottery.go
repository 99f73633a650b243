package lottery

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Variant identifies a lottery product (which draw a round settles against).
type Variant string

const (
	VariantThai     Variant = "thai"
	VariantLao      Variant = "lao"
	VariantHanoi    Variant = "hanoi"
	VariantStock    Variant = "stock"
	VariantLaoSet   Variant = "lao_set"
	VariantHanoiSet Variant = "hanoi_set"
)

func (v Variant) Valid() bool {
	switch v {
	case VariantThai, VariantLao, VariantHanoi, VariantStock, VariantLaoSet, VariantHanoiSet:
		return true
	default:
		return false
	}
}

// IsSetBased reports whether 4-digit bets of the variant are sold and limited in sets
// that share the last three digits.
func IsSetBased(v Variant) bool {
	return v == VariantLaoSet || v == VariantHanoiSet
}

// BetType is a wager shape. Canonical types are what exposure is keyed on; derived
// shapes only exist at submission time and expand into canonical lines.
type BetType string

const (
	BetTwoTop      BetType = "2_top"
	BetTwoBottom   BetType = "2_bottom"
	BetTwoTod      BetType = "2_tod"
	BetThreeTop    BetType = "3_top"
	BetThreeBot    BetType = "3_bottom"
	BetThreeTod    BetType = "3_tod"
	BetFourTop     BetType = "4_top"
	BetFourTod     BetType = "4_tod"
	BetRunTop      BetType = "run_top"
	BetRunBottom   BetType = "run_bottom"
	BetFourSet     BetType = "4_set"
	BetThreeSet    BetType = "3_set" // limit key only: shared last-3-digit suffix of 4_set numbers
	BetTwoReverse  BetType = "2_reverse"
	BetThreePerm   BetType = "3_perm"
	BetThreeTopTod BetType = "3_top_tod"
	BetTwoTopBot   BetType = "2_top_bottom"
)

var (
	ErrUnknownBetType = errors.New("unknown bet type")
	ErrInvalidNumber  = errors.New("invalid number")
	ErrInvalidAmount  = errors.New("invalid amount")
)

type betSpec struct {
	digits    int
	anyOrder  bool
	limitOnly bool
}

var canonical = map[BetType]betSpec{
	BetTwoTop:    {digits: 2},
	BetTwoBottom: {digits: 2},
	BetTwoTod:    {digits: 2, anyOrder: true},
	BetThreeTop:  {digits: 3},
	BetThreeBot:  {digits: 3},
	BetThreeTod:  {digits: 3, anyOrder: true},
	BetFourTop:   {digits: 4},
	BetFourTod:   {digits: 4, anyOrder: true},
	BetRunTop:    {digits: 1},
	BetRunBottom: {digits: 1},
	BetFourSet:   {digits: 4},
	BetThreeSet:  {digits: 3, limitOnly: true},
}

// IsCanonical reports whether exposure can be keyed on bt directly.
func IsCanonical(bt BetType) bool {
	_, ok := canonical[bt]
	return ok
}

// IsAnyOrder reports whether digit order is irrelevant for bt.
func IsAnyOrder(bt BetType) bool {
	return canonical[bt].anyOrder
}

// Digits returns the number length of a canonical bet type, or 0.
func Digits(bt BetType) int {
	return canonical[bt].digits
}

// Normalize validates number for a canonical bet type and returns its canonical form.
// Any-order types are digit-sorted so "21" and "12" become the same key.
func Normalize(bt BetType, number string) (string, error) {
	def, ok := canonical[bt]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownBetType, bt)
	}
	number = strings.TrimSpace(number)
	if len(number) != def.digits || !allDigits(number) {
		return "", fmt.Errorf("%w: %q is not a %d-digit number for %s", ErrInvalidNumber, number, def.digits, bt)
	}
	if def.anyOrder {
		return sortDigits(number), nil
	}
	return number, nil
}

// Suffix returns the last three digits of a 4-digit set number.
func Suffix(number string) string {
	if len(number) < 3 {
		return number
	}
	return number[len(number)-3:]
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func sortDigits(s string) string {
	b := []byte(s)
	sort.Slice(b, func(i, j int) bool { return b[i] < b[j] })
	return string(b)
}

func reverse(s string) string {
	b := []byte(s)
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return string(b)
}

// permutations returns the distinct orderings of s in ascending order.
func permutations(s string) []string {
	seen := make(map[string]struct{})
	var out []string
	var walk func(prefix string, rest []byte)
	walk = func(prefix string, rest []byte) {
		if len(rest) == 0 {
			if _, ok := seen[prefix]; !ok {
				seen[prefix] = struct{}{}
				out = append(out, prefix)
			}
			return
		}
		for i := range rest {
			next := make([]byte, 0, len(rest)-1)
			next = append(next, rest[:i]...)
			next = append(next, rest[i+1:]...)
			walk(prefix+string(rest[i]), next)
		}
	}
	walk("", []byte(s))
	sort.Strings(out)
	return out
}
