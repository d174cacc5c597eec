// Package units converts energy amounts within the watt-hour family (Wh, kWh, MWh).
package units

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrIncompatibleUnit = errors.New("incompatible unit")

var multipliers = map[string]decimal.Decimal{
	"":  decimal.NewFromInt(1),
	"k": decimal.NewFromInt(1_000),
	"m": decimal.NewFromInt(1_000_000),
}

var canonicalNames = map[string]string{
	"":  "Wh",
	"k": "kWh",
	"m": "MWh",
}

// Convert expresses a per-unit amount given in source as a per-unit amount in target,
// i.e. a price of 21.39 per MWh becomes 0.02139 per kWh.
func Convert(amount decimal.Decimal, source, target string) (decimal.Decimal, error) {
	src, err := Multiplier(source)
	if err != nil {
		return decimal.Zero, err
	}
	tgt, err := Multiplier(target)
	if err != nil {
		return decimal.Zero, err
	}
	return amount.Mul(tgt).Div(src), nil
}

// Multiplier returns how many watt-hours one unit of label represents.
func Multiplier(label string) (decimal.Decimal, error) {
	prefix, err := prefixOf(label)
	if err != nil {
		return decimal.Zero, err
	}
	return multipliers[prefix], nil
}

// Canonical returns the conventional spelling of label, "mwh" -> "MWh".
func Canonical(label string) (string, error) {
	prefix, err := prefixOf(label)
	if err != nil {
		return "", err
	}
	return canonicalNames[prefix], nil
}

func prefixOf(label string) (string, error) {
	l := strings.ToLower(strings.TrimSpace(label))
	if !strings.HasSuffix(l, "wh") {
		return "", fmt.Errorf("%w: %q is not a multiple of Wh", ErrIncompatibleUnit, label)
	}
	prefix := strings.TrimSuffix(l, "wh")
	if _, ok := multipliers[prefix]; !ok {
		return "", fmt.Errorf("%w: unknown prefix %q in %q", ErrIncompatibleUnit, prefix, label)
	}
	return prefix, nil
}
