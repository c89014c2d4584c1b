package client

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// FormatUnits renders a base-unit amount in display units, e.g.
// FormatUnits("150000000", 8) == "1.5".
func FormatUnits(raw string, decimals uint8) (string, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return "", fmt.Errorf("parse amount %q: %w", raw, err)
	}
	if !d.IsInteger() || d.IsNegative() {
		return "", fmt.Errorf("amount %q is not a whole number of base units", raw)
	}
	return d.Shift(-int32(decimals)).String(), nil
}

// ParseUnits converts a display amount to base units, e.g.
// ParseUnits("1.5", 8) == "150000000". Amounts finer than one base unit are
// rejected rather than rounded.
func ParseUnits(display string, decimals uint8) (string, error) {
	d, err := decimal.NewFromString(display)
	if err != nil {
		return "", fmt.Errorf("parse amount %q: %w", display, err)
	}
	if d.IsNegative() {
		return "", fmt.Errorf("amount %q is negative", display)
	}
	base := d.Shift(int32(decimals))
	if !base.IsInteger() {
		return "", fmt.Errorf("amount %q has more than %d decimal places", display, decimals)
	}
	return base.BigInt().String(), nil
}
