package entity

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount = errors.New("invalid amount")

	hundred = decimal.NewFromInt(100)
)

// ParseAmount parses a decimal currency amount and rounds it to two places.
func ParseAmount(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrInvalidAmount, raw)
	}
	return amount.Round(2), nil
}

func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Round(2).Mul(hundred).IntPart()
}

// FormatMinorUnits renders minor units as a decimal string with exactly two places.
func FormatMinorUnits(minor int64) string {
	return decimal.New(minor, -2).StringFixed(2)
}

func FormatAmount(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}
