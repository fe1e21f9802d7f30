package bot

import (
	"sort"

	"github.com/shopspring/decimal"
)

// PriceTable maps a subscription duration in days to its price
type PriceTable map[int]decimal.Decimal

// DefaultPrices returns the standard subscription tiers
func DefaultPrices() PriceTable {
	return PriceTable{
		30: decimal.NewFromInt(25000),
		60: decimal.NewFromInt(50000),
		90: decimal.NewFromInt(75000),
	}
}

// Price returns the price for a duration. Durations without an entry
// fall back to the highest tier, preserving the historical behavior
// for unmapped values.
func (t PriceTable) Price(days int) decimal.Decimal {
	if price, ok := t[days]; ok {
		return price
	}

	max := 0
	for d := range t {
		if d > max {
			max = d
		}
	}
	return t[max]
}

// Durations returns the configured durations in ascending order
func (t PriceTable) Durations() []int {
	days := make([]int, 0, len(t))
	for d := range t {
		days = append(days, d)
	}
	sort.Ints(days)
	return days
}
