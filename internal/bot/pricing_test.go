package bot

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
)

func TestDefaultPrices_Tiers(t *testing.T) {
	prices := DefaultPrices()

	tests := []struct {
		days int
		want int64
	}{
		{30, 25000},
		{60, 50000},
		{90, 75000},
	}
	for _, tt := range tests {
		if got := prices.Price(tt.days); !got.Equal(decimal.NewFromInt(tt.want)) {
			t.Errorf("Price(%d) = %s, want %d", tt.days, got, tt.want)
		}
	}
}

func TestDurations_Sorted(t *testing.T) {
	got := DefaultPrices().Durations()
	want := []int{30, 60, 90}

	if len(got) != len(want) {
		t.Fatalf("Durations() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Durations() = %v, want %v", got, want)
		}
	}
}

func TestPrice_UnmappedFallsBackToHighestTier(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	prices := DefaultPrices()
	highest := prices[90]

	properties.Property("unmapped durations price as the top tier", prop.ForAll(
		func(days int) bool {
			if _, ok := prices[days]; ok {
				return prices.Price(days).Equal(prices[days])
			}
			return prices.Price(days).Equal(highest)
		},
		gen.IntRange(1, 3650),
	))

	properties.TestingRun(t)
}
