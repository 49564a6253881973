package liquidity

import (
	"sort"

	"github.com/shopspring/decimal"

	"blineit/investor-portal/investor-portal-backend/pkg/faults"
)

// FeeTier is one holding-duration bracket of a redemption fee schedule.
// MaxDays is exclusive; nil means unbounded.
type FeeTier struct {
	MinDays    int             `json:"min_days"`
	MaxDays    *int            `json:"max_days,omitempty"`
	FeePercent decimal.Decimal `json:"fee_percent"`
}

// Contains reports whether a holding period in days falls in this tier.
func (t FeeTier) Contains(days int) bool {
	if days < t.MinDays {
		return false
	}
	return t.MaxDays == nil || days < *t.MaxDays
}

// FeeSchedule is an ordered sequence of tiers forming a strict partition
// of [0, inf) over holding days. Build it through NewFeeSchedule only.
type FeeSchedule struct {
	tiers []FeeTier
}

var hundred = decimal.NewFromInt(100)

// NewFeeSchedule validates that the tiers are contiguous, non-overlapping
// and cover [0, inf) with exactly one unbounded final tier.
func NewFeeSchedule(tiers []FeeTier) (FeeSchedule, error) {
	if len(tiers) == 0 {
		return FeeSchedule{}, faults.Validationf("fee schedule has no tiers")
	}

	sorted := make([]FeeTier, len(tiers))
	copy(sorted, tiers)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].MinDays < sorted[j].MinDays })

	if sorted[0].MinDays != 0 {
		return FeeSchedule{}, faults.Validationf("fee schedule must start at 0 days, starts at %d", sorted[0].MinDays)
	}

	for i, tier := range sorted {
		if tier.FeePercent.IsNegative() || tier.FeePercent.GreaterThan(hundred) {
			return FeeSchedule{}, faults.Validationf("fee percent %s out of range [0,100]", tier.FeePercent)
		}

		last := i == len(sorted)-1
		if last {
			if tier.MaxDays != nil {
				return FeeSchedule{}, faults.Validationf("final fee tier must be unbounded")
			}
			continue
		}
		if tier.MaxDays == nil {
			return FeeSchedule{}, faults.Validationf("only the final fee tier may be unbounded")
		}
		if *tier.MaxDays <= tier.MinDays {
			return FeeSchedule{}, faults.Validationf("fee tier [%d,%d) is empty", tier.MinDays, *tier.MaxDays)
		}
		if *tier.MaxDays != sorted[i+1].MinDays {
			return FeeSchedule{}, faults.Validationf("fee tiers not contiguous at %d days", *tier.MaxDays)
		}
	}

	return FeeSchedule{tiers: sorted}, nil
}

// Tiers returns the tiers in ascending MinDays order.
func (s FeeSchedule) Tiers() []FeeTier {
	out := make([]FeeTier, len(s.tiers))
	copy(out, s.tiers)
	return out
}

// Resolve finds the tier applicable to a holding period. Lookup operates
// on days directly; should an unvalidated schedule ever present multiple
// matches, the tier with the greatest MinDays wins.
func (s FeeSchedule) Resolve(holdingPeriodDays int) (FeeTier, error) {
	if holdingPeriodDays < 0 {
		return FeeTier{}, faults.Validationf("holding period must not be negative, got %d", holdingPeriodDays)
	}

	var match *FeeTier
	for i := range s.tiers {
		tier := s.tiers[i]
		if !tier.Contains(holdingPeriodDays) {
			continue
		}
		if match == nil || tier.MinDays > match.MinDays {
			match = &tier
		}
	}
	if match == nil {
		return FeeTier{}, faults.Validationf("no fee tier covers a holding period of %d days", holdingPeriodDays)
	}
	return *match, nil
}

// HoldingMonths converts a day count to whole months for display. Tier
// lookup never uses this.
func HoldingMonths(days int) int {
	return days / 30
}
