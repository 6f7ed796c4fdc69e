package margin

import "github.com/shopspring/decimal"

// fundingPrecision matches the venue's 8-decimal funding rate rounding.
const fundingPrecision = 8

// FundingRate derives the periodic funding rate from the premium index:
// premium + clamp(interest - premium, -cap, +cap), rounded to 8 places.
func FundingRate(premium, interest, cap decimal.Decimal) decimal.Decimal {
	rate := premium.Add(clamp(interest.Sub(premium), cap.Neg(), cap))
	return rate.Round(fundingPrecision)
}

func clamp(v, lo, hi decimal.Decimal) decimal.Decimal {
	if v.LessThan(lo) {
		return lo
	}
	if v.GreaterThan(hi) {
		return hi
	}
	return v
}
