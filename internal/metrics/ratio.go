package metrics

import "github.com/shopspring/decimal"

// RatioPlaces is the precision of conversion_ratio.
const RatioPlaces = 4

// ConversionRatio returns ftds/leads rounded to RatioPlaces, or 0 when there
// are no leads.
func ConversionRatio(ftds, leads int) float64 {
	if leads == 0 {
		return 0
	}
	r := decimal.NewFromInt(int64(ftds)).DivRound(decimal.NewFromInt(int64(leads)), RatioPlaces)
	return r.InexactFloat64()
}

func round2(f float64) float64 { return decimal.NewFromFloat(f).Round(2).InexactFloat64() }
