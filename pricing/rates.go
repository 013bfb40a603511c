package pricing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"ticketing/entity"
)

// NorwegianEventVatRate is the reduced rate applied to event tickets in Norway.
var NorwegianEventVatRate = decimal.RequireFromString("0.12")

// Rates resolves the VAT rate of a jurisdiction. Regions without an override use Default.
type Rates struct {
	Default  decimal.Decimal
	ByRegion map[string]decimal.Decimal
}

func NewRates(defaultRate decimal.Decimal, byRegion map[string]decimal.Decimal) Rates {
	normalized := make(map[string]decimal.Decimal, len(byRegion))
	for region, rate := range byRegion {
		normalized[strings.ToUpper(region)] = rate
	}

	return Rates{
		Default:  defaultRate,
		ByRegion: normalized,
	}
}

func (r Rates) Rate(region string) decimal.Decimal {
	if rate, ok := r.ByRegion[strings.ToUpper(region)]; ok {
		return rate
	}
	return r.Default
}

// ParseRegionRates parses "REGION=RATE" pairs, e.g. "SE=0.06".
func ParseRegionRates(pairs []string) (map[string]decimal.Decimal, error) {
	rates := make(map[string]decimal.Decimal, len(pairs))

	for _, pair := range pairs {
		region, rawRate, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(region) == "" {
			return nil, fmt.Errorf("%w: invalid vat rate %q, expected REGION=RATE", entity.ErrValidation, pair)
		}

		rate, err := decimal.NewFromString(strings.TrimSpace(rawRate))
		if err != nil {
			return nil, fmt.Errorf("%w: invalid vat rate for region %s: %v", entity.ErrValidation, region, err)
		}
		if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
			return nil, fmt.Errorf("%w: vat rate for region %s must be within [0, 1)", entity.ErrValidation, region)
		}

		rates[strings.ToUpper(strings.TrimSpace(region))] = rate
	}

	return rates, nil
}
