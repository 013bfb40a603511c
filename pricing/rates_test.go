package pricing_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketing/entity"
	"ticketing/pricing"
)

func TestRates_Rate(t *testing.T) {
	rates := pricing.NewRates(pricing.NorwegianEventVatRate, map[string]decimal.Decimal{
		"se": decimal.RequireFromString("0.06"),
	})

	assert.True(t, rates.Rate("SE").Equal(decimal.RequireFromString("0.06")))
	assert.True(t, rates.Rate("se").Equal(decimal.RequireFromString("0.06")))
	assert.True(t, rates.Rate("NO").Equal(decimal.RequireFromString("0.12")))
	assert.True(t, rates.Rate("").Equal(decimal.RequireFromString("0.12")))
}

func TestParseRegionRates(t *testing.T) {
	rates, err := pricing.ParseRegionRates([]string{"se=0.06", " DK = 0.25"})
	require.NoError(t, err)

	assert.True(t, rates["SE"].Equal(decimal.RequireFromString("0.06")))
	assert.True(t, rates["DK"].Equal(decimal.RequireFromString("0.25")))

	for _, invalid := range []string{"SE", "=0.1", "SE=abc", "SE=1.5", "SE=-0.1"} {
		_, err := pricing.ParseRegionRates([]string{invalid})
		assert.ErrorIs(t, err, entity.ErrValidation, invalid)
	}
}
