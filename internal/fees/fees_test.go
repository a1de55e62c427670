package fees

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"nftsalesgo/internal/sales"
)

var defaultCfg = Config{
	PrimaryFeeBps:           500,
	SecondaryFeeBps:         400,
	UpperCapPrimaryFeeBps:   1000,
	UpperCapSecondaryFeeBps: 1000,
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestCalculate_Primary(t *testing.T) {
	s, err := Calculate(d("1.0"), true, 700, defaultCfg)
	require.NoError(t, err)
	assert.True(t, s.MarketplaceFee.Equal(d("0.05")), s.MarketplaceFee.String())
	assert.True(t, s.RoyaltyFee.IsZero())
	assert.True(t, s.SellerProceeds.Equal(d("0.95")), s.SellerProceeds.String())
	assert.True(t, s.TreasuryTotal().Equal(d("0.05")))
}

func TestCalculate_Secondary(t *testing.T) {
	s, err := Calculate(d("1.0"), false, 500, defaultCfg)
	require.NoError(t, err)
	assert.True(t, s.MarketplaceFee.Equal(d("0.04")), s.MarketplaceFee.String())
	assert.True(t, s.RoyaltyFee.Equal(d("0.05")), s.RoyaltyFee.String())
	assert.True(t, s.SellerProceeds.Equal(d("0.91")), s.SellerProceeds.String())
	assert.True(t, s.TreasuryTotal().Equal(d("0.09")))
}

func TestCalculate_DustGoesToSeller(t *testing.T) {
	// 0.000000000000000001 * 4% floors to zero
	s, err := Calculate(d("0.000000000000000001"), false, 1, defaultCfg)
	require.NoError(t, err)
	assert.True(t, s.MarketplaceFee.IsZero())
	assert.True(t, s.RoyaltyFee.IsZero())
	assert.True(t, s.SellerProceeds.Equal(d("0.000000000000000001")))

	s, err = Calculate(d("0.000000000000000333"), true, 0, defaultCfg)
	require.NoError(t, err)
	assert.True(t, s.MarketplaceFee.Equal(d("0.000000000000000016")), s.MarketplaceFee.String())
	assert.True(t, s.SellerProceeds.Equal(d("0.000000000000000317")), s.SellerProceeds.String())
}

func TestCalculate_Caps(t *testing.T) {
	cases := []struct {
		name    string
		cfg     Config
		primary bool
		royalty int64
	}{
		{"primary above cap", Config{PrimaryFeeBps: 1100, SecondaryFeeBps: 400, UpperCapPrimaryFeeBps: 1000, UpperCapSecondaryFeeBps: 1000}, true, 0},
		{"secondary above cap", Config{PrimaryFeeBps: 500, SecondaryFeeBps: 1001, UpperCapPrimaryFeeBps: 1000, UpperCapSecondaryFeeBps: 1000}, false, 0},
		{"cap above 100%", Config{UpperCapPrimaryFeeBps: 10001}, true, 0},
		{"negative rate", Config{PrimaryFeeBps: -1, UpperCapPrimaryFeeBps: 1000}, true, 0},
		{"royalty above 100%", defaultCfg, false, 10001},
		{"fee plus royalty above price", defaultCfg, false, 9700},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Calculate(d("1"), tc.primary, tc.royalty, tc.cfg)
			require.ErrorIs(t, err, sales.ErrFeeExceedsCap)
		})
	}
}

func TestCalculate_NoCombinedCapBelowPrice(t *testing.T) {
	// 10% + 80% is well above either fee cap combined, but still within the price
	cfg := Config{SecondaryFeeBps: 1000, UpperCapSecondaryFeeBps: 1000, UpperCapPrimaryFeeBps: 1000}
	s, err := Calculate(d("10"), false, 8000, cfg)
	require.NoError(t, err)
	assert.True(t, s.SellerProceeds.Equal(d("1")), s.SellerProceeds.String())
}

func TestCalculate_NegativePrice(t *testing.T) {
	_, err := Calculate(d("-1"), true, 0, defaultCfg)
	require.ErrorIs(t, err, sales.ErrInvalidAmount)
}

func TestPortion(t *testing.T) {
	assert.True(t, Portion(d("3"), 3333).Equal(d("0.9999")))
	assert.True(t, Portion(d("1"), 0).IsZero())
	assert.True(t, Portion(d("2"), 10000).Equal(d("2")))
}

func TestCalculate_SumsToPrice(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		units := rapid.Int64Range(0, 1_000_000_000).Draw(t, "units")
		exp := rapid.Int32Range(-18, 2).Draw(t, "exp")
		price := decimal.New(units, exp)

		capP := rapid.Int64Range(0, 10000).Draw(t, "capPrimary")
		capS := rapid.Int64Range(0, 10000).Draw(t, "capSecondary")
		cfg := Config{
			PrimaryFeeBps:           rapid.Int64Range(0, capP).Draw(t, "primary"),
			SecondaryFeeBps:         rapid.Int64Range(0, capS).Draw(t, "secondary"),
			UpperCapPrimaryFeeBps:   capP,
			UpperCapSecondaryFeeBps: capS,
		}
		primary := rapid.Bool().Draw(t, "isPrimary")
		royalty := rapid.Int64Range(0, 10000-cfg.SecondaryFeeBps).Draw(t, "royalty")

		s, err := Calculate(price, primary, royalty, cfg)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		sum := s.MarketplaceFee.Add(s.RoyaltyFee).Add(s.SellerProceeds)
		if !sum.Equal(price) {
			t.Fatalf("split %s + %s + %s = %s, want %s",
				s.MarketplaceFee, s.RoyaltyFee, s.SellerProceeds, sum, price)
		}
		if s.SellerProceeds.IsNegative() || s.MarketplaceFee.IsNegative() || s.RoyaltyFee.IsNegative() {
			t.Fatalf("negative component in %+v", s)
		}
		if primary && !s.RoyaltyFee.IsZero() {
			t.Fatalf("primary sale paid royalty %s", s.RoyaltyFee)
		}
	})
}
