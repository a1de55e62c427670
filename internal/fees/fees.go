package fees

import (
	"fmt"

	"github.com/shopspring/decimal"

	"nftsalesgo/internal/sales"
)

const (
	// Precision is the number of fractional digits of the smallest currency
	// unit. Every computed fee is floored to this precision.
	Precision int32 = 18

	BpsDenominator int64 = 10_000
)

var bpsDenominator = decimal.NewFromInt(BpsDenominator)

// Config carries the marketplace fee rates and their upper caps, all in
// basis points.
type Config struct {
	PrimaryFeeBps           int64 `json:"primary_sale_fee_bps"`
	SecondaryFeeBps         int64 `json:"secondary_sale_fee_bps"`
	UpperCapPrimaryFeeBps   int64 `json:"uppercap_primary_sale_fee_bps"`
	UpperCapSecondaryFeeBps int64 `json:"uppercap_secondary_sale_fee_bps"`
}

// Validate reports ErrFeeExceedsCap when a rate is negative or above its cap,
// or a cap is above 100%.
func (c Config) Validate() error {
	switch {
	case c.UpperCapPrimaryFeeBps < 0, c.UpperCapPrimaryFeeBps > BpsDenominator:
		return fmt.Errorf("%w: primary cap %d bps", sales.ErrFeeExceedsCap, c.UpperCapPrimaryFeeBps)
	case c.UpperCapSecondaryFeeBps < 0, c.UpperCapSecondaryFeeBps > BpsDenominator:
		return fmt.Errorf("%w: secondary cap %d bps", sales.ErrFeeExceedsCap, c.UpperCapSecondaryFeeBps)
	case c.PrimaryFeeBps < 0, c.PrimaryFeeBps > c.UpperCapPrimaryFeeBps:
		return fmt.Errorf("%w: primary fee %d bps (cap %d)", sales.ErrFeeExceedsCap, c.PrimaryFeeBps, c.UpperCapPrimaryFeeBps)
	case c.SecondaryFeeBps < 0, c.SecondaryFeeBps > c.UpperCapSecondaryFeeBps:
		return fmt.Errorf("%w: secondary fee %d bps (cap %d)", sales.ErrFeeExceedsCap, c.SecondaryFeeBps, c.UpperCapSecondaryFeeBps)
	}
	return nil
}

// Split is the three-way division of a sale price.
// MarketplaceFee + RoyaltyFee + SellerProceeds always equals the price.
type Split struct {
	Price          decimal.Decimal `json:"price"`
	MarketplaceFee decimal.Decimal `json:"marketplace_fee"`
	RoyaltyFee     decimal.Decimal `json:"royalty_fee"`
	SellerProceeds decimal.Decimal `json:"seller_proceeds"`
	Primary        bool            `json:"primary"`
}

// TreasuryTotal is what the treasury collects: marketplace fee plus royalty.
func (s Split) TreasuryTotal() decimal.Decimal {
	return s.MarketplaceFee.Add(s.RoyaltyFee)
}

// Portion floors price*bps/10000 to Precision digits.
func Portion(price decimal.Decimal, bps int64) decimal.Decimal {
	q, _ := price.Mul(decimal.NewFromInt(bps)).QuoRem(bpsDenominator, Precision)
	return q
}

// Calculate splits price into marketplace fee, royalty and seller proceeds.
// Royalty applies to secondary sales only. Rounding dust always stays with the
// seller.
func Calculate(price decimal.Decimal, primary bool, royaltyBps int64, cfg Config) (Split, error) {
	if price.IsNegative() {
		return Split{}, fmt.Errorf("%w: negative price %s", sales.ErrInvalidAmount, price)
	}
	if err := cfg.Validate(); err != nil {
		return Split{}, err
	}

	split := Split{Price: price, Primary: primary, RoyaltyFee: decimal.Zero}
	if primary {
		split.MarketplaceFee = Portion(price, cfg.PrimaryFeeBps)
	} else {
		if royaltyBps < 0 || royaltyBps > BpsDenominator {
			return Split{}, fmt.Errorf("%w: royalty %d bps", sales.ErrFeeExceedsCap, royaltyBps)
		}
		// Marketplace fee and royalty are not capped together; only the price
		// itself bounds them.
		if cfg.SecondaryFeeBps+royaltyBps > BpsDenominator {
			return Split{}, fmt.Errorf("%w: fee %d + royalty %d bps exceeds price",
				sales.ErrFeeExceedsCap, cfg.SecondaryFeeBps, royaltyBps)
		}
		split.MarketplaceFee = Portion(price, cfg.SecondaryFeeBps)
		split.RoyaltyFee = Portion(price, royaltyBps)
	}
	split.SellerProceeds = price.Sub(split.MarketplaceFee).Sub(split.RoyaltyFee)
	return split, nil
}
