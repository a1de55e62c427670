package market

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"nftsalesgo/internal/sales"
)

// BuyNFT purchases a direct sale at exactly its ask price, settling it in
// the same step.
func (svc *Service) BuyNFT(ctx context.Context, saleID uint64, buyer string, amount decimal.Decimal) (*Settlement, error) {
	if buyer == "" {
		return nil, fmt.Errorf("%w: buyer is required", sales.ErrInvalidRequest)
	}

	var out *Settlement
	err := svc.run(ctx, "buy_nft", func(t *txn) error {
		sale, err := svc.load(ctx, saleID)
		if err != nil {
			return err
		}
		if sale.Type != sales.TypeDirect {
			return fmt.Errorf("%w: sale %d is %s", sales.ErrWrongSaleType, sale.ID, sale.Type)
		}
		if err := sale.RequireOpen(); err != nil {
			return err
		}
		now := svc.clock.Now()
		if err := sale.ActiveAt(now); err != nil {
			return err
		}
		if buyer == sale.Seller {
			return fmt.Errorf("%w: seller cannot buy sale %d", sales.ErrUnauthorized, sale.ID)
		}
		if !amount.Equal(sale.AskPrice) {
			return fmt.Errorf("%w: paid %s, ask is %s", sales.ErrPriceMismatch, amount, sale.AskPrice)
		}

		sale.Buyer = buyer
		sale.ReceivedPrice = amount
		out, err = svc.settle(t, sale, buyer, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	zap.L().Info("sale_bought",
		zap.Uint64("sale_id", saleID),
		zap.String("buyer", buyer),
		zap.String("price", amount.String()),
		zap.String("marketplace_fee", out.Split.MarketplaceFee.String()),
		zap.String("royalty_fee", out.Split.RoyaltyFee.String()))
	return out, nil
}
