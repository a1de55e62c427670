package market

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"nftsalesgo/internal/sales"
)

// FinalizeExpiredSale returns an unsold, elapsed listing to its seller.
// No funds move.
func (svc *Service) FinalizeExpiredSale(ctx context.Context, saleID uint64) (*sales.Sale, error) {
	var out *sales.Sale
	err := svc.run(ctx, "finalize_expired", func(t *txn) error {
		sale, err := svc.load(ctx, saleID)
		if err != nil {
			return err
		}
		if err := sale.RequireOpen(); err != nil {
			return err
		}
		now := svc.clock.Now()
		if !now.After(sale.EndTime) {
			return fmt.Errorf("%w: sale %d ends at %s", sales.ErrSaleStillActive, sale.ID, sale.EndTime.Format(time.RFC3339))
		}
		if sale.HasBuyer() {
			return fmt.Errorf("%w: sale %d is won by %s", sales.ErrSaleHasBuyer, sale.ID, sale.Buyer)
		}
		if err := svc.returnToSeller(t, sale, now); err != nil {
			return err
		}
		out = sale
		return nil
	})
	if err != nil {
		return nil, err
	}
	zap.L().Info("sale_expired", zap.Uint64("sale_id", saleID), zap.String("seller", out.Seller))
	return out, nil
}

func (svc *Service) returnToSeller(t *txn, sale *sales.Sale, now time.Time) error {
	if err := t.transfer(svc.custody, sale.TokenID, svc.marketplace, sale.Seller); err != nil {
		return err
	}
	if err := sale.SetStatus(sales.StatusClosed); err != nil {
		return err
	}
	sale.UpdatedAt = now
	sale.Version++
	t.put(sale, sales.SnapshotEvent(sales.EventSaleClosed, sale, sale.Seller, now))
	return nil
}

// Settle resolves an elapsed sale through whichever path applies. Sales that
// are already closed or still running are left alone.
func (svc *Service) Settle(ctx context.Context, saleID uint64) error {
	sale, err := svc.load(ctx, saleID)
	if err != nil {
		return err
	}
	if sale.Status != sales.StatusOpen {
		return nil
	}
	if sale.Type == sales.TypeAuction && sale.HasBuyer() {
		_, err = svc.FinalizeAuction(ctx, saleID)
	} else {
		_, err = svc.FinalizeExpiredSale(ctx, saleID)
	}
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sales.ErrSaleNotOpen),
		errors.Is(err, sales.ErrSaleNotOver),
		errors.Is(err, sales.ErrSaleStillActive):
		// raced with a bid extension or another settler
		zap.L().Debug("market.settle_skipped", zap.Uint64("sale_id", saleID), zap.Error(err))
		return nil
	default:
		return err
	}
}

// SettleOverdue settles up to limit open sales whose window has elapsed and
// returns how many were handled without error.
func (svc *Service) SettleOverdue(ctx context.Context, limit int) (int, error) {
	due, err := svc.store.Overdue(ctx, svc.clock.Now().Unix(), limit)
	if err != nil {
		return 0, fmt.Errorf("list overdue: %w", err)
	}
	n := 0
	for _, s := range due {
		if err := svc.Settle(ctx, s.ID); err != nil {
			zap.L().Warn("market.settle_overdue", zap.Uint64("sale_id", s.ID), zap.Error(err))
			continue
		}
		n++
	}
	return n, nil
}
