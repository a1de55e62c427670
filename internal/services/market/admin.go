package market

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"nftsalesgo/internal/fees"
	"nftsalesgo/internal/sales"
)

// RequireAdmin fails with ErrUnauthorized unless caller holds the admin
// credential in registry.
func RequireAdmin(ctx context.Context, caller string, registry AdminRegistry) error {
	if caller == "" {
		return fmt.Errorf("%w: missing caller", sales.ErrUnauthorized)
	}
	ok, err := registry.IsAdmin(ctx, caller)
	if err != nil {
		return fmt.Errorf("admin lookup for %s: %w", caller, err)
	}
	if !ok {
		return fmt.Errorf("%w: %s is not an admin", sales.ErrUnauthorized, caller)
	}
	return nil
}

// AdminCancelReserveSale cancels an open sale at any point of its window and
// returns the token to the seller. The displaced bidder, if any, is reported
// for refund.
func (svc *Service) AdminCancelReserveSale(ctx context.Context, caller string, saleID uint64, reason string) (*CancelResult, error) {
	if err := RequireAdmin(ctx, caller, svc.admins); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, sales.ErrReasonRequired
	}

	var out *CancelResult
	err := svc.run(ctx, "admin_cancel", func(t *txn) error {
		sale, err := svc.load(ctx, saleID)
		if err != nil {
			return err
		}
		if err := sale.RequireOpen(); err != nil {
			return err
		}
		now := svc.clock.Now()
		if err := t.transfer(svc.custody, sale.TokenID, svc.marketplace, sale.Seller); err != nil {
			return err
		}
		if err := sale.SetStatus(sales.StatusCancelled); err != nil {
			return err
		}
		sale.UpdatedAt = now
		sale.Version++

		ev := sales.SnapshotEvent(sales.EventReserveSaleCanceledByAdmin, sale, caller, now)
		ev.Reason = reason
		ev.Amount = sale.ReceivedPrice
		t.put(sale, ev)
		out = &CancelResult{Sale: sale, RefundBuyer: sale.Buyer, RefundAmount: sale.ReceivedPrice}
		return nil
	})
	if err != nil {
		return nil, err
	}
	zap.L().Warn("sale_cancelled_by_admin",
		zap.Uint64("sale_id", saleID),
		zap.String("admin", caller),
		zap.String("reason", reason),
		zap.String("refund_buyer", out.RefundBuyer))
	return out, nil
}

// AdminEmergencyWithdrawal moves tokens out of marketplace custody regardless
// of sale state. Either every token moves or none does. An open sale holding
// a withdrawn token is cancelled in the same batch; its leading bid is
// reported on the FundsWithdrawn event for refund.
func (svc *Service) AdminEmergencyWithdrawal(ctx context.Context, caller string, tokenIDs []string, destination string) error {
	if err := RequireAdmin(ctx, caller, svc.admins); err != nil {
		return err
	}
	if strings.TrimSpace(destination) == "" || len(tokenIDs) == 0 {
		return fmt.Errorf("%w: destination and token ids are required", sales.ErrInvalidRequest)
	}

	var cancelled []uint64
	err := svc.run(ctx, "admin_withdraw", func(t *txn) error {
		now := svc.clock.Now()
		for _, tokenID := range tokenIDs {
			open, err := svc.store.OpenByToken(ctx, tokenID)
			if err != nil && !errors.Is(err, sales.ErrNotFound) {
				return fmt.Errorf("open sale for %s: %w", tokenID, err)
			}
			if err := t.transfer(svc.custody, tokenID, svc.marketplace, destination); err != nil {
				return err
			}

			withdrawn := sales.Event{
				Kind:        sales.EventFundsWithdrawn,
				TokenID:     tokenID,
				Actor:       caller,
				Destination: destination,
				At:          now,
			}
			if open == nil {
				t.emit(withdrawn)
				continue
			}

			if err := open.SetStatus(sales.StatusCancelled); err != nil {
				return err
			}
			open.UpdatedAt = now
			open.Version++

			cancel := sales.SnapshotEvent(sales.EventReserveSaleCanceledByAdmin, open, caller, now)
			cancel.Reason = "emergency withdrawal to " + destination
			cancel.Amount = open.ReceivedPrice

			withdrawn.SaleID = open.ID
			withdrawn.PrevBuyer = open.Buyer
			withdrawn.PrevAmount = open.ReceivedPrice
			t.put(open, cancel, withdrawn)
			cancelled = append(cancelled, open.ID)
		}
		return nil
	})
	if err != nil {
		return err
	}
	zap.L().Warn("emergency_withdrawal",
		zap.String("admin", caller),
		zap.Strings("token_ids", tokenIDs),
		zap.Uint64s("cancelled_sales", cancelled),
		zap.String("destination", destination))
	return nil
}

func (svc *Service) AdminUpdateTimeConfigs(ctx context.Context, caller string, cfg sales.TimingConfig) error {
	if err := RequireAdmin(ctx, caller, svc.admins); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	svc.mu.Lock()
	defer svc.mu.Unlock()
	svc.cfgMu.Lock()
	svc.settings.Timing = cfg
	svc.cfgMu.Unlock()

	zap.L().Info("timing_config_updated", zap.String("admin", caller), zap.Any("timing", cfg))
	return nil
}

func (svc *Service) AdminUpdateFeeConfigs(ctx context.Context, caller string, cfg fees.Config) error {
	if err := RequireAdmin(ctx, caller, svc.admins); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	svc.mu.Lock()
	defer svc.mu.Unlock()
	svc.cfgMu.Lock()
	svc.settings.Fees = cfg
	svc.cfgMu.Unlock()

	zap.L().Info("fee_config_updated", zap.String("admin", caller), zap.Any("fees", cfg))
	return nil
}
