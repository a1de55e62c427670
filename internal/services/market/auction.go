package market

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"nftsalesgo/internal/fees"
	"nftsalesgo/internal/sales"
)

// PlaceBid records a new leading bid. A bid arriving within
// ExtensionDuration of the end pushes the end to now + ExtensionDuration.
func (svc *Service) PlaceBid(ctx context.Context, saleID uint64, bidder string, amount decimal.Decimal) (*BidResult, error) {
	if bidder == "" {
		return nil, fmt.Errorf("%w: bidder is required", sales.ErrInvalidRequest)
	}
	if !sales.ValidAmount(amount) {
		return nil, fmt.Errorf("%w: bid %s", sales.ErrInvalidAmount, amount)
	}

	var res *BidResult
	err := svc.run(ctx, "place_bid", func(t *txn) error {
		sale, err := svc.load(ctx, saleID)
		if err != nil {
			return err
		}
		if sale.Type != sales.TypeAuction {
			return fmt.Errorf("%w: sale %d is %s", sales.ErrWrongSaleType, sale.ID, sale.Type)
		}
		if err := sale.RequireOpen(); err != nil {
			return err
		}
		now := svc.clock.Now()
		if err := sale.ActiveAt(now); err != nil {
			return err
		}
		if bidder == sale.Seller {
			return fmt.Errorf("%w: seller cannot bid on sale %d", sales.ErrUnauthorized, sale.ID)
		}

		if !sale.HasBuyer() {
			if amount.LessThan(sale.AskPrice) {
				return fmt.Errorf("%w: %s < %s", sales.ErrBelowAsk, amount, sale.AskPrice)
			}
		} else {
			floor := sale.ReceivedPrice.Add(sale.MinBidIncrement)
			if amount.LessThan(floor) || !amount.GreaterThan(sale.ReceivedPrice) {
				return fmt.Errorf("%w: %s, need at least %s above %s",
					sales.ErrBidTooLow, amount, sale.MinBidIncrement, sale.ReceivedPrice)
			}
		}

		res = &BidResult{PreviousBuyer: sale.Buyer, PreviousAmount: sale.ReceivedPrice}
		sale.Buyer = bidder
		sale.ReceivedPrice = amount

		// at exactly ext remaining, now+ext is already EndTime
		ext := svc.Settings().Timing.ExtensionDuration
		if sale.EndTime.Sub(now) < ext {
			sale.EndTime = now.Add(ext)
			res.Extended = true
		}
		sale.UpdatedAt = now
		sale.Version++

		ev := sales.SnapshotEvent(sales.EventReserveAuctionBidPlaced, sale, bidder, now)
		ev.Amount = amount
		ev.PrevBuyer = res.PreviousBuyer
		ev.PrevAmount = res.PreviousAmount
		t.put(sale, ev)
		res.Sale = sale
		return nil
	})
	if err != nil {
		return nil, err
	}
	zap.L().Info("bid_placed",
		zap.Uint64("sale_id", saleID),
		zap.String("bidder", bidder),
		zap.String("amount", amount.String()),
		zap.Bool("extended", res.Extended))
	return res, nil
}

// FinalizeAuction settles an elapsed auction. Anyone may call it. An auction
// that drew no bids is resolved through the expiry path instead.
func (svc *Service) FinalizeAuction(ctx context.Context, saleID uint64) (*Settlement, error) {
	var out *Settlement
	err := svc.run(ctx, "finalize_auction", func(t *txn) error {
		sale, err := svc.load(ctx, saleID)
		if err != nil {
			return err
		}
		if sale.Type != sales.TypeAuction {
			return fmt.Errorf("%w: sale %d is %s", sales.ErrWrongSaleType, sale.ID, sale.Type)
		}
		if err := sale.RequireOpen(); err != nil {
			return err
		}
		now := svc.clock.Now()
		if !now.After(sale.EndTime) {
			return fmt.Errorf("%w: sale %d ends at %s", sales.ErrSaleNotOver, sale.ID, sale.EndTime.Format(time.RFC3339))
		}
		if !sale.HasBuyer() {
			if err := svc.returnToSeller(t, sale, now); err != nil {
				return err
			}
			out = &Settlement{Sale: sale}
			return nil
		}
		out, err = svc.settle(t, sale, "", now)
		return err
	})
	if err != nil {
		return nil, err
	}
	zap.L().Info("auction_finalized",
		zap.Uint64("sale_id", saleID),
		zap.String("buyer", out.Sale.Buyer),
		zap.String("price", out.Sale.ReceivedPrice.String()))
	return out, nil
}

// settle moves the token to the buyer, forwards marketplace fee and royalty
// to the treasury and closes the sale. sale.Buyer and sale.ReceivedPrice
// must already be set.
func (svc *Service) settle(t *txn, sale *sales.Sale, actor string, now time.Time) (*Settlement, error) {
	recipient, royaltyBps, err := svc.custody.RoyaltyInfo(t.ctx, sale.TokenID)
	if err != nil {
		return nil, fmt.Errorf("royalty info %s: %w", sale.TokenID, err)
	}
	primary := recipient != "" && recipient == sale.Seller
	split, err := fees.Calculate(sale.ReceivedPrice, primary, royaltyBps, svc.Settings().Fees)
	if err != nil {
		return nil, err
	}

	if err := t.transfer(svc.custody, sale.TokenID, svc.marketplace, sale.Buyer); err != nil {
		return nil, err
	}
	st := &Settlement{Sale: sale, Split: split}
	if !primary {
		st.RoyaltyRecipient = recipient
	}
	r, err := t.forward(svc.treasury, split.MarketplaceFee,
		fmt.Sprintf("sale %d marketplace fee", sale.ID))
	if err != nil {
		return nil, err
	}
	if r != "" {
		st.Receipts = append(st.Receipts, r)
	}
	r, err = t.forward(svc.treasury, split.RoyaltyFee,
		fmt.Sprintf("sale %d royalty for %s", sale.ID, recipient))
	if err != nil {
		return nil, err
	}
	if r != "" {
		st.Receipts = append(st.Receipts, r)
	}

	if err := sale.SetStatus(sales.StatusClosed); err != nil {
		return nil, err
	}
	sale.UpdatedAt = now
	sale.Version++

	if actor == "" {
		actor = sale.Buyer
	}
	ev := sales.SnapshotEvent(sales.EventSaleClosed, sale, actor, now)
	ev.Amount = sale.ReceivedPrice
	ev.MarketplaceFee = split.MarketplaceFee
	ev.RoyaltyFee = split.RoyaltyFee
	ev.RoyaltyTo = st.RoyaltyRecipient
	ev.SellerProceeds = split.SellerProceeds
	t.put(sale, ev)
	return st, nil
}
