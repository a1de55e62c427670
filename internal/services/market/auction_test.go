package market

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"nftsalesgo/internal/sales"
)

func TestPlaceBid_BelowAskThenAtAsk(t *testing.T) {
	e := newTestEnv(t)
	e.custody.Mint("token-1", "alice", 0)
	s := e.list(t, "alice", "token-1", sales.TypeAuction, "1.0")
	e.clock.Set(s.StartTime)
	ctx := context.Background()

	_, err := e.svc.PlaceBid(ctx, s.ID, "bob", dec("0.99"))
	require.ErrorIs(t, err, sales.ErrBelowAsk)

	res, err := e.svc.PlaceBid(ctx, s.ID, "bob", dec("1.0"))
	require.NoError(t, err)
	assert.Empty(t, res.PreviousBuyer)
	assert.False(t, res.Extended)
	assert.Equal(t, "bob", e.sale(t, s.ID).Buyer)
	assertDec(t, "1", e.sale(t, s.ID).ReceivedPrice)
}

func TestPlaceBid_WindowBoundaries(t *testing.T) {
	e := newTestEnv(t)
	e.custody.Mint("token-1", "alice", 0)
	s := e.list(t, "alice", "token-1", sales.TypeAuction, "1.0")
	ctx := context.Background()

	e.clock.Set(s.StartTime.Add(-time.Second))
	_, err := e.svc.PlaceBid(ctx, s.ID, "bob", dec("1"))
	require.ErrorIs(t, err, sales.ErrNotStarted)

	e.clock.Set(s.EndTime)
	_, err = e.svc.PlaceBid(ctx, s.ID, "bob", dec("1"))
	require.ErrorIs(t, err, sales.ErrEnded)

	e.clock.Set(s.EndTime.Add(-time.Second))
	res, err := e.svc.PlaceBid(ctx, s.ID, "bob", dec("1"))
	require.NoError(t, err)
	assert.True(t, res.Extended)
	want := s.EndTime.Add(-time.Second).Add(10 * time.Minute)
	assert.Equal(t, want, res.Sale.EndTime)
	assert.Equal(t, want, e.sale(t, s.ID).EndTime)
	assert.Equal(t, want, e.timers.armed[s.ID])
}

func TestPlaceBid_ExtensionBoundary(t *testing.T) {
	e := newTestEnv(t)
	e.custody.Mint("token-1", "alice", 0)
	s := e.list(t, "alice", "token-1", sales.TypeAuction, "1.0")
	ctx := context.Background()

	// exactly one extension before the end: now+ext already equals EndTime
	e.clock.Set(s.EndTime.Add(-10 * time.Minute))
	res, err := e.svc.PlaceBid(ctx, s.ID, "bob", dec("1"))
	require.NoError(t, err)
	assert.False(t, res.Extended)
	assert.Equal(t, s.EndTime, res.Sale.EndTime)

	// one second later the deadline moves
	e.clock.Advance(time.Second)
	res, err = e.svc.PlaceBid(ctx, s.ID, "carol", dec("1.1"))
	require.NoError(t, err)
	assert.True(t, res.Extended)
	assert.Equal(t, s.EndTime.Add(time.Second), res.Sale.EndTime)
}

func TestPlaceBid_IncrementAndRefundInfo(t *testing.T) {
	e := newTestEnv(t)
	e.custody.Mint("token-1", "alice", 0)
	s := e.list(t, "alice", "token-1", sales.TypeAuction, "1.0")
	e.clock.Set(s.StartTime)
	ctx := context.Background()

	_, err := e.svc.PlaceBid(ctx, s.ID, "bob", dec("1.0"))
	require.NoError(t, err)

	_, err = e.svc.PlaceBid(ctx, s.ID, "carol", dec("1.05"))
	require.ErrorIs(t, err, sales.ErrBidTooLow)

	res, err := e.svc.PlaceBid(ctx, s.ID, "carol", dec("1.1"))
	require.NoError(t, err)
	assert.Equal(t, "bob", res.PreviousBuyer)
	assertDec(t, "1", res.PreviousAmount)

	evs, err := e.svc.Events(ctx, s.ID)
	require.NoError(t, err)
	last := evs[len(evs)-1]
	assert.Equal(t, sales.EventReserveAuctionBidPlaced, last.Kind)
	assert.Equal(t, "carol", last.Buyer)
	assert.Equal(t, "bob", last.PrevBuyer)
	assertDec(t, "1.1", last.Amount)
	assertDec(t, "1", last.PrevAmount)
}

func TestPlaceBid_EqualBidRejectedWithZeroIncrement(t *testing.T) {
	e := newTestEnv(t, func(d *Deps) { d.Settings.MinBidIncrement = decimal.Zero })
	e.custody.Mint("token-1", "alice", 0)
	s := e.list(t, "alice", "token-1", sales.TypeAuction, "1.0")
	e.clock.Set(s.StartTime)
	ctx := context.Background()

	_, err := e.svc.PlaceBid(ctx, s.ID, "bob", dec("1.0"))
	require.NoError(t, err)
	_, err = e.svc.PlaceBid(ctx, s.ID, "carol", dec("1.0"))
	require.ErrorIs(t, err, sales.ErrBidTooLow)
	_, err = e.svc.PlaceBid(ctx, s.ID, "carol", dec("1.000000000000000001"))
	require.NoError(t, err)
}

func TestPlaceBid_Rejections(t *testing.T) {
	e := newTestEnv(t)
	e.custody.Mint("auc", "alice", 0)
	e.custody.Mint("dir", "alice", 0)
	auc := e.list(t, "alice", "auc", sales.TypeAuction, "1.0")
	dir := e.list(t, "alice", "dir", sales.TypeDirect, "1.0")
	e.clock.Set(auc.StartTime)
	ctx := context.Background()

	_, err := e.svc.PlaceBid(ctx, dir.ID, "bob", dec("1"))
	require.ErrorIs(t, err, sales.ErrWrongSaleType)

	_, err = e.svc.PlaceBid(ctx, auc.ID, "alice", dec("1"))
	require.ErrorIs(t, err, sales.ErrUnauthorized)

	_, err = e.svc.PlaceBid(ctx, auc.ID, "bob", dec("-1"))
	require.ErrorIs(t, err, sales.ErrInvalidAmount)

	_, err = e.svc.PlaceBid(ctx, 99, "bob", dec("1"))
	require.ErrorIs(t, err, sales.ErrNotFound)
}

// Accepted bids strictly increase the received price and keep one buyer.
func TestPlaceBid_ReceivedPriceStrictlyIncreases(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		e := newTestEnv(t)
		e.custody.Mint("token-1", "alice", 0)
		s := e.list(t, "alice", "token-1", sales.TypeAuction, "1.0")
		e.clock.Set(s.StartTime)
		ctx := context.Background()

		prev := decimal.Zero
		n := rapid.IntRange(1, 20).Draw(rt, "bids")
		for i := 0; i < n; i++ {
			cents := rapid.Int64Range(1, 500).Draw(rt, "cents")
			bidder := rapid.SampledFrom([]string{"bob", "carol", "dave"}).Draw(rt, "bidder")
			res, err := e.svc.PlaceBid(ctx, s.ID, bidder, decimal.New(cents, -2))
			if err != nil {
				continue
			}
			if !res.Sale.ReceivedPrice.GreaterThan(prev) {
				rt.Fatalf("price went from %s to %s", prev, res.Sale.ReceivedPrice)
			}
			if res.Sale.Buyer != bidder {
				rt.Fatalf("buyer %s, want %s", res.Sale.Buyer, bidder)
			}
			prev = res.Sale.ReceivedPrice
		}
	})
}

func TestFinalizeAuction(t *testing.T) {
	e := newTestEnv(t)
	e.custody.Mint("token-1", "alice", 800)
	s := e.list(t, "alice", "token-1", sales.TypeAuction, "1.0")
	ctx := context.Background()

	e.clock.Set(s.StartTime)
	_, err := e.svc.PlaceBid(ctx, s.ID, "bob", dec("2"))
	require.NoError(t, err)

	e.clock.Set(s.EndTime)
	_, err = e.svc.FinalizeAuction(ctx, s.ID)
	require.ErrorIs(t, err, sales.ErrSaleNotOver)

	e.clock.Set(s.EndTime.Add(time.Second))
	st, err := e.svc.FinalizeAuction(ctx, s.ID)
	require.NoError(t, err)

	// alice is the creator, so this is a primary sale: 5%, no royalty
	assert.True(t, st.Split.Primary)
	assertDec(t, "0.1", st.Split.MarketplaceFee)
	assertDec(t, "0", st.Split.RoyaltyFee)
	assertDec(t, "1.9", st.Split.SellerProceeds)
	assert.Len(t, st.Receipts, 1)
	assertDec(t, "0.1", e.vault.Balance())
	assert.Equal(t, "bob", e.owner(t, "token-1"))
	assert.Equal(t, sales.StatusClosed, e.sale(t, s.ID).Status)
	assert.NotContains(t, e.timers.armed, s.ID)

	_, err = e.svc.FinalizeAuction(ctx, s.ID)
	require.ErrorIs(t, err, sales.ErrSaleNotOpen)
}

func TestFinalizeAuction_NoBidsReturnsToSeller(t *testing.T) {
	e := newTestEnv(t)
	e.custody.Mint("token-1", "alice", 0)
	s := e.list(t, "alice", "token-1", sales.TypeAuction, "1.0")
	e.clock.Set(s.EndTime.Add(time.Second))

	st, err := e.svc.FinalizeAuction(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, sales.StatusClosed, st.Sale.Status)
	assert.Equal(t, "alice", e.owner(t, "token-1"))
	assert.Empty(t, e.vault.Entries())
}
