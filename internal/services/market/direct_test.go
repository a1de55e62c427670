package market

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nftsalesgo/internal/sales"
	"nftsalesgo/internal/treasury"
)

func TestBuyNFT_PrimaryThenSecondary(t *testing.T) {
	e := newTestEnv(t)
	e.custody.Mint("token-1", "alice", 500)
	ctx := context.Background()

	s := e.list(t, "alice", "token-1", sales.TypeDirect, "1.0")
	e.clock.Set(s.StartTime)
	st, err := e.svc.BuyNFT(ctx, s.ID, "bob", dec("1.0"))
	require.NoError(t, err)

	assert.True(t, st.Split.Primary)
	assertDec(t, "0.05", st.Split.MarketplaceFee)
	assertDec(t, "0.95", st.Split.SellerProceeds)
	assertDec(t, "0.05", e.vault.Balance())
	assert.Equal(t, "bob", e.owner(t, "token-1"))
	assert.Equal(t, sales.StatusClosed, e.sale(t, s.ID).Status)

	resale := e.list(t, "bob", "token-1", sales.TypeDirect, "1.0")
	e.clock.Set(resale.StartTime)
	st, err = e.svc.BuyNFT(ctx, resale.ID, "carol", dec("1.0"))
	require.NoError(t, err)

	assert.False(t, st.Split.Primary)
	assert.Equal(t, "alice", st.RoyaltyRecipient)
	assertDec(t, "0.04", st.Split.MarketplaceFee)
	assertDec(t, "0.05", st.Split.RoyaltyFee)
	assertDec(t, "0.91", st.Split.SellerProceeds)
	assertDec(t, "0.09", st.Split.TreasuryTotal())
	assert.Len(t, st.Receipts, 2)
	assertDec(t, "0.14", e.vault.Balance())
	assert.Equal(t, "carol", e.owner(t, "token-1"))

	evs, err := e.svc.Events(ctx, resale.ID)
	require.NoError(t, err)
	closed := evs[len(evs)-1]
	assert.Equal(t, sales.EventSaleClosed, closed.Kind)
	assert.Equal(t, "alice", closed.RoyaltyTo)
	assertDec(t, "0.91", closed.SellerProceeds)
}

func TestBuyNFT_Rejections(t *testing.T) {
	e := newTestEnv(t)
	e.custody.Mint("dir", "alice", 0)
	e.custody.Mint("auc", "alice", 0)
	dir := e.list(t, "alice", "dir", sales.TypeDirect, "1.0")
	auc := e.list(t, "alice", "auc", sales.TypeAuction, "1.0")
	ctx := context.Background()

	_, err := e.svc.BuyNFT(ctx, dir.ID, "bob", dec("1"))
	require.ErrorIs(t, err, sales.ErrNotStarted)

	e.clock.Set(dir.StartTime)
	_, err = e.svc.BuyNFT(ctx, auc.ID, "bob", dec("1"))
	require.ErrorIs(t, err, sales.ErrWrongSaleType)

	_, err = e.svc.BuyNFT(ctx, dir.ID, "bob", dec("1.01"))
	require.ErrorIs(t, err, sales.ErrPriceMismatch)
	_, err = e.svc.BuyNFT(ctx, dir.ID, "bob", dec("0.99"))
	require.ErrorIs(t, err, sales.ErrPriceMismatch)

	_, err = e.svc.BuyNFT(ctx, dir.ID, "alice", dec("1"))
	require.ErrorIs(t, err, sales.ErrUnauthorized)

	e.clock.Set(dir.EndTime)
	_, err = e.svc.BuyNFT(ctx, dir.ID, "bob", dec("1"))
	require.ErrorIs(t, err, sales.ErrEnded)

	assert.Equal(t, marketplace, e.owner(t, "dir"))
	assert.Empty(t, e.vault.Entries())
}

func TestBuyNFT_TreasuryFailureRollsBack(t *testing.T) {
	vault := treasury.NewVault()
	e := newTestEnv(t, func(d *Deps) {
		d.Treasury = &flakyTreasury{Vault: vault, failOn: "royalty"}
	})
	// creator differs from seller, so the sale forwards a royalty
	e.custody.Mint("token-1", "creator", 500)
	require.NoError(t, e.custody.TransferCustody(context.Background(), "token-1", "creator", "alice"))
	s := e.list(t, "alice", "token-1", sales.TypeDirect, "1.0")
	before := e.sale(t, s.ID)
	e.clock.Set(s.StartTime.Add(time.Minute))

	_, err := e.svc.BuyNFT(context.Background(), s.ID, "bob", dec("1.0"))
	require.Error(t, err)

	// the marketplace fee went through and was reverted
	entries := vault.Entries()
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Reverted)
	assertDec(t, "0", vault.Balance())

	assert.Equal(t, marketplace, e.owner(t, "token-1"))
	after := e.sale(t, s.ID)
	assert.Equal(t, before, after)
	assert.Equal(t, []sales.EventKind{sales.EventSaleCreated}, e.pub.kinds())
}
