package market

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nftsalesgo/internal/access"
	"nftsalesgo/internal/fees"
	"nftsalesgo/internal/sales"
)

func TestRequireAdmin(t *testing.T) {
	reg := access.NewStaticRegistry("root")
	ctx := context.Background()

	require.NoError(t, RequireAdmin(ctx, "root", reg))
	require.ErrorIs(t, RequireAdmin(ctx, "", reg), sales.ErrUnauthorized)
	require.ErrorIs(t, RequireAdmin(ctx, "bob", reg), sales.ErrUnauthorized)

	reg.Revoke("root")
	require.ErrorIs(t, RequireAdmin(ctx, "root", reg), sales.ErrUnauthorized)
}

func TestAdminCancelReserveSale(t *testing.T) {
	e := newTestEnv(t)
	e.custody.Mint("token-1", "alice", 0)
	s := e.list(t, "alice", "token-1", sales.TypeAuction, "1.0")
	ctx := context.Background()

	e.clock.Set(s.StartTime)
	_, err := e.svc.PlaceBid(ctx, s.ID, "bob", dec("1.5"))
	require.NoError(t, err)

	_, err = e.svc.AdminCancelReserveSale(ctx, admin, s.ID, "")
	require.ErrorIs(t, err, sales.ErrReasonRequired)
	_, err = e.svc.AdminCancelReserveSale(ctx, admin, s.ID, "   ")
	require.ErrorIs(t, err, sales.ErrReasonRequired)
	_, err = e.svc.AdminCancelReserveSale(ctx, "bob", s.ID, "mine")
	require.ErrorIs(t, err, sales.ErrUnauthorized)
	assert.Equal(t, sales.StatusOpen, e.sale(t, s.ID).Status)

	res, err := e.svc.AdminCancelReserveSale(ctx, admin, s.ID, "fraud report")
	require.NoError(t, err)
	assert.Equal(t, sales.StatusCancelled, res.Sale.Status)
	assert.Equal(t, "bob", res.RefundBuyer)
	assertDec(t, "1.5", res.RefundAmount)
	assert.Equal(t, "alice", e.owner(t, "token-1"))
	assert.NotContains(t, e.timers.armed, s.ID)

	evs, err := e.svc.Events(ctx, s.ID)
	require.NoError(t, err)
	last := evs[len(evs)-1]
	assert.Equal(t, sales.EventReserveSaleCanceledByAdmin, last.Kind)
	assert.Equal(t, "fraud report", last.Reason)
	assert.Equal(t, admin, last.Actor)

	// cancelled is terminal
	_, err = e.svc.PlaceBid(ctx, s.ID, "carol", dec("5"))
	require.ErrorIs(t, err, sales.ErrSaleNotOpen)
	_, err = e.svc.AdminCancelReserveSale(ctx, admin, s.ID, "again")
	require.ErrorIs(t, err, sales.ErrSaleNotOpen)
	_, err = e.svc.FinalizeExpiredSale(ctx, s.ID)
	require.ErrorIs(t, err, sales.ErrSaleNotOpen)
}

func TestAdminEmergencyWithdrawal(t *testing.T) {
	e := newTestEnv(t)
	e.custody.Mint("a", "alice", 0)
	e.custody.Mint("b", "bob", 0)
	sa := e.list(t, "alice", "a", sales.TypeAuction, "1.0")
	sb := e.list(t, "bob", "b", sales.TypeDirect, "1.0")
	ctx := context.Background()

	err := e.svc.AdminEmergencyWithdrawal(ctx, "alice", []string{"a"}, "recovery")
	require.ErrorIs(t, err, sales.ErrUnauthorized)
	err = e.svc.AdminEmergencyWithdrawal(ctx, admin, nil, "recovery")
	require.ErrorIs(t, err, sales.ErrInvalidRequest)
	err = e.svc.AdminEmergencyWithdrawal(ctx, admin, []string{"a"}, "")
	require.ErrorIs(t, err, sales.ErrInvalidRequest)

	require.NoError(t, e.svc.AdminEmergencyWithdrawal(ctx, admin, []string{"a", "b"}, "recovery"))
	assert.Equal(t, "recovery", e.owner(t, "a"))
	assert.Equal(t, "recovery", e.owner(t, "b"))

	// the open sales backing the tokens are cancelled with them
	assert.Equal(t, sales.StatusCancelled, e.sale(t, sa.ID).Status)
	assert.Equal(t, sales.StatusCancelled, e.sale(t, sb.ID).Status)
	assert.Empty(t, e.timers.armed)

	evs, err := e.svc.Events(ctx, sa.ID)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(evs), 2)
	cancel, withdrawn := evs[len(evs)-2], evs[len(evs)-1]
	assert.Equal(t, sales.EventReserveSaleCanceledByAdmin, cancel.Kind)
	assert.Equal(t, sales.EventFundsWithdrawn, withdrawn.Kind)
	assert.Equal(t, sa.ID, withdrawn.SaleID)
	assert.Equal(t, "a", withdrawn.TokenID)
	assert.Equal(t, "recovery", withdrawn.Destination)
}

func TestAdminEmergencyWithdrawal_ResolvesAuction(t *testing.T) {
	e := newTestEnv(t)
	e.custody.Mint("a", "alice", 0)
	s := e.list(t, "alice", "a", sales.TypeAuction, "1.0")
	ctx := context.Background()

	e.clock.Set(s.StartTime)
	_, err := e.svc.PlaceBid(ctx, s.ID, "bob", dec("5"))
	require.NoError(t, err)

	require.NoError(t, e.svc.AdminEmergencyWithdrawal(ctx, admin, []string{"a"}, "alice"))
	assert.Equal(t, "alice", e.owner(t, "a"))
	assert.Equal(t, sales.StatusCancelled, e.sale(t, s.ID).Status)
	assert.NotContains(t, e.timers.armed, s.ID)

	// the leading bid is reported for refund
	evs, err := e.svc.Events(ctx, s.ID)
	require.NoError(t, err)
	withdrawn := evs[len(evs)-1]
	assert.Equal(t, sales.EventFundsWithdrawn, withdrawn.Kind)
	assert.Equal(t, "bob", withdrawn.PrevBuyer)
	assertDec(t, "5", withdrawn.PrevAmount)

	_, err = e.svc.PlaceBid(ctx, s.ID, "carol", dec("6"))
	require.ErrorIs(t, err, sales.ErrSaleNotOpen)

	e.clock.Set(s.EndTime.Add(time.Hour))
	_, err = e.svc.FinalizeAuction(ctx, s.ID)
	require.ErrorIs(t, err, sales.ErrSaleNotOpen)
	_, err = e.svc.AdminCancelReserveSale(ctx, admin, s.ID, "stuck")
	require.ErrorIs(t, err, sales.ErrSaleNotOpen)

	n, err := e.svc.SettleOverdue(ctx, 10)
	require.NoError(t, err)
	assert.Zero(t, n)

	// the seller holds the token again and may relist it
	relisted := e.list(t, "alice", "a", sales.TypeDirect, "2")
	assert.Equal(t, sales.StatusOpen, relisted.Status)
	assert.Equal(t, marketplace, e.owner(t, "a"))
}

func TestAdminEmergencyWithdrawal_AllOrNothing(t *testing.T) {
	e := newTestEnv(t)
	e.custody.Mint("a", "alice", 0)
	e.custody.Mint("loose", "carol", 0)
	e.list(t, "alice", "a", sales.TypeDirect, "1.0")

	// "loose" never entered marketplace custody, so its transfer fails
	err := e.svc.AdminEmergencyWithdrawal(context.Background(), admin, []string{"a", "loose"}, "recovery")
	require.Error(t, err)
	assert.Equal(t, marketplace, e.owner(t, "a"))
	assert.Equal(t, "carol", e.owner(t, "loose"))
	assert.Equal(t, []sales.EventKind{sales.EventSaleCreated}, e.pub.kinds())
}

func TestAdminUpdateTimeConfigs(t *testing.T) {
	e := newTestEnv(t)
	e.custody.Mint("token-1", "alice", 0)
	ctx := context.Background()

	cfg := sales.TimingConfig{
		MaxSaleDuration:   48 * time.Hour,
		MinSaleDuration:   time.Minute,
		MinTimeDifference: time.Hour,
		ExtensionDuration: 5 * time.Minute,
	}
	require.ErrorIs(t, e.svc.AdminUpdateTimeConfigs(ctx, "bob", cfg), sales.ErrUnauthorized)

	bad := cfg
	bad.MinSaleDuration = 72 * time.Hour
	require.ErrorIs(t, e.svc.AdminUpdateTimeConfigs(ctx, admin, bad), sales.ErrInvalidConfig)

	require.NoError(t, e.svc.AdminUpdateTimeConfigs(ctx, admin, cfg))
	assert.Equal(t, cfg, e.svc.Settings().Timing)

	// the new minimum lead time now applies to listings
	now := e.clock.Now()
	_, err := e.svc.CreateSale(ctx, CreateSaleInput{
		Seller: "alice", Type: sales.TypeDirect, TokenID: "token-1", AskPrice: dec("1"),
		StartTime: now.Add(2 * time.Hour), EndTime: now.Add(3 * time.Hour),
	})
	require.NoError(t, err)
}

func TestAdminUpdateFeeConfigs(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	cfg := fees.Config{
		PrimaryFeeBps:           250,
		SecondaryFeeBps:         300,
		UpperCapPrimaryFeeBps:   500,
		UpperCapSecondaryFeeBps: 500,
	}
	require.ErrorIs(t, e.svc.AdminUpdateFeeConfigs(ctx, "", cfg), sales.ErrUnauthorized)

	bad := cfg
	bad.SecondaryFeeBps = 600
	require.ErrorIs(t, e.svc.AdminUpdateFeeConfigs(ctx, admin, bad), sales.ErrFeeExceedsCap)
	assert.Equal(t, int64(400), e.svc.Settings().Fees.SecondaryFeeBps)

	require.NoError(t, e.svc.AdminUpdateFeeConfigs(ctx, admin, cfg))
	assert.Equal(t, cfg, e.svc.Settings().Fees)
}
