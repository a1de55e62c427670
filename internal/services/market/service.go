package market

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"nftsalesgo/internal/clock"
	"nftsalesgo/internal/fees"
	"nftsalesgo/internal/sales"
)

// Settings is the admin-owned configuration read by every lifecycle
// operation.
type Settings struct {
	Timing          sales.TimingConfig `json:"timing"`
	Fees            fees.Config        `json:"fees"`
	MinBidIncrement decimal.Decimal    `json:"min_bid_increment"`
}

func (s Settings) Validate() error {
	if err := s.Timing.Validate(); err != nil {
		return err
	}
	if err := s.Fees.Validate(); err != nil {
		return err
	}
	if s.MinBidIncrement.IsNegative() {
		return fmt.Errorf("%w: negative min bid increment", sales.ErrInvalidConfig)
	}
	return nil
}

type CreateSaleInput struct {
	Seller    string
	Type      sales.Type
	TokenID   string
	AskPrice  decimal.Decimal
	StartTime time.Time
	EndTime   time.Time
}

type UpdateSaleInput struct {
	SaleID    uint64
	Caller    string
	AskPrice  decimal.Decimal
	StartTime time.Time
	EndTime   time.Time
}

// BidResult reports the accepted bid and whom the fund layer must refund.
type BidResult struct {
	Sale           *sales.Sale     `json:"sale"`
	PreviousBuyer  string          `json:"previous_buyer,omitempty"`
	PreviousAmount decimal.Decimal `json:"previous_amount"`
	Extended       bool            `json:"extended"`
}

// Settlement describes how a closed sale moved custody and money.
type Settlement struct {
	Sale             *sales.Sale `json:"sale"`
	Split            fees.Split  `json:"split"`
	RoyaltyRecipient string      `json:"royalty_recipient,omitempty"`
	Receipts         []string    `json:"receipts,omitempty"`
}

// CancelResult is returned by an admin cancellation; RefundBuyer is set when
// the cancelled auction had a leading bid.
type CancelResult struct {
	Sale         *sales.Sale     `json:"sale"`
	RefundBuyer  string          `json:"refund_buyer,omitempty"`
	RefundAmount decimal.Decimal `json:"refund_amount"`
}

type IMarketService interface {
	CreateSale(ctx context.Context, in CreateSaleInput) (*sales.Sale, error)
	UpdateSale(ctx context.Context, in UpdateSaleInput) (*sales.Sale, error)
	GetSale(ctx context.Context, id uint64) (*sales.Sale, error)
	ListSales(ctx context.Context, f sales.Filter) ([]*sales.Sale, error)
	Events(ctx context.Context, id uint64) ([]sales.Event, error)

	PlaceBid(ctx context.Context, saleID uint64, bidder string, amount decimal.Decimal) (*BidResult, error)
	FinalizeAuction(ctx context.Context, saleID uint64) (*Settlement, error)
	BuyNFT(ctx context.Context, saleID uint64, buyer string, amount decimal.Decimal) (*Settlement, error)
	FinalizeExpiredSale(ctx context.Context, saleID uint64) (*sales.Sale, error)
	Settle(ctx context.Context, saleID uint64) error
	SettleOverdue(ctx context.Context, limit int) (int, error)

	AdminCancelReserveSale(ctx context.Context, caller string, saleID uint64, reason string) (*CancelResult, error)
	AdminEmergencyWithdrawal(ctx context.Context, caller string, tokenIDs []string, destination string) error
	AdminUpdateTimeConfigs(ctx context.Context, caller string, cfg sales.TimingConfig) error
	AdminUpdateFeeConfigs(ctx context.Context, caller string, cfg fees.Config) error
	Settings() Settings
}

// Deps are the collaborators of the market service. Publisher and Timers are
// optional.
type Deps struct {
	Store     sales.Store
	Custody   Custody
	Treasury  Treasury
	Admins    AdminRegistry
	Clock     clock.Clock
	Publisher Publisher
	Timers    Timers

	// MarketplaceID is the custody identity holding listed tokens.
	MarketplaceID string
	Settings      Settings
}

// Service is the single-writer sale engine. Every mutating call holds mu for
// its whole duration and either commits fully or rolls back.
type Service struct {
	mu sync.Mutex

	store       sales.Store
	custody     Custody
	treasury    Treasury
	admins      AdminRegistry
	clock       clock.Clock
	pub         Publisher
	timers      Timers
	marketplace string

	cfgMu    sync.RWMutex
	settings Settings
}

var _ IMarketService = (*Service)(nil)

func NewService(d Deps) (*Service, error) {
	if d.Store == nil || d.Custody == nil || d.Treasury == nil || d.Admins == nil {
		return nil, errors.New("market: store, custody, treasury and admin registry are required")
	}
	if strings.TrimSpace(d.MarketplaceID) == "" {
		return nil, errors.New("market: marketplace identity is required")
	}
	if err := d.Settings.Validate(); err != nil {
		return nil, err
	}
	if d.Clock == nil {
		d.Clock = clock.System()
	}
	if d.Publisher == nil {
		d.Publisher = nopPublisher{}
	}
	if d.Timers == nil {
		d.Timers = nopTimers{}
	}
	return &Service{
		store:       d.Store,
		custody:     d.Custody,
		treasury:    d.Treasury,
		admins:      d.Admins,
		clock:       d.Clock,
		pub:         d.Publisher,
		timers:      d.Timers,
		marketplace: d.MarketplaceID,
		settings:    d.Settings,
	}, nil
}

func (svc *Service) Settings() Settings {
	svc.cfgMu.RLock()
	defer svc.cfgMu.RUnlock()
	return svc.settings
}

// run executes fn as one atomic operation.
func (svc *Service) run(ctx context.Context, op string, fn func(t *txn) error) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	t := &txn{ctx: ctx, op: op}
	if err := fn(t); err != nil {
		t.rollback()
		return err
	}
	if err := svc.store.Commit(ctx, t.batch); err != nil {
		t.rollback()
		zap.L().Error("market.commit_failed", zap.String("op", op), zap.Error(err))
		return fmt.Errorf("commit %s: %w", op, err)
	}
	svc.afterCommit(ctx, t.batch)
	return nil
}

// afterCommit fans out events and (re)arms settlement timers. Both are
// best effort: the ledger is already authoritative.
func (svc *Service) afterCommit(ctx context.Context, b sales.Batch) {
	if len(b.Events) > 0 {
		if err := svc.pub.Publish(ctx, b.Events); err != nil {
			zap.L().Warn("market.publish_failed", zap.Int("events", len(b.Events)), zap.Error(err))
		}
	}
	for _, s := range b.Sales {
		var err error
		if s.Status == sales.StatusOpen {
			err = svc.timers.Arm(ctx, s.ID, s.EndTime)
		} else {
			err = svc.timers.Disarm(ctx, s.ID)
		}
		if err != nil {
			zap.L().Warn("market.timer_failed", zap.Uint64("sale_id", s.ID), zap.Error(err))
		}
	}
}

func (svc *Service) load(ctx context.Context, id uint64) (*sales.Sale, error) {
	s, err := svc.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sales.ErrNotFound) {
			return nil, fmt.Errorf("%w: %d", sales.ErrNotFound, id)
		}
		return nil, fmt.Errorf("load sale %d: %w", id, err)
	}
	return s, nil
}

func (svc *Service) CreateSale(ctx context.Context, in CreateSaleInput) (*sales.Sale, error) {
	if strings.TrimSpace(in.Seller) == "" || strings.TrimSpace(in.TokenID) == "" {
		return nil, fmt.Errorf("%w: seller and token id are required", sales.ErrInvalidRequest)
	}
	if !in.Type.Valid() {
		return nil, fmt.Errorf("%w: %q", sales.ErrWrongSaleType, in.Type)
	}
	if !sales.ValidAmount(in.AskPrice) {
		return nil, fmt.Errorf("%w: ask price %s", sales.ErrInvalidAmount, in.AskPrice)
	}

	var created *sales.Sale
	err := svc.run(ctx, "create_sale", func(t *txn) error {
		cfg := svc.Settings()
		now := svc.clock.Now()
		start := normalize(in.StartTime)
		end := normalize(in.EndTime)
		if err := cfg.Timing.ValidateWindow(now, start, end); err != nil {
			return err
		}

		owner, err := svc.custody.OwnerOf(ctx, in.TokenID)
		if err != nil {
			return fmt.Errorf("owner of %s: %w", in.TokenID, err)
		}
		if owner != in.Seller {
			return fmt.Errorf("%w: %s does not hold %s", sales.ErrNotOwner, in.Seller, in.TokenID)
		}

		id, err := svc.store.NextID(ctx)
		if err != nil {
			return fmt.Errorf("next sale id: %w", err)
		}
		sale := &sales.Sale{
			ID:              id,
			Seller:          in.Seller,
			AskPrice:        in.AskPrice,
			ReceivedPrice:   decimal.Zero,
			TokenID:         in.TokenID,
			Type:            in.Type,
			Status:          sales.StatusOpen,
			StartTime:       start,
			EndTime:         end,
			MinBidIncrement: cfg.MinBidIncrement,
			CreatedAt:       now,
			UpdatedAt:       now,
			Version:         1,
		}
		if err := t.transfer(svc.custody, in.TokenID, in.Seller, svc.marketplace); err != nil {
			return err
		}
		t.put(sale, sales.SnapshotEvent(sales.EventSaleCreated, sale, in.Seller, now))
		created = sale
		return nil
	})
	if err != nil {
		return nil, err
	}
	zap.L().Info("sale_created",
		zap.Uint64("sale_id", created.ID),
		zap.String("token_id", created.TokenID),
		zap.String("type", string(created.Type)),
		zap.String("seller", created.Seller))
	return created, nil
}

func (svc *Service) UpdateSale(ctx context.Context, in UpdateSaleInput) (*sales.Sale, error) {
	if !sales.ValidAmount(in.AskPrice) {
		return nil, fmt.Errorf("%w: ask price %s", sales.ErrInvalidAmount, in.AskPrice)
	}

	var updated *sales.Sale
	err := svc.run(ctx, "update_sale", func(t *txn) error {
		sale, err := svc.load(ctx, in.SaleID)
		if err != nil {
			return err
		}
		if in.Caller != sale.Seller {
			return fmt.Errorf("%w: only the seller may update sale %d", sales.ErrUnauthorized, sale.ID)
		}
		if err := sale.RequireOpen(); err != nil {
			return err
		}
		cfg := svc.Settings()
		now := svc.clock.Now()
		if err := cfg.Timing.UpdatableAt(sale, now); err != nil {
			return err
		}
		if sale.HasBuyer() {
			return fmt.Errorf("%w: sale %d", sales.ErrSaleHasBuyer, sale.ID)
		}
		start := normalize(in.StartTime)
		end := normalize(in.EndTime)
		if err := cfg.Timing.ValidateWindow(now, start, end); err != nil {
			return err
		}

		sale.AskPrice = in.AskPrice
		sale.StartTime = start
		sale.EndTime = end
		sale.UpdatedAt = now
		sale.Version++
		t.put(sale, sales.SnapshotEvent(sales.EventSaleUpdated, sale, in.Caller, now))
		updated = sale
		return nil
	})
	if err != nil {
		return nil, err
	}
	zap.L().Info("sale_updated", zap.Uint64("sale_id", updated.ID), zap.Int("version", updated.Version))
	return updated, nil
}

func (svc *Service) GetSale(ctx context.Context, id uint64) (*sales.Sale, error) {
	return svc.load(ctx, id)
}

func (svc *Service) ListSales(ctx context.Context, f sales.Filter) ([]*sales.Sale, error) {
	if f.Limit == 0 {
		f.Limit = 10
	}
	if f.Status != "" && !f.Status.Valid() {
		return nil, fmt.Errorf("%w: status %q", sales.ErrInvalidRequest, f.Status)
	}
	return svc.store.List(ctx, f)
}

func (svc *Service) Events(ctx context.Context, id uint64) ([]sales.Event, error) {
	if _, err := svc.load(ctx, id); err != nil {
		return nil, err
	}
	return svc.store.Events(ctx, id)
}

// normalize drops sub-second precision so stored windows match what the
// clock reports.
func normalize(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}
