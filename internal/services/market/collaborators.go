package market

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"nftsalesgo/internal/sales"
)

// Custody is the asset ownership registry.
type Custody interface {
	OwnerOf(ctx context.Context, tokenID string) (string, error)
	// TransferCustody fails if from does not hold tokenID.
	TransferCustody(ctx context.Context, tokenID, from, to string) error
	RoyaltyInfo(ctx context.Context, tokenID string) (recipient string, rateBps int64, err error)
}

// Treasury accumulates collected fees. RevertFunds undoes a forward whose
// enclosing operation failed afterwards.
type Treasury interface {
	ForwardFunds(ctx context.Context, amount decimal.Decimal, memo string) (receipt string, err error)
	RevertFunds(ctx context.Context, receipt string) error
}

// AdminRegistry answers whether an identity holds the admin credential.
type AdminRegistry interface {
	IsAdmin(ctx context.Context, identity string) (bool, error)
}

// Publisher fans committed events out to off-chain consumers.
type Publisher interface {
	Publish(ctx context.Context, events []sales.Event) error
}

// Timers schedules settlement of a sale once its window has elapsed.
type Timers interface {
	Arm(ctx context.Context, saleID uint64, endTime time.Time) error
	Disarm(ctx context.Context, saleID uint64) error
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, []sales.Event) error { return nil }

type nopTimers struct{}

func (nopTimers) Arm(context.Context, uint64, time.Time) error { return nil }
func (nopTimers) Disarm(context.Context, uint64) error         { return nil }
