package sales

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type Type string

const (
	TypeAuction Type = "AUCTION"
	TypeDirect  Type = "DIRECT"
)

func (t Type) Valid() bool { return t == TypeAuction || t == TypeDirect }

type Status string

const (
	StatusOpen      Status = "OPEN"
	StatusClosed    Status = "CLOSED"
	StatusCancelled Status = "CANCELLED"
)

func (s Status) Valid() bool {
	return s == StatusOpen || s == StatusClosed || s == StatusCancelled
}

// MaxFractionDigits bounds the precision of any amount accepted by the ledger.
const MaxFractionDigits int32 = 18

// Sale is one listing. Closed and cancelled sales are kept as history.
type Sale struct {
	ID              uint64          `json:"id"`
	Seller          string          `json:"seller"`
	Buyer           string          `json:"buyer,omitempty"`
	AskPrice        decimal.Decimal `json:"ask_price"`
	ReceivedPrice   decimal.Decimal `json:"received_price"`
	TokenID         string          `json:"token_id"`
	Type            Type            `json:"sale_type"   example:"AUCTION"`
	Status          Status          `json:"status"      example:"OPEN"`
	StartTime       time.Time       `json:"start_time"  example:"2025-07-27T16:05:05Z"`
	EndTime         time.Time       `json:"end_time"    example:"2025-07-27T18:05:05Z"`
	MinBidIncrement decimal.Decimal `json:"min_bid_increment"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	Version         int             `json:"version"`
}

// Clone returns a copy safe to mutate without touching the stored record.
func (s *Sale) Clone() *Sale {
	c := *s
	return &c
}

func (s *Sale) HasBuyer() bool { return s.Buyer != "" }

// SetStatus applies a status transition. Only OPEN -> CLOSED and
// OPEN -> CANCELLED are allowed.
func (s *Sale) SetStatus(next Status) error {
	if s.Status != StatusOpen {
		return fmt.Errorf("%w: sale %d is %s", ErrSaleNotOpen, s.ID, s.Status)
	}
	if next != StatusClosed && next != StatusCancelled {
		return fmt.Errorf("%w: cannot move sale %d to %s", ErrSaleNotOpen, s.ID, next)
	}
	s.Status = next
	return nil
}

// RequireOpen fails with ErrSaleNotOpen unless the sale is OPEN.
func (s *Sale) RequireOpen() error {
	if s.Status != StatusOpen {
		return fmt.Errorf("%w: sale %d is %s", ErrSaleNotOpen, s.ID, s.Status)
	}
	return nil
}

// ActiveAt reports ErrNotStarted / ErrEnded for purchase and bid windows,
// which are [StartTime, EndTime).
func (s *Sale) ActiveAt(now time.Time) error {
	if now.Before(s.StartTime) {
		return fmt.Errorf("%w: sale %d starts at %s", ErrNotStarted, s.ID, s.StartTime.Format(time.RFC3339))
	}
	if !now.Before(s.EndTime) {
		return fmt.Errorf("%w: sale %d ended at %s", ErrEnded, s.ID, s.EndTime.Format(time.RFC3339))
	}
	return nil
}

// ValidAmount reports whether d is positive and representable in the
// smallest currency unit.
func ValidAmount(d decimal.Decimal) bool {
	return d.IsPositive() && d.Equal(d.Truncate(MaxFractionDigits))
}
