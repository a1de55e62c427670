package sales

import (
	"time"

	"github.com/shopspring/decimal"
)

type EventKind string

const (
	EventSaleCreated                EventKind = "SaleCreated"
	EventSaleUpdated                EventKind = "SaleUpdated"
	EventSaleClosed                 EventKind = "SaleClosed"
	EventReserveAuctionBidPlaced    EventKind = "ReserveAuctionBidPlaced"
	EventReserveSaleCanceledByAdmin EventKind = "ReserveSaleCanceledByAdmin"
	EventFundsWithdrawn             EventKind = "FundsWithdrawn"
)

// Event is one append-only audit record. Together the events of a sale carry
// enough to rebuild the sale from history alone.
type Event struct {
	Seq       uint64    `json:"seq"`
	Kind      EventKind `json:"kind"`
	SaleID    uint64    `json:"sale_id"`
	TokenID   string    `json:"token_id,omitempty"`
	Actor     string    `json:"actor,omitempty"`
	Seller    string    `json:"seller,omitempty"`
	Buyer     string    `json:"buyer,omitempty"`
	SaleType  Type      `json:"sale_type,omitempty"`
	Status    Status    `json:"status,omitempty"`
	StartTime time.Time `json:"start_time,omitzero"`
	EndTime   time.Time `json:"end_time,omitzero"`

	Amount         decimal.Decimal `json:"amount"`
	PrevBuyer      string          `json:"prev_buyer,omitempty"`
	PrevAmount     decimal.Decimal `json:"prev_amount"`
	MarketplaceFee decimal.Decimal `json:"marketplace_fee"`
	RoyaltyFee     decimal.Decimal `json:"royalty_fee"`
	RoyaltyTo      string          `json:"royalty_to,omitempty"`
	SellerProceeds decimal.Decimal `json:"seller_proceeds"`

	Destination string    `json:"destination,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	At          time.Time `json:"at"`
}

// SnapshotEvent builds an event of the given kind carrying the sale's
// current identities, window and prices.
func SnapshotEvent(kind EventKind, s *Sale, actor string, at time.Time) Event {
	return Event{
		Kind:      kind,
		SaleID:    s.ID,
		TokenID:   s.TokenID,
		Actor:     actor,
		Seller:    s.Seller,
		Buyer:     s.Buyer,
		SaleType:  s.Type,
		Status:    s.Status,
		StartTime: s.StartTime,
		EndTime:   s.EndTime,
		Amount:    s.AskPrice,
		At:        at,
	}
}
