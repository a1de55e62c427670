package ws

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"nftsalesgo/internal/sales"
)

const (
	EventPrefix   = "sales/"
	EventBid      = EventPrefix + "bid"
	EventBuy      = EventPrefix + "buy"
	EventSnapshot = EventPrefix + "snapshot"
	EventError    = "error"

	AckSuffix = "-ack"
)

// Envelope wraps every WS frame.
type Envelope struct {
	Event string          `json:"event"`
	Body  json.RawMessage `json:"body,omitempty"`
}

// AmountRequest is the body of "sales/bid" and "sales/buy".
type AmountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// Validate rejects amounts the ledger cannot hold before they reach the
// service.
func (r AmountRequest) Validate() error {
	if !sales.ValidAmount(r.Amount) {
		return fmt.Errorf("%w: %s", sales.ErrInvalidAmount, r.Amount)
	}
	return nil
}

// Reply is an outbound frame.
type Reply struct {
	Event string `json:"event"`
	Body  any    `json:"body,omitempty"`
}

type AckBody struct{}

type ErrorBody struct {
	Error string `json:"error"`
}

// ConnContext identifies the sale room and user behind one connection.
type ConnContext struct {
	SaleID uint64
	UserID string
}
