package market

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"nftsalesgo/internal/sales"
)

// txn stages one operation: external side effects are applied immediately and
// paired with an undo step; ledger writes are buffered in batch and committed
// last. rollback replays the undo steps newest first.
type txn struct {
	ctx   context.Context
	op    string
	undo  []func(context.Context) error
	batch sales.Batch
}

func (t *txn) transfer(c Custody, tokenID, from, to string) error {
	if err := c.TransferCustody(t.ctx, tokenID, from, to); err != nil {
		return fmt.Errorf("transfer %s from %s to %s: %w", tokenID, from, to, err)
	}
	t.undo = append(t.undo, func(ctx context.Context) error {
		return c.TransferCustody(ctx, tokenID, to, from)
	})
	return nil
}

// forward sends amount to the treasury. Zero amounts are skipped and yield
// an empty receipt.
func (t *txn) forward(tr Treasury, amount decimal.Decimal, memo string) (string, error) {
	if amount.IsZero() {
		return "", nil
	}
	receipt, err := tr.ForwardFunds(t.ctx, amount, memo)
	if err != nil {
		return "", fmt.Errorf("forward funds (%s): %w", memo, err)
	}
	t.undo = append(t.undo, func(ctx context.Context) error {
		return tr.RevertFunds(ctx, receipt)
	})
	return receipt, nil
}

func (t *txn) put(s *sales.Sale, events ...sales.Event) {
	t.batch.Sales = append(t.batch.Sales, s)
	t.batch.Events = append(t.batch.Events, events...)
}

func (t *txn) emit(events ...sales.Event) {
	t.batch.Events = append(t.batch.Events, events...)
}

func (t *txn) rollback() {
	// undo must run even when the caller's context is already cancelled
	ctx := context.WithoutCancel(t.ctx)
	for i := len(t.undo) - 1; i >= 0; i-- {
		if err := t.undo[i](ctx); err != nil {
			zap.L().Error("market.rollback_step_failed",
				zap.String("op", t.op), zap.Int("step", i), zap.Error(err))
		}
	}
	t.undo = nil
}
