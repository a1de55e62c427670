package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"nftsalesgo/internal/sales"
)

const (
	// Stream is the durable, trimmed copy of every event for off-chain
	// indexers.
	Stream = "sale_events"

	streamMaxLen = 100_000
)

// Channel is the pub/sub channel live subscribers of one sale listen on.
func Channel(saleID uint64) string {
	return "sale:" + strconv.FormatUint(saleID, 10) + ":events"
}

// Bus publishes committed events to a Redis stream and to the per-sale
// pub/sub channel.
type Bus struct {
	rdc *redis.Client
}

func New(rdc *redis.Client) *Bus { return &Bus{rdc: rdc} }

func (b *Bus) Publish(ctx context.Context, events []sales.Event) error {
	for _, e := range events {
		payload, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("encode %s: %w", e.Kind, err)
		}
		if err := b.rdc.XAdd(ctx, &redis.XAddArgs{
			Stream: Stream,
			MaxLen: streamMaxLen,
			Approx: true,
			Values: []any{"sale_id", strconv.FormatUint(e.SaleID, 10), "kind", string(e.Kind), "payload", string(payload)},
		}).Err(); err != nil {
			return fmt.Errorf("xadd %s: %w", e.Kind, err)
		}
		if e.SaleID == 0 {
			continue
		}
		if err := b.rdc.Publish(ctx, Channel(e.SaleID), payload).Err(); err != nil {
			return fmt.Errorf("publish %s: %w", e.Kind, err)
		}
	}
	return nil
}
