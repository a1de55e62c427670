package saletimer

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"nftsalesgo/internal/clock"
)

const KeyPrefix = "sale_t:"

// grace keeps the key alive past EndTime so that settlement, which requires
// now > EndTime, never fires on the boundary second.
const grace = time.Second

func Key(saleID uint64) string {
	return KeyPrefix + strconv.FormatUint(saleID, 10)
}

// ParseKey extracts the sale id from an expired timer key.
func ParseKey(key string) (uint64, bool) {
	if !strings.HasPrefix(key, KeyPrefix) {
		return 0, false
	}
	id, err := strconv.ParseUint(strings.TrimPrefix(key, KeyPrefix), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// Timers arms one expiring key per open sale; expirywatcher settles the sale
// when the key expires.
type Timers struct {
	rdc   *redis.Client
	clock clock.Clock
}

func New(rdc *redis.Client, clk clock.Clock) *Timers {
	return &Timers{rdc: rdc, clock: clk}
}

func (t *Timers) Arm(ctx context.Context, saleID uint64, endTime time.Time) error {
	ttl := endTime.Add(grace).Sub(t.clock.Now())
	if ttl < time.Second {
		ttl = time.Second
	}
	return t.rdc.Set(ctx, Key(saleID), endTime.Unix(), ttl).Err()
}

func (t *Timers) Disarm(ctx context.Context, saleID uint64) error {
	return t.rdc.Del(ctx, Key(saleID)).Err()
}
