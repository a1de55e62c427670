package expirywatcher

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"nftsalesgo/internal/redis/saletimer"
)

const lockTTL = 5 * time.Second

type Settler interface {
	Settle(ctx context.Context, saleID uint64) error
}

// Run listens to key-expiry events and settles the matching sales.
// Run must be started once at service boot.
func Run(ctx context.Context, rdb *redis.Client, svc Settler) {
	_ = rdb.ConfigSet(ctx, "notify-keyspace-events", "Ex").Err()
	ps := rdb.PSubscribe(ctx, "__keyevent@*__:expired")
	defer ps.Close()

	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-ch:
			if !ok {
				return
			}
			id, ok := saletimer.ParseKey(m.Payload)
			if !ok {
				continue
			}
			handle(ctx, rdb, svc, id)
		}
	}
}

// handle settles one sale under a short distributed lock so that several
// instances receiving the same notification do not race.
func handle(ctx context.Context, rdb *redis.Client, svc Settler, saleID uint64) {
	lockKey := "sale_lock:" + strconv.FormatUint(saleID, 10)
	ok, err := rdb.SetNX(ctx, lockKey, 1, lockTTL).Result()
	if err != nil {
		zap.L().Warn("expirywatcher.lock", zap.Uint64("sale_id", saleID), zap.Error(err))
		return
	}
	if !ok {
		return // another instance is already settling this sale
	}
	defer rdb.Del(ctx, lockKey)

	if err := svc.Settle(ctx, saleID); err != nil {
		zap.L().Error("expirywatcher.settle", zap.Uint64("sale_id", saleID), zap.Error(err))
	}
}
