package sweeper

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const batchSize = 100

type OverdueSettler interface {
	SettleOverdue(ctx context.Context, limit int) (int, error)
}

// Run settles overdue open sales every interval. Keyspace notifications are
// fire-and-forget, so this loop picks up whatever the watcher missed.
func Run(ctx context.Context, svc OverdueSettler, interval time.Duration) {
	tk := time.NewTicker(interval)
	go func() {
		defer tk.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-tk.C:
				sweepOnce(ctx, svc)
			}
		}
	}()
}

func sweepOnce(ctx context.Context, svc OverdueSettler) int {
	n, err := svc.SettleOverdue(ctx, batchSize)
	if err != nil {
		zap.L().Error("sweeper.settle_overdue", zap.Error(err))
		return 0
	}
	if n > 0 {
		zap.L().Info("sweeper.settled", zap.Int("count", n))
	}
	return n
}
