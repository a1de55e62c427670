package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"nftsalesgo/internal/redis/eventbus"
)

// subscriptionManager holds exactly one Redis subscription per sale channel,
// however many local clients watch that sale.
type subscriptionManager struct {
	rdb  *redis.Client
	hub  *Hub
	mu   sync.Mutex
	subs map[uint64]*subEntry
}

type subEntry struct {
	refCnt int
	cancel context.CancelFunc
}

func newSubscriptionManager(rdb *redis.Client, hub *Hub) *subscriptionManager {
	return &subscriptionManager{
		rdb:  rdb,
		hub:  hub,
		subs: make(map[uint64]*subEntry),
	}
}

func (sm *subscriptionManager) Subscribe(saleID uint64) {
	sm.mu.Lock()
	if e, ok := sm.subs[saleID]; ok {
		e.refCnt++
		sm.mu.Unlock()
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	ps := sm.rdb.Subscribe(ctx, eventbus.Channel(saleID))
	sm.subs[saleID] = &subEntry{refCnt: 1, cancel: cancel}
	sm.mu.Unlock()

	go func() {
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
				wrapped, err := wrapSaleEvent(m.Payload)
				if err != nil {
					zap.L().Warn("ws.wrap_event_failed", zap.Uint64("sale_id", saleID), zap.Error(err))
					continue
				}
				sm.hub.Broadcast(saleID, wrapped)
			}
		}
	}()
}

// Unsubscribe tears the Redis subscription down when the last local client
// of the sale leaves.
func (sm *subscriptionManager) Unsubscribe(saleID uint64) {
	sm.mu.Lock()
	e, ok := sm.subs[saleID]
	if !ok {
		sm.mu.Unlock()
		return
	}
	e.refCnt--
	if e.refCnt > 0 {
		sm.mu.Unlock()
		return
	}
	delete(sm.subs, saleID)
	sm.mu.Unlock()

	e.cancel()
}

// wrapSaleEvent turns a published sale event
//
//	{"kind":"ReserveAuctionBidPlaced","sale_id":7,…}
//
// into the client envelope
//
//	{"event":"sales/ReserveAuctionBidPlaced","body":{"sale_id":7,…}}
func wrapSaleEvent(payload string) ([]byte, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return nil, err
	}

	kind := "unknown"
	if k, ok := raw["kind"]; ok {
		var s string
		if err := json.Unmarshal(k, &s); err == nil && s != "" {
			kind = s
		}
		delete(raw, "kind")
	}

	body, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: EventPrefix + kind, Body: body})
}
