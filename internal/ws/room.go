package ws

import (
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// room holds the watchers of one sale on this instance.
type room struct {
	saleID uint64

	mu       sync.RWMutex
	watchers map[*clientConn]struct{}
}

func newRoom(saleID uint64) *room {
	return &room{saleID: saleID, watchers: map[*clientConn]struct{}{}}
}

func (r *room) add(c *clientConn) {
	r.mu.Lock()
	r.watchers[c] = struct{}{}
	r.mu.Unlock()
}

// remove closes c and returns how many watchers are left.
func (r *room) remove(c *clientConn) int {
	r.mu.Lock()
	delete(r.watchers, c)
	left := len(r.watchers)
	r.mu.Unlock()

	_ = c.rawConn.Close()
	return left
}

func (r *room) size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.watchers)
}

func (r *room) snapshot() []*clientConn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*clientConn, 0, len(r.watchers))
	for c := range r.watchers {
		out = append(out, c)
	}
	return out
}

// broadcast writes a sale frame to every watcher. A watcher whose write
// fails is dropped from the room.
func (r *room) broadcast(frame []byte) {
	for _, c := range r.snapshot() {
		if err := c.write(websocket.TextMessage, frame); err != nil {
			zap.L().Debug("ws.watcher_dropped",
				zap.Uint64("sale_id", r.saleID),
				zap.String("user_id", c.userID),
				zap.Error(err))
			r.remove(c)
		}
	}
}
