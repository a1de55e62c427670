package ws

import (
	"sync"
)

// Hub keeps the connected clients of every sale room.
type Hub struct {
	rooms sync.Map // saleID -> *room
}

func NewHub() *Hub { return &Hub{} }

// Broadcast delivers msg to everyone watching saleID on this instance.
func (h *Hub) Broadcast(saleID uint64, msg []byte) {
	if v, ok := h.rooms.Load(saleID); ok {
		v.(*room).broadcast(msg)
	}
}

func (h *Hub) Join(saleID uint64, c *clientConn) {
	r, _ := h.rooms.LoadOrStore(saleID, newRoom(saleID))
	r.(*room).add(c)
}

// Leave removes c and drops the room once it is empty.
func (h *Hub) Leave(saleID uint64, c *clientConn) {
	v, ok := h.rooms.Load(saleID)
	if !ok {
		return
	}
	r := v.(*room)
	if r.remove(c) == 0 {
		h.rooms.CompareAndDelete(saleID, r)
	}
}

// Size reports how many clients watch saleID.
func (h *Hub) Size(saleID uint64) int {
	if v, ok := h.rooms.Load(saleID); ok {
		return v.(*room).size()
	}
	return 0
}
