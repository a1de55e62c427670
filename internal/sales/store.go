package sales

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Filter narrows ListSales. Zero values match everything.
type Filter struct {
	Status Status
	Seller string
	Limit  int
	Offset int
}

// Batch is everything one operation writes to the ledger. It is committed
// all-or-nothing.
type Batch struct {
	Sales  []*Sale
	Events []Event
}

// Store is the authoritative SaleLedger table plus its audit log.
type Store interface {
	NextID(ctx context.Context) (uint64, error)
	Get(ctx context.Context, id uint64) (*Sale, error)
	List(ctx context.Context, f Filter) ([]*Sale, error)
	// OpenByToken returns the OPEN sale holding tokenID, or ErrNotFound.
	OpenByToken(ctx context.Context, tokenID string) (*Sale, error)
	// Overdue returns OPEN sales whose EndTime is before the given unix second.
	Overdue(ctx context.Context, before int64, limit int) ([]*Sale, error)
	Commit(ctx context.Context, b Batch) error
	Events(ctx context.Context, saleID uint64) ([]Event, error)
}

// MemoryStore keeps the ledger in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	lastID uint64
	m      map[uint64]*Sale
	events []Event
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{m: map[uint64]*Sale{}}
}

func (ms *MemoryStore) NextID(_ context.Context) (uint64, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.lastID++
	return ms.lastID, nil
}

func (ms *MemoryStore) Get(_ context.Context, id uint64) (*Sale, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	s, ok := ms.m[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s.Clone(), nil
}

func (ms *MemoryStore) List(_ context.Context, f Filter) ([]*Sale, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	out := make([]*Sale, 0, len(ms.m))
	for _, s := range ms.m {
		if f.Status != "" && s.Status != f.Status {
			continue
		}
		if f.Seller != "" && s.Seller != f.Seller {
			continue
		}
		out = append(out, s.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })

	if f.Offset >= len(out) {
		return []*Sale{}, nil
	}
	out = out[f.Offset:]
	if f.Limit > 0 && f.Limit < len(out) {
		out = out[:f.Limit]
	}
	return out, nil
}

func (ms *MemoryStore) OpenByToken(_ context.Context, tokenID string) (*Sale, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	for _, s := range ms.m {
		if s.TokenID == tokenID && s.Status == StatusOpen {
			return s.Clone(), nil
		}
	}
	return nil, ErrNotFound
}

func (ms *MemoryStore) Overdue(_ context.Context, before int64, limit int) ([]*Sale, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	var out []*Sale
	for _, s := range ms.m {
		if s.Status == StatusOpen && s.EndTime.Unix() < before {
			out = append(out, s.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EndTime.Before(out[j].EndTime) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Commit applies the same rules as the Postgres schema: an existing sale
// must advance exactly one version and a token backs at most one open sale.
func (ms *MemoryStore) Commit(_ context.Context, b Batch) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	staged := make(map[uint64]*Sale, len(b.Sales))
	for _, s := range b.Sales {
		if prev, ok := ms.m[s.ID]; ok && prev.Version+1 != s.Version {
			return fmt.Errorf("%w: sale %d at version %d", ErrStaleSale, s.ID, s.Version)
		}
		staged[s.ID] = s
	}
	for _, s := range b.Sales {
		if s.Status != StatusOpen {
			continue
		}
		for id, other := range ms.m {
			if st, ok := staged[id]; ok {
				other = st
			}
			if id != s.ID && other.TokenID == s.TokenID && other.Status == StatusOpen {
				return fmt.Errorf("%w: %s (sale %d)", ErrTokenListed, s.TokenID, id)
			}
		}
		for id, other := range staged {
			if _, stored := ms.m[id]; !stored && id != s.ID && other.TokenID == s.TokenID && other.Status == StatusOpen {
				return fmt.Errorf("%w: %s (sale %d)", ErrTokenListed, s.TokenID, id)
			}
		}
	}

	for _, s := range b.Sales {
		ms.m[s.ID] = s.Clone()
	}
	for i := range b.Events {
		b.Events[i].Seq = uint64(len(ms.events) + 1)
		ms.events = append(ms.events, b.Events[i])
	}
	return nil
}

func (ms *MemoryStore) Events(_ context.Context, saleID uint64) ([]Event, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	out := []Event{}
	for _, e := range ms.events {
		if e.SaleID == saleID {
			out = append(out, e)
		}
	}
	return out, nil
}
