package access

import (
	"context"
	"strings"
	"sync"
)

// StaticRegistry grants the admin credential to a fixed set of identities,
// normally loaded from ADMIN_IDS.
type StaticRegistry struct {
	mu     sync.RWMutex
	admins map[string]struct{}
}

func NewStaticRegistry(ids ...string) *StaticRegistry {
	r := &StaticRegistry{admins: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		r.Grant(id)
	}
	return r
}

func (r *StaticRegistry) IsAdmin(_ context.Context, identity string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.admins[identity]
	return ok, nil
}

func (r *StaticRegistry) Grant(identity string) {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return
	}
	r.mu.Lock()
	r.admins[identity] = struct{}{}
	r.mu.Unlock()
}

func (r *StaticRegistry) Revoke(identity string) {
	r.mu.Lock()
	delete(r.admins, identity)
	r.mu.Unlock()
}
