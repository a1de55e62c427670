package custody

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
)

var (
	ErrUnknownToken = errors.New("unknown token")
	ErrNotHolder    = errors.New("sender does not hold token")
)

type token struct {
	owner      string
	creator    string
	royaltyBps int64
}

// Registry is an in-process ownership registry used in development mode and
// in tests.
type Registry struct {
	mu     sync.RWMutex
	tokens map[string]*token
}

func NewRegistry() *Registry {
	return &Registry{tokens: map[string]*token{}}
}

// Mint registers tokenID owned by creator, with the creator as royalty
// recipient.
func (r *Registry) Mint(tokenID, creator string, royaltyBps int64) {
	r.mu.Lock()
	r.tokens[tokenID] = &token{owner: creator, creator: creator, royaltyBps: royaltyBps}
	r.mu.Unlock()
}

// Seed mints tokens described as "tokenID:creator:royaltyBps".
func (r *Registry) Seed(entries []string) error {
	for _, e := range entries {
		parts := strings.Split(strings.TrimSpace(e), ":")
		if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
			return fmt.Errorf("custody seed %q: want tokenID:creator:royaltyBps", e)
		}
		bps, err := strconv.ParseInt(parts[2], 10, 64)
		if err != nil {
			return fmt.Errorf("custody seed %q: %w", e, err)
		}
		r.Mint(parts[0], parts[1], bps)
	}
	return nil
}

func (r *Registry) OwnerOf(_ context.Context, tokenID string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tokens[tokenID]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownToken, tokenID)
	}
	return t.owner, nil
}

func (r *Registry) TransferCustody(_ context.Context, tokenID, from, to string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[tokenID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownToken, tokenID)
	}
	if t.owner != from {
		return fmt.Errorf("%w: %s holds %s, not %s", ErrNotHolder, t.owner, tokenID, from)
	}
	t.owner = to
	return nil
}

func (r *Registry) RoyaltyInfo(_ context.Context, tokenID string) (string, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tokens[tokenID]
	if !ok {
		return "", 0, fmt.Errorf("%w: %s", ErrUnknownToken, tokenID)
	}
	return t.creator, t.royaltyBps, nil
}
