package treasury

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrUnknownReceipt = errors.New("unknown receipt")

// Entry is one accepted forward.
type Entry struct {
	Receipt  string          `json:"receipt"`
	Amount   decimal.Decimal `json:"amount"`
	Memo     string          `json:"memo"`
	At       time.Time       `json:"at"`
	Reverted bool            `json:"reverted"`
}

// Vault is an in-process treasury that keeps every forward it accepted.
type Vault struct {
	mu      sync.Mutex
	entries []*Entry
	byID    map[string]*Entry
}

func NewVault() *Vault {
	return &Vault{byID: map[string]*Entry{}}
}

func (v *Vault) ForwardFunds(_ context.Context, amount decimal.Decimal, memo string) (string, error) {
	if !amount.IsPositive() {
		return "", fmt.Errorf("treasury: amount must be positive, got %s", amount)
	}
	e := &Entry{Receipt: uuid.NewString(), Amount: amount, Memo: memo, At: time.Now().UTC()}
	v.mu.Lock()
	v.entries = append(v.entries, e)
	v.byID[e.Receipt] = e
	v.mu.Unlock()
	return e.Receipt, nil
}

func (v *Vault) RevertFunds(_ context.Context, receipt string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	e, ok := v.byID[receipt]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownReceipt, receipt)
	}
	e.Reverted = true
	return nil
}

// Balance is the sum of all forwards that were not reverted.
func (v *Vault) Balance() decimal.Decimal {
	v.mu.Lock()
	defer v.mu.Unlock()
	total := decimal.Zero
	for _, e := range v.entries {
		if !e.Reverted {
			total = total.Add(e.Amount)
		}
	}
	return total
}

func (v *Vault) Entries() []Entry {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]Entry, 0, len(v.entries))
	for _, e := range v.entries {
		out = append(out, *e)
	}
	return out
}
