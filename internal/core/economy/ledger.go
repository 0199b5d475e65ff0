package economy

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/zeusync/hexkernel/internal/core/errs"
)

// Ledger is the authoritative resource state. It is owned by the actor and is
// not safe for concurrent use.
type Ledger struct {
	buckets [ResourceCount]Bucket
	rates   [ResourceCount]decimal.Decimal
}

func NewLedger(initial, capacity decimal.Decimal) *Ledger {
	l := &Ledger{}
	for r := range l.buckets {
		l.buckets[r] = Bucket{Current: clamp(initial, decimal.Zero, capacity), Cap: capacity}
	}
	return l
}

func (l *Ledger) Bucket(r Resource) Bucket {
	return l.buckets[r]
}

func (l *Ledger) Buckets() [ResourceCount]Bucket {
	return l.buckets
}

// Rate is the last net rate reported by the economy worker.
func (l *Ledger) Rate(r Resource) decimal.Decimal {
	return l.rates[r]
}

// Add changes r by amount, clamped to [0, cap], and returns the new stock.
func (l *Ledger) Add(r Resource, amount decimal.Decimal) decimal.Decimal {
	b := &l.buckets[r]
	b.Current = clamp(b.Current.Add(amount), decimal.Zero, b.Cap)
	return b.Current
}

// Spend deducts every cost or none of them.
func (l *Ledger) Spend(cost map[Resource]decimal.Decimal) error {
	for r, amount := range cost {
		if !r.Valid() {
			return fmt.Errorf("%w: %s", errs.ErrValidation, r)
		}
		if amount.IsNegative() {
			return fmt.Errorf("%w: negative cost %s for %s", errs.ErrValidation, amount, r)
		}
		if l.buckets[r].Current.LessThan(amount) {
			return fmt.Errorf("%w: need %s %s, have %s", errs.ErrResourceExhausted, amount, r, l.buckets[r].Current)
		}
	}
	for r, amount := range cost {
		l.buckets[r].Current = l.buckets[r].Current.Sub(amount)
	}
	return nil
}

// Apply folds a worker change into the ledger. Only the worker's delta is
// applied, so spends that happened after the work item was built survive.
func (l *Ledger) Apply(c Change) decimal.Decimal {
	delta := c.Current.Sub(c.Base)
	l.rates[c.Resource] = c.Rate
	return l.Add(c.Resource, delta)
}
