package catalog

import (
	"context"
	"errors"

	"github.com/noah-isme/pizzeria-api/internal/resilience"
)

// GuardedLookup puts a circuit breaker in front of Next. Unknown references
// count as successful reads.
type GuardedLookup struct {
	Next    Lookup
	Breaker *resilience.Breaker
}

// Snapshot implements Lookup. It returns resilience.ErrOpenCircuit while the
// breaker is open.
func (l GuardedLookup) Snapshot(ctx context.Context, refs Refs) (*Snapshot, error) {
	if l.Next == nil {
		return nil, errors.New("catalog: lookup not configured")
	}
	if l.Breaker == nil {
		return l.Next.Snapshot(ctx, refs)
	}
	var snap *Snapshot
	err := l.Breaker.Do(ctx, func(ctx context.Context) error {
		var err error
		snap, err = l.Next.Snapshot(ctx, refs)
		return err
	}, func(err error) bool {
		return errors.Is(err, ErrUnknownReference)
	})
	return snap, err
}
