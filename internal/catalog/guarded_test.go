package catalog_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pizzeria-api/internal/catalog"
	ct "github.com/noah-isme/pizzeria-api/internal/catalog/catalogtest"
	"github.com/noah-isme/pizzeria-api/internal/resilience"
)

func TestGuardedLookupOpensAfterFailures(t *testing.T) {
	inner := ct.NewLookup(ct.Demo())
	inner.FailWith(errors.New("connection refused"))
	guarded := catalog.GuardedLookup{
		Next:    inner,
		Breaker: resilience.NewBreaker(2, 0.5, time.Minute).WithTarget("catalog_test_open"),
	}
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := guarded.Snapshot(ctx, catalog.Refs{})
		require.EqualError(t, err, "connection refused")
	}
	_, err := guarded.Snapshot(ctx, catalog.Refs{})
	require.ErrorIs(t, err, resilience.ErrOpenCircuit)
	require.Equal(t, 2, inner.Calls())
}

func TestGuardedLookupIgnoresUnknownReferences(t *testing.T) {
	inner := ct.NewLookup(ct.Demo())
	inner.FailWith(&catalog.UnknownReferenceError{Kind: catalog.KindTopping, ID: "top-missing"})
	guarded := catalog.GuardedLookup{
		Next:    inner,
		Breaker: resilience.NewBreaker(1, 0.5, time.Minute).WithTarget("catalog_test_unknown"),
	}
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := guarded.Snapshot(ctx, catalog.Refs{})
		require.ErrorIs(t, err, catalog.ErrUnknownReference)
	}
	require.Equal(t, 3, inner.Calls())
}

func TestGuardedLookupCancelledTrialReadDoesNotWedgeBreaker(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	inner := ct.NewLookup(ct.Demo())
	breaker := resilience.NewBreaker(1, 0.5, time.Minute).
		WithClock(func() time.Time { return now }).
		WithTarget("catalog_test_cancel")
	guarded := catalog.GuardedLookup{Next: inner, Breaker: breaker}
	ctx := context.Background()

	inner.FailWith(errors.New("db down"))
	_, err := guarded.Snapshot(ctx, catalog.Refs{})
	require.Error(t, err)
	require.Equal(t, resilience.Open, breaker.State())

	now = now.Add(time.Minute)
	inner.FailWith(context.Canceled)
	_, err = guarded.Snapshot(ctx, catalog.Refs{})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, resilience.HalfOpen, breaker.State())

	inner.FailWith(nil)
	snap, err := guarded.Snapshot(ctx, catalog.Refs{})
	require.NoError(t, err)
	require.NotNil(t, snap)
	require.Equal(t, resilience.Closed, breaker.State())
}

func TestGuardedLookupWithoutBreaker(t *testing.T) {
	guarded := catalog.GuardedLookup{Next: ct.NewLookup(ct.Demo())}
	snap, err := guarded.Snapshot(context.Background(), catalog.Refs{})
	require.NoError(t, err)
	require.Contains(t, snap.Sizes, ct.SizeMedium)
}
