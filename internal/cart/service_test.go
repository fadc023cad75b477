package cart_test

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pizzeria-api/internal/cart"
	"github.com/noah-isme/pizzeria-api/internal/catalog"
	ct "github.com/noah-isme/pizzeria-api/internal/catalog/catalogtest"
	"github.com/noah-isme/pizzeria-api/internal/configurator"
	"github.com/noah-isme/pizzeria-api/internal/lock"
	"github.com/noah-isme/pizzeria-api/internal/money"
	"github.com/noah-isme/pizzeria-api/internal/reprice"
)

type fixture struct {
	svc    *cart.Service
	lookup *ct.Lookup
	mr     *miniredis.Miniredis
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	lookup := ct.NewLookup(ct.Demo())
	svc, err := cart.NewService(cart.Config{
		Store:    cart.RedisStore{R: client, TTL: time.Hour},
		Locker:   lock.Locker{R: client, RetryBackoff: time.Millisecond},
		Pricer:   reprice.NewService(reprice.Config{Lookup: lookup, Epsilon: 1, Logger: zerolog.Nop()}),
		TaxBps:   1000,
		Currency: "USD",
		Logger:   zerolog.Nop(),
	})
	require.NoError(t, err)
	return fixture{svc: svc, lookup: lookup, mr: mr}
}

func pepperoni() configurator.Line {
	return configurator.PizzaLine(configurator.PizzaConfiguration{
		SizeID:   ct.SizeMedium,
		CrustID:  ct.CrustThin,
		SauceID:  ct.SauceMarinara,
		Toppings: []configurator.ToppingPlacement{{ToppingID: ct.ToppingPepperoni}},
	})
}

func TestCartLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx)
	require.NoError(t, err)
	require.True(t, f.mr.Exists("cart:"+created.Cart.ID))
	require.Equal(t, time.Hour, f.mr.TTL("cart:"+created.Cart.ID))

	view, lineID, err := f.svc.AddLine(ctx, created.Cart.ID, pepperoni(), 2, " extra crispy ")
	require.NoError(t, err)
	require.NotEmpty(t, lineID)
	require.Len(t, view.Lines, 1)
	require.Equal(t, money.Money(1400), view.Lines[0].UnitPriceSnapshot)
	require.Equal(t, "extra crispy", view.Lines[0].Notes)
	require.Equal(t, money.Money(2800), view.Summary.Subtotal)
	require.Equal(t, money.Money(280), view.Summary.Tax)
	require.Equal(t, money.Money(3080), view.Summary.Total)
	require.False(t, view.HasIssues)

	qty := 3
	view, err = f.svc.UpdateLine(ctx, created.Cart.ID, lineID, &qty, nil)
	require.NoError(t, err)
	require.Equal(t, money.Money(4200), view.Summary.Subtotal)

	view, err = f.svc.RemoveLine(ctx, created.Cart.ID, lineID)
	require.NoError(t, err)
	require.Empty(t, view.Lines)
	require.Zero(t, view.Summary.Total)

	_, err = f.svc.RemoveLine(ctx, created.Cart.ID, lineID)
	require.ErrorIs(t, err, cart.ErrLineNotFound)
}

func TestAddLineRejectsInvalidConfiguration(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created, err := f.svc.Create(ctx)
	require.NoError(t, err)

	broken := configurator.PizzaLine(configurator.PizzaConfiguration{SizeID: ct.SizeMedium})
	_, _, err = f.svc.AddLine(ctx, created.Cart.ID, broken, 1, "")
	require.ErrorIs(t, err, configurator.ErrInvalidConfiguration)

	_, _, err = f.svc.AddLine(ctx, created.Cart.ID, pepperoni(), 0, "")
	require.ErrorIs(t, err, cart.ErrInvalidInput)

	stored, err := f.svc.Load(ctx, created.Cart.ID)
	require.NoError(t, err)
	require.Empty(t, stored.Lines)
}

func TestViewRefreshesSnapshotsAndFlagsChanges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created, err := f.svc.Create(ctx)
	require.NoError(t, err)
	_, lineID, err := f.svc.AddLine(ctx, created.Cart.ID, pepperoni(), 1, "")
	require.NoError(t, err)

	f.lookup.Update(func(s *catalog.Snapshot) {
		top := s.Toppings[ct.ToppingPepperoni]
		top.Price = 300
		s.Toppings[ct.ToppingPepperoni] = top
	})

	view, err := f.svc.View(ctx, created.Cart.ID)
	require.NoError(t, err)
	require.True(t, view.HasIssues)
	require.True(t, view.Lines[0].PriceChanged)
	require.Equal(t, money.Money(1400), view.Lines[0].PreviousUnitPrice)
	require.Equal(t, money.Money(1500), view.Lines[0].UnitPriceSnapshot)

	stored, err := f.svc.Load(ctx, created.Cart.ID)
	require.NoError(t, err)
	require.Equal(t, lineID, stored.Lines[0].ID)
	require.Equal(t, money.Money(1500), stored.Lines[0].UnitPriceSnapshot)

	view, err = f.svc.View(ctx, created.Cart.ID)
	require.NoError(t, err)
	require.False(t, view.Lines[0].PriceChanged)
}

func TestViewMarksUnavailableLines(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created, err := f.svc.Create(ctx)
	require.NoError(t, err)
	_, _, err = f.svc.AddLine(ctx, created.Cart.ID, pepperoni(), 1, "")
	require.NoError(t, err)

	f.lookup.Update(func(s *catalog.Snapshot) {
		delete(s.Toppings, ct.ToppingPepperoni)
	})
	view, err := f.svc.View(ctx, created.Cart.ID)
	require.NoError(t, err)
	require.True(t, view.Lines[0].Unavailable)
	require.ErrorIs(t, view.Lines[0].Err, catalog.ErrUnknownReference)
	require.Zero(t, view.Summary.Subtotal, "unpriceable lines never count as zero-priced items")
	require.Equal(t, money.Money(1400), view.Lines[0].UnitPriceSnapshot)
}

func TestMissingCart(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.View(context.Background(), "nope")
	require.ErrorIs(t, err, cart.ErrNotFound)
}

func TestCartExpiresAfterTTL(t *testing.T) {
	f := newFixture(t)
	created, err := f.svc.Create(context.Background())
	require.NoError(t, err)
	f.mr.FastForward(2 * time.Hour)
	_, err = f.svc.View(context.Background(), created.Cart.ID)
	require.ErrorIs(t, err, cart.ErrNotFound)
}
