package checkout_test

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pizzeria-api/internal/cart"
	"github.com/noah-isme/pizzeria-api/internal/catalog"
	ct "github.com/noah-isme/pizzeria-api/internal/catalog/catalogtest"
	"github.com/noah-isme/pizzeria-api/internal/checkout"
	"github.com/noah-isme/pizzeria-api/internal/common"
	"github.com/noah-isme/pizzeria-api/internal/configurator"
	"github.com/noah-isme/pizzeria-api/internal/lock"
	"github.com/noah-isme/pizzeria-api/internal/money"
	"github.com/noah-isme/pizzeria-api/internal/order"
	"github.com/noah-isme/pizzeria-api/internal/order/ordertest"
	"github.com/noah-isme/pizzeria-api/internal/reprice"
)

type fixture struct {
	svc    *checkout.Service
	carts  *cart.Service
	orders *ordertest.Store
	fresh  *ct.Lookup
	mr     *miniredis.Miniredis
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	locker := lock.Locker{R: client, RetryBackoff: time.Millisecond, MaxWait: 50 * time.Millisecond}
	preview := ct.NewLookup(ct.Demo())
	fresh := ct.NewLookup(ct.Demo())

	carts, err := cart.NewService(cart.Config{
		Store:    cart.RedisStore{R: client, TTL: time.Hour},
		Locker:   locker,
		Pricer:   reprice.NewService(reprice.Config{Lookup: preview, Logger: zerolog.Nop()}),
		TaxBps:   1000,
		Currency: "USD",
		Logger:   zerolog.Nop(),
	})
	require.NoError(t, err)

	gate := reprice.NewService(reprice.Config{Lookup: fresh, Logger: zerolog.Nop()})
	orders := ordertest.NewStore()
	m, err := order.NewMaterializer(order.MaterializerConfig{Pricer: gate, Store: orders, Logger: zerolog.Nop()})
	require.NoError(t, err)

	svc, err := checkout.NewService(checkout.Config{
		Carts:        carts,
		Locker:       locker,
		Materializer: m,
		Orders:       orders,
		TaxBps:       1000,
		Currency:     "USD",
		Logger:       zerolog.Nop(),
	})
	require.NoError(t, err)
	return fixture{svc: svc, carts: carts, orders: orders, fresh: fresh, mr: mr}
}

func pepperoni() configurator.Line {
	return configurator.PizzaLine(configurator.PizzaConfiguration{
		SizeID:   ct.SizeMedium,
		CrustID:  ct.CrustThin,
		SauceID:  ct.SauceMarinara,
		Toppings: []configurator.ToppingPlacement{{ToppingID: ct.ToppingPepperoni}},
	})
}

// seedCart returns a cart holding two medium pepperoni pizzas at 14.00 each.
func seedCart(t *testing.T, f fixture) (cartID, lineID string) {
	t.Helper()
	ctx := context.Background()
	created, err := f.carts.Create(ctx)
	require.NoError(t, err)
	_, lineID, err = f.carts.AddLine(ctx, created.Cart.ID, pepperoni(), 2, "")
	require.NoError(t, err)
	return created.Cart.ID, lineID
}

func TestCheckoutCreatesOrderAndDeletesCart(t *testing.T) {
	f := newFixture(t)
	cartID, lineID := seedCart(t, f)

	o, err := f.svc.Checkout(context.Background(), checkout.Input{
		CartID:        cartID,
		CustomerName:  "Ada",
		Confirmed:     map[string]money.Money{lineID: 1400},
		ExpectedTotal: 3080,
	})
	require.NoError(t, err)
	require.Equal(t, order.StatusPlaced, o.Status)
	require.Equal(t, cartID, o.CartID)
	require.Equal(t, money.Money(2800), o.Subtotal)
	require.Equal(t, money.Money(280), o.Tax)
	require.Equal(t, money.Money(3080), o.Total)
	require.Len(t, o.Lines, 1)
	require.Equal(t, money.Money(1400), o.Lines[0].UnitPriceSnapshot)
	require.Equal(t, "Medium Custom Pizza", o.Lines[0].Name)

	require.Equal(t, 1, f.orders.Len())
	require.False(t, f.mr.Exists("cart:"+cartID))
	require.False(t, f.mr.Exists(lock.CartKey(cartID)))
}

func TestCheckoutRejectsChangedLinePrice(t *testing.T) {
	f := newFixture(t)
	cartID, lineID := seedCart(t, f)

	f.fresh.Update(func(s *catalog.Snapshot) {
		top := s.Toppings[ct.ToppingPepperoni]
		top.Price = 300
		s.Toppings[ct.ToppingPepperoni] = top
	})

	_, err := f.svc.Checkout(context.Background(), checkout.Input{
		CartID:        cartID,
		CustomerName:  "Ada",
		Confirmed:     map[string]money.Money{lineID: 1400},
		ExpectedTotal: 3080,
	})
	var mismatch *reprice.PriceMismatchError
	require.ErrorAs(t, err, &mismatch)
	require.Len(t, mismatch.Lines, 1)
	require.Equal(t, lineID, mismatch.Lines[0].ID)
	require.Equal(t, money.Money(1500), mismatch.Lines[0].CurrentUnitPrice)

	require.Zero(t, f.orders.Len())
	require.True(t, f.mr.Exists("cart:"+cartID))
}

func TestCheckoutRejectsChangedTotal(t *testing.T) {
	f := newFixture(t)
	cartID, lineID := seedCart(t, f)

	_, err := f.svc.Checkout(context.Background(), checkout.Input{
		CartID:        cartID,
		CustomerName:  "Ada",
		Confirmed:     map[string]money.Money{lineID: 1400},
		ExpectedTotal: 2800,
	})
	var mismatch *reprice.PriceMismatchError
	require.ErrorAs(t, err, &mismatch)
	require.Empty(t, mismatch.Lines)
	require.Equal(t, money.Money(3080), mismatch.CurrentTotal)
	require.Zero(t, f.orders.Len())
}

func TestCheckoutRequiresEveryLineConfirmed(t *testing.T) {
	f := newFixture(t)
	cartID, lineID := seedCart(t, f)

	_, err := f.svc.Checkout(context.Background(), checkout.Input{CartID: cartID, CustomerName: "Ada", Confirmed: map[string]money.Money{}})
	require.True(t, common.IsAppError(err))

	_, err = f.svc.Checkout(context.Background(), checkout.Input{
		CartID:       cartID,
		CustomerName: "Ada",
		Confirmed:    map[string]money.Money{lineID: 1400, "ghost": 100},
	})
	require.True(t, common.IsAppError(err))
	require.Zero(t, f.orders.Len())
}

func TestCheckoutRejectsEmptyAndMissingCarts(t *testing.T) {
	f := newFixture(t)
	created, err := f.carts.Create(context.Background())
	require.NoError(t, err)

	_, err = f.svc.Checkout(context.Background(), checkout.Input{CartID: created.Cart.ID, CustomerName: "Ada"})
	require.True(t, common.IsAppError(err))

	_, err = f.svc.Checkout(context.Background(), checkout.Input{CartID: "missing", CustomerName: "Ada"})
	require.ErrorIs(t, err, cart.ErrNotFound)
}

func TestCheckoutPersistenceFailureKeepsCart(t *testing.T) {
	f := newFixture(t)
	cartID, lineID := seedCart(t, f)
	f.orders.FailWith(errors.New("deadlock detected"))

	_, err := f.svc.Checkout(context.Background(), checkout.Input{
		CartID:        cartID,
		CustomerName:  "Ada",
		Confirmed:     map[string]money.Money{lineID: 1400},
		ExpectedTotal: 3080,
	})
	require.ErrorIs(t, err, order.ErrPersistence)
	require.True(t, f.mr.Exists("cart:"+cartID))
}

func TestCheckoutWaitsForCartLock(t *testing.T) {
	f := newFixture(t)
	cartID, lineID := seedCart(t, f)
	require.NoError(t, f.mr.Set(lock.CartKey(cartID), "held"))

	_, err := f.svc.Checkout(context.Background(), checkout.Input{
		CartID:        cartID,
		CustomerName:  "Ada",
		Confirmed:     map[string]money.Money{lineID: 1400},
		ExpectedTotal: 3080,
	})
	require.ErrorIs(t, err, lock.ErrBusy)
	require.Zero(t, f.orders.Len())
}
