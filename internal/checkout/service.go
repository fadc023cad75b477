package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/noah-isme/pizzeria-api/internal/cart"
	"github.com/noah-isme/pizzeria-api/internal/common"
	"github.com/noah-isme/pizzeria-api/internal/lock"
	"github.com/noah-isme/pizzeria-api/internal/money"
	"github.com/noah-isme/pizzeria-api/internal/obs"
	"github.com/noah-isme/pizzeria-api/internal/order"
	"github.com/noah-isme/pizzeria-api/internal/pricing"
	"github.com/noah-isme/pizzeria-api/internal/reprice"
)

// Input is a checkout attempt. Every cart line must be confirmed with the
// unit price the customer last saw.
type Input struct {
	CartID        string
	CustomerName  string
	Notes         string
	Confirmed     map[string]money.Money
	ExpectedTotal money.Money
}

// Config groups Service dependencies.
type Config struct {
	Carts        *cart.Service
	Locker       order.Locker
	Materializer *order.Materializer
	Orders       order.Store
	LockTTL      time.Duration
	TaxBps       int64
	Currency     string
	Epsilon      money.Money
	Now          func() time.Time
	Logger       zerolog.Logger
}

// Service turns a verified cart into an order.
type Service struct {
	carts        *cart.Service
	locker       order.Locker
	materializer *order.Materializer
	orders       order.Store
	lockTTL      time.Duration
	taxBps       int64
	currency     string
	epsilon      money.Money
	now          func() time.Time
	logger       zerolog.Logger
}

// NewService constructs a Service.
func NewService(cfg Config) (*Service, error) {
	if cfg.Carts == nil || cfg.Locker == nil || cfg.Materializer == nil || cfg.Orders == nil {
		return nil, errors.New("checkout: carts, locker, materializer and orders are required")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	ttl := cfg.LockTTL
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	eps := cfg.Epsilon
	if eps < 1 {
		eps = 1
	}
	return &Service{
		carts:        cfg.Carts,
		locker:       cfg.Locker,
		materializer: cfg.Materializer,
		orders:       cfg.Orders,
		lockTTL:      ttl,
		taxBps:       cfg.TaxBps,
		currency:     cfg.Currency,
		epsilon:      eps,
		now:          now,
		logger:       cfg.Logger,
	}, nil
}

// Checkout verifies every cart line against a fresh catalog snapshot and
// creates the order with all of its lines in one write. On any rejection the
// cart is left untouched.
func (s *Service) Checkout(ctx context.Context, in Input) (order.Order, error) {
	ctx, span := otel.Tracer("checkout").Start(ctx, "checkout.Checkout")
	defer span.End()
	span.SetAttributes(attribute.String("cart.id", in.CartID))

	var out order.Order
	err := s.locker.WithLock(ctx, lock.CartKey(in.CartID), s.lockTTL, func(ctx context.Context) error {
		o, err := s.place(ctx, in)
		out = o
		return err
	})
	obs.ObserveCheckout(result(err))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return order.Order{}, err
	}
	span.SetAttributes(attribute.String("order.id", out.ID))
	return out, nil
}

func (s *Service) place(ctx context.Context, in Input) (order.Order, error) {
	c, err := s.carts.Load(ctx, in.CartID)
	if err != nil {
		return order.Order{}, err
	}
	if len(c.Lines) == 0 {
		return order.Order{}, common.BadRequest("cart is empty", nil)
	}
	reqs := make([]order.Request, 0, len(c.Lines))
	seen := make(map[string]struct{}, len(c.Lines))
	for _, l := range c.Lines {
		price, ok := in.Confirmed[l.ID]
		if !ok {
			return order.Order{}, common.BadRequest(fmt.Sprintf("line %s was not confirmed", l.ID), nil)
		}
		seen[l.ID] = struct{}{}
		reqs = append(reqs, order.Request{ID: l.ID, Item: l.Item, Quantity: l.Quantity, VerifiedUnitPrice: price, Notes: l.Notes})
	}
	for id := range in.Confirmed {
		if _, ok := seen[id]; !ok {
			return order.Order{}, common.BadRequest(fmt.Sprintf("line %s is not in the cart", id), nil)
		}
	}

	orderID := uuid.NewString()
	lines, v, err := s.materializer.Prepare(ctx, orderID, reqs)
	if err != nil {
		s.logger.Warn().Err(err).Str("cart_id", in.CartID).Msg("checkout rejected")
		return order.Order{}, err
	}
	summary := pricing.Summarize(v.CurrentTotal, s.taxBps, s.currency)
	if !money.WithinEpsilon(in.ExpectedTotal.Minor(), summary.Total.Minor(), s.epsilon) {
		s.logger.Warn().Str("cart_id", in.CartID).Str("expected", in.ExpectedTotal.String()).Str("current", summary.Total.String()).Msg("checkout total changed")
		return order.Order{}, &reprice.PriceMismatchError{ClientTotal: in.ExpectedTotal, CurrentTotal: summary.Total}
	}

	now := s.now().UTC()
	o := order.Order{
		ID:           orderID,
		CartID:       c.ID,
		Status:       order.StatusPlaced,
		CustomerName: in.CustomerName,
		Notes:        in.Notes,
		Currency:     summary.Currency,
		TaxBps:       s.taxBps,
		Subtotal:     summary.Subtotal,
		Tax:          summary.Tax,
		Total:        summary.Total,
		Lines:        lines,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.orders.CreateOrder(ctx, o); err != nil {
		s.logger.Error().Err(err).Str("cart_id", in.CartID).Str("order_id", orderID).Msg("create order failed")
		return order.Order{}, &order.PersistenceError{OrderID: orderID, Err: err}
	}
	if err := s.carts.Delete(ctx, c.ID); err != nil {
		s.logger.Warn().Err(err).Str("cart_id", c.ID).Str("order_id", orderID).Msg("delete cart after checkout failed")
	}
	return o, nil
}

func result(err error) string {
	var perr *order.PersistenceError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, reprice.ErrPriceMismatch):
		return "price_mismatch"
	case errors.As(err, &perr):
		return "persistence_error"
	case errors.Is(err, lock.ErrBusy):
		return "busy"
	case reprice.AppError(err) != nil:
		return "rejected"
	default:
		return "error"
	}
}
