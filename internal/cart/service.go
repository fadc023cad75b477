package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/pizzeria-api/internal/configurator"
	"github.com/noah-isme/pizzeria-api/internal/lock"
	"github.com/noah-isme/pizzeria-api/internal/money"
	"github.com/noah-isme/pizzeria-api/internal/pricing"
	"github.com/noah-isme/pizzeria-api/internal/reprice"
)

// Locker serialises work on one key.
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

// Config groups Service dependencies.
type Config struct {
	Store    Store
	Locker   Locker
	Pricer   *reprice.Service
	LockTTL  time.Duration
	TaxBps   int64
	Currency string
	Now      func() time.Time
	Logger   zerolog.Logger
}

// Service encapsulates cart domain operations.
type Service struct {
	store    Store
	locker   Locker
	pricer   *reprice.Service
	lockTTL  time.Duration
	taxBps   int64
	currency string
	now      func() time.Time
	logger   zerolog.Logger
}

// NewService constructs a Service.
func NewService(cfg Config) (*Service, error) {
	if cfg.Store == nil || cfg.Locker == nil || cfg.Pricer == nil {
		return nil, errors.New("cart: store, locker and pricer are required")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	ttl := cfg.LockTTL
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &Service{
		store:    cfg.Store,
		locker:   cfg.Locker,
		pricer:   cfg.Pricer,
		lockTTL:  ttl,
		taxBps:   cfg.TaxBps,
		currency: cfg.Currency,
		now:      now,
		logger:   cfg.Logger,
	}, nil
}

// Create starts an empty cart.
func (s *Service) Create(ctx context.Context) (View, error) {
	now := s.now().UTC()
	c := Cart{ID: uuid.NewString(), Lines: []Line{}, CreatedAt: now, UpdatedAt: now}
	if err := s.store.Save(ctx, c); err != nil {
		return View{}, err
	}
	return View{Cart: c, Lines: []LineView{}, Summary: pricing.Compute(nil, s.taxBps, s.currency)}, nil
}

// Load returns the stored cart without re-pricing it.
func (s *Service) Load(ctx context.Context, cartID string) (Cart, error) {
	return s.store.Get(ctx, cartID)
}

// Delete removes a cart.
func (s *Service) Delete(ctx context.Context, cartID string) error {
	return s.store.Delete(ctx, cartID)
}

// AddLine validates and prices line, then appends it to the cart.
func (s *Service) AddLine(ctx context.Context, cartID string, line configurator.Line, qty int, notes string) (View, string, error) {
	if err := checkQuantity(qty); err != nil {
		return View{}, "", err
	}
	var lineID string
	view, err := s.mutate(ctx, cartID, func(c *Cart) error {
		b, err := s.pricer.Quote(ctx, line)
		if err != nil {
			return err
		}
		lineID = uuid.NewString()
		c.Lines = append(c.Lines, Line{
			ID:                lineID,
			Item:              line,
			Quantity:          qty,
			Notes:             strings.TrimSpace(notes),
			UnitPriceSnapshot: b.Total,
			AddedAt:           s.now().UTC(),
		})
		return nil
	})
	return view, lineID, err
}

// UpdateLine changes the quantity and/or notes of a line.
func (s *Service) UpdateLine(ctx context.Context, cartID, lineID string, qty *int, notes *string) (View, error) {
	if qty != nil {
		if err := checkQuantity(*qty); err != nil {
			return View{}, err
		}
	}
	return s.mutate(ctx, cartID, func(c *Cart) error {
		idx, ok := c.line(lineID)
		if !ok {
			return ErrLineNotFound
		}
		if qty != nil {
			c.Lines[idx].Quantity = *qty
		}
		if notes != nil {
			c.Lines[idx].Notes = strings.TrimSpace(*notes)
		}
		return nil
	})
}

// RemoveLine deletes a line from the cart.
func (s *Service) RemoveLine(ctx context.Context, cartID, lineID string) (View, error) {
	return s.mutate(ctx, cartID, func(c *Cart) error {
		idx, ok := c.line(lineID)
		if !ok {
			return ErrLineNotFound
		}
		c.Lines = append(c.Lines[:idx], c.Lines[idx+1:]...)
		return nil
	})
}

// View re-prices every line against current catalog data and stores the
// refreshed unit price snapshots.
func (s *Service) View(ctx context.Context, cartID string) (View, error) {
	return s.mutate(ctx, cartID, nil)
}

func (s *Service) mutate(ctx context.Context, cartID string, fn func(*Cart) error) (View, error) {
	var view View
	err := s.locker.WithLock(ctx, lock.CartKey(cartID), s.lockTTL, func(ctx context.Context) error {
		c, err := s.store.Get(ctx, cartID)
		if err != nil {
			return err
		}
		if fn != nil {
			if err := fn(&c); err != nil {
				return err
			}
		}
		view, err = s.refresh(ctx, c)
		if err != nil {
			return err
		}
		view.Cart.UpdatedAt = s.now().UTC()
		return s.store.Save(ctx, view.Cart)
	})
	if errors.Is(err, lock.ErrBusy) {
		return View{}, fmt.Errorf("cart %s is being modified: %w", cartID, err)
	}
	return view, err
}

func (s *Service) refresh(ctx context.Context, c Cart) (View, error) {
	items := make([]reprice.Item, len(c.Lines))
	for i, l := range c.Lines {
		items[i] = reprice.Item{ID: l.ID, Line: l.Item}
	}
	var results []reprice.Result
	if len(items) > 0 {
		var err error
		results, err = s.pricer.Reprice(ctx, items)
		if err != nil {
			return View{}, err
		}
	}

	view := View{Cart: c, Lines: make([]LineView, len(c.Lines))}
	priced := make([]pricing.Item, 0, len(c.Lines))
	for i, l := range c.Lines {
		lv := LineView{Line: l, PreviousUnitPrice: l.UnitPriceSnapshot}
		res := results[i]
		if res.Err != nil {
			lv.Unavailable = true
			lv.Err = res.Err
			view.HasIssues = true
			s.logger.Warn().Err(res.Err).Str("cart_id", c.ID).Str("line_id", l.ID).Msg("cart line can no longer be priced")
		} else {
			lv.Breakdown = res.Breakdown
			lv.UnitPriceSnapshot = res.CurrentPrice
			lv.LineTotal = res.CurrentPrice * money.Money(l.Quantity)
			if !money.WithinEpsilon(l.UnitPriceSnapshot.Minor(), res.CurrentPrice.Minor(), s.pricer.Epsilon()) {
				lv.PriceChanged = true
				view.HasIssues = true
			}
			view.Cart.Lines[i].UnitPriceSnapshot = res.CurrentPrice
			priced = append(priced, pricing.Item{Qty: l.Quantity, UnitPrice: res.CurrentPrice})
		}
		view.Lines[i] = lv
	}
	view.Summary = pricing.Compute(priced, s.taxBps, s.currency)
	return view, nil
}

func checkQuantity(qty int) error {
	if qty < 1 || qty > MaxQuantity {
		return fmt.Errorf("quantity must be between 1 and %d: %w", MaxQuantity, ErrInvalidInput)
	}
	return nil
}
