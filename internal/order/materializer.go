package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/noah-isme/pizzeria-api/internal/catalog"
	"github.com/noah-isme/pizzeria-api/internal/common"
	"github.com/noah-isme/pizzeria-api/internal/configurator"
	"github.com/noah-isme/pizzeria-api/internal/lock"
	"github.com/noah-isme/pizzeria-api/internal/money"
	"github.com/noah-isme/pizzeria-api/internal/obs"
	"github.com/noah-isme/pizzeria-api/internal/pricing"
	"github.com/noah-isme/pizzeria-api/internal/reprice"
)

// MaxQuantity bounds the quantity of a single order line.
const MaxQuantity = 99

// Request asks for one line to be frozen at the given unit price.
type Request struct {
	ID                string
	Item              configurator.Line
	Quantity          int
	VerifiedUnitPrice money.Money
	Notes             string
}

// Store persists orders. Each call is all-or-nothing.
type Store interface {
	CreateOrder(ctx context.Context, o Order) error
	AppendLines(ctx context.Context, orderID string, lines []Line) (Order, error)
	Get(ctx context.Context, id string) (Order, error)
}

// Locker serializes work on a key across instances.
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

// MaterializerConfig groups Materializer dependencies. Locker is optional;
// the store already serializes appends per order.
type MaterializerConfig struct {
	Pricer  *reprice.Service
	Store   Store
	Locker  Locker
	LockTTL time.Duration
	Now     func() time.Time
	Logger  zerolog.Logger
}

// Materializer turns verified configurations into immutable order lines.
type Materializer struct {
	pricer  *reprice.Service
	store   Store
	locker  Locker
	lockTTL time.Duration
	now     func() time.Time
	logger  zerolog.Logger
}

// NewMaterializer constructs a Materializer. Pricer must read uncached catalog data.
func NewMaterializer(cfg MaterializerConfig) (*Materializer, error) {
	if cfg.Pricer == nil || cfg.Store == nil {
		return nil, errors.New("order: pricer and store are required")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	ttl := cfg.LockTTL
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &Materializer{pricer: cfg.Pricer, store: cfg.Store, locker: cfg.Locker, lockTTL: ttl, now: now, logger: cfg.Logger}, nil
}

// Prepare re-verifies every requested price against a fresh snapshot and
// builds the lines that would be stored. Nothing is written.
func (m *Materializer) Prepare(ctx context.Context, orderID string, reqs []Request) ([]Line, reprice.Verification, error) {
	if len(reqs) == 0 {
		return nil, reprice.Verification{}, common.BadRequest("at least one line is required", nil)
	}
	claims := make([]reprice.Claim, len(reqs))
	for i, r := range reqs {
		if r.Quantity < 1 || r.Quantity > MaxQuantity {
			return nil, reprice.Verification{}, common.BadRequest(fmt.Sprintf("line %d quantity must be between 1 and %d", i, MaxQuantity), nil)
		}
		id := r.ID
		if id == "" {
			id = fmt.Sprintf("%d", i)
		}
		claims[i] = reprice.Claim{Item: reprice.Item{ID: id, Line: r.Item}, Quantity: r.Quantity, ClientUnitPrice: r.VerifiedUnitPrice}
	}
	v, err := m.pricer.Verify(ctx, claims)
	if err != nil {
		return nil, v, err
	}
	now := m.now().UTC()
	lines := make([]Line, len(reqs))
	for i, r := range reqs {
		check := v.Lines[i]
		lines[i] = Line{
			ID:                uuid.NewString(),
			OrderID:           orderID,
			Position:          i + 1,
			Kind:              r.Item.Kind,
			Name:              lineName(r.Item, v.Snapshot),
			Item:              r.Item,
			Quantity:          r.Quantity,
			UnitPriceSnapshot: check.CurrentPrice,
			TotalPrice:        check.CurrentPrice * money.Money(r.Quantity),
			Notes:             r.Notes,
			Selections:        selections(r.Item, check.Breakdown, v.Snapshot),
			CreatedAt:         now,
		}
	}
	return lines, v, nil
}

// Materialize verifies and atomically appends lines to an existing order.
func (m *Materializer) Materialize(ctx context.Context, orderID string, reqs []Request) (Order, error) {
	ctx, span := otel.Tracer("order").Start(ctx, "order.Materialize")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", orderID), attribute.Int("order.lines", len(reqs)))

	var out Order
	run := func(ctx context.Context) error {
		o, err := m.materialize(ctx, orderID, reqs)
		out = o
		return err
	}
	if m.locker == nil {
		return out, run(ctx)
	}
	err := m.locker.WithLock(ctx, lock.OrderKey(orderID), m.lockTTL, run)
	return out, err
}

func (m *Materializer) materialize(ctx context.Context, orderID string, reqs []Request) (Order, error) {
	if _, err := m.store.Get(ctx, orderID); err != nil {
		obs.ObserveMaterialize("not_found")
		return Order{}, err
	}
	lines, _, err := m.Prepare(ctx, orderID, reqs)
	if err != nil {
		obs.ObserveMaterialize("rejected")
		return Order{}, err
	}
	o, err := m.store.AppendLines(ctx, orderID, lines)
	if err != nil {
		obs.ObserveMaterialize("error")
		if errors.Is(err, ErrNotFound) {
			return Order{}, err
		}
		m.logger.Error().Err(err).Str("order_id", orderID).Int("lines", len(lines)).Msg("materialize order lines failed")
		return Order{}, &PersistenceError{OrderID: orderID, Err: err}
	}
	obs.ObserveMaterialize("ok")
	return o, nil
}

func lineName(item configurator.Line, snap *catalog.Snapshot) string {
	switch {
	case item.Kind == configurator.KindMenu && item.Menu != nil:
		if mi, err := snap.MenuItem(item.Menu.MenuItemID); err == nil {
			return mi.Name
		}
	case item.Kind == configurator.KindPizza && item.Pizza != nil:
		size, _ := snap.Size(item.Pizza.SizeID)
		if item.Pizza.SpecialtyPizzaID != "" {
			if sp, err := snap.Specialty(item.Pizza.SpecialtyPizzaID); err == nil {
				return fmt.Sprintf("%s %s", size.Name, sp.Name)
			}
		}
		return fmt.Sprintf("%s Custom Pizza", size.Name)
	}
	return string(item.Kind)
}

func selections(item configurator.Line, b pricing.Breakdown, snap *catalog.Snapshot) []Selection {
	placements := map[string]configurator.ToppingPlacement{}
	if item.Pizza != nil {
		for _, p := range item.Pizza.Toppings {
			placements[p.ToppingID] = p
		}
	}
	out := make([]Selection, 0, len(b.Components))
	for _, c := range b.Components {
		sel := Selection{
			Kind:     c.Kind,
			RefID:    c.ID,
			Name:     c.Name,
			Quantity: c.Quantity,
			Amount:   c.Amount,
			Included: c.Included,
		}
		if sel.Quantity == 0 {
			sel.Quantity = 1
		}
		switch c.Kind {
		case pricing.ComponentTopping:
			p := placements[c.ID]
			sel.Section = string(p.EffectiveSection())
			sel.Intensity = string(p.EffectiveIntensity())
		case pricing.ComponentOption:
			if opt, err := snap.Option(c.ID); err == nil {
				if g, err := snap.Group(opt.GroupID); err == nil {
					sel.GroupName = g.Name
				}
			}
		case pricing.ComponentSauce:
			if item.Pizza != nil && item.Pizza.SauceIntensity != "" {
				sel.Intensity = string(item.Pizza.SauceIntensity)
			}
		}
		out = append(out, sel)
	}
	if item.Pizza != nil && item.Pizza.SpecialtyPizzaID != "" {
		// specialty lines still record the chosen size, crust and sauce
		if size, err := snap.Size(item.Pizza.SizeID); err == nil {
			out = append(out, Selection{Kind: pricing.ComponentSize, RefID: size.ID, Name: size.Name, Quantity: 1, Included: true})
		}
		if crust, err := snap.Crust(item.Pizza.CrustID); err == nil {
			out = append(out, Selection{Kind: pricing.ComponentCrust, RefID: crust.ID, Name: crust.Name, Quantity: 1, Included: true})
		}
		if sauce, err := snap.Sauce(item.Pizza.SauceID); err == nil {
			out = append(out, Selection{Kind: pricing.ComponentSauce, RefID: sauce.ID, Name: sauce.Name, Intensity: string(item.Pizza.SauceIntensity), Quantity: 1, Included: true})
		}
	}
	return out
}
