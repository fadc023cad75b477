package pricing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/pizzeria-api/internal/catalog"
	"github.com/noah-isme/pizzeria-api/internal/configurator"
	"github.com/noah-isme/pizzeria-api/internal/money"
)

// ErrNegativePrice is returned when catalog data would yield a price below zero.
var ErrNegativePrice = errors.New("computed price is negative")

// Component kinds reported in a Breakdown.
const (
	ComponentSize      = "size"
	ComponentCrust     = "crust"
	ComponentSauce     = "sauce"
	ComponentTopping   = "topping"
	ComponentSpecialty = "specialty"
	ComponentMenuItem  = "menu_item"
	ComponentOption    = "option"
)

// Component is one priced part of a line.
type Component struct {
	Kind       string      `json:"kind"`
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Amount     money.Money `json:"amount"`
	Multiplier string      `json:"multiplier,omitempty"`
	Quantity   int         `json:"quantity,omitempty"`
	Included   bool        `json:"included,omitempty"`
}

// Breakdown is the priced unit of one line. Component amounts are rounded for
// display; Total is rounded once from the exact sum.
type Breakdown struct {
	Components []Component `json:"components"`
	Total      money.Money `json:"total"`
}

type accumulator struct {
	sum        decimal.Decimal
	components []Component
	err        error
}

func (a *accumulator) add(c Component, minor decimal.Decimal) {
	a.sum = a.sum.Add(minor)
	amount, err := money.FromMinor(minor)
	if err != nil && a.err == nil {
		a.err = fmt.Errorf("pricing %s %s: %w", c.Kind, c.ID, err)
	}
	c.Amount = amount
	a.components = append(a.components, c)
}

func (a *accumulator) breakdown() (Breakdown, error) {
	if a.err != nil {
		return Breakdown{}, a.err
	}
	if a.sum.IsNegative() {
		return Breakdown{}, ErrNegativePrice
	}
	total, err := money.FromMinor(a.sum)
	if err != nil {
		return Breakdown{}, fmt.Errorf("pricing total: %w", err)
	}
	return Breakdown{Components: a.components, Total: total}, nil
}

// Price returns the unit price breakdown for an already validated line.
// Missing or inactive catalog ids fail with *catalog.UnknownReferenceError.
func Price(line configurator.Line, snap *catalog.Snapshot) (Breakdown, error) {
	switch {
	case line.Kind == configurator.KindPizza && line.Pizza != nil:
		return PricePizza(*line.Pizza, snap)
	case line.Kind == configurator.KindMenu && line.Menu != nil:
		return PriceMenu(*line.Menu, snap)
	default:
		return Breakdown{}, fmt.Errorf("pricing: unsupported line kind %q", line.Kind)
	}
}

// PricePizza prices a pizza. With a specialty the specialty base price replaces
// size, crust and sauce, and only toppings outside its defaults are charged.
func PricePizza(cfg configurator.PizzaConfiguration, snap *catalog.Snapshot) (Breakdown, error) {
	var acc accumulator
	var defaults map[string]struct{}

	if cfg.SpecialtyPizzaID != "" {
		sp, err := snap.Specialty(cfg.SpecialtyPizzaID)
		if err != nil {
			return Breakdown{}, err
		}
		acc.add(Component{Kind: ComponentSpecialty, ID: sp.ID, Name: sp.Name}, sp.BasePrice.Minor())
		defaults = sp.DefaultToppingIDs()
		// size, crust and sauce must still resolve even though they carry no charge
		if _, err := snap.Size(cfg.SizeID); err != nil {
			return Breakdown{}, err
		}
		if _, err := snap.Crust(cfg.CrustID); err != nil {
			return Breakdown{}, err
		}
		if _, err := snap.Sauce(cfg.SauceID); err != nil {
			return Breakdown{}, err
		}
	} else {
		size, err := snap.Size(cfg.SizeID)
		if err != nil {
			return Breakdown{}, err
		}
		crust, err := snap.Crust(cfg.CrustID)
		if err != nil {
			return Breakdown{}, err
		}
		sauce, err := snap.Sauce(cfg.SauceID)
		if err != nil {
			return Breakdown{}, err
		}
		acc.add(Component{Kind: ComponentSize, ID: size.ID, Name: size.Name}, size.BasePrice.Minor())
		acc.add(Component{Kind: ComponentCrust, ID: crust.ID, Name: crust.Name}, crust.Modifier.Minor())
		acc.add(Component{Kind: ComponentSauce, ID: sauce.ID, Name: sauce.Name}, sauce.Modifier.Minor())
	}

	for _, placement := range cfg.Toppings {
		topping, err := snap.Topping(placement.ToppingID)
		if err != nil {
			return Breakdown{}, err
		}
		intensity := placement.EffectiveIntensity()
		qty := placement.EffectiveQuantity()
		c := Component{
			Kind:       ComponentTopping,
			ID:         topping.ID,
			Name:       topping.Name,
			Multiplier: intensity.Multiplier().String(),
			Quantity:   qty,
		}
		if _, included := defaults[topping.ID]; included {
			c.Included = true
			acc.add(c, decimal.Zero)
			continue
		}
		acc.add(c, topping.Price.Minor().Mul(intensity.Multiplier()).Mul(decimal.NewFromInt(int64(qty))))
	}
	return acc.breakdown()
}

// PriceMenu prices a menu item as its base price plus every selected option
// modifier times its quantity.
func PriceMenu(cfg configurator.MenuConfiguration, snap *catalog.Snapshot) (Breakdown, error) {
	var acc accumulator
	item, err := snap.MenuItem(cfg.MenuItemID)
	if err != nil {
		return Breakdown{}, err
	}
	acc.add(Component{Kind: ComponentMenuItem, ID: item.ID, Name: item.Name}, item.BasePrice.Minor())
	for _, sel := range cfg.Selections {
		for _, opt := range sel.Options {
			option, err := snap.Option(opt.OptionID)
			if err != nil {
				return Breakdown{}, err
			}
			qty := opt.EffectiveQuantity()
			acc.add(
				Component{Kind: ComponentOption, ID: option.ID, Name: option.Name, Quantity: qty},
				option.PriceModifier.Minor().Mul(decimal.NewFromInt(int64(qty))),
			)
		}
	}
	return acc.breakdown()
}

// Quote validates and prices a line in one step. The calculator is never
// reached for an invalid configuration.
func Quote(line configurator.Line, snap *catalog.Snapshot) (Breakdown, error) {
	if err := configurator.Validate(line, snap); err != nil {
		return Breakdown{}, err
	}
	return Price(line, snap)
}
