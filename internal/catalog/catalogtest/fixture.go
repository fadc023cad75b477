// Package catalogtest provides an in-memory demo catalog for tests.
package catalogtest

import (
	"context"
	"sync"

	"github.com/noah-isme/pizzeria-api/internal/catalog"
)

// Ids of the demo catalog entities.
const (
	SizeMedium = "size-medium"
	SizeLarge  = "size-large"

	CrustThin    = "crust-thin"
	CrustStuffed = "crust-stuffed"

	SauceMarinara = "sauce-marinara"
	SauceAlfredo  = "sauce-alfredo"

	ToppingPepperoni = "top-pepperoni"
	ToppingSausage   = "top-sausage"
	ToppingBacon     = "top-bacon"
	ToppingMushroom  = "top-mushroom"
	ToppingOlive     = "top-olive"

	SpecialtyMeatLovers = "sp-meat-lovers"

	MenuItalianSub = "menu-italian-sub"

	GroupBread  = "grp-bread"
	GroupSides  = "grp-sides"
	GroupExtras = "grp-extras"

	OptionWhite       = "opt-white"
	OptionWheat       = "opt-wheat"
	OptionGarlic      = "opt-garlic"
	OptionChips       = "opt-chips"
	OptionSlaw        = "opt-slaw"
	OptionPickle      = "opt-pickle"
	OptionExtraCheese = "opt-extra-cheese"
)

// Demo returns a fresh snapshot of the demo catalog. Olive is inactive.
func Demo() *catalog.Snapshot {
	two := 2
	snap := catalog.NewSnapshot()

	snap.Sizes[SizeMedium] = catalog.Size{ID: SizeMedium, Name: "Medium", BasePrice: 1200, IsActive: true}
	snap.Sizes[SizeLarge] = catalog.Size{ID: SizeLarge, Name: "Large", BasePrice: 1500, IsActive: true}

	snap.Crusts[CrustThin] = catalog.Crust{ID: CrustThin, Name: "Thin", Modifier: 0, IsActive: true}
	snap.Crusts[CrustStuffed] = catalog.Crust{ID: CrustStuffed, Name: "Stuffed", Modifier: 250, IsActive: true}

	snap.Sauces[SauceMarinara] = catalog.Sauce{ID: SauceMarinara, Name: "Marinara", Modifier: 0, IsActive: true}
	snap.Sauces[SauceAlfredo] = catalog.Sauce{ID: SauceAlfredo, Name: "Alfredo", Modifier: 100, IsActive: true}

	snap.Toppings[ToppingPepperoni] = catalog.Topping{ID: ToppingPepperoni, Name: "Pepperoni", Price: 200, IsActive: true}
	snap.Toppings[ToppingSausage] = catalog.Topping{ID: ToppingSausage, Name: "Sausage", Price: 200, IsActive: true}
	snap.Toppings[ToppingBacon] = catalog.Topping{ID: ToppingBacon, Name: "Bacon", Price: 250, IsActive: true}
	snap.Toppings[ToppingMushroom] = catalog.Topping{ID: ToppingMushroom, Name: "Mushroom", Price: 150, IsActive: true}
	snap.Toppings[ToppingOlive] = catalog.Topping{ID: ToppingOlive, Name: "Olive", Price: 100, IsActive: false}

	snap.Specialties[SpecialtyMeatLovers] = catalog.SpecialtyPizza{
		ID:             SpecialtyMeatLovers,
		Name:           "Meat Lovers",
		BasePrice:      1800,
		DefaultSizeID:  SizeMedium,
		DefaultCrustID: CrustThin,
		DefaultSauceID: SauceMarinara,
		Toppings: []catalog.DefaultTopping{
			{ToppingID: ToppingPepperoni, Section: "WHOLE", Intensity: "REGULAR"},
			{ToppingID: ToppingSausage, Section: "WHOLE", Intensity: "REGULAR"},
			{ToppingID: ToppingBacon, Section: "WHOLE", Intensity: "REGULAR"},
		},
		IsActive: true,
	}

	snap.MenuItems[MenuItalianSub] = catalog.MenuItem{
		ID:        MenuItalianSub,
		Name:      "Italian Sub",
		BasePrice: 900,
		IsActive:  true,
		GroupIDs:  []string{GroupBread, GroupSides, GroupExtras},
	}
	snap.Groups[GroupBread] = catalog.CustomizationGroup{
		ID: GroupBread, MenuItemID: MenuItalianSub, Name: "Bread", Type: catalog.GroupSingleSelect,
		IsRequired: true, MinSelections: 1, SortOrder: 0,
		OptionIDs: []string{OptionWhite, OptionWheat, OptionGarlic},
	}
	snap.Groups[GroupSides] = catalog.CustomizationGroup{
		ID: GroupSides, MenuItemID: MenuItalianSub, Name: "Sides", Type: catalog.GroupSpecialLogic,
		IsRequired: true, MinSelections: 2, MaxSelections: &two, SortOrder: 1,
		OptionIDs: []string{OptionChips, OptionSlaw, OptionPickle},
	}
	snap.Groups[GroupExtras] = catalog.CustomizationGroup{
		ID: GroupExtras, MenuItemID: MenuItalianSub, Name: "Extras", Type: catalog.GroupMultiSelect,
		SortOrder: 2, OptionIDs: []string{OptionExtraCheese},
	}
	for _, o := range []catalog.CustomizationOption{
		{ID: OptionWhite, GroupID: GroupBread, Name: "White", IsActive: true},
		{ID: OptionWheat, GroupID: GroupBread, Name: "Wheat", IsActive: true},
		{ID: OptionGarlic, GroupID: GroupBread, Name: "Garlic", PriceModifier: 75, IsActive: true},
		{ID: OptionChips, GroupID: GroupSides, Name: "Chips", IsActive: true},
		{ID: OptionSlaw, GroupID: GroupSides, Name: "Slaw", IsActive: true},
		{ID: OptionPickle, GroupID: GroupSides, Name: "Pickle", PriceModifier: 50, IsActive: true},
		{ID: OptionExtraCheese, GroupID: GroupExtras, Name: "Extra Cheese", PriceModifier: 100, IsActive: true, AllowQuantity: true, MaxQuantity: 3},
	} {
		snap.Options[o.ID] = o
	}
	return snap
}

// Lookup serves a mutable in-memory snapshot and counts calls.
type Lookup struct {
	mu    sync.Mutex
	snap  *catalog.Snapshot
	calls int
	err   error
}

// NewLookup returns a Lookup serving snap.
func NewLookup(snap *catalog.Snapshot) *Lookup {
	return &Lookup{snap: snap}
}

// Snapshot implements catalog.Lookup.
func (l *Lookup) Snapshot(_ context.Context, _ catalog.Refs) (*catalog.Snapshot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	if l.err != nil {
		return nil, l.err
	}
	return l.snap, nil
}

// Update applies fn to the served snapshot, simulating a catalog edit.
func (l *Lookup) Update(fn func(*catalog.Snapshot)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fn(l.snap)
}

// FailWith makes every subsequent Snapshot call return err.
func (l *Lookup) FailWith(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.err = err
}

// Calls returns how many snapshots were served.
func (l *Lookup) Calls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}
