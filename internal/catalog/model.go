package catalog

import "github.com/noah-isme/pizzeria-api/internal/money"

// Kind names a catalog entity family.
type Kind string

const (
	KindSize      Kind = "size"
	KindCrust     Kind = "crust"
	KindSauce     Kind = "sauce"
	KindTopping   Kind = "topping"
	KindMenuItem  Kind = "menu_item"
	KindGroup     Kind = "customization_group"
	KindOption    Kind = "customization_option"
	KindSpecialty Kind = "specialty_pizza"
)

// Size is a pizza size; its base price starts every non-specialty pizza.
type Size struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	BasePrice money.BasePrice `json:"basePrice"`
	IsActive  bool            `json:"isActive"`
}

// Crust is a crust choice priced as a modifier.
type Crust struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Modifier money.Modifier `json:"modifier"`
	IsActive bool           `json:"isActive"`
}

// Sauce is a sauce choice priced as a modifier.
type Sauce struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Modifier money.Modifier `json:"modifier"`
	IsActive bool           `json:"isActive"`
}

// Topping is priced per placement, scaled by intensity.
type Topping struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Price    money.Modifier `json:"price"`
	IsActive bool           `json:"isActive"`
}

// MenuItem is a non-pizza menu entry with optional customization groups.
type MenuItem struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	BasePrice money.BasePrice `json:"basePrice"`
	IsActive  bool            `json:"isActive"`
	GroupIDs  []string        `json:"groupIds"`
}

// GroupType is the closed set of customization group shapes.
type GroupType string

const (
	GroupSingleSelect GroupType = "SINGLE_SELECT"
	GroupMultiSelect  GroupType = "MULTI_SELECT"
	GroupSpecialLogic GroupType = "SPECIAL_LOGIC"
)

// Valid reports whether t is one of the known group types.
func (t GroupType) Valid() bool {
	switch t {
	case GroupSingleSelect, GroupMultiSelect, GroupSpecialLogic:
		return true
	default:
		return false
	}
}

// CustomizationGroup constrains how many options of a menu item may be picked.
type CustomizationGroup struct {
	ID            string    `json:"id"`
	MenuItemID    string    `json:"menuItemId"`
	Name          string    `json:"name"`
	Type          GroupType `json:"type"`
	IsRequired    bool      `json:"isRequired"`
	MinSelections int       `json:"minSelections"`
	MaxSelections *int      `json:"maxSelections,omitempty"`
	SortOrder     int       `json:"sortOrder"`
	OptionIDs     []string  `json:"optionIds"`
}

// Unbounded marks a group without an upper selection limit.
const Unbounded = -1

// Bounds returns the effective selection cardinality for the group. A max of
// Unbounded means any number of selections is accepted.
func (g CustomizationGroup) Bounds() (min, max int) {
	min = g.MinSelections
	if min < 0 {
		min = 0
	}
	max = Unbounded
	if g.MaxSelections != nil && *g.MaxSelections >= 0 {
		max = *g.MaxSelections
	}
	switch g.Type {
	case GroupSpecialLogic:
		// choose exactly k of N
		k := min
		if k == 0 && max > 0 {
			k = max
		}
		return k, k
	case GroupSingleSelect:
		if max == Unbounded || max > 1 {
			max = 1
		}
	}
	if g.IsRequired && min == 0 {
		min = 1
	}
	if max != Unbounded && min > max {
		min = max
	}
	return min, max
}

// CustomizationOption is a selectable option inside a group.
type CustomizationOption struct {
	ID            string         `json:"id"`
	GroupID       string         `json:"groupId"`
	Name          string         `json:"name"`
	PriceModifier money.Modifier `json:"priceModifier"`
	IsActive      bool           `json:"isActive"`
	AllowQuantity bool           `json:"allowQuantity"`
	MaxQuantity   int            `json:"maxQuantity"`
}

// SpecialtyPizza is a named preset with a fixed base price.
type SpecialtyPizza struct {
	ID             string           `json:"id"`
	Name           string           `json:"name"`
	BasePrice      money.BasePrice  `json:"basePrice"`
	DefaultSizeID  string           `json:"defaultSizeId"`
	DefaultCrustID string           `json:"defaultCrustId"`
	DefaultSauceID string           `json:"defaultSauceId"`
	Toppings       []DefaultTopping `json:"toppings"`
	IsActive       bool             `json:"isActive"`
}

// DefaultTopping is a topping included in a specialty's base price.
type DefaultTopping struct {
	ToppingID string `json:"toppingId"`
	Section   string `json:"section"`
	Intensity string `json:"intensity"`
}

// DefaultToppingIDs returns the set of topping ids covered by the base price.
func (s SpecialtyPizza) DefaultToppingIDs() map[string]struct{} {
	ids := make(map[string]struct{}, len(s.Toppings))
	for _, t := range s.Toppings {
		ids[t.ToppingID] = struct{}{}
	}
	return ids
}

func (s Size) active() bool                { return s.IsActive }
func (c Crust) active() bool               { return c.IsActive }
func (s Sauce) active() bool               { return s.IsActive }
func (t Topping) active() bool             { return t.IsActive }
func (m MenuItem) active() bool            { return m.IsActive }
func (g CustomizationGroup) active() bool  { return true }
func (o CustomizationOption) active() bool { return o.IsActive }
func (s SpecialtyPizza) active() bool      { return s.IsActive }

func moneyString[T ~int64](v T) string {
	return money.Money(v).String()
}
