package configurator

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/pizzeria-api/internal/catalog"
)

// Section is where a topping sits on the pizza. It affects coverage only.
type Section string

const (
	SectionWhole Section = "WHOLE"
	SectionLeft  Section = "LEFT"
	SectionRight Section = "RIGHT"
)

// Valid reports whether s is a known section.
func (s Section) Valid() bool {
	switch s {
	case SectionWhole, SectionLeft, SectionRight:
		return true
	}
	return false
}

// Intensity is the amount of a topping or sauce.
type Intensity string

const (
	IntensityLight   Intensity = "LIGHT"
	IntensityRegular Intensity = "REGULAR"
	IntensityExtra   Intensity = "EXTRA"
)

var intensityMultipliers = map[Intensity]decimal.Decimal{
	IntensityLight:   decimal.RequireFromString("0.75"),
	IntensityRegular: decimal.NewFromInt(1),
	IntensityExtra:   decimal.RequireFromString("1.5"),
}

// Valid reports whether i is a known intensity.
func (i Intensity) Valid() bool {
	_, ok := intensityMultipliers[i]
	return ok
}

// Multiplier returns the topping price multiplier for i. Unknown values map to REGULAR.
func (i Intensity) Multiplier() decimal.Decimal {
	if m, ok := intensityMultipliers[i]; ok {
		return m
	}
	return intensityMultipliers[IntensityRegular]
}

// CookingLevel is the crust bake preference. It never affects price.
type CookingLevel string

const (
	CookingLight    CookingLevel = "LIGHT"
	CookingRegular  CookingLevel = "REGULAR"
	CookingWellDone CookingLevel = "WELL_DONE"
)

// Valid reports whether c is a known cooking level.
func (c CookingLevel) Valid() bool {
	switch c {
	case CookingLight, CookingRegular, CookingWellDone:
		return true
	}
	return false
}

// Upper bounds on repeat counts. MaxOptionQuantity applies to options that
// allow repeats without a catalog maximum.
const (
	MaxToppingQuantity = 5
	MaxOptionQuantity  = 20
)

// ToppingPlacement puts one topping on one section of the pizza.
type ToppingPlacement struct {
	ToppingID string    `json:"toppingId"`
	Section   Section   `json:"section,omitempty"`
	Intensity Intensity `json:"intensity,omitempty"`
	Quantity  int       `json:"quantity,omitempty"`
}

// EffectiveSection returns the section, defaulting to WHOLE.
func (p ToppingPlacement) EffectiveSection() Section {
	if p.Section == "" {
		return SectionWhole
	}
	return p.Section
}

// EffectiveIntensity returns the intensity, defaulting to REGULAR.
func (p ToppingPlacement) EffectiveIntensity() Intensity {
	if p.Intensity == "" {
		return IntensityRegular
	}
	return p.Intensity
}

// EffectiveQuantity returns the quantity, defaulting to 1.
func (p ToppingPlacement) EffectiveQuantity() int {
	if p.Quantity == 0 {
		return 1
	}
	return p.Quantity
}

// PizzaConfiguration describes a built or specialty pizza.
type PizzaConfiguration struct {
	SpecialtyPizzaID  string             `json:"specialtyPizzaId,omitempty"`
	SizeID            string             `json:"sizeId"`
	CrustID           string             `json:"crustId"`
	SauceID           string             `json:"sauceId"`
	CrustCookingLevel CookingLevel       `json:"crustCookingLevel,omitempty"`
	SauceIntensity    Intensity          `json:"sauceIntensity,omitempty"`
	Toppings          []ToppingPlacement `json:"toppings"`
}

// Refs lists every catalog id the configuration references.
func (c PizzaConfiguration) Refs() catalog.Refs {
	refs := catalog.Refs{
		SizeIDs:  nonEmpty(c.SizeID),
		CrustIDs: nonEmpty(c.CrustID),
		SauceIDs: nonEmpty(c.SauceID),
	}
	if c.SpecialtyPizzaID != "" {
		refs.SpecialtyIDs = []string{c.SpecialtyPizzaID}
	}
	for _, t := range c.Toppings {
		refs.ToppingIDs = append(refs.ToppingIDs, t.ToppingID)
	}
	return refs
}

// OptionSelection picks one option, optionally more than once.
type OptionSelection struct {
	OptionID string `json:"optionId"`
	Quantity int    `json:"quantity,omitempty"`
}

// EffectiveQuantity returns the quantity, defaulting to 1.
func (o OptionSelection) EffectiveQuantity() int {
	if o.Quantity == 0 {
		return 1
	}
	return o.Quantity
}

// GroupSelection holds the options chosen within one customization group.
type GroupSelection struct {
	GroupID string            `json:"groupId"`
	Options []OptionSelection `json:"options"`
}

// MenuConfiguration describes a customized menu item.
type MenuConfiguration struct {
	MenuItemID string           `json:"menuItemId"`
	Selections []GroupSelection `json:"selections"`
}

// Refs lists every catalog id the configuration references.
func (c MenuConfiguration) Refs() catalog.Refs {
	refs := catalog.Refs{MenuItemIDs: nonEmpty(c.MenuItemID)}
	for _, sel := range c.Selections {
		for _, opt := range sel.Options {
			refs.OptionIDs = append(refs.OptionIDs, opt.OptionID)
		}
	}
	return refs
}

// Kind distinguishes pizza lines from menu lines.
type Kind string

const (
	KindPizza Kind = "PIZZA"
	KindMenu  Kind = "MENU"
)

// Line is a tagged union of the two configuration shapes. Exactly one of
// Pizza and Menu is set, matching Kind.
type Line struct {
	Kind  Kind
	Pizza *PizzaConfiguration
	Menu  *MenuConfiguration
}

// PizzaLine wraps cfg as a Line.
func PizzaLine(cfg PizzaConfiguration) Line {
	return Line{Kind: KindPizza, Pizza: &cfg}
}

// MenuLine wraps cfg as a Line.
func MenuLine(cfg MenuConfiguration) Line {
	return Line{Kind: KindMenu, Menu: &cfg}
}

// Refs lists every catalog id the line references.
func (l Line) Refs() catalog.Refs {
	switch {
	case l.Kind == KindPizza && l.Pizza != nil:
		return l.Pizza.Refs()
	case l.Kind == KindMenu && l.Menu != nil:
		return l.Menu.Refs()
	}
	return catalog.Refs{}
}

type lineJSON struct {
	Kind          Kind            `json:"kind"`
	Configuration json.RawMessage `json:"configuration"`
}

// MarshalJSON encodes the line as {"kind": ..., "configuration": {...}}.
func (l Line) MarshalJSON() ([]byte, error) {
	var cfg any
	switch l.Kind {
	case KindPizza:
		cfg = l.Pizza
	case KindMenu:
		cfg = l.Menu
	default:
		return nil, fmt.Errorf("configurator: unknown line kind %q", l.Kind)
	}
	raw, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	return json.Marshal(lineJSON{Kind: l.Kind, Configuration: raw})
}

// UnmarshalJSON decodes the configuration according to its kind.
func (l *Line) UnmarshalJSON(data []byte) error {
	var raw lineJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	line, err := DecodeLine(raw.Kind, raw.Configuration)
	if err != nil {
		return err
	}
	*l = line
	return nil
}

// DecodeLine builds a Line from a kind and its raw JSON configuration.
func DecodeLine(kind Kind, configuration json.RawMessage) (Line, error) {
	kind = Kind(strings.ToUpper(strings.TrimSpace(string(kind))))
	if len(configuration) == 0 || string(configuration) == "null" {
		return Line{}, fmt.Errorf("configurator: configuration is required")
	}
	switch kind {
	case KindPizza:
		var cfg PizzaConfiguration
		if err := json.Unmarshal(configuration, &cfg); err != nil {
			return Line{}, fmt.Errorf("configurator: pizza configuration: %w", err)
		}
		return Line{Kind: KindPizza, Pizza: &cfg}, nil
	case KindMenu:
		var cfg MenuConfiguration
		if err := json.Unmarshal(configuration, &cfg); err != nil {
			return Line{}, fmt.Errorf("configurator: menu configuration: %w", err)
		}
		return Line{Kind: KindMenu, Menu: &cfg}, nil
	default:
		return Line{}, fmt.Errorf("configurator: unknown line kind %q", kind)
	}
}

func nonEmpty(id string) []string {
	if strings.TrimSpace(id) == "" {
		return nil
	}
	return []string{id}
}
