package configurator

import (
	"fmt"
	"strings"

	"github.com/noah-isme/pizzeria-api/internal/catalog"
)

// Validate checks a line against the catalog snapshot. It returns a
// *catalog.UnknownReferenceError for the first missing or inactive id, a
// *ValidationError for structural problems, or nil.
func Validate(line Line, snap *catalog.Snapshot) error {
	switch line.Kind {
	case KindPizza:
		if line.Pizza == nil {
			return &ValidationError{Errors: []error{&FieldError{Field: "configuration", Message: "pizza configuration is required"}}}
		}
		return ValidatePizza(*line.Pizza, snap)
	case KindMenu:
		if line.Menu == nil {
			return &ValidationError{Errors: []error{&FieldError{Field: "configuration", Message: "menu configuration is required"}}}
		}
		return ValidateMenu(*line.Menu, snap)
	default:
		return &ValidationError{Errors: []error{&FieldError{Field: "kind", Message: fmt.Sprintf("unknown kind %q", line.Kind)}}}
	}
}

// ValidatePizza checks mandatory singletons, enum values and topping section exclusivity.
func ValidatePizza(cfg PizzaConfiguration, snap *catalog.Snapshot) error {
	var c collector

	if strings.TrimSpace(cfg.SizeID) == "" {
		c.field("sizeId", "is required")
	}
	if strings.TrimSpace(cfg.CrustID) == "" {
		c.field("crustId", "is required")
	}
	if strings.TrimSpace(cfg.SauceID) == "" {
		c.field("sauceId", "is required")
	}
	if cfg.CrustCookingLevel != "" && !cfg.CrustCookingLevel.Valid() {
		c.field("crustCookingLevel", "unknown value %q", cfg.CrustCookingLevel)
	}
	if cfg.SauceIntensity != "" && !cfg.SauceIntensity.Valid() {
		c.field("sauceIntensity", "unknown value %q", cfg.SauceIntensity)
	}

	seen := make(map[string]int, len(cfg.Toppings))
	for i, t := range cfg.Toppings {
		name := fmt.Sprintf("toppings[%d]", i)
		if strings.TrimSpace(t.ToppingID) == "" {
			c.field(name+".toppingId", "is required")
			continue
		}
		if first, dup := seen[t.ToppingID]; dup {
			c.field(name+".toppingId", "topping %s already placed at toppings[%d]; a topping may occupy one section only", t.ToppingID, first)
		} else {
			seen[t.ToppingID] = i
		}
		if t.Section != "" && !t.Section.Valid() {
			c.field(name+".section", "unknown value %q", t.Section)
		}
		if t.Intensity != "" && !t.Intensity.Valid() {
			c.field(name+".intensity", "unknown value %q", t.Intensity)
		}
		if t.Quantity < 0 || t.Quantity > MaxToppingQuantity {
			c.field(name+".quantity", "must be between 1 and %d", MaxToppingQuantity)
		}
	}
	if err := c.result(); err != nil {
		return err
	}

	if cfg.SpecialtyPizzaID != "" {
		if _, err := snap.Specialty(cfg.SpecialtyPizzaID); err != nil {
			return err
		}
	}
	if _, err := snap.Size(cfg.SizeID); err != nil {
		return err
	}
	if _, err := snap.Crust(cfg.CrustID); err != nil {
		return err
	}
	if _, err := snap.Sauce(cfg.SauceID); err != nil {
		return err
	}
	for _, t := range cfg.Toppings {
		if _, err := snap.Topping(t.ToppingID); err != nil {
			return err
		}
	}
	return nil
}

// ValidateMenu checks that every required group is satisfied and every
// submitted group respects its cardinality bounds.
func ValidateMenu(cfg MenuConfiguration, snap *catalog.Snapshot) error {
	if strings.TrimSpace(cfg.MenuItemID) == "" {
		return &ValidationError{Errors: []error{&FieldError{Field: "menuItemId", Message: "is required"}}}
	}
	item, err := snap.MenuItem(cfg.MenuItemID)
	if err != nil {
		return err
	}
	groups, err := snap.GroupsFor(item)
	if err != nil {
		return err
	}
	byID := make(map[string]catalog.CustomizationGroup, len(groups))
	for _, g := range groups {
		byID[g.ID] = g
	}

	var c collector
	submitted := make(map[string]GroupSelection, len(cfg.Selections))
	for i, sel := range cfg.Selections {
		name := fmt.Sprintf("selections[%d]", i)
		group, ok := byID[sel.GroupID]
		if !ok {
			c.field(name+".groupId", "group %q does not belong to menu item %s", sel.GroupID, item.Name)
			continue
		}
		if _, dup := submitted[sel.GroupID]; dup {
			c.field(name+".groupId", "group %s submitted more than once", group.Name)
			continue
		}
		submitted[sel.GroupID] = sel

		picked := make(map[string]struct{}, len(sel.Options))
		for j, opt := range sel.Options {
			optName := fmt.Sprintf("%s.options[%d]", name, j)
			option, err := snap.Option(opt.OptionID)
			if err != nil {
				return err
			}
			if option.GroupID != group.ID {
				c.field(optName+".optionId", "option %s does not belong to group %s", option.Name, group.Name)
				continue
			}
			if _, dup := picked[opt.OptionID]; dup {
				c.field(optName+".optionId", "option %s selected more than once; use quantity", option.Name)
				continue
			}
			picked[opt.OptionID] = struct{}{}
			qty := opt.EffectiveQuantity()
			switch {
			case qty < 1:
				c.field(optName+".quantity", "must be positive")
			case qty > 1 && !option.AllowQuantity:
				c.field(optName+".quantity", "option %s cannot be repeated", option.Name)
			case qty > maxOptionQuantity(option):
				c.field(optName+".quantity", "option %s allows at most %d", option.Name, maxOptionQuantity(option))
			}
		}
	}

	for _, group := range groups {
		sel, present := submitted[group.ID]
		min, max := group.Bounds()
		if !present {
			if group.IsRequired {
				c.add(&CardinalityError{GroupID: group.ID, GroupName: group.Name, Min: min, Max: max, Actual: 0})
			}
			continue
		}
		count := len(sel.Options)
		if count < min || (max != catalog.Unbounded && count > max) {
			c.add(&CardinalityError{GroupID: group.ID, GroupName: group.Name, Min: min, Max: max, Actual: count})
		}
	}
	return c.result()
}

func maxOptionQuantity(o catalog.CustomizationOption) int {
	if o.MaxQuantity > 0 {
		return o.MaxQuantity
	}
	return MaxOptionQuantity
}
