package configurator

import "github.com/noah-isme/pizzeria-api/internal/catalog"

// PlaceTopping returns cfg with p applied. A topping already on the pizza is
// moved to the new section rather than duplicated.
func PlaceTopping(cfg PizzaConfiguration, p ToppingPlacement) PizzaConfiguration {
	out := cfg
	out.Toppings = make([]ToppingPlacement, 0, len(cfg.Toppings)+1)
	for _, t := range cfg.Toppings {
		if t.ToppingID != p.ToppingID {
			out.Toppings = append(out.Toppings, t)
		}
	}
	out.Toppings = append(out.Toppings, p)
	return out
}

// RemoveTopping returns cfg without any placement of toppingID.
func RemoveTopping(cfg PizzaConfiguration, toppingID string) PizzaConfiguration {
	out := cfg
	out.Toppings = make([]ToppingPlacement, 0, len(cfg.Toppings))
	for _, t := range cfg.Toppings {
		if t.ToppingID != toppingID {
			out.Toppings = append(out.Toppings, t)
		}
	}
	return out
}

// FromSpecialty returns the starting configuration for a specialty preset.
func FromSpecialty(sp catalog.SpecialtyPizza) PizzaConfiguration {
	cfg := PizzaConfiguration{
		SpecialtyPizzaID:  sp.ID,
		SizeID:            sp.DefaultSizeID,
		CrustID:           sp.DefaultCrustID,
		SauceID:           sp.DefaultSauceID,
		CrustCookingLevel: CookingRegular,
		SauceIntensity:    IntensityRegular,
		Toppings:          []ToppingPlacement{},
	}
	for _, t := range sp.Toppings {
		cfg = PlaceTopping(cfg, ToppingPlacement{
			ToppingID: t.ToppingID,
			Section:   Section(t.Section),
			Intensity: Intensity(t.Intensity),
			Quantity:  1,
		})
	}
	return cfg
}
