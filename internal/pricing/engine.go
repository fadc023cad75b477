package pricing

import "github.com/noah-isme/pizzeria-api/internal/money"

// Item describes a priced line used for summary calculation.
type Item struct {
	Qty       int
	UnitPrice money.Money
}

// Summary aggregates computed cart totals.
type Summary struct {
	Subtotal money.Money `json:"subtotal"`
	Tax      money.Money `json:"tax"`
	Total    money.Money `json:"total"`
	Currency string      `json:"currency"`
}

// Compute calculates totals for the provided lines. Tax is expressed in basis
// points and rounded down to the minor unit.
func Compute(items []Item, taxBps int64, currency string) Summary {
	var subtotal money.Money
	for _, it := range items {
		if it.Qty <= 0 {
			continue
		}
		subtotal += money.Money(it.Qty) * it.UnitPrice
	}
	return Summarize(subtotal, taxBps, currency)
}

// Summarize applies tax to an already computed subtotal.
func Summarize(subtotal money.Money, taxBps int64, currency string) Summary {
	if subtotal < 0 {
		subtotal = 0
	}
	tax := (subtotal * money.Money(taxBps)) / 10000
	return Summary{
		Subtotal: subtotal,
		Tax:      tax,
		Total:    subtotal + tax,
		Currency: currency,
	}
}
