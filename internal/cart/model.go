package cart

import (
	"errors"
	"time"

	"github.com/noah-isme/pizzeria-api/internal/configurator"
	"github.com/noah-isme/pizzeria-api/internal/money"
	"github.com/noah-isme/pizzeria-api/internal/pricing"
)

// ErrNotFound indicates the requested cart or line could not be located.
var ErrNotFound = errors.New("cart not found")

// ErrLineNotFound indicates the line is not part of the cart.
var ErrLineNotFound = errors.New("cart line not found")

// ErrInvalidInput is returned when the provided payload is invalid.
var ErrInvalidInput = errors.New("invalid input")

// MaxQuantity bounds the quantity of a single cart line.
const MaxQuantity = 99

// Line is one configured item in a cart. UnitPriceSnapshot is refreshed on
// every view and only becomes permanent at checkout.
type Line struct {
	ID                string            `json:"id"`
	Item              configurator.Line `json:"item"`
	Quantity          int               `json:"quantity"`
	Notes             string            `json:"notes,omitempty"`
	UnitPriceSnapshot money.Money       `json:"unitPriceSnapshot"`
	AddedAt           time.Time         `json:"addedAt"`
}

// Cart is a customer's in-progress order.
type Cart struct {
	ID        string    `json:"id"`
	Lines     []Line    `json:"lines"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (c *Cart) line(id string) (int, bool) {
	for i, l := range c.Lines {
		if l.ID == id {
			return i, true
		}
	}
	return -1, false
}

// LineView is a line after re-pricing.
type LineView struct {
	Line
	PreviousUnitPrice money.Money       `json:"previousUnitPrice"`
	PriceChanged      bool              `json:"priceChanged"`
	Unavailable       bool              `json:"unavailable"`
	Err               error             `json:"-"`
	Breakdown         pricing.Breakdown `json:"breakdown"`
	LineTotal         money.Money       `json:"lineTotal"`
}

// View is a freshly re-priced cart.
type View struct {
	Cart      Cart
	Lines     []LineView
	Summary   pricing.Summary
	HasIssues bool
}
