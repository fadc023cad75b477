package order

import (
	"errors"
	"fmt"
	"time"

	"github.com/noah-isme/pizzeria-api/internal/configurator"
	"github.com/noah-isme/pizzeria-api/internal/money"
)

// ErrNotFound indicates the order does not exist.
var ErrNotFound = errors.New("order not found")

// ErrPersistence matches every PersistenceError via errors.Is.
var ErrPersistence = errors.New("order persistence failed")

// PersistenceError reports a failed write. No line of the attempt was stored.
type PersistenceError struct {
	OrderID string
	Err     error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s for order %s: %v", ErrPersistence, e.OrderID, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Is lets errors.Is match ErrPersistence.
func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

// StatusPlaced is the status of a freshly created order.
const StatusPlaced = "PLACED"

// Order is a placed order with its frozen lines.
type Order struct {
	ID           string      `json:"id"`
	CartID       string      `json:"cartId,omitempty"`
	Status       string      `json:"status"`
	CustomerName string      `json:"customerName"`
	Notes        string      `json:"notes,omitempty"`
	Currency     string      `json:"currency"`
	TaxBps       int64       `json:"taxBps"`
	Subtotal     money.Money `json:"subtotal"`
	Tax          money.Money `json:"tax"`
	Total        money.Money `json:"total"`
	Lines        []Line      `json:"lines"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

// Line is an immutable order line. Selections copy catalog names and amounts
// so later catalog edits never change it.
type Line struct {
	ID                string            `json:"id"`
	OrderID           string            `json:"orderId"`
	Position          int               `json:"position"`
	Kind              configurator.Kind `json:"kind"`
	Name              string            `json:"name"`
	Item              configurator.Line `json:"item"`
	Quantity          int               `json:"quantity"`
	UnitPriceSnapshot money.Money       `json:"unitPriceSnapshot"`
	TotalPrice        money.Money       `json:"totalPrice"`
	Notes             string            `json:"notes,omitempty"`
	Selections        []Selection       `json:"selections"`
	CreatedAt         time.Time         `json:"createdAt"`
}

// Selection is a denormalized copy of one chosen catalog entity.
type Selection struct {
	Kind      string      `json:"kind"`
	RefID     string      `json:"refId"`
	Name      string      `json:"name"`
	GroupName string      `json:"groupName,omitempty"`
	Section   string      `json:"section,omitempty"`
	Intensity string      `json:"intensity,omitempty"`
	Quantity  int         `json:"quantity"`
	Amount    money.Money `json:"amount"`
	Included  bool        `json:"included,omitempty"`
}
