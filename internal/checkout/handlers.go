package checkout

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/noah-isme/pizzeria-api/internal/cart"
	"github.com/noah-isme/pizzeria-api/internal/common"
	"github.com/noah-isme/pizzeria-api/internal/lock"
	"github.com/noah-isme/pizzeria-api/internal/money"
	"github.com/noah-isme/pizzeria-api/internal/order"
)

// Handler exposes the checkout endpoint.
type Handler struct {
	Svc *Service
}

type confirmedLine struct {
	ID              string `json:"id" validate:"required"`
	ClientUnitPrice string `json:"clientUnitPrice" validate:"required"`
}

type request struct {
	CartID        string          `json:"cartId" validate:"required"`
	Lines         []confirmedLine `json:"lines" validate:"required,min=1,dive"`
	ExpectedTotal string          `json:"expectedTotal" validate:"required"`
	CustomerName  string          `json:"customerName" validate:"required,max=120"`
	Notes         string          `json:"notes" validate:"max=500"`
}

// Checkout handles POST /api/v1/checkout.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "checkout service not configured", nil)
		return
	}
	var req request
	if err := common.DecodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	in := Input{
		CartID:       req.CartID,
		CustomerName: req.CustomerName,
		Notes:        req.Notes,
		Confirmed:    make(map[string]money.Money, len(req.Lines)),
	}
	for i, l := range req.Lines {
		price, err := money.Parse(l.ClientUnitPrice)
		if err != nil {
			h.writeError(w, common.BadRequest(fmt.Sprintf("lines[%d].clientUnitPrice is not a valid amount", i), err))
			return
		}
		if _, dup := in.Confirmed[l.ID]; dup {
			h.writeError(w, common.BadRequest(fmt.Sprintf("line %s is confirmed twice", l.ID), nil))
			return
		}
		in.Confirmed[l.ID] = price
	}
	total, err := money.Parse(req.ExpectedTotal)
	if err != nil {
		h.writeError(w, common.BadRequest("expectedTotal is not a valid amount", err))
		return
	}
	in.ExpectedTotal = total

	o, err := h.Svc.Checkout(r.Context(), in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": order.Render(o)})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, cart.ErrNotFound):
		common.JSONError(w, http.StatusNotFound, common.CodeNotFound, err.Error(), nil)
	case errors.Is(err, lock.ErrBusy):
		common.JSONError(w, http.StatusConflict, common.CodeConflict, "cart is being checked out", nil)
	default:
		order.WriteError(w, err)
	}
}
