package order

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/pizzeria-api/internal/common"
	"github.com/noah-isme/pizzeria-api/internal/configurator"
	"github.com/noah-isme/pizzeria-api/internal/lock"
	"github.com/noah-isme/pizzeria-api/internal/money"
	"github.com/noah-isme/pizzeria-api/internal/reprice"
)

// Handler exposes order endpoints.
type Handler struct {
	Materializer *Materializer
	Store        Store
}

type lineRequest struct {
	ID                string            `json:"id"`
	Kind              configurator.Kind `json:"kind" validate:"required"`
	Configuration     json.RawMessage   `json:"configuration" validate:"required"`
	Quantity          int               `json:"quantity" validate:"gte=1,lte=99"`
	VerifiedUnitPrice string            `json:"verifiedUnitPrice" validate:"required"`
	Notes             string            `json:"notes" validate:"max=500"`
}

type materializeRequest struct {
	Lines []lineRequest `json:"lines" validate:"required,min=1,dive"`
}

// Get handles GET /api/v1/orders/{orderId}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	o, err := h.Store.Get(r.Context(), chi.URLParam(r, "orderId"))
	if err != nil {
		WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": Render(o)})
}

// Materialize handles POST /api/v1/orders/{orderId}/lines.
func (h *Handler) Materialize(w http.ResponseWriter, r *http.Request) {
	var req materializeRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	reqs := make([]Request, 0, len(req.Lines))
	for i, l := range req.Lines {
		item, err := configurator.DecodeLine(l.Kind, l.Configuration)
		if err != nil {
			WriteError(w, common.BadRequest(fmt.Sprintf("lines[%d]: %v", i, err), err))
			return
		}
		price, err := money.Parse(l.VerifiedUnitPrice)
		if err != nil {
			WriteError(w, common.BadRequest(fmt.Sprintf("lines[%d].verifiedUnitPrice is not a valid amount", i), err))
			return
		}
		id := l.ID
		if id == "" {
			id = fmt.Sprintf("%d", i)
		}
		reqs = append(reqs, Request{ID: id, Item: item, Quantity: l.Quantity, VerifiedUnitPrice: price, Notes: l.Notes})
	}
	o, err := h.Materializer.Materialize(r.Context(), chi.URLParam(r, "orderId"), reqs)
	if err != nil {
		WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": Render(o)})
}

// Render shapes an order for JSON responses with decimal price strings.
func Render(o Order) map[string]any {
	lines := make([]map[string]any, 0, len(o.Lines))
	for _, l := range o.Lines {
		sels := make([]map[string]any, 0, len(l.Selections))
		for _, s := range l.Selections {
			sel := map[string]any{
				"kind":     s.Kind,
				"refId":    s.RefID,
				"name":     s.Name,
				"quantity": s.Quantity,
				"amount":   s.Amount.String(),
				"included": s.Included,
			}
			if s.GroupName != "" {
				sel["groupName"] = s.GroupName
			}
			if s.Section != "" {
				sel["section"] = s.Section
			}
			if s.Intensity != "" {
				sel["intensity"] = s.Intensity
			}
			sels = append(sels, sel)
		}
		lines = append(lines, map[string]any{
			"id":                l.ID,
			"position":          l.Position,
			"kind":              l.Kind,
			"name":              l.Name,
			"item":              l.Item,
			"quantity":          l.Quantity,
			"unitPriceSnapshot": l.UnitPriceSnapshot.String(),
			"totalPrice":        l.TotalPrice.String(),
			"notes":             l.Notes,
			"selections":        sels,
		})
	}
	return map[string]any{
		"id":           o.ID,
		"status":       o.Status,
		"customerName": o.CustomerName,
		"notes":        o.Notes,
		"currency":     o.Currency,
		"subtotal":     o.Subtotal.String(),
		"tax":          o.Tax.String(),
		"total":        o.Total.String(),
		"totalMinor":   int64(o.Total),
		"lines":        lines,
		"createdAt":    o.CreatedAt,
	}
}

// WriteError maps order and engine errors to the JSON error envelope.
func WriteError(w http.ResponseWriter, err error) {
	if err == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "unknown error", nil)
		return
	}
	if appErr := reprice.AppError(err); appErr != nil {
		common.WriteAppError(w, appErr)
		return
	}
	var perr *PersistenceError
	switch {
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, common.CodeNotFound, err.Error(), nil)
	case errors.Is(err, lock.ErrBusy):
		common.JSONError(w, http.StatusConflict, common.CodeConflict, "order is being modified", nil)
	case errors.As(err, &perr):
		common.JSONError(w, http.StatusInternalServerError, common.CodePersistence, ErrPersistence.Error(), map[string]any{"orderId": perr.OrderID})
	default:
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "internal error", nil)
	}
}
