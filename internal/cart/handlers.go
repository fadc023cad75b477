package cart

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/pizzeria-api/internal/common"
	"github.com/noah-isme/pizzeria-api/internal/configurator"
	"github.com/noah-isme/pizzeria-api/internal/lock"
	"github.com/noah-isme/pizzeria-api/internal/reprice"
)

// Handler wires cart services to HTTP.
type Handler struct {
	Svc *Service
}

type addLineRequest struct {
	Kind          configurator.Kind `json:"kind" validate:"required"`
	Configuration json.RawMessage   `json:"configuration" validate:"required"`
	Quantity      int               `json:"quantity" validate:"gte=1,lte=99"`
	Notes         string            `json:"notes" validate:"max=500"`
}

type updateLineRequest struct {
	Quantity *int    `json:"quantity" validate:"omitempty,gte=1,lte=99"`
	Notes    *string `json:"notes" validate:"omitempty,max=500"`
}

// Create handles POST /api/v1/carts.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	view, err := h.Svc.Create(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": render(view)})
}

// Get handles GET /api/v1/carts/{cartId}. Every call re-prices the cart.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	view, err := h.Svc.View(r.Context(), chi.URLParam(r, "cartId"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": render(view)})
}

// AddLine handles POST /api/v1/carts/{cartId}/lines.
func (h *Handler) AddLine(w http.ResponseWriter, r *http.Request) {
	var req addLineRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	line, err := configurator.DecodeLine(req.Kind, req.Configuration)
	if err != nil {
		h.writeError(w, common.BadRequest(err.Error(), err))
		return
	}
	view, lineID, err := h.Svc.AddLine(r.Context(), chi.URLParam(r, "cartId"), line, req.Quantity, req.Notes)
	if err != nil {
		h.writeError(w, err)
		return
	}
	payload := render(view)
	payload["lineId"] = lineID
	common.JSON(w, http.StatusCreated, map[string]any{"data": payload})
}

// UpdateLine handles PATCH /api/v1/carts/{cartId}/lines/{lineId}.
func (h *Handler) UpdateLine(w http.ResponseWriter, r *http.Request) {
	var req updateLineRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	if req.Quantity == nil && req.Notes == nil {
		h.writeError(w, common.BadRequest("quantity or notes is required", nil))
		return
	}
	view, err := h.Svc.UpdateLine(r.Context(), chi.URLParam(r, "cartId"), chi.URLParam(r, "lineId"), req.Quantity, req.Notes)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": render(view)})
}

// RemoveLine handles DELETE /api/v1/carts/{cartId}/lines/{lineId}.
func (h *Handler) RemoveLine(w http.ResponseWriter, r *http.Request) {
	view, err := h.Svc.RemoveLine(r.Context(), chi.URLParam(r, "cartId"), chi.URLParam(r, "lineId"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": render(view)})
}

func render(view View) map[string]any {
	lines := make([]map[string]any, 0, len(view.Lines))
	for _, l := range view.Lines {
		item := map[string]any{
			"id":                l.ID,
			"item":              l.Item,
			"quantity":          l.Quantity,
			"notes":             l.Notes,
			"unitPrice":         l.UnitPriceSnapshot.String(),
			"unitPriceMinor":    int64(l.UnitPriceSnapshot),
			"previousUnitPrice": l.PreviousUnitPrice.String(),
			"priceChanged":      l.PriceChanged,
			"unavailable":       l.Unavailable,
		}
		if l.Unavailable {
			if appErr := reprice.AppError(l.Err); appErr != nil {
				item["error"] = common.ErrorBody{Code: appErr.Code, Message: appErr.Message, Details: appErr.Details}
			}
		} else {
			item["lineTotal"] = l.LineTotal.String()
			item["breakdown"] = reprice.NewBreakdownView(l.Breakdown).Components
		}
		lines = append(lines, item)
	}
	return map[string]any{
		"id":        view.Cart.ID,
		"lines":     lines,
		"hasIssues": view.HasIssues,
		"summary": map[string]any{
			"subtotal":      view.Summary.Subtotal.String(),
			"tax":           view.Summary.Tax.String(),
			"total":         view.Summary.Total.String(),
			"subtotalMinor": int64(view.Summary.Subtotal),
			"totalMinor":    int64(view.Summary.Total),
			"currency":      view.Summary.Currency,
		},
		"updatedAt": view.Cart.UpdatedAt,
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if err == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "unknown error", nil)
		return
	}
	if appErr := reprice.AppError(err); appErr != nil {
		common.WriteAppError(w, appErr)
		return
	}
	switch {
	case errors.Is(err, ErrInvalidInput):
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, err.Error(), nil)
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrLineNotFound):
		common.JSONError(w, http.StatusNotFound, common.CodeNotFound, err.Error(), nil)
	case errors.Is(err, lock.ErrBusy):
		common.JSONError(w, http.StatusConflict, common.CodeConflict, err.Error(), nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "internal error", nil)
	}
}
