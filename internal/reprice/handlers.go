package reprice

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/noah-isme/pizzeria-api/internal/common"
	"github.com/noah-isme/pizzeria-api/internal/configurator"
	"github.com/noah-isme/pizzeria-api/internal/money"
	"github.com/noah-isme/pizzeria-api/internal/pricing"
)

// Handler exposes the quote and re-pricing endpoints. Both are read-only.
type Handler struct {
	svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type quoteRequest struct {
	Kind          configurator.Kind `json:"kind" validate:"required"`
	Configuration json.RawMessage   `json:"configuration" validate:"required"`
}

type itemRequest struct {
	ID            string            `json:"id" validate:"required"`
	Kind          configurator.Kind `json:"kind" validate:"required"`
	Configuration json.RawMessage   `json:"configuration" validate:"required"`
	ClientPrice   string            `json:"clientPrice,omitempty"`
}

type repriceRequest struct {
	Items []itemRequest `json:"items" validate:"required,min=1,max=100,dive"`
}

// BreakdownView is the public shape of a priced line.
type BreakdownView struct {
	Price      string          `json:"price"`
	PriceMinor int64           `json:"priceMinor"`
	Components []ComponentView `json:"breakdown"`
}

// ComponentView is the public shape of one priced component.
type ComponentView struct {
	Kind       string `json:"kind"`
	ID         string `json:"id"`
	Name       string `json:"name"`
	Amount     string `json:"amount"`
	Multiplier string `json:"multiplier,omitempty"`
	Quantity   int    `json:"quantity,omitempty"`
	Included   bool   `json:"included,omitempty"`
}

// NewBreakdownView renders b for API responses.
func NewBreakdownView(b pricing.Breakdown) BreakdownView {
	view := BreakdownView{Price: b.Total.String(), PriceMinor: int64(b.Total), Components: make([]ComponentView, 0, len(b.Components))}
	for _, c := range b.Components {
		view.Components = append(view.Components, ComponentView{
			Kind:       c.Kind,
			ID:         c.ID,
			Name:       c.Name,
			Amount:     c.Amount.String(),
			Multiplier: c.Multiplier,
			Quantity:   c.Quantity,
			Included:   c.Included,
		})
	}
	return view
}

// Quote handles POST /api/v1/pricing/quote.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	line, err := configurator.DecodeLine(req.Kind, req.Configuration)
	if err != nil {
		writeError(w, common.BadRequest(err.Error(), err))
		return
	}
	b, err := h.svc.Quote(r.Context(), line)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": NewBreakdownView(b)})
}

type itemResponse struct {
	ID                string          `json:"id"`
	CurrentPrice      *string         `json:"currentPrice"`
	CurrentPriceMinor *int64          `json:"currentPriceMinor"`
	ClientPrice       string          `json:"clientPrice,omitempty"`
	Matches           *bool           `json:"matches,omitempty"`
	Breakdown         []ComponentView `json:"breakdown,omitempty"`
	Error             *errorView      `json:"error,omitempty"`
}

type errorView struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Reprice handles POST /api/v1/pricing/reprice. Lines that cannot be priced
// carry an error instead of a price; the request as a whole still succeeds.
func (h *Handler) Reprice(w http.ResponseWriter, r *http.Request) {
	var req repriceRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	items := make([]Item, 0, len(req.Items))
	clientPrices := make(map[int]money.Money, len(req.Items))
	for i, it := range req.Items {
		line, err := configurator.DecodeLine(it.Kind, it.Configuration)
		if err != nil {
			writeError(w, common.BadRequest("items["+it.ID+"]: "+err.Error(), err))
			return
		}
		if p := strings.TrimSpace(it.ClientPrice); p != "" {
			parsed, err := money.Parse(p)
			if err != nil {
				writeError(w, common.BadRequest("items["+it.ID+"].clientPrice is not a valid amount", err))
				return
			}
			clientPrices[i] = parsed
		}
		items = append(items, Item{ID: it.ID, Line: line})
	}

	results, err := h.svc.Reprice(r.Context(), items)
	if err != nil {
		writeError(w, err)
		return
	}
	var current money.Money
	out := make([]itemResponse, 0, len(results))
	for i, res := range results {
		resp := itemResponse{ID: res.ID}
		if res.Err != nil {
			appErr := AppError(res.Err)
			if appErr == nil {
				appErr = common.NewAppError(common.CodeInternal, "unable to price line", http.StatusInternalServerError, res.Err)
			}
			resp.Error = &errorView{Code: appErr.Code, Message: appErr.Message, Details: appErr.Details}
			out = append(out, resp)
			continue
		}
		price := res.CurrentPrice.String()
		minor := int64(res.CurrentPrice)
		resp.CurrentPrice = &price
		resp.CurrentPriceMinor = &minor
		resp.Breakdown = NewBreakdownView(res.Breakdown).Components
		if client, ok := clientPrices[i]; ok {
			matches := money.WithinEpsilon(client.Minor(), res.CurrentPrice.Minor(), h.svc.Epsilon())
			resp.ClientPrice = client.String()
			resp.Matches = &matches
		}
		current += res.CurrentPrice
		out = append(out, resp)
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{
			"items":        out,
			"currentTotal": current.String(),
		},
	})
}

func writeError(w http.ResponseWriter, err error) {
	if appErr := AppError(err); appErr != nil {
		common.WriteAppError(w, appErr)
		return
	}
	common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "internal error", nil)
}
