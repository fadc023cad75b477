package catalog

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/pizzeria-api/internal/common"
)

// Handler exposes read-only catalog endpoints used by the menu builder.
type Handler struct {
	lookup Lookup
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Lookup Lookup
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{lookup: cfg.Lookup}
}

// GroupView is the public payload of a customization group.
type GroupView struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	Type       GroupType    `json:"type"`
	IsRequired bool         `json:"isRequired"`
	Min        int          `json:"minSelections"`
	Max        *int         `json:"maxSelections"`
	Options    []OptionView `json:"options"`
}

// OptionView is the public payload of a customization option.
type OptionView struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	PriceModifier string `json:"priceModifier"`
	AllowQuantity bool   `json:"allowQuantity"`
	MaxQuantity   int    `json:"maxQuantity,omitempty"`
}

// Customizations handles GET /api/v1/menu-items/{id}/customizations.
func (h *Handler) Customizations(w http.ResponseWriter, r *http.Request) {
	if h.lookup == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog lookup not configured", nil)
		return
	}
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	snap, err := h.lookup.Snapshot(r.Context(), Refs{MenuItemIDs: []string{id}})
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to load catalog", nil)
		return
	}
	item, err := snap.MenuItem(id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	groups, err := snap.GroupsFor(item)
	if err != nil {
		h.writeError(w, err)
		return
	}
	views := make([]GroupView, 0, len(groups))
	for _, g := range groups {
		min, max := g.Bounds()
		view := GroupView{ID: g.ID, Name: g.Name, Type: g.Type, IsRequired: g.IsRequired, Min: min}
		if max != Unbounded {
			view.Max = &max
		}
		view.Options = make([]OptionView, 0, len(g.OptionIDs))
		for _, optID := range g.OptionIDs {
			opt, err := snap.Option(optID)
			if err != nil {
				// inactive options are simply not offered
				continue
			}
			view.Options = append(view.Options, OptionView{
				ID:            opt.ID,
				Name:          opt.Name,
				PriceModifier: moneyString(opt.PriceModifier),
				AllowQuantity: opt.AllowQuantity,
				MaxQuantity:   opt.MaxQuantity,
			})
		}
		views = append(views, view)
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{
			"menuItem": map[string]any{
				"id":        item.ID,
				"name":      item.Name,
				"basePrice": moneyString(item.BasePrice),
			},
			"groups": views,
		},
	})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var unknown *UnknownReferenceError
	if errors.As(err, &unknown) {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", unknown.Error(), map[string]any{
			"kind": unknown.Kind,
			"id":   unknown.ID,
		})
		return
	}
	common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
}
