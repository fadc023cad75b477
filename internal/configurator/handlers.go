package configurator

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/pizzeria-api/internal/catalog"
	"github.com/noah-isme/pizzeria-api/internal/common"
	"github.com/noah-isme/pizzeria-api/internal/money"
)

// Handler serves pizza builder endpoints.
type Handler struct {
	lookup catalog.Lookup
}

// NewHandler constructs a Handler.
func NewHandler(lookup catalog.Lookup) *Handler {
	return &Handler{lookup: lookup}
}

// SpecialtyConfiguration handles GET /api/v1/specialties/{id}/configuration and
// returns the preset's starting configuration for the builder.
func (h *Handler) SpecialtyConfiguration(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	snap, err := h.lookup.Snapshot(r.Context(), catalog.Refs{SpecialtyIDs: []string{id}})
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "unable to load catalog", nil)
		return
	}
	sp, err := snap.Specialty(id)
	if err != nil {
		var unknown *catalog.UnknownReferenceError
		if errors.As(err, &unknown) {
			common.JSONError(w, http.StatusNotFound, common.CodeNotFound, unknown.Error(), nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "internal error", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{
			"specialty": map[string]any{
				"id":        sp.ID,
				"name":      sp.Name,
				"basePrice": money.Money(sp.BasePrice).String(),
			},
			"line": PizzaLine(FromSpecialty(sp)),
		},
	})
}
