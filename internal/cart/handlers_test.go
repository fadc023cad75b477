package cart_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pizzeria-api/internal/cart"
)

func newRouter(h *cart.Handler) http.Handler {
	r := chi.NewRouter()
	r.Post("/carts", h.Create)
	r.Get("/carts/{cartId}", h.Get)
	r.Post("/carts/{cartId}/lines", h.AddLine)
	r.Patch("/carts/{cartId}/lines/{lineId}", h.UpdateLine)
	r.Delete("/carts/{cartId}/lines/{lineId}", h.RemoveLine)
	return r
}

type cartResponse struct {
	Data struct {
		ID     string `json:"id"`
		LineID string `json:"lineId"`
		Lines  []struct {
			ID           string `json:"id"`
			UnitPrice    string `json:"unitPrice"`
			PriceChanged bool   `json:"priceChanged"`
		} `json:"lines"`
		Summary struct {
			Total string `json:"total"`
		} `json:"summary"`
	} `json:"data"`
}

func TestCartHandlers(t *testing.T) {
	f := newFixture(t)
	router := newRouter(&cart.Handler{Svc: f.svc})

	do := func(method, path, body string) (*httptest.ResponseRecorder, cartResponse) {
		req := httptest.NewRequest(method, path, strings.NewReader(body)).WithContext(context.Background())
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		var resp cartResponse
		_ = json.Unmarshal(rec.Body.Bytes(), &resp)
		return rec, resp
	}

	rec, created := do(http.MethodPost, "/carts", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	cartID := created.Data.ID

	rec, added := do(http.MethodPost, "/carts/"+cartID+"/lines", `{"kind":"PIZZA","quantity":1,"configuration":{"sizeId":"size-medium","crustId":"crust-thin","sauceId":"sauce-marinara","toppings":[{"toppingId":"top-pepperoni","intensity":"EXTRA"}]}}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "15.00", added.Data.Lines[0].UnitPrice)
	require.Equal(t, "16.50", added.Data.Summary.Total)

	rec, _ = do(http.MethodPost, "/carts/"+cartID+"/lines", `{"kind":"MENU","quantity":1,"configuration":{"menuItemId":"menu-italian-sub","selections":[]}}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec, updated := do(http.MethodPatch, "/carts/"+cartID+"/lines/"+added.Data.LineID, `{"quantity":2}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "33.00", updated.Data.Summary.Total)

	rec, _ = do(http.MethodPatch, "/carts/"+cartID+"/lines/"+added.Data.LineID, `{}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(http.MethodGet, "/carts/missing", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec, removed := do(http.MethodDelete, "/carts/"+cartID+"/lines/"+added.Data.LineID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, removed.Data.Lines)
}
