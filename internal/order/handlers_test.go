package order_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pizzeria-api/internal/order"
)

func newRouter(f fixture) http.Handler {
	h := &order.Handler{Materializer: f.m, Store: f.store}
	r := chi.NewRouter()
	r.Get("/api/v1/orders/{orderId}", h.Get)
	r.Post("/api/v1/orders/{orderId}/lines", h.Materialize)
	return r
}

func TestMaterializeHandler(t *testing.T) {
	f := newFixture(t)
	router := newRouter(f)

	t.Run("creates lines", func(t *testing.T) {
		body := `{"lines":[{"id":"l1","kind":"MENU","configuration":{"menuItemId":"menu-italian-sub","selections":[{"groupId":"grp-bread","options":[{"optionId":"opt-white"}]},{"groupId":"grp-sides","options":[{"optionId":"opt-chips"},{"optionId":"opt-slaw"}]}]},"quantity":2,"verifiedUnitPrice":"9.00"}]}`
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/orders/"+orderID+"/lines", strings.NewReader(body)))
		require.Equal(t, http.StatusCreated, rec.Code)
		require.Contains(t, rec.Body.String(), `"totalPrice":"18.00"`)
		require.Contains(t, rec.Body.String(), `"groupName":"Sides"`)
	})

	t.Run("stale price is 409", func(t *testing.T) {
		body := `{"lines":[{"id":"l1","kind":"MENU","configuration":{"menuItemId":"menu-italian-sub","selections":[{"groupId":"grp-bread","options":[{"optionId":"opt-garlic"}]},{"groupId":"grp-sides","options":[{"optionId":"opt-chips"},{"optionId":"opt-slaw"}]}]},"quantity":1,"verifiedUnitPrice":"9.00"}]}`
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/orders/"+orderID+"/lines", strings.NewReader(body)))
		require.Equal(t, http.StatusConflict, rec.Code)
		require.Contains(t, rec.Body.String(), "PRICE_MISMATCH")
	})

	t.Run("bad price format is 400", func(t *testing.T) {
		body := `{"lines":[{"kind":"MENU","configuration":{"menuItemId":"menu-italian-sub"},"quantity":1,"verifiedUnitPrice":"nine"}]}`
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/orders/"+orderID+"/lines", strings.NewReader(body)))
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown order is 404", func(t *testing.T) {
		body := `{"lines":[{"kind":"MENU","configuration":{"menuItemId":"menu-italian-sub"},"quantity":1,"verifiedUnitPrice":"9.00"}]}`
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/orders/nope/lines", strings.NewReader(body)))
		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestGetOrderHandler(t *testing.T) {
	f := newFixture(t)
	router := newRouter(f)
	_, err := f.m.Materialize(context.Background(), orderID, []order.Request{{Item: italianSub(), Quantity: 1, VerifiedUnitPrice: 1025}})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+orderID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"total":"11.27"`)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/orders/missing", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}
