package checkout_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pizzeria-api/internal/checkout"
)

func TestCheckoutHandler(t *testing.T) {
	t.Run("places the order", func(t *testing.T) {
		f := newFixture(t)
		cartID, lineID := seedCart(t, f)
		h := &checkout.Handler{Svc: f.svc}

		body := fmt.Sprintf(`{"cartId":%q,"lines":[{"id":%q,"clientUnitPrice":"14.00"}],"expectedTotal":"30.80","customerName":"Ada"}`, cartID, lineID)
		rec := httptest.NewRecorder()
		h.Checkout(rec, httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(body)))
		require.Equal(t, http.StatusCreated, rec.Code)
		require.Contains(t, rec.Body.String(), `"total":"30.80"`)
	})

	t.Run("stale price is 409 with current prices", func(t *testing.T) {
		f := newFixture(t)
		cartID, lineID := seedCart(t, f)
		h := &checkout.Handler{Svc: f.svc}

		body := fmt.Sprintf(`{"cartId":%q,"lines":[{"id":%q,"clientUnitPrice":"12.00"}],"expectedTotal":"26.40","customerName":"Ada"}`, cartID, lineID)
		rec := httptest.NewRecorder()
		h.Checkout(rec, httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(body)))
		require.Equal(t, http.StatusConflict, rec.Code)
		require.Contains(t, rec.Body.String(), "PRICE_MISMATCH")
		require.Contains(t, rec.Body.String(), `"currentUnitPrice":"14.00"`)
	})

	t.Run("missing cart is 404", func(t *testing.T) {
		f := newFixture(t)
		h := &checkout.Handler{Svc: f.svc}
		body := `{"cartId":"nope","lines":[{"id":"x","clientUnitPrice":"1.00"}],"expectedTotal":"1.00","customerName":"Ada"}`
		rec := httptest.NewRecorder()
		h.Checkout(rec, httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(body)))
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("invalid body is 400", func(t *testing.T) {
		f := newFixture(t)
		h := &checkout.Handler{Svc: f.svc}
		rec := httptest.NewRecorder()
		h.Checkout(rec, httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(`{"cartId":"x"}`)))
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
