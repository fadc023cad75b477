package reprice_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	ct "github.com/noah-isme/pizzeria-api/internal/catalog/catalogtest"
	"github.com/noah-isme/pizzeria-api/internal/reprice"
)

func TestQuoteHandler(t *testing.T) {
	h := reprice.NewHandler(newService(ct.NewLookup(ct.Demo())))

	t.Run("prices a pizza", func(t *testing.T) {
		body := `{"kind":"PIZZA","configuration":{"sizeId":"size-medium","crustId":"crust-thin","sauceId":"sauce-marinara","toppings":[{"toppingId":"top-pepperoni","section":"WHOLE","intensity":"EXTRA"}]}}`
		rec := httptest.NewRecorder()
		h.Quote(rec, httptest.NewRequest(http.MethodPost, "/api/v1/pricing/quote", strings.NewReader(body)))
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Data reprice.BreakdownView `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, "15.00", resp.Data.Price)
		require.Equal(t, int64(1500), resp.Data.PriceMinor)
		require.Len(t, resp.Data.Components, 4)
		require.Equal(t, "1.5", resp.Data.Components[3].Multiplier)
	})

	t.Run("invalid configuration is 422", func(t *testing.T) {
		body := `{"kind":"MENU","configuration":{"menuItemId":"menu-italian-sub","selections":[]}}`
		rec := httptest.NewRecorder()
		h.Quote(rec, httptest.NewRequest(http.MethodPost, "/api/v1/pricing/quote", strings.NewReader(body)))
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		require.Contains(t, rec.Body.String(), "VALIDATION_ERROR")
		require.Contains(t, rec.Body.String(), "Bread")
	})

	t.Run("unknown kind is 400", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.Quote(rec, httptest.NewRequest(http.MethodPost, "/api/v1/pricing/quote", strings.NewReader(`{"kind":"DRINK","configuration":{}}`)))
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestRepriceHandler(t *testing.T) {
	h := reprice.NewHandler(newService(ct.NewLookup(ct.Demo())))
	body := `{"items":[
		{"id":"l1","kind":"PIZZA","clientPrice":"14.00","configuration":{"sizeId":"size-medium","crustId":"crust-thin","sauceId":"sauce-marinara","toppings":[{"toppingId":"top-pepperoni"}]}},
		{"id":"l2","kind":"PIZZA","clientPrice":"9.99","configuration":{"sizeId":"size-medium","crustId":"crust-thin","sauceId":"sauce-marinara","toppings":[{"toppingId":"top-olive"}]}}
	]}`
	rec := httptest.NewRecorder()
	h.Reprice(rec, httptest.NewRequest(http.MethodPost, "/api/v1/pricing/reprice", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data struct {
			Items []struct {
				ID           string  `json:"id"`
				CurrentPrice *string `json:"currentPrice"`
				Matches      *bool   `json:"matches"`
				Error        *struct {
					Code string `json:"code"`
				} `json:"error"`
			} `json:"items"`
			CurrentTotal string `json:"currentTotal"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data.Items, 2)
	require.Equal(t, "14.00", *resp.Data.Items[0].CurrentPrice)
	require.True(t, *resp.Data.Items[0].Matches)
	require.Nil(t, resp.Data.Items[1].CurrentPrice)
	require.Equal(t, "UNKNOWN_CATALOG_REFERENCE", resp.Data.Items[1].Error.Code)
	require.Equal(t, "14.00", resp.Data.CurrentTotal)
}
