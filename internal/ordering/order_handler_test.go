package ordering

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderHandlers(t *testing.T) {
	f := newFixture(t, Options{})
	app := fiber.New()
	app.Post("/orders", CreateOrderHandler(f.svc))
	app.Get("/orders/:reference", GetOrderHandler(f.svc))
	app.Put("/orders/:reference/dishes", ReplaceDishesHandler(f.svc))
	app.Post("/orders/:reference/confirm", ConfirmOrderHandler(f.svc))
	app.Put("/orders/:reference/status", AdvanceOrderHandler(f.svc))
	app.Put("/orders/:reference/dishes/:dishId", UpdateDishStatusHandler(f.svc))
	app.Get("/dish-orders", LineTimestampsHandler(f.svc))
	app.Get("/sales/export", ExportSalesHandler(f.svc))

	do := func(method, path, body string) (*http.Response, string) {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		defer resp.Body.Close()
		raw, _ := io.ReadAll(resp.Body)
		return resp, string(raw)
	}

	resp, body := do(http.MethodPost, "/orders", `{"reference":"T-1","dishes":[{"dish_id":1,"quantity":2}]}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	assert.Contains(t, body, `"status":"CREATED"`)
	assert.Contains(t, body, `"total_amount":"25"`)

	resp, _ = do(http.MethodPost, "/orders", `{"reference":"T-1","dishes":[]}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = do(http.MethodPost, "/orders", `{"reference":"T-2","dishes":[{"dish_id":1,"quantity":0}]}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = do(http.MethodGet, "/orders/nope", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = do(http.MethodPut, "/orders/T-1/status", `{"status":"COOKING"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = do(http.MethodPut, "/orders/T-1/dishes", `{"dishes":[{"dish_id":2,"quantity":1}],"status":"SERVED"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, body = do(http.MethodPost, "/orders/T-1/confirm", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"status":"CONFIRMED"`)

	resp, _ = do(http.MethodPut, "/orders/T-1/dishes/1", `{"status":"FINISHED"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, body = do(http.MethodPut, "/orders/T-1/dishes/1", `{"status":"in_preparation"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"status":"IN_PREPARATION"`)

	resp, _ = do(http.MethodPut, "/orders/T-1/dishes", `{"dishes":[]}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, body = do(http.MethodGet, "/dish-orders", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"order_reference":"T-1"`)

	resp, _ = do(http.MethodGet, "/sales/export", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "sales.xlsx")
}
