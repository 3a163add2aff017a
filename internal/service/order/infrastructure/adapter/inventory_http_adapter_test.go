package adapter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"stockflow/internal/pkg/httpclient"
	"stockflow/internal/service/order/domain"
)

func newAdapter(baseURL string) *InventoryHTTPAdapter {
	return NewInventoryHTTPAdapter(httpclient.NewClient(otel.Tracer("test")), baseURL)
}

func inventoryStub(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestGetItemDecodesEnvelope(t *testing.T) {
	srv := inventoryStub(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/items/item-1", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"message": "Item retrieved successfully",
			"data":    map[string]interface{}{"id": "item-1", "name": "Laptop", "quantity": 12, "price": 999.99},
		})
	})

	item, err := newAdapter(srv.URL).GetItem(context.Background(), "item-1")
	require.NoError(t, err)
	assert.Equal(t, "item-1", item.ID)
	assert.Equal(t, int64(12), item.Quantity)
	assert.Equal(t, 999.99, item.Price)
}

func TestGetItemNotFound(t *testing.T) {
	srv := inventoryStub(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Item not found"}`, http.StatusNotFound)
	})

	_, err := newAdapter(srv.URL).GetItem(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrItemNotFound)
}

func TestGetItemServerErrorIsUpstreamUnavailable(t *testing.T) {
	srv := inventoryStub(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := newAdapter(srv.URL).GetItem(context.Background(), "item-1")
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
}

func TestGetItemConnectionRefused(t *testing.T) {
	// 指向一个没人监听的地址
	_, err := newAdapter("http://127.0.0.1:1").GetItem(context.Background(), "item-1")
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
}

func TestReserveStockSendsQuantity(t *testing.T) {
	srv := inventoryStub(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/items/stock/item-1/reserve", r.URL.Path)

		var body map[string]int64
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, int64(5), body["quantity"])

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"message": "Stock reserved successfully",
			"data":    map[string]interface{}{"id": "item-1", "quantity": 7},
		})
	})

	item, err := newAdapter(srv.URL).ReserveStock(context.Background(), "item-1", 5)
	require.NoError(t, err)
	assert.Equal(t, int64(7), item.Quantity)
}

// 409 是库存侧的条件扣减被拒，要翻译成领域错误。
func TestReserveStockConflictMapsToInsufficientStock(t *testing.T) {
	srv := inventoryStub(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Insufficient stock for this item"}`, http.StatusConflict)
	})

	_, err := newAdapter(srv.URL).ReserveStock(context.Background(), "item-1", 5)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
}

func TestReserveStockHonorsContextTimeout(t *testing.T) {
	blocked := make(chan struct{})
	srv := inventoryStub(t, func(w http.ResponseWriter, r *http.Request) {
		<-blocked
	})
	defer close(blocked)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newAdapter(srv.URL).ReserveStock(ctx, "item-1", 1)
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
}
