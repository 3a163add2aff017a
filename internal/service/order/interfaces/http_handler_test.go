package interfaces

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"stockflow/internal/service/order/application"
	"stockflow/internal/service/order/domain"
	"stockflow/internal/service/order/domain/port"
)

type memOrderRepo struct {
	mu     sync.Mutex
	orders map[string]*domain.Order
}

func newMemOrderRepo() *memOrderRepo {
	return &memOrderRepo{orders: make(map[string]*domain.Order)}
}

func (r *memOrderRepo) Create(_ context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *order
	r.orders[order.ID] = &copied
	return nil
}

func (r *memOrderRepo) Save(_ context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[order.ID]; !ok {
		return domain.ErrOrderNotFound
	}
	copied := *order
	r.orders[order.ID] = &copied
	return nil
}

func (r *memOrderRepo) FindByID(_ context.Context, id string) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	copied := *order
	return &copied, nil
}

func (r *memOrderRepo) List(_ context.Context, page, limit int) ([]*domain.Order, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := make([]*domain.Order, 0, len(r.orders))
	for _, o := range r.orders {
		copied := *o
		all = append(all, &copied)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID < all[j].ID
		}
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})
	total := int64(len(all))
	start := (page - 1) * limit
	if start >= len(all) {
		return nil, total, nil
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

type memInventoryClient struct {
	mu    sync.Mutex
	items map[string]int64
	err   error
}

func (c *memInventoryClient) GetItem(_ context.Context, itemID string) (*port.RemoteItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	qty, ok := c.items[itemID]
	if !ok {
		return nil, domain.ErrItemNotFound
	}
	return &port.RemoteItem{ID: itemID, Quantity: qty, Price: 1}, nil
}

func (c *memInventoryClient) ReserveStock(_ context.Context, itemID string, quantity int64) (*port.RemoteItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	qty, ok := c.items[itemID]
	if !ok {
		return nil, domain.ErrItemNotFound
	}
	if qty < quantity {
		return nil, domain.ErrInsufficientStock
	}
	c.items[itemID] = qty - quantity
	return &port.RemoteItem{ID: itemID, Quantity: qty - quantity, Price: 1}, nil
}

func newTestMux(t *testing.T, stock map[string]int64) *http.ServeMux {
	t.Helper()
	repo := newMemOrderRepo()
	inv := &memInventoryClient{items: stock}
	svc := application.NewOrderApplicationService(repo, inv, 2*time.Second, otel.Tracer("test"))
	mux := http.NewServeMux()
	NewOrderHandler(svc, nil).RegisterRoutes(mux)
	return mux
}

func doRequest(mux *http.ServeMux, method, path string, payload interface{}) *httptest.ResponseRecorder {
	var body bytes.Buffer
	if payload != nil {
		_ = json.NewEncoder(&body).Encode(payload)
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var envelope map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope
}

func TestCreateOrderEndpoint(t *testing.T) {
	mux := newTestMux(t, map[string]int64{"item-1": 20})

	rec := doRequest(mux, http.MethodPost, "/orders", map[string]interface{}{"itemId": "item-1", "quantity": 5})
	require.Equal(t, http.StatusCreated, rec.Code)

	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, "Order created successfully", envelope["message"])
	data := envelope["data"].(map[string]interface{})
	assert.Equal(t, "item-1", data["itemId"])
	assert.Equal(t, float64(5), data["quantity"])
	assert.Equal(t, string(domain.StatusCompleted), data["status"])
}

func TestCreateOrderInvalidInput(t *testing.T) {
	mux := newTestMux(t, map[string]int64{"item-1": 20})

	rec := doRequest(mux, http.MethodPost, "/orders", map[string]interface{}{"itemId": "", "quantity": 5})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(mux, http.MethodPost, "/orders", map[string]interface{}{"itemId": "item-1", "quantity": 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// 余量不足从下单入口看是业务拒绝，返回 400 而不是 409。
func TestCreateOrderInsufficientStock(t *testing.T) {
	mux := newTestMux(t, map[string]int64{"item-1": 2})

	rec := doRequest(mux, http.MethodPost, "/orders", map[string]interface{}{"itemId": "item-1", "quantity": 5})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Insufficient stock for this item", decodeEnvelope(t, rec)["message"])
}

func TestCreateOrderUnknownItem(t *testing.T) {
	mux := newTestMux(t, map[string]int64{})

	rec := doRequest(mux, http.MethodPost, "/orders", map[string]interface{}{"itemId": "nope", "quantity": 1})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateOrderUpstreamDown(t *testing.T) {
	repo := newMemOrderRepo()
	inv := &memInventoryClient{err: domain.ErrUpstreamUnavailable}
	svc := application.NewOrderApplicationService(repo, inv, 2*time.Second, otel.Tracer("test"))
	mux := http.NewServeMux()
	NewOrderHandler(svc, nil).RegisterRoutes(mux)

	rec := doRequest(mux, http.MethodPost, "/orders", map[string]interface{}{"itemId": "item-1", "quantity": 1})
	require.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "Inventory service unavailable", decodeEnvelope(t, rec)["message"])
}

func TestGetOrderEndpoint(t *testing.T) {
	mux := newTestMux(t, map[string]int64{"item-1": 20})

	rec := doRequest(mux, http.MethodPost, "/orders", map[string]interface{}{"itemId": "item-1", "quantity": 2})
	require.Equal(t, http.StatusCreated, rec.Code)
	orderID := decodeEnvelope(t, rec)["data"].(map[string]interface{})["id"].(string)

	rec = doRequest(mux, http.MethodGet, "/orders/"+orderID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeEnvelope(t, rec)["data"].(map[string]interface{})
	assert.Equal(t, orderID, data["id"])
}

func TestGetOrderNotFound(t *testing.T) {
	mux := newTestMux(t, map[string]int64{})

	rec := doRequest(mux, http.MethodGet, "/orders/missing", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Order not found", decodeEnvelope(t, rec)["message"])
}

func TestListOrdersEndpoint(t *testing.T) {
	mux := newTestMux(t, map[string]int64{"item-1": 100})

	for i := 0; i < 12; i++ {
		rec := doRequest(mux, http.MethodPost, "/orders", map[string]interface{}{"itemId": "item-1", "quantity": 1})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := doRequest(mux, http.MethodGet, "/orders?page=2&limit=10", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	data := decodeEnvelope(t, rec)["data"].(map[string]interface{})
	assert.Len(t, data["docs"], 2)
	assert.Equal(t, float64(2), data["page"])
	assert.Equal(t, float64(10), data["limit"])
	assert.Equal(t, float64(12), data["totalDocs"])
	assert.Equal(t, float64(2), data["totalPages"])
}

// page/limit 非法时静默回落到默认值，不报 400。
func TestListOrdersBadPaginationFallsBack(t *testing.T) {
	mux := newTestMux(t, map[string]int64{"item-1": 100})

	rec := doRequest(mux, http.MethodGet, "/orders?page=abc&limit=-5", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	data := decodeEnvelope(t, rec)["data"].(map[string]interface{})
	assert.Equal(t, float64(1), data["page"])
	assert.Equal(t, float64(10), data["limit"])
}
