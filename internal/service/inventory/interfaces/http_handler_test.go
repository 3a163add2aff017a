package interfaces

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"stockflow/internal/service/inventory/application"
	"stockflow/internal/service/inventory/domain"
)

type memItemRepo struct {
	mu    sync.Mutex
	items map[string]*domain.Item
}

func newMemItemRepo() *memItemRepo {
	return &memItemRepo{items: make(map[string]*domain.Item)}
}

func (r *memItemRepo) Create(_ context.Context, item *domain.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *item
	r.items[item.ID] = &copied
	return nil
}

func (r *memItemRepo) FindByID(_ context.Context, id string) (*domain.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok {
		return nil, domain.ErrItemNotFound
	}
	copied := *item
	return &copied, nil
}

func (r *memItemRepo) UpdateQuantity(_ context.Context, id string, quantity int64) (*domain.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok {
		return nil, domain.ErrItemNotFound
	}
	item.Quantity = quantity
	copied := *item
	return &copied, nil
}

func (r *memItemRepo) ReserveQuantity(_ context.Context, id string, quantity int64) (*domain.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok {
		return nil, domain.ErrItemNotFound
	}
	if item.Quantity < quantity {
		return nil, domain.ErrInsufficientStock
	}
	item.Quantity -= quantity
	copied := *item
	return &copied, nil
}

func newTestMux(t *testing.T) (*http.ServeMux, *memItemRepo) {
	t.Helper()
	repo := newMemItemRepo()
	svc := application.NewInventoryService(repo, otel.Tracer("test"))
	mux := http.NewServeMux()
	NewInventoryHandler(svc).RegisterRoutes(mux)
	return mux, repo
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

func createTestItem(t *testing.T, mux *http.ServeMux, quantity int64) string {
	t.Helper()
	rec := doRequest(mux, http.MethodPost, "/items", map[string]interface{}{
		"name": "Laptop", "description": "14 inch", "quantity": quantity, "price": 999.99,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	envelope := decodeEnvelope(t, rec)
	data := envelope["data"].(map[string]interface{})
	return data["id"].(string)
}

func TestHealthz(t *testing.T) {
	mux, _ := newTestMux(t)
	rec := doRequest(mux, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateItemEndpoint(t *testing.T) {
	mux, _ := newTestMux(t)

	rec := doRequest(mux, http.MethodPost, "/items", map[string]interface{}{
		"name": "Laptop", "quantity": 10, "price": 999.99,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, "Item created successfully", envelope["message"])
	data := envelope["data"].(map[string]interface{})
	assert.NotEmpty(t, data["id"])
	assert.Equal(t, float64(10), data["quantity"])
}

func TestCreateItemValidationFailure(t *testing.T) {
	mux, _ := newTestMux(t)

	rec := doRequest(mux, http.MethodPost, "/items", map[string]interface{}{
		"quantity": -1, "price": -1,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, "Validation failed", envelope["message"])
	assert.Len(t, envelope["errors"], 3)
}

func TestCreateItemMalformedBody(t *testing.T) {
	mux, _ := newTestMux(t)

	req := httptest.NewRequest(http.MethodPost, "/items", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetItemEndpoint(t *testing.T) {
	mux, _ := newTestMux(t)
	id := createTestItem(t, mux, 30)

	rec := doRequest(mux, http.MethodGet, "/items/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	envelope := decodeEnvelope(t, rec)
	data := envelope["data"].(map[string]interface{})
	assert.Equal(t, id, data["id"])
	assert.Equal(t, float64(30), data["quantity"])
}

func TestGetItemNotFound(t *testing.T) {
	mux, _ := newTestMux(t)

	rec := doRequest(mux, http.MethodGet, "/items/does-not-exist", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Item not found", decodeEnvelope(t, rec)["message"])
}

func TestUpdateStockEndpoint(t *testing.T) {
	mux, _ := newTestMux(t)
	id := createTestItem(t, mux, 10)

	rec := doRequest(mux, http.MethodPatch, "/items/stock/"+id, map[string]interface{}{"quantity": 77})
	require.Equal(t, http.StatusOK, rec.Code)

	data := decodeEnvelope(t, rec)["data"].(map[string]interface{})
	assert.Equal(t, float64(77), data["quantity"])
}

func TestUpdateStockMissingQuantity(t *testing.T) {
	mux, _ := newTestMux(t)
	id := createTestItem(t, mux, 10)

	rec := doRequest(mux, http.MethodPatch, "/items/stock/"+id, map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateStockNegativeQuantityRejected(t *testing.T) {
	mux, repo := newTestMux(t)
	id := createTestItem(t, mux, 10)

	rec := doRequest(mux, http.MethodPatch, "/items/stock/"+id, map[string]interface{}{"quantity": -5})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	item, err := repo.FindByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, int64(10), item.Quantity)
}

func TestReserveStockEndpoint(t *testing.T) {
	mux, _ := newTestMux(t)
	id := createTestItem(t, mux, 10)

	rec := doRequest(mux, http.MethodPost, "/items/stock/"+id+"/reserve", map[string]interface{}{"quantity": 4})
	require.Equal(t, http.StatusOK, rec.Code)

	data := decodeEnvelope(t, rec)["data"].(map[string]interface{})
	assert.Equal(t, float64(6), data["quantity"])
}

// 余量不足时预占返回 409，库存保持不变。
func TestReserveStockInsufficientReturnsConflict(t *testing.T) {
	mux, repo := newTestMux(t)
	id := createTestItem(t, mux, 3)

	rec := doRequest(mux, http.MethodPost, "/items/stock/"+id+"/reserve", map[string]interface{}{"quantity": 5})
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Insufficient stock for this item", decodeEnvelope(t, rec)["message"])

	item, err := repo.FindByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, int64(3), item.Quantity)
}

func TestReserveStockUnknownItem(t *testing.T) {
	mux, _ := newTestMux(t)

	rec := doRequest(mux, http.MethodPost, "/items/stock/missing/reserve", map[string]interface{}{"quantity": 1})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
