// internal/service/inventory/interfaces/http_handler.go
package interfaces

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"stockflow/internal/pkg/logger"
	"stockflow/internal/service/inventory/application"
	"stockflow/internal/service/inventory/domain"
)

const serviceName = "inventory-service"

// InventoryHandler 封装库存服务的 HTTP 处理器。
// 响应统一用 {message, data} 信封，校验失败额外带 errors 数组。
type InventoryHandler struct {
	service *application.InventoryService
}

func NewInventoryHandler(service *application.InventoryService) *InventoryHandler {
	return &InventoryHandler{service: service}
}

// RegisterRoutes 在 ServeMux 上注册所有路由。
func (h *InventoryHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("POST /items", h.createItem)
	mux.HandleFunc("GET /items/{itemId}", h.getItem)
	mux.HandleFunc("PATCH /items/stock/{itemId}", h.updateStock)
	mux.HandleFunc("POST /items/stock/{itemId}/reserve", h.reserveStock)
}

type itemResponse struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Quantity    int64   `json:"quantity"`
	Price       float64 `json:"price"`
	CreatedAt   string  `json:"createdAt"`
	UpdatedAt   string  `json:"updatedAt"`
}

func toItemResponse(item *domain.Item) itemResponse {
	return itemResponse{
		ID:          item.ID,
		Name:        item.Name,
		Description: item.Description,
		Quantity:    item.Quantity,
		Price:       item.Price,
		CreatedAt:   item.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		UpdatedAt:   item.UpdatedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	}
}

func (h *InventoryHandler) createItem(w http.ResponseWriter, r *http.Request) {
	ctx := extract(r)
	ctx, span := otel.Tracer(serviceName).Start(ctx, "http.CreateItem")
	defer span.End()

	var req application.CreateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	item, err := h.service.CreateItem(ctx, req)
	if err != nil {
		h.writeDomainError(ctx, w, err, "Error adding item")
		return
	}

	writeJSON(w, http.StatusCreated, "Item created successfully", toItemResponse(item))
}

func (h *InventoryHandler) getItem(w http.ResponseWriter, r *http.Request) {
	ctx := extract(r)
	ctx, span := otel.Tracer(serviceName).Start(ctx, "http.GetItem")
	defer span.End()

	item, err := h.service.GetItem(ctx, r.PathValue("itemId"))
	if err != nil {
		h.writeDomainError(ctx, w, err, "Error retrieving item stock")
		return
	}

	writeJSON(w, http.StatusOK, "Item retrieved successfully", toItemResponse(item))
}

type quantityRequest struct {
	Quantity *int64 `json:"quantity"`
}

func (h *InventoryHandler) updateStock(w http.ResponseWriter, r *http.Request) {
	ctx := extract(r)
	ctx, span := otel.Tracer(serviceName).Start(ctx, "http.UpdateStock")
	defer span.End()

	var req quantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Quantity == nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", []domain.FieldViolation{
			{Field: "quantity", Message: "is required"},
		})
		return
	}

	item, err := h.service.SetQuantity(ctx, r.PathValue("itemId"), *req.Quantity)
	if err != nil {
		h.writeDomainError(ctx, w, err, "Error updating stock")
		return
	}

	writeJSON(w, http.StatusOK, "Stock updated successfully", toItemResponse(item))
}

func (h *InventoryHandler) reserveStock(w http.ResponseWriter, r *http.Request) {
	ctx := extract(r)
	ctx, span := otel.Tracer(serviceName).Start(ctx, "http.ReserveStock")
	defer span.End()

	var req quantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Quantity == nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", []domain.FieldViolation{
			{Field: "quantity", Message: "is required"},
		})
		return
	}

	item, err := h.service.ReserveStock(ctx, r.PathValue("itemId"), *req.Quantity)
	if err != nil {
		h.writeDomainError(ctx, w, err, "Error reserving stock")
		return
	}

	writeJSON(w, http.StatusOK, "Stock reserved successfully", toItemResponse(item))
}

// writeDomainError 把领域错误翻译成 HTTP 状态码。
// 未识别的错误一律 500，对外消息保持稳定，细节只进日志。
func (h *InventoryHandler) writeDomainError(ctx context.Context, w http.ResponseWriter, err error, fallback string) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, "Validation failed", verr.Violations)
	case errors.Is(err, domain.ErrItemNotFound):
		writeError(w, http.StatusNotFound, "Item not found", nil)
	case errors.Is(err, domain.ErrInsufficientStock):
		writeError(w, http.StatusConflict, "Insufficient stock for this item", nil)
	default:
		logger.Ctx(ctx).Error().Err(err).Msg(fallback)
		writeError(w, http.StatusInternalServerError, fallback, nil)
	}
}

func extract(r *http.Request) context.Context {
	return otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
}

func writeJSON(w http.ResponseWriter, status int, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"message": message,
		"data":    data,
	})
}

func writeError(w http.ResponseWriter, status int, message string, violations []domain.FieldViolation) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	body := map[string]interface{}{"message": message}
	if len(violations) > 0 {
		body["errors"] = violations
	}
	_ = json.NewEncoder(w).Encode(body)
}
