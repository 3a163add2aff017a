// internal/service/order/interfaces/http_handler.go
package interfaces

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"stockflow/internal/pkg/logger"
	"stockflow/internal/service/order/application"
	"stockflow/internal/service/order/domain"
)

const serviceName = "order-service"

// OrderHandler 封装订单服务的 HTTP 处理器。
type OrderHandler struct {
	service *application.OrderApplicationService
	hub     *Hub
}

func NewOrderHandler(service *application.OrderApplicationService, hub *Hub) *OrderHandler {
	return &OrderHandler{service: service, hub: hub}
}

// RegisterRoutes 在 ServeMux 上注册所有路由。
func (h *OrderHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("POST /orders", h.createOrder)
	mux.HandleFunc("GET /orders/{orderId}", h.getOrder)
	mux.HandleFunc("GET /orders", h.listOrders)

	if h.hub != nil {
		mux.HandleFunc("GET /ws/stock-updates", h.hub.ServeWS)
	}
}

type createOrderRequest struct {
	ItemID   string `json:"itemId"`
	Quantity int64  `json:"quantity"`
}

type orderResponse struct {
	ID        string `json:"id"`
	ItemID    string `json:"itemId"`
	Quantity  int64  `json:"quantity"`
	Status    string `json:"status"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

func toOrderResponse(order *domain.Order) orderResponse {
	return orderResponse{
		ID:        order.ID,
		ItemID:    order.ItemID,
		Quantity:  order.Quantity,
		Status:    string(order.Status),
		CreatedAt: order.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		UpdatedAt: order.UpdatedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	}
}

func (h *OrderHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx := extract(r)
	ctx, span := otel.Tracer(serviceName).Start(ctx, "http.CreateOrder")
	defer span.End()

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	order, err := h.service.PlaceOrder(ctx, req.ItemID, req.Quantity)
	if err != nil {
		h.writeDomainError(ctx, w, err, "Error creating order")
		return
	}

	writeJSON(w, http.StatusCreated, "Order created successfully", toOrderResponse(order))
}

func (h *OrderHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := extract(r)
	ctx, span := otel.Tracer(serviceName).Start(ctx, "http.GetOrder")
	defer span.End()

	order, err := h.service.GetOrder(ctx, r.PathValue("orderId"))
	if err != nil {
		h.writeDomainError(ctx, w, err, "Error retrieving order")
		return
	}

	writeJSON(w, http.StatusOK, "Order retrieved successfully", toOrderResponse(order))
}

func (h *OrderHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := extract(r)
	ctx, span := otel.Tracer(serviceName).Start(ctx, "http.ListOrders")
	defer span.End()

	// 非法的 page/limit 不报错，静默回落到默认值
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	orders, pagination, err := h.service.ListOrders(ctx, page, limit)
	if err != nil {
		h.writeDomainError(ctx, w, err, "Error retrieving orders")
		return
	}

	docs := make([]orderResponse, 0, len(orders))
	for _, order := range orders {
		docs = append(docs, toOrderResponse(order))
	}

	writeJSON(w, http.StatusOK, "Orders retrieved successfully", map[string]interface{}{
		"docs":       docs,
		"page":       pagination.Page,
		"limit":      pagination.Limit,
		"totalDocs":  pagination.TotalDocs,
		"totalPages": pagination.TotalPages,
	})
}

// writeDomainError 按错误类型映射状态码：
// 余量不足是业务拒绝（400），上游不可达是 502，其余未知错误 500。
func (h *OrderHandler) writeDomainError(ctx context.Context, w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "itemId and a positive quantity are required")
	case errors.Is(err, domain.ErrInsufficientStock):
		writeError(w, http.StatusBadRequest, "Insufficient stock for this item")
	case errors.Is(err, domain.ErrItemNotFound):
		writeError(w, http.StatusNotFound, "Item not found")
	case errors.Is(err, domain.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, "Order not found")
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		writeError(w, http.StatusBadGateway, "Inventory service unavailable")
	default:
		logger.Ctx(ctx).Error().Err(err).Msg(fallback)
		writeError(w, http.StatusInternalServerError, fallback)
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

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": message})
}
