// internal/service/order/application/service.go
package application

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"stockflow/internal/pkg/logger"
	"stockflow/internal/pkg/metrics"
	"stockflow/internal/service/order/domain"
	"stockflow/internal/service/order/domain/port"
)

const (
	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 100
)

// OrderApplicationService 编排跨服务的下单流程：
// 读远程库存 -> 预检 -> 落 pending 订单 -> 远程原子扣减 -> 确认订单。
// 两个台账之间没有共享事务，一致性完全靠这个顺序和库存侧的条件扣减。
type OrderApplicationService struct {
	orderRepo   domain.OrderRepository
	inventory   port.InventoryClient
	callTimeout time.Duration
	tracer      trace.Tracer
}

func NewOrderApplicationService(orderRepo domain.OrderRepository, inventory port.InventoryClient, callTimeout time.Duration, tracer trace.Tracer) *OrderApplicationService {
	return &OrderApplicationService{
		orderRepo:   orderRepo,
		inventory:   inventory,
		callTimeout: callTimeout,
		tracer:      tracer,
	}
}

// PlaceOrder 执行下单编排。
//
// 预检（步骤 2）挡掉明显不足的请求，此时不产生任何订单；
// 真正的防超卖在库存服务的条件扣减里——预检通过但扣减被拒
// 说明输给了并发对手，此时把 pending 订单转为 failed 而不是删掉，
// 留给对账任务可见的痕迹。任何一步失败都不回滚前面的步骤，也不重试。
func (s *OrderApplicationService) PlaceOrder(ctx context.Context, itemID string, quantity int64) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "order.PlaceOrder")
	defer span.End()
	span.SetAttributes(
		attribute.String("item.id", itemID),
		attribute.Int64("order.quantity", quantity),
	)

	if itemID == "" || quantity <= 0 {
		span.SetStatus(codes.Error, "invalid input")
		return nil, domain.ErrInvalidInput
	}

	// 1. 读远程库存（有界超时）
	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	item, err := s.inventory.GetItem(callCtx, itemID)
	cancel()
	if err != nil {
		span.RecordError(err)
		s.countOutcome(err)
		return nil, err
	}

	// 2. 预检：余量不足直接拒绝，零副作用
	if quantity > item.Quantity {
		span.AddEvent("rejected by pre-check")
		metrics.OrdersPlaced.WithLabelValues("insufficient_stock").Inc()
		return nil, domain.ErrInsufficientStock
	}

	// 3. 先落预占意向
	order, err := domain.NewOrder(itemID, quantity)
	if err != nil {
		span.RecordError(err)
		return nil, domain.ErrInvalidInput
	}
	if err := s.orderRepo.Create(ctx, order); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to persist reservation intent")
		metrics.OrdersPlaced.WithLabelValues("error").Inc()
		return nil, err
	}

	// 4. 远程原子扣减
	callCtx, cancel = context.WithTimeout(ctx, s.callTimeout)
	_, err = s.inventory.ReserveStock(callCtx, itemID, quantity)
	cancel()
	if err != nil {
		span.RecordError(err)
		s.failOrder(ctx, order, err)
		s.countOutcome(err)
		return nil, err
	}

	// 5. 确认订单。这一步失败意味着库存已扣但订单停在 pending，
	// 不做补偿（已知缺口），只把错误暴露出去并留日志。
	if err := order.MarkCompleted(); err != nil {
		return nil, err
	}
	if err := s.orderRepo.Save(ctx, order); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "stock reserved but order confirmation failed")
		logger.Ctx(ctx).Error().Err(err).
			Str("order_id", order.ID).
			Str("item_id", itemID).
			Msg("CRITICAL: stock decremented but order not confirmed")
		metrics.OrdersPlaced.WithLabelValues("error").Inc()
		return nil, err
	}

	metrics.OrdersPlaced.WithLabelValues("completed").Inc()
	logger.Ctx(ctx).Info().
		Str("order_id", order.ID).
		Str("item_id", itemID).
		Int64("quantity", quantity).
		Msg("order completed")
	return order, nil
}

// failOrder 把预占订单转为 failed。二次失败只能记日志。
func (s *OrderApplicationService) failOrder(ctx context.Context, order *domain.Order, cause error) {
	if err := order.MarkFailed(); err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("order_id", order.ID).Msg("cannot mark order failed")
		return
	}
	if err := s.orderRepo.Save(ctx, order); err != nil {
		logger.Ctx(ctx).Error().Err(err).
			Str("order_id", order.ID).
			AnErr("cause", cause).
			Msg("CRITICAL: failed to record failed reservation")
	}
}

func (s *OrderApplicationService) countOutcome(err error) {
	switch {
	case errors.Is(err, domain.ErrInsufficientStock):
		metrics.OrdersPlaced.WithLabelValues("insufficient_stock").Inc()
	case errors.Is(err, domain.ErrItemNotFound):
		metrics.OrdersPlaced.WithLabelValues("item_not_found").Inc()
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		metrics.OrdersPlaced.WithLabelValues("upstream_unavailable").Inc()
	default:
		metrics.OrdersPlaced.WithLabelValues("error").Inc()
	}
}

func (s *OrderApplicationService) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "order.GetOrder")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", id))

	return s.orderRepo.FindByID(ctx, id)
}

// ListOrders 返回按创建时间排序的一页订单。
// page/limit 非法或缺省时按 NormalizePagination 的规则修正。
func (s *OrderApplicationService) ListOrders(ctx context.Context, page, limit int) ([]*domain.Order, *Pagination, error) {
	ctx, span := s.tracer.Start(ctx, "order.ListOrders")
	defer span.End()

	page, limit = NormalizePagination(page, limit)
	orders, total, err := s.orderRepo.List(ctx, page, limit)
	if err != nil {
		span.RecordError(err)
		return nil, nil, err
	}

	totalPages := total / int64(limit)
	if total%int64(limit) != 0 {
		totalPages++
	}
	return orders, &Pagination{
		Page:       page,
		Limit:      limit,
		TotalDocs:  total,
		TotalPages: totalPages,
	}, nil
}

// Pagination 是列表响应里的分页元数据。
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalDocs  int64 `json:"totalDocs"`
	TotalPages int64 `json:"totalPages"`
}

// NormalizePagination 把任意输入修正为合法的分页参数：
// 非正数回落到默认值，limit 超上限时截断。
func NormalizePagination(page, limit int) (int, int) {
	if page < 1 {
		page = defaultPage
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return page, limit
}
