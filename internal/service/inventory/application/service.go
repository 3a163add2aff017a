// internal/service/inventory/application/service.go
package application

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"stockflow/internal/pkg/logger"
	"stockflow/internal/pkg/metrics"
	"stockflow/internal/service/inventory/domain"
)

// CreateItemRequest 是创建库存条目的入参 DTO。
type CreateItemRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Quantity    int64   `json:"quantity"`
	Price       float64 `json:"price"`
}

// InventoryService 编排库存台账的用例。
// 事件发布走 outbox：仓储在变更事务里落事件，派发器异步送出，
// 所以这里不直接持有 Publisher。
type InventoryService struct {
	repo   domain.ItemRepository
	tracer trace.Tracer
}

func NewInventoryService(repo domain.ItemRepository, tracer trace.Tracer) *InventoryService {
	return &InventoryService{repo: repo, tracer: tracer}
}

// CreateItem 校验入参后落库。quantity/price 不允许为负。
func (s *InventoryService) CreateItem(ctx context.Context, req CreateItemRequest) (*domain.Item, error) {
	ctx, span := s.tracer.Start(ctx, "inventory.CreateItem")
	defer span.End()

	verr := &domain.ValidationError{}
	if req.Name == "" {
		verr.Add("name", "is required")
	}
	if req.Quantity < 0 {
		verr.Add("quantity", "must not be negative")
	}
	if req.Price < 0 {
		verr.Add("price", "must not be negative")
	}
	if verr.HasViolations() {
		span.SetStatus(codes.Error, "validation failed")
		return nil, verr
	}

	item := domain.NewItem(req.Name, req.Description, req.Quantity, req.Price)
	if err := s.repo.Create(ctx, item); err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(attribute.String("item.id", item.ID))
	logger.Ctx(ctx).Info().Str("item_id", item.ID).Int64("quantity", item.Quantity).Msg("item created")
	return item, nil
}

func (s *InventoryService) GetItem(ctx context.Context, id string) (*domain.Item, error) {
	ctx, span := s.tracer.Start(ctx, "inventory.GetItem")
	defer span.End()
	span.SetAttributes(attribute.String("item.id", id))

	return s.repo.FindByID(ctx, id)
}

// SetQuantity 把库存设置为绝对值并触发 stock_updated 事件。
// 负数直接拒绝，存量不变。
func (s *InventoryService) SetQuantity(ctx context.Context, id string, quantity int64) (*domain.Item, error) {
	ctx, span := s.tracer.Start(ctx, "inventory.SetQuantity")
	defer span.End()
	span.SetAttributes(
		attribute.String("item.id", id),
		attribute.Int64("item.quantity", quantity),
	)

	if quantity < 0 {
		verr := &domain.ValidationError{}
		verr.Add("quantity", "must not be negative")
		span.SetStatus(codes.Error, "validation failed")
		return nil, verr
	}

	item, err := s.repo.UpdateQuantity(ctx, id, quantity)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	logger.Ctx(ctx).Info().Str("item_id", id).Int64("quantity", quantity).Msg("stock updated")
	return item, nil
}

// ReserveStock 是下单侧使用的原子条件扣减。
// 余量判断和扣减由存储层一步完成，失败即余量不足。
func (s *InventoryService) ReserveStock(ctx context.Context, id string, quantity int64) (*domain.Item, error) {
	ctx, span := s.tracer.Start(ctx, "inventory.ReserveStock")
	defer span.End()
	span.SetAttributes(
		attribute.String("item.id", id),
		attribute.Int64("reserve.quantity", quantity),
	)

	if quantity <= 0 {
		verr := &domain.ValidationError{}
		verr.Add("quantity", "must be a positive integer")
		span.SetStatus(codes.Error, "validation failed")
		return nil, verr
	}

	item, err := s.repo.ReserveQuantity(ctx, id, quantity)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, domain.ErrInsufficientStock) {
			metrics.StockReservations.WithLabelValues(metrics.ResultRejected).Inc()
		}
		return nil, err
	}

	metrics.StockReservations.WithLabelValues(metrics.ResultOK).Inc()
	logger.Ctx(ctx).Info().
		Str("item_id", id).
		Int64("reserved", quantity).
		Int64("remaining", item.Quantity).
		Msg("stock reserved")
	return item, nil
}
