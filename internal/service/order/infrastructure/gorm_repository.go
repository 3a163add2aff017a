// internal/service/order/infrastructure/gorm_repository.go
package infrastructure

import (
	"context"
	"time"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"

	"stockflow/internal/service/order/domain"
)

// OrderModel 对应数据库中的 orders 表。
type OrderModel struct {
	ID        string    `gorm:"primaryKey;size:36"`
	ItemID    string    `gorm:"size:36;index"`
	Quantity  int64
	Status    string    `gorm:"size:16"`
	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time
}

func (OrderModel) TableName() string { return "orders" }

// StockLogModel 对应 item_logs 表（审计日志，只追加）。
type StockLogModel struct {
	ID        uint   `gorm:"primaryKey"`
	EventID   string `gorm:"size:36;index"`
	ItemID    string `gorm:"size:36;index"`
	Quantity  int64
	Event     string `gorm:"size:32"`
	CreatedAt time.Time
}

func (StockLogModel) TableName() string { return "item_logs" }

// GormOrderRepository 是 OrderRepository 的 GORM 实现。
type GormOrderRepository struct {
	db *gorm.DB
}

func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

func (r *GormOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	return pkgerrors.Wrap(r.db.WithContext(ctx).Create(toOrderModel(order)).Error, "insert order")
}

func (r *GormOrderRepository) Save(ctx context.Context, order *domain.Order) error {
	err := r.db.WithContext(ctx).
		Model(&OrderModel{}).
		Where("id = ?", order.ID).
		Updates(map[string]interface{}{
			"status":     string(order.Status),
			"updated_at": order.UpdatedAt,
		}).Error
	return pkgerrors.Wrap(err, "update order")
}

func (r *GormOrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	var model OrderModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if err != nil {
		if pkgerrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, pkgerrors.Wrap(err, "query order")
	}
	return toOrderDomain(&model), nil
}

// List 按创建时间升序分页；同一时刻创建的行用主键二次排序，保证翻页稳定。
func (r *GormOrderRepository) List(ctx context.Context, page, limit int) ([]*domain.Order, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&OrderModel{}).Count(&total).Error; err != nil {
		return nil, 0, pkgerrors.Wrap(err, "count orders")
	}

	var models []OrderModel
	err := r.db.WithContext(ctx).
		Order("created_at ASC, id ASC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, 0, pkgerrors.Wrap(err, "list orders")
	}

	orders := make([]*domain.Order, 0, len(models))
	for i := range models {
		orders = append(orders, toOrderDomain(&models[i]))
	}
	return orders, total, nil
}

// GormStockLogRepository 是 StockLogRepository 的 GORM 实现。
type GormStockLogRepository struct {
	db *gorm.DB
}

func NewGormStockLogRepository(db *gorm.DB) *GormStockLogRepository {
	return &GormStockLogRepository{db: db}
}

func (r *GormStockLogRepository) Append(ctx context.Context, log *domain.StockLog) error {
	model := StockLogModel{
		EventID:   log.EventID,
		ItemID:    log.ItemID,
		Quantity:  log.Quantity,
		Event:     log.Event,
		CreatedAt: log.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return pkgerrors.Wrap(err, "append stock log")
	}
	log.ID = model.ID
	return nil
}

func toOrderModel(order *domain.Order) *OrderModel {
	return &OrderModel{
		ID:        order.ID,
		ItemID:    order.ItemID,
		Quantity:  order.Quantity,
		Status:    string(order.Status),
		CreatedAt: order.CreatedAt,
		UpdatedAt: order.UpdatedAt,
	}
}

func toOrderDomain(model *OrderModel) *domain.Order {
	return &domain.Order{
		ID:        model.ID,
		ItemID:    model.ItemID,
		Quantity:  model.Quantity,
		Status:    domain.Status(model.Status),
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}
