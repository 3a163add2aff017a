// internal/service/inventory/infrastructure/gorm_repository.go
package infrastructure

import (
	"context"
	"encoding/json"
	"time"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"

	"stockflow/internal/pkg/mq"
	"stockflow/internal/service/inventory/domain"
)

// ItemModel 对应数据库中的 items 表。
type ItemModel struct {
	ID          string `gorm:"primaryKey;size:36"`
	Name        string `gorm:"size:255"`
	Description string `gorm:"type:text"`
	Quantity    int64
	Price       float64 `gorm:"type:decimal(10,2)"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (ItemModel) TableName() string { return "items" }

// OutboxModel 对应 stock_outbox 表：与库存变更同事务写入的事件暂存。
type OutboxModel struct {
	ID           uint   `gorm:"primaryKey"`
	RoutingKey   string `gorm:"size:64"`
	Payload      []byte `gorm:"type:blob"`
	CreatedAt    time.Time
	DispatchedAt *time.Time `gorm:"index"`
}

func (OutboxModel) TableName() string { return "stock_outbox" }

// GormItemRepository 是 ItemRepository 和 OutboxRepository 的 GORM 实现。
type GormItemRepository struct {
	db *gorm.DB
}

func NewGormItemRepository(db *gorm.DB) *GormItemRepository {
	return &GormItemRepository{db: db}
}

func (r *GormItemRepository) Create(ctx context.Context, item *domain.Item) error {
	model := toModel(item)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return pkgerrors.Wrap(err, "insert item")
	}
	return nil
}

func (r *GormItemRepository) FindByID(ctx context.Context, id string) (*domain.Item, error) {
	var model ItemModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if err != nil {
		if pkgerrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrItemNotFound
		}
		return nil, pkgerrors.Wrap(err, "query item")
	}
	return toDomain(&model), nil
}

// UpdateQuantity 把数量设为绝对值，并在同一事务里写 outbox 行。
// 这里保留了老接口的“后算先写”语义，竞态防护在 ReserveQuantity。
func (r *GormItemRepository) UpdateQuantity(ctx context.Context, id string, quantity int64) (*domain.Item, error) {
	var updated *domain.Item

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&ItemModel{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{"quantity": quantity, "updated_at": time.Now()})
		if res.Error != nil {
			return pkgerrors.Wrap(res.Error, "update quantity")
		}
		if res.RowsAffected == 0 {
			return domain.ErrItemNotFound
		}

		var model ItemModel
		if err := tx.First(&model, "id = ?", id).Error; err != nil {
			return pkgerrors.Wrap(err, "reload item")
		}
		updated = toDomain(&model)

		return appendOutbox(tx, model.ID, model.Quantity)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ReserveQuantity 用单条条件 UPDATE 做原子扣减。
// 判断和扣减在数据库内一步完成，并发请求不可能同时越过余量检查。
func (r *GormItemRepository) ReserveQuantity(ctx context.Context, id string, quantity int64) (*domain.Item, error) {
	var updated *domain.Item

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Exec(
			`UPDATE items SET quantity = quantity - ?, updated_at = ? WHERE id = ? AND quantity >= ?`,
			quantity, time.Now(), id, quantity,
		)
		if res.Error != nil {
			return pkgerrors.Wrap(res.Error, "conditional decrement")
		}
		if res.RowsAffected == 0 {
			// 没扣到：要么条目不存在，要么余量不足
			var count int64
			if err := tx.Model(&ItemModel{}).Where("id = ?", id).Count(&count).Error; err != nil {
				return pkgerrors.Wrap(err, "check item existence")
			}
			if count == 0 {
				return domain.ErrItemNotFound
			}
			return domain.ErrInsufficientStock
		}

		var model ItemModel
		if err := tx.First(&model, "id = ?", id).Error; err != nil {
			return pkgerrors.Wrap(err, "reload item")
		}
		updated = toDomain(&model)

		return appendOutbox(tx, model.ID, model.Quantity)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func appendOutbox(tx *gorm.DB, itemID string, quantity int64) error {
	event := mq.NewStockUpdated(itemID, quantity)
	payload, err := json.Marshal(event)
	if err != nil {
		return pkgerrors.Wrap(err, "marshal stock event")
	}
	row := OutboxModel{RoutingKey: mq.StockUpdatedRoutingKey, Payload: payload, CreatedAt: time.Now()}
	return pkgerrors.Wrap(tx.Create(&row).Error, "insert outbox row")
}

func (r *GormItemRepository) FetchPending(ctx context.Context, limit int) ([]domain.OutboxMessage, error) {
	var rows []OutboxModel
	err := r.db.WithContext(ctx).
		Where("dispatched_at IS NULL").
		Order("id ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, pkgerrors.Wrap(err, "fetch pending outbox rows")
	}

	messages := make([]domain.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		messages = append(messages, domain.OutboxMessage{
			ID:           row.ID,
			RoutingKey:   row.RoutingKey,
			Payload:      row.Payload,
			CreatedAt:    row.CreatedAt,
			DispatchedAt: row.DispatchedAt,
		})
	}
	return messages, nil
}

func (r *GormItemRepository) MarkDispatched(ctx context.Context, id uint) error {
	now := time.Now()
	err := r.db.WithContext(ctx).
		Model(&OutboxModel{}).
		Where("id = ?", id).
		Update("dispatched_at", &now).Error
	return pkgerrors.Wrap(err, "mark outbox row dispatched")
}

func toModel(item *domain.Item) *ItemModel {
	return &ItemModel{
		ID:          item.ID,
		Name:        item.Name,
		Description: item.Description,
		Quantity:    item.Quantity,
		Price:       item.Price,
		CreatedAt:   item.CreatedAt,
		UpdatedAt:   item.UpdatedAt,
	}
}

func toDomain(model *ItemModel) *domain.Item {
	return &domain.Item{
		ID:          model.ID,
		Name:        model.Name,
		Description: model.Description,
		Quantity:    model.Quantity,
		Price:       model.Price,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}
