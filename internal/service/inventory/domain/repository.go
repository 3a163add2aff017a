// internal/service/inventory/domain/repository.go
package domain

import (
	"context"
	"time"
)

// ItemRepository 是库存台账的持久化接口，由基础设施层实现。
// 两个写操作除了变更数量，还必须在同一个事务里写入 outbox 行，
// 保证进程在写库和发消息之间崩溃时事件不会丢。
type ItemRepository interface {
	Create(ctx context.Context, item *Item) error
	FindByID(ctx context.Context, id string) (*Item, error)

	// UpdateQuantity 无条件地把数量设置为绝对值（PATCH /items/stock 的语义）。
	UpdateQuantity(ctx context.Context, id string, quantity int64) (*Item, error)

	// ReserveQuantity 执行原子的条件扣减：
	// 只有 quantity >= 请求量时才扣，整个判断+扣减是存储层的单条原子更新。
	// 库存不足返回 ErrInsufficientStock，条目不存在返回 ErrItemNotFound。
	ReserveQuantity(ctx context.Context, id string, quantity int64) (*Item, error)
}

// OutboxMessage 是待派发的事件在 outbox 表里的形态。
type OutboxMessage struct {
	ID           uint
	RoutingKey   string
	Payload      []byte
	CreatedAt    time.Time
	DispatchedAt *time.Time
}

// OutboxRepository 供派发器拉取和确认 outbox 行。
type OutboxRepository interface {
	FetchPending(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkDispatched(ctx context.Context, id uint) error
}
