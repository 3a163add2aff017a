// internal/service/order/domain/repository.go
package domain

import "context"

// OrderRepository 定义订单聚合的持久化接口，由基础设施层实现。
type OrderRepository interface {
	Create(ctx context.Context, order *Order) error
	// Save 更新已有订单（状态流转后的落库）。
	Save(ctx context.Context, order *Order) error
	FindByID(ctx context.Context, id string) (*Order, error)
	// List 按创建时间稳定排序分页，返回当前页和总条数。
	List(ctx context.Context, page, limit int) ([]*Order, int64, error)
}

// StockLogRepository 是审计日志的只追加存储。
type StockLogRepository interface {
	Append(ctx context.Context, log *StockLog) error
}
