// internal/service/order/domain/port/audit.go
package port

import (
	"context"

	"stockflow/internal/service/order/domain"
)

// Deduper 判断一个事件是不是第一次见。
// 实现失败时调用方应当放行（审计日志容忍重复，不容忍丢失）。
type Deduper interface {
	// FirstSeen 返回 true 表示该 eventID 此前没处理过。
	FirstSeen(ctx context.Context, eventID string) (bool, error)
}

// SearchIndexer 把审计条目送进搜索引擎，尽力而为。
// 索引失败不影响审计日志本身的落库。
type SearchIndexer interface {
	IndexStockLog(ctx context.Context, log *domain.StockLog) error
}

// Broadcaster 把库存变更实时推给在线的订阅端（websocket）。
type Broadcaster interface {
	BroadcastStockUpdate(log *domain.StockLog)
}
