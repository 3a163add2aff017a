// internal/service/order/domain/stock_log.go
package domain

import "time"

// StockLog 是库存变更事件的审计条目，只追加、从不修改。
// 消费端按 at-least-once 处理，重复条目是允许的。
type StockLog struct {
	ID        uint
	EventID   string
	ItemID    string
	Quantity  int64
	Event     string
	CreatedAt time.Time
}
