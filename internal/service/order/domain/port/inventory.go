// internal/service/order/domain/port/inventory.go
package port

import "context"

// RemoteItem 是库存服务返回的条目视图。
type RemoteItem struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Quantity int64   `json:"quantity"`
	Price    float64 `json:"price"`
}

// InventoryClient 是订单编排对库存服务的出站端口。
// 实现负责把 HTTP 状态码翻译成订单侧的领域错误，
// 并给每次远程调用套上有界超时。
type InventoryClient interface {
	GetItem(ctx context.Context, itemID string) (*RemoteItem, error)

	// ReserveStock 请求库存服务做原子条件扣减。
	// 余量不足返回 ErrInsufficientStock，不可达/超时返回 ErrUpstreamUnavailable。
	ReserveStock(ctx context.Context, itemID string, quantity int64) (*RemoteItem, error)
}
