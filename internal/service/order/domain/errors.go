// internal/service/order/domain/errors.go
package domain

import "errors"

var (
	ErrOrderNotFound = errors.New("order not found")
	// ErrItemNotFound 表示上游库存服务不认识这个 item。
	ErrItemNotFound = errors.New("item not found")
	// ErrInsufficientStock 是业务拒绝：余量小于请求量。
	ErrInsufficientStock = errors.New("insufficient stock for this item")
	// ErrUpstreamUnavailable 表示库存服务不可达或超时，对外映射 502。
	ErrUpstreamUnavailable = errors.New("inventory service unavailable")
	// ErrInvalidInput 表示请求参数不合法。
	ErrInvalidInput = errors.New("invalid input")
)
