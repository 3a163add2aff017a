// internal/service/order/domain/order.go
package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Status 是订单的生命周期状态。
// pending 是预占意向：库存扣减前先落一条 pending 订单，
// 扣减成功转 completed，失败转 failed——保证竞态下订单不会凭空消失，
// 事后对账任务可以找出卡死的预占。
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Order 是订单台账的聚合根。状态流转只允许
// pending -> completed 和 pending -> failed，终态不可再变。
type Order struct {
	ID        string
	ItemID    string
	Quantity  int64
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewOrder 创建一条 pending 状态的预占订单。
func NewOrder(itemID string, quantity int64) (*Order, error) {
	if itemID == "" {
		return nil, errors.New("cannot create order without item reference")
	}
	if quantity <= 0 {
		return nil, errors.New("order quantity must be positive")
	}
	now := time.Now()
	return &Order{
		ID:        uuid.New().String(),
		ItemID:    itemID,
		Quantity:  quantity,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// MarkCompleted 在库存预占成功后确认订单。
func (o *Order) MarkCompleted() error {
	if o.Status != StatusPending {
		return errors.New("only pending orders can be completed")
	}
	o.Status = StatusCompleted
	o.UpdatedAt = time.Now()
	return nil
}

// MarkFailed 在库存预占失败后标记订单。
func (o *Order) MarkFailed() error {
	if o.Status != StatusPending {
		return errors.New("only pending orders can be failed")
	}
	o.Status = StatusFailed
	o.UpdatedAt = time.Now()
	return nil
}
