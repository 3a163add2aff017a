// internal/service/inventory/domain/item.go
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Item 是库存台账的聚合根。
// Quantity 的不变式：任何一次成功的变更之后都不为负。
type Item struct {
	ID          string
	Name        string
	Description string
	Quantity    int64
	Price       float64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewItem 创建一个新的库存条目，校验交给调用方（应用层）。
func NewItem(name, description string, quantity int64, price float64) *Item {
	now := time.Now()
	return &Item{
		ID:          uuid.New().String(),
		Name:        name,
		Description: description,
		Quantity:    quantity,
		Price:       price,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
