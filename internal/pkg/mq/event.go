// internal/pkg/mq/event.go
package mq

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

const (
	// StockExchange 是库存事件使用的 topic exchange（RabbitMQ 实现）。
	StockExchange = "stock_exchange"
	// StockUpdateQueue 既是 RabbitMQ 的持久化队列名，也是 Kafka 的 topic 名。
	StockUpdateQueue = "stock_update_queue"
	// StockUpdatedRoutingKey 是库存变更事件的 routing key。
	StockUpdatedRoutingKey = "stock.updated"

	EventStockUpdated = "stock_updated"
)

// StockUpdatedData 是事件体里的业务数据。
type StockUpdatedData struct {
	ItemID   string `json:"itemId"`
	Quantity int64  `json:"quantity"`
}

// StockUpdatedEvent 是库存变更事件的自描述信封：
// {event:"stock_updated", data:{itemId, quantity}}，
// eventId/occurredAt 是本系统补充的字段，老消费者可以忽略。
type StockUpdatedEvent struct {
	Event      string           `json:"event"`
	EventID    string           `json:"eventId,omitempty"`
	Data       StockUpdatedData `json:"data"`
	OccurredAt time.Time        `json:"occurredAt,omitempty"`
}

// NewStockUpdated 构造一条带唯一 eventId 的库存变更事件。
func NewStockUpdated(itemID string, quantity int64) StockUpdatedEvent {
	return StockUpdatedEvent{
		Event:      EventStockUpdated,
		EventID:    uuid.New().String(),
		Data:       StockUpdatedData{ItemID: itemID, Quantity: quantity},
		OccurredAt: time.Now().UTC(),
	}
}

var ErrUnknownEventShape = errors.New("message does not look like a stock update event")

// ParseStockUpdated 宽容地解析一条库存变更消息。
// 兼容两种历史形态：嵌套 data 的信封，以及把 itemId/quantity
// 平铺在顶层的旧格式。两种都认不出来才报错。
func ParseStockUpdated(body []byte) (StockUpdatedEvent, error) {
	var raw struct {
		Event      string            `json:"event"`
		EventID    string            `json:"eventId"`
		Data       *StockUpdatedData `json:"data"`
		ItemID     string            `json:"itemId"`
		Quantity   *int64            `json:"quantity"`
		OccurredAt time.Time         `json:"occurredAt"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return StockUpdatedEvent{}, err
	}

	evt := StockUpdatedEvent{
		Event:      raw.Event,
		EventID:    raw.EventID,
		OccurredAt: raw.OccurredAt,
	}
	if evt.Event == "" {
		evt.Event = EventStockUpdated
	}

	switch {
	case raw.Data != nil && raw.Data.ItemID != "":
		evt.Data = *raw.Data
	case raw.ItemID != "":
		evt.Data.ItemID = raw.ItemID
		if raw.Quantity != nil {
			evt.Data.Quantity = *raw.Quantity
		}
	default:
		return StockUpdatedEvent{}, ErrUnknownEventShape
	}
	return evt, nil
}
