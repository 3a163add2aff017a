// internal/service/order/infrastructure/stock_update_consumer.go
package infrastructure

import (
	"context"

	"stockflow/internal/pkg/logger"
	"stockflow/internal/pkg/mq"
	"stockflow/internal/service/order/application"
)

// StockUpdateConsumer 是驱动适配器：监听消息通道并驱动审计用例。
// 确认语义由 mq.Subscriber 保证——handler 出错消息就不会被确认。
type StockUpdateConsumer struct {
	subscriber mq.Subscriber
	audit      *application.AuditService
}

func NewStockUpdateConsumer(subscriber mq.Subscriber, audit *application.AuditService) *StockUpdateConsumer {
	return &StockUpdateConsumer{subscriber: subscriber, audit: audit}
}

// Run 阻塞消费到 ctx 结束，作为 bootstrap.Runner 挂载。
func (c *StockUpdateConsumer) Run(ctx context.Context) error {
	err := c.subscriber.Subscribe(ctx, c.audit.HandleStockUpdate)
	if err != nil && ctx.Err() == nil {
		logger.Logger().Error().Err(err).Msg("stock update consumer exited with error")
		return err
	}
	return nil
}
