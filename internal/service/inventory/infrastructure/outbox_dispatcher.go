// internal/service/inventory/infrastructure/outbox_dispatcher.go
package infrastructure

import (
	"context"
	"time"

	"stockflow/internal/pkg/logger"
	"stockflow/internal/pkg/metrics"
	"stockflow/internal/pkg/mq"
	"stockflow/internal/service/inventory/domain"
)

const outboxBatchSize = 100

// OutboxDispatcher 周期性地把 outbox 里未派发的事件发到消息通道。
// 发布失败的行保持 pending，下一轮继续尝试——至少一次送达，
// 重复投递由消费端的幂等处理兜底。
type OutboxDispatcher struct {
	outbox    domain.OutboxRepository
	publisher mq.Publisher
	interval  time.Duration
}

func NewOutboxDispatcher(outbox domain.OutboxRepository, publisher mq.Publisher, interval time.Duration) *OutboxDispatcher {
	return &OutboxDispatcher{outbox: outbox, publisher: publisher, interval: interval}
}

// Run 阻塞运行到 ctx 结束，适合作为 bootstrap.Runner 挂载。
func (d *OutboxDispatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	logger.Logger().Info().Dur("interval", d.interval).Msg("outbox dispatcher started")

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			d.drain(ctx)
		}
	}
}

func (d *OutboxDispatcher) drain(ctx context.Context) {
	pending, err := d.outbox.FetchPending(ctx, outboxBatchSize)
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Msg("failed to fetch pending outbox rows")
		return
	}

	for _, msg := range pending {
		if err := d.publisher.Publish(ctx, msg.RoutingKey, msg.Payload); err != nil {
			// 事件发布失败不致命：行留在 outbox，broker 恢复后补发
			logger.Ctx(ctx).Warn().Err(err).Uint("outbox_id", msg.ID).Msg("publish failed, will retry")
			metrics.OutboxDispatched.WithLabelValues(metrics.ResultError).Inc()
			return
		}
		if err := d.outbox.MarkDispatched(ctx, msg.ID); err != nil {
			// 标记失败会导致下一轮重复发布，消费端按 eventId 去重
			logger.Ctx(ctx).Error().Err(err).Uint("outbox_id", msg.ID).Msg("failed to mark outbox row dispatched")
			return
		}
		metrics.OutboxDispatched.WithLabelValues(metrics.ResultOK).Inc()
	}
}
