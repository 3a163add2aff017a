// internal/service/order/application/audit.go
package application

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"stockflow/internal/pkg/logger"
	"stockflow/internal/pkg/metrics"
	"stockflow/internal/pkg/mq"
	"stockflow/internal/service/order/domain"
	"stockflow/internal/service/order/domain/port"
)

// AuditService 把消费到的库存变更事件转成审计日志条目。
// 落库失败向上抛错（消息不确认，等重投）；去重、搜索索引、
// 实时推送都是尽力而为，失败只记日志不阻塞确认。
type AuditService struct {
	logs        domain.StockLogRepository
	deduper     port.Deduper
	indexer     port.SearchIndexer
	broadcaster port.Broadcaster
	tracer      trace.Tracer
}

func NewAuditService(logs domain.StockLogRepository, deduper port.Deduper, indexer port.SearchIndexer, broadcaster port.Broadcaster, tracer trace.Tracer) *AuditService {
	return &AuditService{
		logs:        logs,
		deduper:     deduper,
		indexer:     indexer,
		broadcaster: broadcaster,
		tracer:      tracer,
	}
}

// HandleStockUpdate 处理一条原始消息。返回错误表示这条消息应当重投。
func (s *AuditService) HandleStockUpdate(ctx context.Context, body []byte) error {
	ctx, span := s.tracer.Start(ctx, "audit.HandleStockUpdate", trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()

	event, err := mq.ParseStockUpdated(body)
	if err != nil {
		// 解析不了的消息重投多少次都没用，记日志后吞掉
		logger.Ctx(ctx).Error().Err(err).Str("body", string(body)).Msg("unparseable stock event, skipping")
		metrics.StockEventsConsumed.WithLabelValues(metrics.ResultError).Inc()
		return nil
	}

	span.SetAttributes(
		attribute.String("event.id", event.EventID),
		attribute.String("item.id", event.Data.ItemID),
		attribute.Int64("item.quantity", event.Data.Quantity),
	)

	// 老格式的消息没有 eventId，跳过去重
	if event.EventID != "" && s.deduper != nil {
		first, err := s.deduper.FirstSeen(ctx, event.EventID)
		if err != nil {
			// 去重不可用时放行：审计日志容忍重复，不容忍丢失
			logger.Ctx(ctx).Warn().Err(err).Msg("dedup check failed, processing anyway")
		} else if !first {
			span.AddEvent("duplicate event skipped")
			metrics.StockEventsConsumed.WithLabelValues(metrics.ResultDuplicate).Inc()
			return nil
		}
	}

	entry := &domain.StockLog{
		EventID:   event.EventID,
		ItemID:    event.Data.ItemID,
		Quantity:  event.Data.Quantity,
		Event:     event.Event,
		CreatedAt: time.Now(),
	}

	if err := s.logs.Append(ctx, entry); err != nil {
		span.RecordError(err)
		metrics.StockEventsConsumed.WithLabelValues(metrics.ResultError).Inc()
		return err
	}

	if s.indexer != nil {
		if err := s.indexer.IndexStockLog(ctx, entry); err != nil {
			logger.Ctx(ctx).Warn().Err(err).Msg("failed to index stock log entry")
		}
	}
	if s.broadcaster != nil {
		s.broadcaster.BroadcastStockUpdate(entry)
	}

	metrics.StockEventsConsumed.WithLabelValues(metrics.ResultOK).Inc()
	logger.Ctx(ctx).Info().
		Str("item_id", entry.ItemID).
		Int64("quantity", entry.Quantity).
		Msg("stock update recorded")
	return nil
}
