// internal/pkg/mq/kafka.go
package mq

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"

	"stockflow/internal/pkg/logger"
)

// KafkaPublisher 把事件写到与队列同名的 topic。
// routing key 作为消息 key，保证同一 item 的事件落在同一分区，
// 从而保留 per-item 的投递顺序。
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        StockUpdateQueue,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
		},
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, routingKey string, body []byte) error {
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(routingKey),
		Value: body,
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// KafkaSubscriber 以 consumer group 的方式消费，处理成功后才提交 offset，
// 处理失败的消息通过不提交 offset 实现重投（进程重启后重新消费）。
type KafkaSubscriber struct {
	reader *kafka.Reader
}

func NewKafkaSubscriber(brokers []string, groupID string) *KafkaSubscriber {
	return &KafkaSubscriber{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    StockUpdateQueue,
			GroupID:  groupID,
			MinBytes: 1,
			MaxBytes: 10e6,
		}),
	}
}

func (s *KafkaSubscriber) Subscribe(ctx context.Context, handler Handler) error {
	logger.Logger().Info().Str("topic", StockUpdateQueue).Msg("✅ kafka consumer started")

	for {
		// FetchMessage 而不是 ReadMessage，提交时机由我们自己控制
		msg, err := s.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.Logger().Error().Err(err).Msg("could not fetch message, retrying")
			time.Sleep(time.Second)
			continue
		}

		if err := handler(ctx, msg.Value); err != nil {
			logger.Ctx(ctx).Error().Err(err).Msg("stock event handling failed, offset not committed")
			continue
		}

		if err := s.reader.CommitMessages(ctx, msg); err != nil {
			logger.Ctx(ctx).Error().Err(err).Msg("failed to commit offset")
		}
	}
}

func (s *KafkaSubscriber) Close() error {
	return s.reader.Close()
}
