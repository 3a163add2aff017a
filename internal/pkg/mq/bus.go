// internal/pkg/mq/bus.go
package mq

import (
	"context"
	"fmt"
	"strings"

	"stockflow/internal/pkg/config"
)

// Publisher 把事件投递到持久化的消息通道，至少一次送达。
type Publisher interface {
	Publish(ctx context.Context, routingKey string, body []byte) error
	Close() error
}

// Handler 处理一条投递的消息。返回错误表示处理失败，
// 消息不会被确认，会按各实现的语义重投。
type Handler func(ctx context.Context, body []byte) error

// Subscriber 订阅库存事件通道，处理成功后才确认消息。
// Subscribe 阻塞到 ctx 结束。
type Subscriber interface {
	Subscribe(ctx context.Context, handler Handler) error
	Close() error
}

// NewPublisher 按配置选择消息通道实现。
func NewPublisher(cfg config.MQConfig) (Publisher, error) {
	switch cfg.Provider {
	case "rabbitmq":
		return NewRabbitMQPublisher(cfg.RabbitMQURL)
	case "kafka":
		return NewKafkaPublisher(strings.Split(cfg.KafkaBrokers, ",")), nil
	default:
		return nil, fmt.Errorf("unknown mq provider %q", cfg.Provider)
	}
}

// NewSubscriber 按配置选择消费端实现，groupID 只对 Kafka 有意义。
func NewSubscriber(cfg config.MQConfig, groupID string) (Subscriber, error) {
	switch cfg.Provider {
	case "rabbitmq":
		return NewRabbitMQSubscriber(cfg.RabbitMQURL)
	case "kafka":
		return NewKafkaSubscriber(strings.Split(cfg.KafkaBrokers, ","), groupID), nil
	default:
		return nil, fmt.Errorf("unknown mq provider %q", cfg.Provider)
	}
}
