// internal/pkg/mq/rabbitmq.go
package mq

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"stockflow/internal/pkg/logger"
)

// rabbitClient 持有进程内唯一的连接和 channel，
// 在构造时声明好 exchange/queue/binding，之后只管收发。
type rabbitClient struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

func dialRabbit(url string) (*rabbitClient, error) {
	var conn *amqp.Connection
	var err error

	// broker 和服务一起启动时经常还没 ready，简单退避重试几次
	for i := 0; i < 5; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			break
		}
		wait := time.Duration(i*i)*time.Second + time.Second
		logger.Logger().Warn().Err(err).Dur("retry_in", wait).Msg("rabbitmq not reachable yet")
		time.Sleep(wait)
	}
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq after retries: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := channel.ExchangeDeclare(
		StockExchange, // name
		"topic",       // type
		true,          // durable
		false,         // auto-deleted
		false,         // internal
		false,         // no-wait
		nil,           // arguments
	); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", StockExchange, err)
	}

	q, err := channel.QueueDeclare(
		StockUpdateQueue, // name
		true,             // durable
		false,            // delete when unused
		false,            // exclusive
		false,            // no-wait
		nil,              // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", StockUpdateQueue, err)
	}

	if err := channel.QueueBind(q.Name, StockUpdatedRoutingKey, StockExchange, false, nil); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("bind queue %s: %w", q.Name, err)
	}

	return &rabbitClient{conn: conn, channel: channel}, nil
}

func (c *rabbitClient) Close() error {
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			return err
		}
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// RabbitMQPublisher 把事件发到 topic exchange。
// 绑定好的 stock_update_queue 会收到 stock.updated 的全部消息，
// 老的直接消费队列的消费者不需要做任何改动。
type RabbitMQPublisher struct {
	*rabbitClient
}

func NewRabbitMQPublisher(url string) (*RabbitMQPublisher, error) {
	client, err := dialRabbit(url)
	if err != nil {
		return nil, err
	}
	return &RabbitMQPublisher{rabbitClient: client}, nil
}

func (p *RabbitMQPublisher) Publish(ctx context.Context, routingKey string, body []byte) error {
	err := p.channel.PublishWithContext(
		ctx,
		StockExchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish to exchange %s with key %s: %w", StockExchange, routingKey, err)
	}
	return nil
}

// RabbitMQSubscriber 消费 stock_update_queue，手动确认。
type RabbitMQSubscriber struct {
	*rabbitClient
}

func NewRabbitMQSubscriber(url string) (*RabbitMQSubscriber, error) {
	client, err := dialRabbit(url)
	if err != nil {
		return nil, err
	}
	return &RabbitMQSubscriber{rabbitClient: client}, nil
}

// Subscribe 逐条处理消息：handler 成功 -> ack，失败 -> nack 重新入队。
func (s *RabbitMQSubscriber) Subscribe(ctx context.Context, handler Handler) error {
	// prefetch 1，保证处理失败的消息不会堆在本地
	if err := s.channel.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}

	deliveries, err := s.channel.Consume(
		StockUpdateQueue,
		"",    // consumer tag
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("consume queue %s: %w", StockUpdateQueue, err)
	}

	logger.Logger().Info().Str("queue", StockUpdateQueue).Msg("✅ rabbitmq consumer started")

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("rabbitmq delivery channel closed")
			}
			if err := handler(ctx, msg.Body); err != nil {
				logger.Ctx(ctx).Error().Err(err).Msg("stock event handling failed, requeueing")
				_ = msg.Nack(false, true)
				continue
			}
			_ = msg.Ack(false)
		}
	}
}
