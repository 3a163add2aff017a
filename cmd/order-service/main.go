// cmd/order-service/main.go
package main

import (
	"context"
	"net/http"
	"os"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"

	"stockflow/internal/pkg/bootstrap"
	"stockflow/internal/pkg/config"
	"stockflow/internal/pkg/httpclient"
	"stockflow/internal/pkg/logger"
	"stockflow/internal/pkg/mq"
	"stockflow/internal/pkg/tracing"
	"stockflow/internal/service/order/application"
	"stockflow/internal/service/order/domain/port"
	"stockflow/internal/service/order/infrastructure"
	"stockflow/internal/service/order/infrastructure/adapter"
	"stockflow/internal/service/order/interfaces"
)

const (
	serviceName     = "order-service"
	consumerGroupID = "order-service-stock-logs"
)

// main 是订单服务的组装根。除了 HTTP 接口，
// 还挂载两个后台任务：库存事件消费者和 websocket 广播 hub。
func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Logger().Fatal().Err(err).Msg("failed to load config")
	}
	logger.Init(serviceName, cfg.App.Env)

	tp, err := tracing.InitTracerProvider(serviceName, cfg.Jaeger.Endpoint)
	if err != nil {
		logger.Logger().Fatal().Err(err).Msg("failed to initialize tracer provider")
	}

	db, err := gorm.Open(gormmysql.Open(cfg.MySQL.DSN), &gorm.Config{})
	if err != nil {
		logger.Logger().Fatal().Err(err).Msg("failed to connect to mysql")
	}
	if err := db.AutoMigrate(&infrastructure.OrderModel{}, &infrastructure.StockLogModel{}); err != nil {
		logger.Logger().Fatal().Err(err).Msg("failed to migrate schema")
	}

	subscriber, err := mq.NewSubscriber(cfg.MQ, consumerGroupID)
	if err != nil {
		logger.Logger().Fatal().Err(err).Msg("failed to create mq subscriber")
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})

	// 搜索索引是可选依赖：客户端建不起来就降级为纯数据库审计
	var indexer port.SearchIndexer
	if esIndexer, err := infrastructure.NewElasticsearchIndexer(cfg.Search.ElasticsearchURL); err != nil {
		logger.Logger().Warn().Err(err).Msg("elasticsearch unavailable, audit entries will not be indexed")
	} else {
		indexer = esIndexer
	}

	tracer := otel.Tracer(serviceName)
	hub := interfaces.NewHub()

	orderRepo := infrastructure.NewGormOrderRepository(db)
	logRepo := infrastructure.NewGormStockLogRepository(db)
	deduper := infrastructure.NewRedisDeduper(redisClient)

	inventoryClient := adapter.NewInventoryHTTPAdapter(
		httpclient.NewClient(tracer),
		cfg.Order.InventoryServiceURL,
	)

	orderService := application.NewOrderApplicationService(orderRepo, inventoryClient, cfg.Order.HTTPCallTimeout, tracer)
	auditService := application.NewAuditService(logRepo, deduper, indexer, hub, tracer)
	consumer := infrastructure.NewStockUpdateConsumer(subscriber, auditService)
	handler := interfaces.NewOrderHandler(orderService, hub)

	err = bootstrap.Run(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        cfg.Order.HTTPPort,
		RegisterHandlers: func(mux *http.ServeMux) {
			handler.RegisterRoutes(mux)
		},
		Runners: []bootstrap.Runner{consumer.Run, hub.Run},
		Cleanup: func(ctx context.Context) {
			if err := subscriber.Close(); err != nil {
				logger.Logger().Warn().Err(err).Msg("error closing mq subscriber")
			}
			if err := redisClient.Close(); err != nil {
				logger.Logger().Warn().Err(err).Msg("error closing redis client")
			}
			if err := tp.Shutdown(ctx); err != nil {
				logger.Logger().Warn().Err(err).Msg("error shutting down tracer provider")
			}
		},
	})
	if err != nil {
		os.Exit(1)
	}
}
