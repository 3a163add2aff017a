// cmd/inventory-service/main.go
package main

import (
	"context"
	"net/http"
	"os"

	"go.opentelemetry.io/otel"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"stockflow/internal/pkg/bootstrap"
	"stockflow/internal/pkg/config"
	"stockflow/internal/pkg/logger"
	"stockflow/internal/pkg/mq"
	"stockflow/internal/pkg/tracing"
	"stockflow/internal/service/inventory/application"
	"stockflow/internal/service/inventory/infrastructure"
	"stockflow/internal/service/inventory/interfaces"
)

const serviceName = "inventory-service"

// main 是库存服务的组装根：构造并注入所有依赖，然后交给 bootstrap 启动。
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

	db, err := gorm.Open(mysql.Open(cfg.MySQL.DSN), &gorm.Config{})
	if err != nil {
		logger.Logger().Fatal().Err(err).Msg("failed to connect to mysql")
	}
	if err := db.AutoMigrate(&infrastructure.ItemModel{}, &infrastructure.OutboxModel{}); err != nil {
		logger.Logger().Fatal().Err(err).Msg("failed to migrate schema")
	}

	publisher, err := mq.NewPublisher(cfg.MQ)
	if err != nil {
		logger.Logger().Fatal().Err(err).Msg("failed to create mq publisher")
	}

	repo := infrastructure.NewGormItemRepository(db)
	dispatcher := infrastructure.NewOutboxDispatcher(repo, publisher, cfg.Inventory.OutboxPollInterval)
	service := application.NewInventoryService(repo, otel.Tracer(serviceName))
	handler := interfaces.NewInventoryHandler(service)

	err = bootstrap.Run(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        cfg.Inventory.HTTPPort,
		RegisterHandlers: func(mux *http.ServeMux) {
			handler.RegisterRoutes(mux)
		},
		Runners: []bootstrap.Runner{dispatcher.Run},
		Cleanup: func(ctx context.Context) {
			if err := publisher.Close(); err != nil {
				logger.Logger().Warn().Err(err).Msg("error closing mq publisher")
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
