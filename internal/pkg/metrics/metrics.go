// internal/pkg/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 两个服务共用一组业务指标，各自通过 /metrics 暴露。
var (
	OrdersPlaced = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stockflow_orders_placed_total",
		Help: "Orders placed, partitioned by outcome.",
	}, []string{"outcome"})

	StockEventsConsumed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stockflow_stock_events_consumed_total",
		Help: "Stock-update events consumed, partitioned by result.",
	}, []string{"result"})

	OutboxDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stockflow_outbox_dispatched_total",
		Help: "Outbox rows dispatched to the message broker, partitioned by result.",
	}, []string{"result"})

	StockReservations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stockflow_stock_reservations_total",
		Help: "Conditional stock decrements, partitioned by result.",
	}, []string{"result"})
)

const (
	ResultOK        = "ok"
	ResultError     = "error"
	ResultDuplicate = "duplicate"
	ResultRejected  = "rejected"
)
