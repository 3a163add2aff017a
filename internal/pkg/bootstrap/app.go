// internal/pkg/bootstrap/app.go
package bootstrap

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"stockflow/internal/pkg/logger"
)

// Runner 是一个随服务生命周期运行的后台任务（消费者、outbox 派发器等）。
// ctx 结束后应当尽快返回。
type Runner func(ctx context.Context) error

// AppInfo 包含启动一个服务所需的全部信息。
// main 函数作为组装根（composition root）构造依赖后交给 Run。
type AppInfo struct {
	ServiceName      string
	Port             int
	RegisterHandlers func(mux *http.ServeMux)
	Runners          []Runner
	// Cleanup 在所有任务退出后执行，用于关闭连接、flush tracer 等。
	Cleanup func(ctx context.Context)
}

// Run 封装所有服务共同的启动和优雅关停逻辑：
// HTTP server + 后台任务跑在同一个 errgroup 里，任何一个出错
// 或收到 SIGINT/SIGTERM 都会触发整体退出。
func Run(info AppInfo) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mux := http.NewServeMux()
	if info.RegisterHandlers != nil {
		info.RegisterHandlers(mux)
	}
	server := &http.Server{Addr: ":" + strconv.Itoa(info.Port), Handler: mux}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Logger().Info().Msgf("%s listening on %s", info.ServiceName, server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	for _, runner := range info.Runners {
		g.Go(func() error { return runner(gctx) })
	}

	// 关停协调：等退出信号（或某个任务报错），再限时关闭 HTTP server
	g.Go(func() error {
		<-gctx.Done()
		logger.Logger().Info().Msgf("shutting down %s", info.ServiceName)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Logger().Error().Err(err).Msg("http server shutdown failed")
		}
		return nil
	})

	err := g.Wait()

	if info.Cleanup != nil {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		info.Cleanup(cleanupCtx)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Logger().Error().Err(err).Msgf("%s exited with error", info.ServiceName)
		return err
	}
	logger.Logger().Info().Msgf("%s gracefully shut down", info.ServiceName)
	return nil
}
