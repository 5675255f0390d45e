package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"
	hertzconfig "github.com/cloudwego/hertz/pkg/common/config"
	otelapi "go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"TripGuard/config"
	"TripGuard/internal/middleware"
	"TripGuard/internal/router"
	"TripGuard/pkg/logger"
	"TripGuard/pkg/metrics"
	"TripGuard/pkg/otel"
	"TripGuard/pkg/snowflake"
	"TripGuard/storage"
)

func main() {
	logger.Init()
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Logger.Info("Received shutdown signal",
			zap.String("signal", sig.String()),
		)
		cancel()
	}()

	var serverOpts []hertzconfig.Option
	addr := net.JoinHostPort(config.Cfg.ServerHost, config.Cfg.ServerPort)
	serverOpts = append(serverOpts, server.WithHostPorts(addr))

	if config.Cfg.OTelEnabled {
		shutdown, err := otel.InitOpenTelemetry(ctx, otel.Config{
			ServiceName:    config.Cfg.ServiceName,
			ServiceVersion: "1.0.0",
			Environment:    config.Cfg.Environment,
			OTLPEndpoint:   config.Cfg.OTLPEndpoint,
			SampleRatio:    config.Cfg.OTelSampler,
		})
		if err != nil {
			logger.Logger.Fatal("Failed to initialize OpenTelemetry", zap.Error(err))
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				logger.Logger.Warn("OpenTelemetry shutdown failed", zap.Error(err))
			}
		}()

		if err := middleware.InitMetrics(otelapi.Meter("tripguard-agent")); err != nil {
			logger.Logger.Warn("Failed to initialize HTTP metrics", zap.Error(err))
		}
		if err := metrics.InitMetrics(); err != nil {
			logger.Logger.Warn("Failed to initialize domain metrics", zap.Error(err))
		}
	}

	// 初始化存储层，记得关闭外部连接
	if err := storage.Init(); err != nil {
		logger.Logger.Fatal("Failed to initialize storage", zap.Error(err))
	}
	defer storage.Close()

	if err := snowflake.Init(config.Cfg.SnowflakeMachineID, config.Cfg.SnowflakeDataCenter); err != nil {
		logger.Logger.Fatal("Failed to initialize snowflake", zap.Error(err))
	}

	app, err := buildApp()
	if err != nil {
		logger.Logger.Fatal("Failed to build agent", zap.Error(err))
	}

	stopRunner := app.runner.Start(ctx)
	defer stopRunner()
	defer app.handler.StopTracking()

	go app.scheduler.Run(ctx)

	logger.Logger.Info("Agent starting",
		zap.String("service", config.Cfg.ServiceName),
		zap.String("addr", addr),
		zap.String("environment", config.Cfg.Environment),
		zap.String("storage", config.Cfg.StorageBackend),
	)

	var h *server.Hertz
	if config.Cfg.OTelEnabled {
		tracer, tracerMiddleware := middleware.NewServerTracerConfig()
		h = server.Default(append(serverOpts, tracer)...)
		h.Use(tracerMiddleware)
	} else {
		h = server.Default(serverOpts...)
	}

	router.Register(h, app.handler)

	// 优雅关闭：在单独的 goroutine 中监听关闭信号并调用 Shutdown
	go func() {
		<-ctx.Done()
		logger.Logger.Info("Initiating graceful shutdown...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := h.Shutdown(shutdownCtx); err != nil {
			logger.Logger.Error("Failed to shutdown HTTP server", zap.Error(err))
		}
	}()

	h.Spin()

	logger.Logger.Info("Agent shutting down gracefully")
}
