package main

import (
	"context"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"

	"github.com/sitefolio/scheduling/libs/config"
	"github.com/sitefolio/scheduling/libs/grpcx"
	otelx "github.com/sitefolio/scheduling/libs/otel"
	"github.com/sitefolio/scheduling/libs/redisx"
	"github.com/sitefolio/scheduling/libs/runtime"
	"github.com/sitefolio/scheduling/services/scheduling-service/internal/app"
	"github.com/sitefolio/scheduling/services/scheduling-service/internal/handlers"
	"github.com/sitefolio/scheduling/services/scheduling-service/internal/outbox"
	"github.com/sitefolio/scheduling/services/scheduling-service/internal/reminders"
)

func main() {
	service := config.String("SERVICE_NAME", "scheduling-service")
	port, err := config.Port("PORT", "8084")
	if err != nil {
		panic(err)
	}
	grpcPort, err := config.Port("GRPC_PORT", "9094")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	loc, err := config.Location("BUSINESS_TIMEZONE")
	if err != nil {
		panic(err)
	}

	ctx, stop := runtime.SignalContext()
	defer stop()

	backendCfg := app.ConfigFromEnv()

	otelCfg := otelx.ConfigFromEnv(service)
	otelCfg.Attributes = append(otelCfg.Attributes,
		attribute.String("scheduling.backend", backendCfg.Backend),
		attribute.String("scheduling.timezone", loc.String()),
	)
	otelShutdown, err := otelx.Setup(ctx, otelCfg)
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	}

	rdb := redisx.FromEnv()

	backend, err := app.Open(ctx, backendCfg, rdb, logger)
	if err != nil {
		logger.Error("backend init failed", "backend", backendCfg.Backend, "err", err)
		panic(err)
	}

	svc := backend.Service(logger, loc)

	if backend.Outbox != nil {
		publisher := outbox.NewPublisher(backend.Pool, backend.Outbox, logger, outbox.PublisherConfig{
			Brokers:   backendCfg.KafkaBrokers,
			PollEvery: time.Duration(config.Int("OUTBOX_POLL_MS", 2000)) * time.Millisecond,
			BatchSize: config.Int("OUTBOX_BATCH_SIZE", 50),
		})
		go publisher.Run(ctx)
	}

	if config.Bool("REMINDERS_ENABLED", true) {
		worker := reminders.NewWorker(svc, logger, reminders.WorkerConfig{
			Interval: config.Seconds("REMINDER_INTERVAL_SECONDS", time.Minute),
			Lead:     config.Minutes("REMINDER_LEAD_MINUTES", 24*time.Hour),
		})
		go worker.Run(ctx)
	}

	grpcSrv := grpcx.NewServer(logger)
	if err := grpcSrv.Start(ctx, net.JoinHostPort("", grpcPort)); err != nil {
		logger.Error("grpc server failed", "err", err)
		panic(err)
	}
	grpcSrv.SetServing(true, service)

	mux := runtime.NewBaseMuxWithReady(backend.Checks...)
	handlers.New(svc, logger, loc).Register(mux)

	httpHandler := buildHandler(mux, logger, loadHTTPConfig(), rdb)
	httpHandler = otelhttp.NewHandler(httpHandler, "scheduling")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr, "backend", backendCfg.Backend, "timezone", loc.String())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	steps := []runtime.ShutdownStep{
		{Name: "http", Fn: srv.Shutdown},
		{Name: "backend", Fn: func(context.Context) error { backend.Close(); return nil }},
	}
	if rdb != nil {
		steps = append(steps, runtime.ShutdownStep{Name: "redis", Fn: func(context.Context) error { return rdb.Close() }})
	}
	steps = append(steps, runtime.ShutdownStep{Name: "otel", Fn: otelShutdown})
	if err := runtime.Shutdown(logger, 10*time.Second, steps...); err != nil {
		logger.Error("shutdown incomplete", "err", err)
	}
	logger.Info("scheduling service stopped")
}
