package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/slack-go/slack"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"basegraph.app/intake/common/id"
	"basegraph.app/intake/common/logger"
	"basegraph.app/intake/common/otel"
	"basegraph.app/intake/core/config"
	"basegraph.app/intake/internal/app"
	"basegraph.app/intake/internal/http/handler/webhook"
	"basegraph.app/intake/internal/http/middleware"
	httprouter "basegraph.app/intake/internal/http/router"
	"basegraph.app/intake/internal/queue"
	"basegraph.app/intake/internal/slackbot"
	"basegraph.app/intake/internal/worker"
)

func main() {
	fmt.Printf("%s\n", banner)
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeServer)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	// OTel must init before logger (logger uses OTel provider in production)
	telemetry, err := otel.Setup(ctx, cfg.OTel, cfg.Env)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	if telemetry != nil {
		slog.InfoContext(ctx, "otel initialized", "endpoint", cfg.OTel.Endpoint)
	} else {
		slog.InfoContext(ctx, "otel disabled (no endpoint configured)")
	}

	slog.InfoContext(ctx, "intake starting",
		"env", cfg.Env,
		"tracker", cfg.Tracker.Provider,
		"session_backend", cfg.Sessions.Backend,
		"dispatch_backend", cfg.Dispatch.Backend)

	if err := id.Init(cfg.NodeID); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
		os.Exit(1)
	}

	messenger := slackbot.NewMessenger(slack.New(cfg.Slack.BotToken))

	a, err := app.New(ctx, cfg, messenger)
	if err != nil {
		slog.ErrorContext(ctx, "failed to assemble app", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	dispatcher := worker.New(a.Machine, worker.Config{
		Concurrency: cfg.Dispatch.Concurrency,
	})

	// With the redis backend webhooks are appended to a shared stream and
	// every replica consumes from it into its local dispatcher.
	var inbound webhook.Dispatcher = dispatcher
	consumeCtx, stopConsuming := context.WithCancel(ctx)
	defer stopConsuming()
	consumerDone := make(chan struct{})

	if cfg.Dispatch.UsesRedis() {
		inbound = queue.NewRedisProducer(a.Redis(), cfg.Dispatch.Stream, slog.Default())

		consumer, err := queue.NewRedisConsumer(ctx, a.Redis(), queue.ConsumerConfig{
			Stream:      cfg.Dispatch.Stream,
			Group:       cfg.Dispatch.Group,
			Consumer:    cfg.Dispatch.Consumer,
			MaxAttempts: cfg.Dispatch.MaxAttempts,
		})
		if err != nil {
			slog.ErrorContext(ctx, "failed to create event consumer", "error", err)
			os.Exit(1)
		}

		go func() {
			defer close(consumerDone)
			slog.InfoContext(ctx, "event consumer starting", "stream", cfg.Dispatch.Stream, "consumer", cfg.Dispatch.Consumer)
			_ = consumer.Run(consumeCtx, dispatcher.Submit)
		}()
	} else {
		close(consumerDone)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := setupRouter(cfg, inbound)
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.InfoContext(ctx, "http server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.ErrorContext(ctx, "http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "http server shutdown error", "error", err)
	}

	stopConsuming()
	select {
	case <-consumerDone:
	case <-shutdownCtx.Done():
	}

	if err := dispatcher.Stop(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "dispatcher shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(shutdownCtx, "shutdown complete")
}

func setupRouter(cfg config.Config, dispatcher webhook.Dispatcher) *gin.Engine {
	router := gin.New()

	// Order matters: OTel creates span → Recovery catches panics → Logger logs with trace context
	if cfg.OTel.Enabled() {
		router.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())

	httprouter.SetupRoutes(router, httprouter.RouterConfig{
		SlackSigningSecret: cfg.Slack.SigningSecret,
		Dispatcher:         dispatcher,
	})

	return router
}

const banner = `
██╗███╗   ██╗████████╗ █████╗ ██╗  ██╗███████╗
██║████╗  ██║╚══██╔══╝██╔══██╗██║ ██╔╝██╔════╝
██║██╔██╗ ██║   ██║   ███████║█████╔╝ █████╗  
██║██║╚██╗██║   ██║   ██╔══██║██╔═██╗ ██╔══╝  
██║██║ ╚████║   ██║   ██║  ██║██║  ██╗███████╗
╚═╝╚═╝  ╚═══╝   ╚═╝   ╚═╝  ╚═╝╚═╝  ╚═╝╚══════╝
`
