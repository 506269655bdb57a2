package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/zhouzirui/gemini-chat/backend/internal/config"
	"github.com/zhouzirui/gemini-chat/backend/internal/handler"
	"github.com/zhouzirui/gemini-chat/backend/internal/observability/metrics"
	"github.com/zhouzirui/gemini-chat/backend/internal/service/ai"
	"github.com/zhouzirui/gemini-chat/backend/internal/service/chat"
	"github.com/zhouzirui/gemini-chat/backend/internal/storage/kv"
	"github.com/zhouzirui/gemini-chat/backend/pkg/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := logging.New(cfg.LogLevel)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	chatMetrics := metrics.NewChatMetrics(registry)

	store, storeCloser, err := kv.Open(ctx, cfg.Storage)
	if err != nil {
		logger.Error("failed to open storage", "backend", cfg.Storage.Backend, "error", err)
		os.Exit(1)
	}
	defer storeCloser.Close()
	logger.Info("storage opened", "backend", cfg.Storage.Backend)

	chatService := chat.NewService(store, logger, chat.WithMetrics(chatMetrics))
	chatService.Initialize(ctx)

	// Initialize AI completion
	var submitter *chat.Submitter
	if cfg.AI.Enabled() {
		completer, err := ai.NewCompleter(ctx, cfg.AI)
		if err != nil {
			logger.Warn("failed to initialize AI completion, continuing without it", "provider", cfg.AI.Provider, "error", err)
		} else {
			if closer, ok := completer.(io.Closer); ok {
				defer closer.Close()
			}
			submitter = chat.NewSubmitter(chatService, completer, chatMetrics, logger, cfg.AI.StreamResponse)
			logger.Info("AI completion initialized", "provider", cfg.AI.Provider, "streaming", cfg.AI.StreamResponse)
		}
	} else {
		logger.Warn("AI credentials not configured, skipping completion setup", "provider", cfg.AI.Provider)
	}

	router := handler.NewRouter(chatService, submitter, registry, logger)

	if err := startServer(ctx, cfg.Server, router, logger); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, logger *logging.Logger) error {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info("gemini chat listening", "addr", serverCfg.Addr)
	return runServer(ctx, srv)
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
