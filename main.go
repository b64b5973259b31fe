package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"diagramboard/internal/cleanup"
	"diagramboard/internal/config"
	"diagramboard/internal/handlers"
	"diagramboard/internal/object"
	"diagramboard/internal/room"
	"diagramboard/internal/transport"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

const limiterCleanupInterval = 15 * time.Minute

func main() {
	var (
		configFile string
		port       int
	)

	rootCmd := &cobra.Command{
		Use:   "diagramboard",
		Short: "Shared whiteboard with AI diagram cleanup",
		Long: `diagramboard relays drawing events between every connected browser over
WebSocket and turns a snapshot of the canvas into clean shapes with a vision model.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg)
		},
	}
	rootCmd.Flags().StringVar(&configFile, "config", "", "path to a yaml config file")
	rootCmd.Flags().IntVar(&port, "port", 8000, "port to listen on")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	cleanupCfg := cfg.CleanupConfig()
	if err := cleanupCfg.Validate(); err != nil {
		logger.Warn("AI cleanup endpoint will not work", "error", err)
	}

	rm := room.New(logger.With("component", "room"))
	pipeline := cleanup.NewPipeline(
		cleanupCfg,
		cleanup.NewOpenAIClient(cleanupCfg),
		object.NewValidator(),
		cleanup.WithLogger(logger.With("component", "cleanup")),
	)

	connectLimiter := cfg.ConnectLimiter()
	cleanupLimiter := cfg.CleanupLimiter()
	go connectLimiter.Run(ctx, limiterCleanupInterval)
	go cleanupLimiter.Run(ctx, limiterCleanupInterval)

	ws := transport.NewHandler(
		rm,
		connectLimiter,
		cfg.RateLimit(),
		cfg.UserOptions(),
		cfg.Server.AllowedOrigins,
		logger.With("component", "websocket"),
	)

	if cfg.SlogLevel() != slog.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := handlers.NewRouter(handlers.RouterDeps{
		WebSocket:      ws,
		Cleaner:        pipeline,
		Stats:          rm,
		CleanupLimiter: cleanupLimiter,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Logger:         logger.With("component", "http"),
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server started", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	return shutdown(shutdownCtx, srv, rm)
}

// shutdown stops accepting connections first, then closes the websockets Shutdown does not track
func shutdown(ctx context.Context, srv *http.Server, rm *room.Room) error {
	err := srv.Shutdown(ctx)
	rm.CloseAll()
	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
