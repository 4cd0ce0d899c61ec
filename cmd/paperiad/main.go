package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joseph-ayodele/paperia/internal/app"
	"github.com/joseph-ayodele/paperia/internal/common"
	"github.com/joseph-ayodele/paperia/internal/server"
)

func main() {
	configFile := flag.String("config", "", "path to a yaml config file")
	envFile := flag.String("env-file", ".env", "dotenv file loaded before the environment")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := common.NewLoader(*envFile).Load(*configFile)
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Open(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	web, err := server.New(server.Config{
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		AllowPDF:       cfg.Upload.AllowPDF,
		ScanDir:        filepath.Join(cfg.Upload.Dir, "scans"),
		Organization:   cfg.Organization.Name,
		GinMode:        cfg.Server.GinMode,
	}, a.ServerDeps(), logger)
	if err != nil {
		logger.Error("failed to build http server", "error", err)
		os.Exit(1)
	}
	httpServer := &http.Server{Addr: cfg.Server.HTTPAddr, Handler: web.Handler()}

	health := server.NewHealthServer(a.Ping, logger)
	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		logger.Error("failed to listen on address", "addr", cfg.Server.GRPCAddr, "error", err)
		os.Exit(1)
	}
	go health.Watch(ctx, 0)

	errCh := make(chan error, 2)
	go func() {
		logger.Info("paperia http listening", "addr", cfg.Server.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	go func() {
		logger.Info("paperia grpc health listening", "addr", cfg.Server.GRPCAddr)
		if err := health.GRPC.Serve(lis); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		logger.Error("server stopped", "error", err)
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "error", err)
	}
	health.GRPC.GracefulStop()
	logger.Info("stopped")
}
