package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"epargne/internal/api"
	"epargne/internal/config"
	"epargne/internal/logging"
	"epargne/internal/scheduler"
	"epargne/pkg/epargne"
)

func main() {
	var dataDir string
	var port int
	var host string
	var noRefresh bool

	flag.StringVar(&dataDir, "data-dir", "", "Directory for storing database and application data")
	flag.IntVar(&port, "port", 0, "Port to run the server on (overrides EPARGNE_PORT)")
	flag.StringVar(&host, "host", "", "Host to bind the server to (overrides EPARGNE_HOST)")
	flag.BoolVar(&noRefresh, "no-refresh", false, "Disable the background quote refresh job")
	flag.Parse()

	// Optional; a missing .env file is not an error.
	_ = godotenv.Load()

	if dataDir != "" {
		config.SetRuntimeDataDir(dataDir)
	}
	config.SetRuntimePort(port)

	logDir, err := config.GetLogDir()
	if err != nil {
		slog.Error("failed to resolve log directory", "err", err)
		os.Exit(1)
	}
	logger, writer, err := logging.NewLogger(logDir, slog.LevelInfo)
	if err != nil {
		slog.Error("failed to initialize logger", "err", err)
		os.Exit(1)
	}
	defer func() {
		if err := writer.Close(); err != nil {
			logger.Error("failed to close log writer", "err", err)
		}
	}()

	dbPath, err := config.GetDBPath()
	if err != nil {
		logger.Error("failed to resolve db path", "err", err)
		os.Exit(1)
	}

	core, err := epargne.OpenWithOptions(epargne.Options{
		DBPath:      dbPath,
		Logger:      logger,
		QuoteAPIKey: config.GetQuoteAPIKey(),
	})
	if err != nil {
		logger.Error("failed to initialize core", "err", err)
		os.Exit(1)
	}
	defer func() {
		if err := core.Close(); err != nil {
			logger.Error("failed to close core", "err", err)
		}
	}()

	sched := scheduler.New(logger)
	if !noRefresh {
		job := scheduler.NewQuoteRefresh(core, logger)
		if err := sched.AddJob(config.GetRefreshSchedule(), job); err != nil {
			logger.Error("failed to register quote refresh job", "err", err)
			os.Exit(1)
		}
	}
	sched.Start()
	defer sched.Stop()

	if host == "" {
		host = config.GetHost()
	}
	addr := fmt.Sprintf("%s:%d", host, config.GetPort())
	handler := middleware.Compress(5)(api.NewRouter(core, logger))

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	logger.Info("server starting", "addr", addr, "db", dbPath)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "err", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM, syscall.SIGINT)
	<-stop

	logger.Info("server shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "err", err)
	}
}
