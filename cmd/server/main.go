package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/contractorpay/invoice-reconciler/api"
	"github.com/contractorpay/invoice-reconciler/internal/app"
	"github.com/contractorpay/invoice-reconciler/internal/pipeline"
)

func main() {
	if err := godotenv.Load(); err == nil {
		logrus.Info("Loaded environment from .env")
	}

	log := logrus.StandardLogger()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if lvl, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		log.SetLevel(lvl)
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	config, err := app.LoadConfig(configPath)
	if err != nil {
		log.WithError(err).Fatal("Failed to load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, config, app.Options{Persistence: true}, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize service")
	}
	defer a.Close()

	queue := pipeline.NewQueue(a.Pipeline,
		pipeline.WithWorkers(config.Workers),
		pipeline.WithQueueSize(config.QueueSize),
		pipeline.WithQueueLogger(log),
	)

	handler := api.NewHandler(config, api.Deps{
		Pipeline: a.Pipeline,
		Queue:    queue,
		Repo:     a.Repo,
		Store:    a.Store,
		Ledger:   a.Ledger,
		Auth:     a.Auth,
		Engine:   a.Engine,
		AIName:   a.AIName(),
		Log:      log,
	})

	addr := fmt.Sprintf("%s:%d", config.Host, config.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler.SetupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      5 * time.Minute,
	}

	log.WithFields(logrus.Fields{
		"addr":     addr,
		"version":  api.Version,
		"ocr":      config.OCR.Engine,
		"ai":       a.AIName(),
		"database": a.Repo.Available(),
		"auth":     a.Auth.Enabled(),
		"workers":  config.Workers,
	}).Info("Starting invoice reconciliation service")

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Server failed")
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("HTTP shutdown incomplete")
	}
	queue.Shutdown(shutdownCtx)
}
