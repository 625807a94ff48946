// Package app wires the configured components into a running service.
package app

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/contractorpay/invoice-reconciler/internal/ai"
	"github.com/contractorpay/invoice-reconciler/internal/auth"
	"github.com/contractorpay/invoice-reconciler/internal/db"
	"github.com/contractorpay/invoice-reconciler/internal/extract"
	"github.com/contractorpay/invoice-reconciler/internal/ledger"
	"github.com/contractorpay/invoice-reconciler/internal/models"
	"github.com/contractorpay/invoice-reconciler/internal/ocr"
	"github.com/contractorpay/invoice-reconciler/internal/pipeline"
	"github.com/contractorpay/invoice-reconciler/internal/reader"
	"github.com/contractorpay/invoice-reconciler/internal/storage"
)

// App holds every component built from a Config.
type App struct {
	Config   *models.Config
	Engine   ocr.Engine
	AI       ai.Provider
	Ledger   *ledger.StaticProvider
	Store    storage.DocumentStore
	Repo     *db.Repository
	Auth     *auth.Manager
	Pipeline *pipeline.Pipeline
}

// Options selects the optional backends Build connects to.
type Options struct {
	// Connect to PostgreSQL and MinIO when their environment is set.
	// One-shot tools leave this off.
	Persistence bool
}

// Build creates the components. Missing optional backends are logged and
// skipped; only a bad config or an unreadable ledger file fails.
func Build(ctx context.Context, cfg *models.Config, opts Options, log logrus.FieldLogger) (*App, error) {
	a := &App{Config: cfg, Repo: db.NewRepository(nil)}

	var err error
	a.Auth, err = auth.NewManager(cfg.Auth)
	if err != nil {
		return nil, err
	}
	if !a.Auth.Enabled() {
		log.Warn("JWT_SECRET not set, API authentication is disabled")
	}

	entries := []models.LedgerEntry{}
	if cfg.LedgerPath != "" {
		entries, err = ledger.LoadFile(cfg.LedgerPath)
		if err != nil {
			return nil, err
		}
		log.WithFields(logrus.Fields{"path": cfg.LedgerPath, "entries": len(entries)}).Info("Ledger loaded")
	}
	a.Ledger = ledger.NewStaticProvider(entries)

	a.Engine, err = ocr.NewEngine(cfg.OCR, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create OCR engine: %w", err)
	}

	a.AI = ai.BuildChain(cfg.AI, log)
	ctrlOpts := []ocr.ControllerOption{
		ocr.WithThreshold(cfg.OCR.ConfidenceThreshold),
		ocr.WithMaxConcurrent(cfg.OCR.MaxConcurrent),
		ocr.WithArtifactDir(cfg.OCR.ArtifactDir),
		ocr.WithVisionRate(cfg.AI.VisionRate, cfg.AI.VisionBurst),
		ocr.WithControllerLogger(log),
	}
	aggOpts := []extract.Option{extract.WithLogger(log)}
	if a.AI != nil {
		ctrlOpts = append(ctrlOpts, ocr.WithVision(ai.NewTranscriber(a.AI)))
		if cfg.AI.FieldExtraction {
			aggOpts = append(aggOpts, extract.WithFieldExtractor(ai.NewExtractor(a.AI, log)))
		}
	} else {
		log.Warn("No AI provider configured, low-confidence OCR will not be escalated")
	}

	if opts.Persistence {
		a.connect(ctx, log)
	}

	pipeOpts := []pipeline.Option{
		pipeline.WithOCR(ocr.NewController(a.Engine, ctrlOpts...)),
		pipeline.WithTextReader(reader.New("", log)),
		pipeline.WithAggregator(extract.NewAggregator(aggOpts...)),
		pipeline.WithRecorder(a.Repo),
		pipeline.WithLogger(log),
	}
	if a.Store != nil {
		pipeOpts = append(pipeOpts, pipeline.WithStore(a.Store))
	}
	a.Pipeline = pipeline.New(a.Ledger, pipeOpts...)
	return a, nil
}

// connect opens the database and the document store.
func (a *App) connect(ctx context.Context, log logrus.FieldLogger) {
	if dsn, ok := db.DSNFromEnv(); ok {
		pool, err := db.Open(ctx, dsn, log)
		if err != nil {
			log.WithError(err).Warn("Database not available, running without persistence")
		} else {
			a.Repo = db.NewRepository(pool)
			if err := a.Repo.EnsureSchema(ctx); err != nil {
				log.WithError(err).Error("Failed to create schema")
			}
		}
	} else {
		log.Info("No database configured, running without persistence")
	}

	if cfg, ok := storage.MinIOConfigFromEnv(); ok {
		s, err := storage.NewMinIOStore(ctx, cfg, log)
		if err != nil {
			log.WithError(err).Warn("MinIO storage not available, keeping documents in memory")
			a.Store = storage.NewMemoryStore()
		} else {
			a.Store = s
		}
	} else {
		a.Store = storage.NewMemoryStore()
	}
}

// AIName is the configured provider chain, or "none".
func (a *App) AIName() string {
	if a.AI == nil {
		return "none"
	}
	return a.AI.Name()
}

// Close releases the database pool.
func (a *App) Close() {
	a.Repo.Close()
}
