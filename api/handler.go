package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/contractorpay/invoice-reconciler/internal/auth"
	"github.com/contractorpay/invoice-reconciler/internal/db"
	"github.com/contractorpay/invoice-reconciler/internal/ledger"
	"github.com/contractorpay/invoice-reconciler/internal/models"
	"github.com/contractorpay/invoice-reconciler/internal/ocr"
	"github.com/contractorpay/invoice-reconciler/internal/pipeline"
	"github.com/contractorpay/invoice-reconciler/internal/reader"
	"github.com/contractorpay/invoice-reconciler/internal/storage"
)

const (
	MaxUploadSize = 10 * 1024 * 1024 // 10MB
	Version       = "1.0.0"
)

// Deps are the collaborators a Handler serves requests with. Only Pipeline
// and Ledger are required.
type Deps struct {
	Pipeline *pipeline.Pipeline
	Queue    *pipeline.Queue
	Repo     *db.Repository
	Store    storage.DocumentStore
	Ledger   *ledger.StaticProvider
	Auth     *auth.Manager
	Engine   ocr.Engine
	AIName   string
	Log      logrus.FieldLogger
}

// Handler handles HTTP requests for document reconciliation
type Handler struct {
	config *models.Config
	deps   Deps
	log    logrus.FieldLogger
	now    func() time.Time
}

// NewHandler creates a new API handler
func NewHandler(config *models.Config, deps Deps) *Handler {
	if deps.Repo == nil {
		deps.Repo = db.NewRepository(nil)
	}
	log := deps.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Handler{
		config: config,
		deps:   deps,
		log:    log,
		now:    time.Now,
	}
}

// SetupRoutes configures the HTTP routes. Everything except /health and
// /api/login requires a bearer token when auth is configured.
func (h *Handler) SetupRoutes() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/health", h.Health).Methods("GET")
	if h.deps.Auth != nil {
		router.HandleFunc("/api/login", h.deps.Auth.LoginHandler).Methods("POST")
		router.Use(h.deps.Auth.JWTMiddleware("/health", "/api/login"))
	}

	// Documents
	router.HandleFunc("/api/documents", h.ProcessDocument).Methods("POST")
	router.HandleFunc("/api/documents", h.ListDocuments).Methods("GET")
	router.HandleFunc("/api/documents/{id}", h.GetDocument).Methods("GET")
	router.HandleFunc("/api/documents/{id}", h.DeleteDocument).Methods("DELETE")
	router.HandleFunc("/api/documents/{id}/file", h.GetDocumentFile).Methods("GET")
	router.HandleFunc("/api/documents/{id}/reconcile", h.ReconcileDocument).Methods("POST")
	router.HandleFunc("/api/documents/{id}/verdicts", h.GetVerdicts).Methods("GET")

	// Queued uploads
	router.HandleFunc("/api/jobs", h.GetJob).Methods("GET")

	// Ledger and statistics
	router.HandleFunc("/api/ledger", h.GetLedger).Methods("GET")
	router.HandleFunc("/api/ledger", h.ReplaceLedger).Methods("PUT")
	router.HandleFunc("/api/stats", h.GetStats).Methods("GET")

	return router
}

// HealthResponse represents the health check response structure
type HealthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	Timestamp string            `json:"timestamp"`
	Uptime    string            `json:"uptime"`
	Memory    MemoryStats       `json:"memory"`
	OCR       ServiceStatus     `json:"ocr"`
	Database  ServiceStatus     `json:"database"`
	Storage   ServiceStatus     `json:"storage"`
	Ledger    ServiceStatus     `json:"ledger"`
	AI        map[string]string `json:"ai"`
}

// MemoryStats represents memory usage statistics
type MemoryStats struct {
	Allocated string `json:"allocated"`
	Total     string `json:"total"`
	System    string `json:"system"`
}

// ServiceStatus represents the status of a service dependency
type ServiceStatus struct {
	Available bool   `json:"available"`
	Version   string `json:"version,omitempty"`
	Error     string `json:"error,omitempty"`
}

var startTime = time.Now()

// Health reports the state of every dependency. Only a missing ledger marks
// the service degraded: OCR, storage and the database are optional.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ledgerStatus := h.checkLedger(ctx)
	response := HealthResponse{
		Status:    "healthy",
		Version:   Version,
		Timestamp: h.now().Format(time.RFC3339),
		Uptime:    time.Since(startTime).String(),
		Memory: MemoryStats{
			Allocated: fmt.Sprintf("%.2f MB", float64(m.Alloc)/1024/1024),
			Total:     fmt.Sprintf("%.2f MB", float64(m.TotalAlloc)/1024/1024),
			System:    fmt.Sprintf("%.2f MB", float64(m.Sys)/1024/1024),
		},
		OCR:      h.checkOCR(ctx),
		Database: h.checkDatabase(ctx),
		Storage:  h.checkStorage(),
		Ledger:   ledgerStatus,
		AI: map[string]string{
			"provider":  h.deps.AIName,
			"ocrEngine": h.config.OCR.Engine,
		},
	}

	if !ledgerStatus.Available {
		response.Status = "degraded"
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	json.NewEncoder(w).Encode(response)
}

// checkOCR asks the local engine for its version when it can report one.
func (h *Handler) checkOCR(ctx context.Context) ServiceStatus {
	if h.deps.Engine == nil {
		return ServiceStatus{Available: false, Error: "ocr engine not configured"}
	}
	v, ok := h.deps.Engine.(interface {
		Version(ctx context.Context) (string, error)
	})
	if !ok {
		return ServiceStatus{Available: true, Version: h.deps.Engine.Name()}
	}
	version, err := v.Version(ctx)
	if err != nil {
		return ServiceStatus{Available: false, Error: err.Error()}
	}
	return ServiceStatus{Available: true, Version: version}
}

func (h *Handler) checkDatabase(ctx context.Context) ServiceStatus {
	if err := h.deps.Repo.Ping(ctx); err != nil {
		return ServiceStatus{Available: false, Error: err.Error()}
	}
	return ServiceStatus{Available: true, Version: "PostgreSQL"}
}

func (h *Handler) checkStorage() ServiceStatus {
	switch h.deps.Store.(type) {
	case nil:
		return ServiceStatus{Available: false, Error: "storage not configured"}
	case *storage.MinIOStore:
		return ServiceStatus{Available: true, Version: "MinIO S3"}
	default:
		return ServiceStatus{Available: true, Version: "in-memory"}
	}
}

func (h *Handler) checkLedger(ctx context.Context) ServiceStatus {
	if h.deps.Ledger == nil {
		return ServiceStatus{Available: false, Error: "ledger not loaded"}
	}
	entries, err := h.deps.Ledger.Ledger(ctx)
	if err != nil {
		return ServiceStatus{Available: false, Error: err.Error()}
	}
	return ServiceStatus{Available: true, Version: fmt.Sprintf("%d entries", len(entries))}
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, db.ErrNotFound), errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, db.ErrNoDatabase):
		return http.StatusServiceUnavailable
	case errors.Is(err, reader.ErrUnsupportedType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, reader.ErrEmptyDocument):
		return http.StatusUnprocessableEntity
	case errors.Is(err, pipeline.ErrNoOCR):
		return http.StatusNotImplemented
	case errors.Is(err, pipeline.ErrQueueFull), errors.Is(err, pipeline.ErrQueueClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// sendJSON writes a JSON response
func (h *Handler) sendJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// sendError sends an error response
func (h *Handler) sendError(w http.ResponseWriter, statusCode int, message string) {
	h.sendJSON(w, statusCode, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}
