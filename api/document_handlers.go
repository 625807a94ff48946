package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/contractorpay/invoice-reconciler/internal/db"
	"github.com/contractorpay/invoice-reconciler/internal/ledger"
	"github.com/contractorpay/invoice-reconciler/internal/models"
	"github.com/contractorpay/invoice-reconciler/internal/pipeline"
	"github.com/contractorpay/invoice-reconciler/internal/reader"
	"github.com/contractorpay/invoice-reconciler/internal/storage"
)

// presignExpiry is how long a redirect to object storage stays valid.
const presignExpiry = 15 * time.Minute

// ProcessDocument - POST /api/documents
//
// Form fields: file (or image), handwritten=true, async=true. Async uploads
// are stored and queued; poll /api/jobs?key=... for the outcome.
func (h *Handler) ProcessDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize)
	if err := r.ParseMultipartForm(MaxUploadSize); err != nil {
		h.sendError(w, http.StatusBadRequest, "File too large or invalid form data")
		return
	}

	// Accept both "file" and "image" field names
	file, header, err := r.FormFile("file")
	if err != nil {
		file, header, err = r.FormFile("image")
		if err != nil {
			h.sendError(w, http.StatusBadRequest, "No file provided (use 'file' or 'image' field)")
			return
		}
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.sendError(w, http.StatusInternalServerError, "Failed to read file")
		return
	}

	doc := models.RawDocument{
		Bytes:         data,
		MIMEType:      header.Header.Get("Content-Type"),
		Filename:      header.Filename,
		IsHandwritten: r.FormValue("handwritten") == "true",
	}
	if doc.MIMEType == "" || doc.MIMEType == "application/octet-stream" {
		doc.MIMEType = reader.DetectMIME(data)
	}

	if r.FormValue("async") == "true" {
		h.enqueueDocument(w, r, doc)
		return
	}

	outcome, err := h.deps.Pipeline.Process(r.Context(), doc)
	if err != nil {
		h.log.WithError(err).WithField("filename", doc.Filename).Warn("Document processing failed")
		h.sendError(w, statusFor(err), err.Error())
		return
	}
	h.sendJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"outcome": outcome,
	})
}

func (h *Handler) enqueueDocument(w http.ResponseWriter, r *http.Request, doc models.RawDocument) {
	if h.deps.Queue == nil || h.deps.Store == nil {
		h.sendError(w, http.StatusNotImplemented, "async processing is not configured")
		return
	}
	if len(doc.Bytes) == 0 {
		h.sendError(w, statusFor(reader.ErrEmptyDocument), reader.ErrEmptyDocument.Error())
		return
	}
	if !reader.IsImage(doc.MIMEType) && !reader.Supports(doc.MIMEType) {
		h.sendError(w, http.StatusUnsupportedMediaType, "unsupported document type: "+doc.MIMEType)
		return
	}

	key := storage.ObjectKey(uuid.New().String(), doc.MIMEType, h.now())
	err := h.deps.Store.Put(r.Context(), storage.Object{
		Key:         key,
		ContentType: doc.MIMEType,
		Data:        doc.Bytes,
		Metadata:    map[string]string{"filename": doc.Filename},
	})
	if err != nil {
		h.log.WithError(err).WithField("key", key).Error("Failed to store upload")
		h.sendError(w, http.StatusInternalServerError, "failed to store document")
		return
	}

	if err := h.deps.Queue.Enqueue(pipeline.Job{Key: key, Handwritten: doc.IsHandwritten}); err != nil {
		if delErr := h.deps.Store.Delete(r.Context(), key); delErr != nil {
			h.log.WithError(delErr).WithField("key", key).Warn("Failed to remove rejected upload")
		}
		h.sendError(w, statusFor(err), err.Error())
		return
	}

	h.sendJSON(w, http.StatusAccepted, map[string]interface{}{
		"success": true,
		"key":     key,
		"status":  pipeline.JobQueued,
	})
}

// GetJob - GET /api/jobs?key=...
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		h.sendError(w, http.StatusBadRequest, "key is required")
		return
	}
	if h.deps.Queue == nil {
		h.sendError(w, http.StatusNotImplemented, "async processing is not configured")
		return
	}
	status, ok := h.deps.Queue.Status(key)
	if !ok {
		h.sendError(w, http.StatusNotFound, "job not found")
		return
	}
	h.sendJSON(w, http.StatusOK, status)
}

// ListDocuments - GET /api/documents?page=1&limit=50
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	page := 1
	limit := 50
	if p := r.URL.Query().Get("page"); p != "" {
		if val, err := strconv.Atoi(p); err == nil && val > 0 {
			page = val
		}
	}
	if l := r.URL.Query().Get("limit"); l != "" {
		if val, err := strconv.Atoi(l); err == nil && val > 0 && val <= 100 {
			limit = val
		}
	}
	offset := (page - 1) * limit

	extractions, total, err := h.deps.Repo.ListExtractions(r.Context(), limit, offset)
	if err != nil {
		h.log.WithError(err).Warn("ListExtractions failed")
		h.sendError(w, statusFor(err), err.Error())
		return
	}
	if extractions == nil {
		extractions = []db.Extraction{}
	}

	totalPages := (total + limit - 1) / limit
	if totalPages < 1 {
		totalPages = 1
	}

	h.sendJSON(w, http.StatusOK, map[string]interface{}{
		"documents":   extractions,
		"total":       total,
		"page":        page,
		"limit":       limit,
		"total_pages": totalPages,
	})
}

// GetDocument - GET /api/documents/{id}
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	e, err := h.deps.Repo.GetExtraction(r.Context(), id)
	if err != nil {
		h.sendError(w, statusFor(err), err.Error())
		return
	}
	h.sendJSON(w, http.StatusOK, e)
}

// DeleteDocument - DELETE /api/documents/{id}. Verdicts go with the
// extraction; the stored original is removed too.
func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	e, err := h.deps.Repo.GetExtraction(r.Context(), id)
	if err != nil {
		h.sendError(w, statusFor(err), err.Error())
		return
	}
	if err := h.deps.Repo.DeleteExtraction(r.Context(), id); err != nil {
		h.sendError(w, statusFor(err), err.Error())
		return
	}
	if e.DocumentKey != "" && h.deps.Store != nil {
		if err := h.deps.Store.Delete(r.Context(), e.DocumentKey); err != nil && !errors.Is(err, storage.ErrNotFound) {
			h.log.WithError(err).WithField("key", e.DocumentKey).Warn("Failed to delete stored document")
		}
	}
	h.sendJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"id":      id,
	})
}

// GetDocumentFile - GET /api/documents/{id}/file
//
// MinIO-backed stores redirect to a presigned URL; other stores are proxied.
func (h *Handler) GetDocumentFile(w http.ResponseWriter, r *http.Request) {
	if h.deps.Store == nil {
		h.sendError(w, http.StatusServiceUnavailable, "storage not available")
		return
	}
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	e, err := h.deps.Repo.GetExtraction(r.Context(), id)
	if err != nil {
		h.sendError(w, statusFor(err), err.Error())
		return
	}
	if e.DocumentKey == "" {
		h.sendError(w, http.StatusNotFound, "document was not stored")
		return
	}

	if s, ok := h.deps.Store.(*storage.MinIOStore); ok {
		url, err := s.PresignedURL(r.Context(), e.DocumentKey, presignExpiry)
		if err == nil {
			http.Redirect(w, r, url, http.StatusFound)
			return
		}
		h.log.WithError(err).WithField("key", e.DocumentKey).Warn("Presign failed, proxying")
	}

	obj, err := h.deps.Store.Get(r.Context(), e.DocumentKey)
	if err != nil {
		h.sendError(w, statusFor(err), "document not available")
		return
	}
	contentType := obj.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "private, max-age=86400")
	w.Write(obj.Data)
}

// ReconcileDocument - POST /api/documents/{id}/reconcile
//
// Re-runs matching against the current ledger and appends the verdict.
func (h *Handler) ReconcileDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	v, err := h.deps.Pipeline.Reconcile(r.Context(), id)
	if err != nil {
		h.sendError(w, statusFor(err), err.Error())
		return
	}
	h.sendJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"verdict": v,
	})
}

// GetVerdicts - GET /api/documents/{id}/verdicts
func (h *Handler) GetVerdicts(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	history, err := h.deps.Repo.VerdictHistory(r.Context(), id)
	if err != nil {
		h.sendError(w, statusFor(err), err.Error())
		return
	}
	if history == nil {
		history = []db.Verdict{}
	}
	h.sendJSON(w, http.StatusOK, map[string]interface{}{
		"id":       id,
		"verdicts": history,
	})
}

// GetStats - GET /api/stats: counts of each document's latest verdict.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	counts, err := h.deps.Repo.VerdictStats(r.Context())
	if err != nil {
		h.sendError(w, statusFor(err), err.Error())
		return
	}
	byStatus := map[models.MatchStatus]int{
		models.FullMatch:    0,
		models.PartialMatch: 0,
		models.NoMatch:      0,
		models.Pending:      0,
	}
	total := 0
	for _, c := range counts {
		byStatus[c.Status] = c.Count
		total += c.Count
	}
	h.sendJSON(w, http.StatusOK, map[string]interface{}{
		"total":    total,
		"byStatus": byStatus,
	})
}

// GetLedger - GET /api/ledger
func (h *Handler) GetLedger(w http.ResponseWriter, r *http.Request) {
	if h.deps.Ledger == nil {
		h.sendError(w, http.StatusServiceUnavailable, "ledger not loaded")
		return
	}
	entries, err := h.deps.Ledger.Ledger(r.Context())
	if err != nil {
		h.sendError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if entries == nil {
		entries = []models.LedgerEntry{}
	}
	h.sendJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
	})
}

// ReplaceLedger - PUT /api/ledger
//
// The body is a ledger document with "entries" and/or "tasks", in YAML or
// JSON. The whole ledger is swapped; in-flight reconciliations keep the copy
// they already read.
func (h *Handler) ReplaceLedger(w http.ResponseWriter, r *http.Request) {
	if h.deps.Ledger == nil {
		h.sendError(w, http.StatusServiceUnavailable, "ledger not loaded")
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxUploadSize))
	if err != nil {
		h.sendError(w, http.StatusBadRequest, "failed to read body")
		return
	}
	entries, err := ledger.Parse(body)
	if err != nil {
		h.sendError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.deps.Ledger.Replace(entries)
	h.log.WithField("entries", len(entries)).Info("Ledger replaced")
	h.sendJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"entries": len(entries),
	})
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid document id")
		return uuid.Nil, false
	}
	return id, true
}
