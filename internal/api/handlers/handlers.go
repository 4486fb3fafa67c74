// Package handlers implements the HTTP API surface over the ledger, reports,
// validation, recommendations, document uploads and jobs.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/dvloznov/bookkeeper/internal/aggregate"
	"github.com/dvloznov/bookkeeper/internal/api/middleware"
	"github.com/dvloznov/bookkeeper/internal/doclink"
	"github.com/dvloznov/bookkeeper/internal/filestore"
	"github.com/dvloznov/bookkeeper/internal/jobs"
	"github.com/dvloznov/bookkeeper/internal/ledger"
	"github.com/dvloznov/bookkeeper/internal/normalize"
	"github.com/dvloznov/bookkeeper/internal/recommend"
	"github.com/dvloznov/bookkeeper/internal/validate"
)

// maxChunkSize bounds a single uploaded chunk.
const maxChunkSize = 8 << 20

// TransactionsHandler serves the ledger collection.
type TransactionsHandler struct {
	store *ledger.Store
	links doclink.DocumentLinkRepository
	log   zerolog.Logger
}

func NewTransactionsHandler(store *ledger.Store, links doclink.DocumentLinkRepository, log zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{store: store, links: links, log: log}
}

// ListTransactions handles GET /api/transactions
func (h *TransactionsHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, version := h.store.Snapshot()

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": txs,
		"count":        len(txs),
		"version":      version,
	})
}

// CreateTransactions handles POST /api/transactions. The body is any JSON
// value; non-arrays and malformed records normalize to the documented
// defaults rather than erroring.
func (h *TransactionsHandler) CreateTransactions(w http.ResponseWriter, r *http.Request) {
	var body interface{}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	txs := normalize.NormalizeValue(body)
	h.store.Append(txs...)

	h.log.Info().Int("count", len(txs)).Msg("Transactions ingested")

	middleware.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"transactions": txs,
		"count":        len(txs),
	})
}

// DeleteTransaction handles DELETE /api/transactions/{id}. The document link
// for the transaction is removed as well.
func (h *TransactionsHandler) DeleteTransaction(w http.ResponseWriter, r *http.Request, id string) {
	if !h.store.Delete(id) {
		middleware.WriteError(w, http.StatusNotFound, "Transaction not found")
		return
	}

	if err := h.links.Delete(r.Context(), id); err != nil {
		h.log.Warn().Err(err).Str("transaction_id", id).Msg("Failed to delete document link")
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{"deleted": id})
}

// ReportsHandler serves the aggregated financial report.
type ReportsHandler struct {
	service *aggregate.Service
	log     zerolog.Logger
}

func NewReportsHandler(service *aggregate.Service, log zerolog.Logger) *ReportsHandler {
	return &ReportsHandler{service: service, log: log}
}

// GetReport handles GET /api/report. An empty collection yields 200 with an
// explicit empty-state body rather than an error.
func (h *ReportsHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Report()
	if err != nil {
		if errors.Is(err, aggregate.ErrNoData) {
			middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
				"empty":   true,
				"message": "No transactions recorded yet",
			})
			return
		}
		h.log.Error().Err(err).Msg("Failed to compute report")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to compute report")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, report)
}

// ValidationHandler serves validation results and the compliance summary.
type ValidationHandler struct {
	store  *ledger.Store
	engine *validate.Engine
	log    zerolog.Logger
}

func NewValidationHandler(store *ledger.Store, engine *validate.Engine, log zerolog.Logger) *ValidationHandler {
	return &ValidationHandler{store: store, engine: engine, log: log}
}

// GetValidation handles GET /api/validation
func (h *ValidationHandler) GetValidation(w http.ResponseWriter, r *http.Request) {
	txs, _ := h.store.Snapshot()

	results, summary, err := h.engine.Validate(r.Context(), txs)
	if err != nil {
		h.log.Error().Err(err).Msg("Validation failed")
		middleware.WriteError(w, http.StatusInternalServerError, "Validation failed")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"results": results,
		"summary": summary,
	})
}

// RecommendationsHandler generates AI spending recommendations.
type RecommendationsHandler struct {
	store  *ledger.Store
	engine recommend.Engine
	log    zerolog.Logger
}

func NewRecommendationsHandler(store *ledger.Store, engine recommend.Engine, log zerolog.Logger) *RecommendationsHandler {
	return &RecommendationsHandler{store: store, engine: engine, log: log}
}

// CreateRecommendations handles POST /api/recommendations
func (h *RecommendationsHandler) CreateRecommendations(w http.ResponseWriter, r *http.Request) {
	if h.engine == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Recommendations are not configured")
		return
	}

	txs, _ := h.store.Snapshot()
	if len(txs) == 0 {
		middleware.WriteError(w, http.StatusBadRequest, "No transactions to analyze")
		return
	}

	recs, err := h.engine.Generate(r.Context(), txs)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to generate recommendations")
		middleware.WriteError(w, http.StatusBadGateway, "Failed to generate recommendations")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"recommendations": recs,
		"count":           len(recs),
	})
}

// DocumentsHandler serves chunked document uploads and extraction enqueueing.
type DocumentsHandler struct {
	files      filestore.FileStore
	publisher  jobs.Publisher
	maxRetries int
	log        zerolog.Logger
}

func NewDocumentsHandler(files filestore.FileStore, publisher jobs.Publisher, maxRetries int, log zerolog.Logger) *DocumentsHandler {
	return &DocumentsHandler{files: files, publisher: publisher, maxRetries: maxRetries, log: log}
}

// ListDocuments handles GET /api/documents
func (h *DocumentsHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := h.files.ListFiles(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list documents")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list documents")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"documents": docs,
		"count":     len(docs),
	})
}

// UploadChunk handles POST /api/documents/{name}/chunks/{index}. The raw
// chunk bytes are the request body.
func (h *DocumentsHandler) UploadChunk(w http.ResponseWriter, r *http.Request, name string, index int) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxChunkSize+1))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Failed to read chunk body")
		return
	}
	if len(data) == 0 {
		middleware.WriteError(w, http.StatusBadRequest, "Empty chunk")
		return
	}
	if len(data) > maxChunkSize {
		middleware.WriteError(w, http.StatusRequestEntityTooLarge, "Chunk too large")
		return
	}

	mimeType := r.Header.Get("Content-Type")
	if err := h.files.UploadChunk(r.Context(), name, data, index, mimeType); err != nil {
		h.log.Error().Err(err).Str("document", name).Int("chunk", index).Msg("Chunk upload failed")
		middleware.WriteError(w, http.StatusInternalServerError, "Chunk upload failed")
		return
	}

	total, err := h.files.GetTotalChunks(r.Context(), name)
	if err != nil {
		total = 0
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"document":    name,
		"chunk":       index,
		"totalChunks": total,
	})
}

// EnqueueExtraction handles POST /api/documents/extract. A nil publisher
// means extraction is not configured for this deployment.
func (h *DocumentsHandler) EnqueueExtraction(w http.ResponseWriter, r *http.Request) {
	if h.publisher == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Document extraction is not configured")
		return
	}

	var req struct {
		DocumentName string `json:"documentName"`
		MimeType     string `json:"mimeType"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.DocumentName == "" {
		middleware.WriteError(w, http.StatusBadRequest, "documentName is required")
		return
	}

	exists, err := h.files.Exists(r.Context(), req.DocumentName)
	if err != nil || !exists {
		middleware.WriteError(w, http.StatusNotFound, "Document not found")
		return
	}

	job := &jobs.ExtractDocumentJob{
		DocumentName: req.DocumentName,
		MimeType:     req.MimeType,
		MaxRetries:   h.maxRetries,
	}
	if err := h.publisher.PublishExtractDocument(r.Context(), job); err != nil {
		h.log.Error().Err(err).Str("document", req.DocumentName).Msg("Failed to enqueue extraction")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue extraction")
		return
	}

	h.log.Info().Str("job_id", job.JobID).Str("document", req.DocumentName).Msg("Extraction job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"jobId":    job.JobID,
		"document": req.DocumentName,
		"status":   string(job.Status),
	})
}

// JobsHandler serves job status.
type JobsHandler struct {
	store jobs.JobStore
	log   zerolog.Logger
}

func NewJobsHandler(store jobs.JobStore, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{store: store, log: log}
}

// GetJob handles GET /api/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request, jobID string) {
	job, err := h.store.GetJob(r.Context(), jobID)
	if err != nil {
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := jobs.JobFilter{
		DocumentName: query.Get("document"),
		Status:       jobs.JobStatus(query.Get("status")),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}
	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	jobsList, err := h.store.ListJobs(r.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}
