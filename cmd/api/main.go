package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/dvloznov/bookkeeper/internal/aggregate"
	"github.com/dvloznov/bookkeeper/internal/api/handlers"
	"github.com/dvloznov/bookkeeper/internal/api/middleware"
	"github.com/dvloznov/bookkeeper/internal/archive"
	"github.com/dvloznov/bookkeeper/internal/config"
	"github.com/dvloznov/bookkeeper/internal/doclink"
	"github.com/dvloznov/bookkeeper/internal/filestore"
	"github.com/dvloznov/bookkeeper/internal/jobs"
	"github.com/dvloznov/bookkeeper/internal/jobs/inmemory"
	"github.com/dvloznov/bookkeeper/internal/ledger"
	"github.com/dvloznov/bookkeeper/internal/logger"
	"github.com/dvloznov/bookkeeper/internal/pipeline"
	"github.com/dvloznov/bookkeeper/internal/recommend"
	"github.com/dvloznov/bookkeeper/internal/validate"
)

func main() {
	cfg := config.Load()

	log := logger.New(cfg.LogLevel)
	ctx := logger.WithContext(context.Background(), log)

	// Storage-backed repositories when a bucket is configured, in-memory
	// otherwise.
	var (
		files     filestore.FileStore
		links     doclink.DocumentLinkRepository
		processed doclink.ProcessedFilesRepository
	)
	if cfg.Bucket != "" {
		gcsFiles, err := filestore.NewGCS(ctx, cfg.Bucket)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create file store")
		}
		defer gcsFiles.Close()

		gcsLinks, err := doclink.NewGCSLinkIndex(ctx, cfg.Bucket, cfg.DocumentLinksObject)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create document link index")
		}
		defer gcsLinks.Close()

		gcsProcessed, err := doclink.NewGCSProcessedFiles(ctx, cfg.Bucket, cfg.ProcessedFilesObject)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create processed files set")
		}
		defer gcsProcessed.Close()

		files, links, processed = gcsFiles, gcsLinks, gcsProcessed
		log.Info().Str("bucket", cfg.Bucket).Msg("Using GCS-backed document storage")
	} else {
		files = filestore.NewMemory()
		links = doclink.NewMemoryLinkIndex()
		processed = doclink.NewMemoryProcessedFiles()
		log.Warn().Msg("No GCS bucket configured - using in-memory document storage")
	}

	store := ledger.NewStore()
	reportService := aggregate.NewService(store)
	validateEngine := validate.NewEngine(processed, links)

	var recommender recommend.Engine
	if eng, err := recommend.NewGeminiEngine(ctx, cfg.ModelName); err != nil {
		log.Warn().Err(err).Msg("Recommendations disabled")
	} else {
		recommender = eng
	}

	var archiver pipeline.Archiver
	if cfg.ProjectID != "" {
		arc, err := archive.NewArchive(ctx, cfg.ProjectID, cfg.Dataset)
		if err != nil {
			log.Warn().Err(err).Msg("Archival disabled")
		} else {
			defer arc.Close()
			archiver = arc
		}
	}

	var parser pipeline.AIParser
	if p, err := pipeline.NewGeminiParser(ctx, cfg.ModelName); err != nil {
		log.Warn().Err(err).Msg("Document extraction disabled")
	} else {
		parser = p
	}

	pipelineDeps := pipeline.Deps{
		Files:     files,
		Parser:    parser,
		Links:     links,
		Processed: processed,
		Ledger:    store,
		Archive:   archiver,
	}

	// In-process worker consuming extraction jobs.
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(cfg.QueueBuffer, cfg.WorkerCount, jobStore)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	jobHandler := func(ctx context.Context, job jobs.Job) error {
		extractJob, ok := job.(*jobs.ExtractDocumentJob)
		if !ok {
			return fmt.Errorf("unexpected job type: %T", job)
		}

		log.Info().
			Str("job_id", extractJob.JobID).
			Str("document", extractJob.DocumentName).
			Msg("Processing extraction job")

		txs, err := pipeline.Extract(ctx, pipelineDeps, extractJob.DocumentName, extractJob.MimeType)
		if err != nil {
			log.Error().
				Err(err).
				Str("job_id", extractJob.JobID).
				Str("document", extractJob.DocumentName).
				Msg("Extraction failed")
			return err
		}
		extractJob.Extracted = len(txs)

		log.Info().
			Str("job_id", extractJob.JobID).
			Str("document", extractJob.DocumentName).
			Int("transactions", len(txs)).
			Msg("Extraction completed")
		return nil
	}

	// Without a parser the queue stays idle and extraction enqueues are
	// rejected by the documents handler.
	var publisher jobs.Publisher
	if parser != nil {
		publisher = jobQueue
		go func() {
			log.Info().Int("workers", cfg.WorkerCount).Msg("Starting extraction workers")
			if err := jobQueue.Start(workerCtx, jobHandler); err != nil {
				log.Error().Err(err).Msg("Extraction workers stopped with error")
			}
		}()
	}

	// Handlers.
	transactionsHandler := handlers.NewTransactionsHandler(store, links, log)
	reportsHandler := handlers.NewReportsHandler(reportService, log)
	validationHandler := handlers.NewValidationHandler(store, validateEngine, log)
	recommendationsHandler := handlers.NewRecommendationsHandler(store, recommender, log)
	documentsHandler := handlers.NewDocumentsHandler(files, publisher, cfg.JobMaxRetry, log)
	jobsHandler := handlers.NewJobsHandler(jobStore, log)

	mux := http.NewServeMux()

	mux.HandleFunc("/api/transactions", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			transactionsHandler.ListTransactions(w, r)
		case http.MethodPost:
			transactionsHandler.CreateTransactions(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/transactions/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/api/transactions/")
		if id == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Transaction ID is required")
			return
		}
		if r.Method == http.MethodDelete {
			transactionsHandler.DeleteTransaction(w, r, id)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/report", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			reportsHandler.GetReport(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/validation", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			validationHandler.GetValidation(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/recommendations", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			recommendationsHandler.CreateRecommendations(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/documents", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			documentsHandler.ListDocuments(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/documents/extract", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			documentsHandler.EnqueueExtraction(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// POST /api/documents/{name}/chunks/{index}
	mux.HandleFunc("/api/documents/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		rest := strings.TrimPrefix(r.URL.Path, "/api/documents/")
		parts := strings.Split(rest, "/")
		if len(parts) != 3 || parts[1] != "chunks" || parts[0] == "" {
			middleware.WriteError(w, http.StatusNotFound, "Not found")
			return
		}
		index, err := strconv.Atoi(parts[2])
		if err != nil || index < 0 {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid chunk index")
			return
		}
		documentsHandler.UploadChunk(w, r, parts[0], index)
	})

	mux.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobsHandler.ListJobs(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
		jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
		if jobID == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
			return
		}
		if r.Method == http.MethodGet {
			jobsHandler.GetJob(w, r, jobID)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.CORS(mux),
			),
		),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	cancelWorker()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}

	log.Info().Msg("Server exited")
}
