package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/bookkeeper/internal/archive"
	"github.com/dvloznov/bookkeeper/internal/config"
	"github.com/dvloznov/bookkeeper/internal/doclink"
	"github.com/dvloznov/bookkeeper/internal/filestore"
	"github.com/dvloznov/bookkeeper/internal/jobs"
	"github.com/dvloznov/bookkeeper/internal/jobs/inmemory"
	"github.com/dvloznov/bookkeeper/internal/ledger"
	"github.com/dvloznov/bookkeeper/internal/logger"
	"github.com/dvloznov/bookkeeper/internal/pipeline"
)

// Standalone extraction worker. The in-memory queue keeps this a
// single-process deployment; swapping in Cloud Tasks or Pub/Sub would let the
// worker run separately from the API.
func main() {
	cfg := config.Load()

	log := logger.New(cfg.LogLevel)
	ctx := logger.WithContext(context.Background(), log)

	if cfg.Bucket == "" {
		log.Fatal().Msg("GCS_BUCKET is required for the worker")
	}

	files, err := filestore.NewGCS(ctx, cfg.Bucket)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create file store")
	}
	defer files.Close()

	links, err := doclink.NewGCSLinkIndex(ctx, cfg.Bucket, cfg.DocumentLinksObject)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create document link index")
	}
	defer links.Close()

	processed, err := doclink.NewGCSProcessedFiles(ctx, cfg.Bucket, cfg.ProcessedFilesObject)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create processed files set")
	}
	defer processed.Close()

	parser, err := pipeline.NewGeminiParser(ctx, cfg.ModelName)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create document parser")
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

	deps := pipeline.Deps{
		Files:     files,
		Parser:    parser,
		Links:     links,
		Processed: processed,
		Ledger:    ledger.NewStore(),
		Archive:   archiver,
	}

	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(cfg.QueueBuffer, cfg.WorkerCount, jobStore)

	workerCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	handler := func(ctx context.Context, job jobs.Job) error {
		extractJob, ok := job.(*jobs.ExtractDocumentJob)
		if !ok {
			return fmt.Errorf("unexpected job type: %T", job)
		}

		log.Info().
			Str("job_id", extractJob.JobID).
			Str("document", extractJob.DocumentName).
			Msg("Processing extraction job")

		txs, err := pipeline.Extract(ctx, deps, extractJob.DocumentName, extractJob.MimeType)
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

	if err := jobQueue.Start(workerCtx, handler); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	log.Info().Int("workers", cfg.WorkerCount).Msg("Worker service started, waiting for jobs...")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down worker service...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}

	log.Info().Msg("Worker service exited")
}
