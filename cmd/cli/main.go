package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/bookkeeper/internal/aggregate"
	"github.com/dvloznov/bookkeeper/internal/archive"
	"github.com/dvloznov/bookkeeper/internal/config"
	"github.com/dvloznov/bookkeeper/internal/doclink"
	"github.com/dvloznov/bookkeeper/internal/domain"
	"github.com/dvloznov/bookkeeper/internal/filestore"
	"github.com/dvloznov/bookkeeper/internal/logger"
	"github.com/dvloznov/bookkeeper/internal/normalize"
	"github.com/dvloznov/bookkeeper/internal/notionsync"
	"github.com/dvloznov/bookkeeper/internal/validate"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.LogLevel)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "report":
		runReport(log)
	case "validate":
		runValidate(log)
	case "upload":
		runUpload(log)
	case "sync":
		runSync(log, cfg)
	case "archive":
		runArchive(log, cfg)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Bookkeeper CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  report    Compute the financial report for a ledger JSON file")
	fmt.Println("  validate  Run compliance validation over a ledger JSON file")
	fmt.Println("  upload    Upload a document to GCS in chunks")
	fmt.Println("  sync      Export validation results to Notion")
	fmt.Println("  archive   Query archived transactions by date range")
	fmt.Println("  help      Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

// loadLedger reads a JSON file of raw transaction records and normalizes
// them. Any JSON value is accepted; malformed records get defaults.
func loadLedger(path string) ([]domain.Transaction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loadLedger: %w", err)
	}

	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("loadLedger: parse %s: %w", path, err)
	}
	return normalize.NormalizeValue(raw), nil
}

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func runReport(log zerolog.Logger) {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	file := fs.String("file", "", "Path to ledger JSON file")
	fs.Parse(os.Args[2:])

	if *file == "" {
		log.Fatal().Msg("Error: --file is required")
	}

	txs, err := loadLedger(*file)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load ledger")
	}

	report, err := aggregate.NewEngine().Compute(txs)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to compute report")
	}

	printJSON(report)
}

func runValidate(log zerolog.Logger) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	file := fs.String("file", "", "Path to ledger JSON file")
	fs.Parse(os.Args[2:])

	if *file == "" {
		log.Fatal().Msg("Error: --file is required")
	}

	txs, err := loadLedger(*file)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load ledger")
	}

	ctx := logger.WithContext(context.Background(), log)

	// Local file validation has no extraction history to consult.
	engine := validate.NewEngine(doclink.NewMemoryProcessedFiles(), doclink.NewMemoryLinkIndex())
	results, summary, err := engine.Validate(ctx, txs)
	if err != nil {
		log.Fatal().Err(err).Msg("Validation failed")
	}

	printJSON(map[string]interface{}{
		"results": results,
		"summary": summary,
	})

	if summary.TotalErrors > 0 {
		os.Exit(1)
	}
}

const uploadChunkSize = 1 << 20

func runUpload(log zerolog.Logger) {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	bucket := fs.String("bucket", os.Getenv("GCS_BUCKET"), "GCS bucket name (or set GCS_BUCKET)")
	file := fs.String("file", "", "Path to local document")
	name := fs.String("name", "", "Document name (defaults to filename)")
	mimeType := fs.String("mime", "application/pdf", "Document MIME type")
	fs.Parse(os.Args[2:])

	if *bucket == "" || *file == "" {
		log.Fatal().Msg("Usage: cli upload -bucket NAME -file PATH")
	}
	if *name == "" {
		*name = filepath.Base(*file)
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read file")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	store, err := filestore.NewGCS(ctx, *bucket)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create file store")
	}
	defer store.Close()

	var index int
	for offset := 0; offset < len(data); offset += uploadChunkSize {
		end := offset + uploadChunkSize
		if end > len(data) {
			end = len(data)
		}
		if err := store.UploadChunk(ctx, *name, data[offset:end], index, *mimeType); err != nil {
			log.Fatal().Err(err).Int("chunk", index).Msg("Chunk upload failed")
		}
		index++
	}

	log.Info().
		Str("bucket", *bucket).
		Str("document", *name).
		Int("chunks", index).
		Int("bytes", len(data)).
		Msg("Upload complete")
	fmt.Printf("Uploaded %s in %d chunks.\n", *name, index)
}

const archiveDateLayout = "2006-01-02"

func runArchive(log zerolog.Logger, cfg *config.Config) {
	fs := flag.NewFlagSet("archive", flag.ExitOnError)
	startArg := fs.String("start", "", "Range start (YYYY-MM-DD, inclusive)")
	endArg := fs.String("end", "", "Range end (YYYY-MM-DD, inclusive)")
	fs.Parse(os.Args[2:])

	if *startArg == "" || *endArg == "" {
		log.Fatal().Msg("Usage: cli archive -start YYYY-MM-DD -end YYYY-MM-DD")
	}
	if cfg.ProjectID == "" {
		log.Fatal().Msg("BQ_PROJECT is required")
	}

	start, err := time.Parse(archiveDateLayout, *startArg)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid -start date")
	}
	end, err := time.Parse(archiveDateLayout, *endArg)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid -end date")
	}
	if end.Before(start) {
		log.Fatal().Msg("-end must not precede -start")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	arc, err := archive.NewArchive(ctx, cfg.ProjectID, cfg.Dataset)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create archive client")
	}
	defer arc.Close()

	txs, err := arc.QueryByDateRange(ctx, start, end)
	if err != nil {
		log.Fatal().Err(err).Msg("Archive query failed")
	}

	log.Info().
		Str("start", *startArg).
		Str("end", *endArg).
		Int("transactions", len(txs)).
		Msg("Archive query complete")
	printJSON(txs)
}

func runSync(log zerolog.Logger, cfg *config.Config) {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)
	file := fs.String("file", "", "Path to ledger JSON file")
	dryRun := fs.Bool("dry-run", false, "Log the plan without writing to Notion")
	fs.Parse(os.Args[2:])

	if *file == "" {
		log.Fatal().Msg("Error: --file is required")
	}
	if cfg.NotionToken == "" || cfg.NotionDatabaseID == "" {
		log.Fatal().Msg("NOTION_TOKEN and NOTION_DATABASE_ID are required")
	}

	txs, err := loadLedger(*file)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load ledger")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	engine := validate.NewEngine(doclink.NewMemoryProcessedFiles(), doclink.NewMemoryLinkIndex())
	results, _, err := engine.Validate(ctx, txs)
	if err != nil {
		log.Fatal().Err(err).Msg("Validation failed")
	}

	client := notionsync.NewNotionClient(cfg.NotionToken)
	if err := notionsync.SyncValidation(ctx, client, cfg.NotionDatabaseID, txs, results, *dryRun); err != nil {
		log.Fatal().Err(err).Msg("Sync failed")
	}

	fmt.Println("Sync completed successfully.")
}
