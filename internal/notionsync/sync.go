package notionsync

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"

	"github.com/dvloznov/bookkeeper/internal/domain"
	"github.com/dvloznov/bookkeeper/internal/logger"
	"github.com/dvloznov/bookkeeper/internal/validate"
)

// pageSize is the Notion query page size.
const pageSize = 100

// SyncValidation mirrors the validation results into the compliance database.
// Pages are keyed by transaction id: stale pages are archived, missing ones
// created, existing ones updated in place. With dryRun set, the plan is
// logged but nothing is written.
func SyncValidation(ctx context.Context, service NotionService, databaseID string, txs []domain.Transaction, results []validate.Result, dryRun bool) error {
	log := logger.FromContext(ctx)

	log.Info().
		Int("results", len(results)).
		Bool("dry_run", dryRun).
		Msg("starting validation sync to Notion")

	txByID := make(map[string]domain.Transaction, len(txs))
	for _, tx := range txs {
		txByID[tx.ID] = tx
	}
	resultByID := make(map[string]validate.Result, len(results))
	for _, r := range results {
		resultByID[r.TransactionID] = r
	}

	pages, err := queryAllPages(ctx, service, databaseID)
	if err != nil {
		return fmt.Errorf("SyncValidation: query existing pages: %w", err)
	}

	pageByTxID := make(map[string]notionapi.Page, len(pages))
	var deleted int
	for _, page := range pages {
		txID := extractTransactionID(page)
		if txID != "" {
			if _, ok := resultByID[txID]; ok {
				pageByTxID[txID] = page
				continue
			}
		}

		// Stale page: no matching result, or no transaction id at all.
		if dryRun {
			log.Info().
				Str("transaction_id", txID).
				Str("page_id", string(page.ID)).
				Msg("[DRY RUN] would archive stale page")
			deleted++
			continue
		}
		if err := service.DeletePage(ctx, string(page.ID)); err != nil {
			log.Warn().
				Err(err).
				Str("page_id", string(page.ID)).
				Msg("failed to archive stale page")
			continue
		}
		deleted++
	}

	var created, updated int
	for _, r := range results {
		props := ValidationToNotionProperties(txByID[r.TransactionID], r)

		if page, ok := pageByTxID[r.TransactionID]; ok {
			if dryRun {
				log.Info().
					Str("transaction_id", r.TransactionID).
					Msg("[DRY RUN] would update page")
				updated++
				continue
			}
			if _, err := service.UpdatePage(ctx, string(page.ID), props); err != nil {
				return fmt.Errorf("SyncValidation: update page for %s: %w", r.TransactionID, err)
			}
			updated++
			continue
		}

		if dryRun {
			log.Info().
				Str("transaction_id", r.TransactionID).
				Msg("[DRY RUN] would create page")
			created++
			continue
		}
		if _, err := service.CreatePage(ctx, databaseID, props); err != nil {
			return fmt.Errorf("SyncValidation: create page for %s: %w", r.TransactionID, err)
		}
		created++
	}

	log.Info().
		Int("created", created).
		Int("updated", updated).
		Int("deleted", deleted).
		Msg("validation sync finished")
	return nil
}

// queryAllPages pages through the whole database.
func queryAllPages(ctx context.Context, service NotionService, databaseID string) ([]notionapi.Page, error) {
	var pages []notionapi.Page
	var cursor notionapi.Cursor

	for {
		req := &notionapi.DatabaseQueryRequest{
			PageSize:    pageSize,
			StartCursor: cursor,
		}
		resp, err := service.QueryDatabase(ctx, databaseID, req)
		if err != nil {
			return nil, err
		}
		pages = append(pages, resp.Results...)

		if !resp.HasMore {
			return pages, nil
		}
		cursor = resp.NextCursor
	}
}
