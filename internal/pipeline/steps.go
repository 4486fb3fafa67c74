package pipeline

import (
	"context"
	"fmt"

	"github.com/dvloznov/bookkeeper/internal/doclink"
	"github.com/dvloznov/bookkeeper/internal/filestore"
	"github.com/dvloznov/bookkeeper/internal/ledger"
	"github.com/dvloznov/bookkeeper/internal/logger"
	"github.com/dvloznov/bookkeeper/internal/normalize"
)

// FetchDocumentStep reassembles the chunked upload into one byte slice.
type FetchDocumentStep struct {
	Files filestore.FileStore
}

func (s *FetchDocumentStep) Execute(ctx context.Context, state *State) error {
	data, err := filestore.Reassemble(ctx, s.Files, state.DocumentName)
	if err != nil {
		return fmt.Errorf("fetch document: %w", err)
	}
	state.Data = data
	return nil
}

// ParseDocumentStep sends the document to the AI parser.
type ParseDocumentStep struct {
	Parser AIParser
}

func (s *ParseDocumentStep) Execute(ctx context.Context, state *State) error {
	records, err := s.Parser.ParseDocument(ctx, state.Data, state.MimeType)
	if err != nil {
		return fmt.Errorf("parse document: %w", err)
	}
	state.RawRecords = records
	return nil
}

// NormalizeStep canonicalizes the raw records into transactions, stamping the
// source document on each.
type NormalizeStep struct{}

func (s *NormalizeStep) Execute(ctx context.Context, state *State) error {
	txs := normalize.Normalize(state.RawRecords)
	for i := range txs {
		txs[i].SourceFile = state.DocumentName
	}
	state.Transactions = txs
	return nil
}

// RecordLinksStep writes a document link for every extracted transaction.
type RecordLinksStep struct {
	Links doclink.DocumentLinkRepository
}

func (s *RecordLinksStep) Execute(ctx context.Context, state *State) error {
	for i, tx := range state.Transactions {
		var extraction map[string]interface{}
		if i < len(state.RawRecords) {
			extraction = state.RawRecords[i]
		}
		if err := s.Links.Put(ctx, tx.ID, state.DocumentName, extraction); err != nil {
			return fmt.Errorf("record links: transaction %s: %w", tx.ID, err)
		}
	}
	return nil
}

// AppendLedgerStep lands the transactions in the in-memory collection.
type AppendLedgerStep struct {
	Ledger *ledger.Store
}

func (s *AppendLedgerStep) Execute(ctx context.Context, state *State) error {
	s.Ledger.Append(state.Transactions...)
	return nil
}

// ArchiveStep streams the transactions to long-term storage. Failures are
// logged and swallowed so a BigQuery outage does not fail the extraction.
type ArchiveStep struct {
	Archive Archiver
}

func (s *ArchiveStep) Execute(ctx context.Context, state *State) error {
	if s.Archive == nil || len(state.Transactions) == 0 {
		return nil
	}
	if err := s.Archive.InsertTransactions(ctx, state.Transactions); err != nil {
		log := logger.FromContext(ctx)
		log.Warn().
			Err(err).
			Str("document", state.DocumentName).
			Int("transactions", len(state.Transactions)).
			Msg("archiving extracted transactions failed")
	}
	return nil
}

// MarkProcessedStep records the document in the processed-files set. Runs
// last so a failed extraction leaves the document retryable.
type MarkProcessedStep struct {
	Processed doclink.ProcessedFilesRepository
}

func (s *MarkProcessedStep) Execute(ctx context.Context, state *State) error {
	if err := s.Processed.Mark(ctx, state.DocumentName); err != nil {
		return fmt.Errorf("mark processed: %w", err)
	}
	return nil
}
