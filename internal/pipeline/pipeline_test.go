package pipeline_test

import (
	"context"
	"errors"
	"testing"

	"github.com/dvloznov/bookkeeper/internal/doclink"
	"github.com/dvloznov/bookkeeper/internal/domain"
	"github.com/dvloznov/bookkeeper/internal/filestore"
	"github.com/dvloznov/bookkeeper/internal/ledger"
	"github.com/dvloznov/bookkeeper/internal/pipeline"
)

// MockAIParser lets tests script the model response.
type MockAIParser struct {
	ParseDocumentFunc func(ctx context.Context, data []byte, mimeType string) ([]map[string]interface{}, error)
}

func (m *MockAIParser) ParseDocument(ctx context.Context, data []byte, mimeType string) ([]map[string]interface{}, error) {
	return m.ParseDocumentFunc(ctx, data, mimeType)
}

// MockArchiver records inserts and optionally fails them.
type MockArchiver struct {
	inserted []domain.Transaction
	err      error
}

func (m *MockArchiver) InsertTransactions(ctx context.Context, txs []domain.Transaction) error {
	if m.err != nil {
		return m.err
	}
	m.inserted = append(m.inserted, txs...)
	return nil
}

func testDeps(parser pipeline.AIParser, archive pipeline.Archiver) (pipeline.Deps, *ledger.Store, *doclink.MemoryLinkIndex, *doclink.MemoryProcessedFiles, *filestore.Memory) {
	files := filestore.NewMemory()
	links := doclink.NewMemoryLinkIndex()
	processed := doclink.NewMemoryProcessedFiles()
	store := ledger.NewStore()
	deps := pipeline.Deps{
		Files:     files,
		Parser:    parser,
		Links:     links,
		Processed: processed,
		Ledger:    store,
		Archive:   archive,
	}
	return deps, store, links, processed, files
}

func uploadDocument(t *testing.T, files *filestore.Memory, name string, data []byte) {
	t.Helper()
	if err := files.UploadChunk(context.Background(), name, data, 0, "application/pdf"); err != nil {
		t.Fatalf("upload: %v", err)
	}
}

func TestExtractHappyPath(t *testing.T) {
	parser := &MockAIParser{
		ParseDocumentFunc: func(ctx context.Context, data []byte, mimeType string) ([]map[string]interface{}, error) {
			return []map[string]interface{}{
				{
					"transactionType": "expense",
					"date":            "2024-03-01",
					"description":     "Printer paper",
					"amount":          24.99,
					"category":        "Office Supplies",
				},
				{
					"transactionType": "income",
					"date":            "2024-03-02",
					"description":     "Invoice 101 payment",
					"amount":          1500.0,
					"category":        "Sales",
				},
			}, nil
		},
	}
	archive := &MockArchiver{}
	deps, store, links, processed, files := testDeps(parser, archive)
	uploadDocument(t, files, "march.pdf", []byte("pdf data"))

	txs, err := pipeline.Extract(context.Background(), deps, "march.pdf", "application/pdf")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("extracted %d transactions, want 2", len(txs))
	}

	for _, tx := range txs {
		if tx.SourceFile != "march.pdf" {
			t.Errorf("transaction %s source = %q", tx.ID, tx.SourceFile)
		}
		if doc, ok, _ := links.DocumentFor(context.Background(), tx.ID); !ok || doc != "march.pdf" {
			t.Errorf("transaction %s missing document link", tx.ID)
		}
	}

	if store.Len() != 2 {
		t.Errorf("ledger has %d transactions, want 2", store.Len())
	}
	if len(archive.inserted) != 2 {
		t.Errorf("archive received %d transactions, want 2", len(archive.inserted))
	}

	set, err := processed.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, ok := set["march.pdf"]; !ok {
		t.Error("document should be marked processed")
	}
}

func TestExtractParserFailureLeavesDocumentRetryable(t *testing.T) {
	parser := &MockAIParser{
		ParseDocumentFunc: func(ctx context.Context, data []byte, mimeType string) ([]map[string]interface{}, error) {
			return nil, errors.New("model unavailable")
		},
	}
	deps, store, _, processed, files := testDeps(parser, nil)
	uploadDocument(t, files, "bad.pdf", []byte("pdf data"))

	if _, err := pipeline.Extract(context.Background(), deps, "bad.pdf", ""); err == nil {
		t.Fatal("Extract should fail when the parser fails")
	}

	if store.Len() != 0 {
		t.Error("failed extraction must not touch the ledger")
	}
	set, _ := processed.Load(context.Background())
	if _, ok := set["bad.pdf"]; ok {
		t.Error("failed extraction must not mark the document processed")
	}
}

func TestExtractMissingDocument(t *testing.T) {
	parser := &MockAIParser{
		ParseDocumentFunc: func(ctx context.Context, data []byte, mimeType string) ([]map[string]interface{}, error) {
			t.Error("parser should not run when the document is missing")
			return nil, nil
		},
	}
	deps, _, _, _, _ := testDeps(parser, nil)

	if _, err := pipeline.Extract(context.Background(), deps, "ghost.pdf", ""); err == nil {
		t.Fatal("Extract should fail for a missing document")
	}
}

func TestExtractArchiveFailureIsNotFatal(t *testing.T) {
	parser := &MockAIParser{
		ParseDocumentFunc: func(ctx context.Context, data []byte, mimeType string) ([]map[string]interface{}, error) {
			return []map[string]interface{}{
				{"transactionType": "expense", "amount": 10.0, "description": "Stamps"},
			}, nil
		},
	}
	archive := &MockArchiver{err: errors.New("bigquery outage")}
	deps, store, _, processed, files := testDeps(parser, archive)
	uploadDocument(t, files, "stamps.pdf", []byte("pdf data"))

	txs, err := pipeline.Extract(context.Background(), deps, "stamps.pdf", "")
	if err != nil {
		t.Fatalf("archive failure should not fail the extraction: %v", err)
	}
	if len(txs) != 1 || store.Len() != 1 {
		t.Errorf("extraction should still land in the ledger")
	}
	set, _ := processed.Load(context.Background())
	if _, ok := set["stamps.pdf"]; !ok {
		t.Error("document should still be marked processed")
	}
}

func TestExtractNormalizesDefaults(t *testing.T) {
	parser := &MockAIParser{
		ParseDocumentFunc: func(ctx context.Context, data []byte, mimeType string) ([]map[string]interface{}, error) {
			return []map[string]interface{}{{}}, nil
		},
	}
	deps, _, _, _, files := testDeps(parser, nil)
	uploadDocument(t, files, "sparse.pdf", []byte("pdf data"))

	txs, err := pipeline.Extract(context.Background(), deps, "sparse.pdf", "")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(txs) != 1 {
		t.Fatalf("got %d transactions, want 1", len(txs))
	}
	tx := txs[0]
	if tx.ID == "" || tx.Type != domain.TypeExpense || tx.Description != domain.DefaultDescription {
		t.Errorf("defaults not applied: %+v", tx)
	}
}
