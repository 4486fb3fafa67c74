// Package doclink maintains the persisted association between transactions
// and the source documents they were extracted from, plus the set of
// documents that have completed an extraction pass.
package doclink

import (
	"context"
	"time"
)

// Entry ties a transaction id to its originating document and the raw
// extraction metadata recorded at link time.
type Entry struct {
	TransactionID string                 `json:"transactionId"`
	DocumentName  string                 `json:"documentName"`
	Extraction    map[string]interface{} `json:"extractionData,omitempty"`
	Timestamp     time.Time              `json:"timestamp"`
}

// DocumentLinkRepository is the persisted transactionId -> Entry index.
// Entries are never cleaned up when a transaction is deleted; readers must
// tolerate dangling ids and treat them as absent.
type DocumentLinkRepository interface {
	// Put upserts the entry for the transaction, stamping the current time.
	Put(ctx context.Context, transactionID, documentName string, extraction map[string]interface{}) error

	// Get returns the entry and whether it exists. Missing keys are not an
	// error.
	Get(ctx context.Context, transactionID string) (Entry, bool, error)

	// ListByDocument scans for all transaction ids linked to the document.
	ListByDocument(ctx context.Context, documentName string) ([]string, error)

	// Delete removes the entry if present. Deleting a missing key is a no-op.
	Delete(ctx context.Context, transactionID string) error

	// DocumentFor returns just the linked document name for a transaction.
	DocumentFor(ctx context.Context, transactionID string) (string, bool, error)
}

// ProcessedFilesRepository persists the set of processed document names.
// Reads and writes are whole-set operations.
type ProcessedFilesRepository interface {
	// Load reads the full set.
	Load(ctx context.Context) (map[string]struct{}, error)

	// Save replaces the full set.
	Save(ctx context.Context, files map[string]struct{}) error

	// Mark adds one document name to the set (read-modify-replace).
	Mark(ctx context.Context, documentName string) error
}
