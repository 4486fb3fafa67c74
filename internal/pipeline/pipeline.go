// Package pipeline runs uploaded documents through extraction: reassemble the
// chunked upload, parse it with Gemini, normalize the records, link them back
// to the source document and land them in the ledger and archive.
package pipeline

import (
	"context"
	"fmt"

	"github.com/dvloznov/bookkeeper/internal/doclink"
	"github.com/dvloznov/bookkeeper/internal/domain"
	"github.com/dvloznov/bookkeeper/internal/filestore"
	"github.com/dvloznov/bookkeeper/internal/ledger"
)

// Step is a single stage of the extraction pipeline.
type Step interface {
	Execute(ctx context.Context, state *State) error
}

// State is the shared state threaded through the steps.
type State struct {
	DocumentName string
	MimeType     string
	Data         []byte
	RawRecords   []map[string]interface{}
	Transactions []domain.Transaction
}

// Archiver lands extracted transactions in long-term storage.
type Archiver interface {
	InsertTransactions(ctx context.Context, txs []domain.Transaction) error
}

// Deps are the collaborators the standard pipeline wires together.
type Deps struct {
	Files     filestore.FileStore
	Parser    AIParser
	Links     doclink.DocumentLinkRepository
	Processed doclink.ProcessedFilesRepository
	Ledger    *ledger.Store

	// Archive is optional; archival failures are logged, not fatal.
	Archive Archiver
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []Step
}

func NewPipeline(steps ...Step) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps sequentially, stopping at the first failure.
func (p *Pipeline) Execute(ctx context.Context, state *State) error {
	for i, step := range p.steps {
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d: %w", i+1, err)
		}
	}
	return nil
}

// NewExtractionPipeline builds the standard 7-step document extraction
// pipeline.
func NewExtractionPipeline(deps Deps) *Pipeline {
	return NewPipeline(
		&FetchDocumentStep{Files: deps.Files},
		&ParseDocumentStep{Parser: deps.Parser},
		&NormalizeStep{},
		&RecordLinksStep{Links: deps.Links},
		&AppendLedgerStep{Ledger: deps.Ledger},
		&ArchiveStep{Archive: deps.Archive},
		&MarkProcessedStep{Processed: deps.Processed},
	)
}

// Extract runs the standard pipeline over one uploaded document and returns
// the extracted transactions.
func Extract(ctx context.Context, deps Deps, documentName, mimeType string) ([]domain.Transaction, error) {
	state := &State{DocumentName: documentName, MimeType: mimeType}
	if err := NewExtractionPipeline(deps).Execute(ctx, state); err != nil {
		return nil, fmt.Errorf("Extract: document %s: %w", documentName, err)
	}
	return state.Transactions, nil
}
