package validate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dvloznov/bookkeeper/internal/domain"
)

// ErrInvalidInput signals that no transaction collection was supplied at all.
// Malformed individual transactions never produce this; they accumulate
// findings instead.
var ErrInvalidInput = errors.New("validate: nil transaction collection")

// now is swapped out by tests pinning the future-date check.
var now = time.Now

// Status is the terminal compliance status of one transaction.
type Status string

const (
	StatusValid   Status = "valid"
	StatusWarning Status = "warning"
	StatusError   Status = "error"
)

// escalate raises the status, never downgrades it.
func escalate(current, next Status) Status {
	if current == StatusError || next == StatusError {
		return StatusError
	}
	if current == StatusWarning || next == StatusWarning {
		return StatusWarning
	}
	return StatusValid
}

// Finding is one failed rule on one transaction.
type Finding struct {
	Rule     RuleID `json:"rule"`
	Severity Status `json:"severity"`
	Message  string `json:"message"`
}

// Result is the validation outcome for a single transaction.
type Result struct {
	TransactionID string    `json:"transactionId"`
	Status        Status    `json:"status"`
	Messages      []string  `json:"messages"`
	Findings      []Finding `json:"findings"`
}

// Summary aggregates validation outcomes across a collection. Buckets count
// results that tripped at least one rule in the bucket.
type Summary struct {
	TotalChecked  int            `json:"totalChecked"`
	TotalValid    int            `json:"totalValid"`
	TotalErrors   int            `json:"totalErrors"`
	TotalWarnings int            `json:"totalWarnings"`
	Buckets       map[Bucket]int `json:"buckets"`
}

// ProcessedFiles reads the set of document names that have completed an
// extraction pass. The read is all-or-nothing.
type ProcessedFiles interface {
	Load(ctx context.Context) (map[string]struct{}, error)
}

// DocumentLinks looks up the source document recorded for a transaction id.
// Entries for deleted transactions may dangle; callers treat them as absent.
type DocumentLinks interface {
	DocumentFor(ctx context.Context, transactionID string) (string, bool, error)
}

// Engine applies the fixed rule battery to a transaction collection.
type Engine struct {
	processed ProcessedFiles
	links     DocumentLinks
}

// NewEngine creates a validation engine with the injected repositories.
func NewEngine(processed ProcessedFiles, links DocumentLinks) *Engine {
	return &Engine{processed: processed, links: links}
}

// Validate produces one result per transaction plus the compliance summary.
// A nil collection is the hard failure; an empty one yields empty results.
func (e *Engine) Validate(ctx context.Context, txs []domain.Transaction) ([]Result, Summary, error) {
	if txs == nil {
		return nil, Summary{}, ErrInvalidInput
	}

	processed, err := e.loadProcessed(ctx)
	if err != nil {
		return nil, Summary{}, fmt.Errorf("Validate: loading processed files: %w", err)
	}

	rc := &ruleContext{
		processed: processed,
		linkedDoc: e.documentLookup(ctx),
		now:       now(),
	}

	results := make([]Result, 0, len(txs))
	summary := Summary{Buckets: make(map[Bucket]int)}

	for i := range txs {
		result := evaluate(&txs[i], rc)
		results = append(results, result)

		switch result.Status {
		case StatusError:
			summary.TotalErrors++
		case StatusWarning:
			summary.TotalWarnings++
		default:
			summary.TotalValid++
		}

		for _, bucket := range resultBuckets(result) {
			summary.Buckets[bucket]++
		}
	}
	summary.TotalChecked = len(results)

	return results, summary, nil
}

// evaluate runs the ordered rule list over one transaction. Every failing
// rule appends a message; errors take precedence over warnings.
func evaluate(t *domain.Transaction, rc *ruleContext) Result {
	result := Result{
		TransactionID: t.ID,
		Status:        StatusValid,
	}

	for _, r := range orderedRules {
		message, failed := r.check(t, rc)
		if !failed {
			continue
		}
		result.Status = escalate(result.Status, r.severity)
		result.Messages = append(result.Messages, message)
		result.Findings = append(result.Findings, Finding{
			Rule:     r.id,
			Severity: r.severity,
			Message:  message,
		})
	}

	return result
}

// resultBuckets returns the distinct buckets a result's findings fall into.
func resultBuckets(result Result) []Bucket {
	seen := make(map[Bucket]struct{}, 2)
	var buckets []Bucket
	for _, f := range result.Findings {
		bucket, ok := ruleBuckets[f.Rule]
		if !ok {
			continue
		}
		if _, dup := seen[bucket]; dup {
			continue
		}
		seen[bucket] = struct{}{}
		buckets = append(buckets, bucket)
	}
	return buckets
}

func (e *Engine) loadProcessed(ctx context.Context) (map[string]struct{}, error) {
	if e.processed == nil {
		return map[string]struct{}{}, nil
	}
	return e.processed.Load(ctx)
}

// documentLookup adapts the link repository into the per-pass lookup used by
// the rules. Lookup errors are treated as "no link recorded".
func (e *Engine) documentLookup(ctx context.Context) func(string) (string, bool) {
	if e.links == nil {
		return func(string) (string, bool) { return "", false }
	}
	return func(transactionID string) (string, bool) {
		doc, found, err := e.links.DocumentFor(ctx, transactionID)
		if err != nil || !found {
			return "", false
		}
		return doc, true
	}
}
