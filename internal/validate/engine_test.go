package validate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dvloznov/bookkeeper/internal/domain"
)

// mockProcessedFiles is an in-test ProcessedFiles implementation.
type mockProcessedFiles struct {
	files map[string]struct{}
	err   error
}

func (m *mockProcessedFiles) Load(ctx context.Context) (map[string]struct{}, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.files == nil {
		return map[string]struct{}{}, nil
	}
	return m.files, nil
}

// mockDocumentLinks is an in-test DocumentLinks implementation.
type mockDocumentLinks struct {
	byTransaction map[string]string
}

func (m *mockDocumentLinks) DocumentFor(ctx context.Context, transactionID string) (string, bool, error) {
	doc, ok := m.byTransaction[transactionID]
	return doc, ok, nil
}

func fixedNow(t *testing.T, instant time.Time) {
	t.Helper()
	prev := now
	now = func() time.Time { return instant }
	t.Cleanup(func() { now = prev })
}

// validTx returns a transaction passing every rule.
func validTx(id string) domain.Transaction {
	return domain.Transaction{
		ID:          id,
		Type:        domain.TypeExpense,
		Amount:      120,
		Date:        time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC),
		Description: "Office chair",
		Category:    "Office",
		Reference:   "PO-17",
	}
}

func newTestEngine(processed *mockProcessedFiles, links *mockDocumentLinks) *Engine {
	if processed == nil {
		processed = &mockProcessedFiles{}
	}
	if links == nil {
		links = &mockDocumentLinks{}
	}
	return NewEngine(processed, links)
}

func TestValidateNilCollection(t *testing.T) {
	engine := newTestEngine(nil, nil)
	if _, _, err := engine.Validate(context.Background(), nil); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Validate(nil) error = %v, want ErrInvalidInput", err)
	}
}

func TestValidateEmptyCollection(t *testing.T) {
	engine := newTestEngine(nil, nil)
	results, summary, err := engine.Validate(context.Background(), []domain.Transaction{})
	if err != nil {
		t.Fatalf("Validate(empty): %v", err)
	}
	if len(results) != 0 || summary.TotalChecked != 0 {
		t.Errorf("expected empty results, got %d results, summary %+v", len(results), summary)
	}
}

func TestValidateCleanTransaction(t *testing.T) {
	fixedNow(t, time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC))
	engine := newTestEngine(nil, nil)

	results, _, err := engine.Validate(context.Background(), []domain.Transaction{validTx("tx1")})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if results[0].Status != StatusValid {
		t.Errorf("status = %q with messages %v, want valid", results[0].Status, results[0].Messages)
	}
}

func TestValidateErrorPrecedence(t *testing.T) {
	fixedNow(t, time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC))
	engine := newTestEngine(nil, nil)

	tx := validTx("tx1")
	tx.Description = "" // error rule
	tx.Category = ""    // warning rule

	results, _, err := engine.Validate(context.Background(), []domain.Transaction{tx})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}

	r := results[0]
	if r.Status != StatusError {
		t.Errorf("status = %q, want error (warnings must not downgrade)", r.Status)
	}
	wantMessages := map[string]bool{
		"Transaction description incomplete": false,
		"Transaction category not specified": false,
	}
	for _, m := range r.Messages {
		if _, ok := wantMessages[m]; ok {
			wantMessages[m] = true
		}
	}
	for m, seen := range wantMessages {
		if !seen {
			t.Errorf("missing message %q in %v", m, r.Messages)
		}
	}
}

func TestValidateFutureDate(t *testing.T) {
	reference := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
	fixedNow(t, reference)
	engine := newTestEngine(nil, nil)

	tx := validTx("tx1")
	tx.Date = reference.AddDate(0, 0, 1)

	results, _, err := engine.Validate(context.Background(), []domain.Transaction{tx})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if results[0].Status != StatusError {
		t.Errorf("status = %q, want error for future date", results[0].Status)
	}

	var found bool
	for _, m := range results[0].Messages {
		if m == "Future dated transactions not allowed" {
			found = true
		}
	}
	if !found {
		t.Errorf("future-date message missing: %v", results[0].Messages)
	}
}

func TestValidateUnprocessedSourceFile(t *testing.T) {
	fixedNow(t, time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC))

	processed := &mockProcessedFiles{files: map[string]struct{}{"done.pdf": {}}}
	engine := newTestEngine(processed, nil)

	pending := validTx("tx1")
	pending.SourceFile = "pending.pdf"
	done := validTx("tx2")
	done.SourceFile = "done.pdf"

	results, _, err := engine.Validate(context.Background(), []domain.Transaction{pending, done})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if results[0].Status != StatusWarning {
		t.Errorf("unprocessed file: status = %q, want warning", results[0].Status)
	}
	if results[1].Status != StatusValid {
		t.Errorf("processed file: status = %q, want valid", results[1].Status)
	}
}

func TestValidateSignConvention(t *testing.T) {
	fixedNow(t, time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC))
	engine := newTestEngine(nil, nil)

	expense := validTx("tx1")
	expense.Amount = -120

	income := validTx("tx2")
	income.Type = domain.TypeIncome
	income.Amount = -500

	transfer := validTx("tx3")
	transfer.Type = domain.TypeTransfer
	transfer.Amount = -50

	results, _, err := engine.Validate(context.Background(), []domain.Transaction{expense, income, transfer})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if results[0].Status != StatusError {
		t.Errorf("negative expense: status = %q, want error", results[0].Status)
	}
	if results[1].Status != StatusError {
		t.Errorf("negative income: status = %q, want error", results[1].Status)
	}
	if results[2].Status != StatusValid {
		t.Errorf("negative transfer: status = %q, want valid (rule only binds income/expense)", results[2].Status)
	}
}

func TestValidateLargeAmountReference(t *testing.T) {
	fixedNow(t, time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC))
	engine := newTestEngine(nil, nil)

	large := validTx("tx1")
	large.Amount = 15000
	large.Reference = ""
	large.SourceFile = "big.pdf" // keeps the source-document rule satisfied

	processed := &mockProcessedFiles{files: map[string]struct{}{"big.pdf": {}}}
	engine = newTestEngine(processed, nil)

	results, _, err := engine.Validate(context.Background(), []domain.Transaction{large})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if results[0].Status != StatusWarning {
		t.Errorf("status = %q with %v, want warning", results[0].Status, results[0].Messages)
	}
	want := "Large transactions require reference number"
	if len(results[0].Messages) != 1 || results[0].Messages[0] != want {
		t.Errorf("messages = %v, want [%q]", results[0].Messages, want)
	}
}

func TestValidateDocumentLinkBacksSource(t *testing.T) {
	fixedNow(t, time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC))

	links := &mockDocumentLinks{byTransaction: map[string]string{"tx1": "receipt.pdf"}}
	processed := &mockProcessedFiles{files: map[string]struct{}{"receipt.pdf": {}}}
	engine := newTestEngine(processed, links)

	// No source file and no reference, but a recorded document link.
	tx := validTx("tx1")
	tx.Reference = ""

	results, _, err := engine.Validate(context.Background(), []domain.Transaction{tx})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if results[0].Status != StatusValid {
		t.Errorf("status = %q with %v, want valid via document link", results[0].Status, results[0].Messages)
	}
}

func TestComplianceSummaryCounts(t *testing.T) {
	fixedNow(t, time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC))
	engine := newTestEngine(nil, nil)

	errA := validTx("e1")
	errA.Description = ""
	errB := validTx("e2")
	errB.Date = time.Date(2030, time.January, 1, 0, 0, 0, 0, time.UTC)
	warn := validTx("w1")
	warn.Category = ""

	batch := []domain.Transaction{errA, errB, warn, validTx("v1"), validTx("v2")}

	_, summary, err := engine.Validate(context.Background(), batch)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if summary.TotalChecked != 5 {
		t.Errorf("TotalChecked = %d, want 5", summary.TotalChecked)
	}
	if summary.TotalErrors != 2 {
		t.Errorf("TotalErrors = %d, want 2", summary.TotalErrors)
	}
	if summary.TotalWarnings != 1 {
		t.Errorf("TotalWarnings = %d, want 1", summary.TotalWarnings)
	}
	if summary.TotalValid != 2 {
		t.Errorf("TotalValid = %d, want 2", summary.TotalValid)
	}

	if summary.Buckets[BucketTiming] != 1 {
		t.Errorf("timing bucket = %d, want 1 (future-dated record)", summary.Buckets[BucketTiming])
	}
	if summary.Buckets[BucketClassification] != 1 {
		t.Errorf("classification bucket = %d, want 1 (missing category)", summary.Buckets[BucketClassification])
	}
}
