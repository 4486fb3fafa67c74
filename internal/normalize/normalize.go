package normalize

import (
	"time"

	"github.com/google/uuid"

	"github.com/dvloznov/bookkeeper/internal/domain"
)

// now is swapped out by tests that need deterministic defaults.
var now = time.Now

// NormalizeValue accepts an arbitrary decoded JSON value and returns canonical
// transactions. Nil or non-array input yields an empty slice; callers treat
// that as a recoverable "no data" result, never an error.
func NormalizeValue(v interface{}) []domain.Transaction {
	raw, ok := v.([]interface{})
	if !ok {
		return []domain.Transaction{}
	}

	records := make([]map[string]interface{}, 0, len(raw))
	for _, item := range raw {
		if obj, ok := item.(map[string]interface{}); ok {
			records = append(records, obj)
		} else {
			// Malformed elements still produce a fully-defaulted record so the
			// output length matches the input length.
			records = append(records, map[string]interface{}{})
		}
	}
	return Normalize(records)
}

// Normalize coerces a sequence of loosely-typed records into canonical
// transactions. Every field is defaulted rather than rejected; the function is
// total over its input. No deduplication is performed, and records without an
// id receive a fresh synthetic one.
func Normalize(records []map[string]interface{}) []domain.Transaction {
	out := make([]domain.Transaction, 0, len(records))
	for _, rec := range records {
		out = append(out, normalizeOne(rec))
	}
	return out
}

func normalizeOne(rec map[string]interface{}) domain.Transaction {
	n := now()

	id := stringField(rec, "id", "")
	if id == "" {
		id = uuid.NewString()
	}

	txType := stringField(rec, "transactionType", string(domain.TypeExpense))
	category := stringField(rec, "category", domain.DefaultCategory)

	t := domain.Transaction{
		ID:                id,
		Type:              domain.TransactionType(txType),
		Amount:            floatField(rec, "amount", 0),
		Date:              dateField(rec, "date", n),
		Description:       stringField(rec, "description", domain.DefaultDescription),
		Category:          category,
		BalanceSheetClass: domain.ClassifyCategory(category),
		PaymentMethod:     stringField(rec, "paymentMethod", domain.DefaultPaymentMethod),
		Reference:         stringField(rec, "reference", ""),
		TaxDeductible:     boolField(rec, "taxDeductible"),
		SourceFile:        stringField(rec, "sourceFile", ""),
		Timestamp:         timeField(rec, "timestamp", n),
	}

	if items := lineItemsField(rec, "lineItems"); len(items) > 0 {
		t.LineItems = items
		sum := 0.0
		for _, it := range items {
			sum += it.Amount
		}
		t.Amount = sum
	}

	return t
}
