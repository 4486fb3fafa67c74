package normalize

import (
	"math"
	"testing"
	"time"

	"github.com/dvloznov/bookkeeper/internal/domain"
)

func fixedNow(t *testing.T) time.Time {
	t.Helper()
	fixed := time.Date(2024, time.March, 15, 10, 30, 0, 0, time.UTC)
	prev := now
	now = func() time.Time { return fixed }
	t.Cleanup(func() { now = prev })
	return fixed
}

func TestNormalizeValueNonArray(t *testing.T) {
	tests := []struct {
		name  string
		input interface{}
	}{
		{"nil", nil},
		{"string", "not a list"},
		{"object", map[string]interface{}{"amount": 5}},
		{"number", 42.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeValue(tt.input)
			if got == nil {
				t.Fatal("expected non-nil empty slice")
			}
			if len(got) != 0 {
				t.Errorf("expected empty result, got %d records", len(got))
			}
		})
	}
}

func TestNormalizeDefaults(t *testing.T) {
	fixed := fixedNow(t)

	out := Normalize([]map[string]interface{}{{}})
	if len(out) != 1 {
		t.Fatalf("expected 1 record, got %d", len(out))
	}

	tx := out[0]
	if tx.ID == "" {
		t.Error("expected synthetic id")
	}
	if tx.Type != domain.TypeExpense {
		t.Errorf("Type = %q, want expense", tx.Type)
	}
	if tx.Amount != 0 {
		t.Errorf("Amount = %v, want 0", tx.Amount)
	}
	wantDate := time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)
	if !tx.Date.Equal(wantDate) {
		t.Errorf("Date = %v, want %v", tx.Date, wantDate)
	}
	if tx.Description != domain.DefaultDescription {
		t.Errorf("Description = %q", tx.Description)
	}
	if tx.Category != domain.DefaultCategory {
		t.Errorf("Category = %q", tx.Category)
	}
	if tx.BalanceSheetClass != domain.ClassNone {
		t.Errorf("BalanceSheetClass = %q, want none", tx.BalanceSheetClass)
	}
	if tx.PaymentMethod != domain.DefaultPaymentMethod {
		t.Errorf("PaymentMethod = %q", tx.PaymentMethod)
	}
	if tx.Reference != "" || tx.TaxDeductible || tx.SourceFile != "" {
		t.Error("expected empty reference, taxDeductible=false and no source file")
	}
	if !tx.Timestamp.Equal(fixed) {
		t.Errorf("Timestamp = %v, want %v", tx.Timestamp, fixed)
	}
}

func TestNormalizeAmountParsing(t *testing.T) {
	tests := []struct {
		name  string
		value interface{}
		want  float64
	}{
		{"float", 12.5, 12.5},
		{"negative preserved", -30.0, -30},
		{"numeric string", "99.95", 99.95},
		{"garbage string", "a lot", 0},
		{"nil", nil, 0},
		{"bool", true, 0},
		{"nan", math.NaN(), 0},
		{"inf", math.Inf(1), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Normalize([]map[string]interface{}{{"amount": tt.value}})
			if got := out[0].Amount; got != tt.want {
				t.Errorf("Amount = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNormalizePreservesExplicitFields(t *testing.T) {
	out := Normalize([]map[string]interface{}{{
		"id":              "tx-1",
		"transactionType": "income",
		"amount":          250.0,
		"date":            "2023-11-02",
		"description":     "Consulting fee",
		"category":        "Services",
		"paymentMethod":   "transfer",
		"reference":       "INV-77",
		"taxDeductible":   true,
		"sourceFile":      "nov-invoices.pdf",
	}})

	tx := out[0]
	if tx.ID != "tx-1" {
		t.Errorf("ID = %q", tx.ID)
	}
	if tx.Type != domain.TypeIncome {
		t.Errorf("Type = %q", tx.Type)
	}
	if tx.Amount != 250 {
		t.Errorf("Amount = %v", tx.Amount)
	}
	if tx.Date.Format("2006-01-02") != "2023-11-02" {
		t.Errorf("Date = %v", tx.Date)
	}
	if tx.Reference != "INV-77" || !tx.TaxDeductible || tx.SourceFile != "nov-invoices.pdf" {
		t.Error("explicit fields not preserved")
	}
}

func TestNormalizeBalanceSheetClass(t *testing.T) {
	tests := []struct {
		category string
		want     domain.BalanceSheetClass
	}{
		{"asset", domain.ClassAsset},
		{"Liability", domain.ClassLiability},
		{"DEBT", domain.ClassDebt},
		{"Office Supplies", domain.ClassNone},
	}

	for _, tt := range tests {
		t.Run(tt.category, func(t *testing.T) {
			out := Normalize([]map[string]interface{}{{"category": tt.category}})
			if got := out[0].BalanceSheetClass; got != tt.want {
				t.Errorf("class = %q, want %q", got, tt.want)
			}
			if out[0].Category != tt.category {
				t.Errorf("category label changed: %q", out[0].Category)
			}
		})
	}
}

func TestNormalizeLineItemRollup(t *testing.T) {
	out := Normalize([]map[string]interface{}{{
		"amount": 1.0, // overridden by the rollup
		"lineItems": []interface{}{
			map[string]interface{}{"description": "Paper", "amount": 12.5, "category": "Office"},
			map[string]interface{}{"description": "Toner", "amount": 37.5, "category": "Office"},
		},
	}})

	tx := out[0]
	if len(tx.LineItems) != 2 {
		t.Fatalf("expected 2 line items, got %d", len(tx.LineItems))
	}
	if tx.Amount != 50 {
		t.Errorf("Amount = %v, want sum of line items 50", tx.Amount)
	}
}

func TestNormalizeSyntheticIDsUnique(t *testing.T) {
	out := Normalize([]map[string]interface{}{{}, {}, {}, {}})
	seen := make(map[string]bool)
	for _, tx := range out {
		if seen[tx.ID] {
			t.Fatalf("duplicate synthetic id %q", tx.ID)
		}
		seen[tx.ID] = true
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	first := Normalize([]map[string]interface{}{{
		"id":              "stable-1",
		"transactionType": "income",
		"amount":          600.0,
		"date":            "2024-01-10",
		"description":     "Retainer",
		"category":        "Services",
		"paymentMethod":   "transfer",
		"reference":       "R-1",
		"taxDeductible":   false,
		"timestamp":       "2024-01-10T08:00:00Z",
	}})[0]

	// Round-trip the normalized record through the loose representation.
	again := Normalize([]map[string]interface{}{{
		"id":              first.ID,
		"transactionType": string(first.Type),
		"amount":          first.Amount,
		"date":            first.Date.Format("2006-01-02"),
		"description":     first.Description,
		"category":        first.Category,
		"paymentMethod":   first.PaymentMethod,
		"reference":       first.Reference,
		"taxDeductible":   first.TaxDeductible,
		"timestamp":       first.Timestamp.Format(time.RFC3339),
	}})[0]

	if again.ID != first.ID || again.Amount != first.Amount ||
		!again.Date.Equal(first.Date) || again.Description != first.Description ||
		again.Category != first.Category || !again.Timestamp.Equal(first.Timestamp) {
		t.Errorf("re-normalization changed values:\nfirst: %+v\nagain: %+v", first, again)
	}
}
