package domain

import (
	"strings"
	"time"
)

// TransactionType classifies the direction or balance-sheet role of a record.
type TransactionType string

const (
	TypeIncome    TransactionType = "income"
	TypeExpense   TransactionType = "expense"
	TypeTransfer  TransactionType = "transfer"
	TypeAsset     TransactionType = "asset"
	TypeLiability TransactionType = "liability"
	TypeEquity    TransactionType = "equity"
)

// BalanceSheetClass is the balance-sheet role carried by a category label.
// Ratio calculations partition transactions on this class rather than on the
// raw category text.
type BalanceSheetClass string

const (
	ClassAsset     BalanceSheetClass = "asset"
	ClassLiability BalanceSheetClass = "liability"
	ClassDebt      BalanceSheetClass = "debt"
	ClassNone      BalanceSheetClass = "none"
)

// Default values applied by the normalizer when an input field is absent.
const (
	DefaultDescription   = "No description provided"
	DefaultCategory      = "Uncategorized"
	DefaultPaymentMethod = "Unknown"
)

// LineItem is one sub-record of a rollup transaction. When a transaction
// carries line items, its amount is the sum of the line item amounts.
type LineItem struct {
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Category    string  `json:"category"`
}

// Transaction is one canonical financial event record. Amounts are stored as
// non-negative magnitudes; direction is implied by Type. Date is the business
// transaction date, Timestamp the creation instant; the two are defaulted
// independently and need not agree.
type Transaction struct {
	ID                string            `json:"id"`
	Type              TransactionType   `json:"transactionType"`
	Amount            float64           `json:"amount"`
	Date              time.Time         `json:"date"`
	Description       string            `json:"description"`
	Category          string            `json:"category"`
	BalanceSheetClass BalanceSheetClass `json:"balanceSheetClass"`
	PaymentMethod     string            `json:"paymentMethod"`
	Reference         string            `json:"reference"`
	TaxDeductible     bool              `json:"taxDeductible"`
	SourceFile        string            `json:"sourceFile,omitempty"`
	Timestamp         time.Time         `json:"timestamp"`
	LineItems         []LineItem        `json:"lineItems,omitempty"`
}

// ClassifyCategory maps a free-text category label onto its balance-sheet
// class. The label keeps its original text; only the class is derived.
func ClassifyCategory(category string) BalanceSheetClass {
	switch strings.ToLower(strings.TrimSpace(category)) {
	case "asset":
		return ClassAsset
	case "liability":
		return ClassLiability
	case "debt":
		return ClassDebt
	default:
		return ClassNone
	}
}

// IsDebtLike reports whether the transaction counts toward current
// liabilities in ratio calculations.
func (t *Transaction) IsDebtLike() bool {
	return t.BalanceSheetClass == ClassLiability || t.BalanceSheetClass == ClassDebt
}

// IsAssetLike reports whether the transaction counts toward current assets in
// ratio calculations.
func (t *Transaction) IsAssetLike() bool {
	return t.Type == TypeIncome || t.BalanceSheetClass == ClassAsset
}
