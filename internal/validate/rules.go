package validate

import (
	"math"
	"time"

	"github.com/dvloznov/bookkeeper/internal/domain"
)

// RuleID identifies one deterministic check. Summary buckets key off rule ids
// rather than message text.
type RuleID string

const (
	RuleFileProcessed   RuleID = "file_processed"
	RuleDescription     RuleID = "description_present"
	RuleSourceDocument  RuleID = "source_document"
	RuleAmountValid     RuleID = "amount_valid"
	RuleDatePresent     RuleID = "date_present"
	RuleDateNotFuture   RuleID = "date_not_future"
	RuleCategoryPresent RuleID = "category_present"
	RuleTypePresent     RuleID = "type_present"
	RuleSignConvention  RuleID = "sign_convention"
	RuleLargeReference  RuleID = "large_amount_reference"
)

// Bucket is the coarse compliance taxonomy a rule belongs to.
type Bucket string

const (
	BucketMateriality    Bucket = "materiality"
	BucketDocumentation  Bucket = "documentation"
	BucketClassification Bucket = "classification"
	BucketTiming         Bucket = "timing"
)

// ruleBuckets maps each rule onto its summary bucket. Rules without an entry
// count toward the error/warning totals only.
var ruleBuckets = map[RuleID]Bucket{
	RuleAmountValid:     BucketMateriality,
	RuleSignConvention:  BucketMateriality,
	RuleSourceDocument:  BucketDocumentation,
	RuleCategoryPresent: BucketClassification,
	RuleDatePresent:     BucketTiming,
	RuleDateNotFuture:   BucketTiming,
}

// BucketFor returns the compliance bucket for a rule, or "" when the rule
// does not feed a bucket.
func BucketFor(rule RuleID) Bucket {
	return ruleBuckets[rule]
}

// largeAmountThreshold is the magnitude above which a transaction needs an
// external reference number.
const largeAmountThreshold = 10000.0

// ruleContext carries the per-pass lookups a rule may consult.
type ruleContext struct {
	processed map[string]struct{}
	linkedDoc func(transactionID string) (string, bool)
	now       time.Time
}

// rule evaluates one transaction and returns a finding, or ok=true when the
// check passes.
type rule struct {
	id       RuleID
	severity Status
	check    func(t *domain.Transaction, rc *ruleContext) (message string, failed bool)
}

// orderedRules is the fixed rule battery, evaluated in order. Later rules keep
// appending messages after an error; status never downgrades.
var orderedRules = []rule{
	{
		id:       RuleFileProcessed,
		severity: StatusWarning,
		check: func(t *domain.Transaction, rc *ruleContext) (string, bool) {
			source := t.SourceFile
			if source == "" {
				// A document link can still tie the transaction to a file.
				if doc, ok := rc.linkedDoc(t.ID); ok {
					source = doc
				}
			}
			if source == "" {
				return "", false
			}
			if _, ok := rc.processed[source]; !ok {
				return "File not yet processed", true
			}
			return "", false
		},
	},
	{
		id:       RuleDescription,
		severity: StatusError,
		check: func(t *domain.Transaction, rc *ruleContext) (string, bool) {
			if t.Description == "" {
				return "Transaction description incomplete", true
			}
			return "", false
		},
	},
	{
		id:       RuleSourceDocument,
		severity: StatusError,
		check: func(t *domain.Transaction, rc *ruleContext) (string, bool) {
			if t.SourceFile != "" || t.Reference != "" {
				return "", false
			}
			if _, ok := rc.linkedDoc(t.ID); ok {
				return "", false
			}
			return "Source document unavailable", true
		},
	},
	{
		id:       RuleAmountValid,
		severity: StatusError,
		check: func(t *domain.Transaction, rc *ruleContext) (string, bool) {
			if math.IsNaN(t.Amount) || math.IsInf(t.Amount, 0) {
				return "Invalid transaction amount", true
			}
			return "", false
		},
	},
	{
		id:       RuleDatePresent,
		severity: StatusError,
		check: func(t *domain.Transaction, rc *ruleContext) (string, bool) {
			if t.Date.IsZero() {
				return "Transaction date missing", true
			}
			return "", false
		},
	},
	{
		id:       RuleDateNotFuture,
		severity: StatusError,
		check: func(t *domain.Transaction, rc *ruleContext) (string, bool) {
			if !t.Date.IsZero() && t.Date.After(rc.now) {
				return "Future dated transactions not allowed", true
			}
			return "", false
		},
	},
	{
		id:       RuleCategoryPresent,
		severity: StatusWarning,
		check: func(t *domain.Transaction, rc *ruleContext) (string, bool) {
			if t.Category == "" {
				return "Transaction category not specified", true
			}
			return "", false
		},
	},
	{
		id:       RuleTypePresent,
		severity: StatusError,
		check: func(t *domain.Transaction, rc *ruleContext) (string, bool) {
			if t.Type == "" {
				return "Transaction type not specified", true
			}
			return "", false
		},
	},
	{
		// Amounts are stored as non-negative magnitudes; direction is implied
		// by the transaction type, so a negative stored amount is the error.
		id:       RuleSignConvention,
		severity: StatusError,
		check: func(t *domain.Transaction, rc *ruleContext) (string, bool) {
			if t.Amount >= 0 {
				return "", false
			}
			switch t.Type {
			case domain.TypeExpense:
				return "Expense amount must not be negative", true
			case domain.TypeIncome:
				return "Income amount must not be negative", true
			default:
				return "", false
			}
		},
	},
	{
		id:       RuleLargeReference,
		severity: StatusWarning,
		check: func(t *domain.Transaction, rc *ruleContext) (string, bool) {
			if t.Reference == "" && math.Abs(t.Amount) > largeAmountThreshold {
				return "Large transactions require reference number", true
			}
			return "", false
		},
	},
}
