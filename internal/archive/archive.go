// Package archive persists extracted transactions to BigQuery for long-term
// reporting outside the in-memory ledger.
package archive

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/bookkeeper/internal/domain"
)

const transactionsTable = "transactions"

// TransactionRow is the BigQuery row shape for an archived transaction.
type TransactionRow struct {
	TransactionID     string                 `bigquery:"transaction_id"` // REQUIRED
	TransactionType   string                 `bigquery:"transaction_type"`
	Amount            float64                `bigquery:"amount"`
	TransactionDate   civil.Date             `bigquery:"transaction_date"` // DATE
	Description       string                 `bigquery:"description"`
	Category          string                 `bigquery:"category"`
	BalanceSheetClass string                 `bigquery:"balance_sheet_class"`
	PaymentMethod     string                 `bigquery:"payment_method"`
	Reference         string                 `bigquery:"reference"`
	TaxDeductible     bigquery.NullBool      `bigquery:"tax_deductible"`
	SourceFile        string                 `bigquery:"source_file"`
	CreatedTS         bigquery.NullTimestamp `bigquery:"created_ts"` // TIMESTAMP, NULLABLE
}

// Archive wraps a BigQuery client scoped to one project and dataset.
type Archive struct {
	client  *bigquery.Client
	project string
	dataset string
}

func NewArchive(ctx context.Context, project, dataset string) (*Archive, error) {
	client, err := bigquery.NewClient(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("NewArchive: bigquery client: %w", err)
	}
	return &Archive{client: client, project: project, dataset: dataset}, nil
}

// NewArchiveWithClient is used by tests and callers that manage the client.
func NewArchiveWithClient(client *bigquery.Client, project, dataset string) *Archive {
	return &Archive{client: client, project: project, dataset: dataset}
}

func (a *Archive) Close() error {
	return a.client.Close()
}

// InsertTransactions streams a batch of transactions into the archive table.
func (a *Archive) InsertTransactions(ctx context.Context, txs []domain.Transaction) error {
	if len(txs) == 0 {
		return nil
	}

	rows := make([]*TransactionRow, 0, len(txs))
	for _, tx := range txs {
		rows = append(rows, RowFromTransaction(tx))
	}

	table := a.client.DatasetInProject(a.project, a.dataset).Table(transactionsTable)
	if err := table.Inserter().Put(ctx, rows); err != nil {
		return fmt.Errorf("InsertTransactions: inserting rows: %w", err)
	}
	return nil
}

// QueryByDateRange returns archived transactions whose date falls inside the
// inclusive range, ordered by date.
func (a *Archive) QueryByDateRange(ctx context.Context, start, end time.Time) ([]domain.Transaction, error) {
	q := a.client.Query(fmt.Sprintf(`
		SELECT
			transaction_id,
			transaction_type,
			amount,
			transaction_date,
			description,
			category,
			balance_sheet_class,
			payment_method,
			reference,
			tax_deductible,
			source_file,
			created_ts
		FROM `+"`%s.%s.%s`"+`
		WHERE transaction_date >= @start_date
		  AND transaction_date <= @end_date
		ORDER BY transaction_date, created_ts
	`, a.project, a.dataset, transactionsTable))
	q.Parameters = dateRangeParameters(start, end)

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("QueryByDateRange: query read: %w", err)
	}

	var txs []domain.Transaction
	for {
		var row TransactionRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("QueryByDateRange: iterating rows: %w", err)
		}
		txs = append(txs, row.Transaction())
	}
	return txs, nil
}

// dateRangeParameters builds typed DATE parameters. String values would be
// typed STRING and rejected against the DATE column.
func dateRangeParameters(start, end time.Time) []bigquery.QueryParameter {
	return []bigquery.QueryParameter{
		{Name: "start_date", Value: civil.DateOf(start)},
		{Name: "end_date", Value: civil.DateOf(end)},
	}
}

// RowFromTransaction converts a domain transaction into its archive row.
func RowFromTransaction(tx domain.Transaction) *TransactionRow {
	row := &TransactionRow{
		TransactionID:     tx.ID,
		TransactionType:   string(tx.Type),
		Amount:            tx.Amount,
		TransactionDate:   civil.DateOf(tx.Date),
		Description:       tx.Description,
		Category:          tx.Category,
		BalanceSheetClass: string(tx.BalanceSheetClass),
		PaymentMethod:     tx.PaymentMethod,
		Reference:         tx.Reference,
		TaxDeductible:     bigquery.NullBool{Bool: tx.TaxDeductible, Valid: true},
		SourceFile:        tx.SourceFile,
	}
	if !tx.Timestamp.IsZero() {
		row.CreatedTS = bigquery.NullTimestamp{Timestamp: tx.Timestamp, Valid: true}
	}
	return row
}

// Transaction converts an archive row back into the domain shape.
func (r *TransactionRow) Transaction() domain.Transaction {
	tx := domain.Transaction{
		ID:                r.TransactionID,
		Type:              domain.TransactionType(r.TransactionType),
		Amount:            r.Amount,
		Date:              r.TransactionDate.In(time.UTC),
		Description:       r.Description,
		Category:          r.Category,
		BalanceSheetClass: domain.BalanceSheetClass(r.BalanceSheetClass),
		PaymentMethod:     r.PaymentMethod,
		Reference:         r.Reference,
		TaxDeductible:     r.TaxDeductible.Bool,
		SourceFile:        r.SourceFile,
	}
	if r.CreatedTS.Valid {
		tx.Timestamp = r.CreatedTS.Timestamp
	}
	return tx
}
