package aggregate

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/bookkeeper/internal/domain"
)

var (
	budgetIncomeFactor  = decimal.RequireFromString("0.9")
	budgetExpenseFactor = decimal.RequireFromString("1.1")
	twelve              = decimal.NewFromInt(12)
)

// budgetVsActual derives a synthetic monthly budget: revenue budgeted 10%
// conservative, expenses with a 10% buffer. Variance is reported in the
// favorable direction for each line.
func budgetVsActual(totals Totals) []BudgetLine {
	monthlyIncome := decimal.NewFromFloat(totals.TotalIncome).Div(twelve)
	monthlyExpenses := decimal.NewFromFloat(totals.TotalExpenses).Div(twelve)

	revenueBudget := monthlyIncome.Mul(budgetIncomeFactor)
	expenseBudget := monthlyExpenses.Mul(budgetExpenseFactor)

	return []BudgetLine{
		{
			Category: "Revenue",
			Budget:   round2(revenueBudget),
			Actual:   round2(monthlyIncome),
			Variance: round2(monthlyIncome.Sub(revenueBudget)),
			Status:   statusWhen(monthlyIncome.GreaterThanOrEqual(revenueBudget)),
		},
		{
			Category: "Expenses",
			Budget:   round2(expenseBudget),
			Actual:   round2(monthlyExpenses),
			Variance: round2(expenseBudget.Sub(monthlyExpenses)),
			Status:   statusWhen(monthlyExpenses.LessThanOrEqual(expenseBudget)),
		},
	}
}

// monthlyTrends groups transactions by calendar month. Buckets are keyed by
// (year, month) so multi-year collections never merge, and are returned in
// chronological order.
func monthlyTrends(txs []domain.Transaction) []MonthlyTrend {
	type key struct {
		year  int
		month int
	}

	income := make(map[key]decimal.Decimal)
	expenses := make(map[key]decimal.Decimal)

	for i := range txs {
		t := &txs[i]
		k := key{year: t.Date.Year(), month: int(t.Date.Month())}
		amount := decimal.NewFromFloat(t.Amount)
		switch t.Type {
		case domain.TypeIncome:
			income[k] = income[k].Add(amount)
		case domain.TypeExpense:
			expenses[k] = expenses[k].Add(amount.Abs())
		default:
			// Non income/expense records still claim their bucket so the
			// month appears in the trend line with zero movement.
			if _, ok := income[k]; !ok {
				income[k] = decimal.Zero
			}
		}
	}

	keys := make(map[key]struct{})
	for k := range income {
		keys[k] = struct{}{}
	}
	for k := range expenses {
		keys[k] = struct{}{}
	}

	trends := make([]MonthlyTrend, 0, len(keys))
	for k := range keys {
		in := income[k]
		out := expenses[k]
		month := time.Month(k.month)
		trends = append(trends, MonthlyTrend{
			Year:     k.year,
			Month:    k.month,
			Label:    fmt.Sprintf("%s %d", month.String(), k.year),
			Income:   round2(in),
			Expenses: round2(out),
			Profit:   round2(in.Sub(out)),
		})
	}

	sort.Slice(trends, func(i, j int) bool {
		if trends[i].Year != trends[j].Year {
			return trends[i].Year < trends[j].Year
		}
		return trends[i].Month < trends[j].Month
	})

	return trends
}

// expenseBreakdown groups expense records by category, sums magnitudes and
// computes each group's share of total expenses, sorted descending by amount.
func expenseBreakdown(txs []domain.Transaction, totalExpenses float64) []CategoryShare {
	total := decimal.NewFromFloat(totalExpenses)
	byCategory := make(map[string]decimal.Decimal)

	for i := range txs {
		t := &txs[i]
		if t.Type != domain.TypeExpense {
			continue
		}
		category := t.Category
		if category == "" {
			category = domain.DefaultCategory
		}
		byCategory[category] = byCategory[category].Add(decimal.NewFromFloat(t.Amount).Abs())
	}

	shares := make([]CategoryShare, 0, len(byCategory))
	for category, amount := range byCategory {
		shares = append(shares, CategoryShare{
			Category: category,
			Amount:   round2(amount),
			Percent:  round1(percentOf(amount, total)),
		})
	}

	sort.Slice(shares, func(i, j int) bool {
		if shares[i].Amount != shares[j].Amount {
			return shares[i].Amount > shares[j].Amount
		}
		return shares[i].Category < shares[j].Category
	})

	return shares
}

// detectAnomalies flags transactions whose magnitude exceeds twice the mean,
// where the mean is total expenses over the full record count.
func detectAnomalies(txs []domain.Transaction, totalExpenses float64) []Anomaly {
	if len(txs) == 0 {
		return nil
	}

	average := decimal.NewFromFloat(totalExpenses).Div(decimal.NewFromInt(int64(len(txs))))
	threshold := average.Mul(decimal.NewFromInt(2))

	var anomalies []Anomaly
	for i := range txs {
		t := &txs[i]
		magnitude := decimal.NewFromFloat(t.Amount).Abs()
		if magnitude.GreaterThan(threshold) {
			anomalies = append(anomalies, Anomaly{
				TransactionID: t.ID,
				Date:          t.Date,
				Amount:        t.Amount,
				Description:   t.Description,
				Type:          string(t.Type),
				Category:      t.Category,
				Reason: fmt.Sprintf("Amount %s is more than twice the average transaction size of %s",
					magnitude.StringFixed(2), average.StringFixed(2)),
			})
		}
	}
	return anomalies
}
