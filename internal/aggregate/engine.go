package aggregate

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/bookkeeper/internal/domain"
)

// ErrNoData signals an empty input collection. Recoverable: callers show a
// "no data" state rather than failing.
var ErrNoData = errors.New("aggregate: no transactions to aggregate")

// now is swapped out by tests that need a deterministic reference instant.
var now = time.Now

// Engine computes derived financial views over a normalized transaction
// collection. All computations are pure and recomputed in full on every call;
// money arithmetic runs on decimals and is emitted as rounded floats.
type Engine struct{}

// NewEngine creates an aggregation engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Compute derives the full report for the given collection. An empty or nil
// collection yields ErrNoData.
func (e *Engine) Compute(txs []domain.Transaction) (*Report, error) {
	if len(txs) == 0 {
		return nil, ErrNoData
	}

	reference := now()
	totals := computeTotals(txs)

	return &Report{
		Totals:      totals,
		Ratios:      compareRatios(txs, totals, reference),
		Budget:      budgetVsActual(totals),
		Trends:      monthlyTrends(txs),
		Breakdown:   expenseBreakdown(txs, totals.TotalExpenses),
		Anomalies:   detectAnomalies(txs, totals.TotalExpenses),
		GeneratedAt: reference,
	}, nil
}

// computeTotals sums income and expense magnitudes and derives the three
// headline ratios with guarded division.
func computeTotals(txs []domain.Transaction) Totals {
	income := decimal.Zero
	expenses := decimal.Zero
	assets := decimal.Zero
	debts := decimal.Zero

	for i := range txs {
		t := &txs[i]
		amount := decimal.NewFromFloat(t.Amount)
		switch t.Type {
		case domain.TypeIncome:
			income = income.Add(amount)
		case domain.TypeExpense:
			expenses = expenses.Add(amount.Abs())
		}
		if t.IsAssetLike() {
			assets = assets.Add(amount)
		}
		if t.IsDebtLike() {
			debts = debts.Add(amount)
		}
	}

	profit := income.Sub(expenses)

	return Totals{
		TotalIncome:   round2(income),
		TotalExpenses: round2(expenses),
		NetProfit:     round2(profit),
		ProfitMargin:  round1(percentOf(profit, income)),
		CurrentRatio:  round2(ratioOf(assets, debts)),
		DebtRatio:     round2(ratioOf(debts, assets)),
	}
}

// percentOf returns n/d*100, or zero when the denominator is zero.
func percentOf(n, d decimal.Decimal) decimal.Decimal {
	if d.IsZero() {
		return decimal.Zero
	}
	return n.Div(d).Mul(decimal.NewFromInt(100))
}

// ratioOf returns n/d, or zero when the denominator is zero.
func ratioOf(n, d decimal.Decimal) decimal.Decimal {
	if d.IsZero() {
		return decimal.Zero
	}
	return n.Div(d)
}

func round1(d decimal.Decimal) float64 {
	return d.Round(1).InexactFloat64()
}

func round2(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

// compareRatios recomputes the ratios over the partition of transactions dated
// up to one calendar month before the reference instant and reports the delta.
// Thresholds: current ratio >= 2 positive, profit-margin change >= 0 positive,
// debt ratio <= 0.5 positive.
func compareRatios(txs []domain.Transaction, current Totals, reference time.Time) []RatioComparison {
	cutoff := reference.AddDate(0, -1, 0)
	var earlier []domain.Transaction
	for i := range txs {
		if !txs[i].Date.After(cutoff) {
			earlier = append(earlier, txs[i])
		}
	}
	previous := computeTotals(earlier)

	marginChange := roundFloat1(current.ProfitMargin - previous.ProfitMargin)

	return []RatioComparison{
		{
			Name:     RatioProfitMargin,
			Value:    current.ProfitMargin,
			Previous: previous.ProfitMargin,
			Change:   marginChange,
			Status:   statusWhen(marginChange >= 0),
		},
		{
			Name:     RatioCurrent,
			Value:    current.CurrentRatio,
			Previous: previous.CurrentRatio,
			Change:   roundFloat2(current.CurrentRatio - previous.CurrentRatio),
			Status:   statusWhen(current.CurrentRatio >= 2),
		},
		{
			Name:     RatioDebt,
			Value:    current.DebtRatio,
			Previous: previous.DebtRatio,
			Change:   roundFloat2(current.DebtRatio - previous.DebtRatio),
			Status:   statusWhen(current.DebtRatio <= 0.5),
		},
	}
}

func statusWhen(positive bool) RatioStatus {
	if positive {
		return StatusPositive
	}
	return StatusNegative
}

func roundFloat1(f float64) float64 {
	return round1(decimal.NewFromFloat(f))
}

func roundFloat2(f float64) float64 {
	return round2(decimal.NewFromFloat(f))
}
