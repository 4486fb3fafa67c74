package aggregate

import "time"

// RatioStatus grades a financial ratio against its fixed threshold.
type RatioStatus string

const (
	StatusPositive RatioStatus = "positive"
	StatusNegative RatioStatus = "negative"
)

// Ratio names used in the period-over-period comparison.
const (
	RatioProfitMargin = "profitMargin"
	RatioCurrent      = "currentRatio"
	RatioDebt         = "debtRatio"
)

// Totals are the headline sums over a transaction collection. Income is the
// signed sum of income amounts; expenses are summed as magnitudes.
type Totals struct {
	TotalIncome   float64 `json:"totalIncome"`
	TotalExpenses float64 `json:"totalExpenses"`
	NetProfit     float64 `json:"netProfit"`
	ProfitMargin  float64 `json:"profitMargin"`
	CurrentRatio  float64 `json:"currentRatio"`
	DebtRatio     float64 `json:"debtRatio"`
}

// RatioComparison reports one ratio now, its value over the partition ending a
// calendar month ago, and the delta between the two.
type RatioComparison struct {
	Name     string      `json:"name"`
	Value    float64     `json:"value"`
	Previous float64     `json:"previous"`
	Change   float64     `json:"change"`
	Status   RatioStatus `json:"status"`
}

// BudgetLine compares a synthetic monthly budget against the monthly actual.
type BudgetLine struct {
	Category string      `json:"category"`
	Budget   float64     `json:"budget"`
	Actual   float64     `json:"actual"`
	Variance float64     `json:"variance"`
	Status   RatioStatus `json:"status"`
}

// MonthlyTrend is the income/expense/profit rollup for one calendar month of
// one year. Buckets never merge across years.
type MonthlyTrend struct {
	Year     int     `json:"year"`
	Month    int     `json:"month"`
	Label    string  `json:"label"`
	Income   float64 `json:"income"`
	Expenses float64 `json:"expenses"`
	Profit   float64 `json:"profit"`
}

// CategoryShare is one expense category's share of total expenses.
type CategoryShare struct {
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
	Percent  float64 `json:"percent"`
}

// Anomaly flags a transaction whose magnitude exceeds twice the mean
// transaction size. A heuristic on the mean, not a statistical model.
type Anomaly struct {
	TransactionID string    `json:"transactionId"`
	Date          time.Time `json:"date"`
	Amount        float64   `json:"amount"`
	Description   string    `json:"description"`
	Type          string    `json:"transactionType"`
	Category      string    `json:"category"`
	Reason        string    `json:"reason"`
}

// Report bundles every derived view computed over one transaction collection.
type Report struct {
	Totals      Totals            `json:"totals"`
	Ratios      []RatioComparison `json:"ratios"`
	Budget      []BudgetLine      `json:"budget"`
	Trends      []MonthlyTrend    `json:"monthlyTrends"`
	Breakdown   []CategoryShare   `json:"expensesByCategory"`
	Anomalies   []Anomaly         `json:"anomalies"`
	GeneratedAt time.Time         `json:"generatedAt"`
}
