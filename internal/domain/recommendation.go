package domain

// Impact grades how much a recommendation is expected to move the numbers.
type Impact string

const (
	ImpactHigh   Impact = "High"
	ImpactMedium Impact = "Medium"
	ImpactLow    Impact = "Low"
)

// Recommendation is one structured suggestion produced by the recommendation
// engine from a transaction collection.
type Recommendation struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Impact      Impact  `json:"impact"`
	Category    string  `json:"category"`
	Savings     float64 `json:"savings"`
}
