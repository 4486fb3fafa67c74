// Package recommend produces spending recommendations from the transaction
// collection using Gemini.
package recommend

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"github.com/dvloznov/bookkeeper/internal/domain"
)

// Engine generates recommendations from a transaction collection.
type Engine interface {
	Generate(ctx context.Context, txs []domain.Transaction) ([]domain.Recommendation, error)
}

// GeminiEngine asks Gemini for recommendations over a JSON dump of the
// collection. Malformed model output yields an empty slice, not an error;
// transport failures are still reported.
type GeminiEngine struct {
	client *genai.Client
	model  string
}

func NewGeminiEngine(ctx context.Context, model string) (*GeminiEngine, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("NewGeminiEngine: create genai client: %w", err)
	}
	return &GeminiEngine{client: client, model: model}, nil
}

const recommendPrompt = "You are a small-business bookkeeping advisor.\n\n" +
	"Task:\n" +
	"- Review the attached JSON array of transactions.\n" +
	"- Suggest up to 5 concrete ways to reduce spending or improve record keeping.\n" +
	"- Output STRICT JSON only (no comments, no trailing commas, no extra text).\n" +
	"- Output a JSON array of objects.\n\n" +
	"Each object must have these fields:\n" +
	"- \"title\": string, short headline\n" +
	"- \"description\": string, one or two sentences\n" +
	"- \"impact\": string, one of \"High\", \"Medium\", \"Low\"\n" +
	"- \"category\": string, the spending category it applies to\n" +
	"- \"savings\": number, estimated yearly savings (0 if not applicable)\n\n" +
	"Return ONLY valid raw JSON.\n" +
	"Do NOT wrap the response in code fences.\n" +
	"Do NOT use ```json or any Markdown.\n" +
	"Output must begin with \"[\" and end with \"]\".\n"

func (e *GeminiEngine) Generate(ctx context.Context, txs []domain.Transaction) ([]domain.Recommendation, error) {
	payload, err := json.Marshal(txs)
	if err != nil {
		return nil, fmt.Errorf("Generate: marshal transactions: %w", err)
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: recommendPrompt},
				{Text: "Transactions:\n" + string(payload)},
			},
		},
	}

	resp, err := e.client.Models.GenerateContent(ctx, e.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("Generate: generate content: %w", err)
	}

	return DecodeRecommendations(resp.Text()), nil
}

// DecodeRecommendations parses the model's response into recommendations.
// Anything that does not decode into the expected shape is dropped; a fully
// malformed response yields an empty slice.
func DecodeRecommendations(raw string) []domain.Recommendation {
	clean := cleanModelJSON(raw)
	if clean == "" {
		return []domain.Recommendation{}
	}

	var items []struct {
		Title       string  `json:"title"`
		Description string  `json:"description"`
		Impact      string  `json:"impact"`
		Category    string  `json:"category"`
		Savings     float64 `json:"savings"`
	}
	if err := json.Unmarshal([]byte(clean), &items); err != nil {
		return []domain.Recommendation{}
	}

	recs := make([]domain.Recommendation, 0, len(items))
	for _, item := range items {
		if item.Title == "" {
			continue
		}
		recs = append(recs, domain.Recommendation{
			ID:          uuid.NewString(),
			Title:       item.Title,
			Description: item.Description,
			Impact:      normalizeImpact(item.Impact),
			Category:    item.Category,
			Savings:     item.Savings,
		})
	}
	return recs
}

func normalizeImpact(s string) domain.Impact {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high":
		return domain.ImpactHigh
	case "low":
		return domain.ImpactLow
	default:
		return domain.ImpactMedium
	}
}

// cleanModelJSON strips Markdown fences and surrounding junk the model
// sometimes adds despite the raw-JSON instruction.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return ""
		}
		s = strings.TrimSpace(s)
	}

	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}

	s = strings.TrimSpace(s)

	if start := strings.Index(s, "["); start != -1 {
		if end := strings.LastIndex(s, "]"); end != -1 && end > start {
			return strings.TrimSpace(s[start : end+1])
		}
	}
	return ""
}
