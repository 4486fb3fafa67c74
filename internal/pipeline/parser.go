package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// AIParser extracts raw transaction records from document bytes.
type AIParser interface {
	ParseDocument(ctx context.Context, data []byte, mimeType string) ([]map[string]interface{}, error)
}

// GeminiParser sends the document to Gemini and expects a strict JSON array of
// transaction records back.
type GeminiParser struct {
	client *genai.Client
	model  string
}

func NewGeminiParser(ctx context.Context, model string) (*GeminiParser, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("NewGeminiParser: create genai client: %w", err)
	}
	return &GeminiParser{client: client, model: model}, nil
}

const extractPrompt = "You are a financial document parser for receipts, invoices and bank statements.\n\n" +
	"Task:\n" +
	"- Extract ALL transactions from the attached document.\n" +
	"- Output STRICT JSON only (no comments, no trailing commas, no extra text).\n" +
	"- Output a JSON array of objects.\n\n" +
	"Each object must have these fields:\n" +
	"- \"transactionType\": string, one of \"income\", \"expense\", \"transfer\", \"asset\", \"liability\"\n" +
	"- \"date\": string, ISO format \"YYYY-MM-DD\"\n" +
	"- \"description\": string\n" +
	"- \"amount\": number, always a non-negative magnitude\n" +
	"- \"category\": string, a sensible spending or income category\n" +
	"- \"paymentMethod\": string or null\n" +
	"- \"reference\": string or null (invoice or PO number if visible)\n" +
	"- \"lineItems\": array of {\"description\": string, \"amount\": number}, or null\n\n" +
	"Rules:\n" +
	"- If the document has separate debit/credit columns, set \"transactionType\" accordingly and keep \"amount\" positive.\n" +
	"- If a field cannot be determined, set it to null.\n\n" +
	"Return ONLY valid raw JSON.\n" +
	"Do NOT wrap the response in code fences.\n" +
	"Do NOT use ```json or any Markdown.\n" +
	"Output must begin with \"[\" and end with \"]\".\n"

func (p *GeminiParser) ParseDocument(ctx context.Context, data []byte, mimeType string) ([]map[string]interface{}, error) {
	if mimeType == "" {
		mimeType = "application/pdf"
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: extractPrompt},
				{
					InlineData: &genai.Blob{
						MIMEType: mimeType,
						Data:     data,
					},
				},
			},
		},
	}

	resp, err := p.client.Models.GenerateContent(ctx, p.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("ParseDocument: generate content: %w", err)
	}

	rawText := resp.Text()
	if rawText == "" {
		return nil, fmt.Errorf("ParseDocument: empty response from model")
	}

	clean := cleanModelJSON(rawText)

	var records []map[string]interface{}
	if err := json.Unmarshal([]byte(clean), &records); err != nil {
		return nil, fmt.Errorf("ParseDocument: unmarshal JSON: %w\nraw response: %s", err, rawText)
	}
	return records, nil
}

// cleanModelJSON strips Markdown fences and surrounding prose the model
// sometimes adds despite the raw-JSON instruction.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}

	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}

	s = strings.TrimSpace(s)

	if start := strings.Index(s, "["); start != -1 {
		if end := strings.LastIndex(s, "]"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}

	return s
}
