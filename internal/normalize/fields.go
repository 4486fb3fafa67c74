package normalize

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/dvloznov/bookkeeper/internal/domain"
)

// Field coercion helpers. Unlike the extraction-side transform helpers these
// never return errors: absent or unparseable values fall back to a default so
// normalization stays total.

func stringField(m map[string]interface{}, key, fallback string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return fallback
	}
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

func floatField(m map[string]interface{}, key string, fallback float64) float64 {
	v, ok := m[key]
	if !ok || v == nil {
		return fallback
	}
	f := fallback
	switch val := v.(type) {
	case float64:
		f = val
	case int:
		f = float64(val)
	case int64:
		f = float64(val)
	case json.Number:
		if parsed, err := val.Float64(); err == nil {
			f = parsed
		}
	case string:
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			f = parsed
		}
	}
	// The amount invariant demands a finite number.
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fallback
	}
	return f
}

func boolField(m map[string]interface{}, key string) bool {
	v, ok := m[key]
	if !ok || v == nil {
		return false
	}
	switch val := v.(type) {
	case bool:
		return val
	case string:
		return strings.EqualFold(strings.TrimSpace(val), "true")
	default:
		return false
	}
}

// dateField parses a business date, accepting date-only and RFC3339 strings,
// falling back to the given instant truncated to a date.
func dateField(m map[string]interface{}, key string, fallback time.Time) time.Time {
	day := func(t time.Time) time.Time {
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	}

	v, ok := m[key]
	if !ok || v == nil {
		return day(fallback)
	}
	s, ok := v.(string)
	if !ok {
		return day(fallback)
	}
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return day(t)
	}
	return day(fallback)
}

func lineItemsField(m map[string]interface{}, key string) []domain.LineItem {
	v, ok := m[key]
	if !ok || v == nil {
		return nil
	}
	raw, ok := v.([]interface{})
	if !ok {
		return nil
	}

	items := make([]domain.LineItem, 0, len(raw))
	for _, item := range raw {
		obj, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		items = append(items, domain.LineItem{
			Description: stringField(obj, "description", ""),
			Amount:      floatField(obj, "amount", 0),
			Category:    stringField(obj, "category", ""),
		})
	}
	return items
}

// timeField parses a creation instant, falling back to the given time.
func timeField(m map[string]interface{}, key string, fallback time.Time) time.Time {
	v, ok := m[key]
	if !ok || v == nil {
		return fallback
	}
	s, ok := v.(string)
	if !ok {
		return fallback
	}
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return fallback
}
