package notionsync

import (
	"strings"
	"time"

	"github.com/jomei/notionapi"

	"github.com/dvloznov/bookkeeper/internal/domain"
	"github.com/dvloznov/bookkeeper/internal/validate"
)

func richText(content string) []notionapi.RichText {
	return []notionapi.RichText{
		{
			Type: notionapi.ObjectTypeText,
			Text: &notionapi.Text{Content: content},
		},
	}
}

// ValidationToNotionProperties converts one validation result (and the
// transaction it concerns) into the compliance database row shape.
func ValidationToNotionProperties(tx domain.Transaction, result validate.Result) notionapi.Properties {
	props := notionapi.Properties{
		"Transaction ID": notionapi.TitleProperty{
			Title: richText(result.TransactionID),
		},
		"Status": notionapi.SelectProperty{
			Select: notionapi.Option{Name: string(result.Status)},
		},
		"Amount": notionapi.NumberProperty{
			Number: tx.Amount,
		},
	}

	if tx.Description != "" {
		props["Description"] = notionapi.RichTextProperty{
			RichText: richText(tx.Description),
		}
	}

	if tx.Category != "" {
		props["Category"] = notionapi.SelectProperty{
			Select: notionapi.Option{Name: tx.Category},
		}
	}

	if !tx.Date.IsZero() {
		d := notionapi.Date(time.Date(
			tx.Date.Year(), tx.Date.Month(), tx.Date.Day(),
			0, 0, 0, 0, time.UTC,
		))
		props["Date"] = notionapi.DateProperty{
			Date: &notionapi.DateObject{Start: &d},
		}
	}

	if len(result.Messages) > 0 {
		props["Issues"] = notionapi.RichTextProperty{
			RichText: richText(strings.Join(result.Messages, "; ")),
		}
	}

	if buckets := findingBuckets(result); len(buckets) > 0 {
		options := make([]notionapi.Option, 0, len(buckets))
		for _, b := range buckets {
			options = append(options, notionapi.Option{Name: b})
		}
		props["Buckets"] = notionapi.MultiSelectProperty{
			MultiSelect: options,
		}
	}

	return props
}

// findingBuckets returns the distinct compliance buckets a result tripped, in
// first-seen order.
func findingBuckets(result validate.Result) []string {
	seen := make(map[validate.Bucket]bool)
	var buckets []string
	for _, f := range result.Findings {
		b := validate.BucketFor(f.Rule)
		if b == "" || seen[b] {
			continue
		}
		seen[b] = true
		buckets = append(buckets, string(b))
	}
	return buckets
}

// extractTransactionID pulls the transaction id back out of a Notion page so
// sync can match pages to results.
func extractTransactionID(page notionapi.Page) string {
	prop, ok := page.Properties["Transaction ID"]
	if !ok {
		return ""
	}
	title, ok := prop.(*notionapi.TitleProperty)
	if !ok {
		return ""
	}
	var sb strings.Builder
	for _, rt := range title.Title {
		sb.WriteString(rt.PlainText)
	}
	return sb.String()
}
