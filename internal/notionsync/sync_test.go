package notionsync

import (
	"context"
	"testing"

	"github.com/jomei/notionapi"

	"github.com/dvloznov/bookkeeper/internal/domain"
	"github.com/dvloznov/bookkeeper/internal/validate"
)

// mockNotionService records calls and serves canned pages.
type mockNotionService struct {
	pages    []notionapi.Page
	created  []notionapi.Properties
	updated  map[string]notionapi.Properties
	archived []string
}

func newMockNotionService(pages ...notionapi.Page) *mockNotionService {
	return &mockNotionService{pages: pages, updated: make(map[string]notionapi.Properties)}
}

func (m *mockNotionService) CreatePage(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error) {
	m.created = append(m.created, properties)
	return &notionapi.Page{}, nil
}

func (m *mockNotionService) UpdatePage(ctx context.Context, pageID string, properties notionapi.Properties) (*notionapi.Page, error) {
	m.updated[pageID] = properties
	return &notionapi.Page{}, nil
}

func (m *mockNotionService) QueryDatabase(ctx context.Context, databaseID string, filter *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	return &notionapi.DatabaseQueryResponse{Results: m.pages}, nil
}

func (m *mockNotionService) DeletePage(ctx context.Context, pageID string) error {
	m.archived = append(m.archived, pageID)
	return nil
}

func pageFor(pageID, transactionID string) notionapi.Page {
	return notionapi.Page{
		ID: notionapi.ObjectID(pageID),
		Properties: notionapi.Properties{
			"Transaction ID": &notionapi.TitleProperty{
				Title: []notionapi.RichText{{PlainText: transactionID}},
			},
		},
	}
}

func TestSyncValidationCreatesUpdatesArchives(t *testing.T) {
	svc := newMockNotionService(
		pageFor("page-a", "tx-a"), // will be updated
		pageFor("page-z", "tx-z"), // stale, will be archived
	)

	txs := []domain.Transaction{
		{ID: "tx-a", Amount: 50, Category: "Rent"},
		{ID: "tx-b", Amount: 12000},
	}
	results := []validate.Result{
		{TransactionID: "tx-a", Status: validate.StatusValid},
		{TransactionID: "tx-b", Status: validate.StatusWarning, Messages: []string{"Large transactions require reference number"}},
	}

	if err := SyncValidation(context.Background(), svc, "db", txs, results, false); err != nil {
		t.Fatalf("SyncValidation: %v", err)
	}

	if len(svc.created) != 1 {
		t.Errorf("created %d pages, want 1", len(svc.created))
	}
	if _, ok := svc.updated["page-a"]; !ok {
		t.Error("existing page for tx-a should be updated")
	}
	if len(svc.archived) != 1 || svc.archived[0] != "page-z" {
		t.Errorf("archived = %v, want [page-z]", svc.archived)
	}
}

func TestSyncValidationDryRun(t *testing.T) {
	svc := newMockNotionService(pageFor("page-z", "tx-z"))

	results := []validate.Result{{TransactionID: "tx-a", Status: validate.StatusValid}}

	if err := SyncValidation(context.Background(), svc, "db", nil, results, true); err != nil {
		t.Fatalf("SyncValidation: %v", err)
	}
	if len(svc.created) != 0 || len(svc.updated) != 0 || len(svc.archived) != 0 {
		t.Error("dry run must not write to Notion")
	}
}

func TestValidationToNotionProperties(t *testing.T) {
	tx := domain.Transaction{ID: "tx-1", Amount: 120, Category: "Rent", Description: "March rent"}
	result := validate.Result{
		TransactionID: "tx-1",
		Status:        validate.StatusError,
		Messages:      []string{"Transaction date missing"},
		Findings: []validate.Finding{
			{Rule: validate.RuleDatePresent, Severity: validate.StatusError, Message: "Transaction date missing"},
		},
	}

	props := ValidationToNotionProperties(tx, result)

	title, ok := props["Transaction ID"].(notionapi.TitleProperty)
	if !ok || title.Title[0].Text.Content != "tx-1" {
		t.Errorf("title = %+v", props["Transaction ID"])
	}
	status, ok := props["Status"].(notionapi.SelectProperty)
	if !ok || status.Select.Name != "error" {
		t.Errorf("status = %+v", props["Status"])
	}
	buckets, ok := props["Buckets"].(notionapi.MultiSelectProperty)
	if !ok || len(buckets.MultiSelect) != 1 || buckets.MultiSelect[0].Name != "timing" {
		t.Errorf("buckets = %+v", props["Buckets"])
	}
	if _, ok := props["Date"]; ok {
		t.Error("zero date should not produce a Date property")
	}
}
