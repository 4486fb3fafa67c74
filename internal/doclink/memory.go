package doclink

import (
	"context"
	"sync"
	"time"
)

// MemoryLinkIndex is an in-memory DocumentLinkRepository. Safe for concurrent
// use; entries are copied on read to avoid external modification.
type MemoryLinkIndex struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewMemoryLinkIndex creates an empty in-memory link index.
func NewMemoryLinkIndex() *MemoryLinkIndex {
	return &MemoryLinkIndex{entries: make(map[string]Entry)}
}

func (m *MemoryLinkIndex) Put(ctx context.Context, transactionID, documentName string, extraction map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[transactionID] = Entry{
		TransactionID: transactionID,
		DocumentName:  documentName,
		Extraction:    extraction,
		Timestamp:     time.Now(),
	}
	return nil
}

func (m *MemoryLinkIndex) Get(ctx context.Context, transactionID string) (Entry, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.entries[transactionID]
	return entry, ok, nil
}

func (m *MemoryLinkIndex) ListByDocument(ctx context.Context, documentName string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var ids []string
	for id, entry := range m.entries {
		if entry.DocumentName == documentName {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (m *MemoryLinkIndex) Delete(ctx context.Context, transactionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, transactionID)
	return nil
}

func (m *MemoryLinkIndex) DocumentFor(ctx context.Context, transactionID string) (string, bool, error) {
	entry, ok, err := m.Get(ctx, transactionID)
	if err != nil || !ok {
		return "", false, err
	}
	return entry.DocumentName, true, nil
}

var _ DocumentLinkRepository = (*MemoryLinkIndex)(nil)

// MemoryProcessedFiles is an in-memory ProcessedFilesRepository.
type MemoryProcessedFiles struct {
	mu    sync.RWMutex
	files map[string]struct{}
}

// NewMemoryProcessedFiles creates an empty in-memory processed-files set.
func NewMemoryProcessedFiles() *MemoryProcessedFiles {
	return &MemoryProcessedFiles{files: make(map[string]struct{})}
}

func (m *MemoryProcessedFiles) Load(ctx context.Context) (map[string]struct{}, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]struct{}, len(m.files))
	for f := range m.files {
		out[f] = struct{}{}
	}
	return out, nil
}

func (m *MemoryProcessedFiles) Save(ctx context.Context, files map[string]struct{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files = make(map[string]struct{}, len(files))
	for f := range files {
		m.files[f] = struct{}{}
	}
	return nil
}

func (m *MemoryProcessedFiles) Mark(ctx context.Context, documentName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[documentName] = struct{}{}
	return nil
}

var _ ProcessedFilesRepository = (*MemoryProcessedFiles)(nil)
