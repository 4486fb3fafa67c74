package filestore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Memory is an in-memory FileStore used by tests and single-process setups.
type Memory struct {
	mu    sync.RWMutex
	files map[string]*memoryFile
}

type memoryFile struct {
	meta   FileMeta
	chunks map[int][]byte
}

// NewMemory creates an empty in-memory file store.
func NewMemory() *Memory {
	return &Memory{files: make(map[string]*memoryFile)}
}

func (m *Memory) ListFiles(ctx context.Context) ([]FileMeta, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	metas := make([]FileMeta, 0, len(m.files))
	for _, f := range m.files {
		metas = append(metas, f.meta)
	}
	sort.Slice(metas, func(i, j int) bool { return metas[i].Name < metas[j].Name })
	return metas, nil
}

func (m *Memory) UploadChunk(ctx context.Context, name string, data []byte, index int, mimeType string) error {
	if index < 0 {
		return fmt.Errorf("UploadChunk %q: negative chunk index %d", name, index)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	f, ok := m.files[name]
	if !ok {
		f = &memoryFile{
			meta:   FileMeta{Name: name, MimeType: mimeType, UploadedAt: time.Now()},
			chunks: make(map[int][]byte),
		}
		m.files[name] = f
	}

	buf := make([]byte, len(data))
	copy(buf, data)
	f.chunks[index] = buf

	if index+1 > f.meta.TotalChunks {
		f.meta.TotalChunks = index + 1
	}
	if mimeType != "" {
		f.meta.MimeType = mimeType
	}
	f.meta.Size = 0
	for _, c := range f.chunks {
		f.meta.Size += int64(len(c))
	}
	return nil
}

func (m *Memory) GetTotalChunks(ctx context.Context, name string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.files[name]
	if !ok {
		return 0, nil
	}
	return f.meta.TotalChunks, nil
}

func (m *Memory) GetChunk(ctx context.Context, name string, index int) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.files[name]
	if !ok {
		return nil, fmt.Errorf("GetChunk %q/%d: %w", name, index, ErrChunkMissing)
	}
	chunk, ok := f.chunks[index]
	if !ok {
		return nil, fmt.Errorf("GetChunk %q/%d: %w", name, index, ErrChunkMissing)
	}
	buf := make([]byte, len(chunk))
	copy(buf, chunk)
	return buf, nil
}

func (m *Memory) Exists(ctx context.Context, name string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.files[name]
	return ok, nil
}

func (m *Memory) Delete(ctx context.Context, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[name]; !ok {
		return false, nil
	}
	delete(m.files, name)
	return true, nil
}

var _ FileStore = (*Memory)(nil)
