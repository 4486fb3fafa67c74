// Package filestore is the chunked document store the upload surface writes
// into and the extraction pipeline reads back out of.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrChunkMissing signals a gap in a file's chunk sequence.
var ErrChunkMissing = errors.New("filestore: chunk missing")

// FileMeta describes one stored document.
type FileMeta struct {
	Name        string    `json:"name"`
	MimeType    string    `json:"mimeType"`
	TotalChunks int       `json:"totalChunks"`
	Size        int64     `json:"size"`
	UploadedAt  time.Time `json:"uploadedAt"`
}

// FileStore stores documents as ordered chunks. Chunks may arrive in any
// order; a file is complete once every index below TotalChunks is present.
type FileStore interface {
	ListFiles(ctx context.Context) ([]FileMeta, error)
	UploadChunk(ctx context.Context, name string, data []byte, index int, mimeType string) error
	GetTotalChunks(ctx context.Context, name string) (int, error)
	GetChunk(ctx context.Context, name string, index int) ([]byte, error)
	Exists(ctx context.Context, name string) (bool, error)
	Delete(ctx context.Context, name string) (bool, error)
}

// Reassemble stitches a file's chunks back together in index order.
func Reassemble(ctx context.Context, store FileStore, name string) ([]byte, error) {
	total, err := store.GetTotalChunks(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("Reassemble %q: %w", name, err)
	}

	var out []byte
	for i := 0; i < total; i++ {
		chunk, err := store.GetChunk(ctx, name, i)
		if err != nil {
			return nil, fmt.Errorf("Reassemble %q: chunk %d: %w", name, i, err)
		}
		out = append(out, chunk...)
	}
	return out, nil
}
