package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

const chunkPrefix = "chunks/"

// GCS stores each document's chunks as individual bucket objects under
// chunks/<name>/<index>, with a meta.json object per document. Assumes
// Application Default Credentials are configured.
type GCS struct {
	client *storage.Client
	bucket string
}

// NewGCS creates a GCS-backed file store over the given bucket.
func NewGCS(ctx context.Context, bucket string) (*GCS, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewGCS: create storage client: %w", err)
	}
	return &GCS{client: client, bucket: bucket}, nil
}

// Close releases the storage client.
func (g *GCS) Close() error {
	return g.client.Close()
}

func chunkObject(name string, index int) string {
	return fmt.Sprintf("%s%s/%06d", chunkPrefix, name, index)
}

func metaObject(name string) string {
	return chunkPrefix + name + "/meta.json"
}

func (g *GCS) ListFiles(ctx context.Context) ([]FileMeta, error) {
	it := g.client.Bucket(g.bucket).Objects(ctx, &storage.Query{Prefix: chunkPrefix})

	var metas []FileMeta
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListFiles: iterating objects: %w", err)
		}
		if !strings.HasSuffix(attrs.Name, "/meta.json") {
			continue
		}
		meta, err := g.readMeta(ctx, attrs.Name)
		if err != nil {
			return nil, fmt.Errorf("ListFiles: %w", err)
		}
		metas = append(metas, meta)
	}
	return metas, nil
}

func (g *GCS) readMeta(ctx context.Context, object string) (FileMeta, error) {
	rc, err := g.client.Bucket(g.bucket).Object(object).NewReader(ctx)
	if err != nil {
		return FileMeta{}, fmt.Errorf("readMeta %s: %w", object, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return FileMeta{}, fmt.Errorf("readMeta %s: %w", object, err)
	}

	var meta FileMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return FileMeta{}, fmt.Errorf("readMeta %s: decode: %w", object, err)
	}
	return meta, nil
}

func (g *GCS) writeMeta(ctx context.Context, meta FileMeta) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("writeMeta %q: encode: %w", meta.Name, err)
	}

	w := g.client.Bucket(g.bucket).Object(metaObject(meta.Name)).NewWriter(ctx)
	w.ContentType = "application/json"
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("writeMeta %q: %w", meta.Name, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("writeMeta %q: finalize: %w", meta.Name, err)
	}
	return nil
}

func (g *GCS) UploadChunk(ctx context.Context, name string, data []byte, index int, mimeType string) error {
	if index < 0 {
		return fmt.Errorf("UploadChunk %q: negative chunk index %d", name, index)
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := g.client.Bucket(g.bucket).Object(chunkObject(name, index)).NewWriter(ctx)
	w.ContentType = "application/octet-stream"
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("UploadChunk %q/%d: %w", name, index, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("UploadChunk %q/%d: finalize: %w", name, index, err)
	}

	meta, err := g.readMeta(ctx, metaObject(name))
	if err != nil {
		// First chunk for this document.
		meta = FileMeta{Name: name, UploadedAt: time.Now()}
	}
	if index+1 > meta.TotalChunks {
		meta.TotalChunks = index + 1
	}
	if mimeType != "" {
		meta.MimeType = mimeType
	}
	meta.Size += int64(len(data))

	return g.writeMeta(ctx, meta)
}

func (g *GCS) GetTotalChunks(ctx context.Context, name string) (int, error) {
	meta, err := g.readMeta(ctx, metaObject(name))
	if err != nil {
		return 0, nil
	}
	return meta.TotalChunks, nil
}

func (g *GCS) GetChunk(ctx context.Context, name string, index int) ([]byte, error) {
	rc, err := g.client.Bucket(g.bucket).Object(chunkObject(name, index)).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, fmt.Errorf("GetChunk %q/%d: %w", name, index, ErrChunkMissing)
	}
	if err != nil {
		return nil, fmt.Errorf("GetChunk %q/%d: %w", name, index, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("GetChunk %q/%d: reading bytes: %w", name, index, err)
	}
	return data, nil
}

func (g *GCS) Exists(ctx context.Context, name string) (bool, error) {
	_, err := g.client.Bucket(g.bucket).Object(metaObject(name)).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("Exists %q: %w", name, err)
	}
	return true, nil
}

func (g *GCS) Delete(ctx context.Context, name string) (bool, error) {
	prefix := chunkPrefix + name + "/"
	it := g.client.Bucket(g.bucket).Objects(ctx, &storage.Query{Prefix: prefix})

	deleted := false
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return deleted, fmt.Errorf("Delete %q: iterating objects: %w", name, err)
		}
		if err := g.client.Bucket(g.bucket).Object(attrs.Name).Delete(ctx); err != nil {
			return deleted, fmt.Errorf("Delete %q: removing %s: %w", name, attrs.Name, err)
		}
		deleted = true
	}
	return deleted, nil
}

var _ FileStore = (*GCS)(nil)
