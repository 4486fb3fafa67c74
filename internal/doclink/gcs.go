package doclink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"
)

// GCSLinkIndex persists the full link index as one JSON object in a bucket.
// Every write replaces the object; the index is small enough that the
// whole-object model matches the repository contract.
type GCSLinkIndex struct {
	client *storage.Client
	bucket string
	object string
}

// NewGCSLinkIndex creates a link index persisted under the given object name.
func NewGCSLinkIndex(ctx context.Context, bucket, object string) (*GCSLinkIndex, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewGCSLinkIndex: create storage client: %w", err)
	}
	return &GCSLinkIndex{client: client, bucket: bucket, object: object}, nil
}

// Close releases the storage client.
func (g *GCSLinkIndex) Close() error {
	return g.client.Close()
}

func (g *GCSLinkIndex) load(ctx context.Context) (map[string]Entry, error) {
	data, err := readObject(ctx, g.client, g.bucket, g.object)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return map[string]Entry{}, nil
	}

	var entries map[string]Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("load: decode %s: %w", g.object, err)
	}
	return entries, nil
}

func (g *GCSLinkIndex) save(ctx context.Context, entries map[string]Entry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("save: encode %s: %w", g.object, err)
	}
	return writeObject(ctx, g.client, g.bucket, g.object, data)
}

func (g *GCSLinkIndex) Put(ctx context.Context, transactionID, documentName string, extraction map[string]interface{}) error {
	entries, err := g.load(ctx)
	if err != nil {
		return fmt.Errorf("Put: %w", err)
	}
	entries[transactionID] = Entry{
		TransactionID: transactionID,
		DocumentName:  documentName,
		Extraction:    extraction,
		Timestamp:     time.Now(),
	}
	if err := g.save(ctx, entries); err != nil {
		return fmt.Errorf("Put: %w", err)
	}
	return nil
}

func (g *GCSLinkIndex) Get(ctx context.Context, transactionID string) (Entry, bool, error) {
	entries, err := g.load(ctx)
	if err != nil {
		return Entry{}, false, fmt.Errorf("Get: %w", err)
	}
	entry, ok := entries[transactionID]
	return entry, ok, nil
}

func (g *GCSLinkIndex) ListByDocument(ctx context.Context, documentName string) ([]string, error) {
	entries, err := g.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListByDocument: %w", err)
	}
	var ids []string
	for id, entry := range entries {
		if entry.DocumentName == documentName {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (g *GCSLinkIndex) Delete(ctx context.Context, transactionID string) error {
	entries, err := g.load(ctx)
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	if _, ok := entries[transactionID]; !ok {
		return nil
	}
	delete(entries, transactionID)
	if err := g.save(ctx, entries); err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	return nil
}

func (g *GCSLinkIndex) DocumentFor(ctx context.Context, transactionID string) (string, bool, error) {
	entry, ok, err := g.Get(ctx, transactionID)
	if err != nil || !ok {
		return "", false, err
	}
	return entry.DocumentName, true, nil
}

var _ DocumentLinkRepository = (*GCSLinkIndex)(nil)

// GCSProcessedFiles persists the processed-files set as one JSON array under
// a fixed object name, replaced wholesale on every save.
type GCSProcessedFiles struct {
	client *storage.Client
	bucket string
	object string
}

// NewGCSProcessedFiles creates a processed-files set persisted under the
// given object name.
func NewGCSProcessedFiles(ctx context.Context, bucket, object string) (*GCSProcessedFiles, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewGCSProcessedFiles: create storage client: %w", err)
	}
	return &GCSProcessedFiles{client: client, bucket: bucket, object: object}, nil
}

// Close releases the storage client.
func (g *GCSProcessedFiles) Close() error {
	return g.client.Close()
}

func (g *GCSProcessedFiles) Load(ctx context.Context) (map[string]struct{}, error) {
	data, err := readObject(ctx, g.client, g.bucket, g.object)
	if err != nil {
		return nil, fmt.Errorf("Load: %w", err)
	}
	set := make(map[string]struct{})
	if data == nil {
		return set, nil
	}

	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return nil, fmt.Errorf("Load: decode %s: %w", g.object, err)
	}
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set, nil
}

func (g *GCSProcessedFiles) Save(ctx context.Context, files map[string]struct{}) error {
	names := make([]string, 0, len(files))
	for n := range files {
		names = append(names, n)
	}
	data, err := json.Marshal(names)
	if err != nil {
		return fmt.Errorf("Save: encode %s: %w", g.object, err)
	}
	if err := writeObject(ctx, g.client, g.bucket, g.object, data); err != nil {
		return fmt.Errorf("Save: %w", err)
	}
	return nil
}

func (g *GCSProcessedFiles) Mark(ctx context.Context, documentName string) error {
	set, err := g.Load(ctx)
	if err != nil {
		return fmt.Errorf("Mark: %w", err)
	}
	set[documentName] = struct{}{}
	return g.Save(ctx, set)
}

var _ ProcessedFilesRepository = (*GCSProcessedFiles)(nil)

// readObject reads an object's full contents, returning nil bytes when the
// object does not exist yet.
func readObject(ctx context.Context, client *storage.Client, bucket, object string) ([]byte, error) {
	rc, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("readObject %s/%s: %w", bucket, object, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("readObject %s/%s: reading bytes: %w", bucket, object, err)
	}
	return data, nil
}

// writeObject replaces an object's contents.
func writeObject(ctx context.Context, client *storage.Client, bucket, object string, data []byte) error {
	w := client.Bucket(bucket).Object(object).NewWriter(ctx)
	w.ContentType = "application/json"
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("writeObject %s/%s: %w", bucket, object, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("writeObject %s/%s: finalize: %w", bucket, object, err)
	}
	return nil
}
