package filestore

import (
	"bytes"
	"context"
	"errors"
	"testing"
)

func TestUploadAndReassemble(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	// Chunks arrive out of order.
	if err := store.UploadChunk(ctx, "receipt.pdf", []byte("world"), 1, "application/pdf"); err != nil {
		t.Fatalf("UploadChunk: %v", err)
	}
	if err := store.UploadChunk(ctx, "receipt.pdf", []byte("hello "), 0, "application/pdf"); err != nil {
		t.Fatalf("UploadChunk: %v", err)
	}

	total, err := store.GetTotalChunks(ctx, "receipt.pdf")
	if err != nil {
		t.Fatalf("GetTotalChunks: %v", err)
	}
	if total != 2 {
		t.Errorf("TotalChunks = %d, want 2", total)
	}

	data, err := Reassemble(ctx, store, "receipt.pdf")
	if err != nil {
		t.Fatalf("Reassemble: %v", err)
	}
	if !bytes.Equal(data, []byte("hello world")) {
		t.Errorf("reassembled = %q, want %q", data, "hello world")
	}
}

func TestReassembleMissingChunk(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	// Index 1 never arrives.
	_ = store.UploadChunk(ctx, "gap.pdf", []byte("a"), 0, "")
	_ = store.UploadChunk(ctx, "gap.pdf", []byte("c"), 2, "")

	_, err := Reassemble(ctx, store, "gap.pdf")
	if !errors.Is(err, ErrChunkMissing) {
		t.Errorf("Reassemble error = %v, want ErrChunkMissing", err)
	}
}

func TestExistsAndDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	if ok, _ := store.Exists(ctx, "nope.pdf"); ok {
		t.Error("Exists on missing file should be false")
	}

	_ = store.UploadChunk(ctx, "doc.pdf", []byte("x"), 0, "application/pdf")
	if ok, _ := store.Exists(ctx, "doc.pdf"); !ok {
		t.Error("Exists should be true after upload")
	}

	deleted, err := store.Delete(ctx, "doc.pdf")
	if err != nil || !deleted {
		t.Errorf("Delete = (%v, %v), want (true, nil)", deleted, err)
	}
	deleted, err = store.Delete(ctx, "doc.pdf")
	if err != nil || deleted {
		t.Errorf("second Delete = (%v, %v), want (false, nil)", deleted, err)
	}
}

func TestListFiles(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	_ = store.UploadChunk(ctx, "b.pdf", []byte("bb"), 0, "application/pdf")
	_ = store.UploadChunk(ctx, "a.csv", []byte("aa"), 0, "text/csv")

	metas, err := store.ListFiles(ctx)
	if err != nil {
		t.Fatalf("ListFiles: %v", err)
	}
	if len(metas) != 2 {
		t.Fatalf("expected 2 files, got %d", len(metas))
	}
	if metas[0].Name != "a.csv" || metas[1].Name != "b.pdf" {
		t.Errorf("names = %q, %q", metas[0].Name, metas[1].Name)
	}
	if metas[0].MimeType != "text/csv" || metas[0].Size != 2 {
		t.Errorf("meta = %+v", metas[0])
	}
}

func TestChunkIsolation(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	buf := []byte("mutable")
	_ = store.UploadChunk(ctx, "doc.pdf", buf, 0, "")
	buf[0] = 'X'

	chunk, err := store.GetChunk(ctx, "doc.pdf", 0)
	if err != nil {
		t.Fatalf("GetChunk: %v", err)
	}
	if chunk[0] != 'm' {
		t.Error("stored chunk must not alias the caller's buffer")
	}
}
