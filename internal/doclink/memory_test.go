package doclink

import (
	"context"
	"sort"
	"testing"
)

func TestLinkIndexPutGet(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryLinkIndex()

	if err := idx.Put(ctx, "tx1", "docA.pdf", map[string]interface{}{"page": 1.0}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	entry, found, err := idx.Get(ctx, "tx1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !found {
		t.Fatal("expected entry for tx1")
	}
	if entry.DocumentName != "docA.pdf" {
		t.Errorf("DocumentName = %q", entry.DocumentName)
	}
	if entry.Timestamp.IsZero() {
		t.Error("expected put to stamp a timestamp")
	}
}

func TestLinkIndexPutOverwrites(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryLinkIndex()

	if err := idx.Put(ctx, "tx1", "old.pdf", nil); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := idx.Put(ctx, "tx1", "new.pdf", nil); err != nil {
		t.Fatalf("Put: %v", err)
	}

	entry, _, err := idx.Get(ctx, "tx1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if entry.DocumentName != "new.pdf" {
		t.Errorf("DocumentName = %q, want new.pdf after upsert", entry.DocumentName)
	}
}

func TestLinkIndexMissingKey(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryLinkIndex()

	_, found, err := idx.Get(ctx, "never-put")
	if err != nil {
		t.Fatalf("Get must not fail on missing keys: %v", err)
	}
	if found {
		t.Error("expected not-found for missing key")
	}
}

func TestLinkIndexDanglingEntryTolerated(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryLinkIndex()

	if err := idx.Put(ctx, "tx1", "docA.pdf", map[string]interface{}{}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	// The transaction is deleted elsewhere without cleaning up the index.
	// Lookups must still succeed; callers decide the entry is ignorable.
	entry, found, err := idx.Get(ctx, "tx1")
	if err != nil {
		t.Fatalf("Get after dangling delete: %v", err)
	}
	if !found || entry.DocumentName != "docA.pdf" {
		t.Errorf("dangling entry should still read back, got found=%v entry=%+v", found, entry)
	}
}

func TestLinkIndexListByDocument(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryLinkIndex()

	_ = idx.Put(ctx, "tx1", "docA.pdf", nil)
	_ = idx.Put(ctx, "tx2", "docB.pdf", nil)
	_ = idx.Put(ctx, "tx3", "docA.pdf", nil)

	ids, err := idx.ListByDocument(ctx, "docA.pdf")
	if err != nil {
		t.Fatalf("ListByDocument: %v", err)
	}
	sort.Strings(ids)
	if len(ids) != 2 || ids[0] != "tx1" || ids[1] != "tx3" {
		t.Errorf("ids = %v, want [tx1 tx3]", ids)
	}
}

func TestLinkIndexDelete(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryLinkIndex()

	_ = idx.Put(ctx, "tx1", "docA.pdf", nil)
	if err := idx.Delete(ctx, "tx1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := idx.Delete(ctx, "tx1"); err != nil {
		t.Fatalf("Delete of missing key must be a no-op: %v", err)
	}

	if _, found, _ := idx.Get(ctx, "tx1"); found {
		t.Error("entry should be gone after delete")
	}
}

func TestProcessedFilesWholeSetReplace(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryProcessedFiles()

	if err := repo.Mark(ctx, "a.pdf"); err != nil {
		t.Fatalf("Mark: %v", err)
	}
	if err := repo.Mark(ctx, "b.pdf"); err != nil {
		t.Fatalf("Mark: %v", err)
	}

	set, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(set) != 2 {
		t.Errorf("set size = %d, want 2", len(set))
	}

	if err := repo.Save(ctx, map[string]struct{}{"c.pdf": {}}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	set, err = repo.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, ok := set["a.pdf"]; ok {
		t.Error("Save must replace the whole set")
	}
	if _, ok := set["c.pdf"]; !ok {
		t.Error("expected c.pdf after replace")
	}
}

func TestProcessedFilesLoadIsCopy(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryProcessedFiles()
	_ = repo.Mark(ctx, "a.pdf")

	set, _ := repo.Load(ctx)
	delete(set, "a.pdf")

	again, _ := repo.Load(ctx)
	if _, ok := again["a.pdf"]; !ok {
		t.Error("mutating a loaded set must not affect the repository")
	}
}
