package index

import (
	"path/filepath"
	"testing"

	"github.com/Felmond13/novusdb/storage"
)

func TestSegmentedIndexPutGetSaveReload(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "tag_name.idx.d")
	join := storage.OpenScalarJoin(storage.NewMemPagedFile(), 0)
	resolver := joinBackedResolver{join: join}

	si := NewSegmentedIndex(dir, join, resolver, defaultBucketCacheSize)
	if err := si.Put("s:red", 11); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := si.Put("s:blue", 12); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := si.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reopened := NewSegmentedIndex(dir, join, resolver, defaultBucketCacheSize)
	p, err := reopened.Get("s:red")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if p.Size() != 1 {
		t.Fatalf("want size 1, got %d", p.Size())
	}
	e, err := p.Get(0)
	if err != nil {
		t.Fatalf("Get(0): %v", err)
	}
	if e.RodID != 11 {
		t.Fatalf("want rod_id 11, got %d", e.RodID)
	}

	absent, err := reopened.Get("s:green")
	if err != nil {
		t.Fatalf("Get absent: %v", err)
	}
	if absent.Size() != 0 {
		t.Fatalf("want empty proxy for absent key")
	}
}

func TestBucketOfIsDeterministic(t *testing.T) {
	a := bucketOf("s:same", 256)
	b := bucketOf("s:same", 256)
	if a != b {
		t.Fatalf("bucketOf must be deterministic for a fixed key and bucket count")
	}
}
