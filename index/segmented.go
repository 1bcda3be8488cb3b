package index

import (
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/snappy"

	"github.com/Felmond13/novusdb/collection"
	"github.com/Felmond13/novusdb/storage"
)

// defaultBucketCount is the number of shards a segmented index's key space
// is split across. Indices large enough to need segmentation (§4.6) are
// assumed to have far more distinct keys than this, so each bucket stays
// small enough to decode and hold in the cache cheaply.
const defaultBucketCount = 256

// defaultBucketCacheSize is used when a caller opens a segmented index
// without going through a Manager configured with db.WithPageCacheSize.
const defaultBucketCacheSize = 64

// SegmentedIndex is a directory of snappy-compressed buckets, loaded
// lazily and cached, for indices too large to hold fully in memory as one
// flat file (§4.6).
type SegmentedIndex struct {
	*core
	dir         string
	bucketCount uint32
	cache       *bucketCache
}

// NewSegmentedIndex opens (without preloading) a segmented index rooted at
// dir, backed by join for range allocation and resolver for materializing
// targets. cacheSize is the number of decoded buckets the LRU keeps hot
// (§4.6); callers that don't care about tuning it can pass
// defaultBucketCacheSize.
func NewSegmentedIndex(dir string, join *storage.ScalarJoin, resolver collection.Resolver, cacheSize int) *SegmentedIndex {
	return &SegmentedIndex{
		core:        newCore(join, resolver),
		dir:         dir,
		bucketCount: defaultBucketCount,
		cache:       newBucketCache(cacheSize),
	}
}

func bucketOf(key string, bucketCount uint32) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return h.Sum32() % bucketCount
}

func (si *SegmentedIndex) bucketPath(id uint32) string {
	return filepath.Join(si.dir, fmt.Sprintf("bucket-%04x.bkt", id))
}

// loadBucket returns the decoded entry map for bucket id, consulting the
// cache first and falling back to disk. A missing bucket file decodes as
// empty (§4.6: "empty file ⇒ empty map").
func (si *SegmentedIndex) loadBucket(id uint32) (map[string]rangeEntry, error) {
	if entries, ok := si.cache.get(id); ok {
		return entries, nil
	}
	raw, err := os.ReadFile(si.bucketPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			entries := map[string]rangeEntry{}
			si.cache.put(id, entries)
			return entries, nil
		}
		return nil, err
	}
	plain, err := snappy.Decode(nil, raw)
	if err != nil {
		return nil, fmt.Errorf("index: corrupt bucket %04x: %w", id, err)
	}
	entries, err := decodeEntries(plain)
	if err != nil {
		return nil, err
	}
	si.cache.put(id, entries)
	return entries, nil
}

// Get returns the collection proxy for key, loading its bucket on demand.
func (si *SegmentedIndex) Get(key string) (*collection.Proxy, error) {
	entries, err := si.loadBucket(bucketOf(key, si.bucketCount))
	if err != nil {
		return nil, err
	}
	entry, ok := entries[key]
	return si.proxyFor(key, entry, ok), nil
}

// Put registers rodID under key.
func (si *SegmentedIndex) Put(key string, rodID uint64) error {
	entries, err := si.loadBucket(bucketOf(key, si.bucketCount))
	if err != nil {
		return err
	}
	entry, ok := entries[key]
	si.proxyFor(key, entry, ok).Append(rodID, "")
	return nil
}

// Save drains every dirty proxy, groups the updated ranges by bucket,
// merges them into each touched bucket's persisted map, and rewrites only
// the buckets that changed — untouched buckets are never read back from
// disk.
func (si *SegmentedIndex) Save() error {
	if err := os.MkdirAll(si.dir, 0755); err != nil {
		return err
	}
	updated, err := si.drainDirty()
	if err != nil {
		return err
	}
	byBucket := make(map[uint32]map[string]rangeEntry)
	for k, v := range updated {
		id := bucketOf(k, si.bucketCount)
		if byBucket[id] == nil {
			byBucket[id] = map[string]rangeEntry{}
		}
		byBucket[id][k] = v
	}
	for id, changes := range byBucket {
		entries, err := si.loadBucket(id)
		if err != nil {
			return err
		}
		for k, v := range changes {
			entries[k] = v
		}
		plain := encodeEntries(entries)
		compressed := snappy.Encode(nil, plain)
		tmp := si.bucketPath(id) + ".tmp"
		if err := os.WriteFile(tmp, compressed, 0644); err != nil {
			return err
		}
		if err := os.Rename(tmp, si.bucketPath(id)); err != nil {
			return err
		}
		si.cache.put(id, entries)
	}
	return nil
}
