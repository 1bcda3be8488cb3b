package index

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/Felmond13/novusdb/collection"
	"github.com/Felmond13/novusdb/schema"
	"github.com/Felmond13/novusdb/storage"
)

// Index is the backend-agnostic surface the controller drives: canonical
// key in, proxy out, explicit Save to persist whatever got dirtied this
// session (§4.6).
type Index interface {
	Get(key string) (*collection.Proxy, error)
	Put(key string, rodID uint64) error
	Save() error
}

// flatAdapter makes FlatIndex satisfy Index (its Get/Put never fail).
type flatAdapter struct{ *FlatIndex }

func (a flatAdapter) Get(key string) (*collection.Proxy, error) { return a.FlatIndex.Get(key), nil }
func (a flatAdapter) Put(key string, rodID uint64) error        { a.FlatIndex.Put(key, rodID); return nil }
func (a flatAdapter) Save() error                               { return a.FlatIndex.Save() }

// indexKey identifies one declared index by the type and field it indexes.
type indexKey struct {
	typeName string
	field    string
}

// Manager owns every open index for a database, indexed by (type, field),
// mirroring the teacher's original index.Manager responsibilities
// (CreateIndex/OpenIndex/DropIndex/GetIndex) adapted from a B+Tree-per-key
// model to the flat/segmented range-map model of §4.6.
type Manager struct {
	mu        sync.Mutex
	dir       string
	join      *storage.ScalarJoin
	entries   map[indexKey]Index
	cacheSize int
}

// NewManager creates a manager rooted at dir (typically the database
// directory), allocating ranges from join. cacheSize configures every
// segmented index opened through this manager's bucket LRU (§4.6,
// db.WithPageCacheSize); callers that don't care can pass
// DefaultCacheSize.
func NewManager(dir string, join *storage.ScalarJoin, cacheSize int) *Manager {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	return &Manager{dir: dir, join: join, entries: make(map[indexKey]Index), cacheSize: cacheSize}
}

// DefaultCacheSize is the bucket LRU size used when no explicit
// db.WithPageCacheSize is configured.
const DefaultCacheSize = defaultBucketCacheSize

func (m *Manager) pathFor(typeName, field string) string {
	return filepath.Join(m.dir, fmt.Sprintf("%s_%s", typeName, field))
}

// OpenIndex loads (or lazily prepares) the index for typeName.field,
// choosing the flat or segmented backend per prop.Kind.
func (m *Manager) OpenIndex(typeName string, prop schema.IndexedProperty, resolver collection.Resolver) (Index, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := indexKey{typeName: typeName, field: prop.Field}
	if idx, ok := m.entries[key]; ok {
		return idx, nil
	}

	var idx Index
	switch prop.Kind {
	case schema.IndexSegmented:
		idx = NewSegmentedIndex(m.pathFor(typeName, prop.Field)+".d", m.join, resolver, m.cacheSize)
	default:
		fi, err := LoadFlatIndex(m.pathFor(typeName, prop.Field)+".idx", m.join, resolver)
		if err != nil {
			return nil, err
		}
		idx = flatAdapter{fi}
	}
	m.entries[key] = idx
	return idx, nil
}

// GetIndex returns an already-open index, or false if typeName.field has
// not been opened this session.
func (m *Manager) GetIndex(typeName, field string) (Index, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx, ok := m.entries[indexKey{typeName: typeName, field: field}]
	return idx, ok
}

// GetIndexesForType returns every open index belonging to typeName.
func (m *Manager) GetIndexesForType(typeName string) []Index {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Index
	for k, idx := range m.entries {
		if k.typeName == typeName {
			out = append(out, idx)
		}
	}
	return out
}

// SaveAll persists every open index, stopping at the first error.
func (m *Manager) SaveAll() error {
	m.mu.Lock()
	indices := make([]Index, 0, len(m.entries))
	for _, idx := range m.entries {
		indices = append(indices, idx)
	}
	m.mu.Unlock()

	for _, idx := range indices {
		if err := idx.Save(); err != nil {
			return err
		}
	}
	return nil
}

// Drop forgets typeName.field's open index. The on-disk file, if any, is
// left for the caller (typically a migration) to remove explicitly.
func (m *Manager) Drop(typeName, field string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, indexKey{typeName: typeName, field: field})
}

// DropAllForType forgets every open index belonging to typeName, e.g. when
// a type is dropped by a migration.
func (m *Manager) DropAllForType(typeName string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.entries {
		if k.typeName == typeName {
			delete(m.entries, k)
		}
	}
}
