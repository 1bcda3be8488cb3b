package index

import (
	"os"

	"github.com/Felmond13/novusdb/collection"
	"github.com/Felmond13/novusdb/storage"
)

// FlatIndex is one monolithic file per index: the whole key -> range map
// is loaded into memory on open and overwritten atomically on save (§4.6).
// Lookup is O(1) once loaded.
type FlatIndex struct {
	*core
	path    string
	entries map[string]rangeEntry
}

// NewFlatIndex creates an empty flat index backed by path.
func NewFlatIndex(path string, join *storage.ScalarJoin, resolver collection.Resolver) *FlatIndex {
	return &FlatIndex{core: newCore(join, resolver), path: path, entries: map[string]rangeEntry{}}
}

// LoadFlatIndex reads path into memory. A missing file is treated as an
// empty map (§4.6: "empty file ⇒ empty map").
func LoadFlatIndex(path string, join *storage.ScalarJoin, resolver collection.Resolver) (*FlatIndex, error) {
	fi := NewFlatIndex(path, join, resolver)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fi, nil
		}
		return nil, err
	}
	entries, err := decodeEntries(data)
	if err != nil {
		return nil, err
	}
	fi.entries = entries
	return fi, nil
}

// Get returns the collection proxy for key, empty if absent.
func (fi *FlatIndex) Get(key string) *collection.Proxy {
	entry, ok := fi.entries[key]
	return fi.proxyFor(key, entry, ok)
}

// Put registers rodID under key, creating or extending key's proxy.
func (fi *FlatIndex) Put(key string, rodID uint64) {
	entry, ok := fi.entries[key]
	fi.proxyFor(key, entry, ok).Append(rodID, "")
}

// Save drains every dirty proxy into a fresh join range, merges the
// updated ranges into the persisted map, and overwrites path.
func (fi *FlatIndex) Save() error {
	updated, err := fi.drainDirty()
	if err != nil {
		return err
	}
	for k, v := range updated {
		fi.entries[k] = v
	}
	tmp := fi.path + ".tmp"
	if err := os.WriteFile(tmp, encodeEntries(fi.entries), 0644); err != nil {
		return err
	}
	return os.Rename(tmp, fi.path)
}

// AllEntries returns a snapshot of the persisted key -> range map, for
// diagnostics and tests.
func (fi *FlatIndex) AllEntries() map[string]rangeEntry {
	out := make(map[string]rangeEntry, len(fi.entries))
	for k, v := range fi.entries {
		out[k] = v
	}
	return out
}
