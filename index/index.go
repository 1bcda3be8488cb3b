package index

import (
	"sync"

	"github.com/Felmond13/novusdb/collection"
	"github.com/Felmond13/novusdb/storage"
)

// joinResolver adapts a storage.ScalarJoin into a collection.Resolver for
// index-backed proxies. Index ranges are never polymorphic — every range
// belongs to a single record type, the one the index is declared on — so
// resolution always reads plain rod_ids.
type joinResolver struct {
	join     *storage.ScalarJoin
	resolve  func(rodID uint64) (collection.Element, error)
}

func (r *joinResolver) ResolveRange(offset uint64, count uint32, _ bool) ([]collection.Element, error) {
	out := make([]collection.Element, count)
	for i := uint32(0); i < count; i++ {
		id, err := r.join.Get(offset, uint64(i))
		if err != nil {
			return nil, err
		}
		if r.resolve != nil {
			e, err := r.resolve(id)
			if err != nil {
				return nil, err
			}
			out[i] = e
			continue
		}
		out[i] = collection.Element{RodID: id}
	}
	return out, nil
}

// core holds the state common to both backends: the live, possibly-dirty
// collection proxies keyed by canonical key, and a handle on the shared
// scalar join area ranges are allocated from.
type core struct {
	mu       sync.Mutex
	join     *storage.ScalarJoin
	resolver collection.Resolver
	live     map[string]*collection.Proxy
}

func newCore(join *storage.ScalarJoin, resolver collection.Resolver) *core {
	return &core{join: join, resolver: resolver, live: make(map[string]*collection.Proxy)}
}

// proxyFor returns the live proxy for key, constructing one from an
// existing on-disk range (or an empty proxy, §4.6: "get(key) returns an
// empty proxy if absent") the first time the key is touched this session.
func (c *core) proxyFor(key string, existing rangeEntry, hasExisting bool) *collection.Proxy {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.live[key]; ok {
		return p
	}
	var p *collection.Proxy
	if hasExisting {
		p = collection.NewProxy(c.resolver, false, existing.Offset, existing.Count)
	} else {
		p = collection.NewEmptyProxy(c.resolver, false)
	}
	c.live[key] = p
	return p
}

// drainDirty allocates a fresh join range for every key whose proxy is
// dirty and returns the updated (key -> rangeEntry) pairs. Keys whose
// proxy was never touched, or was loaded but never appended to, are left
// out — the caller keeps their previously persisted range untouched
// (§4.6: "rewritten only if the backing collection was mutated").
func (c *core) drainDirty() (map[string]rangeEntry, error) {
	c.mu.Lock()
	keys := make([]string, 0, len(c.live))
	for k := range c.live {
		keys = append(keys, k)
	}
	c.mu.Unlock()

	updated := make(map[string]rangeEntry)
	for _, k := range keys {
		c.mu.Lock()
		p := c.live[k]
		c.mu.Unlock()
		if !p.Dirty() {
			continue
		}
		elems, err := p.Drain()
		if err != nil {
			return nil, err
		}
		offset, err := c.join.Allocate(uint64(len(elems)))
		if err != nil {
			return nil, err
		}
		for i, e := range elems {
			if err := c.join.Set(offset, uint64(i), e.RodID); err != nil {
				return nil, err
			}
		}
		updated[k] = rangeEntry{Offset: offset, Count: uint32(len(elems))}
	}
	return updated, nil
}
