// Package collection implements the lazy view over a join-area range that
// backs every plural association and every index lookup result (§4.5).
package collection

import "sync"

// Element is one resolved slot of a proxy: the target rod_id, its type
// name (only meaningful for polymorphic proxies) and whether it is a null
// entry (rod_id == 0, scenario 4).
type Element struct {
	RodID uint64
	Class string // resolved type name; empty for non-polymorphic proxies
}

// Resolver resolves join-area coordinates into Elements. It is implemented
// by the database controller, which knows how to turn a class_tag back
// into a type name and how to materialize a record by (type, rod_id).
type Resolver interface {
	// ResolveRange reads count elements starting at offset from the join
	// area identified by polymorphic.
	ResolveRange(offset uint64, count uint32, polymorphic bool) ([]Element, error)
}

// appended is one element added to a proxy in memory, not yet present in
// the on-disk join range.
type appended struct {
	elem Element
}

// Proxy is a lazy view over a join range (offset, originalSize) plus an
// in-memory append buffer (§4.5). It never itself decides whether the
// association is polymorphic — that is fixed at construction — and it
// never owns the records it resolves: Get's cache is weak in spirit (it is
// cleared on Invalidate and is never consulted to keep a record alive
// beyond the call that produced it).
type Proxy struct {
	mu          sync.Mutex
	resolver    Resolver
	polymorphic bool

	offset       uint64
	originalSize uint32
	appendBuf    []appended

	dirty bool // explicit flag resolving the spec's index-rewrite Open Question

	cache map[int]any // index -> materialized record, cleared on Invalidate
}

// NewProxy constructs a proxy over an existing on-disk range.
func NewProxy(resolver Resolver, polymorphic bool, offset uint64, originalSize uint32) *Proxy {
	return &Proxy{resolver: resolver, polymorphic: polymorphic, offset: offset, originalSize: originalSize}
}

// NewEmptyProxy constructs a proxy with no on-disk range yet (e.g. a
// freshly constructed record's plural association before its first
// store, or Index.Get for an absent key, §4.6).
func NewEmptyProxy(resolver Resolver, polymorphic bool) *Proxy {
	return &Proxy{resolver: resolver, polymorphic: polymorphic}
}

// Size returns originalSize + len(appendBuf).
func (p *Proxy) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return int(p.originalSize) + len(p.appendBuf)
}

// Polymorphic reports whether this proxy's join elements carry a class tag.
func (p *Proxy) Polymorphic() bool { return p.polymorphic }

// Dirty reports whether Append was ever called on this proxy since
// construction — the explicit flag that decides, in the index subsystem,
// whether a key's backing range must be rewritten on save (§4.6, §9 Open
// Question).
func (p *Proxy) Dirty() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dirty
}

// Append adds a target to the in-memory buffer and marks the proxy dirty.
func (p *Proxy) Append(rodID uint64, class string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.appendBuf = append(p.appendBuf, appended{Element{RodID: rodID, Class: class}})
	p.dirty = true
}

// Get resolves the element at index i: from the on-disk range when i is
// within originalSize, from the append buffer otherwise.
func (p *Proxy) Get(i int) (Element, error) {
	p.mu.Lock()
	if i < int(p.originalSize) {
		if cached, ok := p.cache[i]; ok {
			p.mu.Unlock()
			return cached.(Element), nil
		}
		p.mu.Unlock()
		elems, err := p.resolver.ResolveRange(p.offset+uint64(i), 1, p.polymorphic)
		if err != nil {
			return Element{}, err
		}
		e := elems[0]
		p.mu.Lock()
		if p.cache == nil {
			p.cache = make(map[int]any)
		}
		p.cache[i] = e
		p.mu.Unlock()
		return e, nil
	}
	defer p.mu.Unlock()
	idx := i - int(p.originalSize)
	if idx < 0 || idx >= len(p.appendBuf) {
		return Element{}, errIndexOutOfRange
	}
	return p.appendBuf[idx].elem, nil
}

// EachID yields every target rod_id in order, on-disk range first, then
// the append buffer (§4.5: "each_id yields all ids (including appended) in
// order").
func (p *Proxy) EachID(fn func(i int, e Element) error) error {
	n := p.Size()
	for i := 0; i < n; i++ {
		e, err := p.Get(i)
		if err != nil {
			return err
		}
		if err := fn(i, e); err != nil {
			return err
		}
	}
	return nil
}

// Invalidate clears the materialized-record cache. It never extends
// anything's lifetime — it is purely an optimization and dropping it is
// always safe.
func (p *Proxy) Invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cache = nil
}

// Drain returns every element (on-disk range resolved, plus the append
// buffer) in order, for writing a fresh, compacted join range — used when
// an index rewrites a dirty key's backing range (§4.6).
func (p *Proxy) Drain() ([]Element, error) {
	n := p.Size()
	out := make([]Element, 0, n)
	err := p.EachID(func(_ int, e Element) error {
		out = append(out, e)
		return nil
	})
	return out, err
}

var errIndexOutOfRange = proxyError("collection: index out of range")

type proxyError string

func (e proxyError) Error() string { return string(e) }
