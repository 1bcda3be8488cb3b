package db

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Felmond13/novusdb/collection"
	"github.com/Felmond13/novusdb/index"
	"github.com/Felmond13/novusdb/schema"
	"github.com/Felmond13/novusdb/storage"
)

const (
	metaFileName       = "database.yml"
	stringHeapFileName = "_string_element.dat"
	scalarJoinFileName = "_join_element.dat"
	polyJoinFileName   = "_polymorphic_join_element.dat"
)

// perType bundles the schema, computed layout and open record store for
// one registered type.
type perType struct {
	typ    *schema.Type
	layout *schema.Layout
	store  *storage.RecordStore
}

// Controller is the process-wide, single-writer database handle produced
// by Create/Open (§4.7). It owns every open file for the database and is
// the only thing that may mutate them.
type Controller struct {
	mu  sync.Mutex
	cfg *Config

	path string
	meta *schema.Metadata

	lock *storage.DirLock

	types       map[string]*perType
	classToType map[uint64]string

	strings    *storage.StringHeap
	scalarJoin *storage.ScalarJoin
	polyJoin   *storage.PolyJoin
	indices    *index.Manager
	resolver   *recordResolver
	pending    *pendingTracker

	open bool
}

func (c *Controller) trace(format string, args ...any) {
	if c.cfg.Debug {
		fmt.Fprintf(os.Stderr, "db: "+format+"\n", args...)
	}
}

// Create initializes a fresh database at path from the registry supplied
// via WithGenerate (§4.7 "generate"). The directory must not already be
// open by another process.
func Create(path string, opts ...Option) (*Controller, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o(cfg)
	}
	if cfg.Generate == nil {
		return nil, newErr(Configuration, ErrIncompatibleSchema, "Create requires WithGenerate")
	}

	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, err
	}
	lock, err := storage.LockDirectory(path)
	if err != nil {
		return nil, newErr(Lifecycle, ErrAlreadyOpen, "%v", err)
	}

	sorted, err := cfg.Generate.TopoSorted()
	if err != nil {
		lock.Unlock()
		return nil, newErr(Configuration, ErrIncompatibleSchema, "%v", err)
	}

	if err := purgeStaleFiles(path, sorted, cfg.Debug); err != nil {
		lock.Unlock()
		return nil, err
	}

	now := time.Now().UTC()
	meta := &schema.Metadata{
		Rod:   schema.RodMeta{Version: schema.EngineVersion.String(), CreatedAt: now, UpdatedAt: now},
		Types: map[string]*schema.TypeMeta{},
	}

	c := &Controller{
		cfg:         cfg,
		path:        path,
		meta:        meta,
		lock:        lock,
		types:       make(map[string]*perType),
		classToType: make(map[uint64]string),
		pending:     newPendingTracker(),
	}
	c.resolver = &recordResolver{c: c}

	for _, t := range sorted {
		meta.Types[t.Name] = schema.FromType(t, 0)
		c.classToType[schema.ClassTag(t.Name)] = t.Name

		layout := schema.BuildLayout(t)
		pf, err := storage.OpenPagedFile(filepath.Join(path, t.Name+".dat"), false)
		if err != nil {
			c.closeFilesBestEffort()
			lock.Unlock()
			return nil, err
		}
		c.types[t.Name] = &perType{typ: t, layout: layout, store: storage.OpenRecordStore(pf, layout.StructSize, 0)}
	}

	if err := c.openSharedAreas(false); err != nil {
		c.closeFilesBestEffort()
		lock.Unlock()
		return nil, err
	}
	c.indices = index.NewManager(path, c.scalarJoin, cfg.PageCacheSize)

	if err := meta.Save(filepath.Join(path, metaFileName)); err != nil {
		c.closeFilesBestEffort()
		lock.Unlock()
		return nil, err
	}

	c.open = true
	return c, nil
}

// Open opens an existing database at path, enforcing the version
// compatibility gate (§4.8) and, unless a migration is configured, the
// schema compatibility gate against the registry supplied via WithGenerate.
func Open(path string, opts ...Option) (*Controller, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o(cfg)
	}

	meta, err := schema.LoadMetadata(filepath.Join(path, metaFileName))
	if err != nil {
		return nil, newErr(Lifecycle, ErrNotOpen, "%v", err)
	}

	fileVersion, err := schema.ParseVersion(meta.Rod.Version)
	if err != nil {
		return nil, newErr(Compatibility, ErrIncompatibleVersion, "%v", err)
	}
	if !fileVersion.Compatible(schema.EngineVersion) {
		return nil, newErr(Compatibility, ErrIncompatibleVersion,
			"file version %s is not compatible with engine version %s", fileVersion, schema.EngineVersion)
	}

	var lock *storage.DirLock
	if !cfg.ReadOnly {
		lock, err = storage.LockDirectory(path)
		if err != nil {
			return nil, newErr(Lifecycle, ErrAlreadyOpen, "%v", err)
		}
	}

	var types []*schema.Type
	if cfg.Generate != nil {
		types = cfg.Generate.Types()
		if cfg.Migrate == nil {
			for _, t := range types {
				tm, ok := meta.Types[t.Name]
				if !ok || !tm.ToType(t.Name).Equal(t) {
					if lock != nil {
						lock.Unlock()
					}
					return nil, newErr(Compatibility, ErrIncompatibleSchema, "type %q does not match stored metadata", t.Name)
				}
			}
		}
	} else {
		for name, tm := range meta.Types {
			types = append(types, tm.ToType(name))
		}
	}

	c := &Controller{
		cfg:         cfg,
		path:        path,
		meta:        meta,
		lock:        lock,
		types:       make(map[string]*perType),
		classToType: make(map[uint64]string),
		pending:     newPendingTracker(),
	}
	c.resolver = &recordResolver{c: c}

	for _, t := range types {
		tm := meta.Types[t.Name]
		var count uint64
		if tm != nil {
			count = tm.Count
		}
		c.classToType[schema.ClassTag(t.Name)] = t.Name

		layout := schema.BuildLayout(t)
		pf, err := storage.OpenPagedFile(filepath.Join(path, t.Name+".dat"), cfg.ReadOnly)
		if err != nil {
			c.closeFilesBestEffort()
			if lock != nil {
				lock.Unlock()
			}
			return nil, err
		}
		c.types[t.Name] = &perType{typ: t, layout: layout, store: storage.OpenRecordStore(pf, layout.StructSize, count)}
	}

	if err := c.openSharedAreas(cfg.ReadOnly); err != nil {
		c.closeFilesBestEffort()
		if lock != nil {
			lock.Unlock()
		}
		return nil, err
	}
	c.indices = index.NewManager(path, c.scalarJoin, cfg.PageCacheSize)

	c.open = true
	return c, nil
}

// purgeStaleFiles removes every on-disk file a fresh Create must not inherit
// from a prior database at the same path (spec.md: "For each registered
// type, purge stale data and index files, (re)build its layout from the
// schema"): each type's record store, every index file or bucket directory
// its declared indexed properties would use, and the shared string heap and
// join areas, which must also start empty for a freshly generated schema.
// With debug set, every removal is traced to stderr.
func purgeStaleFiles(path string, types []*schema.Type, debug bool) error {
	trace := func(p string) {
		if debug {
			fmt.Fprintf(os.Stderr, "db: removing %s\n", p)
		}
	}
	removeIfExists := func(p string) error {
		trace(p)
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	}
	removeAllIfExists := func(p string) error {
		trace(p)
		if err := os.RemoveAll(p); err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	}

	for _, t := range types {
		if err := removeIfExists(filepath.Join(path, t.Name+".dat")); err != nil {
			return err
		}
		for _, ip := range t.Indexed {
			base := filepath.Join(path, fmt.Sprintf("%s_%s", t.Name, ip.Field))
			if err := removeIfExists(base + ".idx"); err != nil {
				return err
			}
			if err := removeAllIfExists(base + ".d"); err != nil {
				return err
			}
		}
	}

	for _, name := range []string{stringHeapFileName, scalarJoinFileName, polyJoinFileName} {
		if err := removeIfExists(filepath.Join(path, name)); err != nil {
			return err
		}
	}
	return nil
}

func (c *Controller) openSharedAreas(readOnly bool) error {
	spf, err := storage.OpenPagedFile(filepath.Join(c.path, stringHeapFileName), readOnly)
	if err != nil {
		return err
	}
	c.strings = storage.OpenStringHeap(spf, c.meta.Rod.StringHeapTail)

	jpf, err := storage.OpenPagedFile(filepath.Join(c.path, scalarJoinFileName), readOnly)
	if err != nil {
		return err
	}
	c.scalarJoin = storage.OpenScalarJoin(jpf, c.meta.Rod.ScalarJoinTail)

	ppf, err := storage.OpenPagedFile(filepath.Join(c.path, polyJoinFileName), readOnly)
	if err != nil {
		return err
	}
	c.polyJoin = storage.OpenPolyJoin(ppf, c.meta.Rod.PolyJoinTail)
	return nil
}

func (c *Controller) closeFilesBestEffort() {
	for _, pt := range c.types {
		if pt.store != nil {
			pt.store.Close()
		}
	}
	if c.strings != nil {
		c.strings.Close()
	}
	if c.scalarJoin != nil {
		c.scalarJoin.Close()
	}
	if c.polyJoin != nil {
		c.polyJoin.Close()
	}
}

// ForgetType drops a type from the live session without touching its
// on-disk file: the type's store is closed and removed from both the open
// type table and the in-memory metadata, so a subsequent Close neither
// writes back nor expects a record store for it. Used by the migration
// driver to retire a shadow legacy type once it has been drained (§4.9
// step 4).
func (c *Controller) ForgetType(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if pt, ok := c.types[name]; ok {
		pt.store.Close()
		delete(c.types, name)
	}
	delete(c.meta.Types, name)
}

// SkipIndicesOnClose overrides whether the next Close rewrites dirty
// indices, for the migration driver's intermediate close (§4.9 step 5).
// Open does not rebuild indices, so index entries added before a skipped
// close are not persisted.
func (c *Controller) SkipIndicesOnClose(skip bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg.SkipIndices = skip
}

// Close persists metadata and dirty indices, verifies no dangling
// references remain, and releases the directory lock (§4.7, §7).
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return newErr(Lifecycle, ErrNotOpen, "Close called on a database that is not open")
	}

	if !c.cfg.ReadOnly {
		if err := c.checkDangling(); err != nil {
			return err
		}
		if !c.cfg.SkipIndices {
			if err := c.indices.SaveAll(); err != nil {
				return err
			}
		}
		for name, pt := range c.types {
			c.meta.Types[name] = schema.FromType(pt.typ, pt.store.Count())
		}
		c.meta.Rod.UpdatedAt = time.Now().UTC()
		c.meta.Rod.StringHeapTail = c.strings.Tail()
		c.meta.Rod.ScalarJoinTail = c.scalarJoin.Tail()
		c.meta.Rod.PolyJoinTail = c.polyJoin.Tail()
		if err := c.meta.Save(filepath.Join(c.path, metaFileName)); err != nil {
			return err
		}
	}

	c.closeFilesBestEffort()
	if c.lock != nil {
		c.lock.Unlock()
	}
	c.open = false
	return nil
}

// checkDangling resolves every pending reference whose target now exists
// and fails with ErrDanglingReferences if any remain unresolved.
func (c *Controller) checkDangling() error {
	snapshot := c.pending.Snapshot()
	var stuck []refKey
	for k, ref := range snapshot {
		target, ok := c.types[ref.Type]
		if ok && ref.RodID <= target.store.Count() {
			c.pending.Resolve(k.holderType, k.holderID, k.assoc)
			continue
		}
		stuck = append(stuck, k)
	}
	if len(stuck) > 0 {
		return newErr(Referential, ErrDanglingReferences, "%d reference(s) never resolved, e.g. %+v", len(stuck), stuck[0])
	}
	return nil
}

// Store encodes rec as a new record of typeName and appends it, returning
// its newly assigned rod_id (§4.2). Ordering guarantee: consecutive Store
// calls for the same type yield strictly increasing rod_ids.
func (c *Controller) Store(typeName string, rec Record) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return 0, newErr(Lifecycle, ErrNotOpen, "Store called on a database that is not open")
	}
	if c.cfg.ReadOnly {
		return 0, newErr(Lifecycle, ErrReadonly, "Store called on a read-only database")
	}
	pt, ok := c.types[typeName]
	if !ok {
		return 0, newErr(Configuration, ErrIncompatibleSchema, "unknown type %q", typeName)
	}

	buf := make([]byte, pt.layout.StructSize)

	for _, f := range pt.typ.Fields {
		v := rec[f.Name]
		switch f.Kind {
		case schema.ScalarInteger:
			pt.layout.PutInteger(buf, f.Name, toInt64(v))
		case schema.ScalarFloat:
			pt.layout.PutFloat(buf, f.Name, toFloat64(v))
		case schema.ScalarBool:
			b, _ := v.(bool)
			pt.layout.PutBool(buf, f.Name, b)
		case schema.ScalarString:
			s, _ := v.(string)
			off, length, err := c.strings.Intern(s)
			if err != nil {
				return 0, err
			}
			pt.layout.PutString(buf, f.Name, schema.StringRef{Offset: off, Length: length})
		}
	}

	for _, a := range pt.typ.HasOne {
		ref, _ := rec[a.Name].(Ref)
		hv := schema.HasOneValue{RodID: ref.RodID}
		if a.Polymorphic && !ref.isNull() {
			hv.ClassTag = schema.ClassTag(ref.Type)
		}
		pt.layout.PutHasOne(buf, a.Name, hv)
	}

	for _, a := range pt.typ.HasMany {
		refs, _ := rec[a.Name].([]Ref)
		offset, count, err := c.allocateJoinRange(a.Polymorphic, refs)
		if err != nil {
			return 0, err
		}
		pt.layout.PutHasMany(buf, a.Name, schema.HasManyValue{Count: count, Offset: offset})
	}

	rodID, err := pt.store.Append(buf)
	if err != nil {
		return 0, err
	}

	for _, a := range pt.typ.HasOne {
		ref, _ := rec[a.Name].(Ref)
		if !a.Polymorphic && !ref.isNull() {
			ref.Type = a.Target
		}
		c.pending.Mark(typeName, rodID, a.Name, ref)
	}

	for _, a := range pt.typ.HasMany {
		refs, _ := rec[a.Name].([]Ref)
		for i, ref := range refs {
			if !a.Polymorphic && !ref.isNull() {
				ref.Type = a.Target
			}
			c.pending.Mark(typeName, rodID, fmt.Sprintf("%s[%d]", a.Name, i), ref)
		}
	}

	for _, ip := range pt.typ.Indexed {
		f, _ := pt.typ.FieldByName(ip.Field)
		idx, err := c.indices.OpenIndex(typeName, ip, c.resolver)
		if err != nil {
			return 0, err
		}
		if err := idx.Put(index.KeyOf(scalarKeyValue(f.Kind, rec[ip.Field])), rodID); err != nil {
			return 0, err
		}
	}

	return rodID, nil
}

func (c *Controller) allocateJoinRange(polymorphic bool, refs []Ref) (offset uint64, count uint32, err error) {
	n := uint64(len(refs))
	if polymorphic {
		offset, err = c.polyJoin.Allocate(n)
		if err != nil {
			return 0, 0, err
		}
		for i, r := range refs {
			tag := uint64(0)
			if !r.isNull() {
				tag = schema.ClassTag(r.Type)
			}
			if err := c.polyJoin.Set(offset, uint64(i), r.RodID, tag); err != nil {
				return 0, 0, err
			}
		}
		return offset, uint32(n), nil
	}
	offset, err = c.scalarJoin.Allocate(n)
	if err != nil {
		return 0, 0, err
	}
	for i, r := range refs {
		if err := c.scalarJoin.Set(offset, uint64(i), r.RodID); err != nil {
			return 0, 0, err
		}
	}
	return offset, uint32(n), nil
}

// Read materializes the record typeName[rodID] (§4.2). Plural associations
// come back as a *collection.Proxy, lazily resolved against the shared
// join area (§4.5).
func (c *Controller) Read(typeName string, rodID uint64) (Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return nil, newErr(Lifecycle, ErrNotOpen, "Read called on a database that is not open")
	}
	pt, ok := c.types[typeName]
	if !ok {
		return nil, newErr(Configuration, ErrIncompatibleSchema, "unknown type %q", typeName)
	}
	buf, err := pt.store.Read(rodID)
	if err != nil {
		return nil, newErr(Integrity, ErrOutOfRange, "%v", err)
	}

	rec := Record{}
	for _, f := range pt.typ.Fields {
		switch f.Kind {
		case schema.ScalarInteger:
			rec[f.Name] = pt.layout.Integer(buf, f.Name)
		case schema.ScalarFloat:
			rec[f.Name] = pt.layout.Float(buf, f.Name)
		case schema.ScalarBool:
			rec[f.Name] = pt.layout.Bool(buf, f.Name)
		case schema.ScalarString:
			ref := pt.layout.String(buf, f.Name)
			s, err := c.strings.Read(ref.Offset, ref.Length)
			if err != nil {
				return nil, newErr(Integrity, ErrCorruptLayout, "%v", err)
			}
			rec[f.Name] = s
		}
	}

	for _, a := range pt.typ.HasOne {
		hv := pt.layout.HasOne(buf, a.Name)
		if hv.RodID == 0 {
			rec[a.Name] = nil
			continue
		}
		target := a.Target
		if a.Polymorphic {
			target = c.classToType[hv.ClassTag]
		}
		rec[a.Name] = Ref{Type: target, RodID: hv.RodID}
	}

	for _, a := range pt.typ.HasMany {
		hv := pt.layout.HasMany(buf, a.Name)
		rec[a.Name] = collection.NewProxy(c.resolver, a.Polymorphic, hv.Offset, hv.Count)
	}

	return rec, nil
}

// FindBy returns every rod_id in typeName whose field equals value, via the
// declared index for that field (§4.6).
func (c *Controller) FindBy(typeName, field string, value any) ([]uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return nil, newErr(Lifecycle, ErrNotOpen, "FindBy called on a database that is not open")
	}
	pt, ok := c.types[typeName]
	if !ok {
		return nil, newErr(Configuration, ErrIncompatibleSchema, "unknown type %q", typeName)
	}
	kind, ok := pt.typ.IndexedKind(field)
	if !ok {
		return nil, newErr(Configuration, ErrInvalidIndexKind, "field %q of %q is not indexed", field, typeName)
	}
	idx, err := c.indices.OpenIndex(typeName, schema.IndexedProperty{Field: field, Kind: kind}, c.resolver)
	if err != nil {
		return nil, err
	}
	proxy, err := idx.Get(index.KeyOf(value))
	if err != nil {
		return nil, err
	}
	var ids []uint64
	err = proxy.EachID(func(_ int, e collection.Element) error {
		ids = append(ids, e.RodID)
		return nil
	})
	return ids, err
}

// Count returns the number of stored records of typeName.
func (c *Controller) Count(typeName string) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	pt, ok := c.types[typeName]
	if !ok {
		return 0, newErr(Configuration, ErrIncompatibleSchema, "unknown type %q", typeName)
	}
	return pt.store.Count(), nil
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	default:
		return 0
	}
}

func toFloat64(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	default:
		return 0
	}
}

func scalarKeyValue(kind schema.ScalarKind, v any) any {
	switch kind {
	case schema.ScalarInteger:
		return toInt64(v)
	case schema.ScalarFloat:
		return toFloat64(v)
	case schema.ScalarBool:
		b, _ := v.(bool)
		return b
	default:
		s, _ := v.(string)
		return s
	}
}
