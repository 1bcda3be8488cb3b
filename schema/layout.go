package schema

import (
	"encoding/binary"
	"math"
)

// Slot widths, in bytes, for each kind of inline field (§3 of the spec).
const (
	widthInteger       = 8  // int64
	widthFloat         = 8  // float64
	widthBool          = 1  // native width
	widthString        = 12 // offset uint64 + length uint32
	widthHasOne        = 8  // rod_id uint64
	widthHasOnePoly    = 16 // rod_id uint64 + class_tag uint64
	widthHasMany       = 12 // count uint32 + offset uint64
	widthHasManyPoly   = 12 // identical shape; join area selected by Assoc.Polymorphic
)

// slotKind tags what a laid-out slot holds, for the mustScalar/mustHasOne/
// mustHasMany lookups behind the Put* and read accessors.
type slotKind byte

const (
	slotScalar slotKind = iota
	slotHasOne
	slotHasMany
)

type slot struct {
	kind   slotKind
	offset int
	width  int
	field  Field // valid when kind == slotScalar
	assoc  Assoc // valid when kind == slotHasOne || kind == slotHasMany
}

// Layout is the precomputed fixed-width binary layout for one record type.
// It never changes for the lifetime of an open database — it is derived
// once from the schema.Type and shared by every record of that type.
type Layout struct {
	StructSize int
	slots      []slot
}

// BuildLayout computes the fixed-width struct layout for t. Fields, then
// has_one, then has_many are laid out in declaration order — this matches
// the order fields appear in the YAML metadata (§6) and is part of what
// schema.Type.Equal compares for compatibility.
func BuildLayout(t *Type) *Layout {
	l := &Layout{}
	off := 0
	for _, f := range t.Fields {
		w := scalarWidth(f.Kind)
		l.slots = append(l.slots, slot{kind: slotScalar, offset: off, width: w, field: f})
		off += w
	}
	for _, a := range t.HasOne {
		w := widthHasOne
		if a.Polymorphic {
			w = widthHasOnePoly
		}
		l.slots = append(l.slots, slot{kind: slotHasOne, offset: off, width: w, assoc: a})
		off += w
	}
	for _, a := range t.HasMany {
		w := widthHasMany
		if a.Polymorphic {
			w = widthHasManyPoly
		}
		l.slots = append(l.slots, slot{kind: slotHasMany, offset: off, width: w, assoc: a})
		off += w
	}
	l.StructSize = off
	return l
}

func scalarWidth(k ScalarKind) int {
	switch k {
	case ScalarInteger:
		return widthInteger
	case ScalarFloat:
		return widthFloat
	case ScalarBool:
		return widthBool
	case ScalarString:
		return widthString
	default:
		return 0
	}
}

// ScalarValue is the decoded value of a scalar field: int64, float64, bool,
// or a StringRef.
type ScalarValue interface{}

// StringRef addresses a UTF-8 byte range in the string heap.
type StringRef struct {
	Offset uint64
	Length uint32
}

// HasOneValue is the decoded value of a singular association: the target
// rod_id (0 means null) and, for polymorphic associations, a class tag.
type HasOneValue struct {
	RodID    uint64
	ClassTag uint64 // only meaningful when the association is polymorphic
}

// HasManyValue is the decoded (count, offset) pair addressing a plural
// association's range in the join area.
type HasManyValue struct {
	Count  uint32
	Offset uint64
}

// PutInteger writes an int64 scalar at the named field's slot.
func (l *Layout) PutInteger(buf []byte, name string, v int64) {
	s := l.mustScalar(name)
	binary.LittleEndian.PutUint64(buf[s.offset:], uint64(v))
}

// PutFloat writes a float64 scalar at the named field's slot.
func (l *Layout) PutFloat(buf []byte, name string, v float64) {
	s := l.mustScalar(name)
	binary.LittleEndian.PutUint64(buf[s.offset:], math.Float64bits(v))
}

// PutBool writes a bool scalar at the named field's slot.
func (l *Layout) PutBool(buf []byte, name string, v bool) {
	s := l.mustScalar(name)
	if v {
		buf[s.offset] = 1
	} else {
		buf[s.offset] = 0
	}
}

// PutString writes a string reference at the named field's slot.
func (l *Layout) PutString(buf []byte, name string, ref StringRef) {
	s := l.mustScalar(name)
	binary.LittleEndian.PutUint64(buf[s.offset:], ref.Offset)
	binary.LittleEndian.PutUint32(buf[s.offset+8:], ref.Length)
}

// PutHasOne writes a singular association slot.
func (l *Layout) PutHasOne(buf []byte, name string, v HasOneValue) {
	s := l.mustHasOne(name)
	binary.LittleEndian.PutUint64(buf[s.offset:], v.RodID)
	if s.assoc.Polymorphic {
		binary.LittleEndian.PutUint64(buf[s.offset+8:], v.ClassTag)
	}
}

// PutHasMany writes a plural association slot.
func (l *Layout) PutHasMany(buf []byte, name string, v HasManyValue) {
	s := l.mustHasMany(name)
	binary.LittleEndian.PutUint32(buf[s.offset:], v.Count)
	binary.LittleEndian.PutUint64(buf[s.offset+4:], v.Offset)
}

// Integer reads an int64 scalar.
func (l *Layout) Integer(buf []byte, name string) int64 {
	s := l.mustScalar(name)
	return int64(binary.LittleEndian.Uint64(buf[s.offset:]))
}

// Float reads a float64 scalar.
func (l *Layout) Float(buf []byte, name string) float64 {
	s := l.mustScalar(name)
	return math.Float64frombits(binary.LittleEndian.Uint64(buf[s.offset:]))
}

// Bool reads a bool scalar.
func (l *Layout) Bool(buf []byte, name string) bool {
	s := l.mustScalar(name)
	return buf[s.offset] != 0
}

// String reads a string reference (coordinates only — the caller resolves
// bytes through the string heap).
func (l *Layout) String(buf []byte, name string) StringRef {
	s := l.mustScalar(name)
	return StringRef{
		Offset: binary.LittleEndian.Uint64(buf[s.offset:]),
		Length: binary.LittleEndian.Uint32(buf[s.offset+8:]),
	}
}

// HasOne reads a singular association slot.
func (l *Layout) HasOne(buf []byte, name string) HasOneValue {
	s := l.mustHasOne(name)
	v := HasOneValue{RodID: binary.LittleEndian.Uint64(buf[s.offset:])}
	if s.assoc.Polymorphic {
		v.ClassTag = binary.LittleEndian.Uint64(buf[s.offset+8:])
	}
	return v
}

// HasMany reads a plural association slot.
func (l *Layout) HasMany(buf []byte, name string) HasManyValue {
	s := l.mustHasMany(name)
	return HasManyValue{
		Count:  binary.LittleEndian.Uint32(buf[s.offset:]),
		Offset: binary.LittleEndian.Uint64(buf[s.offset+4:]),
	}
}

func (l *Layout) mustScalar(name string) slot {
	for _, s := range l.slots {
		if s.kind == slotScalar && s.field.Name == name {
			return s
		}
	}
	panic("schema: no such scalar field: " + name)
}

func (l *Layout) mustHasOne(name string) slot {
	for _, s := range l.slots {
		if s.kind == slotHasOne && s.assoc.Name == name {
			return s
		}
	}
	panic("schema: no such has_one association: " + name)
}

func (l *Layout) mustHasMany(name string) slot {
	for _, s := range l.slots {
		if s.kind == slotHasMany && s.assoc.Name == name {
			return s
		}
	}
	panic("schema: no such has_many association: " + name)
}
