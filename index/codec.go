// Package index implements the flat and segmented key -> id-set backends
// of §4.6: one monolithic file per index, or a sharded, lazily loaded
// directory of buckets for indices too large to hold fully in memory.
package index

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// rangeEntry is the on-disk representation of an index entry: a
// contiguous range in the scalar join area (§4.6 — "Values in the on-disk
// form are always (offset, size)").
type rangeEntry struct {
	Offset uint64
	Count  uint32
}

// encodeEntries serializes a key->rangeEntry map using the same
// length-prefixed binary style as the teacher's document codec
// (storage/document.go's Encode/Decode) rather than reaching for a
// generic serialization library — none appears anywhere in the corpus.
//
// Format: [count:uint32] then, per entry: [keyLen:uint16][key bytes]
// [offset:uint64][count:uint32].
func encodeEntries(m map[string]rangeEntry) []byte {
	buf := make([]byte, 4, 64)
	binary.LittleEndian.PutUint32(buf, uint32(len(m)))

	for k, v := range m {
		tmp := make([]byte, 2)
		binary.LittleEndian.PutUint16(tmp, uint16(len(k)))
		buf = append(buf, tmp...)
		buf = append(buf, k...)

		entry := make([]byte, 12)
		binary.LittleEndian.PutUint64(entry, v.Offset)
		binary.LittleEndian.PutUint32(entry[8:], v.Count)
		buf = append(buf, entry...)
	}
	return buf
}

func decodeEntries(data []byte) (map[string]rangeEntry, error) {
	if len(data) == 0 {
		return map[string]rangeEntry{}, nil
	}
	if len(data) < 4 {
		return nil, errors.New("index: truncated entry count")
	}
	n := binary.LittleEndian.Uint32(data)
	off := 4
	out := make(map[string]rangeEntry, n)

	for i := uint32(0); i < n; i++ {
		if off+2 > len(data) {
			return nil, fmt.Errorf("index: truncated key length at entry %d", i)
		}
		klen := int(binary.LittleEndian.Uint16(data[off:]))
		off += 2
		if off+klen+12 > len(data) {
			return nil, fmt.Errorf("index: truncated entry %d", i)
		}
		key := string(data[off : off+klen])
		off += klen
		entry := rangeEntry{
			Offset: binary.LittleEndian.Uint64(data[off:]),
			Count:  binary.LittleEndian.Uint32(data[off+8:]),
		}
		off += 12
		out[key] = entry
	}
	return out, nil
}

// KeyOf canonicalizes a scalar field value into a lexicographically
// comparable index key, following the same tagged-prefix approach as the
// teacher's index.ValueToKey: a type tag prefix keeps values of different
// kinds from ever colliding, and integers are zero-padded so that
// lexicographic and numeric order agree for non-negative values. Negative
// integers sort before non-negative ones but not numerically among
// themselves ("-…05" sorts before "-…10").
func KeyOf(v interface{}) string {
	switch val := v.(type) {
	case string:
		return "s:" + val
	case int64:
		return fmt.Sprintf("i:%020d", val)
	case float64:
		return fmt.Sprintf("f:%024.15e", val)
	case bool:
		if val {
			return "b:1"
		}
		return "b:0"
	default:
		return fmt.Sprintf("?:%v", val)
	}
}
