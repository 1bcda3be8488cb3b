package index

import "testing"

func TestEncodeDecodeEntriesRoundTrip(t *testing.T) {
	want := map[string]rangeEntry{
		"s:alice": {Offset: 0, Count: 3},
		"s:bob":   {Offset: 3, Count: 1},
		"i:00000000000000000042": {Offset: 4, Count: 7},
	}
	data := encodeEntries(want)
	got, err := decodeEntries(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("got %d entries, want %d", len(got), len(want))
	}
	for k, v := range want {
		if got[k] != v {
			t.Fatalf("key %q: got %+v, want %+v", k, got[k], v)
		}
	}
}

func TestDecodeEntriesEmpty(t *testing.T) {
	got, err := decodeEntries(nil)
	if err != nil {
		t.Fatalf("decode empty: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("want empty map, got %d entries", len(got))
	}
}

func TestDecodeEntriesTruncated(t *testing.T) {
	data := encodeEntries(map[string]rangeEntry{"s:x": {Offset: 1, Count: 1}})
	if _, err := decodeEntries(data[:len(data)-2]); err == nil {
		t.Fatalf("want error decoding truncated entries")
	}
}

func TestKeyOfOrdersIntegersNumerically(t *testing.T) {
	a := KeyOf(int64(9))
	b := KeyOf(int64(10))
	if !(a < b) {
		t.Fatalf("want KeyOf(9) < KeyOf(10) lexicographically, got %q >= %q", a, b)
	}
}

func TestKeyOfSeparatesKindsByPrefix(t *testing.T) {
	if KeyOf("1") == KeyOf(int64(1)) {
		t.Fatalf("string and integer keys must not collide")
	}
}
