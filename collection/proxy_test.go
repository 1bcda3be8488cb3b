package collection

import "testing"

type fakeResolver struct {
	elems map[uint64]Element
}

func (r *fakeResolver) ResolveRange(offset uint64, count uint32, polymorphic bool) ([]Element, error) {
	out := make([]Element, count)
	for i := uint32(0); i < count; i++ {
		out[i] = r.elems[offset+uint64(i)]
	}
	return out, nil
}

func TestProxySizeAndOrder(t *testing.T) {
	r := &fakeResolver{elems: map[uint64]Element{
		100: {RodID: 1},
		101: {RodID: 2},
		102: {RodID: 3},
	}}
	p := NewProxy(r, false, 100, 3)
	p.Append(4, "")
	p.Append(5, "")

	if p.Size() != 5 {
		t.Fatalf("want size 5, got %d", p.Size())
	}

	var order []uint64
	p.EachID(func(_ int, e Element) error {
		order = append(order, e.RodID)
		return nil
	})
	want := []uint64{1, 2, 3, 4, 5}
	if len(order) != len(want) {
		t.Fatalf("got %v want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("got %v want %v", order, want)
		}
	}
}

func TestProxyDirtyFlagOnlySetByAppend(t *testing.T) {
	r := &fakeResolver{elems: map[uint64]Element{0: {RodID: 1}}}
	p := NewProxy(r, false, 0, 1)
	if p.Dirty() {
		t.Fatalf("freshly constructed proxy must not be dirty")
	}
	p.Get(0)
	if p.Dirty() {
		t.Fatalf("reading must never mark a proxy dirty")
	}
	p.Append(2, "")
	if !p.Dirty() {
		t.Fatalf("Append must mark the proxy dirty")
	}
}

func TestEmptyProxyForAbsentKey(t *testing.T) {
	r := &fakeResolver{}
	p := NewEmptyProxy(r, false)
	if p.Size() != 0 {
		t.Fatalf("want empty proxy, got size %d", p.Size())
	}
}
