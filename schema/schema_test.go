package schema

import "testing"

func personType() *Type {
	return &Type{
		Name:   "Person",
		Fields: []Field{{Name: "name", Kind: ScalarString}, {Name: "age", Kind: ScalarInteger}},
		HasOne: []Assoc{{Name: "manager", Target: "Person"}},
		Indexed: []IndexedProperty{
			{Field: "name", Kind: IndexFlat},
		},
	}
}

func TestTypeLookups(t *testing.T) {
	p := personType()

	if _, ok := p.FieldByName("age"); !ok {
		t.Fatalf("expected age field to be found")
	}
	if _, ok := p.FieldByName("missing"); ok {
		t.Fatalf("expected missing field to not be found")
	}
	if _, ok := p.HasOneByName("manager"); !ok {
		t.Fatalf("expected manager association to be found")
	}
	if kind, ok := p.IndexedKind("name"); !ok || kind != IndexFlat {
		t.Fatalf("expected name to be flat-indexed, got %v, %v", kind, ok)
	}
	if _, ok := p.IndexedKind("age"); ok {
		t.Fatalf("age should not be indexed")
	}
}

func TestRegistryRejectsDuplicateName(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(personType()); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := r.Register(personType()); err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}
}

func TestTopoSortedOrdersSuperclassBeforeChild(t *testing.T) {
	r := NewRegistry()
	child := &Type{Name: "Manager", Superclass: "Person"}
	root := &Type{Name: "Person"}
	// Register child first to prove order is derived, not just preserved.
	if err := r.Register(child); err != nil {
		t.Fatalf("register child: %v", err)
	}
	if err := r.Register(root); err != nil {
		t.Fatalf("register root: %v", err)
	}

	sorted, err := r.TopoSorted()
	if err != nil {
		t.Fatalf("TopoSorted: %v", err)
	}
	if len(sorted) != 2 || sorted[0].Name != "Person" || sorted[1].Name != "Manager" {
		t.Fatalf("expected [Person Manager], got %v", namesOf(sorted))
	}
}

func TestTopoSortedRejectsUnknownSuperclass(t *testing.T) {
	r := NewRegistry()
	r.Register(&Type{Name: "Manager", Superclass: "Ghost"})
	if _, err := r.TopoSorted(); err == nil {
		t.Fatalf("expected unknown superclass to be rejected")
	}
}

func TestTopoSortedRejectsCycle(t *testing.T) {
	r := NewRegistry()
	r.Register(&Type{Name: "A", Superclass: "B"})
	r.Register(&Type{Name: "B", Superclass: "A"})
	if _, err := r.TopoSorted(); err == nil {
		t.Fatalf("expected cyclic superclass relation to be rejected")
	}
}

func TestTypeEqualFieldOrderMatters(t *testing.T) {
	a := &Type{Fields: []Field{{Name: "x", Kind: ScalarInteger}, {Name: "y", Kind: ScalarString}}}
	b := &Type{Fields: []Field{{Name: "y", Kind: ScalarString}, {Name: "x", Kind: ScalarInteger}}}
	if a.Equal(b) {
		t.Fatalf("swapped field order must not compare equal")
	}
	c := &Type{Fields: []Field{{Name: "x", Kind: ScalarInteger}, {Name: "y", Kind: ScalarString}}}
	if !a.Equal(c) {
		t.Fatalf("identical field order must compare equal")
	}
}

func namesOf(types []*Type) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.Name
	}
	return out
}
