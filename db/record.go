package db

// Record is a field-name -> value map describing one to-be-stored or
// freshly-read object: scalars as int64/float64/bool/string, singular
// associations as Ref (nil for a null one in a read record), plural
// associations as []Ref when stored and as *collection.Proxy when read.
// The engine has no
// compiled Go struct per type — schema.Type is the only description of
// shape — so records travel as maps the way the teacher's own document
// store represents rows before they are laid out on disk.
type Record map[string]any

// Ref is a reference to another stored record: its rod_id and, for
// polymorphic associations, the concrete type name it points to. A zero
// RodID denotes null (scenario 4).
type Ref struct {
	Type  string
	RodID uint64
}

func (r Ref) isNull() bool { return r.RodID == 0 }
