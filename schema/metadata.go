package schema

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// EngineVersion is the current MAJOR.MINOR.PATCH of this engine, compared
// against a stored database's metadata on open (§4.8).
var EngineVersion = Version{Major: 1, Minor: 0, Patch: 0}

// FieldMeta is one entry of a type's "fields" map in database.yml.
type FieldMeta struct {
	Kind string `yaml:"kind"`
}

// AssocMeta is one entry of a type's "has_one"/"has_many" map.
type AssocMeta struct {
	Target      string `yaml:"target"`
	Polymorphic bool   `yaml:"polymorphic,omitempty"`
}

// IndexedMeta is one entry of a type's "indexed_properties" map.
type IndexedMeta struct {
	Kind string `yaml:"kind"`
}

// TypeMeta mirrors one type's section of database.yml (§6).
//
// Fields/HasOne/HasMany/Indexed are yaml.MapSlice-like ordered maps: each
// keeps a slice of key/value entries (orderedmap.go) so declaration order
// survives a round trip, since schema.Type.Equal compares that order
// (scenario 5).
type TypeMeta struct {
	Superclass string                 `yaml:"superclass,omitempty"`
	Count      uint64                 `yaml:"count"`
	Fields     orderedFieldMap        `yaml:"fields"`
	HasOne     orderedAssocMap        `yaml:"has_one"`
	HasMany    orderedAssocMap        `yaml:"has_many"`
	Indexed    orderedIndexedMap      `yaml:"indexed_properties"`
}

// RodMeta is the "Rod" top-level section: engine version, timestamps, and
// the tail offsets of the shared string heap and join areas — needed so a
// reopened database resumes appending at the right place (§4.3, §4.4).
type RodMeta struct {
	Version        string    `yaml:"version"`
	CreatedAt      time.Time `yaml:"created_at"`
	UpdatedAt      time.Time `yaml:"updated_at"`
	StringHeapTail uint64    `yaml:"string_heap_tail"`
	ScalarJoinTail uint64    `yaml:"scalar_join_tail"`
	PolyJoinTail   uint64    `yaml:"poly_join_tail"`
}

// Metadata is the full contents of database.yml. It is assembled and taken
// apart through toNode/LoadMetadata by hand rather than via a single
// struct's yaml tags, because "Rod" plus one key per type is a dynamic set
// of top-level keys that yaml.v3 cannot express as a static struct.
type Metadata struct {
	Rod   RodMeta
	Types map[string]*TypeMeta
}

// toNode builds the yaml.Node document for Metadata, since the
// "Rod" key plus one key per type is not representable by a single inline
// struct with Go's yaml.v3 tags — we assemble a mapping node by hand.
func (m *Metadata) toNode() (*yaml.Node, error) {
	root := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}

	rodKey := &yaml.Node{Kind: yaml.ScalarNode, Value: "Rod"}
	rodVal := &yaml.Node{}
	if err := rodVal.Encode(m.Rod); err != nil {
		return nil, err
	}
	root.Content = append(root.Content, rodKey, rodVal)

	for _, name := range sortedKeys(m.Types) {
		key := &yaml.Node{Kind: yaml.ScalarNode, Value: name}
		val := &yaml.Node{}
		if err := val.Encode(m.Types[name]); err != nil {
			return nil, err
		}
		root.Content = append(root.Content, key, val)
	}
	return root, nil
}

func sortedKeys(m map[string]*TypeMeta) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	// Stable, deterministic file output; not semantically required by the
	// spec but avoids spurious diffs between successive saves.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

// Save writes the metadata document to path, overwriting any prior
// contents.
func (m *Metadata) Save(path string) error {
	node, err := m.toNode()
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(node)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// LoadMetadata reads database.yml from path. A missing file is returned as
// the unwrapped os.ReadFile error, so callers can distinguish "no metadata
// yet" from another read failure with os.IsNotExist.
func LoadMetadata(path string) (*Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var raw yaml.Node
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if len(raw.Content) == 0 {
		return &Metadata{Types: map[string]*TypeMeta{}}, nil
	}
	doc := raw.Content[0]

	m := &Metadata{Types: map[string]*TypeMeta{}}
	for i := 0; i+1 < len(doc.Content); i += 2 {
		key := doc.Content[i].Value
		val := doc.Content[i+1]
		if key == "Rod" {
			if err := val.Decode(&m.Rod); err != nil {
				return nil, err
			}
			continue
		}
		var tm TypeMeta
		if err := val.Decode(&tm); err != nil {
			return nil, err
		}
		m.Types[key] = &tm
	}
	return m, nil
}

// FromType converts a schema.Type + its live record count into the YAML
// metadata shape for that type.
func FromType(t *Type, count uint64) *TypeMeta {
	tm := &TypeMeta{Superclass: t.Superclass, Count: count}
	for _, f := range t.Fields {
		tm.Fields.put(f.Name, FieldMeta{Kind: f.Kind.String()})
	}
	for _, a := range t.HasOne {
		tm.HasOne.put(a.Name, AssocMeta{Target: a.Target, Polymorphic: a.Polymorphic})
	}
	for _, a := range t.HasMany {
		tm.HasMany.put(a.Name, AssocMeta{Target: a.Target, Polymorphic: a.Polymorphic})
	}
	for _, ip := range t.Indexed {
		tm.Indexed.put(ip.Field, IndexedMeta{Kind: ip.Kind.String()})
	}
	return tm
}

// ToType converts a loaded TypeMeta back into a schema.Type, under the
// given name, for schema compatibility comparison or `generate` (§4.7).
func (tm *TypeMeta) ToType(name string) *Type {
	t := &Type{Name: name, Superclass: tm.Superclass}
	for _, e := range tm.Fields.entries {
		t.Fields = append(t.Fields, Field{Name: e.key, Kind: parseScalarKind(e.val.Kind)})
	}
	for _, e := range tm.HasOne.entries {
		t.HasOne = append(t.HasOne, Assoc{Name: e.key, Target: e.val.Target, Polymorphic: e.val.Polymorphic})
	}
	for _, e := range tm.HasMany.entries {
		t.HasMany = append(t.HasMany, Assoc{Name: e.key, Target: e.val.Target, Polymorphic: e.val.Polymorphic})
	}
	for _, e := range tm.Indexed.entries {
		kind := IndexFlat
		if e.val.Kind == "segmented" {
			kind = IndexSegmented
		}
		t.Indexed = append(t.Indexed, IndexedProperty{Field: e.key, Kind: kind})
	}
	return t
}

func parseScalarKind(s string) ScalarKind {
	switch s {
	case "integer":
		return ScalarInteger
	case "float":
		return ScalarFloat
	case "bool":
		return ScalarBool
	default:
		return ScalarString
	}
}
