package schema

import "gopkg.in/yaml.v3"

// Field/association/index declarations in database.yml are maps that must
// preserve declaration order (§6: "Field/association entries are maps
// {name -> {options}} preserving declaration order") because
// schema.Type.Equal treats order as significant (scenario 5: swapping two
// field names is an incompatible schema change). yaml.v3's plain
// map[string]T does not guarantee round-trip order, so each of these is a
// small hand-rolled ordered map with custom (Un)MarshalYAML, in the same
// spirit as the teacher's hand-rolled binary codecs in storage/document.go
// — no generic "ordered map" library appears anywhere in the corpus.

type fieldEntry struct {
	key string
	val FieldMeta
}

type orderedFieldMap struct {
	entries []fieldEntry
}

func (m *orderedFieldMap) put(key string, val FieldMeta) {
	m.entries = append(m.entries, fieldEntry{key: key, val: val})
}

func (m orderedFieldMap) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, e := range m.entries {
		keyNode := &yaml.Node{Kind: yaml.ScalarNode, Value: e.key}
		valNode := &yaml.Node{}
		if err := valNode.Encode(e.val); err != nil {
			return nil, err
		}
		node.Content = append(node.Content, keyNode, valNode)
	}
	return node, nil
}

func (m *orderedFieldMap) UnmarshalYAML(value *yaml.Node) error {
	for i := 0; i+1 < len(value.Content); i += 2 {
		var v FieldMeta
		if err := value.Content[i+1].Decode(&v); err != nil {
			return err
		}
		m.entries = append(m.entries, fieldEntry{key: value.Content[i].Value, val: v})
	}
	return nil
}

type assocEntry struct {
	key string
	val AssocMeta
}

type orderedAssocMap struct {
	entries []assocEntry
}

func (m *orderedAssocMap) put(key string, val AssocMeta) {
	m.entries = append(m.entries, assocEntry{key: key, val: val})
}

func (m orderedAssocMap) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, e := range m.entries {
		keyNode := &yaml.Node{Kind: yaml.ScalarNode, Value: e.key}
		valNode := &yaml.Node{}
		if err := valNode.Encode(e.val); err != nil {
			return nil, err
		}
		node.Content = append(node.Content, keyNode, valNode)
	}
	return node, nil
}

func (m *orderedAssocMap) UnmarshalYAML(value *yaml.Node) error {
	for i := 0; i+1 < len(value.Content); i += 2 {
		var v AssocMeta
		if err := value.Content[i+1].Decode(&v); err != nil {
			return err
		}
		m.entries = append(m.entries, assocEntry{key: value.Content[i].Value, val: v})
	}
	return nil
}

type indexedEntry struct {
	key string
	val IndexedMeta
}

type orderedIndexedMap struct {
	entries []indexedEntry
}

func (m *orderedIndexedMap) put(key string, val IndexedMeta) {
	m.entries = append(m.entries, indexedEntry{key: key, val: val})
}

func (m orderedIndexedMap) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, e := range m.entries {
		keyNode := &yaml.Node{Kind: yaml.ScalarNode, Value: e.key}
		valNode := &yaml.Node{}
		if err := valNode.Encode(e.val); err != nil {
			return nil, err
		}
		node.Content = append(node.Content, keyNode, valNode)
	}
	return node, nil
}

func (m *orderedIndexedMap) UnmarshalYAML(value *yaml.Node) error {
	for i := 0; i+1 < len(value.Content); i += 2 {
		var v IndexedMeta
		if err := value.Content[i+1].Decode(&v); err != nil {
			return err
		}
		m.entries = append(m.entries, indexedEntry{key: value.Content[i].Value, val: v})
	}
	return nil
}
