package schema

import "testing"

func TestClassTagDeterministic(t *testing.T) {
	a := ClassTag("Person")
	b := ClassTag("Person")
	if a != b {
		t.Fatalf("ClassTag must be deterministic: %d != %d", a, b)
	}
}

func TestClassTagDiffersByName(t *testing.T) {
	if ClassTag("Person") == ClassTag("Company") {
		t.Fatalf("distinct struct names should not collide in this test fixture")
	}
}
