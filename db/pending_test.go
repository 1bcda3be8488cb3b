package db

import "testing"

func TestPendingTrackerIgnoresNullRefs(t *testing.T) {
	pt := newPendingTracker()
	pt.Mark("Person", 1, "manager", Ref{})
	if pt.Count() != 0 {
		t.Fatalf("a null ref must never be tracked as pending")
	}
}

func TestPendingTrackerMarkResolve(t *testing.T) {
	pt := newPendingTracker()
	pt.Mark("Person", 1, "manager", Ref{Type: "Person", RodID: 2})
	if pt.Count() != 1 {
		t.Fatalf("want 1 pending reference, got %d", pt.Count())
	}
	pt.Resolve("Person", 1, "manager")
	if pt.Count() != 0 {
		t.Fatalf("want 0 pending references after Resolve, got %d", pt.Count())
	}
}
