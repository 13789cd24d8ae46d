package internal

import (
	"testing"
)

// TestNewMapHeap tests the creation of a new MapHeap
func TestNewMapHeap(t *testing.T) {
	mh := NewMapHeap()

	if mh == nil {
		t.Fatal("NewMapHeap() returned nil")
	}

	if mh.Len() != 0 {
		t.Errorf("New set should be empty, but has length %d", mh.Len())
	}

	if len(mh.itemsMap) != 0 {
		t.Errorf("New set's map should be empty, but has %d items", len(mh.itemsMap))
	}
}

// TestAddItem tests adding members and the max ordering
func TestAddItem(t *testing.T) {
	mh := NewMapHeap()

	mh.AddItem("a", 5)
	mh.AddItem("b", 10)
	mh.AddItem("c", 3)

	if mh.Len() != 3 {
		t.Errorf("Set should have 3 items, but has %d", mh.Len())
	}

	for _, k := range []string{"a", "b", "c"} {
		if _, ok := mh.itemsMap[k]; !ok {
			t.Errorf("Set should contain key %s", k)
		}
	}

	key, score, ok := mh.PopMax()
	if !ok {
		t.Fatal("PopMax() should return an item")
	}
	if key != "b" || score != 10 {
		t.Errorf("Expected max item to be (b,10), got (%s,%v)", key, score)
	}
	if mh.Len() != 2 {
		t.Errorf("Set should have 2 items after PopMax, has %d", mh.Len())
	}
}

// TestUpdateItem tests that re-adding a member updates its score instead of duplicating it
func TestUpdateItem(t *testing.T) {
	mh := NewMapHeap()

	mh.AddItem("a", 100)
	mh.AddItem("b", 200)
	mh.AddItem("a", 300)

	if mh.Len() != 2 {
		t.Fatalf("Set should have 2 items after update, has %d", mh.Len())
	}

	if it := mh.items[0]; it.Key != "a" || it.Score != 300 {
		t.Errorf("Max item should now be (a,300), got (%s,%v)", it.Key, it.Score)
	}

	mh.AddItem("a", 50)
	if it := mh.items[0]; it.Key != "b" {
		t.Errorf("Max item should now be b, got %s", it.Key)
	}
}

// TestPopOrder tests that members are popped highest score first, ties by insertion order
func TestPopOrder(t *testing.T) {
	mh := NewMapHeap()

	mh.AddItem("low", 1)
	mh.AddItem("tie-first", 7)
	mh.AddItem("high", 9)
	mh.AddItem("tie-second", 7)
	mh.AddItem("tie-third", 7)

	expected := []string{"high", "tie-first", "tie-second", "tie-third", "low"}
	for i, want := range expected {
		got, _, ok := mh.PopMax()
		if !ok {
			t.Fatalf("Set empty after %d pops, expected %d", i, len(expected))
		}
		if got != want {
			t.Errorf("Pop %d: expected %s, got %s", i, want, got)
		}
	}

	if _, _, ok := mh.PopMax(); ok {
		t.Error("PopMax on empty set should return ok=false")
	}
}

// TestResubmitMovesBehindTies tests that updating a member counts as a new insertion for ties
func TestResubmitMovesBehindTies(t *testing.T) {
	mh := NewMapHeap()

	mh.AddItem("a", 1)
	mh.AddItem("b", 1)
	mh.AddItem("a", 1)

	first, _, _ := mh.PopMax()
	if first != "b" {
		t.Errorf("Expected b to be served first after a was resubmitted, got %s", first)
	}
}

// TestPopMaxEmptyHeap tests behavior when popping an empty set
func TestPopMaxEmptyHeap(t *testing.T) {
	mh := NewMapHeap()

	if _, _, ok := mh.PopMax(); ok {
		t.Error("PopMax on empty set should return ok=false")
	}
	if len(mh.itemsMap) != 0 {
		t.Errorf("Map should stay empty, has %d items", len(mh.itemsMap))
	}
}
