// Package internal
//
// This file provides the ordered set used by the local cache store.
//
// The implementation combines a binary heap with a hash map so that both priority based
// operations and member based access are cheap:
//
//   - O(log n) for AddItem and PopMax
//   - O(1) to find the member whose score an AddItem updates
//
// Members with equal scores are ordered by insertion sequence (earliest first). Updating
// the score of an existing member counts as a new insertion.
//
// Note: This implementation is not thread-safe. The local store serializes access per key.
//
// Example usage:
//
//	set := NewMapHeap()
//	set.AddItem("alice", 5)
//	set.AddItem("bob", 10)
//
//	top, ok := set.PopMax() // bob
package internal

import (
	"container/heap"
)

// item represents a member of the ordered set
type item struct {
	Key   string  // Unique member name
	Score float64 // Score, higher is served first
	seq   uint64  // Insertion sequence used to break ties
	index int     // Index in the heap, maintained by heap package
}

// MapHeap implements an ordered set (max-heap by score)
// with both heap operations and key-based access
type MapHeap struct {
	items    []*item          // The actual heap slice
	itemsMap map[string]*item // Map for O(1) access by key
	nextSeq  uint64
}

// NewMapHeap creates a new empty ordered set
func NewMapHeap() *MapHeap {
	return &MapHeap{
		items:    make([]*item, 0),
		itemsMap: make(map[string]*item),
	}
}

// Len returns the number of items in the set (part of heap.Interface)
func (mh *MapHeap) Len() int { return len(mh.items) }

// Less orders by score descending, then by insertion sequence (part of heap.Interface)
func (mh *MapHeap) Less(i, j int) bool {
	a, b := mh.items[i], mh.items[j]
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.seq < b.seq
}

// Swap exchanges items at positions i and j (part of heap.Interface)
func (mh *MapHeap) Swap(i, j int) {
	mh.items[i], mh.items[j] = mh.items[j], mh.items[i]
	mh.items[i].index = i
	mh.items[j].index = j
}

// Push adds an item to the heap (part of heap.Interface)
func (mh *MapHeap) Push(x interface{}) {
	n := len(mh.items)
	item := x.(*item)
	item.index = n
	mh.items = append(mh.items, item)
	mh.itemsMap[item.Key] = item
}

// Pop removes and returns the last item (part of heap.Interface)
func (mh *MapHeap) Pop() interface{} {
	old := mh.items
	n := len(old)
	item := old[n-1]
	old[n-1] = nil  // Avoid memory leak
	item.index = -1 // For safety
	mh.items = old[:n-1]
	delete(mh.itemsMap, item.Key)
	return item
}

// AddItem adds a new member or updates the score of an existing one
func (mh *MapHeap) AddItem(key string, score float64) {
	mh.nextSeq++

	if item, exists := mh.itemsMap[key]; exists {
		item.Score = score
		item.seq = mh.nextSeq
		heap.Fix(mh, item.index)
		return
	}

	heap.Push(mh, &item{
		Key:   key,
		Score: score,
		seq:   mh.nextSeq,
	})
}

// PopMax removes and returns the member with the highest score
func (mh *MapHeap) PopMax() (key string, score float64, ok bool) {
	if len(mh.items) == 0 {
		return "", 0, false
	}
	it := heap.Pop(mh).(*item)
	return it.Key, it.Score, true
}
