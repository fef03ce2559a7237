package types

import (
	"testing"
	"time"
)

func TestNewSortedOrdersByKey(t *testing.T) {
	items := []int{5, 1, 4, 2, 3}
	s := NewSorted(items, func(n int) int { return n })

	got := s.Items()
	want := []int{1, 2, 3, 4, 5}
	for i, v := range want {
		if got[i] != v {
			t.Fatalf("Items()[%d] = %d, want %d", i, got[i], v)
		}
	}
	if s.First() != 1 {
		t.Fatalf("First() = %d, want 1", s.First())
	}
	if s.Len() != 5 {
		t.Fatalf("Len() = %d, want 5", s.Len())
	}
}

func TestNewSortedDoesNotMutateInput(t *testing.T) {
	items := []int{3, 1, 2}
	_ = NewSorted(items, func(n int) int { return n })
	if items[0] != 3 || items[1] != 1 || items[2] != 2 {
		t.Fatalf("input slice was mutated: %v", items)
	}
}

func TestSortedFirstOnEmptyReturnsZeroValue(t *testing.T) {
	s := NewSorted[string, int](nil, func(string) int { return 0 })
	if s.First() != "" {
		t.Fatalf("First() on empty = %q, want zero value", s.First())
	}
	if s.Len() != 0 {
		t.Fatalf("Len() on empty = %d, want 0", s.Len())
	}
}

func TestSemaphoreBoundsConcurrency(t *testing.T) {
	sem := NewSemaphore(2)
	sem.Acquire()
	sem.Acquire()

	acquired := make(chan struct{})
	go func() {
		sem.Acquire()
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("third Acquire should have blocked while 2 slots are held")
	case <-time.After(20 * time.Millisecond):
	}

	sem.Release()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("third Acquire should have proceeded after a Release")
	}
}
