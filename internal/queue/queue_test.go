package queue

import (
	"sync"
	"testing"
)

// testSample stands in for the frame samples the writers batch.
type testSample struct {
	Frame int
	Name  string
}

func TestQueue_New(t *testing.T) {
	q := New[testSample]()
	if q == nil {
		t.Fatal("expected non-nil queue")
	}
	if !q.Empty() {
		t.Error("expected empty queue")
	}
	if q.Len() != 0 {
		t.Errorf("expected length 0, got %d", q.Len())
	}
}

func TestQueue_Push(t *testing.T) {
	q := New[testSample]()

	q.Push(testSample{Frame: 1, Name: "first"})
	if q.Len() != 1 {
		t.Errorf("expected length 1, got %d", q.Len())
	}

	q.Push(testSample{Frame: 2}, testSample{Frame: 3})
	if q.Len() != 3 {
		t.Errorf("expected length 3, got %d", q.Len())
	}
}

func TestQueue_Pop(t *testing.T) {
	q := New[testSample]()

	// Pop from empty queue returns zero value
	result := q.Pop()
	if result.Frame != 0 || result.Name != "" {
		t.Errorf("expected zero value, got %+v", result)
	}

	q.Push(testSample{Frame: 1, Name: "first"}, testSample{Frame: 2, Name: "second"})
	first := q.Pop()
	if first.Frame != 1 || first.Name != "first" {
		t.Errorf("expected {1, first}, got %+v", first)
	}
	if q.Len() != 1 {
		t.Errorf("expected length 1, got %d", q.Len())
	}
}

func TestQueue_TryPop(t *testing.T) {
	q := New[testSample]()

	if _, ok := q.TryPop(); ok {
		t.Error("TryPop on empty queue reported an item")
	}

	q.Push(testSample{Frame: 7})
	item, ok := q.TryPop()
	if !ok || item.Frame != 7 {
		t.Errorf("TryPop = %+v, %v", item, ok)
	}
	if !q.Empty() {
		t.Error("expected empty queue after TryPop")
	}
}

func TestQueue_Clear(t *testing.T) {
	q := New[testSample]()
	q.Push(testSample{Frame: 1}, testSample{Frame: 2}, testSample{Frame: 3})

	q.Clear()

	if !q.Empty() {
		t.Error("expected empty queue after clear")
	}
	if q.Len() != 0 {
		t.Errorf("expected length 0, got %d", q.Len())
	}
}

func TestQueue_GetAndEmpty(t *testing.T) {
	q := New[testSample]()
	q.Push(testSample{Frame: 1}, testSample{Frame: 2}, testSample{Frame: 3})

	result := q.GetAndEmpty()

	if len(result) != 3 {
		t.Errorf("expected 3 items, got %d", len(result))
	}
	if result[0].Frame != 1 || result[1].Frame != 2 || result[2].Frame != 3 {
		t.Errorf("unexpected items: %+v", result)
	}
	if !q.Empty() {
		t.Error("expected empty queue after GetAndEmpty")
	}
}

func TestQueue_Concurrent(t *testing.T) {
	q := New[testSample]()
	var wg sync.WaitGroup

	// Concurrent pushes
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(frame int) {
			defer wg.Done()
			q.Push(testSample{Frame: frame})
		}(i)
	}
	wg.Wait()

	if q.Len() != 100 {
		t.Errorf("expected 100 items, got %d", q.Len())
	}

	// Concurrent pops
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.Pop()
		}()
	}
	wg.Wait()

	if q.Len() != 50 {
		t.Errorf("expected 50 items after pops, got %d", q.Len())
	}
}

func TestQueue_ConcurrentGetAndEmpty(t *testing.T) {
	q := New[testSample]()

	for i := 0; i < 100; i++ {
		q.Push(testSample{Frame: i})
	}

	var wg sync.WaitGroup
	results := make(chan []testSample, 10)

	// Concurrent GetAndEmpty calls
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- q.GetAndEmpty()
		}()
	}
	wg.Wait()
	close(results)

	// Total items across all results should be 100
	total := 0
	for r := range results {
		total += len(r)
	}
	if total != 100 {
		t.Errorf("expected total 100 items, got %d", total)
	}
}

func TestQueue_StringType(t *testing.T) {
	q := New[string]()
	q.Push("hello", "world")

	first := q.Pop()
	if first != "hello" {
		t.Errorf("expected 'hello', got '%s'", first)
	}
}

func TestQueue_IntType(t *testing.T) {
	q := New[int]()
	q.Push(1, 2, 3, 4, 5)

	sum := 0
	for !q.Empty() {
		sum += q.Pop()
	}
	if sum != 15 {
		t.Errorf("expected sum 15, got %d", sum)
	}
}

func TestQueue_SliceType(t *testing.T) {
	q := New[[]string]()
	q.Push([]string{"a", "b"}, []string{"c", "d"})

	first := q.Pop()
	if len(first) != 2 || first[0] != "a" {
		t.Errorf("expected [a, b], got %v", first)
	}
}
