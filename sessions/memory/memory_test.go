package memory

import (
	"fmt"
	"sync"
	"testing"

	"github.com/mcpkit/stateful-go/sessions"
)

func sess(id string) *sessions.Session {
	return &sessions.Session{ID: id, Config: map[string]any{}}
}

func TestNewRejectsNonPositiveCapacity(t *testing.T) {
	if _, err := New(0); err == nil {
		t.Error("expected error for capacity 0")
	}
	if _, err := New(-1); err == nil {
		t.Error("expected error for negative capacity")
	}
}

func TestEvictsLeastRecentlyUsed(t *testing.T) {
	s, err := New(3)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for _, id := range []string{"a", "b", "c"} {
		s.Set(id, sess(id))
	}
	s.Set("d", sess("d"))

	if s.Contains("a") {
		t.Error("a should have been evicted")
	}
	for _, id := range []string{"b", "c", "d"} {
		if !s.Contains(id) {
			t.Errorf("%s missing", id)
		}
	}
	if got := s.Len(); got != 3 {
		t.Errorf("Len = %d, want 3", got)
	}
}

func TestGetPromotesRecency(t *testing.T) {
	s, _ := New(3)
	for _, id := range []string{"a", "b", "c"} {
		s.Set(id, sess(id))
	}
	if _, ok := s.Get("a"); !ok {
		t.Fatal("a missing before eviction")
	}
	s.Set("d", sess("d"))

	if !s.Contains("a") {
		t.Error("a was evicted despite recent access")
	}
	if s.Contains("b") {
		t.Error("b should have been evicted as least recently used")
	}
}

func TestContainsDoesNotPromote(t *testing.T) {
	s, _ := New(2)
	s.Set("a", sess("a"))
	s.Set("b", sess("b"))
	_ = s.Contains("a")
	s.Set("c", sess("c"))

	if s.Contains("a") {
		t.Error("Contains must not protect a from eviction")
	}
}

func TestReplaceExistingDoesNotEvict(t *testing.T) {
	s, _ := New(2)
	s.Set("a", sess("a"))
	s.Set("b", sess("b"))
	s.Set("a", sess("a"))

	if !s.Contains("b") {
		t.Error("replacing an existing key must not evict")
	}
	if got := s.Len(); got != 2 {
		t.Errorf("Len = %d, want 2", got)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	s, _ := New(2)
	s.Set("a", sess("a"))
	s.Delete("a")
	s.Delete("a")
	s.Delete("never-existed")

	if s.Contains("a") {
		t.Error("a still present after delete")
	}
	if got := s.Len(); got != 0 {
		t.Errorf("Len = %d, want 0", got)
	}
}

func TestCapacityReported(t *testing.T) {
	s, _ := New(7)
	if got := s.Capacity(); got != 7 {
		t.Errorf("Capacity = %d, want 7", got)
	}
}

func TestConcurrentAccess(t *testing.T) {
	s, _ := New(50)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				id := fmt.Sprintf("w%d-%d", worker, j%20)
				s.Set(id, sess(id))
				s.Get(id)
				if j%5 == 0 {
					s.Delete(id)
				}
			}
		}(i)
	}
	wg.Wait()

	if got := s.Len(); got > 50 {
		t.Errorf("Len %d exceeds capacity 50", got)
	}
}
