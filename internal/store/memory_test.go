package store

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestMemoryStoreAssignsSequentialIDs(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

	first, err := s.CreateSubmission(ctx, NewSubmission{Name: "Ann", Email: "ann@example.com", Message: "Need a new site", SubmittedAt: now})
	if err != nil {
		t.Fatalf("CreateSubmission() error = %v", err)
	}
	second, err := s.CreateSubmission(ctx, NewSubmission{Name: "Bob", Email: "bob@example.com", Business: OptionalString("Bob's Bikes"), Message: "Looking for SEO help", SubmittedAt: now})
	if err != nil {
		t.Fatalf("CreateSubmission() error = %v", err)
	}
	if first.ID != 1 || second.ID != 2 {
		t.Fatalf("ids = %d, %d; want 1, 2", first.ID, second.ID)
	}
	if first.Business != nil {
		t.Fatalf("expected absent business, got %q", *first.Business)
	}

	items, err := s.ListSubmissions(ctx)
	if err != nil {
		t.Fatalf("ListSubmissions() error = %v", err)
	}
	if len(items) != 2 || items[0].Name != "Ann" || items[1].Name != "Bob" {
		t.Fatalf("unexpected list: %+v", items)
	}

	// Mutating a returned record must not reach the store.
	*items[1].Business = "changed"
	again, err := s.GetSubmission(ctx, 2)
	if err != nil {
		t.Fatalf("GetSubmission() error = %v", err)
	}
	if *again.Business != "Bob's Bikes" {
		t.Fatalf("stored business was mutated: %q", *again.Business)
	}

	if _, err := s.GetSubmission(ctx, 99); err != ErrNotFound {
		t.Fatalf("GetSubmission(99) error = %v, want ErrNotFound", err)
	}
}

func TestMemoryStoreConcurrentCreatesGetUniqueIDs(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	const n = 50

	var wg sync.WaitGroup
	ids := make(chan int64, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sub, err := s.CreateSubmission(ctx, NewSubmission{Name: "Concurrent", Email: "c@example.com", Message: "parallel message"})
			if err != nil {
				t.Errorf("CreateSubmission() error = %v", err)
				return
			}
			ids <- sub.ID
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[int64]bool{}
	for id := range ids {
		if seen[id] {
			t.Fatalf("duplicate id %d", id)
		}
		seen[id] = true
	}
	for id := int64(1); id <= n; id++ {
		if !seen[id] {
			t.Fatalf("missing id %d", id)
		}
	}
}

func TestOptionalString(t *testing.T) {
	if OptionalString("   ") != nil {
		t.Fatal("blank should be absent")
	}
	if got := OptionalString(" Acme "); got == nil || *got != "Acme" {
		t.Fatalf("OptionalString() = %v", got)
	}
}
