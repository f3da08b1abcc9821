package ledger

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// collidingStore simulates a saturated number space: every candidate exists.
type collidingStore struct {
	Store
	calls int
}

func (s *collidingStore) NumberExists(context.Context, string) (bool, error) {
	s.calls++
	return true, nil
}

func TestGenerator_FormatsNumbers(t *testing.T) {
	store := NewMemoryStore()
	gen := NewNumberGenerator(store, 5)

	number, err := gen.Generate(context.Background())
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if len(number) != 16 {
		t.Fatalf("expected 16 digits, got %d (%s)", len(number), number)
	}
	if !strings.HasPrefix(number, "1000") {
		t.Fatalf("expected prefix 1000, got %s", number)
	}
	for _, r := range number {
		if r < '0' || r > '9' {
			t.Fatalf("non-digit %q in %s", r, number)
		}
	}
}

func TestGenerator_ExhaustsAfterCap(t *testing.T) {
	store := &collidingStore{}
	gen := NewNumberGenerator(store, 5)

	_, err := gen.Generate(context.Background())
	if !errors.Is(err, ErrGenerationExhausted) {
		t.Fatalf("expected generation exhausted, got %v", err)
	}
	if store.calls != 5 {
		t.Fatalf("expected exactly 5 attempts, got %d", store.calls)
	}
}

func TestGenerator_RetriesPastCollision(t *testing.T) {
	store := NewMemoryStore()
	gen := NewNumberGenerator(store, 5)

	ctx := context.Background()
	first, err := gen.Generate(ctx)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	seedAccount(t, store, first, TypeSavings, 0, 0)

	second, err := gen.Generate(ctx)
	if err != nil {
		t.Fatalf("generate after collision failed: %v", err)
	}
	if second == first {
		t.Fatalf("generator returned an assigned number: %s", second)
	}
}
