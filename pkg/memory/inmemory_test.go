package memory

import (
	"context"
	"math"
	"testing"
)

func TestInMemoryStoreUpsertAndSearch(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	if err := store.EnsureCollection(ctx, "test", 3); err != nil {
		t.Fatalf("EnsureCollection failed: %v", err)
	}

	points := []Point{
		{ID: "a", Vector: []float32{1, 0, 0}, Payload: map[string]interface{}{"text": "alpha"}},
		{ID: "b", Vector: []float32{0, 1, 0}, Payload: map[string]interface{}{"text": "beta"}},
		{ID: "c", Vector: []float32{0.9, 0.1, 0}, Payload: map[string]interface{}{"text": "gamma"}},
	}
	if err := store.Upsert(ctx, "test", points); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	results, err := store.Search(ctx, "test", []float32{1, 0, 0}, 2, 0.5)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ID != "a" {
		t.Errorf("expected best match 'a', got %q", results[0].ID)
	}
	if results[1].ID != "c" {
		t.Errorf("expected second match 'c', got %q", results[1].ID)
	}
}

func TestInMemoryStoreSearchMissingCollection(t *testing.T) {
	store := NewInMemoryStore()
	if _, err := store.Search(context.Background(), "nope", []float32{1}, 5, 0); err == nil {
		t.Fatal("expected error for missing collection")
	}
}

func TestInMemoryStoreCollectionLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	store.EnsureCollection(ctx, "one", 3)
	store.EnsureCollection(ctx, "two", 3)
	store.Upsert(ctx, "one", []Point{{ID: "x", Vector: []float32{1, 0, 0}}})

	names, err := store.ListCollections(ctx)
	if err != nil {
		t.Fatalf("ListCollections failed: %v", err)
	}
	if len(names) != 2 || names[0] != "one" || names[1] != "two" {
		t.Errorf("unexpected collection names: %v", names)
	}

	count, err := store.Count(ctx, "one")
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected count 1, got %d", count)
	}

	if err := store.DeleteCollection(ctx, "one"); err != nil {
		t.Fatalf("DeleteCollection failed: %v", err)
	}
	count, _ = store.Count(ctx, "one")
	if count != 0 {
		t.Errorf("expected count 0 after delete, got %d", count)
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float32
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
		{"mismatched lengths", []float32{1}, []float32{1, 2}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			if math.Abs(float64(got-tt.want)) > 1e-6 {
				t.Errorf("expected %f, got %f", tt.want, got)
			}
		})
	}
}
