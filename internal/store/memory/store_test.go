package memory

import (
	"context"
	"testing"

	"github.com/careersync/careersync/internal/store"
)

func testPoints() []store.Point {
	return []store.Point{
		{ID: "0", Vector: []float32{1, 0}, Meta: map[string]string{store.MetaTitle: "Nurse"}},
		{ID: "1", Vector: []float32{0, 1}, Meta: map[string]string{store.MetaTitle: "Programmer"}},
		{ID: "2", Vector: []float32{0.6, 0.8}, Meta: map[string]string{store.MetaTitle: "Teacher"}},
	}
}

func TestQuery_RanksByDotProduct(t *testing.T) {
	s := New(testPoints())

	hits, err := s.Query(context.Background(), []float32{1, 0}, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 3 {
		t.Fatalf("expected 3 hits, got %d", len(hits))
	}
	if hits[0].ID != "0" {
		t.Errorf("expected best hit 0, got %s", hits[0].ID)
	}
	for i := 1; i < len(hits); i++ {
		if hits[i].Score > hits[i-1].Score {
			t.Errorf("scores not non-increasing at %d: %v > %v", i, hits[i].Score, hits[i-1].Score)
		}
	}
	if hits[0].Meta[store.MetaTitle] != "Nurse" {
		t.Errorf("metadata lost: %v", hits[0].Meta)
	}
}

func TestQuery_KLargerThanCatalog(t *testing.T) {
	s := New(testPoints())

	hits, err := s.Query(context.Background(), []float32{1, 0}, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 3 {
		t.Fatalf("expected all 3 points, got %d", len(hits))
	}
}

func TestQuery_Truncation(t *testing.T) {
	s := New(testPoints())

	hits, err := s.Query(context.Background(), []float32{1, 0}, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
}

func TestQuery_ZeroK(t *testing.T) {
	s := New(testPoints())

	hits, err := s.Query(context.Background(), []float32{1, 0}, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hits != nil {
		t.Fatalf("expected nil hits, got %v", hits)
	}
}

func TestQuery_TiesKeepCatalogOrder(t *testing.T) {
	s := New([]store.Point{
		{ID: "0", Vector: []float32{0, 1}},
		{ID: "1", Vector: []float32{1, 0}},
		{ID: "2", Vector: []float32{1, 0}},
	})

	hits, err := s.Query(context.Background(), []float32{1, 0}, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hits[0].ID != "1" || hits[1].ID != "2" {
		t.Errorf("ties should keep catalog order, got %s then %s", hits[0].ID, hits[1].ID)
	}
}

func TestUpsert_ReplacesByID(t *testing.T) {
	s := New(testPoints())

	err := s.Upsert(context.Background(), []store.Point{
		{ID: "0", Vector: []float32{0, 1}, Meta: map[string]string{store.MetaTitle: "Surgeon"}},
		{ID: "9", Vector: []float32{1, 1}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Len() != 4 {
		t.Fatalf("expected 4 points, got %d", s.Len())
	}

	hits, err := s.Query(context.Background(), []float32{0, 1}, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hits[0].Meta[store.MetaTitle] != "Surgeon" {
		t.Errorf("expected replaced point to win, got %v", hits[0].Meta)
	}
}

func TestPing_AlwaysOK(t *testing.T) {
	s := New(nil)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
