package schema

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

// countingCatalogStore tracks how many times ListColumns is called.
type countingCatalogStore struct {
	rows      []*columnRow
	err       error
	callCount *int
}

func (s *countingCatalogStore) ListColumns(_ context.Context) ([]*columnRow, error) {
	*s.callCount++
	if s.err != nil {
		return nil, s.err
	}
	return s.rows, nil
}

func sampleRows() []*columnRow {
	return []*columnRow{
		{Table: "users", Column: "id", Type: "bigint"},
		{Table: "users", Column: "email", Type: "text"},
		{Table: "users", Column: "age", Type: "integer"},
		{Table: "orders", Column: "id", Type: "bigint"},
		{Table: "orders", Column: "total", Type: "numeric"},
	}
}

func TestPostgresResolver_EntitiesGrouped(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	callCount := 0
	store := &countingCatalogStore{rows: sampleRows(), callCount: &callCount}
	r := newPostgresResolverWithStore(store, 30, logger)

	entities, err := r.Entities(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(entities) != 2 {
		t.Fatalf("expected 2 entities, got %d", len(entities))
	}
	// Sorted by table name.
	if entities[0].Name != "orders" || entities[1].Name != "users" {
		t.Fatalf("unexpected order: %s, %s", entities[0].Name, entities[1].Name)
	}
	if len(entities[1].Fields) != 3 {
		t.Fatalf("expected 3 user fields, got %d", len(entities[1].Fields))
	}
	if entities[1].Fields[1].Name != "email" || entities[1].Fields[1].Type != "text" {
		t.Fatalf("unexpected field: %+v", entities[1].Fields[1])
	}
}

func TestPostgresResolver_CacheHit(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	callCount := 0
	store := &countingCatalogStore{rows: sampleRows(), callCount: &callCount}
	r := newPostgresResolverWithStore(store, 30, logger)

	if _, err := r.Entities(context.Background()); err != nil {
		t.Fatal(err)
	}
	if callCount != 1 {
		t.Fatalf("expected 1 DB call, got %d", callCount)
	}

	if _, err := r.Entities(context.Background()); err != nil {
		t.Fatal(err)
	}
	if callCount != 1 {
		t.Fatalf("expected still 1 DB call (cache hit), got %d", callCount)
	}
}

func TestPostgresResolver_Lookup(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	callCount := 0
	store := &countingCatalogStore{rows: sampleRows(), callCount: &callCount}
	r := newPostgresResolverWithStore(store, 30, logger)

	e, err := r.Lookup(context.Background(), "users")
	if err != nil {
		t.Fatal(err)
	}
	if e == nil || e.Table != "users" {
		t.Fatalf("expected users entity, got %+v", e)
	}

	e, err = r.Lookup(context.Background(), "payments")
	if err != nil {
		t.Fatal(err)
	}
	if e != nil {
		t.Fatal("expected nil for unknown entity")
	}
}

func TestPostgresResolver_DBError(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	callCount := 0
	store := &countingCatalogStore{err: context.DeadlineExceeded, callCount: &callCount}
	r := newPostgresResolverWithStore(store, 30, logger)

	if _, err := r.Entities(context.Background()); err == nil {
		t.Fatal("expected error on DB failure")
	}
}

func TestStaticResolver(t *testing.T) {
	r := NewStaticResolver([]Entity{{Name: "users", Table: "users"}})
	e, err := r.Lookup(context.Background(), "users")
	if err != nil || e == nil {
		t.Fatalf("expected users, got %v %v", e, err)
	}
	e, _ = r.Lookup(context.Background(), "ghosts")
	if e != nil {
		t.Fatal("expected nil for unknown entity")
	}
}
