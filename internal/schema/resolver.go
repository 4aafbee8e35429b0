// Package schema resolves queryable entity types for the running
// application: which entities exist and, per entity, its field list.
package schema

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"go.uber.org/zap"
)

// Field is one column of an entity type.
type Field struct {
	Name string
	Type string
}

// Entity is a queryable data-entity type backed by one table.
type Entity struct {
	Name   string
	Table  string
	Fields []Field
}

// Resolver enumerates queryable entity types.
type Resolver interface {
	// Entities returns every queryable entity type in a stable order.
	Entities(ctx context.Context) ([]Entity, error)

	// Lookup returns the entity with the given name, or nil if the name
	// does not resolve to a known entity type.
	Lookup(ctx context.Context, name string) (*Entity, error)
}

// CatalogStore abstracts DB queries for testability.
type CatalogStore interface {
	ListColumns(ctx context.Context) ([]*columnRow, error)
}

type columnRow struct {
	Table  string
	Column string
	Type   string
}

// sqlCatalogStore is the real implementation using *sql.DB.
type sqlCatalogStore struct {
	db *sql.DB
}

func (s *sqlCatalogStore) ListColumns(ctx context.Context) ([]*columnRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.table_name, c.column_name, c.data_type
		FROM information_schema.columns c
		JOIN information_schema.tables t
		  ON t.table_schema = c.table_schema AND t.table_name = c.table_name
		WHERE c.table_schema = 'public' AND t.table_type = 'BASE TABLE'
		ORDER BY c.table_name, c.ordinal_position
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*columnRow
	for rows.Next() {
		var r columnRow
		if err := rows.Scan(&r.Table, &r.Column, &r.Type); err != nil {
			return nil, err
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

// PostgresResolver enumerates entity types from information_schema,
// caching the catalog with a TTL and stale-while-revalidate refresh.
type PostgresResolver struct {
	store  CatalogStore
	cache  *catalogCache
	logger *zap.Logger
}

// PostgresResolverConfig configures the PostgresResolver.
type PostgresResolverConfig struct {
	DB       *sql.DB
	CacheTTL int // seconds; 0 means 60
	Logger   *zap.Logger
}

// NewPostgresResolver creates a resolver backed by db.
func NewPostgresResolver(cfg PostgresResolverConfig) *PostgresResolver {
	ttl := cfg.CacheTTL
	if ttl == 0 {
		ttl = 60
	}
	return &PostgresResolver{
		store:  &sqlCatalogStore{db: cfg.DB},
		cache:  newCatalogCache(ttl),
		logger: cfg.Logger,
	}
}

// newPostgresResolverWithStore creates a resolver with a custom store (for testing).
func newPostgresResolverWithStore(store CatalogStore, ttlSeconds int, logger *zap.Logger) *PostgresResolver {
	if ttlSeconds == 0 {
		ttlSeconds = 60
	}
	return &PostgresResolver{
		store:  store,
		cache:  newCatalogCache(ttlSeconds),
		logger: logger,
	}
}

func (r *PostgresResolver) Entities(ctx context.Context) ([]Entity, error) {
	cached := r.cache.Get()
	if cached.Hit {
		if cached.NeedsRefresh {
			go r.refreshInBackground()
		}
		return cached.Entities, nil
	}

	entities, err := r.fetchFromDB(ctx)
	if err != nil {
		return nil, fmt.Errorf("Entities: %w", err)
	}
	r.cache.Set(entities)
	return entities, nil
}

func (r *PostgresResolver) Lookup(ctx context.Context, name string) (*Entity, error) {
	entities, err := r.Entities(ctx)
	if err != nil {
		return nil, err
	}
	for i := range entities {
		if entities[i].Name == name {
			return &entities[i], nil
		}
	}
	return nil, nil
}

func (r *PostgresResolver) fetchFromDB(ctx context.Context) ([]Entity, error) {
	rows, err := r.store.ListColumns(ctx)
	if err != nil {
		return nil, err
	}

	byTable := make(map[string]*Entity)
	var order []string
	for _, row := range rows {
		e, ok := byTable[row.Table]
		if !ok {
			e = &Entity{Name: row.Table, Table: row.Table}
			byTable[row.Table] = e
			order = append(order, row.Table)
		}
		e.Fields = append(e.Fields, Field{Name: row.Column, Type: row.Type})
	}

	sort.Strings(order)
	out := make([]Entity, 0, len(order))
	for _, t := range order {
		out = append(out, *byTable[t])
	}
	return out, nil
}

func (r *PostgresResolver) refreshInBackground() {
	ctx, cancel := contextWithRefreshTimeout()
	defer cancel()

	entities, err := r.fetchFromDB(ctx)
	if err != nil {
		r.logger.Warn("background catalog refresh failed", zap.Error(err))
		return
	}
	r.cache.Set(entities)
}

// StaticResolver serves a fixed entity set. Used in tests and as the
// precomputed mapping injected into dynamically resolved choice options.
type StaticResolver struct {
	entities []Entity
}

// NewStaticResolver creates a resolver over a fixed entity set.
func NewStaticResolver(entities []Entity) *StaticResolver {
	return &StaticResolver{entities: entities}
}

func (r *StaticResolver) Entities(_ context.Context) ([]Entity, error) {
	return r.entities, nil
}

func (r *StaticResolver) Lookup(_ context.Context, name string) (*Entity, error) {
	for i := range r.entities {
		if r.entities[i].Name == name {
			return &r.entities[i], nil
		}
	}
	return nil, nil
}
