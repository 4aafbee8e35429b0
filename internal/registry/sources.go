package registry

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"

	"github.com/opsgate/opsgate/internal/command"
	"gopkg.in/yaml.v3"
)

// SavedQueryConfig is the declarative form of a configured command:
// a fixed, pre-vetted query expression bound to one entity type. Loaded
// from YAML config or the command_definitions table at startup.
type SavedQueryConfig struct {
	Name            string           `json:"name" yaml:"name"`
	DisplayName     string           `json:"display_name" yaml:"display_name"`
	Description     string           `json:"description" yaml:"description"`
	Category        string           `json:"category" yaml:"category"`
	Risk            string           `json:"risk" yaml:"risk"`
	RequiresConfirm bool             `json:"requires_confirmation" yaml:"requires_confirmation"`
	Entity          string           `json:"entity" yaml:"entity"`
	Expression      string           `json:"expression" yaml:"expression"`
	Options         []command.Option `json:"options" yaml:"options"`
	OptionsSchema   map[string]any   `json:"options_schema" yaml:"options_schema"`
}

// Definition converts the config into a command Definition.
func (c SavedQueryConfig) Definition() command.Definition {
	return command.Definition{
		Name:            c.Name,
		DisplayName:     c.DisplayName,
		Description:     c.Description,
		Category:        c.Category,
		Risk:            command.RiskLevel(c.Risk),
		RequiresConfirm: c.RequiresConfirm,
		Options:         c.Options,
		OptionsSchema:   c.OptionsSchema,
	}
}

// commandsFile is the YAML shape of a command config file.
type commandsFile struct {
	Commands []SavedQueryConfig `yaml:"commands"`
}

// LoadYAMLCommands reads saved-query command configs from a YAML file.
func LoadYAMLCommands(path string) ([]SavedQueryConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("LoadYAMLCommands: %w", err)
	}
	var f commandsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("LoadYAMLCommands: %w", err)
	}
	return f.Commands, nil
}

// DefinitionStore abstracts DB queries for testability.
type DefinitionStore interface {
	ListDefinitions(ctx context.Context) ([]*definitionRow, error)
}

type definitionRow struct {
	Name            string
	DisplayName     sql.NullString
	Description     sql.NullString
	Category        sql.NullString
	Risk            string
	RequiresConfirm bool
	Entity          string
	Expression      string
	Options         string // JSONB as string
	OptionsSchema   sql.NullString
}

// sqlDefinitionStore is the real implementation using *sql.DB.
type sqlDefinitionStore struct {
	db *sql.DB
}

func (s *sqlDefinitionStore) ListDefinitions(ctx context.Context) ([]*definitionRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, display_name, description, category, risk,
		       requires_confirmation, entity, expression, options, options_schema
		FROM command_definitions
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*definitionRow
	for rows.Next() {
		var r definitionRow
		if err := rows.Scan(
			&r.Name, &r.DisplayName, &r.Description, &r.Category, &r.Risk,
			&r.RequiresConfirm, &r.Entity, &r.Expression, &r.Options, &r.OptionsSchema,
		); err != nil {
			return nil, err
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

// PostgresDefinitionSource loads configured commands from the
// command_definitions table once at startup.
type PostgresDefinitionSource struct {
	store DefinitionStore
}

// NewPostgresDefinitionSource creates a source backed by db.
func NewPostgresDefinitionSource(db *sql.DB) *PostgresDefinitionSource {
	return &PostgresDefinitionSource{store: &sqlDefinitionStore{db: db}}
}

// newPostgresDefinitionSourceWithStore creates a source with a custom store (for testing).
func newPostgresDefinitionSourceWithStore(store DefinitionStore) *PostgresDefinitionSource {
	return &PostgresDefinitionSource{store: store}
}

// Load fetches and parses every configured command definition.
func (s *PostgresDefinitionSource) Load(ctx context.Context) ([]SavedQueryConfig, error) {
	rows, err := s.store.ListDefinitions(ctx)
	if err != nil {
		return nil, fmt.Errorf("Load: %w", err)
	}

	out := make([]SavedQueryConfig, 0, len(rows))
	for _, row := range rows {
		cfg, err := parseDefinitionRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, cfg)
	}
	return out, nil
}

func parseDefinitionRow(row *definitionRow) (SavedQueryConfig, error) {
	cfg := SavedQueryConfig{
		Name:            row.Name,
		Risk:            row.Risk,
		RequiresConfirm: row.RequiresConfirm,
		Entity:          row.Entity,
		Expression:      row.Expression,
	}
	if row.DisplayName.Valid {
		cfg.DisplayName = row.DisplayName.String
	}
	if row.Description.Valid {
		cfg.Description = row.Description.String
	}
	if row.Category.Valid {
		cfg.Category = row.Category.String
	}
	if row.Options != "" && row.Options != "[]" && row.Options != "null" {
		if err := json.Unmarshal([]byte(row.Options), &cfg.Options); err != nil {
			return SavedQueryConfig{}, fmt.Errorf("parseDefinitionRow: options for %s: %w", row.Name, err)
		}
	}
	if s := row.OptionsSchema.String; row.OptionsSchema.Valid && s != "" && s != "null" {
		if err := json.Unmarshal([]byte(s), &cfg.OptionsSchema); err != nil {
			return SavedQueryConfig{}, fmt.Errorf("parseDefinitionRow: options schema for %s: %w", row.Name, err)
		}
	}
	return cfg, nil
}
