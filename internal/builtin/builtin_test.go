package builtin

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/opsgate/opsgate/internal/command"
	"github.com/opsgate/opsgate/internal/query"
	"github.com/opsgate/opsgate/internal/queryguard"
	"github.com/opsgate/opsgate/internal/registry"
	"github.com/opsgate/opsgate/internal/schema"
	"go.uber.org/zap"
)

var testEntities = []schema.Entity{
	{Name: "users", Table: "users", Fields: []schema.Field{
		{Name: "id", Type: "bigint"},
		{Name: "email", Type: "text"},
	}},
	{Name: "orders", Table: "orders", Fields: []schema.Field{
		{Name: "id", Type: "bigint"},
	}},
}

func newTestExecutor(t *testing.T) (*query.Executor, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return query.NewExecutor(query.ExecutorConfig{
		DB:       db,
		Resolver: schema.NewStaticResolver(testEntities),
		Logger:   zap.NewNop(),
	}), mock
}

func TestQueryCommand_Definition(t *testing.T) {
	exec, _ := newTestExecutor(t)
	cmd := NewQuery(exec, testEntities)

	def := cmd.Definition()
	if def.Name != "db:query" {
		t.Fatalf("unexpected name: %s", def.Name)
	}
	opt, ok := def.Option("entity")
	if !ok || len(opt.Choices) != 2 || opt.Choices[0].Value != "users" {
		t.Fatalf("entity choices not populated: %+v", opt)
	}
}

func TestQueryCommand_ValidateRejectsWriteVerbs(t *testing.T) {
	exec, _ := newTestExecutor(t)
	cmd := NewQuery(exec, testEntities)

	err := cmd.Validate(map[string]string{
		"entity":     "users",
		"expression": "delete()",
	})
	var dv *queryguard.DisallowedVerbError
	if !errors.As(err, &dv) {
		t.Fatalf("expected DisallowedVerbError, got %v", err)
	}
}

func TestQueryCommand_ValidateRunsBasePassFirst(t *testing.T) {
	exec, _ := newTestExecutor(t)
	cmd := NewQuery(exec, testEntities)

	err := cmd.Validate(map[string]string{"entity": "users"})
	var missing *command.MissingRequiredError
	if !errors.As(err, &missing) || missing.Key != "expression" {
		t.Fatalf("expected MissingRequiredError for expression, got %v", err)
	}

	err = cmd.Validate(map[string]string{
		"entity":     "users",
		"expression": "get()",
		"limit":      "50000",
	})
	var rule *command.RuleViolationError
	if !errors.As(err, &rule) || rule.Key != "limit" {
		t.Fatalf("expected RuleViolationError for limit, got %v", err)
	}
}

func TestQueryCommand_ExecuteAppliesLimitOption(t *testing.T) {
	exec, mock := newTestExecutor(t)
	cmd := NewQuery(exec, testEntities)

	mock.ExpectQuery("SELECT * FROM users WHERE age = $1 LIMIT 5").
		WithArgs(int64(18)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email"}).AddRow(int64(1), "a@example.com"))

	out, err := cmd.Execute(context.Background(), map[string]string{
		"entity":     "users",
		"expression": "where('age', 18)->get()",
		"limit":      "5",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "a@example.com") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestQueryCommand_LimitWithTrailingDecimalZero(t *testing.T) {
	exec, mock := newTestExecutor(t)
	cmd := NewQuery(exec, testEntities)

	values := map[string]string{
		"entity":     "users",
		"expression": "get()",
		"limit":      "7.0",
	}
	// The integer rule accepts "7.0"; the executed limit must match it.
	if err := cmd.Validate(values); err != nil {
		t.Fatal(err)
	}

	mock.ExpectQuery("SELECT * FROM users LIMIT 7").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))

	if _, err := cmd.Execute(context.Background(), values); err != nil {
		t.Fatal(err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestCountCommand_WithAndWithoutFilter(t *testing.T) {
	exec, mock := newTestExecutor(t)
	cmd := NewCount(exec, testEntities)

	mock.ExpectQuery("SELECT count(*) FROM orders").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(12)))

	out, err := cmd.Execute(context.Background(), map[string]string{"entity": "orders"})
	if err != nil {
		t.Fatal(err)
	}
	if out != "12" {
		t.Fatalf("expected 12, got %q", out)
	}

	mock.ExpectQuery("SELECT count(*) FROM orders WHERE status = $1").
		WithArgs("paid").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(3)))

	out, err = cmd.Execute(context.Background(), map[string]string{
		"entity": "orders",
		"filter": "where('status', 'paid')",
	})
	if err != nil {
		t.Fatal(err)
	}
	if out != "3" {
		t.Fatalf("expected 3, got %q", out)
	}
}

func TestCountCommand_ValidateRejectsBadFilter(t *testing.T) {
	exec, _ := newTestExecutor(t)
	cmd := NewCount(exec, testEntities)

	err := cmd.Validate(map[string]string{
		"entity": "orders",
		"filter": "whereRaw('1=1')",
	})
	if err == nil {
		t.Fatal("expected rejection of raw filter")
	}
}

func TestDescribeCommand(t *testing.T) {
	resolver := schema.NewStaticResolver(testEntities)
	cmd := NewDescribe(resolver, testEntities)

	out, err := cmd.Execute(context.Background(), map[string]string{"entity": "users"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "users (table users)") || !strings.Contains(out, "email") {
		t.Fatalf("unexpected output:\n%s", out)
	}

	_, err = cmd.Execute(context.Background(), map[string]string{"entity": "ghosts"})
	var ue *query.UnknownEntityTypeError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UnknownEntityTypeError, got %v", err)
	}
}

func TestSavedQuery_RejectsBadConfigAtConstruction(t *testing.T) {
	exec, _ := newTestExecutor(t)

	_, err := NewSavedQuery(registry.SavedQueryConfig{
		Name:       "users:purge",
		Risk:       "high",
		Entity:     "users",
		Expression: "where('stale', true)->delete()",
	}, exec)
	var dv *queryguard.DisallowedVerbError
	if !errors.As(err, &dv) {
		t.Fatalf("expected DisallowedVerbError, got %v", err)
	}

	_, err = NewSavedQuery(registry.SavedQueryConfig{
		Name:       "users:broken",
		Risk:       "low",
		Entity:     "users",
		Expression: "where('a'",
	}, exec)
	var pe *query.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ParseError, got %v", err)
	}

	_, err = NewSavedQuery(registry.SavedQueryConfig{
		Name:       "users:norisk",
		Entity:     "users",
		Expression: "count()",
	}, exec)
	var ic *command.InvalidCommandError
	if !errors.As(err, &ic) {
		t.Fatalf("expected InvalidCommandError, got %v", err)
	}
}

func TestSavedQuery_OptionsSchemaEnforced(t *testing.T) {
	exec, _ := newTestExecutor(t)

	cmd, err := NewSavedQuery(registry.SavedQueryConfig{
		Name:       "users:by-email",
		Risk:       "low",
		Entity:     "users",
		Expression: "where('email', :email)->first()",
		Options: []command.Option{
			{Key: "email", Kind: command.KindText, Required: true},
		},
		OptionsSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"email": map[string]any{"pattern": "^[^@]+@[^@]+$"},
			},
		},
	}, exec)
	if err != nil {
		t.Fatal(err)
	}

	err = cmd.Validate(map[string]string{"email": "not-an-address"})
	var sv *command.SchemaViolationError
	if !errors.As(err, &sv) {
		t.Fatalf("expected SchemaViolationError, got %v", err)
	}

	if err := cmd.Validate(map[string]string{"email": "a@example.com"}); err != nil {
		t.Fatal(err)
	}
}

func TestSavedQuery_BindsTypedOptionValues(t *testing.T) {
	exec, mock := newTestExecutor(t)

	cmd, err := NewSavedQuery(registry.SavedQueryConfig{
		Name:        "users:lookup",
		DisplayName: "Look up user",
		Risk:        "low",
		Entity:      "users",
		Expression:  "where('email', :email)->whereBetween('age', :min_age, :max_age)->get()",
		Options: []command.Option{
			{Key: "email", Kind: command.KindText, Required: true},
			{Key: "min_age", Kind: command.KindText, Numeric: true, Rules: []command.Rule{{Name: command.RuleInteger}}},
			{Key: "max_age", Kind: command.KindText, Numeric: true, Rules: []command.Rule{{Name: command.RuleInteger}}},
		},
	}, exec)
	if err != nil {
		t.Fatal(err)
	}

	mock.ExpectQuery("SELECT * FROM users WHERE email = $1 AND age BETWEEN $2 AND $3 LIMIT 1000").
		WithArgs("a@example.com", int64(18), int64(65)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))

	values := map[string]string{
		"email":   "a@example.com",
		"min_age": "18",
		"max_age": "65",
	}
	if err := cmd.Validate(values); err != nil {
		t.Fatal(err)
	}
	if _, err := cmd.Execute(context.Background(), values); err != nil {
		t.Fatal(err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}
