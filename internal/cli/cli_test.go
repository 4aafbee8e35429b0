package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/opsgate/opsgate/internal/audit"
	"github.com/opsgate/opsgate/internal/auth"
	"github.com/opsgate/opsgate/internal/command"
	"github.com/opsgate/opsgate/internal/policy"
	"github.com/opsgate/opsgate/internal/registry"
	"github.com/opsgate/opsgate/internal/runner"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type echoCommand struct {
	command.Base
}

func (c *echoCommand) Execute(ctx context.Context, values map[string]string) (string, error) {
	return "echo: " + values["message"], nil
}

type discardEvents struct{}

func (discardEvents) Write(*audit.ExecutionEvent) {}
func (discardEvents) Close()                      {}

func newTestApp(t *testing.T) *App {
	t.Helper()
	reg := registry.New(zap.NewNop())
	if err := reg.Register(&echoCommand{Base: command.Base{Def: command.Definition{
		Name:        "util:echo",
		DisplayName: "Echo",
		Description: "Echo a message back",
		Category:    "util",
		Risk:        command.RiskLow,
		Options: []command.Option{
			{Key: "message", Kind: command.KindText, Required: true},
		},
	}}}); err != nil {
		t.Fatal(err)
	}

	run := runner.New(runner.Config{
		Registry: reg,
		Environments: policy.Environments{
			"staging": {AllowedRisks: []command.RiskLevel{command.RiskLow}},
		},
		Events: discardEvents{},
		Logger: zap.NewNop(),
	})
	return &App{
		Runner:             run,
		Operator:           &auth.Operator{ID: "op-1", Name: "alice"},
		Logger:             zap.NewNop(),
		DefaultEnvironment: "staging",
	}
}

func execute(t *testing.T, root *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestParseOptionFlags(t *testing.T) {
	values, err := parseOptionFlags([]string{"a=1", "b=x=y"})
	if err != nil {
		t.Fatal(err)
	}
	if values["a"] != "1" || values["b"] != "x=y" {
		t.Fatalf("unexpected values: %v", values)
	}

	if _, err := parseOptionFlags([]string{"novalue"}); err == nil {
		t.Fatal("expected error for malformed pair")
	}
	if _, err := parseOptionFlags([]string{"=v"}); err == nil {
		t.Fatal("expected error for empty key")
	}
}

func TestListCommand(t *testing.T) {
	app := newTestApp(t)
	out, err := execute(t, NewRootCommand(app), "list")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "util:") || !strings.Contains(out, "util:echo") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestDescribeCommand(t *testing.T) {
	app := newTestApp(t)
	out, err := execute(t, NewRootCommand(app), "describe", "util:echo")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "util:echo") || !strings.Contains(out, "message") {
		t.Fatalf("unexpected output:\n%s", out)
	}

	if _, err := execute(t, NewRootCommand(app), "describe", "ghost"); err == nil {
		t.Fatal("expected error for unknown command")
	}
}

func TestRunCommand(t *testing.T) {
	app := newTestApp(t)
	out, err := execute(t, NewRootCommand(app), "run", "util:echo", "-o", "message=hi")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "echo: hi") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestRunCommand_ValidationErrorSurfaces(t *testing.T) {
	app := newTestApp(t)
	_, err := execute(t, NewRootCommand(app), "run", "util:echo")
	if err == nil {
		t.Fatal("expected validation error for missing required option")
	}
	if !strings.Contains(err.Error(), "message") {
		t.Fatalf("unexpected error: %v", err)
	}
}
