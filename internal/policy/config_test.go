package policy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/opsgate/opsgate/internal/command"
)

func TestLoadYAMLEnvironments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
environments:
  production:
    allowed_risks: [low, medium]
    disable_unless_confirmed: true
  staging:
    allowed_risks: [low, medium, high]
commands:
  - name: ignored-here
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	envs, err := LoadYAMLEnvironments(path)
	if err != nil {
		t.Fatal(err)
	}
	prod, ok := envs["production"]
	if !ok || !prod.DisableUnlessConfirmed {
		t.Fatalf("unexpected production policy: %+v", prod)
	}
	if len(prod.AllowedRisks) != 2 || prod.AllowedRisks[1] != command.RiskMedium {
		t.Fatalf("unexpected allowed risks: %v", prod.AllowedRisks)
	}

	high := command.Definition{Name: "x", Risk: command.RiskHigh}
	if prod.Decide(high) != Hidden {
		t.Fatal("high risk must be hidden in production")
	}
	if envs["staging"].Decide(high) != Allowed {
		t.Fatal("high risk must be allowed in staging")
	}
}

func TestLoadYAMLEnvironments_MissingFile(t *testing.T) {
	if _, err := LoadYAMLEnvironments("/nonexistent/config.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}
