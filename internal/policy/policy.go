package policy

import (
	"github.com/opsgate/opsgate/internal/command"
)

// RequiresConfirmation decides whether a command must be confirmed before
// execution: any risk above low, or an explicit author-declared flag.
func RequiresConfirmation(risk command.RiskLevel, explicit bool) bool {
	return explicit || risk != command.RiskLow
}

// Decision is the per-environment gate outcome for one command.
type Decision int

const (
	// Allowed means the command is eligible and runs under the normal
	// confirmation policy.
	Allowed Decision = iota

	// ConfirmRequired means the command's risk is outside the
	// environment's allowed set but remains visible; execution demands
	// confirmation regardless of the command's own policy.
	ConfirmRequired

	// Hidden means the command must be excluded from the catalog for
	// this environment, not merely flagged.
	Hidden
)

// EnvironmentPolicy configures which risk levels an environment accepts.
type EnvironmentPolicy struct {
	AllowedRisks []command.RiskLevel `yaml:"allowed_risks"`

	// DisableUnlessConfirmed hides commands outside the allowed set
	// instead of demanding confirmation for them.
	DisableUnlessConfirmed bool `yaml:"disable_unless_confirmed"`
}

// Decide gates one command for this environment. Deterministic, evaluated
// fresh on every access; results are never cached across environment
// changes.
func (p EnvironmentPolicy) Decide(def command.Definition) Decision {
	for _, r := range p.AllowedRisks {
		if r == def.Risk {
			return Allowed
		}
	}
	if p.DisableUnlessConfirmed {
		return Hidden
	}
	return ConfirmRequired
}

// Eligible reports whether the command may appear in the catalog at all.
func (p EnvironmentPolicy) Eligible(def command.Definition) bool {
	return p.Decide(def) != Hidden
}

// Environments maps environment name to its policy.
type Environments map[string]EnvironmentPolicy

// Lookup returns the policy for env. Unknown environments get a permissive
// default that allows every risk level; the confirmation policy still
// applies per command.
func (e Environments) Lookup(env string) EnvironmentPolicy {
	if p, ok := e[env]; ok {
		return p
	}
	return EnvironmentPolicy{
		AllowedRisks: []command.RiskLevel{command.RiskLow, command.RiskMedium, command.RiskHigh},
	}
}
