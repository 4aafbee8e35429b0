package registry

import (
	"sync"

	"github.com/opsgate/opsgate/internal/command"
	"go.uber.org/zap"
)

// Registry is the catalog of executable commands, keyed by name.
//
// It is populated at startup and read concurrently afterwards. The RWMutex
// keeps a violated single-writer discipline from corrupting state, but
// concurrent registration during live request handling is not a supported
// mode of operation.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]command.Command
	order  []string
	logger *zap.Logger
}

// New creates an empty Registry.
func New(logger *zap.Logger) *Registry {
	return &Registry{
		byName: make(map[string]command.Command),
		logger: logger,
	}
}

// Register inserts or overwrites a command by name. A command whose
// definition violates the Definition invariants is rejected atomically;
// existing entries are untouched.
func (r *Registry) Register(cmd command.Command) error {
	def := cmd.Definition()
	if err := def.CheckValid(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byName[def.Name]; !exists {
		r.order = append(r.order, def.Name)
	}
	r.byName[def.Name] = cmd
	return nil
}

// RegisterAll registers each command in turn. Malformed commands are
// logged and skipped; they never block the rest of the batch.
func (r *Registry) RegisterAll(cmds ...command.Command) {
	for _, cmd := range cmds {
		if err := r.Register(cmd); err != nil {
			r.logger.Warn("command registration rejected",
				zap.String("command", cmd.Definition().Name),
				zap.Error(err),
			)
		}
	}
}

// Get returns the command registered under name.
func (r *Registry) Get(name string) (command.Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.byName[name]
	return cmd, ok
}

// All returns a snapshot of every registered command in registration order.
func (r *Registry) All() []command.Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]command.Command, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}
	return out
}

// GroupByCategory returns registered commands grouped by category.
// Within each group, registration order is preserved.
func (r *Registry) GroupByCategory() map[string][]command.Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	groups := make(map[string][]command.Command)
	for _, name := range r.order {
		cmd := r.byName[name]
		cat := cmd.Definition().Category
		groups[cat] = append(groups[cat], cmd)
	}
	return groups
}

// FilterByRisk returns commands at the given risk level, in registration order.
func (r *Registry) FilterByRisk(level command.RiskLevel) []command.Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []command.Command
	for _, name := range r.order {
		cmd := r.byName[name]
		if cmd.Definition().Risk == level {
			out = append(out, cmd)
		}
	}
	return out
}

// RequiringConfirmation returns commands that require confirmation:
// risk above low, or an explicit author-declared flag.
func (r *Registry) RequiringConfirmation() []command.Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []command.Command
	for _, name := range r.order {
		cmd := r.byName[name]
		def := cmd.Definition()
		if def.RequiresConfirm || def.Risk != command.RiskLow {
			out = append(out, cmd)
		}
	}
	return out
}

// Reset clears all entries. Test and debug use only; nothing on a normal
// runtime path calls this.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byName = make(map[string]command.Command)
	r.order = nil
}
