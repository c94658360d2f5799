// Package intake collects the initial patient information before any agent
// runs: the fixed clinical fields through the interactive form, then any
// auxiliary examination results already in hand over the console.
package intake

import (
	"context"
	"fmt"
	"strings"

	"github.com/guozhi/rehabflow/internal/module"
	"github.com/guozhi/rehabflow/internal/tui"
)

const (
	// ID is the stage identifier used by the pipeline sequence.
	ID            = "intake"
	moduleVersion = "1.0.0"
)

// Collector gathers the fixed clinical fields. Defaults to the interactive
// form; tests inject a canned result.
type Collector func() (tui.Result, error)

// Option customizes the intake module.
type Option func(*Module)

// WithCollector overrides the interactive form.
func WithCollector(collect Collector) Option {
	return func(m *Module) {
		if collect != nil {
			m.collect = collect
		}
	}
}

// Module is the intake stage.
type Module struct {
	collect Collector
}

// Register adds the module factory to the registry.
func Register(reg *module.Registry) {
	if reg == nil {
		return
	}
	reg.MustRegister(ID, func() (module.Module, error) {
		return New(), nil
	})
}

// New creates an intake module backed by the interactive form.
func New(opts ...Option) *Module {
	mod := &Module{collect: tui.Run}
	for _, opt := range opts {
		if opt != nil {
			opt(mod)
		}
	}
	return mod
}

// Info implements module.Module.
func (m *Module) Info() module.Info {
	return module.Info{
		ID:          ID,
		Name:        "Patient Intake",
		Description: "Collects the clinical history fields, the audience level, and any existing auxiliary examination results.",
		Version:     moduleVersion,
	}
}

// Run implements module.Module.
func (m *Module) Run(ctx context.Context, rc *module.Context) (module.Result, error) {
	rc.Console.Banner("Patient Intake")

	collected, err := m.collect()
	if err != nil {
		return module.Result{Status: module.StatusFailed, Message: "intake form failed"}, err
	}
	if collected.Aborted {
		return module.Result{Status: module.StatusFailed, Message: "intake aborted by operator"},
			fmt.Errorf("intake: aborted by operator")
	}

	rc.State.Intake = collected.Intake
	rc.State.Audience = collected.Audience
	if rc.State.Intake.AuxiliaryExams == nil {
		rc.State.Intake.AuxiliaryExams = map[string]string{}
	}

	if err := m.collectAuxiliaryExams(rc); err != nil {
		return module.Result{Status: module.StatusFailed, Message: "auxiliary exam entry failed"}, err
	}

	rc.Logf("intake: collected %d auxiliary exam(s), audience %s",
		len(rc.State.Intake.AuxiliaryExams), rc.State.Audience)
	return module.Result{Status: module.StatusCompleted, Message: "patient information collected"}, nil
}

// collectAuxiliaryExams reads name=result pairs until the operator enters q.
func (m *Module) collectAuxiliaryExams(rc *module.Context) error {
	rc.Console.Notice("Enter auxiliary examination results as name=result, one per line. Enter q when done.")
	for {
		line, err := rc.Console.Prompt("Auxiliary examination (name=result, q to finish)")
		if err != nil {
			return fmt.Errorf("intake: read auxiliary exam: %w", err)
		}
		if line == "" || strings.EqualFold(line, "q") {
			return nil
		}
		name, result, ok := strings.Cut(line, "=")
		name = strings.TrimSpace(name)
		result = strings.TrimSpace(result)
		if !ok || name == "" || result == "" {
			rc.Console.Notice("Could not parse that entry; use name=result.")
			continue
		}
		rc.State.Intake.AuxiliaryExams[name] = result
	}
}
