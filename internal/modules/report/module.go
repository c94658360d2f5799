// Package report synthesizes the full session trace into the final narrative
// report and persists it as an artifact.
package report

import (
	"context"

	"github.com/guozhi/rehabflow/internal/crew"
	"github.com/guozhi/rehabflow/internal/llm"
	"github.com/guozhi/rehabflow/internal/module"
	"github.com/guozhi/rehabflow/internal/modules/runtime"
)

const (
	// ID is the stage identifier used by the pipeline sequence.
	ID            = "report"
	moduleVersion = "1.0.0"
)

// Module is the report synthesis stage.
type Module struct{}

// Register adds the module factory to the registry.
func Register(reg *module.Registry) {
	if reg == nil {
		return
	}
	reg.MustRegister(ID, func() (module.Module, error) {
		return New(), nil
	})
}

// New creates a report module.
func New() *Module {
	return &Module{}
}

// Info implements module.Module.
func (m *Module) Info() module.Info {
	return module.Info{
		ID:          ID,
		Name:        "Final Report",
		Description: "Narrates the complete session and writes the report artifact.",
		Version:     moduleVersion,
	}
}

// Run implements module.Module.
func (m *Module) Run(ctx context.Context, rc *module.Context) (module.Result, error) {
	rc.Console.Banner("Final Report")

	result, err := rc.Crews.Kickoff(ctx, crew.ReportCrewID, runtime.Inputs(rc.State))
	if err != nil {
		return module.Result{Status: module.StatusFailed, Message: "report crew failed"}, err
	}

	// The report is markdown prose, not JSON; only the optional fence is
	// stripped before persisting.
	body := llm.StripCodeFence(result.Raw)
	if body == "" {
		return module.Result{Status: module.StatusFailed, Message: "report empty"},
			&llm.MalformedOutputError{Reason: "reply is empty", Raw: result.Raw}
	}

	path, err := rc.Artifacts.WriteReport(body)
	if err != nil {
		return module.Result{Status: module.StatusFailed, Message: "report artifact failed"}, err
	}
	rc.Console.Section("Report", body)
	rc.Console.Notice("Report written to " + path)
	rc.Logf("report: written to %s", path)

	return module.Result{Status: module.StatusCompleted, Message: "report written to " + path}, nil
}
