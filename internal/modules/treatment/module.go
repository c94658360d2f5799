// Package treatment turns the established diagnosis into a rehabilitation
// treatment plan, either through the treatment crew or entered verbatim by
// the operator, and persists it as a plan artifact.
package treatment

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/guozhi/rehabflow/internal/crew"
	"github.com/guozhi/rehabflow/internal/llm"
	"github.com/guozhi/rehabflow/internal/module"
	"github.com/guozhi/rehabflow/internal/modules/runtime"
)

const (
	// ID is the stage identifier used by the pipeline sequence.
	ID            = "treatment"
	moduleVersion = "1.0.0"

	// SectionName is recorded in the outline when this stage completes.
	SectionName = "treatment plan"

	// ManualPlanKey is where an operator-written plan lands in the session.
	ManualPlanKey = "manual_treatment_plan"
)

// Module is the treatment planning stage.
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

// New creates a treatment module.
func New() *Module {
	return &Module{}
}

// Info implements module.Module.
func (m *Module) Info() module.Info {
	return module.Info{
		ID:          ID,
		Name:        "Treatment Plan",
		Description: "Produces the rehabilitation treatment plan and writes the plan artifact.",
		Version:     moduleVersion,
	}
}

// Run implements module.Module.
func (m *Module) Run(ctx context.Context, rc *module.Context) (module.Result, error) {
	rc.Console.Banner("Treatment Plan")

	choice, err := rc.Console.Prompt("Press enter to generate the treatment plan, or q to write it yourself")
	if err != nil {
		return module.Result{Status: module.StatusFailed, Message: "treatment prompt failed"}, err
	}
	if strings.EqualFold(choice, "q") {
		path, err := m.manualPlan(rc)
		if err != nil {
			return module.Result{Status: module.StatusFailed, Message: "manual plan entry failed"}, err
		}
		rc.State.MarkSectionComplete(SectionName)
		return module.Result{Status: module.StatusCompleted, Message: "manual plan written to " + path}, nil
	}

	result, err := rc.Crews.Kickoff(ctx, crew.TreatmentCrewID, runtime.Inputs(rc.State))
	if err != nil {
		return module.Result{Status: module.StatusFailed, Message: "treatment crew failed"}, err
	}
	plan := map[string]string{}
	if err := llm.DecodeObject(result.Raw, &plan); err != nil {
		return module.Result{Status: module.StatusFailed, Message: "treatment plan unparseable"}, err
	}
	rc.State.MergeTreatmentPlan(plan)

	// The artifact keeps the crew's raw text; the rendered form is for the
	// console only.
	rc.Console.Section("Treatment plan", renderPlan(plan))
	path, err := rc.Artifacts.WriteTreatmentPlan(result.Raw)
	if err != nil {
		return module.Result{Status: module.StatusFailed, Message: "plan artifact failed"}, err
	}
	rc.Console.Notice("Treatment plan written to " + path)
	rc.Logf("treatment: plan written to %s", path)

	rc.State.MarkSectionComplete(SectionName)
	return module.Result{Status: module.StatusCompleted, Message: "plan written to " + path}, nil
}

// manualPlan takes the operator's plan text and persists it verbatim.
func (m *Module) manualPlan(rc *module.Context) (string, error) {
	text, err := rc.Console.Prompt("Enter your treatment plan")
	if err != nil {
		return "", fmt.Errorf("treatment: read manual plan: %w", err)
	}
	text = llm.StringOrDefault(text, "no plan entered")
	rc.State.TreatmentPlan[ManualPlanKey] = text

	path, err := rc.Artifacts.WriteTreatmentPlan(text)
	if err != nil {
		return "", err
	}
	rc.Console.Notice("Treatment plan written to " + path)
	rc.Logf("treatment: manual plan written to %s", path)
	return path, nil
}

// renderPlan turns the flat plan object into markdown with stable section
// order.
func renderPlan(plan map[string]string) string {
	if len(plan) == 0 {
		return "# Treatment Plan\n\nno plan produced\n"
	}
	keys := make([]string, 0, len(plan))
	for key := range plan {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("# Treatment Plan\n")
	for _, key := range keys {
		fmt.Fprintf(&b, "\n## %s\n\n%s\n", sectionTitle(key), plan[key])
	}
	return b.String()
}

// sectionTitle turns a snake_case plan key into a readable heading.
func sectionTitle(key string) string {
	words := strings.Split(key, "_")
	for i, word := range words {
		if word == "" {
			continue
		}
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}
