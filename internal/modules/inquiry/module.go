// Package inquiry runs the initial-inquiry refinement loop: a supervising
// agent reviews the collected patient information and suggests supplementary
// questions until it judges the picture complete or the round budget runs out.
package inquiry

import (
	"context"
	"fmt"
	"strings"

	"github.com/guozhi/rehabflow/internal/crew"
	"github.com/guozhi/rehabflow/internal/llm"
	"github.com/guozhi/rehabflow/internal/module"
	"github.com/guozhi/rehabflow/internal/modules/runtime"
)

const (
	// ID is the stage identifier used by the pipeline sequence.
	ID            = "inquiry"
	moduleVersion = "1.0.0"

	// SectionName is recorded in the outline when this stage completes.
	SectionName = "initial_inquiry"
)

const supervisorPersona = "You are a senior rehabilitation physician supervising an initial patient inquiry. " +
	"You judge whether the collected information is sufficient to start diagnostic reasoning, " +
	"and when it is not, you name the specific questions that would close the gaps."

const promptTemplate = `Review the initial inquiry below and decide whether it is complete enough
to proceed to diagnosis. Write your analysis for a {audience_level} audience.

Chief complaint: {main_complaint}
History of present illness: {present_illness}
Past medical history: {past_medical_history}
Allergy history: {allergy_history}
Family history: {family_history}
Physical examination: {physical_examination}
Personal history: {personal_history}
Auxiliary examinations: {auxiliary_examinations}
Supplementary answers already recorded: {supplementary_inquiries}

Respond with a strict JSON object only, no surrounding prose:
{"inquiry_analysis": "your assessment of the collected information",
 "supplementary_inquiries": ["question that would close a gap"],
 "inquiry_complete": "yes or no"}`

// reply is the supervisor's answer. Missing keys decode to zero values and
// are defaulted at the use site.
type reply struct {
	InquiryAnalysis        string   `json:"inquiry_analysis"`
	SupplementaryInquiries []string `json:"supplementary_inquiries"`
	InquiryComplete        string   `json:"inquiry_complete"`
}

// Module is the inquiry refinement stage.
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

// New creates an inquiry module.
func New() *Module {
	return &Module{}
}

// Info implements module.Module.
func (m *Module) Info() module.Info {
	return module.Info{
		ID:          ID,
		Name:        "Inquiry Refinement",
		Description: "Reviews the initial inquiry with a supervising agent and gathers supplementary answers.",
		Version:     moduleVersion,
	}
}

// Run implements module.Module.
func (m *Module) Run(ctx context.Context, rc *module.Context) (module.Result, error) {
	rc.Console.Banner("Inquiry Refinement")

	choice, err := rc.Console.Prompt("Press enter to review the inquiry with the supervising agent, or q to skip the review")
	if err != nil {
		return module.Result{Status: module.StatusFailed, Message: "inquiry prompt failed"}, err
	}
	if strings.EqualFold(choice, "q") {
		rc.Logf("inquiry: review skipped by operator")
		rc.State.MarkSectionComplete(SectionName)
		return module.Result{Status: module.StatusSkipped, Message: "inquiry review skipped by operator"}, nil
	}

	maxRounds := rc.Config.Project.Limits.MaxInquiryRounds
	for round := 1; round <= maxRounds; round++ {
		rc.Logf("inquiry: round %d of %d", round, maxRounds)

		parsed, err := m.review(ctx, rc)
		if err != nil {
			return module.Result{Status: module.StatusFailed, Message: "inquiry review failed"}, err
		}

		rc.State.Outline.InquiryAnalysis = parsed.InquiryAnalysis
		rc.Console.Section("Inquiry analysis",
			llm.StringOrDefault(parsed.InquiryAnalysis, "no analysis provided"))

		if strings.EqualFold(parsed.InquiryComplete, "yes") {
			rc.Console.Notice("The supervising agent judged the inquiry complete.")
			break
		}
		// Questions suggested on the final pass are still put to the
		// operator; their answers feed the diagnosis prompts.
		if err := m.askSupplementary(rc, parsed.SupplementaryInquiries); err != nil {
			return module.Result{Status: module.StatusFailed, Message: "supplementary inquiry failed"}, err
		}
		if round == maxRounds {
			rc.Console.Notice("Round budget reached; proceeding with the information on hand.")
		}
	}

	rc.State.MarkSectionComplete(SectionName)
	return module.Result{Status: module.StatusCompleted, Message: "initial inquiry refined"}, nil
}

// review makes one direct completion call with the supervisor persona and
// decodes the strict JSON verdict.
func (m *Module) review(ctx context.Context, rc *module.Context) (reply, error) {
	prompt := crew.Interpolate(promptTemplate, runtime.Inputs(rc.State))
	text, err := rc.Completer.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: "system", Content: supervisorPersona},
			{Role: "user", Content: prompt},
		},
		Temperature: rc.Config.Project.LLM.Temperature,
		MaxTokens:   rc.Config.Project.LLM.MaxTokens,
	})
	if err != nil {
		return reply{}, fmt.Errorf("inquiry: review call: %w", err)
	}

	var parsed reply
	if err := llm.DecodeObject(text, &parsed); err != nil {
		return reply{}, err
	}
	return parsed, nil
}

// askSupplementary puts each suggested question to the operator. Empty
// answers decline the question and nothing is recorded.
func (m *Module) askSupplementary(rc *module.Context, questions []string) error {
	if len(questions) == 0 {
		rc.Console.Notice("No supplementary questions were suggested.")
		return nil
	}
	for _, question := range questions {
		answer, err := rc.Console.Prompt(question + " (enter to skip)")
		if err != nil {
			return fmt.Errorf("inquiry: read answer: %w", err)
		}
		if rc.State.RecordSupplementaryInquiry(question, answer) {
			rc.Logf("inquiry: recorded supplementary answer for %q", question)
		}
	}
	return nil
}
