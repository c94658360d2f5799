package diagnosis

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
	ID            = "diagnosis"
	moduleVersion = "1.0.0"

	// SectionName is recorded in the outline when this stage completes.
	SectionName = "diagnosis"
)

// Possibility is one differential diagnosis still open.
type Possibility struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// crewReply is the consolidated output of the diagnosis crew.
type crewReply struct {
	DiagnosisConclusion            string        `json:"diagnosis_conclusion"`
	DiagnosisBasis                 string        `json:"diagnosis_basis"`
	OtherDiagnosisPossibility      []Possibility `json:"other_diagnosis_possibility"`
	QualityControlFeedback         string        `json:"quality_control_feedback"`
	SuggestedQuestion              string        `json:"suggested_question"`
	SuggestedAuxiliaryExaminations []struct {
		ExaminationName string `json:"examination_name"`
		Reason          string `json:"reason"`
	} `json:"suggested_auxiliary_examinations"`
}

// eliminationReply is one round of the elimination crew.
type eliminationReply struct {
	FurtherInquiriesNeeded    string        `json:"further_inquiries_needed"`
	DiagnosisConclusion       string        `json:"diagnosis_conclusion"`
	DiagnosisBasis            string        `json:"diagnosis_basis"`
	OtherDiagnosisPossibility []Possibility `json:"other_diagnosis_possibility"`
	SuggestedAuxiliaryCheck   []string      `json:"suggested_auxiliary_check"`
	SuggestedQuestion         string        `json:"suggested_question"`
}

// Module is the diagnosis stage.
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

// New creates a diagnosis module.
func New() *Module {
	return &Module{}
}

// Info implements module.Module.
func (m *Module) Info() module.Info {
	return module.Info{
		ID:          ID,
		Name:        "Diagnosis",
		Description: "Runs the diagnosis crew and narrows the differential possibilities through the elimination loop.",
		Version:     moduleVersion,
	}
}

// Run implements module.Module.
func (m *Module) Run(ctx context.Context, rc *module.Context) (module.Result, error) {
	rc.Console.Banner("Diagnosis")

	choice, err := rc.Console.Prompt("Press enter to run the diagnosis agents, or q to enter the diagnosis yourself")
	if err != nil {
		return module.Result{Status: module.StatusFailed, Message: "diagnosis prompt failed"}, err
	}
	if strings.EqualFold(choice, "q") {
		if err := m.manualDiagnosis(rc); err != nil {
			return module.Result{Status: module.StatusFailed, Message: "manual diagnosis entry failed"}, err
		}
		rc.State.MarkSectionComplete(SectionName)
		return module.Result{Status: module.StatusCompleted, Message: "diagnosis entered manually"}, nil
	}

	parsed, err := m.runDiagnosisCrew(ctx, rc)
	if err != nil {
		return module.Result{Status: module.StatusFailed, Message: "diagnosis crew failed"}, err
	}

	rc.State.SetDiagnosis(
		llm.StringOrDefault(parsed.DiagnosisConclusion, "no conclusion provided"),
		llm.StringOrDefault(parsed.DiagnosisBasis, "no basis provided"),
	)
	m.showDiagnosis(rc, parsed.DiagnosisConclusion, parsed.DiagnosisBasis, parsed.OtherDiagnosisPossibility)
	if parsed.QualityControlFeedback != "" {
		rc.Console.Section("Quality control feedback", parsed.QualityControlFeedback)
	}

	if err := m.askQuestion(rc, parsed.SuggestedQuestion); err != nil {
		return module.Result{Status: module.StatusFailed, Message: "diagnostic question failed"}, err
	}
	exams := make([]string, 0, len(parsed.SuggestedAuxiliaryExaminations))
	for _, exam := range parsed.SuggestedAuxiliaryExaminations {
		exams = append(exams, exam.ExaminationName)
	}
	if err := m.askExamResults(rc, exams); err != nil {
		return module.Result{Status: module.StatusFailed, Message: "examination entry failed"}, err
	}

	if err := m.eliminate(ctx, rc, parsed.OtherDiagnosisPossibility); err != nil {
		return module.Result{Status: module.StatusFailed, Message: "elimination loop failed"}, err
	}

	rc.State.MarkSectionComplete(SectionName)
	conclusion, _ := rc.State.Diagnosis()
	return module.Result{Status: module.StatusCompleted, Message: "diagnosis established: " + conclusion}, nil
}

// manualDiagnosis lets the operator bypass the agents entirely.
func (m *Module) manualDiagnosis(rc *module.Context) error {
	conclusion, err := rc.Console.Prompt("Diagnosis conclusion")
	if err != nil {
		return fmt.Errorf("diagnosis: read conclusion: %w", err)
	}
	basis, err := rc.Console.Prompt("Diagnosis basis")
	if err != nil {
		return fmt.Errorf("diagnosis: read basis: %w", err)
	}
	rc.State.SetDiagnosis(
		llm.StringOrDefault(conclusion, "entered without conclusion"),
		llm.StringOrDefault(basis, "entered without basis"),
	)
	rc.Logf("diagnosis: operator entered diagnosis manually")
	return nil
}

func (m *Module) runDiagnosisCrew(ctx context.Context, rc *module.Context) (crewReply, error) {
	result, err := rc.Crews.Kickoff(ctx, crew.DiagnosisCrewID, runtime.Inputs(rc.State))
	if err != nil {
		return crewReply{}, err
	}
	var parsed crewReply
	if err := llm.DecodeObject(result.Raw, &parsed); err != nil {
		return crewReply{}, err
	}
	return parsed, nil
}

// eliminate narrows the differential list round by round. The loop ends when
// the agent says no further inquiries are needed, when no possibilities or
// suggested checks remain, or when the round budget runs out.
func (m *Module) eliminate(ctx context.Context, rc *module.Context, open []Possibility) error {
	if len(open) == 0 {
		rc.Console.Notice("No differential possibilities remain; skipping elimination.")
		return nil
	}

	maxRounds := rc.Config.Project.Limits.MaxEliminationRounds
	for round := 1; round <= maxRounds; round++ {
		rc.Logf("diagnosis: elimination round %d of %d, %d possibilit(ies) open", round, maxRounds, len(open))

		inputs := runtime.Inputs(rc.State)
		inputs["other_diagnosis_possibility"] = FormatPossibilities(open)
		result, err := rc.Crews.Kickoff(ctx, crew.EliminationCrewID, inputs)
		if err != nil {
			return err
		}
		var parsed eliminationReply
		if err := llm.DecodeObject(result.Raw, &parsed); err != nil {
			return err
		}

		rc.State.SetDiagnosis(
			llm.StringOrDefault(parsed.DiagnosisConclusion, "no conclusion provided"),
			llm.StringOrDefault(parsed.DiagnosisBasis, "no basis provided"),
		)
		m.showDiagnosis(rc, parsed.DiagnosisConclusion, parsed.DiagnosisBasis, parsed.OtherDiagnosisPossibility)

		open = parsed.OtherDiagnosisPossibility
		if strings.EqualFold(parsed.FurtherInquiriesNeeded, "no") {
			rc.Console.Notice("The elimination agent judged the diagnosis settled.")
			return nil
		}
		if len(open) == 0 {
			rc.Console.Notice("Every differential possibility has been ruled out.")
			return nil
		}
		if len(parsed.SuggestedAuxiliaryCheck) == 0 {
			rc.Console.Notice("No further discriminating examinations were suggested.")
			return nil
		}

		// Examination results first, then the follow-up question.
		if err := m.askExamResults(rc, parsed.SuggestedAuxiliaryCheck); err != nil {
			return err
		}
		if err := m.askQuestion(rc, parsed.SuggestedQuestion); err != nil {
			return err
		}
	}

	rc.Console.Notice("Elimination round budget reached; keeping the current working diagnosis.")
	rc.Logf("diagnosis: elimination stopped at round budget with %d possibilit(ies) open", len(open))
	return nil
}

// askQuestion puts the agent's suggested question to the operator; an empty
// answer declines it.
func (m *Module) askQuestion(rc *module.Context, question string) error {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil
	}
	answer, err := rc.Console.Prompt(question + " (enter to skip)")
	if err != nil {
		return fmt.Errorf("diagnosis: read answer: %w", err)
	}
	if rc.State.RecordDialectic(question, answer) {
		rc.Logf("diagnosis: recorded answer for %q", question)
	}
	return nil
}

// askExamResults asks the operator for each suggested exam's result; empty
// answers decline the exam.
func (m *Module) askExamResults(rc *module.Context, exams []string) error {
	for _, exam := range exams {
		exam = strings.TrimSpace(exam)
		if exam == "" {
			continue
		}
		result, err := rc.Console.Prompt("Result of " + exam + " (enter to skip)")
		if err != nil {
			return fmt.Errorf("diagnosis: read exam result: %w", err)
		}
		if rc.State.RecordSupplementaryExam(exam, result) {
			rc.Logf("diagnosis: recorded result for %q", exam)
		}
	}
	return nil
}

func (m *Module) showDiagnosis(rc *module.Context, conclusion, basis string, open []Possibility) {
	rc.Console.Section("Working diagnosis", llm.StringOrDefault(conclusion, "no conclusion provided"))
	rc.Console.Section("Basis", llm.StringOrDefault(basis, "no basis provided"))
	rc.Console.Section("Differential possibilities", FormatPossibilities(open))
}

// FormatPossibilities renders the open differential list for prompts and the
// console.
func FormatPossibilities(open []Possibility) string {
	if len(open) == 0 {
		return "none remaining"
	}
	var b strings.Builder
	for i, p := range open {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s: %s", p.Name, llm.StringOrDefault(p.Reason, "no reason given"))
	}
	return b.String()
}
