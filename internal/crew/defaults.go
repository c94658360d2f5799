package crew

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Crew identifiers used by the pipeline stages.
const (
	DiagnosisCrewID   = "diagnosis"
	EliminationCrewID = "elimination"
	TreatmentCrewID   = "treatment"
	ReportCrewID      = "report"
)

const defaultDiagnosisYAML = `id: diagnosis
description: Produces a working diagnosis with basis, differential possibilities, and suggested follow-ups.
agents:
  - name: diagnosis_agent
    role: an experienced rehabilitation outpatient physician
    goal: reach the most likely diagnosis from the collected patient information and list the differential possibilities that still need to be ruled out
    backstory: You have decades of clinical reasoning experience and you are careful to separate what is established from what is still uncertain.
  - name: auxiliary_examination_agent
    role: a rehabilitation physician specialized in auxiliary examinations
    goal: suggest the auxiliary examinations and the single most discriminating question that would narrow the differential list fastest
    backstory: You know which imaging, laboratory, and functional tests actually change clinical decisions, and you never order tests that add no information.
  - name: diagnosis_quality_control_agent
    role: the chief physician reviewing a colleague's diagnostic reasoning
    goal: check the proposed diagnosis for internal consistency and produce the consolidated result
    backstory: You review diagnostic write-ups for completeness and flag reasoning that the evidence does not support.
tasks:
  - name: diagnosis_task
    agent: diagnosis_agent
    description: |
      Review the patient information collected so far and reason towards a diagnosis.
      Write for a {audience_level} audience.

      Chief complaint: {main_complaint}
      History of present illness: {present_illness}
      Past medical history: {past_medical_history}
      Allergy history: {allergy_history}
      Family history: {family_history}
      Physical examination: {physical_examination}
      Personal history: {personal_history}
      Auxiliary examinations: {auxiliary_examinations}
      Supplementary inquiries recorded during refinement: {supplementary_inquiries}

      State the most likely diagnosis, the evidence supporting it, and every
      alternative diagnosis that cannot yet be ruled out.
    expected_output: Diagnostic reasoning with a primary conclusion, its basis, and remaining differential possibilities.
  - name: auxiliary_examination_task
    agent: auxiliary_examination_agent
    context: [diagnosis_task]
    description: |
      Based on the diagnostic reasoning above, suggest the auxiliary examinations
      that would best discriminate between the remaining possibilities, and the one
      question that the attending physician should ask the patient next.
    expected_output: A short list of suggested examinations, each with its name and the reason it helps, plus one suggested question.
  - name: diagnosis_quality_control_task
    agent: diagnosis_quality_control_agent
    context: [auxiliary_examination_task]
    description: |
      Consolidate the diagnostic reasoning and the examination suggestions into a
      single strict JSON object and add your quality-control feedback. Output the
      JSON object only, no surrounding prose.
    expected_output: |
      {"diagnosis_conclusion": "most likely diagnosis",
       "diagnosis_basis": "evidence supporting it",
       "other_diagnosis_possibility": [{"name": "alternative diagnosis", "reason": "why it cannot be ruled out yet"}],
       "quality_control_feedback": "reviewer remarks",
       "suggested_question": "one question to narrow the differential",
       "suggested_auxiliary_examinations": [{"examination_name": "exam", "reason": "what it discriminates"}]}
`

const defaultEliminationYAML = `id: elimination
description: Narrows the remaining differential possibilities using newly gathered evidence.
agents:
  - name: possibilities_elimination_agent
    role: a rehabilitation physician performing differential-diagnosis elimination
    goal: use the newest answers and examination results to rule differential possibilities in or out, updating the working diagnosis accordingly
    backstory: You weigh each new piece of evidence against every open possibility and you say plainly when no further inquiry would change the conclusion.
tasks:
  - name: possibilities_elimination_task
    agent: possibilities_elimination_agent
    description: |
      The current working diagnosis and the evidence to weigh are below. Write for
      a {audience_level} audience.

      Working diagnosis: {diagnosis_conclusion}
      Diagnosis basis: {diagnosis_basis}
      Differential possibilities still open: {other_diagnosis_possibility}
      Most recent question and answer: {latest_question_and_answer}
      Supplementary examination results so far: {supplementary_exams}

      Update the conclusion and basis in light of this evidence. Remove every
      possibility the evidence now rules out. If the remaining evidence settles
      the diagnosis, say that no further inquiries are needed. Output a strict
      JSON object only, no surrounding prose.
    expected_output: |
      {"further_inquiries_needed": "yes or no",
       "diagnosis_conclusion": "updated diagnosis",
       "diagnosis_basis": "updated basis",
       "other_diagnosis_possibility": [{"name": "still-open alternative", "reason": "what would rule it out"}],
       "suggested_auxiliary_check": ["examination that would discriminate"],
       "suggested_question": "one question to ask next"}
`

const defaultTreatmentYAML = `id: treatment
description: Maps the final diagnosis to a rehabilitation treatment plan.
agents:
  - name: treatment_plan_agent
    role: a rehabilitation physician drafting treatment plans
    goal: design a staged rehabilitation plan for the diagnosed condition that accounts for the patient's history and contraindications
    backstory: Your plans are concrete enough to execute, staged over time, and always respect allergy and comorbidity constraints.
  - name: plan_quality_control_agent
    role: the chief physician reviewing treatment plans before they are issued
    goal: verify the plan is safe and complete, then produce the consolidated plan
    backstory: You reject plans that ignore contraindications or skip follow-up criteria.
tasks:
  - name: treatment_plan_task
    agent: treatment_plan_agent
    description: |
      Draft a rehabilitation treatment plan. Write for a {audience_level} audience.

      Final diagnosis: {diagnosis_conclusion}
      Diagnosis basis: {diagnosis_basis}
      Supplementary examination results: {supplementary_exams}
      Diagnostic questions and answers: {diagnostic_dialectics}
      History of present illness: {present_illness}
      Past medical history: {past_medical_history}
      Allergy history: {allergy_history}
      Family history: {family_history}
      Personal history: {personal_history}

      Cover treatment goals, staged interventions, precautions, and follow-up.
    expected_output: A staged treatment plan with goals, interventions, precautions, and follow-up criteria.
  - name: plan_quality_control_task
    agent: plan_quality_control_agent
    context: [treatment_plan_task]
    description: |
      Review the draft plan above for safety and completeness, adjust it where
      needed, and output the final plan as one flat JSON object whose values are
      strings. Output the JSON object only, no surrounding prose.
    expected_output: |
      {"treatment_goal": "...",
       "interventions": "...",
       "precautions": "...",
       "follow_up": "..."}
`

const defaultReportYAML = `id: report
description: Synthesizes the full session trace into a final narrative report.
agents:
  - name: report_summary_agent
    role: a medical writer producing outpatient visit reports
    goal: turn the complete diagnostic session trace into one clear narrative report suited to the reader
    backstory: You write faithful summaries that never invent findings and always keep the chronology of the visit intact.
tasks:
  - name: report_summary_task
    agent: report_summary_agent
    description: |
      Write the final report of this rehabilitation outpatient session as
      markdown. Write for a {audience_level} audience.

      Initial inquiry
      - Chief complaint: {main_complaint}
      - History of present illness: {present_illness}
      - Past medical history: {past_medical_history}
      - Allergy history: {allergy_history}
      - Family history: {family_history}
      - Physical examination: {physical_examination}
      - Personal history: {personal_history}
      - Auxiliary examinations: {auxiliary_examinations}

      Process record
      - Supplementary inquiries: {supplementary_inquiries}
      - Diagnostic questions and answers: {diagnostic_dialectics}
      - Supplementary examination results: {supplementary_exams}
      - Completed sections: {complete_sections}

      Results
      - Diagnosis: {diagnosis_result}
      - Treatment plan: {treatment_plan}

      Cover the visit chronologically: what was collected, what was asked, how the
      differential narrowed, the final diagnosis, and the plan.
    expected_output: A markdown report narrating the full visit.
`

var defaultCrewFiles = map[string]string{
	"diagnosis.yaml":   defaultDiagnosisYAML,
	"elimination.yaml": defaultEliminationYAML,
	"treatment.yaml":   defaultTreatmentYAML,
	"report.yaml":      defaultReportYAML,
}

// EnsureDefaultDefinitions writes the built-in crew files into dir when they
// are absent, so deployments can edit prompts without rebuilding. Existing
// files are never overwritten.
func EnsureDefaultDefinitions(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("crew: ensure crews dir: %w", err)
	}
	for name, content := range defaultCrewFiles {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			continue
		} else if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("crew: stat %s: %w", path, err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return fmt.Errorf("crew: write %s: %w", path, err)
		}
	}
	return nil
}
