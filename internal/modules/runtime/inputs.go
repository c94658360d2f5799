// Package runtime holds helpers shared by the stage modules.
package runtime

import (
	"fmt"
	"strings"

	"github.com/guozhi/rehabflow/internal/llm"
	"github.com/guozhi/rehabflow/internal/session"
)

// Inputs renders the session state into the placeholder bindings the crew
// prompt templates use. Every crew receives the same binding set; templates
// pick the keys they need.
func Inputs(state *session.State) map[string]string {
	conclusion, basis := state.Diagnosis()
	latest := state.LatestDialectic()
	sections := "none"
	if len(state.Outline.CompleteSections) > 0 {
		sections = strings.Join(state.Outline.CompleteSections, ", ")
	}
	return map[string]string{
		"audience_level":             string(state.Audience),
		"main_complaint":             state.Intake.ChiefComplaint,
		"present_illness":            state.Intake.PresentIllness,
		"past_medical_history":       state.Intake.PastMedicalHistory,
		"allergy_history":            state.Intake.AllergyHistory,
		"family_history":             state.Intake.FamilyHistory,
		"physical_examination":       state.Intake.PhysicalExamination,
		"personal_history":           state.Intake.PersonalHistory,
		"auxiliary_examinations":     session.FormatMap(state.Intake.AuxiliaryExams),
		"supplementary_inquiries":    session.FormatMap(state.Outline.SupplementaryInquiries),
		"supplementary_exams":        session.FormatMap(state.Outline.SupplementaryExams),
		"diagnostic_dialectics":      session.FormatQAs(state.Outline.DiagnosticDialectics),
		"latest_question_and_answer": fmt.Sprintf("Q: %s\nA: %s", latest.Question, latest.Answer),
		"diagnosis_conclusion":       llm.StringOrDefault(conclusion, "not established yet"),
		"diagnosis_basis":            llm.StringOrDefault(basis, "not established yet"),
		"complete_sections":          sections,
		"diagnosis_result":           session.FormatMap(state.DiagnosisResult),
		"treatment_plan":             session.FormatMap(state.TreatmentPlan),
	}
}
