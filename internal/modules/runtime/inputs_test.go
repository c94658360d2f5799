package runtime

import (
	"strings"
	"testing"

	"github.com/guozhi/rehabflow/internal/session"
)

func TestInputsRendersSessionFields(t *testing.T) {
	state := session.New()
	state.Audience = session.AudienceExpert
	state.Intake.ChiefComplaint = "knee pain"
	state.Intake.AuxiliaryExams["X-ray"] = "no fracture"
	state.RecordSupplementaryInquiry("how long?", "two weeks")
	state.RecordDialectic("night pain?", "yes")
	state.RecordSupplementaryExam("MRI", "meniscal tear")
	state.SetDiagnosis("meniscal injury", "MRI findings")
	state.MarkSectionComplete("initial_inquiry")
	state.MarkSectionComplete("diagnosis")

	inputs := Inputs(state)
	if inputs["audience_level"] != "expert" {
		t.Fatalf("audience_level = %q", inputs["audience_level"])
	}
	if inputs["main_complaint"] != "knee pain" {
		t.Fatalf("main_complaint = %q", inputs["main_complaint"])
	}
	if inputs["auxiliary_examinations"] != "X-ray: no fracture" {
		t.Fatalf("auxiliary_examinations = %q", inputs["auxiliary_examinations"])
	}
	if inputs["supplementary_inquiries"] != "how long?: two weeks" {
		t.Fatalf("supplementary_inquiries = %q", inputs["supplementary_inquiries"])
	}
	if !strings.Contains(inputs["latest_question_and_answer"], "night pain?") {
		t.Fatalf("latest_question_and_answer = %q", inputs["latest_question_and_answer"])
	}
	if inputs["diagnosis_conclusion"] != "meniscal injury" {
		t.Fatalf("diagnosis_conclusion = %q", inputs["diagnosis_conclusion"])
	}
	if inputs["complete_sections"] != "initial_inquiry, diagnosis" {
		t.Fatalf("complete_sections = %q", inputs["complete_sections"])
	}
}

func TestInputsPlaceholdersForEmptyState(t *testing.T) {
	inputs := Inputs(session.New())
	if inputs["supplementary_exams"] != "none recorded" {
		t.Fatalf("supplementary_exams = %q", inputs["supplementary_exams"])
	}
	if inputs["diagnostic_dialectics"] != "none recorded" {
		t.Fatalf("diagnostic_dialectics = %q", inputs["diagnostic_dialectics"])
	}
	if inputs["diagnosis_conclusion"] != "not established yet" {
		t.Fatalf("diagnosis_conclusion = %q", inputs["diagnosis_conclusion"])
	}
	if inputs["complete_sections"] != "none" {
		t.Fatalf("complete_sections = %q", inputs["complete_sections"])
	}
}
