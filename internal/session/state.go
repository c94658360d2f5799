// Package session holds the mutable record threaded through every stage of a
// clinical pipeline run. The state lives for exactly one run; the only
// persistence is the plan and report artifacts written at the end.
package session

import (
	"fmt"
	"sort"
	"strings"
)

// AudienceLevel selects how technical agent output should be.
type AudienceLevel string

const (
	AudiencePatient      AudienceLevel = "patient"
	AudienceProfessional AudienceLevel = "professional"
	AudienceExpert       AudienceLevel = "expert"
)

// ParseAudienceLevel normalizes operator input into a known audience level.
func ParseAudienceLevel(value string) (AudienceLevel, error) {
	switch AudienceLevel(strings.ToLower(strings.TrimSpace(value))) {
	case AudiencePatient:
		return AudiencePatient, nil
	case AudienceProfessional:
		return AudienceProfessional, nil
	case AudienceExpert:
		return AudienceExpert, nil
	default:
		return "", fmt.Errorf("session: unknown audience level %q (want patient, professional, or expert)", value)
	}
}

// Intake captures the fixed clinical fields gathered before any agent runs.
type Intake struct {
	ChiefComplaint      string
	PresentIllness      string
	PastMedicalHistory  string
	AllergyHistory      string
	FamilyHistory       string
	PhysicalExamination string
	PersonalHistory     string
	AuxiliaryExams      map[string]string
}

// QA is one recorded diagnostic question/answer exchange.
type QA struct {
	Question string
	Answer   string
}

// Outline accumulates cross-stage artifacts of the diagnostic process.
type Outline struct {
	// CompleteSections is append-only; each section name appears at most once.
	CompleteSections []string
	// SupplementaryInquiries maps a suggested question to the operator's answer.
	SupplementaryInquiries map[string]string
	// DiagnosticDialectics records question/answer pairs in the order asked.
	DiagnosticDialectics []QA
	// SupplementaryExams maps an exam name to its reported result.
	SupplementaryExams map[string]string
	// InquiryAnalysis is the latest advisory summary of the initial inquiry.
	InquiryAnalysis string
}

// State is the session record passed through the pipeline.
type State struct {
	Intake          Intake
	Audience        AudienceLevel
	Outline         Outline
	DiagnosisResult map[string]string
	TreatmentPlan   map[string]string
}

// New returns an empty session state with all maps initialized.
func New() *State {
	return &State{
		Intake: Intake{AuxiliaryExams: map[string]string{}},
		Outline: Outline{
			SupplementaryInquiries: map[string]string{},
			SupplementaryExams:     map[string]string{},
		},
		DiagnosisResult: map[string]string{},
		TreatmentPlan:   map[string]string{},
	}
}

// MarkSectionComplete appends a section name to the outline. Repeated marks
// for the same section are ignored so the list stays append-once.
func (s *State) MarkSectionComplete(name string) {
	name = strings.TrimSpace(name)
	if name == "" || s.SectionComplete(name) {
		return
	}
	s.Outline.CompleteSections = append(s.Outline.CompleteSections, name)
}

// SectionComplete reports whether the named section has been recorded.
func (s *State) SectionComplete(name string) bool {
	for _, section := range s.Outline.CompleteSections {
		if section == name {
			return true
		}
	}
	return false
}

// RecordSupplementaryInquiry stores an answered supplementary question.
// Empty answers mean the operator declined and nothing is recorded.
func (s *State) RecordSupplementaryInquiry(question, answer string) bool {
	question = strings.TrimSpace(question)
	answer = strings.TrimSpace(answer)
	if question == "" || answer == "" {
		return false
	}
	s.Outline.SupplementaryInquiries[question] = answer
	return true
}

// RecordDialectic appends a diagnostic question/answer pair.
func (s *State) RecordDialectic(question, answer string) bool {
	question = strings.TrimSpace(question)
	answer = strings.TrimSpace(answer)
	if question == "" || answer == "" {
		return false
	}
	s.Outline.DiagnosticDialectics = append(s.Outline.DiagnosticDialectics, QA{Question: question, Answer: answer})
	return true
}

// LatestDialectic returns the most recent question/answer pair, or a
// placeholder when none has been recorded yet.
func (s *State) LatestDialectic() QA {
	if n := len(s.Outline.DiagnosticDialectics); n > 0 {
		return s.Outline.DiagnosticDialectics[n-1]
	}
	return QA{Question: "none suggested yet", Answer: "no answer recorded"}
}

// RecordSupplementaryExam stores an exam result supplied by the operator.
func (s *State) RecordSupplementaryExam(name, result string) bool {
	name = strings.TrimSpace(name)
	result = strings.TrimSpace(result)
	if name == "" || result == "" {
		return false
	}
	s.Outline.SupplementaryExams[name] = result
	return true
}

// SetDiagnosis overwrites the working diagnosis conclusion and basis.
func (s *State) SetDiagnosis(conclusion, basis string) {
	s.DiagnosisResult["conclusion"] = conclusion
	s.DiagnosisResult["basis"] = basis
}

// Diagnosis returns the current conclusion and basis.
func (s *State) Diagnosis() (conclusion, basis string) {
	return s.DiagnosisResult["conclusion"], s.DiagnosisResult["basis"]
}

// MergeTreatmentPlan folds agent plan fields into the session; last write wins.
func (s *State) MergeTreatmentPlan(plan map[string]string) {
	for key, value := range plan {
		s.TreatmentPlan[key] = value
	}
}

// FormatMap renders a string map as "k: v" lines with stable key order, for
// embedding session fields in prompts.
func FormatMap(values map[string]string) string {
	if len(values) == 0 {
		return "none recorded"
	}
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	var b strings.Builder
	for i, key := range keys {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s: %s", key, values[key])
	}
	return b.String()
}

// FormatQAs renders recorded question/answer pairs in order.
func FormatQAs(pairs []QA) string {
	if len(pairs) == 0 {
		return "none recorded"
	}
	var b strings.Builder
	for i, pair := range pairs {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "Q: %s\nA: %s", pair.Question, pair.Answer)
	}
	return b.String()
}
