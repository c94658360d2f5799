package diagnosis

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/guozhi/rehabflow/internal/config"
	"github.com/guozhi/rehabflow/internal/console"
	"github.com/guozhi/rehabflow/internal/crew"
	"github.com/guozhi/rehabflow/internal/llm"
	"github.com/guozhi/rehabflow/internal/module"
)

// scriptedCompleter replays canned agent replies in order.
type scriptedCompleter struct {
	replies  []string
	requests []llm.Request
}

func (s *scriptedCompleter) Complete(_ context.Context, req llm.Request) (string, error) {
	s.requests = append(s.requests, req)
	if len(s.requests) > len(s.replies) {
		return "", errors.New("scripted completer exhausted")
	}
	return s.replies[len(s.requests)-1], nil
}

// testDefinitions wires the crews the stage kicks off to a single task each,
// so one completion call equals one crew run.
func testDefinitions() []crew.Definition {
	return []crew.Definition{
		{
			ID:     crew.DiagnosisCrewID,
			Agents: []crew.AgentDefinition{{Name: "physician", Role: "a physician", Goal: "diagnose"}},
			Tasks:  []crew.TaskDefinition{{Name: "diagnose", Agent: "physician", Description: "diagnose {main_complaint}"}},
		},
		{
			ID:     crew.EliminationCrewID,
			Agents: []crew.AgentDefinition{{Name: "eliminator", Role: "a physician", Goal: "narrow"}},
			Tasks:  []crew.TaskDefinition{{Name: "narrow", Agent: "eliminator", Description: "weigh {other_diagnosis_possibility} against {latest_question_and_answer}"}},
		},
	}
}

func newTestContext(t *testing.T, prompter console.Prompter, completer llm.Completer) *module.Context {
	t.Helper()
	cfg, err := config.NewConfig(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	crews, err := crew.NewRuntime(completer, testDefinitions())
	if err != nil {
		t.Fatal(err)
	}
	rc := module.NewContext(cfg, nil, console.New(prompter, &bytes.Buffer{}), crews, completer, nil)
	rc.State.Intake.ChiefComplaint = "knee pain"
	return rc
}

func TestRunManualBypass(t *testing.T) {
	completer := &scriptedCompleter{}
	rc := newTestContext(t, &console.Scripted{Answers: []string{"q", "lumbar strain", "local tenderness"}}, completer)

	result, err := New().Run(context.Background(), rc)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.Status != module.StatusCompleted {
		t.Fatalf("status = %s", result.Status)
	}
	if len(completer.requests) != 0 {
		t.Fatalf("manual bypass must not call the agents, got %d calls", len(completer.requests))
	}
	conclusion, basis := rc.State.Diagnosis()
	if conclusion != "lumbar strain" || basis != "local tenderness" {
		t.Fatalf("manual diagnosis not stored: %q / %q", conclusion, basis)
	}
	if !rc.State.SectionComplete(SectionName) {
		t.Fatal("diagnosis section not marked complete")
	}
}

func TestRunSkipsEliminationWithoutPossibilities(t *testing.T) {
	completer := &scriptedCompleter{replies: []string{
		`{"diagnosis_conclusion": "lumbar strain", "diagnosis_basis": "tenderness", "other_diagnosis_possibility": [], "suggested_question": "", "suggested_auxiliary_examinations": []}`,
	}}
	rc := newTestContext(t, &console.Scripted{Answers: []string{""}}, completer)

	result, err := New().Run(context.Background(), rc)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.Status != module.StatusCompleted {
		t.Fatalf("status = %s", result.Status)
	}
	if len(completer.requests) != 1 {
		t.Fatalf("elimination must not run with no possibilities, got %d calls", len(completer.requests))
	}
	conclusion, _ := rc.State.Diagnosis()
	if conclusion != "lumbar strain" {
		t.Fatalf("conclusion = %q", conclusion)
	}
}

func TestRunEliminationSettlesInOneRound(t *testing.T) {
	completer := &scriptedCompleter{replies: []string{
		`{"diagnosis_conclusion": "lumbar strain", "diagnosis_basis": "tenderness",
		  "other_diagnosis_possibility": [{"name": "disc herniation", "reason": "radiating pain"}],
		  "suggested_question": "pain at night?",
		  "suggested_auxiliary_examinations": [{"examination_name": "MRI", "reason": "soft tissue detail"}]}`,
		`{"further_inquiries_needed": "no", "diagnosis_conclusion": "disc herniation",
		  "diagnosis_basis": "MRI confirms protrusion", "other_diagnosis_possibility": [],
		  "suggested_auxiliary_check": [], "suggested_question": ""}`,
	}}
	// Answers: run the agents, answer the suggested question, supply the
	// MRI result.
	rc := newTestContext(t, &console.Scripted{Answers: []string{"", "yes", "protrusion at L4"}}, completer)

	result, err := New().Run(context.Background(), rc)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.Status != module.StatusCompleted {
		t.Fatalf("status = %s", result.Status)
	}
	if len(completer.requests) != 2 {
		t.Fatalf("expected diagnosis + one elimination call, got %d", len(completer.requests))
	}

	conclusion, basis := rc.State.Diagnosis()
	if conclusion != "disc herniation" || basis != "MRI confirms protrusion" {
		t.Fatalf("elimination update lost: %q / %q", conclusion, basis)
	}
	latest := rc.State.LatestDialectic()
	if latest.Question != "pain at night?" || latest.Answer != "yes" {
		t.Fatalf("dialectic not recorded: %+v", latest)
	}
	if rc.State.Outline.SupplementaryExams["MRI"] != "protrusion at L4" {
		t.Fatalf("exam result not recorded: %v", rc.State.Outline.SupplementaryExams)
	}
	// The elimination prompt should carry the open possibility and the answer.
	prompt := completer.requests[1].Messages[1].Content
	if !strings.Contains(prompt, "disc herniation") || !strings.Contains(prompt, "pain at night?") {
		t.Fatalf("elimination prompt incomplete: %q", prompt)
	}
}

func TestRunEliminationStopsAtRoundBudget(t *testing.T) {
	open := `{"further_inquiries_needed": "yes", "diagnosis_conclusion": "working",
	  "diagnosis_basis": "still open", "other_diagnosis_possibility": [{"name": "alt", "reason": "open"}],
	  "suggested_auxiliary_check": ["test"], "suggested_question": "more?"}`
	completer := &scriptedCompleter{replies: []string{
		`{"diagnosis_conclusion": "initial", "diagnosis_basis": "b",
		  "other_diagnosis_possibility": [{"name": "alt", "reason": "open"}],
		  "suggested_question": "", "suggested_auxiliary_examinations": []}`,
		open, open,
	}}
	rc := newTestContext(t, &console.Scripted{Answers: []string{""}}, completer)
	rc.Config.Project.Limits.MaxEliminationRounds = 2

	result, err := New().Run(context.Background(), rc)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.Status != module.StatusCompleted {
		t.Fatalf("status = %s", result.Status)
	}
	if len(completer.requests) != 3 {
		t.Fatalf("expected diagnosis + 2 bounded elimination rounds, got %d", len(completer.requests))
	}
	conclusion, _ := rc.State.Diagnosis()
	if conclusion != "working" {
		t.Fatalf("conclusion = %q", conclusion)
	}
	if !rc.State.SectionComplete(SectionName) {
		t.Fatal("stage should complete at the round budget")
	}
}

func TestRunEliminationStopsWhenChecksRunOut(t *testing.T) {
	completer := &scriptedCompleter{replies: []string{
		`{"diagnosis_conclusion": "initial", "diagnosis_basis": "b",
		  "other_diagnosis_possibility": [{"name": "alt", "reason": "open"}],
		  "suggested_question": "", "suggested_auxiliary_examinations": []}`,
		`{"further_inquiries_needed": "yes", "diagnosis_conclusion": "updated",
		  "diagnosis_basis": "b2", "other_diagnosis_possibility": [{"name": "alt", "reason": "open"}],
		  "suggested_auxiliary_check": [], "suggested_question": "more?"}`,
	}}
	rc := newTestContext(t, &console.Scripted{Answers: []string{""}}, completer)

	if _, err := New().Run(context.Background(), rc); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(completer.requests) != 2 {
		t.Fatalf("empty check list should end the loop, got %d calls", len(completer.requests))
	}
}

func TestRunMalformedCrewOutputIsFatal(t *testing.T) {
	completer := &scriptedCompleter{replies: []string{"I believe this is a strain."}}
	rc := newTestContext(t, &console.Scripted{Answers: []string{""}}, completer)

	result, err := New().Run(context.Background(), rc)
	if err == nil {
		t.Fatal("expected error for malformed output")
	}
	var malformed *llm.MalformedOutputError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedOutputError, got %T: %v", err, err)
	}
	if result.Status != module.StatusFailed {
		t.Fatalf("status = %s", result.Status)
	}
	if rc.State.SectionComplete(SectionName) {
		t.Fatal("failed stage must not mark the section complete")
	}
}

// recordingPrompter keeps the labels it was asked, in order.
type recordingPrompter struct {
	labels  []string
	answers []string
	next    int
}

func (p *recordingPrompter) Prompt(label string) (string, error) {
	p.labels = append(p.labels, label)
	if p.next >= len(p.answers) {
		return "", nil
	}
	answer := p.answers[p.next]
	p.next++
	return answer, nil
}

func TestRunEliminationAsksExamsBeforeQuestion(t *testing.T) {
	completer := &scriptedCompleter{replies: []string{
		`{"diagnosis_conclusion": "initial", "diagnosis_basis": "b",
		  "other_diagnosis_possibility": [{"name": "alt", "reason": "open"}],
		  "suggested_question": "", "suggested_auxiliary_examinations": []}`,
		`{"further_inquiries_needed": "yes", "diagnosis_conclusion": "working",
		  "diagnosis_basis": "b2", "other_diagnosis_possibility": [{"name": "alt", "reason": "open"}],
		  "suggested_auxiliary_check": ["ultrasound"], "suggested_question": "any tingling?"}`,
	}}
	prompter := &recordingPrompter{answers: []string{"", "no effusion", "sometimes"}}
	rc := newTestContext(t, prompter, completer)
	rc.Config.Project.Limits.MaxEliminationRounds = 1

	if _, err := New().Run(context.Background(), rc); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if rc.State.Outline.SupplementaryExams["ultrasound"] != "no effusion" {
		t.Fatalf("exam result not recorded: %v", rc.State.Outline.SupplementaryExams)
	}
	if latest := rc.State.LatestDialectic(); latest.Answer != "sometimes" {
		t.Fatalf("question answer not recorded: %+v", latest)
	}

	examAt, questionAt := -1, -1
	for i, label := range prompter.labels {
		if strings.Contains(label, "ultrasound") {
			examAt = i
		}
		if strings.Contains(label, "any tingling?") {
			questionAt = i
		}
	}
	if examAt == -1 || questionAt == -1 {
		t.Fatalf("expected both prompts, got %v", prompter.labels)
	}
	if examAt > questionAt {
		t.Fatalf("exam results must be gathered before the question: %v", prompter.labels)
	}
}

func TestRunEliminationVerdictCaseInsensitive(t *testing.T) {
	completer := &scriptedCompleter{replies: []string{
		`{"diagnosis_conclusion": "initial", "diagnosis_basis": "b",
		  "other_diagnosis_possibility": [{"name": "alt", "reason": "open"}],
		  "suggested_question": "", "suggested_auxiliary_examinations": []}`,
		`{"further_inquiries_needed": "No", "diagnosis_conclusion": "settled",
		  "diagnosis_basis": "b2", "other_diagnosis_possibility": [{"name": "alt", "reason": "open"}],
		  "suggested_auxiliary_check": ["test"], "suggested_question": "more?"}`,
	}}
	rc := newTestContext(t, &console.Scripted{Answers: []string{""}}, completer)

	if _, err := New().Run(context.Background(), rc); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(completer.requests) != 2 {
		t.Fatalf("capitalized verdict should end the loop, got %d calls", len(completer.requests))
	}
	conclusion, _ := rc.State.Diagnosis()
	if conclusion != "settled" {
		t.Fatalf("conclusion = %q", conclusion)
	}
}

func TestFormatPossibilities(t *testing.T) {
	if got := FormatPossibilities(nil); got != "none remaining" {
		t.Fatalf("empty list = %q", got)
	}
	got := FormatPossibilities([]Possibility{
		{Name: "disc herniation", Reason: "radiating pain"},
		{Name: "stenosis"},
	})
	want := "disc herniation: radiating pain\nstenosis: no reason given"
	if got != want {
		t.Fatalf("FormatPossibilities = %q, want %q", got, want)
	}
}
