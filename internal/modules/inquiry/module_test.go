package inquiry

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/guozhi/rehabflow/internal/config"
	"github.com/guozhi/rehabflow/internal/console"
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

func newTestContext(t *testing.T, prompter console.Prompter, completer llm.Completer) *module.Context {
	t.Helper()
	cfg, err := config.NewConfig(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	rc := module.NewContext(cfg, nil, console.New(prompter, &bytes.Buffer{}), nil, completer, nil)
	rc.State.Intake.ChiefComplaint = "knee pain"
	rc.State.Audience = "patient"
	return rc
}

func TestRunCompleteOnFirstPass(t *testing.T) {
	completer := &scriptedCompleter{replies: []string{
		`{"inquiry_analysis": "complete picture", "supplementary_inquiries": [], "inquiry_complete": "yes"}`,
	}}
	rc := newTestContext(t, &console.Scripted{}, completer)

	result, err := New().Run(context.Background(), rc)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.Status != module.StatusCompleted {
		t.Fatalf("status = %s", result.Status)
	}
	if len(completer.requests) != 1 {
		t.Fatalf("expected exactly one agent call, got %d", len(completer.requests))
	}
	if rc.State.Outline.InquiryAnalysis != "complete picture" {
		t.Fatalf("analysis not stored: %q", rc.State.Outline.InquiryAnalysis)
	}
	if !rc.State.SectionComplete(SectionName) {
		t.Fatal("initial_inquiry not marked complete")
	}
	if len(rc.State.Outline.SupplementaryInquiries) != 0 {
		t.Fatalf("no questions should be recorded: %v", rc.State.Outline.SupplementaryInquiries)
	}
}

func TestRunRecordsAnsweredQuestions(t *testing.T) {
	completer := &scriptedCompleter{replies: []string{
		`{"inquiry_analysis": "gaps remain", "supplementary_inquiries": ["how long?", "any trauma?"], "inquiry_complete": "no"}`,
		`{"inquiry_analysis": "now complete", "supplementary_inquiries": [], "inquiry_complete": "yes"}`,
	}}
	// Enter to run the review, first question answered, second declined
	// with an empty line.
	rc := newTestContext(t, &console.Scripted{Answers: []string{"", "two weeks", ""}}, completer)

	if _, err := New().Run(context.Background(), rc); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(completer.requests) != 2 {
		t.Fatalf("expected two agent calls, got %d", len(completer.requests))
	}
	inquiries := rc.State.Outline.SupplementaryInquiries
	if len(inquiries) != 1 || inquiries["how long?"] != "two weeks" {
		t.Fatalf("unexpected recorded inquiries: %v", inquiries)
	}
	if rc.State.Outline.InquiryAnalysis != "now complete" {
		t.Fatalf("latest analysis not kept: %q", rc.State.Outline.InquiryAnalysis)
	}
	// The second round prompt should carry the first round's answer.
	if !strings.Contains(completer.requests[1].Messages[1].Content, "two weeks") {
		t.Fatal("recorded answer missing from second round prompt")
	}
}

func TestRunStopsAtRoundBudget(t *testing.T) {
	incomplete := `{"inquiry_analysis": "still gaps", "supplementary_inquiries": ["q"], "inquiry_complete": "no"}`
	completer := &scriptedCompleter{replies: []string{incomplete, incomplete, incomplete}}
	rc := newTestContext(t, &console.Scripted{Answers: []string{"", "a", "a"}}, completer)

	result, err := New().Run(context.Background(), rc)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.Status != module.StatusCompleted {
		t.Fatalf("status = %s", result.Status)
	}
	if got := len(completer.requests); got != rc.Config.Project.Limits.MaxInquiryRounds {
		t.Fatalf("expected %d calls, got %d", rc.Config.Project.Limits.MaxInquiryRounds, got)
	}
	if !rc.State.SectionComplete(SectionName) {
		t.Fatal("stage should still complete at the round budget")
	}
}

func TestRunFinalRoundQuestionsStillAsked(t *testing.T) {
	completer := &scriptedCompleter{replies: []string{
		`{"inquiry_analysis": "gaps", "supplementary_inquiries": ["when did the pain start?"], "inquiry_complete": "no"}`,
		`{"inquiry_analysis": "still gaps", "supplementary_inquiries": ["any numbness?"], "inquiry_complete": "no"}`,
	}}
	rc := newTestContext(t, &console.Scripted{Answers: []string{"", "three days ago", "none"}}, completer)

	if _, err := New().Run(context.Background(), rc); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	inquiries := rc.State.Outline.SupplementaryInquiries
	if inquiries["when did the pain start?"] != "three days ago" {
		t.Fatalf("first round answer not recorded: %v", inquiries)
	}
	if inquiries["any numbness?"] != "none" {
		t.Fatalf("final round question was never asked: %v", inquiries)
	}
}

func TestRunOperatorSkipsReview(t *testing.T) {
	completer := &scriptedCompleter{}
	rc := newTestContext(t, &console.Scripted{Answers: []string{"q"}}, completer)

	result, err := New().Run(context.Background(), rc)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.Status != module.StatusSkipped {
		t.Fatalf("status = %s", result.Status)
	}
	if len(completer.requests) != 0 {
		t.Fatalf("skip must not call the agent, got %d calls", len(completer.requests))
	}
	if !rc.State.SectionComplete(SectionName) {
		t.Fatal("skipped stage must still mark initial_inquiry complete")
	}
}

func TestRunInquiryCompleteCaseInsensitive(t *testing.T) {
	completer := &scriptedCompleter{replies: []string{
		`{"inquiry_analysis": "complete", "supplementary_inquiries": [], "inquiry_complete": "Yes"}`,
	}}
	rc := newTestContext(t, &console.Scripted{}, completer)

	if _, err := New().Run(context.Background(), rc); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(completer.requests) != 1 {
		t.Fatalf("capitalized verdict should end the loop, got %d calls", len(completer.requests))
	}
}

func TestRunMalformedReplyIsFatal(t *testing.T) {
	completer := &scriptedCompleter{replies: []string{"the inquiry looks fine to me"}}
	rc := newTestContext(t, &console.Scripted{}, completer)

	result, err := New().Run(context.Background(), rc)
	if err == nil {
		t.Fatal("expected error for malformed reply")
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

func TestRunEmptyReplyIsFatal(t *testing.T) {
	completer := &scriptedCompleter{replies: []string{""}}
	rc := newTestContext(t, &console.Scripted{}, completer)

	_, err := New().Run(context.Background(), rc)
	var malformed *llm.MalformedOutputError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedOutputError, got %v", err)
	}
}
