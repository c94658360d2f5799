package intake

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/guozhi/rehabflow/internal/config"
	"github.com/guozhi/rehabflow/internal/console"
	"github.com/guozhi/rehabflow/internal/module"
	"github.com/guozhi/rehabflow/internal/session"
	"github.com/guozhi/rehabflow/internal/tui"
)

func newTestContext(t *testing.T, prompter console.Prompter) *module.Context {
	t.Helper()
	cfg, err := config.NewConfig(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return module.NewContext(cfg, nil, console.New(prompter, &bytes.Buffer{}), nil, nil, nil)
}

func collectedIntake() tui.Result {
	return tui.Result{
		Intake: session.Intake{
			ChiefComplaint: "knee pain",
			PresentIllness: "two weeks of pain after running",
			AuxiliaryExams: map[string]string{},
		},
		Audience: session.AudienceProfessional,
	}
}

func TestRunStoresIntakeAndAuxiliaryExams(t *testing.T) {
	rc := newTestContext(t, &console.Scripted{Answers: []string{
		"X-ray=no fracture",
		"not a valid entry",
		"=missing name",
		"Blood test=normal",
		"q",
	}})
	mod := New(WithCollector(func() (tui.Result, error) {
		return collectedIntake(), nil
	}))

	result, err := mod.Run(context.Background(), rc)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.Status != module.StatusCompleted {
		t.Fatalf("status = %s", result.Status)
	}
	if rc.State.Intake.ChiefComplaint != "knee pain" {
		t.Fatalf("intake not stored: %+v", rc.State.Intake)
	}
	if rc.State.Audience != session.AudienceProfessional {
		t.Fatalf("audience = %q", rc.State.Audience)
	}
	exams := rc.State.Intake.AuxiliaryExams
	if len(exams) != 2 || exams["X-ray"] != "no fracture" || exams["Blood test"] != "normal" {
		t.Fatalf("unexpected exams: %v", exams)
	}
}

func TestRunEmptyLineEndsExamEntry(t *testing.T) {
	rc := newTestContext(t, &console.Scripted{Answers: []string{""}})
	mod := New(WithCollector(func() (tui.Result, error) {
		return collectedIntake(), nil
	}))

	if _, err := mod.Run(context.Background(), rc); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(rc.State.Intake.AuxiliaryExams) != 0 {
		t.Fatalf("expected no exams, got %v", rc.State.Intake.AuxiliaryExams)
	}
}

func TestRunFailsWhenFormAborted(t *testing.T) {
	rc := newTestContext(t, &console.Scripted{})
	mod := New(WithCollector(func() (tui.Result, error) {
		return tui.Result{Aborted: true}, nil
	}))

	result, err := mod.Run(context.Background(), rc)
	if err == nil {
		t.Fatal("expected error for aborted form")
	}
	if result.Status != module.StatusFailed {
		t.Fatalf("status = %s", result.Status)
	}
}

func TestRunFailsWhenFormErrors(t *testing.T) {
	rc := newTestContext(t, &console.Scripted{})
	mod := New(WithCollector(func() (tui.Result, error) {
		return tui.Result{}, fmt.Errorf("terminal unavailable")
	}))

	if _, err := mod.Run(context.Background(), rc); err == nil {
		t.Fatal("expected error when the form fails")
	}
}

func TestRegister(t *testing.T) {
	reg := module.NewRegistry()
	Register(reg)
	mod, err := reg.Resolve(ID)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if mod.Info().ID != ID {
		t.Fatalf("wrong module id %q", mod.Info().ID)
	}
}
