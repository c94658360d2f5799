// internal/tui/intake.go
//
// The intake form walks the operator through the fixed clinical fields using
// bubbletea, which follows The Elm Architecture:
//
// 1. Model: Your application state
// 2. Update: A function that updates state based on messages
// 3. View: A function that renders state to a string
//
// The flow is: User Input -> Message -> Update -> New Model -> View -> Screen

package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/guozhi/rehabflow/internal/session"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62")).Padding(0, 1)
	labelStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	answeredStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// field identifies one form entry in order.
type field int

const (
	fieldChiefComplaint field = iota
	fieldPresentIllness
	fieldPastMedicalHistory
	fieldAllergyHistory
	fieldFamilyHistory
	fieldPhysicalExamination
	fieldPersonalHistory
	fieldAudience
	fieldCount
)

var fieldLabels = map[field]string{
	fieldChiefComplaint:      "Chief complaint",
	fieldPresentIllness:      "History of present illness",
	fieldPastMedicalHistory:  "Past medical history",
	fieldAllergyHistory:      "Allergy history",
	fieldFamilyHistory:       "Family history",
	fieldPhysicalExamination: "Physical examination findings",
	fieldPersonalHistory:     "Personal history",
	fieldAudience:            "Target audience (patient/professional/expert)",
}

// Result carries the completed intake out of the form.
type Result struct {
	Intake   session.Intake
	Audience session.AudienceLevel
	Aborted  bool
}

// Model is the intake form state.
type Model struct {
	input    textinput.Model
	current  field
	answers  map[field]string
	audience session.AudienceLevel
	errMsg   string
	done     bool
	aborted  bool
}

// NewModel builds a fresh intake form.
func NewModel() Model {
	input := textinput.New()
	input.Placeholder = "type and press enter (empty for none)"
	input.CharLimit = 0
	input.Width = 72
	input.Focus()
	return Model{
		input:   input,
		answers: map[field]string{},
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.aborted = true
			m.done = true
			return m, tea.Quit
		case tea.KeyEnter:
			return m.submitCurrent()
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submitCurrent() (tea.Model, tea.Cmd) {
	value := strings.TrimSpace(m.input.Value())
	if m.current == fieldAudience {
		audience, err := session.ParseAudienceLevel(value)
		if err != nil {
			m.errMsg = "please enter patient, professional, or expert"
			m.input.SetValue("")
			return m, nil
		}
		m.audience = audience
		m.errMsg = ""
		m.done = true
		return m, tea.Quit
	}
	if value == "" {
		value = "none reported"
	}
	m.answers[m.current] = value
	m.current++
	m.errMsg = ""
	m.input.SetValue("")
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if m.done {
		return ""
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render("Patient Intake"))
	b.WriteString("\n\n")
	for f := fieldChiefComplaint; f < m.current; f++ {
		fmt.Fprintf(&b, "%s\n", answeredStyle.Render(fmt.Sprintf("%s: %s", fieldLabels[f], m.answers[f])))
	}
	b.WriteString("\n")
	b.WriteString(labelStyle.Render(fieldLabels[m.current]))
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	if m.errMsg != "" {
		b.WriteString(errorStyle.Render(m.errMsg))
		b.WriteString("\n")
	}
	b.WriteString(answeredStyle.Render("enter to confirm · esc to abort"))
	b.WriteString("\n")
	return b.String()
}

// Done reports whether the form finished (completed or aborted).
func (m Model) Done() bool {
	return m.done
}

// Result extracts the collected intake. Auxiliary exams are gathered by the
// intake stage afterwards over the plain console, so the map starts empty.
func (m Model) Result() Result {
	if m.aborted {
		return Result{Aborted: true}
	}
	return Result{
		Intake: session.Intake{
			ChiefComplaint:      m.answers[fieldChiefComplaint],
			PresentIllness:      m.answers[fieldPresentIllness],
			PastMedicalHistory:  m.answers[fieldPastMedicalHistory],
			AllergyHistory:      m.answers[fieldAllergyHistory],
			FamilyHistory:       m.answers[fieldFamilyHistory],
			PhysicalExamination: m.answers[fieldPhysicalExamination],
			PersonalHistory:     m.answers[fieldPersonalHistory],
			AuxiliaryExams:      map[string]string{},
		},
		Audience: m.audience,
	}
}

// Run executes the form as a standalone bubbletea program and returns the
// collected intake.
func Run() (Result, error) {
	program := tea.NewProgram(NewModel())
	final, err := program.Run()
	if err != nil {
		return Result{}, fmt.Errorf("tui: run intake form: %w", err)
	}
	model, ok := final.(Model)
	if !ok {
		return Result{}, fmt.Errorf("tui: unexpected final model %T", final)
	}
	return model.Result(), nil
}
