// Package console is the synchronous prompt/response surface the pipeline
// uses between agent calls. Stage modules depend on the Prompter interface so
// tests can drive them with a scripted operator instead of stdin.
package console

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	bannerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62")).Padding(0, 1)
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	noticeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	promptStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

// Prompter asks the operator a question and returns the raw line entered.
// An empty line means the operator declined.
type Prompter interface {
	Prompt(label string) (string, error)
}

// Console couples a Prompter with styled output on a writer.
type Console struct {
	prompter Prompter
	out      io.Writer
}

// New builds a console over the given prompter and output writer.
func New(prompter Prompter, out io.Writer) *Console {
	return &Console{prompter: prompter, out: out}
}

// Prompt displays a styled label and blocks until the operator answers.
func (c *Console) Prompt(label string) (string, error) {
	fmt.Fprintln(c.out, promptStyle.Render(label))
	answer, err := c.prompter.Prompt(label)
	if err != nil {
		return "", fmt.Errorf("console: read input: %w", err)
	}
	return strings.TrimSpace(answer), nil
}

// Banner prints a stage banner.
func (c *Console) Banner(text string) {
	fmt.Fprintln(c.out, bannerStyle.Render("=== "+text+" ==="))
}

// Section prints a titled block of agent output.
func (c *Console) Section(title, body string) {
	fmt.Fprintln(c.out, sectionStyle.Render("--- "+title+" ---"))
	fmt.Fprintln(c.out, body)
}

// Notice prints a dim informational line.
func (c *Console) Notice(text string) {
	fmt.Fprintln(c.out, noticeStyle.Render("> "+text))
}

// Printf writes plain formatted output.
func (c *Console) Printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}

// ReadLinePrompter reads operator answers line by line from a reader
// (normally stdin).
type ReadLinePrompter struct {
	scanner *bufio.Scanner
}

// NewReadLinePrompter wraps the reader in a line scanner.
func NewReadLinePrompter(r io.Reader) *ReadLinePrompter {
	return &ReadLinePrompter{scanner: bufio.NewScanner(r)}
}

// Prompt reads one line. EOF yields an empty answer so a closed stdin
// behaves like a declining operator rather than an error mid-stage.
func (p *ReadLinePrompter) Prompt(string) (string, error) {
	if !p.scanner.Scan() {
		if err := p.scanner.Err(); err != nil {
			return "", err
		}
		return "", nil
	}
	return p.scanner.Text(), nil
}

// Scripted replays a fixed sequence of answers; exhausted scripts decline.
// Used by stage tests to stand in for the operator.
type Scripted struct {
	Answers []string
	next    int
}

// Prompt returns the next scripted answer.
func (s *Scripted) Prompt(string) (string, error) {
	if s.next >= len(s.Answers) {
		return "", nil
	}
	answer := s.Answers[s.next]
	s.next++
	return answer, nil
}
