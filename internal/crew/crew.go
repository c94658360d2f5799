package crew

import (
	"context"
	"fmt"
	"strings"

	"github.com/guozhi/rehabflow/internal/llm"
)

// Result captures a finished crew run. Raw is the final task's unparsed
// output; TaskOutputs keeps every intermediate output by task name.
type Result struct {
	Raw         string
	TaskOutputs map[string]string
}

// Runtime executes crews sequentially against a completion endpoint.
type Runtime struct {
	completer   llm.Completer
	defs        map[string]Definition
	temperature float64
	maxTokens   int
	logf        func(format string, args ...any)
}

// RuntimeOption customizes the runtime.
type RuntimeOption func(*Runtime)

// WithSampling sets the temperature and max-token budget used for every call.
func WithSampling(temperature float64, maxTokens int) RuntimeOption {
	return func(r *Runtime) {
		r.temperature = temperature
		r.maxTokens = maxTokens
	}
}

// WithLogf routes task-level progress lines to a logger.
func WithLogf(logf func(format string, args ...any)) RuntimeOption {
	return func(r *Runtime) {
		if logf != nil {
			r.logf = logf
		}
	}
}

// NewRuntime indexes the definitions by ID and wires them to the completer.
func NewRuntime(completer llm.Completer, defs []Definition, opts ...RuntimeOption) (*Runtime, error) {
	if completer == nil {
		return nil, fmt.Errorf("crew: completer is required")
	}
	runtime := &Runtime{
		completer: completer,
		defs:      map[string]Definition{},
		logf:      func(string, ...any) {},
	}
	for _, def := range defs {
		if err := def.Validate(); err != nil {
			return nil, err
		}
		normalized := def.Normalized()
		if _, exists := runtime.defs[normalized.ID]; exists {
			return nil, fmt.Errorf("crew: %s already registered", normalized.ID)
		}
		runtime.defs[normalized.ID] = normalized
	}
	for _, opt := range opts {
		opt(runtime)
	}
	return runtime, nil
}

// IDs returns the registered crew identifiers.
func (r *Runtime) IDs() []string {
	ids := make([]string, 0, len(r.defs))
	for id := range r.defs {
		ids = append(ids, id)
	}
	return ids
}

// Kickoff runs the named crew's tasks in declared order. Each task is one
// completion call: the agent persona forms the system message, the task
// description (with {placeholder} bindings interpolated) forms the user
// message, and outputs of context tasks are appended as supporting material.
// The final task's raw text is the crew result.
func (r *Runtime) Kickoff(ctx context.Context, crewID string, inputs map[string]string) (Result, error) {
	def, ok := r.defs[crewID]
	if !ok {
		return Result{}, fmt.Errorf("crew: unknown crew %q", crewID)
	}
	agents := map[string]AgentDefinition{}
	for _, agent := range def.Agents {
		agents[agent.Name] = agent
	}
	outputs := map[string]string{}
	raw := ""
	for _, task := range def.Tasks {
		agent := agents[task.Agent]
		messages := []llm.Message{
			{Role: "system", Content: personaMessage(agent)},
			{Role: "user", Content: taskMessage(task, inputs, outputs)},
		}
		r.logf("crew %s: task %s (agent %s)", def.ID, task.Name, agent.Name)
		text, err := r.completer.Complete(ctx, llm.Request{
			Messages:    messages,
			Temperature: r.temperature,
			MaxTokens:   r.maxTokens,
		})
		if err != nil {
			return Result{}, fmt.Errorf("crew %s: task %s: %w", def.ID, task.Name, err)
		}
		outputs[task.Name] = text
		raw = text
	}
	return Result{Raw: raw, TaskOutputs: outputs}, nil
}

func personaMessage(agent AgentDefinition) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s.", agent.Role)
	if agent.Backstory != "" {
		b.WriteString(" ")
		b.WriteString(agent.Backstory)
	}
	if agent.Goal != "" {
		fmt.Fprintf(&b, " Your goal: %s", agent.Goal)
	}
	return b.String()
}

func taskMessage(task TaskDefinition, inputs, outputs map[string]string) string {
	var b strings.Builder
	b.WriteString(Interpolate(task.Description, inputs))
	for _, ref := range task.Context {
		if prior, ok := outputs[ref]; ok {
			fmt.Fprintf(&b, "\n\nOutput of the %s task:\n%s", ref, prior)
		}
	}
	if task.ExpectedOutput != "" {
		fmt.Fprintf(&b, "\n\nExpected output:\n%s", Interpolate(task.ExpectedOutput, inputs))
	}
	return b.String()
}

// Interpolate replaces {key} placeholders with their bound values. Unbound
// placeholders pass through untouched so prompt text containing literal
// braces stays intact.
func Interpolate(template string, inputs map[string]string) string {
	result := template
	for key, value := range inputs {
		result = strings.ReplaceAll(result, "{"+key+"}", value)
	}
	return result
}
