// Package crew implements the agent runtime: role-configured agents grouped
// into crews whose tasks run sequentially against the completion endpoint,
// producing one final textual result.
package crew

import (
	"fmt"
	"strings"
)

// AgentDefinition describes one role-configured agent persona.
type AgentDefinition struct {
	Name      string `yaml:"name"`
	Role      string `yaml:"role"`
	Goal      string `yaml:"goal"`
	Backstory string `yaml:"backstory,omitempty"`
}

// TaskDefinition describes one unit of work assigned to an agent. Context
// lists earlier tasks whose outputs are appended to this task's prompt.
type TaskDefinition struct {
	Name           string   `yaml:"name"`
	Agent          string   `yaml:"agent"`
	Description    string   `yaml:"description"`
	ExpectedOutput string   `yaml:"expected_output,omitempty"`
	Context        []string `yaml:"context,omitempty"`
}

// Definition describes a crew loaded from YAML.
//
// The struct mirrors the on-disk schema under .rehabflow/crews/*.yaml and is
// intentionally narrow so the runtime can validate a crew before any
// completion call is made on its behalf.
type Definition struct {
	ID          string            `yaml:"id"`
	Description string            `yaml:"description,omitempty"`
	Agents      []AgentDefinition `yaml:"agents"`
	Tasks       []TaskDefinition  `yaml:"tasks"`
}

// Normalized returns a trimmed copy of the definition.
func (def Definition) Normalized() Definition {
	clone := Definition{
		ID:          strings.TrimSpace(def.ID),
		Description: strings.TrimSpace(def.Description),
	}
	if len(def.Agents) > 0 {
		clone.Agents = make([]AgentDefinition, len(def.Agents))
		for i, agent := range def.Agents {
			clone.Agents[i] = AgentDefinition{
				Name:      strings.TrimSpace(agent.Name),
				Role:      strings.TrimSpace(agent.Role),
				Goal:      strings.TrimSpace(agent.Goal),
				Backstory: strings.TrimSpace(agent.Backstory),
			}
		}
	}
	if len(def.Tasks) > 0 {
		clone.Tasks = make([]TaskDefinition, len(def.Tasks))
		for i, task := range def.Tasks {
			normalized := TaskDefinition{
				Name:           strings.TrimSpace(task.Name),
				Agent:          strings.TrimSpace(task.Agent),
				Description:    strings.TrimSpace(task.Description),
				ExpectedOutput: strings.TrimSpace(task.ExpectedOutput),
			}
			for _, ref := range task.Context {
				if trimmed := strings.TrimSpace(ref); trimmed != "" {
					normalized.Context = append(normalized.Context, trimmed)
				}
			}
			clone.Tasks[i] = normalized
		}
	}
	return clone
}

// Validate ensures the crew is well-formed: every task names a known agent
// and context references point at earlier tasks only, so sequential
// execution always has the outputs it needs.
func (def Definition) Validate() error {
	normalized := def.Normalized()
	if normalized.ID == "" {
		return fmt.Errorf("crew: id is required")
	}
	if len(normalized.Agents) == 0 {
		return fmt.Errorf("crew %s: at least one agent is required", normalized.ID)
	}
	if len(normalized.Tasks) == 0 {
		return fmt.Errorf("crew %s: at least one task is required", normalized.ID)
	}
	agents := map[string]bool{}
	for i, agent := range normalized.Agents {
		if agent.Name == "" {
			return fmt.Errorf("crew %s: agents[%d]: name is required", normalized.ID, i)
		}
		if agent.Role == "" {
			return fmt.Errorf("crew %s: agent %s: role is required", normalized.ID, agent.Name)
		}
		if agents[agent.Name] {
			return fmt.Errorf("crew %s: agent %s declared twice", normalized.ID, agent.Name)
		}
		agents[agent.Name] = true
	}
	seen := map[string]bool{}
	for i, task := range normalized.Tasks {
		if task.Name == "" {
			return fmt.Errorf("crew %s: tasks[%d]: name is required", normalized.ID, i)
		}
		if seen[task.Name] {
			return fmt.Errorf("crew %s: task %s declared twice", normalized.ID, task.Name)
		}
		if !agents[task.Agent] {
			return fmt.Errorf("crew %s: task %s references unknown agent %q", normalized.ID, task.Name, task.Agent)
		}
		if task.Description == "" {
			return fmt.Errorf("crew %s: task %s: description is required", normalized.ID, task.Name)
		}
		for _, ref := range task.Context {
			if !seen[ref] {
				return fmt.Errorf("crew %s: task %s: context %q must name an earlier task", normalized.ID, task.Name, ref)
			}
		}
		seen[task.Name] = true
	}
	return nil
}
