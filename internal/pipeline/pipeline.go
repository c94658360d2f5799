// Package pipeline runs the stage modules in their fixed clinical order.
// Execution is strictly sequential; the first failing stage aborts the run.
package pipeline

import (
	"context"
	"fmt"

	"github.com/guozhi/rehabflow/internal/module"
)

// Pipeline executes a fixed sequence of registered stage modules.
type Pipeline struct {
	registry *module.Registry
	sequence []string
}

// New builds a pipeline over the registry and stage order.
func New(registry *module.Registry, sequence []string) (*Pipeline, error) {
	if registry == nil {
		return nil, fmt.Errorf("pipeline: registry is required")
	}
	if len(sequence) == 0 {
		return nil, fmt.Errorf("pipeline: sequence is empty")
	}
	return &Pipeline{registry: registry, sequence: sequence}, nil
}

// Run resolves and executes each stage in order against the shared context.
// A stage error or failed status aborts the run immediately.
func (p *Pipeline) Run(ctx context.Context, rc *module.Context) error {
	for _, id := range p.sequence {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("pipeline: aborted before %s: %w", id, err)
		}

		mod, err := p.registry.Resolve(id)
		if err != nil {
			return fmt.Errorf("pipeline: resolve %s: %w", id, err)
		}

		rc.Logf("pipeline: starting %s", id)
		result, err := mod.Run(ctx, rc)
		rc.Logf("pipeline: %s %s: %s", id, result.Status, result.Message)
		if err != nil {
			return fmt.Errorf("pipeline: stage %s: %w", id, err)
		}
		if result.Status == module.StatusFailed {
			return fmt.Errorf("pipeline: stage %s failed: %s", id, result.Message)
		}
	}
	return nil
}
