package module

import (
	"context"
	"fmt"
)

// Info describes a stage module's identity and intent.
type Info struct {
	ID          string
	Name        string
	Description string
	Version     string
}

// Validate ensures the info block is well-formed.
func (i Info) Validate() error {
	if i.ID == "" {
		return fmt.Errorf("module: id is required")
	}
	if i.Name == "" {
		return fmt.Errorf("module: name is required for %s", i.ID)
	}
	if i.Version == "" {
		return fmt.Errorf("module: version is required for %s", i.ID)
	}
	return nil
}

// Result captures the outcome of a stage execution.
type Result struct {
	Status  Status
	Message string
}

// Status enumerates stage run outcomes.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

// Module is implemented by every pipeline stage.
type Module interface {
	Info() Info
	Run(ctx context.Context, rc *Context) (Result, error)
}
