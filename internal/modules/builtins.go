package modules

import (
	"github.com/guozhi/rehabflow/internal/module"
	"github.com/guozhi/rehabflow/internal/modules/diagnosis"
	"github.com/guozhi/rehabflow/internal/modules/inquiry"
	"github.com/guozhi/rehabflow/internal/modules/intake"
	"github.com/guozhi/rehabflow/internal/modules/report"
	"github.com/guozhi/rehabflow/internal/modules/treatment"
)

// RegisterBuiltins installs all of the built-in stage factories into the
// provided registry.
func RegisterBuiltins(reg *module.Registry) {
	if reg == nil {
		return
	}
	intake.Register(reg)
	inquiry.Register(reg)
	diagnosis.Register(reg)
	treatment.Register(reg)
	report.Register(reg)
}

// DefaultSequence is the stage order of a full pipeline run.
func DefaultSequence() []string {
	return []string{intake.ID, inquiry.ID, diagnosis.ID, treatment.ID, report.ID}
}
