package module

import (
	"github.com/guozhi/rehabflow/internal/artifact"
	"github.com/guozhi/rehabflow/internal/config"
	"github.com/guozhi/rehabflow/internal/console"
	"github.com/guozhi/rehabflow/internal/crew"
	"github.com/guozhi/rehabflow/internal/llm"
	"github.com/guozhi/rehabflow/internal/logging"
	"github.com/guozhi/rehabflow/internal/session"
)

// Context carries shared runtime dependencies into every stage module.
type Context struct {
	Config    *config.Config
	Logger    *logging.Logger
	Console   *console.Console
	Crews     *crew.Runtime
	Completer llm.Completer
	State     *session.State
	Artifacts *artifact.Store
}

// NewContext builds a stage context around a fresh session state.
func NewContext(cfg *config.Config, logger *logging.Logger, cons *console.Console, crews *crew.Runtime, completer llm.Completer, store *artifact.Store) *Context {
	return &Context{
		Config:    cfg,
		Logger:    logger,
		Console:   cons,
		Crews:     crews,
		Completer: completer,
		State:     session.New(),
		Artifacts: store,
	}
}

// Logf writes to the run log when a logger is attached.
func (c *Context) Logf(format string, args ...any) {
	if c != nil && c.Logger != nil {
		c.Logger.Printf(format, args...)
	}
}
