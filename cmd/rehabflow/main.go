// cmd/rehabflow/main.go
//
// This is the entry point for the rehabflow CLI.
// When you run `rehabflow` from a project directory, this is what executes.
//
// Flow:
// 1. Load .env and initialize the .rehabflow workspace
// 2. Wire the completion client, crew runtime, console, and artifact store
// 3. Run the five clinical stages in order
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"

	"github.com/guozhi/rehabflow/internal/artifact"
	"github.com/guozhi/rehabflow/internal/config"
	"github.com/guozhi/rehabflow/internal/console"
	"github.com/guozhi/rehabflow/internal/crew"
	"github.com/guozhi/rehabflow/internal/llm"
	"github.com/guozhi/rehabflow/internal/logging"
	"github.com/guozhi/rehabflow/internal/module"
	"github.com/guozhi/rehabflow/internal/modules"
	"github.com/guozhi/rehabflow/internal/pipeline"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "rehabflow: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	// A missing .env is fine; the key may already be in the environment.
	_ = godotenv.Load()

	if err := config.InitWorkspace(cwd); err != nil {
		return fmt.Errorf("initialize workspace: %w", err)
	}
	cfg, err := config.NewConfig(cwd)
	if err != nil {
		return err
	}

	logger, err := logging.New(cwd)
	if err != nil {
		return err
	}
	defer logger.Close()

	client, err := llm.NewClient(cfg.Project.LLM.Endpoint, cfg.Project.LLM.Model, cfg.APIKey())
	if err != nil {
		return err
	}

	if err := crew.EnsureDefaultDefinitions(cfg.CrewsDir()); err != nil {
		return err
	}
	files, err := crew.LoadDefinitionDir(cfg.CrewsDir())
	if err != nil {
		return err
	}
	defs := make([]crew.Definition, 0, len(files))
	for _, file := range files {
		defs = append(defs, file.Definition)
	}
	crews, err := crew.NewRuntime(client, defs,
		crew.WithSampling(cfg.Project.LLM.Temperature, cfg.Project.LLM.MaxTokens),
		crew.WithLogf(logger.Printf),
	)
	if err != nil {
		return err
	}

	cons := console.New(console.NewReadLinePrompter(os.Stdin), os.Stdout)
	store := artifact.NewStore(cfg.TreatmentPlansDir(), cfg.SummaryReportsDir())

	registry := module.NewRegistry()
	modules.RegisterBuiltins(registry)
	runner, err := pipeline.New(registry, modules.DefaultSequence())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rc := module.NewContext(cfg, logger, cons, crews, client, store)
	if err := runner.Run(ctx, rc); err != nil {
		logger.Printf("run failed: %v", err)
		return err
	}
	logger.Printf("run completed")
	return nil
}
