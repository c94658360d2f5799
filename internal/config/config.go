// internal/config/config.go
//
// This package handles configuration and the .rehabflow directory structure.
// Every project that runs the pipeline gets a .rehabflow/ folder created in
// its root, alongside the artifact directories for plans and reports.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// WorkspaceDir is the name of the directory we create in each project.
	WorkspaceDir = ".rehabflow"

	defaultEndpoint          = "https://open.bigmodel.cn/api/paas/v4"
	defaultModel             = "glm-4-flash"
	defaultAPIKeyEnv         = "REHABFLOW_API_KEY"
	defaultTemperature       = 0.2
	defaultMaxTokens         = 2000
	defaultInquiryRounds     = 2
	defaultEliminationRounds = 5
	defaultPlansDir          = "treatment_plans"
	defaultReportsDir        = "summary_reports"
)

const defaultProjectConfigYAML = `# rehabflow project configuration
version: 1

# Completion endpoint settings. The API key is read from the environment
# variable named by api_key_env (a .env file in the project root is loaded
# at startup).
llm:
  endpoint: https://open.bigmodel.cn/api/paas/v4
  model: glm-4-flash
  api_key_env: REHABFLOW_API_KEY
  temperature: 0.2
  max_tokens: 2000

# Loop bounds for the agent-assisted stages.
limits:
  max_inquiry_rounds: 2
  max_elimination_rounds: 5

# Where finished artifacts are written, relative to the project root.
artifacts:
  treatment_plans_dir: treatment_plans
  summary_reports_dir: summary_reports
`

// LLMConfig holds completion endpoint settings.
type LLMConfig struct {
	Endpoint    string  `yaml:"endpoint"`
	Model       string  `yaml:"model"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// Limits bounds the inquiry refinement and elimination loops.
type Limits struct {
	MaxInquiryRounds     int `yaml:"max_inquiry_rounds"`
	MaxEliminationRounds int `yaml:"max_elimination_rounds"`
}

// Artifacts names the output directories for persisted stage artifacts.
type Artifacts struct {
	TreatmentPlansDir string `yaml:"treatment_plans_dir"`
	SummaryReportsDir string `yaml:"summary_reports_dir"`
}

// ProjectConfig models .rehabflow/config.yaml.
type ProjectConfig struct {
	Version   int       `yaml:"version"`
	LLM       LLMConfig `yaml:"llm"`
	Limits    Limits    `yaml:"limits"`
	Artifacts Artifacts `yaml:"artifacts"`
}

// Config holds the runtime configuration for a pipeline run.
type Config struct {
	// ProjectDir is the directory where the operator ran `rehabflow` from.
	ProjectDir string

	// WorkspaceProjectDir is ProjectDir/.rehabflow.
	WorkspaceProjectDir string

	Project ProjectConfig
}

// InitWorkspace creates the .rehabflow directory structure plus the artifact
// directories in the given project directory. Called on startup.
//
// Structure created:
// .rehabflow/
// ├── logs/        <- pipeline run logs
// └── crews/       <- editable crew definitions (*.yaml)
// treatment_plans/ <- persisted treatment plan artifacts
// summary_reports/ <- persisted final report artifacts
func InitWorkspace(projectDir string) error {
	workspace := filepath.Join(projectDir, WorkspaceDir)

	dirs := []string{
		filepath.Join(workspace, "logs"),
		filepath.Join(workspace, "crews"),
		filepath.Join(projectDir, defaultPlansDir),
		filepath.Join(projectDir, defaultReportsDir),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	return ensureProjectConfig(filepath.Join(workspace, "config.yaml"))
}

// NewConfig creates a Config populated with project settings.
func NewConfig(projectDir string) (*Config, error) {
	cfg := &Config{
		ProjectDir:          projectDir,
		WorkspaceProjectDir: filepath.Join(projectDir, WorkspaceDir),
		Project:             defaultProjectConfig(),
	}
	if err := cfg.loadProjectConfig(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LogsDir returns the path to the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.WorkspaceProjectDir, "logs")
}

// CrewsDir returns the directory holding crew definition files.
func (c *Config) CrewsDir() string {
	return filepath.Join(c.WorkspaceProjectDir, "crews")
}

// TreatmentPlansDir returns the directory for persisted treatment plans.
func (c *Config) TreatmentPlansDir() string {
	return filepath.Join(c.ProjectDir, c.Project.Artifacts.TreatmentPlansDir)
}

// SummaryReportsDir returns the directory for persisted final reports.
func (c *Config) SummaryReportsDir() string {
	return filepath.Join(c.ProjectDir, c.Project.Artifacts.SummaryReportsDir)
}

// ProjectConfigPath returns the on-disk location for the project config file.
func (c *Config) ProjectConfigPath() string {
	return filepath.Join(c.WorkspaceProjectDir, "config.yaml")
}

// APIKey resolves the completion endpoint credential from the environment.
func (c *Config) APIKey() string {
	return os.Getenv(c.Project.LLM.APIKeyEnv)
}

func (c *Config) loadProjectConfig() error {
	path := c.ProjectConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	var parsed ProjectConfig
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	parsed.applyDefaults()
	parsed.normalize()
	if err := parsed.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	c.Project = parsed
	return nil
}

func defaultProjectConfig() ProjectConfig {
	return ProjectConfig{
		Version: 1,
		LLM: LLMConfig{
			Endpoint:    defaultEndpoint,
			Model:       defaultModel,
			APIKeyEnv:   defaultAPIKeyEnv,
			Temperature: defaultTemperature,
			MaxTokens:   defaultMaxTokens,
		},
		Limits: Limits{
			MaxInquiryRounds:     defaultInquiryRounds,
			MaxEliminationRounds: defaultEliminationRounds,
		},
		Artifacts: Artifacts{
			TreatmentPlansDir: defaultPlansDir,
			SummaryReportsDir: defaultReportsDir,
		},
	}
}

func (pc *ProjectConfig) applyDefaults() {
	if pc.Version == 0 {
		pc.Version = 1
	}
	if pc.LLM.Endpoint == "" {
		pc.LLM.Endpoint = defaultEndpoint
	}
	if pc.LLM.Model == "" {
		pc.LLM.Model = defaultModel
	}
	if pc.LLM.APIKeyEnv == "" {
		pc.LLM.APIKeyEnv = defaultAPIKeyEnv
	}
	if pc.LLM.Temperature == 0 {
		pc.LLM.Temperature = defaultTemperature
	}
	if pc.LLM.MaxTokens == 0 {
		pc.LLM.MaxTokens = defaultMaxTokens
	}
	if pc.Limits.MaxInquiryRounds == 0 {
		pc.Limits.MaxInquiryRounds = defaultInquiryRounds
	}
	if pc.Limits.MaxEliminationRounds == 0 {
		pc.Limits.MaxEliminationRounds = defaultEliminationRounds
	}
	if pc.Artifacts.TreatmentPlansDir == "" {
		pc.Artifacts.TreatmentPlansDir = defaultPlansDir
	}
	if pc.Artifacts.SummaryReportsDir == "" {
		pc.Artifacts.SummaryReportsDir = defaultReportsDir
	}
}

func (pc *ProjectConfig) normalize() {
	pc.LLM.Endpoint = strings.TrimRight(strings.TrimSpace(pc.LLM.Endpoint), "/")
	pc.LLM.Model = strings.TrimSpace(pc.LLM.Model)
	pc.LLM.APIKeyEnv = strings.TrimSpace(pc.LLM.APIKeyEnv)
	pc.Artifacts.TreatmentPlansDir = strings.TrimSpace(pc.Artifacts.TreatmentPlansDir)
	pc.Artifacts.SummaryReportsDir = strings.TrimSpace(pc.Artifacts.SummaryReportsDir)
}

func (pc ProjectConfig) validate() error {
	if pc.Version < 1 {
		return fmt.Errorf("config version must be >= 1")
	}
	if pc.LLM.Endpoint == "" {
		return fmt.Errorf("llm.endpoint is required")
	}
	if pc.LLM.Model == "" {
		return fmt.Errorf("llm.model is required")
	}
	if pc.LLM.Temperature < 0 || pc.LLM.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be between 0 and 2")
	}
	if pc.LLM.MaxTokens < 1 {
		return fmt.Errorf("llm.max_tokens must be >= 1")
	}
	if pc.Limits.MaxInquiryRounds < 1 {
		return fmt.Errorf("limits.max_inquiry_rounds must be >= 1")
	}
	if pc.Limits.MaxEliminationRounds < 1 {
		return fmt.Errorf("limits.max_elimination_rounds must be >= 1")
	}
	if pc.Artifacts.TreatmentPlansDir == "" {
		return fmt.Errorf("artifacts.treatment_plans_dir is required")
	}
	if pc.Artifacts.SummaryReportsDir == "" {
		return fmt.Errorf("artifacts.summary_reports_dir is required")
	}
	return nil
}

func ensureProjectConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(defaultProjectConfigYAML), 0o644)
}
