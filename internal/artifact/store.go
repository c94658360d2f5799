// Package artifact persists the files a pipeline run leaves behind: the
// treatment plan and the final report. Each artifact gets a fresh random
// identifier, so nothing is ever overwritten.
package artifact

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Store writes run artifacts into the configured output directories.
type Store struct {
	plansDir   string
	reportsDir string
	newID      func() string
}

// StoreOption customizes a Store during construction.
type StoreOption func(*Store)

// WithIDGenerator overrides the random identifier source (tests).
func WithIDGenerator(gen func() string) StoreOption {
	return func(s *Store) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// NewStore builds a store over the plan and report directories.
func NewStore(plansDir, reportsDir string, opts ...StoreOption) *Store {
	store := &Store{
		plansDir:   plansDir,
		reportsDir: reportsDir,
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// WriteTreatmentPlan persists the plan text verbatim under a fresh identifier
// and returns the written path.
func (s *Store) WriteTreatmentPlan(body string) (string, error) {
	name := fmt.Sprintf("treatment_plan_%s.md", s.newID())
	return s.write(s.plansDir, name, body)
}

// WriteReport persists the final narrative under a fresh identifier and
// returns the written path.
func (s *Store) WriteReport(body string) (string, error) {
	name := fmt.Sprintf("report_%s.md", s.newID())
	return s.write(s.reportsDir, name, body)
}

func (s *Store) write(dir, name, body string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("artifact: ensure %s: %w", dir, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		return "", fmt.Errorf("artifact: write %s: %w", path, err)
	}
	return path, nil
}
