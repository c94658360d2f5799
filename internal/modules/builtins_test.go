package modules

import (
	"testing"

	"github.com/guozhi/rehabflow/internal/module"
)

func TestRegisterBuiltinsCoversSequence(t *testing.T) {
	reg := module.NewRegistry()
	RegisterBuiltins(reg)

	for _, id := range DefaultSequence() {
		mod, err := reg.Resolve(id)
		if err != nil {
			t.Fatalf("stage %s not registered: %v", id, err)
		}
		if mod.Info().ID != id {
			t.Fatalf("stage %s reports id %q", id, mod.Info().ID)
		}
	}
}

func TestDefaultSequenceOrder(t *testing.T) {
	want := []string{"intake", "inquiry", "diagnosis", "treatment", "report"}
	got := DefaultSequence()
	if len(got) != len(want) {
		t.Fatalf("sequence = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sequence[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
