package idgen_test

import (
	"strings"
	"testing"

	"github.com/flitsinc/go-assistant/internal/idgen"
)

func TestNewIsUniqueAndWellFormed(t *testing.T) {
	seen := map[string]struct{}{}
	for i := 0; i < 100; i++ {
		id := idgen.New()
		if len(id) != 36 {
			t.Fatalf("unexpected id shape: %q", id)
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id generated: %q", id)
		}
		seen[id] = struct{}{}
	}
}

func TestPrefixed(t *testing.T) {
	id := idgen.Prefixed("run")
	if !strings.HasPrefix(id, "run-") {
		t.Fatalf("expected run- prefix, got %q", id)
	}
	if len(id) != len("run-")+36 {
		t.Fatalf("unexpected prefixed id length: %q", id)
	}
}
