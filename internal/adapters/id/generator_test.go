package id

import (
	"strings"
	"testing"
)

func TestGenerator_Prefixes(t *testing.T) {
	g := New()

	tests := []struct {
		name   string
		gen    func() string
		prefix string
	}{
		{name: "candidate", gen: g.GenerateCandidateID, prefix: "cd_"},
		{name: "run", gen: g.GenerateRunID, prefix: "sr_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := tt.gen()
			if !strings.HasPrefix(id, tt.prefix) {
				t.Errorf("expected prefix %q, got %q", tt.prefix, id)
			}
			suffix := strings.TrimPrefix(id, tt.prefix)
			if len(suffix) != defaultSize {
				t.Errorf("expected %d random characters, got %q", defaultSize, id)
			}
			if strings.Trim(suffix, alphabet) != "" {
				t.Errorf("unexpected characters in %q", id)
			}
		})
	}
}

func TestGenerator_WithSize(t *testing.T) {
	if got := WithSize(8).GenerateRunID(); len(got) != len("sr_")+8 {
		t.Errorf("expected 8 random characters, got %q", got)
	}
	if got := WithSize(0).GenerateRunID(); len(got) != len("sr_")+defaultSize {
		t.Errorf("non-positive size should fall back to the default, got %q", got)
	}
}

func TestGenerator_Unique(t *testing.T) {
	g := New()
	seen := make(map[string]bool)
	for range 1000 {
		id := g.GenerateCandidateID()
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
}
