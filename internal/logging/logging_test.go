package logging

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEnsureRunIDIsStable(t *testing.T) {
	ctx, id := EnsureRunID(context.Background())
	if id == "" {
		t.Fatalf("expected non-empty run id")
	}
	ctx2, id2 := EnsureRunID(ctx)
	if id2 != id {
		t.Fatalf("run id changed: %q -> %q", id, id2)
	}
	if RunIDFromContext(ctx2) != id {
		t.Fatalf("RunIDFromContext = %q, want %q", RunIDFromContext(ctx2), id)
	}
}

func TestFromContextDefaultsToNoop(t *testing.T) {
	if FromContext(context.Background()) == nil {
		t.Fatalf("FromContext returned nil")
	}
	l := New(Config{Level: "error"})
	ctx := ContextWithLogger(context.Background(), l)
	if FromContext(ctx) != l {
		t.Fatalf("FromContext did not return stored logger")
	}
}

func TestFileSinkWritesJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "planner.log")
	l := New(Config{Level: "debug", Format: "json", File: path})
	l.With(String("pass", "requested")).Info(context.Background(), "time step planned", Int("time_index", 7))

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	out := string(data)
	for _, want := range []string{`"msg":"time step planned"`, `"pass":"requested"`, `"time_index":7`} {
		if !strings.Contains(out, want) {
			t.Fatalf("log output %q missing %q", out, want)
		}
	}
}
