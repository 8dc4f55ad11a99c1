package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/signalsfoundry/mural/internal/report"
)

func sampleConfig() string {
	return filepath.Join("..", "..", "configs", "planner.yaml")
}

func TestRunPlansSampleConfiguration(t *testing.T) {
	dir := t.TempDir()
	planPath := filepath.Join(dir, "plan.yaml")
	reqPath := filepath.Join(dir, "requirements.txt")
	reg := prometheus.NewRegistry()
	var stdout bytes.Buffer

	err := run(context.Background(), options{
		configPath:      sampleConfig(),
		planOut:         planPath,
		requirementsOut: reqPath,
		summary:         true,
		stdout:          &stdout,
		registerer:      reg,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if !strings.Contains(stdout.String(), "Requested") || !strings.Contains(stdout.String(), "Allocated") {
		t.Fatalf("summary missing pass totals:\n%s", stdout.String())
	}

	f, err := os.Open(planPath)
	if err != nil {
		t.Fatalf("open plan: %v", err)
	}
	defer f.Close()
	plan, err := report.ReadYAML(f)
	if err != nil {
		t.Fatalf("ReadYAML: %v", err)
	}
	if plan.NumberOfTimeSteps != 180 || plan.SecondsPerTimeStep != 60 || plan.RunID == "" {
		t.Fatalf("plan header = %d steps, %v s, run %q", plan.NumberOfTimeSteps, plan.SecondsPerTimeStep, plan.RunID)
	}
	if plan.AllocatedScore() > plan.RequestedScore()+1e-9 {
		t.Fatalf("allocated score %v exceeds requested %v", plan.AllocatedScore(), plan.RequestedScore())
	}
	if len(plan.Assignments) != 3 {
		t.Fatalf("assignments = %d, want 3", len(plan.Assignments))
	}

	listing, err := os.ReadFile(reqPath)
	if err != nil {
		t.Fatalf("read requirements: %v", err)
	}
	if !strings.HasPrefix(string(listing), "REGION") {
		t.Fatalf("requirement listing = %q", listing)
	}

	if got, err := testutil.GatherAndCount(reg, "planner_runs_total"); err != nil || got != 1 {
		t.Fatalf("planner_runs_total series = %d (%v), want 1", got, err)
	}
	if got, err := testutil.GatherAndCount(reg, "planner_requirements"); err != nil || got != 1 {
		t.Fatalf("planner_requirements series = %d (%v), want 1", got, err)
	}
}

func TestRunWritesPlanToStdout(t *testing.T) {
	var stdout bytes.Buffer
	err := run(context.Background(), options{
		configPath: sampleConfig(),
		planOut:    "-",
		stdout:     &stdout,
		registerer: prometheus.NewRegistry(),
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.HasPrefix(stdout.String(), "run_id: ") {
		t.Fatalf("stdout = %q, want a YAML plan", stdout.String())
	}
}

func TestRunReportsMissingConfig(t *testing.T) {
	err := run(context.Background(), options{
		configPath: filepath.Join(t.TempDir(), "missing.yaml"),
		stdout:     &bytes.Buffer{},
		registerer: prometheus.NewRegistry(),
	})
	if err == nil || !strings.Contains(err.Error(), "read config") {
		t.Fatalf("run error = %v, want read config failure", err)
	}
}
