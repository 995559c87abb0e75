package taskfile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const sample = `
name: release checklist
tasks:
  - id: plan
    spec: "Outline the release steps"
    priority: 5
  - id: review
    spec: "Review the plan for gaps"
    depends_on: [plan]
    consensus: 1
    max_retries: 2
`

func TestParse(t *testing.T) {
	f, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if f.Name != "release checklist" {
		t.Errorf("name = %q", f.Name)
	}
	if len(f.Tasks) != 2 {
		t.Fatalf("parsed %d tasks, want 2", len(f.Tasks))
	}

	plan := f.Tasks[0]
	if plan.ID != "plan" || plan.Priority != 5 {
		t.Errorf("plan = %+v", plan)
	}
	if plan.FaultTolerance != nil {
		t.Error("plan should not request consensus")
	}

	review := f.Tasks[1]
	if review.FaultTolerance == nil || *review.FaultTolerance != 1 {
		t.Errorf("review fault tolerance = %v, want 1", review.FaultTolerance)
	}
	if len(review.DependsOn) != 1 || review.DependsOn[0] != "plan" {
		t.Errorf("review depends_on = %v", review.DependsOn)
	}
	if review.MaxRetries != 2 {
		t.Errorf("review max_retries = %d, want 2", review.MaxRetries)
	}
}

func TestParseRejectsEmptyFile(t *testing.T) {
	if _, err := Parse([]byte("name: empty\n")); !errors.Is(err, ErrNoTasks) {
		t.Fatalf("Parse() error = %v, want ErrNoTasks", err)
	}
}

func TestParseRejectsMissingFields(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing id", "tasks:\n  - spec: \"work\"\n"},
		{"missing spec", "tasks:\n  - id: a\n"},
		{"blank spec", "tasks:\n  - id: a\n    spec: \"   \"\n"},
		{"unknown field", "tasks:\n  - id: a\n    spec: \"work\"\n    dependson: [b]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.yaml)); err == nil {
				t.Error("Parse() accepted invalid input")
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.yaml")
	if err := os.WriteFile(path, []byte(sample), 0644); err != nil {
		t.Fatal(err)
	}

	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(f.Tasks) != 2 {
		t.Errorf("loaded %d tasks, want 2", len(f.Tasks))
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() succeeded on a missing file")
	}
}
