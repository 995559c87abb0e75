// Package taskfile loads a run's task graph from a YAML file.
package taskfile

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/concordlabs/concord/pkg/models"
)

// ErrNoTasks indicates the file parsed but defined no tasks.
var ErrNoTasks = errors.New("task file defines no tasks")

// File is the top-level shape of a task file.
//
//	name: release checklist
//	tasks:
//	  - id: plan
//	    spec: "Outline the release steps"
//	    priority: 5
//	  - id: review
//	    spec: "Review the plan for gaps"
//	    depends_on: [plan]
//	    consensus: 1
type File struct {
	// Name labels the run in logs and reports.
	Name string `yaml:"name,omitempty"`
	// Tasks are the units of work; see models.Task for per-field semantics.
	Tasks []*models.Task `yaml:"tasks"`
}

// Load reads and validates a task file. Graph-level problems (cycles,
// unknown dependencies) are left to graph.Build; Load only catches what the
// graph cannot see, like a task with no ID or no spec.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read task file: %w", err)
	}
	return Parse(data)
}

// Parse decodes task file bytes.
func Parse(data []byte) (*File, error) {
	var f File
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	// Unknown fields are almost always typos of depends_on or consensus.
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parse task file: %w", err)
	}

	if len(f.Tasks) == 0 {
		return nil, ErrNoTasks
	}
	for i, task := range f.Tasks {
		if task.ID == "" {
			return nil, fmt.Errorf("task %d has no id", i)
		}
		if strings.TrimSpace(task.Spec) == "" {
			return nil, fmt.Errorf("task %s has no spec", task.ID)
		}
	}
	return &f, nil
}
