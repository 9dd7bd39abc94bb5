package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/taskmill/taskmill/pkg/models"
)

func writeBatchFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "batch.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write batch file: %v", err)
	}
	return path
}

func TestLoadBatch(t *testing.T) {
	path := writeBatchFile(t, `
session_id: s1
concurrency_mode: parallel
context: shared notes
tasks:
  - task_id: find-bug
    task_type: debug
    priority: 10
    input_data:
      code: "def f(): pass"
      language: python
  - task_id: document
    task_type: doc-generate
    depends_on: [find-bug]
    input_data:
      code: "def f(): pass"
`)

	batch, err := loadBatch(path)
	if err != nil {
		t.Fatalf("loadBatch failed: %v", err)
	}

	if batch.SessionID != "s1" {
		t.Errorf("expected session s1, got %q", batch.SessionID)
	}
	if batch.Mode != models.ModeParallel {
		t.Errorf("expected parallel mode, got %q", batch.Mode)
	}
	if batch.Context != "shared notes" {
		t.Errorf("unexpected context %q", batch.Context)
	}
	if len(batch.Tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(batch.Tasks))
	}

	first := batch.Tasks[0]
	if first.ID != "find-bug" || first.Type != models.TaskTypeDebug || first.Priority != 10 {
		t.Errorf("unexpected first task: %+v", first)
	}
	if first.Input["language"] != "python" {
		t.Errorf("input_data not parsed: %+v", first.Input)
	}

	second := batch.Tasks[1]
	if len(second.DependsOn) != 1 || second.DependsOn[0] != "find-bug" {
		t.Errorf("depends_on not parsed: %+v", second.DependsOn)
	}
}

func TestLoadBatchRejectsMissingID(t *testing.T) {
	path := writeBatchFile(t, `
tasks:
  - task_type: debug
    input_data:
      code: x
`)
	if _, err := loadBatch(path); err == nil {
		t.Fatal("expected error for missing task_id")
	}
}

func TestLoadBatchRejectsUnknownType(t *testing.T) {
	path := writeBatchFile(t, `
tasks:
  - task_id: t1
    task_type: juggle
`)
	if _, err := loadBatch(path); err == nil {
		t.Fatal("expected error for unknown task_type")
	}
}

func TestLoadBatchRejectsUnknownMode(t *testing.T) {
	path := writeBatchFile(t, `
concurrency_mode: sideways
tasks:
  - task_id: t1
    task_type: debug
`)
	if _, err := loadBatch(path); err == nil {
		t.Fatal("expected error for unknown concurrency_mode")
	}
}

func TestLoadBatchMissingFile(t *testing.T) {
	if _, err := loadBatch(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestIsBatchFile(t *testing.T) {
	cases := []struct {
		path string
		want bool
	}{
		{"a.yaml", true},
		{"a.yml", true},
		{"a.YAML", true},
		{"a.yaml.done", false},
		{"a.json", false},
		{"a", false},
	}
	for _, tc := range cases {
		if got := isBatchFile(tc.path); got != tc.want {
			t.Errorf("isBatchFile(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}
