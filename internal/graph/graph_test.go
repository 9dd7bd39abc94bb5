package graph

import (
	"errors"
	"sort"
	"testing"

	"github.com/taskmill/taskmill/pkg/models"
)

func TestBuildEmpty(t *testing.T) {
	g, err := Build(nil)
	if err != nil {
		t.Fatalf("unexpected error building empty graph: %v", err)
	}
	if g.Len() != 0 {
		t.Errorf("expected empty graph, got %d nodes", g.Len())
	}
}

func TestBuildSimple(t *testing.T) {
	g, err := Build([]models.TaskDescriptor{
		{ID: "t1", Type: models.TaskTypeDebug},
		{ID: "t2", Type: models.TaskTypeAnalyze},
		{ID: "t3", Type: models.TaskTypeDocGenerate},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.Len() != 3 {
		t.Errorf("expected 3 nodes, got %d", g.Len())
	}
}

func TestBuildEdges(t *testing.T) {
	g, err := Build([]models.TaskDescriptor{
		{ID: "t1"},
		{ID: "t2"},
		{ID: "t3", DependsOn: []string{"t1", "t2"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	i3, ok := g.IndexOf("t3")
	if !ok {
		t.Fatal("t3 not indexed")
	}
	if len(g.Dependencies(i3)) != 2 {
		t.Errorf("expected 2 dependencies for t3, got %d", len(g.Dependencies(i3)))
	}

	i1, _ := g.IndexOf("t1")
	deps := g.Dependents(i1)
	if len(deps) != 1 || g.Task(deps[0]).ID != "t3" {
		t.Errorf("expected t3 as sole dependent of t1, got %v", deps)
	}
}

func TestBuildPreservesSubmissionOrder(t *testing.T) {
	g, err := Build([]models.TaskDescriptor{
		{ID: "b"}, {ID: "a"}, {ID: "c"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, want := range []string{"b", "a", "c"} {
		if g.Task(i).ID != want {
			t.Errorf("index %d: expected %q, got %q", i, want, g.Task(i).ID)
		}
		if g.Order(i) != i {
			t.Errorf("index %d: expected order %d, got %d", i, i, g.Order(i))
		}
	}
}

func TestBuildDuplicateTaskID(t *testing.T) {
	_, err := Build([]models.TaskDescriptor{
		{ID: "t1"},
		{ID: "t1"},
	})
	if !errors.Is(err, ErrDuplicateTaskID) {
		t.Fatalf("expected ErrDuplicateTaskID, got %v", err)
	}

	var dup *DuplicateTaskIDError
	if !errors.As(err, &dup) {
		t.Fatal("expected *DuplicateTaskIDError")
	}
	if dup.TaskID != "t1" {
		t.Errorf("expected offending id t1, got %q", dup.TaskID)
	}
}

func TestBuildUnknownDependency(t *testing.T) {
	_, err := Build([]models.TaskDescriptor{
		{ID: "t1", DependsOn: []string{"ghost"}},
	})
	if !errors.Is(err, ErrUnknownDependency) {
		t.Fatalf("expected ErrUnknownDependency, got %v", err)
	}

	var unk *UnknownDependencyError
	if !errors.As(err, &unk) {
		t.Fatal("expected *UnknownDependencyError")
	}
	if unk.TaskID != "t1" || unk.DependsOn != "ghost" {
		t.Errorf("unexpected error detail: %+v", unk)
	}
}

func TestBuildCycleTwoNodes(t *testing.T) {
	// A depends on B, B depends on A.
	_, err := Build([]models.TaskDescriptor{
		{ID: "A", DependsOn: []string{"B"}},
		{ID: "B", DependsOn: []string{"A"}},
	})
	if !errors.Is(err, ErrCycleDetected) {
		t.Fatalf("expected ErrCycleDetected, got %v", err)
	}

	var cyc *CycleError
	if !errors.As(err, &cyc) {
		t.Fatal("expected *CycleError")
	}
	ids := append([]string(nil), cyc.Path...)
	sort.Strings(ids)
	// Path closes the loop, so both tasks appear and one repeats.
	if len(cyc.Path) < 2 {
		t.Fatalf("expected cycle path with at least 2 ids, got %v", cyc.Path)
	}
	found := map[string]bool{}
	for _, id := range cyc.Path {
		found[id] = true
	}
	if !found["A"] || !found["B"] {
		t.Errorf("expected cycle path to name A and B, got %v", cyc.Path)
	}
}

func TestBuildCycleThreeNodes(t *testing.T) {
	_, err := Build([]models.TaskDescriptor{
		{ID: "A", DependsOn: []string{"C"}},
		{ID: "B", DependsOn: []string{"A"}},
		{ID: "C", DependsOn: []string{"B"}},
	})
	if !errors.Is(err, ErrCycleDetected) {
		t.Fatalf("expected ErrCycleDetected for A->C->B->A, got %v", err)
	}
}

func TestBuildSelfReference(t *testing.T) {
	_, err := Build([]models.TaskDescriptor{
		{ID: "A", DependsOn: []string{"A"}},
	})
	if !errors.Is(err, ErrCycleDetected) {
		t.Fatalf("expected ErrCycleDetected for self-reference, got %v", err)
	}
}

func TestBuildCycleBehindChain(t *testing.T) {
	// A valid prefix chain leading into a cycle further down.
	_, err := Build([]models.TaskDescriptor{
		{ID: "root"},
		{ID: "mid", DependsOn: []string{"root", "loop1"}},
		{ID: "loop1", DependsOn: []string{"loop2"}},
		{ID: "loop2", DependsOn: []string{"loop1"}},
	})
	if !errors.Is(err, ErrCycleDetected) {
		t.Fatalf("expected ErrCycleDetected, got %v", err)
	}

	var cyc *CycleError
	if !errors.As(err, &cyc) {
		t.Fatal("expected *CycleError")
	}
	for _, id := range cyc.Path {
		if id == "root" {
			t.Errorf("cycle path should not include root, got %v", cyc.Path)
		}
	}
}

func TestBuildDiamondNoCycle(t *testing.T) {
	// A -> B, A -> C, B+C -> D. Shared dependency is not a cycle.
	g, err := Build([]models.TaskDescriptor{
		{ID: "A"},
		{ID: "B", DependsOn: []string{"A"}},
		{ID: "C", DependsOn: []string{"A"}},
		{ID: "D", DependsOn: []string{"B", "C"}},
	})
	if err != nil {
		t.Fatalf("unexpected error for diamond: %v", err)
	}

	iA, _ := g.IndexOf("A")
	if len(g.Dependents(iA)) != 2 {
		t.Errorf("expected 2 dependents of A, got %d", len(g.Dependents(iA)))
	}
	iD, _ := g.IndexOf("D")
	if len(g.Dependencies(iD)) != 2 {
		t.Errorf("expected 2 dependencies of D, got %d", len(g.Dependencies(iD)))
	}
}
