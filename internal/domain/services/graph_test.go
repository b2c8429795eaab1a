package services

import (
	"reflect"
	"testing"

	"github.com/cascadeci/cascade/internal/domain/entities"
)

func linearPipeline() *entities.Pipeline {
	return &entities.Pipeline{
		Name: "nightly",
		Jobs: []entities.Job{
			{Name: "check-skip"},
			{Name: "build", Needs: []string{"check-skip"}},
			{Name: "rpm-install-test", Needs: []string{"build"}},
			{Name: "test", Needs: []string{"build"}},
			{Name: "report", Needs: []string{"build", "test"}, Always: true},
		},
	}
}

func TestBuildJobGraph_Valid(t *testing.T) {
	g, err := BuildJobGraph(linearPipeline())
	if err != nil {
		t.Fatalf("BuildJobGraph() error = %v", err)
	}

	order := g.TopologicalOrder()
	pos := make(map[string]int, len(order))
	for i, n := range order {
		pos[n] = i
	}

	before := [][2]string{
		{"check-skip", "build"},
		{"build", "rpm-install-test"},
		{"build", "test"},
		{"test", "report"},
		{"build", "report"},
	}
	for _, pair := range before {
		if pos[pair[0]] >= pos[pair[1]] {
			t.Errorf("TopologicalOrder() placed %q after %q: %v", pair[0], pair[1], order)
		}
	}
}

func TestBuildJobGraph_Invalid(t *testing.T) {
	tests := []struct {
		name string
		jobs []entities.Job
	}{
		{
			name: "no jobs",
			jobs: nil,
		},
		{
			name: "empty job name",
			jobs: []entities.Job{{Name: ""}},
		},
		{
			name: "duplicate job name",
			jobs: []entities.Job{{Name: "build"}, {Name: "build"}},
		},
		{
			name: "unknown dependency",
			jobs: []entities.Job{{Name: "test", Needs: []string{"build"}}},
		},
		{
			name: "self dependency",
			jobs: []entities.Job{{Name: "build", Needs: []string{"build"}}},
		},
		{
			name: "cycle",
			jobs: []entities.Job{
				{Name: "a", Needs: []string{"b"}},
				{Name: "b", Needs: []string{"a"}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildJobGraph(&entities.Pipeline{Name: "p", Jobs: tt.jobs})
			if err == nil {
				t.Error("BuildJobGraph() expected error, got nil")
			}
		})
	}
}

func TestJobGraph_ReadyJobs(t *testing.T) {
	g, err := BuildJobGraph(linearPipeline())
	if err != nil {
		t.Fatalf("BuildJobGraph() error = %v", err)
	}

	state := map[string]entities.Status{
		"check-skip":       entities.StatusPending,
		"build":            entities.StatusPending,
		"rpm-install-test": entities.StatusPending,
		"test":             entities.StatusPending,
		"report":           entities.StatusPending,
	}

	if got := g.ReadyJobs(state); !reflect.DeepEqual(got, []string{"check-skip"}) {
		t.Errorf("ReadyJobs() = %v, want [check-skip]", got)
	}

	// Build never becomes ready before check-skip finishes
	state["check-skip"] = entities.StatusRunning
	if got := g.ReadyJobs(state); len(got) != 0 {
		t.Errorf("ReadyJobs() = %v, want none while check-skip runs", got)
	}

	state["check-skip"] = entities.StatusSuccess
	if got := g.ReadyJobs(state); !reflect.DeepEqual(got, []string{"build"}) {
		t.Errorf("ReadyJobs() = %v, want [build]", got)
	}

	// Test jobs only become ready once build succeeded
	state["build"] = entities.StatusSuccess
	want := []string{"rpm-install-test", "test"}
	if got := g.ReadyJobs(state); !reflect.DeepEqual(got, want) {
		t.Errorf("ReadyJobs() = %v, want %v", got, want)
	}

	// Skipped dependencies satisfy dependents
	state["build"] = entities.StatusSkipped
	if got := g.ReadyJobs(state); !reflect.DeepEqual(got, want) {
		t.Errorf("ReadyJobs() with skipped build = %v, want %v", got, want)
	}

	// Failed dependencies block dependents
	state["build"] = entities.StatusFailure
	if got := g.ReadyJobs(state); len(got) != 0 {
		t.Errorf("ReadyJobs() with failed build = %v, want none", got)
	}
}

func TestJobGraph_Dependents(t *testing.T) {
	g, err := BuildJobGraph(linearPipeline())
	if err != nil {
		t.Fatalf("BuildJobGraph() error = %v", err)
	}

	got := g.Dependents("build")
	want := []string{"report", "rpm-install-test", "test"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Dependents(build) = %v, want %v", got, want)
	}

	if got := g.Dependents("report"); len(got) != 0 {
		t.Errorf("Dependents(report) = %v, want none", got)
	}
}

func TestJobGraph_Needs(t *testing.T) {
	g, err := BuildJobGraph(linearPipeline())
	if err != nil {
		t.Fatalf("BuildJobGraph() error = %v", err)
	}

	got := g.Needs("report")
	want := []string{"build", "test"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Needs(report) = %v, want %v", got, want)
	}
}
