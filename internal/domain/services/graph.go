package services

import (
	"fmt"
	"sort"

	"github.com/cascadeci/cascade/internal/domain/entities"
)

// JobGraph is an immutable, validated dependency DAG over a pipeline's jobs.
//
// It is safe for concurrent read access.
type JobGraph struct {
	names    []string // sorted, canonical order
	index    map[string]int
	incoming [][]int // by canonical index, sorted ascending
	outgoing [][]int // by canonical index, sorted ascending
	depth    []int   // topological depth by canonical index
}

// BuildJobGraph builds and validates the dependency graph of a pipeline.
//
// Validation rejects:
//   - empty or duplicate job names
//   - needs referencing unknown jobs
//   - self-dependencies
//   - any cycle (direct or indirect)
func BuildJobGraph(p *entities.Pipeline) (*JobGraph, error) {
	if len(p.Jobs) == 0 {
		return nil, fmt.Errorf("pipeline %q has no jobs", p.Name)
	}

	index := make(map[string]int, len(p.Jobs))
	names := make([]string, 0, len(p.Jobs))
	for i := range p.Jobs {
		name := p.Jobs[i].Name
		if name == "" {
			return nil, fmt.Errorf("job name is required")
		}
		if _, exists := index[name]; exists {
			return nil, fmt.Errorf("duplicate job name: %q", name)
		}
		index[name] = 0
		names = append(names, name)
	}

	sort.Strings(names)
	for i, n := range names {
		index[n] = i
	}

	incoming := make([][]int, len(names))
	outgoing := make([][]int, len(names))
	for i := range p.Jobs {
		job := &p.Jobs[i]
		to := index[job.Name]
		for _, need := range job.Needs {
			from, ok := index[need]
			if !ok {
				return nil, fmt.Errorf("job %q needs unknown job %q", job.Name, need)
			}
			if from == to {
				return nil, fmt.Errorf("job %q depends on itself", job.Name)
			}
			incoming[to] = append(incoming[to], from)
			outgoing[from] = append(outgoing[from], to)
		}
	}
	for i := range incoming {
		sort.Ints(incoming[i])
	}
	for i := range outgoing {
		sort.Ints(outgoing[i])
	}

	g := &JobGraph{names: names, index: index, incoming: incoming, outgoing: outgoing}
	order, err := g.topoOrder()
	if err != nil {
		return nil, err
	}

	g.depth = make([]int, len(names))
	for _, u := range order {
		max := 0
		for _, p := range g.incoming[u] {
			if g.depth[p]+1 > max {
				max = g.depth[p] + 1
			}
		}
		g.depth[u] = max
	}

	return g, nil
}

// topoOrder returns indices in a deterministic topological order, or an error
// naming one job on a cycle.
func (g *JobGraph) topoOrder() ([]int, error) {
	indeg := make([]int, len(g.names))
	for to, parents := range g.incoming {
		indeg[to] = len(parents)
	}

	ready := make([]int, 0, len(g.names))
	for i, d := range indeg {
		if d == 0 {
			ready = append(ready, i)
		}
	}

	order := make([]int, 0, len(g.names))
	for len(ready) > 0 {
		sort.Ints(ready)
		u := ready[0]
		ready = ready[1:]
		order = append(order, u)
		for _, v := range g.outgoing[u] {
			indeg[v]--
			if indeg[v] == 0 {
				ready = append(ready, v)
			}
		}
	}

	if len(order) != len(g.names) {
		for i, d := range indeg {
			if d > 0 {
				return nil, fmt.Errorf("dependency cycle involving job %q", g.names[i])
			}
		}
	}
	return order, nil
}

// TopologicalOrder returns a deterministic topological ordering of job names.
//
// The graph is validated on construction, so this cannot fail.
func (g *JobGraph) TopologicalOrder() []string {
	order, _ := g.topoOrder()
	out := make([]string, 0, len(order))
	for _, idx := range order {
		out = append(out, g.names[idx])
	}
	return out
}

// Needs returns the direct dependencies of a job
func (g *JobGraph) Needs(name string) []string {
	idx, ok := g.index[name]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(g.incoming[idx]))
	for _, p := range g.incoming[idx] {
		out = append(out, g.names[p])
	}
	return out
}

// Dependents returns the transitive downstream jobs of name, sorted.
//
// Used to propagate a failure to everything that can no longer run.
func (g *JobGraph) Dependents(name string) []string {
	idx, ok := g.index[name]
	if !ok {
		return nil
	}

	seen := make(map[int]bool)
	stack := []int{idx}
	for len(stack) > 0 {
		u := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, v := range g.outgoing[u] {
			if !seen[v] {
				seen[v] = true
				stack = append(stack, v)
			}
		}
	}

	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, g.names[v])
	}
	sort.Strings(out)
	return out
}

// ReadyJobs returns the deterministically ordered job names eligible to start.
//
// A job is ready iff its status is pending and every dependency reached a
// terminal status that satisfies dependents. The result is sorted by
// topological depth, then name.
func (g *JobGraph) ReadyJobs(state map[string]entities.Status) []string {
	ready := make([]string, 0)
	for idx, name := range g.names {
		if state[name] != entities.StatusPending {
			continue
		}
		ok := true
		for _, p := range g.incoming[idx] {
			if !state[g.names[p]].SatisfiesDependents() {
				ok = false
				break
			}
		}
		if ok {
			ready = append(ready, name)
		}
	}

	sort.Slice(ready, func(i, j int) bool {
		a, b := ready[i], ready[j]
		ad, bd := g.depth[g.index[a]], g.depth[g.index[b]]
		if ad != bd {
			return ad < bd
		}
		return a < b
	})
	return ready
}
