// Package plan validates subtask dependencies and produces topologically
// ordered execution plans. Cycle detection runs over an id-indexed arena
// built purely from dependency-id lookups, never pointer chains.
package plan

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/brightdesk/workflow/pkg/models"
)

// ErrCycleDetected indicates a circular dependency in the subtask set.
// Plan creation fails; a cyclic plan is never silently repaired.
var ErrCycleDetected = errors.New("cyclic dependency detected")

// Options tune plan-level behavior stamped onto the created plan.
type Options struct {
	// Parallel allows subtasks of the same wave to run concurrently.
	// When false the plan always executes one subtask at a time.
	Parallel bool
	// ContinueOnFailure lets unrelated subtasks proceed after a failure.
	ContinueOnFailure bool
	// QualityCheck enables the quality-check phase after execution.
	QualityCheck bool
	// MinQualityScore is the score below which quality is escalated.
	MinQualityScore float64
}

// DefaultOptions returns the stock plan options.
func DefaultOptions() Options {
	return Options{
		Parallel:          true,
		ContinueOnFailure: true,
		QualityCheck:      true,
		MinQualityScore:   0.7,
	}
}

// arena is the id-indexed graph the planner validates. Nodes are small
// integer indexes in insertion (decomposition) order.
type arena struct {
	ids      []string
	index    map[string]int
	children [][]int // dependents of each node
	indegree []int   // unmet dependency counts
}

func buildArena(tasks []*models.SubTask) (*arena, error) {
	a := &arena{
		ids:      make([]string, len(tasks)),
		index:    make(map[string]int, len(tasks)),
		children: make([][]int, len(tasks)),
		indegree: make([]int, len(tasks)),
	}
	for i, t := range tasks {
		if _, dup := a.index[t.ID]; dup {
			return nil, fmt.Errorf("duplicate subtask id %q", t.ID)
		}
		a.ids[i] = t.ID
		a.index[t.ID] = i
	}
	for i, t := range tasks {
		for _, depID := range t.DependsOn {
			j, ok := a.index[depID]
			if !ok {
				return nil, fmt.Errorf("subtask %q depends on unknown subtask %q", t.Name, depID)
			}
			a.children[j] = append(a.children[j], i)
			a.indegree[i]++
		}
	}
	return a, nil
}

// topoSort runs Kahn's algorithm. The ready queue is a FIFO seeded in
// insertion order, so ties among simultaneously ready nodes break by
// decomposition order. It also assigns each node its wave: the longest
// dependency distance from a root.
func (a *arena) topoSort() (order []int, waves []int, err error) {
	n := len(a.ids)
	indegree := make([]int, n)
	copy(indegree, a.indegree)

	queue := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if indegree[i] == 0 {
			queue = append(queue, i)
		}
	}

	order = make([]int, 0, n)
	waves = make([]int, n)
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		order = append(order, i)
		for _, c := range a.children[i] {
			if waves[i]+1 > waves[c] {
				waves[c] = waves[i] + 1
			}
			indegree[c]--
			if indegree[c] == 0 {
				queue = append(queue, c)
			}
		}
	}

	if len(order) < n {
		return nil, nil, fmt.Errorf("%w: %d of %d subtasks unorderable", ErrCycleDetected, n-len(order), n)
	}
	return order, waves, nil
}

// CreatePlan validates the subtask set and returns a plan with subtasks in
// topological order. A cycle is fatal and returns ErrCycleDetected.
// Parallel execution is enabled only when the options allow it and some
// wave holds more than one subtask, so single-file plans skip the
// concurrency machinery entirely.
func CreatePlan(subtasks []*models.SubTask, request string, rc models.RequestContext, opts Options) (*models.ExecutionPlan, error) {
	if len(subtasks) == 0 {
		return nil, errors.New("cannot plan zero subtasks")
	}

	a, err := buildArena(subtasks)
	if err != nil {
		return nil, fmt.Errorf("build dependency graph: %w", err)
	}

	order, waves, err := a.topoSort()
	if err != nil {
		return nil, err
	}

	ordered := make([]*models.SubTask, len(order))
	waveSizes := make(map[int]int)
	for pos, i := range order {
		ordered[pos] = subtasks[i]
		waveSizes[waves[i]]++
	}

	parallel := false
	if opts.Parallel {
		for _, size := range waveSizes {
			if size > 1 {
				parallel = true
				break
			}
		}
	}

	return &models.ExecutionPlan{
		ID:                uuid.New().String(),
		Name:              planName(request),
		Request:           request,
		SubTasks:          ordered,
		Parallel:          parallel,
		ContinueOnFailure: opts.ContinueOnFailure,
		Status:            models.PlanPending,
		QualityCheck:      opts.QualityCheck,
		MinQualityScore:   opts.MinQualityScore,
		Tenant:            rc.Tenant,
		CreatedAt:         time.Now(),
	}, nil
}

// planName derives a short plan title from the request text.
func planName(request string) string {
	s := strings.TrimSpace(request)
	if s == "" {
		return "Workflow plan"
	}
	if len(s) > 60 {
		s = s[:57] + "..."
	}
	return s
}
