package decompose

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/brightdesk/workflow/pkg/models"
)

// PassthroughCapability is the handler invoked by the fallback subtask
// that carries the raw request when no decomposition applies.
const PassthroughCapability = "passthrough"

// OracleStep is one structured subtask descriptor returned by an oracle.
type OracleStep struct {
	// Name is the short step title, also used to reference dependencies.
	Name string `json:"name"`
	// Description provides detail for the step.
	Description string `json:"description"`
	// Action names the capability that performs the step.
	Action string `json:"action"`
	// Params are passed to the capability handler.
	Params map[string]any `json:"params"`
	// DependsOn lists names of other steps that must run first.
	DependsOn []string `json:"depends_on"`
}

// Oracle is the optional external decomposition service. Returning an
// error or an empty list degrades to the pass-through fallback.
type Oracle interface {
	Decompose(ctx context.Context, request string, rc models.RequestContext) ([]OracleStep, error)
}

// Options tune the defaults stamped onto produced subtasks.
type Options struct {
	// MaxRetries is the default retry budget per subtask.
	MaxRetries int
	// Timeout is the default per-attempt timeout.
	Timeout time.Duration
	// Strategy is the default recovery strategy.
	Strategy models.RecoveryStrategy
}

// DefaultOptions returns the stock subtask defaults.
func DefaultOptions() Options {
	return Options{
		MaxRetries: 3,
		Timeout:    30 * time.Second,
		Strategy:   models.RecoveryRetry,
	}
}

// Decomposer breaks a request into subtask descriptors. The rule-based
// path is tried first; an oracle, if configured, handles requests no rule
// matches. Decomposition has no side effects beyond the oracle call.
type Decomposer struct {
	rules  []Rule
	oracle Oracle
	opts   Options
}

// New creates a Decomposer with the built-in rules and no oracle.
func New() *Decomposer {
	return &Decomposer{rules: DefaultRules(), opts: DefaultOptions()}
}

// WithRules replaces the rule library.
func (d *Decomposer) WithRules(rules []Rule) *Decomposer {
	d.rules = rules
	return d
}

// WithOracle sets the external decomposition oracle.
func (d *Decomposer) WithOracle(o Oracle) *Decomposer {
	d.oracle = o
	return d
}

// WithOptions sets the subtask defaults.
func (d *Decomposer) WithOptions(opts Options) *Decomposer {
	d.opts = opts
	return d
}

// Decompose returns the ordered subtask descriptors for a request. The
// result is never empty: when neither rules nor oracle produce a usable
// decomposition, a single pass-through subtask carries the raw request.
func (d *Decomposer) Decompose(ctx context.Context, request string, rc models.RequestContext) []*models.SubTask {
	for i := range d.rules {
		rule := &d.rules[i]
		if rule.Matches(request, rc) {
			tasks, err := d.expandRule(rule, request)
			if err != nil {
				// A broken rule is a configuration problem; log it and
				// keep the request runnable via the fallback.
				log.Printf("[decompose] rule %q invalid: %v", rule.Name, err)
				break
			}
			return tasks
		}
	}

	if d.oracle != nil {
		steps, err := d.oracle.Decompose(ctx, request, rc)
		if err != nil {
			log.Printf("[decompose] oracle failed, falling back to pass-through: %v", err)
		} else if tasks, err := d.expandOracleSteps(steps); err != nil {
			log.Printf("[decompose] oracle output unusable, falling back to pass-through: %v", err)
		} else if len(tasks) > 0 {
			return tasks
		}
	}

	return []*models.SubTask{d.passthrough(request)}
}

// expandRule instantiates a rule's step templates into subtasks, resolving
// step-name dependencies to generated IDs.
func (d *Decomposer) expandRule(rule *Rule, request string) ([]*models.SubTask, error) {
	nameToID := make(map[string]string, len(rule.Steps))
	tasks := make([]*models.SubTask, len(rule.Steps))
	now := time.Now()

	for i, step := range rule.Steps {
		if step.Capability == "" {
			return nil, fmt.Errorf("step %q has no capability", step.Name)
		}
		id := uuid.New().String()
		nameToID[step.Name] = id

		params := make(map[string]any, len(step.Params)+1)
		for k, v := range step.Params {
			params[k] = v
		}
		params["request"] = request

		tasks[i] = &models.SubTask{
			ID:          id,
			Name:        step.Name,
			Description: step.Description,
			Capability:  step.Capability,
			Params:      params,
			Status:      models.StatusPending,
			Priority:    i,
			Optional:    step.Optional,
			MaxRetries:  d.retriesOr(step.MaxRetries),
			Timeout:     d.timeoutOr(step.Timeout),
			Strategy:    d.strategyOr(step.Strategy),
			CreatedAt:   now,
		}
	}

	for i, step := range rule.Steps {
		for _, depName := range step.DependsOn {
			depID, ok := nameToID[depName]
			if !ok {
				return nil, fmt.Errorf("step %q depends on unknown step %q", step.Name, depName)
			}
			tasks[i].DependsOn = append(tasks[i].DependsOn, depID)
		}
	}

	return tasks, nil
}

// expandOracleSteps converts oracle output into subtasks, resolving
// name-based dependencies. An unknown dependency name makes the whole
// output unusable.
func (d *Decomposer) expandOracleSteps(steps []OracleStep) ([]*models.SubTask, error) {
	if len(steps) == 0 {
		return nil, nil
	}

	nameToID := make(map[string]string, len(steps))
	tasks := make([]*models.SubTask, len(steps))
	now := time.Now()

	for i, step := range steps {
		if step.Name == "" || step.Action == "" {
			return nil, fmt.Errorf("step %d missing name or action", i)
		}
		id := uuid.New().String()
		nameToID[step.Name] = id
		tasks[i] = &models.SubTask{
			ID:          id,
			Name:        step.Name,
			Description: step.Description,
			Capability:  step.Action,
			Params:      step.Params,
			Status:      models.StatusPending,
			Priority:    i,
			MaxRetries:  d.opts.MaxRetries,
			Timeout:     d.opts.Timeout,
			Strategy:    d.opts.Strategy,
			CreatedAt:   now,
		}
	}

	for i, step := range steps {
		for _, depName := range step.DependsOn {
			depID, ok := nameToID[depName]
			if !ok {
				return nil, fmt.Errorf("step %q depends on unknown step %q", step.Name, depName)
			}
			tasks[i].DependsOn = append(tasks[i].DependsOn, depID)
		}
	}

	return tasks, nil
}

// passthrough builds the single fallback subtask carrying the raw request.
func (d *Decomposer) passthrough(request string) *models.SubTask {
	return &models.SubTask{
		ID:          uuid.New().String(),
		Name:        "Handle request",
		Description: "Pass the request through to the default handler",
		Capability:  PassthroughCapability,
		Params:      map[string]any{"request": request},
		Status:      models.StatusPending,
		MaxRetries:  d.opts.MaxRetries,
		Timeout:     d.opts.Timeout,
		Strategy:    d.opts.Strategy,
		CreatedAt:   time.Now(),
	}
}

func (d *Decomposer) retriesOr(n int) int {
	if n > 0 {
		return n
	}
	return d.opts.MaxRetries
}

func (d *Decomposer) timeoutOr(t time.Duration) time.Duration {
	if t > 0 {
		return t
	}
	return d.opts.Timeout
}

func (d *Decomposer) strategyOr(s models.RecoveryStrategy) models.RecoveryStrategy {
	if s.Valid() {
		return s
	}
	return d.opts.Strategy
}
