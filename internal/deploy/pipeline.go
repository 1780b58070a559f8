package deploy

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dominikbraun/graph"
	"github.com/rs/zerolog"

	"github.com/bigcalc/bigcalc/internal/publish"
)

var (
	ErrDuplicateStep = errors.New("duplicate step")
	ErrUnknownStep   = errors.New("unknown step dependency")
	ErrStepCycle     = errors.New("step dependencies form a cycle")
)

// Hooks observe a run; either may be nil.
type Hooks struct {
	OnStart  func(name string)
	OnFinish func(result StepResult)
}

// Report is the outcome of a run.
type Report struct {
	Event     Event              `json:"event"`
	Status    Status             `json:"status"`
	Steps     []StepResult       `json:"steps"`
	Published *publish.Published `json:"published,omitempty"`
	Duration  time.Duration      `json:"duration"`
}

// Step returns the result of the named step.
func (r *Report) Step(name string) (StepResult, bool) {
	for _, s := range r.Steps {
		if s.Name == name {
			return s, true
		}
	}
	return StepResult{}, false
}

// Pipeline runs steps one at a time in dependency order. Steps without an
// ordering constraint between them keep their declaration order.
type Pipeline struct {
	log   *zerolog.Logger
	steps map[string]Step
	order []string
}

func NewPipeline(log *zerolog.Logger, steps ...Step) (*Pipeline, error) {
	g := graph.New(graph.StringHash, graph.Directed(), graph.PreventCycles())
	index := make(map[string]int, len(steps))
	byName := make(map[string]Step, len(steps))

	for i, s := range steps {
		if err := g.AddVertex(s.Name); err != nil {
			if errors.Is(err, graph.ErrVertexAlreadyExists) {
				return nil, fmt.Errorf("%w: %s", ErrDuplicateStep, s.Name)
			}
			return nil, err
		}
		index[s.Name] = i
		byName[s.Name] = s
	}
	for _, s := range steps {
		for _, dep := range s.DependsOn {
			if _, ok := byName[dep]; !ok {
				return nil, fmt.Errorf("%w: %s depends on %s", ErrUnknownStep, s.Name, dep)
			}
			if err := g.AddEdge(dep, s.Name); err != nil {
				if errors.Is(err, graph.ErrEdgeCreatesCycle) {
					return nil, fmt.Errorf("%w: %s -> %s", ErrStepCycle, dep, s.Name)
				}
				return nil, err
			}
		}
	}

	order, err := declarationOrder(g, index)
	if err != nil {
		return nil, err
	}
	return &Pipeline{log: log, steps: byName, order: order}, nil
}

// declarationOrder sorts g topologically. Of the steps whose dependencies
// are done, the one declared first goes next.
func declarationOrder(g graph.Graph[string, string], index map[string]int) ([]string, error) {
	preds, err := g.PredecessorMap()
	if err != nil {
		return nil, err
	}
	adjacency, err := g.AdjacencyMap()
	if err != nil {
		return nil, err
	}

	pending := make(map[string]int, len(preds))
	var ready []string
	for name, in := range preds {
		pending[name] = len(in)
		if len(in) == 0 {
			ready = append(ready, name)
		}
	}

	order := make([]string, 0, len(preds))
	for len(ready) > 0 {
		slices.SortFunc(ready, func(a, b string) int { return index[a] - index[b] })
		next := ready[0]
		ready = ready[1:]
		order = append(order, next)

		for succ := range adjacency[next] {
			pending[succ]--
			if pending[succ] == 0 {
				ready = append(ready, succ)
			}
		}
	}
	if len(order) != len(preds) {
		return nil, ErrStepCycle
	}
	return order, nil
}

// Order returns the step names in execution order.
func (p *Pipeline) Order() []string {
	return append([]string(nil), p.order...)
}

// Run executes the pipeline. The first failing step aborts the run and every
// later step is reported skipped. The report is returned even on error.
func (p *Pipeline) Run(ctx context.Context, state *State, hooks Hooks) (*Report, error) {
	start := time.Now()
	report := &Report{Event: state.Event, Status: StatusSucceeded}
	statuses := make(map[string]Status, len(p.order))
	var runErr error

	for _, name := range p.order {
		step := p.steps[name]
		res := StepResult{Name: name, Status: StatusSkipped}

		switch {
		case runErr != nil:
			res.Detail = "run aborted"
		case !depsSucceeded(step, statuses, &res):
		case ctx.Err() != nil:
			res.Status = StatusCanceled
			report.Status = StatusCanceled
			runErr = fmt.Errorf("deploy canceled before %s: %w", name, ctx.Err())
		default:
			if step.Gate != nil {
				if open, reason := step.Gate(state); !open {
					res.Detail = reason
					p.log.Info().Str("step", name).Str("reason", reason).Msg("Step skipped")
					break
				}
			}
			if hooks.OnStart != nil {
				hooks.OnStart(name)
			}
			p.log.Debug().Str("step", name).Msg("Step started")

			stepStart := time.Now()
			detail, err := step.Run(ctx, state)
			res.Duration = time.Since(stepStart)
			res.Detail = detail

			switch {
			case err == nil:
				res.Status = StatusSucceeded
			case ctx.Err() != nil:
				res.Status = StatusCanceled
				res.Error = err.Error()
				report.Status = StatusCanceled
				runErr = fmt.Errorf("deploy canceled during %s: %w", name, ctx.Err())
			default:
				res.Status = StatusFailed
				res.Error = err.Error()
				report.Status = StatusFailed
				runErr = &StepError{Step: name, Err: err}
			}
			p.log.Debug().Str("step", name).Str("status", string(res.Status)).Dur("took", res.Duration).Msg("Step finished")
			if hooks.OnFinish != nil {
				hooks.OnFinish(res)
			}
		}

		statuses[name] = res.Status
		report.Steps = append(report.Steps, res)
	}

	report.Published = state.Published
	report.Duration = time.Since(start)
	return report, runErr
}

func depsSucceeded(step Step, statuses map[string]Status, res *StepResult) bool {
	for _, dep := range step.DependsOn {
		if statuses[dep] != StatusSucceeded {
			res.Detail = fmt.Sprintf("%s did not succeed", dep)
			return false
		}
	}
	return true
}
