package deploy

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bigcalc/bigcalc/internal/testutil"
)

func recordStep(name string, ran *[]string, err error, deps ...string) Step {
	return Step{
		Name:      name,
		DependsOn: deps,
		Run: func(context.Context, *State) (string, error) {
			*ran = append(*ran, name)
			return "ok", err
		},
	}
}

func statuses(r *Report) map[string]Status {
	out := map[string]Status{}
	for _, s := range r.Steps {
		out[s.Name] = s.Status
	}
	return out
}

func TestNewPipelineOrder(t *testing.T) {
	var ran []string
	p, err := NewPipeline(testutil.NewNopLogger(),
		recordStep("publish", &ran, nil, "build"),
		recordStep("lint", &ran, nil),
		recordStep("build", &ran, nil, "lint", "fetch"),
		recordStep("fetch", &ran, nil),
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"lint", "fetch", "build", "publish"}, p.Order())
}

func TestNewPipelineKeepsDeclarationOrder(t *testing.T) {
	var ran []string
	steps := []Step{
		recordStep("a", &ran, nil),
		recordStep("b", &ran, nil, "a"),
		recordStep("c", &ran, nil),
		recordStep("d", &ran, nil, "b"),
		recordStep("e", &ran, nil),
		recordStep("f", &ran, nil, "c", "e"),
	}
	// Map iteration inside the graph is random, so one lucky pass proves little.
	for range 50 {
		p, err := NewPipeline(testutil.NewNopLogger(), steps...)
		require.NoError(t, err)
		require.Equal(t, []string{"a", "b", "c", "d", "e", "f"}, p.Order())
	}
}

func TestNewPipelineErrors(t *testing.T) {
	var ran []string
	tests := []struct {
		name  string
		steps []Step
		want  error
	}{
		{
			name:  "duplicate",
			steps: []Step{recordStep("a", &ran, nil), recordStep("a", &ran, nil)},
			want:  ErrDuplicateStep,
		},
		{
			name:  "unknown dependency",
			steps: []Step{recordStep("a", &ran, nil, "missing")},
			want:  ErrUnknownStep,
		},
		{
			name:  "cycle",
			steps: []Step{recordStep("a", &ran, nil, "b"), recordStep("b", &ran, nil, "a")},
			want:  ErrStepCycle,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPipeline(testutil.NewNopLogger(), tt.steps...)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRunFailFast(t *testing.T) {
	var ran []string
	boom := errors.New("boom")
	p, err := NewPipeline(testutil.NewNopLogger(),
		recordStep("a", &ran, nil),
		recordStep("b", &ran, boom, "a"),
		recordStep("c", &ran, nil),
		recordStep("d", &ran, nil, "b"),
	)
	require.NoError(t, err)

	report, err := p.Run(context.Background(), &State{}, Hooks{})
	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, "b", stepErr.Step)
	assert.ErrorIs(t, err, boom)

	assert.Equal(t, []string{"a", "b"}, ran)
	assert.Equal(t, StatusFailed, report.Status)
	assert.Equal(t, map[string]Status{
		"a": StatusSucceeded,
		"b": StatusFailed,
		"c": StatusSkipped,
		"d": StatusSkipped,
	}, statuses(report))

	b, _ := report.Step("b")
	assert.Equal(t, "boom", b.Error)
}

func TestRunClosedGate(t *testing.T) {
	var ran []string
	gated := recordStep("gated", &ran, nil, "a")
	gated.Gate = func(*State) (bool, string) { return false, "not today" }

	p, err := NewPipeline(testutil.NewNopLogger(),
		recordStep("a", &ran, nil),
		gated,
		recordStep("after", &ran, nil, "gated"),
		recordStep("other", &ran, nil, "a"),
	)
	require.NoError(t, err)

	report, err := p.Run(context.Background(), &State{}, Hooks{})
	require.NoError(t, err)
	assert.Equal(t, StatusSucceeded, report.Status)
	assert.Equal(t, []string{"a", "other"}, ran)

	res, ok := report.Step("gated")
	require.True(t, ok)
	assert.Equal(t, StatusSkipped, res.Status)
	assert.Equal(t, "not today", res.Detail)

	res, _ = report.Step("after")
	assert.Equal(t, StatusSkipped, res.Status)
	assert.Equal(t, "gated did not succeed", res.Detail)
}

func TestRunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var ran []string
	p, err := NewPipeline(testutil.NewNopLogger(),
		recordStep("a", &ran, nil),
		Step{
			Name:      "slow",
			DependsOn: []string{"a"},
			Run: func(ctx context.Context, _ *State) (string, error) {
				cancel()
				<-ctx.Done()
				return "", ctx.Err()
			},
		},
		recordStep("c", &ran, nil, "slow"),
	)
	require.NoError(t, err)

	report, err := p.Run(ctx, &State{}, Hooks{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StatusCanceled, report.Status)
	assert.Equal(t, map[string]Status{
		"a":    StatusSucceeded,
		"slow": StatusCanceled,
		"c":    StatusSkipped,
	}, statuses(report))
}

func TestRunCanceledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var ran []string
	p, err := NewPipeline(testutil.NewNopLogger(), recordStep("a", &ran, nil), recordStep("b", &ran, nil))
	require.NoError(t, err)

	report, err := p.Run(ctx, &State{}, Hooks{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, ran)
	assert.Equal(t, map[string]Status{"a": StatusCanceled, "b": StatusSkipped}, statuses(report))
}

func TestRunHooks(t *testing.T) {
	var ran, started []string
	var finished []StepResult
	p, err := NewPipeline(testutil.NewNopLogger(), recordStep("a", &ran, nil), recordStep("b", &ran, nil, "a"))
	require.NoError(t, err)

	_, err = p.Run(context.Background(), &State{}, Hooks{
		OnStart:  func(name string) { started = append(started, name) },
		OnFinish: func(r StepResult) { finished = append(finished, r) },
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, started)
	require.Len(t, finished, 2)
	assert.Equal(t, StatusSucceeded, finished[1].Status)
	assert.Equal(t, "ok", finished[1].Detail)
}
