package eval

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bigcalc/bigcalc/internal/calculator"
	"github.com/bigcalc/bigcalc/internal/runtime"
	"github.com/bigcalc/bigcalc/internal/settings"
	"github.com/bigcalc/bigcalc/internal/testutil"
)

func run(t *testing.T, args []string, file string) (string, error) {
	t.Helper()

	v := viper.New()
	if file != "" {
		v.Set(fileFlag, file)
	}
	ctx := runtime.NewContext(testutil.NewNopLogger(), v)
	var out bytes.Buffer
	ctx.Stdout = &out

	h := newHandler(ctx)
	inputs, err := h.ResolveInputs(args, v)
	if err != nil {
		return "", err
	}
	h.inputs = inputs
	if err := h.ValidateInputs(); err != nil {
		return "", err
	}
	err = h.Execute()
	return out.String(), err
}

func TestEvalArguments(t *testing.T) {
	out, err := run(t, []string{"x = 3 ** 40", "x % 1000", "sqrt(x)"}, "")
	require.NoError(t, err)
	assert.Equal(t, "12157665459056928801\n801\n3486784401\n", out)
}

func TestEvalResultBudgetFromSettings(t *testing.T) {
	v := viper.New()
	ctx := runtime.NewContext(testutil.NewNopLogger(), v)
	ctx.Settings = &settings.Settings{Calculator: settings.CalculatorSettings{MaxResultBits: 64}}
	var out bytes.Buffer
	ctx.Stdout = &out

	h := newHandler(ctx)
	h.inputs = Inputs{Expressions: []string{"a = 2 ** 40", "a * a"}}
	require.NoError(t, h.ValidateInputs())

	err := h.Execute()
	require.ErrorIs(t, err, calculator.ErrResultTooLarge)
	assert.Equal(t, "1099511627776\n", out.String())
}

func TestEvalStopsAtFirstError(t *testing.T) {
	out, err := run(t, []string{"1", "y", "2"}, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, calculator.ErrUndefinedVariable)
	assert.Equal(t, "1\n", out)
}

func TestEvalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exprs.txt")
	require.NoError(t, os.WriteFile(path, []byte("a = 12\n\nb = 18\ngcd(a, b)\n"), 0600))

	out, err := run(t, []string{"c = 1"}, path)
	require.NoError(t, err)
	assert.Equal(t, "1\n12\n18\n6\n", out)
}

func TestEvalFileReportsLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exprs.txt")
	require.NoError(t, os.WriteFile(path, []byte("1\n1 / 0\n"), 0600))

	_, err := run(t, nil, path)
	require.Error(t, err)
	assert.ErrorContains(t, err, "exprs.txt:2")
	assert.ErrorIs(t, err, calculator.ErrDivideByZero)
}

func TestEvalInputs(t *testing.T) {
	_, err := run(t, nil, "")
	assert.ErrorContains(t, err, "nothing to evaluate")

	_, err = run(t, nil, "missing/exprs.txt")
	assert.ErrorContains(t, err, "--file must have read access to path: missing/exprs.txt")
}
