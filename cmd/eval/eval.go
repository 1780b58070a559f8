package eval

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bigcalc/bigcalc/internal/constants"
	"github.com/bigcalc/bigcalc/internal/runtime"
	"github.com/bigcalc/bigcalc/internal/session"
	"github.com/bigcalc/bigcalc/internal/validation"
)

const fileFlag = "file"

type Inputs struct {
	Expressions []string
	File        string `validate:"omitempty,path_read" cli:"--file"`
}

func New(runtimeContext *runtime.Context) *cobra.Command {
	evalCmd := &cobra.Command{
		Use:   "eval [expression...]",
		Short: "Evaluate expressions and print their values",
		Long: `Evaluates every argument in order, sharing variables between them, and
prints one value per line. Stops at the first failing expression.`,
		Example: `bigcalc eval "x = 3 ** 40" "x % 1000"
bigcalc eval --file expressions.txt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			h := newHandler(runtimeContext)

			inputs, err := h.ResolveInputs(args, runtimeContext.Viper)
			if err != nil {
				return err
			}
			h.inputs = inputs

			if err := h.ValidateInputs(); err != nil {
				return err
			}
			return h.Execute()
		},
	}

	evalCmd.Flags().StringP(fileFlag, "f", "", "Evaluate every line of this file")

	return evalCmd
}

type handler struct {
	log           *zerolog.Logger
	out           io.Writer
	maxResultBits uint64
	inputs        Inputs
	validated     bool
}

func newHandler(ctx *runtime.Context) *handler {
	return &handler{
		log:           ctx.Logger,
		out:           ctx.Stdout,
		maxResultBits: ctx.Settings.MaxResultBits(),
	}
}

func (h *handler) ResolveInputs(args []string, v *viper.Viper) (Inputs, error) {
	inputs := Inputs{
		Expressions: args,
		File:        v.GetString(fileFlag),
	}
	if len(inputs.Expressions) == 0 && inputs.File == "" {
		return Inputs{}, fmt.Errorf("nothing to evaluate: pass expressions or --%s", fileFlag)
	}
	return inputs, nil
}

func (h *handler) ValidateInputs() error {
	validate, err := validation.NewValidator()
	if err != nil {
		return fmt.Errorf("failed to initialize validator: %w", err)
	}

	if err := validate.Struct(h.inputs); err != nil {
		return validate.ParseValidationErrors(err)
	}

	h.validated = true
	return nil
}

func (h *handler) Execute() error {
	if !h.validated {
		return fmt.Errorf("handler inputs not validated")
	}

	s := session.NewLimited(h.maxResultBits)
	for _, expr := range h.inputs.Expressions {
		if err := h.evaluate(s, expr); err != nil {
			return err
		}
	}

	if h.inputs.File == "" {
		return nil
	}
	f, err := os.Open(h.inputs.File)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", h.inputs.File, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 4096), constants.MaxInputLength)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if err := h.evaluate(s, scanner.Text()); err != nil {
			return fmt.Errorf("%s:%d: %w", h.inputs.File, lineNo, err)
		}
	}
	return scanner.Err()
}

func (h *handler) evaluate(s *session.Session, expr string) error {
	res, ok := s.Submit(expr)
	if !ok {
		return nil
	}
	if res.Error {
		h.log.Debug().Str("input", res.Input).Err(res.Err).Msg("Evaluation failed")
		return fmt.Errorf("%q: %w", res.Input, res.Err)
	}
	fmt.Fprintln(h.out, res.Output)
	return nil
}
