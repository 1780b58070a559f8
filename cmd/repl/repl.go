package repl

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/bigcalc/bigcalc/internal/calculator"
	"github.com/bigcalc/bigcalc/internal/constants"
	"github.com/bigcalc/bigcalc/internal/runtime"
	"github.com/bigcalc/bigcalc/internal/session"
	"github.com/bigcalc/bigcalc/internal/settings"
)

const (
	commandVars  = ":vars"
	commandReset = ":reset"
	commandQuit  = ":quit"
	commandHelp  = ":help"
)

const helpText = `Enter an expression such as "x = 2 ** 64" or "gcd(x, 96)".
  :vars   list bound variables
  :reset  clear all variables
  :quit   leave (Ctrl-D works too)`

func New(runtimeContext *runtime.Context) *cobra.Command {
	replCmd := &cobra.Command{
		Use:   "repl",
		Short: "Start an interactive calculator session",
		Long: `Reads one expression per line, evaluates it with arbitrary precision
integers and prints the result. Variables persist for the whole session.`,
		Args:    cobra.NoArgs,
		Example: "bigcalc repl --verbose",
		RunE: func(cmd *cobra.Command, args []string) error {
			verbose, _ := cmd.Flags().GetBool(settings.Flags.Verbose.Name)
			h := NewHandler(runtimeContext, verbose)
			return h.Execute()
		},
	}

	return replCmd
}

type Handler struct {
	log     *zerolog.Logger
	in      io.Reader
	out     io.Writer
	errOut  io.Writer
	verbose bool
	session *session.Session
}

func NewHandler(ctx *runtime.Context, verbose bool) *Handler {
	return &Handler{
		log:     ctx.Logger,
		in:      ctx.Stdin,
		out:     ctx.Stdout,
		errOut:  ctx.Stderr,
		verbose: verbose,
		session: session.NewLimited(ctx.Settings.MaxResultBits()),
	}
}

// Execute runs the read-eval-print loop until EOF or :quit.
func (h *Handler) Execute() error {
	scanner := bufio.NewScanner(h.in)
	scanner.Buffer(make([]byte, 0, 4096), constants.MaxInputLength)

	for {
		fmt.Fprint(h.out, session.PromptPrefix)
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("failed to read input: %w", err)
			}
			fmt.Fprintln(h.out)
			h.log.Debug().Msg("End of input")
			return nil
		}

		line := scanner.Text()
		if quit := h.handleLine(line); quit {
			return nil
		}
	}
}

func (h *Handler) handleLine(line string) (quit bool) {
	switch strings.TrimSpace(line) {
	case commandQuit:
		return true
	case commandReset:
		h.session.Reset()
		return false
	case commandHelp:
		fmt.Fprintln(h.out, helpText)
		fmt.Fprintf(h.out, "functions: %s\n", strings.Join(h.session.Functions(), ", "))
		return false
	case commandVars:
		for _, b := range h.session.Variables() {
			fmt.Fprintf(h.out, "%s = %s\n", b.Name, b.Value)
		}
		return false
	}

	if h.verbose {
		if expr, err := calculator.Parse(line); err == nil {
			fmt.Fprintf(h.errOut, "expr = %s\n", calculator.Debug(expr))
		}
	}

	res, ok := h.session.Submit(line)
	if !ok {
		return false
	}
	if res.Error {
		fmt.Fprintln(h.errOut, res.Line())
		h.logFailure(res)
		return false
	}
	fmt.Fprintln(h.out, res.Output)
	return false
}

func (h *Handler) logFailure(res session.Result) {
	ev := h.log.Trace().Str("input", res.Input)
	var perr *calculator.ParseError
	var eerr *calculator.EvalError
	switch {
	case errors.As(res.Err, &perr):
		ev = ev.Int("offset", perr.Offset)
	case errors.As(res.Err, &eerr):
		ev = ev.Str("detail", eerr.Detail())
	}
	ev.Msg("Evaluation failed")
}
