package ci

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bigcalc/bigcalc/internal/constants"
	"github.com/bigcalc/bigcalc/internal/runtime"
	"github.com/bigcalc/bigcalc/internal/settings"
	"github.com/bigcalc/bigcalc/internal/ui"
	"github.com/bigcalc/bigcalc/internal/validation"
)

const (
	outputFlag = "output"
	forceFlag  = "force"
)

var ErrWorkflowExists = errors.New("workflow file already exists, pass --force to overwrite it")

func New(runtimeContext *runtime.Context) *cobra.Command {
	ciCmd := &cobra.Command{
		Use:   "ci",
		Short: "Manages the CI configuration",
	}

	ciCmd.AddCommand(newInitCommand(runtimeContext))
	return ciCmd
}

type Inputs struct {
	Output string `validate:"required,filepath" cli:"--output"`
	Branch string `validate:"branch" cli:"deploy.production-branch"`
	Force  bool
}

func newInitCommand(runtimeContext *runtime.Context) *cobra.Command {
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Writes the GitHub Actions deploy workflow",
		Long: `Writes a GitHub Actions workflow that runs "bigcalc deploy" on every push to
the production branch, authenticated with the repository GITHUB_TOKEN.`,
		Example: `bigcalc ci init
bigcalc ci init --output .github/workflows/pages.yml --force`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			h := newHandler(runtimeContext)

			inputs, err := h.ResolveInputs(runtimeContext.Viper, runtimeContext.Settings)
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

	initCmd.Flags().StringP(outputFlag, "o", constants.DefaultWorkflowPath, "Path of the workflow file, relative to the project root")
	initCmd.Flags().Bool(forceFlag, false, "Overwrite an existing workflow file")
	return initCmd
}

type handler struct {
	log       *zerolog.Logger
	printer   *ui.Printer
	inputs    Inputs
	validated bool
}

func newHandler(ctx *runtime.Context) *handler {
	return &handler{
		log:     ctx.Logger,
		printer: &ui.Printer{Out: ctx.Stdout},
	}
}

func (h *handler) ResolveInputs(v *viper.Viper, s *settings.Settings) (Inputs, error) {
	output := v.GetString(outputFlag)
	if output == "" {
		output = constants.DefaultWorkflowPath
	}
	branch := constants.DefaultProductionBranch
	if s != nil {
		output = s.Abs(output)
		if s.Deploy.ProductionBranch != "" {
			branch = s.Deploy.ProductionBranch
		}
	}
	return Inputs{
		Output: output,
		Branch: branch,
		Force:  v.GetBool(forceFlag),
	}, nil
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

	if _, err := os.Stat(h.inputs.Output); err == nil && !h.inputs.Force {
		return fmt.Errorf("%s: %w", h.inputs.Output, ErrWorkflowExists)
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to check %s: %w", h.inputs.Output, err)
	}

	data, err := renderWorkflow(h.inputs.Branch)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(h.inputs.Output), 0o755); err != nil {
		return fmt.Errorf("failed to create workflow directory: %w", err)
	}
	if err := os.WriteFile(h.inputs.Output, data, 0o644); err != nil {
		return fmt.Errorf("failed to write workflow: %w", err)
	}

	h.log.Debug().Str("path", h.inputs.Output).Str("branch", h.inputs.Branch).Msg("Workflow written")
	h.printer.Success("Workflow written")
	h.printer.Dim(h.inputs.Output)
	h.printer.Print(fmt.Sprintf("Pushes to %s now build and publish the site.", ui.RenderBold(h.inputs.Branch)))
	return nil
}
