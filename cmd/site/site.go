package site

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bigcalc/bigcalc/cmd/version"
	"github.com/bigcalc/bigcalc/internal/runtime"
	"github.com/bigcalc/bigcalc/internal/settings"
	"github.com/bigcalc/bigcalc/internal/site"
	"github.com/bigcalc/bigcalc/internal/ui"
	"github.com/bigcalc/bigcalc/internal/validation"
)

const noCompressFlag = "no-compress"

func New(runtimeContext *runtime.Context) *cobra.Command {
	siteCmd := &cobra.Command{
		Use:   "site",
		Short: "Manages the browser front end",
		Long:  `The site command builds the WebAssembly front end into a static release directory.`,
	}

	siteCmd.AddCommand(newBuildCommand(runtimeContext))
	return siteCmd
}

type Inputs struct {
	ProjectDir string `validate:"required,dir" cli:"site.project"`
	ReleaseDir string `validate:"required" cli:"site.release-dir"`
	NoCompress bool
}

func newBuildCommand(runtimeContext *runtime.Context) *cobra.Command {
	buildCmd := &cobra.Command{
		Use:   "build",
		Short: "Builds the release directory",
		Long: `Compiles the web sub-project for js/wasm and writes index.html, the
stylesheet, wasm_exec.js, extra assets and manifest.json to the release
directory. The release directory is recreated on every build.`,
		Example: `bigcalc site build
bigcalc site build --no-compress`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			h := newHandler(runtimeContext, site.NewBuilder(runtimeContext.Logger, nil))

			inputs, err := h.ResolveInputs(runtimeContext.Viper, runtimeContext.Settings)
			if err != nil {
				return err
			}
			h.inputs = inputs

			if err := h.ValidateInputs(); err != nil {
				return err
			}
			return h.Execute(cmd.Context())
		},
	}

	buildCmd.Flags().Bool(noCompressFlag, false, "Skip the brotli compressed copy of the binary")
	return buildCmd
}

type builder interface {
	Build(ctx context.Context, opts site.Options) (*site.Result, error)
}

type handler struct {
	log       *zerolog.Logger
	builder   builder
	printer   *ui.Printer
	spinner   *ui.Spinner
	inputs    Inputs
	validated bool
}

func newHandler(ctx *runtime.Context, b builder) *handler {
	return &handler{
		log:     ctx.Logger,
		builder: b,
		printer: &ui.Printer{Out: ctx.Stdout},
		spinner: ui.NewSpinner(),
	}
}

func (h *handler) ResolveInputs(v *viper.Viper, s *settings.Settings) (Inputs, error) {
	if s == nil {
		return Inputs{}, fmt.Errorf("settings are not loaded")
	}
	return Inputs{
		ProjectDir: s.SiteDir(),
		ReleaseDir: s.ReleaseDir(),
		NoCompress: v.GetBool(noCompressFlag),
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

func (h *handler) Execute(ctx context.Context) error {
	if !h.validated {
		return fmt.Errorf("handler inputs not validated")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var res *site.Result
	err := h.spinner.Run("Building site...", func() error {
		var err error
		res, err = h.builder.Build(ctx, site.Options{
			ProjectDir: h.inputs.ProjectDir,
			ReleaseDir: h.inputs.ReleaseDir,
			Version:    version.Version,
			NoCompress: h.inputs.NoCompress,
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("site build failed: %w", err)
	}

	h.printer.Success(fmt.Sprintf("Built %d files (%s) in %s",
		len(res.Manifest.Files), ui.FormatBytes(res.Manifest.TotalSize()), res.Duration.Round(time.Millisecond)))
	h.printer.Dim(res.ReleaseDir)
	return nil
}
