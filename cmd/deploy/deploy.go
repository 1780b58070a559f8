package deploy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bigcalc/bigcalc/cmd/version"
	"github.com/bigcalc/bigcalc/internal/constants"
	"github.com/bigcalc/bigcalc/internal/deploy"
	"github.com/bigcalc/bigcalc/internal/publish"
	"github.com/bigcalc/bigcalc/internal/runtime"
	"github.com/bigcalc/bigcalc/internal/settings"
	"github.com/bigcalc/bigcalc/internal/site"
	"github.com/bigcalc/bigcalc/internal/ui"
	"github.com/bigcalc/bigcalc/internal/validation"
)

const progressWidth = 30

const (
	eventFlag      = "event"
	refFlag        = "ref"
	shaFlag        = "sha"
	repositoryFlag = "repository"
	jsonFlag       = "json"
	dryRunFlag     = "dry-run"
)

type Inputs struct {
	Event deploy.Event

	ProjectRoot      string `validate:"required,dir"`
	SiteDir          string `validate:"required" cli:"site.project"`
	ReleaseDir       string `validate:"required" cli:"site.release-dir"`
	PublishDir       string `validate:"required" cli:"deploy.publish-dir"`
	ProductionBranch string `validate:"branch" cli:"deploy.production-branch"`
	Repository       string `validate:"omitempty,repository" cli:"--repository"`

	JSON             bool
	DryRun           bool
	SkipConfirmation bool
}

func New(runtimeContext *runtime.Context) *cobra.Command {
	deployCmd := &cobra.Command{
		Use:   "deploy",
		Short: "Builds the site and publishes it on a push to the production branch",
		Long: `Runs the deployment workflow: checkout, toolchain, build-tool, build, copy and
publish. Every step runs for any event; publish runs only for a push to the
production branch (deploy.production-branch, main by default). The event is
read from the flags, then the GitHub Actions environment, then the local git
checkout.`,
		Example: `bigcalc deploy
bigcalc deploy --ref refs/heads/main --dry-run
bigcalc deploy --yes --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			h := newHandler(runtimeContext)

			inputs, err := h.ResolveInputs(ctx, runtimeContext.Viper, runtimeContext.Settings)
			if err != nil {
				return err
			}
			h.inputs = inputs

			if err := h.ValidateInputs(); err != nil {
				return err
			}
			return h.Execute(ctx)
		},
	}

	deployCmd.Flags().String(eventFlag, "", "Triggering event name (default: $GITHUB_EVENT_NAME or push)")
	deployCmd.Flags().String(refFlag, "", "Pushed ref or branch name (default: $GITHUB_REF or the checked out branch)")
	deployCmd.Flags().String(shaFlag, "", "Revision being deployed (default: $GITHUB_SHA or HEAD)")
	deployCmd.Flags().String(repositoryFlag, "", "GitHub repository owner/name to publish to (default: deploy.repository or the origin remote)")
	deployCmd.Flags().Bool(jsonFlag, false, "Print the run report as JSON")
	deployCmd.Flags().Bool(dryRunFlag, false, "Run every step but log instead of publishing")
	settings.AddSkipConfirmation(deployCmd)

	return deployCmd
}

type handler struct {
	log      *zerolog.Logger
	settings *settings.Settings
	runner   site.Runner
	builder  deploy.SiteBuilder
	printer  *ui.Printer
	spinner  *ui.Spinner
	stdout   io.Writer
	getenv   func(string) string

	interactive  bool
	confirm      func(title string, opts ...ui.ConfirmOption) (bool, error)
	newPublisher func(ctx context.Context, cfg publish.Config, log *zerolog.Logger) (publish.Publisher, error)

	inputs    Inputs
	validated bool
}

func newHandler(ctx *runtime.Context) *handler {
	runner := site.ExecRunner{}
	return &handler{
		log:          ctx.Logger,
		settings:     ctx.Settings,
		runner:       runner,
		builder:      site.NewBuilder(ctx.Logger, runner),
		printer:      &ui.Printer{Out: ctx.Stdout},
		spinner:      ui.NewSpinner(),
		stdout:       ctx.Stdout,
		getenv:       os.Getenv,
		interactive:  ui.IsInteractive() && !ctx.Viper.GetBool(settings.Flags.NonInteractive.Name),
		confirm:      ui.Confirm,
		newPublisher: publish.New,
	}
}

func (h *handler) ResolveInputs(ctx context.Context, v *viper.Viper, s *settings.Settings) (Inputs, error) {
	if s == nil {
		return Inputs{}, fmt.Errorf("settings are not loaded")
	}

	event, err := deploy.ResolveEvent(ctx, deploy.Event{
		Name:       v.GetString(eventFlag),
		Ref:        v.GetString(refFlag),
		SHA:        v.GetString(shaFlag),
		Repository: v.GetString(repositoryFlag),
	}, h.getenv, h.runner, s.ProjectRoot)
	if err != nil {
		return Inputs{}, err
	}

	repository := v.GetString(repositoryFlag)
	if repository == "" {
		repository = s.Deploy.Repository
	}
	if repository == "" {
		repository = event.Repository
	}

	return Inputs{
		Event:            event,
		ProjectRoot:      s.ProjectRoot,
		SiteDir:          s.SiteDir(),
		ReleaseDir:       s.ReleaseDir(),
		PublishDir:       s.PublishDir(),
		ProductionBranch: s.Deploy.ProductionBranch,
		Repository:       repository,
		JSON:             v.GetBool(jsonFlag),
		DryRun:           v.GetBool(dryRunFlag),
		SkipConfirmation: v.GetBool(settings.Flags.SkipConfirmation.Name),
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

	willPublish, _ := h.inputs.Event.ShouldPublish(h.inputs.ProductionBranch)
	publisher, err := h.publisher(ctx, willPublish)
	if err != nil {
		return err
	}

	if willPublish && !h.inputs.DryRun && !h.inputs.SkipConfirmation && h.interactive {
		ok, err := h.confirm(fmt.Sprintf("Publish %s to %s?", h.inputs.Event.Ref, h.targetName()),
			ui.WithDescription("The hosting target is replaced with the content of the release directory."),
			ui.WithLabels("Publish", "Cancel"))
		if err != nil {
			return fmt.Errorf("failed to get confirmation: %w", err)
		}
		if !ok {
			h.printer.Warning("Deploy canceled")
			return nil
		}
	}

	w := &deploy.Workflow{
		Log:              h.log,
		Runner:           h.runner,
		Builder:          h.builder,
		Publisher:        publisher,
		ProjectRoot:      h.inputs.ProjectRoot,
		SiteDir:          h.inputs.SiteDir,
		ReleaseDir:       h.inputs.ReleaseDir,
		PublishDir:       h.inputs.PublishDir,
		ProductionBranch: h.inputs.ProductionBranch,
		Version:          version.Version,
	}

	hooks := deploy.Hooks{}
	if !h.inputs.JSON {
		hooks.OnStart = func(name string) { h.spinner.Start(fmt.Sprintf("Running %s...", name)) }
		hooks.OnFinish = func(deploy.StepResult) { h.spinner.Stop() }
	}

	report, runErr := w.Run(ctx, h.inputs.Event, hooks)
	if report == nil {
		return runErr
	}

	if h.inputs.JSON {
		out, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
		fmt.Fprintln(h.stdout, string(out))
		return runErr
	}

	h.printer.Print(FormatReport(report))
	switch report.Status {
	case deploy.StatusSucceeded:
		if report.Published != nil {
			h.printer.Success(fmt.Sprintf("Published %d files (%s)", report.Published.Files, ui.FormatBytes(report.Published.Bytes)))
			h.printer.URL(report.Published.Location)
		} else {
			h.printer.Success("Site built, nothing published")
		}
	case deploy.StatusCanceled:
		h.printer.Warning("Deploy canceled")
	default:
		var stepErr *deploy.StepError
		if errors.As(runErr, &stepErr) {
			h.printer.Error(fmt.Sprintf("Step %s failed", stepErr.Step))
		}
	}
	return runErr
}

// publisher returns nil when nothing will be published so that feature branch
// runs need no credentials.
func (h *handler) publisher(ctx context.Context, willPublish bool) (publish.Publisher, error) {
	if h.inputs.DryRun {
		return publish.NewDryRun(h.log), nil
	}
	if !willPublish {
		return nil, nil
	}

	s := h.settings
	dir := s.Deploy.Dir
	if dir != "" {
		dir = s.Abs(dir)
	}
	p, err := h.newPublisher(ctx, publish.Config{
		Target:     s.Deploy.Target,
		Repository: h.inputs.Repository,
		Branch:     s.Deploy.Branch,
		Token:      s.GitHubToken,
		Dir:        dir,
		S3: publish.S3Config{
			Bucket:          s.Deploy.S3.Bucket,
			Prefix:          s.Deploy.S3.Prefix,
			Region:          s.Deploy.S3.Region,
			Endpoint:        s.Deploy.S3.Endpoint,
			PathStyle:       s.Deploy.S3.PathStyle,
			AccessKeyID:     s.S3AccessKeyID,
			SecretAccessKey: s.S3SecretAccessKey,
		},
		Progress: h.progress(),
	}, h.log)
	if err != nil {
		return nil, fmt.Errorf("failed to configure publishing: %w", err)
	}
	return p, nil
}

// progress prints an upload bar every tenth of the files when the spinner
// is not animating.
func (h *handler) progress() publish.Progress {
	if h.interactive || h.inputs.JSON {
		return nil
	}
	last := -1
	return func(done, total int) {
		if tenth := done * 10 / total; tenth != last {
			last = tenth
			fmt.Fprintln(h.stdout, ui.ProgressBar(done, total, progressWidth))
		}
	}
}

func (h *handler) targetName() string {
	d := h.settings.Deploy
	switch d.Target {
	case constants.DeployTargetS3:
		return "s3://" + d.S3.Bucket
	case constants.DeployTargetDir:
		return d.Dir
	}
	return h.inputs.Repository + "@" + d.Branch
}
