package serve

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bigcalc/bigcalc/internal/constants"
	"github.com/bigcalc/bigcalc/internal/runtime"
	"github.com/bigcalc/bigcalc/internal/server"
	"github.com/bigcalc/bigcalc/internal/session"
	"github.com/bigcalc/bigcalc/internal/settings"
	"github.com/bigcalc/bigcalc/internal/site"
	"github.com/bigcalc/bigcalc/internal/ui"
	"github.com/bigcalc/bigcalc/internal/validation"
)

const (
	addrFlag   = "addr"
	dirFlag    = "dir"
	originFlag = "allow-origin"
)

type Inputs struct {
	Addr       string   `validate:"required,hostname_port" cli:"--addr"`
	ReleaseDir string   `validate:"omitempty,dir" cli:"--dir"`
	Origins    []string `validate:"dive,required" cli:"--allow-origin"`

	MaxResultBits uint64
}

func New(runtimeContext *runtime.Context) *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serves the release directory and a calculator API",
		Long: `Starts an HTTP server that serves the built site and evaluates expressions
over JSON (POST /api/eval) and websockets (/ws). Stops on SIGINT or SIGTERM.`,
		Example: `bigcalc serve
bigcalc serve --addr 0.0.0.0:9000 --dir ./public`,
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

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return h.Execute(ctx)
		},
	}

	serveCmd.Flags().String(addrFlag, "", fmt.Sprintf("Listen address (default %q, or server.addr)", constants.DefaultServerAddr))
	serveCmd.Flags().String(dirFlag, "", "Directory to serve (default: the release directory)")
	serveCmd.Flags().StringSlice(originFlag, nil, "Allowed CORS and websocket origins (default: any)")

	return serveCmd
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
	if s == nil {
		return Inputs{}, fmt.Errorf("settings are not loaded")
	}
	inputs := Inputs{
		Addr:       v.GetString(addrFlag),
		ReleaseDir: v.GetString(dirFlag),
		Origins:    v.GetStringSlice(originFlag),

		MaxResultBits: s.MaxResultBits(),
	}
	if inputs.Addr == "" {
		inputs.Addr = s.Server.Addr
	}
	if inputs.ReleaseDir == "" {
		inputs.ReleaseDir = s.ReleaseDir()
		if _, err := os.Stat(inputs.ReleaseDir); err != nil {
			h.log.Warn().Str("dir", inputs.ReleaseDir).Msg("Release directory not found, serving the API only. Run `bigcalc site build` first")
			inputs.ReleaseDir = ""
		}
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

func (h *handler) Execute(ctx context.Context) error {
	if !h.validated {
		return fmt.Errorf("handler inputs not validated")
	}

	srv := server.New(server.Config{
		Addr:           h.inputs.Addr,
		ReleaseDir:     h.inputs.ReleaseDir,
		Log:            h.log,
		Sessions:       session.NewStore(constants.DefaultSessionIdleTimeout, h.inputs.MaxResultBits),
		AllowedOrigins: h.inputs.Origins,
		MaxResultBits:  h.inputs.MaxResultBits,
	})

	h.printer.Success("Serving on " + ui.RenderURL("http://"+h.inputs.Addr))
	if h.inputs.ReleaseDir != "" {
		h.printer.Dim(describeRelease(h.inputs.ReleaseDir))
	}
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// describeRelease names dir together with what its manifest says about the
// build, when there is one.
func describeRelease(dir string) string {
	m, err := site.ReadManifest(dir)
	if err != nil {
		return dir
	}
	desc := fmt.Sprintf("%s: %d files, %s", dir, len(m.Files), ui.FormatBytes(m.TotalSize()))
	if m.Version != "" {
		desc += ", built by bigcalc " + m.Version
	}
	return desc
}
