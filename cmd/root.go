package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/bigcalc/bigcalc/cmd/ci"
	"github.com/bigcalc/bigcalc/cmd/deploy"
	"github.com/bigcalc/bigcalc/cmd/eval"
	"github.com/bigcalc/bigcalc/cmd/repl"
	"github.com/bigcalc/bigcalc/cmd/serve"
	"github.com/bigcalc/bigcalc/cmd/site"
	"github.com/bigcalc/bigcalc/cmd/version"
	"github.com/bigcalc/bigcalc/internal/constants"
	"github.com/bigcalc/bigcalc/internal/logger"
	bcruntime "github.com/bigcalc/bigcalc/internal/runtime"
	"github.com/bigcalc/bigcalc/internal/settings"
	"github.com/bigcalc/bigcalc/internal/update"
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = newRootCommand()

func Execute() {
	err := RootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootLogger := createLogger()
	rootViper := createViper()
	runtimeContext := bcruntime.NewContext(rootLogger, rootViper)

	helpRunE := func(cmd *cobra.Command, args []string) error {
		err := cmd.Help()
		if err != nil {
			return fmt.Errorf("fail to show help: %w", err)
		}
		return nil
	}

	rootCmd := &cobra.Command{
		Use:   constants.AppName,
		Short: "Arbitrary precision integer calculator",
		Long: `A big integer calculator with a terminal REPL, a WebAssembly front end, and
the tooling to build, serve and publish that front end as a static site.`,
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		RunE:              helpRunE,

		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			log := runtimeContext.Logger
			v := runtimeContext.Viper

			if err := v.BindPFlags(cmd.Flags()); err != nil {
				return fmt.Errorf("failed to bind flags: %w", err)
			}

			if verbose := v.GetBool(settings.Flags.Verbose.Name); verbose {
				newLogger := log.Level(zerolog.DebugLevel)
				runtimeContext.Logger = &newLogger
			}

			if isLoadSettings(cmd) {
				if err := runtimeContext.AttachSettings(); err != nil {
					return err
				}
			}
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if !isUpdateCheck(cmd) || update.Disabled(version.Version) {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			update.NewChecker(runtimeContext.Logger).Check(ctx, version.Version)
		},
	}

	cobra.AddTemplateFunc("wrappedFlagUsages", func(fs *pflag.FlagSet) string {
		// 100 = wrap width
		return strings.TrimRight(fs.FlagUsagesWrapped(100), "\n")
	})

	rootCmd.SetHelpTemplate(`
{{- with (or .Long .Short)}}{{.}}{{end}}

Usage:
{{- if .Runnable}}
  {{.UseLine}}
{{- else if .HasAvailableSubCommands}}
  {{.CommandPath}} [command]
{{- end}}

{{- if .HasAvailableSubCommands}}
{{- range $grp := .Groups}}

{{printf "%s:" $grp.Title}}
  {{- range $.Commands}}
    {{- if (and (not .Hidden) (.IsAvailableCommand) (eq .GroupID $grp.ID))}}
  {{rpad .Name .NamePadding}}  {{.Short}}
    {{- end}}
  {{- end}}
{{- end}}
{{- range .Commands}}
  {{- if (and (not .Hidden) (.IsAvailableCommand) (eq .GroupID ""))}}
  {{rpad .Name .NamePadding}}  {{.Short}}
  {{- end}}
{{- end}}
{{- end}}

{{- if .HasExample}}

Examples:
{{.Example}}
{{- end }}

{{- $local := (wrappedFlagUsages .LocalFlags) -}}
{{- if $local }}

Flags:
{{$local}}
{{- end }}

{{- $inherited := (wrappedFlagUsages .InheritedFlags) -}}
{{- if $inherited }}

Global Flags:
{{$inherited}}
{{- end }}

{{- if .HasAvailableSubCommands }}

Use "{{.CommandPath}} [command] --help" for more information about a command.
{{- end }}
`)

	// env file flag is present for every subcommand
	rootCmd.PersistentFlags().StringP(
		settings.Flags.CliEnvFile.Name,
		settings.Flags.CliEnvFile.Short,
		constants.DefaultEnvFileName,
		fmt.Sprintf("Path to %s file which contains sensitive info", constants.DefaultEnvFileName),
	)

	// project root path flag is present for every subcommand
	rootCmd.PersistentFlags().StringP(
		settings.Flags.ProjectRoot.Name,
		settings.Flags.ProjectRoot.Short,
		"",
		fmt.Sprintf("Path to the project root (default: the directory holding %s)", constants.DefaultProjectSettingsFileName),
	)

	// verbose flag is present in every subcommand
	rootCmd.PersistentFlags().BoolP(
		settings.Flags.Verbose.Name,
		settings.Flags.Verbose.Short,
		false,
		"Run command in VERBOSE mode",
	)

	rootCmd.PersistentFlags().Bool(
		settings.Flags.NonInteractive.Name,
		false,
		"Never prompt; fail where a prompt would be needed",
	)
	rootCmd.CompletionOptions.HiddenDefaultCmd = true

	replCmd := repl.New(runtimeContext)
	evalCmd := eval.New(runtimeContext)
	siteCmd := site.New(runtimeContext)
	serveCmd := serve.New(runtimeContext)
	deployCmd := deploy.New(runtimeContext)
	ciCmd := ci.New(runtimeContext)
	versionCmd := version.New(runtimeContext)

	siteCmd.RunE = helpRunE
	ciCmd.RunE = helpRunE

	// Define groups (order controls display order)
	rootCmd.AddGroup(&cobra.Group{ID: "calculator", Title: "Calculator"})
	rootCmd.AddGroup(&cobra.Group{ID: "site", Title: "Site"})

	replCmd.GroupID = "calculator"
	evalCmd.GroupID = "calculator"

	siteCmd.GroupID = "site"
	serveCmd.GroupID = "site"
	deployCmd.GroupID = "site"
	ciCmd.GroupID = "site"

	rootCmd.AddCommand(
		replCmd,
		evalCmd,
		siteCmd,
		serveCmd,
		deployCmd,
		ciCmd,
		versionCmd,
	)

	return rootCmd
}

// isLoadSettings reports whether cmd reads the project settings.
func isLoadSettings(cmd *cobra.Command) bool {
	var includedCommands = map[string]struct{}{
		"build":  {},
		"serve":  {},
		"deploy": {},
		"init":   {},
		"eval":   {},
		"repl":   {},
	}

	_, exists := includedCommands[cmd.Name()]
	return exists
}

func isUpdateCheck(cmd *cobra.Command) bool {
	var excludedCommands = map[string]struct{}{
		"bash":       {},
		"fish":       {},
		"powershell": {},
		"zsh":        {},
		"help":       {},
		"repl":       {},
		"serve":      {},
	}

	_, exists := excludedCommands[cmd.Name()]
	return !exists
}

func createLogger() *zerolog.Logger {
	return logger.NewConsoleLogger()
}

func createViper() *viper.Viper {
	return viper.New() //nolint:forbidigo
}
