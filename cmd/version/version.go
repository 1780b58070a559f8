package version

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bigcalc/bigcalc/internal/runtime"
)

// Version is set at link time with -ldflags "-X .../cmd/version.Version=v1.2.3".
var Version = "development"

func New(runtimeContext *runtime.Context) *cobra.Command {
	var versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the bigcalc version",
		Long:  "This command prints the current version of bigcalc",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(runtimeContext.Stdout, "bigcalc", Version)
			return err
		},
	}

	return versionCmd
}
