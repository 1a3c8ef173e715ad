package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/jsonstash/jsonstash/pkg/logger"
	"github.com/spf13/cobra"
)

// Exit codes returned by Run.
const (
	ExitOK        = 0
	ExitDifferent = 1
	ExitError     = 2
)

// errDifferent is returned by diff when the documents are not equal.
var errDifferent = errors.New("documents differ")

// Run executes stashctl with args and returns the process exit code.
func Run(ctx context.Context, args []string, out, errOut io.Writer) int {
	provider := &AppProvider{Out: out, Err: errOut}
	root := newRootCmd(provider)
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(errOut)

	err := root.ExecuteContext(ctx)
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, errDifferent):
		return ExitDifferent
	default:
		fmt.Fprintln(errOut, "stashctl:", err)
		return ExitError
	}
}

// newRootCmd creates the root command with all subcommands.
func newRootCmd(provider *AppProvider) *cobra.Command {
	var verbose bool
	rootCmd := &cobra.Command{
		Use:   "stashctl",
		Short: "Inspect a jsonstash store directory",
		Long: `stashctl reads the one-file-per-key directory written by the jsonstash
server. It never modifies the directory; unreadable files are reported and
skipped.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				logger.Init("debug")
			} else {
				logger.Init("error")
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&provider.Dir, "dir", "routes", "Store directory")
	rootCmd.PersistentFlags().StringVar(&provider.Ext, "ext", ".json", "Document file extension")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(newKeysCmd(provider))
	rootCmd.AddCommand(newShowCmd(provider))
	rootCmd.AddCommand(newDiffCmd(provider))
	return rootCmd
}
