// Command dune-cache is the CLI front end for the content-addressed build
// cache: it resolves the cache root, wires up the store and trimmer, and
// exposes trim, gc, and df subcommands (spec §7).
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// warning prints a warning message to standard error.
func warning(message string) {
	fmt.Fprintln(color.Error, color.YellowString("Warning:"), message)
}

// reportError prints an error message to standard error.
func reportError(err error) {
	fmt.Fprintln(os.Stderr, "Error:", err)
}

// fatal prints an error message to standard error and terminates the
// process with an error exit code.
func fatal(err error) {
	reportError(err)
	os.Exit(1)
}

// mainify wraps an error-returning Cobra entry point (so it can rely on
// defer-based cleanup before the process terminates) into the signature
// cobra.Command.Run expects.
func mainify(entry func(*cobra.Command, []string) error) func(*cobra.Command, []string) {
	return func(command *cobra.Command, arguments []string) {
		if err := entry(command, arguments); err != nil {
			fatal(err)
		}
	}
}

// disallowArguments is a Cobra arguments validator that rejects positional
// arguments with a clearer message than cobra.NoArgs gives.
func disallowArguments(_ *cobra.Command, arguments []string) error {
	if len(arguments) > 0 {
		return fmt.Errorf("command does not accept arguments")
	}
	return nil
}

var rootCommand = &cobra.Command{
	Use:          "dune-cache",
	Short:        "Inspect and maintain the shared build cache",
	SilenceUsage: true,
}

func init() {
	rootCommand.AddCommand(trimCommand)
	rootCommand.AddCommand(gcCommand)
	rootCommand.AddCommand(dfCommand)
	rootCommand.AddCommand(daemonCommand)
}

func main() {
	if err := rootCommand.Execute(); err != nil {
		fatal(err)
	}
}
