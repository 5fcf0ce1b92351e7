package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/dune-build/dune-cache/pkg/logging"
	"github.com/dune-build/dune-cache/pkg/trim"
)

var trimConfiguration struct {
	goalSize  string
	goalFreed string
}

var trimCommand = &cobra.Command{
	Use:   "trim",
	Short: "Evict unused cache entries down to a size or freed-space goal",
	Args:  disallowArguments,
	Run:   mainify(runTrim),
}

func init() {
	flags := trimCommand.Flags()
	flags.StringVar(&trimConfiguration.goalSize, "goal-size", "", "shrink the file store to at most this size (e.g. \"5GB\")")
	flags.StringVar(&trimConfiguration.goalFreed, "goal-freed", "", "free at least this much space (e.g. \"500MB\")")
}

func runTrim(_ *cobra.Command, _ []string) error {
	if (trimConfiguration.goalSize == "") == (trimConfiguration.goalFreed == "") {
		return fmt.Errorf("exactly one of --goal-size or --goal-freed must be specified")
	}

	root, err := resolveCacheRoot()
	if err != nil {
		return err
	}

	var goal trim.Goal
	if trimConfiguration.goalSize != "" {
		bytes, err := humanize.ParseBytes(trimConfiguration.goalSize)
		if err != nil {
			return fmt.Errorf("invalid --goal-size: %w", err)
		}
		goal = trim.SizeGoal(bytes)
	} else {
		bytes, err := humanize.ParseBytes(trimConfiguration.goalFreed)
		if err != nil {
			return fmt.Errorf("invalid --goal-freed: %w", err)
		}
		goal = trim.FreedGoal(bytes)
	}

	logger := logging.RootLogger.Sublogger("trim")
	trimmer := trim.NewTrimmer(root, logger)

	report, err := trimmer.Trim(context.Background(), goal)
	if err != nil {
		return fmt.Errorf("trim failed: %w", err)
	}

	fmt.Fprintf(os.Stdout, "removed %d broken metadata record(s) (%s)\n",
		report.BrokenMetadataRemoved, humanize.Bytes(report.BrokenMetadataBytes))
	fmt.Fprintf(os.Stdout, "evicted %d unused file(s), freeing %s\n",
		report.FilesEvicted, humanize.Bytes(report.BytesFreed))
	return nil
}
