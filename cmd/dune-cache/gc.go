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

var gcCommand = &cobra.Command{
	Use:   "gc",
	Short: "Remove broken metadata records without evicting live entries",
	Args:  disallowArguments,
	Run:   mainify(runGarbageCollect),
}

func runGarbageCollect(_ *cobra.Command, _ []string) error {
	root, err := resolveCacheRoot()
	if err != nil {
		return err
	}

	logger := logging.RootLogger.Sublogger("gc")
	trimmer := trim.NewTrimmer(root, logger)

	report, err := trimmer.GarbageCollect(context.Background())
	if err != nil {
		return fmt.Errorf("garbage collection failed: %w", err)
	}

	fmt.Fprintf(os.Stdout, "removed %d broken metadata record(s) (%s)\n",
		report.BrokenMetadataRemoved, humanize.Bytes(report.BrokenMetadataBytes))
	return nil
}
