package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/dune-build/dune-cache/pkg/cacheversion"
	"github.com/dune-build/dune-cache/pkg/layout"
	"github.com/dune-build/dune-cache/pkg/logging"
	"github.com/dune-build/dune-cache/pkg/trim"
)

var dfCommand = &cobra.Command{
	Use:   "df",
	Short: "Report how much space the cache is using",
	Args:  disallowArguments,
	Run:   mainify(runDf),
}

func runDf(_ *cobra.Command, _ []string) error {
	root, err := resolveCacheRoot()
	if err != nil {
		return err
	}

	fileSize, err := treeSize(func(v int) string { return layout.FileDir(root, v) }, fileVersionInts())
	if err != nil {
		return fmt.Errorf("unable to measure file store: %w", err)
	}
	valueSize, err := treeSize(func(v int) string { return layout.ValueDir(root, v) }, metadataVersionInts())
	if err != nil {
		return fmt.Errorf("unable to measure value store: %w", err)
	}
	metadataSize, err := treeSize(func(v int) string { return layout.MetadataDir(root, v) }, metadataVersionInts())
	if err != nil {
		return fmt.Errorf("unable to measure metadata store: %w", err)
	}

	logger := logging.RootLogger.Sublogger("df")
	trimmer := trim.NewTrimmer(root, logger)
	overhead, err := trimmer.OverheadSize(context.Background())
	if err != nil {
		return fmt.Errorf("unable to measure broken metadata overhead: %w", err)
	}

	fmt.Fprintf(os.Stdout, "cache root:       %s\n", root)
	fmt.Fprintf(os.Stdout, "file store:       %s\n", humanize.Bytes(fileSize))
	fmt.Fprintf(os.Stdout, "metadata store:   %s\n", humanize.Bytes(metadataSize))
	fmt.Fprintf(os.Stdout, "value store:      %s\n", humanize.Bytes(valueSize))
	fmt.Fprintf(os.Stdout, "broken overhead:  %s\n", humanize.Bytes(overhead))
	if overhead > 0 {
		warning("broken metadata records are present; run 'dune-cache gc' to remove them")
	}
	return nil
}

func fileVersionInts() []int {
	var ints []int
	for _, v := range cacheversion.SupportedFileVersions() {
		ints = append(ints, v.Int())
	}
	return ints
}

func metadataVersionInts() []int {
	var ints []int
	for _, v := range cacheversion.SupportedMetadataVersions() {
		ints = append(ints, v.Int())
	}
	return ints
}

func treeSize(dirForVersion func(int) string, versions []int) (uint64, error) {
	var total uint64
	for _, v := range versions {
		dir := dirForVersion(v)
		entries, err := layout.ListEntries(dir)
		if err != nil {
			return 0, err
		}
		for _, hex := range entries {
			path, err := layout.PathOf(dir, hex)
			if err != nil {
				continue
			}
			info, err := os.Stat(path)
			if err != nil {
				continue
			}
			total += uint64(info.Size())
		}
	}
	return total, nil
}
