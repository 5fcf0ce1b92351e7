package main

import (
	"errors"

	"github.com/spf13/cobra"
)

// daemonCommand exists only to give a clear error to anyone who reaches for
// it out of habit: this cache has no client-server daemon mode. Every
// operation here runs synchronously, invoked directly by the build system
// or an operator (spec.md's Non-goals explicitly exclude a daemon).
var daemonCommand = &cobra.Command{
	Use:    "daemon",
	Short:  "Withdrawn: this cache has no daemon mode",
	Hidden: true,
	Run: mainify(func(_ *cobra.Command, _ []string) error {
		return errors.New("daemon mode has been withdrawn; invoke trim/gc/df directly instead")
	}),
}
