package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/hackchain/scriptvm/pkg/pool"
)

// newWorkerCmd builds the hidden subprocess entrypoint: cmd/scriptvm
// pool re-execs the same binary with "worker" as its argument, and this
// is the loop that re-exec runs. Never invoked directly by a user.
func newWorkerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:    "worker",
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return pool.RunWorkerLoop(os.Stdin, os.Stdout)
		},
	}
	return cmd
}
