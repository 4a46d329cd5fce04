package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// createInstallWorkflowCommand stubs `geneflow install-workflow`:
// git-clone-based workflow package installation is not supported by
// this build, but the command exists and fails clearly rather than
// being silently absent.
func createInstallWorkflowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "install-workflow <git-url>",
		Short: "Install a workflow package (not implemented).",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return fmt.Errorf("geneflow: install-workflow is not implemented")
		},
	}
}
