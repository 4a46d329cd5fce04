// Command geneflow is the thin CLI entry point over the runtime
// package: argument parsing and wiring only, no engine logic.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

var cfgFile string

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "geneflow",
		Short:         "Run declarative batch workflows across local, HPC, and remote-REST backends.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $HOME/.geneflow/config.yaml)")

	root.AddCommand(createRunCommand())
	root.AddCommand(createHelpWorkflowCommand())
	root.AddCommand(createInstallWorkflowCommand())
	return root
}
