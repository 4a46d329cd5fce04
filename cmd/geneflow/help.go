package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/geneflow-org/geneflow/internal/gfyaml"
)

// createHelpWorkflowCommand implements `geneflow help <workflow>`: it
// replaces cobra's default help command with one that pretty-prints a
// workflow definition's inputs/parameters/steps.
func createHelpWorkflowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "help <workflow>",
		Short: "Print a workflow's inputs, parameters, and steps.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wf, err := gfyaml.LoadWorkflow(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%s)\n", wf.Name, wf.Version)
			if wf.Description != "" {
				fmt.Fprintf(out, "  %s\n", wf.Description)
			}

			fmt.Fprintln(out, "\ninputs:")
			for name, p := range wf.Inputs {
				fmt.Fprintf(out, "  %-20s %-10s %s\n", name, p.Type, p.Description)
			}

			fmt.Fprintln(out, "\nparameters:")
			for name, p := range wf.Parameters {
				fmt.Fprintf(out, "  %-20s %-10s %s\n", name, p.Type, p.Description)
			}

			fmt.Fprintln(out, "\nsteps:")
			for name, s := range wf.Steps {
				fmt.Fprintf(out, "  %-20s app=%s depend=%v\n", name, s.AppName, s.Depend)
			}
			return nil
		},
	}
}
