package main

import (
	"fmt"

	"github.com/aretw0/statebridge/internal/presentation/graph"
	"github.com/aretw0/statebridge/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var actionsCmd = &cobra.Command{
	Use:   "actions",
	Short: "List the declared actions",
	Long:  `Prints the actions of the configured system as a table, or as a Mermaid flowchart with --mermaid.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		specs, err := cfg.System.Specs()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if mermaid, _ := cmd.Flags().GetBool("mermaid"); mermaid {
			fmt.Fprint(out, graph.GenerateMermaid(cfg.System.Name, specs, nil))
			return nil
		}

		md := tui.ActionsMarkdown(cfg.System.Name, specs)
		if !tui.IsTerminal(out) {
			fmt.Fprint(out, md)
			return nil
		}
		render, err := tui.NewRenderer(tui.Width(out, 100))
		if err != nil {
			return err
		}
		rendered, err := render(md)
		if err != nil {
			return err
		}
		fmt.Fprint(out, rendered)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(actionsCmd)
	actionsCmd.Flags().Bool("mermaid", false, "Print a Mermaid flowchart instead of a table")
}
