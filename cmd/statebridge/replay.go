package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aretw0/statebridge/internal/cli"
	"github.com/aretw0/statebridge/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var replayCmd = &cobra.Command{
	Use:   "replay [script.yaml]",
	Short: "Replay a scripted sequence of actions",
	Long: `Loads the scene, dispatches every step of a YAML script and prints each state update.
Steps may wait before dispatching and assert values of the resulting state:

  steps:
    - action: addScore
      payload: 10
      wait: 100ms
      expect:
        score: 10

Use "-" to read the script from stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		keepGoing, _ := cmd.Flags().GetBool("keep-going")
		showState, _ := cmd.Flags().GetBool("state")

		script, err := cli.LoadScript(args[0])
		if err != nil {
			return err
		}

		rt, err := cli.NewRuntime(cfg, cli.Options{Logger: logger})
		if err != nil {
			return err
		}

		ctx := cli.NewSignalContext(context.Background())
		defer ctx.Cancel()

		if err := rt.Start(ctx); err != nil {
			return err
		}
		defer rt.Stop(context.Background())

		out := cmd.OutOrStdout()
		report, err := cli.Replay(ctx, rt, script, cli.ReplayOptions{
			Printer:   tui.NewEventPrinter(out, showState),
			KeepGoing: keepGoing,
		})

		final, _ := json.MarshalIndent(report.Final, "", "  ")
		fmt.Fprintf(out, "\n%d dispatched, %d failed\n%s\n", len(report.Dispatched), report.Failed, final)
		return err
	},
}

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().BoolP("keep-going", "k", false, "Continue after a failed step")
	replayCmd.Flags().Bool("state", false, "Print the state after every update")
}
