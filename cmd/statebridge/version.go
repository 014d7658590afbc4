package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/statebridge"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of statebridge",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "statebridge version %s\n", strings.TrimSpace(statebridge.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
