package main

import (
	"fmt"
	"strings"

	genius "github.com/2lab-ai/2hal9-demo-sub001"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of genius",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "genius version %s\n", strings.TrimSpace(genius.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
