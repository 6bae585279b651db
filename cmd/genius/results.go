package main

import (
	"context"
	"fmt"

	"github.com/2lab-ai/2hal9-demo-sub001/internal/presentation/tui"
	"github.com/2lab-ai/2hal9-demo-sub001/pkg/adapters/sqlite"
	"github.com/2lab-ai/2hal9-demo-sub001/pkg/domain"
	"github.com/spf13/cobra"
)

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Show archived game results from the SQLite store",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := setup(cmd)
		if err != nil {
			return err
		}
		if cfg.SQLitePath == "" {
			return domain.ConfigError("GENIUS_SQLITE_PATH is not set")
		}
		store, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return err
		}
		defer store.Close()

		game, _ := cmd.Flags().GetString("game")
		limit, _ := cmd.Flags().GetInt("limit")
		results, err := store.Results(context.Background(), domain.GameType(game), limit)
		if err != nil {
			return err
		}
		out, err := tui.NewRenderer()(tui.ResultsTable(results))
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(resultsCmd)
	resultsCmd.Flags().StringP("game", "g", "", "Only show one game type")
	resultsCmd.Flags().IntP("limit", "l", 20, "Maximum number of results")
}
