package main

import (
	"fmt"

	"github.com/2lab-ai/2hal9-demo-sub001/internal/presentation/tui"
	"github.com/2lab-ai/2hal9-demo-sub001/pkg/domain"
	"github.com/2lab-ai/2hal9-demo-sub001/pkg/games"
	"github.com/spf13/cobra"
)

var gamesCmd = &cobra.Command{
	Use:   "games",
	Short: "List the playable game types",
	RunE: func(cmd *cobra.Command, args []string) error {
		catalog := games.DefaultCatalog()
		defs := catalog.List()
		if cat, _ := cmd.Flags().GetString("category"); cat != "" {
			defs = catalog.ByCategory(domain.Category(cat))
		}
		out, err := tui.NewRenderer()(tui.GamesTable(defs))
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(gamesCmd)
	gamesCmd.Flags().StringP("category", "c", "", "Only list one category (strategic, collective, survival, trust)")
}
