package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	genius "github.com/2lab-ai/2hal9-demo-sub001"
	"github.com/2lab-ai/2hal9-demo-sub001/internal/cli"
	"github.com/2lab-ai/2hal9-demo-sub001/internal/presentation/tui"
	"github.com/2lab-ai/2hal9-demo-sub001/pkg/domain"
	"github.com/spf13/cobra"
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play a session against AI players in the terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		stack, err := cli.Build(cfg, logger)
		if err != nil {
			return err
		}
		defer stack.Close()

		game, _ := cmd.Flags().GetString("game")
		name, _ := cmd.Flags().GetString("name")
		bots, _ := cmd.Flags().GetInt("bots")
		provider, _ := cmd.Flags().GetString("provider")
		rounds, _ := cmd.Flags().GetInt("rounds")
		headless, _ := cmd.Flags().GetBool("headless")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		snap, err := stack.Engine.CreateSession(ctx, domain.GameType(game), domain.GameConfig{MaxRounds: rounds})
		if err != nil {
			return err
		}
		players := []domain.Player{{ID: name, Source: domain.SourceHuman}}
		for i := range bots {
			players = append(players, domain.Player{
				ID:       fmt.Sprintf("bot-%d", i+1),
				Source:   domain.SourceAI,
				Provider: provider,
			})
		}
		if _, err := stack.Engine.StartSession(ctx, snap.SessionID, players); err != nil {
			return err
		}

		runner := genius.NewRunner(cmd.InOrStdin(), cmd.OutOrStdout())
		runner.Headless = headless
		if !headless {
			tui.PrintBanner(cmd.OutOrStdout(), genius.Version)
			runner.Renderer = tui.NewRenderer()
		}
		res, err := runner.Run(ctx, stack.Engine, snap.SessionID, name)
		if err != nil {
			return err
		}
		if res != nil && !headless {
			if board := tui.Scoreboard(res); board != "" {
				out, _ := runner.Renderer(board)
				fmt.Fprint(cmd.OutOrStdout(), out)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(playCmd)
	playCmd.Flags().StringP("game", "g", "prisoners_dilemma", "Game type")
	playCmd.Flags().String("name", "you", "Your player id")
	playCmd.Flags().IntP("bots", "b", 1, "Number of AI opponents")
	playCmd.Flags().String("provider", "", "AI provider for the opponents (default mock)")
	playCmd.Flags().Int("rounds", 0, "Rounds, 0 for the game default")
	playCmd.Flags().Bool("headless", false, "Plain output without banner or markdown rendering")
}
