package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/2lab-ai/2hal9-demo-sub001/internal/cli"
	"github.com/2lab-ai/2hal9-demo-sub001/internal/presentation/tui"
	"github.com/2lab-ai/2hal9-demo-sub001/pkg/domain"
	"github.com/spf13/cobra"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Play sessions between AI players in parallel",
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
		sessions, _ := cmd.Flags().GetInt("sessions")
		players, _ := cmd.Flags().GetInt("players")
		parallel, _ := cmd.Flags().GetInt("parallel")
		rounds, _ := cmd.Flags().GetInt("rounds")
		providers, _ := cmd.Flags().GetStringSlice("provider")
		timeout, _ := cmd.Flags().GetDuration("turn-timeout")
		asJSON, _ := cmd.Flags().GetBool("json")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		start := time.Now()
		results, err := cli.Simulate(ctx, stack.Engine, cli.SimulateOptions{
			GameType:  domain.GameType(game),
			Sessions:  sessions,
			Players:   players,
			Parallel:  parallel,
			Providers: providers,
			Config:    domain.GameConfig{MaxRounds: rounds, TurnTimeout: timeout},
		})
		if err != nil {
			return err
		}
		logger.Info("simulation finished", "sessions", len(results), "elapsed", time.Since(start))

		if asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(results)
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
	rootCmd.AddCommand(simulateCmd)
	simulateCmd.Flags().StringP("game", "g", "prisoners_dilemma", "Game type")
	simulateCmd.Flags().IntP("sessions", "n", 10, "Number of sessions")
	simulateCmd.Flags().IntP("players", "p", 2, "Players per session")
	simulateCmd.Flags().Int("parallel", 4, "Sessions played at the same time")
	simulateCmd.Flags().Int("rounds", 0, "Rounds per session, 0 for the game default")
	simulateCmd.Flags().StringSlice("provider", nil, "AI providers assigned to seats in turn (default mock)")
	simulateCmd.Flags().Duration("turn-timeout", 0, "Turn timeout, 0 for the game default")
	simulateCmd.Flags().Bool("json", false, "Print results as JSON")
}
