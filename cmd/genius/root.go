package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/2lab-ai/2hal9-demo-sub001/internal/config"
	"github.com/2lab-ai/2hal9-demo-sub001/internal/logging"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "genius",
	Short: "Genius orchestrates multiplayer game sessions between humans and AI",
	Long: `Genius runs many concurrent game sessions (prisoner's dilemma, liar's dice,
minority game and more) where human and AI players take turns under
deadlines. Settings are read from GENIUS_* environment variables and an
optional .env file.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("env-file", ".env", "File with GENIUS_* variables, ignored when missing")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error); overrides GENIUS_LOG_LEVEL")
	rootCmd.PersistentFlags().String("log-format", "", "Log format (text, json, auto); overrides GENIUS_LOG_FORMAT")
	rootCmd.PersistentFlags().String("games-file", "", "YAML or JSON file with per-game settings; overrides GENIUS_GAMES_FILE")
	rootCmd.PersistentFlags().String("bots-file", "", "YAML or JSON file declaring external bot programs; overrides GENIUS_BOTS_FILE")
}

// setup loads the environment and returns the configuration with a logger
// writing to stderr.
func setup(cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return config.Config{}, nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.LogLevel = v
	}
	if v, _ := cmd.Flags().GetString("log-format"); v != "" {
		cfg.LogFormat = v
	}
	if v, _ := cmd.Flags().GetString("games-file"); v != "" {
		cfg.GamesFile = v
	}
	if v, _ := cmd.Flags().GetString("bots-file"); v != "" {
		cfg.BotsFile = v
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logging.New(level, cfg.LogFormat), nil
}
