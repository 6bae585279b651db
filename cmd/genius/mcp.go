package main

import (
	"log"
	"os"

	"github.com/2lab-ai/2hal9-demo-sub001/internal/cli"
	"github.com/2lab-ai/2hal9-demo-sub001/pkg/adapters/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server on stdio",
	Long: `Starts the engine as an MCP Server over Standard Input/Output.
This allows AI agents to create, join and play sessions as tools.`,
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

		// Ensure logs don't corrupt JSON-RPC on Stdout
		log.SetOutput(os.Stderr)
		logger.Info("starting MCP server (stdio)")
		return mcp.NewServer(stack.Engine, mcp.WithLogger(logger)).ServeStdio()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
