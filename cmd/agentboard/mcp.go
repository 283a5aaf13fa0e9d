package main

import (
	"fmt"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/agentboard/agentboard/internal/config"
	"github.com/agentboard/agentboard/internal/logging"
	"github.com/agentboard/agentboard/internal/mcptools"
	"github.com/agentboard/agentboard/internal/store"
)

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Run the MCP server for AI agents over stdio",
		Long: `Run the Model Context Protocol server on stdin/stdout.

Agents use the MCP tools to plan projects, create tasks and approve work
against the same database the API server uses. Intended to be launched by
an MCP client, not interactively.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath())
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			// stdout belongs to the MCP transport; any log line would
			// corrupt the protocol stream.
			logging.Suppress()

			st, err := store.New(cfg.Database.Path)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer st.Close()

			mcptools.Version = version
			return server.ServeStdio(mcptools.New(st))
		},
	}
}
