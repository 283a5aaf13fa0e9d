package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version   = "0.1.0"
	buildTime = "unknown"
)

var cfgFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "agentboard",
		Short: "Kanban project management for humans and AI agents",
		Long: `Agentboard is a kanban board where humans and AI agents work side by side:
agents plan and pick up tasks over MCP, humans follow along over the HTTP API
and real-time WebSocket updates, and the autopilot keeps unclaimed work moving.`,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default agentboard.yaml)")

	rootCmd.AddCommand(
		newServeCmd(),
		newMCPCmd(),
		newInitDemoCmd(),
		newVersionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show Agentboard version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Agentboard %s\n", version)
			if buildTime != "unknown" {
				fmt.Printf("Built: %s\n", buildTime)
			}
		},
	}
}

func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return "agentboard.yaml"
}
