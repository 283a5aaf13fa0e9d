package main

import (
	"context"
	"fmt"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentboard/agentboard/internal/autopilot"
	"github.com/agentboard/agentboard/internal/config"
	"github.com/agentboard/agentboard/internal/logging"
	"github.com/agentboard/agentboard/internal/realtime"
	"github.com/agentboard/agentboard/internal/server"
	"github.com/agentboard/agentboard/internal/store"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the Agentboard API server",
		Long: `Run the HTTP and WebSocket API server together with the autopilot loop.

The server binds to the configured host and port and shuts down gracefully
on SIGINT or SIGTERM. Autopilot starts disabled; enable it through
POST /ui/autopilot/config.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath())
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if err := logging.Init(cfg.Logging); err != nil {
				return fmt.Errorf("failed to init logging: %w", err)
			}

			st, err := store.New(cfg.Database.Path)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer st.Close()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			registry := realtime.NewRegistry()
			cell := autopilot.NewConfigCell()
			runner := autopilot.NewRunner(st, cell, registry,
				time.Duration(cfg.Autopilot.IntervalSeconds)*time.Second)

			var wg sync.WaitGroup
			wg.Add(1)
			go func() {
				defer wg.Done()
				runner.Run(ctx)
			}()

			srv := server.New(cfg.Server, st, registry, cell)
			err = srv.Start(ctx)

			// The loop stops on the same context; wait so in-flight
			// iterations commit before the store closes.
			wg.Wait()
			return err
		},
	}
}
