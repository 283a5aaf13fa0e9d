package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentboard/agentboard/internal/config"
	"github.com/agentboard/agentboard/internal/store"
)

func newInitDemoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init-demo",
		Short: "Seed the database with a demo agent and project",
		Long: `Seed the configured database with the Antigravity manager agent and an
approved demo project, for trying out the autopilot and MCP tools. Safe to
run repeatedly: existing demo data is left alone.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath())
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			st, err := store.New(cfg.Database.Path)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer st.Close()

			ctx := context.Background()

			agent, err := findEntityByName(ctx, st, "Antigravity")
			if err != nil {
				return err
			}
			if agent == nil {
				agent, err = st.RegisterAgent(ctx, "Antigravity", "", "AI, Management, Heavy Lifting")
				if err != nil {
					return fmt.Errorf("failed to create demo agent: %w", err)
				}
				fmt.Println("Antigravity added")
			} else {
				fmt.Println("Antigravity already exists")
			}

			project, err := findProjectByName(ctx, st, "Heavy Lifting Project")
			if err != nil {
				return err
			}
			if project == nil {
				project, err = st.CreateProject(ctx, "Heavy Lifting Project",
					"Demonstrating Antigravity manager features and heavy lifting mode.", agent.ID)
				if err != nil {
					return fmt.Errorf("failed to create demo project: %w", err)
				}
				approved := store.ApprovalApproved
				if _, err := st.UpdateProject(ctx, project.ID, store.ProjectUpdate{ApprovalStatus: &approved}); err != nil {
					return fmt.Errorf("failed to approve demo project: %w", err)
				}
				fmt.Println("Demo project added")
			} else {
				fmt.Println("Demo project already exists")
			}

			fmt.Printf("Manager entity ID: %d (use it in POST /ui/autopilot/config)\n", agent.ID)
			return nil
		},
	}
}

func findEntityByName(ctx context.Context, st *store.Store, name string) (*store.Entity, error) {
	entities, err := st.ListEntities(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("failed to list entities: %w", err)
	}
	for _, e := range entities {
		if e.Name == name {
			return e, nil
		}
	}
	return nil, nil
}

func findProjectByName(ctx context.Context, st *store.Store, name string) (*store.Project, error) {
	projects, err := st.ListProjects(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	for _, p := range projects {
		if p.Name == name {
			return p, nil
		}
	}
	return nil, nil
}
