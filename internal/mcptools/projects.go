package mcptools

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/agentboard/agentboard/internal/store"
)

// CreateProjectTool handles the create_project MCP tool: a project with its
// default stages and, optionally, an initial batch of tasks.
type CreateProjectTool struct {
	store *store.Store
}

// NewCreateProjectTool creates a CreateProjectTool.
func NewCreateProjectTool(st *store.Store) *CreateProjectTool {
	return &CreateProjectTool{store: st}
}

// Definition returns the MCP tool definition for create_project.
func (t *CreateProjectTool) Definition() mcp.Tool {
	return mcp.NewTool("create_project",
		mcp.WithDescription("Create a new project with tasks and stages"),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Project name"),
		),
		mcp.WithString("description",
			mcp.Description("Project description"),
		),
		mcp.WithArray("tasks",
			mcp.Description("List of tasks for the project, each with title, description, required_skills and priority"),
		),
	)
}

// Handle processes the create_project tool call. New projects start pending
// approval; initial tasks land in the To Do stage.
func (t *CreateProjectTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := req.GetString("name", "")
	if name == "" {
		return mcp.NewToolResultError("'name' is required"), nil
	}
	description := req.GetString("description", "")

	project, err := t.store.CreateProject(ctx, name, description, 0)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("creating project: %v", err)), nil
	}

	stages, err := t.store.ListStages(ctx, project.ID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("loading stages: %v", err)), nil
	}
	todoStage := defaultTaskStage(stages)

	created := 0
	if rawTasks, ok := req.GetArguments()["tasks"].([]any); ok {
		for _, raw := range rawTasks {
			task, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			title, _ := task["title"].(string)
			if title == "" {
				continue
			}
			tc := store.TaskCreate{
				Title:     title,
				ProjectID: project.ID,
				StageID:   todoStage,
			}
			if d, ok := task["description"].(string); ok {
				tc.Description = d
			}
			if s, ok := task["required_skills"].(string); ok {
				tc.RequiredSkills = s
			}
			if p, ok := task["priority"].(float64); ok {
				tc.Priority = int(p)
			}
			if _, err := t.store.CreateTask(ctx, tc); err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("creating task %q: %v", title, err)), nil
			}
			created++
		}
	}

	return jsonResult(map[string]any{
		"success":    true,
		"project_id": project.ID,
		"message":    fmt.Sprintf("Project '%s' created successfully", name),
		"stages":     len(stages),
		"tasks":      created,
	}), nil
}

// defaultTaskStage picks where new tasks land: the To Do column (second
// stage) when present, otherwise the first stage.
func defaultTaskStage(stages []*store.Stage) *int64 {
	if len(stages) == 0 {
		return nil
	}
	stage := stages[0]
	if len(stages) > 1 {
		stage = stages[1]
	}
	return &stage.ID
}

// GetProjectsTool handles the get_projects MCP tool.
type GetProjectsTool struct {
	store *store.Store
}

// NewGetProjectsTool creates a GetProjectsTool.
func NewGetProjectsTool(st *store.Store) *GetProjectsTool {
	return &GetProjectsTool{store: st}
}

// Definition returns the MCP tool definition for get_projects.
func (t *GetProjectsTool) Definition() mcp.Tool {
	return mcp.NewTool("get_projects",
		mcp.WithDescription("Get all projects with their details"),
		mcp.WithString("status",
			mcp.Description("Filter by approval status: pending, approved or rejected"),
		),
	)
}

// Handle processes the get_projects tool call.
func (t *GetProjectsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status := store.ApprovalStatus(req.GetString("status", ""))

	projects, err := t.store.ListProjects(ctx, status)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("listing projects: %v", err)), nil
	}
	if projects == nil {
		projects = []*store.Project{}
	}
	return jsonResult(projects), nil
}

// GetProjectDetailsTool handles the get_project_details MCP tool.
type GetProjectDetailsTool struct {
	store *store.Store
}

// NewGetProjectDetailsTool creates a GetProjectDetailsTool.
func NewGetProjectDetailsTool(st *store.Store) *GetProjectDetailsTool {
	return &GetProjectDetailsTool{store: st}
}

// Definition returns the MCP tool definition for get_project_details.
func (t *GetProjectDetailsTool) Definition() mcp.Tool {
	return mcp.NewTool("get_project_details",
		mcp.WithDescription("Get detailed information about a specific project"),
		mcp.WithNumber("project_id",
			mcp.Required(),
			mcp.Description("Project ID"),
		),
	)
}

// Handle processes the get_project_details tool call. The project comes back
// with its stages and tasks populated.
func (t *GetProjectDetailsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := int64Arg(req, "project_id", 0)
	if id <= 0 {
		return mcp.NewToolResultError("'project_id' is required"), nil
	}

	project, err := t.store.GetProject(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return mcp.NewToolResultError("Project not found"), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("loading project: %v", err)), nil
	}
	return jsonResult(project), nil
}

// ApproveProjectTool handles the approve_project MCP tool.
type ApproveProjectTool struct {
	store *store.Store
}

// NewApproveProjectTool creates an ApproveProjectTool.
func NewApproveProjectTool(st *store.Store) *ApproveProjectTool {
	return &ApproveProjectTool{store: st}
}

// Definition returns the MCP tool definition for approve_project.
func (t *ApproveProjectTool) Definition() mcp.Tool {
	return mcp.NewTool("approve_project",
		mcp.WithDescription("Approve a pending project"),
		mcp.WithNumber("project_id",
			mcp.Required(),
			mcp.Description("Project ID to approve"),
		),
	)
}

// Handle processes the approve_project tool call.
func (t *ApproveProjectTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := int64Arg(req, "project_id", 0)
	if id <= 0 {
		return mcp.NewToolResultError("'project_id' is required"), nil
	}

	approved := store.ApprovalApproved
	if _, err := t.store.UpdateProject(ctx, id, store.ProjectUpdate{ApprovalStatus: &approved}); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return mcp.NewToolResultError("Project not found"), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("approving project: %v", err)), nil
	}

	return jsonResult(map[string]any{
		"success":    true,
		"project_id": id,
		"status":     store.ApprovalApproved,
	}), nil
}
