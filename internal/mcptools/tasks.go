package mcptools

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/agentboard/agentboard/internal/store"
)

// CreateTaskTool handles the create_task MCP tool.
type CreateTaskTool struct {
	store *store.Store
}

// NewCreateTaskTool creates a CreateTaskTool.
func NewCreateTaskTool(st *store.Store) *CreateTaskTool {
	return &CreateTaskTool{store: st}
}

// Definition returns the MCP tool definition for create_task.
func (t *CreateTaskTool) Definition() mcp.Tool {
	return mcp.NewTool("create_task",
		mcp.WithDescription("Create a new task in a project"),
		mcp.WithNumber("project_id",
			mcp.Required(),
			mcp.Description("Project ID"),
		),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("Task title"),
		),
		mcp.WithString("description",
			mcp.Description("Task description"),
		),
		mcp.WithString("required_skills",
			mcp.Description("Required skills (comma-separated)"),
		),
		mcp.WithNumber("priority",
			mcp.Description("Task priority (0-10)"),
		),
	)
}

// Handle processes the create_task tool call. The task lands in the
// project's To Do stage, pending.
func (t *CreateTaskTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID := int64Arg(req, "project_id", 0)
	if projectID <= 0 {
		return mcp.NewToolResultError("'project_id' is required"), nil
	}
	title := req.GetString("title", "")
	if title == "" {
		return mcp.NewToolResultError("'title' is required"), nil
	}

	stages, err := t.store.ListStages(ctx, projectID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("loading stages: %v", err)), nil
	}

	task, err := t.store.CreateTask(ctx, store.TaskCreate{
		Title:          title,
		Description:    req.GetString("description", ""),
		ProjectID:      projectID,
		StageID:        defaultTaskStage(stages),
		RequiredSkills: req.GetString("required_skills", ""),
		Priority:       intArg(req, "priority", 0),
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return mcp.NewToolResultError("Project not found"), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("creating task: %v", err)), nil
	}

	return jsonResult(map[string]any{
		"success": true,
		"task_id": task.ID,
		"title": task.Title,
	}), nil
}

// GetTasksTool handles the get_tasks MCP tool.
type GetTasksTool struct {
	store *store.Store
}

// NewGetTasksTool creates a GetTasksTool.
func NewGetTasksTool(st *store.Store) *GetTasksTool {
	return &GetTasksTool{store: st}
}

// Definition returns the MCP tool definition for get_tasks.
func (t *GetTasksTool) Definition() mcp.Tool {
	return mcp.NewTool("get_tasks",
		mcp.WithDescription("Get tasks with optional filters"),
		mcp.WithNumber("project_id",
			mcp.Description("Filter by project ID"),
		),
		mcp.WithString("status",
			mcp.Description("Filter by task status: pending, in_progress, completed or blocked"),
		),
	)
}

// Handle processes the get_tasks tool call.
func (t *GetTasksTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filter := store.TaskFilter{
		ProjectID: int64Arg(req, "project_id", 0),
		Status:    store.TaskStatus(req.GetString("status", "")),
	}

	tasks, err := t.store.ListTasks(ctx, filter)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("listing tasks: %v", err)), nil
	}
	if tasks == nil {
		tasks = []*store.Task{}
	}
	return jsonResult(tasks), nil
}

// PlanProjectTool handles the plan_project MCP tool: it returns a structured
// planning template the calling agent fills in and feeds back through
// create_project. No state changes here.
type PlanProjectTool struct{}

// NewPlanProjectTool creates a PlanProjectTool.
func NewPlanProjectTool() *PlanProjectTool {
	return &PlanProjectTool{}
}

// Definition returns the MCP tool definition for plan_project.
func (t *PlanProjectTool) Definition() mcp.Tool {
	return mcp.NewTool("plan_project",
		mcp.WithDescription("AI-assisted project planning - creates project with intelligent task breakdown"),
		mcp.WithString("goal",
			mcp.Required(),
			mcp.Description("What you want to accomplish"),
		),
		mcp.WithString("scope",
			mcp.Description("Project scope and constraints"),
		),
		mcp.WithString("skills_available",
			mcp.Description("Available skills/resources"),
		),
	)
}

// Handle processes the plan_project tool call.
func (t *PlanProjectTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	goal := req.GetString("goal", "")
	if goal == "" {
		return mcp.NewToolResultError("'goal' is required"), nil
	}
	scope := req.GetString("scope", "AI-generated project plan")
	skills := req.GetString("skills_available", "development")

	plan := map[string]any{
		"project": map[string]any{
			"name":        fmt.Sprintf("Project: %s", goal),
			"description": scope,
			"goal":        goal,
		},
		"suggested_tasks": []map[string]any{
			{
				"title": "Define Requirements",
				"description": "Clearly define all project requirements and constraints",
				"priority": 10,
				"required_skills": "planning,analysis",
			},
			{
				"title": "Design Architecture",
				"description": "Design the system architecture and data models",
				"priority": 9,
				"required_skills": "design,architecture",
			},
			{
				"title": "Implementation",
				"description": "Implement the core functionality",
				"priority": 8,
				"required_skills": skills,
			},
			{
				"title": "Testing",
				"description": "Write and run comprehensive tests",
				"priority": 7,
				"required_skills": "testing,qa",
			},
			{
				"title": "Documentation",
				"description": "Create user and technical documentation",
				"priority": 6,
				"required_skills": "documentation,writing",
			},
		},
		"instructions": "Use 'create_project' tool with the above structure to create the planned project",
	}
	return jsonResult(plan), nil
}
