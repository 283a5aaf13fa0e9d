package mcptools

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/agentboard/agentboard/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.New(filepath.Join(t.TempDir(), "board.db"))
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

// makeReq builds a mcp.CallToolRequest with the given arguments.
func makeReq(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

// resultText extracts the text content from a tool result.
func resultText(r *mcp.CallToolResult) string {
	if r == nil || len(r.Content) == 0 {
		return ""
	}
	for _, c := range r.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestCreateProjectTool(t *testing.T) {
	st := newTestStore(t)
	tool := NewCreateProjectTool(st)

	def := tool.Definition()
	if def.Name != "create_project" {
		t.Errorf("tool name = %q, want create_project", def.Name)
	}

	res, err := tool.Handle(context.Background(), makeReq(map[string]any{
		"name":        "Heavy Lifting Project",
		"description": "Move the couch",
		"tasks": []any{
			map[string]any{"title": "Lift", "priority": float64(5), "required_skills": "strength"},
			map[string]any{"title": "Carry", "description": "down the stairs"},
		},
	}))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected error result: %s", resultText(res))
	}

	var out struct {
		Success   bool  `json:"success"`
		ProjectID int64 `json:"project_id"`
		Stages    int   `json:"stages"`
		Tasks     int   `json:"tasks"`
	}
	if err := json.Unmarshal([]byte(resultText(res)), &out); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if !out.Success || out.Stages != 5 || out.Tasks != 2 {
		t.Errorf("unexpected result: %+v", out)
	}

	// Tasks must land in the To Do stage, pending.
	tasks, err := st.ListTasks(context.Background(), store.TaskFilter{ProjectID: out.ProjectID})
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(tasks))
	}
	stages, _ := st.ListStages(context.Background(), out.ProjectID)
	for _, task := range tasks {
		if task.Status != store.StatusPending {
			t.Errorf("task %q status = %s, want pending", task.Title, task.Status)
		}
		if task.StageID == nil || *task.StageID != stages[1].ID {
			t.Errorf("task %q should land in the To Do stage", task.Title)
		}
	}
}

func TestCreateProjectToolRequiresName(t *testing.T) {
	tool := NewCreateProjectTool(newTestStore(t))

	res, err := tool.Handle(context.Background(), makeReq(map[string]any{}))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !res.IsError {
		t.Error("expected error result for missing name")
	}
}

func TestGetProjectsToolFilter(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	p1, _ := st.CreateProject(ctx, "One", "", 0)
	if _, err := st.CreateProject(ctx, "Two", "", 0); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	approved := store.ApprovalApproved
	if _, err := st.UpdateProject(ctx, p1.ID, store.ProjectUpdate{ApprovalStatus: &approved}); err != nil {
		t.Fatalf("UpdateProject: %v", err)
	}

	tool := NewGetProjectsTool(st)
	res, err := tool.Handle(ctx, makeReq(map[string]any{"status": "approved"}))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}

	var projects []*store.Project
	if err := json.Unmarshal([]byte(resultText(res)), &projects); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(projects) != 1 || projects[0].Name != "One" {
		t.Errorf("expected project One only, got %+v", projects)
	}
}

func TestGetProjectDetailsToolNotFound(t *testing.T) {
	tool := NewGetProjectDetailsTool(newTestStore(t))

	res, err := tool.Handle(context.Background(), makeReq(map[string]any{"project_id": float64(99)}))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !res.IsError {
		t.Fatal("expected error result for missing project")
	}
	if !strings.Contains(resultText(res), "Project not found") {
		t.Errorf("unexpected error text: %s", resultText(res))
	}
}

func TestApproveProjectTool(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	project, err := st.CreateProject(ctx, "Pending", "", 0)
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}

	tool := NewApproveProjectTool(st)
	res, err := tool.Handle(ctx, makeReq(map[string]any{"project_id": float64(project.ID)}))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected error result: %s", resultText(res))
	}

	got, err := st.GetProject(ctx, project.ID)
	if err != nil {
		t.Fatalf("GetProject: %v", err)
	}
	if got.ApprovalStatus != store.ApprovalApproved {
		t.Errorf("approval status = %s, want approved", got.ApprovalStatus)
	}
}

func TestCreateTaskTool(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	project, err := st.CreateProject(ctx, "Board", "", 0)
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}

	tool := NewCreateTaskTool(st)
	res, err := tool.Handle(ctx, makeReq(map[string]any{
		"project_id": float64(project.ID),
		"title":      "Lift the couch",
		"priority":   float64(3),
	}))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected error result: %s", resultText(res))
	}

	var out struct {
		Success bool  `json:"success"`
		TaskID  int64 `json:"task_id"`
	}
	if err := json.Unmarshal([]byte(resultText(res)), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	task, err := st.GetTask(ctx, out.TaskID)
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if task.Priority != 3 || task.Status != store.StatusPending {
		t.Errorf("unexpected task: %+v", task)
	}
}

func TestGetTasksToolFilters(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	project, _ := st.CreateProject(ctx, "Board", "", 0)
	if _, err := st.CreateTask(ctx, store.TaskCreate{Title: "a", ProjectID: project.ID}); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	tool := NewGetTasksTool(st)
	res, err := tool.Handle(ctx, makeReq(map[string]any{
		"project_id": float64(project.ID),
		"status":     "pending",
	}))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}

	var tasks []*store.Task
	if err := json.Unmarshal([]byte(resultText(res)), &tasks); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Title != "a" {
		t.Errorf("expected task a, got %+v", tasks)
	}
}

func TestPlanProjectTool(t *testing.T) {
	tool := NewPlanProjectTool()

	res, err := tool.Handle(context.Background(), makeReq(map[string]any{"goal": "ship it"}))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	var plan struct {
		SuggestedTasks []map[string]any `json:"suggested_tasks"`
		Instructions   string           `json:"instructions"`
	}
	if err := json.Unmarshal([]byte(resultText(res)), &plan); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(plan.SuggestedTasks) != 5 {
		t.Errorf("expected 5 suggested tasks, got %d", len(plan.SuggestedTasks))
	}
	if !strings.Contains(plan.Instructions, "create_project") {
		t.Errorf("instructions should point at create_project, got %q", plan.Instructions)
	}

	res, err = tool.Handle(context.Background(), makeReq(map[string]any{}))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !res.IsError {
		t.Error("expected error result for missing goal")
	}
}
