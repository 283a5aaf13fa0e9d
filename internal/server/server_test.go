package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/agentboard/agentboard/internal/autopilot"
	"github.com/agentboard/agentboard/internal/realtime"
	"github.com/agentboard/agentboard/internal/store"
)

type testBoard struct {
	srv      *httptest.Server
	store    *store.Store
	registry *realtime.Registry
	cell     *autopilot.ConfigCell
}

func newTestBoard(t *testing.T) *testBoard {
	t.Helper()

	st, err := store.New(filepath.Join(t.TempDir(), "board.db"))
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	registry := realtime.NewRegistry()
	cell := autopilot.NewConfigCell()
	s := New(&Config{Host: "127.0.0.1", Port: 0}, st, registry, cell)

	srv := httptest.NewServer(s.routes())
	t.Cleanup(srv.Close)

	return &testBoard{srv: srv, store: st, registry: registry, cell: cell}
}

// do issues a request against the test server and decodes the JSON response
// into out (when out is non-nil).
func (b *testBoard) do(t *testing.T, method, path string, body, out any) int {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, b.srv.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s response: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func TestHealth(t *testing.T) {
	b := newTestBoard(t)

	var body map[string]string
	if code := b.do(t, http.MethodGet, "/health", nil, &body); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if body["status"] != "healthy" {
		t.Errorf("expected healthy status, got %q", body["status"])
	}
}

func TestAutopilotConfigRoundTrip(t *testing.T) {
	b := newTestBoard(t)

	var cfg autopilot.Config
	if code := b.do(t, http.MethodGet, "/ui/autopilot/config", nil, &cfg); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if cfg.Enabled || cfg.ManagerID != 0 {
		t.Errorf("expected zero config, got %+v", cfg)
	}

	want := autopilot.Config{Enabled: true, ManagerID: 7}
	if code := b.do(t, http.MethodPost, "/ui/autopilot/config", want, &cfg); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if cfg != want {
		t.Errorf("expected echoed config %+v, got %+v", want, cfg)
	}

	// The cell the control loop reads from must see the new value.
	if got := b.cell.Get(); got != want {
		t.Errorf("config cell holds %+v, want %+v", got, want)
	}
}

func TestRegisterEntities(t *testing.T) {
	b := newTestBoard(t)

	var human store.Entity
	code := b.do(t, http.MethodPost, "/entities/register/human", map[string]string{
		"name":     "Alice",
		"email":    "alice@example.com",
		"password": "hunter22",
		"skills":   "planning",
	}, &human)
	if code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", code)
	}
	if human.EntityType != store.EntityHuman {
		t.Errorf("expected human, got %s", human.EntityType)
	}

	var agent map[string]any
	code = b.do(t, http.MethodPost, "/entities/register/agent", map[string]string{
		"name":   "Antigravity",
		"skills": "coding,heavy lifting",
	}, &agent)
	if code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", code)
	}
	apiKey, _ := agent["api_key"].(string)
	if !strings.HasPrefix(apiKey, "agb_") {
		t.Errorf("expected agb_ api key, got %q", apiKey)
	}

	var agents []*store.Entity
	if code := b.do(t, http.MethodGet, "/entities?entity_type=agent", nil, &agents); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if len(agents) != 1 || agents[0].Name != "Antigravity" {
		t.Errorf("expected one agent Antigravity, got %+v", agents)
	}
}

func TestProjectLifecycle(t *testing.T) {
	b := newTestBoard(t)

	var project store.Project
	code := b.do(t, http.MethodPost, "/projects", map[string]any{
		"name":        "Heavy Lifting Project",
		"description": "Move the couch",
	}, &project)
	if code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", code)
	}
	if project.ApprovalStatus != store.ApprovalPending {
		t.Errorf("new project should be pending approval, got %s", project.ApprovalStatus)
	}

	var fetched store.Project
	path := fmt.Sprintf("/projects/%d", project.ID)
	if code := b.do(t, http.MethodGet, path, nil, &fetched); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if len(fetched.Stages) != 5 {
		t.Errorf("expected 5 default stages, got %d", len(fetched.Stages))
	}

	var updated store.Project
	code = b.do(t, http.MethodPatch, path, map[string]string{"approval_status": "approved"}, &updated)
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if updated.ApprovalStatus != store.ApprovalApproved {
		t.Errorf("expected approved, got %s", updated.ApprovalStatus)
	}

	var approved []*store.Project
	if code := b.do(t, http.MethodGet, "/projects?approval_status=approved", nil, &approved); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if len(approved) != 1 {
		t.Errorf("expected 1 approved project, got %d", len(approved))
	}

	if code := b.do(t, http.MethodDelete, path, nil, nil); code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", code)
	}
	if code := b.do(t, http.MethodGet, path, nil, nil); code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", code)
	}
}

func TestTaskLifecycle(t *testing.T) {
	b := newTestBoard(t)

	var project store.Project
	b.do(t, http.MethodPost, "/projects", map[string]string{"name": "Board"}, &project)

	var agent store.Entity
	b.do(t, http.MethodPost, "/entities/register/agent", map[string]string{"name": "Antigravity"}, &agent)

	var task store.Task
	code := b.do(t, http.MethodPost, "/tasks", map[string]any{
		"title":      "Lift the couch",
		"project_id": project.ID,
		"priority":   2,
	}, &task)
	if code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", code)
	}
	if task.Status != store.StatusPending {
		t.Errorf("new task should be pending, got %s", task.Status)
	}

	// Self-assign uses the same query parameter contract as assign.
	assignPath := fmt.Sprintf("/tasks/%d/self-assign?entity_id=%d", task.ID, agent.ID)
	var assigned store.Task
	if code := b.do(t, http.MethodPost, assignPath, nil, &assigned); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if len(assigned.Assignees) != 1 || assigned.Assignees[0].ID != agent.ID {
		t.Errorf("expected one assignee %d, got %+v", agent.ID, assigned.Assignees)
	}

	// Re-assigning the same entity keeps the set unchanged.
	if code := b.do(t, http.MethodPost, assignPath, nil, &assigned); code != http.StatusOK {
		t.Fatalf("expected 200 for repeat assign, got %d", code)
	}
	if len(assigned.Assignees) != 1 {
		t.Errorf("repeat assign must not duplicate assignees, got %d", len(assigned.Assignees))
	}

	unassignPath := fmt.Sprintf("/tasks/%d/unassign/%d", task.ID, agent.ID)
	if code := b.do(t, http.MethodDelete, unassignPath, nil, &assigned); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if len(assigned.Assignees) != 0 {
		t.Errorf("expected no assignees after unassign, got %d", len(assigned.Assignees))
	}

	var updated store.Task
	taskPath := fmt.Sprintf("/tasks/%d", task.ID)
	code = b.do(t, http.MethodPatch, taskPath, map[string]string{"status": "completed"}, &updated)
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if updated.CompletedAt == nil {
		t.Error("completing a task should stamp completed_at")
	}

	var comment store.Comment
	code = b.do(t, http.MethodPost, "/comments", map[string]any{
		"task_id":   task.ID,
		"author_id": agent.ID,
		"content":   "done",
	}, &comment)
	if code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", code)
	}

	var comments []*store.Comment
	if code := b.do(t, http.MethodGet, taskPath+"/comments", nil, &comments); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if len(comments) != 1 || comments[0].Content != "done" {
		t.Errorf("expected one comment, got %+v", comments)
	}

	var logs []*store.TaskLog
	if code := b.do(t, http.MethodGet, taskPath+"/logs", nil, &logs); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if len(logs) != 0 {
		t.Errorf("expected no logs for a fresh task, got %d", len(logs))
	}

	if code := b.do(t, http.MethodDelete, taskPath, nil, nil); code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", code)
	}
}

func TestListTasksFilters(t *testing.T) {
	b := newTestBoard(t)

	var p1, p2 store.Project
	b.do(t, http.MethodPost, "/projects", map[string]string{"name": "One"}, &p1)
	b.do(t, http.MethodPost, "/projects", map[string]string{"name": "Two"}, &p2)

	b.do(t, http.MethodPost, "/tasks", map[string]any{"title": "a", "project_id": p1.ID}, nil)
	b.do(t, http.MethodPost, "/tasks", map[string]any{"title": "b", "project_id": p2.ID}, nil)

	var tasks []*store.Task
	path := fmt.Sprintf("/tasks?project_id=%d", p1.ID)
	if code := b.do(t, http.MethodGet, path, nil, &tasks); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if len(tasks) != 1 || tasks[0].Title != "a" {
		t.Errorf("expected task a only, got %+v", tasks)
	}

	if code := b.do(t, http.MethodGet, "/tasks?project_id=bogus", nil, nil); code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad project_id, got %d", code)
	}
}

func TestErrorResponses(t *testing.T) {
	b := newTestBoard(t)

	var body map[string]string
	if code := b.do(t, http.MethodGet, "/tasks/9999", nil, &body); code != http.StatusNotFound {
		t.Errorf("expected 404 for missing task, got %d", code)
	}
	if body["error"] == "" {
		t.Error("error responses must carry an error message")
	}

	if code := b.do(t, http.MethodGet, "/tasks/zero", nil, nil); code != http.StatusBadRequest {
		t.Errorf("expected 400 for non-numeric id, got %d", code)
	}

	code := b.do(t, http.MethodPost, "/tasks", map[string]any{"title": "orphan", "project_id": 42}, nil)
	if code != http.StatusNotFound {
		t.Errorf("expected 404 for task on missing project, got %d", code)
	}
}
