// Package mcptools exposes the board to AI agents over the Model Context
// Protocol. Each tool is a struct with its dependencies injected via
// constructor; Definition() returns the schema and Handle() serves calls.
// New is the composition root that wires every tool onto one MCP server.
package mcptools

import (
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/agentboard/agentboard/internal/store"
)

// Version is set at build time via ldflags.
var Version = "dev"

// New creates the MCP server with every board tool registered.
func New(st *store.Store) *server.MCPServer {
	s := server.NewMCPServer(
		"agentboard",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	createProject := NewCreateProjectTool(st)
	s.AddTool(createProject.Definition(), createProject.Handle)

	getProjects := NewGetProjectsTool(st)
	s.AddTool(getProjects.Definition(), getProjects.Handle)

	projectDetails := NewGetProjectDetailsTool(st)
	s.AddTool(projectDetails.Definition(), projectDetails.Handle)

	approveProject := NewApproveProjectTool(st)
	s.AddTool(approveProject.Definition(), approveProject.Handle)

	createTask := NewCreateTaskTool(st)
	s.AddTool(createTask.Definition(), createTask.Handle)

	getTasks := NewGetTasksTool(st)
	s.AddTool(getTasks.Definition(), getTasks.Handle)

	planProject := NewPlanProjectTool()
	s.AddTool(planProject.Definition(), planProject.Handle)

	return s
}

// int64Arg extracts an integer argument, returning defaultVal if the key is
// missing or not a number (JSON numbers arrive as float64).
func int64Arg(req mcp.CallToolRequest, key string, defaultVal int64) int64 {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int64(v)
}

// intArg is int64Arg for plain int fields.
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	return int(int64Arg(req, key, int64(defaultVal)))
}

// jsonResult renders v as indented JSON text, the format agents parse back.
func jsonResult(v any) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError("encoding result: " + err.Error())
	}
	return mcp.NewToolResultText(string(data))
}
