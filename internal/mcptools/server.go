package mcptools

import (
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/pieme/nzpoints/internal/engine"
)

// NewServer builds an MCP server with the points tools registered.
func NewServer(eng *engine.Engine, now func() time.Time, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"nzpoints",
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	evaluateTool := NewEvaluateTool(eng, now)
	s.AddTool(evaluateTool.Definition(), evaluateTool.Handle)

	rulesTool := NewRulesTool(eng.Table())
	s.AddTool(rulesTool.Definition(), rulesTool.Handle)

	return s
}
