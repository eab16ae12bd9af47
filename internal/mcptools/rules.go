package mcptools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/pieme/nzpoints/internal/rules"
)

// RulesTool handles the points_rules MCP tool.
type RulesTool struct {
	active *rules.Table
}

// NewRulesTool creates a RulesTool. active is shown when no name is given.
func NewRulesTool(active *rules.Table) *RulesTool {
	return &RulesTool{active: active}
}

// Definition returns the MCP tool definition for points_rules.
func (t *RulesTool) Definition() mcp.Tool {
	return mcp.NewTool("points_rules",
		mcp.WithDescription("Show a points rule table, or the active one when no name is given."),
		mcp.WithString("name",
			mcp.Description("Builtin rule table name, e.g. nz-smc"),
		),
	)
}

// Handle processes the points_rules tool call.
func (t *RulesTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := req.GetString("name", "")
	if name == "" || name == t.active.Name {
		return mcp.NewToolResultText(rules.Format(t.active)), nil
	}
	tbl, err := rules.LoadBuiltin(name)
	if err != nil {
		names, _ := rules.List()
		return mcp.NewToolResultError(fmt.Sprintf("unknown rule table %q (available: %s)", name, strings.Join(names, ", "))), nil
	}
	return mcp.NewToolResultText(rules.Format(tbl)), nil
}
