// Package mcptools exposes the points engine as MCP tools.
package mcptools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/pieme/nzpoints/internal/engine"
	"github.com/pieme/nzpoints/internal/questionnaire"
	"github.com/pieme/nzpoints/internal/render"
)

// EvaluateTool handles the points_evaluate MCP tool.
type EvaluateTool struct {
	engine *engine.Engine
	now    func() time.Time
}

// NewEvaluateTool creates an EvaluateTool. now defaults to time.Now.
func NewEvaluateTool(eng *engine.Engine, now func() time.Time) *EvaluateTool {
	if now == nil {
		now = time.Now
	}
	return &EvaluateTool{engine: eng, now: now}
}

// Definition returns the MCP tool definition for points_evaluate.
func (t *EvaluateTool) Definition() mcp.Tool {
	return mcp.NewTool("points_evaluate",
		mcp.WithDescription(
			"Score New Zealand Skilled Migrant questionnaire answers. "+
				"Returns the points per category, the total and whether it meets the selection threshold.",
		),
		mcp.WithString("answers",
			mcp.Required(),
			mcp.Description("Answers document as JSON or YAML with any of: identity, qualification, workExperience, employment, partner"),
		),
		mcp.WithString("now",
			mcp.Description("Evaluation date as YYYY-MM-DD. Defaults to today."),
		),
		mcp.WithString("format",
			mcp.Description("Output format: 'markdown' (default) or 'json'"),
		),
	)
}

// Handle processes the points_evaluate tool call.
func (t *EvaluateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	answers := req.GetString("answers", "")
	if answers == "" {
		return mcp.NewToolResultError("answers is required"), nil
	}
	st, err := questionnaire.ParseState([]byte(answers))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid answers: %v", err)), nil
	}

	now := t.now()
	if raw := req.GetString("now", ""); raw != "" {
		d, err := questionnaire.ParseDate(raw)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		now = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	}

	rs := t.engine.Evaluate(st, now)

	switch format := req.GetString("format", "markdown"); format {
	case "markdown", "md":
		return mcp.NewToolResultText(render.Markdown(rs) + render.ShareMessage(rs) + "\n"), nil
	case "json":
		data, err := json.MarshalIndent(rs, "", "  ")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("encode result: %v", err)), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown format %q", format)), nil
	}
}
