// Package mcp exposes the reports as Model Context Protocol tools.
package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/okian/dedidash/internal/domain/roster"
	"github.com/okian/dedidash/internal/domain/types"
	"github.com/okian/dedidash/internal/domain/window"
	"github.com/okian/dedidash/pkg/logger"
)

// Tool names.
const (
	ToolLeaderboard     = "leaderboard"
	ToolWeeklyReport    = "weekly_report"
	ToolPlayerAnalytics = "player_analytics"
	ToolDatabaseStatus  = "database_status"
)

// Dependencies are the report operations behind the tools.
type Dependencies interface {
	Roster() roster.Roster
	LeaderboardWindow(q window.Query) (window.Window, error)
	WeeklyWindow(q window.Query) (window.Window, error)
	AnalyticsWindow(q window.Query) (window.Window, error)
	GenerateLeaderboard(ctx context.Context, r roster.Roster, w window.Window) (types.Leaderboard, error)
	GenerateWeeklyReport(ctx context.Context, r roster.Roster, w window.Window) (types.WeeklyReport, error)
	PlayerAnalytics(ctx context.Context, player string, w window.Window) (types.PlayerAnalytics, error)
	DatabaseStatus(ctx context.Context) (types.DatabaseStatus, error)
}

func windowOptions() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("start", mcp.Description("First day of the window, YYYY-MM-DD.")),
		mcp.WithString("end", mcp.Description("Last day of the window, YYYY-MM-DD.")),
		mcp.WithString("days", mcp.Description("Number of days ending today, or 'all'.")),
		mcp.WithNumber("weeks_back", mcp.Description("Whole weeks before the current one; 0 is this week.")),
	}
}

func tool(name, description string, opts ...mcp.ToolOption) mcp.Tool {
	return mcp.NewTool(name, append([]mcp.ToolOption{mcp.WithDescription(description)}, opts...)...)
}

// NewServer configures the tool server without starting it.
func NewServer(deps Dependencies, version string, l logger.Logger) *server.MCPServer {
	if l == nil {
		l = logger.NewNop()
	}
	s := server.NewMCPServer("dedidash", version, server.WithLogging())
	h := &toolHandler{deps: deps, logger: l}

	s.AddTool(tool(ToolLeaderboard,
		"Ranked leaderboard of the roster. Defaults to the current week.",
		windowOptions()...), h.handleLeaderboard)

	s.AddTool(tool(ToolWeeklyReport,
		"New and improved records per player compared with the previous window, with rivalries and highlights.",
		windowOptions()...), h.handleWeeklyReport)

	s.AddTool(tool(ToolPlayerAnalytics,
		"Rank distribution, environments and recent records of one player. Defaults to all time.",
		append([]mcp.ToolOption{
			mcp.WithString("login", mcp.Description("Dedimania login of the player."), mcp.Required()),
		}, windowOptions()...)...), h.handlePlayerAnalytics)

	s.AddTool(tool(ToolDatabaseStatus,
		"Store contents and the last ingestion run."), h.handleDatabaseStatus)

	return s
}

// Serve runs the tool server over stdio until the client disconnects.
func Serve(_ context.Context, deps Dependencies, version string, l logger.Logger) error {
	return server.ServeStdio(NewServer(deps, version, l))
}
