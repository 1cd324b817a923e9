package mcp

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/okian/dedidash/internal/domain/window"
	"github.com/okian/dedidash/pkg/logger"
)

type toolHandler struct {
	deps   Dependencies
	logger logger.Logger
}

// windowQuery reads the shared window arguments.
func windowQuery(req mcp.CallToolRequest) (window.Query, error) {
	q := window.Query{
		Start: strings.TrimSpace(req.GetString("start", "")),
		End:   strings.TrimSpace(req.GetString("end", "")),
	}
	if days := strings.TrimSpace(req.GetString("days", "")); days != "" {
		if strings.EqualFold(days, "all") {
			q.All = true
		} else {
			n, err := strconv.Atoi(days)
			if err != nil || n < 1 {
				return window.Query{}, fmt.Errorf("days must be a positive integer or 'all', got %q", days)
			}
			q.Days = n
		}
	}
	wb := req.GetInt("weeks_back", 0)
	if wb < 0 {
		return window.Query{}, fmt.Errorf("weeks_back must not be negative")
	}
	q.WeeksBack = wb
	return q, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (h *toolHandler) failed(ctx context.Context, tool string, err error) (*mcp.CallToolResult, error) {
	h.logger.Error(ctx, "tool failed", logger.String("tool", tool), logger.Error(err))
	return mcp.NewToolResultError(fmt.Sprintf("%s failed: %v", tool, err)), nil
}

func (h *toolHandler) handleLeaderboard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	q, err := windowQuery(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	win, err := h.deps.LeaderboardWindow(q)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	lb, err := h.deps.GenerateLeaderboard(ctx, h.deps.Roster(), win)
	if err != nil {
		return h.failed(ctx, ToolLeaderboard, err)
	}
	return jsonResult(lb)
}

func (h *toolHandler) handleWeeklyReport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	q, err := windowQuery(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	win, err := h.deps.WeeklyWindow(q)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	report, err := h.deps.GenerateWeeklyReport(ctx, h.deps.Roster(), win)
	if err != nil {
		return h.failed(ctx, ToolWeeklyReport, err)
	}
	return jsonResult(report)
}

func (h *toolHandler) handlePlayerAnalytics(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	login := strings.ToLower(strings.TrimSpace(req.GetString("login", "")))
	if login == "" {
		return mcp.NewToolResultError("login is required"), nil
	}
	q, err := windowQuery(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	win, err := h.deps.AnalyticsWindow(q)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	pa, err := h.deps.PlayerAnalytics(ctx, login, win)
	if err != nil {
		return h.failed(ctx, ToolPlayerAnalytics, err)
	}
	return jsonResult(pa)
}

func (h *toolHandler) handleDatabaseStatus(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st, err := h.deps.DatabaseStatus(ctx)
	if err != nil {
		return h.failed(ctx, ToolDatabaseStatus, err)
	}
	return jsonResult(st)
}
